package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
	"apicourse/internal/model"
	"apicourse/internal/service"
)

// failingUserID makes the profile picture upstream fail.
const failingUserID = 999

type customerInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Age      *int   `json:"age" validate:"required,gte=0,lte=150"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

type accountInput struct {
	UserID   int64    `json:"user_id" validate:"required"`
	Balance  *float64 `json:"balance" validate:"required"`
	IsActive *bool    `json:"is_active"`
}

type withdrawQuery struct {
	Amount *float64 `query:"amount" validate:"required"`
}

type permissionsQuery struct {
	AdminUserID *int64 `query:"admin_user_id" validate:"required"`
}

// BankRoutes shows the error taxonomy on top of the in-memory Bank.
type BankRoutes struct {
	bank *service.Bank
}

func NewBankRoutes(bank *service.Bank) *BankRoutes {
	return &BankRoutes{bank: bank}
}

func registerErrors(r fiber.Router, _ *Deps) error {
	h := NewBankRoutes(service.NewBank())
	r.Get("/users/:user_id", h.Customer)
	r.Post("/users", h.CreateCustomer)
	r.Delete("/users/:user_id", h.DeleteCustomer)
	r.Put("/users/:user_id/permissions", h.SetPermissions)
	r.Get("/users/:user_id/profile-picture", h.ProfilePicture)
	r.Post("/accounts", h.OpenAccount)
	r.Post("/accounts/:account_id/withdraw", h.Withdraw)
	r.Get("/test-errors/:error_type", TriggerError)
	return nil
}

func (h *BankRoutes) Customer(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	cust, err := h.bank.Customer(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cust)
}

func (h *BankRoutes) CreateCustomer(c *fiber.Ctx) error {
	var in customerInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	cust, err := h.bank.AddCustomer(model.Customer{
		Name:  in.Name,
		Email: in.Email,
		Age:   *in.Age,
		Role:  in.Role,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cust)
}

func (h *BankRoutes) OpenAccount(c *fiber.Ctx) error {
	var in accountInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	active := in.IsActive == nil || *in.IsActive
	acct, err := h.bank.OpenAccount(in.UserID, *in.Balance, active)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(acct)
}

func (h *BankRoutes) Withdraw(c *fiber.Ctx) error {
	id, err := paramInt(c, "account_id")
	if err != nil {
		return fail(c, err)
	}
	var q withdrawQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	w, err := h.bank.Withdraw(id, *q.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":     "Withdrawal successful",
		"account_id":  w.AccountID,
		"amount":      w.Amount,
		"new_balance": w.NewBalance,
	})
}

// SetPermissions takes the permission list as a JSON array body.
func (h *BankRoutes) SetPermissions(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	var q permissionsQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	var perms []string
	if err := c.BodyParser(&perms); err != nil {
		return fail(c, apperr.BadRequest("INVALID_BODY", "body must be a list of permissions"))
	}
	cust, err := h.bank.SetPermissions(id, *q.AdminUserID, perms)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":     "Permissions updated successfully",
		"user_id":     cust.ID,
		"permissions": cust.Permissions,
		"updated_by":  cust.UpdatedBy,
	})
}

// ProfilePicture stands in for an upstream call; user 999 makes it fail.
func (h *BankRoutes) ProfilePicture(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	if id == failingUserID {
		return fail(c, apperr.External("profile-picture-service", errors.New("service timeout")))
	}
	if _, err := h.bank.Customer(id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id":             id,
		"profile_picture_url": fmt.Sprintf("https://example.com/pictures/%d.jpg", id),
		"last_updated":        time.Now().UTC(),
	})
}

func (h *BankRoutes) DeleteCustomer(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	force := c.QueryBool("force")
	if err := h.bank.DeleteCustomer(id, force); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("User %d deleted successfully", id), "forced": force})
}

// TriggerError produces each error class on demand.
func TriggerError(c *fiber.Ctx) error {
	switch kind := c.Params("error_type"); kind {
	case "validation":
		return fail(c, apperr.Validation(apperr.Detail{
			Field: "field", Message: "test validation error", Code: "value_error",
		}))
	case "http":
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "test HTTP exception"))
	case "custom":
		return fail(c, apperr.New(fiber.StatusTeapot, "TEST_ERROR", "test custom exception"))
	case "unexpected":
		return fail(c, errors.New("test unexpected error"))
	default:
		return c.JSON(fiber.Map{"message": "No error triggered for type: " + kind})
	}
}
