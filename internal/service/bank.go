package service

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"apicourse/internal/apperr"
	"apicourse/internal/model"
)

// ValidPermissions is the set a customer may be granted.
var ValidPermissions = []string{"read", "write", "delete", "admin"}

// Withdrawal is the outcome of a successful withdrawal.
type Withdrawal struct {
	AccountID  int64   `json:"account_id"`
	Amount     float64 `json:"amount"`
	NewBalance float64 `json:"new_balance"`
}

// Bank holds customers and their accounts in memory and enforces the account rules.
// Every error it returns is an *apperr.Error.
type Bank struct {
	mu          sync.Mutex
	customers   map[int64]model.Customer
	accounts    map[int64]model.Account
	nextCust    int64
	nextAccount int64
	now         func() time.Time
}

func NewBank() *Bank {
	return &Bank{
		customers: make(map[int64]model.Customer),
		accounts:  make(map[int64]model.Account),
		now:       time.Now,
	}
}

func (b *Bank) Customer(id int64) (model.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.customers[id]
	if !ok {
		return model.Customer{}, apperr.NotFound("user", id)
	}
	return c, nil
}

// AddCustomer stores c with a lowercased email. Emails are unique.
func (b *Bank) AddCustomer(c model.Customer) (model.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c.Email = strings.ToLower(c.Email)
	for _, existing := range b.customers {
		if existing.Email == c.Email {
			return model.Customer{}, apperr.Duplicate("user", "email", c.Email)
		}
	}
	if c.Role == "" {
		c.Role = "user"
	}
	if c.Permissions == nil {
		c.Permissions = []string{}
	}
	b.nextCust++
	c.ID = b.nextCust
	c.CreatedAt = b.now().UTC()
	b.customers[c.ID] = c
	return c, nil
}

func (b *Bank) OpenAccount(userID int64, balance float64, active bool) (model.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.customers[userID]; !ok {
		return model.Account{}, apperr.NotFound("user", userID)
	}
	if balance < 0 {
		return model.Account{}, apperr.Validation(apperr.Detail{
			Field: "balance", Message: "balance cannot be negative", Code: "gte", Value: balance,
		})
	}
	b.nextAccount++
	a := model.Account{
		ID:        b.nextAccount,
		UserID:    userID,
		Balance:   balance,
		IsActive:  active,
		CreatedAt: b.now().UTC(),
	}
	b.accounts[a.ID] = a
	return a, nil
}

func (b *Bank) Withdraw(accountID int64, amount float64) (Withdrawal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.accounts[accountID]
	if !ok {
		return Withdrawal{}, apperr.New(404, "ACCOUNT_NOT_FOUND", "account not found")
	}
	if !a.IsActive {
		return Withdrawal{}, apperr.New(403, "ACCOUNT_INACTIVE", "account is inactive")
	}
	if amount <= 0 {
		return Withdrawal{}, apperr.BusinessRule("invalid withdrawal amount", apperr.Detail{
			Field: "amount", Message: "amount must be positive", Code: "INVALID_AMOUNT", Value: amount,
		})
	}
	if a.Balance < amount {
		return Withdrawal{}, apperr.BusinessRule("insufficient funds", apperr.Detail{
			Field:   "balance",
			Message: fmt.Sprintf("available balance: $%.2f", a.Balance),
			Code:    "INSUFFICIENT_FUNDS",
			Value:   a.Balance,
		})
	}
	a.Balance -= amount
	now := b.now().UTC()
	a.LastTransaction = &now
	b.accounts[accountID] = a
	return Withdrawal{AccountID: accountID, Amount: amount, NewBalance: a.Balance}, nil
}

// SetPermissions replaces a customer's permissions on behalf of an admin customer.
func (b *Bank) SetPermissions(userID, adminID int64, perms []string) (model.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.customers[userID]
	if !ok {
		return model.Customer{}, apperr.NotFound("user", userID)
	}
	admin, ok := b.customers[adminID]
	if !ok {
		return model.Customer{}, apperr.NotFound("user", adminID)
	}
	if admin.Role != "admin" {
		return model.Customer{}, apperr.Forbidden("admin role")
	}

	var invalid []string
	for _, p := range perms {
		if !slices.Contains(ValidPermissions, p) && !slices.Contains(invalid, p) {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		slices.Sort(invalid)
		details := make([]apperr.Detail, 0, len(invalid))
		for _, p := range invalid {
			details = append(details, apperr.Detail{
				Field: "permissions", Message: "invalid permission: " + p, Code: "INVALID_PERMISSION", Value: p,
			})
		}
		return model.Customer{}, apperr.BusinessRule("invalid permissions specified", details...)
	}

	c.Permissions = slices.Clone(perms)
	now := b.now().UTC()
	c.UpdatedAt = &now
	c.UpdatedBy = &adminID
	b.customers[userID] = c
	return c, nil
}

// DeleteCustomer removes a customer together with all of their accounts. Active
// accounts block deletion unless force is set.
func (b *Bank) DeleteCustomer(id int64, force bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.customers[id]; !ok {
		return apperr.NotFound("user", id)
	}
	var owned []int64
	active := 0
	for _, a := range b.accounts {
		if a.UserID != id {
			continue
		}
		owned = append(owned, a.ID)
		if a.IsActive {
			active++
		}
	}
	if active > 0 && !force {
		return apperr.BusinessRule("cannot delete user with active accounts", apperr.Detail{
			Field:   "active_accounts",
			Message: fmt.Sprintf("user has %d active accounts", active),
			Code:    "ACTIVE_ACCOUNTS_EXIST",
			Value:   active,
		})
	}
	delete(b.customers, id)
	for _, aid := range owned {
		delete(b.accounts, aid)
	}
	return nil
}

func (b *Bank) Account(id int64) (model.Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	return a, ok
}
