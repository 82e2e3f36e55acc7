package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicourse/internal/apperr"
	"apicourse/internal/model"
)

func TestBank_Customers(t *testing.T) {
	b := NewBank()

	c, err := b.AddCustomer(model.Customer{Name: "Ann", Email: "Ann@Example.com", Age: 30})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", c.Email)
	assert.Equal(t, "user", c.Role)

	_, err = b.AddCustomer(model.Customer{Name: "Ann 2", Email: "ANN@example.com"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, e.Status)
	assert.Equal(t, "DUPLICATE_RESOURCE", e.Code)

	_, err = b.Customer(99)
	e, _ = apperr.As(err)
	assert.Equal(t, "USER_NOT_FOUND", e.Code)
}

func TestBank_Withdraw(t *testing.T) {
	b := NewBank()
	c, _ := b.AddCustomer(model.Customer{Name: "Ann", Email: "ann@example.com"})
	active, err := b.OpenAccount(c.ID, 100, true)
	require.NoError(t, err)
	frozen, err := b.OpenAccount(c.ID, 100, false)
	require.NoError(t, err)

	tests := []struct {
		name       string
		account    int64
		amount     float64
		wantStatus int
		wantCode   string
		detailCode string
	}{
		{"missing account", 99, 10, 404, "ACCOUNT_NOT_FOUND", ""},
		{"inactive", frozen.ID, 10, 403, "ACCOUNT_INACTIVE", ""},
		{"zero amount", active.ID, 0, 422, "BUSINESS_LOGIC_ERROR", "INVALID_AMOUNT"},
		{"negative amount", active.ID, -5, 422, "BUSINESS_LOGIC_ERROR", "INVALID_AMOUNT"},
		{"insufficient", active.ID, 150, 422, "BUSINESS_LOGIC_ERROR", "INSUFFICIENT_FUNDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Withdraw(tt.account, tt.amount)
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Equal(t, tt.wantCode, e.Code)
			if tt.detailCode != "" {
				require.Len(t, e.Details, 1)
				assert.Equal(t, tt.detailCode, e.Details[0].Code)
			}
		})
	}

	w, err := b.Withdraw(active.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 60.0, w.NewBalance)
	acc, _ := b.Account(active.ID)
	assert.NotNil(t, acc.LastTransaction)
}

func TestBank_OpenAccount(t *testing.T) {
	b := NewBank()
	_, err := b.OpenAccount(1, 10, true)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	c, _ := b.AddCustomer(model.Customer{Email: "a@example.com"})
	_, err = b.OpenAccount(c.ID, -1, true)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
}

func TestBank_SetPermissions(t *testing.T) {
	b := NewBank()
	admin, _ := b.AddCustomer(model.Customer{Email: "root@example.com", Role: "admin"})
	user, _ := b.AddCustomer(model.Customer{Email: "u@example.com"})

	_, err := b.SetPermissions(user.ID, user.ID, []string{"read"})
	e, _ := apperr.As(err)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", e.Code)

	_, err = b.SetPermissions(user.ID, admin.ID, []string{"read", "fly", "teleport", "fly"})
	e, _ = apperr.As(err)
	require.NotNil(t, e)
	require.Len(t, e.Details, 2)
	assert.Equal(t, "fly", e.Details[0].Value)
	assert.Equal(t, "teleport", e.Details[1].Value)

	updated, err := b.SetPermissions(user.ID, admin.ID, []string{"read", "write"})
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, updated.Permissions)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, admin.ID, *updated.UpdatedBy)
}

func TestBank_DeleteCustomer(t *testing.T) {
	b := NewBank()
	c, _ := b.AddCustomer(model.Customer{Email: "a@example.com"})
	acc, _ := b.OpenAccount(c.ID, 5, true)

	err := b.DeleteCustomer(c.ID, false)
	e, _ := apperr.As(err)
	require.NotNil(t, e)
	assert.Equal(t, "ACTIVE_ACCOUNTS_EXIST", e.Details[0].Code)
	assert.Equal(t, 1, e.Details[0].Value)

	require.NoError(t, b.DeleteCustomer(c.ID, true))
	_, ok := b.Account(acc.ID)
	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, statusOf(t, b.DeleteCustomer(c.ID, true)))
}

func TestBank_DeleteCustomerDropsInactiveAccounts(t *testing.T) {
	b := NewBank()
	c, _ := b.AddCustomer(model.Customer{Email: "dormant@example.com"})
	other, _ := b.AddCustomer(model.Customer{Email: "other@example.com"})
	closed, _ := b.OpenAccount(c.ID, 0, false)
	kept, _ := b.OpenAccount(other.ID, 10, true)

	require.NoError(t, b.DeleteCustomer(c.ID, false))

	_, ok := b.Account(closed.ID)
	assert.False(t, ok, "accounts of a deleted customer go with them")
	_, ok = b.Account(kept.ID)
	assert.True(t, ok)
}
