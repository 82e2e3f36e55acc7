package model

import "time"

// Customer is a bank customer.
type Customer struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Age         int        `json:"age"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	UpdatedBy   *int64     `json:"updated_by,omitempty"`
}

// Account holds a customer's balance.
type Account struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Balance         float64    `json:"balance"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	LastTransaction *time.Time `json:"last_transaction,omitempty"`
}
