package model

import "time"

// Item is a catalog entry managed through the CRUD routes.
type Item struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Tax         *float64   `json:"tax,omitempty"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ItemInput is the payload for creating or fully replacing an item.
type ItemInput struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Tax         *float64 `json:"tax" validate:"omitempty,gte=0"`
	Tags        []string `json:"tags" validate:"omitempty,dive,min=1,max=30"`
}

// ItemPatch carries only the fields a client wants to change.
type ItemPatch struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Tax         *float64  `json:"tax" validate:"omitempty,gte=0"`
	Tags        *[]string `json:"tags"`
}

// ProductStatus is the lifecycle state of a catalog product.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductPending  ProductStatus = "pending"
)

// Product is a read-only catalog record used by the query parameter routes.
type Product struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Price    float64       `json:"price"`
	Category string        `json:"category"`
	Tags     []string      `json:"tags"`
	Status   ProductStatus `json:"status"`
}
