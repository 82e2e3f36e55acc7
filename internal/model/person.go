package model

import "time"

// PersonRole is the role of a person profile.
type PersonRole string

const (
	RoleAdmin PersonRole = "admin"
	RoleUser  PersonRole = "user"
	RoleGuest PersonRole = "guest"
)

// PersonStatus is the account state shown in shaped responses.
type PersonStatus string

const (
	StatusActive    PersonStatus = "active"
	StatusInactive  PersonStatus = "inactive"
	StatusSuspended PersonStatus = "suspended"
)

// Address is a postal address nested inside a person.
type Address struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zip_code" validate:"required,zipcode"`
	Country string `json:"country"`
}

// Person is an in-memory profile used by the request body and response shaping routes.
type Person struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	Age               int            `json:"age"`
	IsActive          bool           `json:"is_active"`
	Role              PersonRole     `json:"role"`
	Bio               *string        `json:"bio,omitempty"`
	PasswordHash      string         `json:"-"`
	Phone             *string        `json:"phone,omitempty"`
	Status            PersonStatus   `json:"status"`
	Address           *Address       `json:"address,omitempty"`
	EmergencyContacts []string       `json:"emergency_contacts,omitempty"`
	Preferences       map[string]any `json:"preferences,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         *time.Time     `json:"updated_at,omitempty"`
	LastLogin         *time.Time     `json:"last_login,omitempty"`
}

// Priority orders articles.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ArticleContent is typed content whose Data shape depends on ContentType:
// a string for text, an object with url and title for links.
type ArticleContent struct {
	ContentType string `json:"content_type" validate:"required,oneof=text image video link"`
	Data        any    `json:"data" validate:"required"`
}

// Article is a post written by a person.
type Article struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Content      ArticleContent `json:"content"`
	AuthorID     int64          `json:"author_id"`
	Tags         []string       `json:"tags"`
	Priority     Priority       `json:"priority"`
	IsPublished  bool           `json:"is_published"`
	ScheduledAt  *time.Time     `json:"scheduled_at,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	UpdateReason string         `json:"update_reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

// PersonPatch carries the person fields a client wants to change.
type PersonPatch struct {
	Name     *string     `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string     `json:"email" validate:"omitempty,email"`
	Age      *int        `json:"age" validate:"omitempty,gte=0,lte=150"`
	IsActive *bool       `json:"is_active"`
	Role     *PersonRole `json:"role" validate:"omitempty,oneof=admin user guest"`
	Bio      *string     `json:"bio" validate:"omitempty,max=500"`
}
