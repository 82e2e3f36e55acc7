// Package model contains the domain records shared across layers.
// Types here carry json tags for the HTTP layer and no persistence code.
package model

// Page is a paginated slice with the total number of matching records.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}
