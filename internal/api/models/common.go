// Package models provides request and response models for the FileGrid
// API, plus the RFC7807 problem type used for all error responses.
package models

// List wraps a collection response so the top-level JSON value is always
// an object.
type List[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewList builds a List from a slice. A nil slice becomes an empty
// items array rather than JSON null.
func NewList[T any](items []T) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Count: len(items)}
}
