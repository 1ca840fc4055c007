package booking

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ValidationError: ошибки по полям, которые можно показать пользователю.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.FieldErrors))
	for _, field := range slices.Sorted(maps.Keys(v.FieldErrors)) {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add записывает ошибку поля; первое сообщение по полю остаётся.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
}

// ConflictError: запрошенные даты пересекаются с бронью, которая их держит.
type ConflictError struct {
	ApartmentID   string
	ConflictingID string
}

func (e *ConflictError) Error() string {
	if e.ConflictingID == "" {
		return "dates unavailable for this apartment"
	}
	return fmt.Sprintf("dates unavailable for this apartment (held by %s)", e.ConflictingID)
}
