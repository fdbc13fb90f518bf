package domain

import "errors"

// Errors returned by the service layer. Callers wrap them with context
// using fmt.Errorf("%w: ...") and match them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrPermission        = errors.New("permission denied")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)
