package points

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientPoints  = errors.New("insufficient points balance")
	ErrTransactionNotFound = errors.New("point transaction not found")
	ErrDuplicateReference  = errors.New("duplicate transaction reference")
	ErrReferenceConflict   = errors.New("reference already used with a different amount")
)
