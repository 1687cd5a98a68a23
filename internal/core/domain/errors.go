package domain

import "errors"

var (
	ErrNotFound          = errors.New("product not found")
	ErrDuplicateSKU      = errors.New("duplicate sku")
	ErrVersionConflict   = errors.New("version conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidArgument   = errors.New("invalid argument")
)
