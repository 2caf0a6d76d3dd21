package listing

import "errors"

var (
	ErrNotFound      = errors.New("listing not found")
	ErrNotOwner      = errors.New("only the seller can modify this listing")
	ErrInvalidPrice  = errors.New("price must be greater than zero")
	ErrDuplicateItem = errors.New("seller already lists this item")
)
