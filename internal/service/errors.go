package service

import "errors"

var (
	ErrStockExceeded = errors.New("requested amount exceeds available stock")
	ErrItemNotFound  = errors.New("item not found in cart")
	ErrLookupFailed  = errors.New("storefront lookup failed")
	ErrPersistFailed = errors.New("failed to persist cart")

	errEvicted = errors.New("cart store evicted")
)
