package domain

import "errors"

var (
	// ErrDataSource reports a failed fetch or CRUD call on the products source.
	ErrDataSource = errors.New("data source failure")

	// ErrNotFound reports an unknown product id.
	ErrNotFound = errors.New("product not found")

	// ErrOutOfStock reports an add attempted with zero available stock.
	ErrOutOfStock = errors.New("product is out of stock")

	// ErrInvalidState reports a stock adjustment that would make stock negative.
	// It never happens while reservations are conserved.
	ErrInvalidState = errors.New("stock would become negative")

	// ErrAlreadyExists reports a create with a product id already taken.
	ErrAlreadyExists = errors.New("product already exists")

	ErrInvalidProduct = errors.New("invalid product")
	ErrCanceled       = errors.New("operation canceled")
)
