package inventory

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
)
