package domain

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrInvalidUsername   = errors.New("username must not be empty")
	ErrInvalidSeverity   = errors.New("unknown severity level")
	ErrInvalidAlert      = errors.New("alert needs a sensor id, a level, and a message")
)
