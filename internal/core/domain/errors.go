package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCardNumber = errors.New("invalid card number: only Visa and Mastercard are accepted")
)
