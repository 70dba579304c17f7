package app

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrUnauthenticated   = errors.New("missing user identity")
	ErrUnauthorized      = errors.New("unauthorized access to order")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrIntentMismatch    = errors.New("payment intent does not belong to this order")
	ErrPaymentNotSettled = errors.New("payment has not succeeded at the processor")
	ErrPaymentConflict   = errors.New("conflicting payment outcome already recorded")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrProcessor         = errors.New("payment processor request failed")
)
