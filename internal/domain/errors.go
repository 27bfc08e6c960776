package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrEmptyBook           = errors.New("order book has no bids or asks")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidOrder        = errors.New("invalid order parameters")
	ErrBelowMinNotional    = errors.New("order notional below venue minimum")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
