package domain

import "errors"

var (
	ErrInvalidRoundParameters = errors.New("invalid round parameters")
	ErrRoundNotFound          = errors.New("round not found")
	ErrRoundClosed            = errors.New("round closed")
	ErrRoundNotClosed         = errors.New("round not closed")
	ErrInvalidSide            = errors.New("invalid side")
	ErrZeroAmount             = errors.New("zero amount")
	ErrFeeTooLow              = errors.New("fee too low")
	ErrTransferFailed         = errors.New("transfer failed")
	ErrNothingToClaim         = errors.New("nothing to claim")
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrRateLimited            = errors.New("rate limited")
	ErrLockHeld               = errors.New("lock already held")
)
