package exchange

import "errors"

var (
	ErrRequestNotFound  = errors.New("exchange request not found")
	ErrSelfRequest      = errors.New("cannot request your own book")
	ErrBookUnavailable  = errors.New("book is not available for exchange")
	ErrNotOwner         = errors.New("user is not the book owner")
	ErrNotRequester     = errors.New("user is not the requester")
	ErrNotParty         = errors.New("user is not a party to this exchange")
	ErrAlreadyResolved  = errors.New("exchange request already resolved")
	ErrNotCompleted     = errors.New("exchange is not completed")
	ErrDisputeExists    = errors.New("dispute already exists for this exchange")
	ErrCircularExchange = errors.New("approval would create a circular exchange")
	ErrBusy             = errors.New("exchange is busy, try again")
)
