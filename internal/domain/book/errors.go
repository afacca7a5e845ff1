package book

import "errors"

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrNotOwner          = errors.New("not the book owner")
	ErrInvalidCondition  = errors.New("invalid book condition")
	ErrDuplicateListing  = errors.New("book already listed by this owner")
	ErrOwnershipMismatch = errors.New("book ownership changed underneath the operation")
	ErrHasHistory        = errors.New("book has completed exchange history")
	ErrBookBusy          = errors.New("book has an unresolved exchange request")
	ErrInvalidPeriod     = errors.New("reading period ends before it starts")
	ErrInvalidAction     = errors.New("invalid history action")
	ErrUnreadableCover   = errors.New("cover image data could not be decoded")

	// errIdentityCollision signals a qr_code_id/permanent_id unique clash;
	// registration retries with a fresh identity.
	errIdentityCollision = errors.New("book identity collision")
)
