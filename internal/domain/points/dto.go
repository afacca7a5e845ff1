package points

import "github.com/google/uuid"

type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Filter narrows a transaction listing; the zero value matches everything.
type Filter struct {
	Reason *Reason
}

// PurchaseRequest is posted on behalf of the payment gateway after a
// confirmed top-up. The body must match the X-Gateway-Signature header.
type PurchaseRequest struct {
	Points    int64  `json:"points" validate:"required,gt=0"`
	Reference string `json:"reference" validate:"required,max=128"`
}

type PurchaseResult struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Balance       int64     `json:"balance"`
	Applied       bool      `json:"-"`
}

type ReconcileResult struct {
	UserID   uuid.UUID `json:"user_id"`
	Stored   int64     `json:"stored"`
	Computed int64     `json:"computed"`
	Fixed    bool      `json:"fixed"`
}
