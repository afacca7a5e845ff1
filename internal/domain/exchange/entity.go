package exchange

import (
	"time"

	"github.com/google/uuid"
)

// Status represents exchange request status (matches exchange_status enum)
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusDisputed  Status = "disputed"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted, StatusDisputed:
		return true
	}
	return false
}

// Request represents an exchange request (matches exchange_requests table).
// points_cost is the book's point value frozen at creation time; later
// valuation changes never touch an in-flight request.
type Request struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	BookID      uuid.UUID  `json:"book_id" db:"book_id"`
	RequesterID uuid.UUID  `json:"requester_id" db:"requester_id"`
	OwnerID     uuid.UUID  `json:"owner_id" db:"owner_id"`
	PointsCost  int        `json:"points_cost" db:"points_cost"`
	Status      Status     `json:"status" db:"status"`
	Message     *string    `json:"message,omitempty" db:"message"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`

	// Joined data
	BookTitle  string `json:"book_title,omitempty" db:"book_title"`
	BookAuthor string `json:"book_author,omitempty" db:"book_author"`
}

// IsPending returns true while the request awaits resolution
func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// IsCompleted returns true once the transfer landed
func (r *Request) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// IsParty returns true if the user is the requester or the owner
func (r *Request) IsParty(userID uuid.UUID) bool {
	return r.RequesterID == userID || r.OwnerID == userID
}

// CanTransitionTo checks if a status transition is valid. approve() drives
// pending through approved to completed inside one transaction, so the
// approved state never hits the table in practice.
func (r *Request) CanTransitionTo(next Status) bool {
	transitions := map[Status][]Status{
		StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
		StatusApproved: {StatusCompleted, StatusDisputed},
		// rejected, cancelled, completed, disputed are terminal
	}

	for _, s := range transitions[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// DisputeStatus represents the lifecycle of a dispute record
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// Dispute is a record attached 1:1 to a completed exchange. It documents a
// disagreement for operators; it never rolls the transfer back.
type Dispute struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	ExchangeRequestID uuid.UUID     `json:"exchange_request_id" db:"exchange_request_id"`
	RaisedBy          uuid.UUID     `json:"raised_by" db:"raised_by"`
	Reason            string        `json:"reason" db:"reason"`
	Description       *string       `json:"description,omitempty" db:"description"`
	Status            DisputeStatus `json:"status" db:"status"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	ResolvedAt        *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}
