package points

import (
	"time"

	"github.com/google/uuid"
)

// ListingRewardPoints is credited to the owner exactly once per registered book.
const ListingRewardPoints = 10

// Reason classifies a ledger entry. The transaction log is append-only and is
// the source of truth for every balance; materialized balances are derived.
type Reason string

const (
	ReasonListingReward  Reason = "listing_reward"
	ReasonExchangeDebit  Reason = "exchange_debit"
	ReasonExchangeCredit Reason = "exchange_credit"
	ReasonPurchase       Reason = "purchase"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonListingReward, ReasonExchangeDebit, ReasonExchangeCredit, ReasonPurchase:
		return true
	}
	return false
}

// Account holds the materialized balance for one user. Rows are created
// lazily on first touch; a missing row means balance zero.
type Account struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Transaction struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	UserID            uuid.UUID  `db:"user_id" json:"user_id"`
	Delta             int64      `db:"delta" json:"delta"`
	Reason            Reason     `db:"reason" json:"reason"`
	RelatedExchangeID *uuid.UUID `db:"related_exchange_id" json:"related_exchange_id,omitempty"`
	Reference         *string    `db:"reference" json:"reference,omitempty"`
	Description       string     `db:"description" json:"description,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// TxMeta carries the optional context persisted alongside a ledger entry.
// A non-empty Reference makes the entry idempotent: the unique index on
// (user_id, reason, reference) rejects a second write for the same event.
type TxMeta struct {
	RelatedExchangeID *uuid.UUID
	Reference         string
	Description       string
}

type Stats struct {
	Balance        int64 `db:"balance" json:"balance"`
	TotalEarned    int64 `db:"total_earned" json:"total_earned"`
	TotalSpent     int64 `db:"total_spent" json:"total_spent"`
	TotalPurchased int64 `db:"total_purchased" json:"total_purchased"`
	Count          int64 `db:"count" json:"transaction_count"`
}
