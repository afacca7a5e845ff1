package book

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Condition grades the physical state of a book. Each grade maps to a fixed
// point value used both for the listing and for the frozen cost snapshot an
// exchange request takes at creation.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// PointValue is the fixed base value for the grade.
func (c Condition) PointValue() int {
	switch c {
	case ConditionExcellent:
		return 15
	case ConditionGood:
		return 12
	case ConditionFair:
		return 8
	case ConditionPoor:
		return 5
	}
	return 10
}

// Multiplier weights the base value in the suggested-value formula.
func (c Condition) Multiplier() float64 {
	switch c {
	case ConditionExcellent:
		return 1.0
	case ConditionGood:
		return 0.8
	case ConditionFair:
		return 0.6
	case ConditionPoor:
		return 0.4
	}
	return 0.6
}

// Book carries two identities: the row id and a permanent id minted once at
// first listing. The permanent id never changes — not on ownership transfer,
// not on retirement — and is what a printed QR label ultimately points at.
type Book struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PermanentID   uuid.UUID  `db:"permanent_id" json:"permanent_id"`
	QRCodeID      string     `db:"qr_code_id" json:"qr_code_id"`
	Title         string     `db:"title" json:"title"`
	Author        string     `db:"author" json:"author"`
	Condition     Condition  `db:"condition" json:"condition"`
	Description   *string    `db:"description" json:"description,omitempty"`
	Location      *string    `db:"location" json:"location,omitempty"`
	PointValue    int        `db:"point_value" json:"point_value"`
	OwnerID       *uuid.UUID `db:"owner_id" json:"owner_id,omitempty"`
	IsAvailable   bool       `db:"is_available" json:"is_available"`
	Retired       bool       `db:"retired" json:"retired"`
	CoverURL      *string    `db:"cover_url" json:"cover_url,omitempty"`
	CoverThumbURL *string    `db:"cover_thumb_url" json:"cover_thumb_url,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	OwnerDisplayName *string `db:"owner_display_name" json:"owner_display_name,omitempty"`
}

type HistoryAction string

const (
	HistoryActionRead      HistoryAction = "read"
	HistoryActionExchanged HistoryAction = "exchanged"
	HistoryActionListed    HistoryAction = "listed"
)

func (a HistoryAction) Valid() bool {
	switch a {
	case HistoryActionRead, HistoryActionExchanged, HistoryActionListed:
		return true
	}
	return false
}

// HistoryEntry is one line of a book's story. Entries are append-only:
// never updated, never deleted, kept when the actor's account is removed
// (the actor reference goes null, the entry stays).
type HistoryEntry struct {
	ID                  uuid.UUID     `db:"id" json:"id"`
	BookID              uuid.UUID     `db:"book_id" json:"book_id"`
	ActorUserID         *uuid.UUID    `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Action              HistoryAction `db:"action" json:"action"`
	City                *string       `db:"city" json:"city,omitempty"`
	ReadingDurationDays *int          `db:"reading_duration_days" json:"reading_duration_days,omitempty"`
	Notes               *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`

	ActorDisplayName *string `db:"actor_display_name" json:"actor_display_name,omitempty"`
}

// QRCodeID derives the scannable short code from a permanent id: "book_"
// plus the first 12 hex characters. The full permanent id and the scan URL
// resolve too; the short form is what fits on a small printed label.
func QRCodeID(permanentID uuid.UUID) string {
	return "book_" + strings.ReplaceAll(permanentID.String(), "-", "")[:12]
}
