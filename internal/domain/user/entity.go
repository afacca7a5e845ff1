package user

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the external identity provider's account record. The core
// trusts the id supplied by the auth middleware; this row exists so foreign
// keys have a target and so account deletion semantics (dangling book
// ownership, preserved history) are enforced by the schema.
type User struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	CreatedAt   time.Time `db:"created_at"`
}
