// Package sessions stores the server-side state of the session auth
// strategy. Expiry is lazy: nothing sweeps in the background, the validation
// middleware destroys a stale session on first access after its deadline.
package sessions

import (
	"context"

	"github.com/ktb-community/community-be-main/internal/server/models"
)

// Store is the session state container. Implementations must tolerate
// concurrent Get/Destroy on the same identifier: Destroy of an absent or
// already-destroyed session is a no-op, never an error, so duplicate expiry
// checks cannot race each other into a failure.
type Store interface {
	Create(ctx context.Context, session *models.Session) error

	// Get returns the session or common.ErrNotFound. It does not check
	// expiry; that is the caller's decision point.
	Get(ctx context.Context, id string) (*models.Session, error)

	// Destroy removes the session. Idempotent.
	Destroy(ctx context.Context, id string) error
}
