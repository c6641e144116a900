// Package persist stores the two state slices that survive a restart:
// the authenticated session and UI preferences. Entity data is never
// persisted; it is always re-fetched or re-streamed fresh at startup.
package persist

import (
	"context"

	"marketsync/internal/models"
)

// StateStore defines the persisted-state contract.
type StateStore interface {
	SaveSession(ctx context.Context, s models.Session) error
	LoadSession(ctx context.Context) (models.Session, error)
	ClearSession(ctx context.Context) error

	SavePreferences(ctx context.Context, p models.Preferences) error
	LoadPreferences(ctx context.Context) (models.Preferences, error)

	Close() error
}
