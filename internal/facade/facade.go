// Package facade exposes one asynchronous function per user-facing
// operation, combining request gateway calls with store updates.
//
// Every operation marks its domain slice loading, dispatches exactly one
// settling action (loaded, settled or failed) regardless of outcome, and
// returns genuine errors to the caller while recording them in state.
// Data already in the store is never cleared on failure.
package facade

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"marketsync/internal/action"
	"marketsync/internal/errors"
	"marketsync/internal/gateway"
	"marketsync/internal/logging"
	"marketsync/internal/store"
)

// Caller is the gateway surface the facade depends on.
type Caller interface {
	Do(ctx context.Context, d gateway.Descriptor) (json.RawMessage, error)
}

// Facade bundles the store and request gateway behind per-feature calls.
type Facade struct {
	store  *store.Store
	gw     Caller
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a facade around the given store and gateway.
func New(s *store.Store, gw Caller, logger zerolog.Logger) *Facade {
	return &Facade{
		store:  s,
		gw:     gw,
		logger: logging.WithComponent(logger, "facade"),
		now:    time.Now,
	}
}

// begin marks a domain slice loading with its error cleared.
func (f *Facade) begin(domain action.Domain) {
	f.store.Dispatch(action.Requested{Domain: domain})
}

// fail records a human-readable error on the slice and returns err so the
// caller can react per-call while passive observers see the same failure.
func (f *Facade) fail(domain action.Domain, err error) error {
	f.store.Dispatch(action.Failed{
		Domain:  domain,
		Message: humanMessage(err),
		At:      f.now(),
	})
	return err
}

// settle clears loading on a slice without touching data.
func (f *Facade) settle(domain action.Domain) {
	f.store.Dispatch(action.Settled{Domain: domain, At: f.now()})
}

// humanMessage maps transport-level failures to messages fit for display.
func humanMessage(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	var re *errors.RequestError
	if errors.As(err, &re) {
		switch {
		case re.Status == 0:
			return "network unreachable"
		case re.Status == http.StatusUnauthorized:
			return "session expired, please sign in again"
		case re.Status >= 500:
			return "server error, please try again"
		case re.Status == http.StatusNotFound:
			return "not found"
		}
	}
	return err.Error()
}
