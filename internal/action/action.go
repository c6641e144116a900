// Package action defines the closed set of messages applied to the state store.
//
// Every mutation of the store is described by one of the concrete types below.
// Reducers type-switch over them; an unrecognized action leaves state
// unchanged.
package action

import (
	"time"

	"marketsync/internal/models"
)

// Type identifies an action for logging and instrumentation.
type Type string

// Action is an immutable message describing what happened.
type Action interface {
	Type() Type
}

// Domain identifies an asynchronous state slice.
type Domain string

const (
	DomainOrders     Domain = "orders"
	DomainTrades     Domain = "trades"
	DomainPortfolios Domain = "portfolios"
	DomainMarket     Domain = "market"
	DomainAlerts     Domain = "alerts"
)

// Requested marks a domain slice as loading and clears its error.
type Requested struct {
	Domain Domain
}

func (a Requested) Type() Type { return Type(string(a.Domain) + "/requested") }

// Failed records a failure on a domain slice. Existing data is retained;
// only the error is set and loading cleared.
type Failed struct {
	Domain  Domain
	Message string
	At      time.Time
}

func (a Failed) Type() Type { return Type(string(a.Domain) + "/failed") }

// Settled clears loading and error on a domain slice without touching its
// data. Used by operations that mutate via entity-level actions.
type Settled struct {
	Domain Domain
	At     time.Time
}

func (a Settled) Type() Type { return Type(string(a.Domain) + "/settled") }

// OrdersLoaded merges a freshly fetched set into the order map.
type OrdersLoaded struct {
	Orders []models.Order
	At     time.Time
}

func (OrdersLoaded) Type() Type { return "orders/loaded" }

// OrderUpserted creates or updates a single order. Status regressions
// are ignored by the reducer.
type OrderUpserted struct {
	Order models.Order
	At    time.Time
}

func (OrderUpserted) Type() Type { return "orders/upserted" }

// OrderRemoved explicitly deletes an order from the store.
type OrderRemoved struct {
	ID string
	At time.Time
}

func (OrderRemoved) Type() Type { return "orders/removed" }

// TradesLoaded merges fetched trades into the store. Existing trades are
// never overwritten.
type TradesLoaded struct {
	Trades []models.Trade
	At     time.Time
}

func (TradesLoaded) Type() Type { return "trades/loaded" }

// TradeExecuted appends a single fill. Duplicate ids are ignored.
type TradeExecuted struct {
	Trade models.Trade
	At    time.Time
}

func (TradeExecuted) Type() Type { return "trades/executed" }

// PortfoliosLoaded merges a freshly fetched set into the portfolio map.
type PortfoliosLoaded struct {
	Portfolios []models.Portfolio
	At         time.Time
}

func (PortfoliosLoaded) Type() Type { return "portfolios/loaded" }

// PortfolioUpserted creates or updates a single portfolio from a full
// replacement value. Partial updates are not representable.
type PortfolioUpserted struct {
	Portfolio models.Portfolio
	At        time.Time
}

func (PortfolioUpserted) Type() Type { return "portfolios/upserted" }

// QuotesLoaded merges a batch of quotes into the market slice.
type QuotesLoaded struct {
	Quotes []models.Quote
	At     time.Time
}

func (QuotesLoaded) Type() Type { return "market/quotes_loaded" }

// QuoteUpdated applies a single streamed quote.
type QuoteUpdated struct {
	Quote models.Quote
	At    time.Time
}

func (QuoteUpdated) Type() Type { return "market/quote_updated" }

// ClockLoaded updates the market session clock.
type ClockLoaded struct {
	Clock models.MarketClock
	At    time.Time
}

func (ClockLoaded) Type() Type { return "market/clock_loaded" }

// AlertsLoaded merges a freshly fetched set into the alert map.
type AlertsLoaded struct {
	Alerts []models.Alert
	At     time.Time
}

func (AlertsLoaded) Type() Type { return "alerts/loaded" }

// AlertUpserted creates or updates a single alert.
type AlertUpserted struct {
	Alert models.Alert
	At    time.Time
}

func (AlertUpserted) Type() Type { return "alerts/upserted" }

// AlertRemoved explicitly deletes an alert.
type AlertRemoved struct {
	ID string
	At time.Time
}

func (AlertRemoved) Type() Type { return "alerts/removed" }

// AlertTriggered marks an alert as triggered.
type AlertTriggered struct {
	ID string
	At time.Time
}

func (AlertTriggered) Type() Type { return "alerts/triggered" }

// RequestSucceeded is emitted by the request gateway exactly once for
// every call that completes successfully. No reducer consumes it; it
// exists for the observability tap and passive listeners.
type RequestSucceeded struct {
	Method   string
	Endpoint string
	Status   int
	Latency  time.Duration
}

func (RequestSucceeded) Type() Type { return "request/succeeded" }

// RequestFailed is emitted by the request gateway exactly once for every
// call that fails, regardless of failure kind.
type RequestFailed struct {
	Method   string
	Endpoint string
	Status   int
	Message  string
	Latency  time.Duration
}

func (RequestFailed) Type() Type { return "request/failed" }

// NotificationAdded appends a user-visible notice.
type NotificationAdded struct {
	Notification models.Notification
}

func (NotificationAdded) Type() Type { return "ui/notification_added" }

// NotificationDismissed removes a notice, either by user action or after
// its auto-hide interval elapses.
type NotificationDismissed struct {
	ID string
}

func (NotificationDismissed) Type() Type { return "ui/notification_dismissed" }

// ConnectionChanged records a live feed connection state transition.
type ConnectionChanged struct {
	State models.ConnectionState
	At    time.Time
}

func (ConnectionChanged) Type() Type { return "ui/connection_changed" }

// SessionEstablished stores the authenticated session.
type SessionEstablished struct {
	Session models.Session
}

func (SessionEstablished) Type() Type { return "session/established" }

// SessionCleared removes the authenticated session.
type SessionCleared struct{}

func (SessionCleared) Type() Type { return "session/cleared" }

// PreferencesUpdated replaces the persisted UI preferences.
type PreferencesUpdated struct {
	Preferences models.Preferences
}

func (PreferencesUpdated) Type() Type { return "preferences/updated" }
