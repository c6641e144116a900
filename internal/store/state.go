// Package store provides the normalized in-memory state container.
//
// All entity data lives in id-keyed maps inside a single State value.
// State is only ever replaced wholesale by pure reducers; inputs are never
// mutated and unchanged sub-trees are shared between versions.
package store

import (
	"time"

	"marketsync/internal/action"
	"marketsync/internal/models"
)

// DefaultMaxNotifications bounds notification retention.
const DefaultMaxNotifications = 50

// OrdersState holds the normalized order map.
type OrdersState struct {
	Items       map[string]models.Order
	Loading     bool
	Err         string
	LastUpdated time.Time
}

// TradesState holds the append-only trade map.
type TradesState struct {
	Items       map[string]models.Trade
	Loading     bool
	Err         string
	LastUpdated time.Time
}

// PortfoliosState holds the normalized portfolio map.
type PortfoliosState struct {
	Items       map[string]models.Portfolio
	Loading     bool
	Err         string
	LastUpdated time.Time
}

// MarketState holds streamed quotes and the session clock.
type MarketState struct {
	Quotes      map[string]models.Quote
	Clock       models.MarketClock
	Loading     bool
	Err         string
	LastUpdated time.Time
}

// AlertsState holds the normalized alert map.
type AlertsState struct {
	Items       map[string]models.Alert
	Loading     bool
	Err         string
	LastUpdated time.Time
}

// UIState holds transient user-facing state: notifications and the live
// feed connection state. Notifications are kept newest-last and bounded.
type UIState struct {
	Notifications    []models.Notification
	MaxNotifications int
	Connection       models.ConnectionState
}

// State is the complete application state.
type State struct {
	Orders     OrdersState
	Trades     TradesState
	Portfolios PortfoliosState
	Market     MarketState
	Alerts     AlertsState
	UI         UIState
	Session    models.Session
	Prefs      models.Preferences
}

// NewState returns an empty initial state.
func NewState() State {
	return State{
		Orders:     OrdersState{Items: map[string]models.Order{}},
		Trades:     TradesState{Items: map[string]models.Trade{}},
		Portfolios: PortfoliosState{Items: map[string]models.Portfolio{}},
		Market:     MarketState{Quotes: map[string]models.Quote{}},
		Alerts:     AlertsState{Items: map[string]models.Alert{}},
		UI: UIState{
			MaxNotifications: DefaultMaxNotifications,
			Connection:       models.ConnDisconnected,
		},
	}
}

// Reduce computes the next state from the current state and an action.
// It is pure: inputs are never mutated and unknown actions return the
// input unchanged.
func Reduce(s State, a action.Action) State {
	s.Orders = reduceOrders(s.Orders, a)
	s.Trades = reduceTrades(s.Trades, a)
	s.Portfolios = reducePortfolios(s.Portfolios, a)
	s.Market = reduceMarket(s.Market, a)
	s.Alerts = reduceAlerts(s.Alerts, a)
	s.UI = reduceUI(s.UI, a)

	switch act := a.(type) {
	case action.SessionEstablished:
		s.Session = act.Session
	case action.SessionCleared:
		s.Session = models.Session{}
	case action.PreferencesUpdated:
		s.Prefs = act.Preferences
	}
	return s
}

// laterOf keeps slice timestamps monotonic against out-of-order updates.
func laterOf(prev, at time.Time) time.Time {
	if at.After(prev) {
		return at
	}
	return prev
}
