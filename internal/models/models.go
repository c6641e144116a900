// Package models provides domain models for the synchronization core.
package models

import (
	"time"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// OrderStatus represents the lifecycle state of an order.
// Orders only move forward: pending -> open -> partially_filled -> filled,
// or into one of the terminal states cancelled/rejected/expired.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// ConnectionState represents the live feed connection state.
type ConnectionState string

const (
	ConnDisconnected ConnectionState = "disconnected"
	ConnConnecting   ConnectionState = "connecting"
	ConnConnected    ConnectionState = "connected"
	ConnReconnecting ConnectionState = "reconnecting"
	ConnError        ConnectionState = "error"
)

// Quote represents the latest market data for a symbol.
type Quote struct {
	Symbol        string
	Last          float64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64
	Change        float64
	ChangePercent float64
	BidPrice      float64
	AskPrice      float64
	Timestamp     time.Time
}

// MarketClock represents the exchange session clock.
type MarketClock struct {
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
	Timestamp time.Time
}

// Session represents the authenticated session persisted across restarts.
type Session struct {
	AccessToken string
	UserID      string
	ExpiresAt   time.Time
}

// Valid reports whether the session exists and has not expired.
func (s Session) Valid() bool {
	return s.AccessToken != "" && time.Now().Before(s.ExpiresAt)
}

// Preferences holds user interface preferences persisted across restarts.
// Entity data is deliberately never persisted; it is re-fetched fresh.
type Preferences struct {
	Theme            string
	DefaultPortfolio string
	Watchlist        []string
}
