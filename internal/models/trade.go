package models

import "time"

// Trade represents an executed fill. Trades are immutable once created;
// later messages may append new trades but never edit existing ones.
type Trade struct {
	ID         string
	OrderID    string
	Symbol     string
	Side       OrderSide
	Quantity   float64
	Price      float64
	Commission float64
	Total      float64
	Timestamp  time.Time
}
