package models

import "time"

// Order represents a trading order.
type Order struct {
	ID          string
	PortfolioID string
	Symbol      string
	Side        OrderSide
	Type        OrderType
	Quantity    float64
	FilledQty   float64
	Price       float64
	StopPrice   float64
	Status      OrderStatus
	PlacedAt    time.Time
	UpdatedAt   time.Time
}

// Position represents a holding inside a portfolio.
// Identity is (portfolio id, symbol); positions are embedded in Portfolio.
type Position struct {
	Symbol       string
	Quantity     float64
	AvgCost      float64
	CurrentPrice float64
	Weight       float64
}

// MarketValue returns the current market value of the position.
func (p Position) MarketValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// Portfolio represents an account portfolio with its open positions.
type Portfolio struct {
	ID          string
	Name        string
	TotalValue  float64
	CashBalance float64
	Positions   []Position
	DayPnL      float64
	TotalPnL    float64
	UpdatedAt   time.Time
}

// PositionsValue returns the summed market value of all positions.
func (p Portfolio) PositionsValue() float64 {
	var total float64
	for _, pos := range p.Positions {
		total += pos.MarketValue()
	}
	return total
}

// FindPosition returns the position for symbol, or nil if the portfolio
// holds no such position.
func (p Portfolio) FindPosition(symbol string) *Position {
	for i := range p.Positions {
		if p.Positions[i].Symbol == symbol {
			pos := p.Positions[i]
			return &pos
		}
	}
	return nil
}
