package facade

import (
	"time"

	"marketsync/internal/models"
)

// REST response shapes. Timestamps are millisecond epochs on the wire.

type orderDTO struct {
	ID          string  `json:"id"`
	PortfolioID string  `json:"portfolio_id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Type        string  `json:"type"`
	Quantity    float64 `json:"quantity"`
	FilledQty   float64 `json:"filled_qty"`
	Price       float64 `json:"price"`
	StopPrice   float64 `json:"stop_price"`
	Status      string  `json:"status"`
	PlacedAt    int64   `json:"placed_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

func (d orderDTO) toModel() models.Order {
	return models.Order{
		ID:          d.ID,
		PortfolioID: d.PortfolioID,
		Symbol:      d.Symbol,
		Side:        models.OrderSide(d.Side),
		Type:        models.OrderType(d.Type),
		Quantity:    d.Quantity,
		FilledQty:   d.FilledQty,
		Price:       d.Price,
		StopPrice:   d.StopPrice,
		Status:      models.OrderStatus(d.Status),
		PlacedAt:    wireTime(d.PlacedAt),
		UpdatedAt:   wireTime(d.UpdatedAt),
	}
}

type tradeDTO struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"order_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Total      float64 `json:"total"`
	Timestamp  int64   `json:"timestamp"`
}

func (d tradeDTO) toModel() models.Trade {
	return models.Trade{
		ID:         d.ID,
		OrderID:    d.OrderID,
		Symbol:     d.Symbol,
		Side:       models.OrderSide(d.Side),
		Quantity:   d.Quantity,
		Price:      d.Price,
		Commission: d.Commission,
		Total:      d.Total,
		Timestamp:  wireTime(d.Timestamp),
	}
}

type positionDTO struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AvgCost      float64 `json:"avg_cost"`
	CurrentPrice float64 `json:"current_price"`
}

func (d positionDTO) toModel() models.Position {
	return models.Position{
		Symbol:       d.Symbol,
		Quantity:     d.Quantity,
		AvgCost:      d.AvgCost,
		CurrentPrice: d.CurrentPrice,
	}
}

type portfolioDTO struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	CashBalance float64       `json:"cash_balance"`
	Positions   []positionDTO `json:"positions"`
	DayPnL      float64       `json:"day_pnl"`
	TotalPnL    float64       `json:"total_pnl"`
	UpdatedAt   int64         `json:"updated_at"`
}

func (d portfolioDTO) toModel() models.Portfolio {
	positions := make([]models.Position, 0, len(d.Positions))
	for _, p := range d.Positions {
		positions = append(positions, p.toModel())
	}
	return models.Portfolio{
		ID:          d.ID,
		Name:        d.Name,
		CashBalance: d.CashBalance,
		Positions:   positions,
		DayPnL:      d.DayPnL,
		TotalPnL:    d.TotalPnL,
		UpdatedAt:   wireTime(d.UpdatedAt),
	}
}

type quoteDTO struct {
	Symbol        string  `json:"symbol"`
	Last          float64 `json:"last"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	Timestamp     int64   `json:"timestamp"`
}

func (d quoteDTO) toModel() models.Quote {
	return models.Quote{
		Symbol:        d.Symbol,
		Last:          d.Last,
		Open:          d.Open,
		High:          d.High,
		Low:           d.Low,
		Close:         d.Close,
		Volume:        d.Volume,
		Change:        d.Change,
		ChangePercent: d.ChangePercent,
		BidPrice:      d.Bid,
		AskPrice:      d.Ask,
		Timestamp:     wireTime(d.Timestamp),
	}
}

type clockDTO struct {
	IsOpen    bool  `json:"is_open"`
	NextOpen  int64 `json:"next_open"`
	NextClose int64 `json:"next_close"`
	Timestamp int64 `json:"timestamp"`
}

func (d clockDTO) toModel() models.MarketClock {
	return models.MarketClock{
		IsOpen:    d.IsOpen,
		NextOpen:  wireTime(d.NextOpen),
		NextClose: wireTime(d.NextClose),
		Timestamp: wireTime(d.Timestamp),
	}
}

type alertDTO struct {
	ID          string  `json:"id"`
	EntityID    string  `json:"entity_id"`
	Symbol      string  `json:"symbol"`
	Condition   string  `json:"condition"`
	Threshold   float64 `json:"threshold"`
	Enabled     bool    `json:"enabled"`
	Triggered   bool    `json:"triggered"`
	CreatedAt   int64   `json:"created_at"`
	TriggeredAt int64   `json:"triggered_at"`
}

func (d alertDTO) toModel() models.Alert {
	al := models.Alert{
		ID:        d.ID,
		EntityID:  d.EntityID,
		Symbol:    d.Symbol,
		Condition: d.Condition,
		Threshold: d.Threshold,
		Enabled:   d.Enabled,
		Triggered: d.Triggered,
		CreatedAt: wireTime(d.CreatedAt),
	}
	if d.TriggeredAt > 0 {
		t := wireTime(d.TriggeredAt)
		al.TriggeredAt = &t
	}
	return al
}

func wireTime(millis int64) time.Time {
	if millis <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
