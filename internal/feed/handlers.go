package feed

import (
	"encoding/json"
	"time"

	"marketsync/internal/action"
	"marketsync/internal/errors"
	"marketsync/internal/models"
)

// Inbound message types.
const (
	MsgMarketData      = "MARKET_DATA"
	MsgPortfolioUpdate = "PORTFOLIO_UPDATE"
	MsgTradeExecution  = "TRADE_EXECUTION"
	MsgAlert           = "ALERT"
	MsgOrderUpdate     = "ORDER_UPDATE"
)

type marketDataPayload struct {
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

type portfolioPayload struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	CashBalance float64           `json:"cash_balance"`
	Positions   []positionPayload `json:"positions"`
	DayPnL      float64           `json:"day_pnl"`
	TotalPnL    float64           `json:"total_pnl"`
	UpdatedAt   int64             `json:"updated_at"`
}

type positionPayload struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AvgCost      float64 `json:"avg_cost"`
	CurrentPrice float64 `json:"current_price"`
}

type tradePayload struct {
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

type alertPayload struct {
	ID string `json:"id"`
}

type orderPayload struct {
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

// RegisterDefaultHandlers wires the built-in message types. Each handler
// translates one payload into one store action.
func RegisterDefaultHandlers(g *Gateway) {
	g.RegisterHandler(MsgMarketData, handleMarketData)
	g.RegisterHandler(MsgPortfolioUpdate, handlePortfolioUpdate)
	g.RegisterHandler(MsgTradeExecution, handleTradeExecution)
	g.RegisterHandler(MsgAlert, handleAlert)
	g.RegisterHandler(MsgOrderUpdate, handleOrderUpdate)
}

func handleMarketData(raw json.RawMessage) (action.Action, error) {
	var p marketDataPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "decoding market data")
	}
	if p.Symbol == "" {
		return nil, errors.NewValidationError("symbol", p.Symbol, "required")
	}
	at := msgTime(p.Timestamp)
	return action.QuoteUpdated{
		Quote: models.Quote{
			Symbol:        p.Symbol,
			Last:          p.Last,
			Open:          p.Open,
			High:          p.High,
			Low:           p.Low,
			Close:         p.Close,
			Volume:        p.Volume,
			Change:        p.Change,
			ChangePercent: p.ChangePercent,
			BidPrice:      p.Bid,
			AskPrice:      p.Ask,
			Timestamp:     at,
		},
		At: at,
	}, nil
}

func handlePortfolioUpdate(raw json.RawMessage) (action.Action, error) {
	var p portfolioPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "decoding portfolio update")
	}
	if p.ID == "" {
		return nil, errors.NewValidationError("id", p.ID, "required")
	}
	positions := make([]models.Position, 0, len(p.Positions))
	for _, pos := range p.Positions {
		positions = append(positions, models.Position{
			Symbol:       pos.Symbol,
			Quantity:     pos.Quantity,
			AvgCost:      pos.AvgCost,
			CurrentPrice: pos.CurrentPrice,
		})
	}
	at := msgTime(p.UpdatedAt)
	return action.PortfolioUpserted{
		Portfolio: models.Portfolio{
			ID:          p.ID,
			Name:        p.Name,
			CashBalance: p.CashBalance,
			Positions:   positions,
			DayPnL:      p.DayPnL,
			TotalPnL:    p.TotalPnL,
			UpdatedAt:   at,
		},
		At: at,
	}, nil
}

func handleTradeExecution(raw json.RawMessage) (action.Action, error) {
	var p tradePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "decoding trade execution")
	}
	if p.ID == "" {
		return nil, errors.NewValidationError("id", p.ID, "required")
	}
	at := msgTime(p.Timestamp)
	return action.TradeExecuted{
		Trade: models.Trade{
			ID:         p.ID,
			OrderID:    p.OrderID,
			Symbol:     p.Symbol,
			Side:       models.OrderSide(p.Side),
			Quantity:   p.Quantity,
			Price:      p.Price,
			Commission: p.Commission,
			Total:      p.Total,
			Timestamp:  at,
		},
		At: at,
	}, nil
}

func handleAlert(raw json.RawMessage) (action.Action, error) {
	var p alertPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "decoding alert")
	}
	if p.ID == "" {
		return nil, errors.NewValidationError("id", p.ID, "required")
	}
	return action.AlertTriggered{ID: p.ID, At: time.Now()}, nil
}

func handleOrderUpdate(raw json.RawMessage) (action.Action, error) {
	var p orderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "decoding order update")
	}
	if p.ID == "" {
		return nil, errors.NewValidationError("id", p.ID, "required")
	}
	at := msgTime(p.UpdatedAt)
	return action.OrderUpserted{
		Order: models.Order{
			ID:          p.ID,
			PortfolioID: p.PortfolioID,
			Symbol:      p.Symbol,
			Side:        models.OrderSide(p.Side),
			Type:        models.OrderType(p.Type),
			Quantity:    p.Quantity,
			FilledQty:   p.FilledQty,
			Price:       p.Price,
			StopPrice:   p.StopPrice,
			Status:      models.OrderStatus(p.Status),
			PlacedAt:    msgTime(p.PlacedAt),
			UpdatedAt:   at,
		},
		At: at,
	}, nil
}

// msgTime converts a millisecond epoch timestamp, defaulting to now when
// the sender omits it.
func msgTime(millis int64) time.Time {
	if millis <= 0 {
		return time.Now()
	}
	return time.UnixMilli(millis)
}
