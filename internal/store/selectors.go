package store

import (
	"sort"

	"marketsync/internal/models"
)

// Selectors are pure, stateless derived-value functions. They compute on
// every call; nothing here is cached.

// OrderValue returns the notional value of an order at its limit price,
// falling back to the latest quote for market orders.
func OrderValue(s State, orderID string) float64 {
	o, ok := s.Orders.Items[orderID]
	if !ok {
		return 0
	}
	price := o.Price
	if price == 0 {
		if q, ok := s.Market.Quotes[o.Symbol]; ok {
			price = q.Last
		}
	}
	return o.Quantity * price
}

// OpenOrders returns all non-terminal orders sorted by placement time.
func OpenOrders(s State) []models.Order {
	out := make([]models.Order, 0, len(s.Orders.Items))
	for _, o := range s.Orders.Items {
		if !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out
}

// OrdersForPortfolio returns all orders belonging to a portfolio.
func OrdersForPortfolio(s State, portfolioID string) []models.Order {
	out := make([]models.Order, 0)
	for _, o := range s.Orders.Items {
		if o.PortfolioID == portfolioID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out
}

// TradesForOrder returns all fills for an order sorted by execution time.
func TradesForOrder(s State, orderID string) []models.Trade {
	out := make([]models.Trade, 0)
	for _, t := range s.Trades.Items {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// PortfolioPosition returns the position for symbol in a portfolio, or
// nil if either the portfolio or the position does not exist.
func PortfolioPosition(s State, portfolioID, symbol string) *models.Position {
	p, ok := s.Portfolios.Items[portfolioID]
	if !ok {
		return nil
	}
	return p.FindPosition(symbol)
}

// TotalEquity returns the summed total value across all portfolios.
func TotalEquity(s State) float64 {
	var total float64
	for _, p := range s.Portfolios.Items {
		total += p.TotalValue
	}
	return total
}

// ActiveAlerts returns enabled, untriggered alerts.
func ActiveAlerts(s State) []models.Alert {
	out := make([]models.Alert, 0)
	for _, al := range s.Alerts.Items {
		if al.Enabled && !al.Triggered {
			out = append(out, al)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
