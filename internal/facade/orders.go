package facade

import (
	"context"
	"encoding/json"
	"net/http"

	"marketsync/internal/action"
	"marketsync/internal/errors"
	"marketsync/internal/gateway"
	"marketsync/internal/models"
)

// PlaceOrderRequest describes a new order.
type PlaceOrderRequest struct {
	PortfolioID string           `json:"portfolio_id"`
	Symbol      string           `json:"symbol"`
	Side        models.OrderSide `json:"side"`
	Type        models.OrderType `json:"type"`
	Quantity    float64          `json:"quantity"`
	Price       float64          `json:"price,omitempty"`
	StopPrice   float64          `json:"stop_price,omitempty"`
}

// FetchOrders loads all orders into the store and returns them.
func (f *Facade) FetchOrders(ctx context.Context) ([]models.Order, error) {
	f.begin(action.DomainOrders)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "orders",
	})
	if err != nil {
		return nil, f.fail(action.DomainOrders, err)
	}

	var dtos []orderDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, f.fail(action.DomainOrders, errors.Wrap(err, "decoding orders"))
	}

	orders := make([]models.Order, 0, len(dtos))
	for _, d := range dtos {
		orders = append(orders, d.toModel())
	}
	f.store.Dispatch(action.OrdersLoaded{Orders: orders, At: f.now()})
	return orders, nil
}

// PlaceOrder submits a new order. The store is updated solely from the
// server's response; there is no optimistic local write, so a failed
// request leaves no phantom order behind.
func (f *Facade) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	f.begin(action.DomainOrders)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodPost,
		Path:   "orders",
		Body:   req,
	})
	if err != nil {
		return nil, f.fail(action.DomainOrders, err)
	}

	var dto orderDTO
	if err := json.Unmarshal(raw, &dto); err != nil || dto.ID == "" {
		return nil, f.fail(action.DomainOrders, errors.Wrap(errors.ErrMalformedPayload, "decoding placed order"))
	}

	order := dto.toModel()
	f.store.Dispatch(action.OrderUpserted{Order: order, At: f.now()})
	f.settle(action.DomainOrders)
	return &order, nil
}

// CancelOrder cancels an order. A not-found response means the order is
// already gone server-side, so cancellation succeeds without error and
// the slice error stays clear.
func (f *Facade) CancelOrder(ctx context.Context, id string) error {
	f.begin(action.DomainOrders)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodDelete,
		Path:   "orders/" + id,
	})
	if err != nil {
		if errors.IsNotFound(err) {
			f.markCancelled(id)
			return nil
		}
		return f.fail(action.DomainOrders, err)
	}

	var dto orderDTO
	if len(raw) > 0 && json.Unmarshal(raw, &dto) == nil && dto.ID != "" {
		f.store.Dispatch(action.OrderUpserted{Order: dto.toModel(), At: f.now()})
		f.settle(action.DomainOrders)
		return nil
	}
	f.markCancelled(id)
	return nil
}

// markCancelled moves a locally known order to cancelled and settles the
// slice. Unknown ids settle without a data change.
func (f *Facade) markCancelled(id string) {
	now := f.now()
	if o, ok := f.store.State().Orders.Items[id]; ok && !o.Status.Terminal() {
		o.Status = models.OrderStatusCancelled
		o.UpdatedAt = now
		f.store.Dispatch(action.OrderUpserted{Order: o, At: now})
	}
	f.settle(action.DomainOrders)
}

// FetchTrades loads executed trades into the store and returns them.
func (f *Facade) FetchTrades(ctx context.Context) ([]models.Trade, error) {
	f.begin(action.DomainTrades)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "trades",
	})
	if err != nil {
		return nil, f.fail(action.DomainTrades, err)
	}

	var dtos []tradeDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, f.fail(action.DomainTrades, errors.Wrap(err, "decoding trades"))
	}

	trades := make([]models.Trade, 0, len(dtos))
	for _, d := range dtos {
		trades = append(trades, d.toModel())
	}
	f.store.Dispatch(action.TradesLoaded{Trades: trades, At: f.now()})
	return trades, nil
}
