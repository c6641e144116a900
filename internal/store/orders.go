package store

import (
	"marketsync/internal/action"
	"marketsync/internal/models"
)

// statusRank orders the forward-only order lifecycle. Terminal states share
// the highest rank so no terminal order ever changes again.
var statusRank = map[models.OrderStatus]int{
	models.OrderStatusPending:         0,
	models.OrderStatusOpen:            1,
	models.OrderStatusPartiallyFilled: 2,
	models.OrderStatusFilled:          3,
	models.OrderStatusCancelled:       3,
	models.OrderStatusRejected:        3,
	models.OrderStatusExpired:         3,
}

// allowTransition reports whether an order may move from to next. An
// unknown target status is rejected; an unknown stored status may be
// replaced by anything.
func allowTransition(from, to models.OrderStatus) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return true // replacing a malformed stored status is always allowed
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if from.Terminal() {
		return false
	}
	return toRank >= fromRank
}

func reduceOrders(s OrdersState, a action.Action) OrdersState {
	switch act := a.(type) {
	case action.Requested:
		if act.Domain == action.DomainOrders {
			s.Loading = true
			s.Err = ""
		}
	case action.Failed:
		if act.Domain == action.DomainOrders {
			s.Loading = false
			s.Err = act.Message
		}
	case action.Settled:
		if act.Domain == action.DomainOrders {
			s.Loading = false
			s.Err = ""
		}
	case action.OrdersLoaded:
		// Merge, never remove: entities leave the store only via explicit
		// delete actions. Per-id transitions stay forward-only even across
		// full fetches, so an out-of-order response cannot regress status.
		items := cloneOrders(s.Items)
		for _, o := range act.Orders {
			if existing, ok := items[o.ID]; ok && !allowTransition(existing.Status, o.Status) {
				continue
			}
			items[o.ID] = o
		}
		s.Items = items
		s.Loading = false
		s.Err = ""
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	case action.OrderUpserted:
		if existing, ok := s.Items[act.Order.ID]; ok {
			if !allowTransition(existing.Status, act.Order.Status) {
				return s
			}
		}
		s.Items = cloneOrders(s.Items)
		s.Items[act.Order.ID] = act.Order
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	case action.OrderRemoved:
		if _, ok := s.Items[act.ID]; !ok {
			return s
		}
		s.Items = cloneOrders(s.Items)
		delete(s.Items, act.ID)
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	}
	return s
}

func cloneOrders(m map[string]models.Order) map[string]models.Order {
	out := make(map[string]models.Order, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
