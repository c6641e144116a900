package store

import (
	"marketsync/internal/action"
	"marketsync/internal/models"
)

func reduceTrades(s TradesState, a action.Action) TradesState {
	switch act := a.(type) {
	case action.Requested:
		if act.Domain == action.DomainTrades {
			s.Loading = true
			s.Err = ""
		}
	case action.Failed:
		if act.Domain == action.DomainTrades {
			s.Loading = false
			s.Err = act.Message
		}
	case action.Settled:
		if act.Domain == action.DomainTrades {
			s.Loading = false
			s.Err = ""
		}
	case action.TradesLoaded:
		// Trades are immutable once created: new ids are added, known ids
		// keep their stored value.
		added := false
		items := cloneTrades(s.Items)
		for _, t := range act.Trades {
			if _, ok := items[t.ID]; ok {
				continue
			}
			items[t.ID] = t
			added = true
		}
		if added {
			s.Items = items
			s.LastUpdated = laterOf(s.LastUpdated, act.At)
		}
		s.Loading = false
		s.Err = ""
	case action.TradeExecuted:
		if _, ok := s.Items[act.Trade.ID]; ok {
			return s
		}
		s.Items = cloneTrades(s.Items)
		s.Items[act.Trade.ID] = act.Trade
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	}
	return s
}

func cloneTrades(m map[string]models.Trade) map[string]models.Trade {
	out := make(map[string]models.Trade, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
