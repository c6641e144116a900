package store

import (
	"marketsync/internal/action"
	"marketsync/internal/models"
)

func reduceMarket(s MarketState, a action.Action) MarketState {
	switch act := a.(type) {
	case action.Requested:
		if act.Domain == action.DomainMarket {
			s.Loading = true
			s.Err = ""
		}
	case action.Failed:
		if act.Domain == action.DomainMarket {
			s.Loading = false
			s.Err = act.Message
		}
	case action.Settled:
		if act.Domain == action.DomainMarket {
			s.Loading = false
			s.Err = ""
		}
	case action.QuotesLoaded:
		quotes := cloneQuotes(s.Quotes)
		for _, q := range act.Quotes {
			quotes[q.Symbol] = q
		}
		s.Quotes = quotes
		s.Loading = false
		s.Err = ""
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	case action.QuoteUpdated:
		s.Quotes = cloneQuotes(s.Quotes)
		s.Quotes[act.Quote.Symbol] = act.Quote
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	case action.ClockLoaded:
		s.Clock = act.Clock
		s.Loading = false
		s.Err = ""
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	}
	return s
}

func cloneQuotes(m map[string]models.Quote) map[string]models.Quote {
	out := make(map[string]models.Quote, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
