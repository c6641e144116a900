package store

import (
	"marketsync/internal/action"
	"marketsync/internal/models"
)

// normalizePortfolio recomputes derived portfolio values from the full
// replacement payload. TotalValue is always cash plus summed position
// market value; position weights are derived from that total. The store
// never trusts a pushed TotalValue.
func normalizePortfolio(p models.Portfolio) models.Portfolio {
	positions := make([]models.Position, len(p.Positions))
	copy(positions, p.Positions)
	p.Positions = positions

	p.TotalValue = p.CashBalance + p.PositionsValue()
	if p.TotalValue > 0 {
		for i := range p.Positions {
			p.Positions[i].Weight = p.Positions[i].MarketValue() / p.TotalValue
		}
	}
	return p
}

func reducePortfolios(s PortfoliosState, a action.Action) PortfoliosState {
	switch act := a.(type) {
	case action.Requested:
		if act.Domain == action.DomainPortfolios {
			s.Loading = true
			s.Err = ""
		}
	case action.Failed:
		if act.Domain == action.DomainPortfolios {
			s.Loading = false
			s.Err = act.Message
		}
	case action.Settled:
		if act.Domain == action.DomainPortfolios {
			s.Loading = false
			s.Err = ""
		}
	case action.PortfoliosLoaded:
		items := clonePortfolios(s.Items)
		for _, p := range act.Portfolios {
			items[p.ID] = normalizePortfolio(p)
		}
		s.Items = items
		s.Loading = false
		s.Err = ""
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	case action.PortfolioUpserted:
		// A push for an unknown id creates the portfolio; push can create,
		// not just update.
		s.Items = clonePortfolios(s.Items)
		s.Items[act.Portfolio.ID] = normalizePortfolio(act.Portfolio)
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	}
	return s
}

func clonePortfolios(m map[string]models.Portfolio) map[string]models.Portfolio {
	out := make(map[string]models.Portfolio, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
