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

type quotesQuery struct {
	Symbols []string `url:"symbols,comma"`
}

// FetchQuotes loads quotes for the given symbols into the store.
func (f *Facade) FetchQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	f.begin(action.DomainMarket)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "quotes",
		Query:  quotesQuery{Symbols: symbols},
	})
	if err != nil {
		return nil, f.fail(action.DomainMarket, err)
	}

	var dtos []quoteDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, f.fail(action.DomainMarket, errors.Wrap(err, "decoding quotes"))
	}

	quotes := make([]models.Quote, 0, len(dtos))
	for _, d := range dtos {
		quotes = append(quotes, d.toModel())
	}
	f.store.Dispatch(action.QuotesLoaded{Quotes: quotes, At: f.now()})
	return quotes, nil
}

// FetchMarketClock loads the exchange session clock. The store update
// rides on the gateway's follow-up action hooks.
func (f *Facade) FetchMarketClock(ctx context.Context) (*models.MarketClock, error) {
	f.begin(action.DomainMarket)

	var clock *models.MarketClock
	_, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "market/clock",
		OnSuccess: func(raw json.RawMessage) action.Action {
			var dto clockDTO
			if err := json.Unmarshal(raw, &dto); err != nil {
				return action.Failed{
					Domain:  action.DomainMarket,
					Message: "malformed market clock",
					At:      f.now(),
				}
			}
			c := dto.toModel()
			clock = &c
			return action.ClockLoaded{Clock: c, At: f.now()}
		},
		OnError: func(err error) action.Action {
			return action.Failed{
				Domain:  action.DomainMarket,
				Message: humanMessage(err),
				At:      f.now(),
			}
		},
	})
	if err != nil {
		return nil, err
	}
	if clock == nil {
		return nil, errors.Wrap(errors.ErrMalformedPayload, "decoding market clock")
	}
	return clock, nil
}
