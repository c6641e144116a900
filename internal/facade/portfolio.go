package facade

import (
	"context"
	"encoding/json"
	"net/http"

	"marketsync/internal/action"
	"marketsync/internal/errors"
	"marketsync/internal/gateway"
	"marketsync/internal/models"
	"marketsync/internal/store"
)

// FetchPortfolios loads all portfolios into the store and returns them.
func (f *Facade) FetchPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	f.begin(action.DomainPortfolios)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "portfolios",
	})
	if err != nil {
		return nil, f.fail(action.DomainPortfolios, err)
	}

	var dtos []portfolioDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, f.fail(action.DomainPortfolios, errors.Wrap(err, "decoding portfolios"))
	}

	portfolios := make([]models.Portfolio, 0, len(dtos))
	for _, d := range dtos {
		portfolios = append(portfolios, d.toModel())
	}
	f.store.Dispatch(action.PortfoliosLoaded{Portfolios: portfolios, At: f.now()})
	return portfolios, nil
}

// FetchPortfolio loads one portfolio into the store and returns it.
func (f *Facade) FetchPortfolio(ctx context.Context, id string) (*models.Portfolio, error) {
	f.begin(action.DomainPortfolios)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "portfolios/" + id,
	})
	if err != nil {
		return nil, f.fail(action.DomainPortfolios, err)
	}

	var dto portfolioDTO
	if err := json.Unmarshal(raw, &dto); err != nil || dto.ID == "" {
		return nil, f.fail(action.DomainPortfolios, errors.Wrap(errors.ErrMalformedPayload, "decoding portfolio"))
	}

	portfolio := dto.toModel()
	f.store.Dispatch(action.PortfolioUpserted{Portfolio: portfolio, At: f.now()})
	f.settle(action.DomainPortfolios)
	return &portfolio, nil
}

// GetPosition returns the position for symbol in a portfolio. A cached
// portfolio answers without a network round trip. A not-found response is
// a valid negative result: (nil, nil) with the slice error untouched.
func (f *Facade) GetPosition(ctx context.Context, portfolioID, symbol string) (*models.Position, error) {
	if pos := store.PortfolioPosition(f.store.State(), portfolioID, symbol); pos != nil {
		return pos, nil
	}

	f.begin(action.DomainPortfolios)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "portfolios/" + portfolioID + "/positions/" + symbol,
	})
	if err != nil {
		if errors.IsNotFound(err) {
			f.settle(action.DomainPortfolios)
			return nil, nil
		}
		return nil, f.fail(action.DomainPortfolios, err)
	}

	var dto positionDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, f.fail(action.DomainPortfolios, errors.Wrap(err, "decoding position"))
	}
	f.settle(action.DomainPortfolios)

	if dto.Symbol == "" {
		return nil, nil
	}
	pos := dto.toModel()
	return &pos, nil
}
