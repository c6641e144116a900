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

// CreateAlertRequest describes a new price alert.
type CreateAlertRequest struct {
	EntityID  string  `json:"entity_id"`
	Symbol    string  `json:"symbol"`
	Condition string  `json:"condition"`
	Threshold float64 `json:"threshold"`
}

// FetchAlerts loads all alerts into the store and returns them.
func (f *Facade) FetchAlerts(ctx context.Context) ([]models.Alert, error) {
	f.begin(action.DomainAlerts)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "alerts",
	})
	if err != nil {
		return nil, f.fail(action.DomainAlerts, err)
	}

	var dtos []alertDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, f.fail(action.DomainAlerts, errors.Wrap(err, "decoding alerts"))
	}

	alerts := make([]models.Alert, 0, len(dtos))
	for _, d := range dtos {
		alerts = append(alerts, d.toModel())
	}
	f.store.Dispatch(action.AlertsLoaded{Alerts: alerts, At: f.now()})
	return alerts, nil
}

// CreateAlert registers a new alert from the server's response.
func (f *Facade) CreateAlert(ctx context.Context, req CreateAlertRequest) (*models.Alert, error) {
	f.begin(action.DomainAlerts)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodPost,
		Path:   "alerts",
		Body:   req,
	})
	if err != nil {
		return nil, f.fail(action.DomainAlerts, err)
	}

	var dto alertDTO
	if err := json.Unmarshal(raw, &dto); err != nil || dto.ID == "" {
		return nil, f.fail(action.DomainAlerts, errors.Wrap(errors.ErrMalformedPayload, "decoding created alert"))
	}

	alert := dto.toModel()
	f.store.Dispatch(action.AlertUpserted{Alert: alert, At: f.now()})
	f.settle(action.DomainAlerts)
	return &alert, nil
}

// DeleteAlert removes an alert. Deleting an alert that is already gone
// server-side succeeds, mirroring cancel-order semantics.
func (f *Facade) DeleteAlert(ctx context.Context, id string) error {
	f.begin(action.DomainAlerts)

	_, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodDelete,
		Path:   "alerts/" + id,
	})
	if err != nil && !errors.IsNotFound(err) {
		return f.fail(action.DomainAlerts, err)
	}

	f.store.Dispatch(action.AlertRemoved{ID: id, At: f.now()})
	f.settle(action.DomainAlerts)
	return nil
}

// ToggleAlert enables or disables an alert.
func (f *Facade) ToggleAlert(ctx context.Context, id string, enabled bool) (*models.Alert, error) {
	f.begin(action.DomainAlerts)

	raw, err := f.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodPatch,
		Path:   "alerts/" + id,
		Body:   map[string]bool{"enabled": enabled},
	})
	if err != nil {
		return nil, f.fail(action.DomainAlerts, err)
	}

	var dto alertDTO
	if err := json.Unmarshal(raw, &dto); err != nil || dto.ID == "" {
		return nil, f.fail(action.DomainAlerts, errors.Wrap(errors.ErrMalformedPayload, "decoding alert"))
	}

	alert := dto.toModel()
	f.store.Dispatch(action.AlertUpserted{Alert: alert, At: f.now()})
	f.settle(action.DomainAlerts)
	return &alert, nil
}
