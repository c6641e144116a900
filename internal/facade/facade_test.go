package facade

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"marketsync/internal/action"
	"marketsync/internal/gateway"
	"marketsync/internal/models"
	"marketsync/internal/store"
)

// newFixture wires a real store and request gateway against a test server
// so every operation is exercised end to end.
func newFixture(t *testing.T, handler http.Handler) (*Facade, *store.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	st := store.New(zerolog.Nop())
	gw := gateway.New(gateway.Config{BaseURL: server.URL, Timeout: 2 * time.Second}, st, nil, zerolog.Nop())
	return New(st, gw, zerolog.Nop()), st
}

func TestFetchOrdersPopulatesStore(t *testing.T) {
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"order-1","symbol":"AAPL","status":"open","quantity":10},
			{"id":"order-2","symbol":"MSFT","status":"filled","quantity":5}
		]`))
	}))

	orders, err := f.FetchOrders(context.Background())
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("returned %d orders, want 2", len(orders))
	}

	s := st.State().Orders
	if len(s.Items) != 2 {
		t.Fatalf("store has %d orders, want 2", len(s.Items))
	}
	if s.Loading {
		t.Fatal("loading still set after fetch")
	}
	if s.Err != "" {
		t.Fatalf("Err = %q, want empty", s.Err)
	}
}

func TestLoadingBracketsTheCall(t *testing.T) {
	var st *store.Store
	var loadingDuringCall atomic.Bool

	f, s := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loadingDuringCall.Store(st.State().Orders.Loading)
		w.Write([]byte(`[]`))
	}))
	st = s

	if _, err := f.FetchOrders(context.Background()); err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if !loadingDuringCall.Load() {
		t.Fatal("loading flag not set while the request was in flight")
	}
	if st.State().Orders.Loading {
		t.Fatal("loading flag not cleared after the request settled")
	}
}

func TestPlaceOrderFailureLeavesNoOrder(t *testing.T) {
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rejected", http.StatusInternalServerError)
	}))

	order, err := f.PlaceOrder(context.Background(), PlaceOrderRequest{
		PortfolioID: "pf-1",
		Symbol:      "AAPL",
		Side:        models.OrderSideBuy,
		Type:        models.OrderTypeMarket,
		Quantity:    10,
	})
	if err == nil {
		t.Fatal("PlaceOrder succeeded against a failing server")
	}
	if order != nil {
		t.Fatal("order returned despite failure")
	}

	s := st.State().Orders
	if len(s.Items) != 0 {
		t.Fatal("failed placement left a phantom order in the store")
	}
	if s.Err == "" {
		t.Fatal("slice error not recorded")
	}
	if s.Loading {
		t.Fatal("loading not cleared after failure")
	}
}

func TestPlaceOrderStoresServerResponse(t *testing.T) {
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"order-srv","symbol":"AAPL","status":"pending","quantity":10}`))
	}))

	order, err := f.PlaceOrder(context.Background(), PlaceOrderRequest{Symbol: "AAPL", Quantity: 10})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.ID != "order-srv" {
		t.Fatalf("ID = %q, want server-assigned id", order.ID)
	}
	if _, ok := st.State().Orders.Items["order-srv"]; !ok {
		t.Fatal("placed order not in store")
	}
}

func TestCancelOrderNotFoundSucceeds(t *testing.T) {
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	// Seed a locally known open order that the server no longer has.
	st.Dispatch(action.OrderUpserted{
		Order: models.Order{ID: "order-1", Status: models.OrderStatusOpen},
		At:    time.Now(),
	})

	if err := f.CancelOrder(context.Background(), "order-1"); err != nil {
		t.Fatalf("CancelOrder on missing order: %v, want nil", err)
	}

	s := st.State().Orders
	if got := s.Items["order-1"].Status; got != models.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
	if s.Err != "" {
		t.Fatalf("Err = %q, want empty for idempotent cancel", s.Err)
	}
	if s.Loading {
		t.Fatal("loading not cleared")
	}
}

func TestGetPositionAnswersFromCache(t *testing.T) {
	var calls atomic.Int64
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "should not be called", http.StatusInternalServerError)
	}))

	st.Dispatch(action.PortfolioUpserted{
		Portfolio: models.Portfolio{
			ID:        "pf-1",
			Positions: []models.Position{{Symbol: "AAPL", Quantity: 3, CurrentPrice: 100}},
		},
		At: time.Now(),
	})

	pos, err := f.GetPosition(context.Background(), "pf-1", "AAPL")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if pos == nil || pos.Quantity != 3 {
		t.Fatalf("position = %+v, want cached AAPL position", pos)
	}
	if calls.Load() != 0 {
		t.Fatal("cached lookup still hit the network")
	}
}

func TestGetPositionNotFoundIsNotAnError(t *testing.T) {
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no position", http.StatusNotFound)
	}))

	pos, err := f.GetPosition(context.Background(), "pf-1", "TSLA")
	if err != nil {
		t.Fatalf("GetPosition: %v, want nil for absent position", err)
	}
	if pos != nil {
		t.Fatalf("position = %+v, want nil", pos)
	}
	if st.State().Portfolios.Err != "" {
		t.Fatal("absent position recorded as a slice error")
	}
}

func TestFetchMarketClockUsesFollowUpAction(t *testing.T) {
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"is_open":true,"next_close":1700000000000}`))
	}))

	clock, err := f.FetchMarketClock(context.Background())
	if err != nil {
		t.Fatalf("FetchMarketClock: %v", err)
	}
	if !clock.IsOpen {
		t.Fatal("clock.IsOpen = false, want true")
	}
	if !st.State().Market.Clock.IsOpen {
		t.Fatal("clock not applied to store")
	}
}

func TestFetchQuotesEncodesSymbols(t *testing.T) {
	var gotQuery string
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"symbol":"AAPL","last":190.1}]`))
	}))

	quotes, err := f.FetchQuotes(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if gotQuery != "symbols=AAPL%2CMSFT" {
		t.Fatalf("query = %q", gotQuery)
	}
	if len(quotes) != 1 || st.State().Market.Quotes["AAPL"].Last != 190.1 {
		t.Fatal("quotes not applied to store")
	}
}

func TestDeleteAlertIdempotent(t *testing.T) {
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "already gone", http.StatusNotFound)
	}))

	st.Dispatch(action.AlertUpserted{Alert: models.Alert{ID: "al-1"}, At: time.Now()})

	if err := f.DeleteAlert(context.Background(), "al-1"); err != nil {
		t.Fatalf("DeleteAlert on missing alert: %v, want nil", err)
	}
	if _, ok := st.State().Alerts.Items["al-1"]; ok {
		t.Fatal("alert still present after delete")
	}
	if st.State().Alerts.Err != "" {
		t.Fatal("idempotent delete recorded an error")
	}
}

func TestFailureRetainsExistingData(t *testing.T) {
	var fail atomic.Bool
	f, st := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"id":"order-1","symbol":"AAPL","status":"open"}]`))
	}))

	if _, err := f.FetchOrders(context.Background()); err != nil {
		t.Fatalf("initial FetchOrders: %v", err)
	}

	fail.Store(true)
	if _, err := f.FetchOrders(context.Background()); err == nil {
		t.Fatal("expected error from failing server")
	}

	s := st.State().Orders
	if len(s.Items) != 1 {
		t.Fatal("refresh failure cleared previously loaded orders")
	}
	if s.Err == "" {
		t.Fatal("failure not recorded on the slice")
	}
}
