// Package gateway issues REST-style calls against the remote service and
// emits uniform success/error actions for every call.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	"marketsync/internal/action"
	"marketsync/internal/errors"
	"marketsync/internal/logging"
)

// Sink receives latency and outcome for every call, including failures.
type Sink interface {
	ObserveRequest(method, endpoint, outcome string, latency time.Duration)
}

// NopSink discards all observations.
type NopSink struct{}

// ObserveRequest implements Sink.
func (NopSink) ObserveRequest(string, string, string, time.Duration) {}

// Descriptor declares a remote call. Query is an optional struct encoded
// with url tags; Body is JSON-marshaled when non-nil. OnSuccess/OnError
// optionally build a domain follow-up action from the outcome.
type Descriptor struct {
	Method    string
	Path      string
	Query     interface{}
	Body      interface{}
	OnSuccess func(raw json.RawMessage) action.Action
	OnError   func(err error) action.Action
}

// Dispatcher is the subset of the store the gateway needs.
type Dispatcher interface {
	Dispatch(a action.Action)
}

// Gateway executes descriptors against a base URL. It never retries;
// retry policy belongs to the caller.
type Gateway struct {
	baseURL    string
	client     *http.Client
	dispatcher Dispatcher
	sink       Sink
	logger     zerolog.Logger
	authToken  func() string
}

// Config holds gateway configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// AuthToken supplies the bearer token per call; nil means unauthenticated.
	AuthToken func() string
}

// New creates a request gateway.
func New(cfg Config, dispatcher Dispatcher, sink Sink, logger zerolog.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Gateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		dispatcher: dispatcher,
		sink:       sink,
		logger:     logging.WithComponent(logger, "gateway"),
		authToken:  cfg.AuthToken,
	}
}

// Do executes the descriptor and returns the raw JSON response body.
// Exactly one of RequestSucceeded/RequestFailed is dispatched per call,
// plus the descriptor's follow-up action when present. Latency is measured
// from a single start mark through success or failure alike.
func (g *Gateway) Do(ctx context.Context, d Descriptor) (json.RawMessage, error) {
	start := time.Now()

	raw, status, err := g.execute(ctx, d)
	latency := time.Since(start)
	logging.LogAPICall(g.logger, d.Method, d.Path, latency, err)

	if err != nil {
		g.sink.ObserveRequest(d.Method, d.Path, "error", latency)
		g.dispatcher.Dispatch(action.RequestFailed{
			Method:   d.Method,
			Endpoint: d.Path,
			Status:   status,
			Message:  err.Error(),
			Latency:  latency,
		})
		if d.OnError != nil {
			g.dispatcher.Dispatch(d.OnError(err))
		}
		return nil, err
	}

	g.sink.ObserveRequest(d.Method, d.Path, "success", latency)
	g.dispatcher.Dispatch(action.RequestSucceeded{
		Method:   d.Method,
		Endpoint: d.Path,
		Status:   status,
		Latency:  latency,
	})
	if d.OnSuccess != nil {
		g.dispatcher.Dispatch(d.OnSuccess(raw))
	}
	return raw, nil
}

// execute performs the HTTP exchange. Network failure, non-2xx status and
// decode failure all normalize to a single RequestError.
func (g *Gateway) execute(ctx context.Context, d Descriptor) (json.RawMessage, int, error) {
	url := g.baseURL + "/" + strings.TrimLeft(d.Path, "/")
	if d.Query != nil {
		values, err := query.Values(d.Query)
		if err != nil {
			return nil, 0, errors.NewRequestError(d.Method, d.Path, 0, "encoding query", err)
		}
		if encoded := values.Encode(); encoded != "" {
			url += "?" + encoded
		}
	}

	var body io.Reader
	if d.Body != nil {
		payload, err := json.Marshal(d.Body)
		if err != nil {
			return nil, 0, errors.NewRequestError(d.Method, d.Path, 0, "encoding body", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(d.Method), url, body)
	if err != nil {
		return nil, 0, errors.NewRequestError(d.Method, d.Path, 0, "creating request", err)
	}
	req.Header.Set("Accept", "application/json")
	if d.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.authToken != nil {
		if token := g.authToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, errors.NewRequestError(d.Method, d.Path, 0, "transport failure", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.NewRequestError(d.Method, d.Path, resp.StatusCode, "reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, errors.NewRequestError(
			d.Method, d.Path, resp.StatusCode, strings.TrimSpace(string(raw)), nil)
	}

	if len(raw) > 0 && !json.Valid(raw) {
		return nil, resp.StatusCode, errors.NewRequestError(
			d.Method, d.Path, resp.StatusCode, "invalid JSON in response", errors.ErrMalformedPayload)
	}
	return raw, resp.StatusCode, nil
}
