package bureau

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"burogate/internal/platform/metrics"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/platform/circuit"
)

// HTTPClient talks to the bureau's REST API authenticated by API key.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	metrics *metrics.Metrics
	breaker *circuit.Breaker
}

type HTTPOption func(*HTTPClient)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

func WithMetrics(m *metrics.Metrics) HTTPOption {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// WithBreaker short-circuits bureau calls while the breaker is open, so a
// down bureau fails fast instead of tying up request goroutines until the
// timeout.
func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(c *HTTPClient) {
		c.breaker = b
	}
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Summary(ctx context.Context, taxID id.TaxID) (*Summary, error) {
	var out Summary
	found, err := c.get(ctx, "buro", "/buro/"+url.PathEscape(string(taxID)), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PaymentStats(ctx context.Context, taxID id.TaxID) (*PaymentStats, error) {
	var out PaymentStats
	found, err := c.get(ctx, "estadisticas", "/pagos/estadisticas/"+url.PathEscape(string(taxID)), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ObligationDetails(ctx context.Context, taxID id.TaxID) ([]Obligation, error) {
	out := make([]Obligation, 0)
	if _, err := c.get(ctx, "obligaciones", "/obligaciones/"+url.PathEscape(string(taxID))+"/detalles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Payments(ctx context.Context, taxID id.TaxID) ([]Payment, error) {
	out := make([]Payment, 0)
	if _, err := c.get(ctx, "pagos", "/pagos/"+url.PathEscape(string(taxID)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) PendingPayments(ctx context.Context, taxID id.TaxID) ([]PendingPayment, error) {
	out := make([]PendingPayment, 0)
	if _, err := c.get(ctx, "pendientes", "/pagos/pendientes/"+url.PathEscape(string(taxID)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// get performs one fetch. Returns found=false on 404 without touching dst.
func (c *HTTPClient) get(ctx context.Context, dataset, path string, dst any) (found bool, err error) {
	if c.breaker != nil && c.breaker.IsOpen() {
		return false, dErrors.New(dErrors.CodeUnavailable, "bureau circuit is open")
	}

	start := time.Now()
	defer func() {
		c.metrics.ObserveBureauFetch(dataset, time.Since(start))
		if c.breaker == nil {
			return
		}
		if err != nil {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build bureau request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, dErrors.Wrap(err, dErrors.CodeTimeout, "bureau request timed out")
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "bureau is unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return false, nil
	case resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return false, dErrors.Newf(dErrors.CodeUnavailable, "bureau returned status %d for %s", resp.StatusCode, dataset)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return false, dErrors.Wrap(fmt.Errorf("decode %s response: %w", dataset, err),
			dErrors.CodeUnavailable, "bureau returned a malformed response")
	}
	return true, nil
}
