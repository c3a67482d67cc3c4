// Package testutil provides common test utilities for handler and service tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "burogate/pkg/domain"
	"burogate/pkg/requestcontext"
)

// NewJSONRequest creates an HTTP request with a JSON body.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest creates a simple HTTP request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeJSON unmarshals a recorded response body into T.
func DecodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

// AuthedContext builds a context carrying a caller identity, a fixed time,
// and client metadata, as the middleware chain would.
func AuthedContext(ident requestcontext.CallerIdentity, now time.Time) context.Context {
	ctx := requestcontext.WithIdentity(context.Background(), ident)
	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithClientIP(ctx, "192.0.2.10")
	ctx = requestcontext.WithRequestID(ctx, "test-request")
	return ctx
}

// Consultant returns a ready-made caller identity for tests.
func Consultant(entityID id.EntityID, maxMonthly int) requestcontext.CallerIdentity {
	return requestcontext.CallerIdentity{
		UserID:            id.UserID(900 + int64(entityID)),
		EntityID:          entityID,
		EntityName:        "Financiera Prueba SA",
		EntityTaxID:       id.TaxID("FPR120304AB1"),
		MaxMonthlyQueries: maxMonthly,
	}
}
