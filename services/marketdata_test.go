package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphaVantageGetCurrentPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "CBA.AX", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"Global Quote": {"05. price": "92.3000", "10. change percent": "1.2500%"}}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClient(AlphaVantageConfig{BaseURL: server.URL, APIKey: "test"}, nil)

	quote, err := client.GetCurrentPrice(context.Background(), "cba.ax")
	require.NoError(t, err)
	assert.Equal(t, "CBA.AX", quote.Symbol)
	assert.Equal(t, 92.30, quote.Price)
	assert.InDelta(t, 1.25, quote.ChangePct, 1e-9)
}

func TestAlphaVantageUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote": {}}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClient(AlphaVantageConfig{BaseURL: server.URL, APIKey: "test"}, nil)

	_, err := client.GetCurrentPrice(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestAlphaVantageServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewAlphaVantageClient(AlphaVantageConfig{BaseURL: server.URL, APIKey: "test"}, nil)

	_, err := client.GetCurrentPrice(context.Background(), "CBA")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestAlphaVantageRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"Global Quote": {"05. price": "92.3000"}}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClient(AlphaVantageConfig{BaseURL: server.URL, APIKey: "test"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetCurrentPrice(ctx, "CBA")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestAlphaVantageEmptySymbol(t *testing.T) {
	client := NewAlphaVantageClient(AlphaVantageConfig{APIKey: "test"}, nil)

	_, err := client.GetCurrentPrice(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAlphaVantageEscapesQueryValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// symbols with reserved characters must survive the round trip intact
		assert.Equal(t, "BRK&B", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key#1", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"Global Quote": {"05. price": "412.5000"}}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClient(AlphaVantageConfig{BaseURL: server.URL, APIKey: "key#1"}, nil)

	quote, err := client.GetCurrentPrice(context.Background(), "BRK&B")
	require.NoError(t, err)
	assert.Equal(t, 412.50, quote.Price)
}

func TestParseChangePct(t *testing.T) {
	assert.InDelta(t, 1.25, parseChangePct("1.2500%"), 1e-9)
	assert.InDelta(t, -0.5, parseChangePct(" -0.5% "), 1e-9)
	assert.Zero(t, parseChangePct(""))
	assert.Zero(t, parseChangePct("n/a"))
}

func TestBenchmarkReturnRequiresSymbol(t *testing.T) {
	client := NewAlphaVantageClient(AlphaVantageConfig{APIKey: "test"}, nil)

	_, _, err := client.GetBenchmarkReturn(context.Background())
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}
