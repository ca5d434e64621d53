package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// Quote is a point-in-time market price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceSource supplies current market prices. Implementations must honour the
// request context; a timeout or failure surfaces as ErrPriceUnavailable.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (*Quote, error)
}

// BenchmarkSource supplies the reference index return used for
// outperformance.
type BenchmarkSource interface {
	GetBenchmarkReturn(ctx context.Context) (name string, returnPct float64, err error)
}

const (
	defaultAlphaVantageURL = "https://www.alphavantage.co/query"
	defaultPriceTimeout    = 10 * time.Second
	defaultPriceCacheTTL   = 5 * time.Minute
)

// AlphaVantageClient fetches quotes from Alpha Vantage with a redis
// read-through cache in front.
type AlphaVantageClient struct {
	baseURL         string
	apiKey          string
	client          *http.Client
	cache           *redis.Client
	cacheTTL        time.Duration
	benchmarkSymbol string
	benchmarkName   string
}

type AlphaVantageConfig struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	CacheTTL        time.Duration
	BenchmarkSymbol string
	BenchmarkName   string
}

func NewAlphaVantageClient(cfg AlphaVantageConfig, cache *redis.Client) *AlphaVantageClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAlphaVantageURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPriceTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultPriceCacheTTL
	}
	return &AlphaVantageClient{
		baseURL:         cfg.BaseURL,
		apiKey:          cfg.APIKey,
		client:          &http.Client{Timeout: cfg.Timeout},
		cache:           cache,
		cacheTTL:        cfg.CacheTTL,
		benchmarkSymbol: cfg.BenchmarkSymbol,
		benchmarkName:   cfg.BenchmarkName,
	}
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Price     string `json:"05. price"`
		ChangePct string `json:"10. change percent"`
	} `json:"Global Quote"`
}

func priceCacheKey(symbol string) string {
	return fmt.Sprintf("stock:%s:price", symbol)
}

func (c *AlphaVantageClient) GetCurrentPrice(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, priceCacheKey(symbol)).Result(); err == nil {
			var quote Quote
			if err := json.Unmarshal([]byte(cached), &quote); err == nil {
				return &quote, nil
			}
		}
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: quote endpoint returned status %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var result globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if result.GlobalQuote.Price == "" {
		return nil, fmt.Errorf("%w: no quote for %s", ErrPriceUnavailable, symbol)
	}

	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("%w: bad price %q for %s", ErrPriceUnavailable, result.GlobalQuote.Price, symbol)
	}

	quote := &Quote{
		Symbol:    symbol,
		Price:     price,
		ChangePct: parseChangePct(result.GlobalQuote.ChangePct),
		Timestamp: time.Now().UTC(),
	}

	if c.cache != nil {
		if data, err := json.Marshal(quote); err == nil {
			// best effort, a cache miss next time is fine
			_ = c.cache.Set(ctx, priceCacheKey(symbol), data, c.cacheTTL).Err()
		}
	}

	return quote, nil
}

// GetBenchmarkReturn quotes the configured index proxy and reports its change
// percentage as the reference return.
func (c *AlphaVantageClient) GetBenchmarkReturn(ctx context.Context) (string, float64, error) {
	if c.benchmarkSymbol == "" {
		return "", 0, fmt.Errorf("%w: no benchmark symbol configured", ErrPriceUnavailable)
	}
	quote, err := c.GetCurrentPrice(ctx, c.benchmarkSymbol)
	if err != nil {
		return "", 0, err
	}
	return c.benchmarkName, quote.ChangePct, nil
}

func parseChangePct(raw string) float64 {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")
	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return pct
}
