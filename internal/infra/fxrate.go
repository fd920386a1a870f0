package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ratesResponse is the FX API payload: pair code to quote, e.g.
// {"rates": {"USDINR": 83.12, "USDKRW": 1390.5}}.
type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// ExchangeRateClient polls an FX endpoint and serves the latest known
// conversion rates. It satisfies domain.ExchangeRateProvider.
type ExchangeRateClient struct {
	mu           sync.RWMutex
	rates        map[string]decimal.Decimal // keyed "FROMTO", e.g. "USDINR"
	pollInterval time.Duration
	apiURL       string
	httpClient   *http.Client
	logger       *slog.Logger
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewExchangeRateClient creates a new exchange rate client. A zero poll
// interval disables polling; rates can still be seeded with SetRate.
func NewExchangeRateClient(apiURL string, pollInterval time.Duration, logger *slog.Logger) *ExchangeRateClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExchangeRateClient{
		rates:        make(map[string]decimal.Decimal),
		pollInterval: pollInterval,
		apiURL:       apiURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger.With("module", "fx_rate"),
	}
}

// Start begins background polling. Safe to call with no API URL.
func (c *ExchangeRateClient) Start(ctx context.Context) error {
	if c.apiURL == "" || c.pollInterval <= 0 {
		return nil
	}

	ctx, c.cancel = context.WithCancel(ctx)

	// Initial fetch so the first batch does not run on empty rates.
	if err := c.fetch(ctx); err != nil {
		c.logger.Warn("initial FX fetch failed", slog.Any("error", err))
	}

	c.wg.Add(1)
	go c.pollLoop(ctx)
	return nil
}

// Stop terminates background polling.
func (c *ExchangeRateClient) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// GetRate returns the latest rate converting from one currency to
// another. Unknown pairs return zero; identical currencies return one.
func (c *ExchangeRateClient) GetRate(from, to string) decimal.Decimal {
	if from == to {
		return decimal.NewFromInt(1)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if rate, ok := c.rates[from+to]; ok {
		return rate
	}
	// Try the inverse pair.
	if rate, ok := c.rates[to+from]; ok && rate.IsPositive() {
		return decimal.NewFromInt(1).Div(rate)
	}
	return decimal.Zero
}

// SetRate seeds or overrides a pair, mainly for tests and static config.
func (c *ExchangeRateClient) SetRate(from, to string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[from+to] = rate
}

func (c *ExchangeRateClient) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.fetch(ctx); err != nil {
				c.logger.Warn("FX fetch failed", slog.Any("error", err), slog.Int("retry", retryCount))
				retryCount++
				continue
			}
			retryCount = 0
		}
	}
}

func (c *ExchangeRateClient) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("FX API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var parsed ratesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for pair, quote := range parsed.Rates {
		c.rates[pair] = decimal.NewFromFloat(quote)
	}
	return nil
}
