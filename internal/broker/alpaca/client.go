package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/infra"
)

// Alpaca API Constants
const (
	BaseURLLive  = "https://api.alpaca.markets"
	BaseURLPaper = "https://paper-api.alpaca.markets"
)

// Client is the Alpaca V2 REST API client (boundary layer). All orders
// placed through it are plain market orders against the pooled account.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Alpaca API client for the pooled account.
func NewClient(cfg infra.BrokerConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURLLive
		if cfg.Paper {
			baseURL = BaseURLPaper
		}
	}

	return &Client{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "alpaca_client"),
	}
}

// placeOrderRequest - internal struct for JSON marshaling
type placeOrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`          // buy, sell
	Type        string `json:"type"`          // market
	TimeInForce string `json:"time_in_force"` // day
}

// orderResponse is the subset of Alpaca's order payload this core reads.
type orderResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	FilledQty   string `json:"filled_qty"`
	FilledPrice string `json:"filled_avg_price"`
}

// Authenticate verifies the pooled account credentials.
func (c *Client) Authenticate(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return domain.NewBrokerError(domain.BrokerAlpaca, "authenticate", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.NewFatalBrokerError(domain.BrokerAlpaca, "authenticate",
			fmt.Errorf("credentials rejected with status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return domain.NewBrokerError(domain.BrokerAlpaca, "authenticate",
			fmt.Errorf("account check returned status %d", resp.StatusCode))
	}
	return nil
}

// PlaceOrder submits one bulk market order for the pooled account.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side domain.Side, quantity decimal.Decimal) (string, domain.OrderStatus, error) {
	reqBody := placeOrderRequest{
		Symbol:      symbol,
		Qty:         quantity.String(),
		Side:        string(side),
		Type:        "market",
		TimeInForce: "day",
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v2/orders", reqBody)
	if err != nil {
		return "", domain.OrderRejected, domain.NewBrokerError(domain.BrokerAlpaca, "place_order", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", domain.OrderRejected, domain.NewFatalBrokerError(domain.BrokerAlpaca, "place_order",
			fmt.Errorf("api error: status=%d body=%s", resp.StatusCode, string(bodyBytes)))
	}

	var order orderResponse
	if err := json.Unmarshal(bodyBytes, &order); err != nil {
		return "", domain.OrderRejected, domain.NewFatalBrokerError(domain.BrokerAlpaca, "place_order",
			fmt.Errorf("failed to parse response: %w", err))
	}

	c.logger.Info("order placed",
		slog.String("order_id", order.ID),
		slog.String("symbol", symbol),
		slog.String("qty", quantity.String()))

	return order.ID, mapStatus(order.Status), nil
}

// GetOrderStatus polls one order on the pooled account.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, decimal.Decimal, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v2/orders/"+orderID, nil)
	if err != nil {
		return domain.OrderPending, decimal.Zero, domain.NewBrokerError(domain.BrokerAlpaca, "get_order_status", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return domain.OrderPending, decimal.Zero, domain.NewBrokerError(domain.BrokerAlpaca, "get_order_status",
			fmt.Errorf("api error: status=%d body=%s", resp.StatusCode, string(bodyBytes)))
	}

	var order orderResponse
	if err := json.Unmarshal(bodyBytes, &order); err != nil {
		return domain.OrderPending, decimal.Zero, domain.NewBrokerError(domain.BrokerAlpaca, "get_order_status", err)
	}

	filled := decimal.Zero
	if order.FilledQty != "" {
		if parsed, err := decimal.NewFromString(order.FilledQty); err == nil {
			filled = parsed
		}
	}
	return mapStatus(order.Status), filled, nil
}

// CancelOrder cancels an open order on the pooled account.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/v2/orders/"+orderID, nil)
	if err != nil {
		return false, domain.NewBrokerError(domain.BrokerAlpaca, "cancel_order", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return true, nil
	case http.StatusUnprocessableEntity:
		// Order already reached a terminal state.
		return false, nil
	default:
		return false, domain.NewBrokerError(domain.BrokerAlpaca, "cancel_order",
			fmt.Errorf("api error: status=%d", resp.StatusCode))
	}
}

// mapStatus converts Alpaca order states to the abstract contract.
func mapStatus(status string) domain.OrderStatus {
	switch status {
	case "filled":
		return domain.OrderFilled
	case "partially_filled":
		return domain.OrderPartiallyFilled
	case "canceled", "expired", "done_for_day":
		return domain.OrderCancelled
	case "rejected", "stopped", "suspended":
		return domain.OrderRejected
	default:
		// new, accepted, pending_new, calculated, accepted_for_bidding
		return domain.OrderPending
	}
}

// doRequest handles auth headers and serialization
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}
