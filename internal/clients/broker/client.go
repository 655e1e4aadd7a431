package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
)

// Client for the broker microservice
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// serviceResponse is the standard response envelope
type serviceResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *string         `json:"error"`
	Timestamp string          `json:"timestamp"`
}

// NewClient creates a new broker microservice client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "broker").Logger(),
	}
}

// Account returns the current cash and portfolio value.
func (c *Client) Account(ctx context.Context) (domain.AccountSnapshot, error) {
	resp, err := c.get(ctx, "/api/account")
	if err != nil {
		return domain.AccountSnapshot{}, err
	}

	var snapshot domain.AccountSnapshot
	if err := json.Unmarshal(resp.Data, &snapshot); err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("failed to parse account snapshot: %w", err)
	}

	return snapshot, nil
}

// positionsResponse is the response for Positions
type positionsResponse struct {
	Positions []domain.BrokerPosition `json:"positions"`
}

// Positions returns the current open positions.
func (c *Client) Positions(ctx context.Context) ([]domain.BrokerPosition, error) {
	resp, err := c.get(ctx, "/api/positions")
	if err != nil {
		return nil, err
	}

	var result positionsResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse positions: %w", err)
	}

	return result.Positions, nil
}

// submitOrderRequest is the request for SubmitOrder
type submitOrderRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
}

// SubmitOrder places a market order and returns the confirmation.
// A failure here is never retried by callers: the order may already
// have been accepted, and a retry risks duplicate execution.
func (c *Client) SubmitOrder(ctx context.Context, symbol string, quantity int64, side domain.TradeSide) (*domain.OrderConfirmation, error) {
	req := submitOrderRequest{
		Symbol:   symbol,
		Side:     string(side),
		Quantity: quantity,
	}

	resp, err := c.post(ctx, "/api/orders", req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s x%d: %v", domain.ErrOrderRejected, side, symbol, quantity, err)
	}

	var confirmation domain.OrderConfirmation
	if err := json.Unmarshal(resp.Data, &confirmation); err != nil {
		return nil, fmt.Errorf("failed to parse order confirmation: %w", err)
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Int64("quantity", quantity).
		Str("order_id", confirmation.OrderID).
		Msg("Order confirmed")

	return &confirmation, nil
}

// post makes a POST request to the microservice
func (c *Client) post(ctx context.Context, endpoint string, request interface{}) (*serviceResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp)
}

// get makes a GET request to the microservice
func (c *Client) get(ctx context.Context, endpoint string) (*serviceResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp)
}

// parseResponse parses the service response
func (c *Client) parseResponse(resp *http.Response) (*serviceResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result serviceResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.Success {
		errMsg := "unknown error"
		if result.Error != nil {
			errMsg = *result.Error
		}
		return &result, fmt.Errorf("microservice error: %s", errMsg)
	}

	return &result, nil
}
