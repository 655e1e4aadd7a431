package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/aristath/formula-trader/internal/domain"
	"github.com/aristath/formula-trader/pkg/formulas"
)

const (
	quoteSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary/"
	quoteURL        = "https://query1.finance.yahoo.com/v7/finance/quote"
	screenerURL     = "https://query1.finance.yahoo.com/v1/finance/screener"

	screenerPageSize = 250
)

// Client is a Yahoo Finance API client. All requests pass through a
// circuit breaker so a flapping upstream trips fast instead of burning
// the whole universe fetch on timeouts.
type Client struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	settings := gobreaker.Settings{
		Name:     "yahoo",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// Screen returns the symbols listed on an exchange with a market cap
// of at least minMarketCap.
func (c *Client) Screen(ctx context.Context, exchange string, minMarketCap float64) ([]string, error) {
	query := map[string]interface{}{
		"size":      screenerPageSize,
		"offset":    0,
		"sortField": "intradaymarketcap",
		"sortType":  "DESC",
		"quoteType": "EQUITY",
		"query": map[string]interface{}{
			"operator": "AND",
			"operands": []interface{}{
				map[string]interface{}{"operator": "EQ", "operands": []interface{}{"exchange", exchange}},
				map[string]interface{}{"operator": "GT", "operands": []interface{}{"intradaymarketcap", minMarketCap}},
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal screener query: %w", err)
	}

	var result screenerResponse
	if err := c.postJSON(ctx, screenerURL, body, &result); err != nil {
		return nil, fmt.Errorf("screen failed: %w", err)
	}

	if result.Finance.Error != nil {
		return nil, fmt.Errorf("screener API error: %v", result.Finance.Error)
	}
	if len(result.Finance.Result) == 0 {
		return nil, nil
	}

	symbols := make([]string, 0, len(result.Finance.Result[0].Quotes))
	for _, q := range result.Finance.Result[0].Quotes {
		if q.Symbol != "" {
			symbols = append(symbols, q.Symbol)
		}
	}

	c.log.Info().
		Str("exchange", exchange).
		Float64("min_market_cap", minMarketCap).
		Int("count", len(symbols)).
		Msg("Screened universe")

	return symbols, nil
}

// Metric fetches the fundamentals for one symbol and derives the two
// strategy factors: earnings yield (EBIT / enterprise value) and
// return on capital (EBIT / (net working capital + net fixed assets)).
// Missing fields surface as NaN factors and are filtered by the ranker.
func (c *Client) Metric(ctx context.Context, symbol string) (domain.StockMetric, error) {
	params := url.Values{}
	params.Add("modules", "defaultKeyStatistics,incomeStatementHistory,balanceSheetHistory")

	reqURL := quoteSummaryURL + url.PathEscape(symbol) + "?" + params.Encode()

	var result quoteSummaryResponse
	if err := c.getJSON(ctx, reqURL, &result); err != nil {
		return domain.StockMetric{}, fmt.Errorf("metric fetch for %s failed: %w", symbol, err)
	}

	if result.QuoteSummary.Error != nil {
		return domain.StockMetric{}, fmt.Errorf("quoteSummary API error for %s: %v", symbol, result.QuoteSummary.Error)
	}
	if len(result.QuoteSummary.Result) == 0 {
		return domain.StockMetric{}, fmt.Errorf("no fundamentals returned for %s", symbol)
	}

	data := result.QuoteSummary.Result[0]

	var ebit float64
	if statements := data.IncomeStatementHistory.IncomeStatementHistory; len(statements) > 0 {
		ebit = statements[0].EBIT.Raw
	}

	var netWorkingCapital, netFixedAssets float64
	if sheets := data.BalanceSheetHistory.BalanceSheetStatements; len(sheets) > 0 {
		netWorkingCapital = sheets[0].TotalCurrentAssets.Raw - sheets[0].TotalCurrentLiabilities.Raw
		netFixedAssets = sheets[0].PropertyPlantEquipment.Raw
	}

	return domain.StockMetric{
		Symbol:          symbol,
		EarningsYield:   formulas.EarningsYield(ebit, data.DefaultKeyStatistics.EnterpriseValue.Raw),
		ReturnOnCapital: formulas.ReturnOnCapital(ebit, netWorkingCapital, netFixedAssets),
	}, nil
}

// Quote returns the current regular-market price for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Add("symbols", symbol)
	params.Add("fields", "symbol,regularMarketPrice")

	var result quoteResponse
	if err := c.getJSON(ctx, quoteURL+"?"+params.Encode(), &result); err != nil {
		return 0, fmt.Errorf("quote fetch for %s failed: %w", symbol, err)
	}

	if result.QuoteResponse.Error != nil {
		return 0, fmt.Errorf("quote API error for %s: %v", symbol, result.QuoteResponse.Error)
	}
	if len(result.QuoteResponse.Result) == 0 {
		return 0, fmt.Errorf("no quote data returned for %s", symbol)
	}

	price := result.QuoteResponse.Result[0].RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("invalid price %f for %s", price, symbol)
	}

	return price, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, reqURL string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		return nil, nil
	})

	return err
}
