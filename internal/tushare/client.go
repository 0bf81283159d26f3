package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the endpoint for the Tushare Pro API.
	DefaultBaseURL = "http://api.tushare.pro"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per minute).
	DefaultRateLimit = 200

	// DefaultMaxRetries is the default number of attempts per call.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the base retry delay, scaled linearly per attempt.
	DefaultRetryDelay = 1 * time.Second
)

// Tushare error codes that indicate a throttled request.
const rateLimitCode = 40203

// Client is a Tushare Pro API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit in requests per minute.
func WithRateLimit(requestsPerMinute int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
	}
}

// WithRetries sets the retry policy.
func WithRetries(maxRetries int, retryDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = retryDelay
	}
}

// NewClient creates a new Tushare Pro API client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/DefaultRateLimit), DefaultRateLimit),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// call performs one Tushare API call with rate limiting and retries.
// Transient failures (network errors, 5xx, throttling) are retried with a
// delay that grows linearly per attempt.
func (c *Client) call(ctx context.Context, apiName string, params map[string]string, fields string) ([]Row, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay * time.Duration(attempt)
			if c.logger != nil {
				c.logger.Warn().
					Str("api", apiName).
					Int("attempt", attempt).
					Err(lastErr).
					Msg("Retrying Tushare API call")
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		rows, err := c.doCall(ctx, apiName, params, fields)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("tushare %s failed after %d attempts: %w", apiName, c.maxRetries, lastErr)
}

func (c *Client) doCall(ctx context.Context, apiName string, params map[string]string, fields string) ([]Row, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{RetryAfter: time.Second}
	}

	if params == nil {
		params = map[string]string{}
	}

	body, err := json.Marshal(request{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  fields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("api", apiName).
			Msg("Tushare API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			Code:    resp.StatusCode,
			Message: string(respBody),
			API:     apiName,
		}
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if parsed.Code != 0 {
		if parsed.Code == rateLimitCode {
			return nil, &RateLimitError{RetryAfter: time.Minute}
		}
		return nil, &APIError{
			Code:    parsed.Code,
			Message: parsed.Msg,
			API:     apiName,
		}
	}

	return zipRows(parsed.Data.Fields, parsed.Data.Items), nil
}

// isRetryable reports whether a call failure is worth another attempt.
// Application-level API errors are final; throttling and transport
// failures are not.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500
	}
	return true
}

// StockBasic retrieves the listing of all tradable stocks.
func (c *Client) StockBasic(ctx context.Context) ([]Row, error) {
	return c.call(ctx, apiStockBasic, map[string]string{
		"list_status": "L",
	}, "ts_code,symbol,name,industry,market,list_date")
}

// Daily retrieves daily OHLCV quotes. Either tsCode or tradeDate may be
// empty to query by the other dimension.
func (c *Client) Daily(ctx context.Context, tsCode, tradeDate string) ([]Row, error) {
	params := map[string]string{}
	if tsCode != "" {
		params["ts_code"] = tsCode
	}
	if tradeDate != "" {
		params["trade_date"] = tradeDate
	}
	return c.call(ctx, apiDaily, params, "")
}

// DailyBasic retrieves per-stock daily valuation indicators (PE, PB,
// turnover, market cap).
func (c *Client) DailyBasic(ctx context.Context, tsCode, tradeDate string) ([]Row, error) {
	params := map[string]string{}
	if tsCode != "" {
		params["ts_code"] = tsCode
	}
	if tradeDate != "" {
		params["trade_date"] = tradeDate
	}
	return c.call(ctx, apiDailyBasic, params, "")
}

// FinaIndicator retrieves financial indicator data for one stock.
func (c *Client) FinaIndicator(ctx context.Context, tsCode string) ([]Row, error) {
	return c.call(ctx, apiFinaIndicator, map[string]string{
		"ts_code": tsCode,
	}, "")
}

// Income retrieves income statement data for one stock.
func (c *Client) Income(ctx context.Context, tsCode string) ([]Row, error) {
	return c.call(ctx, apiIncome, map[string]string{
		"ts_code": tsCode,
	}, "")
}

// BalanceSheet retrieves balance sheet data for one stock.
func (c *Client) BalanceSheet(ctx context.Context, tsCode string) ([]Row, error) {
	return c.call(ctx, apiBalanceSheet, map[string]string{
		"ts_code": tsCode,
	}, "")
}

// CashFlow retrieves cash flow statement data for one stock.
func (c *Client) CashFlow(ctx context.Context, tsCode string) ([]Row, error) {
	return c.call(ctx, apiCashFlow, map[string]string{
		"ts_code": tsCode,
	}, "")
}

// IndexClassify retrieves the industry classification index list.
func (c *Client) IndexClassify(ctx context.Context, level string) ([]Row, error) {
	return c.call(ctx, apiIndexClassify, map[string]string{
		"level": level,
		"src":   "SW2021",
	}, "")
}

// IndexDaily retrieves daily quotes for an industry index.
func (c *Client) IndexDaily(ctx context.Context, tsCode string) ([]Row, error) {
	return c.call(ctx, apiIndexDaily, map[string]string{
		"ts_code": tsCode,
	}, "")
}

// IndexDailyBasic retrieves daily valuation indicators (PE, PB, turnover)
// for an index.
func (c *Client) IndexDailyBasic(ctx context.Context, tsCode string) ([]Row, error) {
	return c.call(ctx, apiIndexDailyBasic, map[string]string{
		"ts_code": tsCode,
	}, "")
}
