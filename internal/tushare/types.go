// Package tushare provides a client for the Tushare Pro market data API.
// This package centralizes all Tushare API interactions for the application.
//
// Tushare speaks a single-endpoint JSON-RPC dialect: every call POSTs
// {api_name, token, params, fields} and receives a columnar response of
// field names plus item rows. The client zips each response back into
// per-row maps so callers can read named fields.
package tushare

import (
	"fmt"
	"time"
)

// API names understood by the Tushare Pro endpoint.
const (
	apiStockBasic      = "stock_basic"
	apiDaily           = "daily"
	apiDailyBasic      = "daily_basic"
	apiFinaIndicator   = "fina_indicator"
	apiIncome          = "income"
	apiBalanceSheet    = "balancesheet"
	apiCashFlow        = "cashflow"
	apiIndexClassify   = "index_classify"
	apiIndexDaily      = "index_daily"
	apiIndexDailyBasic = "index_dailybasic"
)

// APIError represents an error returned by the Tushare API.
type APIError struct {
	Code    int
	Message string
	API     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tushare API error: %s (code: %d, api: %s)", e.Message, e.Code, e.API)
}

// RateLimitError represents a rate limit rejection.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("tushare rate limit exceeded, retry after %v", e.RetryAfter)
}

// Row is one record of a columnar response, keyed by field name. Values are
// whatever the JSON decoder produced: float64, string, bool, or nil.
type Row map[string]interface{}

// Float returns the named field as a float64. Absent or null fields report
// ok=false; callers choose their own defaults.
func (r Row) Float(key string) (float64, bool) {
	v, exists := r[key]
	if !exists || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// FloatOr returns the named field as a float64, or def when absent or null.
func (r Row) FloatOr(key string, def float64) float64 {
	if f, ok := r.Float(key); ok {
		return f
	}
	return def
}

// String returns the named field as a string. Absent or null fields return
// the empty string.
func (r Row) String(key string) string {
	v, exists := r[key]
	if !exists || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// request is the wire format of a Tushare call.
type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields,omitempty"`
}

// response is the wire format of a Tushare reply. Data is columnar:
// Fields names the columns, Items holds the rows.
type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// zipRows converts a columnar response into per-row field maps.
func zipRows(fields []string, items [][]interface{}) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		row := make(Row, len(fields))
		for i, field := range fields {
			if i < len(item) {
				row[field] = item[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}
