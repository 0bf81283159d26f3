package models

import "time"

// StockListing identifies a listed security from the provider's stock list.
type StockListing struct {
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Market   string     `json:"market"`
	Industry string     `json:"industry,omitempty"`
	ListDate *time.Time `json:"list_date,omitempty"`
}

// StockSnapshot is a single-day view of a stock combining market quotes with
// the most recent statement-derived ratios. Fields the provider did not supply
// are left at their zero value, except DebtRatio which the normalization layer
// sets to 1 when absent so the eligibility filter fails conservatively.
//
// Ratio fields (ROE, margins, growth, debt ratio) are fractions, not percents:
// 0.15 means 15%.
type StockSnapshot struct {
	Code string `json:"code"`
	Name string `json:"name"`

	// Market-observed fields
	CurrentPrice         float64 `json:"current_price"`
	PERatio              float64 `json:"pe_ratio"`
	PBRatio              float64 `json:"pb_ratio"`
	TotalMarketCap       float64 `json:"total_market_cap"`
	CirculatingMarketCap float64 `json:"circulating_market_cap"`
	TurnoverRate         float64 `json:"turnover_rate"`
	Amplitude            float64 `json:"amplitude"`

	// Statement-derived fields
	DebtRatio         float64 `json:"debt_ratio"`
	CurrentRatio      float64 `json:"current_ratio"`
	QuickRatio        float64 `json:"quick_ratio"`
	ROE               float64 `json:"roe"`
	NetMargin         float64 `json:"net_margin"`
	GrossMargin       float64 `json:"gross_margin"`
	EPS               float64 `json:"eps"`
	BookValuePerShare float64 `json:"bvps"`
	NetProfitYoY      float64 `json:"net_profit_yoy"`
	OperatingCashFlow float64 `json:"operating_cash_flow"`
	NetProfit         float64 `json:"net_profit"`

	TradeDate *time.Time `json:"trade_date,omitempty"`
}
