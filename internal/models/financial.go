package models

import "time"

// FinancialStatementData holds period-scoped fundamentals assembled from the
// income statement, balance sheet, cash flow statement, and financial
// indicator endpoints. Semantically it overlaps with StockSnapshot but is
// sourced from statement-level data rather than daily market data.
//
// All ratio and growth fields are fractions (0.15 = 15%). Absent upstream
// values are zero.
type FinancialStatementData struct {
	Code       string     `json:"stock_code"`
	ReportDate *time.Time `json:"report_date,omitempty"`

	// Income statement
	TotalRevenue float64 `json:"total_revenue"`
	RevenueYoY   float64 `json:"revenue_yoy"`
	NetProfit    float64 `json:"net_profit"`
	NetProfitYoY float64 `json:"net_profit_yoy"`

	// Indicators
	EPS         float64 `json:"eps"`
	GrossMargin float64 `json:"gross_margin"`
	NetMargin   float64 `json:"net_margin"`
	ROE         float64 `json:"roe"`
	ROA         float64 `json:"roa"`
	BVPS        float64 `json:"bvps"`

	// Balance sheet
	TotalAssets      float64 `json:"total_assets"`
	TotalLiabilities float64 `json:"total_liabilities"`
	NetAssets        float64 `json:"net_assets"`
	DebtRatio        float64 `json:"debt_ratio"`
	CurrentRatio     float64 `json:"current_ratio"`
	QuickRatio       float64 `json:"quick_ratio"`

	// Cash flow
	OperatingCashFlow float64 `json:"operating_cash_flow"`
	InvestingCashFlow float64 `json:"investing_cash_flow"`
	FinancingCashFlow float64 `json:"financing_cash_flow"`
}
