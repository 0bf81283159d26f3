package tushare

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/margin/internal/common"
	"github.com/ternarybob/margin/internal/models"
)

// Unit conversions from Tushare's wire units to model units.
// Market caps arrive in units of 10,000 yuan; traded amounts in units of
// 1,000 yuan; volumes in lots of 100 shares.
const (
	marketCapUnit = 1e4
	amountUnit    = 1e3
	volumeUnit    = 100
)

// percent converts a Tushare percent figure (15.0 = 15%) to a fraction.
func percent(v float64) float64 {
	return v / 100
}

// Fetcher assembles normalized model structures from raw Tushare rows.
// It merges quote, valuation, and statement endpoints into single snapshots
// and converts wire units to model units.
type Fetcher struct {
	client *Client
	logger arbor.ILogger
}

// NewFetcher creates a fetcher over the given client.
func NewFetcher(client *Client, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// ListStocks returns the listing of all tradable stocks.
func (f *Fetcher) ListStocks(ctx context.Context) ([]models.StockListing, error) {
	rows, err := f.client.StockBasic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	listings := make([]models.StockListing, 0, len(rows))
	for _, row := range rows {
		listing := models.StockListing{
			Code:     row.String("symbol"),
			Name:     row.String("name"),
			Industry: row.String("industry"),
			Market:   row.String("market"),
		}
		if listing.Code == "" {
			listing.Code = common.FromTSCode(row.String("ts_code"))
		}
		if d := parseTradeDate(row.String("list_date")); d != nil {
			listing.ListDate = d
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// GetSnapshot fetches and merges the latest quote, valuation, indicator, and
// statement rows for one stock into a single snapshot.
func (f *Fetcher) GetSnapshot(ctx context.Context, code string) (*models.StockSnapshot, error) {
	tsCode, err := common.ToTSCode(code)
	if err != nil {
		return nil, err
	}

	snapshot := &models.StockSnapshot{
		Code: code,
		// Absent leverage data must not pass the eligibility filter.
		DebtRatio: 1,
	}

	daily, err := f.client.Daily(ctx, tsCode, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes for %s: %w", code, err)
	}
	if len(daily) > 0 {
		f.applyDaily(snapshot, daily[0])
	}

	basic, err := f.client.DailyBasic(ctx, tsCode, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch valuation for %s: %w", code, err)
	}
	if len(basic) > 0 {
		f.applyDailyBasic(snapshot, basic[0])
	}

	indicators, err := f.client.FinaIndicator(ctx, tsCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch indicators for %s: %w", code, err)
	}
	if len(indicators) > 0 {
		f.applyIndicators(snapshot, indicators[0])
	}

	income, err := f.client.Income(ctx, tsCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch income statement for %s: %w", code, err)
	}
	if len(income) > 0 {
		if v, ok := income[0].Float("n_income"); ok {
			snapshot.NetProfit = v
		}
	}

	cashflow, err := f.client.CashFlow(ctx, tsCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cash flow for %s: %w", code, err)
	}
	if len(cashflow) > 0 {
		if v, ok := cashflow[0].Float("n_cashflow_act"); ok {
			snapshot.OperatingCashFlow = v
		}
	}

	return snapshot, nil
}

// GetSnapshots fetches market-level data for every stock on one trade date.
// Only quote and valuation fields are populated; statement-derived fields
// require per-stock calls via GetSnapshot.
func (f *Fetcher) GetSnapshots(ctx context.Context, tradeDate string) ([]models.StockSnapshot, error) {
	daily, err := f.client.Daily(ctx, "", tradeDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes for %s: %w", tradeDate, err)
	}
	basic, err := f.client.DailyBasic(ctx, "", tradeDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch valuations for %s: %w", tradeDate, err)
	}

	basicByCode := make(map[string]Row, len(basic))
	for _, row := range basic {
		basicByCode[row.String("ts_code")] = row
	}

	snapshots := make([]models.StockSnapshot, 0, len(daily))
	for _, row := range daily {
		tsCode := row.String("ts_code")
		snapshot := models.StockSnapshot{
			Code:      common.FromTSCode(tsCode),
			DebtRatio: 1,
		}
		f.applyDaily(&snapshot, row)
		if basicRow, ok := basicByCode[tsCode]; ok {
			f.applyDailyBasic(&snapshot, basicRow)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// GetFinancials fetches and merges statement-level data for one stock.
func (f *Fetcher) GetFinancials(ctx context.Context, code string) (*models.FinancialStatementData, error) {
	tsCode, err := common.ToTSCode(code)
	if err != nil {
		return nil, err
	}

	financial := &models.FinancialStatementData{Code: code}

	indicators, err := f.client.FinaIndicator(ctx, tsCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch indicators for %s: %w", code, err)
	}
	if len(indicators) > 0 {
		row := indicators[0]
		financial.EPS = row.FloatOr("eps", 0)
		financial.BVPS = row.FloatOr("bps", 0)
		financial.ROE = percent(row.FloatOr("roe", 0))
		financial.ROA = percent(row.FloatOr("roa", 0))
		financial.NetMargin = percent(row.FloatOr("netprofit_margin", 0))
		financial.GrossMargin = percent(row.FloatOr("grossprofit_margin", 0))
		financial.DebtRatio = percent(row.FloatOr("debt_to_assets", 0))
		financial.CurrentRatio = row.FloatOr("current_ratio", 0)
		financial.QuickRatio = row.FloatOr("quick_ratio", 0)
		financial.NetProfitYoY = percent(row.FloatOr("netprofit_yoy", 0))
		financial.RevenueYoY = percent(row.FloatOr("or_yoy", 0))
		if d := parseTradeDate(row.String("end_date")); d != nil {
			financial.ReportDate = d
		}
	}

	income, err := f.client.Income(ctx, tsCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch income statement for %s: %w", code, err)
	}
	if len(income) > 0 {
		financial.TotalRevenue = income[0].FloatOr("total_revenue", 0)
		financial.NetProfit = income[0].FloatOr("n_income", 0)
	}

	balance, err := f.client.BalanceSheet(ctx, tsCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance sheet for %s: %w", code, err)
	}
	if len(balance) > 0 {
		row := balance[0]
		financial.TotalAssets = row.FloatOr("total_assets", 0)
		financial.TotalLiabilities = row.FloatOr("total_liab", 0)
		financial.NetAssets = financial.TotalAssets - financial.TotalLiabilities
		// Prefer the balance sheet ratio when the indicator endpoint had none.
		if financial.DebtRatio == 0 && financial.TotalAssets > 0 {
			financial.DebtRatio = financial.TotalLiabilities / financial.TotalAssets
		}
	}

	cashflow, err := f.client.CashFlow(ctx, tsCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cash flow for %s: %w", code, err)
	}
	if len(cashflow) > 0 {
		row := cashflow[0]
		financial.OperatingCashFlow = row.FloatOr("n_cashflow_act", 0)
		financial.InvestingCashFlow = row.FloatOr("n_cashflow_inv_act", 0)
		financial.FinancingCashFlow = row.FloatOr("n_cash_flows_fnc_act", 0)
	}

	return financial, nil
}

// GetIndustries fetches the level-1 industry classification and merges each
// index's latest quote and valuation rows.
func (f *Fetcher) GetIndustries(ctx context.Context) ([]models.IndustrySnapshot, error) {
	classify, err := f.client.IndexClassify(ctx, "L1")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch industry classification: %w", err)
	}

	industries := make([]models.IndustrySnapshot, 0, len(classify))
	for _, row := range classify {
		indexCode := row.String("index_code")
		industry := models.IndustrySnapshot{
			Code: common.FromTSCode(indexCode),
			Name: row.String("industry_name"),
		}

		quotes, err := f.client.IndexDaily(ctx, indexCode)
		if err != nil {
			if f.logger != nil {
				f.logger.Warn().Str("index", indexCode).Err(err).Msg("Skipping industry quotes")
			}
		} else if len(quotes) > 0 {
			industry.PriceChange = quotes[0].FloatOr("pct_chg", 0)
			industry.Volume = quotes[0].FloatOr("vol", 0) * volumeUnit
			industry.Turnover = quotes[0].FloatOr("amount", 0) * amountUnit
		}

		valuation, err := f.client.IndexDailyBasic(ctx, indexCode)
		if err != nil {
			if f.logger != nil {
				f.logger.Warn().Str("index", indexCode).Err(err).Msg("Skipping industry valuation")
			}
		} else if len(valuation) > 0 {
			industry.PERatio = valuation[0].FloatOr("pe", 0)
			industry.PBRatio = valuation[0].FloatOr("pb", 0)
		}

		industries = append(industries, industry)
	}
	return industries, nil
}

// applyDaily copies quote fields onto a snapshot and derives the day's
// amplitude from the high/low range against the previous close.
func (f *Fetcher) applyDaily(s *models.StockSnapshot, row Row) {
	s.CurrentPrice = row.FloatOr("close", 0)

	high, hasHigh := row.Float("high")
	low, hasLow := row.Float("low")
	preClose, hasPre := row.Float("pre_close")
	if hasHigh && hasLow && hasPre && preClose > 0 {
		s.Amplitude = (high - low) / preClose * 100
	}

	if d := parseTradeDate(row.String("trade_date")); d != nil {
		s.TradeDate = d
	}
}

// applyDailyBasic copies valuation fields, converting market caps from
// 10,000-yuan units to yuan.
func (f *Fetcher) applyDailyBasic(s *models.StockSnapshot, row Row) {
	s.PERatio = row.FloatOr("pe", 0)
	s.PBRatio = row.FloatOr("pb", 0)
	s.TotalMarketCap = row.FloatOr("total_mv", 0) * marketCapUnit
	s.CirculatingMarketCap = row.FloatOr("circ_mv", 0) * marketCapUnit
	s.TurnoverRate = row.FloatOr("turnover_rate", 0)
	if s.CurrentPrice == 0 {
		s.CurrentPrice = row.FloatOr("close", 0)
	}
}

// applyIndicators copies statement-derived ratios, converting Tushare's
// percent figures to fractions. The debt ratio keeps its conservative
// default of 1 when the endpoint omits it.
func (f *Fetcher) applyIndicators(s *models.StockSnapshot, row Row) {
	if v, ok := row.Float("roe"); ok {
		s.ROE = percent(v)
	}
	if v, ok := row.Float("netprofit_margin"); ok {
		s.NetMargin = percent(v)
	}
	if v, ok := row.Float("grossprofit_margin"); ok {
		s.GrossMargin = percent(v)
	}
	if v, ok := row.Float("debt_to_assets"); ok {
		s.DebtRatio = percent(v)
	}
	if v, ok := row.Float("netprofit_yoy"); ok {
		s.NetProfitYoY = percent(v)
	}
	s.CurrentRatio = row.FloatOr("current_ratio", 0)
	s.QuickRatio = row.FloatOr("quick_ratio", 0)
	s.EPS = row.FloatOr("eps", 0)
	s.BookValuePerShare = row.FloatOr("bps", 0)
}

// parseTradeDate parses Tushare's date strings. Most endpoints return
// YYYYMMDD, a few return YYYY-MM-DD.
func parseTradeDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
