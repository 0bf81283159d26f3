package models

// IndustrySnapshot is a single-day aggregate view of one industry index.
type IndustrySnapshot struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	PERatio     float64 `json:"pe_ratio"`
	PBRatio     float64 `json:"pb_ratio"`
	PriceChange float64 `json:"price_change"` // day change in percent
	Volume      float64 `json:"volume"`
	Turnover    float64 `json:"turnover"` // traded value in yuan
	StockCount  int     `json:"stock_count"`
}
