package analysis

import "github.com/ternarybob/margin/internal/models"

// ProfitabilityAnalysis carries the profitability ratios with their rating.
type ProfitabilityAnalysis struct {
	ROE         float64 `json:"roe"`
	ROA         float64 `json:"roa"`
	NetMargin   float64 `json:"net_margin"`
	GrossMargin float64 `json:"gross_margin"`
	Rating      Rating  `json:"profitability_rating"`
}

// SolvencyAnalysis carries the solvency ratios with their rating.
type SolvencyAnalysis struct {
	CurrentRatio float64 `json:"current_ratio"`
	QuickRatio   float64 `json:"quick_ratio"`
	DebtRatio    float64 `json:"debt_ratio"`
	Rating       Rating  `json:"solvency_rating"`
}

// GrowthAnalysis carries the growth ratios with their rating.
type GrowthAnalysis struct {
	RevenueYoY   float64      `json:"revenue_yoy"`
	NetProfitYoY float64      `json:"net_profit_yoy"`
	Rating       GrowthRating `json:"growth_rating"`
}

// FinancialAssessment combines the three independent classifications.
type FinancialAssessment struct {
	Profitability ProfitabilityAnalysis `json:"profitability"`
	Solvency      SolvencyAnalysis      `json:"solvency"`
	Growth        GrowthAnalysis        `json:"growth"`
}

// FinancialClassifier rates profitability, solvency, and growth into ordinal
// categories via descending threshold ladders. The three classifications are
// independent of each other.
type FinancialClassifier struct{}

// NewFinancialClassifier creates a new financial classifier.
func NewFinancialClassifier() *FinancialClassifier {
	return &FinancialClassifier{}
}

// ClassifyProfitability rates earning power from ROE and net margin.
func (c *FinancialClassifier) ClassifyProfitability(f models.FinancialStatementData) ProfitabilityAnalysis {
	result := ProfitabilityAnalysis{
		ROE:         f.ROE,
		ROA:         f.ROA,
		NetMargin:   f.NetMargin,
		GrossMargin: f.GrossMargin,
	}

	switch {
	case f.ROE >= 0.15 && f.NetMargin >= 0.10:
		result.Rating = RatingExcellent
	case f.ROE >= 0.10 && f.NetMargin >= 0.05:
		result.Rating = RatingGood
	case f.ROE >= 0.05:
		result.Rating = RatingFair
	default:
		result.Rating = RatingPoor
	}

	return result
}

// ClassifySolvency rates balance sheet strength from liquidity and leverage.
func (c *FinancialClassifier) ClassifySolvency(f models.FinancialStatementData) SolvencyAnalysis {
	result := SolvencyAnalysis{
		CurrentRatio: f.CurrentRatio,
		QuickRatio:   f.QuickRatio,
		DebtRatio:    f.DebtRatio,
	}

	switch {
	case f.CurrentRatio >= 2 && f.DebtRatio <= 0.4:
		result.Rating = RatingExcellent
	case f.CurrentRatio >= 1.5 && f.DebtRatio <= 0.6:
		result.Rating = RatingGood
	case f.CurrentRatio >= 1:
		result.Rating = RatingFair
	default:
		result.Rating = RatingPoor
	}

	return result
}

// ClassifyGrowth rates expansion from revenue and profit growth.
func (c *FinancialClassifier) ClassifyGrowth(f models.FinancialStatementData) GrowthAnalysis {
	result := GrowthAnalysis{
		RevenueYoY:   f.RevenueYoY,
		NetProfitYoY: f.NetProfitYoY,
	}

	switch {
	case f.RevenueYoY >= 0.20 && f.NetProfitYoY >= 0.20:
		result.Rating = GrowthHigh
	case f.RevenueYoY >= 0.10 && f.NetProfitYoY >= 0.10:
		result.Rating = GrowthStable
	case f.RevenueYoY >= 0:
		result.Rating = GrowthLow
	default:
		result.Rating = GrowthDeclining
	}

	return result
}

// Classify returns all three classifications for one statement period.
func (c *FinancialClassifier) Classify(f models.FinancialStatementData) FinancialAssessment {
	return FinancialAssessment{
		Profitability: c.ClassifyProfitability(f),
		Solvency:      c.ClassifySolvency(f),
		Growth:        c.ClassifyGrowth(f),
	}
}
