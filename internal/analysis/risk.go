package analysis

import "github.com/ternarybob/margin/internal/models"

// Overall risk tier thresholds on the mean of the four sub-scores.
const (
	riskTierLowMax    = 30
	riskTierMediumMax = 60
)

// RiskProfiler scores four independent risk dimensions and aggregates them
// into an overall tier. Each sub-score is additive, clamped to [0,100], and
// monotone non-decreasing in the badness of its inputs.
type RiskProfiler struct{}

// NewRiskProfiler creates a new risk profiler.
func NewRiskProfiler() *RiskProfiler {
	return &RiskProfiler{}
}

// Assess computes the full risk profile for one stock. When statement data
// is available it drives the financial risk dimension; otherwise the
// snapshot's own ratios are used.
func (p *RiskProfiler) Assess(s models.StockSnapshot, f *models.FinancialStatementData) RiskProfile {
	debtRatio, currentRatio, roe := s.DebtRatio, s.CurrentRatio, s.ROE
	if f != nil {
		debtRatio, currentRatio, roe = f.DebtRatio, f.CurrentRatio, f.ROE
	}

	factors := RiskFactors{
		ValuationRisk:  p.valuationRisk(s.PERatio, s.PBRatio),
		FinancialRisk:  p.financialRisk(debtRatio, currentRatio, roe),
		LiquidityRisk:  p.liquidityRisk(s.TurnoverRate, s.CirculatingMarketCap),
		VolatilityRisk: p.volatilityRisk(s.Amplitude),
	}

	mean := (factors.ValuationRisk + factors.FinancialRisk + factors.LiquidityRisk + factors.VolatilityRisk) / 4

	return RiskProfile{
		OverallRisk: riskTierFromScore(mean),
		RiskScore:   mean,
		RiskFactors: factors,
	}
}

func riskTierFromScore(score float64) RiskTier {
	switch {
	case score <= riskTierLowMax:
		return RiskLow
	case score <= riskTierMediumMax:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// valuationRisk grows with PE and PB multiples. The two contributions add.
func (p *RiskProfiler) valuationRisk(pe, pb float64) float64 {
	var score float64

	switch {
	case pe > 50:
		score += 50
	case pe > 30:
		score += 30
	case pe > 20:
		score += 15
	}

	switch {
	case pb > 5:
		score += 50
	case pb > 3:
		score += 30
	case pb > 2:
		score += 15
	}

	return clampRisk(score)
}

// financialRisk grows with leverage, thin liquidity, and weak returns.
func (p *RiskProfiler) financialRisk(debtRatio, currentRatio, roe float64) float64 {
	var score float64

	switch {
	case debtRatio > 0.7:
		score += 40
	case debtRatio > 0.6:
		score += 25
	}

	switch {
	case currentRatio < 1:
		score += 30
	case currentRatio < 1.5:
		score += 15
	}

	switch {
	case roe < 0:
		score += 30
	case roe < 0.05:
		score += 20
	}

	return clampRisk(score)
}

// liquidityRisk grows as turnover and free float shrink.
func (p *RiskProfiler) liquidityRisk(turnoverRate, circulatingMarketCap float64) float64 {
	var score float64

	switch {
	case turnoverRate < 0.5:
		score += 30
	case turnoverRate < 1:
		score += 15
	}

	switch {
	case circulatingMarketCap < 1e9:
		score += 40
	case circulatingMarketCap < 5e9:
		score += 20
	}

	return clampRisk(score)
}

// volatilityRisk grows with the daily amplitude percentage.
func (p *RiskProfiler) volatilityRisk(amplitude float64) float64 {
	var score float64

	switch {
	case amplitude > 10:
		score += 60
	case amplitude > 5:
		score += 30
	case amplitude > 3:
		score += 15
	}

	return clampRisk(score)
}

func clampRisk(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
