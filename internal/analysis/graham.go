package analysis

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/margin/internal/models"
)

// Valuation model names accepted by IntrinsicValue.
const (
	ModelSimplified    = "simplified"
	ModelAssetBased    = "asset_based"
	ModelEarningsBased = "earnings_based"
)

// GrahamConfig holds the tunable parameters of the valuation engine. It is
// loaded once at startup and treated as immutable for the process lifetime;
// concurrent readers never race.
type GrahamConfig struct {
	MinMarketCap      float64 `toml:"min_market_cap"`      // eligibility floor on total market cap (yuan)
	MaxPERatio        float64 `toml:"max_pe_ratio"`        // eligibility ceiling on PE
	MaxPBRatio        float64 `toml:"max_pb_ratio"`        // eligibility ceiling on PB
	MinROE            float64 `toml:"min_roe"`             // eligibility floor on ROE (fraction)
	MaxDebtRatio      float64 `toml:"max_debt_ratio"`      // eligibility ceiling on debt ratio (fraction)
	AAABondYield      float64 `toml:"aaa_bond_yield"`      // reference AAA corporate bond yield (fraction)
	DefaultGrowthRate float64 `toml:"default_growth_rate"` // growth fallback when the snapshot has none
	ValuationModel    string  `toml:"valuation_model"`     // simplified, asset_based, or earnings_based
}

// DefaultGrahamConfig returns the documented default thresholds.
func DefaultGrahamConfig() GrahamConfig {
	return GrahamConfig{
		MinMarketCap:      5e8,
		MaxPERatio:        25,
		MaxPBRatio:        3,
		MinROE:            0.10,
		MaxDebtRatio:      0.60,
		AAABondYield:      0.044,
		DefaultGrowthRate: 0.05,
		ValuationModel:    ModelSimplified,
	}
}

// Validate reports configuration errors. These are startup-time fatal for
// the surrounding service; the engine itself never fails per request.
func (c GrahamConfig) Validate() error {
	if c.AAABondYield <= 0 {
		return fmt.Errorf("graham: aaa_bond_yield must be positive, got %v", c.AAABondYield)
	}
	if c.MinMarketCap < 0 {
		return fmt.Errorf("graham: min_market_cap must not be negative, got %v", c.MinMarketCap)
	}
	if c.MaxPERatio <= 0 || c.MaxPBRatio <= 0 {
		return fmt.Errorf("graham: max_pe_ratio and max_pb_ratio must be positive")
	}
	if c.MaxDebtRatio < 0 || c.MaxDebtRatio > 1 {
		return fmt.Errorf("graham: max_debt_ratio must be within [0,1], got %v", c.MaxDebtRatio)
	}
	return nil
}

// GrahamAnalyzer is the valuation and scoring engine. It holds only
// read-only configuration and is safe for concurrent use.
type GrahamAnalyzer struct {
	cfg    GrahamConfig
	logger arbor.ILogger
}

// NewGrahamAnalyzer creates an analyzer with the given configuration.
func NewGrahamAnalyzer(cfg GrahamConfig, logger arbor.ILogger) *GrahamAnalyzer {
	return &GrahamAnalyzer{
		cfg:    cfg,
		logger: logger,
	}
}

// PassesFilter applies the conjunctive eligibility pre-screen. All six
// conditions must hold; missing fields default to values that fail.
func (a *GrahamAnalyzer) PassesFilter(s models.StockSnapshot) bool {
	checks := []bool{
		s.TotalMarketCap >= a.cfg.MinMarketCap,
		s.PERatio > 0 && s.PERatio <= a.cfg.MaxPERatio,
		s.PBRatio > 0 && s.PBRatio <= a.cfg.MaxPBRatio,
		s.ROE >= a.cfg.MinROE,
		s.DebtRatio >= 0 && s.DebtRatio <= a.cfg.MaxDebtRatio,
		s.EPS > 0, // must be profitable
	}

	for _, ok := range checks {
		if !ok {
			return false
		}
	}
	return true
}

// IntrinsicValue estimates fair value per share under the named model.
// Unknown model names fall back to the simplified Graham formula.
//
// For the asset_based model the first argument is interpreted as book value
// per share and the flat 1.2 multiplier is applied without a floor, so
// non-positive book values pass through scaled.
func (a *GrahamAnalyzer) IntrinsicValue(eps, growthRate float64, model string) float64 {
	switch model {
	case ModelAssetBased:
		return a.assetBasedValue(eps)
	case ModelEarningsBased:
		return a.earningsBasedValue(eps, growthRate)
	default:
		return a.simplifiedGrahamValue(eps, growthRate)
	}
}

// simplifiedGrahamValue implements value = eps * (8.5 + 2g) * 4.4 / Y where
// g is the growth rate in percent and Y the reference AAA bond yield.
func (a *GrahamAnalyzer) simplifiedGrahamValue(eps, growthRate float64) float64 {
	if eps <= 0 {
		return 0
	}

	g := growthRate * 100
	value := eps * (8.5 + 2*g) * 4.4 / a.cfg.AAABondYield

	if value < 0 {
		return 0
	}
	return value
}

// assetBasedValue values asset-heavy companies at a 20% premium over book.
func (a *GrahamAnalyzer) assetBasedValue(bvps float64) float64 {
	return bvps * 1.2
}

// earningsBasedValue derives a reasonable PE from the growth rate and
// applies it to earnings.
func (a *GrahamAnalyzer) earningsBasedValue(eps, growthRate float64) float64 {
	if eps <= 0 {
		return 0
	}

	reasonablePE := 15 + growthRate*100
	return eps * reasonablePE
}

// SafetyMargin returns the percentage discount of price below intrinsic
// value. A non-positive intrinsic value yields SafetyMarginUndefined.
func (a *GrahamAnalyzer) SafetyMargin(intrinsicValue, currentPrice float64) float64 {
	if intrinsicValue <= 0 {
		return SafetyMarginUndefined
	}
	return (intrinsicValue - currentPrice) / intrinsicValue * 100
}

// Score computes the four pillar sub-scores and the composite Graham score.
// Each pillar is independently capped at MaxPillarScore.
func (a *GrahamAnalyzer) Score(s models.StockSnapshot, safetyMargin float64) (float64, ScoreBreakdown) {
	breakdown := ScoreBreakdown{
		FinancialHealth: a.scoreFinancialHealth(s),
		Profitability:   a.scoreProfitability(s),
		Valuation:       a.scoreValuation(s),
		SafetyMargin:    safetyMarginBands.score(safetyMargin),
	}
	return breakdown.Total(), breakdown
}

func (a *GrahamAnalyzer) scoreFinancialHealth(s models.StockSnapshot) float64 {
	score := currentRatioBands.score(s.CurrentRatio)
	score += quickRatioBands.score(s.QuickRatio)
	score += debtRatioBands.score(s.DebtRatio)

	// Operating cash flow quality requires both figures positive.
	if s.OperatingCashFlow > 0 && s.NetProfit > 0 {
		score += cashFlowRatioBands.score(s.OperatingCashFlow / s.NetProfit)
	}

	score += interestCoverBands.scoreBelow(s.DebtRatio)

	return capScore(score)
}

func (a *GrahamAnalyzer) scoreProfitability(s models.StockSnapshot) float64 {
	score := roeBands.score(s.ROE)
	score += netMarginBands.score(s.NetMargin)
	score += grossMarginBands.score(s.GrossMargin)

	if s.NetProfitYoY > 0 {
		score += profitGrowthBands.score(s.NetProfitYoY)
	}

	return capScore(score)
}

func (a *GrahamAnalyzer) scoreValuation(s models.StockSnapshot) float64 {
	var score float64

	if s.PERatio > 0 {
		score += peBands.score(s.PERatio)
	}
	if s.PBRatio > 0 {
		score += pbBands.score(s.PBRatio)
	}

	// PEG is only meaningful for profitable companies with positive growth.
	if s.EPS > 0 && s.NetProfitYoY > 0 && s.PERatio > 0 {
		peg := s.PERatio / (s.NetProfitYoY * 100)
		score += pegBands.score(peg)
	}

	return capScore(score)
}

func capScore(score float64) float64 {
	if score > MaxPillarScore {
		return MaxPillarScore
	}
	return score
}

// Recommendation maps a composite score and safety margin to the discrete
// recommendation tier. The table is evaluated top-down, first match wins.
func (a *GrahamAnalyzer) Recommendation(totalScore, safetyMargin float64) Recommendation {
	switch {
	case totalScore >= 90 && safetyMargin >= 30:
		return RecommendationStrong
	case totalScore >= 75 && safetyMargin >= 20:
		return RecommendationBuy
	case totalScore >= 60 && safetyMargin >= 10:
		return RecommendationConsider
	default:
		return RecommendationNotAdvised
	}
}

// riskFromScore derives the engine-local risk tier from the composite score.
// This is distinct from RiskProfiler's multi-dimensional assessment.
func riskFromScore(totalScore float64) RiskTier {
	switch {
	case totalScore >= 75:
		return RiskLow
	case totalScore >= 60:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Analyze runs the full pipeline for one snapshot: eligibility filter,
// intrinsic value, safety margin, composite score, recommendation, and risk
// tier. Ineligible stocks return immediately with the neutral result; no
// valuation or scoring is performed for them.
func (a *GrahamAnalyzer) Analyze(s models.StockSnapshot) AnalysisResult {
	result := AnalysisResult{
		StockCode:      s.Code,
		StockName:      s.Name,
		PassFilter:     false,
		IntrinsicValue: 0,
		CurrentPrice:   s.CurrentPrice,
		SafetyMargin:   SafetyMarginUndefined,
		GrahamScore:    0,
		Recommendation: RecommendationNotAdvised,
		RiskLevel:      RiskHigh,
		AnalysisDate:   time.Now(),
	}

	if !a.PassesFilter(s) {
		if a.logger != nil {
			a.logger.Debug().Str("code", s.Code).Msg("stock failed eligibility filter")
		}
		return result
	}
	result.PassFilter = true

	growthRate := s.NetProfitYoY
	if growthRate == 0 {
		growthRate = a.cfg.DefaultGrowthRate
	}

	perShare := s.EPS
	if a.cfg.ValuationModel == ModelAssetBased {
		perShare = s.BookValuePerShare
	}
	result.IntrinsicValue = a.IntrinsicValue(perShare, growthRate, a.cfg.ValuationModel)
	result.SafetyMargin = a.SafetyMargin(result.IntrinsicValue, s.CurrentPrice)

	total, breakdown := a.Score(s, result.SafetyMargin)
	result.GrahamScore = total
	result.ScoreDetails = breakdown

	result.Recommendation = a.Recommendation(total, result.SafetyMargin)
	result.RiskLevel = riskFromScore(total)

	return result
}
