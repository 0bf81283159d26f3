// Package analysis provides pure calculation functions for Graham-style
// value screening: eligibility filtering, intrinsic value estimation, safety
// margins, composite scoring, financial classification, risk profiling, and
// industry-level valuation summaries.
//
// All functions are stateless and perform no I/O. Every structure is built
// fresh per call; missing input fields degrade to neutral defaults rather
// than errors.
package analysis

import "time"

// Recommendation is the discrete investment recommendation tier.
type Recommendation string

const (
	RecommendationStrong     Recommendation = "strongly recommended"
	RecommendationBuy        Recommendation = "recommended"
	RecommendationConsider   Recommendation = "worth considering"
	RecommendationNotAdvised Recommendation = "not recommended"
)

// RiskTier is a coarse low/medium/high risk label.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Rating is an ordinal quality label used by the financial classifier.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

// GrowthRating is the ordinal growth label used by the financial classifier.
type GrowthRating string

const (
	GrowthHigh      GrowthRating = "high growth"
	GrowthStable    GrowthRating = "stable growth"
	GrowthLow       GrowthRating = "low growth"
	GrowthDeclining GrowthRating = "declining"
)

// MaxPillarScore is the cap applied to each of the four score pillars.
const MaxPillarScore = 25.0

// SafetyMarginUndefined is the sentinel safety margin returned when the
// intrinsic value is non-positive: price cannot be judged cheap or expensive
// against a non-positive value.
const SafetyMarginUndefined = -100.0

// ScoreBreakdown holds the four pillar sub-scores. Each pillar is capped at
// MaxPillarScore so the total is bounded to 100.
type ScoreBreakdown struct {
	FinancialHealth float64 `json:"financial_health"`
	Profitability   float64 `json:"profitability"`
	Valuation       float64 `json:"valuation"`
	SafetyMargin    float64 `json:"safety_margin"`
}

// Total returns the composite Graham score.
func (b ScoreBreakdown) Total() float64 {
	return b.FinancialHealth + b.Profitability + b.Valuation + b.SafetyMargin
}

// AnalysisResult is the full outcome of analyzing one stock snapshot.
//
// When PassFilter is false every analytical field carries its neutral
// default: zero intrinsic value, the safety margin sentinel, zero score,
// "not recommended", and "high" risk.
type AnalysisResult struct {
	StockCode      string         `json:"stock_code"`
	StockName      string         `json:"stock_name"`
	PassFilter     bool           `json:"pass_filter"`
	IntrinsicValue float64        `json:"intrinsic_value"`
	CurrentPrice   float64        `json:"current_price"`
	SafetyMargin   float64        `json:"safety_margin"`
	GrahamScore    float64        `json:"graham_score"`
	ScoreDetails   ScoreBreakdown `json:"score_details"`
	Recommendation Recommendation `json:"recommendation"`
	RiskLevel      RiskTier       `json:"risk_level"`
	AnalysisDate   time.Time      `json:"analysis_date"`
}

// RiskFactors holds the four independent risk sub-scores, each in [0,100].
type RiskFactors struct {
	ValuationRisk  float64 `json:"valuation_risk"`
	FinancialRisk  float64 `json:"financial_risk"`
	LiquidityRisk  float64 `json:"liquidity_risk"`
	VolatilityRisk float64 `json:"volatility_risk"`
}

// RiskProfile aggregates the four risk dimensions into an overall tier.
// This is computed independently of the Graham score: the engine-local risk
// level on AnalysisResult summarizes composite quality, while RiskProfile
// answers a multi-dimensional risk question. The two are not reconciled.
type RiskProfile struct {
	OverallRisk RiskTier    `json:"overall_risk"`
	RiskScore   float64     `json:"risk_score"`
	RiskFactors RiskFactors `json:"risk_factors"`
}
