package analysis

import (
	"math"
	"testing"

	"github.com/ternarybob/margin/internal/models"
)

// eligibleSnapshot returns a snapshot that clears every filter condition.
func eligibleSnapshot() models.StockSnapshot {
	return models.StockSnapshot{
		Code:           "600036",
		Name:           "test stock",
		CurrentPrice:   30,
		PERatio:        12,
		PBRatio:        1.5,
		TotalMarketCap: 1e9,
		ROE:            0.15,
		DebtRatio:      0.40,
		CurrentRatio:   2.0,
		QuickRatio:     1.0,
		NetMargin:      0.12,
		GrossMargin:    0.35,
		EPS:            2.0,
		NetProfitYoY:   0.10,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGrahamAnalyzer_PassesFilter(t *testing.T) {
	analyzer := NewGrahamAnalyzer(DefaultGrahamConfig(), nil)

	t.Run("all conditions met", func(t *testing.T) {
		if !analyzer.PassesFilter(eligibleSnapshot()) {
			t.Error("Expected eligible snapshot to pass the filter")
		}
	})

	failCases := []struct {
		name   string
		mutate func(*models.StockSnapshot)
	}{
		{"market cap below floor", func(s *models.StockSnapshot) { s.TotalMarketCap = 4e8 }},
		{"zero PE", func(s *models.StockSnapshot) { s.PERatio = 0 }},
		{"negative PE", func(s *models.StockSnapshot) { s.PERatio = -5 }},
		{"PE above ceiling", func(s *models.StockSnapshot) { s.PERatio = 26 }},
		{"zero PB", func(s *models.StockSnapshot) { s.PBRatio = 0 }},
		{"PB above ceiling", func(s *models.StockSnapshot) { s.PBRatio = 3.5 }},
		{"ROE below floor", func(s *models.StockSnapshot) { s.ROE = 0.09 }},
		{"debt ratio above ceiling", func(s *models.StockSnapshot) { s.DebtRatio = 0.61 }},
		{"negative debt ratio", func(s *models.StockSnapshot) { s.DebtRatio = -0.1 }},
		{"absent debt ratio defaults high", func(s *models.StockSnapshot) { s.DebtRatio = 1 }},
		{"zero EPS", func(s *models.StockSnapshot) { s.EPS = 0 }},
		{"negative EPS", func(s *models.StockSnapshot) { s.EPS = -1 }},
	}

	for _, tc := range failCases {
		t.Run(tc.name, func(t *testing.T) {
			s := eligibleSnapshot()
			tc.mutate(&s)
			if analyzer.PassesFilter(s) {
				t.Errorf("Expected snapshot to fail the filter: %s", tc.name)
			}
		})
	}

	t.Run("boundary values pass", func(t *testing.T) {
		s := eligibleSnapshot()
		s.TotalMarketCap = 5e8
		s.PERatio = 25
		s.PBRatio = 3
		s.ROE = 0.10
		s.DebtRatio = 0.60
		if !analyzer.PassesFilter(s) {
			t.Error("Expected boundary snapshot to pass the filter")
		}
	})
}

func TestGrahamAnalyzer_IntrinsicValue(t *testing.T) {
	analyzer := NewGrahamAnalyzer(DefaultGrahamConfig(), nil)

	t.Run("simplified formula", func(t *testing.T) {
		// eps=2, g=10% -> (2*(8.5+20))*4.4/0.044 = 5700
		got := analyzer.IntrinsicValue(2.0, 0.10, ModelSimplified)
		if !almostEqual(got, 5700) {
			t.Errorf("Expected 5700, got %v", got)
		}
	})

	t.Run("simplified zero on non-positive eps", func(t *testing.T) {
		if got := analyzer.IntrinsicValue(0, 0.10, ModelSimplified); got != 0 {
			t.Errorf("Expected 0 for zero eps, got %v", got)
		}
		if got := analyzer.IntrinsicValue(-1.5, 0.10, ModelSimplified); got != 0 {
			t.Errorf("Expected 0 for negative eps, got %v", got)
		}
	})

	t.Run("simplified floors negative results at zero", func(t *testing.T) {
		// g = -500% drives the multiplier negative.
		if got := analyzer.IntrinsicValue(2.0, -5.0, ModelSimplified); got != 0 {
			t.Errorf("Expected 0 floor, got %v", got)
		}
	})

	t.Run("asset based applies premium without floor", func(t *testing.T) {
		if got := analyzer.IntrinsicValue(10, 0, ModelAssetBased); !almostEqual(got, 12) {
			t.Errorf("Expected 12, got %v", got)
		}
		// Negative book value passes through scaled.
		if got := analyzer.IntrinsicValue(-5, 0, ModelAssetBased); !almostEqual(got, -6) {
			t.Errorf("Expected -6, got %v", got)
		}
	})

	t.Run("earnings based", func(t *testing.T) {
		// PE = 15 + 10 = 25, value = 2 * 25 = 50
		if got := analyzer.IntrinsicValue(2.0, 0.10, ModelEarningsBased); !almostEqual(got, 50) {
			t.Errorf("Expected 50, got %v", got)
		}
		if got := analyzer.IntrinsicValue(-2.0, 0.10, ModelEarningsBased); got != 0 {
			t.Errorf("Expected 0 for negative eps, got %v", got)
		}
	})

	t.Run("unknown model falls back to simplified", func(t *testing.T) {
		want := analyzer.IntrinsicValue(2.0, 0.10, ModelSimplified)
		if got := analyzer.IntrinsicValue(2.0, 0.10, "bogus"); !almostEqual(got, want) {
			t.Errorf("Expected fallback to simplified (%v), got %v", want, got)
		}
	})
}

func TestGrahamAnalyzer_SafetyMargin(t *testing.T) {
	analyzer := NewGrahamAnalyzer(DefaultGrahamConfig(), nil)

	t.Run("discount below intrinsic value", func(t *testing.T) {
		got := analyzer.SafetyMargin(5700, 3000)
		want := (5700.0 - 3000.0) / 5700.0 * 100
		if !almostEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("negative when price above value", func(t *testing.T) {
		if got := analyzer.SafetyMargin(100, 150); !almostEqual(got, -50) {
			t.Errorf("Expected -50, got %v", got)
		}
	})

	t.Run("sentinel on non-positive intrinsic value", func(t *testing.T) {
		if got := analyzer.SafetyMargin(0, 100); got != SafetyMarginUndefined {
			t.Errorf("Expected sentinel %v, got %v", SafetyMarginUndefined, got)
		}
		if got := analyzer.SafetyMargin(-10, 100); got != SafetyMarginUndefined {
			t.Errorf("Expected sentinel %v, got %v", SafetyMarginUndefined, got)
		}
	})

	t.Run("strictly decreasing in price", func(t *testing.T) {
		prev := analyzer.SafetyMargin(100, 10)
		for _, price := range []float64{20, 50, 90, 120, 200} {
			m := analyzer.SafetyMargin(100, price)
			if m >= prev {
				t.Errorf("Margin not decreasing: price=%v margin=%v prev=%v", price, m, prev)
			}
			prev = m
		}
	})
}

func TestGrahamAnalyzer_Score(t *testing.T) {
	analyzer := NewGrahamAnalyzer(DefaultGrahamConfig(), nil)

	t.Run("financial health reaches the cap", func(t *testing.T) {
		s := models.StockSnapshot{
			CurrentRatio:      2.5,
			QuickRatio:        1.2,
			DebtRatio:         0.25,
			OperatingCashFlow: 150,
			NetProfit:         100,
		}
		_, breakdown := analyzer.Score(s, SafetyMarginUndefined)
		if breakdown.FinancialHealth != MaxPillarScore {
			t.Errorf("Expected financial health %v, got %v", MaxPillarScore, breakdown.FinancialHealth)
		}
	})

	t.Run("cash flow quality requires positive profit", func(t *testing.T) {
		withProfit := models.StockSnapshot{OperatingCashFlow: 150, NetProfit: 100, DebtRatio: 0.9}
		withoutProfit := models.StockSnapshot{OperatingCashFlow: 150, NetProfit: -100, DebtRatio: 0.9}
		_, a1 := analyzer.Score(withProfit, SafetyMarginUndefined)
		_, a2 := analyzer.Score(withoutProfit, SafetyMarginUndefined)
		if a2.FinancialHealth >= a1.FinancialHealth {
			t.Errorf("Expected negative profit to lose cash flow points: %v vs %v", a2.FinancialHealth, a1.FinancialHealth)
		}
	})

	t.Run("profitability growth gated on positive growth", func(t *testing.T) {
		growing := models.StockSnapshot{ROE: 0.25, NetMargin: 0.20, GrossMargin: 0.45, NetProfitYoY: 0.25}
		flat := growing
		flat.NetProfitYoY = 0
		_, b1 := analyzer.Score(growing, SafetyMarginUndefined)
		_, b2 := analyzer.Score(flat, SafetyMarginUndefined)
		if b1.Profitability != MaxPillarScore {
			t.Errorf("Expected profitability cap %v, got %v", MaxPillarScore, b1.Profitability)
		}
		if b2.Profitability != 21 {
			t.Errorf("Expected 21 without growth points, got %v", b2.Profitability)
		}
	})

	t.Run("valuation awards PE PB and PEG", func(t *testing.T) {
		s := models.StockSnapshot{PERatio: 8, PBRatio: 0.9, EPS: 2, NetProfitYoY: 0.20}
		_, breakdown := analyzer.Score(s, SafetyMarginUndefined)
		// PE 8 -> 8 points, PB 0.9 -> 8 points, PEG 8/20=0.4 -> 9 points, capped at 25.
		if breakdown.Valuation != MaxPillarScore {
			t.Errorf("Expected valuation cap %v, got %v", MaxPillarScore, breakdown.Valuation)
		}
	})

	t.Run("valuation skips non-positive multiples", func(t *testing.T) {
		s := models.StockSnapshot{PERatio: -3, PBRatio: 0}
		_, breakdown := analyzer.Score(s, SafetyMarginUndefined)
		if breakdown.Valuation != 0 {
			t.Errorf("Expected 0 valuation, got %v", breakdown.Valuation)
		}
	})

	t.Run("safety margin ladder", func(t *testing.T) {
		cases := []struct {
			margin float64
			want   float64
		}{
			{55, 25},
			{45, 20},
			{35, 15},
			{25, 10},
			{15, 5},
			{5, 0},
			{SafetyMarginUndefined, 0},
		}
		for _, tc := range cases {
			_, breakdown := analyzer.Score(models.StockSnapshot{}, tc.margin)
			if breakdown.SafetyMargin != tc.want {
				t.Errorf("margin %v: expected %v points, got %v", tc.margin, tc.want, breakdown.SafetyMargin)
			}
		}
	})

	t.Run("total never exceeds 100", func(t *testing.T) {
		s := eligibleSnapshot()
		s.ROE = 0.30
		s.NetMargin = 0.25
		s.GrossMargin = 0.50
		s.CurrentRatio = 3
		s.QuickRatio = 2
		s.DebtRatio = 0.1
		s.OperatingCashFlow = 200
		s.NetProfit = 100
		s.PERatio = 5
		s.PBRatio = 0.8
		s.NetProfitYoY = 0.30
		total, _ := analyzer.Score(s, 60)
		if total > 100 {
			t.Errorf("Total score exceeds 100: %v", total)
		}
	})
}

func TestGrahamAnalyzer_Recommendation(t *testing.T) {
	analyzer := NewGrahamAnalyzer(DefaultGrahamConfig(), nil)

	cases := []struct {
		name   string
		score  float64
		margin float64
		want   Recommendation
	}{
		{"strong", 92, 35, RecommendationStrong},
		{"high score but margin blocks strong", 90, 25, RecommendationBuy},
		{"buy", 80, 22, RecommendationBuy},
		{"consider", 65, 12, RecommendationConsider},
		{"score too low", 55, 60, RecommendationNotAdvised},
		{"margin too low", 95, 5, RecommendationNotAdvised},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := analyzer.Recommendation(tc.score, tc.margin)
			if got != tc.want {
				t.Errorf("score=%v margin=%v: expected %q, got %q", tc.score, tc.margin, tc.want, got)
			}
		})
	}
}

func TestGrahamAnalyzer_Analyze(t *testing.T) {
	analyzer := NewGrahamAnalyzer(DefaultGrahamConfig(), nil)

	t.Run("ineligible snapshot returns neutral result", func(t *testing.T) {
		s := eligibleSnapshot()
		s.EPS = -1
		result := analyzer.Analyze(s)

		if result.PassFilter {
			t.Error("Expected PassFilter false")
		}
		if result.IntrinsicValue != 0 {
			t.Errorf("Expected zero intrinsic value, got %v", result.IntrinsicValue)
		}
		if result.SafetyMargin != SafetyMarginUndefined {
			t.Errorf("Expected margin sentinel, got %v", result.SafetyMargin)
		}
		if result.GrahamScore != 0 {
			t.Errorf("Expected zero score, got %v", result.GrahamScore)
		}
		if result.Recommendation != RecommendationNotAdvised {
			t.Errorf("Expected %q, got %q", RecommendationNotAdvised, result.Recommendation)
		}
		if result.RiskLevel != RiskHigh {
			t.Errorf("Expected high risk, got %q", result.RiskLevel)
		}
	})

	t.Run("eligible snapshot produces full result", func(t *testing.T) {
		s := eligibleSnapshot()
		result := analyzer.Analyze(s)

		if !result.PassFilter {
			t.Fatal("Expected PassFilter true")
		}
		if result.StockCode != s.Code || result.StockName != s.Name {
			t.Errorf("Identity fields not carried: %v %v", result.StockCode, result.StockName)
		}
		if !almostEqual(result.IntrinsicValue, 5700) {
			t.Errorf("Expected intrinsic value 5700, got %v", result.IntrinsicValue)
		}
		wantMargin := (5700.0 - 30.0) / 5700.0 * 100
		if !almostEqual(result.SafetyMargin, wantMargin) {
			t.Errorf("Expected margin %v, got %v", wantMargin, result.SafetyMargin)
		}
		if total := result.ScoreDetails.Total(); !almostEqual(total, result.GrahamScore) {
			t.Errorf("Breakdown total %v does not match score %v", total, result.GrahamScore)
		}
		if result.AnalysisDate.IsZero() {
			t.Error("Expected analysis date to be set")
		}
	})

	t.Run("growth fallback applies when snapshot has none", func(t *testing.T) {
		s := eligibleSnapshot()
		s.NetProfitYoY = 0
		result := analyzer.Analyze(s)

		// eps=2, fallback g=5% -> (2*(8.5+10))*4.4/0.044 = 3700
		if !almostEqual(result.IntrinsicValue, 3700) {
			t.Errorf("Expected intrinsic value 3700 with fallback growth, got %v", result.IntrinsicValue)
		}
	})

	t.Run("risk tier follows composite score", func(t *testing.T) {
		if got := riskFromScore(80); got != RiskLow {
			t.Errorf("Expected low, got %q", got)
		}
		if got := riskFromScore(65); got != RiskMedium {
			t.Errorf("Expected medium, got %q", got)
		}
		if got := riskFromScore(40); got != RiskHigh {
			t.Errorf("Expected high, got %q", got)
		}
	})
}

func TestGrahamConfig_Validate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		if err := DefaultGrahamConfig().Validate(); err != nil {
			t.Errorf("Expected default config to validate, got %v", err)
		}
	})

	invalid := []struct {
		name   string
		mutate func(*GrahamConfig)
	}{
		{"zero bond yield", func(c *GrahamConfig) { c.AAABondYield = 0 }},
		{"negative market cap floor", func(c *GrahamConfig) { c.MinMarketCap = -1 }},
		{"zero PE ceiling", func(c *GrahamConfig) { c.MaxPERatio = 0 }},
		{"debt ratio above one", func(c *GrahamConfig) { c.MaxDebtRatio = 1.5 }},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultGrahamConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tc.name)
			}
		})
	}
}
