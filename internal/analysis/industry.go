package analysis

import (
	"sort"

	"github.com/ternarybob/margin/internal/models"
)

// Hot-industry score weights: price momentum vs traded value.
const (
	hotScoreChangeWeight   = 0.6
	hotScoreTurnoverWeight = 0.4
	hotScoreTurnoverScale  = 1e10
)

// Valuation band multipliers around the peer-average PE.
const (
	undervaluedBandFactor = 0.8
	overvaluedBandFactor  = 1.2
)

const valuationBandLimit = 10

// Sortable industry field names accepted by Rank.
const (
	IndustryFieldPriceChange = "price_change"
	IndustryFieldTurnover    = "turnover"
	IndustryFieldPERatio     = "pe_ratio"
)

// IndustryValuation summarizes the cross-industry valuation picture. The
// undervalued and overvalued lists keep input order and are limited to the
// first ten matches each.
type IndustryValuation struct {
	AveragePE   float64                   `json:"average_pe"`
	AveragePB   float64                   `json:"average_pb"`
	Undervalued []models.IndustrySnapshot `json:"undervalued"`
	Overvalued  []models.IndustrySnapshot `json:"overvalued"`
}

// HotIndustry pairs an industry with its momentum score.
type HotIndustry struct {
	models.IndustrySnapshot
	HotScore float64 `json:"hot_score"`
}

// IndustryAnalyzer computes industry-level valuation bands and rankings.
type IndustryAnalyzer struct{}

// NewIndustryAnalyzer creates a new industry analyzer.
func NewIndustryAnalyzer() *IndustryAnalyzer {
	return &IndustryAnalyzer{}
}

// Valuation averages PE and PB over industries with positive PE and flags
// industries trading well below or above that average. Industries without a
// positive PE contribute to neither the averages nor the bands.
func (a *IndustryAnalyzer) Valuation(industries []models.IndustrySnapshot) IndustryValuation {
	var sumPE, sumPB float64
	var count int
	for _, ind := range industries {
		if ind.PERatio > 0 {
			sumPE += ind.PERatio
			sumPB += ind.PBRatio
			count++
		}
	}

	result := IndustryValuation{
		Undervalued: []models.IndustrySnapshot{},
		Overvalued:  []models.IndustrySnapshot{},
	}
	if count == 0 {
		return result
	}

	result.AveragePE = sumPE / float64(count)
	result.AveragePB = sumPB / float64(count)

	lower := result.AveragePE * undervaluedBandFactor
	upper := result.AveragePE * overvaluedBandFactor

	for _, ind := range industries {
		if ind.PERatio <= 0 {
			continue
		}
		if ind.PERatio < lower && len(result.Undervalued) < valuationBandLimit {
			result.Undervalued = append(result.Undervalued, ind)
		}
		if ind.PERatio > upper && len(result.Overvalued) < valuationBandLimit {
			result.Overvalued = append(result.Overvalued, ind)
		}
	}

	return result
}

// Rank returns the industries sorted descending by the named field. Unknown
// field names leave the input order unchanged. The input slice is not
// modified.
func (a *IndustryAnalyzer) Rank(industries []models.IndustrySnapshot, field string) []models.IndustrySnapshot {
	ranked := make([]models.IndustrySnapshot, len(industries))
	copy(ranked, industries)

	var key func(models.IndustrySnapshot) float64
	switch field {
	case IndustryFieldPriceChange:
		key = func(i models.IndustrySnapshot) float64 { return i.PriceChange }
	case IndustryFieldTurnover:
		key = func(i models.IndustrySnapshot) float64 { return i.Turnover }
	case IndustryFieldPERatio:
		key = func(i models.IndustrySnapshot) float64 { return i.PERatio }
	default:
		return ranked
	}

	sort.SliceStable(ranked, func(x, y int) bool {
		return key(ranked[x]) > key(ranked[y])
	})
	return ranked
}

// HotIndustries scores every industry by momentum and traded value and
// returns the top n, descending. Ties keep input order.
func (a *IndustryAnalyzer) HotIndustries(industries []models.IndustrySnapshot, n int) []HotIndustry {
	scored := make([]HotIndustry, 0, len(industries))
	for _, ind := range industries {
		scored = append(scored, HotIndustry{
			IndustrySnapshot: ind,
			HotScore:         a.hotScore(ind),
		})
	}

	sort.SliceStable(scored, func(x, y int) bool {
		return scored[x].HotScore > scored[y].HotScore
	})

	if n > 0 && n < len(scored) {
		scored = scored[:n]
	}
	return scored
}

func (a *IndustryAnalyzer) hotScore(ind models.IndustrySnapshot) float64 {
	return ind.PriceChange*hotScoreChangeWeight + ind.Turnover/hotScoreTurnoverScale*hotScoreTurnoverWeight
}
