package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/margin/internal/analysis"
	"github.com/ternarybob/margin/internal/services/screener"
)

// AnalysisHandler serves the valuation and risk analysis endpoints.
type AnalysisHandler struct {
	screener *screener.Service
	logger   arbor.ILogger
}

func NewAnalysisHandler(screenerService *screener.Service, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		screener: screenerService,
		logger:   logger,
	}
}

// GrahamHandler runs the full composite analysis for one stock and returns
// the scored result.
func (h *AnalysisHandler) GrahamHandler(w http.ResponseWriter, r *http.Request, code string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	result, err := h.screener.AnalyzeStock(r.Context(), code)
	if err != nil {
		h.logger.Warn().Str("code", code).Err(err).Msg("Analysis failed")
		WriteError(w, http.StatusNotFound, "Analysis unavailable: "+code)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// RiskHandler returns the multi-dimensional risk profile for one stock.
func (h *AnalysisHandler) RiskHandler(w http.ResponseWriter, r *http.Request, code string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	profile, err := h.screener.RiskProfile(r.Context(), code)
	if err != nil {
		h.logger.Warn().Str("code", code).Err(err).Msg("Risk assessment failed")
		WriteError(w, http.StatusNotFound, "Risk profile unavailable: "+code)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"risk":       profile,
	})
}

// RecommendationsHandler returns stored screening results. With a
// recommendation query parameter it filters to that tier; otherwise it
// returns the top-scoring eligible stocks.
func (h *AnalysisHandler) RecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if tier := r.URL.Query().Get("recommendation"); tier != "" {
		results, err := h.screener.Recommendations(r.Context(), analysis.Recommendation(tier))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to load recommendations")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"recommendation": tier,
			"count":          len(results),
			"results":        results,
		})
		return
	}

	topN := 0
	if topNStr := r.URL.Query().Get("top_n"); topNStr != "" {
		if n, err := strconv.Atoi(topNStr); err == nil && n > 0 {
			topN = n
		}
	}

	results, err := h.screener.TopStocks(r.Context(), topN)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to load recommendations")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(results),
		"results": results,
	})
}
