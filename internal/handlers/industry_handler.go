package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/margin/internal/analysis"
	"github.com/ternarybob/margin/internal/services/screener"
)

// IndustryHandler serves the sector-level endpoints.
type IndustryHandler struct {
	screener *screener.Service
	logger   arbor.ILogger
}

func NewIndustryHandler(screenerService *screener.Service, logger arbor.ILogger) *IndustryHandler {
	return &IndustryHandler{
		screener: screenerService,
		logger:   logger,
	}
}

// ListHandler returns all persisted industries with their valuation bands.
func (h *IndustryHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	industries, err := h.screener.Industries(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to load industries")
		return
	}

	valuation, err := h.screener.IndustryValuation(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to compute valuation bands")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(industries),
		"industries": industries,
		"valuation":  valuation,
	})
}

// DetailHandler returns one persisted industry snapshot.
func (h *IndustryHandler) DetailHandler(w http.ResponseWriter, r *http.Request, code string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	industry, err := h.screener.Industry(r.Context(), code)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Industry not found: "+code)
		return
	}

	WriteJSON(w, http.StatusOK, industry)
}

// RankingHandler ranks industries by the requested field. by=hot selects the
// momentum ranking; other fields sort directly.
func (h *IndustryHandler) RankingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	by := r.URL.Query().Get("by")
	if by == "" {
		by = analysis.IndustryFieldPriceChange
	}

	top := 0
	if topStr := r.URL.Query().Get("top"); topStr != "" {
		if n, err := strconv.Atoi(topStr); err == nil && n > 0 {
			top = n
		}
	}

	if by == "hot" {
		hot, err := h.screener.HotIndustries(r.Context(), top)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to rank industries")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"by":         by,
			"count":      len(hot),
			"industries": hot,
		})
		return
	}

	ranked, err := h.screener.RankIndustries(r.Context(), by)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to rank industries")
		return
	}
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"by":         by,
		"count":      len(ranked),
		"industries": ranked,
	})
}

// RefreshHandler re-fetches industry snapshots from the provider.
func (h *IndustryHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	industries, err := h.screener.RefreshIndustries(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Industry refresh failed")
		WriteError(w, http.StatusBadGateway, "Industry refresh failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  len(industries),
	})
}
