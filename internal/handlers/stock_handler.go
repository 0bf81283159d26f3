package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/margin/internal/common"
	"github.com/ternarybob/margin/internal/interfaces"
	"github.com/ternarybob/margin/internal/models"
	"github.com/ternarybob/margin/internal/services/screener"
)

// ScreenRequest is the body of a manual screen trigger. An async request
// returns immediately and runs the screen in the background. TopN, when
// set, attaches the highest-scoring results to a synchronous run's response.
type ScreenRequest struct {
	Async bool `json:"async"`
	TopN  int  `json:"top_n" validate:"omitempty,gte=1,lte=500"`
}

// StockHandler serves the stock listing, detail, and screening endpoints.
// Background screens run against baseCtx so they stop at app shutdown
// instead of dying with the triggering request.
type StockHandler struct {
	baseCtx  context.Context
	provider interfaces.MarketDataProvider
	screener *screener.Service
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewStockHandler(baseCtx context.Context, provider interfaces.MarketDataProvider, screenerService *screener.Service, logger arbor.ILogger) *StockHandler {
	return &StockHandler{
		baseCtx:  baseCtx,
		provider: provider,
		screener: screenerService,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListStocksHandler returns the paginated stock listing, optionally filtered
// by market (SH or SZ).
func (h *StockHandler) ListStocksHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	listings, err := h.provider.ListStocks(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list stocks")
		WriteError(w, http.StatusBadGateway, "Failed to list stocks")
		return
	}

	if market := strings.ToUpper(r.URL.Query().Get("market")); market != "" {
		filtered := make([]models.StockListing, 0, len(listings))
		for _, listing := range listings {
			if m, err := common.MarketForCode(listing.Code); err == nil && m == market {
				filtered = append(filtered, listing)
			}
		}
		listings = filtered
	}

	page, perPage := GetPaginationParams(r)
	start, end, pagination := PageBounds(len(listings), page, perPage)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stocks":     listings[start:end],
		"pagination": pagination,
	})
}

// StockDetailHandler returns the merged market snapshot for one stock.
func (h *StockHandler) StockDetailHandler(w http.ResponseWriter, r *http.Request, code string) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if !common.IsValidStockCode(code) {
		WriteError(w, http.StatusBadRequest, "Invalid stock code: "+code)
		return
	}

	snapshot, err := h.provider.GetSnapshot(r.Context(), code)
	if err != nil {
		h.logger.Warn().Str("code", code).Err(err).Msg("Failed to get stock snapshot")
		WriteError(w, http.StatusNotFound, "Stock data unavailable: "+code)
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// FinancialHandler returns statement data with classifier ratings.
func (h *StockHandler) FinancialHandler(w http.ResponseWriter, r *http.Request, code string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	financial, err := h.provider.GetFinancials(r.Context(), code)
	if err != nil {
		h.logger.Warn().Str("code", code).Err(err).Msg("Failed to get financial data")
		WriteError(w, http.StatusNotFound, "Financial data unavailable: "+code)
		return
	}

	assessment, err := h.screener.Financials(r.Context(), code)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"financial":  financial,
		"assessment": assessment,
	})
}

// ValuationHandler returns the intrinsic-value view for one stock.
func (h *StockHandler) ValuationHandler(w http.ResponseWriter, r *http.Request, code string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	result, err := h.screener.AnalyzeStock(r.Context(), code)
	if err != nil {
		h.logger.Warn().Str("code", code).Err(err).Msg("Failed to run valuation")
		WriteError(w, http.StatusNotFound, "Valuation unavailable: "+code)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code":      result.StockCode,
		"stock_name":      result.StockName,
		"current_price":   result.CurrentPrice,
		"intrinsic_value": result.IntrinsicValue,
		"safety_margin":   result.SafetyMargin,
		"pass_filter":     result.PassFilter,
	})
}

// ScreenHandler triggers a full market screen. Accepts an empty body for a
// synchronous run with defaults.
func (h *StockHandler) ScreenHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ScreenRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid screen request: "+err.Error())
		return
	}

	if req.Async {
		// The request context dies with the response; background runs are
		// bound to the app lifetime instead.
		common.SafeGoWithContext(h.baseCtx, h.logger, "screen_all", func() {
			if _, err := h.screener.ScreenAll(h.baseCtx); err != nil {
				h.logger.Error().Err(err).Msg("Background screen failed")
			}
		})
		WriteStarted(w, "Full market screen started")
		return
	}

	summary, err := h.screener.ScreenAll(r.Context())
	if err != nil {
		if strings.Contains(err.Error(), "already in progress") {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Screen failed")
		WriteError(w, http.StatusInternalServerError, "Screen failed: "+err.Error())
		return
	}

	if req.TopN > 0 {
		top, err := h.screener.TopStocks(r.Context(), req.TopN)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Screen finished but ranked results unavailable")
			WriteJSON(w, http.StatusOK, summary)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary":    summary,
			"top_stocks": top,
		})
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// ScreenStatusHandler reports the most recent screening run.
func (h *StockHandler) ScreenStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	last := h.screener.LastRun()
	if last == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "never_run",
		})
		return
	}
	WriteJSON(w, http.StatusOK, last)
}
