package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Stocks
	mux.HandleFunc("/api/v1/stocks", s.app.StockHandler.ListStocksHandler)
	mux.HandleFunc("/api/v1/stocks/screen", s.app.StockHandler.ScreenHandler)
	mux.HandleFunc("/api/v1/stocks/screen/status", s.app.StockHandler.ScreenStatusHandler)
	mux.HandleFunc("/api/v1/stocks/", s.handleStockRoutes) // GET /{code}, /{code}/financial, /{code}/valuation

	// API routes - Analysis
	mux.HandleFunc("/api/v1/analysis/recommendations", s.app.AnalysisHandler.RecommendationsHandler)
	mux.HandleFunc("/api/v1/analysis/graham/", s.handleGrahamRoutes) // GET /{code}
	mux.HandleFunc("/api/v1/analysis/risk/", s.handleRiskRoutes)    // GET /{code}

	// API routes - Industries
	mux.HandleFunc("/api/v1/industries", s.app.IndustryHandler.ListHandler)
	mux.HandleFunc("/api/v1/industries/ranking", s.app.IndustryHandler.RankingHandler)
	mux.HandleFunc("/api/v1/industries/refresh", s.app.IndustryHandler.RefreshHandler)
	mux.HandleFunc("/api/v1/industries/", s.handleIndustryRoutes) // GET /{code}

	// API routes - Scheduler
	mux.HandleFunc("/api/v1/jobs", s.app.SchedulerHandler.JobsHandler)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobRoutes) // POST /{name}/trigger

	// API routes - System
	mux.HandleFunc("/api/v1/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/v1/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleStockRoutes dispatches /api/v1/stocks/{code} and its subpaths
func (s *Server) handleStockRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/stocks/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.app.StockHandler.StockDetailHandler(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "financial":
		s.app.StockHandler.FinancialHandler(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "valuation":
		s.app.StockHandler.ValuationHandler(w, r, parts[0])
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleGrahamRoutes dispatches /api/v1/analysis/graham/{code}
func (s *Server) handleGrahamRoutes(w http.ResponseWriter, r *http.Request) {
	code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/analysis/graham/"), "/")
	if code == "" || strings.Contains(code, "/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	s.app.AnalysisHandler.GrahamHandler(w, r, code)
}

// handleRiskRoutes dispatches /api/v1/analysis/risk/{code}
func (s *Server) handleRiskRoutes(w http.ResponseWriter, r *http.Request) {
	code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/analysis/risk/"), "/")
	if code == "" || strings.Contains(code, "/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	s.app.AnalysisHandler.RiskHandler(w, r, code)
}

// handleIndustryRoutes dispatches /api/v1/industries/{code}
func (s *Server) handleIndustryRoutes(w http.ResponseWriter, r *http.Request) {
	code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/industries/"), "/")
	if code == "" || strings.Contains(code, "/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	s.app.IndustryHandler.DetailHandler(w, r, code)
}

// handleJobRoutes dispatches /api/v1/jobs/{name}/trigger
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/"), "/")
	parts := strings.Split(rest, "/")

	if len(parts) == 2 && parts[1] == "trigger" {
		s.app.SchedulerHandler.TriggerJobHandler(w, r, parts[0])
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}
