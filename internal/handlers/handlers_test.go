package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/margin/internal/analysis"
	"github.com/ternarybob/margin/internal/common"
	"github.com/ternarybob/margin/internal/interfaces"
	"github.com/ternarybob/margin/internal/models"
	"github.com/ternarybob/margin/internal/services/screener"
)

// mockProvider implements interfaces.MarketDataProvider with func fields
type mockProvider struct {
	listStocksFunc    func(ctx context.Context) ([]models.StockListing, error)
	getSnapshotFunc   func(ctx context.Context, code string) (*models.StockSnapshot, error)
	getFinancialsFunc func(ctx context.Context, code string) (*models.FinancialStatementData, error)
	getIndustriesFunc func(ctx context.Context) ([]models.IndustrySnapshot, error)
}

func (m *mockProvider) ListStocks(ctx context.Context) ([]models.StockListing, error) {
	if m.listStocksFunc != nil {
		return m.listStocksFunc(ctx)
	}
	return nil, nil
}

func (m *mockProvider) GetSnapshot(ctx context.Context, code string) (*models.StockSnapshot, error) {
	if m.getSnapshotFunc != nil {
		return m.getSnapshotFunc(ctx, code)
	}
	return nil, fmt.Errorf("no snapshot for %s", code)
}

func (m *mockProvider) GetSnapshots(ctx context.Context, tradeDate string) ([]models.StockSnapshot, error) {
	return nil, nil
}

func (m *mockProvider) GetFinancials(ctx context.Context, code string) (*models.FinancialStatementData, error) {
	if m.getFinancialsFunc != nil {
		return m.getFinancialsFunc(ctx, code)
	}
	return nil, fmt.Errorf("no financials for %s", code)
}

func (m *mockProvider) GetIndustries(ctx context.Context) ([]models.IndustrySnapshot, error) {
	if m.getIndustriesFunc != nil {
		return m.getIndustriesFunc(ctx)
	}
	return nil, nil
}

// mockStorage is a minimal in-memory StorageManager
type mockStorage struct {
	analysis mockAnalysisStorage
	industry mockIndustryStorage
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		analysis: mockAnalysisStorage{results: make(map[string]*analysis.AnalysisResult)},
		industry: mockIndustryStorage{industries: make(map[string]*models.IndustrySnapshot)},
	}
}

func (m *mockStorage) AnalysisStorage() interfaces.AnalysisStorage { return &m.analysis }
func (m *mockStorage) IndustryStorage() interfaces.IndustryStorage { return &m.industry }
func (m *mockStorage) Maintain() error                             { return nil }
func (m *mockStorage) Close() error                                { return nil }

type mockAnalysisStorage struct {
	mu      sync.Mutex
	results map[string]*analysis.AnalysisResult
}

func (s *mockAnalysisStorage) StoreResult(ctx context.Context, r *analysis.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.StockCode] = r
	return nil
}

func (s *mockAnalysisStorage) StoreResults(ctx context.Context, rs []*analysis.AnalysisResult) error {
	for _, r := range rs {
		s.StoreResult(ctx, r)
	}
	return nil
}

func (s *mockAnalysisStorage) GetResult(ctx context.Context, code string) (*analysis.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[code]
	if !ok {
		return nil, fmt.Errorf("not found: %s", code)
	}
	return r, nil
}

func (s *mockAnalysisStorage) GetAllResults(ctx context.Context) ([]*analysis.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*analysis.AnalysisResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	return out, nil
}

func (s *mockAnalysisStorage) GetResultsByRecommendation(ctx context.Context, rec analysis.Recommendation) ([]*analysis.AnalysisResult, error) {
	all, _ := s.GetAllResults(ctx)
	out := []*analysis.AnalysisResult{}
	for _, r := range all {
		if r.Recommendation == rec {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *mockAnalysisStorage) GetTopResults(ctx context.Context, limit int) ([]*analysis.AnalysisResult, error) {
	all, _ := s.GetAllResults(ctx)
	eligible := []*analysis.AnalysisResult{}
	for _, r := range all {
		if r.PassFilter {
			eligible = append(eligible, r)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].GrahamScore > eligible[j].GrahamScore })
	if limit > 0 && limit < len(eligible) {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (s *mockAnalysisStorage) DeleteResult(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, code)
	return nil
}

func (s *mockAnalysisStorage) CountResults(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results), nil
}

func (s *mockAnalysisStorage) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make(map[string]*analysis.AnalysisResult)
	return nil
}

type mockIndustryStorage struct {
	mu         sync.Mutex
	industries map[string]*models.IndustrySnapshot
}

func (s *mockIndustryStorage) StoreIndustry(ctx context.Context, i *models.IndustrySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.industries[i.Code] = i
	return nil
}

func (s *mockIndustryStorage) StoreIndustries(ctx context.Context, is []*models.IndustrySnapshot) error {
	for _, i := range is {
		s.StoreIndustry(ctx, i)
	}
	return nil
}

func (s *mockIndustryStorage) GetIndustry(ctx context.Context, code string) (*models.IndustrySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.industries[code]
	if !ok {
		return nil, fmt.Errorf("not found: %s", code)
	}
	return i, nil
}

func (s *mockIndustryStorage) GetAllIndustries(ctx context.Context) ([]models.IndustrySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.industries))
	for code := range s.industries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]models.IndustrySnapshot, 0, len(codes))
	for _, code := range codes {
		out = append(out, *s.industries[code])
	}
	return out, nil
}

func (s *mockIndustryStorage) CountIndustries(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.industries), nil
}

func (s *mockIndustryStorage) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.industries = make(map[string]*models.IndustrySnapshot)
	return nil
}

func bargainSnapshot(code string) *models.StockSnapshot {
	return &models.StockSnapshot{
		Code:           code,
		CurrentPrice:   10,
		PERatio:        8,
		PBRatio:        1.0,
		TotalMarketCap: 2e9,
		ROE:            0.18,
		DebtRatio:      0.30,
		CurrentRatio:   2.0,
		NetMargin:      0.15,
		EPS:            2.0,
		NetProfitYoY:   0.12,
	}
}

func newTestScreener(provider interfaces.MarketDataProvider) *screener.Service {
	analyzer := analysis.NewGrahamAnalyzer(analysis.DefaultGrahamConfig(), nil)
	return screener.NewService(
		provider,
		newMockStorage(),
		analyzer,
		common.ScreenerConfig{Concurrency: 2, TopN: 10},
		arbor.NewLogger(),
	)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return body
}

func TestListStocksHandler(t *testing.T) {
	provider := &mockProvider{
		listStocksFunc: func(ctx context.Context) ([]models.StockListing, error) {
			return []models.StockListing{
				{Code: "600036", Name: "CMB"},
				{Code: "000001", Name: "PAB"},
				{Code: "300750", Name: "CATL"},
			}, nil
		},
	}
	h := NewStockHandler(context.Background(), provider, newTestScreener(provider), arbor.NewLogger())

	t.Run("full listing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListStocksHandler(rec, httptest.NewRequest("GET", "/api/v1/stocks", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if stocks := body["stocks"].([]interface{}); len(stocks) != 3 {
			t.Errorf("Expected 3 stocks, got %d", len(stocks))
		}
	})

	t.Run("market filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListStocksHandler(rec, httptest.NewRequest("GET", "/api/v1/stocks?market=SH", nil))
		body := decodeBody(t, rec)
		stocks := body["stocks"].([]interface{})
		if len(stocks) != 1 {
			t.Fatalf("Expected 1 Shanghai stock, got %d", len(stocks))
		}
	})

	t.Run("pagination", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListStocksHandler(rec, httptest.NewRequest("GET", "/api/v1/stocks?page=2&per_page=2", nil))
		body := decodeBody(t, rec)
		stocks := body["stocks"].([]interface{})
		if len(stocks) != 1 {
			t.Errorf("Expected 1 stock on page 2, got %d", len(stocks))
		}
		pagination := body["pagination"].(map[string]interface{})
		if pagination["total_pages"].(float64) != 2 {
			t.Errorf("Expected 2 total pages, got %v", pagination["total_pages"])
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListStocksHandler(rec, httptest.NewRequest("POST", "/api/v1/stocks", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", rec.Code)
		}
	})
}

func TestStockDetailHandler(t *testing.T) {
	provider := &mockProvider{
		getSnapshotFunc: func(ctx context.Context, code string) (*models.StockSnapshot, error) {
			if code == "600036" {
				return bargainSnapshot(code), nil
			}
			return nil, fmt.Errorf("no data")
		},
	}
	h := NewStockHandler(context.Background(), provider, newTestScreener(provider), arbor.NewLogger())

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.StockDetailHandler(rec, httptest.NewRequest("GET", "/api/v1/stocks/600036", nil), "600036")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("invalid code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.StockDetailHandler(rec, httptest.NewRequest("GET", "/api/v1/stocks/xyz", nil), "xyz")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.StockDetailHandler(rec, httptest.NewRequest("GET", "/api/v1/stocks/600999", nil), "600999")
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}

func TestValuationHandler(t *testing.T) {
	provider := &mockProvider{
		getSnapshotFunc: func(ctx context.Context, code string) (*models.StockSnapshot, error) {
			return bargainSnapshot(code), nil
		},
	}
	h := NewStockHandler(context.Background(), provider, newTestScreener(provider), arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.ValuationHandler(rec, httptest.NewRequest("GET", "/api/v1/stocks/600036/valuation", nil), "600036")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["pass_filter"] != true {
		t.Error("Expected bargain stock to pass the filter")
	}
	if body["intrinsic_value"].(float64) <= 0 {
		t.Errorf("Expected positive intrinsic value, got %v", body["intrinsic_value"])
	}
}

func TestScreenHandler(t *testing.T) {
	provider := &mockProvider{
		listStocksFunc: func(ctx context.Context) ([]models.StockListing, error) {
			return []models.StockListing{{Code: "600036"}, {Code: "000001"}}, nil
		},
		getSnapshotFunc: func(ctx context.Context, code string) (*models.StockSnapshot, error) {
			return bargainSnapshot(code), nil
		},
	}
	h := NewStockHandler(context.Background(), provider, newTestScreener(provider), arbor.NewLogger())

	t.Run("synchronous run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ScreenHandler(rec, httptest.NewRequest("POST", "/api/v1/stocks/screen", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["analyzed"].(float64) != 2 {
			t.Errorf("Expected 2 analyzed, got %v", body["analyzed"])
		}
	})

	t.Run("top_n attaches ranked results", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/stocks/screen", strings.NewReader(`{"top_n": 1}`))
		h.ScreenHandler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		top, ok := body["top_stocks"].([]interface{})
		if !ok {
			t.Fatalf("Expected top_stocks in response, got %v", body)
		}
		if len(top) != 1 {
			t.Errorf("Expected 1 top stock, got %d", len(top))
		}
		if _, ok := body["summary"].(map[string]interface{}); !ok {
			t.Error("Expected summary alongside top stocks")
		}
	})

	t.Run("async run reports started", func(t *testing.T) {
		svc := newTestScreener(provider)
		ah := NewStockHandler(context.Background(), provider, svc, arbor.NewLogger())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/stocks/screen", strings.NewReader(`{"async": true}`))
		ah.ScreenHandler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["status"] != "started" {
			t.Errorf("Expected started status, got %v", body["status"])
		}

		deadline := time.Now().Add(2 * time.Second)
		for svc.LastRun() == nil {
			if time.Now().After(deadline) {
				t.Fatal("Background screen never completed")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("async run skipped after shutdown", func(t *testing.T) {
		svc := newTestScreener(provider)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ah := NewStockHandler(ctx, provider, svc, arbor.NewLogger())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/stocks/screen", strings.NewReader(`{"async": true}`))
		ah.ScreenHandler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		time.Sleep(50 * time.Millisecond)
		if svc.LastRun() != nil {
			t.Error("Expected no screen run after shutdown")
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/stocks/screen", strings.NewReader("{bad json"))
		h.ScreenHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/stocks/screen", strings.NewReader(`{"top_n": 9999}`))
		h.ScreenHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("status after run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ScreenStatusHandler(rec, httptest.NewRequest("GET", "/api/v1/stocks/screen/status", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if _, ok := body["screen_id"]; !ok {
			t.Error("Expected screen summary after a run")
		}
	})
}

func TestAnalysisHandlers(t *testing.T) {
	provider := &mockProvider{
		getSnapshotFunc: func(ctx context.Context, code string) (*models.StockSnapshot, error) {
			return bargainSnapshot(code), nil
		},
	}
	svc := newTestScreener(provider)
	h := NewAnalysisHandler(svc, arbor.NewLogger())

	t.Run("graham analysis", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GrahamHandler(rec, httptest.NewRequest("GET", "/api/v1/analysis/graham/600036", nil), "600036")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["stock_code"] != "600036" {
			t.Errorf("Unexpected stock code: %v", body["stock_code"])
		}
	})

	t.Run("risk profile without financials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.RiskHandler(rec, httptest.NewRequest("GET", "/api/v1/analysis/risk/600036", nil), "600036")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("recommendations after analysis", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.RecommendationsHandler(rec, httptest.NewRequest("GET", "/api/v1/analysis/recommendations?top_n=5", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["count"].(float64) < 1 {
			t.Error("Expected at least one stored result")
		}
	})
}

func TestIndustryHandlers(t *testing.T) {
	provider := &mockProvider{
		getIndustriesFunc: func(ctx context.Context) ([]models.IndustrySnapshot, error) {
			return []models.IndustrySnapshot{
				{Code: "801780", Name: "Banking", PERatio: 5, PriceChange: 0.5, Turnover: 1e10},
				{Code: "801080", Name: "Electronics", PERatio: 20, PriceChange: 3.0, Turnover: 2e10},
			}, nil
		},
	}
	svc := newTestScreener(provider)
	h := NewIndustryHandler(svc, arbor.NewLogger())

	// Populate storage via refresh.
	rec := httptest.NewRecorder()
	h.RefreshHandler(rec, httptest.NewRequest("POST", "/api/v1/industries/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Refresh failed: %d %s", rec.Code, rec.Body.String())
	}

	t.Run("list with valuation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListHandler(rec, httptest.NewRequest("GET", "/api/v1/industries", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["count"].(float64) != 2 {
			t.Errorf("Expected 2 industries, got %v", body["count"])
		}
		valuation := body["valuation"].(map[string]interface{})
		if valuation["average_pe"].(float64) != 12.5 {
			t.Errorf("Expected average PE 12.5, got %v", valuation["average_pe"])
		}
	})

	t.Run("detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.DetailHandler(rec, httptest.NewRequest("GET", "/api/v1/industries/801780", nil), "801780")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("hot ranking", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.RankingHandler(rec, httptest.NewRequest("GET", "/api/v1/industries/ranking?by=hot&top=1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		industries := body["industries"].([]interface{})
		if len(industries) != 1 {
			t.Fatalf("Expected 1 industry, got %d", len(industries))
		}
		first := industries[0].(map[string]interface{})
		if first["name"] != "Electronics" {
			t.Errorf("Expected Electronics hottest, got %v", first["name"])
		}
	})
}

func TestAPIHandler(t *testing.T) {
	h := NewAPIHandler()

	t.Run("version", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.VersionHandler(rec, httptest.NewRequest("GET", "/api/v1/version", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if _, ok := body["full_version"]; !ok {
			t.Error("Expected full_version in version response")
		}
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HealthHandler(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
		body := decodeBody(t, rec)
		if body["status"] != "ok" {
			t.Errorf("Expected ok status, got %v", body["status"])
		}
		if _, ok := body["goroutines"]; !ok {
			t.Error("Expected goroutine count in health response")
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.NotFoundHandler(rec, httptest.NewRequest("GET", "/api/v1/nothing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name               string
		total, page, per   int
		wantStart, wantEnd int
		wantPages          int
	}{
		{"first page", 10, 1, 3, 0, 3, 4},
		{"last partial page", 10, 4, 3, 9, 10, 4},
		{"past the end", 10, 5, 3, 0, 0, 4},
		{"exact fit", 6, 2, 3, 3, 6, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, pagination := PageBounds(tt.total, tt.page, tt.per)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Bounds = [%d,%d), want [%d,%d)", start, end, tt.wantStart, tt.wantEnd)
			}
			if pagination.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", pagination.TotalPages, tt.wantPages)
			}
		})
	}
}
