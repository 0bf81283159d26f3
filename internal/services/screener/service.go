// Package screener orchestrates full-market value screening: it walks the
// stock universe, runs the valuation engine on each snapshot, and persists
// the results for ranked retrieval.
package screener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/margin/internal/analysis"
	"github.com/ternarybob/margin/internal/common"
	"github.com/ternarybob/margin/internal/interfaces"
	"github.com/ternarybob/margin/internal/models"
)

// ScreenSummary reports the outcome of one full screening run.
type ScreenSummary struct {
	ScreenID   string         `json:"screen_id"`
	Total      int            `json:"total"`
	Analyzed   int            `json:"analyzed"`
	Passed     int            `json:"passed"`
	Failed     int            `json:"failed"`
	Errors     int            `json:"errors"`
	ByTier     map[string]int `json:"by_tier"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Service runs analyses against the live market data provider and persists
// results. A single Service is safe for concurrent use; only one full screen
// runs at a time.
type Service struct {
	provider   interfaces.MarketDataProvider
	storage    interfaces.StorageManager
	analyzer   *analysis.GrahamAnalyzer
	classifier *analysis.FinancialClassifier
	profiler   *analysis.RiskProfiler
	industries *analysis.IndustryAnalyzer
	config     common.ScreenerConfig
	logger     arbor.ILogger

	mu        sync.Mutex
	screening bool
	lastRun   *ScreenSummary
}

// NewService creates a screener service.
func NewService(
	provider interfaces.MarketDataProvider,
	storage interfaces.StorageManager,
	analyzer *analysis.GrahamAnalyzer,
	config common.ScreenerConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		provider:   provider,
		storage:    storage,
		analyzer:   analyzer,
		classifier: analysis.NewFinancialClassifier(),
		profiler:   analysis.NewRiskProfiler(),
		industries: analysis.NewIndustryAnalyzer(),
		config:     config,
		logger:     logger,
	}
}

// AnalyzeStock runs the full valuation pipeline for one stock and persists
// the result.
func (s *Service) AnalyzeStock(ctx context.Context, code string) (*analysis.AnalysisResult, error) {
	if !common.IsValidStockCode(code) {
		return nil, fmt.Errorf("invalid stock code: %s", code)
	}

	snapshot, err := s.provider.GetSnapshot(ctx, code)
	if err != nil {
		return nil, err
	}

	result := s.analyzer.Analyze(*snapshot)
	if err := s.storage.AnalysisStorage().StoreResult(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RiskProfile assesses the multi-dimensional risk of one stock. Statement
// data is fetched on a best-effort basis; when unavailable the snapshot's
// own ratios drive the financial dimension.
func (s *Service) RiskProfile(ctx context.Context, code string) (*analysis.RiskProfile, error) {
	if !common.IsValidStockCode(code) {
		return nil, fmt.Errorf("invalid stock code: %s", code)
	}

	snapshot, err := s.provider.GetSnapshot(ctx, code)
	if err != nil {
		return nil, err
	}

	financial, err := s.provider.GetFinancials(ctx, code)
	if err != nil {
		s.logger.Warn().Str("code", code).Err(err).Msg("Assessing risk without statement data")
		financial = nil
	}

	profile := s.profiler.Assess(*snapshot, financial)
	return &profile, nil
}

// Financials classifies the statement-level fundamentals of one stock.
func (s *Service) Financials(ctx context.Context, code string) (*analysis.FinancialAssessment, error) {
	if !common.IsValidStockCode(code) {
		return nil, fmt.Errorf("invalid stock code: %s", code)
	}

	financial, err := s.provider.GetFinancials(ctx, code)
	if err != nil {
		return nil, err
	}

	assessment := s.classifier.Classify(*financial)
	return &assessment, nil
}

// ScreenAll analyzes every stock in the universe with a bounded worker pool
// and persists all results. Only one screen may run at a time.
func (s *Service) ScreenAll(ctx context.Context) (*ScreenSummary, error) {
	s.mu.Lock()
	if s.screening {
		s.mu.Unlock()
		return nil, fmt.Errorf("a screening run is already in progress")
	}
	s.screening = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.screening = false
		s.mu.Unlock()
	}()

	codes, err := s.universe(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ScreenSummary{
		ScreenID:  common.NewScreenID(),
		Total:     len(codes),
		ByTier:    make(map[string]int),
		StartedAt: time.Now(),
	}

	s.logger.Info().
		Str("screen_id", summary.ScreenID).
		Int("universe", len(codes)).
		Int("concurrency", s.config.Concurrency).
		Msg("Starting full market screen")

	jobs := make(chan string)
	var wg sync.WaitGroup
	var resultMu sync.Mutex

	for i := 0; i < s.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobs {
				result, err := s.analyzeOne(ctx, code)

				resultMu.Lock()
				if err != nil {
					summary.Errors++
				} else {
					summary.Analyzed++
					if result.PassFilter {
						summary.Passed++
					} else {
						summary.Failed++
					}
					summary.ByTier[string(result.Recommendation)]++
				}
				resultMu.Unlock()
			}
		}()
	}

feed:
	for _, code := range codes {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- code:
		}
	}
	close(jobs)
	wg.Wait()

	summary.FinishedAt = time.Now()

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	s.logger.Info().
		Str("screen_id", summary.ScreenID).
		Int("analyzed", summary.Analyzed).
		Int("passed", summary.Passed).
		Int("errors", summary.Errors).
		Str("duration", summary.FinishedAt.Sub(summary.StartedAt).String()).
		Msg("Full market screen finished")

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Service) analyzeOne(ctx context.Context, code string) (*analysis.AnalysisResult, error) {
	snapshot, err := s.provider.GetSnapshot(ctx, code)
	if err != nil {
		s.logger.Warn().Str("code", code).Err(err).Msg("Skipping stock, snapshot unavailable")
		return nil, err
	}

	result := s.analyzer.Analyze(*snapshot)
	if err := s.storage.AnalysisStorage().StoreResult(ctx, &result); err != nil {
		s.logger.Error().Str("code", code).Err(err).Msg("Failed to persist analysis result")
		return nil, err
	}
	return &result, nil
}

// LastRun returns the summary of the most recent screening run, or nil when
// none has completed yet.
func (s *Service) LastRun() *ScreenSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Recommendations returns persisted results for one recommendation tier,
// best score first.
func (s *Service) Recommendations(ctx context.Context, rec analysis.Recommendation) ([]*analysis.AnalysisResult, error) {
	return s.storage.AnalysisStorage().GetResultsByRecommendation(ctx, rec)
}

// TopStocks returns the highest-scoring eligible stocks from the last
// persisted screen.
func (s *Service) TopStocks(ctx context.Context, limit int) ([]*analysis.AnalysisResult, error) {
	if limit <= 0 {
		limit = s.config.TopN
	}
	return s.storage.AnalysisStorage().GetTopResults(ctx, limit)
}

// Result returns the persisted analysis for one stock.
func (s *Service) Result(ctx context.Context, code string) (*analysis.AnalysisResult, error) {
	return s.storage.AnalysisStorage().GetResult(ctx, code)
}

// RefreshIndustries fetches the current industry snapshots and persists them.
func (s *Service) RefreshIndustries(ctx context.Context) ([]models.IndustrySnapshot, error) {
	industries, err := s.provider.GetIndustries(ctx)
	if err != nil {
		return nil, err
	}

	ptrs := make([]*models.IndustrySnapshot, len(industries))
	for i := range industries {
		ptrs[i] = &industries[i]
	}
	if err := s.storage.IndustryStorage().StoreIndustries(ctx, ptrs); err != nil {
		return nil, err
	}
	return industries, nil
}

// Industries returns the persisted industry snapshots.
func (s *Service) Industries(ctx context.Context) ([]models.IndustrySnapshot, error) {
	return s.storage.IndustryStorage().GetAllIndustries(ctx)
}

// Industry returns one persisted industry snapshot.
func (s *Service) Industry(ctx context.Context, code string) (*models.IndustrySnapshot, error) {
	return s.storage.IndustryStorage().GetIndustry(ctx, code)
}

// IndustryValuation computes valuation bands over the persisted industries.
func (s *Service) IndustryValuation(ctx context.Context) (*analysis.IndustryValuation, error) {
	industries, err := s.storage.IndustryStorage().GetAllIndustries(ctx)
	if err != nil {
		return nil, err
	}
	valuation := s.industries.Valuation(industries)
	return &valuation, nil
}

// RankIndustries returns the persisted industries sorted by the named field.
func (s *Service) RankIndustries(ctx context.Context, field string) ([]models.IndustrySnapshot, error) {
	industries, err := s.storage.IndustryStorage().GetAllIndustries(ctx)
	if err != nil {
		return nil, err
	}
	return s.industries.Rank(industries, field), nil
}

// HotIndustries returns the persisted industries ranked by momentum score.
func (s *Service) HotIndustries(ctx context.Context, n int) ([]analysis.HotIndustry, error) {
	industries, err := s.storage.IndustryStorage().GetAllIndustries(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 10
	}
	return s.industries.HotIndustries(industries, n), nil
}
