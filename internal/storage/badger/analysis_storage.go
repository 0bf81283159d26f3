package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/margin/internal/analysis"
	"github.com/ternarybob/margin/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// AnalysisStorage implements the AnalysisStorage interface for Badger.
// Results are keyed by stock code so re-analysis overwrites the prior run.
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AnalysisStorage) StoreResult(ctx context.Context, result *analysis.AnalysisResult) error {
	if result.StockCode == "" {
		return fmt.Errorf("stock code is required")
	}

	if err := s.db.Store().Upsert(result.StockCode, result); err != nil {
		return fmt.Errorf("failed to store analysis result: %w", err)
	}
	return nil
}

func (s *AnalysisStorage) StoreResults(ctx context.Context, results []*analysis.AnalysisResult) error {
	for _, result := range results {
		if err := s.StoreResult(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *AnalysisStorage) GetResult(ctx context.Context, code string) (*analysis.AnalysisResult, error) {
	var result analysis.AnalysisResult
	if err := s.db.Store().Get(code, &result); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("analysis result not found: %s", code)
		}
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}
	return &result, nil
}

func (s *AnalysisStorage) GetAllResults(ctx context.Context) ([]*analysis.AnalysisResult, error) {
	var results []analysis.AnalysisResult
	query := badgerhold.Where("StockCode").Ne("").SortBy("GrahamScore").Reverse()
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to list analysis results: %w", err)
	}
	return toPointers(results), nil
}

func (s *AnalysisStorage) GetResultsByRecommendation(ctx context.Context, rec analysis.Recommendation) ([]*analysis.AnalysisResult, error) {
	var results []analysis.AnalysisResult
	query := badgerhold.Where("Recommendation").Eq(rec).SortBy("GrahamScore").Reverse()
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to query by recommendation: %w", err)
	}
	return toPointers(results), nil
}

func (s *AnalysisStorage) GetTopResults(ctx context.Context, limit int) ([]*analysis.AnalysisResult, error) {
	var results []analysis.AnalysisResult
	query := badgerhold.Where("PassFilter").Eq(true).SortBy("GrahamScore").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to query top results: %w", err)
	}
	return toPointers(results), nil
}

func (s *AnalysisStorage) DeleteResult(ctx context.Context, code string) error {
	if err := s.db.Store().Delete(code, &analysis.AnalysisResult{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("analysis result not found: %s", code)
		}
		return fmt.Errorf("failed to delete analysis result: %w", err)
	}
	return nil
}

func (s *AnalysisStorage) CountResults(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&analysis.AnalysisResult{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count analysis results: %w", err)
	}
	return int(count), nil
}

func (s *AnalysisStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&analysis.AnalysisResult{}, nil); err != nil {
		return fmt.Errorf("failed to clear analysis results: %w", err)
	}
	return nil
}

func toPointers(results []analysis.AnalysisResult) []*analysis.AnalysisResult {
	out := make([]*analysis.AnalysisResult, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out
}
