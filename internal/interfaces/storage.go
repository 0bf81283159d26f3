package interfaces

import (
	"context"

	"github.com/ternarybob/margin/internal/analysis"
	"github.com/ternarybob/margin/internal/models"
)

// AnalysisStorage - interface for analysis result persistence
type AnalysisStorage interface {
	// Result operations
	StoreResult(ctx context.Context, result *analysis.AnalysisResult) error
	StoreResults(ctx context.Context, results []*analysis.AnalysisResult) error
	GetResult(ctx context.Context, code string) (*analysis.AnalysisResult, error)
	GetAllResults(ctx context.Context) ([]*analysis.AnalysisResult, error)
	GetResultsByRecommendation(ctx context.Context, rec analysis.Recommendation) ([]*analysis.AnalysisResult, error)
	GetTopResults(ctx context.Context, limit int) ([]*analysis.AnalysisResult, error)
	DeleteResult(ctx context.Context, code string) error
	CountResults(ctx context.Context) (int, error)

	// Bulk operations
	ClearAll(ctx context.Context) error
}

// IndustryStorage - interface for industry snapshot persistence
type IndustryStorage interface {
	StoreIndustry(ctx context.Context, industry *models.IndustrySnapshot) error
	StoreIndustries(ctx context.Context, industries []*models.IndustrySnapshot) error
	GetIndustry(ctx context.Context, code string) (*models.IndustrySnapshot, error)
	GetAllIndustries(ctx context.Context) ([]models.IndustrySnapshot, error)
	CountIndustries(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) error
}

// StorageManager - interface for managing all storage components
type StorageManager interface {
	AnalysisStorage() AnalysisStorage
	IndustryStorage() IndustryStorage

	// Maintain runs backend housekeeping (garbage collection). Safe to call
	// while the store is in use.
	Maintain() error

	Close() error
}
