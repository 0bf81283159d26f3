package interfaces

import (
	"context"

	"github.com/ternarybob/margin/internal/models"
)

// MarketDataProvider - interface for market data acquisition
type MarketDataProvider interface {
	// Listing operations
	ListStocks(ctx context.Context) ([]models.StockListing, error)

	// Snapshot operations
	GetSnapshot(ctx context.Context, code string) (*models.StockSnapshot, error)
	GetSnapshots(ctx context.Context, tradeDate string) ([]models.StockSnapshot, error)

	// Statement operations
	GetFinancials(ctx context.Context, code string) (*models.FinancialStatementData, error)

	// Industry operations
	GetIndustries(ctx context.Context) ([]models.IndustrySnapshot, error)
}
