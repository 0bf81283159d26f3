package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/margin/internal/interfaces"
	"github.com/ternarybob/margin/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// IndustryStorage implements the IndustryStorage interface for Badger
type IndustryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewIndustryStorage creates a new IndustryStorage instance
func NewIndustryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.IndustryStorage {
	return &IndustryStorage{
		db:     db,
		logger: logger,
	}
}

func (s *IndustryStorage) StoreIndustry(ctx context.Context, industry *models.IndustrySnapshot) error {
	if industry.Code == "" {
		return fmt.Errorf("industry code is required")
	}

	if err := s.db.Store().Upsert("industry_"+industry.Code, industry); err != nil {
		return fmt.Errorf("failed to store industry: %w", err)
	}
	return nil
}

func (s *IndustryStorage) StoreIndustries(ctx context.Context, industries []*models.IndustrySnapshot) error {
	for _, industry := range industries {
		if err := s.StoreIndustry(ctx, industry); err != nil {
			return err
		}
	}
	return nil
}

func (s *IndustryStorage) GetIndustry(ctx context.Context, code string) (*models.IndustrySnapshot, error) {
	var industry models.IndustrySnapshot
	if err := s.db.Store().Get("industry_"+code, &industry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("industry not found: %s", code)
		}
		return nil, fmt.Errorf("failed to get industry: %w", err)
	}
	return &industry, nil
}

func (s *IndustryStorage) GetAllIndustries(ctx context.Context) ([]models.IndustrySnapshot, error) {
	var industries []models.IndustrySnapshot
	query := badgerhold.Where("Code").Ne("").SortBy("Code")
	if err := s.db.Store().Find(&industries, query); err != nil {
		return nil, fmt.Errorf("failed to list industries: %w", err)
	}
	return industries, nil
}

func (s *IndustryStorage) CountIndustries(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.IndustrySnapshot{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count industries: %w", err)
	}
	return int(count), nil
}

func (s *IndustryStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.IndustrySnapshot{}, nil); err != nil {
		return fmt.Errorf("failed to clear industries: %w", err)
	}
	return nil
}
