package screener

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/margin/internal/common"
)

// universeFile is the YAML shape of an explicit stock universe.
type universeFile struct {
	Codes []string `yaml:"codes"`
}

// universe resolves the set of stock codes to screen. An explicit universe
// file wins; otherwise the provider's full listing is used. Invalid codes
// are dropped with a warning rather than failing the run.
func (s *Service) universe(ctx context.Context) ([]string, error) {
	if s.config.UniverseFile != "" {
		return s.universeFromFile(s.config.UniverseFile)
	}

	listings, err := s.provider.ListStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock universe: %w", err)
	}

	codes := make([]string, 0, len(listings))
	for _, listing := range listings {
		if common.IsValidStockCode(listing.Code) {
			codes = append(codes, listing.Code)
		}
	}
	return codes, nil
}

func (s *Service) universeFromFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file %s: %w", path, err)
	}

	var file universeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}
	if len(file.Codes) == 0 {
		return nil, fmt.Errorf("universe file %s lists no codes", path)
	}

	codes := make([]string, 0, len(file.Codes))
	for _, code := range file.Codes {
		if !common.IsValidStockCode(code) {
			s.logger.Warn().Str("code", code).Msg("Dropping invalid code from universe file")
			continue
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("universe file %s lists no valid codes", path)
	}
	return codes, nil
}
