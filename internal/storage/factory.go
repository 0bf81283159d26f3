package storage

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/margin/internal/common"
	"github.com/ternarybob/margin/internal/interfaces"
	"github.com/ternarybob/margin/internal/storage/badger"
)

// NewStorageManager creates a new storage manager based on config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	return badger.NewManager(logger, &config.Storage.Badger)
}
