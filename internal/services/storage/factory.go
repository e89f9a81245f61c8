package storage

import (
	"context"
	"fmt"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/utils"
)

// NewStorage creates the S3 client. Its only consumer is the /health
// handler's dependency check; no media is written to it.
func NewStorage(cfg *config.S3Config) (StorageInterface, error) {
	utils.LogInfo(context.Background(), "creating S3 storage", utils.Fields{"endpoint": cfg.EndpointURL})
	storage, err := NewS3Storage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 storage: %w", err)
	}

	return storage, nil
}
