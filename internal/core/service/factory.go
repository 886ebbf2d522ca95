package service

import (
	"time"

	"go.uber.org/zap"

	"bibscout/internal/adapters/source"
	"bibscout/internal/config"
	"bibscout/internal/core/domain/ports"
)

func CreateWorkSource(cfg *config.Config, log *zap.SugaredLogger) ports.WorkSource {
	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	switch cfg.SourceType {
	case "googlebooks":
		return source.NewGoogleBooksAdapter(cfg.APIBaseURL, cfg.APIKey, timeout, log)
	default:
		// Default to Google Books
		return source.NewGoogleBooksAdapter(cfg.APIBaseURL, cfg.APIKey, timeout, log)
	}
}
