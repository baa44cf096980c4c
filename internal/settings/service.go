package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kudibooks/kudibooks/internal/platform/httpx"
)

// Service reads and updates settings.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Snapshot loads the current settings. A cache failure degrades to a direct
// read instead of failing the caller.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if s.cache != nil {
		stored, err := s.cache.Get(ctx, s.repo.All)
		if err == nil {
			return NewSnapshot(stored), nil
		}
		s.logger.Warn("settings cache unavailable", slog.Any("error", err))
	}
	stored, err := s.repo.All(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("settings: load: %w", err)
	}
	return NewSnapshot(stored), nil
}

// Update validates and stores values, then invalidates cached copies.
func (s *Service) Update(ctx context.Context, values map[string]string) (Snapshot, error) {
	clean := make(map[string]string, len(values))
	problems := httpx.FieldErrors{}
	for k, v := range values {
		k = strings.TrimSpace(k)
		if err := validateValue(k, v); err != nil {
			problems[k] = err.Error()
			continue
		}
		clean[k] = v
	}
	if len(problems) > 0 {
		return Snapshot{}, problems
	}

	if err := s.repo.Upsert(ctx, clean); err != nil {
		return Snapshot{}, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("settings cache invalidation failed", slog.Any("error", err))
		}
	}
	s.logger.Info("settings updated", slog.Int("keys", len(clean)))
	return s.Snapshot(ctx)
}

// Warm loads settings into the cache.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Snapshot(ctx)
	return err
}
