package repository

import (
	"context"
	"errors"
	"time"

	"FxDesk/internal/domain/models"
	domrepo "FxDesk/internal/domain/repository"
	"FxDesk/pkg/cache"
	"FxDesk/pkg/logger"
)

// ResultCache stores final results in a cache.Service for a fixed TTL.
// Cache failures are logged and treated as misses.
type ResultCache struct {
	c   cache.Service
	ttl time.Duration
	log *logger.Logger
}

func NewResultCache(c cache.Service, ttl time.Duration, log *logger.Logger) *ResultCache {
	return &ResultCache{c: c, ttl: ttl, log: log}
}

func (r *ResultCache) GetResult(ctx context.Context, key string) (models.FinalResult, bool) {
	res, err := cache.GetTyped[models.FinalResult](ctx, r.c, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.log.Warn("result cache read failed", logger.String("key", key), logger.Error(err))
		}
		return models.FinalResult{}, false
	}
	return res, true
}

func (r *ResultCache) PutResult(ctx context.Context, key string, res models.FinalResult) {
	if err := r.c.Set(ctx, key, res, r.ttl); err != nil {
		r.log.Warn("result cache write failed", logger.String("key", key), logger.Error(err))
	}
}

var _ domrepo.ResultCache = (*ResultCache)(nil)
