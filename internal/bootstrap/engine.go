package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/school-system/results/internal/cache"
	"github.com/school-system/results/internal/config"
	"github.com/school-system/results/internal/grading"
	"github.com/school-system/results/internal/performance"
	"github.com/school-system/results/internal/repository"
	"gorm.io/gorm"
)

// Engine builds the performance engine for cfg on top of db. The returned
// cleanup closes the transcript cache, if one was configured.
func Engine(ctx context.Context, cfg *config.Config, db *gorm.DB) (*performance.Engine, *grading.Scale, func(), error) {
	scale, err := grading.ScaleByName(cfg.Grading.Scale)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []performance.Option{performance.WithScale(scale)}
	cleanup := func() {}

	if cfg.Cache.RedisURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		redisCache, err := cache.Connect(connectCtx, cfg.Cache.RedisURL, cfg.Cache.TranscriptTTL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to set up transcript cache: %w", err)
		}
		log.Printf("Transcript cache enabled (ttl %s)", cfg.Cache.TranscriptTTL)
		opts = append(opts, performance.WithTranscriptCache(redisCache))
		cleanup = func() { redisCache.Close() }
	}

	engine := performance.NewEngine(repository.NewGormRepository(db), opts...)
	return engine, scale, cleanup, nil
}
