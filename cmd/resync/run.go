package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/school-system/results/internal/bootstrap"
	"github.com/school-system/results/internal/config"
	"gorm.io/gorm"
)

func run(cfg *config.Config, db *gorm.DB) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, _, cleanup, err := bootstrap.Engine(ctx, cfg, db)
	if err != nil {
		log.Printf("Failed to build GPA engine: %v", err)
		return 1
	}
	defer cleanup()

	results, err := engine.ResyncAll(ctx)
	partial := false
	for _, res := range results {
		log.Printf("Term %s/%s: %d synced, %d semester failures, %d cumulative failures (%s)",
			res.Term.SessionID, res.Term.SemesterID, res.Succeeded, res.FailedSemester, res.FailedCumulative, res.Duration)
		partial = partial || res.Partial()
	}
	if err != nil {
		log.Printf("Resync stopped after %d terms: %v", len(results), err)
		return 1
	}
	if partial {
		return 1
	}
	log.Printf("Resync completed for %d terms", len(results))
	return 0
}
