package main

import (
	"flag"
	"log"
	"os"

	"github.com/school-system/results/internal/config"
	"github.com/school-system/results/internal/database"
)

// resync recomputes every stored semester and cumulative GPA from the
// current results, oldest term first.
func main() {
	migrate := flag.Bool("migrate", false, "run migrations before syncing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if *migrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("Migration failed:", err)
		}
	}

	os.Exit(run(cfg, db))
}
