package main

import (
	"cadete-dispatch-service/internal/adapters/repositories"
	"cadete-dispatch-service/internal/config"
	"cadete-dispatch-service/internal/platform/db"
	"database/sql"
	"log"
	"time"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	if err := migrateAndSeed(sqlDB, cfg); err != nil {
		log.Fatal(err)
	}
}

func migrateAndSeed(sqlDB *sql.DB, cfg *config.Config) error {
	log.Println("Applying migrations...")
	if err := db.Migrate(sqlDB); err != nil {
		return err
	}
	log.Println("Schema ready.")

	naming, err := repositories.NamingFor(cfg.RecordNaming)
	if err != nil {
		return err
	}

	log.Printf("Seeding database path=%s naming=%s", cfg.SeedPath, cfg.RecordNaming)
	if err := repositories.SeedFromJSON(sqlDB, naming, cfg.SeedPath, time.Now().In(cfg.Location)); err != nil {
		return err
	}
	log.Println("Seeding complete.")

	return nil
}
