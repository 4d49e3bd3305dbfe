package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"

	"github.com/caarlos0/env/v10"
	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	flag.Parse()
	args := flag.Args()

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if len(args) < 1 {
		log.Fatal("usage: migrate <up|down|version|seed FILE>")
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "file://migrations"
	}

	command := args[0]
	if command == "seed" {
		if len(args) < 2 {
			log.Fatal("usage: migrate seed FILE")
		}
		if err := seed(cfg, args[1]); err != nil {
			log.Fatal("seed failed", zap.Error(err))
		}
		log.Info("products seeded", zap.String("file", args[1]))
		return
	}

	m, err := client.NewMigrator(cfg.Database.URL, migrationsPath)
	if err != nil {
		log.Fatal("failed to create migrate instance", zap.Error(err))
	}
	defer func() { _, _ = m.Close() }()

	switch command {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no pending migrations")
			return
		}
		if err != nil {
			log.Fatal("migration up failed", zap.Error(err))
		}
		log.Info("migrations applied successfully")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to rollback")
			return
		}
		if err != nil {
			log.Fatal("migration down failed", zap.Error(err))
		}
		log.Info("migration rolled back successfully")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("no migrations applied yet")
			return
		}
		if err != nil {
			log.Fatal("failed to get version", zap.Error(err))
		}
		log.Info("current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	default:
		log.Fatal("unknown command", zap.String("command", command))
	}
}

// seed loads a JSON array of products, prices in major units.
func seed(cfg *config.Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var products []*model.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for _, p := range products {
		if p.Currency == "" {
			p.Currency = cfg.Checkout.Currency
		}
	}

	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		return err
	}
	return repository.NewProductRepository(db).Seed(context.Background(), products)
}
