// Command authgate-seed provisions the permission catalog, the role
// hierarchy, and the bootstrap administrator account against a
// Postgres database. It is idempotent; re-running it upserts the
// catalog and leaves existing data alone.
//
// Configuration comes from the environment (a .env file is loaded if
// present):
//
//	DATABASE_URL    Postgres DSN (required)
//	ADMIN_EMAIL     bootstrap admin email (required)
//	ADMIN_PASSWORD  bootstrap admin password (required)
//	ADMIN_USERNAME  bootstrap admin username (default "admin")
//	ADMIN_PHONE     bootstrap admin phone (optional)
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/authgate-io/authgate"
	"github.com/authgate-io/authgate/store/gormstore"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	st, err := gormstore.Open(dsn)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}

	cfg := authgate.DefaultConfig()
	cfg.Bootstrap.AdminEmail = os.Getenv("ADMIN_EMAIL")
	cfg.Bootstrap.AdminUsername = os.Getenv("ADMIN_USERNAME")
	cfg.Bootstrap.AdminPhone = os.Getenv("ADMIN_PHONE")
	cfg.Bootstrap.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	engine, err := authgate.New().
		WithConfig(cfg).
		WithStore(st).
		WithLogger(log).
		Build()
	if err != nil {
		log.Fatal("engine build failed", zap.Error(err))
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := engine.Seed(ctx); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}

	log.Info("seed complete")
}
