package main

import (
	"context"
	"fmt"
	"time"

	mongoMigration "staybook/internal/migrations/mongo"
	postgresMigration "staybook/internal/migrations/postgres"
	"staybook/pkg/config"
)

const JobName = "staybook-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)

	cfg.Log.Info("Starting migration job", "driver", cfg.StorageDriver)
	cfg.SetStorage()
	defer cfg.GracefulShutdown()

	if err := migrate(ctx, cfg); err != nil {
		cfg.Log.Error("Migration failed", "driver", cfg.StorageDriver, "error", err)
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration job aborted")
	}
	fmt.Println("Migration completed successfully.")
}

func migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.StorageDriver == config.StoragePostgres {
		return postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log)
	}
	return mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
}
