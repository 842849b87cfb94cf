package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reliefmesh/reliefmesh/internal/config"
	"github.com/reliefmesh/reliefmesh/internal/inventory"
	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/internal/store"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the default resource inventory document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func runSeed() error {
	ctx := context.Background()
	logger := logging.NewLogger().Named("seed")

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer pool.Close()

	docs := store.NewPostgresStore(pool)
	if err := docs.InitSchema(ctx); err != nil {
		return err
	}

	stock := inventory.DefaultStock()
	if err := docs.Put(ctx, cfg.Collections.Inventory, inventory.CurrentDocID, stock); err != nil {
		return fmt.Errorf("failed to seed inventory: %w", err)
	}

	logger.Info("inventory seeded",
		"collection", cfg.Collections.Inventory, "doc_id", inventory.CurrentDocID, "resources", len(stock))
	return nil
}
