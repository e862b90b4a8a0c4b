// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"chefdeck/internal/core/id"
	"chefdeck/internal/core/tenant"
	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/domain/counting"
	"chefdeck/internal/infrastructure/storage/postgres"
	"chefdeck/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}

	txm := postgres.NewTxManager(pool)

	bot, err := seedBot(ctx, pool)
	if err != nil {
		log.Fatalw("failed to seed bot config", "error", err)
	}
	log.Infow("bot config ready", "bot_id", bot.BotID, "name", bot.Name)

	// All further rows belong to this bot.
	ctx = tenant.WithTenant(ctx, bot)

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedCatalog(ctx, txm); err != nil {
			log.Fatalw("failed to seed catalog", "error", err)
		}
		if err := seedCycle(ctx, txm); err != nil {
			log.Fatalw("failed to seed demo cycle", "error", err)
		}
		log.Info("demo data seeded")
	}

	log.Info("seeding complete")
}

// seedBot upserts the bot_configs row described by BOT_ID/BOT_NAME/BOT_TOKEN/
// BOT_OWNER_ID, defaulting to the single-venue fallback tenant.
func seedBot(ctx context.Context, pool *postgres.Pool) (*tenant.Tenant, error) {
	ownerID, _ := strconv.ParseInt(os.Getenv("BOT_OWNER_ID"), 10, 64)
	bot := &tenant.Tenant{
		BotID:   envOr("BOT_ID", tenant.DefaultBotID),
		Name:    envOr("BOT_NAME", "Default venue"),
		Token:   os.Getenv("BOT_TOKEN"),
		OwnerID: ownerID,
	}

	_, err := pool.Unwrap().Exec(ctx, `
		INSERT INTO bot_configs (bot_id, name, token, owner_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bot_id) DO UPDATE SET
			name = EXCLUDED.name,
			token = EXCLUDED.token,
			owner_id = EXCLUDED.owner_id`,
		bot.BotID, bot.Name, bot.Token, bot.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("upsert bot config: %w", err)
	}
	return bot, nil
}

func seedCatalog(ctx context.Context, txm *postgres.TxManager) error {
	repo := postgres.NewCatalogRepo(txm)
	return repo.UpsertMany(ctx, []catalog.Item{
		{Code: "1001", Name: "Мука пшеничная", Unit: "кг"},
		{Code: "1002", Name: "Сахар", Unit: "кг"},
		{Code: "1003", Name: "Соль", Unit: "кг"},
		{Code: "1004", Name: "Масло растительное", Unit: "л"},
		{Code: "1005", Name: "Молоко 3.2%", Unit: "л"},
		{Code: "2001", Name: "Кола 0.5", Unit: "шт"},
		{Code: "2002", Name: "Сок апельсиновый", Unit: "л"},
		{Code: "3001", Name: "Сыр моцарелла", Unit: "кг"},
		{Code: "3002", Name: "Томаты", Unit: "кг"},
		{Code: "3003", Name: "Курица филе", Unit: "кг"},
	})
}

// seedCycle creates an empty working cycle with the two usual stations, so a
// fresh install opens onto something countable.
func seedCycle(ctx context.Context, txm *postgres.TxManager) error {
	repo := postgres.NewCycleRepo(txm)

	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if !c.IsFinalized {
			return nil // a working cycle already exists, leave it alone
		}
	}

	c := counting.NewCycle(envOr("BOT_NAME", "seed"), time.Now())
	c.Sheets = []counting.Sheet{
		{ID: id.New(), Title: "Кухня", Items: make([]counting.Item, 0), Status: counting.StatusActive},
		{ID: id.New(), Title: "Бар", Items: make([]counting.Item, 0), Status: counting.StatusActive},
	}
	return repo.Upsert(ctx, c)
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
