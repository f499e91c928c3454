package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-billing/internal/auth"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/obs"
	"github.com/noah-isme/toko-billing/internal/store"
	"github.com/noah-isme/toko-billing/internal/store/postgres"
)

var items = []model.Item{
	{Name: "Claw Hammer", Type: "Hand Tool", Size: "16oz", CostPrice: 420, SellingPrice: 550, Stock: 25},
	{Name: "Screwdriver Set", Type: "Hand Tool", Size: "6pc", CostPrice: 310, SellingPrice: 420, Stock: 30},
	{Name: "Adjustable Wrench", Type: "Hand Tool", Size: "10in", CostPrice: 380, SellingPrice: 500, Stock: 18},
	{Name: "Measuring Tape", Type: "Measuring", Size: "5m", CostPrice: 150, SellingPrice: 220, Stock: 40},
	{Name: "Wood Screws", Type: "Fastener", Size: "1.5in x100", CostPrice: 90, SellingPrice: 140, Stock: 120},
	{Name: "Steel Nails", Type: "Fastener", Size: "2in 1kg", CostPrice: 160, SellingPrice: 230, Stock: 80},
	{Name: "PVC Pipe", Type: "Plumbing", Size: "1in 10ft", CostPrice: 260, SellingPrice: 350, Stock: 35},
	{Name: "Teflon Tape", Type: "Plumbing", Size: "12mm", CostPrice: 20, SellingPrice: 40, Stock: 200},
	{Name: "Wall Paint", Type: "Paint", Size: "4L", CostPrice: 1800, SellingPrice: 2300, Stock: 12},
	{Name: "Paint Brush", Type: "Paint", Size: "3in", CostPrice: 70, SellingPrice: 110, Stock: 60},
	{Name: "Electric Drill", Type: "Power Tool", Size: "13mm", CostPrice: 5200, SellingPrice: 6500, Stock: 6},
	{Name: "Drill Bits", Type: "Power Tool", Size: "10pc", CostPrice: 450, SellingPrice: 620, Stock: 4},
}

var customers = []model.Customer{
	{Name: "Walk-in Customer", Phone: "0000000000", AccountNumber: "CASH"},
	{Name: "Bilal Builders", Phone: "03001234567", Address: "Ring Road", AccountNumber: "ACC-1001"},
	{Name: "Asha Contractors", Phone: "03111234567", Address: "Main Bazaar", AccountNumber: "ACC-1002"},
	{Name: "Karim Electric", Phone: "03211234567", AccountNumber: "ACC-1003"},
}

func main() {
	var (
		hashPassword = flag.String("hash-password", "", "print the STAFF_PASSWORD_HASH for this password and exit")
		migrateFirst = flag.Bool("migrate", true, "apply migrations before seeding")
	)
	flag.Parse()

	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("hash password")
		}
		fmt.Println(hash)
		return
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if *migrateFirst {
		if err := postgres.Migrate(databaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := seed(ctx, postgres.New(pool), logger); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Msg("seeding completed")
}

type seedStore interface {
	store.Items
	store.Customers
}

// seed inserts the sample catalog and customers. Items are skipped when the
// catalog already has rows; customers are skipped per account number.
func seed(ctx context.Context, s seedStore, logger zerolog.Logger) error {
	existing, err := s.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	if len(existing) == 0 {
		for _, it := range items {
			if _, err := s.CreateItem(ctx, it); err != nil {
				return fmt.Errorf("create item %s: %w", it.Name, err)
			}
		}
		logger.Info().Int("count", len(items)).Msg("items seeded")
	} else {
		logger.Info().Int("existing", len(existing)).Msg("catalog not empty, items skipped")
	}

	created := 0
	for _, c := range customers {
		_, err := s.CreateCustomer(ctx, c)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			continue
		case err != nil:
			return fmt.Errorf("create customer %s: %w", c.Name, err)
		}
		created++
	}
	logger.Info().Int("count", created).Msg("customers seeded")
	return nil
}
