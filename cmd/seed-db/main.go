// Command seed-db applies the schema and loads baseline data: the walk-in
// user, demo product variants, a loyalty card, a salesperson, and an admin
// API key. Safe to re-run; every statement upserts.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/evostore/storefront-api/internal/domain/customer"
	"github.com/evostore/storefront-api/internal/postgres"
)

type variantJSON struct {
	ProductName string          `json:"productName"`
	Category    string          `json:"category"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
	Barcode     string          `json:"barcode"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	WalletCost  decimal.Decimal `json:"walletCost"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		variantsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&variantsFile, "variants-file", "db/seed/variants.json", "path to variants JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or STORE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, variantsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, variantsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedWalkInUser(ctx, pool); err != nil {
		return errors.Wrap(err, "seed walk-in user")
	}
	if err := seedVariants(ctx, pool, variantsFile); err != nil {
		return errors.Wrap(err, "seed variants")
	}
	if err := seedLoyaltyAndSales(ctx, pool); err != nil {
		return errors.Wrap(err, "seed loyalty and salespersons")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

// seedWalkInUser pins the anonymous POS user at its fixed ID so offline
// orders always have somewhere to hang.
func seedWalkInUser(ctx context.Context, pool *pgxpool.Pool) error {
	const upsertWalkIn = `INSERT INTO users (id, name) VALUES ($1, 'Walk-in Customer')
		ON CONFLICT (id) DO NOTHING`

	if _, err := pool.Exec(ctx, upsertWalkIn, customer.WalkInID); err != nil {
		return err
	}
	// Keep the sequence ahead of the fixed ID.
	const bumpSeq = `SELECT setval('users_id_seq', GREATEST((SELECT MAX(id) FROM users), 1))`
	_, err := pool.Exec(ctx, bumpSeq)
	return err
}

func seedVariants(ctx context.Context, pool *pgxpool.Pool, variantsFile string) error {
	slog.Info("reading variants file", slog.String("path", variantsFile))

	data, err := os.ReadFile(variantsFile)
	if err != nil {
		return errors.Wrap(err, "read variants file")
	}

	var variants []variantJSON
	if err := json.Unmarshal(data, &variants); err != nil {
		return errors.Wrap(err, "parse variants JSON")
	}

	slog.Info("upserting variants", slog.Int("count", len(variants)))

	const upsertVariant = `INSERT INTO product_variants
		(product_name, category, color, size, barcode, price, discount, tax, wallet_cost, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (barcode) DO UPDATE SET
			product_name = excluded.product_name,
			category = excluded.category,
			color = excluded.color,
			size = excluded.size,
			price = excluded.price,
			discount = excluded.discount,
			tax = excluded.tax,
			wallet_cost = excluded.wallet_cost,
			stock = excluded.stock`

	for _, v := range variants {
		if _, err := pool.Exec(ctx, upsertVariant,
			v.ProductName, v.Category, v.Color, v.Size, v.Barcode,
			v.Price, v.Discount, v.Tax, v.WalletCost, v.Stock,
		); err != nil {
			return errors.Wrapf(err, "upsert variant %s", v.Barcode)
		}
		slog.Info("upserted variant", slog.String("barcode", v.Barcode), slog.String("name", v.ProductName))
	}

	return nil
}

func seedLoyaltyAndSales(ctx context.Context, pool *pgxpool.Pool) error {
	const upsertCard = `INSERT INTO loyalty_cards (barcode, discount) VALUES ($1, $2)
		ON CONFLICT (barcode) DO UPDATE SET discount = excluded.discount`

	// Demo loyalty card with a checksum-valid EAN-13.
	if _, err := pool.Exec(ctx, upsertCard, "4006381333931", decimal.NewFromInt(10)); err != nil {
		return errors.Wrap(err, "upsert loyalty card")
	}
	slog.Info("upserted loyalty card", slog.String("barcode", "4006381333931"))

	const upsertPerson = `INSERT INTO sales_persons (name, commission)
		SELECT $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM sales_persons WHERE name = $1)`

	if _, err := pool.Exec(ctx, upsertPerson, "Demo Salesperson", decimal.RequireFromString("2.5")); err != nil {
		return errors.Wrap(err, "upsert salesperson")
	}
	slog.Info("upserted salesperson", slog.String("name", "Demo Salesperson"))

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	const upsertKey = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET key_hash = excluded.key_hash`

	if _, err := pool.Exec(ctx, upsertKey,
		"default", keyHash, "Default admin key", []string{"orders:write"},
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
