// seed inserts a demo catalog and a test user into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ErlanBelekov/shop-backend/internal/infrastructure/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	seedEmail = "seed@test.local"
	seedName  = "Seed User"
	seedPhone = "+79990000000"
)

type variantSpec struct {
	sku    string
	title  string
	price  string
	stock  int
	active bool
}

type itemSpec struct {
	slug     string
	title    string
	images   []string
	variants []variantSpec
}

var catalog = []itemSpec{
	{"linen-shirt", "Linen shirt", []string{"https://picsum.photos/seed/shirt/800", "https://picsum.photos/seed/shirt2/800"}, []variantSpec{
		{"LS-S", "S", "2490.00", 5, true},
		{"LS-M", "M", "2490.00", 2, true},
		{"LS-L", "L", "2590.00", 0, true}, // out of stock
	}},
	{"canvas-tote", "Canvas tote", []string{"https://picsum.photos/seed/tote/800"}, []variantSpec{
		{"CT-NAT", "Natural", "990.50", 20, true},
		{"CT-BLK", "Black", "990.50", 3, false}, // hidden from sale
	}},
	{"wool-socks", "Wool socks", nil, []variantSpec{
		{"WS-1", "One size", "450.00", 100, true},
	}},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	var userID string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING id`,
		seedEmail, seedName, seedPhone,
	).Scan(&userID)
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	var variants int
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, item := range catalog {
			n, err := seedItem(ctx, tx, item)
			if err != nil {
				return fmt.Errorf("seed %s: %w", item.slug, err)
			}
			variants += n
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:      %s\n", seedEmail)
	fmt.Printf("  User ID:   %s\n", userID)
	fmt.Printf("  Items:     %d\n", len(catalog))
	fmt.Printf("  Variants:  %d\n", variants)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1 — request a sign-in link (printed in the server log locally):")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/api/v1/auth/magic/request \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\"}'\n", seedEmail)
	fmt.Println()
	fmt.Println("  Step 2 — exchange the token for a session:")
	fmt.Println()
	fmt.Println("    curl -s -X POST http://localhost:8080/api/v1/auth/magic/consume \\")
	fmt.Println("      -H 'Content-Type: application/json' -d '{\"token\":\"TOKEN\"}'")
	fmt.Println()
	fmt.Println("  Step 3 — fill the cart and check out:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/api/v1/me/cart -H \"Authorization: Bearer $JWT\"")
}

func seedItem(ctx context.Context, tx pgx.Tx, item itemSpec) (int, error) {
	var itemID string
	err := tx.QueryRow(ctx, `
		INSERT INTO items (slug, title) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET title = EXCLUDED.title
		RETURNING id`,
		item.slug, item.title,
	).Scan(&itemID)
	if err != nil {
		return 0, fmt.Errorf("upsert item: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM item_images WHERE item_id = $1`, itemID); err != nil {
		return 0, fmt.Errorf("reset images: %w", err)
	}
	for i, url := range item.images {
		_, err := tx.Exec(ctx, `
			INSERT INTO item_images (item_id, url, is_main, sort_order) VALUES ($1, $2, $3, $4)`,
			itemID, url, i == 0, i,
		)
		if err != nil {
			return 0, fmt.Errorf("insert image: %w", err)
		}
	}

	for _, v := range item.variants {
		_, err := tx.Exec(ctx, `
			INSERT INTO item_variants (item_id, sku, title, price, stock, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (sku) DO UPDATE
			SET title = EXCLUDED.title, price = EXCLUDED.price,
			    stock = EXCLUDED.stock, is_active = EXCLUDED.is_active`,
			itemID, v.sku, v.title, decimal.RequireFromString(v.price), v.stock, v.active,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert variant %s: %w", v.sku, err)
		}
	}
	return len(item.variants), nil
}
