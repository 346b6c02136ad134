//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"

	"kitchen-orders/internal/config"

	"github.com/jackc/pgx/v5"
)

// Checks that the configured database is reachable and reports which schema
// tables exist. Run with: go run scripts/check_db.go
func main() {
	cfg := config.DatabaseConfig{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     5432,
		User:     envOr("DB_USER", "postgres"),
		Password: envOr("DB_PASSWORD", "postgres"),
		Database: envOr("DB_NAME", "kitchen"),
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	var dbName string
	if err := conn.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	fmt.Println("\nSchema tables:")
	for _, table := range []string{"categories", "products", "clients", "orders", "order_lines", "payments"} {
		var exists bool
		if err := conn.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists); err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		status := "missing"
		if exists {
			status = "present"
		}
		fmt.Printf("  - %-12s %s\n", table, status)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
