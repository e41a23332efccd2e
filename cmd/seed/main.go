// seed inserts development sample data for local testing. Run via ./scripts/seed.sh.
// Idempotent: skips inserts if the dev user (dev) already exists.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ecomconsole/backend/internal/config"
	"ecomconsole/backend/internal/db"
)

const (
	devUsername = "dev"
	devPassword = "password123"
)

type seedRole struct {
	id   int64
	code string
	name string
}

type seedMenu struct {
	code        string
	name        string
	url         string
	description string
	roleID      int64
}

var seedRoles = []seedRole{
	{1, "admin", "Administrator"},
	{2, "superadmin", "Super Administrator"},
	{3, "staff", "Staff"},
}

var seedMenus = []seedMenu{
	{"orders", "Orders", "/api/orders", "Create orders with POST, review with GET", 3},
	{"products", "Products", "/api/products/*", "GET POST PUT DELETE product records", 3},
	{"reports", "Reports", "/api/reports", "GET sales reports", 3},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var exists bool
	err = pool.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", devUsername).Scan(&exists)
	if err != nil {
		log.Fatalf("seed: check dev user: %v", err)
	}
	if exists {
		log.Printf("seed: user %q already exists, nothing to do", devUsername)
		return
	}

	if err := run(ctx, pool); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed: done; login with %s / %s", devUsername, devPassword)
}

func run(ctx context.Context, pool *sql.DB) error {
	tx, err := pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range seedRoles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO roles (id, code, name) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			r.id, r.code, r.name); err != nil {
			return fmt.Errorf("role %s: %w", r.code, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(devPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	var userID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO users (username, name, email, password_hash, active)
		 VALUES ($1, $2, $3, $4, TRUE) RETURNING id`,
		devUsername, "Dev User", "dev@example.com", string(hash)).Scan(&userID); err != nil {
		return fmt.Errorf("dev user: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, 3)`, userID); err != nil {
		return fmt.Errorf("dev user role: %w", err)
	}

	for _, m := range seedMenus {
		var menuID int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO menus (code, name, url, description, active)
			 VALUES ($1, $2, $3, $4, TRUE)
			 ON CONFLICT (code) DO UPDATE SET url = EXCLUDED.url
			 RETURNING id`,
			m.code, m.name, m.url, m.description).Scan(&menuID); err != nil {
			return fmt.Errorf("menu %s: %w", m.code, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_menus (role_id, menu_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			m.roleID, menuID); err != nil {
			return fmt.Errorf("menu grant %s: %w", m.code, err)
		}
	}

	return tx.Commit()
}
