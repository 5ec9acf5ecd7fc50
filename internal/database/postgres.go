package database

import (
	"context"
	"database/sql"
	"log"

	"go-glidesync/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// PostgresDB wraps the destination relational store. Synced tables
// (gl_accounts, gl_invoices, ...) live here, each carrying a
// glide_row_id column used as the upsert conflict key.
type PostgresDB struct {
	DB *sql.DB
}

// NewPostgres opens the destination database connection with lifecycle management
func NewPostgres(lc fx.Lifecycle, cfg *config.Config) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	log.Println("Connected to Postgres destination store!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Closing Postgres connection...")
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}
