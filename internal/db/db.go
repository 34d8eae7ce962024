package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var Pool *pgxpool.Pool

// InitPostgres connects Pool to dsn. An empty dsn leaves Pool nil.
func InitPostgres(ctx context.Context, dsn string) error {
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, skipping Postgres connection")
		return nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	Pool = pool
	log.Info().Msg("Connected to Postgres")
	return nil
}
