package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autotrader/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

var tradeSchema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id          TEXT PRIMARY KEY,
		bot_id      TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		side        TEXT NOT NULL,
		quantity    DOUBLE PRECISION NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		exit_price  DOUBLE PRECISION,
		pnl         DOUBLE PRECISION,
		status      TEXT NOT NULL,
		order_id    TEXT NOT NULL DEFAULT '',
		opened_at   TIMESTAMPTZ NOT NULL,
		closed_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS trades_bot_status_idx ON trades (bot_id, status)`,
}

const tradeColumns = `id, bot_id, symbol, side, quantity, entry_price, exit_price, pnl, status, order_id, opened_at, closed_at`

type TradeRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTradeRepository(pool PgxPool, tracer trace.Tracer) *TradeRepository {
	return &TradeRepository{pool: pool, tracer: tracer}
}

func (r *TradeRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "trade-repo.run-migrations")
	defer span.End()
	return execAll(ctx, r.pool, tradeSchema)
}

func (r *TradeRepository) Insert(ctx context.Context, t domain.Trade) error {
	_, span := r.tracer.Start(ctx, "trade-repo.insert")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO trades (`+tradeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.BotID, t.Symbol, string(t.Side), t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL,
		string(t.Status), t.OrderID, t.OpenedAt.UTC(), t.ClosedAt,
	)
	return err
}

// RecentClosed returns up to limit closed trades, newest first.
func (r *TradeRepository) RecentClosed(ctx context.Context, botID string, limit int) ([]domain.Trade, error) {
	_, span := r.tracer.Start(ctx, "trade-repo.recent-closed")
	defer span.End()

	return r.query(ctx,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE bot_id = $1 AND status = $2
		 ORDER BY closed_at DESC
		 LIMIT $3`,
		botID, string(domain.TradeClosed), clampLimit(limit, 10, 200),
	)
}

// OpenPositions returns open trades, oldest first.
func (r *TradeRepository) OpenPositions(ctx context.Context, botID string) ([]domain.Trade, error) {
	_, span := r.tracer.Start(ctx, "trade-repo.open-positions")
	defer span.End()

	return r.query(ctx,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE bot_id = $1 AND status = $2
		 ORDER BY opened_at ASC`,
		botID, string(domain.TradeOpen),
	)
}

func (r *TradeRepository) ClosePosition(ctx context.Context, id string, exitPrice, pnl float64, closedAt time.Time) error {
	_, span := r.tracer.Start(ctx, "trade-repo.close-position")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE trades SET exit_price = $2, pnl = $3, status = $4, closed_at = $5
		 WHERE id = $1 AND status = $6`,
		id, exitPrice, pnl, string(domain.TradeClosed), closedAt.UTC(), string(domain.TradeOpen),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open trade %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *TradeRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Trade, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var t domain.Trade
	var side, status string
	var openedAt time.Time
	var closedAt *time.Time
	err := row.Scan(&t.ID, &t.BotID, &t.Symbol, &side, &t.Quantity, &t.EntryPrice,
		&t.ExitPrice, &t.PnL, &status, &t.OrderID, &openedAt, &closedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Trade{}, ErrNotFound
	}
	if err != nil {
		return domain.Trade{}, err
	}
	t.Side = domain.Action(side)
	t.Status = domain.TradeStatus(status)
	t.OpenedAt = openedAt.UTC()
	if closedAt != nil {
		c := closedAt.UTC()
		t.ClosedAt = &c
	}
	return t, nil
}
