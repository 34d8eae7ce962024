package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autotrader/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var botSchema = []string{
	`CREATE TABLE IF NOT EXISTS bots (
		id                 TEXT PRIMARY KEY,
		owner_id           TEXT NOT NULL,
		name               TEXT NOT NULL DEFAULT '',
		symbol             TEXT NOT NULL,
		status             TEXT NOT NULL DEFAULT 'paused',
		current_balance    DOUBLE PRECISION NOT NULL,
		initial_balance    DOUBLE PRECISION NOT NULL,
		peak_balance       DOUBLE PRECISION NOT NULL DEFAULT 0,
		risk_level         SMALLINT NOT NULL DEFAULT 3,
		max_trade_fraction DOUBLE PRECISION NOT NULL DEFAULT 0.05,
		stop_loss_pct      DOUBLE PRECISION NOT NULL DEFAULT 0,
		take_profit_pct    DOUBLE PRECISION NOT NULL DEFAULT 0,
		daily_trade_count  INTEGER NOT NULL DEFAULT 0,
		total_trades       INTEGER NOT NULL DEFAULT 0,
		closed_trades      INTEGER NOT NULL DEFAULT 0,
		winning_trades     INTEGER NOT NULL DEFAULT 0,
		win_rate           DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_drawdown       DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS bots_owner_status_idx ON bots (owner_id, status)`,
}

const botColumns = `id, owner_id, name, symbol, status, current_balance, initial_balance, peak_balance,
	risk_level, max_trade_fraction, stop_loss_pct, take_profit_pct,
	daily_trade_count, total_trades, closed_trades, winning_trades, win_rate, max_drawdown, updated_at`

type BotRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewBotRepository(pool PgxPool, tracer trace.Tracer) *BotRepository {
	return &BotRepository{pool: pool, tracer: tracer}
}

func (r *BotRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "bot-repo.run-migrations")
	defer span.End()
	return execAll(ctx, r.pool, botSchema)
}

// ListRunning returns running bots for ownerID, or for every owner when
// ownerID is empty.
func (r *BotRepository) ListRunning(ctx context.Context, ownerID string) ([]domain.Bot, error) {
	_, span := r.tracer.Start(ctx, "bot-repo.list-running")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", ownerID))

	sql := `SELECT ` + botColumns + ` FROM bots WHERE status = $1`
	args := []any{string(domain.BotRunning)}
	if ownerID != "" {
		sql += ` AND owner_id = $2`
		args = append(args, ownerID)
	}
	sql += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []domain.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

func (r *BotRepository) Get(ctx context.Context, id string) (domain.Bot, error) {
	_, span := r.tracer.Start(ctx, "bot-repo.get")
	defer span.End()

	row := r.pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id)
	b, err := scanBot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Bot{}, fmt.Errorf("bot %s: %w", id, ErrNotFound)
	}
	return b, err
}

// UpdateState persists the counters and balances the engine owns. Status and
// settings are left alone.
func (r *BotRepository) UpdateState(ctx context.Context, b domain.Bot) error {
	_, span := r.tracer.Start(ctx, "bot-repo.update-state")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE bots SET
		     current_balance = $2,
		     peak_balance = $3,
		     daily_trade_count = $4,
		     total_trades = $5,
		     closed_trades = $6,
		     winning_trades = $7,
		     win_rate = $8,
		     max_drawdown = $9,
		     updated_at = $10
		 WHERE id = $1`,
		b.ID, b.CurrentBalance, b.PeakBalance, b.DailyTradeCount, b.TotalTrades,
		b.ClosedTrades, b.WinningTrades, b.WinRate, b.MaxDrawdown, b.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bot %s: %w", b.ID, ErrNotFound)
	}
	return nil
}

func (r *BotRepository) SetStatus(ctx context.Context, id string, status domain.BotStatus) error {
	_, span := r.tracer.Start(ctx, "bot-repo.set-status")
	defer span.End()

	if !status.IsValid() {
		return fmt.Errorf("invalid bot status %q", status)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE bots SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	return err
}

// ResetDailyTradeCounts zeroes every bot's daily counter and returns how many
// rows changed.
func (r *BotRepository) ResetDailyTradeCounts(ctx context.Context) (int64, error) {
	_, span := r.tracer.Start(ctx, "bot-repo.reset-daily-trade-counts")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE bots SET daily_trade_count = 0, updated_at = NOW() WHERE daily_trade_count <> 0`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanBot(row pgx.Row) (domain.Bot, error) {
	var b domain.Bot
	var status string
	var riskLevel int16
	var updatedAt time.Time
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Name, &b.Symbol, &status,
		&b.CurrentBalance, &b.InitialBalance, &b.PeakBalance,
		&riskLevel, &b.RiskSettings.MaxTradeFraction, &b.RiskSettings.StopLossPct, &b.RiskSettings.TakeProfitPct,
		&b.DailyTradeCount, &b.TotalTrades, &b.ClosedTrades, &b.WinningTrades, &b.WinRate, &b.MaxDrawdown,
		&updatedAt,
	)
	if err != nil {
		return domain.Bot{}, err
	}
	b.Status = domain.BotStatus(status)
	b.RiskSettings.RiskLevel = domain.RiskLevel(riskLevel)
	b.UpdatedAt = updatedAt.UTC()
	if b.PeakBalance < b.CurrentBalance {
		b.PeakBalance = b.CurrentBalance
	}
	return b, nil
}
