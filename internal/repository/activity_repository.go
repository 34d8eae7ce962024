package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"autotrader/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var activitySchema = []string{
	`CREATE TABLE IF NOT EXISTS bot_activity (
		id          BIGSERIAL PRIMARY KEY,
		bot_id      TEXT NOT NULL,
		kind        TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		data        JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS bot_activity_bot_created_idx ON bot_activity (bot_id, created_at DESC)`,
}

// ActivityRepository is append-only: records are inserted and listed, never
// updated.
type ActivityRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewActivityRepository(pool PgxPool, tracer trace.Tracer) *ActivityRepository {
	return &ActivityRepository{pool: pool, tracer: tracer}
}

func (r *ActivityRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "activity-repo.run-migrations")
	defer span.End()
	return execAll(ctx, r.pool, activitySchema)
}

func (r *ActivityRepository) Append(ctx context.Context, rec domain.ActivityRecord) (domain.ActivityRecord, error) {
	_, span := r.tracer.Start(ctx, "activity-repo.append")
	defer span.End()

	if !rec.Kind.IsValid() || !rec.Status.IsValid() {
		return domain.ActivityRecord{}, fmt.Errorf("invalid activity record kind=%q status=%q", rec.Kind, rec.Status)
	}
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("encode activity data: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO bot_activity (bot_id, kind, title, description, status, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		rec.BotID, string(rec.Kind), rec.Title, rec.Description, string(rec.Status), data, rec.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return domain.ActivityRecord{}, err
	}
	rec.ID = id
	return rec, nil
}

func (r *ActivityRepository) List(ctx context.Context, filter domain.ActivityFilter) ([]domain.ActivityRecord, error) {
	_, span := r.tracer.Start(ctx, "activity-repo.list")
	defer span.End()

	args := make([]any, 0, 3)
	var sb strings.Builder
	sb.WriteString(`SELECT id, bot_id, kind, title, description, status, data, created_at
		FROM bot_activity
		WHERE 1=1`)
	if filter.BotID != "" {
		args = append(args, filter.BotID)
		fmt.Fprintf(&sb, " AND bot_id = $%d", len(args))
	}
	if filter.Kind != nil {
		args = append(args, string(*filter.Kind))
		fmt.Fprintf(&sb, " AND kind = $%d", len(args))
	}
	limit := clampLimit(filter.Limit, 50, 500)
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ActivityRecord, 0, limit)
	for rows.Next() {
		var rec domain.ActivityRecord
		var kind, status string
		var data []byte
		var createdAt time.Time
		if err := rows.Scan(&rec.ID, &rec.BotID, &kind, &rec.Title, &rec.Description, &status, &data, &createdAt); err != nil {
			return nil, err
		}
		rec.Kind = domain.ActivityKind(kind)
		rec.Status = domain.ActivityStatus(status)
		rec.CreatedAt = createdAt.UTC()
		rec.Data = map[string]any{}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &rec.Data); err != nil {
				return nil, fmt.Errorf("decode activity %d data: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
