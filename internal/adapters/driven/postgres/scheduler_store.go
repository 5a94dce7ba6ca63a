package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore implements driven.SchedulerStore using PostgreSQL.
type SchedulerStore struct {
	db *DB
}

// NewSchedulerStore creates a new SchedulerStore.
func NewSchedulerStore(db *DB) *SchedulerStore {
	return &SchedulerStore{db: db}
}

const scheduledTaskColumns = `id, name, type, interval_ns, enabled, payload, next_run, last_run, last_error`

// GetScheduledTask retrieves a scheduled task by ID.
func (s *SchedulerStore) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+scheduledTaskColumns+`
		FROM scheduled_tasks
		WHERE id = $1
	`, id)
	return scanScheduledTask(row)
}

// ListScheduledTasks retrieves all scheduled tasks.
func (s *SchedulerStore) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	return s.query(ctx, `
		SELECT `+scheduledTaskColumns+`
		FROM scheduled_tasks
		ORDER BY name
	`)
}

// SaveScheduledTask creates or updates a scheduled task.
func (s *SchedulerStore) SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, name, type, interval_ns, enabled, payload, next_run, last_run, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			interval_ns = EXCLUDED.interval_ns,
			enabled = EXCLUDED.enabled,
			payload = EXCLUDED.payload,
			next_run = EXCLUDED.next_run,
			last_run = EXCLUDED.last_run,
			last_error = EXCLUDED.last_error
	`, task.ID, task.Name, string(task.Type), int64(task.Interval), task.Enabled,
		payload, task.NextRun, nullTime(task.LastRun), nullString(task.LastError))
	if err != nil {
		return fmt.Errorf("save scheduled task: %w", err)
	}
	return nil
}

// DeleteScheduledTask removes a scheduled task.
func (s *SchedulerStore) DeleteScheduledTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scheduled task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDueScheduledTasks retrieves enabled tasks whose next run has passed.
func (s *SchedulerStore) GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	return s.query(ctx, `
		SELECT `+scheduledTaskColumns+`
		FROM scheduled_tasks
		WHERE enabled AND next_run <= NOW()
		ORDER BY next_run
	`)
}

// UpdateLastRun updates the last run time and advances the next run.
func (s *SchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_tasks
		SET last_run = NOW(),
		    next_run = NOW() + (interval_ns / 1000.0) * INTERVAL '1 microsecond',
		    last_error = $2
		WHERE id = $1
	`, id, nullString(lastError))
	if err != nil {
		return fmt.Errorf("update last run: %w", err)
	}
	return nil
}

func (s *SchedulerStore) query(ctx context.Context, q string, args ...any) ([]*domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query scheduled tasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.ScheduledTask
	for rows.Next() {
		task, err := scanScheduledTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduledTask(row rowScanner) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var intervalNs int64
	var payload []byte
	var lastRun sql.NullTime
	var lastError sql.NullString

	err := row.Scan(&task.ID, &task.Name, &task.Type, &intervalNs, &task.Enabled,
		&payload, &task.NextRun, &lastRun, &lastError)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan scheduled task: %w", err)
	}

	task.Interval = time.Duration(intervalNs)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	if lastRun.Valid {
		task.LastRun = &lastRun.Time
	}
	task.LastError = lastError.String
	return &task, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
