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

// Ensure Queue implements TaskQueue
var _ driven.TaskQueue = (*Queue)(nil)

const taskColumns = `id, type, payload, status, priority,
	attempts, max_attempts, error, created_at, updated_at,
	started_at, completed_at, scheduled_for`

// Queue implements TaskQueue on PostgreSQL using SELECT FOR UPDATE SKIP
// LOCKED, so multiple workers can poll the same table without handing out
// a task twice. This is the fallback queue when Redis is not configured.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a new PostgreSQL-backed task queue.
// The tasks table is created by InitSchema.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue adds a task to the queue.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO tasks (
			id, type, payload, status, priority,
			attempts, max_attempts, error, created_at, updated_at, scheduled_for
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = q.db.ExecContext(ctx, query,
		task.ID,
		task.Type,
		payload,
		task.Status,
		task.Priority,
		task.Attempts,
		task.MaxAttempts,
		task.Error,
		task.CreatedAt,
		task.UpdatedAt,
		task.ScheduledFor,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

// Dequeue retrieves the next available task.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.dequeue(ctx, 0)
}

// DequeueWithTimeout retrieves the next task, waiting up to timeout seconds.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	return q.dequeue(ctx, timeout)
}

func (q *Queue) dequeue(ctx context.Context, timeoutSeconds int) (*domain.Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	selectQuery := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1
		  AND scheduled_for <= NOW()
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	task, err := scanTask(tx.QueryRowContext(ctx, selectQuery, domain.TaskStatusPending))
	if err == sql.ErrNoRows {
		_ = tx.Rollback()

		// Postgres has no blocking read, so poll once after the timeout.
		if timeoutSeconds > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(timeoutSeconds) * time.Second):
				return q.dequeue(ctx, 0)
			}
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}

	now := time.Now()
	updateQuery := `
		UPDATE tasks
		SET status = $1, started_at = $2, updated_at = $3, attempts = attempts + 1
		WHERE id = $4
	`
	_, err = tx.ExecContext(ctx, updateQuery,
		domain.TaskStatusProcessing,
		now,
		now,
		task.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	task.Status = domain.TaskStatusProcessing
	task.StartedAt = &now
	task.UpdatedAt = now
	task.Attempts++

	return task, nil
}

// Ack marks a task as completed.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	now := time.Now()
	query := `
		UPDATE tasks
		SET status = $1, completed_at = $2, updated_at = $3, error = ''
		WHERE id = $4
	`

	result, err := q.db.ExecContext(ctx, query,
		domain.TaskStatusCompleted,
		now,
		now,
		taskID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Nack marks a task as failed, scheduling a retry when attempts remain.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return domain.ErrNotFound
	}

	now := time.Now()

	if task.CanRetry() {
		backoff := time.Duration(1<<task.Attempts) * time.Second
		if backoff > 5*time.Minute {
			backoff = 5 * time.Minute
		}

		query := `
			UPDATE tasks
			SET status = $1, error = $2, updated_at = $3, scheduled_for = $4
			WHERE id = $5
		`
		_, err = q.db.ExecContext(ctx, query,
			domain.TaskStatusPending,
			reason,
			now,
			now.Add(backoff),
			taskID,
		)
	} else {
		query := `
			UPDATE tasks
			SET status = $1, error = $2, updated_at = $3
			WHERE id = $4
		`
		_, err = q.db.ExecContext(ctx, query,
			domain.TaskStatusFailed,
			reason,
			now,
			taskID,
		)
	}

	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

// GetTask retrieves a task by ID. Returns nil, nil when unknown.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(q.db.QueryRowContext(ctx, query, taskID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}

	return task, nil
}

// ListTasks retrieves tasks matching the filter.
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	argIndex := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argIndex)
		args = append(args, filter.Type)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// PurgeTasks removes completed and failed tasks older than the given age.
func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)

	query := `
		DELETE FROM tasks
		WHERE status IN ($1, $2)
		  AND updated_at < $3
	`

	result, err := q.db.ExecContext(ctx, query,
		domain.TaskStatusCompleted,
		domain.TaskStatusFailed,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return int(rows), nil
}

// Stats returns queue statistics.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}

		switch domain.TaskStatus(status) {
		case domain.TaskStatusPending:
			stats.PendingCount = count
		case domain.TaskStatusProcessing:
			stats.ProcessingCount = count
		case domain.TaskStatusCompleted:
			stats.CompletedCount = count
		case domain.TaskStatusFailed:
			stats.FailedCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}

	ageQuery := `
		SELECT EXTRACT(EPOCH FROM (NOW() - MIN(created_at)))::bigint
		FROM tasks
		WHERE status = $1
	`
	var age sql.NullInt64
	err = q.db.QueryRowContext(ctx, ageQuery, domain.TaskStatusPending).Scan(&age)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("query oldest age: %w", err)
	}
	if age.Valid {
		stats.OldestPendingAge = age.Int64
	}

	return stats, nil
}

// Ping checks database connectivity.
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close is a no-op; the db connection is managed externally.
func (q *Queue) Close() error {
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var payload []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.Type,
		&payload,
		&task.Status,
		&task.Priority,
		&task.Attempts,
		&task.MaxAttempts,
		&task.Error,
		&task.CreatedAt,
		&task.UpdatedAt,
		&startedAt,
		&completedAt,
		&task.ScheduledFor,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	return &task, nil
}
