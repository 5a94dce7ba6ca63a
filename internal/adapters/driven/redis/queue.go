package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

const (
	taskStream     = "storyforge:tasks"
	taskGroup      = "storyforge:workers"
	scheduledTasks = "storyforge:scheduled"

	taskKeyPrefix = "storyforge:task:"

	consumerPrefix = "worker-"

	// taskTTL bounds how long task records linger after completion.
	taskTTL = 24 * time.Hour

	// claimTimeout is how long before an unacked task is considered abandoned.
	claimTimeout = 5 * time.Minute
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using Redis Streams. Consumer groups track
// delivery per worker, and unacked messages from dead workers are
// reclaimed after claimTimeout.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed task queue.
// The consumerName should be unique per worker instance (e.g. hostname + PID).
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	q := &Queue{
		client:       client,
		consumerName: consumerName,
	}

	err := q.client.XGroupCreateMkStream(context.Background(), taskStream, taskGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

// Enqueue adds a task to the queue for processing. Tasks scheduled in the
// future go to a sorted set and are promoted to the stream when due.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	taskKey := taskKeyPrefix + task.ID
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKey, taskData, taskTTL)

	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: taskStream,
			Values: streamValues(task),
		})
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// Dequeue retrieves the next available task for processing.
// Blocks until a task is available or the context is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.DequeueWithTimeout(ctx, 0) // 0 means block forever
}

// DequeueWithTimeout retrieves the next available task, waiting up to
// timeout seconds. Returns nil, nil when nothing arrives in time.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// Promote due scheduled tasks first. Best effort.
	_ = q.promoteScheduledTasks(ctx)

	task, err := q.claimAbandonedTask(ctx)
	if err == nil && task != nil {
		return task, nil
	}

	blockDuration := time.Duration(timeout) * time.Second

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    1,
		Block:    blockDuration,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	taskID, ok := msg.Values["task_id"].(string)
	if !ok {
		// Invalid message, acknowledge and skip
		q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
		return nil, nil
	}

	task, err = q.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task data: %w", err)
	}

	if task == nil {
		// Task data expired, acknowledge and skip
		q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	q.storeTask(ctx, task, msg.ID)

	return task, nil
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	msgID, err := q.client.Get(ctx, taskKeyPrefix+taskID+":msg").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	pipe := q.client.Pipeline()

	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}

	task, err := q.GetTask(ctx, taskID)
	if err == nil && task != nil {
		task.MarkCompleted()
		taskData, _ := json.Marshal(task)
		pipe.Set(ctx, taskKeyPrefix+taskID, taskData, taskTTL)
	}

	pipe.Del(ctx, taskKeyPrefix+taskID+":msg")

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to ack task: %w", err)
	}

	return nil
}

// Nack indicates task processing failed. Tasks with attempts remaining are
// re-scheduled with backoff, otherwise they are marked failed.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return errors.New("task not found")
	}

	msgID, _ := q.client.Get(ctx, taskKeyPrefix+taskID+":msg").Result()

	pipe := q.client.Pipeline()

	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}

	if task.CanRetry() {
		task.Retry(reason)
		taskData, _ := json.Marshal(task)
		pipe.Set(ctx, taskKeyPrefix+taskID, taskData, taskTTL)

		pipe.ZAdd(ctx, scheduledTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		task.MarkFailed(reason)
		taskData, _ := json.Marshal(task)
		pipe.Set(ctx, taskKeyPrefix+taskID, taskData, taskTTL)
	}

	pipe.Del(ctx, taskKeyPrefix+taskID+":msg")

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to nack task: %w", err)
	}

	return nil
}

// GetTask retrieves a task by ID. Returns nil, nil when unknown.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// ListTasks retrieves tasks matching the filter criteria.
// This scans all task keys, so it is O(N). Use sparingly.
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task

	err := q.scanTasks(ctx, func(task *domain.Task) bool {
		if filter.Status != "" && task.Status != filter.Status {
			return true
		}
		if filter.Type != "" && task.Type != filter.Type {
			return true
		}
		tasks = append(tasks, task)
		return filter.Limit <= 0 || len(tasks) < filter.Offset+filter.Limit
	})
	if err != nil {
		return nil, err
	}

	if filter.Offset >= len(tasks) {
		return []*domain.Task{}, nil
	}
	if filter.Offset > 0 {
		tasks = tasks[filter.Offset:]
	}
	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}

	return tasks, nil
}

// PurgeTasks removes completed and failed tasks older than the given age.
func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	var purged int

	err := q.scanTasks(ctx, func(task *domain.Task) bool {
		if (task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusFailed) &&
			task.UpdatedAt.Before(cutoff) {
			q.client.Del(ctx, taskKeyPrefix+task.ID)
			purged++
		}
		return true
	})

	return purged, err
}

// Stats returns queue statistics.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	info, err := q.client.XInfoStream(ctx, taskStream).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		// Stream might not exist yet
		if !isStreamNotExistsError(err) {
			return nil, fmt.Errorf("failed to get stream info: %w", err)
		}
	} else if err == nil {
		stats.PendingCount = info.Length
	}

	scheduledCount, err := q.client.ZCard(ctx, scheduledTasks).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get scheduled count: %w", err)
	}
	stats.PendingCount += scheduledCount

	groups, err := q.client.XInfoGroups(ctx, taskStream).Result()
	if err == nil {
		for _, group := range groups {
			if group.Name == taskGroup {
				stats.ProcessingCount = group.Pending
				break
			}
		}
	}

	// Messages claimed by consumers are still counted in the stream length.
	stats.PendingCount -= stats.ProcessingCount
	if stats.PendingCount < 0 {
		stats.PendingCount = 0
	}

	now := time.Now()
	err = q.scanTasks(ctx, func(task *domain.Task) bool {
		switch task.Status {
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		case domain.TaskStatusPending:
			age := int64(now.Sub(task.CreatedAt).Seconds())
			if age > stats.OldestPendingAge {
				stats.OldestPendingAge = age
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources. The Redis client is shared and stays open.
func (q *Queue) Close() error {
	return nil
}

// promoteScheduledTasks moves due scheduled tasks to the main stream.
func (q *Queue) promoteScheduledTasks(ctx context.Context) error {
	now := time.Now().Unix()

	due, err := q.client.ZRangeByScore(ctx, scheduledTasks, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return err
	}

	if len(due) == 0 {
		return nil
	}

	pipe := q.client.Pipeline()

	for _, taskID := range due {
		task, err := q.GetTask(ctx, taskID)
		if err != nil || task == nil {
			pipe.ZRem(ctx, scheduledTasks, taskID)
			continue
		}

		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: taskStream,
			Values: streamValues(task),
		})
		pipe.ZRem(ctx, scheduledTasks, taskID)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandonedTask tries to claim a task left unacked past claimTimeout
// by another worker.
func (q *Queue) claimAbandonedTask(ctx context.Context) (*domain.Task, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: taskStream,
		Group:  taskGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   taskStream,
			Group:    taskGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		msg := claimed[0]
		taskID, ok := msg.Values["task_id"].(string)
		if !ok {
			q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
			q.client.XDel(ctx, taskStream, msg.ID)
			continue
		}

		task, err := q.GetTask(ctx, taskID)
		if err != nil || task == nil {
			q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
			q.client.XDel(ctx, taskStream, msg.ID)
			continue
		}

		task.MarkProcessing()
		q.storeTask(ctx, task, msg.ID)

		return task, nil
	}

	return nil, nil
}

// storeTask persists the task state and the stream message ID used later
// by Ack and Nack.
func (q *Queue) storeTask(ctx context.Context, task *domain.Task, msgID string) {
	taskData, _ := json.Marshal(task)
	q.client.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)
	q.client.Set(ctx, taskKeyPrefix+task.ID+":msg", msgID, taskTTL)
}

// scanTasks iterates all stored tasks, calling fn for each. Iteration
// stops early when fn returns false.
func (q *Queue) scanTasks(ctx context.Context, fn func(*domain.Task) bool) error {
	var cursor uint64
	pattern := taskKeyPrefix + "*"

	for {
		keys, newCursor, err := q.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan tasks: %w", err)
		}

		for _, key := range keys {
			if strings.HasSuffix(key, ":msg") {
				continue
			}

			data, err := q.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}

			var task domain.Task
			if err := json.Unmarshal([]byte(data), &task); err != nil {
				continue
			}

			if !fn(&task) {
				return nil
			}
		}

		cursor = newCursor
		if cursor == 0 {
			return nil
		}
	}
}

func streamValues(task *domain.Task) map[string]interface{} {
	return map[string]interface{}{
		"task_id":  task.ID,
		"type":     string(task.Type),
		"priority": task.Priority,
	}
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

func isStreamNotExistsError(err error) bool {
	return err != nil && (err.Error() == "ERR no such key" ||
		err.Error() == "ERR The XINFO subcommand requires the key to exist")
}