package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
)

// ActivityWriter persists audit records. store.ActivityRepository satisfies it.
type ActivityWriter interface {
	Insert(ctx context.Context, rec *domain.ActivityRecord) error
}

// ActivitySink writes activity events to the audit log.
type ActivitySink struct {
	writer ActivityWriter
}

func NewActivitySink(w ActivityWriter) *ActivitySink {
	return &ActivitySink{writer: w}
}

func (s *ActivitySink) Name() string { return "activity" }

func (s *ActivitySink) Handle(ctx context.Context, batch []Event) error {
	var errs []error
	for _, e := range batch {
		if !e.Kind.IsActivity() {
			continue
		}
		rec := &domain.ActivityRecord{
			ProjectID: e.ProjectID,
			TaskID:    e.TaskID,
			ActorID:   e.ActorID,
			ActorType: e.ActorType,
			Action:    string(e.Kind),
			FromState: e.FromState,
			ToState:   e.ToState,
			Meta:      orm.JSONMap(e.Meta),
			CreatedAt: e.OccurredAt,
		}
		if err := s.writer.Insert(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", e.Kind, e.TaskID, err))
		}
	}
	return errors.Join(errs...)
}

// RedisSink publishes notifications on a per-project channel and keeps the
// most recent ones in a capped list next to it.
type RedisSink struct {
	client *redis.Client
	prefix string
	keep   int64
	ttl    time.Duration
}

func NewRedisSink(client *redis.Client, prefix string, keep int64, ttl time.Duration) *RedisSink {
	if prefix == "" {
		prefix = "taskboard"
	}
	if keep <= 0 {
		keep = 100
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSink{client: client, prefix: prefix, keep: keep, ttl: ttl}
}

func (s *RedisSink) Name() string { return "redis" }

// Channel is the pub/sub channel for a project's notifications.
func (s *RedisSink) Channel(projectID string) string {
	return s.prefix + ":" + projectID
}

// RecentKey is the list holding a project's latest notifications.
func (s *RedisSink) RecentKey(projectID string) string {
	return s.Channel(projectID) + ":recent"
}

func (s *RedisSink) Handle(ctx context.Context, batch []Event) error {
	pipe := s.client.Pipeline()
	queued := 0
	for _, e := range batch {
		if !e.Kind.IsNotification() {
			continue
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.Kind, err)
		}
		key := s.RecentKey(e.ProjectID)
		pipe.Publish(ctx, s.Channel(e.ProjectID), payload)
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, s.keep-1)
		pipe.Expire(ctx, key, s.ttl)
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish notifications: %w", err)
	}
	return nil
}

// LogSink writes every event to the events logger.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Handle(_ context.Context, batch []Event) error {
	for _, e := range batch {
		fields := map[string]interface{}{
			"kind":    e.Kind,
			"project": e.ProjectID,
			"task":    e.TaskID,
			"actor":   e.ActorID,
		}
		if e.FromState != nil {
			fields["from"] = *e.FromState
		}
		if e.ToState != nil {
			fields["to"] = *e.ToState
		}
		logger.Events().WithFields(fields).Info("board event")
	}
	return nil
}
