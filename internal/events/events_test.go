package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/taskboard/internal/domain"
)

type recordingSink struct {
	name string
	err  error

	mu      sync.Mutex
	batches [][]Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handle(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type blockingSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Handle(ctx context.Context, _ []Event) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return nil
}

func sampleEvent(kind Kind) Event {
	task := &domain.Task{ID: "t1", ProjectID: "p1"}
	return New(kind, domain.Actor{ID: "u1"}, task, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestKinds(t *testing.T) {
	assert.True(t, TaskMoved.IsActivity())
	assert.False(t, TaskMoved.IsNotification())
	assert.True(t, TaskAssigned.IsActivity())
	assert.True(t, TaskAssigned.IsNotification())
	assert.False(t, DependencyAdded.IsActivity())
	assert.True(t, TaskCompleted.IsNotification())
}

func TestEventBuilders(t *testing.T) {
	e := sampleEvent(TaskMoved).Transition("todo", "doing").With("position", 2)
	assert.Equal(t, "u1", e.ActorID)
	assert.Equal(t, domain.ActorTypeUser, e.ActorType)
	require.NotNil(t, e.FromState)
	assert.Equal(t, "todo", *e.FromState)
	assert.Equal(t, "doing", *e.ToState)
	assert.Equal(t, 2, e.Meta["position"])

	created := sampleEvent(TaskCreated).Transition("", "todo")
	assert.Nil(t, created.FromState)

	var buf Buffer
	buf.Add(e, created)
	assert.Len(t, buf.Events(), 2)
}

func TestDispatcherFansOut(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "failing", err: errors.New("unreachable")}
	d := NewDispatcher(Options{Workers: 2, Buffer: 8}, ok, failing)

	assert.True(t, d.Publish([]Event{sampleEvent(TaskCreated)}))
	assert.True(t, d.Publish([]Event{sampleEvent(TaskMoved), sampleEvent(TaskCompleted)}))
	assert.True(t, d.Publish(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Flush(ctx))
	assert.Equal(t, 2, ok.count())
	assert.Equal(t, 2, failing.count())

	require.NoError(t, d.Close(ctx))
	assert.False(t, d.Publish([]Event{sampleEvent(TaskCreated)}), "closed dispatcher drops")
	require.NoError(t, d.Close(ctx), "close is idempotent")
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(Options{Workers: 1, Buffer: 1, HandoffTimeout: time.Millisecond}, sink)

	require.True(t, d.Publish([]Event{sampleEvent(TaskCreated)}))
	<-sink.started
	assert.True(t, d.Publish([]Event{sampleEvent(TaskCreated)}), "queued behind the busy worker")
	assert.False(t, d.Publish([]Event{sampleEvent(TaskCreated)}), "queue full")

	close(sink.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

type fakeWriter struct {
	records []*domain.ActivityRecord
	err     error
}

func (w *fakeWriter) Insert(_ context.Context, rec *domain.ActivityRecord) error {
	if w.err != nil {
		return w.err
	}
	w.records = append(w.records, rec)
	return nil
}

func TestActivitySink(t *testing.T) {
	w := &fakeWriter{}
	sink := NewActivitySink(w)
	batch := []Event{
		sampleEvent(TaskMoved).Transition("todo", "doing").With("position", 0),
		sampleEvent(DependencyAdded),
		New(TaskAutoProgressed, domain.SystemActor, &domain.Task{ID: "t2", ProjectID: "p1"}, time.Now()),
	}
	require.NoError(t, sink.Handle(context.Background(), batch))
	require.Len(t, w.records, 2)
	assert.Equal(t, "task.moved", w.records[0].Action)
	assert.Equal(t, "todo", *w.records[0].FromState)
	assert.Equal(t, 0, w.records[0].Meta["position"])
	assert.Equal(t, domain.ActorTypeSystem, w.records[1].ActorType)

	w.err = errors.New("disk full")
	err := sink.Handle(context.Background(), batch)
	assert.ErrorContains(t, err, "disk full")
}

func TestRedisSink(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()
	ctx := context.Background()

	sink := NewRedisSink(rc, "board", 2, time.Hour)
	assert.Equal(t, "board:p1", sink.Channel("p1"))

	sub := rc.Subscribe(ctx, sink.Channel("p1"))
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	batch := []Event{
		sampleEvent(TaskMoved),
		sampleEvent(TaskAssigned).With("member_id", "m1"),
		sampleEvent(TaskCompleted),
		sampleEvent(DependencyAdded),
	}
	require.NoError(t, sink.Handle(ctx, batch))

	recent, err := m.List(sink.RecentKey("p1"))
	require.NoError(t, err)
	require.Len(t, recent, 2, "list is capped")

	var newest Event
	require.NoError(t, json.Unmarshal([]byte(recent[0]), &newest))
	assert.Equal(t, DependencyAdded, newest.Kind)
	assert.True(t, m.TTL(sink.RecentKey("p1")) > 0)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var first Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &first))
	assert.Equal(t, TaskAssigned, first.Kind)
	assert.Equal(t, "m1", first.Meta["member_id"])

	t.Run("only activity events", func(t *testing.T) {
		m.FlushAll()
		require.NoError(t, sink.Handle(ctx, []Event{sampleEvent(TaskMoved)}))
		assert.False(t, m.Exists(sink.RecentKey("p1")))
	})

	t.Run("unreachable server", func(t *testing.T) {
		dead := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
		defer dead.Close()
		err := NewRedisSink(dead, "", 0, 0).Handle(ctx, []Event{sampleEvent(TaskAssigned)})
		assert.Error(t, err)
	})
}

func TestLogSink(t *testing.T) {
	assert.Equal(t, "log", LogSink{}.Name())
	assert.NoError(t, LogSink{}.Handle(context.Background(), []Event{sampleEvent(TaskMoved).Transition("a", "b")}))
}
