package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesTypedPayloads(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan struct{}, 3)
	q := New("test", func(_ context.Context, job Job[string]) error {
		mu.Lock()
		seen = append(seen, job.Payload)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, Config{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job[string]{ID: p, Payload: p}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}

	mu.Lock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	mu.Unlock()
	assert.Eventually(t, func() bool { return q.Stats().Processed == 3 }, time.Second, 5*time.Millisecond)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := New("idle", func(context.Context, Job[int]) error { return nil }, Config{})
	err := q.Enqueue(Job[int]{Payload: 1})
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestQueueRetriesUntilLimit(t *testing.T) {
	var attempts atomic.Int32
	q := New("retry", func(context.Context, Job[int]) error {
		attempts.Add(1)
		return errors.New("boom")
	}, Config{MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[int]{ID: "j"}))

	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestQueueWithoutRetries(t *testing.T) {
	var attempts atomic.Int32
	q := New("once", func(context.Context, Job[int]) error {
		attempts.Add(1)
		return errors.New("boom")
	}, Config{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[int]{ID: "j"}))

	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, attempts.Load())
}

func TestQueueStopRejectsEnqueue(t *testing.T) {
	q := New("stopped", func(context.Context, Job[int]) error { return nil }, Config{})
	q.Start(context.Background())
	q.Stop()

	assert.Error(t, q.Enqueue(Job[int]{ID: "late"}))
}

func TestQueueTryEnqueueFailsWhenFull(t *testing.T) {
	release := make(chan struct{})
	running := make(chan struct{}, 1)
	q := New("busy", func(ctx context.Context, _ Job[int]) error {
		running <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, Config{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job[int]{ID: "first"}))
	<-running
	require.NoError(t, q.TryEnqueue(Job[int]{ID: "second"}))

	err := q.TryEnqueue(Job[int]{ID: "third"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, q.Stats().Pending)

	close(release)
	assert.Eventually(t, func() bool { return q.Stats().Processed == 2 }, time.Second, 5*time.Millisecond)
}

func TestQueueTryEnqueueBeforeStart(t *testing.T) {
	q := New("idle", func(context.Context, Job[int]) error { return nil }, Config{})
	assert.ErrorIs(t, q.TryEnqueue(Job[int]{Payload: 1}), ErrNotStarted)
}
