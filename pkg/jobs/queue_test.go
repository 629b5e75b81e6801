package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attempts struct {
	mu   sync.Mutex
	seen []int
	done chan struct{}
}

func (a *attempts) record(attempt int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, attempt)
	return len(a.seen)
}

func (a *attempts) snapshot() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.seen...)
}

func startQueue(t *testing.T, handler Handler, retries int) *Queue {
	t.Helper()
	q := NewQueue("test", handler, QueueConfig{Workers: 1, MaxRetries: retries, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	t.Cleanup(q.Stop)
	return q
}

func waitDone(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	a := &attempts{done: make(chan struct{})}
	q := startQueue(t, func(_ context.Context, job Job) error {
		if a.record(job.Attempt) < 3 {
			return errors.New("transient")
		}
		close(a.done)
		return nil
	}, 3)

	require.NoError(t, q.Enqueue(Job{ID: "export-1", Kind: "report_export"}))
	waitDone(t, a.done)
	assert.Equal(t, []int{0, 1, 2}, a.snapshot())
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestQueuePermanentErrorIsNotRetried(t *testing.T) {
	a := &attempts{}
	q := startQueue(t, func(_ context.Context, job Job) error {
		a.record(job.Attempt)
		return Permanent(errors.New("form deleted"))
	}, 3)

	require.NoError(t, q.Enqueue(Job{ID: "export-1"}))
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, []int{0}, a.snapshot())
}

func TestQueueDropsAfterMaxRetries(t *testing.T) {
	a := &attempts{}
	q := startQueue(t, func(_ context.Context, job Job) error {
		a.record(job.Attempt)
		return errors.New("always")
	}, 2)

	require.NoError(t, q.Enqueue(Job{ID: "export-1"}))
	assert.Eventually(t, func() bool { return len(a.snapshot()) == 3 && q.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, []int{0, 1, 2}, a.snapshot())
}

func TestQueueIgnoresPendingDuplicate(t *testing.T) {
	release := make(chan struct{})
	a := &attempts{}
	q := startQueue(t, func(_ context.Context, job Job) error {
		a.record(job.Attempt)
		<-release
		return nil
	}, 1)

	require.NoError(t, q.Enqueue(Job{ID: "export-1"}))
	require.NoError(t, q.Enqueue(Job{ID: "export-1"}))
	assert.Equal(t, 1, q.Pending())
	close(release)

	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Len(t, a.snapshot(), 1)
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
	assert.Equal(t, 0, q.Pending())
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	base := errors.New("gone")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}
