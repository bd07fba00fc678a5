package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"claim-link-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []models.ClaimNotification
	ctxErrs []error
	err     error
	block   chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, n models.ClaimNotification) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestNotificationDispatcher_Delivers(t *testing.T) {
	sender := &fakeSender{}
	d := NewNotificationDispatcher(sender, 8, 2, time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for _, id := range []string{"a", "b", "c"} {
		d.Notify(models.ClaimNotification{LinkID: id, Username: "alice", Reward: "Alya"})
	}

	require.Eventually(t, func() bool { return d.Stats().Delivered == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, sender.count())

	cancel()
	d.Wait()
}

func TestNotificationDispatcher_FailuresAreCounted(t *testing.T) {
	sender := &fakeSender{err: errors.New("discord down")}
	d := NewNotificationDispatcher(sender, 4, 1, time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Notify(models.ClaimNotification{LinkID: "a"})

	require.Eventually(t, func() bool { return d.Stats().Failed == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), d.Stats().Delivered)
	assert.Equal(t, 1, sender.count(), "failed sends are not retried")

	cancel()
	d.Wait()
}

func TestNotificationDispatcher_DropsWhenFull(t *testing.T) {
	sender := &fakeSender{}
	// Not started: nothing drains the queue.
	d := NewNotificationDispatcher(sender, 2, 1, time.Second, zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Notify(models.ClaimNotification{LinkID: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	assert.Equal(t, int64(3), d.Stats().Dropped)
}

func TestNotificationDispatcher_SendTimeout(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	d := NewNotificationDispatcher(sender, 1, 1, 20*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Notify(models.ClaimNotification{LinkID: "slow"})

	require.Eventually(t, func() bool { return d.Stats().Failed == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	d.Wait()
}

func TestNotificationDispatcher_DeliversQueuedOnStop(t *testing.T) {
	sender := &fakeSender{}
	d := NewNotificationDispatcher(sender, 8, 2, time.Second, zap.NewNop())
	for _, id := range []string{"a", "b", "c"} {
		d.Notify(models.ClaimNotification{LinkID: id})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	assert.Equal(t, DispatchStats{Delivered: 3}, d.Stats())
	require.Equal(t, 3, sender.count())
	for _, err := range sender.ctxErrs {
		assert.NoError(t, err, "stopping must not cancel accepted sends")
	}
}

func TestNotificationDispatcher_NotifyAfterStopIsDropped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sender := &fakeSender{}
	d := NewNotificationDispatcher(sender, 8, 1, time.Second, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()
	d.Wait()

	d.Notify(models.ClaimNotification{LinkID: "late-winner", Username: "alice", Reward: "Alya"})

	assert.Equal(t, DispatchStats{Dropped: 1}, d.Stats())
	assert.Equal(t, 0, sender.count())
	entries := logs.FilterField(zap.String("link_id", "late-winner")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "notification dispatcher stopped, dropping", entries[0].Message)
}
