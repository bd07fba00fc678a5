// workers/notification_dispatcher.go
package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"claim-link-service/models"

	"go.uber.org/zap"
)

// Sender delivers one notification to the outside world.
type Sender interface {
	Send(ctx context.Context, n models.ClaimNotification) error
}

// NotificationDispatcher hands committed wins to a Sender off the request
// path. Delivery is at most once: a full queue drops, a failed send is logged
// and forgotten. Once stopped, whatever is still queued is delivered and later
// notifications are dropped and counted.
type NotificationDispatcher struct {
	sender      Sender
	queue       chan models.ClaimNotification
	workers     int
	sendTimeout time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup

	// mu orders Notify against the final drain; closed is set under the write lock.
	mu     sync.RWMutex
	closed bool

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewNotificationDispatcher(sender Sender, queueSize, workers int, sendTimeout time.Duration, logger *zap.Logger) *NotificationDispatcher {
	if workers < 1 {
		workers = 1
	}
	return &NotificationDispatcher{
		sender:      sender,
		queue:       make(chan models.ClaimNotification, queueSize),
		workers:     workers,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Start launches the workers. Cancelling ctx stops intake; the workers
// deliver what is left in the queue and return.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.logger.Info("notification dispatcher started", zap.Int("workers", d.workers), zap.Int("queue", cap(d.queue)))
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Wait blocks until every worker has returned.
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

// Notify enqueues n and returns immediately.
func (d *NotificationDispatcher) Notify(n models.ClaimNotification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "notification dispatcher stopped, dropping")
		return
	}
	select {
	case d.queue <- n:
	default:
		d.drop(n, "notification queue full, dropping")
	}
}

func (d *NotificationDispatcher) drop(n models.ClaimNotification, msg string) {
	d.dropped.Add(1)
	d.logger.Warn(msg,
		zap.String("link_id", n.LinkID),
		zap.String("username", n.Username),
		zap.String("reward", n.Reward),
	)
}

func (d *NotificationDispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(ctx)
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

// drain closes intake and delivers everything already queued.
func (d *NotificationDispatcher) drain(ctx context.Context) {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			return
		}
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, n models.ClaimNotification) {
	// Sends are bounded by sendTimeout only, so a stop signal does not abort
	// a winner that was already accepted.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, n); err != nil {
		d.failed.Add(1)
		d.logger.Error("notification delivery failed",
			zap.String("link_id", n.LinkID),
			zap.String("reward", n.Reward),
			zap.Error(err),
		)
		return
	}
	d.delivered.Add(1)
	d.logger.Info("notification delivered", zap.String("link_id", n.LinkID))
}

// DispatchStats is a snapshot of delivery counters.
type DispatchStats struct {
	Delivered int64
	Failed    int64
	Dropped   int64
}

func (d *NotificationDispatcher) Stats() DispatchStats {
	return DispatchStats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
