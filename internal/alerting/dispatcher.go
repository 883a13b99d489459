package alerting

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmfer1/go-emergency-alerts/internal/models"
	"github.com/jmfer1/go-emergency-alerts/internal/worker"
)

// notificationTitle is the fixed push title for every emergency alert.
const notificationTitle = "Emergency Alert"

// PushSender delivers a single push notification to a device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string) error
}

// LogSender logs sends instead of delivering them. Used when no Firebase
// credentials are configured, keeping the service runnable end to end.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, token, title, body string) error {
	slog.Info("push notification (log only)", "token", token, "title", title, "body", body)
	return nil
}

// Dispatcher fans an alert message out to matched responders over a
// bounded worker pool.
type Dispatcher struct {
	sender  PushSender
	pool    *worker.Pool
	timeout time.Duration
}

func NewDispatcher(sender PushSender, numWorkers, bufferSize int, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		pool:    worker.NewPool(numWorkers, bufferSize),
		timeout: timeout,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

func (d *Dispatcher) Stop() {
	d.pool.Stop()
}

// Dispatch sends message to every recipient that has a notification token;
// recipients without one are skipped. Best-effort: a per-recipient failure
// is logged and never aborts the batch, and no delivery accounting is
// returned. Returns once every send has settled.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []models.User, message string) {
	var wg sync.WaitGroup
	for _, u := range recipients {
		if u.FCMToken == "" {
			continue
		}
		wg.Add(1)
		d.pool.Submit(func(ctx context.Context) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := d.sender.Send(sendCtx, u.FCMToken, notificationTitle, message); err != nil {
				pushFailures.Inc()
				slog.Error("push send failed", "user_id", u.ID, "error", err)
				return
			}
			pushSent.Inc()
		})
	}
	wg.Wait()
}
