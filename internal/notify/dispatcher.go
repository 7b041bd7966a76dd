package notify

import (
	"context"
	"time"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Outbox job statuses
const (
	JobStatusPending = "pending"
	JobStatusSent    = "sent"
	JobStatusFailed  = "failed"
)

// Dispatcher drains the notification outbox. Notifications are written in
// the same commit as the transaction that produced them; delivery happens
// here, asynchronously, so a slow or failing channel never affects a
// committed transaction. Failed deliveries are retried with backoff until
// MaxAttempts, then parked as failed.
type Dispatcher struct {
	store  store.LedgerStore
	sender Sender // nil means log-only delivery
	cfg    models.NotifyConfig
}

func NewDispatcher(st store.LedgerStore, sender Sender, cfg models.NotifyConfig) *Dispatcher {
	return &Dispatcher{store: st, sender: sender, cfg: cfg}
}

// Run polls the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	zap.L().Info("Notification dispatcher started",
		zap.Duration("poll_interval", interval),
		zap.Bool("email_enabled", d.sender != nil))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Notification dispatcher stopped")
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain processes every currently deliverable job.
func (d *Dispatcher) Drain(ctx context.Context) {
	for {
		job, notification, err := d.store.ClaimOutboxJob(ctx)
		if err != nil {
			zap.L().Error("Failed to claim outbox job", zap.Error(err))
			return
		}
		if job == nil {
			return
		}
		d.deliver(ctx, job, notification)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job *models.OutboxJob, n *models.Notification) {
	attempts := job.Attempts + 1

	err := d.send(ctx, n)
	if err == nil {
		if markErr := d.store.MarkOutboxJob(ctx, job.Id, JobStatusSent, attempts); markErr != nil {
			zap.L().Error("Failed to mark outbox job sent", zap.String("job_id", job.Id), zap.Error(markErr))
		}
		zap.L().Debug("Notification delivered",
			zap.String("job_id", job.Id),
			zap.String("channel", job.Channel),
			zap.String("user_id", n.UserId))
		return
	}

	status := JobStatusPending
	if attempts >= d.cfg.MaxAttempts {
		status = JobStatusFailed
	}
	zap.L().Warn("Notification delivery failed",
		zap.String("job_id", job.Id),
		zap.Int("attempts", attempts),
		zap.String("status", status),
		zap.Error(err))
	if markErr := d.store.MarkOutboxJob(ctx, job.Id, status, attempts); markErr != nil {
		zap.L().Error("Failed to mark outbox job", zap.String("job_id", job.Id), zap.Error(markErr))
	}
}

func (d *Dispatcher) send(ctx context.Context, n *models.Notification) error {
	if d.sender == nil {
		// No channel configured; the in-app notification row is the delivery.
		zap.L().Info("Notification (log channel)",
			zap.String("user_id", n.UserId),
			zap.String("title", n.Title),
			zap.String("message", n.Message))
		return nil
	}

	user, err := d.store.GetUserById(ctx, n.UserId)
	if err != nil {
		return err
	}
	return d.sender.Send(n, user.Email)
}
