package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nexbank-ledger-go/internal/models"

	"go.uber.org/zap"
)

func (s *Service) ListNotifications(ctx context.Context, userId string, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, queryListNotifications, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.Id, &n.UserId, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

// ClaimOutboxJob returns the oldest deliverable pending job with its
// notification, or (nil, nil, nil) when the outbox is drained.
func (s *Service) ClaimOutboxJob(ctx context.Context) (*models.OutboxJob, *models.Notification, error) {
	var job models.OutboxJob
	var n models.Notification
	err := s.db.QueryRowContext(ctx, queryClaimOutboxJob).Scan(
		&job.Id, &job.NotificationId, &job.Channel, &job.Status, &job.Attempts,
		&job.NextAttemptAt, &job.CreatedAt,
		&n.Id, &n.UserId, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to claim outbox job: %w", err)
	}
	return &job, &n, nil
}

func (s *Service) MarkOutboxJob(ctx context.Context, jobId, status string, attempts int) error {
	// Linear backoff keyed on attempt count, same shape for every channel.
	nextAttempt := time.Now().UTC().Add(time.Duration(attempts*10+10) * time.Second)
	_, err := s.db.ExecContext(ctx, queryMarkOutboxJob, status, attempts, nextAttempt, jobId)
	if err != nil {
		return fmt.Errorf("failed to mark outbox job: %w", err)
	}
	return nil
}
