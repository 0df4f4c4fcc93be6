package newsletter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ridefuture-be/internal/db"
	"ridefuture-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Subscribe(ctx context.Context, email string) (*Subscriber, error)
	CountSubscribers(ctx context.Context) (int64, error)
	// CreateNewsletter stores the newsletter and queues one delivery per subscriber.
	CreateNewsletter(ctx context.Context, input CreateNewsletterInput) (*Newsletter, error)
	// ProcessPending locks up to limit due deliveries, hands them to send and
	// records what send reports, all in one transaction.
	ProcessPending(ctx context.Context, limit int, send func(context.Context, []Delivery) []Result) (int, error)
	DeliveryStats(ctx context.Context) (map[DeliveryStatus]int64, error)
}

type repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) Subscribe(ctx context.Context, email string) (*Subscriber, error) {
	var s Subscriber
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO subscribers (email) VALUES ($1)
		RETURNING id, email, created_at`, email,
	).Scan(&s.ID, &s.Email, &s.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadySubscribed
		}
		logger.FromCtx(ctx).Error("failed to insert subscriber", zap.Error(err))
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &s, nil
}

func (r *repository) CountSubscribers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

func (r *repository) CreateNewsletter(ctx context.Context, input CreateNewsletterInput) (*Newsletter, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateNewsletter"),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin tx", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	n := Newsletter{Subject: input.Subject, Message: input.Message}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO newsletters (subject, message) VALUES ($1, $2)
		RETURNING id, created_at`, input.Subject, input.Message,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		log.Error("insert newsletter failed", zap.Error(err))
		return nil, fmt.Errorf("insert newsletter: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO newsletter_deliveries (newsletter_id, email, status)
		SELECT $1, email, $2 FROM subscribers`, n.ID, DeliveryPending)
	if err != nil {
		log.Error("queue deliveries failed", zap.Error(err))
		return nil, fmt.Errorf("queue deliveries: %w", err)
	}
	n.Recipients, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return nil, err
	}

	log.Info("newsletter queued", zap.Int64("newsletter_id", n.ID), zap.Int64("recipients", n.Recipients))
	return &n, nil
}

func (r *repository) ProcessPending(ctx context.Context, limit int, send func(context.Context, []Delivery) []Result) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT d.id, d.newsletter_id, d.email, d.attempts, n.subject, n.message
		FROM newsletter_deliveries d
		JOIN newsletters n ON n.id = d.newsletter_id
		WHERE (d.status = $1 OR (d.status = $2 AND d.updated_at < $5)) AND d.attempts < $3
		ORDER BY d.id
		LIMIT $4
		FOR UPDATE OF d SKIP LOCKED`,
		DeliveryPending, DeliveryFailed, MaxAttempts, limit, r.now().Add(-RetryDelay))
	if err != nil {
		return 0, fmt.Errorf("claim deliveries: %w", err)
	}

	var batch []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.NewsletterID, &d.Email, &d.Attempts, &d.Subject, &d.Message); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan delivery: %w", err)
		}
		batch = append(batch, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	for _, res := range send(ctx, batch) {
		if res.Err == nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE newsletter_deliveries
				SET status = $1, attempts = attempts + 1, last_error = NULL, updated_at = NOW()
				WHERE id = $2`, DeliverySent, res.DeliveryID)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE newsletter_deliveries
				SET status = $1, attempts = attempts + 1, last_error = $2, updated_at = NOW()
				WHERE id = $3`, DeliveryFailed, res.Err.Error(), res.DeliveryID)
		}
		if err != nil {
			return 0, fmt.Errorf("record delivery %d: %w", res.DeliveryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func (r *repository) DeliveryStats(ctx context.Context) (map[DeliveryStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM newsletter_deliveries GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("delivery stats: %w", err)
	}
	defer rows.Close()

	stats := map[DeliveryStatus]int64{}
	for rows.Next() {
		var status DeliveryStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats[status] = n
	}
	return stats, rows.Err()
}
