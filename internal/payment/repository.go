package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ridefuture-be/internal/logger"

	"go.uber.org/zap"
)

// Repository maps local catalog entries to objects created at the payment provider.
type Repository interface {
	GetProductRef(ctx context.Context, localKey string) (string, bool, error)
	// SaveProductRef returns the stored remote id, which may come from a concurrent writer.
	SaveProductRef(ctx context.Context, localKey, remoteProductID string) (string, error)
	GetPriceRef(ctx context.Context, remoteProductID string, unitAmount int64, currency string) (string, bool, error)
	SavePriceRef(ctx context.Context, remoteProductID string, unitAmount int64, currency, remotePriceID string) (string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetProductRef(ctx context.Context, localKey string) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT remote_product_id FROM payment_product_refs WHERE local_key = $1`, localKey,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to read product ref", zap.String("key", localKey), zap.Error(err))
		return "", false, fmt.Errorf("get product ref: %w", err)
	}
	return id, true, nil
}

func (r *repository) SaveProductRef(ctx context.Context, localKey, remoteProductID string) (string, error) {
	const q = `
	INSERT INTO payment_product_refs (local_key, remote_product_id)
	VALUES ($1, $2)
	ON CONFLICT (local_key)
	DO UPDATE SET local_key = EXCLUDED.local_key
	RETURNING remote_product_id;
	`

	var stored string
	if err := r.db.QueryRowContext(ctx, q, localKey, remoteProductID).Scan(&stored); err != nil {
		logger.FromCtx(ctx).Error("failed to save product ref", zap.String("key", localKey), zap.Error(err))
		return "", fmt.Errorf("save product ref: %w", err)
	}
	return stored, nil
}

func (r *repository) GetPriceRef(ctx context.Context, remoteProductID string, unitAmount int64, currency string) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT remote_price_id FROM payment_price_refs
		WHERE remote_product_id = $1 AND unit_amount = $2 AND currency = $3`,
		remoteProductID, unitAmount, strings.ToLower(currency),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get price ref: %w", err)
	}
	return id, true, nil
}

func (r *repository) SavePriceRef(ctx context.Context, remoteProductID string, unitAmount int64, currency, remotePriceID string) (string, error) {
	const q = `
	INSERT INTO payment_price_refs (remote_product_id, unit_amount, currency, remote_price_id)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (remote_product_id, unit_amount, currency)
	DO UPDATE SET currency = EXCLUDED.currency
	RETURNING remote_price_id;
	`

	var stored string
	err := r.db.QueryRowContext(ctx, q, remoteProductID, unitAmount, strings.ToLower(currency), remotePriceID).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("save price ref: %w", err)
	}
	return stored, nil
}
