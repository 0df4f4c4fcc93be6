package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/product"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order, items []ItemInput) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
	SetCheckoutSessionRef(ctx context.Context, id int64, ref string) error

	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	Confirm(ctx context.Context, id int64) error
	CancelPending(ctx context.Context, id int64) error
	ExpireStale(ctx context.Context, createdBefore time.Time) (int64, error)

	GetItem(ctx context.Context, itemID int64) (*Item, error)
	AddItem(ctx context.Context, orderID int64, input ItemInput) (*Item, error)
	UpdateItem(ctx context.Context, itemID int64, input UpdateItemInput) (*Item, error)
	RemoveItem(ctx context.Context, itemID int64) error
}

type repository struct {
	db           *sql.DB
	guaranteeFee decimal.Decimal
}

func NewRepository(db *sql.DB, guaranteeFee decimal.Decimal) Repository {
	return &repository{db: db, guaranteeFee: guaranteeFee}
}

const orderSelect = `
	SELECT
		o.id, o.user_id, o.status, o.address, o.city, o.postal_code, o.country, o.phone,
		o.order_notes, o.total_price, o.checkout_session_ref, o.created_at, o.updated_at,
		u.email, u.first_name, u.last_name
	FROM orders o
	JOIN users u ON u.id = o.user_id
	WHERE o.deleted_at IS NULL`

const itemSelect = `
	SELECT
		oi.id, oi.order_id, oi.product_id, p.name, p.price, p.discount_percentage,
		oi.quantity, oi.long_term_guarantee_selected
	FROM order_items oi
	JOIN products p ON p.id = oi.product_id`

func scanOrder(row interface{ Scan(...any) error }) (*Order, error) {
	var o Order
	var notes, sessionRef sql.NullString

	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.Address, &o.City, &o.PostalCode, &o.Country, &o.Phone,
		&notes, &o.TotalPrice, &sessionRef, &o.CreatedAt, &o.UpdatedAt,
		&o.User.Email, &o.User.FirstName, &o.User.LastName,
	)
	if err != nil {
		return nil, err
	}

	o.User.ID = o.UserID
	if notes.Valid {
		o.OrderNotes = &notes.String
	}
	if sessionRef.Valid {
		o.CheckoutSessionRef = &sessionRef.String
	}
	o.Items = []*Item{}
	return &o, nil
}

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	var price, discount decimal.Decimal

	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &price, &discount,
		&it.Quantity, &it.LongTermGuaranteeSelected,
	)
	if err != nil {
		return nil, err
	}

	it.UnitPrice = product.DiscountedPrice(price, discount)
	return &it, nil
}

// recalculateTotal recomputes orders.total_price from the items currently in tx.
func (r *repository) recalculateTotal(ctx context.Context, tx *sql.Tx, orderID int64) (decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT p.price, p.discount_percentage, oi.quantity, oi.long_term_guarantee_selected
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1`, orderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load order lines: %w", err)
	}

	var lines []PricedLine
	for rows.Next() {
		var l PricedLine
		if err := rows.Scan(&l.Price, &l.DiscountPercentage, &l.Quantity, &l.Guarantee); err != nil {
			rows.Close()
			return decimal.Zero, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}

	total := CalculateTotal(lines, r.guaranteeFee)

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET total_price = $1, updated_at = NOW() WHERE id = $2`,
		total, orderID,
	); err != nil {
		return decimal.Zero, fmt.Errorf("update order total: %w", err)
	}
	return total, nil
}

// Create persists the order, its items and the computed total in one transaction.
func (r *repository) Create(ctx context.Context, o *Order, items []ItemInput) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.Int64("user_id", o.UserID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin tx", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, status, address, city, postal_code, country, phone, order_notes, total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
		RETURNING id, created_at, updated_at`,
		o.UserID, StatusPending, o.Address, o.City, o.PostalCode, o.Country, o.Phone, o.OrderNotes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("insert order failed", zap.Error(err))
		return fmt.Errorf("insert order: %w", err)
	}
	o.Status = StatusPending

	o.Items = make([]*Item, 0, len(items))
	for _, in := range items {
		it := &Item{
			OrderID:                   o.ID,
			ProductID:                 in.ProductID,
			Quantity:                  in.Quantity,
			LongTermGuaranteeSelected: in.LongTermGuaranteeSelected,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, long_term_guarantee_selected)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			o.ID, in.ProductID, in.Quantity, in.LongTermGuaranteeSelected,
		).Scan(&it.ID)
		if err != nil {
			log.Error("insert order item failed", zap.Int64("product_id", in.ProductID), zap.Error(err))
			return fmt.Errorf("insert order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}

	total, err := r.recalculateTotal(ctx, tx, o.ID)
	if err != nil {
		log.Error("recalculate total failed", zap.Error(err))
		return err
	}
	o.TotalPrice = total

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return err
	}

	log.Info("CreateOrder success", zap.Int64("order_id", o.ID), zap.String("total", total.StringFixed(2)))
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+" AND o.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetOrder failed", zap.Int64("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := r.attachItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListOrders"),
	)

	where := []string{}
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("o.user_id = $%d", len(args)))
	}

	query := orderSelect
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed ListOrders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		log.Error("failed to attach items", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (r *repository) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.db.QueryContext(ctx, itemSelect+" WHERE oi.order_id = ANY($1) ORDER BY oi.id ASC", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *repository) SetCheckoutSessionRef(ctx context.Context, id int64, ref string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET checkout_session_ref = $1, updated_at = NOW() WHERE id = $2`, ref, id)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to store checkout session", zap.Int64("order_id", id), zap.Error(err))
		return fmt.Errorf("set checkout session ref: %w", err)
	}
	return nil
}

// UpdateStatus is a compare-and-set on the current status.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND deleted_at IS NULL`,
		to, id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Confirm moves a pending order to confirmed and takes its items out of stock.
// Either every product has enough stock and all changes commit, or nothing does.
func (r *repository) Confirm(ctx context.Context, id int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ConfirmOrder"),
		zap.Int64("order_id", id),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin tx", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND deleted_at IS NULL`,
		StatusConfirmed, id, StatusPending)
	if err != nil {
		return fmt.Errorf("confirm order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotPending
	}

	// product id order keeps row locks consistent across concurrent confirmations
	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, SUM(quantity)
		FROM order_items
		WHERE order_id = $1
		GROUP BY product_id
		ORDER BY product_id`, id)
	if err != nil {
		return fmt.Errorf("load order quantities: %w", err)
	}

	type demand struct {
		productID int64
		quantity  int
	}
	var demands []demand
	for rows.Next() {
		var d demand
		if err := rows.Scan(&d.productID, &d.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scan order quantity: %w", err)
		}
		demands = append(demands, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range demands {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1`,
			d.quantity, d.productID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			log.Warn("insufficient stock", zap.Int64("product_id", d.productID), zap.Int("quantity", d.quantity))
			return ErrInsufficientStock
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return err
	}

	log.Info("order confirmed", zap.Int("products", len(demands)))
	return nil
}

// CancelPending marks a pending order canceled and hides it from reads.
func (r *repository) CancelPending(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = $3 AND deleted_at IS NULL`,
		StatusCanceled, id, StatusPending)
	if err != nil {
		logger.FromCtx(ctx).Error("cancel order failed", zap.Int64("order_id", id), zap.Error(err))
		return fmt.Errorf("cancel order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}

// ExpireStale cancels abandoned pending orders the same way CancelPending does.
func (r *repository) ExpireStale(ctx context.Context, createdBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, deleted_at = NOW(), updated_at = NOW()
		WHERE status = $2 AND deleted_at IS NULL AND created_at < $3`,
		StatusCanceled, StatusPending, createdBefore)
	if err != nil {
		return 0, fmt.Errorf("expire stale orders: %w", err)
	}
	return res.RowsAffected()
}

func (r *repository) GetItem(ctx context.Context, itemID int64) (*Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, itemSelect+`
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.id = $1 AND o.deleted_at IS NULL`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order item: %w", err)
	}
	return it, nil
}

// lockPendingOrder locks the order row for the rest of tx and checks it is still editable.
func lockPendingOrder(ctx context.Context, tx *sql.Tx, orderID int64) error {
	var status Status
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, orderID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if status != StatusPending {
		return ErrNotPending
	}
	return nil
}

func (r *repository) orderIDForItem(ctx context.Context, tx *sql.Tx, itemID int64) (int64, error) {
	var orderID int64
	err := tx.QueryRowContext(ctx, `SELECT order_id FROM order_items WHERE id = $1`, itemID).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find order item: %w", err)
	}
	return orderID, nil
}

func (r *repository) AddItem(ctx context.Context, orderID int64, input ItemInput) (*Item, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "AddOrderItem"),
		zap.Int64("order_id", orderID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := lockPendingOrder(ctx, tx, orderID); err != nil {
		return nil, err
	}

	var itemID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, long_term_guarantee_selected)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		orderID, input.ProductID, input.Quantity, input.LongTermGuaranteeSelected,
	).Scan(&itemID)
	if err != nil {
		log.Error("insert order item failed", zap.Error(err))
		return nil, fmt.Errorf("insert order item: %w", err)
	}

	if _, err := r.recalculateTotal(ctx, tx, orderID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info("order item added", zap.Int64("item_id", itemID))
	return r.GetItem(ctx, itemID)
}

func (r *repository) UpdateItem(ctx context.Context, itemID int64, input UpdateItemInput) (*Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	orderID, err := r.orderIDForItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if err := lockPendingOrder(ctx, tx, orderID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE order_items
		SET quantity = COALESCE($1, quantity),
			long_term_guarantee_selected = COALESCE($2, long_term_guarantee_selected)
		WHERE id = $3`,
		input.Quantity, input.LongTermGuaranteeSelected, itemID)
	if err != nil {
		return nil, fmt.Errorf("update order item: %w", err)
	}

	if _, err := r.recalculateTotal(ctx, tx, orderID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetItem(ctx, itemID)
}

func (r *repository) RemoveItem(ctx context.Context, itemID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	orderID, err := r.orderIDForItem(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if err := lockPendingOrder(ctx, tx, orderID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}

	if _, err := r.recalculateTotal(ctx, tx, orderID); err != nil {
		return err
	}
	return tx.Commit()
}
