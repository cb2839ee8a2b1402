package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// GetOrderForCheckout loads an order and its lines.
func (s *Store) GetOrderForCheckout(ctx context.Context, orderID uuid.UUID) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("store: not configured")
	}
	var (
		o          Order
		customerID *uuid.UUID
		voucher    *string
	)
	row := s.Pool.QueryRow(ctx, `
		SELECT id, status, customer_id, applied_voucher_code, cod, currency
		FROM orders
		WHERE id = $1`, orderID)
	if err := row.Scan(&o.ID, &o.Status, &customerID, &voucher, &o.COD, &o.Currency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("store: load order: %w", err)
	}
	o.CustomerID = customerID
	if voucher != nil {
		o.VoucherCode = *voucher
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT qty, unit_price, subtotal
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position`, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("store: load order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l pricing.Line
		if err := rows.Scan(&l.Qty, &l.UnitPrice, &l.Subtotal); err != nil {
			return Order{}, fmt.Errorf("store: scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("store: iterate order lines: %w", err)
	}
	return o, nil
}

// CompleteCheckout finalises an order in a single transaction: the order
// status flips, the payment breakdown is persisted, and any voucher
// redemption is recorded.
func (s *Store) CompleteCheckout(ctx context.Context, cc CompletedCheckout) error {
	if s == nil || s.Pool == nil {
		return errors.New("store: not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	completedAt := cc.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2,
		    receipt_number = $3,
		    pricing_subtotal = $4,
		    pricing_discount = $5,
		    pricing_total = $6,
		    change_given = $7,
		    completed_at = $8,
		    updated_at = now()
		WHERE id = $1 AND status = $9`,
		cc.OrderID, cc.Status, cc.ReceiptNumber, cc.Subtotal, cc.Discount,
		cc.Total, cc.Change, completedAt, OrderStatusOpen)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReceipt
		}
		return fmt.Errorf("store: complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	for _, p := range cc.Payments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO payments (id, order_id, method, amount, status, reference, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, cc.OrderID, string(p.Method), p.Amount, string(p.Status), p.Reference, completedAt); err != nil {
			return fmt.Errorf("store: insert payment: %w", err)
		}
	}

	if cc.VoucherCode != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO voucher_redemptions (voucher_code, order_id, amount, redeemed_at)
			VALUES ($1, $2, $3, $4)`,
			cc.VoucherCode, cc.OrderID, cc.Discount, completedAt); err != nil {
			return fmt.Errorf("store: record voucher redemption: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE vouchers SET used_count = used_count + 1 WHERE code = $1`,
			cc.VoucherCode); err != nil {
			return fmt.Errorf("store: bump voucher usage: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit checkout: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
