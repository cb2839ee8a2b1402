package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-pos/internal/voucher"
)

// GetVoucherByCode loads a voucher for discount resolution.
func (s *Store) GetVoucherByCode(ctx context.Context, code string) (voucher.Voucher, error) {
	if s == nil || s.Pool == nil {
		return voucher.Voucher{}, errors.New("store: not configured")
	}
	var (
		v          voucher.Voucher
		percentBps *int32
		validFrom  *time.Time
		validTo    *time.Time
	)
	row := s.Pool.QueryRow(ctx, `
		SELECT code, kind, value, percent_bps, min_spend, valid_from, valid_to
		FROM vouchers
		WHERE code = $1`, code)
	if err := row.Scan(&v.Code, &v.Kind, &v.Value, &percentBps, &v.MinSpend, &validFrom, &validTo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return voucher.Voucher{}, ErrNotFound
		}
		return voucher.Voucher{}, fmt.Errorf("store: load voucher: %w", err)
	}
	if percentBps != nil {
		v.PercentBps = *percentBps
	}
	v.ValidFrom = validFrom
	v.ValidTo = validTo
	return v, nil
}
