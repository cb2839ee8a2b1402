package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/backend-pos/internal/tender"
)

// ListEnabledMethods returns the tender methods the till may offer, in display
// order. Unknown kinds in the catalog are skipped rather than failing the
// whole listing.
func (s *Store) ListEnabledMethods(ctx context.Context) ([]Method, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("store: not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT kind, label
		FROM payment_methods
		WHERE enabled
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: list payment methods: %w", err)
	}
	defer rows.Close()
	var out []Method
	for rows.Next() {
		var kind, label string
		if err := rows.Scan(&kind, &label); err != nil {
			return nil, fmt.Errorf("store: scan payment method: %w", err)
		}
		parsed, err := tender.ParseMethod(kind)
		if err != nil {
			continue
		}
		out = append(out, Method{Kind: parsed, Label: label})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate payment methods: %w", err)
	}
	return out, nil
}
