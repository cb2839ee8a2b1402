package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/events"
)

// InsertDomainEvent persists an emitted event. Implements events.EventStore.
func (s *Store) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	if s == nil || s.Pool == nil {
		return events.Event{}, errors.New("store: not configured")
	}
	var (
		id         uuid.UUID
		occurredAt time.Time
	)
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, occurred_at`, topic, aggregateID, payload)
	if err := row.Scan(&id, &occurredAt); err != nil {
		return events.Event{}, fmt.Errorf("store: insert domain event: %w", err)
	}
	return events.Event{
		ID:          id,
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  occurredAt,
	}, nil
}
