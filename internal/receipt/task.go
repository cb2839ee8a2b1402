package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

// TaskDeliver is the asynq task type for receipt delivery.
const TaskDeliver = "receipt:deliver"

// Enqueuer hands receipts to the background worker for delivery.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
}

// Enqueue schedules delivery of the receipt. Delivery is asynchronous and
// retried by the worker; checkout completion never waits on it.
func (e *Enqueuer) Enqueue(ctx context.Context, r Receipt) error {
	if e == nil || e.Client == nil {
		return errors.New("receipt: enqueuer not configured")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("receipt: marshal payload: %w", err)
	}
	queue := e.Queue
	if queue == "" {
		queue = "default"
	}
	task := asynq.NewTask(TaskDeliver, payload)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("receipt: enqueue delivery: %w", err)
	}
	return nil
}

// Deliverer posts rendered receipts to the configured printing endpoint.
type Deliverer struct {
	HTTP     *resilience.HTTPClient
	Endpoint string
	Logger   zerolog.Logger
}

type deliverBody struct {
	Receipt Receipt `json:"receipt"`
	Text    string  `json:"text"`
}

// HandleDeliver processes a receipt:deliver task. Returning an error lets
// asynq retry with its own backoff.
func (d *Deliverer) HandleDeliver(ctx context.Context, task *asynq.Task) error {
	if d == nil || d.HTTP == nil || d.Endpoint == "" {
		return errors.New("receipt: deliverer not configured")
	}
	var r Receipt
	if err := json.Unmarshal(task.Payload(), &r); err != nil {
		// malformed payloads will never succeed, skip retries
		return fmt.Errorf("receipt: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	body, err := json.Marshal(deliverBody{Receipt: r, Text: Render(r)})
	if err != nil {
		return fmt.Errorf("receipt: marshal delivery: %v: %w", err, asynq.SkipRetry)
	}
	req, err := http.NewRequest(http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("receipt: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.HTTP.Do(ctx, req, body)
	if err != nil {
		obs.RecordReceiptDelivery("error")
		d.Logger.Warn().Err(err).Str("receipt", r.Number).Msg("receipt_delivery_failed")
		return err
	}
	defer resp.Body.Close()
	obs.RecordReceiptDelivery("ok")
	d.Logger.Info().Str("receipt", r.Number).Str("order_id", r.OrderID.String()).Msg("receipt_delivered")
	return nil
}
