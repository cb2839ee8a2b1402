package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/tender"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateReceipt indicates a receipt number collision on checkout completion.
var ErrDuplicateReceipt = errors.New("store: duplicate receipt number")

// Order is the checkout-relevant subset of an order.
type Order struct {
	ID          uuid.UUID
	Status      string
	CustomerID  *uuid.UUID
	VoucherCode string
	COD         bool
	Currency    string
	Lines       []pricing.Line
}

// CustomerPresent reports whether a registered customer is attached to the
// order. Walk-in sales have no customer and cannot redeem vouchers.
func (o Order) CustomerPresent() bool {
	return o.CustomerID != nil
}

// Method is an enabled tender method from the catalog.
type Method struct {
	Kind  tender.MethodKind
	Label string
}

// CompletedCheckout is the terminal write for a checkout session.
type CompletedCheckout struct {
	OrderID       uuid.UUID
	Status        string
	ReceiptNumber string
	Subtotal      pricing.Money
	Discount      pricing.Money
	Total         pricing.Money
	Change        pricing.Money
	VoucherCode   string
	Payments      []tender.Payment
	CompletedAt   time.Time
}

// Order statuses this service reads and writes.
const (
	OrderStatusOpen        = "OPEN"
	OrderStatusPaid        = "PAID"
	OrderStatusAwaitingCOD = "AWAITING_COD"
	OrderStatusCanceled    = "CANCELED"
)

// Store runs hand-written SQL against the POS database.
type Store struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

// New constructs a store bound to the provided pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
