package tender

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Money aliases the pricing representation so callers can stay in one unit system.
type Money = pricing.Money

var (
	// ErrSubmitInFlight is returned when a second submission is attempted while
	// one is already running. The caller must wait for the first to resolve.
	ErrSubmitInFlight = errors.New("tender: submission already in progress")
	// ErrSessionClosed is returned for mutations after the session completed or
	// was canceled.
	ErrSessionClosed = errors.New("tender: session closed")
	// ErrNegativeAmount indicates corrupt upstream data (negative subtotal or
	// discount) handed to NewSession.
	ErrNegativeAmount = errors.New("tender: negative amount")
)

// Validation error codes surfaced to the till for correction.
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeMissingReference    = "MISSING_REFERENCE"
	CodeInsufficientPayment = "INSUFFICIENT_PAYMENT"
	CodeNoTender            = "NO_TENDER"
	CodeConfirmRequired     = "CONFIRM_REQUIRED"
	CodeConfirmNotRequired  = "CONFIRM_NOT_REQUIRED"
	CodeTenderNotFound      = "TENDER_NOT_FOUND"
	CodeNotRetryable        = "NOT_RETRYABLE"
)

// ValidationError is a local, recoverable gating failure. It never alters
// session state; the operator corrects the input and retries.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

// Status tracks whether a tender settles now or later.
type Status string

const (
	// StatusCompleted tenders count toward the immediate change computation.
	StatusCompleted Status = "COMPLETED"
	// StatusPending tenders represent money collected after checkout (COD).
	StatusPending Status = "PENDING"
)

// Payment is a single tender applied toward the amount due. Each payment is
// keyed by a synthetic id assigned at add-time, so duplicate methods (two cash
// tenders, say) can be removed individually.
type Payment struct {
	ID        uuid.UUID
	Method    MethodKind
	Amount    Money
	Status    Status
	Reference string
}

// State is the session lifecycle position.
type State int

const (
	StateEmpty State = iota
	StatePartial
	StateSatisfied
	StateConfirming
	StateSubmitting
	StateCompleted
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateSatisfied:
		return "satisfied"
	case StateConfirming:
		return "confirming"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Snapshot is the derived checkout state, recomputed on every mutation. It has
// no identity of its own.
type Snapshot struct {
	State         State
	Subtotal      Money
	Discount      Money
	AmountDue     Money
	TotalTendered Money
	PendingAmount Money
	Change        Money
	Payments      []Payment
}

// Session reconciles tendered payments against a single order's amount due and
// gates checkout submission. All methods are safe for concurrent use, though a
// session is normally driven by one till at a time.
type Session struct {
	mu        sync.Mutex
	orderID   uuid.UUID
	subtotal  Money
	discount  Money
	cod       bool
	confirmed bool
	state     State
	payments  []Payment
}

// NewSession opens a reconciliation session. A negative subtotal or discount is
// an upstream invariant violation and is rejected outright.
func NewSession(orderID uuid.UUID, subtotal, discount Money, cod bool) (*Session, error) {
	if subtotal < 0 || discount < 0 {
		return nil, ErrNegativeAmount
	}
	return &Session{
		orderID:  orderID,
		subtotal: subtotal,
		discount: discount,
		cod:      cod,
		state:    StateEmpty,
	}, nil
}

// OrderID returns the order this session reconciles.
func (s *Session) OrderID() uuid.UUID {
	return s.orderID
}

// AddPayment appends a tender. COD orders and COD-kind tenders are recorded as
// pending: money to be collected at delivery, excluded from the change
// computation. Returns the stored payment including its synthetic id.
func (s *Session) AddPayment(kind MethodKind, amount Money) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return Payment{}, err
	}
	if amount <= 0 {
		return Payment{}, &ValidationError{Code: CodeInvalidAmount, Message: "tender amount must be positive"}
	}
	status := StatusCompleted
	if s.cod || kind.Deferred() {
		status = StatusPending
	}
	p := Payment{
		ID:     uuid.New(),
		Method: kind,
		Amount: amount,
		Status: status,
	}
	s.payments = append(s.payments, p)
	s.recomputeLocked()
	return p, nil
}

// RemovePayment removes a tender by its synthetic id.
func (s *Session) RemovePayment(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	for i, p := range s.payments {
		if p.ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			s.recomputeLocked()
			return nil
		}
	}
	return &ValidationError{Code: CodeTenderNotFound, Message: "no tender with that id"}
}

// SetReference attaches a transaction reference to a tender.
func (s *Session) SetReference(id uuid.UUID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments[i].Reference = strings.TrimSpace(ref)
			return nil
		}
	}
	return &ValidationError{Code: CodeTenderNotFound, Message: "no tender with that id"}
}

// Confirm acknowledges a multi-tender breakdown. All references must already be
// in place; confirmation is what moves the session out of CONFIRMING.
func (s *Session) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfirming {
		if s.state == StateSubmitting {
			return ErrSubmitInFlight
		}
		return &ValidationError{Code: CodeConfirmNotRequired, Message: "session is not awaiting confirmation"}
	}
	if err := s.validateTendersLocked(); err != nil {
		return err
	}
	s.confirmed = true
	s.recomputeLocked()
	return nil
}

// CancelConfirm withdraws a prior confirmation, returning a multi-tender
// session to CONFIRMING.
func (s *Session) CancelConfirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.confirmed = false
	s.recomputeLocked()
	return nil
}

// BeginSubmit validates the gate conditions and moves the session into
// SUBMITTING. Exactly one submission may be in flight; a concurrent call gets
// ErrSubmitInFlight rather than firing a duplicate request downstream.
func (s *Session) BeginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateCompleted, StateCanceled:
		return ErrSessionClosed
	}
	if len(s.payments) == 0 {
		// A zero-value order cannot auto-pass with no tender.
		return &ValidationError{Code: CodeNoTender, Message: "at least one tender is required"}
	}
	if s.coveredLocked() < s.amountDueLocked() {
		return &ValidationError{Code: CodeInsufficientPayment, Message: "tendered amount does not cover the amount due"}
	}
	if err := s.validateTendersLocked(); err != nil {
		return err
	}
	if len(s.payments) > 1 && !s.confirmed {
		return &ValidationError{Code: CodeConfirmRequired, Message: "multi-tender checkout requires confirmation"}
	}
	s.state = StateSubmitting
	return nil
}

// FinishSubmit resolves an in-flight submission. On failure the tendered
// payments are preserved so the operator can retry without re-entering them.
func (s *Session) FinishSubmit(submitErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return
	}
	if submitErr != nil {
		s.state = StateFailed
		return
	}
	s.state = StateCompleted
}

// Retry returns a failed session to its reconciled state for another attempt.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFailed {
		return &ValidationError{Code: CodeNotRetryable, Message: "session is not in a failed state"}
	}
	s.recomputeLocked()
	return nil
}

// Cancel abandons the session. Not permitted while a submission is in flight:
// the session must first resolve to completed or failed.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateCompleted:
		return ErrSessionClosed
	}
	s.state = StateCanceled
	return nil
}

// Snapshot returns the derived checkout state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	payments := make([]Payment, len(s.payments))
	copy(payments, s.payments)
	tendered, pending := s.sumsLocked()
	return Snapshot{
		State:         s.state,
		Subtotal:      s.subtotal,
		Discount:      s.discount,
		AmountDue:     s.amountDueLocked(),
		TotalTendered: tendered,
		PendingAmount: pending,
		Change:        tendered - s.amountDueLocked(),
		Payments:      payments,
	}
}

func (s *Session) mutableLocked() error {
	switch s.state {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateCompleted, StateCanceled:
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) amountDueLocked() Money {
	return pricing.AmountDue(s.subtotal, s.discount)
}

// sumsLocked splits tendered money into settled-now and collect-later buckets.
func (s *Session) sumsLocked() (tendered, pending Money) {
	for _, p := range s.payments {
		if p.Status == StatusPending {
			pending += p.Amount
			continue
		}
		tendered += p.Amount
	}
	return tendered, pending
}

// coveredLocked is the amount counting toward the submission gate. COD orders
// settle at delivery, so their pending tenders count toward coverage even
// though they are excluded from the change computation.
func (s *Session) coveredLocked() Money {
	tendered, pending := s.sumsLocked()
	if s.cod {
		return tendered + pending
	}
	return tendered
}

func (s *Session) validateTendersLocked() error {
	for _, p := range s.payments {
		if err := p.Method.Validate(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) recomputeLocked() {
	switch s.state {
	case StateSubmitting, StateCompleted, StateCanceled:
		return
	}
	if len(s.payments) == 0 {
		s.state = StateEmpty
		s.confirmed = false
		return
	}
	if s.coveredLocked() < s.amountDueLocked() {
		s.state = StatePartial
		s.confirmed = false
		return
	}
	if len(s.payments) > 1 && !s.confirmed {
		s.state = StateConfirming
		return
	}
	s.state = StateSatisfied
}
