package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/methods"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/tender"
	"github.com/noah-isme/backend-pos/internal/voucher"
)

// OrderStore is the persistence surface the checkout service needs.
type OrderStore interface {
	GetOrderForCheckout(ctx context.Context, orderID uuid.UUID) (store.Order, error)
	GetVoucherByCode(ctx context.Context, code string) (voucher.Voucher, error)
	CompleteCheckout(ctx context.Context, cc store.CompletedCheckout) error
}

// MethodCatalog resolves which tender methods the till may accept.
type MethodCatalog interface {
	Available(ctx context.Context) ([]store.Method, error)
	Lookup(ctx context.Context, kind tender.MethodKind) (store.Method, bool, error)
}

// ReceiptEnqueuer schedules receipt delivery after a completed checkout.
type ReceiptEnqueuer interface {
	Enqueue(ctx context.Context, r receipt.Receipt) error
}

// TenderView is one tender in an API response.
type TenderView struct {
	ID        uuid.UUID `json:"id"`
	Method    string    `json:"method"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Reference string    `json:"reference,omitempty"`
}

// SessionView is the derived checkout state returned to the till.
type SessionView struct {
	OrderID       uuid.UUID    `json:"orderId"`
	State         string       `json:"state"`
	Currency      string       `json:"currency"`
	Subtotal      int64        `json:"subtotal"`
	Discount      int64        `json:"discount"`
	AmountDue     int64        `json:"amountDue"`
	TotalTendered int64        `json:"totalTendered"`
	PendingAmount int64        `json:"pendingAmount"`
	Change        int64        `json:"change"`
	Suggestions   []int64      `json:"suggestions,omitempty"`
	Tenders       []TenderView `json:"tenders"`
}

// SubmitView is the response to a successful submission.
type SubmitView struct {
	OrderID       uuid.UUID `json:"orderId"`
	Status        string    `json:"status"`
	ReceiptNumber string    `json:"receiptNumber"`
	Total         int64     `json:"total"`
	Change        int64     `json:"change"`
	CompletedAt   time.Time `json:"completedAt"`
}

// Service drives checkout reconciliation sessions: it opens them from
// persisted orders, applies tenders, and submits the final breakdown.
type Service struct {
	Store      OrderStore
	Methods    MethodCatalog
	Registry   *Registry
	Events     *events.Bus
	Receipts   ReceiptEnqueuer
	Currency   string
	StoreName  string
	Increments []tender.Money
	Logger     zerolog.Logger
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var tracer = otel.Tracer("checkout")

// Open starts (or returns the existing) reconciliation session for an order.
func (s *Service) Open(ctx context.Context, orderID uuid.UUID) (SessionView, error) {
	if s == nil || s.Store == nil || s.Registry == nil {
		return SessionView{}, errors.New("checkout service not configured")
	}
	if existing, ok := s.Registry.Get(orderID); ok {
		return s.view(existing), nil
	}

	order, err := s.Store.GetOrderForCheckout(ctx, orderID)
	if err != nil {
		return SessionView{}, mapStoreError(err)
	}
	if order.Status != store.OrderStatusOpen {
		return SessionView{}, common.NewAppError("ORDER_NOT_OPEN",
			fmt.Sprintf("order is %s and cannot be checked out", order.Status),
			http.StatusConflict, nil)
	}

	totals := pricing.ComputeTotals(order.Lines)
	discount, err := s.resolveDiscount(ctx, totals.Subtotal, order)
	if err != nil {
		return SessionView{}, err
	}

	session, err := tender.NewSession(orderID, totals.Subtotal, discount, order.COD)
	if err != nil {
		return SessionView{}, common.NewAppError("INVALID_ORDER", "order has negative amounts", http.StatusUnprocessableEntity, err)
	}
	session = s.Registry.Put(orderID, session)
	obs.RecordSessionOpened()
	if obs.SessionsLive != nil {
		obs.SessionsLive.Set(float64(s.Registry.Len()))
	}
	s.Logger.Info().
		Str("order_id", orderID.String()).
		Int64("subtotal", totals.Subtotal).
		Int64("discount", discount).
		Bool("cod", order.COD).
		Msg("checkout_session_opened")
	return s.view(session), nil
}

// View returns the current session state.
func (s *Service) View(ctx context.Context, orderID uuid.UUID) (SessionView, error) {
	session, err := s.session(orderID)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(session), nil
}

// AddTender applies a payment toward the amount due.
func (s *Service) AddTender(ctx context.Context, orderID uuid.UUID, method string, amount int64) (SessionView, error) {
	session, err := s.session(orderID)
	if err != nil {
		return SessionView{}, err
	}
	kind, err := tender.ParseMethod(method)
	if err != nil {
		return SessionView{}, common.NewAppError("UNKNOWN_METHOD", err.Error(), http.StatusUnprocessableEntity, err)
	}
	if s.Methods != nil {
		_, enabled, err := s.Methods.Lookup(ctx, kind)
		if err != nil {
			if errors.Is(err, methods.ErrUnavailable) {
				return SessionView{}, common.NewAppError("METHODS_UNAVAILABLE", "payment methods are temporarily unavailable", http.StatusServiceUnavailable, err)
			}
			return SessionView{}, err
		}
		if !enabled {
			return SessionView{}, common.NewAppError("METHOD_DISABLED", string(kind)+" is not enabled for this till", http.StatusUnprocessableEntity, nil)
		}
	}
	if _, err := session.AddPayment(kind, tender.Money(amount)); err != nil {
		return SessionView{}, mapSessionError(err)
	}
	obs.RecordTender(string(kind), amount)
	return s.view(session), nil
}

// RemoveTender removes a previously added payment by its id.
func (s *Service) RemoveTender(ctx context.Context, orderID, tenderID uuid.UUID) (SessionView, error) {
	session, err := s.session(orderID)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.RemovePayment(tenderID); err != nil {
		return SessionView{}, mapSessionError(err)
	}
	return s.view(session), nil
}

// SetReference attaches a transaction reference to a tender.
func (s *Service) SetReference(ctx context.Context, orderID, tenderID uuid.UUID, ref string) (SessionView, error) {
	session, err := s.session(orderID)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.SetReference(tenderID, ref); err != nil {
		return SessionView{}, mapSessionError(err)
	}
	return s.view(session), nil
}

// Confirm acknowledges a multi-tender breakdown.
func (s *Service) Confirm(ctx context.Context, orderID uuid.UUID) (SessionView, error) {
	session, err := s.session(orderID)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.Confirm(); err != nil {
		return SessionView{}, mapSessionError(err)
	}
	return s.view(session), nil
}

// CancelConfirm withdraws a prior confirmation.
func (s *Service) CancelConfirm(ctx context.Context, orderID uuid.UUID) (SessionView, error) {
	session, err := s.session(orderID)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.CancelConfirm(); err != nil {
		return SessionView{}, mapSessionError(err)
	}
	return s.view(session), nil
}

// Cancel abandons the session. The order stays open; only in-memory
// reconciliation state is discarded.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID) error {
	session, err := s.session(orderID)
	if err != nil {
		return err
	}
	if err := session.Cancel(); err != nil {
		return mapSessionError(err)
	}
	s.Registry.Drop(orderID)
	if obs.SessionsLive != nil {
		obs.SessionsLive.Set(float64(s.Registry.Len()))
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicCheckoutCanceled, orderID, map[string]any{
			"orderId": orderID.String(),
		})
	}
	s.Logger.Info().Str("order_id", orderID.String()).Msg("checkout_session_canceled")
	return nil
}

// Submit validates the gates and finalises the checkout. On persistence
// failure the session moves to failed with its tenders preserved; the till
// may submit again.
func (s *Service) Submit(ctx context.Context, orderID uuid.UUID) (SubmitView, error) {
	ctx, span := tracer.Start(ctx, "checkout.submit")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	session, err := s.session(orderID)
	if err != nil {
		return SubmitView{}, err
	}
	order, err := s.Store.GetOrderForCheckout(ctx, orderID)
	if err != nil {
		return SubmitView{}, mapStoreError(err)
	}

	if err := session.BeginSubmit(); err != nil {
		obs.RecordSubmit("rejected")
		return SubmitView{}, mapSessionError(err)
	}

	snap := session.Snapshot()
	completedAt := s.now()
	status := store.OrderStatusPaid
	if order.COD {
		status = store.OrderStatusAwaitingCOD
	}
	change := snap.Change
	if change < 0 {
		change = 0
	}
	cc := store.CompletedCheckout{
		OrderID:       orderID,
		Status:        status,
		ReceiptNumber: s.receiptNumber(completedAt),
		Subtotal:      snap.Subtotal,
		Discount:      snap.Discount,
		Total:         snap.AmountDue,
		Change:        change,
		VoucherCode:   order.VoucherCode,
		Payments:      snap.Payments,
		CompletedAt:   completedAt,
	}

	err = s.Store.CompleteCheckout(ctx, cc)
	session.FinishSubmit(err)
	if err != nil {
		obs.RecordSubmit("failed")
		s.Logger.Error().Err(err).Str("order_id", orderID.String()).Msg("checkout_submit_failed")
		if s.Events != nil {
			_, _ = s.Events.Emit(ctx, events.TopicCheckoutFailed, orderID, map[string]any{
				"orderId": orderID.String(),
				"reason":  err.Error(),
			})
		}
		if errors.Is(err, store.ErrNotFound) {
			return SubmitView{}, common.NewAppError("ORDER_NOT_OPEN", "order was modified by another till", http.StatusConflict, err)
		}
		return SubmitView{}, common.NewAppError("SUBMIT_FAILED", "checkout could not be persisted", http.StatusBadGateway, err)
	}

	obs.RecordSubmit("ok")
	s.Registry.Drop(orderID)
	if obs.SessionsLive != nil {
		obs.SessionsLive.Set(float64(s.Registry.Len()))
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicCheckoutCompleted, orderID, map[string]any{
			"orderId":       orderID.String(),
			"receiptNumber": cc.ReceiptNumber,
			"status":        status,
			"total":         int64(cc.Total),
			"change":        int64(cc.Change),
		})
	}
	if s.Receipts != nil {
		if err := s.Receipts.Enqueue(ctx, s.buildReceipt(cc)); err != nil {
			s.Logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("receipt_enqueue_failed")
		}
	}
	s.Logger.Info().
		Str("order_id", orderID.String()).
		Str("receipt", cc.ReceiptNumber).
		Str("status", status).
		Int64("total", int64(cc.Total)).
		Int64("change", int64(cc.Change)).
		Msg("checkout_completed")

	return SubmitView{
		OrderID:       orderID,
		Status:        status,
		ReceiptNumber: cc.ReceiptNumber,
		Total:         int64(cc.Total),
		Change:        int64(cc.Change),
		CompletedAt:   completedAt,
	}, nil
}

func (s *Service) session(orderID uuid.UUID) (*tender.Session, error) {
	if s == nil || s.Registry == nil {
		return nil, errors.New("checkout service not configured")
	}
	session, ok := s.Registry.Get(orderID)
	if !ok {
		return nil, common.NewAppError("SESSION_NOT_FOUND", "no open checkout session for this order", http.StatusNotFound, nil)
	}
	return session, nil
}

func (s *Service) resolveDiscount(ctx context.Context, subtotal pricing.Money, order store.Order) (pricing.Money, error) {
	if order.VoucherCode == "" {
		return 0, nil
	}
	v, err := s.Store.GetVoucherByCode(ctx, order.VoucherCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, common.NewAppError("VOUCHER_NOT_FOUND", "applied voucher no longer exists", http.StatusUnprocessableEntity, err)
		}
		return 0, mapStoreError(err)
	}
	if err := v.Active(s.now()); err != nil {
		code := "VOUCHER_INACTIVE"
		if errors.Is(err, voucher.ErrVoucherExpired) {
			code = "VOUCHER_EXPIRED"
		}
		return 0, common.NewAppError(code, "applied voucher is not currently valid", http.StatusUnprocessableEntity, err)
	}
	discount, err := voucher.Resolve(subtotal, &v, order.CustomerPresent())
	if err != nil {
		switch {
		case errors.Is(err, voucher.ErrMinimumSpendUnmet):
			gap := voucher.Gap(subtotal, &v)
			return 0, common.NewAppError("VOUCHER_MIN_SPEND",
				fmt.Sprintf("spend %s more to use this voucher", common.FormatVND(int64(gap))),
				http.StatusUnprocessableEntity, err)
		default:
			return 0, common.NewAppError("VOUCHER_INVALID", "applied voucher cannot be resolved", http.StatusUnprocessableEntity, err)
		}
	}
	obs.RecordVoucherDiscount(string(v.Kind), int64(discount))
	return discount, nil
}

func (s *Service) view(session *tender.Session) SessionView {
	snap := session.Snapshot()
	tenders := make([]TenderView, 0, len(snap.Payments))
	for _, p := range snap.Payments {
		tenders = append(tenders, TenderView{
			ID:        p.ID,
			Method:    string(p.Method),
			Amount:    int64(p.Amount),
			Status:    string(p.Status),
			Reference: p.Reference,
		})
	}
	var suggestions []int64
	remaining := snap.AmountDue - snap.TotalTendered - snap.PendingAmount
	for _, v := range tender.Suggest(remaining, s.Increments) {
		suggestions = append(suggestions, int64(v))
	}
	return SessionView{
		OrderID:       session.OrderID(),
		State:         snap.State.String(),
		Currency:      s.currency(),
		Subtotal:      int64(snap.Subtotal),
		Discount:      int64(snap.Discount),
		AmountDue:     int64(snap.AmountDue),
		TotalTendered: int64(snap.TotalTendered),
		PendingAmount: int64(snap.PendingAmount),
		Change:        int64(snap.Change),
		Suggestions:   suggestions,
		Tenders:       tenders,
	}
}

func (s *Service) buildReceipt(cc store.CompletedCheckout) receipt.Receipt {
	payments := make([]receipt.PaymentLine, 0, len(cc.Payments))
	for _, p := range cc.Payments {
		payments = append(payments, receipt.PaymentLine{
			Method:    string(p.Method),
			Amount:    p.Amount,
			Status:    string(p.Status),
			Reference: p.Reference,
		})
	}
	return receipt.Receipt{
		Number:    cc.ReceiptNumber,
		OrderID:   cc.OrderID,
		IssuedAt:  cc.CompletedAt,
		Currency:  s.currency(),
		Subtotal:  cc.Subtotal,
		Discount:  cc.Discount,
		Total:     cc.Total,
		Change:    cc.Change,
		Voucher:   cc.VoucherCode,
		Payments:  payments,
		StoreName: s.StoreName,
	}
}

func (s *Service) currency() string {
	if s.Currency == "" {
		return "VND"
	}
	return s.Currency
}

func (s *Service) receiptNumber(at time.Time) string {
	suffix := uuid.New().String()[:6]
	return fmt.Sprintf("POS-%s-%s", at.Format("20060102"), suffix)
}

func mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return common.NewAppError("ORDER_NOT_FOUND", "order does not exist", http.StatusNotFound, err)
	}
	return common.NewAppError("INTERNAL", "storage error", http.StatusInternalServerError, err)
}

func mapSessionError(err error) error {
	var verr *tender.ValidationError
	switch {
	case errors.As(err, &verr):
		return common.NewAppError(verr.Code, verr.Message, http.StatusUnprocessableEntity, err)
	case errors.Is(err, tender.ErrSubmitInFlight):
		return common.NewAppError("SUBMIT_IN_FLIGHT", "a submission is already in progress", http.StatusConflict, err)
	case errors.Is(err, tender.ErrSessionClosed):
		return common.NewAppError("SESSION_CLOSED", "the checkout session is closed", http.StatusConflict, err)
	default:
		return common.NewAppError("INTERNAL", "session error", http.StatusInternalServerError, err)
	}
}
