package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/methods"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/tender"
	"github.com/noah-isme/backend-pos/internal/voucher"
)

type fakeOrderStore struct {
	orders    map[uuid.UUID]store.Order
	vouchers  map[string]voucher.Voucher
	completed []store.CompletedCheckout
	failWith  error
}

func (f *fakeOrderStore) GetOrderForCheckout(_ context.Context, orderID uuid.UUID) (store.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return store.Order{}, store.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) GetVoucherByCode(_ context.Context, code string) (voucher.Voucher, error) {
	v, ok := f.vouchers[code]
	if !ok {
		return voucher.Voucher{}, store.ErrNotFound
	}
	return v, nil
}

func (f *fakeOrderStore) CompleteCheckout(_ context.Context, cc store.CompletedCheckout) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.completed = append(f.completed, cc)
	o := f.orders[cc.OrderID]
	o.Status = cc.Status
	f.orders[cc.OrderID] = o
	return nil
}

type fakeCatalog struct {
	enabled []tender.MethodKind
	err     error
}

func (f *fakeCatalog) Available(_ context.Context) ([]store.Method, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]store.Method, 0, len(f.enabled))
	for _, k := range f.enabled {
		out = append(out, store.Method{Kind: k, Label: string(k)})
	}
	return out, nil
}

func (f *fakeCatalog) Lookup(ctx context.Context, kind tender.MethodKind) (store.Method, bool, error) {
	listed, err := f.Available(ctx)
	if err != nil {
		return store.Method{}, false, err
	}
	for _, m := range listed {
		if m.Kind == kind {
			return m, true, nil
		}
	}
	return store.Method{}, false, nil
}

type fakeEnqueuer struct {
	receipts []receipt.Receipt
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, r receipt.Receipt) error {
	f.receipts = append(f.receipts, r)
	return nil
}

type memEventStore struct {
	events []events.Event
}

func (m *memEventStore) InsertDomainEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	m.events = append(m.events, ev)
	return ev, nil
}

func newTestService(orders ...store.Order) (*Service, *fakeOrderStore, *fakeEnqueuer, *memEventStore) {
	st := &fakeOrderStore{orders: map[uuid.UUID]store.Order{}, vouchers: map[string]voucher.Voucher{}}
	for _, o := range orders {
		st.orders[o.ID] = o
	}
	enq := &fakeEnqueuer{}
	evs := &memEventStore{}
	svc := &Service{
		Store:    st,
		Methods:  &fakeCatalog{enabled: []tender.MethodKind{tender.MethodCash, tender.MethodTransfer, tender.MethodCOD}},
		Registry: NewRegistry(time.Minute),
		Events:   &events.Bus{Store: evs},
		Receipts: enq,
		Currency: "VND",
	}
	return svc, st, enq, evs
}

func openOrder(lines ...pricing.Line) store.Order {
	return store.Order{
		ID:       uuid.New(),
		Status:   store.OrderStatusOpen,
		Currency: "VND",
		Lines:    lines,
	}
}

func TestOpenComputesTotalsAndIsIdempotent(t *testing.T) {
	order := openOrder(
		pricing.Line{Qty: 2, UnitPrice: 100_000, Subtotal: 200_000},
		pricing.Line{Qty: 1, UnitPrice: 300_000, Subtotal: 300_000},
	)
	svc, _, _, _ := newTestService(order)

	view, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500_000), view.Subtotal)
	require.Equal(t, int64(500_000), view.AmountDue)
	require.Equal(t, "empty", view.State)
	require.Equal(t, []int64{500_000, 600_000, 700_000, 800_000}, view.Suggestions)

	// reopening returns the same live session
	_, err = svc.AddTender(context.Background(), order.ID, "CASH", 100_000)
	require.NoError(t, err)
	again, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, again.Tenders, 1)
}

func TestOpenResolvesVoucherDiscount(t *testing.T) {
	customer := uuid.New()
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 500_000, Subtotal: 500_000})
	order.CustomerID = &customer
	order.VoucherCode = "GIAM20"
	svc, st, _, _ := newTestService(order)
	st.vouchers["GIAM20"] = voucher.Voucher{Code: "GIAM20", Kind: voucher.KindPercent, PercentBps: 2000}

	view, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100_000), view.Discount)
	require.Equal(t, int64(400_000), view.AmountDue)
}

func TestOpenWalkInIgnoresVoucher(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 500_000, Subtotal: 500_000})
	order.VoucherCode = "GIAM20"
	svc, st, _, _ := newTestService(order)
	st.vouchers["GIAM20"] = voucher.Voucher{Code: "GIAM20", Kind: voucher.KindPercent, PercentBps: 2000}

	view, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	require.Zero(t, view.Discount)
	require.Equal(t, int64(500_000), view.AmountDue)
}

func TestOpenRejectsNonOpenOrder(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 100_000, Subtotal: 100_000})
	order.Status = store.OrderStatusPaid
	svc, _, _, _ := newTestService(order)

	_, err := svc.Open(context.Background(), order.ID)
	require.Equal(t, "ORDER_NOT_OPEN", common.ErrorCode(err))
}

func TestOpenUnknownOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Open(context.Background(), uuid.New())
	require.Equal(t, "ORDER_NOT_FOUND", common.ErrorCode(err))
}

func TestAddTenderRejectsDisabledMethod(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 100_000, Subtotal: 100_000})
	svc, _, _, _ := newTestService(order)
	svc.Methods = &fakeCatalog{enabled: []tender.MethodKind{tender.MethodCash}}

	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = svc.AddTender(context.Background(), order.ID, "CARD", 100_000)
	require.Equal(t, "METHOD_DISABLED", common.ErrorCode(err))
}

func TestAddTenderWhenCatalogUnavailable(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 100_000, Subtotal: 100_000})
	svc, _, _, _ := newTestService(order)
	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)

	svc.Methods = &fakeCatalog{err: methods.ErrUnavailable}
	_, err = svc.AddTender(context.Background(), order.ID, "CASH", 100_000)
	require.Equal(t, "METHODS_UNAVAILABLE", common.ErrorCode(err))
}

func TestSubmitHappyPath(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 400_000, Subtotal: 400_000})
	svc, st, enq, evs := newTestService(order)

	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = svc.AddTender(context.Background(), order.ID, "CASH", 450_000)
	require.NoError(t, err)

	out, err := svc.Submit(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusPaid, out.Status)
	require.Equal(t, int64(50_000), out.Change)
	require.NotEmpty(t, out.ReceiptNumber)

	require.Len(t, st.completed, 1)
	require.Equal(t, pricing.Money(400_000), st.completed[0].Total)
	require.Len(t, enq.receipts, 1)
	require.Equal(t, out.ReceiptNumber, enq.receipts[0].Number)

	require.Len(t, evs.events, 1)
	require.Equal(t, events.TopicCheckoutCompleted, evs.events[0].Topic)

	// session is gone after completion
	_, err = svc.View(context.Background(), order.ID)
	require.Equal(t, "SESSION_NOT_FOUND", common.ErrorCode(err))
}

func TestSubmitInsufficientPayment(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 90_000, Subtotal: 90_000})
	svc, st, _, _ := newTestService(order)

	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = svc.AddTender(context.Background(), order.ID, "CASH", 80_000)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), order.ID)
	require.Equal(t, tender.CodeInsufficientPayment, common.ErrorCode(err))
	require.Empty(t, st.completed)

	// session survives for correction
	view, err := svc.View(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, "partial", view.State)
}

func TestSubmitMultiTenderRequiresConfirm(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 500_000, Subtotal: 500_000})
	svc, _, _, _ := newTestService(order)

	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = svc.AddTender(context.Background(), order.ID, "CASH", 200_000)
	require.NoError(t, err)
	view, err := svc.AddTender(context.Background(), order.ID, "TRANSFER", 300_000)
	require.NoError(t, err)
	require.Equal(t, "confirming", view.State)

	// the transfer needs its reference before anything else
	_, err = svc.Submit(context.Background(), order.ID)
	require.Equal(t, tender.CodeMissingReference, common.ErrorCode(err))
	_, err = svc.Confirm(context.Background(), order.ID)
	require.Equal(t, tender.CodeMissingReference, common.ErrorCode(err))

	transferID := view.Tenders[1].ID
	_, err = svc.SetReference(context.Background(), order.ID, transferID, "FT20260830")
	require.NoError(t, err)

	// with references in place the split still needs explicit confirmation
	_, err = svc.Submit(context.Background(), order.ID)
	require.Equal(t, tender.CodeConfirmRequired, common.ErrorCode(err))
	confirmed, err := svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, "satisfied", confirmed.State)

	out, err := svc.Submit(context.Background(), order.ID)
	require.NoError(t, err)
	require.Zero(t, out.Change)
}

func TestSubmitCODMarksAwaiting(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 200_000, Subtotal: 200_000})
	order.COD = true
	svc, st, _, _ := newTestService(order)

	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	view, err := svc.AddTender(context.Background(), order.ID, "COD", 200_000)
	require.NoError(t, err)
	require.Equal(t, int64(200_000), view.PendingAmount)
	require.Zero(t, view.TotalTendered)

	out, err := svc.Submit(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusAwaitingCOD, out.Status)
	require.Zero(t, out.Change)
	require.Len(t, st.completed, 1)
}

func TestSubmitFailurePreservesSessionForRetry(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 100_000, Subtotal: 100_000})
	svc, st, _, evs := newTestService(order)

	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = svc.AddTender(context.Background(), order.ID, "CASH", 100_000)
	require.NoError(t, err)

	st.failWith = errors.New("db down")
	_, err = svc.Submit(context.Background(), order.ID)
	require.Equal(t, "SUBMIT_FAILED", common.ErrorCode(err))
	require.Equal(t, events.TopicCheckoutFailed, evs.events[0].Topic)

	view, err := svc.View(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, "failed", view.State)
	require.Len(t, view.Tenders, 1)

	st.failWith = nil
	out, err := svc.Submit(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusPaid, out.Status)
}

func TestCancelDropsSessionAndEmits(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 100_000, Subtotal: 100_000})
	svc, _, _, evs := newTestService(order)

	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(context.Background(), order.ID))
	require.Equal(t, events.TopicCheckoutCanceled, evs.events[0].Topic)

	_, err = svc.View(context.Background(), order.ID)
	require.Equal(t, "SESSION_NOT_FOUND", common.ErrorCode(err))
}

func TestVoucherMinSpendBlocksOpen(t *testing.T) {
	customer := uuid.New()
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 100_000, Subtotal: 100_000})
	order.CustomerID = &customer
	order.VoucherCode = "BIG"
	svc, st, _, _ := newTestService(order)
	st.vouchers["BIG"] = voucher.Voucher{Code: "BIG", Kind: voucher.KindCash, Value: 50_000, MinSpend: 300_000}

	_, err := svc.Open(context.Background(), order.ID)
	require.Equal(t, "VOUCHER_MIN_SPEND", common.ErrorCode(err))
}
