package pricing

import "testing"

func TestComputeTotalsEmpty(t *testing.T) {
	got := ComputeTotals(nil)
	if got.Qty != 0 || got.Subtotal != 0 {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}

func TestComputeTotalsSumsLineSubtotals(t *testing.T) {
	lines := []Line{
		{Qty: 2, UnitPrice: 50_000, Subtotal: 100_000},
		{Qty: 1, UnitPrice: 75_000, Subtotal: 75_000},
		{Qty: 3, UnitPrice: 10_000, Subtotal: 30_000},
	}
	got := ComputeTotals(lines)
	if got.Qty != 6 {
		t.Fatalf("expected qty 6, got %d", got.Qty)
	}
	if got.Subtotal != 205_000 {
		t.Fatalf("expected subtotal 205000, got %d", got.Subtotal)
	}
}

func TestComputeTotalsSkipsNonPositiveQty(t *testing.T) {
	lines := []Line{
		{Qty: 0, UnitPrice: 10_000, Subtotal: 10_000},
		{Qty: -1, UnitPrice: 10_000, Subtotal: 10_000},
		{Qty: 1, UnitPrice: 10_000, Subtotal: 10_000},
	}
	got := ComputeTotals(lines)
	if got.Qty != 1 || got.Subtotal != 10_000 {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestAmountDueFloorsAtZero(t *testing.T) {
	if due := AmountDue(50_000, 70_000); due != 0 {
		t.Fatalf("expected due 0, got %d", due)
	}
	if due := AmountDue(100_000, 30_000); due != 70_000 {
		t.Fatalf("expected due 70000, got %d", due)
	}
}
