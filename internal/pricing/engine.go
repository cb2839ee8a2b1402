package pricing

// Money represents a monetary value stored in minor units. VND carries no
// subunit, so amounts are whole dong.
type Money = int64

// Line describes an order line as captured at sale time. Subtotal is
// pre-computed by the order service; this package does not re-validate the
// per-line invariant Subtotal == Qty*UnitPrice.
type Line struct {
	Qty       int
	UnitPrice Money
	Subtotal  Money
}

// Totals aggregates quantity and value across order lines.
type Totals struct {
	Qty      int
	Subtotal Money
}

// ComputeTotals sums quantity and line subtotals. Lines with a non-positive
// quantity are skipped. An empty input yields zero totals.
func ComputeTotals(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		t.Qty += l.Qty
		t.Subtotal += l.Subtotal
	}
	return t
}

// AmountDue computes the payable amount after discount, floored at zero.
func AmountDue(subtotal, discount Money) Money {
	due := subtotal - discount
	if due < 0 {
		return 0
	}
	return due
}
