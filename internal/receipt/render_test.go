package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRenderIncludesTotalsAndChange(t *testing.T) {
	r := Receipt{
		Number:   "POS-20260830-000123",
		OrderID:  uuid.New(),
		IssuedAt: time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC),
		Currency: "VND",
		Subtotal: 500_000,
		Discount: 100_000,
		Total:    400_000,
		Change:   50_000,
		Voucher:  "SUMMER10",
		Payments: []PaymentLine{
			{Method: "CASH", Amount: 450_000, Status: "COMPLETED"},
		},
	}
	text := Render(r)

	for _, want := range []string{
		"POS-20260830-000123",
		"500.000",
		"-100.000",
		"SUMMER10",
		"400.000",
		"450.000",
		"Tien thua",
		"50.000",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered receipt missing %q:\n%s", want, text)
		}
	}
}

func TestRenderMarksPendingTenders(t *testing.T) {
	r := Receipt{
		Number:   "POS-20260830-000124",
		IssuedAt: time.Now(),
		Subtotal: 200_000,
		Total:    200_000,
		Payments: []PaymentLine{
			{Method: "COD", Amount: 200_000, Status: "PENDING"},
		},
	}
	text := Render(r)
	if !strings.Contains(text, "thu sau") {
		t.Fatalf("pending tender not marked:\n%s", text)
	}
	if strings.Contains(text, "Tien thua") {
		t.Fatalf("no change expected:\n%s", text)
	}
}

func TestRenderOmitsDiscountWhenZero(t *testing.T) {
	r := Receipt{
		Number:   "POS-20260830-000125",
		IssuedAt: time.Now(),
		Subtotal: 90_000,
		Total:    90_000,
		Payments: []PaymentLine{{Method: "CASH", Amount: 90_000, Status: "COMPLETED"}},
	}
	if strings.Contains(Render(r), "Giam gia") {
		t.Fatal("discount line should be omitted when zero")
	}
}
