package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// PaymentLine is one tender on the printed receipt.
type PaymentLine struct {
	Method    string        `json:"method"`
	Amount    pricing.Money `json:"amount"`
	Status    string        `json:"status"`
	Reference string        `json:"reference,omitempty"`
}

// Receipt is the data needed to render and deliver a checkout receipt.
type Receipt struct {
	Number    string        `json:"number"`
	OrderID   uuid.UUID     `json:"orderId"`
	IssuedAt  time.Time     `json:"issuedAt"`
	Currency  string        `json:"currency"`
	Subtotal  pricing.Money `json:"subtotal"`
	Discount  pricing.Money `json:"discount"`
	Total     pricing.Money `json:"total"`
	Change    pricing.Money `json:"change"`
	Voucher   string        `json:"voucher,omitempty"`
	Payments  []PaymentLine `json:"payments"`
	StoreName string        `json:"storeName,omitempty"`
}

const lineWidth = 32

// Render produces the plain-text till receipt. Amounts are formatted as đồng
// with dot separators.
func Render(r Receipt) string {
	var b strings.Builder
	if r.StoreName != "" {
		b.WriteString(center(r.StoreName))
		b.WriteByte('\n')
	}
	b.WriteString(center("HOA DON BAN HANG"))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "So: %s\n", r.Number)
	fmt.Fprintf(&b, "Ngay: %s\n", r.IssuedAt.Format("02/01/2006 15:04"))
	b.WriteString(rule())

	writeAmount(&b, "Tong tien hang", r.Subtotal)
	if r.Discount > 0 {
		writeAmount(&b, "Giam gia", -r.Discount)
		if r.Voucher != "" {
			fmt.Fprintf(&b, "  (ma %s)\n", r.Voucher)
		}
	}
	writeAmount(&b, "Thanh toan", r.Total)
	b.WriteString(rule())

	for _, p := range r.Payments {
		label := p.Method
		if p.Status == "PENDING" {
			label += " (thu sau)"
		}
		writeAmount(&b, label, p.Amount)
		if p.Reference != "" {
			fmt.Fprintf(&b, "  ref %s\n", p.Reference)
		}
	}
	if r.Change > 0 {
		writeAmount(&b, "Tien thua", r.Change)
	}
	b.WriteString(rule())
	b.WriteString(center("Cam on quy khach!"))
	b.WriteByte('\n')
	return b.String()
}

func writeAmount(b *strings.Builder, label string, amount pricing.Money) {
	value := common.FormatVND(amount)
	pad := lineWidth - len(label) - len(value)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(label)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(value)
	b.WriteByte('\n')
}

func center(s string) string {
	if len(s) >= lineWidth {
		return s
	}
	pad := (lineWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func rule() string {
	return strings.Repeat("-", lineWidth) + "\n"
}
