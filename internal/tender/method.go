package tender

import (
	"fmt"
	"strings"
)

// MethodKind enumerates the closed set of supported tender instruments.
// Dispatch is always on the enum, never on raw method strings from the wire.
type MethodKind string

const (
	// MethodCash is physical cash handed over at the till.
	MethodCash MethodKind = "CASH"
	// MethodTransfer is a bank transfer verified by its transaction reference.
	MethodTransfer MethodKind = "TRANSFER"
	// MethodCard is a card terminal payment verified by its approval code.
	MethodCard MethodKind = "CARD"
	// MethodCOD is cash collected at delivery time; recorded now, settled later.
	MethodCOD MethodKind = "COD"
)

// ParseMethod maps a wire identifier onto a MethodKind.
func ParseMethod(value string) (MethodKind, error) {
	switch MethodKind(strings.ToUpper(strings.TrimSpace(value))) {
	case MethodCash:
		return MethodCash, nil
	case MethodTransfer:
		return MethodTransfer, nil
	case MethodCard:
		return MethodCard, nil
	case MethodCOD:
		return MethodCOD, nil
	default:
		return "", fmt.Errorf("tender: unknown payment method %q", value)
	}
}

// RequiresReference reports whether tenders of this kind must carry a
// transaction reference before submission.
func (m MethodKind) RequiresReference() bool {
	switch m {
	case MethodTransfer, MethodCard:
		return true
	default:
		return false
	}
}

// Deferred reports whether tenders of this kind settle after checkout and are
// therefore excluded from the immediate change computation.
func (m MethodKind) Deferred() bool {
	return m == MethodCOD
}

// Validate checks a payment against the kind's own constraints.
func (m MethodKind) Validate(p Payment) error {
	if p.Amount <= 0 {
		return &ValidationError{Code: CodeInvalidAmount, Message: "tender amount must be positive"}
	}
	if m.RequiresReference() && strings.TrimSpace(p.Reference) == "" && p.Status == StatusCompleted {
		return &ValidationError{Code: CodeMissingReference, Message: string(m) + " tender requires a transaction reference"}
	}
	return nil
}
