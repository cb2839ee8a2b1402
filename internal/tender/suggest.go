package tender

// DefaultIncrements are the quick-tender offsets added on top of the amount
// due, tuned for common VND note denominations.
var DefaultIncrements = []Money{100_000, 200_000, 300_000}

// Suggest returns quick-add cash amounts for the till: the exact amount due
// followed by the due amount rounded up by each increment. Nothing is
// suggested for a fully covered (or zero) balance.
func Suggest(amountDue Money, increments []Money) []Money {
	if amountDue <= 0 {
		return nil
	}
	if len(increments) == 0 {
		increments = DefaultIncrements
	}
	out := make([]Money, 0, len(increments)+1)
	out = append(out, amountDue)
	seen := map[Money]struct{}{amountDue: {}}
	for _, inc := range increments {
		if inc <= 0 {
			continue
		}
		v := amountDue + inc
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
