package common

import "strconv"

// FormatVND renders an amount of Vietnamese đồng with dot thousand separators,
// e.g. 1500000 -> "1.500.000". The đồng has no minor unit so amounts are whole
// numbers.
func FormatVND(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	n := len(digits)
	groups := (n + 2) / 3
	out := make([]byte, 0, n+groups-1)
	lead := n % 3
	if lead == 0 {
		lead = 3
	}
	out = append(out, digits[:lead]...)
	for i := lead; i < n; i += 3 {
		out = append(out, '.')
		out = append(out, digits[i:i+3]...)
	}
	if negative {
		return "-" + string(out)
	}
	return string(out)
}
