package valuation

import "fmt"

// formatSigned renders a percentage with two decimals and an explicit '+' for
// non-negative values. Negative values carry their natural '-' sign.
func formatSigned(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// formatUnsigned renders a percentage with two decimals and no sign prefix.
func formatUnsigned(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
