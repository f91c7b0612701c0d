// Package valuation derives the display metrics for an equity from its raw
// valuation fields and the active investor profile. All functions are pure;
// every derived value is recomputed on demand and never cached across a
// profile switch.
package valuation

// Profile is the investor risk profile selecting which of the two precomputed
// fair-value ceilings applies. Two variants only; an unrecognized string parses
// to the default rather than silently indexing nothing.
type Profile int

const (
	// ProfileAggressive is the default profile.
	ProfileAggressive Profile = iota
	ProfileConservative
)

// ParseProfile parses a stored preference value. Unknown values fall back to
// the aggressive default, matching the behavior when no preference exists.
func ParseProfile(s string) Profile {
	if s == "conservative" {
		return ProfileConservative
	}
	return ProfileAggressive
}

// String returns the wire representation of the profile.
func (p Profile) String() string {
	if p == ProfileConservative {
		return "conservative"
	}
	return "aggressive"
}

// Ceilings holds the two precomputed fair-value ceiling prices for an equity.
// A nil field means the upstream provider did not supply that ceiling.
type Ceilings struct {
	Conservative *float64
	Aggressive   *float64
}

// SelectCeiling returns the ceiling for the given profile. A missing ceiling
// propagates as nil; it is never defaulted to zero, because zero would make
// downstream predicates falsely pass.
func SelectCeiling(c Ceilings, p Profile) *float64 {
	if p == ProfileConservative {
		return c.Conservative
	}
	return c.Aggressive
}

// VariationPercent computes the percentage distance of the current price from
// the ceiling price, formatted to two decimals with an explicit sign for
// non-negative values ("+0.00" at equality). Returns "0.00" when either input
// is nil or zero: both denominators are feed-supplied and may legitimately be
// absent (newly listed equity, feed gap), and the display layer relies on this
// fail-closed contract instead of null checks.
func VariationPercent(currentPrice, ceilingPrice *float64) string {
	if !present(currentPrice) || !present(ceilingPrice) {
		return "0.00"
	}
	v := ((*currentPrice - *ceilingPrice) / *ceilingPrice) * 100
	return formatSigned(v)
}

// YieldProjectionPercent computes the projected dividend yield at the current
// price, formatted to two decimals. Same fail-closed contract as
// VariationPercent, but without a sign prefix.
func YieldProjectionPercent(averageDividend, currentPrice *float64) string {
	if !present(averageDividend) || !present(currentPrice) {
		return "0.00"
	}
	return formatUnsigned((*averageDividend / *currentPrice) * 100)
}

// Severity classifies how far the current price sits from the ceiling, in
// either direction. Used by the detail view to pick a highlight level.
type Severity string

const (
	SeverityNormal   Severity = "normal"   // Within 5% of the ceiling
	SeverityElevated Severity = "elevated" // More than 5% away
	SeverityHigh     Severity = "high"     // More than 10% away
)

// VariationSeverity returns the severity band for the price/ceiling distance.
// Missing inputs classify as normal, consistent with the "0.00" variation they
// produce.
func VariationSeverity(currentPrice, ceilingPrice *float64) Severity {
	if !present(currentPrice) || !present(ceilingPrice) {
		return SeverityNormal
	}
	v := ((*currentPrice - *ceilingPrice) / *ceilingPrice) * 100
	switch {
	case v > 10 || v < -10:
		return SeverityHigh
	case v > 5 || v < -5:
		return SeverityElevated
	default:
		return SeverityNormal
	}
}

// present reports whether a feed-supplied value is usable as a formula input.
// Zero is a sentinel for "no data" throughout the provider contract.
func present(v *float64) bool {
	return v != nil && *v != 0
}
