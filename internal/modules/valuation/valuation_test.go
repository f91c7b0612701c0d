package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestVariationPercent_FailClosed(t *testing.T) {
	x := f(123.45)

	assert.Equal(t, "0.00", VariationPercent(f(0), x))
	assert.Equal(t, "0.00", VariationPercent(x, f(0)))
	assert.Equal(t, "0.00", VariationPercent(nil, x))
	assert.Equal(t, "0.00", VariationPercent(x, nil))
	assert.Equal(t, "0.00", VariationPercent(nil, nil))
}

func TestVariationPercent_SignPrefix(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		ceiling float64
		want    string
	}{
		{"at ceiling", 100, 100, "+0.00"},
		{"above ceiling", 110, 100, "+10.00"},
		{"below ceiling", 90, 100, "-10.00"},
		{"fractional", 102.5, 100, "+2.50"},
		{"deep discount", 50, 100, "-50.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VariationPercent(f(tt.current), f(tt.ceiling)))
		})
	}
}

func TestYieldProjectionPercent(t *testing.T) {
	// No sign prefix, unlike VariationPercent.
	assert.Equal(t, "10.00", YieldProjectionPercent(f(1), f(10)))
	assert.Equal(t, "6.67", YieldProjectionPercent(f(2), f(30)))

	assert.Equal(t, "0.00", YieldProjectionPercent(nil, f(10)))
	assert.Equal(t, "0.00", YieldProjectionPercent(f(1), nil))
	assert.Equal(t, "0.00", YieldProjectionPercent(f(0), f(10)))
	assert.Equal(t, "0.00", YieldProjectionPercent(f(1), f(0)))
}

func TestSelectCeiling(t *testing.T) {
	c := Ceilings{Conservative: f(80), Aggressive: f(100)}

	assert.Equal(t, f(80), SelectCeiling(c, ProfileConservative))
	assert.Equal(t, f(100), SelectCeiling(c, ProfileAggressive))

	// Missing ceilings propagate as nil, never default to zero.
	assert.Nil(t, SelectCeiling(Ceilings{Aggressive: f(100)}, ProfileConservative))
	assert.Nil(t, SelectCeiling(Ceilings{Conservative: f(80)}, ProfileAggressive))
}

func TestParseProfile(t *testing.T) {
	assert.Equal(t, ProfileConservative, ParseProfile("conservative"))
	assert.Equal(t, ProfileAggressive, ParseProfile("aggressive"))
	// Unknown or empty values fall back to the default.
	assert.Equal(t, ProfileAggressive, ParseProfile(""))
	assert.Equal(t, ProfileAggressive, ParseProfile("balanced"))
}

func TestVariationSeverity(t *testing.T) {
	assert.Equal(t, SeverityNormal, VariationSeverity(f(100), f(100)))
	assert.Equal(t, SeverityNormal, VariationSeverity(f(104), f(100)))
	assert.Equal(t, SeverityElevated, VariationSeverity(f(107), f(100)))
	assert.Equal(t, SeverityElevated, VariationSeverity(f(93), f(100)))
	assert.Equal(t, SeverityHigh, VariationSeverity(f(115), f(100)))
	assert.Equal(t, SeverityHigh, VariationSeverity(f(85), f(100)))
	assert.Equal(t, SeverityNormal, VariationSeverity(nil, f(100)))
}
