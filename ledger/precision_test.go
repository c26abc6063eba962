package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-core/ledger"
)

func TestClampPrecision(t *testing.T) {
	assert.Equal(t, 0, ledger.ClampPrecision(-3))
	assert.Equal(t, 8, ledger.ClampPrecision(20))
	assert.Equal(t, 4, ledger.ClampPrecision(4))
}

func TestScale_RoundingModes(t *testing.T) {
	val := decimal.RequireFromString("1.255")

	cases := []struct {
		name string
		mode ledger.RoundingMode
		want string
	}{
		{"down truncates", ledger.RoundDown, "1.25"},
		{"up away from zero", ledger.RoundUp, "1.26"},
		{"half up", ledger.RoundHalfUp, "1.26"},
		{"half down", ledger.RoundHalfDown, "1.25"},
		{"ceiling", ledger.RoundCeiling, "1.26"},
		{"floor", ledger.RoundFloor, "1.25"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ledger.Scale(val, 2, tc.mode)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestScale_HalfDown_ExactHalfRoundsTowardZero(t *testing.T) {
	positive := decimal.RequireFromString("1.005")
	negative := decimal.RequireFromString("-1.005")

	assert.Equal(t, "1.00", ledger.Scale(positive, 2, ledger.RoundHalfDown).StringFixed(2))
	assert.Equal(t, "-1.00", ledger.Scale(negative, 2, ledger.RoundHalfDown).StringFixed(2))
}

func TestFormat_GroupsThousands(t *testing.T) {
	val := decimal.RequireFromString("1234567.5")
	assert.Equal(t, "1,234,567.50", ledger.Format(val, 2))
}

func TestFormat_NegativeValue(t *testing.T) {
	val := decimal.RequireFromString("-42.1")
	assert.Equal(t, "-42.10", ledger.Format(val, 2))
}

func TestParseAmount_RejectsEmptyAndGarbage(t *testing.T) {
	_, err := ledger.ParseAmount("")
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = ledger.ParseAmount("not-a-number")
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestParseAmount_AcceptsValidDecimal(t *testing.T) {
	got, err := ledger.ParseAmount("12.50")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("12.50")))
}
