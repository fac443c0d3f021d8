package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDiscountMultiplier(t *testing.T) {
	cases := []struct {
		weeks int64
		want  string
	}{
		{1, "1"},
		{2, "1.8"},
		{3, "2.7"},
		{4, "3.6"},
		{10, "9"},
	}
	for _, tc := range cases {
		got := DiscountMultiplier(tc.weeks)
		assert.True(t, got.Equal(dec(tc.want)), "weeks=%d got %s want %s", tc.weeks, got, tc.want)
	}
}

func TestDiscountMultiplierBounds(t *testing.T) {
	for weeks := int64(1); weeks <= 52; weeks++ {
		m := DiscountMultiplier(weeks)
		upper := dec("0.9").Mul(decimal.NewFromInt(weeks)).Add(decimal.NewFromInt(1))
		require.False(t, m.IsNegative(), "weeks=%d", weeks)
		require.True(t, m.LessThanOrEqual(upper), "weeks=%d", weeks)
		// one-decimal granularity
		require.True(t, m.Mul(decimal.NewFromInt(10)).Equal(m.Mul(decimal.NewFromInt(10)).Floor()), "weeks=%d", weeks)
	}
}

func TestBillingWeeksAndDays(t *testing.T) {
	assert.Equal(t, int64(1), BillingWeeks(1))
	assert.Equal(t, int64(1), BillingWeeks(168))
	assert.Equal(t, int64(2), BillingWeeks(169))
	assert.Equal(t, int64(1), BillingDays(0.5))
	assert.Equal(t, int64(2), BillingDays(48))
	assert.Equal(t, int64(3), BillingDays(49))
}

func TestCalculateBasicTwoWeeks(t *testing.T) {
	q, err := Calculate(PackageBasic, 336)
	require.NoError(t, err)
	require.Equal(t, int64(2), q.Weeks)
	require.True(t, q.ChargedAmount.Equal(decimal.NewFromInt(12600)), q.ChargedAmount.String())
	require.True(t, q.AllocatedBudget.Equal(decimal.NewFromInt(14000)))
}

func TestCalculateBasicTwoDays(t *testing.T) {
	q, err := Calculate(PackageBasic, 48)
	require.NoError(t, err)
	require.Equal(t, int64(1), q.Weeks)
	require.Equal(t, int64(2), q.Days)
	require.True(t, q.ChargedAmount.Equal(decimal.NewFromInt(7000)))
	require.True(t, q.DailyAllocation.Equal(dec("3500.00")))
}

func TestCalculatePremiumTwoWeeks(t *testing.T) {
	q, err := Calculate(PackagePremium, 336)
	require.NoError(t, err)
	require.Equal(t, int64(2), q.Weeks)
	require.True(t, q.Multiplier.Equal(dec("1.8")))
	require.True(t, q.ChargedAmount.Equal(decimal.NewFromInt(18000)))
	require.Equal(t, int64(14), q.Days)
	require.True(t, q.DailyAllocation.Equal(dec("1285.71")), q.DailyAllocation.String())
}

func TestCalculateRejectsBadInput(t *testing.T) {
	_, err := Calculate("gold", 24)
	require.ErrorIs(t, err, ErrInvalidPackage)

	_, err = Calculate(PackageBasic, 0)
	require.ErrorIs(t, err, ErrInvalidTimeLimit)

	_, err = Calculate(PackageBasic, -5)
	require.ErrorIs(t, err, ErrInvalidTimeLimit)
}

func TestLegacyDailyRate(t *testing.T) {
	rate, err := LegacyDailyRate(PackageBasic)
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.NewFromInt(1000)))

	_, err = LegacyDailyRate("gold")
	require.ErrorIs(t, err, ErrInvalidPackage)
}
