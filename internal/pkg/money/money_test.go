package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertScenario(t *testing.T) {
	rates := RateTable{
		INR: decimal.NewFromInt(1),
		USD: decimal.RequireFromString("0.012"),
	}

	got, err := Convert(New(200000, INR), USD, rates)
	require.NoError(t, err)
	assert.Equal(t, New(2400, USD), got)
}

func TestConvertSameCurrency(t *testing.T) {
	got, err := Convert(New(12345, EUR), EUR, DefaultRates())
	require.NoError(t, err)
	assert.Equal(t, New(12345, EUR), got)
}

func TestConvertRoundsToTargetMinorUnit(t *testing.T) {
	rates := DefaultRates()

	// ₹999.00 * 1.8 = ¥1798.2
	yen, err := Convert(New(99900, INR), JPY, rates)
	require.NoError(t, err)
	assert.Equal(t, New(1798, JPY), yen)

	// ₹1.25 * 0.012 = $0.015 rounds half away from zero
	usd, err := Convert(New(125, INR), USD, rates)
	require.NoError(t, err)
	assert.Equal(t, New(2, USD), usd)
}

func TestConvertErrors(t *testing.T) {
	rates := DefaultRates()

	_, err := Convert(New(-1, INR), USD, rates)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = Convert(New(100, INR), Code("CHF"), rates)
	var unknown *UnknownCurrencyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, Code("CHF"), unknown.Code)

	partial := RateTable{INR: decimal.NewFromInt(1)}
	_, err = Convert(New(100, USD), INR, partial)
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, USD, unknown.Code)
}

// Converting A→B→A drifts by at most one minor unit of the coarser currency, expressed in A.
func TestConvertRoundTrip(t *testing.T) {
	rates := DefaultRates()
	amounts := []int64{0, 1, 7, 99, 100, 1999, 99900, 123456, 5000000, 987654321}

	for _, from := range Supported() {
		for _, to := range Supported() {
			oneUnitOfTo, err := ConvertExact(New(1, to), from, rates)
			require.NoError(t, err)
			tolerance := oneUnitOfTo.Shift(from.MinorUnits()).Div(decimal.NewFromInt(2)).Add(decimal.NewFromInt(1))

			for _, amount := range amounts {
				there, err := Convert(New(amount, from), to, rates)
				require.NoError(t, err)
				back, err := Convert(there, from, rates)
				require.NoError(t, err)

				drift := decimal.NewFromInt(back.Amount - amount).Abs()
				assert.Truef(t, drift.LessThanOrEqual(tolerance),
					"%s→%s→%s: %d came back as %d (tolerance %s)", from, to, from, amount, back.Amount, tolerance)
			}
		}
	}
}

func TestRateTableValidate(t *testing.T) {
	assert.NoError(t, DefaultRates().Validate())

	missing := DefaultRates()
	delete(missing, GBP)
	assert.ErrorContains(t, missing.Validate(), "missing GBP")

	zero := DefaultRates()
	zero[USD] = decimal.Zero
	assert.ErrorContains(t, zero.Validate(), "must be positive")

	badBase := DefaultRates()
	badBase[INR] = decimal.RequireFromString("1.1")
	assert.ErrorContains(t, badBase.Validate(), "must have rate 1")

	extra := DefaultRates()
	extra[Code("XYZ")] = decimal.NewFromInt(3)
	var unknown *UnknownCurrencyError
	assert.True(t, errors.As(extra.Validate(), &unknown))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1,234.50", Format(New(123450, USD)))
	assert.Equal(t, "$0.05", Format(New(5, USD)))
	assert.Equal(t, "¥1,235", Format(New(1235, JPY)))
	assert.Equal(t, "£12.00", Format(New(1200, GBP)))

	assert.Equal(t, "₹1,23,456.00", Format(New(12345600, INR)))
	assert.Equal(t, "₹999.00", Format(New(99900, INR)))
}

func TestParseCode(t *testing.T) {
	code, err := ParseCode(" usd ")
	require.NoError(t, err)
	assert.Equal(t, USD, code)

	_, err = ParseCode("doge")
	var unknown *UnknownCurrencyError
	assert.True(t, errors.As(err, &unknown))
}

func TestMoneyArithmetic(t *testing.T) {
	line := New(99900, INR).Mul(3)
	assert.Equal(t, int64(299700), line.Amount)

	sum, err := line.Add(New(300, INR))
	require.NoError(t, err)
	assert.Equal(t, int64(300000), sum.Amount)

	_, err = line.Add(New(1, USD))
	assert.Error(t, err)

	assert.True(t, decimal.RequireFromString("2997").Equal(line.Decimal()))
}
