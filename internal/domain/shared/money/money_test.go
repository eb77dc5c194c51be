package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRequiresSameCurrency(t *testing.T) {
	sum, err := Cents(150000).Add(Cents(100000))
	require.NoError(t, err)
	assert.Equal(t, Cents(250000), sum)

	_, err = Cents(1).Add(Must(1, "usd"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = New(1, "euro")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestFromMajorRoundsHalfUp(t *testing.T) {
	m, err := FromMajor(1000, "eur")
	require.NoError(t, err)
	assert.Equal(t, Cents(100000), m)

	m, err = FromMajor(12.125, "EUR")
	require.NoError(t, err)
	assert.Equal(t, int64(1213), m.Amount)
}

func TestMajorFormatting(t *testing.T) {
	assert.Equal(t, "2500.00 EUR", Cents(250000).String())
	assert.Equal(t, "80.05", Cents(8005).Major())
	assert.Equal(t, "-0.40", Cents(-40).Major())
	assert.Equal(t, "240.00", Cents(8000).Multiply(3).Major())
}
