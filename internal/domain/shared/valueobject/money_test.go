package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromInt(100), KES)
	require.NoError(t, err)
	assert.Equal(t, KES, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))

	_, err = NewMoney(decimal.NewFromInt(100), "")
	assert.Error(t, err)
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyKESFromString("1160.00")
	require.NoError(t, err)
	assert.Equal(t, "1160.00", m.StringFixed())

	_, err = NewMoneyKESFromString("not-a-number")
	assert.Error(t, err)
}

func TestMoney_AddSub(t *testing.T) {
	a := NewMoneyKESFromFloat(1000.00)
	b := NewMoneyKESFromFloat(160.00)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "1160.00", sum.StringFixed())

	diff, err := sum.Sub(a)
	require.NoError(t, err)
	assert.True(t, diff.Equals(b))

	usd := Zero(USD)
	_, err = a.Add(usd)
	assert.Error(t, err)
	_, err = a.Sub(usd)
	assert.Error(t, err)
}

func TestMoney_Div(t *testing.T) {
	total := NewMoneyKESFromFloat(1160.00)
	preTax, err := total.Div(decimal.NewFromFloat(1.16))
	require.NoError(t, err)
	assert.Equal(t, "1000.00", preTax.RoundMinor().StringFixed())

	_, err = total.Div(decimal.Zero)
	assert.Error(t, err)
}

func TestMoney_RoundMinor(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		expected string
	}{
		{"exact", "10.00", "10.00"},
		{"half rounds up", "10.005", "10.01"},
		{"below half rounds down", "10.004", "10.00"},
		{"above half rounds up", "10.006", "10.01"},
		{"repeating fraction", "86.2068965517", "86.21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoneyKESFromString(tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.RoundMinor().StringFixed())
		})
	}
}

func TestMoney_Predicates(t *testing.T) {
	assert.True(t, ZeroKES().IsZero())
	assert.True(t, NewMoneyKESFromFloat(1).IsPositive())
	assert.True(t, NewMoneyKESFromFloat(-1).IsNegative())
}

func TestMoney_Cmp(t *testing.T) {
	a := NewMoneyKESFromFloat(5)
	b := NewMoneyKESFromFloat(10)

	cmp, err := a.Cmp(b)
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	_, err = a.Cmp(Zero(USD))
	assert.Error(t, err)
}
