package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.out, got, tc.in)
		} else {
			assert.ErrorIs(t, err, ErrInvalidAmount, tc.in)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	// 0.1 + 0.2 summed many times stays exact in cents.
	total := Zero
	for i := 0; i < 1000; i++ {
		total = total.Add(Cents(10)).Add(Cents(20))
	}
	assert.Equal(t, "300.00", total.String())

	net := Cents(40000).Sub(Cents(100000))
	assert.Equal(t, int64(-60000), net.Cents)
	assert.Equal(t, "-600.00", net.String())

	assert.True(t, Cents(1234).Decimal().Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, Cents(1235), MoneyFromDecimal(decimal.RequireFromString("12.345")))
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Cents(50000)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":500.00}`, string(b))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`"12.5"`), &m))
	assert.Equal(t, Cents(1250), m)
}
