package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "0.00", Money(0).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "100.00", Money(10000).String())
	assert.Equal(t, "25.50", Money(2550).String())
	assert.Equal(t, "-25.50", Money(-2550).String())
}

func TestMoneyMarshalsAsString(t *testing.T) {
	data, err := json.Marshal(Money(276_50))
	require.NoError(t, err)
	assert.Equal(t, `"276.50"`, string(data))
}

func TestMoneyUnmarshal(t *testing.T) {
	var m Money
	require.NoError(t, json.Unmarshal([]byte(`"100.00"`), &m))
	assert.Equal(t, Money(10000), m)

	// bare numbers come from services that do not quote amounts
	require.NoError(t, json.Unmarshal([]byte(`99.99`), &m))
	assert.Equal(t, Money(9999), m)

	require.NoError(t, json.Unmarshal([]byte(`"-3.5"`), &m))
	assert.Equal(t, Money(-350), m)
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("12")
	require.NoError(t, err)
	assert.Equal(t, Money(1200), m)

	m, err = ParseMoney(".99")
	require.NoError(t, err)
	assert.Equal(t, Money(99), m)

	_, err = ParseMoney("1.999")
	assert.Error(t, err)

	_, err = ParseMoney("abc")
	assert.Error(t, err)
}

func TestMoneyRoundTrip(t *testing.T) {
	for _, cents := range []Money{0, 1, 99, 100, 2550, 10000, -10000} {
		data, err := json.Marshal(cents)
		require.NoError(t, err)
		var back Money
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, cents, back)
	}
}
