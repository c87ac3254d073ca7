package oddsmath

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		odds int
		want float64
	}{
		{150, 2.5},
		{100, 2.0},
		{-100, 2.0},
		{-200, 1.5},
		{-110, 1.9090909},
		{1000, 11.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, AmericanToDecimal(tt.odds), 1e-6, "odds %d", tt.odds)
	}
}

func TestDecimalToAmerican(t *testing.T) {
	assert.Equal(t, 150, DecimalToAmerican(2.5))
	assert.Equal(t, 100, DecimalToAmerican(2.0))
	assert.Equal(t, -200, DecimalToAmerican(1.5))
	assert.Equal(t, -110, DecimalToAmerican(1.90909))
}

func TestRoundTrip(t *testing.T) {
	for o := 100; o <= 2000; o++ {
		assert.Equal(t, o, DecimalToAmerican(AmericanToDecimal(o)), "odds %d", o)
	}
	for o := -2000; o < -100; o++ {
		assert.Equal(t, o, DecimalToAmerican(AmericanToDecimal(o)), "odds %d", o)
	}
	// -100 e +100 são a mesma odd
	assert.Equal(t, 100, DecimalToAmerican(AmericanToDecimal(-100)))
}

func TestProbabilityRoundTrip(t *testing.T) {
	for _, o := range []int{-1000, -250, -150, -110, 100, 120, 250, 900} {
		assert.Equal(t, o, ProbabilityToAmerican(ImpliedProbability(o)), "odds %d", o)
	}
	assert.InDelta(t, 0.6, ImpliedProbability(-150), 1e-9)
	assert.InDelta(t, 1.0/3, ImpliedProbability(200), 1e-9)
}

func TestApplyMargin(t *testing.T) {
	assert.Equal(t, -166, ApplyMargin(-150, 0.04))
	assert.Equal(t, -165, RoundToNearest5(ApplyMargin(-150, 0.04)))

	// probabilidade limitada a 0.95
	assert.Equal(t, -1900, ApplyMargin(-5000, 0.04))

	// margem sempre piora o preço para o apostador
	for _, o := range []int{-300, -110, 100, 150, 400} {
		assert.Less(t, AmericanToDecimal(ApplyMargin(o, 0.04)), AmericanToDecimal(o), "odds %d", o)
	}
}

func TestRoundToNearest5(t *testing.T) {
	tests := []struct{ in, want int }{
		{-166, -165},
		{-112, -110},
		{147, 145},
		{148, 150},
		{102, 100},
		{-102, -100},
		{-100, -100},
		{235, 235},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundToNearest5(tt.in), "in %d", tt.in)
	}
}

func TestPayout(t *testing.T) {
	d := decimal.RequireFromString
	assert.True(t, d("83.33").Equal(Payout(d("50"), -150)))
	assert.True(t, d("300").Equal(Payout(d("100"), 200)))
	assert.True(t, d("19.09").Equal(Payout(d("10"), -110)))
	assert.True(t, d("150").Equal(Profit(d("100"), 150)))
	assert.True(t, d("1.5").Equal(DecimalOdds(-200)))
	assert.True(t, d("6.25").Equal(PayoutAt(d("2.5"), d("2.5"))))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(100))
	assert.True(t, Valid(-100))
	assert.False(t, Valid(99))
	assert.False(t, Valid(-50))
	assert.False(t, Valid(0))
}
