// Package oddsmath concentra as conversões entre odds americanas, decimais
// e probabilidade implícita, além do cálculo de payout.
//
// Todas as funções assumem odds válidas (|odds| >= 100). Quem chama deve
// rejeitar odds inválidas antes (ver Valid).
package oddsmath

import (
	"math"

	"github.com/shopspring/decimal"
)

// MaxImpliedProbability limita a probabilidade após aplicar margem
const MaxImpliedProbability = 0.95

var hundred = decimal.NewFromInt(100)

// Valid indica se o número é uma odd americana aceitável
func Valid(odds int) bool {
	return odds >= 100 || odds <= -100
}

// AmericanToDecimal: +150 -> 2.5, -200 -> 1.5
func AmericanToDecimal(odds int) float64 {
	if odds >= 100 {
		return float64(odds)/100 + 1
	}
	return 100/math.Abs(float64(odds)) + 1
}

// DecimalToAmerican é a inversa de AmericanToDecimal. Requer d > 1.
func DecimalToAmerican(d float64) int {
	if d >= 2 {
		return int(math.Round((d - 1) * 100))
	}
	return int(math.Round(-100 / (d - 1)))
}

// ImpliedProbability retorna 1/decimal
func ImpliedProbability(odds int) float64 {
	return 1 / AmericanToDecimal(odds)
}

// ProbabilityToAmerican converte uma probabilidade em (0,1) para odds americanas
func ProbabilityToAmerican(p float64) int {
	return DecimalToAmerican(1 / p)
}

// ApplyMargin infla a probabilidade implícita em uma fração m dela mesma
// (limitada a MaxImpliedProbability) e devolve a odd correspondente.
func ApplyMargin(odds int, m float64) int {
	p := ImpliedProbability(odds) * (1 + m)
	if p > MaxImpliedProbability {
		p = MaxImpliedProbability
	}
	return ProbabilityToAmerican(p)
}

// RoundToNearest5 arredonda para o múltiplo de 5 mais próximo mantendo |odds| >= 100
func RoundToNearest5(odds int) int {
	r := int(math.Round(float64(odds)/5) * 5)
	if r > -100 && r < 100 {
		if odds < 0 {
			return -100
		}
		return 100
	}
	return r
}

// DecimalOdds é a odd decimal em precisão exata, usada em cálculos de dinheiro
func DecimalOdds(odds int) decimal.Decimal {
	o := decimal.NewFromInt(int64(odds))
	if odds >= 100 {
		return o.Div(hundred).Add(decimal.NewFromInt(1))
	}
	return hundred.Div(o.Abs()).Add(decimal.NewFromInt(1))
}

// Profit é o lucro líquido de uma aposta vencedora, em centavos
func Profit(stake decimal.Decimal, odds int) decimal.Decimal {
	return Payout(stake, odds).Sub(stake)
}

// Payout = stake * decimal(odds), arredondado para centavos
func Payout(stake decimal.Decimal, odds int) decimal.Decimal {
	o := decimal.NewFromInt(int64(odds))
	var profit decimal.Decimal
	if odds >= 100 {
		profit = stake.Mul(o).Div(hundred)
	} else {
		profit = stake.Mul(hundred).Div(o.Abs())
	}
	return stake.Add(profit).Round(2)
}

// PayoutAt aplica uma odd decimal arbitrária (ex: combinada de parlay)
func PayoutAt(stake, decimalOdds decimal.Decimal) decimal.Decimal {
	return stake.Mul(decimalOdds).Round(2)
}
