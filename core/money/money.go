// Package money holds the decimal arithmetic shared by the rate generator, the
// calculator and the discount engine. Every derived amount is rounded to cents
// at the step that produces it; invoices depend on that intermediate rounding.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places kept at each derivation step
const Places = 2

var (
	// GSTDivisor converts a GST-inclusive amount to its net amount (10% GST)
	GSTDivisor = decimal.RequireFromString("1.1")

	// Hundred is used for percentage arithmetic
	Hundred = decimal.NewFromInt(100)

	// Cent is the smallest representable amount
	Cent = decimal.RequireFromString("0.01")
)

// Round rounds half away from zero to cents
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Parse parses a decimal string and rounds it to cents
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: bad amount %q: %w", s, err)
	}
	return Round(d), nil
}

// MustParse is Parse for constants; it panics on malformed input
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Scale returns round(amount × factor)
func Scale(amount, factor decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(factor))
}

// Prorate returns round(amount × num × factor / den). The division comes last so
// repeating fractions such as 5/15 are not truncated before the multiply.
func Prorate(amount decimal.Decimal, num, den int, factor decimal.Decimal) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return Round(amount.Mul(decimal.NewFromInt(int64(num))).Mul(factor).Div(decimal.NewFromInt(int64(den))))
}

// Percent returns round(amount × pct / 100)
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(Hundred))
}

// Net strips 10% GST from a tax-inclusive amount
func Net(gross decimal.Decimal) decimal.Decimal {
	return Round(gross.Div(GSTDivisor))
}

// Gross adds 10% GST to a net amount
func Gross(net decimal.Decimal) decimal.Decimal {
	return Round(net.Mul(GSTDivisor))
}

// Sum adds amounts
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Min returns the smaller amount
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Format renders an amount with exactly two decimals
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
