package adjust

import "github.com/shopspring/decimal"

// Precision is the number of decimal places kept for prices and audit ratios.
const Precision = 4

// Round rounds v half away from zero to Precision decimal places.
func Round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(Precision).Float64()
	return f
}

// scale multiplies a price by a factor and rounds the result.
// Non-positive prices mean "absent" and stay zero.
func scale(price, factor float64) float64 {
	if price <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(factor)).Round(Precision)
	f, _ := p.Float64()
	return f
}

// change returns cur - prev rounded to Precision.
func change(cur, prev float64) float64 {
	f, _ := decimal.NewFromFloat(cur).Sub(decimal.NewFromFloat(prev)).Round(Precision).Float64()
	return f
}
