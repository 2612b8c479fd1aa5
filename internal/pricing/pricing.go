package pricing

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Placeholder rendered for absent values ("no data", distinct from zero).
const Placeholder = "–"

// UnitPrice returns the per-unit cost basis of a package. A zero package
// quantity yields 0 instead of dividing by zero.
func UnitPrice(packQty, packPrice float64) float64 {
	if packQty == 0 {
		return 0
	}
	return packPrice / packQty
}

// LineCost is the cost of qty units of an ingredient priced per package.
func LineCost(qty, packQty, packPrice float64) float64 {
	return UnitPrice(packQty, packPrice) * qty
}

// Evaluation groups the derived profit and margin of a product. Both are nil
// when no sale price is set.
type Evaluation struct {
	Cost      float64  `json:"cost"`
	SalePrice *float64 `json:"sale_price"`
	Profit    *float64 `json:"profit"`
	MarginPct *float64 `json:"margin_pct"`
}

// Evaluate combines a computed cost with an optional sale price.
//
// A zero sale price has a 0% margin regardless of cost.
func Evaluate(cost float64, salePrice *float64) Evaluation {
	result := Evaluation{Cost: cost}
	if salePrice == nil {
		return result
	}

	sale := *salePrice
	profit := sale - cost
	margin := 0.0
	if sale > 0 {
		margin = profit / sale * 100.0
	}

	result.SalePrice = &sale
	result.Profit = &profit
	result.MarginPct = &margin
	return result
}

// Money renders an amount with two decimals and the euro sign, e.g. "1.00 €".
func Money(x float64) string {
	if !finite(x) {
		return Placeholder
	}
	return decimal.NewFromFloat(x).StringFixed(2) + " €"
}

// MoneyOrPlaceholder renders Money(*x), or Placeholder when x is nil.
func MoneyOrPlaceholder(x *float64) string {
	if x == nil {
		return Placeholder
	}
	return Money(*x)
}

// Percent renders a percentage with one decimal, e.g. "80.0 %".
func Percent(x *float64) string {
	if x == nil || !finite(*x) {
		return Placeholder
	}
	return decimal.NewFromFloat(*x).StringFixed(1) + " %"
}

// UnitPriceLabel renders a unit price with four decimals per unit, e.g. "0.0200 €/ml".
func UnitPriceLabel(unitPrice float64, unit string) string {
	if !finite(unitPrice) {
		return Placeholder
	}
	return decimal.NewFromFloat(unitPrice).StringFixed(4) + " €/" + unit
}

// Quantity renders a quantity in its shortest form ("50", "0.5").
func Quantity(q float64) string {
	return strconv.FormatFloat(q, 'g', -1, 64)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
