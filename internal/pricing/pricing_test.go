package pricing

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func ptr(v float64) *float64 { return &v }

func TestUnitPrice(t *testing.T) {
	nearlyEqual(t, "vodka", UnitPrice(700, 14), 0.02)
	nearlyEqual(t, "zero pack qty", UnitPrice(0, 14), 0)
	nearlyEqual(t, "free", UnitPrice(10, 0), 0)
}

func TestLineCost(t *testing.T) {
	nearlyEqual(t, "50ml vodka", LineCost(50, 700, 14), 1.0)
	nearlyEqual(t, "zero pack qty", LineCost(50, 0, 14), 0)
}

func TestEvaluate_NoSalePrice(t *testing.T) {
	result := Evaluate(1.0, nil)

	if result.Profit != nil || result.MarginPct != nil || result.SalePrice != nil {
		t.Fatalf("expected absent profit and margin, got %+v", result)
	}
	nearlyEqual(t, "cost", result.Cost, 1.0)
}

func TestEvaluate_ProfitAndMargin(t *testing.T) {
	result := Evaluate(1.0, ptr(5.0))

	if result.Profit == nil || result.MarginPct == nil {
		t.Fatalf("expected profit and margin, got %+v", result)
	}
	nearlyEqual(t, "profit", *result.Profit, 4.0)
	nearlyEqual(t, "margin", *result.MarginPct, 80.0)
}

func TestEvaluate_ZeroSalePriceHasZeroMargin(t *testing.T) {
	for _, cost := range []float64{0, 1.5, 42} {
		result := Evaluate(cost, ptr(0))

		nearlyEqual(t, "profit", *result.Profit, -cost)
		nearlyEqual(t, "margin", *result.MarginPct, 0)
	}
}

func TestEvaluate_NegativeProfit(t *testing.T) {
	result := Evaluate(6, ptr(4))

	nearlyEqual(t, "profit", *result.Profit, -2)
	nearlyEqual(t, "margin", *result.MarginPct, -50)
}

func TestEvaluate_DoesNotAliasInput(t *testing.T) {
	sale := 5.0
	result := Evaluate(1, &sale)
	sale = 10

	nearlyEqual(t, "sale", *result.SalePrice, 5)
}

func TestFormatting(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"money", Money(1), "1.00 €"},
		{"money rounding", Money(0.125), "0.13 €"},
		{"money negative", Money(-2.5), "-2.50 €"},
		{"money absent", MoneyOrPlaceholder(nil), "–"},
		{"percent", Percent(ptr(80)), "80.0 %"},
		{"percent absent", Percent(nil), "–"},
		{"unit price", UnitPriceLabel(0.02, "ml"), "0.0200 €/ml"},
		{"quantity int", Quantity(50), "50"},
		{"quantity fraction", Quantity(0.5), "0.5"},
	}

	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s = %q, want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestFormattingNonFinite(t *testing.T) {
	inf := math.Inf(1)
	nan := math.NaN()
	cases := []struct {
		name string
		got  string
	}{
		{"money inf", Money(inf)},
		{"money nan", Money(nan)},
		{"money ptr inf", MoneyOrPlaceholder(&inf)},
		{"percent inf", Percent(&inf)},
		{"percent nan", Percent(&nan)},
		{"unit price inf", UnitPriceLabel(inf, "ml")},
		{"unit price -inf", UnitPriceLabel(math.Inf(-1), "g")},
	}

	for _, tc := range cases {
		if tc.got != Placeholder {
			t.Fatalf("%s = %q, want %q", tc.name, tc.got, Placeholder)
		}
	}
}
