package costing

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/pricing"
)

// Summary is the listing row of a product.
type Summary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	pricing.Evaluation
}

type SortKey string

const (
	SortByName   SortKey = "name"
	SortByCost   SortKey = "cost"
	SortByProfit SortKey = "profit"
	SortByMargin SortKey = "margin"
)

// ParseSortKey accepts name, cost, profit or margin, case-insensitively.
func ParseSortKey(raw string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	switch key {
	case SortByName, SortByCost, SortByProfit, SortByMargin:
		return key, nil
	}
	return "", apperr.Validation("unknown sort key %q", raw).
		WithDetails(map[string]string{"sort": "must be one of name cost profit margin"})
}

// Summaries evaluates every product in storage order.
func (e *Engine) Summaries(ctx context.Context) ([]Summary, error) {
	products, err := e.recipes.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Summary, 0, len(products))
	for _, p := range products {
		cost, err := e.ComputeCost(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Summary{ID: p.ID, Name: p.Name, Evaluation: pricing.Evaluate(cost, p.SalePrice)})
	}
	return rows, nil
}

// SortSummaries sorts rows in place. Absent profit or margin values order
// below every present value. Equal keys keep their relative order.
func SortSummaries(rows []Summary, key SortKey, desc bool) {
	compare := func(a, b Summary) int {
		switch key {
		case SortByCost:
			return cmp.Compare(a.Cost, b.Cost)
		case SortByProfit:
			return cmp.Compare(orNegInf(a.Profit), orNegInf(b.Profit))
		case SortByMargin:
			return cmp.Compare(orNegInf(a.MarginPct), orNegInf(b.MarginPct))
		default:
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	}

	slices.SortStableFunc(rows, func(a, b Summary) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func orNegInf(v *float64) float64 {
	if v == nil {
		return math.Inf(-1)
	}
	return *v
}
