package costing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/pricing"
)

func TestSummaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vodka := f.ingredient(t, "Vodka", "ml", 700, 14)
	mule := f.product(t, "Mule")
	water := f.product(t, "Water")
	_, err := f.recipes.AddFixedLine(ctx, mule.ID, vodka.ID, 50)
	require.NoError(t, err)
	require.NoError(t, f.recipes.SetSalePrice(ctx, mule.ID, ptr(5)))

	rows, err := f.engine.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, mule.ID, rows[0].ID)
	assert.InDelta(t, 1.0, rows[0].Cost, 1e-9)
	require.NotNil(t, rows[0].MarginPct)
	assert.InDelta(t, 80.0, *rows[0].MarginPct, 1e-9)

	assert.Equal(t, water.ID, rows[1].ID)
	assert.Zero(t, rows[1].Cost)
	assert.Nil(t, rows[1].Profit)
}

func summary(name string, cost float64, sale *float64) Summary {
	return Summary{Name: name, Evaluation: pricing.Evaluate(cost, sale)}
}

func names(rows []Summary) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestSortSummaries(t *testing.T) {
	base := []Summary{
		summary("mule", 1, ptr(5)),
		summary("Negroni", 3, nil),
		summary("Americano", 2, ptr(4)),
		summary("free", 0.5, ptr(0)),
	}

	cases := []struct {
		key  SortKey
		desc bool
		want []string
	}{
		{SortByName, false, []string{"Americano", "free", "mule", "Negroni"}},
		{SortByName, true, []string{"Negroni", "mule", "free", "Americano"}},
		{SortByCost, false, []string{"free", "mule", "Americano", "Negroni"}},
		{SortByProfit, false, []string{"Negroni", "free", "Americano", "mule"}},
		{SortByProfit, true, []string{"mule", "Americano", "free", "Negroni"}},
		{SortByMargin, true, []string{"mule", "Americano", "free", "Negroni"}},
	}

	for _, tc := range cases {
		rows := append([]Summary(nil), base...)
		SortSummaries(rows, tc.key, tc.desc)
		assert.Equal(t, tc.want, names(rows), "%s desc=%v", tc.key, tc.desc)
	}
}

func TestOrNegInf(t *testing.T) {
	assert.True(t, math.IsInf(orNegInf(nil), -1))
	assert.Equal(t, 2.0, orNegInf(ptr(2)))
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey(" Margin ")
	require.NoError(t, err)
	assert.Equal(t, SortByMargin, key)

	_, err = ParseSortKey("price")
	assert.True(t, apperr.IsValidation(err))
}
