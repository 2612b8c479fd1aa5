package catalog

import (
	"context"
	"database/sql"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/dbtest"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	database := dbtest.Open(t)
	return NewStore(database, nil), database
}

func mustUpsert(t *testing.T, s *Store, name, unit string, packQty, packPrice float64) Ingredient {
	t.Helper()
	ing, err := s.Upsert(context.Background(), UpsertInput{Name: name, Unit: unit, PackQty: packQty, PackPrice: packPrice})
	require.NoError(t, err)
	return ing
}

func TestUpsertInsertsAndComputesUnitPrice(t *testing.T) {
	s, _ := newTestStore(t)

	ing := mustUpsert(t, s, "Vodka", "ml", 700, 14)

	assert.NotZero(t, ing.ID)
	assert.Equal(t, UnitMilliliter, ing.Unit)
	assert.InDelta(t, 0.02, ing.UnitPrice(), 1e-12)
}

func TestUpsertIsIdempotent(t *testing.T) {
	s, database := newTestStore(t)

	first := mustUpsert(t, s, "Vodka", "ml", 700, 14)
	second := mustUpsert(t, s, "Vodka", "ml", 700, 14)

	assert.Equal(t, first, second)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM ingredients`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpsertOverwritesByName(t *testing.T) {
	s, _ := newTestStore(t)

	first := mustUpsert(t, s, "Lime", "piece", 10, 3)
	second := mustUpsert(t, s, "  Lime ", "g", 1000, 4.5)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, UnitGram, second.Unit)
	assert.Equal(t, 1000.0, second.PackQty)
	assert.Equal(t, 4.5, second.PackPrice)
}

func TestUpsertNormalizesUnitAliases(t *testing.T) {
	s, _ := newTestStore(t)

	ing := mustUpsert(t, s, "Mint", "Stk", 20, 2)
	assert.Equal(t, UnitPiece, ing.Unit)
}

func TestUpsertValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   UpsertInput
	}{
		{"missing name", UpsertInput{Name: "  ", Unit: "ml", PackQty: 1, PackPrice: 1}},
		{"bad unit", UpsertInput{Name: "Gin", Unit: "l", PackQty: 1, PackPrice: 1}},
		{"missing unit", UpsertInput{Name: "Gin", PackQty: 1, PackPrice: 1}},
		{"zero pack qty", UpsertInput{Name: "Gin", Unit: "ml", PackQty: 0, PackPrice: 1}},
		{"negative pack qty", UpsertInput{Name: "Gin", Unit: "ml", PackQty: -5, PackPrice: 1}},
		{"negative price", UpsertInput{Name: "Gin", Unit: "ml", PackQty: 700, PackPrice: -1}},
		{"infinite price", UpsertInput{Name: "Gin", Unit: "ml", PackQty: 700, PackPrice: math.Inf(1)}},
		{"infinite pack qty", UpsertInput{Name: "Gin", Unit: "ml", PackQty: math.Inf(1), PackPrice: 1}},
		{"unit price overflow", UpsertInput{Name: "Gin", Unit: "ml", PackQty: 1e-300, PackPrice: 1e300}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Upsert(ctx, tc.in)
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestZeroPackQtyRowHasZeroUnitPrice(t *testing.T) {
	s, database := newTestStore(t)

	_, err := database.Exec(`INSERT INTO ingredients (name, unit, pack_qty, pack_price) VALUES ('Legacy', 'ml', 0, 10)`)
	require.NoError(t, err)

	ing, err := s.LookupByName(context.Background(), "Legacy")
	require.NoError(t, err)
	assert.Equal(t, 0.0, ing.UnitPrice())
}

func TestListAllOrdersByName(t *testing.T) {
	s, _ := newTestStore(t)

	mustUpsert(t, s, "Vodka", "ml", 700, 14)
	mustUpsert(t, s, "Ginger Beer", "ml", 200, 1.2)
	mustUpsert(t, s, "Lime", "piece", 1, 0.3)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Ginger Beer", "Lime", "Vodka"}, []string{all[0].Name, all[1].Name, all[2].Name})

	names, err := s.Names(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ginger Beer", "Lime", "Vodka"}, names)
}

func TestLookupAndGetNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.LookupByName(ctx, "Nope")
	assert.True(t, apperr.IsNotFound(err))

	_, err = s.Get(ctx, 999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteUnreferenced(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ing := mustUpsert(t, s, "Vodka", "ml", 700, 14)

	used, err := s.IsReferenced(ctx, ing.ID)
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, s.Delete(ctx, ing.ID))

	_, err = s.Get(ctx, ing.ID)
	assert.True(t, apperr.IsNotFound(err))

	err = s.Delete(ctx, ing.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteBlockedByFixedLine(t *testing.T) {
	s, database := newTestStore(t)
	ctx := context.Background()

	ing := mustUpsert(t, s, "Vodka", "ml", 700, 14)
	_, err := database.Exec(`INSERT INTO products (name) VALUES ('Mule')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO product_items (product_id, ingredient_id, qty) VALUES (1, ?, 50)`, ing.ID)
	require.NoError(t, err)

	used, err := s.IsReferenced(ctx, ing.ID)
	require.NoError(t, err)
	assert.True(t, used)

	err = s.Delete(ctx, ing.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	after, err := s.Get(ctx, ing.ID)
	require.NoError(t, err)
	assert.Equal(t, ing, after)

	var lines int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM product_items`).Scan(&lines))
	assert.Equal(t, 1, lines)
}

func TestDeleteBlockedBySlotBindingOnly(t *testing.T) {
	s, database := newTestStore(t)
	ctx := context.Background()

	ing := mustUpsert(t, s, "Vodka", "ml", 700, 14)
	_, err := database.Exec(`INSERT INTO products (name) VALUES ('Mule')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO product_slot_selection (product_id, slot_name, ingredient_id) VALUES (1, 'SPIRIT', ?)`, ing.ID)
	require.NoError(t, err)

	err = s.Delete(ctx, ing.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	var bindings int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM product_slot_selection`).Scan(&bindings))
	assert.Equal(t, 1, bindings)
}

func TestResolveName(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, "Vodka", "ml", 700, 14)
	mustUpsert(t, s, "Vodka Premium", "ml", 700, 30)
	mustUpsert(t, s, "Ginger Beer", "ml", 200, 1.2)

	ing, err := s.ResolveName(ctx, "vodka")
	require.NoError(t, err)
	assert.Equal(t, "Vodka", ing.Name, "exact match wins over substring matches")

	ing, err = s.ResolveName(ctx, "ginger")
	require.NoError(t, err)
	assert.Equal(t, "Ginger Beer", ing.Name)

	_, err = s.ResolveName(ctx, "odk")
	assert.True(t, apperr.IsNotFound(err), "ambiguous substring")

	_, err = s.ResolveName(ctx, "rum")
	assert.True(t, apperr.IsNotFound(err))

	_, err = s.ResolveName(ctx, " ")
	assert.True(t, apperr.IsValidation(err))
}

func TestParseUnit(t *testing.T) {
	for raw, want := range map[string]Unit{"ml": UnitMilliliter, " G ": UnitGram, "piece": UnitPiece, "STK": UnitPiece, "pcs": UnitPiece} {
		got, err := ParseUnit(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
		assert.True(t, got.Valid())
	}

	_, err := ParseUnit("kg")
	assert.True(t, apperr.IsValidation(err))
	assert.False(t, Unit("kg").Valid())
}
