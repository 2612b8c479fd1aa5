package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/recipecost/internal/db"
)

func TestUpCreatesSchemaAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "migrate-test.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Up(ctx, database, nil))
	require.NoError(t, Up(ctx, database, nil))

	version, err := Version(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"ingredients", "products", "product_items", "product_slot_lines", "product_slot_selection"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestSlotSelectionIsUniquePerProductAndSlot(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "migrate-unique.db"))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, Up(ctx, database, nil))

	_, err = database.Exec(`INSERT INTO ingredients (name, unit, pack_qty, pack_price) VALUES ('Vodka', 'ml', 700, 14)`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO products (name) VALUES ('Mule')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO product_slot_selection (product_id, slot_name, ingredient_id) VALUES (1, 'SPIRIT', 1)`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO product_slot_selection (product_id, slot_name, ingredient_id) VALUES (1, 'SPIRIT', 1)`)
	assert.Error(t, err)
}

func TestRestrictBlocksIngredientDelete(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "migrate-restrict.db"))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, Up(ctx, database, nil))

	_, err = database.Exec(`INSERT INTO ingredients (name, unit, pack_qty, pack_price) VALUES ('Vodka', 'ml', 700, 14)`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO products (name) VALUES ('Mule')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO product_items (product_id, ingredient_id, qty) VALUES (1, 1, 50)`)
	require.NoError(t, err)

	_, err = database.Exec(`DELETE FROM ingredients WHERE id = 1`)
	assert.Error(t, err)
}

func TestResetDropsTables(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "migrate-reset.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Up(ctx, database, nil))
	require.NoError(t, Reset(ctx, database, nil))

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ingredients'`).Scan(&count))
	assert.Equal(t, 0, count)
}
