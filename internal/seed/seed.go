// Package seed loads a small demo bar catalog into an empty or partially
// filled database.
package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/catalog"
	"github.com/Simplici0/recipecost/internal/db"
	"github.com/Simplici0/recipecost/internal/logger"
	"github.com/Simplici0/recipecost/internal/recipes"
)

type demoIngredient struct {
	name      string
	unit      string
	packQty   float64
	packPrice float64
}

type demoLine struct {
	ingredient string
	qty        float64
}

type demoSlot struct {
	name       string
	qty        float64
	ingredient string
}

type demoProduct struct {
	name      string
	salePrice float64
	fixed     []demoLine
	slots     []demoSlot
}

var demoIngredients = []demoIngredient{
	{"Vodka", "ml", 700, 14.00},
	{"Gin", "ml", 700, 18.90},
	{"Rum", "ml", 700, 16.50},
	{"Ginger Beer", "ml", 200, 1.20},
	{"Tonic Water", "ml", 200, 0.95},
	{"Lime", "piece", 10, 3.00},
	{"Mint", "g", 50, 1.50},
	{"Sugar Syrup", "ml", 700, 4.20},
}

var demoProducts = []demoProduct{
	{
		name:      "Moscow Mule",
		salePrice: 8.50,
		fixed:     []demoLine{{"Ginger Beer", 150}, {"Lime", 0.5}},
		slots:     []demoSlot{{"SPIRIT", 50, "Vodka"}},
	},
	{
		name:      "Gin Tonic",
		salePrice: 9.00,
		fixed:     []demoLine{{"Tonic Water", 200}, {"Lime", 0.25}},
		slots:     []demoSlot{{"SPIRIT", 40, "Gin"}},
	},
	{
		name:      "Mojito",
		salePrice: 9.50,
		fixed:     []demoLine{{"Mint", 5}, {"Lime", 1}, {"Sugar Syrup", 20}},
		slots:     []demoSlot{{"SPIRIT", 50, "Rum"}},
	},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the demo seed in an idempotent way. Existing ingredients and
// products are never modified; a product's lines are only added when the
// product itself is created by this run.
func Run(ctx context.Context, database *sql.DB, logg *logger.Logger) (Stats, error) {
	if logg == nil {
		logg = logger.Nop()
	}

	stats := Stats{}
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		ingredients := catalog.NewStore(database, logg).InTx(tx)
		products := recipes.NewStore(database, logg).InTx(tx)

		for _, di := range demoIngredients {
			if err := ensureIngredient(ctx, ingredients, di, &stats); err != nil {
				return err
			}
		}
		for _, dp := range demoProducts {
			if err := ensureProduct(ctx, ingredients, products, dp, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	logg.Info(logg.WithField(ctx, "inserts", stats.Inserts), "seed.completed")
	return stats, nil
}

func ensureIngredient(ctx context.Context, ingredients *catalog.Store, di demoIngredient, stats *Stats) error {
	_, err := ingredients.LookupByName(ctx, di.name)
	if err == nil {
		return nil
	}
	if !apperr.IsNotFound(err) {
		return fmt.Errorf("check ingredient %q existence: %w", di.name, err)
	}

	if _, err := ingredients.Upsert(ctx, catalog.UpsertInput{
		Name:      di.name,
		Unit:      di.unit,
		PackQty:   di.packQty,
		PackPrice: di.packPrice,
	}); err != nil {
		return fmt.Errorf("insert ingredient %q: %w", di.name, err)
	}
	stats.Inserts++
	return nil
}

func ensureProduct(ctx context.Context, ingredients *catalog.Store, products *recipes.Store, dp demoProduct, stats *Stats) error {
	_, err := products.LookupProductByName(ctx, dp.name)
	if err == nil {
		return nil
	}
	if !apperr.IsNotFound(err) {
		return fmt.Errorf("check product %q existence: %w", dp.name, err)
	}

	p, err := products.UpsertProduct(ctx, dp.name)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", dp.name, err)
	}
	stats.Inserts++

	sale := dp.salePrice
	if err := products.SetSalePrice(ctx, p.ID, &sale); err != nil {
		return fmt.Errorf("set sale price of %q: %w", dp.name, err)
	}

	for _, line := range dp.fixed {
		ing, err := ingredients.LookupByName(ctx, line.ingredient)
		if err != nil {
			return fmt.Errorf("resolve ingredient %q for %q: %w", line.ingredient, dp.name, err)
		}
		if _, err := products.AddFixedLine(ctx, p.ID, ing.ID, line.qty); err != nil {
			return fmt.Errorf("insert fixed line %q for %q: %w", line.ingredient, dp.name, err)
		}
		stats.Inserts++
	}

	for _, slot := range dp.slots {
		if _, err := products.AddSlotLine(ctx, p.ID, slot.name, slot.qty); err != nil {
			return fmt.Errorf("insert slot line %q for %q: %w", slot.name, dp.name, err)
		}
		stats.Inserts++

		ing, err := ingredients.LookupByName(ctx, slot.ingredient)
		if err != nil {
			return fmt.Errorf("resolve ingredient %q for slot %q: %w", slot.ingredient, slot.name, err)
		}
		if _, err := products.SetSlotBinding(ctx, p.ID, slot.name, ing.ID); err != nil {
			return fmt.Errorf("bind slot %q for %q: %w", slot.name, dp.name, err)
		}
		stats.Inserts++
	}

	return nil
}
