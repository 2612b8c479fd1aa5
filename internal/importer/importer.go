package importer

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/catalog"
	"github.com/Simplici0/recipecost/internal/db"
	"github.com/Simplici0/recipecost/internal/logger"
	"github.com/Simplici0/recipecost/internal/recipes"
)

// Stats counts what an Apply wrote.
type Stats struct {
	Ingredients int
	Products    int
	FixedLines  int
	SlotLines   int
	Bindings    int
}

// Apply writes f into the database in a single transaction. Ingredients are
// upserted by name. Each listed product has its fixed and slot lines replaced
// by the file's lines; bindings are upserted and unlisted bindings are kept.
// Nothing is written when any part fails.
func Apply(ctx context.Context, database *sql.DB, f *File, logg *logger.Logger) (Stats, error) {
	if logg == nil {
		logg = logger.Nop()
	}

	var stats Stats
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		ingredients := catalog.NewStore(database, logg).InTx(tx)
		products := recipes.NewStore(database, logg).InTx(tx)

		names, err := ingredients.Names(ctx)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(names))
		for _, n := range names {
			known[n] = true
		}
		if err := checkReferences(f, known); err != nil {
			return apperr.Wrap(apperr.CodeValidation, err, "catalog file has unresolved references").
				WithDetails(errorList(err))
		}

		for _, in := range f.Ingredients {
			if _, err := ingredients.Upsert(ctx, catalog.UpsertInput{
				Name:      in.Name,
				Unit:      in.Unit,
				PackQty:   in.PackQty,
				PackPrice: in.PackPrice,
			}); err != nil {
				return fmt.Errorf("ingredient %q: %w", in.Name, err)
			}
			stats.Ingredients++
		}

		for _, p := range f.Products {
			if err := applyProduct(ctx, ingredients, products, p, &stats); err != nil {
				return fmt.Errorf("product %q: %w", p.Name, err)
			}
			stats.Products++
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"ingredients": stats.Ingredients,
		"products":    stats.Products,
	}), "import.applied")
	return stats, nil
}

func applyProduct(ctx context.Context, ingredients *catalog.Store, products *recipes.Store, in Product, stats *Stats) error {
	p, err := products.UpsertProduct(ctx, in.Name)
	if err != nil {
		return err
	}
	if in.SalePrice != nil {
		if err := products.SetSalePrice(ctx, p.ID, in.SalePrice); err != nil {
			return err
		}
	}

	if err := clearLines(ctx, products, p.ID); err != nil {
		return err
	}

	for _, item := range in.Items {
		ing, err := ingredients.LookupByName(ctx, item.Ingredient)
		if err != nil {
			return err
		}
		if _, err := products.AddFixedLine(ctx, p.ID, ing.ID, item.Qty); err != nil {
			return fmt.Errorf("item %q: %w", item.Ingredient, err)
		}
		stats.FixedLines++
	}

	for _, slot := range in.Slots {
		if _, err := products.AddSlotLine(ctx, p.ID, slot.Name, slot.Qty); err != nil {
			return fmt.Errorf("slot %q: %w", slot.Name, err)
		}
		stats.SlotLines++
	}

	for _, slot := range boundSlots(in) {
		ing, err := ingredients.LookupByName(ctx, in.Bindings[slot])
		if err != nil {
			return err
		}
		if _, err := products.SetSlotBinding(ctx, p.ID, slot, ing.ID); err != nil {
			return fmt.Errorf("binding %q: %w", slot, err)
		}
		stats.Bindings++
	}

	return nil
}

func clearLines(ctx context.Context, products *recipes.Store, productID int64) error {
	fixed, err := products.ListFixedLines(ctx, productID)
	if err != nil {
		return err
	}
	for _, l := range fixed {
		if err := products.RemoveFixedLine(ctx, l.ID); err != nil {
			return err
		}
	}

	slots, err := products.ListSlotLines(ctx, productID)
	if err != nil {
		return err
	}
	for _, l := range slots {
		if err := products.RemoveSlotLine(ctx, l.ID); err != nil {
			return err
		}
	}
	return nil
}

// Export reads the whole database into a File. Applying the result to an
// empty database reproduces the same catalog, recipes and bindings.
func Export(ctx context.Context, database *sql.DB) (*File, error) {
	ingredients := catalog.NewStore(database, nil)
	products := recipes.NewStore(database, nil)

	all, err := ingredients.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	f := &File{
		Ingredients: make([]Ingredient, 0, len(all)),
		Products:    make([]Product, 0),
	}
	for _, ing := range all {
		f.Ingredients = append(f.Ingredients, Ingredient{
			Name:      ing.Name,
			Unit:      ing.Unit.String(),
			PackQty:   ing.PackQty,
			PackPrice: ing.PackPrice,
		})
	}

	list, err := products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(list, func(a, b recipes.Product) int {
		return strings.Compare(a.Name, b.Name)
	})

	for _, p := range list {
		out := Product{Name: p.Name, SalePrice: p.SalePrice}

		fixed, err := products.ListFixedLines(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range fixed {
			out.Items = append(out.Items, Item{Ingredient: l.IngredientName, Qty: l.Qty})
		}

		slots, err := products.ListSlotLines(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range slots {
			out.Slots = append(out.Slots, Slot{Name: l.SlotName, Qty: l.Qty})
		}

		bindings, err := products.ListSlotBindings(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if len(bindings) > 0 {
			out.Bindings = make(map[string]string, len(bindings))
			for _, b := range bindings {
				out.Bindings[b.SlotName] = b.IngredientName
			}
		}

		f.Products = append(f.Products, out)
	}

	return f, nil
}

func errorList(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
