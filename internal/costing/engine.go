// Package costing derives product costs from recipe lines and current catalog
// prices. Nothing is cached: every call reads the latest lines, bindings and
// package prices.
package costing

import (
	"context"
	"time"

	"github.com/Simplici0/recipecost/internal/catalog"
	"github.com/Simplici0/recipecost/internal/logger"
	"github.com/Simplici0/recipecost/internal/metrics"
	"github.com/Simplici0/recipecost/internal/pricing"
	"github.com/Simplici0/recipecost/internal/recipes"
)

// RecipeReader is the part of the recipe store the engine reads from.
type RecipeReader interface {
	GetProduct(ctx context.Context, id int64) (recipes.Product, error)
	ListProducts(ctx context.Context) ([]recipes.Product, error)
	ListFixedLines(ctx context.Context, productID int64) ([]recipes.FixedLine, error)
	ListSlotLines(ctx context.Context, productID int64) ([]recipes.SlotLine, error)
	ResolveSlotBinding(ctx context.Context, productID int64, slotName string) (recipes.ResolvedSlot, bool, error)
}

type LineKind string

const (
	LineFixed LineKind = "fixed"
	LineSlot  LineKind = "slot"
)

const unsetLabel = "(unset)"

// Line is one costed recipe line. UnitPrice is nil for an unbound slot line.
type Line struct {
	Kind           LineKind     `json:"kind"`
	LineID         int64        `json:"line_id"`
	Label          string       `json:"label"`
	Slot           string       `json:"slot,omitempty"`
	IngredientID   int64        `json:"ingredient_id,omitempty"`
	IngredientName string       `json:"ingredient_name,omitempty"`
	Qty            float64      `json:"qty"`
	Unit           catalog.Unit `json:"unit,omitempty"`
	UnitPrice      *float64     `json:"unit_price"`
	Cost           float64      `json:"cost"`
	Bound          bool         `json:"bound"`
}

// Breakdown lists fixed lines (by ingredient name) then slot lines (by slot
// name). Total is the sum of all line costs.
type Breakdown struct {
	ProductID int64   `json:"product_id"`
	Lines     []Line  `json:"lines"`
	Total     float64 `json:"total"`
}

type Engine struct {
	recipes RecipeReader
	metrics *metrics.CostMetrics
	logg    *logger.Logger
}

func NewEngine(r RecipeReader, m *metrics.CostMetrics, logg *logger.Logger) *Engine {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Engine{recipes: r, metrics: m, logg: logg}
}

// ComputeCost returns the total cost of one unit of the product. Unbound slot
// lines contribute 0. A product without lines, or an unknown id, costs 0.
func (e *Engine) ComputeCost(ctx context.Context, productID int64) (float64, error) {
	b, err := e.Breakdown(ctx, productID)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

// Breakdown costs every recipe line of the product.
func (e *Engine) Breakdown(ctx context.Context, productID int64) (b Breakdown, err error) {
	started := time.Now()
	defer func() {
		e.metrics.ObserveComputation(time.Since(started), err)
	}()

	fixed, err := e.recipes.ListFixedLines(ctx, productID)
	if err != nil {
		return Breakdown{}, err
	}
	slots, err := e.recipes.ListSlotLines(ctx, productID)
	if err != nil {
		return Breakdown{}, err
	}

	b = Breakdown{ProductID: productID, Lines: make([]Line, 0, len(fixed)+len(slots))}

	for _, fl := range fixed {
		unitPrice := pricing.UnitPrice(fl.PackQty, fl.PackPrice)
		line := Line{
			Kind:           LineFixed,
			LineID:         fl.ID,
			Label:          fl.IngredientName,
			IngredientID:   fl.IngredientID,
			IngredientName: fl.IngredientName,
			Qty:            fl.Qty,
			Unit:           fl.Unit,
			UnitPrice:      &unitPrice,
			Cost:           unitPrice * fl.Qty,
			Bound:          true,
		}
		b.Lines = append(b.Lines, line)
		b.Total += line.Cost
	}

	unbound := 0
	for _, sl := range slots {
		resolved, ok, err := e.recipes.ResolveSlotBinding(ctx, productID, sl.SlotName)
		if err != nil {
			return Breakdown{}, err
		}

		line := Line{
			Kind:   LineSlot,
			LineID: sl.ID,
			Slot:   sl.SlotName,
			Qty:    sl.Qty,
		}
		if !ok {
			line.Label = SlotLabel(sl.SlotName, "")
			unbound++
			b.Lines = append(b.Lines, line)
			continue
		}

		unitPrice := pricing.UnitPrice(resolved.PackQty, resolved.PackPrice)
		line.Label = SlotLabel(sl.SlotName, resolved.IngredientName)
		line.IngredientID = resolved.IngredientID
		line.IngredientName = resolved.IngredientName
		line.Unit = resolved.Unit
		line.UnitPrice = &unitPrice
		line.Cost = unitPrice * sl.Qty
		line.Bound = true
		b.Lines = append(b.Lines, line)
		b.Total += line.Cost
	}

	if unbound > 0 {
		e.metrics.AddUnboundSlotLines(unbound)
		e.logg.Debug(e.logg.WithFields(e.logg.WithProductID(ctx, productID), map[string]any{
			"unbound_slot_lines": unbound,
		}), "cost.unbound_slots")
	}

	return b, nil
}

// Evaluate computes the product's cost and combines it with its sale price.
func (e *Engine) Evaluate(ctx context.Context, productID int64) (pricing.Evaluation, error) {
	p, err := e.recipes.GetProduct(ctx, productID)
	if err != nil {
		return pricing.Evaluation{}, err
	}
	cost, err := e.ComputeCost(ctx, p.ID)
	if err != nil {
		return pricing.Evaluation{}, err
	}
	return pricing.Evaluate(cost, p.SalePrice), nil
}

// SlotLabel renders "SLOT → ingredient", or "SLOT → (unset)" when
// ingredientName is empty.
func SlotLabel(slot, ingredientName string) string {
	if ingredientName == "" {
		ingredientName = unsetLabel
	}
	return slot + " → " + ingredientName
}
