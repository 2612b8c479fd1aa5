package main

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/costing"
	"github.com/Simplici0/recipecost/internal/pricing"
	"github.com/Simplici0/recipecost/internal/recipes"
	"github.com/Simplici0/recipecost/internal/validation"
)

type evaluationLabels struct {
	CostLabel      string `json:"cost_label"`
	SalePriceLabel string `json:"sale_price_label"`
	ProfitLabel    string `json:"profit_label"`
	MarginLabel    string `json:"margin_label"`
}

func labelsFor(ev pricing.Evaluation) evaluationLabels {
	return evaluationLabels{
		CostLabel:      pricing.Money(ev.Cost),
		SalePriceLabel: pricing.MoneyOrPlaceholder(ev.SalePrice),
		ProfitLabel:    pricing.MoneyOrPlaceholder(ev.Profit),
		MarginLabel:    pricing.Percent(ev.MarginPct),
	}
}

type summaryView struct {
	costing.Summary
	evaluationLabels
}

type evaluationView struct {
	pricing.Evaluation
	evaluationLabels
}

type lineView struct {
	costing.Line
	QtyLabel       string `json:"qty_label"`
	UnitPriceLabel string `json:"unit_price_label"`
	CostLabel      string `json:"cost_label"`
}

type productDetail struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Evaluation evaluationView `json:"evaluation"`
	Lines      []lineView     `json:"lines"`
}

type slotView struct {
	Slot           string `json:"slot"`
	Bound          bool   `json:"bound"`
	IngredientID   int64  `json:"ingredient_id,omitempty"`
	IngredientName string `json:"ingredient_name,omitempty"`
	Label          string `json:"label"`
}

func newLineView(l costing.Line) lineView {
	v := lineView{
		Line:           l,
		QtyLabel:       pricing.Quantity(l.Qty),
		UnitPriceLabel: pricing.Placeholder,
		CostLabel:      pricing.Money(l.Cost),
	}
	if l.UnitPrice != nil {
		v.UnitPriceLabel = pricing.UnitPriceLabel(*l.UnitPrice, l.Unit.String())
	}
	return v
}

func (s *server) handleProductsList(w http.ResponseWriter, r *http.Request) {
	rows, err := s.engine.Summaries(r.Context())
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		rows = slices.DeleteFunc(rows, func(row costing.Summary) bool {
			return !nameContains(row.Name, q)
		})
	}

	if raw := r.URL.Query().Get("sort"); raw != "" {
		key, err := costing.ParseSortKey(raw)
		if err != nil {
			writeError(r.Context(), s.logg, w, err)
			return
		}
		desc, err := queryBool(r, "desc")
		if err != nil {
			writeError(r.Context(), s.logg, w, err)
			return
		}
		costing.SortSummaries(rows, key, desc)
	}

	views := make([]summaryView, 0, len(rows))
	for _, row := range rows {
		views = append(views, summaryView{Summary: row, evaluationLabels: labelsFor(row.Evaluation)})
	}
	writeSuccess(w, views)
}

type productBody struct {
	Name string `json:"name" validate:"required"`
}

func (s *server) handleProductUpsert(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := validation.DecodeJSONBody(r, &body); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	p, err := s.recipes.UpsertProduct(r.Context(), body.Name)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, p)
}

func (s *server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	p, ok := s.productFromPath(w, r)
	if !ok {
		return
	}

	b, err := s.engine.Breakdown(r.Context(), p.ID)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	ev := pricing.Evaluate(b.Total, p.SalePrice)
	detail := productDetail{
		ID:         p.ID,
		Name:       p.Name,
		Evaluation: evaluationView{Evaluation: ev, evaluationLabels: labelsFor(ev)},
		Lines:      make([]lineView, 0, len(b.Lines)),
	}
	for _, l := range b.Lines {
		detail.Lines = append(detail.Lines, newLineView(l))
	}
	writeSuccess(w, detail)
}

func (s *server) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	if err := s.recipes.DeleteProduct(r.Context(), id); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type salePriceBody struct {
	SalePrice *float64 `json:"sale_price"`
}

// handleSalePrice sets the sale price; a null or missing value clears it.
func (s *server) handleSalePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	var body salePriceBody
	if err := validation.DecodeJSONBody(r, &body); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	if err := s.recipes.SetSalePrice(r.Context(), id, body.SalePrice); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	p, err := s.recipes.GetProduct(r.Context(), id)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, p)
}

func (s *server) handleProductCost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	ev, err := s.engine.Evaluate(r.Context(), id)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, evaluationView{Evaluation: ev, evaluationLabels: labelsFor(ev)})
}

type fixedLineBody struct {
	ingredientRef
	Qty float64 `json:"qty" validate:"gt=0"`
}

func (s *server) handleFixedLineAdd(w http.ResponseWriter, r *http.Request) {
	p, ok := s.productFromPath(w, r)
	if !ok {
		return
	}

	var body fixedLineBody
	if err := validation.DecodeJSONBody(r, &body); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	ingredientID, err := s.resolveIngredientRef(r, body.ingredientRef)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	line, err := s.recipes.AddFixedLine(r.Context(), p.ID, ingredientID, body.Qty)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccessStatus(w, http.StatusCreated, line)
}

func (s *server) handleFixedLineRemove(w http.ResponseWriter, r *http.Request) {
	p, ok := s.productFromPath(w, r)
	if !ok {
		return
	}
	lineID, err := pathID(r, "lineID")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	lines, err := s.recipes.ListFixedLines(r.Context(), p.ID)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	if !containsLine(lines, lineID, func(l recipes.FixedLine) int64 { return l.ID }) {
		writeError(r.Context(), s.logg, w, apperr.NotFound("fixed line %d not found on product %d", lineID, p.ID))
		return
	}

	if err := s.recipes.RemoveFixedLine(r.Context(), lineID); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type slotLineBody struct {
	SlotName string  `json:"slot_name" validate:"required"`
	Qty      float64 `json:"qty" validate:"gt=0"`
}

func (s *server) handleSlotLineAdd(w http.ResponseWriter, r *http.Request) {
	p, ok := s.productFromPath(w, r)
	if !ok {
		return
	}

	var body slotLineBody
	if err := validation.DecodeJSONBody(r, &body); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	line, err := s.recipes.AddSlotLine(r.Context(), p.ID, body.SlotName, body.Qty)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccessStatus(w, http.StatusCreated, line)
}

func (s *server) handleSlotLineRemove(w http.ResponseWriter, r *http.Request) {
	p, ok := s.productFromPath(w, r)
	if !ok {
		return
	}
	lineID, err := pathID(r, "lineID")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	lines, err := s.recipes.ListSlotLines(r.Context(), p.ID)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	if !containsLine(lines, lineID, func(l recipes.SlotLine) int64 { return l.ID }) {
		writeError(r.Context(), s.logg, w, apperr.NotFound("slot line %d not found on product %d", lineID, p.ID))
		return
	}

	if err := s.recipes.RemoveSlotLine(r.Context(), lineID); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSlotsList returns each slot used by the product's slot lines with its
// current binding.
func (s *server) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	p, ok := s.productFromPath(w, r)
	if !ok {
		return
	}

	views, err := s.slotViews(r.Context(), p.ID)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, views)
}

func (s *server) slotViews(ctx context.Context, productID int64) ([]slotView, error) {
	names, err := s.recipes.ListDistinctSlotNames(ctx, productID)
	if err != nil {
		return nil, err
	}
	bindings, err := s.recipes.ListSlotBindings(ctx, productID)
	if err != nil {
		return nil, err
	}

	bound := make(map[string]recipes.SlotBinding, len(bindings))
	for _, b := range bindings {
		bound[b.SlotName] = b
	}

	views := make([]slotView, 0, len(names))
	for _, name := range names {
		v := slotView{Slot: name, Label: costing.SlotLabel(name, "")}
		if b, ok := bound[name]; ok {
			v.Bound = true
			v.IngredientID = b.IngredientID
			v.IngredientName = b.IngredientName
			v.Label = costing.SlotLabel(name, b.IngredientName)
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *server) handleSlotBind(w http.ResponseWriter, r *http.Request) {
	p, ok := s.productFromPath(w, r)
	if !ok {
		return
	}

	var body ingredientRef
	if err := validation.DecodeJSONBody(r, &body); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	ingredientID, err := s.resolveIngredientRef(r, body)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	slot, err := pathText(r, "slot")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	binding, err := s.recipes.SetSlotBinding(r.Context(), p.ID, slot, ingredientID)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, binding)
}

// productFromPath loads the {id} product or writes the error response.
func (s *server) productFromPath(w http.ResponseWriter, r *http.Request) (recipes.Product, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return recipes.Product{}, false
	}

	p, err := s.recipes.GetProduct(r.Context(), id)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return recipes.Product{}, false
	}
	return p, true
}

func containsLine[T any](lines []T, id int64, idOf func(T) int64) bool {
	for _, l := range lines {
		if idOf(l) == id {
			return true
		}
	}
	return false
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Validation("invalid %s %q", key, raw).
			WithDetails(map[string]string{key: "must be a boolean"})
	}
	return v, nil
}
