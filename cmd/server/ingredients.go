package main

import (
	"net/http"
	"strings"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/catalog"
	"github.com/Simplici0/recipecost/internal/pricing"
	"github.com/Simplici0/recipecost/internal/validation"
)

type ingredientView struct {
	catalog.Ingredient
	UnitPrice      float64 `json:"unit_price"`
	UnitPriceLabel string  `json:"unit_price_label"`
	PackPriceLabel string  `json:"pack_price_label"`
}

func newIngredientView(ing catalog.Ingredient) ingredientView {
	return ingredientView{
		Ingredient:     ing,
		UnitPrice:      ing.UnitPrice(),
		UnitPriceLabel: pricing.UnitPriceLabel(ing.UnitPrice(), ing.Unit.String()),
		PackPriceLabel: pricing.Money(ing.PackPrice),
	}
}

func (s *server) handleIngredientsList(w http.ResponseWriter, r *http.Request) {
	all, err := s.ingredients.ListAll(r.Context())
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	q := r.URL.Query().Get("q")
	views := make([]ingredientView, 0, len(all))
	for _, ing := range all {
		if !nameContains(ing.Name, q) {
			continue
		}
		views = append(views, newIngredientView(ing))
	}
	writeSuccess(w, views)
}

func (s *server) handleIngredientUpsert(w http.ResponseWriter, r *http.Request) {
	var body catalog.UpsertInput
	if err := validation.DecodeJSONBody(r, &body); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	ing, err := s.ingredients.Upsert(r.Context(), body)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, newIngredientView(ing))
}

func (s *server) handleIngredientNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.ingredients.Names(r.Context())
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, names)
}

func (s *server) handleIngredientResolve(w http.ResponseWriter, r *http.Request) {
	ing, err := s.ingredients.ResolveName(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, newIngredientView(ing))
}

func (s *server) handleIngredientByName(w http.ResponseWriter, r *http.Request) {
	name, err := pathText(r, "name")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	ing, err := s.ingredients.LookupByName(r.Context(), name)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, newIngredientView(ing))
}

func (s *server) handleIngredientDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	if err := s.ingredients.Delete(r.Context(), id); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ingredientRef names an ingredient by id or by typed name.
type ingredientRef struct {
	IngredientID int64  `json:"ingredient_id" validate:"gte=0"`
	Ingredient   string `json:"ingredient"`
}

func (s *server) resolveIngredientRef(r *http.Request, ref ingredientRef) (int64, error) {
	if ref.IngredientID > 0 {
		return ref.IngredientID, nil
	}
	if strings.TrimSpace(ref.Ingredient) == "" {
		return 0, apperr.Validation("ingredient_id or ingredient is required").
			WithDetails(map[string]string{"ingredient": "is required"})
	}
	ing, err := s.ingredients.ResolveName(r.Context(), ref.Ingredient)
	if err != nil {
		return 0, err
	}
	return ing.ID, nil
}

// nameContains reports whether name contains q, ignoring case. An empty q
// matches every name.
func nameContains(name, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	return q == "" || strings.Contains(strings.ToLower(name), q)
}
