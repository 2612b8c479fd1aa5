// Package catalog stores priced ingredients.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/db"
	"github.com/Simplici0/recipecost/internal/logger"
	"github.com/Simplici0/recipecost/internal/pricing"
	"github.com/Simplici0/recipecost/internal/validation"
)

// Ingredient is a purchasable item priced per package.
type Ingredient struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Unit      Unit    `json:"unit"`
	PackQty   float64 `json:"pack_qty"`
	PackPrice float64 `json:"pack_price"`
}

// UnitPrice is PackPrice / PackQty, or 0 for a zero package quantity.
func (i Ingredient) UnitPrice() float64 {
	return pricing.UnitPrice(i.PackQty, i.PackPrice)
}

// UpsertInput is the raw catalog form; Unit is parsed leniently.
type UpsertInput struct {
	Name      string  `json:"name" validate:"required"`
	Unit      string  `json:"unit" validate:"required"`
	PackQty   float64 `json:"pack_qty" validate:"gt=0"`
	PackPrice float64 `json:"pack_price" validate:"gte=0"`
}

type Store struct {
	conn db.Conn
	logg *logger.Logger
}

func NewStore(database *sql.DB, logg *logger.Logger) *Store {
	return newStore(db.PoolConn(database), logg)
}

// InTx returns a Store bound to an open transaction.
func (s *Store) InTx(tx *sql.Tx) *Store {
	return newStore(db.TxConn(tx), s.logg)
}

func newStore(conn db.Conn, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{conn: conn, logg: logg}
}

// Upsert inserts an ingredient or overwrites the one with the same name.
func (s *Store) Upsert(ctx context.Context, in UpsertInput) (Ingredient, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return Ingredient{}, err
	}
	if err := checkFinite(in); err != nil {
		return Ingredient{}, err
	}
	unit, err := ParseUnit(in.Unit)
	if err != nil {
		return Ingredient{}, err
	}

	var ing Ingredient
	err = s.conn.Atomic(ctx, func(q db.Querier) error {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO ingredients (name, unit, pack_qty, pack_price)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				unit = excluded.unit,
				pack_qty = excluded.pack_qty,
				pack_price = excluded.pack_price
		`, in.Name, string(unit), in.PackQty, in.PackPrice); err != nil {
			return fmt.Errorf("upsert ingredient %q: %w", in.Name, err)
		}

		found, err := lookupByName(ctx, q, in.Name)
		if err != nil {
			return err
		}
		ing = found
		return nil
	})
	if err != nil {
		return Ingredient{}, err
	}

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"ingredient_id": ing.ID, "name": ing.Name}), "ingredient.upserted")
	return ing, nil
}

// Delete removes an ingredient unless a fixed line or slot binding uses it.
func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.conn.Atomic(ctx, func(q db.Querier) error {
		ing, err := get(ctx, q, id)
		if err != nil {
			return err
		}

		used, err := isReferenced(ctx, q, id)
		if err != nil {
			return err
		}
		if used {
			return apperr.Conflict("ingredient %q is used by products or slots and cannot be deleted", ing.Name).
				WithDetails(map[string]any{"ingredient_id": id})
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete ingredient %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "ingredient_id", id), "ingredient.deleted")
	return nil
}

// Get returns the ingredient with the given id.
func (s *Store) Get(ctx context.Context, id int64) (Ingredient, error) {
	return get(ctx, s.conn.Querier(), id)
}

// LookupByName returns the ingredient with exactly this name.
func (s *Store) LookupByName(ctx context.Context, name string) (Ingredient, error) {
	return lookupByName(ctx, s.conn.Querier(), strings.TrimSpace(name))
}

// ListAll returns every ingredient ordered by name.
func (s *Store) ListAll(ctx context.Context) ([]Ingredient, error) {
	rows, err := s.conn.Querier().QueryContext(ctx, `
		SELECT id, name, unit, pack_qty, pack_price
		FROM ingredients
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	defer rows.Close()

	ingredients := make([]Ingredient, 0)
	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.PackQty, &ing.PackPrice); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredients: %w", err)
	}

	return ingredients, nil
}

// Names returns all ingredient names ordered by name.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Querier().QueryContext(ctx, `SELECT name FROM ingredients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query ingredient names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan ingredient name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredient names: %w", err)
	}

	return names, nil
}

// ResolveName maps typed text to an ingredient: a case-insensitive exact match
// wins, otherwise the text must be a substring of exactly one name.
func (s *Store) ResolveName(ctx context.Context, typed string) (Ingredient, error) {
	t := strings.ToLower(strings.TrimSpace(typed))
	if t == "" {
		return Ingredient{}, apperr.Validation("ingredient name is required")
	}

	names, err := s.Names(ctx)
	if err != nil {
		return Ingredient{}, err
	}

	if name, ok := MatchName(names, t); ok {
		return s.LookupByName(ctx, name)
	}
	return Ingredient{}, apperr.NotFound("ingredient %q not found", strings.TrimSpace(typed))
}

// MatchName applies the ResolveName rules to an in-memory name list.
func MatchName(names []string, typed string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(typed))
	if t == "" {
		return "", false
	}

	for _, n := range names {
		if strings.ToLower(n) == t {
			return n, true
		}
	}

	var match string
	count := 0
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), t) {
			match = n
			count++
		}
	}
	if count == 1 {
		return match, true
	}
	return "", false
}

// IsReferenced reports whether any fixed line or slot binding uses the ingredient.
func (s *Store) IsReferenced(ctx context.Context, id int64) (bool, error) {
	return isReferenced(ctx, s.conn.Querier(), id)
}

func checkFinite(in UpsertInput) error {
	details := map[string]string{}
	if !isFinite(in.PackQty) {
		details["pack_qty"] = "must be a finite number"
	}
	if !isFinite(in.PackPrice) {
		details["pack_price"] = "must be a finite number"
	}
	if len(details) == 0 && !isFinite(pricing.UnitPrice(in.PackQty, in.PackPrice)) {
		details["pack_qty"] = "too small for the pack price"
	}
	if len(details) > 0 {
		return apperr.Validation("ingredient %q has an out of range pack quantity or price", in.Name).
			WithDetails(details)
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func get(ctx context.Context, q db.Querier, id int64) (Ingredient, error) {
	var ing Ingredient
	err := q.QueryRowContext(ctx, `
		SELECT id, name, unit, pack_qty, pack_price
		FROM ingredients
		WHERE id = ?
	`, id).Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.PackQty, &ing.PackPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Ingredient{}, apperr.NotFound("ingredient %d not found", id)
		}
		return Ingredient{}, fmt.Errorf("query ingredient %d: %w", id, err)
	}
	return ing, nil
}

func lookupByName(ctx context.Context, q db.Querier, name string) (Ingredient, error) {
	var ing Ingredient
	err := q.QueryRowContext(ctx, `
		SELECT id, name, unit, pack_qty, pack_price
		FROM ingredients
		WHERE name = ?
	`, name).Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.PackQty, &ing.PackPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Ingredient{}, apperr.NotFound("ingredient %q not found", name)
		}
		return Ingredient{}, fmt.Errorf("query ingredient %q: %w", name, err)
	}
	return ing, nil
}

func isReferenced(ctx context.Context, q db.Querier, id int64) (bool, error) {
	var used bool
	err := q.QueryRowContext(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM product_items WHERE ingredient_id = ?)
			OR EXISTS(SELECT 1 FROM product_slot_selection WHERE ingredient_id = ?)
	`, id, id).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check ingredient %d usage: %w", id, err)
	}
	return used, nil
}
