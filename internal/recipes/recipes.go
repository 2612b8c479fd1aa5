// Package recipes stores products, their fixed and slot recipe lines, and the
// per-product slot bindings that resolve slot names to ingredients.
package recipes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Simplici0/recipecost/internal/apperr"
	"github.com/Simplici0/recipecost/internal/catalog"
	"github.com/Simplici0/recipecost/internal/db"
	"github.com/Simplici0/recipecost/internal/logger"
	"github.com/Simplici0/recipecost/internal/validation"
)

type Product struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	SalePrice *float64 `json:"sale_price"`
}

// FixedLine is a recipe line that names its ingredient directly, joined with
// the ingredient's current package data.
type FixedLine struct {
	ID             int64        `json:"id"`
	ProductID      int64        `json:"product_id"`
	IngredientID   int64        `json:"ingredient_id"`
	IngredientName string       `json:"ingredient_name"`
	Qty            float64      `json:"qty"`
	Unit           catalog.Unit `json:"unit"`
	PackQty        float64      `json:"pack_qty"`
	PackPrice      float64      `json:"pack_price"`
}

// SlotLine is a quantity requirement against whatever ingredient is bound to
// SlotName for the product.
type SlotLine struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	SlotName  string  `json:"slot_name"`
	Qty       float64 `json:"qty"`
}

type SlotBinding struct {
	ProductID      int64  `json:"product_id"`
	SlotName       string `json:"slot_name"`
	IngredientID   int64  `json:"ingredient_id"`
	IngredientName string `json:"ingredient_name"`
}

// ResolvedSlot is the ingredient data a bound slot currently resolves to.
type ResolvedSlot struct {
	IngredientID   int64        `json:"ingredient_id"`
	IngredientName string       `json:"ingredient_name"`
	Unit           catalog.Unit `json:"unit"`
	PackQty        float64      `json:"pack_qty"`
	PackPrice      float64      `json:"pack_price"`
}

type productInput struct {
	Name string `json:"name" validate:"required"`
}

type fixedLineInput struct {
	ProductID    int64   `json:"product_id" validate:"gt=0"`
	IngredientID int64   `json:"ingredient_id" validate:"gt=0"`
	Qty          float64 `json:"qty" validate:"gt=0"`
}

type slotLineInput struct {
	ProductID int64   `json:"product_id" validate:"gt=0"`
	SlotName  string  `json:"slot_name" validate:"required"`
	Qty       float64 `json:"qty" validate:"gt=0"`
}

type slotBindingInput struct {
	ProductID    int64  `json:"product_id" validate:"gt=0"`
	SlotName     string `json:"slot_name" validate:"required"`
	IngredientID int64  `json:"ingredient_id" validate:"gt=0"`
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

// UpsertProduct creates the product if no product has this name yet and
// returns it. An existing product keeps its sale price.
func (s *Store) UpsertProduct(ctx context.Context, name string) (Product, error) {
	in := productInput{Name: strings.TrimSpace(name)}
	if err := validation.Struct(in); err != nil {
		return Product{}, err
	}

	var p Product
	err := s.conn.Atomic(ctx, func(q db.Querier) error {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO products (name)
			VALUES (?)
			ON CONFLICT(name) DO NOTHING
		`, in.Name); err != nil {
			return fmt.Errorf("upsert product %q: %w", in.Name, err)
		}

		found, err := lookupProductByName(ctx, q, in.Name)
		if err != nil {
			return err
		}
		p = found
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product; its lines and bindings cascade.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.conn.Querier().ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if err := requireAffected(result, "product", id); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithProductID(ctx, id), "product.deleted")
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	return getProduct(ctx, s.conn.Querier(), id)
}

func (s *Store) LookupProductByName(ctx context.Context, name string) (Product, error) {
	return lookupProductByName(ctx, s.conn.Querier(), strings.TrimSpace(name))
}

// ListProducts returns all products in storage order. Callers sort.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.conn.Querier().QueryContext(ctx, `SELECT id, name, sale_price FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// SetSalePrice stores the sale price, or clears it when price is nil.
func (s *Store) SetSalePrice(ctx context.Context, id int64, price *float64) error {
	var value sql.NullFloat64
	if price != nil {
		if math.IsNaN(*price) || math.IsInf(*price, 0) || *price < 0 {
			return apperr.Validation("sale price must not be negative").
				WithDetails(map[string]string{"sale_price": "must be at least 0"})
		}
		value = sql.NullFloat64{Float64: *price, Valid: true}
	}

	result, err := s.conn.Querier().ExecContext(ctx, `UPDATE products SET sale_price = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("update sale price of product %d: %w", id, err)
	}
	return requireAffected(result, "product", id)
}

// AddFixedLine appends a line; lines for the same ingredient are not merged.
func (s *Store) AddFixedLine(ctx context.Context, productID, ingredientID int64, qty float64) (FixedLine, error) {
	in := fixedLineInput{ProductID: productID, IngredientID: ingredientID, Qty: qty}
	if err := validation.Struct(in); err != nil {
		return FixedLine{}, err
	}
	if err := requireFiniteQty(qty); err != nil {
		return FixedLine{}, err
	}

	var line FixedLine
	err := s.conn.Atomic(ctx, func(q db.Querier) error {
		if err := requireProduct(ctx, q, productID); err != nil {
			return err
		}
		if err := requireIngredient(ctx, q, ingredientID); err != nil {
			return err
		}

		result, err := q.ExecContext(ctx, `
			INSERT INTO product_items (product_id, ingredient_id, qty)
			VALUES (?, ?, ?)
		`, productID, ingredientID, qty)
		if err != nil {
			return fmt.Errorf("insert fixed line: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("read fixed line id: %w", err)
		}

		line, err = getFixedLine(ctx, q, id)
		return err
	})
	if err != nil {
		return FixedLine{}, err
	}
	return line, nil
}

func (s *Store) RemoveFixedLine(ctx context.Context, lineID int64) error {
	result, err := s.conn.Querier().ExecContext(ctx, `DELETE FROM product_items WHERE id = ?`, lineID)
	if err != nil {
		return fmt.Errorf("delete fixed line %d: %w", lineID, err)
	}
	return requireAffected(result, "fixed line", lineID)
}

// ListFixedLines returns the product's fixed lines ordered by ingredient name.
func (s *Store) ListFixedLines(ctx context.Context, productID int64) ([]FixedLine, error) {
	rows, err := s.conn.Querier().QueryContext(ctx, `
		SELECT pi.id, pi.product_id, i.id, i.name, pi.qty, i.unit, i.pack_qty, i.pack_price
		FROM product_items pi
		JOIN ingredients i ON i.id = pi.ingredient_id
		WHERE pi.product_id = ?
		ORDER BY i.name, pi.id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query fixed lines: %w", err)
	}
	defer rows.Close()

	lines := make([]FixedLine, 0)
	for rows.Next() {
		var l FixedLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.IngredientID, &l.IngredientName, &l.Qty, &l.Unit, &l.PackQty, &l.PackPrice); err != nil {
			return nil, fmt.Errorf("scan fixed line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixed lines: %w", err)
	}

	return lines, nil
}

// AddSlotLine appends a slot requirement. The slot need not be bound yet.
func (s *Store) AddSlotLine(ctx context.Context, productID int64, slotName string, qty float64) (SlotLine, error) {
	in := slotLineInput{ProductID: productID, SlotName: strings.TrimSpace(slotName), Qty: qty}
	if err := validation.Struct(in); err != nil {
		return SlotLine{}, err
	}
	if err := requireFiniteQty(qty); err != nil {
		return SlotLine{}, err
	}

	var line SlotLine
	err := s.conn.Atomic(ctx, func(q db.Querier) error {
		if err := requireProduct(ctx, q, productID); err != nil {
			return err
		}

		result, err := q.ExecContext(ctx, `
			INSERT INTO product_slot_lines (product_id, slot_name, qty)
			VALUES (?, ?, ?)
		`, in.ProductID, in.SlotName, in.Qty)
		if err != nil {
			return fmt.Errorf("insert slot line: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("read slot line id: %w", err)
		}

		line = SlotLine{ID: id, ProductID: in.ProductID, SlotName: in.SlotName, Qty: in.Qty}
		return nil
	})
	if err != nil {
		return SlotLine{}, err
	}
	return line, nil
}

func (s *Store) RemoveSlotLine(ctx context.Context, lineID int64) error {
	result, err := s.conn.Querier().ExecContext(ctx, `DELETE FROM product_slot_lines WHERE id = ?`, lineID)
	if err != nil {
		return fmt.Errorf("delete slot line %d: %w", lineID, err)
	}
	return requireAffected(result, "slot line", lineID)
}

// ListSlotLines returns the product's slot lines ordered by slot name.
func (s *Store) ListSlotLines(ctx context.Context, productID int64) ([]SlotLine, error) {
	rows, err := s.conn.Querier().QueryContext(ctx, `
		SELECT id, product_id, slot_name, qty
		FROM product_slot_lines
		WHERE product_id = ?
		ORDER BY slot_name, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query slot lines: %w", err)
	}
	defer rows.Close()

	lines := make([]SlotLine, 0)
	for rows.Next() {
		var l SlotLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.SlotName, &l.Qty); err != nil {
			return nil, fmt.Errorf("scan slot line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot lines: %w", err)
	}

	return lines, nil
}

// ListDistinctSlotNames returns the set of slot names used by the product's
// slot lines, ordered.
func (s *Store) ListDistinctSlotNames(ctx context.Context, productID int64) ([]string, error) {
	rows, err := s.conn.Querier().QueryContext(ctx, `
		SELECT DISTINCT slot_name
		FROM product_slot_lines
		WHERE product_id = ?
		ORDER BY slot_name
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query slot names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan slot name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot names: %w", err)
	}

	return names, nil
}

// SetSlotBinding binds slotName to an ingredient for the product, replacing
// any previous binding. Slot names without a matching slot line are accepted.
func (s *Store) SetSlotBinding(ctx context.Context, productID int64, slotName string, ingredientID int64) (SlotBinding, error) {
	in := slotBindingInput{ProductID: productID, SlotName: strings.TrimSpace(slotName), IngredientID: ingredientID}
	if err := validation.Struct(in); err != nil {
		return SlotBinding{}, err
	}

	var binding SlotBinding
	err := s.conn.Atomic(ctx, func(q db.Querier) error {
		if err := requireProduct(ctx, q, productID); err != nil {
			return err
		}
		if err := requireIngredient(ctx, q, ingredientID); err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx, `
			INSERT INTO product_slot_selection (product_id, slot_name, ingredient_id)
			VALUES (?, ?, ?)
			ON CONFLICT(product_id, slot_name) DO UPDATE SET ingredient_id = excluded.ingredient_id
		`, in.ProductID, in.SlotName, in.IngredientID); err != nil {
			return fmt.Errorf("upsert slot binding %q: %w", in.SlotName, err)
		}

		resolved, ok, err := resolveSlotBinding(ctx, q, in.ProductID, in.SlotName)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("slot binding %q vanished after upsert", in.SlotName)
		}
		binding = SlotBinding{
			ProductID:      in.ProductID,
			SlotName:       in.SlotName,
			IngredientID:   resolved.IngredientID,
			IngredientName: resolved.IngredientName,
		}
		return nil
	})
	if err != nil {
		return SlotBinding{}, err
	}

	ctx = s.logg.WithFields(s.logg.WithProductID(ctx, productID), map[string]any{
		"slot":          binding.SlotName,
		"ingredient_id": binding.IngredientID,
	})
	s.logg.Debug(ctx, "slot.bound")
	return binding, nil
}

// ResolveSlotBinding returns the ingredient currently bound to slotName for
// the product. ok is false when the slot is unbound.
func (s *Store) ResolveSlotBinding(ctx context.Context, productID int64, slotName string) (ResolvedSlot, bool, error) {
	return resolveSlotBinding(ctx, s.conn.Querier(), productID, strings.TrimSpace(slotName))
}

// ListSlotBindings returns every binding of the product ordered by slot name.
func (s *Store) ListSlotBindings(ctx context.Context, productID int64) ([]SlotBinding, error) {
	rows, err := s.conn.Querier().QueryContext(ctx, `
		SELECT s.product_id, s.slot_name, i.id, i.name
		FROM product_slot_selection s
		JOIN ingredients i ON i.id = s.ingredient_id
		WHERE s.product_id = ?
		ORDER BY s.slot_name
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query slot bindings: %w", err)
	}
	defer rows.Close()

	bindings := make([]SlotBinding, 0)
	for rows.Next() {
		var b SlotBinding
		if err := rows.Scan(&b.ProductID, &b.SlotName, &b.IngredientID, &b.IngredientName); err != nil {
			return nil, fmt.Errorf("scan slot binding: %w", err)
		}
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot bindings: %w", err)
	}

	return bindings, nil
}

func requireFiniteQty(qty float64) error {
	if math.IsInf(qty, 0) || math.IsNaN(qty) {
		return apperr.Validation("quantity must be a finite number").
			WithDetails(map[string]string{"qty": "must be a finite number"})
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var sale sql.NullFloat64
	if err := row.Scan(&p.ID, &p.Name, &sale); err != nil {
		return Product{}, err
	}
	if sale.Valid {
		v := sale.Float64
		p.SalePrice = &v
	}
	return p, nil
}

func getProduct(ctx context.Context, q db.Querier, id int64) (Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, `SELECT id, name, sale_price FROM products WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperr.NotFound("product %d not found", id)
		}
		return Product{}, fmt.Errorf("query product %d: %w", id, err)
	}
	return p, nil
}

func lookupProductByName(ctx context.Context, q db.Querier, name string) (Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, `SELECT id, name, sale_price FROM products WHERE name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperr.NotFound("product %q not found", name)
		}
		return Product{}, fmt.Errorf("query product %q: %w", name, err)
	}
	return p, nil
}

func getFixedLine(ctx context.Context, q db.Querier, id int64) (FixedLine, error) {
	var l FixedLine
	err := q.QueryRowContext(ctx, `
		SELECT pi.id, pi.product_id, i.id, i.name, pi.qty, i.unit, i.pack_qty, i.pack_price
		FROM product_items pi
		JOIN ingredients i ON i.id = pi.ingredient_id
		WHERE pi.id = ?
	`, id).Scan(&l.ID, &l.ProductID, &l.IngredientID, &l.IngredientName, &l.Qty, &l.Unit, &l.PackQty, &l.PackPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FixedLine{}, apperr.NotFound("fixed line %d not found", id)
		}
		return FixedLine{}, fmt.Errorf("query fixed line %d: %w", id, err)
	}
	return l, nil
}

func resolveSlotBinding(ctx context.Context, q db.Querier, productID int64, slotName string) (ResolvedSlot, bool, error) {
	var r ResolvedSlot
	err := q.QueryRowContext(ctx, `
		SELECT i.id, i.name, i.unit, i.pack_qty, i.pack_price
		FROM product_slot_selection s
		JOIN ingredients i ON i.id = s.ingredient_id
		WHERE s.product_id = ? AND s.slot_name = ?
	`, productID, slotName).Scan(&r.IngredientID, &r.IngredientName, &r.Unit, &r.PackQty, &r.PackPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ResolvedSlot{}, false, nil
		}
		return ResolvedSlot{}, false, fmt.Errorf("resolve slot %q of product %d: %w", slotName, productID, err)
	}
	return r, true, nil
}

func requireProduct(ctx context.Context, q db.Querier, id int64) error {
	return requireRow(ctx, q, `SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)`, "product", id)
}

func requireIngredient(ctx context.Context, q db.Querier, id int64) error {
	return requireRow(ctx, q, `SELECT EXISTS(SELECT 1 FROM ingredients WHERE id = ?)`, "ingredient", id)
}

func requireRow(ctx context.Context, q db.Querier, query, kind string, id int64) error {
	var exists bool
	if err := q.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s %d existence: %w", kind, id, err)
	}
	if !exists {
		return apperr.NotFound("%s %d not found", kind, id)
	}
	return nil
}

func requireAffected(result sql.Result, kind string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows for %s %d: %w", kind, id, err)
	}
	if affected == 0 {
		return apperr.NotFound("%s %d not found", kind, id)
	}
	return nil
}
