package catalog

import (
	"fmt"
	"strings"

	"github.com/Simplici0/recipecost/internal/apperr"
)

// Unit is the measurement unit an ingredient is priced in.
type Unit string

const (
	UnitMilliliter Unit = "ml"
	UnitGram       Unit = "g"
	UnitPiece      Unit = "piece"
)

// Units lists the allowed units in display order.
var Units = []Unit{UnitMilliliter, UnitGram, UnitPiece}

var unitAliases = map[string]Unit{
	"ml":    UnitMilliliter,
	"g":     UnitGram,
	"piece": UnitPiece,
	"pc":    UnitPiece,
	"pcs":   UnitPiece,
	"stk":   UnitPiece,
}

// ParseUnit normalizes user input ("ML", " Stk ") into a Unit.
func ParseUnit(raw string) (Unit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return u, nil
	}
	return "", apperr.Validation("unit must be one of ml, g, piece (got %q)", raw).
		WithDetails(map[string]string{"unit": fmt.Sprintf("must be one of %s", joinUnits())})
}

func (u Unit) Valid() bool {
	switch u {
	case UnitMilliliter, UnitGram, UnitPiece:
		return true
	}
	return false
}

func (u Unit) String() string { return string(u) }

func joinUnits() string {
	parts := make([]string, len(Units))
	for i, u := range Units {
		parts[i] = string(u)
	}
	return strings.Join(parts, " ")
}
