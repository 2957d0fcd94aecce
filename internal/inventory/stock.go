package inventory

import (
	"fmt"

	"github.com/nospicy/possync/pkg/config"
	"github.com/nospicy/possync/pkg/loyverse"
	"github.com/shopspring/decimal"
)

// StockPolicy decides what happens when a variant is stocked in several stores.
type StockPolicy string

const (
	// StockLastWins keeps the quantity of the last store listed.
	StockLastWins StockPolicy = config.StockLastWins
	// StockSum adds quantities across stores.
	StockSum StockPolicy = config.StockSum
)

func ParseStockPolicy(value string) (StockPolicy, error) {
	switch StockPolicy(value) {
	case StockLastWins, StockSum:
		return StockPolicy(value), nil
	case "":
		return StockLastWins, nil
	default:
		return "", fmt.Errorf("unknown stock collision policy %q", value)
	}
}

// stockMap accumulates variant id to on-hand quantity across stores.
type stockMap struct {
	policy StockPolicy
	levels map[string]decimal.Decimal
}

func newStockMap(policy StockPolicy) *stockMap {
	return &stockMap{policy: policy, levels: map[string]decimal.Decimal{}}
}

func (m *stockMap) add(levels []loyverse.InventoryLevel) {
	for _, lvl := range levels {
		if m.policy == StockSum {
			m.levels[lvl.VariantID] = m.levels[lvl.VariantID].Add(lvl.InStock)
			continue
		}
		m.levels[lvl.VariantID] = lvl.InStock
	}
}

// get returns zero for variants no store listed.
func (m *stockMap) get(variantID string) decimal.Decimal {
	return m.levels[variantID]
}

func (m *stockMap) len() int {
	return len(m.levels)
}
