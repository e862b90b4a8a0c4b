package counting

import (
	"chefdeck/internal/core/types"
	"chefdeck/internal/domain/catalog"
)

// ProductKey identifies a product across sheets. Two items with the same
// name and unit are the same product regardless of which station counted them.
type ProductKey struct {
	Name string
	Unit string
}

// ProductTotal is one row of the cross-sheet summary.
type ProductTotal struct {
	Key   ProductKey
	Code  string
	Total types.Quantity
}

// Aggregate combines per-sheet quantities into one total per product.
//
// The catalog seeds the result so catalog products nobody counted still show
// up with a zero total. Uncounted items (Actual == nil) contribute zero, same
// as an explicit zero count; the distinction matters for display, not for
// sums. Result order: catalog order first, then cycle-only products in
// encounter order.
//
// The same function backs the live summary view, the archive export and the
// finalize step, so the three can never disagree.
func Aggregate(c *Cycle, cat []catalog.Item) []ProductTotal {
	index := make(map[ProductKey]int)
	totals := make([]ProductTotal, 0, len(cat))

	for _, ci := range cat {
		key := ProductKey{Name: ci.Name, Unit: ci.Unit}
		if _, ok := index[key]; ok {
			continue
		}
		index[key] = len(totals)
		totals = append(totals, ProductTotal{Key: key, Code: ci.Code})
	}

	if c == nil {
		return totals
	}

	for i := range c.Sheets {
		sh := &c.Sheets[i]
		for j := range sh.Items {
			it := &sh.Items[j]
			key := ProductKey{Name: it.Name, Unit: it.Unit}
			idx, ok := index[key]
			if !ok {
				idx = len(totals)
				index[key] = idx
				totals = append(totals, ProductTotal{Key: key, Code: it.Code})
			}
			if totals[idx].Code == "" && it.Code != "" {
				totals[idx].Code = it.Code
			}
			if it.Actual != nil {
				totals[idx].Total = totals[idx].Total.Add(*it.Actual)
			}
		}
	}
	return totals
}

// TotalsMap renders aggregate rows as a lookup map.
func TotalsMap(totals []ProductTotal) map[ProductKey]types.Quantity {
	m := make(map[ProductKey]types.Quantity, len(totals))
	for _, t := range totals {
		m[t.Key] = t.Total
	}
	return m
}
