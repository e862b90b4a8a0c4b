// Package catalog provides the tenant-wide product reference list used to
// populate counting sheets by selection rather than free text.
package catalog

import (
	"strings"

	"chefdeck/internal/core/apperror"
)

// Item is one product master-data record.
type Item struct {
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	Unit string `db:"unit" json:"unit"`
}

// Normalize trims whitespace in place.
func (it *Item) Normalize() {
	it.Code = strings.TrimSpace(it.Code)
	it.Name = strings.TrimSpace(it.Name)
	it.Unit = strings.TrimSpace(it.Unit)
}

// Validate checks required fields.
func (it *Item) Validate() error {
	if it.Name == "" {
		return apperror.NewValidation("item name is required").WithDetail("field", "name")
	}
	if it.Unit == "" {
		return apperror.NewValidation("item unit is required").WithDetail("field", "unit")
	}
	return nil
}
