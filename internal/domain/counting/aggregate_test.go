package counting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefdeck/internal/core/id"
	"chefdeck/internal/domain/catalog"
)

func TestAggregate_SumsAcrossSheets(t *testing.T) {
	c := NewCycle("manager", time.Now())
	c.Sheets = []Sheet{
		{
			ID: id.New(), Title: "Кухня", Status: StatusActive,
			Items: []Item{
				{ID: id.New(), Code: "101", Name: "Мука", Unit: "кг", Actual: qty(2.5)},
				{ID: id.New(), Name: "Сахар", Unit: "кг", Actual: qty(1)},
			},
		},
		{
			ID: id.New(), Title: "Склад", Status: StatusActive,
			Items: []Item{
				{ID: id.New(), Name: "Мука", Unit: "кг", Actual: qty(10)},
			},
		},
	}

	totals := TotalsMap(Aggregate(c, nil))

	assert.Equal(t, 12.5, totals[ProductKey{"Мука", "кг"}].Float64())
	assert.Equal(t, 1.0, totals[ProductKey{"Сахар", "кг"}].Float64())
}

func TestAggregate_UnitDistinguishesProducts(t *testing.T) {
	c := NewCycle("manager", time.Now())
	c.Sheets = []Sheet{{
		ID: id.New(), Title: "Бар", Status: StatusActive,
		Items: []Item{
			{ID: id.New(), Name: "Молоко", Unit: "л", Actual: qty(3)},
			{ID: id.New(), Name: "Молоко", Unit: "шт", Actual: qty(4)},
		},
	}}

	totals := TotalsMap(Aggregate(c, nil))

	assert.Equal(t, 3.0, totals[ProductKey{"Молоко", "л"}].Float64())
	assert.Equal(t, 4.0, totals[ProductKey{"Молоко", "шт"}].Float64())
}

func TestAggregate_UncountedAndZeroSumTheSame(t *testing.T) {
	c := NewCycle("manager", time.Now())
	c.Sheets = []Sheet{{
		ID: id.New(), Title: "Кухня", Status: StatusActive,
		Items: []Item{
			{ID: id.New(), Name: "Соль", Unit: "кг"},            // uncounted
			{ID: id.New(), Name: "Перец", Unit: "кг", Actual: qty(0)}, // counted as zero
		},
	}}

	totals := TotalsMap(Aggregate(c, nil))

	assert.True(t, totals[ProductKey{"Соль", "кг"}].IsZero())
	assert.True(t, totals[ProductKey{"Перец", "кг"}].IsZero())
}

func TestAggregate_CatalogSeedsZeroRows(t *testing.T) {
	cat := []catalog.Item{
		{Code: "101", Name: "Мука", Unit: "кг"},
		{Code: "205", Name: "Оливковое масло", Unit: "л"},
	}
	c := NewCycle("manager", time.Now())
	c.Sheets = []Sheet{{
		ID: id.New(), Title: "Кухня", Status: StatusActive,
		Items: []Item{
			{ID: id.New(), Name: "Мука", Unit: "кг", Actual: qty(7)},
		},
	}}

	rows := Aggregate(c, cat)

	require.Len(t, rows, 2)
	// Catalog order is preserved; products nobody counted show up with zero.
	assert.Equal(t, "Мука", rows[0].Key.Name)
	assert.Equal(t, 7.0, rows[0].Total.Float64())
	assert.Equal(t, "101", rows[0].Code)
	assert.Equal(t, "Оливковое масло", rows[1].Key.Name)
	assert.True(t, rows[1].Total.IsZero())
}

func TestAggregate_CodeBackfilledFromItems(t *testing.T) {
	c := NewCycle("manager", time.Now())
	c.Sheets = []Sheet{{
		ID: id.New(), Title: "Кухня", Status: StatusActive,
		Items: []Item{
			{ID: id.New(), Name: "Мука", Unit: "кг", Actual: qty(1)},
			{ID: id.New(), Code: "101", Name: "Мука", Unit: "кг", Actual: qty(2)},
		},
	}}

	rows := Aggregate(c, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "101", rows[0].Code)
	assert.Equal(t, 3.0, rows[0].Total.Float64())
}

// Totals of a freshly archived cycle must match the working cycle's totals
// restricted to items counted above zero.
func TestAggregate_ArchiveMatchesWorkingTotals(t *testing.T) {
	c := NewCycle("manager", time.Now())
	c.Sheets = []Sheet{
		{
			ID: id.New(), Title: "Кухня", Status: StatusSubmitted,
			Items: []Item{
				{ID: id.New(), Name: "Мука", Unit: "кг", Actual: qty(3)},
				{ID: id.New(), Name: "Сахар", Unit: "кг", Actual: qty(0)},
				{ID: id.New(), Name: "Соль", Unit: "кг"},
			},
		},
		{
			ID: id.New(), Title: "Бар", Status: StatusSubmitted,
			Items: []Item{
				{ID: id.New(), Name: "Мука", Unit: "кг", Actual: qty(1.5)},
			},
		},
	}

	before := TotalsMap(Aggregate(c, nil))
	after := TotalsMap(Aggregate(c.Archive(time.Now()), nil))

	for key, total := range before {
		if total.IsPositive() {
			assert.Equal(t, total, after[key], "product %v", key)
		} else {
			_, present := after[key]
			assert.False(t, present, "product %v must not survive archiving", key)
		}
	}
}

func TestAggregate_EmptyCycle(t *testing.T) {
	assert.Empty(t, Aggregate(NewCycle("x", time.Now()), nil))
	assert.Empty(t, Aggregate(nil, nil))
}
