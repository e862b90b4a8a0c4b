package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"chefdeck/internal/core/id"
	"chefdeck/internal/core/types"
	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/domain/counting"
)

func ptr(v float64) *types.Quantity {
	q := types.NewQuantityFromFloat64(v)
	return &q
}

func exportFixture() *counting.Cycle {
	c := counting.NewCycle("manager", time.Now())
	c.IsFinalized = true
	c.Sheets = []counting.Sheet{
		{
			ID: id.New(), Title: "Кухня", Status: counting.StatusSubmitted,
			Items: []counting.Item{
				{ID: id.New(), Code: "101", Name: "Мука", Unit: "кг", Actual: ptr(2.5)},
			},
		},
		{
			ID: id.New(), Title: "Бар", Status: counting.StatusSubmitted,
			Items: []counting.Item{
				{ID: id.New(), Code: "101", Name: "Мука", Unit: "кг", Actual: ptr(10)},
				{ID: id.New(), Code: "205", Name: "Молоко", Unit: "л", Actual: ptr(3)},
			},
		},
	}
	return c
}

func TestExportCycle_ColumnContract(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCycle(&buf, exportFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Сводная", "Кухня", "Бар"}, f.GetSheetList())

	rows, err := f.GetRows("Сводная")
	require.NoError(t, err)
	assert.Equal(t, []string{"Код", "Товар", "Ед. изм.", "Всего факт"}, rows[0])
	assert.Equal(t, []string{"101", "Мука", "кг", "12.5"}, rows[1])
	assert.Equal(t, []string{"205", "Молоко", "л", "3"}, rows[2])

	rows, err = f.GetRows("Кухня")
	require.NoError(t, err)
	assert.Equal(t, []string{"Код", "Товар", "Ед. изм.", "Факт"}, rows[0])
	assert.Equal(t, []string{"101", "Мука", "кг", "2.5"}, rows[1])
}

func TestExportCycle_TruncatesLongStationTitles(t *testing.T) {
	c := exportFixture()
	c.Sheets[0].Title = "Очень длинное название станции которое не помещается"

	var buf bytes.Buffer
	require.NoError(t, ExportCycle(&buf, c))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	for _, name := range f.GetSheetList() {
		assert.LessOrEqual(t, len([]rune(name)), 31)
	}
}

func TestExportSummary_ColumnContract(t *testing.T) {
	cat := []catalog.Item{{Code: "900", Name: "Трюфель", Unit: "г"}}

	var buf bytes.Buffer
	require.NoError(t, ExportSummary(&buf, exportFixture(), cat))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Сводная")
	require.NoError(t, err)
	assert.Equal(t, []string{"Код", "Товар", "Ед.изм", "Остаток ФАКТ"}, rows[0])
	// Catalog seeds first, with a zero total for the uncounted product.
	assert.Equal(t, []string{"900", "Трюфель", "г", "0"}, rows[1])
}

func TestParseCatalogXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	// Header is not on the first row; detection must find it.
	_ = f.SetCellValue(sheet, "A1", "Прайс-лист")
	_ = f.SetCellValue(sheet, "A2", "Код")
	_ = f.SetCellValue(sheet, "B2", "Наименование")
	_ = f.SetCellValue(sheet, "C2", "Ед. изм.")
	_ = f.SetCellValue(sheet, "A3", "101")
	_ = f.SetCellValue(sheet, "B3", "Мука")
	_ = f.SetCellValue(sheet, "C3", "кг")
	_ = f.SetCellValue(sheet, "B4", "Соль") // no code, no unit
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	items, err := ParseCatalogXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, catalog.Item{Code: "101", Name: "Мука", Unit: "кг"}, items[0])
	assert.Equal(t, catalog.Item{Code: "", Name: "Соль", Unit: "шт"}, items[1])
}

func TestParseCatalogXLSX_NoHeader(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue(f.GetSheetList()[0], "A1", "что-то другое")
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ParseCatalogXLSX(&buf)
	assert.Error(t, err)
}
