package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/domain/counting"
)

// Excel sheet titles are capped at 31 characters.
const maxSheetTitle = 31

// ExportCycle writes an archive cycle as a workbook: one aggregated summary
// sheet plus one sheet per station. Headers and column order are a fixed
// contract; downstream accounting tooling matches on them.
func ExportCycle(w io.Writer, c *counting.Cycle) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := "Сводная"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	writeHeader(f, summary, []string{"Код", "Товар", "Ед. изм.", "Всего факт"})
	for i, row := range counting.Aggregate(c, nil) {
		writeRow(f, summary, i+2, row.Code, row.Key.Name, row.Key.Unit, row.Total.Float64())
	}

	used := map[string]int{summary: 1}
	for i := range c.Sheets {
		sh := &c.Sheets[i]
		name := sheetTitle(sh.Title, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}

		writeHeader(f, name, []string{"Код", "Товар", "Ед. изм.", "Факт"})
		rowNo := 2
		for j := range sh.Items {
			it := &sh.Items[j]
			actual := 0.0
			if it.Actual != nil {
				actual = it.Actual.Float64()
			}
			writeRow(f, name, rowNo, it.Code, it.Name, it.Unit, actual)
			rowNo++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportSummary writes the live cross-sheet summary as a single-sheet
// workbook, seeded from the catalog so uncounted products appear with zero.
func ExportSummary(w io.Writer, c *counting.Cycle, cat []catalog.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Сводная"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	writeHeader(f, sheet, []string{"Код", "Товар", "Ед.изм", "Остаток ФАКТ"})
	for i, row := range counting.Aggregate(c, cat) {
		writeRow(f, sheet, i+2, row.Code, row.Key.Name, row.Key.Unit, row.Total.Float64())
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ParseCatalogXLSX reads a product list workbook into catalog items. The
// header row is auto-detected: any row containing a "код" column and a
// "товар"/"наименование" column starts the data. Files exported from
// different accounting systems vary in header wording and extra columns.
func ParseCatalogXLSX(r io.Reader) ([]catalog.Item, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	codeCol, nameCol, unitCol := -1, -1, -1
	headerRow := -1
	for i, row := range rows {
		for j, cell := range row {
			switch {
			case headerMatches(cell, "код"):
				codeCol = j
			case headerMatches(cell, "товар", "наименование", "название"):
				nameCol = j
			case headerMatches(cell, "ед"):
				unitCol = j
			}
		}
		if nameCol >= 0 {
			headerRow = i
			break
		}
		codeCol, nameCol, unitCol = -1, -1, -1
	}
	if headerRow < 0 {
		return nil, fmt.Errorf("no header row with a product name column found")
	}

	var items []catalog.Item
	for _, row := range rows[headerRow+1:] {
		it := catalog.Item{
			Code: cellAt(row, codeCol),
			Name: cellAt(row, nameCol),
			Unit: cellAt(row, unitCol),
		}
		it.Normalize()
		if it.Name == "" {
			continue
		}
		if it.Unit == "" {
			it.Unit = "шт"
		}
		items = append(items, it)
	}
	return items, nil
}

func headerMatches(cell string, prefixes ...string) bool {
	c := strings.ToLower(strings.TrimSpace(cell))
	for _, p := range prefixes {
		if strings.HasPrefix(c, p) {
			return true
		}
	}
	return false
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// sheetTitle truncates a station title to the Excel limit and deduplicates
// collisions.
func sheetTitle(title string, used map[string]int) string {
	runes := []rune(title)
	if len(runes) > maxSheetTitle {
		runes = runes[:maxSheetTitle]
	}
	name := string(runes)
	if name == "" {
		name = "Лист"
	}

	if _, taken := used[name]; !taken {
		used[name] = 1
		return name
	}
	for n := 2; ; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(name)
		if len(base)+len([]rune(suffix)) > maxSheetTitle {
			base = base[:maxSheetTitle-len([]rune(suffix))]
		}
		candidate := string(base) + suffix
		if _, taken := used[candidate]; !taken {
			used[candidate] = 1
			return candidate
		}
	}
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func writeRow(f *excelize.File, sheet string, rowNo int, code, name, unit string, actual float64) {
	values := []any{code, name, unit, actual}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, rowNo)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
