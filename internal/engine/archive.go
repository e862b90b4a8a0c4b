package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"chefdeck/internal/domain/counting"
)

// Russian month names for archive group labels, as shown in the app.
var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// MonthGroup is one calendar month of archived cycles, newest first.
type MonthGroup struct {
	Year   int
	Month  time.Month
	Label  string
	Cycles []*counting.Cycle
}

// Archive returns finalized cycles grouped by calendar month, newest month
// first, newest cycle first within a month. Read-only: archived cycles are
// never mutated.
func (e *Engine) Archive(ctx context.Context) ([]MonthGroup, error) {
	cycles, err := e.store.FetchCycles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch cycles: %w", err)
	}

	var finalized []*counting.Cycle
	for _, c := range cycles {
		if c.IsFinalized {
			finalized = append(finalized, c)
		}
	}
	return GroupByMonth(finalized), nil
}

// GroupByMonth buckets cycles into month groups, newest first.
func GroupByMonth(cycles []*counting.Cycle) []MonthGroup {
	type bucket struct {
		year  int
		month time.Month
	}

	byMonth := make(map[bucket][]*counting.Cycle)
	for _, c := range cycles {
		t := c.Time()
		b := bucket{year: t.Year(), month: t.Month()}
		byMonth[b] = append(byMonth[b], c)
	}

	groups := make([]MonthGroup, 0, len(byMonth))
	for b, cs := range byMonth {
		sort.Slice(cs, func(i, j int) bool { return cs[i].Date > cs[j].Date })
		groups = append(groups, MonthGroup{
			Year:   b.year,
			Month:  b.month,
			Label:  fmt.Sprintf("%s %d", monthNames[b.month-1], b.year),
			Cycles: cs,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Year != groups[j].Year {
			return groups[i].Year > groups[j].Year
		}
		return groups[i].Month > groups[j].Month
	})
	return groups
}
