package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefdeck/internal/domain/counting"
)

func archived(ts time.Time) *counting.Cycle {
	c := counting.NewCycle("manager", time.Now())
	c.Date = ts.UnixMilli()
	c.IsFinalized = true
	return c
}

func TestGroupByMonth(t *testing.T) {
	jan1 := archived(time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC))
	jan2 := archived(time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC))
	dec := archived(time.Date(2025, time.December, 31, 12, 0, 0, 0, time.UTC))

	groups := GroupByMonth([]*counting.Cycle{dec, jan1, jan2})

	require.Len(t, groups, 2)
	assert.Equal(t, "Январь 2026", groups[0].Label)
	assert.Equal(t, "Декабрь 2025", groups[1].Label)

	// Newest cycle first within a month.
	require.Len(t, groups[0].Cycles, 2)
	assert.Equal(t, jan2.ID, groups[0].Cycles[0].ID)
	assert.Equal(t, jan1.ID, groups[0].Cycles[1].ID)
}

func TestGroupByMonth_Empty(t *testing.T) {
	assert.Empty(t, GroupByMonth(nil))
}
