// Package counting provides the collaborative inventory counting domain:
// cycles (one physical inventory event), sheets (one station's count form)
// and items, with per-sheet advisory locking and the finalize transform.
package counting

import (
	"time"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/core/id"
	"chefdeck/internal/core/types"
)

// SheetStatus represents the status of a counting sheet.
type SheetStatus string

const (
	StatusActive    SheetStatus = "active"
	StatusSubmitted SheetStatus = "submitted"
)

// LockHolder identifies the user holding a sheet lock.
// ID is the Telegram numeric user id.
type LockHolder struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Item is one product line on a sheet.
// Actual is nil until a count is entered. Zero is a valid count,
// nil means "not yet counted".
type Item struct {
	ID      id.ID           `json:"id"`
	Code    string          `json:"code,omitempty"`
	Name    string          `json:"name"`
	Unit    string          `json:"unit"`
	Actual  *types.Quantity `json:"actual,omitempty"`
	Comment string          `json:"comment,omitempty"`
}

// Counted reports whether a count has been entered for the item.
func (it *Item) Counted() bool { return it.Actual != nil }

// Sheet is one station's count form. LockedBy is present iff a user currently
// holds write access; nil means unlocked.
type Sheet struct {
	ID        id.ID       `json:"id"`
	Title     string      `json:"title"`
	Items     []Item      `json:"items"`
	Status    SheetStatus `json:"status"`
	UpdatedBy string      `json:"updatedBy,omitempty"`
	UpdatedAt int64       `json:"updatedAt,omitempty"` // unix milliseconds
	LockedBy  *LockHolder `json:"lockedBy,omitempty"`
}

// Touch records who last changed the sheet and when.
func (sh *Sheet) Touch(by string, at time.Time) {
	sh.UpdatedBy = by
	sh.UpdatedAt = at.UnixMilli()
}

// FindItem returns a pointer into Items or nil.
func (sh *Sheet) FindItem(itemID id.ID) *Item {
	for i := range sh.Items {
		if sh.Items[i].ID == itemID {
			return &sh.Items[i]
		}
	}
	return nil
}

// CountedItems returns how many items on the sheet have a count entered.
func (sh *Sheet) CountedItems() int {
	n := 0
	for i := range sh.Items {
		if sh.Items[i].Counted() {
			n++
		}
	}
	return n
}

// Cycle is one inventory event for a tenant. At most one non-finalized cycle
// exists per tenant at any time (the live working cycle); finalized cycles are
// immutable historical records.
type Cycle struct {
	ID          id.ID   `json:"id"`
	Date        int64   `json:"date"` // unix milliseconds
	Sheets      []Sheet `json:"sheets"`
	IsFinalized bool    `json:"isFinalized"`
	CreatedBy   string  `json:"createdBy,omitempty"`
}

// NewCycle creates a fresh working cycle dated at the given instant.
// Callers pass their clock's now so the date is deterministic under test.
func NewCycle(createdBy string, at time.Time) *Cycle {
	return &Cycle{
		ID:        id.New(),
		Date:      at.UnixMilli(),
		Sheets:    make([]Sheet, 0),
		CreatedBy: createdBy,
	}
}

// Time returns the cycle date as time.Time.
func (c *Cycle) Time() time.Time { return time.UnixMilli(c.Date) }

// FindSheet returns a pointer into Sheets or nil.
func (c *Cycle) FindSheet(sheetID id.ID) *Sheet {
	for i := range c.Sheets {
		if c.Sheets[i].ID == sheetID {
			return &c.Sheets[i]
		}
	}
	return nil
}

// AllSubmitted reports whether every sheet has been submitted.
// A cycle with no sheets has nothing to finalize.
func (c *Cycle) AllSubmitted() bool {
	if len(c.Sheets) == 0 {
		return false
	}
	for i := range c.Sheets {
		if c.Sheets[i].Status != StatusSubmitted {
			return false
		}
	}
	return true
}

// Validate checks the cycle document at the persistence boundary.
// Malformed documents are rejected rather than stored with holes.
func (c *Cycle) Validate() error {
	if id.IsNil(c.ID) {
		return apperror.NewValidation("cycle id is required").WithDetail("field", "id")
	}
	if c.Date <= 0 {
		return apperror.NewValidation("cycle date is required").WithDetail("field", "date")
	}

	seenSheets := make(map[id.ID]struct{}, len(c.Sheets))
	for i := range c.Sheets {
		sh := &c.Sheets[i]
		if id.IsNil(sh.ID) {
			return apperror.NewValidation("sheet id is required").WithDetail("sheet", i)
		}
		if _, dup := seenSheets[sh.ID]; dup {
			return apperror.NewValidation("duplicate sheet id").WithDetail("sheetId", sh.ID)
		}
		seenSheets[sh.ID] = struct{}{}

		if sh.Title == "" {
			return apperror.NewValidation("sheet title is required").WithDetail("sheetId", sh.ID)
		}
		if sh.Status != StatusActive && sh.Status != StatusSubmitted {
			return apperror.NewValidation("unknown sheet status").
				WithDetail("sheetId", sh.ID).
				WithDetail("status", string(sh.Status))
		}

		seenItems := make(map[id.ID]struct{}, len(sh.Items))
		for j := range sh.Items {
			it := &sh.Items[j]
			if id.IsNil(it.ID) {
				return apperror.NewValidation("item id is required").WithDetail("sheetId", sh.ID)
			}
			if _, dup := seenItems[it.ID]; dup {
				return apperror.NewValidation("duplicate item id").WithDetail("itemId", it.ID)
			}
			seenItems[it.ID] = struct{}{}
			if it.Name == "" || it.Unit == "" {
				return apperror.NewValidation("item name and unit are required").WithDetail("itemId", it.ID)
			}
		}
	}
	return nil
}

// --- Lock transitions ---

// Acquire grants the sheet lock to user if the sheet is unlocked or already
// held by the same user id (idempotent re-acquire). On conflict the error
// carries the current holder.
func (c *Cycle) Acquire(sheetID id.ID, user LockHolder) error {
	if c.IsFinalized {
		return apperror.NewBusinessRule(apperror.CodeArchiveImmutable, "Archived cycle cannot be modified")
	}
	sh := c.FindSheet(sheetID)
	if sh == nil {
		return apperror.NewNotFound("sheet", sheetID)
	}
	if sh.LockedBy != nil && sh.LockedBy.ID != user.ID {
		return apperror.NewSheetLocked(sh.LockedBy.ID, sh.LockedBy.Name)
	}
	u := user
	sh.LockedBy = &u
	return nil
}

// Release clears the sheet lock unconditionally. Any caller may release;
// the admin unlock in the manage view depends on this.
func (c *Cycle) Release(sheetID id.ID) error {
	sh := c.FindSheet(sheetID)
	if sh == nil {
		return apperror.NewNotFound("sheet", sheetID)
	}
	sh.LockedBy = nil
	return nil
}

// --- Sheet status transitions ---

// Submit marks the sheet as submitted and clears its lock.
func (c *Cycle) Submit(sheetID id.ID) error {
	if c.IsFinalized {
		return apperror.NewBusinessRule(apperror.CodeArchiveImmutable, "Archived cycle cannot be modified")
	}
	sh := c.FindSheet(sheetID)
	if sh == nil {
		return apperror.NewNotFound("sheet", sheetID)
	}
	sh.Status = StatusSubmitted
	sh.LockedBy = nil
	return nil
}

// Reopen returns a submitted sheet to active and clears its lock.
// This is the manager's escape hatch when a sheet was submitted too early.
func (c *Cycle) Reopen(sheetID id.ID) error {
	if c.IsFinalized {
		return apperror.NewBusinessRule(apperror.CodeArchiveImmutable, "Archived cycle cannot be modified")
	}
	sh := c.FindSheet(sheetID)
	if sh == nil {
		return apperror.NewNotFound("sheet", sheetID)
	}
	sh.Status = StatusActive
	sh.LockedBy = nil
	return nil
}

// --- Finalize transform ---

// Archive builds the immutable archive record of this cycle: a clone with a
// new id, dated at the given instant, keeping only items that were counted
// above zero and dropping sheets left empty by that filter. Locks do not
// survive into the archive.
func (c *Cycle) Archive(at time.Time) *Cycle {
	arch := &Cycle{
		ID:          id.New(),
		Date:        at.UnixMilli(),
		Sheets:      make([]Sheet, 0, len(c.Sheets)),
		IsFinalized: true,
		CreatedBy:   c.CreatedBy,
	}
	for i := range c.Sheets {
		src := &c.Sheets[i]
		kept := make([]Item, 0, len(src.Items))
		for j := range src.Items {
			it := src.Items[j]
			if it.Actual == nil || !it.Actual.IsPositive() {
				continue
			}
			v := *it.Actual
			it.Actual = &v
			kept = append(kept, it)
		}
		if len(kept) == 0 {
			continue
		}
		arch.Sheets = append(arch.Sheets, Sheet{
			ID:        src.ID,
			Title:     src.Title,
			Items:     kept,
			Status:    StatusSubmitted,
			UpdatedBy: src.UpdatedBy,
			UpdatedAt: src.UpdatedAt,
		})
	}
	return arch
}

// Reset prepares the working cycle for the next count, in place: every sheet
// back to active with lock cleared, every item's count cleared to "not
// counted". Sheet and item identities (ids, names, units) are untouched so
// the same station layout is reused.
func (c *Cycle) Reset(at time.Time) {
	c.Date = at.UnixMilli()
	for i := range c.Sheets {
		sh := &c.Sheets[i]
		sh.Status = StatusActive
		sh.LockedBy = nil
		sh.UpdatedBy = ""
		sh.UpdatedAt = 0
		for j := range sh.Items {
			sh.Items[j].Actual = nil
		}
	}
}

// Clone returns a deep copy of the cycle.
// The engine hands copies to callbacks so callers can't mutate engine state.
func (c *Cycle) Clone() *Cycle {
	cp := *c
	cp.Sheets = make([]Sheet, len(c.Sheets))
	for i := range c.Sheets {
		src := &c.Sheets[i]
		sh := *src
		if src.LockedBy != nil {
			h := *src.LockedBy
			sh.LockedBy = &h
		}
		sh.Items = make([]Item, len(src.Items))
		for j := range src.Items {
			it := src.Items[j]
			if it.Actual != nil {
				v := *it.Actual
				it.Actual = &v
			}
			sh.Items[j] = it
		}
		cp.Sheets[i] = sh
	}
	return &cp
}
