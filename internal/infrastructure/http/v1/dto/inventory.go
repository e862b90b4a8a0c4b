package dto

import (
	"chefdeck/internal/core/id"
	"chefdeck/internal/domain/counting"
)

// UserRef identifies a user in lock requests and responses.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LockRequest asks for the write lock on one sheet.
type LockRequest struct {
	CycleID id.ID   `json:"cycleId" binding:"required"`
	SheetID id.ID   `json:"sheetId" binding:"required"`
	User    UserRef `json:"user" binding:"required"`
}

// UnlockRequest releases one sheet's lock.
type UnlockRequest struct {
	CycleID id.ID `json:"cycleId" binding:"required"`
	SheetID id.ID `json:"sheetId" binding:"required"`
}

// LockResponse reports the lock outcome. On conflict LockedBy names the
// current holder so the client can show "locked by X".
type LockResponse struct {
	Success  bool     `json:"success"`
	LockedBy *UserRef `json:"lockedBy,omitempty"`
}

// ClearArchiveResponse reports how many archived cycles were removed.
type ClearArchiveResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

// Holder converts a domain lock holder to its API shape.
func Holder(h counting.LockHolder) *UserRef {
	return &UserRef{ID: h.ID, Name: h.Name}
}
