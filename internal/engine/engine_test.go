package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/core/id"
	"chefdeck/internal/core/types"
	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/domain/counting"
)

// fakeStore is an in-memory persistence collaborator recording every save.
type fakeStore struct {
	mu      sync.Mutex
	cycles  map[id.ID]*counting.Cycle
	catalog []catalog.Item
	saves   []*counting.Cycle
	saveErr error
	denyAs  *counting.LockHolder
}

func newFakeStore() *fakeStore {
	return &fakeStore{cycles: make(map[id.ID]*counting.Cycle)}
}

func (f *fakeStore) FetchCycles(ctx context.Context) ([]*counting.Cycle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*counting.Cycle
	for _, c := range f.cycles {
		if !c.IsFinalized {
			out = append(out, c.Clone())
		}
	}
	for _, c := range f.cycles {
		if c.IsFinalized {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (f *fakeStore) SaveCycle(ctx context.Context, c *counting.Cycle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := c.Clone()
	f.cycles[cp.ID] = cp
	f.saves = append(f.saves, cp)
	return nil
}

func (f *fakeStore) Lock(ctx context.Context, cycleID, sheetID id.ID, user counting.LockHolder) (LockResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyAs != nil {
		return LockResult{Granted: false, Holder: f.denyAs}, nil
	}
	if c, ok := f.cycles[cycleID]; ok {
		_ = c.Acquire(sheetID, user)
	}
	return LockResult{Granted: true}, nil
}

func (f *fakeStore) Unlock(ctx context.Context, cycleID, sheetID id.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cycles[cycleID]; ok {
		_ = c.Release(sheetID)
	}
	return nil
}

func (f *fakeStore) FetchCatalog(ctx context.Context) ([]catalog.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.catalog, nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) lastSave() *counting.Cycle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

type fixture struct {
	engine  *Engine
	store   *fakeStore
	clk     *clock.Mock
	drafts  *MemoryDraftStore
	cycleID id.ID
	sheetID id.ID
	itemID  id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	cycle := counting.NewCycle("manager", time.Now())
	sheetID := id.New()
	itemID := id.New()
	cycle.Sheets = []counting.Sheet{{
		ID:     sheetID,
		Title:  "Кухня",
		Status: counting.StatusActive,
		Items: []counting.Item{
			{ID: itemID, Name: "Мука", Unit: "кг"},
			{ID: id.New(), Name: "Сахар", Unit: "кг"},
		},
	}}
	store.cycles[cycle.ID] = cycle

	clk := clock.NewMock()
	drafts := NewMemoryDraftStore()
	eng := New(Config{
		Store:  store,
		Drafts: drafts,
		Clock:  clk,
		User:   counting.LockHolder{ID: 7, Name: "Ivan"},
	})
	require.NoError(t, eng.Refresh(context.Background()))

	// Editing requires the sheet lock, so the fixture takes it up front.
	require.NoError(t, eng.StartCounting(context.Background(), sheetID))

	return &fixture{engine: eng, store: store, clk: clk, drafts: drafts, cycleID: cycle.ID, sheetID: sheetID, itemID: itemID}
}

func TestSetItemQuantity_DebounceCoalesces(t *testing.T) {
	fx := newFixture(t)

	// Typing "2.5" then "10" before the window elapses must produce exactly
	// one durable write carrying 10.
	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "2.5"))
	fx.clk.Add(400 * time.Millisecond)
	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "10"))

	assert.Equal(t, 0, fx.store.saveCount(), "nothing durable before the debounce fires")

	fx.clk.Add(800 * time.Millisecond)

	require.Equal(t, 1, fx.store.saveCount())
	saved := fx.store.lastSave()
	got := saved.FindSheet(fx.sheetID).FindItem(fx.itemID)
	require.NotNil(t, got.Actual)
	assert.Equal(t, 10.0, got.Actual.Float64())
}

func TestSetItemQuantity_OptimisticLocalState(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "2,5"))

	// Local state reflects the edit immediately, before any write.
	item := fx.engine.Cycle().FindSheet(fx.sheetID).FindItem(fx.itemID)
	require.NotNil(t, item.Actual)
	assert.Equal(t, 2.5, item.Actual.Float64())
}

func TestSetItemQuantity_ClearsToUncounted(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "4"))
	fx.clk.Add(time.Second)

	// Deleting the input clears the count; that is distinct from zero.
	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, ""))
	fx.clk.Add(time.Second)

	saved := fx.store.lastSave()
	assert.Nil(t, saved.FindSheet(fx.sheetID).FindItem(fx.itemID).Actual)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "0"))
	fx.clk.Add(time.Second)

	saved = fx.store.lastSave()
	got := saved.FindSheet(fx.sheetID).FindItem(fx.itemID)
	require.NotNil(t, got.Actual, "zero is a real count")
	assert.True(t, got.Actual.IsZero())
}

func TestSetItemQuantity_DraftLifecycle(t *testing.T) {
	fx := newFixture(t)
	key := DraftKey{CycleID: fx.cycleID, SheetID: fx.sheetID, ItemID: fx.itemID}

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "3"))
	_, ok := fx.drafts.Get(key)
	assert.True(t, ok, "draft written before the save")

	fx.clk.Add(time.Second)
	_, ok = fx.drafts.Get(key)
	assert.False(t, ok, "draft cleared after a successful save")
}

func TestSetItemQuantity_FailedSaveKeepsDraftAndState(t *testing.T) {
	fx := newFixture(t)
	key := DraftKey{CycleID: fx.cycleID, SheetID: fx.sheetID, ItemID: fx.itemID}

	var gotErr error
	fx.engine.onError = func(err error) { gotErr = err }
	fx.store.saveErr = errors.New("network down")

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "3"))
	fx.clk.Add(time.Second)

	// Fire-and-forget: the failure is advisory, nothing rolls back.
	assert.Error(t, gotErr)
	_, ok := fx.drafts.Get(key)
	assert.True(t, ok, "draft survives the failed save")
	item := fx.engine.Cycle().FindSheet(fx.sheetID).FindItem(fx.itemID)
	require.NotNil(t, item.Actual)
	assert.Equal(t, 3.0, item.Actual.Float64())
}

func TestPollTick_ReplacesStateWhenIdle(t *testing.T) {
	fx := newFixture(t)

	// Another client renames the sheet server-side.
	fx.store.mu.Lock()
	fx.store.cycles[fx.cycleID].Sheets[0].Title = "Бар"
	fx.store.mu.Unlock()

	fx.engine.pollTick()

	assert.Equal(t, "Бар", fx.engine.Cycle().FindSheet(fx.sheetID).Title)
	assert.Equal(t, int64(0), fx.engine.SuppressedPolls())
}

func TestPollTick_SuppressedWhileGateArmed(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "5"))

	// Server holds a stale snapshot (without the local edit).
	fx.store.mu.Lock()
	fx.store.cycles[fx.cycleID].Sheets[0].Title = "Бар"
	fx.store.mu.Unlock()

	fx.engine.pollTick()

	// Gate armed and write pending: the stale snapshot must not clobber
	// the optimistic edit.
	cycle := fx.engine.Cycle()
	assert.Equal(t, "Кухня", cycle.FindSheet(fx.sheetID).Title)
	require.NotNil(t, cycle.FindSheet(fx.sheetID).FindItem(fx.itemID).Actual)
	assert.Equal(t, int64(1), fx.engine.SuppressedPolls())

	// The debounced write lands, overwriting the stale snapshot: whole
	// documents race as last-write-wins.
	fx.clk.Add(time.Second)

	// A later rename by another client becomes visible once the gate expires.
	fx.store.mu.Lock()
	fx.store.cycles[fx.cycleID].Sheets[0].Title = "Бар"
	fx.store.mu.Unlock()

	fx.clk.Add(3 * time.Second)
	fx.engine.pollTick()
	after := fx.engine.Cycle().FindSheet(fx.sheetID)
	assert.Equal(t, "Бар", after.Title)
	require.NotNil(t, after.FindItem(fx.itemID).Actual)
	assert.Equal(t, 5.0, after.FindItem(fx.itemID).Actual.Float64())
}

func TestStartCounting_Granted(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.StartCounting(context.Background(), fx.sheetID))

	locked := fx.engine.Cycle().FindSheet(fx.sheetID).LockedBy
	require.NotNil(t, locked)
	assert.Equal(t, int64(7), locked.ID)
}

func TestStartCounting_Denied(t *testing.T) {
	store := newFakeStore()
	cycle := counting.NewCycle("manager", time.Now())
	sheetID := id.New()
	cycle.Sheets = []counting.Sheet{{ID: sheetID, Title: "Кухня", Status: counting.StatusActive, Items: make([]counting.Item, 0)}}
	store.cycles[cycle.ID] = cycle
	store.denyAs = &counting.LockHolder{ID: 9, Name: "Anna"}

	eng := New(Config{
		Store:  store,
		Drafts: NewMemoryDraftStore(),
		Clock:  clock.NewMock(),
		User:   counting.LockHolder{ID: 7, Name: "Ivan"},
	})
	require.NoError(t, eng.Refresh(context.Background()))

	err := eng.StartCounting(context.Background(), sheetID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSheetLocked, appErr.Code)
	assert.Equal(t, "Anna", appErr.Details["holder_name"])

	// Fields stay read-only: the local sheet is not marked as ours.
	assert.Nil(t, eng.Cycle().FindSheet(sheetID).LockedBy)
}

func TestEditRejected_WhenLockedByOther(t *testing.T) {
	fx := newFixture(t)

	fx.store.mu.Lock()
	anna := counting.LockHolder{ID: 9, Name: "Anna"}
	fx.store.cycles[fx.cycleID].Sheets[0].LockedBy = &anna
	fx.store.mu.Unlock()
	require.NoError(t, fx.engine.Refresh(context.Background()))

	err := fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "5")
	require.Error(t, err)
	assert.True(t, apperror.IsSheetLocked(err))

	err = fx.engine.DeleteItem(fx.sheetID, fx.itemID)
	assert.True(t, apperror.IsSheetLocked(err))
}

func TestEditRejected_WithoutHeldLock(t *testing.T) {
	fx := newFixture(t)

	// Giving the lock back makes the sheet read-only for this session.
	require.NoError(t, fx.engine.StopCounting(context.Background(), fx.sheetID))

	err := fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "5")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSheetNotHeld, appErr.Code)

	err = fx.engine.DeleteItem(fx.sheetID, fx.itemID)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSheetNotHeld, appErr.Code)

	err = fx.engine.AddItems(context.Background(), fx.sheetID, []catalog.Item{{Name: "Масло", Unit: "л"}}, nil)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSheetNotHeld, appErr.Code)

	// A second session on the same unlocked sheet is rejected the same way,
	// so two users can never interleave writes without arbitration.
	other := New(Config{
		Store:  fx.store,
		Drafts: NewMemoryDraftStore(),
		Clock:  clock.NewMock(),
		User:   counting.LockHolder{ID: 9, Name: "Anna"},
	})
	require.NoError(t, other.Refresh(context.Background()))
	err = other.SetItemQuantity(fx.sheetID, fx.itemID, "7")
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSheetNotHeld, appErr.Code)

	// Taking the lock re-enables editing.
	require.NoError(t, fx.engine.StartCounting(context.Background(), fx.sheetID))
	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "5"))
}

func TestAdminSession_EditsWithoutLock(t *testing.T) {
	store := newFakeStore()
	cycle := counting.NewCycle("manager", time.Now())
	sheetID := id.New()
	itemID := id.New()
	cycle.Sheets = []counting.Sheet{{
		ID:     sheetID,
		Title:  "Кухня",
		Status: counting.StatusActive,
		Items:  []counting.Item{{ID: itemID, Name: "Мука", Unit: "кг"}},
	}}
	store.cycles[cycle.ID] = cycle

	eng := New(Config{
		Store:  store,
		Drafts: NewMemoryDraftStore(),
		Clock:  clock.NewMock(),
		User:   counting.LockHolder{ID: 1, Name: "Boss"},
		Admin:  true,
	})
	require.NoError(t, eng.Refresh(context.Background()))

	// The manage view edits without taking the sheet first.
	require.NoError(t, eng.SetItemQuantity(sheetID, itemID, "2"))
	require.NoError(t, eng.AddItems(context.Background(), sheetID, []catalog.Item{{Name: "Масло", Unit: "л"}}, nil))
}

func TestCreateSheet_CreatesCycleWhenNoneActive(t *testing.T) {
	store := newFakeStore()
	eng := New(Config{
		Store: store,
		Clock: clock.NewMock(),
		User:  counting.LockHolder{ID: 7, Name: "Ivan"},
	})
	require.NoError(t, eng.Refresh(context.Background()))
	require.Nil(t, eng.Cycle())

	sheetID, err := eng.CreateSheet(context.Background(), "Кухня")
	require.NoError(t, err)

	cycle := eng.Cycle()
	require.NotNil(t, cycle)
	assert.Equal(t, "Ivan", cycle.CreatedBy)
	assert.NotNil(t, cycle.FindSheet(sheetID))
	assert.Equal(t, 1, store.saveCount())
}

func TestAddItems_DeduplicatesByProduct(t *testing.T) {
	fx := newFixture(t)

	err := fx.engine.AddItems(context.Background(), fx.sheetID, []catalog.Item{
		{Code: "101", Name: "Мука", Unit: "кг"},   // already on the sheet
		{Code: "300", Name: "Масло", Unit: "л"},
		{Code: "300", Name: "Масло", Unit: "л"},   // duplicate in the selection
	}, nil)
	require.NoError(t, err)

	items := fx.engine.Cycle().FindSheet(fx.sheetID).Items
	assert.Len(t, items, 3) // Мука, Сахар, Масло
}

func TestAddItems_UniformInitialValue(t *testing.T) {
	fx := newFixture(t)
	initial := types.NewQuantityFromFloat64(1)

	err := fx.engine.AddItems(context.Background(), fx.sheetID, []catalog.Item{
		{Name: "Масло", Unit: "л"},
	}, &initial)
	require.NoError(t, err)

	items := fx.engine.Cycle().FindSheet(fx.sheetID).Items
	added := items[len(items)-1]
	require.NotNil(t, added.Actual)
	assert.Equal(t, 1.0, added.Actual.Float64())
}

func TestDeleteItem_Immediate(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.DeleteItem(fx.sheetID, fx.itemID))

	// Local removal is immediate.
	assert.Nil(t, fx.engine.Cycle().FindSheet(fx.sheetID).FindItem(fx.itemID))

	// The fire-and-forget write lands eventually.
	assert.Eventually(t, func() bool { return fx.store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestFinalize_RequiresAllSubmitted(t *testing.T) {
	fx := newFixture(t)

	err := fx.engine.FinalizeCycle(context.Background())
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeCycleNotReady, appErr.Code)
}

func TestFinalize_ArchivesThenResets(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "3"))
	fx.clk.Add(time.Second)
	require.NoError(t, fx.engine.SubmitSheet(context.Background(), fx.sheetID))

	require.NoError(t, fx.engine.FinalizeCycle(context.Background()))

	// Working cycle: same id, everything reset.
	working := fx.engine.Cycle()
	assert.Equal(t, fx.cycleID, working.ID)
	assert.False(t, working.IsFinalized)
	for _, sh := range working.Sheets {
		assert.Equal(t, counting.StatusActive, sh.Status)
		for _, it := range sh.Items {
			assert.Nil(t, it.Actual)
		}
	}

	// Store now holds the archive record alongside the working cycle.
	fx.store.mu.Lock()
	defer fx.store.mu.Unlock()
	var archived *counting.Cycle
	for _, c := range fx.store.cycles {
		if c.IsFinalized {
			archived = c
		}
	}
	require.NotNil(t, archived)
	require.Len(t, archived.Sheets, 1)
	require.Len(t, archived.Sheets[0].Items, 1)
	assert.Equal(t, 3.0, archived.Sheets[0].Items[0].Actual.Float64())
}

func TestFinalize_ArchiveFailureAbortsReset(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "3"))
	fx.clk.Add(time.Second)
	require.NoError(t, fx.engine.SubmitSheet(context.Background(), fx.sheetID))

	fx.store.saveErr = errors.New("disk full")
	err := fx.engine.FinalizeCycle(context.Background())
	require.Error(t, err)

	// The reset half must not run: counted data is still there.
	working := fx.engine.Cycle()
	item := working.FindSheet(fx.sheetID).FindItem(fx.itemID)
	require.NotNil(t, item.Actual)
	assert.Equal(t, 3.0, item.Actual.Float64())
	assert.Equal(t, counting.StatusSubmitted, working.FindSheet(fx.sheetID).Status)
}

func TestSubmitAndReopenSheet(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.StartCounting(context.Background(), fx.sheetID))
	require.NoError(t, fx.engine.SubmitSheet(context.Background(), fx.sheetID))

	sh := fx.engine.Cycle().FindSheet(fx.sheetID)
	assert.Equal(t, counting.StatusSubmitted, sh.Status)
	assert.Nil(t, sh.LockedBy)

	require.NoError(t, fx.engine.ReopenSheet(context.Background(), fx.sheetID))
	assert.Equal(t, counting.StatusActive, fx.engine.Cycle().FindSheet(fx.sheetID).Status)
}

func TestRenameAndDeleteSheet(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.RenameSheet(context.Background(), fx.sheetID, "Горячий цех"))
	assert.Equal(t, "Горячий цех", fx.engine.Cycle().FindSheet(fx.sheetID).Title)

	require.NoError(t, fx.engine.DeleteSheet(context.Background(), fx.sheetID))
	assert.Nil(t, fx.engine.Cycle().FindSheet(fx.sheetID))

	err := fx.engine.DeleteSheet(context.Background(), fx.sheetID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSummary_UsesCatalogSeed(t *testing.T) {
	fx := newFixture(t)
	fx.store.catalog = []catalog.Item{{Code: "900", Name: "Трюфель", Unit: "г"}}
	require.NoError(t, fx.engine.Refresh(context.Background()))

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "2"))

	totals := counting.TotalsMap(fx.engine.Summary())
	assert.Equal(t, 2.0, totals[counting.ProductKey{Name: "Мука", Unit: "кг"}].Float64())
	assert.True(t, totals[counting.ProductKey{Name: "Трюфель", Unit: "г"}].IsZero())
}

func TestSetItemQuantity_StampsSheetAudit(t *testing.T) {
	fx := newFixture(t)
	fx.clk.Add(time.Hour)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "3"))

	sh := fx.engine.Cycle().FindSheet(fx.sheetID)
	assert.Equal(t, "Ivan", sh.UpdatedBy)
	assert.Equal(t, fx.clk.Now().UnixMilli(), sh.UpdatedAt)
}

func TestFlush_DispatchesPendingWrites(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "4"))
	require.Equal(t, 0, fx.store.saveCount())

	fx.engine.Flush()

	require.Equal(t, 1, fx.store.saveCount())
	got := fx.store.lastSave().FindSheet(fx.sheetID).FindItem(fx.itemID)
	require.NotNil(t, got.Actual)
	assert.Equal(t, 4.0, got.Actual.Float64())

	// The draft is cleared once the flushed write lands.
	_, ok := fx.drafts.Get(DraftKey{CycleID: fx.cycleID, SheetID: fx.sheetID, ItemID: fx.itemID})
	assert.False(t, ok)
}

func TestClose_CancelsPendingWrites(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "4"))
	fx.engine.Close()

	// A timer firing after Close must not dispatch the cancelled write.
	fx.clk.Add(time.Second)
	assert.Equal(t, 0, fx.store.saveCount())

	// The value survives in the draft store for the next session.
	raw, ok := fx.drafts.Get(DraftKey{CycleID: fx.cycleID, SheetID: fx.sheetID, ItemID: fx.itemID})
	require.True(t, ok)
	assert.Equal(t, "4", raw)
}

func TestFinalize_DatesFollowClock(t *testing.T) {
	fx := newFixture(t)
	fx.clk.Add(48 * time.Hour)

	require.NoError(t, fx.engine.SetItemQuantity(fx.sheetID, fx.itemID, "3"))
	fx.clk.Add(time.Second)
	require.NoError(t, fx.engine.SubmitSheet(context.Background(), fx.sheetID))
	require.NoError(t, fx.engine.FinalizeCycle(context.Background()))

	want := fx.clk.Now().UnixMilli()
	assert.Equal(t, want, fx.engine.Cycle().Date, "reset working cycle is dated by the engine clock")

	fx.store.mu.Lock()
	defer fx.store.mu.Unlock()
	for _, c := range fx.store.cycles {
		if c.IsFinalized {
			assert.Equal(t, want, c.Date, "archive record is dated by the engine clock")
		}
	}
}
