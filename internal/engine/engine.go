package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/core/id"
	"chefdeck/internal/core/types"
	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/domain/counting"
	"chefdeck/pkg/logger"
)

// Default timings. Debounce coalesces keystrokes into one write; the gate
// window shields local state from one poll after an edit; the poll interval
// is how often other users' changes become visible.
const (
	DefaultDebounce     = 800 * time.Millisecond
	DefaultGateWindow   = 3 * time.Second
	DefaultPollInterval = 7 * time.Second
)

// Config configures an Engine.
type Config struct {
	Store  Store
	Drafts DraftStore
	Clock  clock.Clock // nil means the real clock
	User   counting.LockHolder

	// Admin sessions edit sheets without taking the lock, the way the
	// manage view does. Regular counting sessions must StartCounting first.
	Admin bool

	Debounce     time.Duration
	GateWindow   time.Duration
	PollInterval time.Duration

	// OnChange is invoked with a deep copy of the cycle after every state
	// change, local or poll-driven. May be nil.
	OnChange func(*counting.Cycle)

	// OnError receives background write failures. Writes are
	// fire-and-forget: local state stays optimistic and nothing is rolled
	// back, the failure is advisory. May be nil.
	OnError func(error)
}

// Engine owns the active cycle's in-memory state and mediates between the
// draft store, the sync gate, the lock manager and the persistence
// collaborator. One Engine per client session.
type Engine struct {
	store  Store
	drafts DraftStore
	clk    clock.Clock
	user   counting.LockHolder
	admin  bool

	debounce     time.Duration
	gateWindow   time.Duration
	pollInterval time.Duration

	onChange func(*counting.Cycle)
	onError  func(error)

	gate *SyncGate

	mu      sync.Mutex
	cycle   *counting.Cycle
	catalog []catalog.Item
	pending map[id.ID]*pendingWrite

	inflight        atomic.Int32
	suppressedPolls atomic.Int64

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// pendingWrite is one item's debounced command: only the latest value is
// ever dispatched.
type pendingWrite struct {
	timer *clock.Timer
	key   DraftKey
}

// New creates an Engine. Call Start to load state and begin polling.
func New(cfg Config) *Engine {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	drafts := cfg.Drafts
	if drafts == nil {
		drafts = NewMemoryDraftStore()
	}

	e := &Engine{
		store:        cfg.Store,
		drafts:       drafts,
		clk:          clk,
		user:         cfg.User,
		admin:        cfg.Admin,
		debounce:     cfg.Debounce,
		gateWindow:   cfg.GateWindow,
		pollInterval: cfg.PollInterval,
		onChange:     cfg.OnChange,
		onError:      cfg.OnError,
		gate:         NewSyncGate(clk),
		pending:      make(map[id.ID]*pendingWrite),
		done:         make(chan struct{}),
	}
	if e.debounce <= 0 {
		e.debounce = DefaultDebounce
	}
	if e.gateWindow <= 0 {
		e.gateWindow = DefaultGateWindow
	}
	if e.pollInterval <= 0 {
		e.pollInterval = DefaultPollInterval
	}
	return e
}

// Start loads the initial state and launches the background poller.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Refresh(ctx); err != nil {
		return err
	}

	e.wg.Add(1)
	go e.pollLoop()
	return nil
}

// Close stops the poller and pending debounce timers. Pending values stay in
// the draft store and are recovered on the next session. Timers are stopped
// before waiting so no flush can start once Close begins; a flush already past
// its pending check is wg-tracked and waited for.
func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.done) })

	e.mu.Lock()
	for _, pw := range e.pending {
		pw.timer.Stop()
	}
	e.pending = make(map[id.ID]*pendingWrite)
	e.mu.Unlock()

	e.wg.Wait()
}

// Flush dispatches every pending debounced write immediately and waits for
// the saves to finish. Interactive sessions never need this; one-shot
// clients call it before Close.
func (e *Engine) Flush() {
	e.mu.Lock()
	ids := make([]id.ID, 0, len(e.pending))
	for itemID, pw := range e.pending {
		pw.timer.Stop()
		ids = append(ids, itemID)
	}
	e.mu.Unlock()

	for _, itemID := range ids {
		e.flushItem(itemID)
	}
}

// Cycle returns a deep copy of the working cycle, or nil before the first
// Refresh or when the tenant has no working cycle.
func (e *Engine) Cycle() *counting.Cycle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cycle == nil {
		return nil
	}
	return e.cycle.Clone()
}

// Catalog returns the last fetched product catalog.
func (e *Engine) Catalog() []catalog.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]catalog.Item, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// Summary aggregates the working cycle against the catalog.
func (e *Engine) Summary() []counting.ProductTotal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return counting.Aggregate(e.cycle, e.catalog)
}

// SuppressedPolls reports how many poll ticks were skipped because local
// edits were in flight.
func (e *Engine) SuppressedPolls() int64 {
	return e.suppressedPolls.Load()
}

// Refresh fetches the server state and replaces local state with it.
// The working cycle is the one non-finalized cycle, if any.
func (e *Engine) Refresh(ctx context.Context) error {
	cycles, err := e.store.FetchCycles(ctx)
	if err != nil {
		return fmt.Errorf("fetch cycles: %w", err)
	}
	cat, err := e.store.FetchCatalog(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	var working *counting.Cycle
	for _, c := range cycles {
		if !c.IsFinalized {
			working = c
			break
		}
	}

	e.mu.Lock()
	e.cycle = working
	e.catalog = cat
	e.mu.Unlock()

	e.notify()
	return nil
}

// --- Structural operations (synchronous, errors surface to the caller) ---

// CreateSheet adds a station sheet, creating the working cycle first if the
// tenant has none.
func (e *Engine) CreateSheet(ctx context.Context, title string) (id.ID, error) {
	if title == "" {
		return id.Nil(), apperror.NewValidation("sheet title is required")
	}

	e.mu.Lock()
	if e.cycle == nil {
		e.cycle = counting.NewCycle(e.user.Name, e.clk.Now())
	}
	sheetID := id.New()
	e.cycle.Sheets = append(e.cycle.Sheets, counting.Sheet{
		ID:     sheetID,
		Title:  title,
		Items:  make([]counting.Item, 0),
		Status: counting.StatusActive,
	})
	snapshot := e.cycle.Clone()
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)
	if err := e.store.SaveCycle(ctx, snapshot); err != nil {
		return id.Nil(), fmt.Errorf("save cycle: %w", err)
	}
	e.notify()
	return sheetID, nil
}

// RenameSheet changes a sheet title.
func (e *Engine) RenameSheet(ctx context.Context, sheetID id.ID, title string) error {
	if title == "" {
		return apperror.NewValidation("sheet title is required")
	}

	e.mu.Lock()
	sh := e.findSheet(sheetID)
	if sh == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	sh.Title = title
	sh.Touch(e.user.Name, e.clk.Now())
	snapshot := e.cycle.Clone()
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)
	if err := e.store.SaveCycle(ctx, snapshot); err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}
	e.notify()
	return nil
}

// DeleteSheet removes a sheet from the working cycle.
func (e *Engine) DeleteSheet(ctx context.Context, sheetID id.ID) error {
	e.mu.Lock()
	if e.cycle == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	found := false
	kept := e.cycle.Sheets[:0]
	for _, sh := range e.cycle.Sheets {
		if sh.ID == sheetID {
			found = true
			continue
		}
		kept = append(kept, sh)
	}
	e.cycle.Sheets = kept
	if !found {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	snapshot := e.cycle.Clone()
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)
	if err := e.store.SaveCycle(ctx, snapshot); err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}
	e.notify()
	return nil
}

// AddItems appends catalog selections to a sheet, skipping products already
// on it (same name and unit). Initial, when non-nil, pre-fills every added
// item with one uniform count.
func (e *Engine) AddItems(ctx context.Context, sheetID id.ID, selection []catalog.Item, initial *types.Quantity) error {
	e.mu.Lock()
	sh := e.findSheet(sheetID)
	if sh == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	if err := e.checkWritable(sh); err != nil {
		e.mu.Unlock()
		return err
	}

	existing := make(map[counting.ProductKey]struct{}, len(sh.Items))
	for i := range sh.Items {
		existing[counting.ProductKey{Name: sh.Items[i].Name, Unit: sh.Items[i].Unit}] = struct{}{}
	}

	for _, sel := range selection {
		key := counting.ProductKey{Name: sel.Name, Unit: sel.Unit}
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}
		item := counting.Item{
			ID:   id.New(),
			Code: sel.Code,
			Name: sel.Name,
			Unit: sel.Unit,
		}
		if initial != nil {
			v := *initial
			item.Actual = &v
		}
		sh.Items = append(sh.Items, item)
	}
	sh.Touch(e.user.Name, e.clk.Now())
	snapshot := e.cycle.Clone()
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)
	if err := e.store.SaveCycle(ctx, snapshot); err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}
	e.notify()
	return nil
}

// --- Counting operations ---

// StartCounting acquires the sheet lock for this engine's user. On refusal
// the returned error carries the holder's identity.
func (e *Engine) StartCounting(ctx context.Context, sheetID id.ID) error {
	e.mu.Lock()
	if e.cycle == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	cycleID := e.cycle.ID
	e.mu.Unlock()

	res, err := e.store.Lock(ctx, cycleID, sheetID, e.user)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !res.Granted {
		holder := counting.LockHolder{Name: "unknown"}
		if res.Holder != nil {
			holder = *res.Holder
		}
		return apperror.NewSheetLocked(holder.ID, holder.Name)
	}

	e.mu.Lock()
	if sh := e.findSheet(sheetID); sh != nil {
		u := e.user
		sh.LockedBy = &u
	}
	e.mu.Unlock()

	e.notify()
	return nil
}

// StopCounting releases the sheet lock. Release is unconditional on the
// server, which is also what lets an admin free an abandoned sheet.
func (e *Engine) StopCounting(ctx context.Context, sheetID id.ID) error {
	e.mu.Lock()
	if e.cycle == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	cycleID := e.cycle.ID
	e.mu.Unlock()

	if err := e.store.Unlock(ctx, cycleID, sheetID); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}

	e.mu.Lock()
	if sh := e.findSheet(sheetID); sh != nil {
		sh.LockedBy = nil
	}
	e.mu.Unlock()

	e.notify()
	return nil
}

// SetItemQuantity records typed input for one item: the parsed value is
// applied optimistically, the raw input goes to the draft store, and a
// durable write is scheduled after the debounce window. Rapid re-entry for
// the same item cancels the pending write so only the last value is ever
// sent. Empty or unparsable input clears the count back to "not counted".
func (e *Engine) SetItemQuantity(sheetID, itemID id.ID, input string) error {
	e.mu.Lock()
	sh := e.findSheet(sheetID)
	if sh == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	if err := e.checkWritable(sh); err != nil {
		e.mu.Unlock()
		return err
	}
	item := sh.FindItem(itemID)
	if item == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("item", itemID)
	}

	item.Actual = types.ParseQuantityInput(input)
	sh.Touch(e.user.Name, e.clk.Now())

	key := DraftKey{CycleID: e.cycle.ID, SheetID: sheetID, ItemID: itemID}
	if err := e.drafts.Set(key, input); err != nil {
		logger.Warn(context.Background(), "draft write failed", "key", key.String(), "error", err)
	}

	// Coalesce: a pending write for this item is superseded.
	if pw, ok := e.pending[itemID]; ok {
		pw.timer.Stop()
	}
	e.pending[itemID] = &pendingWrite{
		key:   key,
		timer: e.clk.AfterFunc(e.debounce, func() { e.flushItem(itemID) }),
	}
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)
	e.notify()
	return nil
}

// flushItem dispatches the debounced write for one item. The wg registration
// happens under e.mu, before Close can clear the pending map, so Close always
// waits for a flush that got this far.
func (e *Engine) flushItem(itemID id.ID) {
	e.mu.Lock()
	pw, ok := e.pending[itemID]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.pending, itemID)
	snapshot := e.cycle.Clone()
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	e.saveOptimistic(snapshot, &pw.key)
}

// DeleteItem removes an item immediately; the write is fire-and-forget.
func (e *Engine) DeleteItem(sheetID, itemID id.ID) error {
	e.mu.Lock()
	sh := e.findSheet(sheetID)
	if sh == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	if err := e.checkWritable(sh); err != nil {
		e.mu.Unlock()
		return err
	}
	found := false
	kept := sh.Items[:0]
	for _, it := range sh.Items {
		if it.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	sh.Items = kept
	if !found {
		e.mu.Unlock()
		return apperror.NewNotFound("item", itemID)
	}
	if pw, ok := e.pending[itemID]; ok {
		pw.timer.Stop()
		delete(e.pending, itemID)
		_ = e.drafts.Clear(pw.key)
	}
	sh.Touch(e.user.Name, e.clk.Now())
	snapshot := e.cycle.Clone()
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)
	e.notify()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.saveOptimistic(snapshot, nil)
	}()
	return nil
}

// SubmitSheet marks a sheet as finished counting.
func (e *Engine) SubmitSheet(ctx context.Context, sheetID id.ID) error {
	e.mu.Lock()
	if e.cycle == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	if err := e.cycle.Submit(sheetID); err != nil {
		e.mu.Unlock()
		return err
	}
	e.cycle.FindSheet(sheetID).Touch(e.user.Name, e.clk.Now())
	snapshot := e.cycle.Clone()
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)
	if err := e.store.SaveCycle(ctx, snapshot); err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}
	e.notify()
	return nil
}

// ReopenSheet returns a submitted sheet to active (manager action).
func (e *Engine) ReopenSheet(ctx context.Context, sheetID id.ID) error {
	e.mu.Lock()
	if e.cycle == nil {
		e.mu.Unlock()
		return apperror.NewNotFound("sheet", sheetID)
	}
	if err := e.cycle.Reopen(sheetID); err != nil {
		e.mu.Unlock()
		return err
	}
	e.cycle.FindSheet(sheetID).Touch(e.user.Name, e.clk.Now())
	snapshot := e.cycle.Clone()
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)
	if err := e.store.SaveCycle(ctx, snapshot); err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}
	e.notify()
	return nil
}

// FinalizeCycle archives counted quantities and resets the working cycle.
// Valid only when every sheet is submitted. The archive write must succeed
// before the reset is applied: a failed archive aborts the whole operation,
// losing the archive AND resetting would silently destroy counted data.
func (e *Engine) FinalizeCycle(ctx context.Context) error {
	e.mu.Lock()
	if e.cycle == nil {
		e.mu.Unlock()
		return apperror.NewBusinessRule(apperror.CodeCycleNotReady, "No working cycle to finalize")
	}
	if !e.cycle.AllSubmitted() {
		e.mu.Unlock()
		return apperror.NewBusinessRule(apperror.CodeCycleNotReady, "All sheets must be submitted before finalizing")
	}
	arch := e.cycle.Archive(e.clk.Now())
	e.mu.Unlock()

	e.gate.Arm(e.gateWindow)

	if err := e.store.SaveCycle(ctx, arch); err != nil {
		return fmt.Errorf("archive write: %w", err)
	}

	e.mu.Lock()
	e.cycle.Reset(e.clk.Now())
	snapshot := e.cycle.Clone()
	e.mu.Unlock()

	if err := e.store.SaveCycle(ctx, snapshot); err != nil {
		return fmt.Errorf("reset write: %w", err)
	}

	e.notify()
	return nil
}

// --- Background sync ---

// saveOptimistic pushes a cycle snapshot without rolling back on failure.
// The draft (if any) is cleared only on success; on failure it survives for
// the next session to resync.
func (e *Engine) saveOptimistic(snapshot *counting.Cycle, draft *DraftKey) {
	e.inflight.Add(1)
	defer e.inflight.Add(-1)

	if err := e.store.SaveCycle(context.Background(), snapshot); err != nil {
		logger.Warn(context.Background(), "background save failed", "cycle", snapshot.ID, "error", err)
		if e.onError != nil {
			e.onError(err)
		}
		return
	}
	if draft != nil {
		_ = e.drafts.Clear(*draft)
	}
}

// pollLoop periodically replaces local state with the server snapshot,
// unless the gate is armed or a write is in flight; a stale snapshot must
// not clobber an optimistic edit.
func (e *Engine) pollLoop() {
	defer e.wg.Done()

	ticker := e.clk.Ticker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.pollTick()
		}
	}
}

// pollTick runs one poll iteration: skip when local edits are in flight,
// otherwise replace local state with the server snapshot.
func (e *Engine) pollTick() {
	if e.gate.Locked() || e.inflight.Load() > 0 || e.hasPending() {
		e.suppressedPolls.Add(1)
		return
	}
	if err := e.Refresh(context.Background()); err != nil {
		logger.Warn(context.Background(), "poll refresh failed", "error", err)
	}
}

func (e *Engine) hasPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending) > 0
}

// checkWritable gates item mutations behind the lock discipline: editing a
// sheet requires holding its lock (StartCounting), so two sessions can never
// interleave whole-document writes on the same unlocked sheet. Admin sessions
// bypass the lock like the manage view. Finalized cycles are never writable.
// The caller must hold e.mu.
func (e *Engine) checkWritable(sh *counting.Sheet) error {
	if e.cycle.IsFinalized {
		return apperror.NewBusinessRule(apperror.CodeArchiveImmutable, "Archived cycle cannot be modified")
	}
	if e.admin {
		return nil
	}
	if sh.LockedBy == nil {
		return apperror.NewBusinessRule(apperror.CodeSheetNotHeld, "Take the sheet before counting")
	}
	if sh.LockedBy.ID != e.user.ID {
		return apperror.NewSheetLocked(sh.LockedBy.ID, sh.LockedBy.Name)
	}
	return nil
}

// findSheet returns the sheet in the working cycle. Caller must hold e.mu.
func (e *Engine) findSheet(sheetID id.ID) *counting.Sheet {
	if e.cycle == nil {
		return nil
	}
	return e.cycle.FindSheet(sheetID)
}

func (e *Engine) notify() {
	if e.onChange == nil {
		return
	}
	e.onChange(e.Cycle())
}
