package counting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/core/id"
)

// fakeRepo keeps cycles in memory and counts which read path each call used,
// so tests can assert that read-modify-write sequences go through the locking
// read rather than the plain one.
type fakeRepo struct {
	cycles         map[id.ID]*Cycle
	plainGets      int
	forUpdateGets  int
	upserts        int
	deleteAffected int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{cycles: make(map[id.ID]*Cycle)}
}

func (f *fakeRepo) List(ctx context.Context) ([]*Cycle, error) {
	out := make([]*Cycle, 0, len(f.cycles))
	for _, c := range f.cycles {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, cycleID id.ID) (*Cycle, error) {
	f.plainGets++
	return f.get(cycleID)
}

func (f *fakeRepo) GetByIDForUpdate(ctx context.Context, cycleID id.ID) (*Cycle, error) {
	f.forUpdateGets++
	return f.get(cycleID)
}

func (f *fakeRepo) get(cycleID id.ID) (*Cycle, error) {
	c, ok := f.cycles[cycleID]
	if !ok {
		return nil, apperror.NewNotFound("cycle", cycleID)
	}
	return c.Clone(), nil
}

func (f *fakeRepo) Upsert(ctx context.Context, c *Cycle) error {
	f.upserts++
	f.cycles[c.ID] = c.Clone()
	return nil
}

func (f *fakeRepo) DeleteFinalized(ctx context.Context) (int64, error) {
	for cid, c := range f.cycles {
		if c.IsFinalized {
			delete(f.cycles, cid)
			f.deleteAffected++
		}
	}
	return f.deleteAffected, nil
}

var _ Repository = (*fakeRepo)(nil)

// fakeTxManager runs the function directly. The repo fake is single-threaded,
// so the transaction boundary itself is not under test here.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *Cycle) {
	t.Helper()
	repo := newFakeRepo()
	c := NewCycle("manager", time.Now())
	c.Sheets = []Sheet{{
		ID:     id.New(),
		Title:  "Кухня",
		Status: StatusActive,
		Items:  []Item{{ID: id.New(), Name: "Мука", Unit: "кг"}},
	}}
	repo.cycles[c.ID] = c
	return NewService(repo, fakeTxManager{}), repo, c
}

func TestServiceLock_SecondCallerSeesWinner(t *testing.T) {
	svc, repo, c := newTestService(t)
	ctx := context.Background()
	sheet := c.Sheets[0].ID

	require.NoError(t, svc.Lock(ctx, c.ID, sheet, LockHolder{ID: 7, Name: "Ivan"}))

	// The loser re-reads the winner's document and is refused with the
	// holder identity for the 409 body.
	err := svc.Lock(ctx, c.ID, sheet, LockHolder{ID: 9, Name: "Anna"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSheetLocked, appErr.Code)
	assert.Equal(t, "Ivan", appErr.Details["holder_name"])

	// Only the winner's document was written.
	assert.Equal(t, 1, repo.upserts)
	assert.Equal(t, "Ivan", repo.cycles[c.ID].FindSheet(sheet).LockedBy.Name)
}

func TestServiceLock_ReadsRowLocked(t *testing.T) {
	svc, repo, c := newTestService(t)
	ctx := context.Background()
	sheet := c.Sheets[0].ID

	require.NoError(t, svc.Lock(ctx, c.ID, sheet, LockHolder{ID: 7, Name: "Ivan"}))
	require.NoError(t, svc.Unlock(ctx, c.ID, sheet))
	require.NoError(t, svc.Save(ctx, c))

	// Every read-modify-write path must read with the row lock; a plain
	// read lets two racing arbitrations both see the unlocked document.
	assert.Equal(t, 3, repo.forUpdateGets)
	assert.Equal(t, 0, repo.plainGets)
}

func TestServiceSave_RejectsOverwritingArchive(t *testing.T) {
	svc, repo, c := newTestService(t)
	ctx := context.Background()

	arch := c.Archive(time.Now())
	arch.Sheets = c.Clone().Sheets // keep a valid document shape
	repo.cycles[arch.ID] = arch

	stale := arch.Clone()
	stale.CreatedBy = "someone else"
	err := svc.Save(ctx, stale)
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeArchiveImmutable, appErr.Code)
}

func TestServiceClearArchive_LeavesWorkingCycle(t *testing.T) {
	svc, repo, c := newTestService(t)
	ctx := context.Background()

	arch := c.Archive(time.Now())
	repo.cycles[arch.ID] = arch

	n, err := svc.ClearArchive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok := repo.cycles[c.ID]
	assert.True(t, ok, "the working cycle is never deleted")
}
