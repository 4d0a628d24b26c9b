package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adamhollisterbot/water-tracker/internal/model"
	"github.com/adamhollisterbot/water-tracker/internal/storage"
)

var testNow = time.Date(2026, 8, 23, 10, 0, 0, 0, time.Local)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestTracker(t *testing.T, store storage.Store) *Tracker {
	t.Helper()
	tr := New(store, nil, model.DefaultGoal(), WithClock(fixedClock(testNow)))
	tr.Load(context.Background())
	tr.Flush()
	return tr
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("medium unreachable")
}
func (failingStore) Set(context.Context, string, string) error {
	return errors.New("medium unreachable")
}
func (failingStore) SetMany(context.Context, []storage.Pair) error {
	return errors.New("medium unreachable")
}
func (failingStore) Close() error { return nil }

func TestCommandsRejectedBeforeLoad(t *testing.T) {
	tr := New(storage.NewMemoryStore(), nil, model.DefaultGoal(), WithClock(fixedClock(testNow)))
	if _, err := tr.AddGlass(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got: %v", err)
	}
	if _, err := tr.RemoveGlass(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got: %v", err)
	}
}

func TestFreshDayEightGlassesReachGoal(t *testing.T) {
	// Scenario A: 8 glasses of 250ml hit the 2000ml goal, celebrating
	// exactly once, on the 8th call.
	tr := newTestTracker(t, storage.NewMemoryStore())

	celebrations := 0
	var last Result
	for i := 0; i < 8; i++ {
		res, err := tr.AddGlass()
		if err != nil {
			t.Fatalf("add glass %d: %v", i+1, err)
		}
		if res.Celebrated {
			celebrations++
			if i != 7 {
				t.Fatalf("celebrated on glass %d, want 8th", i+1)
			}
		}
		last = res
	}
	if last.TotalML != 2000 || !last.GoalReached {
		t.Fatalf("unexpected state after 8 glasses: %+v", last.Snapshot)
	}
	if celebrations != 1 {
		t.Fatalf("expected exactly one celebration, got %d", celebrations)
	}
	if last.Glasses != 8 {
		t.Fatalf("expected 8 glasses, got %d", last.Glasses)
	}
	if last.ProgressFraction != 1 {
		t.Fatalf("expected full progress, got %v", last.ProgressFraction)
	}
}

func TestIntakeClampsAtMax(t *testing.T) {
	// Scenario B: past the goal, intake clamps at 3000ml and stays there.
	tr := newTestTracker(t, storage.NewMemoryStore())
	for i := 0; i < 8; i++ {
		if _, err := tr.AddGlass(); err != nil {
			t.Fatalf("add glass: %v", err)
		}
	}

	res, err := tr.AddGlass()
	if err != nil {
		t.Fatalf("add glass 9: %v", err)
	}
	if res.TotalML != 2250 || res.Celebrated {
		t.Fatalf("unexpected 9th glass result: %+v", res)
	}

	for i := 0; i < 3; i++ {
		if res, err = tr.AddGlass(); err != nil {
			t.Fatalf("add glass: %v", err)
		}
	}
	if res.TotalML != 3000 {
		t.Fatalf("expected clamp at 3000, got %d", res.TotalML)
	}

	res, err = tr.AddGlass()
	if err != nil {
		t.Fatalf("add glass past max: %v", err)
	}
	if res.TotalML != 3000 || res.Celebrated {
		t.Fatalf("expected saturated no-op at max: %+v", res)
	}
}

func TestRemoveAtZeroStaysZero(t *testing.T) {
	// Scenario C.
	tr := newTestTracker(t, storage.NewMemoryStore())
	res, err := tr.RemoveGlass()
	if err != nil {
		t.Fatalf("remove at zero: %v", err)
	}
	if res.TotalML != 0 {
		t.Fatalf("expected zero, got %d", res.TotalML)
	}
}

func TestRolloverResetsAndRewritesRecord(t *testing.T) {
	// Scenario D: stored day is yesterday with 1500ml; load resets to zero
	// and rewrites the whole record for today.
	store := storage.NewMemoryStore()
	ctx := context.Background()
	seed := []storage.Pair{
		{Key: storage.KeyLastResetDate, Value: "2026-08-22"},
		{Key: storage.KeyIntakeML, Value: "1500"},
		{Key: storage.KeyGoalReached, Value: "0"},
	}
	if err := store.SetMany(ctx, seed); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	tr := newTestTracker(t, store)
	snap := tr.Snapshot()
	if snap.TotalML != 0 || snap.GoalReached {
		t.Fatalf("expected reset state, got %+v", snap)
	}
	if snap.Day != "2026-08-23" {
		t.Fatalf("expected today's day key, got %q", snap.Day)
	}

	day, err := store.Get(ctx, storage.KeyLastResetDate)
	if err != nil || day != "2026-08-23" {
		t.Fatalf("stored day not rewritten: %q, %v", day, err)
	}
	total, err := store.Get(ctx, storage.KeyIntakeML)
	if err != nil || total != "0" {
		t.Fatalf("stored intake not rewritten: %q, %v", total, err)
	}
}

func TestRestoreSameDayRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	tr := newTestTracker(t, store)
	for i := 0; i < 6; i++ {
		if _, err := tr.AddGlass(); err != nil {
			t.Fatalf("add glass: %v", err)
		}
	}
	tr.Flush()

	restarted := New(store, nil, model.DefaultGoal(), WithClock(fixedClock(testNow)))
	snap := restarted.Load(ctx)
	if snap.TotalML != 1500 {
		t.Fatalf("round trip lost intake: got %d, want 1500", snap.TotalML)
	}
	if snap.GoalReached {
		t.Fatalf("latch set without crossing: %+v", snap)
	}
	if snap.Glasses != 6 {
		t.Fatalf("expected 6 glasses, got %d", snap.Glasses)
	}
}

func TestLatchSurvivesRestartWithoutRefire(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	tr := newTestTracker(t, store)
	for i := 0; i < 8; i++ {
		if _, err := tr.AddGlass(); err != nil {
			t.Fatalf("add glass: %v", err)
		}
	}
	tr.Flush()

	restarted := New(store, nil, model.DefaultGoal(), WithClock(fixedClock(testNow)))
	snap := restarted.Load(ctx)
	if !snap.GoalReached {
		t.Fatalf("persisted latch lost across restart: %+v", snap)
	}

	// Further adds on the restarted session must not celebrate again.
	res, err := restarted.AddGlass()
	if err != nil {
		t.Fatalf("add glass after restart: %v", err)
	}
	if res.Celebrated {
		t.Fatal("celebration re-fired after restart")
	}
}

func TestLatchNeverRefiresAfterDip(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore())
	for i := 0; i < 8; i++ {
		if _, err := tr.AddGlass(); err != nil {
			t.Fatalf("add glass: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := tr.RemoveGlass(); err != nil {
			t.Fatalf("remove glass: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		res, err := tr.AddGlass()
		if err != nil {
			t.Fatalf("add glass: %v", err)
		}
		if res.Celebrated {
			t.Fatal("celebration re-fired within the same day")
		}
	}
}

func TestAbsentLatchKeyRecomputedAtLoad(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	seed := []storage.Pair{
		{Key: storage.KeyLastResetDate, Value: "2026-08-23"},
		{Key: storage.KeyIntakeML, Value: "2250"},
	}
	if err := store.SetMany(ctx, seed); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	tr := newTestTracker(t, store)
	snap := tr.Snapshot()
	if !snap.GoalReached {
		t.Fatalf("expected recomputed latch for legacy record: %+v", snap)
	}
}

func TestNonNumericIntakeTreatedAsZero(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	seed := []storage.Pair{
		{Key: storage.KeyLastResetDate, Value: "2026-08-23"},
		{Key: storage.KeyIntakeML, Value: "not-a-number"},
		{Key: storage.KeyGoalReached, Value: "0"},
	}
	if err := store.SetMany(ctx, seed); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	tr := newTestTracker(t, store)
	if snap := tr.Snapshot(); snap.TotalML != 0 {
		t.Fatalf("expected zero for unparsable intake, got %d", snap.TotalML)
	}
}

func TestNegativeIntakeTreatedAsZero(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	seed := []storage.Pair{
		{Key: storage.KeyLastResetDate, Value: "2026-08-23"},
		{Key: storage.KeyIntakeML, Value: "-300"},
		{Key: storage.KeyGoalReached, Value: "0"},
	}
	if err := store.SetMany(ctx, seed); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	tr := newTestTracker(t, store)
	if snap := tr.Snapshot(); snap.TotalML != 0 {
		t.Fatalf("expected zero for negative intake, got %d", snap.TotalML)
	}
}

func TestStorageFailureDegradesToMemoryOnly(t *testing.T) {
	tr := newTestTracker(t, failingStore{})
	snap := tr.Snapshot()
	if snap.TotalML != 0 || snap.Day != "2026-08-23" {
		t.Fatalf("expected defaults under read failure: %+v", snap)
	}

	// Commands keep working; writes fail silently and in-memory state
	// stays authoritative.
	res, err := tr.AddGlass()
	if err != nil {
		t.Fatalf("add glass under write failure: %v", err)
	}
	if res.TotalML != 250 {
		t.Fatalf("unexpected total: %d", res.TotalML)
	}
	tr.Flush()
	if snap := tr.Snapshot(); snap.TotalML != 250 {
		t.Fatalf("in-memory state lost after failed save: %+v", snap)
	}
}

func TestAddAmountRejectsNonPositive(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore())
	if _, err := tr.AddAmount(0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got: %v", err)
	}
	if _, err := tr.AddAmount(-100); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got: %v", err)
	}
}

func TestAddAmountCustomVolume(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore())
	res, err := tr.AddAmount(600)
	if err != nil {
		t.Fatalf("add amount: %v", err)
	}
	if res.TotalML != 600 || res.Glasses != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// slowSaveStore delays intake saves until release is closed. Reset records
// (any batch carrying the day key) pass straight through.
type slowSaveStore struct {
	storage.Store
	release chan struct{}
}

func (s *slowSaveStore) SetMany(ctx context.Context, pairs []storage.Pair) error {
	for _, p := range pairs {
		if p.Key == storage.KeyLastResetDate {
			return s.Store.SetMany(ctx, pairs)
		}
	}
	<-s.release
	return s.Store.SetMany(ctx, pairs)
}

func TestRolloverWaitsForInFlightSaves(t *testing.T) {
	// A save spawned just before midnight must not land after the reset
	// record, or a restart on the new day would restore yesterday's count.
	mem := storage.NewMemoryStore()
	store := &slowSaveStore{Store: mem, release: make(chan struct{})}
	tr := New(store, nil, model.DefaultGoal(), WithClock(fixedClock(testNow)))
	tr.Load(context.Background())

	if _, err := tr.AddGlass(); err != nil {
		t.Fatalf("add glass: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(store.release)
	}()

	midnight := time.Date(2026, 8, 24, 0, 0, 0, 0, time.Local)
	if _, reset := tr.Rollover(midnight); !reset {
		t.Fatal("expected rollover at midnight")
	}

	ctx := context.Background()
	day, err := mem.Get(ctx, storage.KeyLastResetDate)
	if err != nil || day != "2026-08-24" {
		t.Fatalf("stored day not rewritten: %q, %v", day, err)
	}
	total, err := mem.Get(ctx, storage.KeyIntakeML)
	if err != nil || total != "0" {
		t.Fatalf("stale intake outlived the rollover: %q, %v", total, err)
	}
	latch, err := mem.Get(ctx, storage.KeyGoalReached)
	if err != nil || latch != "0" {
		t.Fatalf("stale latch outlived the rollover: %q, %v", latch, err)
	}
}

func TestRunningRolloverResetsOnceAcrossMidnight(t *testing.T) {
	store := storage.NewMemoryStore()
	tr := newTestTracker(t, store)
	for i := 0; i < 4; i++ {
		if _, err := tr.AddGlass(); err != nil {
			t.Fatalf("add glass: %v", err)
		}
	}

	midnight := time.Date(2026, 8, 24, 0, 0, 0, 0, time.Local)
	snap, reset := tr.Rollover(midnight)
	if !reset {
		t.Fatal("expected rollover at midnight")
	}
	if snap.TotalML != 0 || snap.Day != "2026-08-24" {
		t.Fatalf("unexpected post-rollover state: %+v", snap)
	}

	// Same day again: no second reset.
	if _, reset = tr.Rollover(midnight.Add(time.Hour)); reset {
		t.Fatal("rollover fired twice for the same day")
	}
}
