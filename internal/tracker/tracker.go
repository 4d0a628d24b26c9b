package tracker

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adamhollisterbot/water-tracker/internal/model"
	"github.com/adamhollisterbot/water-tracker/internal/storage"
)

var (
	// ErrNotReady is returned for commands issued before Load has finished,
	// so an early save can never overwrite durable state with a default.
	ErrNotReady = errors.New("tracker: not loaded yet")

	ErrInvalidAmount = model.ErrInvalidAmount
)

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	TotalML          int
	Day              model.DayKey
	GoalReached      bool
	Glasses          int
	ProgressFraction float64
}

// Result is the outcome of one command. Celebrated is a one-shot signal:
// true only on the command that crossed the goal for the first time today.
type Result struct {
	Snapshot
	Celebrated bool
}

// Tracker owns the single IntakeState of the session. All mutations go
// through its command methods; collaborators only ever see snapshots.
// Persistence is fire-and-forget: saves never block a command, and every
// save carries the full current totals so out-of-order writes converge.
type Tracker struct {
	store storage.Store
	log   *zap.Logger
	goal  model.Goal
	now   func() time.Time

	mu    sync.Mutex
	state model.IntakeState
	ready bool

	saves sync.WaitGroup
}

type Option func(*Tracker)

// WithClock overrides the wall clock. Tests use this to place "now" on a
// chosen calendar day.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func New(store storage.Store, log *zap.Logger, goal model.Goal, opts ...Option) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{
		store: store,
		log:   log,
		goal:  goal,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Goal() model.Goal { return t.goal }

// Load restores durable state or rolls the day over, then accepts commands.
// It never fails: storage errors degrade to defaults and are logged.
func (t *Tracker) Load(ctx context.Context) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	today := model.DayKeyFor(now)

	storedDay, readErr := t.readDay(ctx)
	if readErr != nil || model.IsNewDay(storedDay, now) {
		t.state = model.NewDayState(today)
		t.writeResetRecord(ctx, today)
	} else {
		t.state = t.restoreState(ctx, storedDay)
	}

	t.ready = true
	t.log.Info("state loaded",
		zap.String("day", string(t.state.Day)),
		zap.Int("total_ml", t.state.TotalML),
		zap.Bool("goal_reached", t.state.GoalReached),
	)
	return t.snapshotLocked()
}

func (t *Tracker) readDay(ctx context.Context) (model.DayKey, error) {
	raw, err := t.store.Get(ctx, storage.KeyLastResetDate)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		t.log.Error("read last reset date failed, treating as new day", zap.Error(err))
		return "", err
	}
	return model.DayKey(raw), nil
}

func (t *Tracker) restoreState(ctx context.Context, day model.DayKey) model.IntakeState {
	state := model.IntakeState{Day: day, TotalML: t.restoreTotal(ctx)}
	state.GoalReached = t.restoreLatch(ctx, state.TotalML)
	return state
}

func (t *Tracker) restoreTotal(ctx context.Context) int {
	raw, err := t.store.Get(ctx, storage.KeyIntakeML)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.log.Error("read intake failed, starting from zero", zap.Error(err))
		}
		return 0
	}
	total, err := strconv.Atoi(raw)
	if err != nil || total < 0 {
		t.log.Warn("stored intake not a non-negative integer, starting from zero", zap.String("raw", raw))
		return 0
	}
	if total > t.goal.MaxML {
		return t.goal.MaxML
	}
	return total
}

// restoreLatch trusts the persisted latch bit when present. Recomputing from
// the raw total is permitted only when the key has never been written; it
// cannot re-fire a celebration because celebrations are emitted on command
// edges, never at load.
func (t *Tracker) restoreLatch(ctx context.Context, totalML int) bool {
	raw, err := t.store.Get(ctx, storage.KeyGoalReached)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.log.Error("read goal latch failed, recomputing from total", zap.Error(err))
		}
		return totalML >= t.goal.GoalML
	}
	return raw == "1"
}

// AddGlass records one glass of intake.
func (t *Tracker) AddGlass() (Result, error) {
	return t.AddAmount(t.goal.GlassML)
}

// AddAmount records an arbitrary positive intake amount.
func (t *Tracker) AddAmount(amountML int) (Result, error) {
	if amountML <= 0 {
		return Result{}, ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return Result{}, ErrNotReady
	}
	next, celebrated := model.ApplyCelebration(t.state, t.state.Add(amountML, t.goal), t.goal)
	t.state = next
	if celebrated {
		t.log.Info("daily goal reached", zap.Int("total_ml", next.TotalML))
	}
	t.persistIntakeLocked()
	return Result{Snapshot: t.snapshotLocked(), Celebrated: celebrated}, nil
}

// RemoveGlass undoes one glass. The celebration latch is unaffected.
func (t *Tracker) RemoveGlass() (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return Result{}, ErrNotReady
	}
	next, _ := model.ApplyCelebration(t.state, t.state.Remove(t.goal.GlassML), t.goal)
	t.state = next
	t.persistIntakeLocked()
	return Result{Snapshot: t.snapshotLocked()}, nil
}

// Rollover applies a day change observed while the process is running. It
// reports whether a reset actually happened.
func (t *Tracker) Rollover(now time.Time) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready || !model.IsNewDay(t.state.Day, now) {
		return t.snapshotLocked(), false
	}
	today := model.DayKeyFor(now)
	t.state = model.NewDayState(today)
	// Let saves from the previous day land first; a stale total written after
	// the reset record would be restored as today's count. Save goroutines
	// never take the mutex, so waiting here cannot deadlock.
	t.saves.Wait()
	t.writeResetRecord(context.Background(), today)
	t.log.Info("day rolled over", zap.String("day", string(today)))
	return t.snapshotLocked(), true
}

// Snapshot returns the current derived view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

// Flush waits for in-flight saves. Called on shutdown and by tests.
func (t *Tracker) Flush() {
	t.saves.Wait()
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		TotalML:          t.state.TotalML,
		Day:              t.state.Day,
		GoalReached:      t.state.GoalReached,
		Glasses:          t.state.Glasses(t.goal),
		ProgressFraction: t.state.ProgressFraction(t.goal),
	}
}

// writeResetRecord durably writes the full record as one batch so a reset is
// never observed half-applied. Write failure is logged and the in-memory
// state stays authoritative.
func (t *Tracker) writeResetRecord(ctx context.Context, day model.DayKey) {
	err := t.store.SetMany(ctx, []storage.Pair{
		{Key: storage.KeyLastResetDate, Value: string(day)},
		{Key: storage.KeyIntakeML, Value: "0"},
		{Key: storage.KeyGoalReached, Value: "0"},
	})
	if err != nil {
		t.log.Error("write reset record failed, continuing in memory", zap.Error(err))
	}
}

// persistIntakeLocked saves the current totals without blocking the caller.
func (t *Tracker) persistIntakeLocked() {
	pairs := []storage.Pair{
		{Key: storage.KeyIntakeML, Value: strconv.Itoa(t.state.TotalML)},
		{Key: storage.KeyGoalReached, Value: latchValue(t.state.GoalReached)},
	}
	t.saves.Add(1)
	go func() {
		defer t.saves.Done()
		if err := t.store.SetMany(context.Background(), pairs); err != nil {
			t.log.Error("save intake failed, will reconcile on next write", zap.Error(err))
		}
	}()
}

func latchValue(reached bool) string {
	if reached {
		return "1"
	}
	return "0"
}
