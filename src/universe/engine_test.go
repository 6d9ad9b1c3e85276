package universe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//recorder is a viewer keeping the snapshots it was given
type recorder struct {
	mu    sync.Mutex
	u     Universe
	snaps []Snapshot
	hook  func(s Snapshot) error
}

func (r *recorder) Register(u Universe) { r.u = u }
func (r *recorder) Start()              {}

func (r *recorder) Refresh(_ context.Context, s Snapshot) error {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	if r.hook != nil {
		return r.hook(s)
	}
	return nil
}

func (r *recorder) epochs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]int, len(r.snaps))
	for i, s := range r.snaps {
		res[i] = s.Epoch
	}
	return res
}

func newTestEngine(maxEpoch int) *Engine {
	o := DefaultOptions
	o.MaxEpoch = maxEpoch
	o.PollInterval = time.Millisecond
	return NewEngine(Conway, Moore, &o, nil)
}

func step(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, e.Step(context.Background()))
		requireInvariants(t, e)
	}
}

//requireInvariants checks the live counter and the tracked border
func requireInvariants(t *testing.T, e *Engine) {
	t.Helper()
	e.area.Lock()
	defer e.area.Unlock()
	live := 0
	for k, status := range e.area.cells {
		if status != Live {
			continue
		}
		live++
		for _, n := range e.neighborKeys(k.Coord()) {
			require.True(t, e.area.Tracked(n), "neighbor %s of live cell %s is not tracked", n, k)
		}
	}
	require.Equal(t, live, e.area.LiveCells(), "live counter")
}

func TestBlinkerScenario(t *testing.T) {
	e := newTestEngine(100)
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})
	requireInvariants(t, e)

	step(t, e, 1)
	assert.Equal(t, []Coord{{1, -1}, {1, 0}, {1, 1}}, e.Snapshot().Live())
	assert.Equal(t, 1, e.Status().Epoch)

	step(t, e, 1)
	assert.Equal(t, []Coord{{0, 0}, {1, 0}, {2, 0}}, e.Snapshot().Live())
	assert.Equal(t, 2, e.Status().Epoch)
	assert.Equal(t, 3, e.Status().LiveCells)
}

func TestLoneCellDies(t *testing.T) {
	e := newTestEngine(100)
	require.True(t, e.AddCell(Coord{7, 7}))
	step(t, e, 1)
	assert.Empty(t, e.Snapshot().Live())
	assert.Equal(t, 0, e.Status().LiveCells)
}

func TestBlockIsStable(t *testing.T) {
	e := newTestEngine(100)
	block := []Coord{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	e.Settle(block)
	for i := 0; i < 60; i++ {
		step(t, e, 1)
		require.Equal(t, block, e.Snapshot().Live(), "epoch %d", i+1)
	}
}

func TestGliderKeepsInvariants(t *testing.T) {
	o := DefaultOptions
	o.CleanupCooldown = 3
	e := NewEngine(Conway, Moore, &o, nil)
	e.Settle([]Coord{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}})
	step(t, e, 20)
	//a glider moves one cell down right every 4 epochs
	assert.Equal(t, []Coord{{6, 5}, {7, 6}, {5, 7}, {6, 7}, {7, 7}}, e.Snapshot().Live())
}

func TestRunToMaxEpoch(t *testing.T) {
	stateCh := make(chan Status, 4)
	o := DefaultOptions
	o.MaxEpoch = 3
	e := NewEngine(Conway, Moore, &o, stateCh)
	v := &recorder{}
	e.RegisterViewer(v)
	assert.Equal(t, e, v.u)
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})

	require.NoError(t, e.Run(context.Background()))

	st := e.Status()
	assert.Equal(t, 3, st.Epoch)
	assert.Equal(t, RunningStateFinished, st.RunningMode)
	assert.NotEmpty(t, st.RunID)
	assert.False(t, e.Running())
	//one draw per epoch, then the final one
	assert.Equal(t, []int{0, 1, 2, 3}, v.epochs())
	assert.Equal(t, []Coord{{1, -1}, {1, 0}, {1, 1}}, v.snaps[3].Live())

	assert.Equal(t, RunningStateRun, (<-stateCh).RunningMode)
	assert.Equal(t, RunningStateFinished, (<-stateCh).RunningMode)

	//a finished engine only cleans up and draws again
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, e.Status().Epoch)
	assert.Equal(t, []int{0, 1, 2, 3, 3}, v.epochs())
}

func TestStopAtEpochBoundary(t *testing.T) {
	e := newTestEngine(100)
	v := &recorder{}
	v.hook = func(s Snapshot) error {
		if s.Epoch == 3 {
			e.Stop()
		}
		return nil
	}
	e.RegisterViewer(v)
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})

	require.NoError(t, e.Run(context.Background()))
	//the epoch being drawn completes, no final draw after a stop
	assert.Equal(t, 4, e.Status().Epoch)
	assert.Equal(t, RunningStateManual, e.Status().RunningMode)
	assert.Equal(t, []int{0, 1, 2, 3}, v.epochs())
	requireInvariants(t, e)

	//the stopped run can be resumed
	e.Stop()
	v.hook = nil
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 100, e.Status().Epoch)
}

func TestCanceledContextStopsTheRun(t *testing.T) {
	e := newTestEngine(100)
	ctx, cancel := context.WithCancel(context.Background())
	v := &recorder{hook: func(s Snapshot) error {
		if s.Epoch == 1 {
			cancel()
		}
		return nil
	}}
	e.RegisterViewer(v)
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})
	require.NoError(t, e.Run(ctx))
	assert.Equal(t, 2, e.Status().Epoch)
}

func TestSecondRunStopsTheFirst(t *testing.T) {
	e := newTestEngine(5)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	v := &recorder{hook: func(s Snapshot) error {
		once.Do(func() {
			close(entered)
			<-release
		})
		return nil
	}}
	e.RegisterViewer(v)
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})

	first := make(chan error, 1)
	go func() { first <- e.Run(context.Background()) }()
	<-entered
	assert.True(t, e.Running())

	second := make(chan error, 1)
	go func() { second <- e.Run(context.Background()) }()
	require.Eventually(t, e.stopRequested, time.Second, time.Millisecond)
	close(release)

	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.Equal(t, 5, e.Status().Epoch)
	assert.Equal(t, RunningStateFinished, e.Status().RunningMode)
	//the first run completed epoch 0 only, it was not drawn again after the stop
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, v.epochs())
}

func TestViewerErrorAbortsTheRun(t *testing.T) {
	boom := errors.New("boom")
	e := newTestEngine(10)
	e.RegisterViewer(&recorder{hook: func(s Snapshot) error {
		if s.Epoch == 2 {
			return boom
		}
		return nil
	}})
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})
	err := e.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, e.Status().Epoch)
	assert.False(t, e.Running())
}

func TestCleanup(t *testing.T) {
	e := newTestEngine(100)
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})
	step(t, e, 1)
	//the horizontal ends died, the far side of their border is untracked now
	before := e.Snapshot()
	freed := e.Cleanup()
	assert.Greater(t, freed, 0)
	after := e.Snapshot()
	assert.Equal(t, before.TrackedCells-freed, after.TrackedCells)
	assert.Equal(t, before.Live(), after.Live())
	assert.Equal(t, freed, e.Status().Freed)
	requireInvariants(t, e)

	//idempotent
	assert.Equal(t, 0, e.Cleanup())
	assert.Equal(t, after.Cells, e.Snapshot().Cells)

	//every dead cell left has a live neighbor
	for k, status := range after.Cells {
		if status == Dead {
			assert.Greater(t, CountLive(after.Cells, e.neighborKeys(k.Coord())), 0, "cell %s", k)
		}
	}
}

func TestCleanupDoesNotChangeTheOutcome(t *testing.T) {
	seed := []Coord{
		{2, -3}, {1, -2}, {3, -3}, {-3, 3}, {-1, 0},
		{-1, -1}, {0, -2}, {0, 0}, {2, 0}, {0, 2},
	}
	often := DefaultOptions
	often.CleanupCooldown = 1
	never := DefaultOptions
	never.CleanupCooldown = 1 << 30

	a := NewEngine(Conway, Moore, &often, nil)
	b := NewEngine(Conway, Moore, &never, nil)
	a.Settle(seed)
	b.Settle(seed)
	for i := 0; i < 40; i++ {
		step(t, a, 1)
		step(t, b, 1)
		require.Equal(t, b.Snapshot().Live(), a.Snapshot().Live(), "epoch %d", i+1)
	}
	assert.LessOrEqual(t, a.Snapshot().TrackedCells, b.Snapshot().TrackedCells)
}

func TestDeterminism(t *testing.T) {
	seed := []Coord{{0, 0}, {1, 0}, {2, 0}, {1, 1}, {5, 5}, {5, 6}, {6, 5}, {-4, 2}, {-3, 2}, {-3, 3}}
	run := func() Snapshot {
		o := DefaultOptions
		o.MaxEpoch = 30
		o.Bound = 12
		e := NewEngine(Custom, Hex, &o, nil)
		e.Settle(seed)
		require.NoError(t, e.Run(context.Background()))
		requireInvariants(t, e)
		return e.Snapshot()
	}
	first, second := run(), run()
	assert.Equal(t, first.Cells, second.Cells)
	assert.Equal(t, first.LiveCells, second.LiveCells)
	assert.Equal(t, 30, first.Epoch)
}

func TestBoundEnforcement(t *testing.T) {
	o := DefaultOptions
	o.Bound = 3
	e := NewEngine(Conway, Moore, &o, nil)
	assert.False(t, e.AddCell(Coord{4, 0}))
	assert.False(t, e.AddCell(Coord{0, -4}))
	assert.Equal(t, 0, e.Snapshot().TrackedCells)
	assert.Equal(t, 0, e.Status().LiveCells)

	//a blinker touching the bound loses the cells it can't grow
	e.Settle([]Coord{{3, -1}, {3, 0}, {3, 1}})
	step(t, e, 1)
	assert.Equal(t, []Coord{{2, 0}, {3, 0}}, e.Snapshot().Live())
	for _, c := range e.Snapshot().Live() {
		assert.True(t, e.area.InBound(c))
	}
}

func TestTemplates(t *testing.T) {
	e := newTestEngine(10)
	e.AddTemplate(Template{
		Name: "holes",
		Live: []Coord{{0, 0}, {1, 0}, {2, 0}},
		Dead: []Coord{{1, 0}},
	})
	require.NoError(t, e.SettleTemplate("holes"))
	assert.Equal(t, []Coord{{0, 0}, {2, 0}}, e.Snapshot().Live())
	assert.Equal(t, 2, e.Status().LiveCells)

	err := e.SettleTemplate("missing")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestInverseCellAndClear(t *testing.T) {
	e := newTestEngine(10)
	e.InverseCell(Coord{1, 1})
	assert.Equal(t, []Coord{{1, 1}}, e.Snapshot().Live())
	e.InverseCell(Coord{1, 1})
	assert.Empty(t, e.Snapshot().Live())
	requireInvariants(t, e)

	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})
	step(t, e, 2)
	e.Clear()
	st := e.Status()
	assert.Equal(t, 0, st.Epoch)
	assert.Equal(t, 0, st.LiveCells)
	assert.Equal(t, 0, st.TrackedCells)
	assert.Equal(t, RunningStateManual, st.RunningMode)
}

func TestStepShowsTheResult(t *testing.T) {
	o := DefaultOptions
	o.MaxEpoch = 1
	e := NewEngine(Conway, Moore, &o, nil)
	v := &recorder{}
	e.RegisterViewer(v)
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})
	require.NoError(t, e.Step(context.Background()))
	assert.Equal(t, []int{1}, v.epochs())
	assert.Equal(t, RunningStateFinished, e.Status().RunningMode)
}

func TestStepStopsAtMaxEpoch(t *testing.T) {
	o := DefaultOptions
	o.MaxEpoch = 2
	e := NewEngine(Conway, Moore, &o, nil)
	v := &recorder{}
	e.RegisterViewer(v)
	e.Settle([]Coord{{0, 0}, {1, 0}, {2, 0}})
	for i := 0; i < 4; i++ {
		require.NoError(t, e.Step(context.Background()))
	}
	assert.Equal(t, 2, e.Status().Epoch)
	assert.Equal(t, RunningStateFinished, e.Status().RunningMode)
	assert.Equal(t, []int{1, 2}, v.epochs())
	assert.Equal(t, []Coord{{0, 0}, {1, 0}, {2, 0}}, e.Snapshot().Live())
}

func TestStartRunsInBackground(t *testing.T) {
	stateCh := make(chan Status, 4)
	o := DefaultOptions
	o.MaxEpoch = 10
	e := NewEngine(Conway, Moore, &o, stateCh)
	e.Settle([]Coord{{0, 0}, {1, 0}, {0, 1}, {1, 1}})
	e.Start(context.Background())
	assert.Equal(t, RunningStateRun, (<-stateCh).RunningMode)
	final := <-stateCh
	assert.Equal(t, RunningStateFinished, final.RunningMode)
	assert.Equal(t, 10, final.Epoch)
	assert.Equal(t, 4, final.LiveCells)
}
