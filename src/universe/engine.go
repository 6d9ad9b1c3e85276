package universe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

//ErrUnknownTemplate is returned by SettleTemplate for unregistered templates
var ErrUnknownTemplate = errors.New("unknown template")

type Cell bool

const (
	Dead Cell = false
	Live Cell = true
)

//Options represents the Engine's configurable options
type Options struct {
	MaxEpoch        int                    `yaml:"maxEpoch"`
	CleanupCooldown int                    `yaml:"cleanupCooldown"`
	Bound           int                    `yaml:"bound"`  //0 is unbounded
	Origin          Coord                  `yaml:"origin"` //center of the bound
	PollInterval    time.Duration          `yaml:"pollInterval"`
	Logger          *slog.Logger           `yaml:"-"`
	Advanced        map[string]interface{} `yaml:"-"` //descriptive details shown by the viewers
}

//Status represents the status of the Engine at concrete moment
type Status struct {
	RunID         string
	Epoch         int
	RunningMode   RunningState
	LiveCells     int
	TrackedCells  int
	Freed         int //cells freed by the last cleanup
	IterationTime time.Duration
}

//Viewer is the drawing collaborator
//Refresh is awaited by the engine before the epoch mutates the cells
type Viewer interface {
	Register(u Universe)
	Refresh(ctx context.Context, s Snapshot) error
	Start()
}

//Template represent the seeding template which can used to settle the engine with predefined data
type Template struct {
	Name  string  `yaml:"name"`
	Descr string  `yaml:"descr"`
	Live  []Coord `yaml:"live"`
	Dead  []Coord `yaml:"dead,omitempty"` //switched off after the live cells are settled
}

//The engine running status at the concrete moment
type RunningState int

//default options
const (
	DefMaxEpoch        = 1000
	DefCleanupCooldown = 50
	DefPollInterval    = time.Millisecond * 250
)

const (
	RunningStateManual   RunningState = 0x0 //idle
	RunningStateStep     RunningState = 0x1 //evaluating an epoch
	RunningStateRun      RunningState = 0x2 //between two epochs of a run
	RunningStateFinished RunningState = 0x3 //the run reached MaxEpoch
)

func (s RunningState) String() string {
	switch s {
	case RunningStateStep:
		return "step"
	case RunningStateRun:
		return "running"
	case RunningStateFinished:
		return "finished"
	}
	return "waiting"
}

var DefaultOptions = Options{
	MaxEpoch:        DefMaxEpoch,
	CleanupCooldown: DefCleanupCooldown,
	PollInterval:    DefPollInterval,
}

//Engine is the sparse simulation engine
//implements Universe interface
type Engine struct {
	options      Options
	rule         Rule
	neighborhood Neighborhood
	logger       *slog.Logger
	state        struct {
		Status
		stop bool
		sync.Mutex
	}
	area struct {
		*Store
		sync.Mutex
	}
	stateCh   chan Status
	views     []Viewer
	templates map[string]Template
}

//NewEngine creates the Engine instance
//stateCh is optional, when set every running state switch is written to it
func NewEngine(rule Rule, nb Neighborhood, o *Options, stateCh chan Status) *Engine {
	if o == nil {
		o = &DefaultOptions
	}
	e := Engine{
		options:      *o,
		rule:         rule,
		neighborhood: nb,
		stateCh:      stateCh,
		templates:    map[string]Template{},
	}
	if e.options.MaxEpoch <= 0 {
		e.options.MaxEpoch = DefMaxEpoch
	}
	if e.options.CleanupCooldown <= 0 {
		e.options.CleanupCooldown = DefCleanupCooldown
	}
	if e.options.PollInterval <= 0 {
		e.options.PollInterval = DefPollInterval
	}
	if e.options.Bound < 0 {
		e.options.Bound = 0
	}
	e.logger = e.options.Logger
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.area.Store = NewStore(e.options.Origin, e.options.Bound)
	return &e
}

//AddTemplate adds the seeding template to the internal storage
//the engine can be populated with this template by call SettleTemplate
func (e *Engine) AddTemplate(tmpl Template) {
	e.templates[tmpl.Name] = tmpl
}

//AddCell makes the cell live, returns false if the cell is out of bound
func (e *Engine) AddCell(c Coord) bool {
	e.area.Lock()
	ok := e.area.Activate(c.Key(), e.neighborKeys(c))
	e.area.Unlock()
	e.refreshCounters()
	return ok
}

//Settle settles the engine with live cells
func (e *Engine) Settle(coords []Coord) {
	e.area.Lock()
	for _, c := range coords {
		e.area.Activate(c.Key(), e.neighborKeys(c))
	}
	e.area.Unlock()
	e.refreshCounters()
}

//SettleTemplate populates the engine with the seeding template
func (e *Engine) SettleTemplate(name string) error {
	tmpl, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	e.area.Lock()
	for _, c := range tmpl.Live {
		e.area.Activate(c.Key(), e.neighborKeys(c))
	}
	for _, c := range tmpl.Dead {
		e.area.SetDead(c.Key())
	}
	e.area.Unlock()
	e.refreshCounters()
	return nil
}

//InverseCell inverses the cell state at c
func (e *Engine) InverseCell(c Coord) {
	k := c.Key()
	e.area.Lock()
	if e.area.Get(k) == Live {
		e.area.SetDead(k)
	} else {
		e.area.Activate(k, e.neighborKeys(c))
	}
	e.area.Unlock()
	e.refreshCounters()
}

//RegisterViewer registers the viewer - the engine awaits the viewer once per epoch
func (e *Engine) RegisterViewer(v Viewer) {
	e.views = append(e.views, v)
	v.Register(e)
}

//StateCh returns the channel with the engine's status updates
func (e *Engine) StateCh() chan Status {
	return e.stateCh
}

//Status returns current engine status represented by Status struct
func (e *Engine) Status() Status {
	e.state.Lock()
	defer e.state.Unlock()
	return e.state.Status
}

//Options returns current engine configuration represented by Options struct
func (e *Engine) Options() Options {
	return e.options
}

//Running reports whether a run or a step is in progress
func (e *Engine) Running() bool {
	e.state.Lock()
	defer e.state.Unlock()
	return e.busy()
}

//Snapshot returns a read-only copy of the cells
func (e *Engine) Snapshot() Snapshot {
	e.area.Lock()
	defer e.area.Unlock()
	return e.snapshot()
}

//Run runs epochs until MaxEpoch is reached or the run is stopped, blocks until then
//if a run is already in progress it is asked to stop, and Run polls until it did
func (e *Engine) Run(ctx context.Context) error {
	if err := e.acquire(ctx, RunningStateRun); err != nil {
		return err
	}
	runID := uuid.Must(uuid.NewV7()).String()
	log := e.logger.With("run", runID)
	e.state.Lock()
	e.state.RunID = runID
	e.state.Unlock()
	e.publish()
	log.Info("run started", "epoch", e.Status().Epoch, "maxEpoch", e.options.MaxEpoch)

	stopped := false
	for {
		if e.stopRequested() || ctx.Err() != nil {
			stopped = true
			break
		}
		if e.Status().Epoch >= e.options.MaxEpoch {
			break
		}
		if err := e.epoch(ctx, log, true); err != nil {
			e.release(RunningStateManual)
			return err
		}
	}

	e.area.Lock()
	e.cleanup(log)
	snap := e.snapshot()
	e.area.Unlock()
	e.refreshCounters()
	if !stopped {
		if err := e.refreshView(ctx, snap); err != nil {
			e.release(RunningStateManual)
			return err
		}
	}

	mode := RunningStateManual
	if snap.Epoch >= e.options.MaxEpoch {
		mode = RunningStateFinished
	}
	log.Info("run ended", "epoch", snap.Epoch, "liveCells", snap.LiveCells, "stopped", stopped)
	e.release(mode)
	return nil
}

//Start runs the engine in its own goroutine, returns immediately
//the Status struct will be written to the stateCh on finish
func (e *Engine) Start(ctx context.Context) {
	go func() {
		if err := e.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("run failed", "err", err)
		}
	}()
}

//Stop asks the running simulation to stop, returns immediately
//the request is observed between two epochs
func (e *Engine) Stop() {
	e.state.Lock()
	if e.busy() {
		e.state.stop = true
	}
	e.state.Unlock()
}

//Step does exactly one epoch and shows the result to the viewers
//a finished engine doesn't move
func (e *Engine) Step(ctx context.Context) error {
	if err := e.acquire(ctx, RunningStateStep); err != nil {
		return err
	}
	if e.Status().Epoch >= e.options.MaxEpoch {
		e.release(RunningStateFinished)
		return nil
	}
	if err := e.epoch(ctx, e.logger, false); err != nil {
		e.release(RunningStateManual)
		return err
	}
	snap := e.Snapshot()
	err := e.refreshView(ctx, snap)
	mode := RunningStateManual
	if snap.Epoch >= e.options.MaxEpoch {
		mode = RunningStateFinished
	}
	e.release(mode)
	return err
}

//Clear kills all cells and reset all counters
//a run in progress is stopped first
func (e *Engine) Clear() {
	ctx := context.Background()
	if err := e.acquire(ctx, RunningStateStep); err != nil {
		return
	}
	e.area.Lock()
	e.area.Reset()
	e.area.Unlock()
	e.state.Lock()
	e.state.Epoch = 0
	e.state.Freed = 0
	e.state.IterationTime = 0
	e.state.Unlock()
	e.refreshCounters()
	e.release(RunningStateManual)
}

//Cleanup removes the dead cells having no live neighbor, returns the number of freed cells
func (e *Engine) Cleanup() int {
	e.area.Lock()
	freed := e.cleanup(e.logger)
	e.area.Unlock()
	e.refreshCounters()
	return freed
}

//epoch does one simulation step: cleanup when due, draw, then evaluate every tracked cell
func (e *Engine) epoch(ctx context.Context, log *slog.Logger, draw bool) error {
	e.area.Lock()
	if e.Status().Epoch%e.options.CleanupCooldown == 0 {
		e.cleanup(log)
	}
	snap := e.snapshot()
	e.area.Unlock()
	e.refreshCounters()

	if draw {
		if err := e.refreshView(ctx, snap); err != nil {
			return err
		}
	}

	e.area.Lock()
	start := time.Now()
	e.apply(e.updateCell)
	elapsed := time.Since(start)
	live, tracked := e.area.LiveCells(), e.area.Size()
	e.area.Unlock()

	e.state.Lock()
	e.state.Epoch++
	e.state.LiveCells = live
	e.state.TrackedCells = tracked
	e.state.IterationTime = elapsed
	e.state.Unlock()
	log.Debug("epoch done", "epoch", snap.Epoch+1, "liveCells", live, "trackedCells", tracked, "elapsed", elapsed)
	return nil
}

//apply applies the action simultaneously on each cell, without side effects:
//status and counts are read from a copy, the action writes to the store
//must be called with the area lock held
func (e *Engine) apply(action func(k Key, status Cell, count int, neighbors []Key)) {
	cells := e.area.Snapshot()
	for k := range cells {
		neighbors := e.neighborKeys(k.Coord())
		action(k, CellStatus(cells, k), CountLive(cells, neighbors), neighbors)
	}
}

func (e *Engine) updateCell(k Key, status Cell, count int, neighbors []Key) {
	switch e.rule.Transition(status, count) {
	case Death:
		//the cell dies but stays tracked
		e.area.SetDead(k)
	case Birth:
		e.area.Activate(k, neighbors)
	}
}

//cleanup removes totally dead cells
//this can't be done while updating the cells, and it is somewhat expensive, so it runs once in a while
//must be called with the area lock held
func (e *Engine) cleanup(log *slog.Logger) int {
	size := e.area.Size()
	e.apply(func(k Key, status Cell, count int, _ []Key) {
		if status == Dead && count == 0 {
			e.area.Delete(k)
		}
	})
	freed := size - e.area.Size()
	e.state.Lock()
	e.state.Freed = freed
	e.state.Unlock()
	log.Debug("freed cells", "freed", freed, "trackedCells", e.area.Size())
	return freed
}

func (e *Engine) neighborKeys(c Coord) []Key {
	return keysOf(e.neighborhood.Neighbors(c))
}

//snapshot must be called with the area lock held
func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		Epoch:        e.Status().Epoch,
		LiveCells:    e.area.LiveCells(),
		TrackedCells: e.area.Size(),
		Cells:        e.area.Snapshot(),
	}
}

//acquire makes the caller the only driver of the store
//a driver in progress is asked to stop and polled every PollInterval
func (e *Engine) acquire(ctx context.Context, mode RunningState) error {
	for {
		e.state.Lock()
		if !e.busy() {
			e.state.RunningMode = mode
			e.state.stop = false
			e.state.Unlock()
			return nil
		}
		e.state.stop = true
		e.state.Unlock()
		e.logger.Info("a run is already in progress, waiting for it to stop")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.options.PollInterval):
		}
	}
}

func (e *Engine) release(mode RunningState) {
	e.state.Lock()
	e.state.RunningMode = mode
	e.state.Unlock()
	e.publish()
}

//busy must be called with the state lock held
func (e *Engine) busy() bool {
	return e.state.RunningMode == RunningStateRun || e.state.RunningMode == RunningStateStep
}

func (e *Engine) stopRequested() bool {
	e.state.Lock()
	defer e.state.Unlock()
	return e.state.stop
}

func (e *Engine) refreshCounters() {
	e.area.Lock()
	live, tracked := e.area.LiveCells(), e.area.Size()
	e.area.Unlock()
	e.state.Lock()
	e.state.LiveCells = live
	e.state.TrackedCells = tracked
	e.state.Unlock()
}

//publish writes the current status to the stateCh to signal upper control software
//the status is dropped when the channel buffer is full
func (e *Engine) publish() {
	if e.stateCh == nil {
		return
	}
	st := e.Status()
	select {
	case e.stateCh <- st:
	default:
		e.logger.Warn("state channel is full, status dropped", "epoch", st.Epoch, "mode", st.RunningMode)
	}
}

//refreshView awaits every registered viewer
func (e *Engine) refreshView(ctx context.Context, s Snapshot) error {
	for _, v := range e.views {
		if err := v.Refresh(ctx, s); err != nil {
			return fmt.Errorf("refresh viewer at epoch %d: %w", s.Epoch, err)
		}
	}
	return nil
}
