package view

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/logrusorgru/aurora"

	"sparselife/src/universe"
)

type keyBindings struct {
	key      interface{}
	name     string
	descr    string
	handler  func(v *gocui.View) error
	viewName string
}

//Factory creates a freshly seeded universe, used by the restart command
type Factory func() universe.Universe

type ConsoleUI struct {
	mu       sync.Mutex
	u        universe.Universe
	g        *gocui.Gui
	k        []keyBindings
	ctx      context.Context
	director *universe.Director
	factory  Factory
	seed     func(u universe.Universe)
	interval time.Duration
	//top left corner of the battlefield in plane coordinates
	originX    int
	originY    int
	liveFiller string
	deadFiller string
}

var (
	runningStateDescr = map[universe.RunningState]string{
		universe.RunningStateManual:   aurora.Colorize("waiting", aurora.BlueFg).String(),
		universe.RunningStateStep:     "do the step",
		universe.RunningStateRun:      aurora.Colorize("running", aurora.CyanFg).String(),
		universe.RunningStateFinished: aurora.Colorize("finished", aurora.RedFg).String(),
	}
)

//NewViewTerminal creates the interactive terminal viewer
//factory is used by the restart command, seed by the settle-with-noise command
func NewViewTerminal(ctx context.Context, director *universe.Director, factory Factory, seed func(u universe.Universe), interval time.Duration) (*ConsoleUI, error) {
	var err error
	t := ConsoleUI{
		ctx:        ctx,
		director:   director,
		factory:    factory,
		seed:       seed,
		interval:   interval,
		liveFiller: aurora.Green("█").BgBrightGreen().String(),
		deadFiller: "░",
	}

	t.g, err = gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, fmt.Errorf("create terminal ui: %w", err)
	}

	t.g.Mouse = true
	t.k = []keyBindings{
		{gocui.KeyCtrlC, "^C", "Exit", t.cmdQuit, ""},
		{'n', "N", "Next step", t.cmdNextRound, ""},
		{'r', "R", "Run", t.cmdRun, ""},
		{'s', "S", "Stop", t.cmdStop, ""},
		{'c', "C", "Clear", t.cmdClear, ""},
		{'w', "W", "Settle with noise", t.cmdSettleWithNoise, ""},
		{'t', "T", "Restart", t.cmdRestart, ""},
		{gocui.MouseLeft, "MOUSE", "Toggle the cell", t.cmdMouseClick, "battlefield"},
	}
	t.g.SetManagerFunc(t.layout)

	if err := t.initKeyBindings(t.k); err != nil {
		t.g.Close()
		return nil, err
	}

	return &t, nil
}

func (t *ConsoleUI) initKeyBindings(k []keyBindings) error {
	for _, kb := range k {
		h := kb.handler
		if err := t.g.SetKeybinding(kb.viewName, kb.key, gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error { return h(view) }); err != nil {
			return fmt.Errorf("bind %s: %w", kb.name, err)
		}
	}
	return nil
}

func (t *ConsoleUI) Register(u universe.Universe) {
	t.mu.Lock()
	t.u = u
	t.mu.Unlock()
}

func (t *ConsoleUI) current() universe.Universe {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.u
}

//Start runs the terminal main loop until the user quits
func (t *ConsoleUI) Start() {
	if err := t.g.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		t.g.Close()
		panic(err)
	}
	t.g.Close()
}

func (t *ConsoleUI) Refresh(ctx context.Context, s universe.Snapshot) error {
	t.renderField(s)
	t.renderConfiguration()
	t.renderStatus()
	if t.interval <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
	case <-time.After(t.interval):
	}
	return nil
}

func (t *ConsoleUI) renderField(s universe.Snapshot) {
	t.g.Update(func(g *gocui.Gui) error {
		v, e := g.View("battlefield")
		if e != nil {
			return e
		}
		v.Clear()

		//the plane is unbounded, the view is centered on the origin
		maxW, maxH := v.Size()
		t.mu.Lock()
		t.originX, t.originY = -maxW/2, -maxH/2
		t.mu.Unlock()
		grid := s.Grid(-maxW/2, -maxH/2, maxW, maxH)

		var b bytes.Buffer
		for i, l := range grid {
			//line feed char
			if i != 0 {
				b.WriteByte(10)
			}
			for _, c := range l {
				if c == universe.LiveFiller {
					b.WriteString(t.liveFiller)
				} else {
					b.WriteString(t.deadFiller)
				}
			}
		}
		_, _ = fmt.Fprint(v, b.String())
		return nil
	})
}

func (t *ConsoleUI) renderStatus() {
	u := t.current()
	if u == nil {
		return
	}
	s := u.Status()
	t.g.Update(func(g *gocui.Gui) error {
		if v, e := t.g.View("status"); e == nil {
			v.Clear()
			_, _ = fmt.Fprintln(v, t.renderProp("Epoch", "%v", s.Epoch))
			_, _ = fmt.Fprintln(v, t.renderProp("Live cells", "%v", s.LiveCells))
			_, _ = fmt.Fprintln(v, t.renderProp("Tracked cells", "%v", s.TrackedCells))
			_, _ = fmt.Fprintln(v, t.renderProp("Last freed", "%v", s.Freed))
			_, _ = fmt.Fprintln(v, t.renderProp("Evaluation time", "%v", s.IterationTime.Round(time.Microsecond)))
			_, _ = fmt.Fprintln(v, t.renderProp("Mode", "%v", runningStateDescr[s.RunningMode]))
		}
		return nil
	})
}

func (t *ConsoleUI) renderConfiguration() {
	u := t.current()
	if u == nil {
		return
	}
	//it needs to call Update when calls from goroutine
	t.g.Update(func(g *gocui.Gui) error {
		c := u.Options()
		if v, e := g.View("configuration"); e == nil {
			v.Clear()
			_, _ = fmt.Fprintln(v, t.renderProp("Epochs", "%v", c.MaxEpoch))
			_, _ = fmt.Fprintln(v, t.renderProp("Cleanup", "every %v epochs", c.CleanupCooldown))
			if c.Bound > 0 {
				_, _ = fmt.Fprintln(v, t.renderProp("Bound", "%v", c.Bound))
			} else {
				_, _ = fmt.Fprintln(v, t.renderProp("Bound", "none"))
			}
			_, _ = fmt.Fprintln(v, t.renderProp("Interval", "%v", t.interval))
			for _, p := range [][2]string{{"rule", "Rule"}, {"neighborhood", "Neighborhood"}, {"layout", "Layout"}} {
				if d, ok := c.Advanced[p[0]]; ok {
					_, _ = fmt.Fprintln(v, t.renderProp(p[1], "%v", d))
				}
			}
		}
		return nil
	})
}

func (t *ConsoleUI) renderProp(name string, valueformat string, values ...interface{}) string {
	return fmt.Sprintf(" "+aurora.Colorize(name, aurora.GreenFg).String()+": "+valueformat, values...)
}

func (t *ConsoleUI) layout(g *gocui.Gui) error {

	maxX, maxY := g.Size()
	leftColumnWidth := 32
	minWindowHeight := 20

	if maxY < minWindowHeight {
		if _, err := t.headerLayout(g, maxY, "Terminal height too small"); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
		}
		_ = g.DeleteView("configuration")
		_ = g.DeleteView("status")
		_ = g.DeleteView("battlefield")
		return nil

	} else {
		if _, err := t.headerLayout(g, 3, "This is \"The Life\" game simulation, on an unbounded plane"); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
		}
	}

	if v, err := g.SetView("configuration", 0, 3, leftColumnWidth, 3+(maxY-5-3)/2); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Configuration"
		v.Frame = true
		t.renderConfiguration()
	}

	if v, err := g.SetView("status", 0, 3+(maxY-5-3)/2+1, leftColumnWidth, maxY-5); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Status"
		v.Frame = true
		t.renderStatus()
	}

	if v, err := g.SetView("battlefield", leftColumnWidth+1, 3, maxX-1, maxY-5); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Battle Field"
		v.Frame = true
		if u := t.current(); u != nil {
			t.renderField(u.Snapshot())
		}
	}

	if v, err := g.SetView("help", -1, maxY-5, maxX, maxY-3); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Frame = false
		b := bytes.Buffer{}
		b.WriteString("KEYBINDINGS: ")
		for i, k := range t.k {
			if i != 0 {
				b.WriteString(", ")
			}
			b.WriteString(aurora.Green(k.name).String())
			b.WriteString(": ")
			b.WriteString(k.descr)
		}
		_, _ = fmt.Fprintln(v, b.String())
	}

	return nil
}

func (t *ConsoleUI) headerLayout(g *gocui.Gui, height int, text string) (v *gocui.View, err error) {
	maxX, _ := g.Size()
	if v, err = g.SetView("header", -1, -1, maxX+1, height); err != nil {
		if err == gocui.ErrUnknownView && v != nil {
			v.Frame = false
			v.BgColor = gocui.ColorCyan
			v.FgColor = gocui.ColorBlack
		}
	}
	if v != nil {
		v.Clear()
		pad := 0
		if maxX > len(text) {
			pad = (maxX - len(text)) / 2
		}
		_, _ = fmt.Fprintln(v, strings.Repeat("\n", height/2+1)+strings.Repeat(" ", pad)+text)
	}
	return
}

//background runs the command outside of the gui loop, the engine commands block until the current epoch ends
func (t *ConsoleUI) background(cmd func() error) {
	go func() {
		if err := cmd(); err != nil && !errors.Is(err, context.Canceled) {
			t.g.Update(func(g *gocui.Gui) error { return err })
		}
	}()
}

func (t *ConsoleUI) cmdQuit(_ *gocui.View) error {
	t.director.Stop()
	return gocui.ErrQuit
}

func (t *ConsoleUI) cmdNextRound(_ *gocui.View) error {
	u := t.current()
	t.background(func() error { return u.Step(t.ctx) })
	return nil
}

func (t *ConsoleUI) cmdRun(_ *gocui.View) error {
	u := t.current()
	t.background(func() error { return t.director.Launch(t.ctx, u) })
	return nil
}

func (t *ConsoleUI) cmdStop(_ *gocui.View) error {
	t.director.Stop()
	return nil
}

func (t *ConsoleUI) cmdClear(_ *gocui.View) error {
	u := t.current()
	t.background(func() error {
		u.Clear()
		t.renderField(u.Snapshot())
		t.renderStatus()
		return nil
	})
	return nil
}

func (t *ConsoleUI) cmdSettleWithNoise(_ *gocui.View) error {
	if t.seed == nil {
		return nil
	}
	u := t.current()
	t.background(func() error {
		u.Clear()
		t.seed(u)
		t.renderField(u.Snapshot())
		t.renderStatus()
		return nil
	})
	return nil
}

func (t *ConsoleUI) cmdRestart(_ *gocui.View) error {
	if t.factory == nil {
		return nil
	}
	t.background(func() error {
		u := t.factory()
		u.RegisterViewer(t)
		return t.director.Launch(t.ctx, u)
	})
	return nil
}

func (t *ConsoleUI) cmdMouseClick(v *gocui.View) error {
	cx, cy := v.Cursor()
	t.mu.Lock()
	c := universe.Coord{X: t.originX + cx, Y: t.originY + cy}
	u := t.u
	t.mu.Unlock()
	u.InverseCell(c)
	t.renderField(u.Snapshot())
	t.renderStatus()
	return nil
}
