package view

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"
	"time"

	"github.com/logrusorgru/aurora"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sparselife/src/universe"
)

//Viewport is the rectangle of the plane shown by the viewers, X, Y is the top left corner
type Viewport struct {
	X      int
	Y      int
	Width  int
	Height int
}

var DefaultViewport = Viewport{X: -10, Y: -10, Width: 35, Height: 25}

//ConsoleOut prints every epoch as a text grid
type ConsoleOut struct {
	u         universe.Universe
	w         io.Writer
	p         *message.Printer
	au        aurora.Aurora
	viewport  Viewport
	interval  time.Duration
	startTime time.Time
}

//NewConsoleOut creates the console printer
//interval is the pause after each frame, color enables ANSI colors
func NewConsoleOut(w io.Writer, viewport Viewport, interval time.Duration, color bool) *ConsoleOut {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleOut{
		w:        w,
		p:        message.NewPrinter(language.English),
		au:       aurora.NewAurora(color),
		viewport: viewport,
		interval: interval,
	}
}

func (c *ConsoleOut) Refresh(ctx context.Context, s universe.Snapshot) error {
	v := c.viewport
	grid := s.Grid(v.X, v.Y, v.Width, v.Height)
	var b bytes.Buffer
	c.p.Fprintf(&b, "Epoch %d:\n", s.Epoch)
	c.p.Fprintf(&b, "Live cells: %d\n", s.LiveCells)
	for _, row := range grid {
		for _, ch := range row {
			if ch == universe.LiveFiller {
				b.WriteString(c.au.Green(string(ch)).String())
			} else {
				b.WriteByte(ch)
			}
		}
		b.WriteByte('\n')
	}
	if _, err := c.w.Write(b.Bytes()); err != nil {
		return err
	}
	if c.interval <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(c.interval):
	}
	return nil
}

func (c *ConsoleOut) Register(u universe.Universe) {
	c.u = u
	o := c.u.Options()
	c.p.Fprintln(c.w, "Running configuration:")
	c.p.Fprintf(c.w, "  Max epochs: %d\n", o.MaxEpoch)
	c.p.Fprintf(c.w, "  Cleanup cooldown: %d epochs\n", o.CleanupCooldown)
	if o.Bound > 0 {
		c.p.Fprintf(c.w, "  Bound: %d from %d,%d\n", o.Bound, o.Origin.X, o.Origin.Y)
	} else {
		c.p.Fprintln(c.w, "  Bound: none")
	}
	c.p.Fprintf(c.w, "  Interval: %v\n", c.interval)
	c.printHashData(o.Advanced)
}

func (c *ConsoleOut) Start() {
	c.startTime = time.Now()
	c.p.Fprintln(c.w, "\nSimulation started...")
}

//Finish prints the final status of the run
func (c *ConsoleOut) Finish(st universe.Status) {
	totalTime := time.Since(c.startTime).Round(time.Millisecond)
	resultData := map[string]interface{}{
		"Last epoch":    st.Epoch,
		"Total time":    totalTime,
		"Live cells":    st.LiveCells,
		"Tracked cells": st.TrackedCells,
	}
	c.p.Fprintln(c.w, "\nFinished:")
	c.printHashData(resultData)
}

func (c *ConsoleOut) printHashData(d map[string]interface{}) {
	propNames := make([]string, 0, len(d))
	for k := range d {
		propNames = append(propNames, k)
	}
	sort.Strings(propNames)
	for _, propName := range propNames {
		c.p.Fprintf(c.w, "  %s: %v\n", propName, d[propName])
	}
}
