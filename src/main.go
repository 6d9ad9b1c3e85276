package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/integrii/flaggy"

	"sparselife/src/layout"
	"sparselife/src/universe"
	"sparselife/src/view"
)

//engine is a named pair of rule and neighborhood
type engine struct {
	rule         string
	neighborhood string
}

var engines = map[string]engine{
	"conway":   {"conway", "moore"},
	"hex":      {"custom", "hex"},
	"highlife": {"B36/S23", "moore"},
	"seeds":    {"B2/S", "moore"},
}

const (
	noiseWidth     = 40
	noiseHeight    = 20
	noiseThreshold = 0.1
)

func main() {
	cfg, err := initOptions(os.Args[1:])
	if err != nil {
		flaggy.ShowHelpAndExit(err.Error())
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	cfg.Logger = logger

	rule, err := universe.LookupRule(cfg.Rule)
	if err != nil {
		flaggy.ShowHelpAndExit(err.Error())
	}
	nb, err := universe.LookupNeighborhood(cfg.Neighborhood)
	if err != nil {
		flaggy.ShowHelpAndExit(err.Error())
	}
	templates := layout.Builtins()
	if cfg.Layouts != "" {
		loaded, err := layout.Load(cfg.Layouts)
		if err != nil {
			flaggy.ShowHelpAndExit(err.Error())
		}
		templates = append(templates, loaded...)
	}
	if !hasTemplate(templates, cfg.Layout) && !cfg.Noise {
		flaggy.ShowHelpAndExit(fmt.Sprintf("unknown layout %q", cfg.Layout))
	}

	cfg.Advanced = map[string]interface{}{
		"rule":         cfg.Rule,
		"neighborhood": cfg.Neighborhood,
		"layout":       cfg.Layout,
	}
	seed := func(u universe.Universe) {
		if err := seedNoise(u, cfg.Seed); err != nil {
			logger.Error("settle noise", "err", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var stateCh chan universe.Status
	if !cfg.Interactive {
		stateCh = make(chan universe.Status, 10) //the buffered channel to getting the engine status
	}
	newEngine := func() universe.Universe {
		e := universe.NewEngine(rule, nb, &cfg.Options, stateCh)
		for _, t := range templates {
			e.AddTemplate(t)
		}
		if cfg.Noise {
			seed(e)
		} else if err := e.SettleTemplate(cfg.Layout); err != nil {
			logger.Error("settle layout", "err", err)
		}
		return e
	}

	if cfg.Interactive {
		director := universe.NewDirector(cfg.PollInterval, logger)
		v, err := view.NewViewTerminal(ctx, director, newEngine, seed, cfg.Interval)
		if err != nil {
			logger.Error("start terminal", "err", err)
			os.Exit(1)
		}
		u := newEngine()
		u.RegisterViewer(v)
		v.Start()
		director.Stop()
		return
	}

	v := view.NewConsoleOut(os.Stdout, cfg.Viewport, cfg.Interval, cfg.Color)
	u := newEngine()
	u.RegisterViewer(v)
	v.Start()
	u.Start(ctx)
	started := false
	for st := range stateCh {
		if st.RunningMode == universe.RunningStateRun {
			started = true
			continue
		}
		if started && (st.RunningMode == universe.RunningStateFinished || st.RunningMode == universe.RunningStateManual) {
			v.Finish(st)
			break
		}
	}
}

func initOptions(args []string) (Config, error) {
	cfg := DefaultConfig()
	if path := configPath(args); path != "" {
		if err := loadConfig(path, &cfg); err != nil {
			return cfg, err
		}
	}

	engineNames := make([]string, 0, len(engines))
	for k := range engines {
		engineNames = append(engineNames, k)
	}
	sort.Strings(engineNames)
	var configFile, viewport string

	p := flaggy.NewParser("sparselife")
	p.Description = "\"The Life\" game simulation on an unbounded plane"
	p.ShowHelpOnUnexpected = true
	p.String(&configFile, "f", "config", "YAML file with the configuration, the flags override it")
	p.Int(&cfg.MaxEpoch, "m", "maxEpoch", "Number of epochs to simulate")
	p.Int(&cfg.CleanupCooldown, "c", "cleanup", "Remove the untracked dead cells every N epochs")
	p.Int(&cfg.Bound, "b", "bound", "Cells can't live farther than this distance from the origin, 0 is unbounded")
	p.String(&cfg.Engine, "e", "engine", "Engine to use ["+strings.Join(engineNames, "|")+"]")
	p.String(&cfg.Rule, "", "rule", "Rule, overrides the engine's one [conway|custom|B<digits>/S<digits>]")
	p.String(&cfg.Neighborhood, "", "neighborhood", "Neighborhood, overrides the engine's one ["+strings.Join(universe.NeighborhoodNames(), "|")+"]")
	p.String(&cfg.Layout, "l", "layout", "Starting layout, built-in or from the layouts file")
	p.String(&cfg.Layouts, "", "layouts", "YAML file with additional layouts")
	p.Duration(&cfg.Interval, "i", "interval", "Pause between the drawn epochs, for example 150ms")
	p.String(&viewport, "", "viewport", "Printed rectangle as x,y,width,height")
	p.Bool(&cfg.Interactive, "n", "interactive", "Start interactive mode")
	p.Bool(&cfg.Noise, "r", "random", "Settle with perlin noise instead of the layout")
	p.Int64(&cfg.Seed, "", "seed", "Noise seed")
	p.Bool(&cfg.Color, "", "color", "Colored output")
	p.Bool(&cfg.Verbose, "v", "verbose", "Debug logging")

	if err := p.ParseArgs(args); err != nil {
		return cfg, err
	}

	if viewport != "" {
		vp, err := parseViewport(viewport)
		if err != nil {
			return cfg, err
		}
		cfg.Viewport = vp
	}
	e, ok := engines[cfg.Engine]
	if !ok {
		return cfg, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
	if cfg.Rule == "" {
		cfg.Rule = e.rule
	}
	if cfg.Neighborhood == "" {
		cfg.Neighborhood = e.neighborhood
	}
	if cfg.MaxEpoch <= 0 {
		return cfg, fmt.Errorf("maxEpoch must be positive, got %d", cfg.MaxEpoch)
	}
	if cfg.CleanupCooldown <= 0 {
		return cfg, fmt.Errorf("cleanup must be positive, got %d", cfg.CleanupCooldown)
	}
	if cfg.Bound < 0 {
		return cfg, fmt.Errorf("bound must not be negative, got %d", cfg.Bound)
	}
	return cfg, nil
}

//seedNoise settles a noise layout generated from seed on the universe
func seedNoise(u universe.Universe, seed int64) error {
	n := layout.Noise(seed, noiseWidth, noiseHeight, noiseThreshold)
	u.AddTemplate(n)
	return u.SettleTemplate(n.Name)
}

func hasTemplate(templates []universe.Template, name string) bool {
	for _, t := range templates {
		if t.Name == name {
			return true
		}
	}
	return false
}
