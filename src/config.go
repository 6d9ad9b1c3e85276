package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sparselife/src/universe"
	"sparselife/src/view"
)

//Config is the whole program configuration
//it is read from the optional config file, then overridden by the command line flags
type Config struct {
	universe.Options `yaml:",inline"`
	Engine           string        `yaml:"engine"`
	Rule             string        `yaml:"rule"`
	Neighborhood     string        `yaml:"neighborhood"`
	Layout           string        `yaml:"layout"`
	Layouts          string        `yaml:"layouts"` //path of a layouts file
	Interval         time.Duration `yaml:"interval"`
	Viewport         view.Viewport `yaml:"viewport"`
	Interactive      bool          `yaml:"interactive"`
	Noise            bool          `yaml:"noise"`
	Seed             int64         `yaml:"seed"`
	Color            bool          `yaml:"color"`
	Verbose          bool          `yaml:"verbose"`
}

//DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Options:  universe.DefaultOptions,
		Engine:   "conway",
		Layout:   "pentadecathlon",
		Interval: 500 * time.Millisecond,
		Viewport: view.DefaultViewport,
		Color:    true,
	}
}

//loadConfig decodes the config file over cfg
func loadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

//configPath finds the config file flag before the flags are parsed, so the flags can override the file
func configPath(args []string) string {
	for i, a := range args {
		for _, name := range []string{"-f", "--config"} {
			if a == name && i+1 < len(args) {
				return args[i+1]
			}
			if v, ok := strings.CutPrefix(a, name+"="); ok {
				return v
			}
		}
	}
	return ""
}

//parseViewport parses the "x,y,width,height" notation
func parseViewport(s string) (view.Viewport, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return view.Viewport{}, fmt.Errorf("viewport %q: expected x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return view.Viewport{}, fmt.Errorf("viewport %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return view.Viewport{}, fmt.Errorf("viewport %q: width and height must be positive", s)
	}
	return view.Viewport{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
