package layout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"sparselife/src/universe"
)

//File is the content of a layouts file
//
//	layouts:
//	  - name: blinker
//	    descr: period 2 oscillator
//	    live: [{x: 0, y: 0}, {x: 1, y: 0}, {x: 2, y: 0}]
type File struct {
	Layouts []universe.Template `yaml:"layouts"`
}

var builtins = map[string]universe.Template{
	"block": {
		Name:  "block",
		Descr: "still life, 2x2",
		Live:  []universe.Coord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
	},
	"blinker": {
		Name:  "blinker",
		Descr: "oscillator, period 2",
		Live:  []universe.Coord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
	},
	"glider": {
		Name:  "glider",
		Descr: "spaceship moving down right, period 4",
		Live:  []universe.Coord{{X: 1, Y: 0}, {X: 2, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}},
	},
	"pentadecathlon": pentaDecathlon(),
	"cluster": {
		Name:  "cluster",
		Descr: "scattered cells, useful for benchmarks",
		Live: []universe.Coord{
			{X: 2, Y: -3}, {X: 1, Y: -2}, {X: 3, Y: -3}, {X: -3, Y: 3}, {X: -1, Y: 0},
			{X: -1, Y: -1}, {X: 0, Y: -2}, {X: 0, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2},
		},
	},
}

//pentaDecathlon is a 3x8 block with two cells switched off, it evolves into the period 15 oscillator
func pentaDecathlon() universe.Template {
	t := universe.Template{
		Name:  "pentadecathlon",
		Descr: "oscillator, period 15",
		Dead:  []universe.Coord{{X: 1, Y: 1}, {X: 6, Y: 1}},
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 8; col++ {
			t.Live = append(t.Live, universe.Coord{X: col, Y: row})
		}
	}
	return t
}

//Builtin returns the built-in layout by name
func Builtin(name string) (universe.Template, bool) {
	t, ok := builtins[name]
	return t, ok
}

//Builtins returns every built-in layout sorted by name
func Builtins() []universe.Template {
	names := make([]string, 0, len(builtins))
	for k := range builtins {
		names = append(names, k)
	}
	sort.Strings(names)
	res := make([]universe.Template, 0, len(names))
	for _, n := range names {
		res = append(res, builtins[n])
	}
	return res
}

//Parse decodes a layouts file
func Parse(data []byte) ([]universe.Template, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode layouts: %w", err)
	}
	seen := map[string]bool{}
	for i, t := range f.Layouts {
		if t.Name == "" {
			return nil, fmt.Errorf("layout #%d: missing name", i+1)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("layout %q: defined twice", t.Name)
		}
		seen[t.Name] = true
	}
	return f.Layouts, nil
}

//Load reads a layouts file
func Load(path string) ([]universe.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layouts: %w", err)
	}
	return Parse(data)
}
