package layout

import (
	"fmt"

	"github.com/aquilax/go-perlin"

	"sparselife/src/universe"
)

const (
	noiseAlpha = 2.
	noiseBeta  = 2.
	noiseOcts  = 3
	noiseScale = 0.15
)

//Noise returns a layout with the cells of the width x height rectangle centered on the origin
//whose perlin noise value is above threshold
//the same seed always gives the same layout
func Noise(seed int64, width int, height int, threshold float64) universe.Template {
	p := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOcts, seed)
	t := universe.Template{
		Name:  fmt.Sprintf("noise-%d", seed),
		Descr: fmt.Sprintf("perlin noise %dx%d above %.2f", width, height, threshold),
	}
	x0, y0 := -width/2, -height/2
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			if p.Noise2D(float64(col)*noiseScale, float64(row)*noiseScale) > threshold {
				t.Live = append(t.Live, universe.Coord{X: x0 + col, Y: y0 + row})
			}
		}
	}
	return t
}
