package render

import (
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// JetReversed is the reversed-jet colormap used for class activation maps:
// high attribution renders red-to-warm, low renders blue-to-cool reversed,
// matching the reference rendering. It implements palette.ColorMap.
type JetReversed struct {
	min, max float64
}

// NewJetReversed returns a reversed-jet colormap over [0, 1].
func NewJetReversed() *JetReversed {
	return &JetReversed{min: 0, max: 1}
}

// At returns the color for the given value.
func (j *JetReversed) At(v float64) (color.Color, error) {
	if math.IsNaN(v) {
		return nil, palette.ErrNaN
	}
	if v < j.min {
		return nil, palette.ErrUnderflow
	}
	if v > j.max {
		return nil, palette.ErrOverflow
	}

	t := 0.0
	if j.max > j.min {
		t = (v - j.min) / (j.max - j.min)
	}
	// Reverse, then apply the jet ramp.
	t = 1 - t
	r := jetChannel(4*t - 3)
	g := jetChannel(4*t - 2)
	b := jetChannel(4*t - 1)
	return color.RGBA{
		R: uint8(r * 255),
		G: uint8(g * 255),
		B: uint8(b * 255),
		A: 255,
	}, nil
}

// jetChannel is the triangular ramp shared by jet's three channels.
func jetChannel(x float64) float64 {
	v := 1.5 - math.Abs(x)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Min returns the lower bound of the mapped range.
func (j *JetReversed) Min() float64 { return j.min }

// SetMin sets the lower bound of the mapped range.
func (j *JetReversed) SetMin(v float64) { j.min = v }

// Max returns the upper bound of the mapped range.
func (j *JetReversed) Max() float64 { return j.max }

// SetMax sets the upper bound of the mapped range.
func (j *JetReversed) SetMax(v float64) { j.max = v }

// Palette returns a discretization of the colormap.
func (j *JetReversed) Palette(colors int) palette.Palette {
	p := make(slicePalette, colors)
	for i := range p {
		v := j.min + (j.max-j.min)*float64(i)/float64(colors-1)
		c, err := j.At(v)
		if err != nil {
			c = color.Black
		}
		p[i] = c
	}
	return p
}

type slicePalette []color.Color

func (p slicePalette) Colors() []color.Color { return p }

// SensitivityColorMap returns the diverging blue-red map used for occlusion
// sensitivity, symmetric around zero and scaled to the map's maximum
// absolute score drop. Renderers evaluate it at the negated value so drops
// land on the warm end (the reversed orientation of the reference).
func SensitivityColorMap(maxAbs float64) palette.ColorMap {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-maxAbs)
	cm.SetMax(maxAbs)
	return cm
}
