// Package whitebalance corrects the color cast of normalized frames.
// Three mutually exclusive modes are supported: "auto" trusts the
// sensor's own balancing and passes frames through, "manual" applies
// fixed per-channel gains on the 1-99 sensor scale, and "gray_world"
// derives gains from the scene itself.
package whitebalance

import (
	"github.com/englishfox90/pfrsentinel/internal/imaging"
)

type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeManual    Mode = "manual"
	ModeGrayWorld Mode = "gray_world"
)

const (
	// Sensor gain scale: 1-99 with 50 meaning unity.
	sensorScaleMin   = 1
	sensorScaleMax   = 99
	sensorScaleUnity = 50.0

	// Gray-world masks need a minimum population to be trustworthy.
	grayWorldMinPixels = 100
)

// Gains are the multiplicative channel corrections. Applied reports
// whether the engine changed the frame; auto mode leaves it false.
type Gains struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`

	Mode    Mode `json:"mode"`
	Applied bool `json:"applied"`
}

// Unity returns pass-through gains for the given mode.
func Unity(mode Mode) Gains {
	return Gains{Red: 1, Green: 1, Blue: 1, Mode: mode}
}

// ClampSensorScale pins a configured gain onto the valid 1-99 range.
func ClampSensorScale(v int) int {
	if v < sensorScaleMin {
		return sensorScaleMin
	}
	if v > sensorScaleMax {
		return sensorScaleMax
	}

	return v
}

// FromSensorScale converts a 1-99 sensor gain to a multiplier, 50 = 1.0.
func FromSensorScale(v int) float64 {
	return float64(ClampSensorScale(v)) / sensorScaleUnity
}

// Manual builds gains from configured red/blue sensor-scale values.
// Green is the reference channel and stays at unity.
func Manual(red, blue int) Gains {
	return Gains{
		Red:     FromSensorScale(red),
		Green:   1,
		Blue:    FromSensorScale(blue),
		Mode:    ModeManual,
		Applied: true,
	}
}

// GrayWorld derives gains that equalize the channel medians around the
// green channel. Pixels outside the [lowPct, highPct] intensity band are
// excluded so hot pixels and black borders do not skew the estimate; if
// the mask keeps fewer than 100 pixels the whole frame is used instead.
// A channel with a zero median keeps unity gain.
func GrayWorld(img *imaging.Image, lowPct, highPct float64) Gains {
	g := Unity(ModeGrayWorld)
	if !img.Color() {
		return g
	}

	r, gr, b := img.Ch[0].Pix, img.Ch[1].Pix, img.Ch[2].Pix
	intensity := make([]float64, len(r))
	for i := range intensity {
		intensity[i] = 0.299*r[i] + 0.587*gr[i] + 0.114*b[i]
	}
	lo := imaging.Percentile(intensity, lowPct)
	hi := imaging.Percentile(intensity, highPct)

	idx := make([]int, 0, len(intensity))
	for i, v := range intensity {
		if v >= lo && v <= hi {
			idx = append(idx, i)
		}
	}
	if len(idx) < grayWorldMinPixels {
		idx = idx[:0]
		for i := range intensity {
			idx = append(idx, i)
		}
	}

	masked := func(ch []float64) []float64 {
		vals := make([]float64, len(idx))
		for j, i := range idx {
			vals[j] = ch[i]
		}

		return vals
	}

	rMed := imaging.Median(masked(r))
	gMed := imaging.Median(masked(gr))
	bMed := imaging.Median(masked(b))
	if gMed <= 0 {
		return g
	}

	if rMed > 0 {
		g.Red = gMed / rMed
	}
	if bMed > 0 {
		g.Blue = gMed / bMed
	}
	g.Applied = true

	return g
}

// Apply multiplies the channels in place, clamping back into [0, 1].
// No-op for mono images or unity gains.
func Apply(img *imaging.Image, g Gains) {
	if !img.Color() || !g.Applied {
		return
	}
	mul := []float64{g.Red, g.Green, g.Blue}
	for c, m := range mul {
		if m == 1 {
			continue
		}
		pix := img.Ch[c].Pix
		for i, v := range pix {
			v *= m
			if v > 1 {
				v = 1
			}
			pix[i] = v
		}
	}
}
