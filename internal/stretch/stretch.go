// Package stretch implements the midtone transfer function (MTF)
// auto-stretch used to lift night-sky frames into a viewable range.
package stretch

import (
	"math"

	"github.com/englishfox90/pfrsentinel/internal/imaging"
)

// Params are the stretch tunables. Zero value is not useful; start from
// Defaults and override.
type Params struct {
	TargetMedian         float64
	Linked               bool
	PreserveBlacks       bool
	NormalizeChannels    bool
	DarkSceneThreshold   float64
	ShadowAggressiveness float64
	SaturationBoost      float64
}

// Defaults returns the tuned production parameters.
func Defaults() Params {
	return Params{
		TargetMedian:         0.25,
		Linked:               true,
		PreserveBlacks:       true,
		NormalizeChannels:    true,
		DarkSceneThreshold:   0.05,
		ShadowAggressiveness: 2.8,
		SaturationBoost:      1.5,
	}
}

// Result captures the measured scene statistics and the transfer points
// actually used, for the calibration record.
type Result struct {
	BlackPoint          float64 `json:"black_point"`
	WhitePoint          float64 `json:"white_point"`
	MedianLum           float64 `json:"median_lum"`
	MeanLum             float64 `json:"mean_lum"`
	DynamicRange        float64 `json:"dynamic_range"`
	IsDarkScene         bool    `json:"is_dark_scene"`
	RecommendedStrength float64 `json:"recommended_asinh_strength"`
}

// Blend factor for dark-scene channel equalization. Full correction
// flattens real color; half way keeps the cast visible but tame.
const darkNormalizationStrength = 0.5

const (
	midtoneMin = 0.001
	midtoneMax = 1000.0
)

// Measure derives the scene statistics from a luminance plane without
// touching the image. The 99.7th percentile white point sidesteps hot
// pixels that a plain maximum would latch onto.
func Measure(lum *imaging.Plane, darkThreshold float64) Result {
	black := imaging.Percentile(lum.Pix, 2)
	white := imaging.Percentile(lum.Pix, 99.7)
	med := imaging.Median(lum.Pix)

	res := Result{
		BlackPoint:   black,
		WhitePoint:   white,
		MedianLum:    med,
		MeanLum:      imaging.Mean(lum.Pix),
		DynamicRange: white - black,
		IsDarkScene:  med < darkThreshold,
	}
	if med > 0.001 {
		res.RecommendedStrength = math.Min(500, math.Max(50, 5.0/med))
	} else {
		res.RecommendedStrength = 500
	}

	return res
}

// Apply stretches img in place and returns the measured result. The
// input luminance must correspond to img before stretching.
func Apply(img *imaging.Image, lum *imaging.Plane, p Params) Result {
	res := Measure(lum, p.DarkSceneThreshold)

	if p.NormalizeChannels && res.IsDarkScene && img.Color() {
		normalizeDarkChannels(img)
	}

	if p.Linked {
		applyLinked(img, lum, p)
	} else {
		for _, ch := range img.Ch {
			mtfChannel(ch.Pix, p.TargetMedian, p.ShadowAggressiveness)
		}
	}

	if p.PreserveBlacks {
		preserveBlacks(img, lum, res.BlackPoint)
	}

	if p.SaturationBoost != 1 && p.SaturationBoost > 0 && img.Color() {
		boostSaturation(img, p.SaturationBoost)
	}

	return res
}

// normalizeDarkChannels pulls the channel medians toward the luminance-
// weighted target so a dark sky does not render with a strong cast.
func normalizeDarkChannels(img *imaging.Image) {
	meds := [3]float64{}
	for c := 0; c < 3; c++ {
		meds[c] = imaging.Median(img.Ch[c].Pix)
	}
	target := 0.299*meds[0] + 0.587*meds[1] + 0.114*meds[2]

	for c := 0; c < 3; c++ {
		if meds[c] <= 0 {
			continue
		}
		scale := 1 + darkNormalizationStrength*(target/meds[c]-1)
		pix := img.Ch[c].Pix
		for i, v := range pix {
			v *= scale
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			pix[i] = v
		}
	}
}

// midtoneFor solves the MTF midtone parameter that maps currentMedian
// onto targetMedian.
func midtoneFor(targetMedian, currentMedian float64) (float64, bool) {
	if currentMedian <= 0 || currentMedian >= 1 {
		return 0, false
	}
	m := (targetMedian - 1) / ((2*targetMedian-1)*currentMedian - targetMedian)
	if m < midtoneMin {
		m = midtoneMin
	}
	if m > midtoneMax {
		m = midtoneMax
	}

	return m, true
}

func mtf(m, x float64) float64 {
	y := (m - 1) * x / ((2*m-1)*x - m)
	if y < 0 {
		y = 0
	}
	if y > 1 {
		y = 1
	}

	return y
}

// mtfChannel is the unlinked per-channel stretch: MAD-based shadow clip,
// renormalize, then push the median to the target.
func mtfChannel(pix []float64, targetMedian, shadowClip float64) {
	clip := 0.0
	if shadowClip > 0 {
		med := imaging.Median(pix)
		mad := imaging.MAD(pix, med)
		clip = med - shadowClip*mad
		if clip < 0 {
			clip = 0
		}
	}

	maxV := 0.0
	for i, v := range pix {
		v -= clip
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		pix[i] = v
		if v > maxV {
			maxV = v
		}
	}
	if maxV > 0 {
		inv := 1 / maxV
		for i := range pix {
			pix[i] *= inv
		}
	}

	var nonzero []float64
	for _, v := range pix {
		if v > 0 {
			nonzero = append(nonzero, v)
		}
	}
	m, ok := midtoneFor(targetMedian, imaging.Median(nonzero))
	if !ok {
		return
	}
	for i, v := range pix {
		pix[i] = mtf(m, v)
	}
}

// applyLinked computes one transfer curve from the luminance and applies
// it identically to every channel, preserving hue.
func applyLinked(img *imaging.Image, lum *imaging.Plane, p Params) {
	clip := 0.0
	if p.ShadowAggressiveness > 0 {
		med := imaging.Median(lum.Pix)
		mad := imaging.MAD(lum.Pix, med)
		clip = med - p.ShadowAggressiveness*mad
		if clip < 0 {
			clip = 0
		}
	}

	maxV := 0.0
	shifted := make([]float64, len(lum.Pix))
	for i, v := range lum.Pix {
		v -= clip
		if v < 0 {
			v = 0
		}
		shifted[i] = v
		if v > maxV {
			maxV = v
		}
	}
	if maxV <= 0 {
		return
	}
	inv := 1 / maxV

	var nonzero []float64
	for _, v := range shifted {
		if v > 0 {
			nonzero = append(nonzero, v*inv)
		}
	}
	m, ok := midtoneFor(p.TargetMedian, imaging.Median(nonzero))
	if !ok {
		return
	}

	for _, ch := range img.Ch {
		pix := ch.Pix
		for i, v := range pix {
			v = (v - clip) * inv
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			pix[i] = mtf(m, v)
		}
	}
}

// preserveBlacks zeroes pixels that were at or below the measured black
// point before stretching, so lifted shadows do not turn the enclosure
// interior gray.
func preserveBlacks(img *imaging.Image, lum *imaging.Plane, blackPoint float64) {
	for i, v := range lum.Pix {
		if v <= blackPoint {
			for _, ch := range img.Ch {
				ch.Pix[i] = 0
			}
		}
	}
}

// boostSaturation scales chroma around the per-pixel gray value.
func boostSaturation(img *imaging.Image, boost float64) {
	r, g, b := img.Ch[0].Pix, img.Ch[1].Pix, img.Ch[2].Pix
	for i := range r {
		gray := 0.299*r[i] + 0.587*g[i] + 0.114*b[i]
		r[i] = clamp01(gray + boost*(r[i]-gray))
		g[i] = clamp01(gray + boost*(g[i]-gray))
		b[i] = clamp01(gray + boost*(b[i]-gray))
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}

	return v
}
