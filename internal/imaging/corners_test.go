package imaging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/englishfox90/pfrsentinel/internal/imaging"
)

func uniformPlane(w, h int, v float64) *imaging.Plane {
	p := imaging.NewPlane(w, h)
	for i := range p.Pix {
		p.Pix[i] = v
	}

	return p
}

func TestAnalyzeCornersUniform(t *testing.T) {
	lum := uniformPlane(200, 200, 0.4)

	a := imaging.AnalyzeCorners(lum, nil, imaging.DefaultCornerOptions)
	assert.InDelta(t, 0.4, a.CornerMed, 1e-9)
	assert.InDelta(t, 0.4, a.CenterMed, 1e-9)
	assert.InDelta(t, 1.0, a.CornerToCenterRatio, 1e-9)
	assert.InDelta(t, 0.0, a.CenterMinusCorner, 1e-9)
	assert.InDelta(t, 0.0, a.CornerStddev, 1e-9)
}

func TestAnalyzeCornersBrightCenter(t *testing.T) {
	// Open sky: bright center, dark vignetted corners.
	lum := uniformPlane(200, 200, 0.1)
	for y := 50; y < 150; y++ {
		for x := 50; x < 150; x++ {
			lum.Set(x, y, 0.8)
		}
	}

	a := imaging.AnalyzeCorners(lum, nil, imaging.DefaultCornerOptions)
	assert.InDelta(t, 0.1, a.CornerMed, 1e-9)
	assert.InDelta(t, 0.8, a.CenterMed, 1e-9)
	assert.Less(t, a.CornerToCenterRatio, 0.5)
	assert.Greater(t, a.CenterMinusCorner, 0.5)
}

func TestAnalyzeCornersDarkCenterRatioDefaults(t *testing.T) {
	lum := uniformPlane(200, 200, 0.0)

	a := imaging.AnalyzeCorners(lum, nil, imaging.DefaultCornerOptions)
	assert.Equal(t, 1.0, a.CornerToCenterRatio, "near-black center must pin the ratio to 1")
}

func TestAnalyzeCornersPerCornerMedians(t *testing.T) {
	lum := uniformPlane(200, 200, 0.2)
	// Brighten only the top-left patch.
	for y := 5; y < 55; y++ {
		for x := 5; x < 55; x++ {
			lum.Set(x, y, 0.6)
		}
	}

	a := imaging.AnalyzeCorners(lum, nil, imaging.DefaultCornerOptions)
	assert.InDelta(t, 0.6, a.CornerMedTL, 1e-9)
	assert.InDelta(t, 0.2, a.CornerMedTR, 1e-9)
	assert.InDelta(t, 0.2, a.CornerMedBL, 1e-9)
	assert.InDelta(t, 0.2, a.CornerMedBR, 1e-9)
}

func TestAnalyzeCornersRGBBias(t *testing.T) {
	img := imaging.NewImage(200, 200, 3)
	fills := []float64{0.3, 0.2, 0.1}
	for c, fill := range fills {
		for i := range img.Ch[c].Pix {
			img.Ch[c].Pix[i] = fill
		}
	}
	lum := img.Luminance()

	a := imaging.AnalyzeCorners(lum, img, imaging.DefaultCornerOptions)
	assert.InDelta(t, 0.3, a.RGBCornerBias["bias_r"], 1e-9)
	assert.InDelta(t, 0.2, a.RGBCornerBias["bias_g"], 1e-9)
	assert.InDelta(t, 0.1, a.RGBCornerBias["bias_b"], 1e-9)
}

func TestAnalyzeCornersTinyFrame(t *testing.T) {
	lum := uniformPlane(20, 20, 0.5)

	a := imaging.AnalyzeCorners(lum, nil, imaging.DefaultCornerOptions)
	assert.InDelta(t, 0.5, a.CornerMed, 1e-9)
	assert.InDelta(t, 1.0, a.CornerToCenterRatio, 1e-9)
}
