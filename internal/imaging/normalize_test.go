package imaging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishfox90/pfrsentinel/internal/imaging"
	"github.com/englishfox90/pfrsentinel/internal/sensor"
)

func monoFrame(w, h int, fill func(i int) uint16) *sensor.Frame {
	f := &sensor.Frame{
		Pix:      make([]uint16, w*h),
		Width:    w,
		Height:   h,
		Channels: 1,
		BitDepth: 16,
		ADCBits:  12,
	}
	for i := range f.Pix {
		f.Pix[i] = fill(i)
	}

	return f
}

func TestInferNormalizationDeclared8Bit(t *testing.T) {
	f := monoFrame(64, 64, func(i int) uint16 { return uint16(i % 200) })
	f.BitDepth = 8

	res := imaging.InferNormalization(f)
	assert.Equal(t, 255.0, res.Denom)
	assert.Equal(t, "8-bit capture mode", res.Reason)
}

func TestInferNormalization8BitPayload(t *testing.T) {
	f := monoFrame(64, 64, func(i int) uint16 { return uint16(i % 200) })

	res := imaging.InferNormalization(f)
	assert.Equal(t, 255.0, res.Denom)
	assert.Contains(t, res.Reason, "8-bit payload detected")
	assert.Equal(t, 199, res.RawMax)
}

func TestInferNormalization12BitRange(t *testing.T) {
	f := monoFrame(64, 64, func(i int) uint16 { return uint16(300 + i%3000) })

	res := imaging.InferNormalization(f)
	assert.Equal(t, 4095.0, res.Denom)
	assert.Contains(t, res.Reason, "12-bit range detected")
}

func TestInferNormalizationLeftShifted(t *testing.T) {
	// 12-bit data left-shifted into the 16-bit container: every value a
	// multiple of 16, maximum well above 4095.
	f := monoFrame(128, 128, func(i int) uint16 { return uint16((i % 4096) << 4) })

	res := imaging.InferNormalization(f)
	assert.Equal(t, 65535.0, res.Denom)
	assert.Contains(t, res.Reason, "12-bit left-shifted")
	assert.GreaterOrEqual(t, res.Mul16Rate, 0.90)
	assert.Equal(t, 4, res.SuggestedDownshiftBits)
}

func TestInferNormalizationTrue16Bit(t *testing.T) {
	f := monoFrame(128, 128, func(i int) uint16 { return uint16(5000 + i%60000) })

	res := imaging.InferNormalization(f)
	assert.Equal(t, 65535.0, res.Denom)
	assert.Contains(t, res.Reason, "16-bit range detected")
	assert.Zero(t, res.SuggestedDownshiftBits)
}

func TestInferNormalizationHotPixelsAboveSampleSize(t *testing.T) {
	// A frame too large for exhaustive sampling, sitting in 12-bit range
	// except for one hot pixel proving the upper bits are live. The max
	// must come from the full payload, not the diagnostic sample.
	f := monoFrame(640, 625, func(i int) uint16 { return 3000 })
	f.Pix[123456] = 60000

	res := imaging.InferNormalization(f)
	assert.Equal(t, 65535.0, res.Denom)
	assert.Contains(t, res.Reason, "16-bit range detected (max=60000)")
	assert.Equal(t, 60000, res.RawMax)
	assert.Equal(t, 3000, res.RawMin)
}

func TestNormalizeBounds(t *testing.T) {
	f := monoFrame(32, 32, func(i int) uint16 { return uint16(i * 64) })
	res := imaging.InferNormalization(f)
	img := imaging.Normalize(f, res)

	require.Len(t, img.Ch, 1)
	for _, v := range img.Ch[0].Pix {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestNormalizeColorInterleaved(t *testing.T) {
	f := &sensor.Frame{
		Pix:      []uint16{100, 200, 300, 400, 500, 600},
		Width:    2,
		Height:   1,
		Channels: 3,
		BitDepth: 16,
	}
	res := imaging.InferNormalization(f)
	require.Equal(t, 4095.0, res.Denom)

	img := imaging.Normalize(f, res)
	assert.InDelta(t, 100.0/4095, img.Ch[0].At(0, 0), 1e-9)
	assert.InDelta(t, 200.0/4095, img.Ch[1].At(0, 0), 1e-9)
	assert.InDelta(t, 600.0/4095, img.Ch[2].At(1, 0), 1e-9)
}
