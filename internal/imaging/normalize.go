package imaging

import (
	"fmt"
	"math/rand"

	"github.com/englishfox90/pfrsentinel/internal/sensor"
)

const normalizeSampleSize = 100000

// NormalizationResult records the inferred effective bit depth of a raw
// frame and the evidence behind the decision. The diagnostics ride along
// on the calibration record so depth misdetections can be audited later.
type NormalizationResult struct {
	Denom  float64
	Reason string

	RawMin                 int
	RawMax                 int
	RawMedian              float64
	RawP99                 float64
	Mul16Rate              float64
	UniqueCount            int
	UniqueRatio            float64
	SampleSize             int
	SuggestedDownshiftBits int
}

// InferNormalization decides the divisor that maps raw counts onto
// [0, 1]. The payload is inspected rather than trusting the declared
// depth: drivers commonly deliver 12-bit data left-shifted into a 16-bit
// container, which a naive /65535 would crush to a sixteenth of range.
// The decision never fails; ambiguous payloads fall through to the full
// container range.
func InferNormalization(frame *sensor.Frame) NormalizationResult {
	res := NormalizationResult{Denom: 65535}

	if frame.BitDepth == 8 {
		res.Denom = 255
		res.Reason = "8-bit capture mode"

		return res
	}

	if len(frame.Pix) == 0 {
		res.Reason = "empty frame, assuming 16-bit range"

		return res
	}

	// Min and max come from the full payload: the depth rules key off the
	// observed maximum, and sampling could miss a handful of hot pixels
	// that prove the upper bits are in use.
	minV, maxV := frame.Pix[0], frame.Pix[0]
	for _, v := range frame.Pix {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	// The remaining diagnostics tolerate sampling.
	sample := samplePixels(frame.Pix, normalizeSampleSize)
	res.SampleSize = len(sample)

	unique := make(map[uint16]struct{}, 4096)
	mul16 := 0
	vals := make([]float64, len(sample))
	for i, v := range sample {
		if v%16 == 0 {
			mul16++
		}
		unique[v] = struct{}{}
		vals[i] = float64(v)
	}

	res.RawMin = int(minV)
	res.RawMax = int(maxV)
	res.RawMedian = Median(vals)
	res.RawP99 = Percentile(vals, 99)
	res.Mul16Rate = float64(mul16) / float64(len(sample))
	res.UniqueCount = len(unique)
	res.UniqueRatio = float64(len(unique)) / float64(len(sample))

	switch {
	case maxV <= 255:
		res.Denom = 255
		res.Reason = fmt.Sprintf("8-bit payload detected (max=%d)", maxV)
	case maxV <= 4095:
		res.Denom = 4095
		res.Reason = fmt.Sprintf("12-bit range detected (max=%d)", maxV)
	case res.Mul16Rate >= 0.90:
		res.Denom = 65535
		res.Reason = fmt.Sprintf("12-bit left-shifted (mul16_rate=%.2f)", res.Mul16Rate)
		res.SuggestedDownshiftBits = 4
	default:
		res.Denom = 65535
		res.Reason = fmt.Sprintf("16-bit range detected (max=%d)", maxV)
	}

	return res
}

// samplePixels picks up to n random pixels, or the whole payload when it
// is already small enough.
func samplePixels(pix []uint16, n int) []uint16 {
	if len(pix) <= n {
		return pix
	}
	rng := rand.New(rand.NewSource(int64(len(pix))))
	sample := make([]uint16, n)
	for i := range sample {
		sample[i] = pix[rng.Intn(len(pix))]
	}

	return sample
}

// Normalize converts a raw frame into a float image in [0, 1] using the
// inferred divisor.
func Normalize(frame *sensor.Frame, norm NormalizationResult) *Image {
	img := NewImage(frame.Width, frame.Height, frame.Channels)
	inv := 1 / norm.Denom
	for c := 0; c < frame.Channels; c++ {
		dst := img.Ch[c].Pix
		for i := range dst {
			dst[i] = clamp01(float64(frame.Pix[i*frame.Channels+c]) * inv)
		}
	}

	return img
}
