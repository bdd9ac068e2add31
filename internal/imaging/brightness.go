package imaging

// Brightness algorithms, matched against the 0-255 target scale the
// exposure controller works in.
const (
	BrightnessMean       = "mean"
	BrightnessMedian     = "median"
	BrightnessPercentile = "percentile"
)

// Brightness reduces a luminance plane to a single 0-255 value using the
// configured algorithm. Unknown algorithm names fall back to the mean.
func Brightness(lum *Plane, algorithm string, percentile float64) float64 {
	if len(lum.Pix) == 0 {
		return 0
	}
	switch algorithm {
	case BrightnessMedian:
		return Median(lum.Pix) * 255
	case BrightnessPercentile:
		return Percentile(lum.Pix, percentile) * 255
	default:
		return Mean(lum.Pix) * 255
	}
}

const (
	clippingLevel = 245.0 / 255.0
	clippingPct   = 5.0
)

// Clipping returns the percentage of pixels above the highlight level
// and whether that exceeds the 5% threshold where detail is being lost.
func Clipping(lum *Plane) (float64, bool) {
	if len(lum.Pix) == 0 {
		return 0, false
	}
	clipped := 0
	for _, v := range lum.Pix {
		if v > clippingLevel {
			clipped++
		}
	}
	pct := 100 * float64(clipped) / float64(len(lum.Pix))

	return pct, pct > clippingPct
}

// PercentileSummary is the fixed percentile set stamped on every
// calibration record.
type PercentileSummary struct {
	P1  float64 `json:"p1"`
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// SummarizePercentiles evaluates the record percentile set in one pass.
func SummarizePercentiles(lum *Plane) PercentileSummary {
	ps := percentiles(lum.Pix, 1, 10, 50, 90, 99)

	return PercentileSummary{P1: ps[0], P10: ps[1], P50: ps[2], P90: ps[3], P99: ps[4]}
}
