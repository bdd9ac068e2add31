package imaging

// CornerOptions sizes the regions sampled by AnalyzeCorners.
type CornerOptions struct {
	ROISize int
	Margin  int
}

// DefaultCornerOptions matches the 50px corner patches inset 5px from
// the frame edge used for enclosure-state features.
var DefaultCornerOptions = CornerOptions{ROISize: 50, Margin: 5}

// CornerAnalysis compares the pooled corner patches against the central
// quarter of the frame. With a closed enclosure the corners see the same
// dark interior as the center; open sky makes the center markedly
// brighter than the vignetted corners, so the ratio separates the two.
type CornerAnalysis struct {
	CornerMed    float64 `json:"corner_med"`
	CornerP90    float64 `json:"corner_p90"`
	CornerStddev float64 `json:"corner_stddev"`

	CornerMedTL float64 `json:"corner_med_tl"`
	CornerMedTR float64 `json:"corner_med_tr"`
	CornerMedBL float64 `json:"corner_med_bl"`
	CornerMedBR float64 `json:"corner_med_br"`

	CenterMed float64 `json:"center_med"`
	CenterP90 float64 `json:"center_p90"`

	CornerToCenterRatio float64 `json:"corner_to_center_ratio"`
	CenterMinusCorner   float64 `json:"center_minus_corner"`

	RGBCornerBias map[string]float64 `json:"rgb_corner_bias,omitempty"`
}

// AnalyzeCorners runs the corner-vs-center comparison on a luminance
// plane. When img is a color image the per-channel corner medians are
// reported as well. Frames too small for the configured ROI shrink the
// patches instead of failing.
func AnalyzeCorners(lum *Plane, img *Image, opts CornerOptions) CornerAnalysis {
	w, h := lum.Width, lum.Height
	roi, margin := opts.ROISize, opts.Margin
	if roi <= 0 {
		roi = DefaultCornerOptions.ROISize
	}
	if margin < 0 {
		margin = DefaultCornerOptions.Margin
	}
	if 2*(roi+margin) > w {
		roi = w/2 - margin
	}
	if 2*(roi+margin) > h {
		roi = h/2 - margin
	}
	if roi < 1 {
		roi = 1
		margin = 0
	}

	corners := cornerRegions(w, h, roi, margin)

	var pooled []float64
	cornerMeds := make([]float64, 4)
	for i, r := range corners {
		vals := regionValues(lum, r)
		cornerMeds[i] = Median(vals)
		pooled = append(pooled, vals...)
	}

	center := region{x0: w / 4, y0: h / 4, x1: 3 * w / 4, y1: 3 * h / 4}
	centerVals := regionValues(lum, center)

	a := CornerAnalysis{
		CornerMed:   Median(pooled),
		CornerP90:   Percentile(pooled, 90),
		CornerMedTL: cornerMeds[0],
		CornerMedTR: cornerMeds[1],
		CornerMedBL: cornerMeds[2],
		CornerMedBR: cornerMeds[3],
		CenterMed:   Median(centerVals),
		CenterP90:   Percentile(centerVals, 90),
	}
	a.CornerStddev = RobustStddev(pooled, a.CornerMed)

	// Near-black centers make the ratio numerically meaningless.
	if a.CenterMed > 0.001 {
		a.CornerToCenterRatio = a.CornerMed / a.CenterMed
	} else {
		a.CornerToCenterRatio = 1.0
	}
	a.CenterMinusCorner = a.CenterMed - a.CornerMed

	if img != nil && img.Color() {
		bias := make(map[string]float64, 3)
		keys := []string{"bias_r", "bias_g", "bias_b"}
		for c, key := range keys {
			var vals []float64
			for _, r := range corners {
				vals = append(vals, regionValues(img.Ch[c], r)...)
			}
			bias[key] = Median(vals)
		}
		a.RGBCornerBias = bias
	}

	return a
}

type region struct {
	x0, y0, x1, y1 int
}

func cornerRegions(w, h, roi, margin int) [4]region {
	return [4]region{
		{x0: margin, y0: margin, x1: margin + roi, y1: margin + roi},
		{x0: w - margin - roi, y0: margin, x1: w - margin, y1: margin + roi},
		{x0: margin, y0: h - margin - roi, x1: margin + roi, y1: h - margin},
		{x0: w - margin - roi, y0: h - margin - roi, x1: w - margin, y1: h - margin},
	}
}

func regionValues(p *Plane, r region) []float64 {
	if r.x0 < 0 {
		r.x0 = 0
	}
	if r.y0 < 0 {
		r.y0 = 0
	}
	if r.x1 > p.Width {
		r.x1 = p.Width
	}
	if r.y1 > p.Height {
		r.y1 = p.Height
	}
	vals := make([]float64, 0, (r.x1-r.x0)*(r.y1-r.y0))
	for y := r.y0; y < r.y1; y++ {
		row := p.Pix[y*p.Width : (y+1)*p.Width]
		vals = append(vals, row[r.x0:r.x1]...)
	}

	return vals
}
