// Package calibration assembles and persists the per-frame calibration
// record: everything needed to reproduce or audit how a frame was
// normalized, analyzed and stretched.
package calibration

import (
	"encoding/json"
	"time"

	"github.com/englishfox90/pfrsentinel/internal/astro"
	"github.com/englishfox90/pfrsentinel/internal/errors"
	"github.com/englishfox90/pfrsentinel/internal/imaging"
	"github.com/englishfox90/pfrsentinel/internal/providers"
	"github.com/englishfox90/pfrsentinel/internal/stretch"
)

// Normalization is the bit-depth decision and its evidence.
type Normalization struct {
	Denom     int     `json:"denom"`
	Reason    string  `json:"reason"`
	RawMin    int     `json:"raw_min"`
	RawMax    int     `json:"raw_max"`
	Mul16Rate float64 `json:"mul16_rate"`

	UniqueRatio            float64 `json:"unique_ratio,omitempty"`
	UniqueCount            int     `json:"unique_count,omitempty"`
	SuggestedDownshiftBits int     `json:"suggested_downshift_bits,omitempty"`
}

// NormalizationFrom flattens the analyzer output into record shape.
func NormalizationFrom(res imaging.NormalizationResult) Normalization {
	return Normalization{
		Denom:                  int(res.Denom),
		Reason:                 res.Reason,
		RawMin:                 res.RawMin,
		RawMax:                 res.RawMax,
		Mul16Rate:              res.Mul16Rate,
		UniqueRatio:            res.UniqueRatio,
		UniqueCount:            res.UniqueCount,
		SuggestedDownshiftBits: res.SuggestedDownshiftBits,
	}
}

// TimeContextInfo is the compact solar classification on the record.
type TimeContextInfo struct {
	Period              string `json:"period"`
	DetailedPeriod      string `json:"detailed_period"`
	IsDaylight          bool   `json:"is_daylight"`
	IsAstronomicalNight bool   `json:"is_astronomical_night"`
}

// TimeContextFrom trims a full context down to record shape.
func TimeContextFrom(tc astro.TimeContext) TimeContextInfo {
	return TimeContextInfo{
		Period:              tc.Period,
		DetailedPeriod:      tc.DetailedPeriod,
		IsDaylight:          tc.IsDaylight,
		IsAstronomicalNight: tc.IsAstronomicalNight,
	}
}

// StretchInfo is the subset of stretch measurements kept on the record.
type StretchInfo struct {
	BlackPoint  float64 `json:"black_point"`
	WhitePoint  float64 `json:"white_point"`
	MedianLum   float64 `json:"median_lum"`
	IsDarkScene bool    `json:"is_dark_scene"`

	MeanLum             float64 `json:"mean_lum,omitempty"`
	DynamicRange        float64 `json:"dynamic_range,omitempty"`
	RecommendedStrength float64 `json:"recommended_asinh_strength,omitempty"`
}

// StretchFrom flattens a stretch result into record shape.
func StretchFrom(res stretch.Result) StretchInfo {
	return StretchInfo{
		BlackPoint:          res.BlackPoint,
		WhitePoint:          res.WhitePoint,
		MedianLum:           res.MedianLum,
		IsDarkScene:         res.IsDarkScene,
		MeanLum:             res.MeanLum,
		DynamicRange:        res.DynamicRange,
		RecommendedStrength: res.RecommendedStrength,
	}
}

// Record is one frame's calibration data. Optional context sub-objects
// are pointers so a disabled or failed provider leaves them absent
// rather than zero-filled.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Session   string    `json:"session,omitempty"`
	Camera    string    `json:"camera,omitempty"`

	ExposureSec float64 `json:"exposure_sec"`
	Gain        int     `json:"gain"`

	Normalization  Normalization             `json:"normalization"`
	Percentiles    imaging.PercentileSummary `json:"percentiles"`
	CornerAnalysis imaging.CornerAnalysis    `json:"corner_analysis"`
	Stretch        StretchInfo               `json:"stretch"`
	TimeContext    TimeContextInfo           `json:"time_context"`

	RoofState      *providers.RoofState  `json:"roof_state,omitempty"`
	WeatherContext *providers.Weather    `json:"weather_context,omitempty"`
	MLPrediction   *providers.Prediction `json:"ml_prediction,omitempty"`
	MoonContext    *astro.MoonContext    `json:"moon_context,omitempty"`
}

// Encode serializes the record for storage.
func (r *Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrRecordEncode, err)
	}

	return data, nil
}

// Decode parses a stored record payload.
func Decode(data []byte) (*Record, error) {
	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, errors.New().Wrap(errors.ErrRecordEncode, err)
	}

	return rec, nil
}
