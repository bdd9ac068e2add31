package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/englishfox90/pfrsentinel/internal/logger"
)

// Features is the frame summary sent to the sky-condition predictor.
// Field names follow the calibration record so the service can train
// directly against stored records.
type Features struct {
	MedianLum           float64 `json:"median_lum"`
	MeanLum             float64 `json:"mean_lum"`
	CornerToCenterRatio float64 `json:"corner_to_center_ratio"`
	CenterMinusCorner   float64 `json:"center_minus_corner"`
	P99                 float64 `json:"p99"`
	IsDarkScene         bool    `json:"is_dark_scene"`
	Period              string  `json:"period"`
}

// Prediction is the sky-condition label returned by the service.
type Prediction struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Model     string `json:"model,omitempty"`

	Label       string             `json:"label,omitempty"`
	Confidence  float64            `json:"confidence,omitempty"`
	Probability map[string]float64 `json:"probability,omitempty"`
}

// Predictor classifies a frame summary. The model is an opaque external
// service; this process neither trains nor loads it.
type Predictor interface {
	Predict(ctx context.Context, f Features) Prediction
}

type httpPredictor struct {
	url    string
	client *http.Client
	logger logger.Logger
}

// NewHTTPPredictor posts features to a prediction endpoint.
func NewHTTPPredictor(url string, timeout time.Duration, log logger.Logger) Predictor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}

	return &httpPredictor{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

func (p *httpPredictor) Predict(ctx context.Context, f Features) Prediction {
	pred := Prediction{}

	payload, err := json.Marshal(f)
	if err != nil {
		pred.Reason = "bad features: " + err.Error()
		return pred
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		pred.Reason = "bad request: " + err.Error()
		return pred
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		pred.Reason = "unreachable: " + err.Error()
		p.logger.Debug().Err(err).Msg("Prediction service unreachable")
		return pred
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		pred.Reason = "unexpected status: " + resp.Status
		return pred
	}

	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return Prediction{Reason: "bad payload: " + err.Error()}
	}
	pred.Available = true
	pred.Reason = ""

	return pred
}
