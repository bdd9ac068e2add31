// Package providers gathers optional external context for calibration
// records: enclosure roof state, weather, and sky-condition prediction.
// Every provider degrades to typed absence; a dead endpoint never fails
// a capture cycle.
package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/englishfox90/pfrsentinel/internal/logger"
)

// RoofState is the enclosure state as reported by the astronomy suite's
// safety monitor. Available false means the record simply omits it.
type RoofState struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Source    string `json:"source,omitempty"`

	RoofOpen   *bool  `json:"roof_open,omitempty"`
	IsSafe     *bool  `json:"is_safe,omitempty"`
	Connected  *bool  `json:"connected,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

// RoofProvider fetches the current enclosure state.
type RoofProvider interface {
	Fetch(ctx context.Context) RoofState
}

const roofEndpoint = "/v2/api/equipment/safetymonitor/info"

// ninaRoof reads the NINA Advanced API safety monitor. The monitor's
// IsSafe flag tracks the roof on observatories that wire it that way,
// which is the convention this provider assumes.
type ninaRoof struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// NewNINARoof points at a NINA Advanced API instance, e.g.
// http://localhost:1888.
func NewNINARoof(baseURL string, timeout time.Duration, log logger.Logger) RoofProvider {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}

	return &ninaRoof{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}
}

type ninaSafetyResponse struct {
	Success  bool   `json:"Success"`
	Error    string `json:"Error"`
	Response struct {
		IsSafe      bool   `json:"IsSafe"`
		Connected   bool   `json:"Connected"`
		Name        string `json:"Name"`
		DisplayName string `json:"DisplayName"`
		Description string `json:"Description"`
	} `json:"Response"`
}

func (p *ninaRoof) Fetch(ctx context.Context) RoofState {
	state := RoofState{Source: "nina"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+roofEndpoint, nil)
	if err != nil {
		state.Reason = "bad request: " + err.Error()
		return state
	}

	resp, err := p.client.Do(req)
	if err != nil {
		state.Reason = "unreachable: " + err.Error()
		p.logger.Debug().Err(err).Msg("Roof provider unreachable")
		return state
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		state.Reason = "unexpected status: " + resp.Status
		return state
	}

	var body ninaSafetyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		state.Reason = "bad payload: " + err.Error()
		return state
	}
	if !body.Success {
		state.Reason = "api error: " + body.Error
		return state
	}

	state.Available = true
	isSafe := body.Response.IsSafe
	connected := body.Response.Connected
	state.IsSafe = &isSafe
	state.Connected = &connected
	state.RoofOpen = &isSafe
	state.DeviceName = body.Response.DisplayName
	if state.DeviceName == "" {
		state.DeviceName = body.Response.Name
	}

	return state
}
