package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/fleetsim/internal/device"
)

// Default sensor parameters applied when a create request omits them.
const (
	defaultSensorMin        = 0
	defaultSensorMax        = 100
	defaultSensorSampleRate = 1
)

// createSensorRequest is the body for POST /api/v1/sensors.
type createSensorRequest struct {
	Name       string   `json:"name"`
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	SampleRate *int     `json:"sample_rate"`
}

// createSwitchRequest is the body for POST /api/v1/switches.
type createSwitchRequest struct {
	Name string `json:"name"`
	Type string `json:"type"` // "active_switch" (default) or "passive_switch"
}

// setStateRequest is the body for PUT .../state.
type setStateRequest struct {
	On *bool `json:"on"`
}

// setSampleRateRequest is the body for PUT /api/v1/sensors/{name}/sample-rate.
type setSampleRateRequest struct {
	SampleRate *int `json:"sample_rate"`
}

// sensorReadingResponse is the wire form of a sensor reading.
type sensorReadingResponse struct {
	Name      string   `json:"name"`
	Value     *float64 `json:"value"`
	PrevValue *float64 `json:"prev_value"`
	Timestamp int64    `json:"timestamp"`
}

// switchStateResponse is the wire form of a switch state.
type switchStateResponse struct {
	Name      string `json:"name"`
	On        bool   `json:"on"`
	Timestamp int64  `json:"timestamp"`
}

func readingResponse(name string, r device.Reading) sensorReadingResponse {
	return sensorReadingResponse{
		Name:      name,
		Value:     r.Value,
		PrevValue: r.PrevValue,
		Timestamp: r.Timestamp,
	}
}

func stateResponse(name string, st device.SwitchState) switchStateResponse {
	return switchStateResponse{Name: name, On: st.On, Timestamp: st.Timestamp}
}

// handleListDevices returns the registered fleet sorted by name.
//
// GET /api/v1/devices
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.manager.Devices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleRemoveDevice stops, evicts and forgets a device of any variant.
//
// DELETE /api/v1/devices/{name}
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.manager.Remove(r.Context(), name); err != nil {
		writeDeviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateSensor registers and enables a new sensor. Omitted range and
// rate fields fall back to [0, 100] at one second.
//
// POST /api/v1/sensors
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var req createSensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cfg := device.SensorConfig{
		Min:                   defaultSensorMin,
		Max:                   defaultSensorMax,
		SampleRate:            defaultSensorSampleRate,
		CorruptionProbability: s.simCfg.CorruptionProbability,
	}
	if req.Min != nil {
		cfg.Min = *req.Min
	}
	if req.Max != nil {
		cfg.Max = *req.Max
	}
	if req.SampleRate != nil {
		cfg.SampleRate = *req.SampleRate
	}

	sensor, err := device.NewSensor(req.Name, cfg)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	if err := s.manager.Add(r.Context(), sensor); err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, device.Info{Name: sensor.Name(), Kind: sensor.Kind()})
}

// handleCreateSwitch registers a new switch. Passive switches start their
// flip loop immediately; active switches sit off until commanded.
//
// POST /api/v1/switches
func (s *Server) handleCreateSwitch(w http.ResponseWriter, r *http.Request) {
	var req createSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var dev device.Device
	switch device.Kind(req.Type) {
	case device.KindPassiveSwitch:
		p, err := device.NewPassiveSwitch(req.Name, device.PassiveSwitchConfig{
			MinPeriod: s.simCfg.PassiveMinPeriod,
			MaxPeriod: s.simCfg.PassiveMaxPeriod,
		})
		if err != nil {
			writeDeviceError(w, err)
			return
		}
		dev = p
	case device.KindSwitch, "":
		sw, err := device.NewSwitch(req.Name)
		if err != nil {
			writeDeviceError(w, err)
			return
		}
		dev = sw
	default:
		writeBadRequest(w, "type must be active_switch or passive_switch")
		return
	}

	if err := s.manager.Add(r.Context(), dev); err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, device.Info{Name: dev.Name(), Kind: dev.Kind()})
}

// handleSensorData performs a timeout-bounded read of one sensor.
//
// GET /api/v1/sensors/{name}
func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	reading, err := s.manager.SensorData(r.Context(), name)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readingResponse(name, reading))
}

// handleAllSensorData reads every sensor in the fleet.
//
// GET /api/v1/sensors
func (s *Server) handleAllSensorData(w http.ResponseWriter, r *http.Request) {
	all, err := s.manager.AllSensorData(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	sensors := make(map[string]sensorReadingResponse, len(all))
	for name, reading := range all {
		sensors[name] = readingResponse(name, reading)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": sensors,
		"count":   len(sensors),
	})
}

// handleEnableSensor re-arms one sensor's production loop.
//
// POST /api/v1/sensors/{name}/enable
func (s *Server) handleEnableSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.manager.EnableSensor(name); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"enabled": name})
}

// handleEnableAllSensors re-arms every sensor, skipping other variants.
//
// POST /api/v1/sensors/enable
func (s *Server) handleEnableAllSensors(w http.ResponseWriter, _ *http.Request) {
	s.manager.EnableAllSensors()
	writeJSON(w, http.StatusOK, map[string]string{"enabled": "all sensors"})
}

// handleSetSampleRate changes one sensor's production cadence.
//
// PUT /api/v1/sensors/{name}/sample-rate
func (s *Server) handleSetSampleRate(w http.ResponseWriter, r *http.Request) {
	var req setSampleRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SampleRate == nil {
		writeBadRequest(w, "sample_rate is required")
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.manager.SetSensorSampleRate(name, *req.SampleRate); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        name,
		"sample_rate": *req.SampleRate,
	})
}

// handleEnableSwitch re-arms one passive switch's flip loop.
//
// POST /api/v1/switches/{name}/enable
func (s *Server) handleEnableSwitch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.manager.EnablePassiveSwitch(name); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"enabled": name})
}

// handleEnableAllSwitches re-arms every passive switch's flip loop,
// skipping sensors and active switches.
//
// POST /api/v1/switches/enable
func (s *Server) handleEnableAllSwitches(w http.ResponseWriter, _ *http.Request) {
	s.manager.EnableAllSwitches()
	writeJSON(w, http.StatusOK, map[string]string{"enabled": "all passive switches"})
}

// handleSwitchState reports one switch's position, active or passive.
//
// GET /api/v1/switches/{name}
func (s *Server) handleSwitchState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, err := s.manager.SwitchState(name)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(name, st))
}

// handleAllSwitchStates reports every switch's position.
//
// GET /api/v1/switches
func (s *Server) handleAllSwitchStates(w http.ResponseWriter, _ *http.Request) {
	all := s.manager.AllSwitchStates()
	switches := make(map[string]switchStateResponse, len(all))
	for name, st := range all {
		switches[name] = stateResponse(name, st)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"switches": switches,
		"count":    len(switches),
	})
}

// handleSetSwitch commands one active switch.
//
// PUT /api/v1/switches/{name}/state
func (s *Server) handleSetSwitch(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.On == nil {
		writeBadRequest(w, "on is required")
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.manager.SetSwitch(r.Context(), name, *req.On); err != nil {
		writeDeviceError(w, err)
		return
	}

	st, err := s.manager.SwitchState(name)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(name, st))
}

// handleSetAllSwitches commands every active switch, skipping passive
// switches and sensors.
//
// PUT /api/v1/switches/state
func (s *Server) handleSetAllSwitches(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.On == nil {
		writeBadRequest(w, "on is required")
		return
	}

	if err := s.manager.SetAllSwitches(r.Context(), *req.On); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"on": *req.On})
}
