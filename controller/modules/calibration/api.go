package calibration

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openreef/aquamon/controller/utils"
)

// LoadAPI registers the calibration REST endpoints.
func (m *Controller) LoadAPI(r *mux.Router) {
	sr := r.PathPrefix("/api/calibration").Subrouter()
	sr.HandleFunc("", m.get).Methods("GET")
	sr.HandleFunc("/ph/onepoint", m.phOnePoint).Methods("POST")
	sr.HandleFunc("/ph/twopoint", m.phTwoPoint).Methods("POST")
	sr.HandleFunc("/ph", m.clearPH).Methods("DELETE")
	sr.HandleFunc("/ec", m.calibrateEC).Methods("POST")
	sr.HandleFunc("/ec", m.clearEC).Methods("DELETE")
}

func (m *Controller) get(w http.ResponseWriter, r *http.Request) {
	payload := struct {
		PH PHRecord `json:"ph"`
		EC ECRecord `json:"ec"`
	}{
		PH: m.PHRecord(),
		EC: m.ECRecord(),
	}
	utils.JSONResponse(payload, w, r)
}

func (m *Controller) phOnePoint(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BufferPH float64 `json:"buffer_ph"`
		MV       float64 `json:"mv"`
	}
	utils.JSONUpdateResponse(&payload, func() error {
		return m.PHOnePoint(payload.BufferPH, payload.MV)
	}, w, r)
}

func (m *Controller) phTwoPoint(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Buffer1PH float64 `json:"buffer1_ph"`
		MV1       float64 `json:"mv1"`
		Buffer2PH float64 `json:"buffer2_ph"`
		MV2       float64 `json:"mv2"`
	}
	if err := decodeJSON(&payload, w, r); err != nil {
		return
	}
	if err := m.PHTwoPoint(payload.Buffer1PH, payload.MV1, payload.Buffer2PH, payload.MV2); err != nil {
		writeCalibrationError(err, w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Controller) calibrateEC(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SolutionMS  float64 `json:"solution_ms_cm"`
		Temperature float64 `json:"temperature_c"`
		NA          float64 `json:"na"`
		UV          float64 `json:"uv"`
	}
	if err := decodeJSON(&payload, w, r); err != nil {
		return
	}
	if err := m.CalibrateEC(payload.SolutionMS, payload.Temperature, payload.NA, payload.UV); err != nil {
		writeCalibrationError(err, w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Controller) clearPH(w http.ResponseWriter, r *http.Request) {
	if err := m.ClearPH(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Controller) clearEC(w http.ResponseWriter, r *http.Request) {
	if err := m.ClearEC(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(i interface{}, w http.ResponseWriter, r *http.Request) error {
	if err := json.NewDecoder(r.Body).Decode(i); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return err
	}
	return nil
}

// writeCalibrationError maps bad calibration input to 400 and storage
// failures to 500.
func writeCalibrationError(err error, w http.ResponseWriter) {
	if errors.Is(err, ErrInvalidCalibration) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
