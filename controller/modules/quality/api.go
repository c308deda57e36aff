package quality

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openreef/aquamon/controller/utils"
)

// LoadAPI registers the water-quality REST endpoints.
func (m *Controller) LoadAPI(r *mux.Router) {
	sr := r.PathPrefix("/api/quality").Subrouter()
	sr.HandleFunc("/status", m.getStatus).Methods("GET")
	sr.HandleFunc("/readings", m.getReadings).Methods("GET")
	sr.HandleFunc("/profile", m.getProfile).Methods("GET")
	sr.HandleFunc("/profile/reset", m.resetProfile).Methods("POST")
	sr.HandleFunc("/profile/tanktype", m.setTankType).Methods("POST")
	sr.HandleFunc("/profile/{group}", m.setThreshold).Methods("POST")
	sr.HandleFunc("/watertest", m.getWaterTest).Methods("GET")
	sr.HandleFunc("/watertest", m.setWaterTest).Methods("POST")
}

func (m *Controller) getStatus(w http.ResponseWriter, r *http.Request) {
	warnings, criticals := m.Counts()
	payload := struct {
		Last          *Reading               `json:"last"`
		States        map[string]MetricState `json:"states"`
		WarningCount  int                    `json:"warning_count"`
		CriticalCount int                    `json:"critical_count"`
	}{
		Last:          m.LastReading(),
		States:        m.States(),
		WarningCount:  warnings,
		CriticalCount: criticals,
	}
	utils.JSONResponse(payload, w, r)
}

func (m *Controller) getReadings(w http.ResponseWriter, r *http.Request) {
	utils.JSONGetResponse(func() (interface{}, error) {
		rs, err := m.Readings()
		return rs, err
	}, w, r)
}

func (m *Controller) getProfile(w http.ResponseWriter, r *http.Request) {
	utils.JSONResponse(m.Profile(), w, r)
}

func (m *Controller) resetProfile(w http.ResponseWriter, r *http.Request) {
	if err := m.ResetProfile(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Controller) setTankType(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TankType TankType `json:"tank_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if !payload.TankType.Valid() {
		http.Error(w, "Unknown tank type", http.StatusBadRequest)
		return
	}
	if err := m.SetTankType(payload.TankType); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setThreshold dispatches per-group threshold overrides. Any edit marks
// the profile custom. Band ordering is validated here, at the input edge,
// so the engine never has to.
func (m *Controller) setThreshold(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group"]
	var apply func(*Profile) error
	switch group {
	case "temperature", "ph", "orp", "salinity":
		var t Threshold
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
			return
		}
		if !(t.CritLow <= t.WarnLow && t.WarnLow <= t.WarnHigh && t.WarnHigh <= t.CritHigh) {
			http.Error(w, "Threshold ordering must be crit_low <= warn_low <= warn_high <= crit_high", http.StatusBadRequest)
			return
		}
		apply = func(p *Profile) error {
			switch group {
			case "temperature":
				p.SetTemperature(t)
			case "ph":
				p.SetPH(t)
			case "orp":
				p.SetORP(t)
			case "salinity":
				p.SetSalinity(t)
			}
			return nil
		}
	case "nh3", "conductivity":
		var t HighThreshold
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
			return
		}
		if t.WarnHigh > t.CritHigh {
			http.Error(w, "warn_high must not exceed crit_high", http.StatusBadRequest)
			return
		}
		apply = func(p *Profile) error {
			if group == "nh3" {
				p.SetNH3(t)
			} else {
				p.SetConductivity(t)
			}
			return nil
		}
	case "dissolved_oxygen":
		var t LowThreshold
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
			return
		}
		if t.CritLow > t.WarnLow {
			http.Error(w, "crit_low must not exceed warn_low", http.StatusBadRequest)
			return
		}
		apply = func(p *Profile) error {
			p.SetDissolvedOxygen(t)
			return nil
		}
	case "temperature_rate", "ph_rate":
		var rl RateLimit
		if err := json.NewDecoder(r.Body).Decode(&rl); err != nil {
			http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
			return
		}
		if rl.Warn < 0 || rl.Crit < 0 {
			http.Error(w, "Rate limits must be non-negative", http.StatusBadRequest)
			return
		}
		apply = func(p *Profile) error {
			if group == "temperature_rate" {
				p.SetTemperatureRate(rl)
			} else {
				p.SetPHRate(rl)
			}
			return nil
		}
	default:
		http.Error(w, "Unknown threshold group", http.StatusBadRequest)
		return
	}

	if err := m.UpdateProfile(func(p *Profile) { _ = apply(p) }); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Controller) getWaterTest(w http.ResponseWriter, r *http.Request) {
	utils.JSONResponse(m.WaterTest(), w, r)
}

func (m *Controller) setWaterTest(w http.ResponseWriter, r *http.Request) {
	var t WaterTest
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if t.KHdKH < 0 || t.TANPPM < 0 || t.DOMGL < 0 || t.FishCM < 0 || t.TankVolumeL < 0 || t.TDSFactor < 0 {
		http.Error(w, "Water test values must be non-negative", http.StatusBadRequest)
		return
	}
	if err := m.SetWaterTest(t); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
