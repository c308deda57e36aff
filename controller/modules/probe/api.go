package probe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/openreef/aquamon/controller/utils"
)

// LoadAPI registers the probe REST endpoints.
func (m *Controller) LoadAPI(r *mux.Router) {
	sr := r.PathPrefix("/api/probe").Subrouter()
	sr.HandleFunc("/config", m.getConfig).Methods("GET")
	sr.HandleFunc("/config", m.putConfig).Methods("PUT")
	sr.HandleFunc("/raw", m.getRaw).Methods("GET")
	sr.HandleFunc("/status", m.getStatus).Methods("GET")
	sr.HandleFunc("/capture/{channel}", m.enqueueCapture).Methods("POST")
	sr.HandleFunc("/captures/{channel}", m.listCaptures).Methods("GET")
	sr.HandleFunc("/queue", m.queueList).Methods("GET")
	sr.HandleFunc("/queue/{channel}", m.queueCancel).Methods("DELETE")
	sr.HandleFunc("/log", m.logList).Methods("GET")
}

func (m *Controller) getConfig(w http.ResponseWriter, r *http.Request) {
	utils.JSONGetResponse(func() (interface{}, error) {
		return m.Get("default")
	}, w, r)
}

func (m *Controller) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	cfg.ID = "default"
	transforms, err := compileTransforms(cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	old, loadErr := m.Get("default")
	if err := m.CreateOrUpdate(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	m.mu.Lock()
	m.transforms = transforms
	m.mu.Unlock()
	// Restart the reminder loop when the schedule changed.
	if loadErr == nil && old.MaintenanceSchedule != cfg.MaintenanceSchedule && m.quit != nil {
		close(m.quit)
		m.quit = make(chan struct{})
		StartSchedule(cfg.MaintenanceSchedule, m.quit, func() {
			m.appendLog("Maintenance due: clean probe and verify calibration")
			_ = m.c.Telemetry().Alert("probe", "probe maintenance due")
		})
	}
	m.appendLog("Probe configuration saved")
	w.WriteHeader(http.StatusNoContent)
}

func (m *Controller) getRaw(w http.ResponseWriter, r *http.Request) {
	utils.JSONGetResponse(func() (interface{}, error) {
		s, err := m.ReadRaw()
		if err != nil {
			return nil, err
		}
		return s, nil
	}, w, r)
}

func (m *Controller) getStatus(w http.ResponseWriter, r *http.Request) {
	st, err := m.Status()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	m.mu.Lock()
	capturing := m.capturing
	m.mu.Unlock()
	utils.JSONResponse(struct {
		Status    int    `json:"status"`
		Capturing string `json:"capturing"`
	}{Status: st, Capturing: capturing}, w, r)
}

func (m *Controller) enqueueCapture(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	if _, ok := channelOpcodes[channel]; !ok {
		http.Error(w, "Unknown channel", http.StatusBadRequest)
		return
	}
	if err := m.queue.AddTask(channel); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	m.appendLog(fmt.Sprintf("%s: Capture enqueued", channel))
	w.WriteHeader(http.StatusNoContent)
}

func (m *Controller) listCaptures(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	var out []map[string]interface{}
	_ = m.c.Store().List(captureBucket, func(_ string, v []byte) error {
		var rec CaptureResult
		if err := json.Unmarshal(v, &rec); err == nil && rec.Channel == channel {
			out = append(out, map[string]interface{}{
				"ts":    rec.Ts,
				"time":  time.Unix(rec.Ts, 0).Local().Format("15:04:05"),
				"value": rec.Value,
			})
		}
		return nil
	})
	utils.JSONResponse(out, w, r)
}

func (m *Controller) queueList(w http.ResponseWriter, r *http.Request) {
	utils.JSONGetResponse(func() (interface{}, error) {
		tasks, err := m.queue.ListTasks()
		return tasks, err
	}, w, r)
}

func (m *Controller) queueCancel(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	if err := m.queue.RemoveTask(channel); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.appendLog(fmt.Sprintf("%s: Pending capture canceled", channel))
	w.WriteHeader(http.StatusNoContent)
}

func (m *Controller) logList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	logs := append([]string{}, m.logs...)
	m.mu.Unlock()
	utils.JSONResponse(logs, w, r)
}
