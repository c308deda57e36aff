package health

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/openreef/aquamon/controller/utils"
)

func humanBytes(n uint64) string {
	return humanize.IBytes(n)
}

// LoadAPI registers the host health endpoints.
func (m *Controller) LoadAPI(r *mux.Router) {
	sr := r.PathPrefix("/api/health").Subrouter()
	sr.HandleFunc("/summary", m.getSummary).Methods("GET")
	sr.HandleFunc("/usage", m.getUsage).Methods("GET")
}

func (m *Controller) getSummary(w http.ResponseWriter, r *http.Request) {
	utils.JSONGetResponse(func() (interface{}, error) {
		s, err := m.summary()
		if err != nil {
			return nil, err
		}
		return s, nil
	}, w, r)
}

func (m *Controller) getUsage(w http.ResponseWriter, r *http.Request) {
	utils.JSONResponse(m.UsageHistory(), w, r)
}
