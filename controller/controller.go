package controller

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"

	"github.com/openreef/aquamon/controller/storage"
	"github.com/openreef/aquamon/controller/telemetry"
	"github.com/openreef/aquamon/controller/utils"
)

// ErrorBucket collects subsystem error reports for the UI.
const ErrorBucket = "errors"

// ErrorRecord is one logged subsystem failure.
type ErrorRecord struct {
	ID        string `json:"id"`
	Time      int64  `json:"ts"`
	Subsystem string `json:"subsystem"`
	Message   string `json:"message"`
}

// Daemon assembles the subsystems, the store, telemetry and the HTTP API.
type Daemon struct {
	settings   Settings
	store      storage.Store
	telemetry  telemetry.Telemetry
	subsystems map[string]Subsystem
	order      []string
	auth       *utils.Auth
	server     *http.Server
}

func New(s Settings, store storage.Store, t telemetry.Telemetry) *Daemon {
	return &Daemon{
		settings:   s,
		store:      store,
		telemetry:  t,
		subsystems: make(map[string]Subsystem),
		auth:       utils.NewAuth(s.Auth),
	}
}

func (d *Daemon) Store() storage.Store           { return d.store }
func (d *Daemon) Telemetry() telemetry.Telemetry { return d.telemetry }
func (d *Daemon) Settings() Settings             { return d.settings }

// LogError logs and persists a subsystem failure. Persistence problems are
// only logged; error reporting must never take the daemon down.
func (d *Daemon) LogError(subsystem, msg string) error {
	log.Println("ERROR:", subsystem+":", msg)
	return d.store.Create(ErrorBucket, func(id string) interface{} {
		return &ErrorRecord{
			ID:        id,
			Time:      time.Now().Unix(),
			Subsystem: subsystem,
			Message:   msg,
		}
	})
}

// AddSubsystem registers a subsystem. Registration order is start order.
func (d *Daemon) AddSubsystem(name string, sub Subsystem) {
	d.subsystems[name] = sub
	d.order = append(d.order, name)
}

func (d *Daemon) Subsystem(name string) Subsystem {
	return d.subsystems[name]
}

// Setup prepares buckets and runs every subsystem's Setup.
func (d *Daemon) Setup() error {
	if err := d.store.CreateBucket(ErrorBucket); err != nil {
		return err
	}
	for _, name := range d.order {
		if err := d.subsystems[name].Setup(); err != nil {
			return err
		}
	}
	return nil
}

// Router builds the full API surface: auth endpoints outside the session
// check, everything under /api behind it.
func (d *Daemon) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/auth/signin", d.auth.SignIn).Methods("POST")
	r.HandleFunc("/auth/signout", d.auth.SignOut).Methods("POST")
	r.Handle("/metrics", d.telemetry.MetricsHandler())
	if d.settings.EnableProfile {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	api := r.PathPrefix("/").Subrouter()
	api.Use(d.auth.Middleware)
	api.HandleFunc("/api/errors", d.listErrors).Methods("GET")
	for _, name := range d.order {
		d.subsystems[name].LoadAPI(api)
	}
	return r
}

// Start launches subsystems and the HTTP server (non-blocking).
func (d *Daemon) Start() error {
	for _, name := range d.order {
		d.subsystems[name].Start()
		log.Println("started subsystem:", name)
	}
	d.server = &http.Server{
		Addr:    d.settings.Address,
		Handler: d.Router(),
	}
	go func() {
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Println("ERROR: http server:", err)
		}
	}()
	log.Println("listening on", d.settings.Address)
	return nil
}

// Stop shuts subsystems down in reverse start order, then the server and
// the store.
func (d *Daemon) Stop() {
	for i := len(d.order) - 1; i >= 0; i-- {
		d.subsystems[d.order[i]].Stop()
	}
	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.server.Shutdown(ctx)
	}
	if err := d.store.Close(); err != nil {
		log.Println("ERROR: closing store:", err)
	}
}

func (d *Daemon) listErrors(w http.ResponseWriter, r *http.Request) {
	utils.JSONGetResponse(func() (interface{}, error) {
		records := []ErrorRecord{}
		err := d.store.List(ErrorBucket, func(id string, v []byte) error {
			var rec ErrorRecord
			if jErr := json.Unmarshal(v, &rec); jErr == nil {
				records = append(records, rec)
			}
			return nil
		})
		return records, err
	}, w, r)
}
