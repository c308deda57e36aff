package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// JSONResponse writes payload as JSON, logging encode failures.
func JSONResponse(payload interface{}, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Println("ERROR: failed to encode json response for", r.URL.Path, ":", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// JSONGetResponse runs fn and writes its result, mapping failure to 500.
func JSONGetResponse(fn func() (interface{}, error), w http.ResponseWriter, r *http.Request) {
	payload, err := fn()
	if err != nil {
		log.Println("ERROR:", r.URL.Path, ":", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	JSONResponse(payload, w, r)
}

// JSONUpdateResponse decodes the request body into i, runs fn and maps
// decode failures to 400, fn failures to 500.
func JSONUpdateResponse(i interface{}, fn func() error, w http.ResponseWriter, r *http.Request) {
	if err := json.NewDecoder(r.Body).Decode(i); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if err := fn(); err != nil {
		log.Println("ERROR:", r.URL.Path, ":", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
