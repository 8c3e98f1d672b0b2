package main

import (
	"encoding/json"
	"net/http"

	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/lib/logging"
	"github.com/imagvfx/cocowait/manager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type apiHandler struct {
	m   *manager.Manager
	log *logging.Logger
}

// newAPIMux serves the farm's http api, and metrics gathered from reg.
func newAPIMux(m *manager.Manager, reg prometheus.Gatherer, log *logging.Logger) *http.ServeMux {
	h := &apiHandler{m: m, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", h.handleJobs)
	mux.HandleFunc("/api/cancel", h.handleCancel)
	mux.HandleFunc("/api/workers", h.handleWorkers)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.log.Warn("couldn't write response", "err", err)
	}
}

func (h *apiHandler) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f := manager.JobFilter{
		Target:  r.FormValue("target"),
		Session: r.FormValue("session"),
	}
	if s := r.FormValue("status"); s != "" {
		st, ok := manager.JobStatusFromString(s)
		if !ok {
			http.Error(w, "unknown job status: "+s, http.StatusBadRequest)
			return
		}
		f.Status = &st
	}
	h.writeJSON(w, h.m.Jobs(f))
}

func (h *apiHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.FormValue("id")
	if id == "" {
		http.Error(w, "need a job id", http.StatusBadRequest)
		return
	}
	err := h.m.Cancel(cocowait.JobID(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
}

func (h *apiHandler) handleWorkers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.m.Workers())
}
