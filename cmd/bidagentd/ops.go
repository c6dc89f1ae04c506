// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxfi/bidagent/pkg/agent"
	"github.com/luxfi/bidagent/pkg/metric"
)

// snapshotter is the read side of the agent the ops surface needs
type snapshotter interface {
	Snapshot() agent.Snapshot
}

// newOpsRouter sets up the health, status and metrics routes
func newOpsRouter(a snapshotter, metrics *metric.Metrics) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", handleHealth(a)).Methods("GET")
	r.HandleFunc("/status", handleStatus(a)).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetGatherer(), promhttp.HandlerOpts{})).Methods("GET")

	return r
}

func handleHealth(a snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := a.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "healthy",
			"session": snap.SessionID,
			"ready":   snap.Ready,
			"version": Version,
		})
	}
}

func handleStatus(a snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.Snapshot())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
