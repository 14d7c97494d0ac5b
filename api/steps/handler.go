// Package steps exposes the step log over HTTP.
package steps

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/caltech-netlab/gym-acnportal/core/steplog"
)

// NewHandler returns an HTTP handler exposing step records via GET /api/steps.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
// Supported query parameters: episode_id, start and end (RFC3339) and infeasible.
func NewHandler(store steplog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []steplog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseQuery(r *http.Request) (steplog.Query, error) {
	v := r.URL.Query()
	q := steplog.Query{EpisodeID: v.Get("episode_id")}
	var err error
	if s := v.Get("start"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			return q, err
		}
	}
	if s := v.Get("end"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			return q, err
		}
	}
	if s := v.Get("infeasible"); s != "" {
		if q.InfeasibleOnly, err = strconv.ParseBool(s); err != nil {
			return q, err
		}
	}
	return q, nil
}
