package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pilotlight/switchboard/internal/registry"
)

// RefreshAccountHandler forces a refresh for one account.
func RefreshAccountHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := reg.RefreshAccount(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed", "id": id})
	}
}

// BatchRefreshHandler scans for expiring credentials and refreshes them
// with bounded concurrency. Per-account failures are reported, not raised.
func BatchRefreshHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		due := reg.ScanExpiring(time.Now())
		result := reg.RefreshBatch(r.Context(), due)

		failures := make(map[string]string, len(result.Errors))
		for id, err := range result.Errors {
			failures[id] = err.Error()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"scanned":   len(due),
			"refreshed": result.Refreshed,
			"failed":    result.Failed,
			"errors":    failures,
		})
	}
}
