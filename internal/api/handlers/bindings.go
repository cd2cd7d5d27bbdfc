package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pilotlight/switchboard/internal/machine"
)

// BindingsHandler returns the full account→fingerprint map, refreshed from
// the backend.
func BindingsHandler(binder *machine.Binder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bindings, err := binder.AllBindings(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"bindings": bindings,
			"count":    len(bindings),
		})
	}
}

// UnbindHandler destroys one account's binding; succeeds when absent.
func UnbindHandler(binder *machine.Binder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "accountID")
		if err := binder.Unbind(r.Context(), accountID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "unbound", "account_id": accountID})
	}
}

// MachineIDHandler returns the system-wide active fingerprint.
func MachineIDHandler(binder *machine.Binder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		machineID, err := binder.CurrentSystemID(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"machine_id": machineID})
	}
}

// SetMachineIDHandler applies a fingerprint system-wide. An empty body
// field generates a fresh one.
func SetMachineIDHandler(binder *machine.Binder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MachineID string `json:"machine_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.MachineID == "" {
			req.MachineID = binder.Generate()
		}
		if err := binder.SetCurrentSystemID(r.Context(), req.MachineID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"machine_id": req.MachineID})
	}
}
