package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pilotlight/switchboard/internal/account"
	"github.com/pilotlight/switchboard/internal/registry"
	"github.com/pilotlight/switchboard/internal/switcher"
)

// SwitchAccountHandler runs the switch protocol for one target account.
func SwitchAccountHandler(reg *registry.Registry, orch *switcher.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		acc := reg.Get(id)
		if acc == nil {
			writeError(w, account.ErrNotFound)
			return
		}
		activated, err := orch.Switch(r.Context(), acc.Platform, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "switched",
			"account": toAccountJSON(activated),
		})
	}
}
