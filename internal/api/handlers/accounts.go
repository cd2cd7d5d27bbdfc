// Package handlers exposes the account lifecycle over a small JSON API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pilotlight/switchboard/internal/account"
	"github.com/pilotlight/switchboard/internal/registry"
)

// ListAccountsHandler returns all accounts, optionally filtered by
// ?platform=.
func ListAccountsHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var accounts []*account.Account
		if p := r.URL.Query().Get("platform"); p != "" {
			accounts = reg.ByPlatform(account.Platform(p))
		} else {
			accounts = reg.All()
		}
		out := make([]accountJSON, 0, len(accounts))
		for _, acc := range accounts {
			out = append(out, toAccountJSON(acc))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"accounts": out,
			"count":    len(out),
		})
	}
}

type addAccountRequest struct {
	Platform   string                     `json:"platform"`
	Email      string                     `json:"email"`
	Name       string                     `json:"name"`
	Avatar     string                     `json:"avatar"`
	Credential account.CredentialEnvelope `json:"credential"`
}

// AddAccountHandler validates a draft and persists it through the registry.
func AddAccountHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		cred, err := req.Credential.Credential()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		acc := &account.Account{
			ID:         uuid.New().String(),
			Platform:   account.Platform(req.Platform),
			Email:      req.Email,
			Name:       req.Name,
			Avatar:     req.Avatar,
			CreatedAt:  time.Now(),
			Credential: cred,
			Status:     account.StatusActive,
		}
		if err := reg.Add(r.Context(), acc); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAccountJSON(acc))
	}
}

type updateAccountRequest struct {
	Name       *string                     `json:"name"`
	Avatar     *string                     `json:"avatar"`
	Credential *account.CredentialEnvelope `json:"credential"`
}

// UpdateAccountHandler applies a partial update. Activation is not exposed
// here; switching routes through the orchestrator so the per-platform
// exclusivity protocol always runs.
func UpdateAccountHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req updateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		patch := account.Patch{Name: req.Name, Avatar: req.Avatar}
		if req.Credential != nil {
			cred, err := req.Credential.Credential()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			patch.Credential = cred
		}
		updated, err := reg.Update(r.Context(), id, patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccountJSON(updated))
	}
}

// DeleteAccountHandler removes an account.
func DeleteAccountHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := reg.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	}
}

// QuotaHandler returns the platform quota snapshot for one account.
func QuotaHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		acc := reg.Get(id)
		if acc == nil {
			writeError(w, account.ErrNotFound)
			return
		}
		svc, ok := reg.Service(acc.Platform)
		if !ok {
			writeError(w, &account.ValidationError{Field: "platform", Reason: "is not supported"})
			return
		}
		usage, err := svc.Quota(r.Context(), acc)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, usage)
	}
}
