package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pilotlight/switchboard/internal/account"
	"github.com/pilotlight/switchboard/internal/switcher"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Switch failures keep
// their step name so clients can tell "credential never touched" from
// "peers deactivated but activation failed".
func writeError(w http.ResponseWriter, err error) {
	var (
		verr *account.ValidationError
		perr *account.PersistenceError
		rerr *account.RefreshFailure
	)
	switch {
	case errors.Is(err, account.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
	case errors.As(err, &perr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": perr.Error()})
	case errors.As(err, &rerr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": rerr.Error()})
	default:
		if failure, ok := switcher.AsFailure(err); ok {
			status := http.StatusBadGateway
			if failure.Step == switcher.StepValidating {
				status = http.StatusNotFound
			}
			writeJSON(w, status, map[string]interface{}{
				"error":             failure.Error(),
				"step":              string(failure.Step),
				"peers_left_active": failure.PeersLeftActive,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// accountJSON is the wire shape of an account. Secret material is masked.
type accountJSON struct {
	ID         string         `json:"id"`
	Platform   string         `json:"platform"`
	Email      string         `json:"email"`
	Name       string         `json:"name,omitempty"`
	Avatar     string         `json:"avatar,omitempty"`
	IsActive   bool           `json:"is_active"`
	LastUsedAt time.Time      `json:"last_used_at"`
	CreatedAt  time.Time      `json:"created_at"`
	Status     string         `json:"status,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
	Usage      account.Usage  `json:"usage"`
	Credential credentialJSON `json:"credential"`
}

type credentialJSON struct {
	Kind      string    `json:"kind,omitempty"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func toAccountJSON(acc *account.Account) accountJSON {
	out := accountJSON{
		ID:         acc.ID,
		Platform:   string(acc.Platform),
		Email:      acc.Email,
		Name:       acc.Name,
		Avatar:     acc.Avatar,
		IsActive:   acc.IsActive,
		LastUsedAt: acc.LastUsedAt,
		CreatedAt:  acc.CreatedAt,
		Status:     string(acc.Status),
		LastError:  acc.LastError,
		Usage:      acc.Usage,
	}
	switch cred := acc.Credential.(type) {
	case *account.OAuthCredential:
		out.Credential = credentialJSON{
			Kind:      cred.Kind(),
			Token:     maskToken(cred.AccessToken),
			ExpiresAt: cred.ExpiresAt,
		}
	case *account.SessionCredential:
		out.Credential = credentialJSON{
			Kind:  cred.Kind(),
			Token: maskToken(cred.SessionKey),
		}
	}
	return out
}

func maskToken(t string) string {
	if len(t) < 20 {
		return t
	}
	return "..." + t[len(t)-12:]
}
