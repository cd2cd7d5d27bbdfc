package account

import (
	"fmt"
	"time"
)

// CredentialEnvelope is the JSON shape credentials travel in, both inside
// the backend's opaque platform_data bag and over the management API.
type CredentialEnvelope struct {
	Kind         string    `json:"kind"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	SessionKey   string    `json:"session_key,omitempty"`
}

// EncodeCredential wraps a credential variant into its envelope.
func EncodeCredential(c Credential) CredentialEnvelope {
	switch cc := c.(type) {
	case *OAuthCredential:
		return CredentialEnvelope{
			Kind:         cc.Kind(),
			AccessToken:  cc.AccessToken,
			RefreshToken: cc.RefreshToken,
			IDToken:      cc.IDToken,
			ExpiresAt:    cc.ExpiresAt,
		}
	case *SessionCredential:
		return CredentialEnvelope{
			Kind:       cc.Kind(),
			SessionKey: cc.SessionKey,
		}
	}
	return CredentialEnvelope{}
}

// Credential unwraps the envelope back into its variant.
func (e CredentialEnvelope) Credential() (Credential, error) {
	switch e.Kind {
	case "oauth":
		return &OAuthCredential{
			AccessToken:  e.AccessToken,
			RefreshToken: e.RefreshToken,
			IDToken:      e.IDToken,
			ExpiresAt:    e.ExpiresAt,
		}, nil
	case "session":
		return &SessionCredential{SessionKey: e.SessionKey}, nil
	case "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown credential kind: %q", e.Kind)
}
