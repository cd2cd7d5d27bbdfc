package account

import "time"

// Platform identifies which external AI-coding-tool service an account
// belongs to.
type Platform string

const (
	PlatformClaude Platform = "claude"
	PlatformCodex  Platform = "codex"
	PlatformGemini Platform = "gemini"
)

// Known reports whether p is a platform this build understands.
func (p Platform) Known() bool {
	switch p {
	case PlatformClaude, PlatformCodex, PlatformGemini:
		return true
	}
	return false
}

// Status reflects the outcome of the most recent credential operation.
type Status string

const (
	StatusActive Status = "active"
	StatusError  Status = "error"
)

// Credential is the per-platform secret material. Concrete variants are
// OAuthCredential and SessionCredential; dispatch by type switch.
type Credential interface {
	// Kind returns the wire tag for the variant ("oauth" or "session").
	Kind() string
	// Expiry returns the expiration time and whether the credential
	// expires at all. Session credentials do not.
	Expiry() (time.Time, bool)
}

// OAuthCredential is a refresh/access token pair with expiry.
type OAuthCredential struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
}

func (c *OAuthCredential) Kind() string { return "oauth" }

func (c *OAuthCredential) Expiry() (time.Time, bool) { return c.ExpiresAt, true }

// SessionCredential is a long-lived session/SSO key with no tracked expiry.
type SessionCredential struct {
	SessionKey string
}

func (c *SessionCredential) Kind() string { return "session" }

func (c *SessionCredential) Expiry() (time.Time, bool) { return time.Time{}, false }

// Usage is a point-in-time quota snapshot.
type Usage struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// Account is one stored identity for one platform. The Registry owns the
// in-memory collection; the backend owns the durable copy.
type Account struct {
	ID         string
	Platform   Platform
	Email      string
	Name       string
	Avatar     string
	IsActive   bool
	LastUsedAt time.Time
	CreatedAt  time.Time
	Credential Credential
	Usage      Usage
	Status     Status
	LastError  string
}

// Clone returns a deep copy so callers can never mutate registry state
// through a returned pointer.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	dup := *a
	switch c := a.Credential.(type) {
	case *OAuthCredential:
		cc := *c
		dup.Credential = &cc
	case *SessionCredential:
		cc := *c
		dup.Credential = &cc
	}
	return &dup
}

// RefreshOutcome is the transient result of a credential refresh. It is
// never persisted on its own, only folded into an account update.
type RefreshOutcome struct {
	Credential Credential
	// Changed is false when the platform opted out of refresh and the
	// credential is returned as-is.
	Changed bool
}
