package platform

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/pilotlight/switchboard/internal/account"
)

// Gemini CLI public OAuth client. Overridable through the environment for
// installs that registered their own client.
const (
	defaultGeminiClientID     = "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com"
	defaultGeminiClientSecret = "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"

	geminiLookahead = 15 * time.Minute
)

var geminiScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// Gemini refreshes Google OAuth tokens through the standard token source.
type Gemini struct {
	Base
	cfg *oauth2.Config
}

func NewGemini() *Gemini {
	clientID := os.Getenv("GEMINI_CLIENT_ID")
	if clientID == "" {
		clientID = defaultGeminiClientID
	}
	clientSecret := os.Getenv("GEMINI_CLIENT_SECRET")
	if clientSecret == "" {
		clientSecret = defaultGeminiClientSecret
	}
	return &Gemini{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       geminiScopes,
			Endpoint:     googleoauth.Endpoint,
		},
	}
}

func (*Gemini) Platform() account.Platform { return account.PlatformGemini }

func (*Gemini) RefreshLookahead() time.Duration { return geminiLookahead }

func (*Gemini) Validate(draft *account.Account) error {
	if draft.Email == "" {
		return &account.ValidationError{Field: "email", Reason: "is required"}
	}
	cred, ok := draft.Credential.(*account.OAuthCredential)
	if !ok || cred.RefreshToken == "" {
		return &account.ValidationError{Field: "credential", Reason: "must include a refresh token"}
	}
	return nil
}

func (g *Gemini) Refresh(ctx context.Context, acc *account.Account) (account.RefreshOutcome, error) {
	cred, ok := acc.Credential.(*account.OAuthCredential)
	if !ok {
		return account.RefreshOutcome{}, &account.ValidationError{Field: "credential", Reason: "must be an oauth credential"}
	}

	source := g.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return account.RefreshOutcome{}, &account.RefreshFailure{
			AccountID: acc.ID,
			Permanent: isPermanentRefreshError(err),
			Err:       err,
		}
	}

	next := &account.OAuthCredential{
		AccessToken:  token.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if token.RefreshToken != "" && token.RefreshToken != cred.RefreshToken {
		log.Printf("🔄 Rotating Gemini refresh token for: %s", acc.Email)
		next.RefreshToken = token.RefreshToken
	}

	log.Printf("✅ Refreshed Gemini token for: %s (expires: %s)",
		acc.Email, token.Expiry.Format(time.RFC3339))
	return account.RefreshOutcome{Credential: next, Changed: true}, nil
}

// isPermanentRefreshError distinguishes revoked/expired grants from
// transient network or endpoint failures.
func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
