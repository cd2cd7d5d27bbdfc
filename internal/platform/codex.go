package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pilotlight/switchboard/internal/account"
)

const (
	// codexTokenURL is the OpenAI OAuth token refresh endpoint.
	codexTokenURL = "https://auth.openai.com/oauth/token"
	// codexClientID is the Codex CLI public client ID.
	codexClientID = "app_EMoamEEZ73f0CkXaXp7hrann"

	codexLookahead = 10 * time.Minute
)

// codexClaims is the claims section of Codex access/id tokens. Parsed
// without signature verification; only used for display and expiry.
type codexClaims struct {
	Email string `json:"email"`
	Auth  struct {
		AccountID string `json:"chatgpt_account_id"`
		PlanType  string `json:"chatgpt_plan_type"` // plus, pro, team
		UserID    string `json:"chatgpt_user_id"`
	} `json:"https://api.openai.com/auth"`
	jwt.RegisteredClaims
}

func parseCodexClaims(token string) (*codexClaims, error) {
	claims := &codexClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	return claims, nil
}

// Codex refreshes ChatGPT OAuth tokens against the OpenAI token endpoint.
type Codex struct {
	Base
	tokenURL   string
	clientID   string
	httpClient *http.Client
}

func NewCodex() *Codex {
	return &Codex{
		tokenURL:   codexTokenURL,
		clientID:   codexClientID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (*Codex) Platform() account.Platform { return account.PlatformCodex }

func (*Codex) RefreshLookahead() time.Duration { return codexLookahead }

func (*Codex) Validate(draft *account.Account) error {
	if draft.Email == "" {
		return &account.ValidationError{Field: "email", Reason: "is required"}
	}
	cred, ok := draft.Credential.(*account.OAuthCredential)
	if !ok || cred.RefreshToken == "" {
		return &account.ValidationError{Field: "credential", Reason: "must include a refresh token"}
	}
	return nil
}

func (c *Codex) Refresh(ctx context.Context, acc *account.Account) (account.RefreshOutcome, error) {
	cred, ok := acc.Credential.(*account.OAuthCredential)
	if !ok {
		return account.RefreshOutcome{}, fmt.Errorf("account %s has no oauth credential", acc.ID)
	}

	data := url.Values{
		"client_id":     {c.clientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
		"scope":         {"openid profile email"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return account.RefreshOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return account.RefreshOutcome{}, &account.RefreshFailure{AccountID: acc.ID, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("refresh failed (%d): %s", resp.StatusCode, string(body))
		return account.RefreshOutcome{}, &account.RefreshFailure{
			AccountID: acc.ID,
			Permanent: resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized,
			Err:       err,
		}
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return account.RefreshOutcome{}, &account.RefreshFailure{
			AccountID: acc.ID,
			Err:       fmt.Errorf("failed to parse refresh response: %w", err),
		}
	}

	next := &account.OAuthCredential{
		AccessToken:  tokenResp.AccessToken,
		IDToken:      tokenResp.IDToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}
	// Persist the rotated refresh token if the endpoint issued one.
	if tokenResp.RefreshToken != "" && tokenResp.RefreshToken != cred.RefreshToken {
		log.Printf("🔄 Rotating Codex refresh token for: %s", acc.Email)
		next.RefreshToken = tokenResp.RefreshToken
	}

	log.Printf("✅ Refreshed Codex token for: %s (expires: %s)",
		acc.Email, next.ExpiresAt.Format(time.RFC3339))
	return account.RefreshOutcome{Credential: next, Changed: true}, nil
}

// Quota maps the ChatGPT plan type from the access token claims to a
// nominal weekly message budget. Usage counters live platform-side and are
// not exposed, so Used stays at zero.
func (*Codex) Quota(_ context.Context, acc *account.Account) (account.Usage, error) {
	cred, ok := acc.Credential.(*account.OAuthCredential)
	if !ok || cred.AccessToken == "" {
		return account.Usage{}, nil
	}
	claims, err := parseCodexClaims(cred.AccessToken)
	if err != nil {
		return account.Usage{}, err
	}
	switch claims.Auth.PlanType {
	case "pro":
		return account.Usage{Total: 3000}, nil
	case "team":
		return account.Usage{Total: 1500}, nil
	case "plus":
		return account.Usage{Total: 300}, nil
	}
	return account.Usage{}, nil
}
