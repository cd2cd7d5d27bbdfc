package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/pilotlight/switchboard/internal/account"
)

func claudeDraft(sessionKey string) *account.Account {
	return &account.Account{
		Platform:   account.PlatformClaude,
		Email:      "c@example.com",
		Credential: &account.SessionCredential{SessionKey: sessionKey},
	}
}

func TestClaudeValidate(t *testing.T) {
	svc := NewClaude()
	if err := svc.Validate(claudeDraft("sk-ant-sid-123")); err != nil {
		t.Fatalf("valid draft rejected: %v", err)
	}

	var verr *account.ValidationError
	if err := svc.Validate(claudeDraft("totally-wrong")); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bad prefix, got %v", err)
	}
	if err := svc.Validate(claudeDraft("")); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty key, got %v", err)
	}

	oauth := claudeDraft("sk-ant-sid-123")
	oauth.Credential = &account.OAuthCredential{RefreshToken: "rt"}
	if err := svc.Validate(oauth); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for oauth credential, got %v", err)
	}
}

func TestClaudeOptsOutOfRefresh(t *testing.T) {
	svc := NewClaude()
	if svc.RefreshLookahead() != 0 {
		t.Fatal("claude should not participate in scheduled refresh")
	}
	acc := claudeDraft("sk-ant-sid-123")
	outcome, err := svc.Refresh(context.Background(), acc)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if outcome.Changed {
		t.Fatal("refresh must be a no-op")
	}
}

func TestRegistryCoversKnownPlatforms(t *testing.T) {
	services := Registry()
	for _, p := range []account.Platform{account.PlatformClaude, account.PlatformCodex, account.PlatformGemini} {
		svc, ok := services[p]
		if !ok {
			t.Fatalf("missing service for %s", p)
		}
		if svc.Platform() != p {
			t.Fatalf("service platform mismatch: %s vs %s", svc.Platform(), p)
		}
	}
}
