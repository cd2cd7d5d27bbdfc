package platform

import (
	"context"
	"log"
	"strings"

	"github.com/pilotlight/switchboard/internal/account"
)

// Claude accounts carry a long-lived session key rather than a
// refreshable OAuth pair, so the platform opts out of refresh entirely.
type Claude struct {
	Base
}

func NewClaude() *Claude { return &Claude{} }

func (*Claude) Platform() account.Platform { return account.PlatformClaude }

func (*Claude) Validate(draft *account.Account) error {
	if draft.Email == "" {
		return &account.ValidationError{Field: "email", Reason: "is required"}
	}
	sess, ok := draft.Credential.(*account.SessionCredential)
	if !ok || sess.SessionKey == "" {
		return &account.ValidationError{Field: "credential", Reason: "must include a session key"}
	}
	if !strings.HasPrefix(sess.SessionKey, "sk-ant-") {
		return &account.ValidationError{Field: "credential", Reason: "session key must start with sk-ant-"}
	}
	return nil
}

func (*Claude) SwitchInto(_ context.Context, acc *account.Account) error {
	// Session keys are applied by the credential store when it rewrites
	// the tool's local config; nothing extra to do from here.
	log.Printf("🔀 Claude session switched to %s", acc.Email)
	return nil
}
