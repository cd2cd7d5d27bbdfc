// Package platform implements the per-platform capability set: draft
// validation, credential refresh, quota queries, and any platform-specific
// steps of an account switch. Platforms embed Base and override only the
// capabilities they support.
package platform

import (
	"context"
	"log"
	"time"

	"github.com/pilotlight/switchboard/internal/account"
)

// Service is the capability set implemented per platform. Validate is
// mandatory; everything else has safe defaults in Base, so a platform may
// opt out of refresh or quota without touching the registry.
type Service interface {
	Platform() account.Platform
	// Validate checks an account draft before it is persisted.
	Validate(draft *account.Account) error
	// Refresh exchanges the stored credential for a fresh one. The default
	// returns the credential unchanged.
	Refresh(ctx context.Context, acc *account.Account) (account.RefreshOutcome, error)
	// Quota returns a usage snapshot. The default is zeros.
	Quota(ctx context.Context, acc *account.Account) (account.Usage, error)
	// SwitchInto performs platform-specific switch steps after the target
	// account has been activated.
	SwitchInto(ctx context.Context, acc *account.Account) error
	// RefreshLookahead is how early before expiry the auto-refresh
	// scheduler should act. Zero means the platform is not refreshable.
	RefreshLookahead() time.Duration
}

// Base supplies the no-op-safe defaults.
type Base struct{}

func (Base) Refresh(_ context.Context, acc *account.Account) (account.RefreshOutcome, error) {
	return account.RefreshOutcome{Credential: acc.Credential, Changed: false}, nil
}

func (Base) Quota(context.Context, *account.Account) (account.Usage, error) {
	return account.Usage{}, nil
}

func (Base) SwitchInto(_ context.Context, acc *account.Account) error {
	log.Printf("🔀 No platform-specific switch steps for %s (%s)", acc.Email, acc.Platform)
	return nil
}

func (Base) RefreshLookahead() time.Duration { return 0 }

// Registry returns the full set of built-in platform services keyed by tag.
func Registry() map[account.Platform]Service {
	services := []Service{
		NewClaude(),
		NewCodex(),
		NewGemini(),
	}
	byTag := make(map[account.Platform]Service, len(services))
	for _, s := range services {
		byTag[s.Platform()] = s
	}
	return byTag
}
