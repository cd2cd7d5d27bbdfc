package switcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pilotlight/switchboard/internal/account"
	"github.com/pilotlight/switchboard/internal/machine"
	"github.com/pilotlight/switchboard/internal/registry"
)

// Orchestrator runs the switch protocol. One switch per platform runs at a
// time; steps within a switch execute strictly in order with no
// compensation of completed steps on later failure.
type Orchestrator struct {
	registry *registry.Registry
	binder   *machine.Binder
	locks    platformLocks
}

func New(reg *registry.Registry, binder *machine.Binder) *Orchestrator {
	return &Orchestrator{registry: reg, binder: binder}
}

// Switch makes the target account the sole active account on its platform.
// On success the new active account is returned; on failure a *Failure
// names the step that broke.
func (o *Orchestrator) Switch(ctx context.Context, p account.Platform, targetID string) (*account.Account, error) {
	lock := o.locks.get(string(p))
	lock.Lock()
	defer lock.Unlock()

	// Validating: the target must exist and belong to the platform being
	// switched.
	target := o.registry.Get(targetID)
	if target == nil || target.Platform != p {
		return nil, &Failure{Step: StepValidating, Err: account.ErrNotFound}
	}
	svc, ok := o.registry.Service(p)
	if !ok {
		return nil, &Failure{Step: StepValidating, Err: fmt.Errorf("platform %s is not supported", p)}
	}

	// RefreshingCredential: abort before any mutation so a stale
	// credential can never be activated.
	outcome, err := svc.Refresh(ctx, target)
	if err != nil {
		return nil, &Failure{Step: StepRefreshingCredential, Err: err}
	}

	// EnsuringDeviceBinding: the binding must exist before activation so
	// fingerprint isolation is never bypassed.
	if _, found, err := o.binder.ForAccount(ctx, targetID); err != nil {
		return nil, &Failure{Step: StepEnsuringDeviceBinding, Err: err}
	} else if !found {
		machineID := o.binder.Generate()
		if err := o.binder.Bind(ctx, targetID, machineID); err != nil {
			return nil, &Failure{Step: StepEnsuringDeviceBinding, Err: err}
		}
	}

	// DeactivatingPeers: best effort, account by account. Every peer is
	// attempted; failures are collected and fail the switch afterwards.
	var failedPeers []string
	var firstErr error
	for _, peer := range o.registry.ByPlatform(p) {
		if peer.ID == targetID || !peer.IsActive {
			continue
		}
		if _, err := o.registry.Update(ctx, peer.ID, account.Patch{IsActive: account.Bool(false)}); err != nil {
			failedPeers = append(failedPeers, peer.ID)
			if firstErr == nil {
				firstErr = err
			}
			log.Printf("⚠️ Could not deactivate peer %s: %v", peer.Email, err)
		}
	}
	if len(failedPeers) > 0 {
		return nil, &Failure{Step: StepDeactivatingPeers, Err: firstErr, PeersLeftActive: failedPeers}
	}

	// ActivatingTarget: publish the refreshed credential together with the
	// activation so the two can never be observed apart.
	patch := account.Patch{
		IsActive:   account.Bool(true),
		LastUsedAt: account.Time(time.Now()),
		Status:     account.StatusPtr(account.StatusActive),
		LastError:  account.String(""),
	}
	if outcome.Changed {
		patch.Credential = outcome.Credential
	}
	activated, err := o.registry.Update(ctx, targetID, patch)
	if err != nil {
		return nil, &Failure{Step: StepActivatingTarget, Err: err}
	}
	if err := svc.SwitchInto(ctx, activated); err != nil {
		return nil, &Failure{Step: StepActivatingTarget, Err: err}
	}

	o.registry.Select(p, targetID)
	log.Printf("✅ Switched %s to %s", p, activated.Email)
	return activated, nil
}
