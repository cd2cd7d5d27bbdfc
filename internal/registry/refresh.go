package registry

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pilotlight/switchboard/internal/account"
)

// RefreshAccount runs the platform's credential refresh for one account.
// On success the new credential is written back and the account's status
// returns to active with any prior error cleared. On failure the account
// is marked with status error and the reason; it is never removed.
func (r *Registry) RefreshAccount(ctx context.Context, id string) error {
	acc := r.Get(id)
	if acc == nil {
		return account.ErrNotFound
	}
	svc, ok := r.services[acc.Platform]
	if !ok {
		return &account.ValidationError{Field: "platform", Reason: "is not supported"}
	}

	cctx, cancel := r.callCtx(ctx)
	outcome, err := svc.Refresh(cctx, acc)
	cancel()
	if err != nil {
		var rf *account.RefreshFailure
		if !errors.As(err, &rf) {
			rf = &account.RefreshFailure{AccountID: id, Err: err}
		}
		log.Printf("❌ Refresh failed for %s: %v", acc.Email, err)
		if _, uerr := r.Update(ctx, id, account.Patch{
			Status:    account.StatusPtr(account.StatusError),
			LastError: account.String(rf.Err.Error()),
		}); uerr != nil {
			log.Printf("⚠️ Could not record refresh error for %s: %v", acc.Email, uerr)
		}
		return rf
	}

	patch := account.Patch{
		Status:    account.StatusPtr(account.StatusActive),
		LastError: account.String(""),
	}
	if outcome.Changed {
		patch.Credential = outcome.Credential
	}
	if _, err := r.Update(ctx, id, patch); err != nil {
		return err
	}
	return nil
}

// BatchResult summarizes a bounded-concurrency batch refresh.
type BatchResult struct {
	Refreshed int
	Failed    int
	// Errors maps account id to its isolated failure; peers are unaffected.
	Errors map[string]error
}

// RefreshBatch refreshes the given accounts with at most the configured
// number of refreshes in flight at once. Individual failures are recorded
// per account and never abort the batch.
func (r *Registry) RefreshBatch(ctx context.Context, ids []string) BatchResult {
	sem := semaphore.NewWeighted(int64(r.refreshCap))
	result := BatchResult{Errors: make(map[string]error)}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Failed++
			result.Errors[id] = err
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)
			err := r.RefreshAccount(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors[id] = err
				return
			}
			result.Refreshed++
		}(id)
	}
	wg.Wait()

	if result.Failed > 0 {
		log.Printf("🔄 Batch refresh done: %d ok, %d failed", result.Refreshed, result.Failed)
	} else if result.Refreshed > 0 {
		log.Printf("🔄 Batch refresh done: %d ok", result.Refreshed)
	}
	return result
}

// ScanExpiring returns the ids of accounts on refreshable platforms whose
// credentials expire within the platform's lookahead window, or already
// have.
func (r *Registry) ScanExpiring(now time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []string
	for _, id := range r.order {
		acc := r.accounts[id]
		svc, ok := r.services[acc.Platform]
		if !ok {
			continue
		}
		lookahead := svc.RefreshLookahead()
		if lookahead <= 0 {
			continue
		}
		expiry, expires := credentialExpiry(acc)
		if !expires {
			continue
		}
		if expiry.Before(now.Add(lookahead)) {
			due = append(due, id)
		}
	}
	return due
}

func credentialExpiry(acc *account.Account) (time.Time, bool) {
	if acc.Credential == nil {
		return time.Time{}, false
	}
	return acc.Credential.Expiry()
}
