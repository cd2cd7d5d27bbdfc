// Package registry holds the in-memory source of truth for all accounts
// across platforms. Every mutation goes through the credential store
// backend first and is published to memory only after the backend call
// succeeds, so a failed write can never corrupt local state.
package registry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pilotlight/switchboard/internal/account"
	"github.com/pilotlight/switchboard/internal/platform"
)

// Store is the slice of the credential store command surface the registry
// needs. The backend may be slow or failing; every call takes a context.
type Store interface {
	GetAccounts(ctx context.Context) ([]*account.Account, error)
	AddAccount(ctx context.Context, acc *account.Account) error
	UpdateAccount(ctx context.Context, id string, acc *account.Account) error
	DeleteAccount(ctx context.Context, id string) error
}

const (
	// DefaultCallTimeout bounds each backend round trip.
	DefaultCallTimeout = 30 * time.Second
	// DefaultRefreshConcurrency caps in-flight refreshes in a batch.
	DefaultRefreshConcurrency = 10
)

// Options tunes registry behavior; zero values pick the defaults.
type Options struct {
	CallTimeout        time.Duration
	RefreshConcurrency int
}

// Registry mediates every account mutation through the backend and keeps
// the in-memory collection consistent with it. Concurrent updates on
// different accounts are independent; concurrent updates on the same
// account are last-write-wins.
type Registry struct {
	store    Store
	services map[account.Platform]platform.Service

	timeout    time.Duration
	refreshCap int

	mu       sync.RWMutex
	accounts map[string]*account.Account
	order    []string
	selected map[account.Platform]string
	loadErr  error
}

// New builds a registry over the given backend and platform services.
func New(store Store, services map[account.Platform]platform.Service, opts Options) *Registry {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.RefreshConcurrency <= 0 {
		opts.RefreshConcurrency = DefaultRefreshConcurrency
	}
	return &Registry{
		store:      store,
		services:   services,
		timeout:    opts.CallTimeout,
		refreshCap: opts.RefreshConcurrency,
		accounts:   make(map[string]*account.Account),
		selected:   make(map[account.Platform]string),
	}
}

func (r *Registry) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// LoadAll replaces local state with the full set from the backend. It
// fails soft: on error local state is preserved and the error is recorded,
// readable via LoadErr.
func (r *Registry) LoadAll(ctx context.Context) error {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()

	accounts, err := r.store.GetAccounts(cctx)
	if err != nil {
		perr := &account.PersistenceError{Op: "get_accounts", Err: err}
		r.mu.Lock()
		r.loadErr = perr
		r.mu.Unlock()
		return perr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = make(map[string]*account.Account, len(accounts))
	r.order = r.order[:0]
	for _, acc := range accounts {
		r.accounts[acc.ID] = acc
		r.order = append(r.order, acc.ID)
	}
	r.loadErr = nil
	log.Printf("📦 Loaded %d accounts from backend", len(accounts))
	return nil
}

// LoadErr returns the error marker from the most recent failed LoadAll,
// or nil after a successful load.
func (r *Registry) LoadErr() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadErr
}

// Add validates the draft with its platform service, persists it, and only
// then appends it to memory. Backend failure propagates and memory is left
// unchanged.
func (r *Registry) Add(ctx context.Context, acc *account.Account) error {
	svc, ok := r.services[acc.Platform]
	if !ok {
		return &account.ValidationError{Field: "platform", Reason: "is not supported"}
	}
	if err := svc.Validate(acc); err != nil {
		return err
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now()
	}
	if acc.Status == "" {
		acc.Status = account.StatusActive
	}

	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	if err := r.store.AddAccount(cctx, acc); err != nil {
		return &account.PersistenceError{Op: "add_account", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[acc.ID] = acc.Clone()
	r.order = append(r.order, acc.ID)
	return nil
}

// Update deep-merges the patch into the current record, persists the
// merged record, then publishes it into memory. Returns ErrNotFound when
// the id is absent. The merge result is what gets published, so partial
// credential updates never clobber sibling fields.
func (r *Registry) Update(ctx context.Context, id string, patch account.Patch) (*account.Account, error) {
	r.mu.RLock()
	current, ok := r.accounts[id]
	var merged *account.Account
	if ok {
		merged = patch.Apply(current)
	}
	r.mu.RUnlock()
	if !ok {
		return nil, account.ErrNotFound
	}

	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	if err := r.store.UpdateAccount(cctx, id, merged); err != nil {
		return nil, &account.PersistenceError{Op: "update_account", Err: err}
	}

	r.mu.Lock()
	r.accounts[id] = merged
	r.mu.Unlock()
	return merged.Clone(), nil
}

// Delete persists the deletion, then removes the account from memory and
// clears the platform's selected pointer if it referenced the account.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.RLock()
	acc, ok := r.accounts[id]
	r.mu.RUnlock()
	if !ok {
		return account.ErrNotFound
	}

	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	if err := r.store.DeleteAccount(cctx, id); err != nil {
		return &account.PersistenceError{Op: "delete_account", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.selected[acc.Platform] == id {
		delete(r.selected, acc.Platform)
	}
	return nil
}

// Get returns a copy of the account, or nil when absent. Pure read.
func (r *Registry) Get(id string) *account.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts[id].Clone()
}

// ByPlatform returns copies of all accounts on one platform, in load
// order. Pure read, no I/O.
func (r *Registry) ByPlatform(p account.Platform) []*account.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*account.Account
	for _, id := range r.order {
		if acc := r.accounts[id]; acc.Platform == p {
			out = append(out, acc.Clone())
		}
	}
	return out
}

// All returns copies of every account, in load order.
func (r *Registry) All() []*account.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*account.Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.accounts[id].Clone())
	}
	return out
}

// Select records id as the tracked selection for its platform. Cleared
// automatically when the account is deleted.
func (r *Registry) Select(p account.Platform, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected[p] = id
}

// Selected returns the tracked selection pointer for a platform.
func (r *Registry) Selected(p account.Platform) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.selected[p]
	return id, ok
}

// Service returns the platform service for a tag.
func (r *Registry) Service(p account.Platform) (platform.Service, bool) {
	svc, ok := r.services[p]
	return svc, ok
}
