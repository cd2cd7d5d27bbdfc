// Package machine binds device fingerprints to accounts so that switching
// accounts never presents the same machine identity for two identities.
package machine

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Store is the machine-id slice of the credential store command surface.
type Store interface {
	GetMachineID(ctx context.Context) (string, error)
	SetMachineID(ctx context.Context, machineID string) error
	BindMachineID(ctx context.Context, accountID, machineID string) error
	UnbindMachineID(ctx context.Context, accountID string) error
	MachineIDForAccount(ctx context.Context, accountID string) (string, bool, error)
	AllMachineIDBindings(ctx context.Context) (map[string]string, error)
}

// Binder caches account→fingerprint bindings in front of the backend.
// Bind and Unbind update the cache before the backend write, so the cache
// is the fast path; AllBindings is a cache-replacing full refresh used to
// recover from external changes. Construct one per process and inject it;
// there is no package-level instance.
type Binder struct {
	store Store
	cache *gocache.Cache
}

func NewBinder(store Store) *Binder {
	return &Binder{
		store: store,
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Generate produces a fresh, globally-unique fingerprint: 32 lowercase hex
// characters, same shape as a Linux machine-id.
func (b *Binder) Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CurrentSystemID returns the system-wide active fingerprint, which is
// distinct from any per-account binding.
func (b *Binder) CurrentSystemID(ctx context.Context) (string, error) {
	return b.store.GetMachineID(ctx)
}

// SetCurrentSystemID applies a fingerprint as the system-wide value. The
// backend performs the actual device-level application.
func (b *Binder) SetCurrentSystemID(ctx context.Context, machineID string) error {
	return b.store.SetMachineID(ctx, machineID)
}

// Bind associates a fingerprint with an account. Binding an account that
// already holds the same fingerprint is a no-op.
func (b *Binder) Bind(ctx context.Context, accountID, machineID string) error {
	if cached, ok := b.cache.Get(accountID); ok && cached.(string) == machineID {
		return nil
	}
	b.cache.Set(accountID, machineID, gocache.NoExpiration)
	if err := b.store.BindMachineID(ctx, accountID, machineID); err != nil {
		return err
	}
	log.Printf("🖥️ Bound machine id %s to account %s", shortID(machineID), accountID)
	return nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "…"
}

// Unbind removes an account's binding. Unbinding an unbound account
// succeeds and changes nothing.
func (b *Binder) Unbind(ctx context.Context, accountID string) error {
	b.cache.Delete(accountID)
	return b.store.UnbindMachineID(ctx, accountID)
}

// ForAccount returns the account's bound fingerprint, consulting the cache
// first and falling back to the backend on a miss.
func (b *Binder) ForAccount(ctx context.Context, accountID string) (string, bool, error) {
	if cached, ok := b.cache.Get(accountID); ok {
		return cached.(string), true, nil
	}
	machineID, found, err := b.store.MachineIDForAccount(ctx, accountID)
	if err != nil || !found {
		return "", false, err
	}
	b.cache.Set(accountID, machineID, gocache.NoExpiration)
	return machineID, true, nil
}

// AllBindings fetches the full binding map from the backend and replaces
// the cache with it.
func (b *Binder) AllBindings(ctx context.Context) (map[string]string, error) {
	bindings, err := b.store.AllMachineIDBindings(ctx)
	if err != nil {
		return nil, err
	}
	b.cache.Flush()
	for accountID, machineID := range bindings {
		b.cache.Set(accountID, machineID, gocache.NoExpiration)
	}
	return bindings, nil
}
