package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pilotlight/switchboard/internal/account"
	"github.com/pilotlight/switchboard/internal/platform"
)

// fakeStore is an in-memory backend with switchable failure modes.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*account.Account
	order    []string

	failGet    bool
	failAdd    bool
	failDelete bool
	// failUpdateIDs makes UpdateAccount fail for the listed ids only.
	failUpdateIDs map[string]bool

	updates []string // ids in update order
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:      make(map[string]*account.Account),
		failUpdateIDs: make(map[string]bool),
	}
}

var errBackendDown = errors.New("backend unavailable")

func (s *fakeStore) GetAccounts(context.Context) ([]*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errBackendDown
	}
	out := make([]*account.Account, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.accounts[id].Clone())
	}
	return out, nil
}

func (s *fakeStore) AddAccount(_ context.Context, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd {
		return errBackendDown
	}
	s.accounts[acc.ID] = acc.Clone()
	s.order = append(s.order, acc.ID)
	return nil
}

func (s *fakeStore) UpdateAccount(_ context.Context, id string, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdateIDs[id] {
		return errBackendDown
	}
	if _, ok := s.accounts[id]; !ok {
		return account.ErrNotFound
	}
	s.accounts[id] = acc.Clone()
	s.updates = append(s.updates, id)
	return nil
}

func (s *fakeStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errBackendDown
	}
	delete(s.accounts, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) persisted(id string) *account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Clone()
}

// fakeService is a scriptable platform service.
type fakeService struct {
	platform.Base
	tag       account.Platform
	lookahead time.Duration
	// refreshFn, when set, replaces the default successful refresh.
	refreshFn func(ctx context.Context, acc *account.Account) (account.RefreshOutcome, error)
}

func (f *fakeService) Platform() account.Platform { return f.tag }

func (f *fakeService) Validate(draft *account.Account) error {
	if draft.Email == "" {
		return &account.ValidationError{Field: "email", Reason: "is required"}
	}
	return nil
}

func (f *fakeService) RefreshLookahead() time.Duration { return f.lookahead }

func (f *fakeService) Refresh(ctx context.Context, acc *account.Account) (account.RefreshOutcome, error) {
	if f.refreshFn != nil {
		return f.refreshFn(ctx, acc)
	}
	return account.RefreshOutcome{
		Credential: &account.OAuthCredential{
			AccessToken:  "refreshed-" + acc.ID,
			RefreshToken: "rt-" + acc.ID,
			ExpiresAt:    time.Now().Add(time.Hour),
		},
		Changed: true,
	}, nil
}

func servicesMap(services ...platform.Service) map[account.Platform]platform.Service {
	byTag := make(map[account.Platform]platform.Service, len(services))
	for _, svc := range services {
		byTag[svc.Platform()] = svc
	}
	return byTag
}

func newTestRegistry(store *fakeStore, services ...platform.Service) *Registry {
	if len(services) == 0 {
		services = []platform.Service{
			&fakeService{tag: account.PlatformCodex, lookahead: 10 * time.Minute},
		}
	}
	return New(store, servicesMap(services...), Options{})
}

func seedAccount(store *fakeStore, id string, p account.Platform, active bool, expiresAt time.Time) *account.Account {
	acc := &account.Account{
		ID:       id,
		Platform: p,
		Email:    id + "@example.com",
		IsActive: active,
		Credential: &account.OAuthCredential{
			AccessToken:  "at-" + id,
			RefreshToken: "rt-" + id,
			ExpiresAt:    expiresAt,
		},
		CreatedAt: time.Now(),
		Status:    account.StatusActive,
	}
	store.accounts[id] = acc
	store.order = append(store.order, id)
	return acc
}
