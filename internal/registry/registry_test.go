package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pilotlight/switchboard/internal/account"
)

func TestLoadAll_FailSoftPreservesLocalState(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acc-1", account.PlatformCodex, true, time.Now().Add(time.Hour))

	reg := newTestRegistry(store)
	if err := reg.LoadAll(context.Background()); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	if len(reg.All()) != 1 {
		t.Fatalf("expected 1 account, got %d", len(reg.All()))
	}

	store.mu.Lock()
	store.failGet = true
	store.mu.Unlock()

	err := reg.LoadAll(context.Background())
	if err == nil {
		t.Fatal("expected load error")
	}
	var perr *account.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %T", err)
	}
	// Local state preserved, error marker recorded.
	if len(reg.All()) != 1 {
		t.Fatalf("local state lost on failed reload: %d accounts", len(reg.All()))
	}
	if reg.LoadErr() == nil {
		t.Fatal("expected recorded load error marker")
	}

	store.mu.Lock()
	store.failGet = false
	store.mu.Unlock()
	if err := reg.LoadAll(context.Background()); err != nil {
		t.Fatalf("recovered load: %v", err)
	}
	if reg.LoadErr() != nil {
		t.Fatal("load error marker should clear after success")
	}
}

func TestAdd_BackendFailureLeavesMemoryUnchanged(t *testing.T) {
	store := newFakeStore()
	store.failAdd = true
	reg := newTestRegistry(store)

	err := reg.Add(context.Background(), &account.Account{
		ID:       "acc-1",
		Platform: account.PlatformCodex,
		Email:    "a@example.com",
	})
	if err == nil {
		t.Fatal("expected add to propagate backend failure")
	}
	var perr *account.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %T: %v", err, err)
	}
	if len(reg.All()) != 0 {
		t.Fatal("memory mutated despite backend failure")
	}
}

func TestAdd_RejectsInvalidDraft(t *testing.T) {
	store := newFakeStore()
	reg := newTestRegistry(store)

	err := reg.Add(context.Background(), &account.Account{
		ID:       "acc-1",
		Platform: account.PlatformCodex,
	})
	var verr *account.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}

	err = reg.Add(context.Background(), &account.Account{
		ID:       "acc-2",
		Platform: "mystery",
		Email:    "x@example.com",
	})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unknown platform, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	reg := newTestRegistry(newFakeStore())
	_, err := reg.Update(context.Background(), "ghost", account.Patch{IsActive: account.Bool(true)})
	if !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_PersistsMergedRecordThenPublishes(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acc-1", account.PlatformCodex, false, time.Now().Add(time.Hour))
	reg := newTestRegistry(store)
	if err := reg.LoadAll(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	updated, err := reg.Update(context.Background(), "acc-1", account.Patch{
		CredentialPatch: &account.CredentialPatch{AccessToken: account.String("patched")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	// Backend saw the merged record, not just the patch.
	persisted := store.persisted("acc-1")
	cred := persisted.Credential.(*account.OAuthCredential)
	if cred.AccessToken != "patched" || cred.RefreshToken != "rt-acc-1" {
		t.Fatalf("backend got wrong merge: %+v", cred)
	}
	// Published result matches.
	if updated.Credential.(*account.OAuthCredential).AccessToken != "patched" {
		t.Fatal("published record missing patch")
	}
}

func TestUpdate_BackendFailureKeepsMemory(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acc-1", account.PlatformCodex, false, time.Now().Add(time.Hour))
	reg := newTestRegistry(store)
	if err := reg.LoadAll(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	store.mu.Lock()
	store.failUpdateIDs["acc-1"] = true
	store.mu.Unlock()

	if _, err := reg.Update(context.Background(), "acc-1", account.Patch{IsActive: account.Bool(true)}); err == nil {
		t.Fatal("expected update failure")
	}
	if reg.Get("acc-1").IsActive {
		t.Fatal("memory published despite backend failure")
	}
}

func TestDelete_ClearsSelectedPointer(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acc-1", account.PlatformCodex, true, time.Now().Add(time.Hour))
	reg := newTestRegistry(store)
	if err := reg.LoadAll(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	reg.Select(account.PlatformCodex, "acc-1")
	if err := reg.Delete(context.Background(), "acc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if reg.Get("acc-1") != nil {
		t.Fatal("account still in memory")
	}
	if _, ok := reg.Selected(account.PlatformCodex); ok {
		t.Fatal("selected pointer not cleared")
	}
	if !errors.Is(reg.Delete(context.Background(), "acc-1"), account.ErrNotFound) {
		t.Fatal("second delete should be NotFound")
	}
}

func TestByPlatform_FiltersAndCopies(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acc-1", account.PlatformCodex, true, time.Now().Add(time.Hour))
	seedAccount(store, "acc-2", account.PlatformGemini, false, time.Now().Add(time.Hour))
	reg := newTestRegistry(store,
		&fakeService{tag: account.PlatformCodex},
		&fakeService{tag: account.PlatformGemini},
	)
	if err := reg.LoadAll(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	codex := reg.ByPlatform(account.PlatformCodex)
	if len(codex) != 1 || codex[0].ID != "acc-1" {
		t.Fatalf("unexpected filter result: %+v", codex)
	}
	// Mutating the copy must not leak into registry state.
	codex[0].IsActive = false
	if !reg.Get("acc-1").IsActive {
		t.Fatal("returned pointer aliases registry state")
	}
}
