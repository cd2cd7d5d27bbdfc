package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/pilotlight/switchboard/internal/account"
	"github.com/pilotlight/switchboard/internal/db/models"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&models.AccountRecord{}, &models.MachineBinding{}, &models.Config{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewGormStore(db)
}

func TestAccountRoundTrip_PreservesPlatformData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	acc := &account.Account{
		ID:       "acc-1",
		Platform: account.PlatformCodex,
		Email:    "a@example.com",
		Name:     "Work",
		IsActive: true,
		Credential: &account.OAuthCredential{
			AccessToken:  "at",
			RefreshToken: "rt",
			IDToken:      "idt",
			ExpiresAt:    expiry,
		},
		Usage:     account.Usage{Used: 12, Total: 300},
		Status:    account.StatusActive,
		CreatedAt: time.Now().Truncate(time.Second),
	}
	if err := store.AddAccount(ctx, acc); err != nil {
		t.Fatalf("add: %v", err)
	}

	accounts, err := store.GetAccounts(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	got := accounts[0]
	cred, ok := got.Credential.(*account.OAuthCredential)
	if !ok {
		t.Fatalf("credential variant lost: %T", got.Credential)
	}
	if cred.AccessToken != "at" || cred.RefreshToken != "rt" || !cred.ExpiresAt.Equal(expiry) {
		t.Fatalf("credential fields lost: %+v", cred)
	}
	if got.Usage != (account.Usage{Used: 12, Total: 300}) {
		t.Fatalf("usage lost: %+v", got.Usage)
	}
	if got.Status != account.StatusActive {
		t.Fatalf("status lost: %s", got.Status)
	}
}

func TestSessionCredentialRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc := &account.Account{
		ID:         "acc-1",
		Platform:   account.PlatformClaude,
		Email:      "c@example.com",
		Credential: &account.SessionCredential{SessionKey: "sk-ant-xyz"},
		CreatedAt:  time.Now(),
	}
	if err := store.AddAccount(ctx, acc); err != nil {
		t.Fatalf("add: %v", err)
	}
	accounts, err := store.GetAccounts(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	sess, ok := accounts[0].Credential.(*account.SessionCredential)
	if !ok || sess.SessionKey != "sk-ant-xyz" {
		t.Fatalf("session credential lost: %#v", accounts[0].Credential)
	}
}

func TestUpdateAccount_UnknownIDIsNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateAccount(context.Background(), "ghost", &account.Account{ID: "ghost"})
	if !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAccount_OverwritesFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc := &account.Account{
		ID:         "acc-1",
		Platform:   account.PlatformGemini,
		Email:      "g@example.com",
		IsActive:   false,
		Credential: &account.OAuthCredential{AccessToken: "old", RefreshToken: "rt"},
		CreatedAt:  time.Now(),
	}
	if err := store.AddAccount(ctx, acc); err != nil {
		t.Fatalf("add: %v", err)
	}

	acc.IsActive = true
	acc.Credential = &account.OAuthCredential{AccessToken: "new", RefreshToken: "rt"}
	if err := store.UpdateAccount(ctx, "acc-1", acc); err != nil {
		t.Fatalf("update: %v", err)
	}

	accounts, _ := store.GetAccounts(ctx)
	got := accounts[0]
	if !got.IsActive {
		t.Fatal("is_active not persisted")
	}
	if got.Credential.(*account.OAuthCredential).AccessToken != "new" {
		t.Fatal("credential not persisted")
	}
}

func TestDeleteAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.AddAccount(ctx, &account.Account{ID: "acc-1", Platform: account.PlatformCodex, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.DeleteAccount(ctx, "acc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	accounts, _ := store.GetAccounts(ctx)
	if len(accounts) != 0 {
		t.Fatalf("account survived deletion: %d", len(accounts))
	}
}

func TestMachineIDCommands(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Unset machine id reads back empty, not an error.
	machineID, err := store.GetMachineID(ctx)
	if err != nil || machineID != "" {
		t.Fatalf("expected empty machine id, got %q err=%v", machineID, err)
	}

	if err := store.SetMachineID(ctx, "fp-system"); err != nil {
		t.Fatalf("set: %v", err)
	}
	machineID, err = store.GetMachineID(ctx)
	if err != nil || machineID != "fp-system" {
		t.Fatalf("got %q err=%v", machineID, err)
	}

	// Overwrite.
	if err := store.SetMachineID(ctx, "fp-system-2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	machineID, _ = store.GetMachineID(ctx)
	if machineID != "fp-system-2" {
		t.Fatalf("overwrite lost: %q", machineID)
	}
}

func TestBindingCommands(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.BindMachineID(ctx, "acct-1", "fp-1"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := store.BindMachineID(ctx, "acct-2", "fp-2"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	machineID, found, err := store.MachineIDForAccount(ctx, "acct-1")
	if err != nil || !found || machineID != "fp-1" {
		t.Fatalf("lookup: id=%q found=%v err=%v", machineID, found, err)
	}

	// Rebind replaces, does not duplicate.
	if err := store.BindMachineID(ctx, "acct-1", "fp-1b"); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	bindings, err := store.AllMachineIDBindings(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(bindings) != 2 || bindings["acct-1"] != "fp-1b" {
		t.Fatalf("unexpected bindings: %v", bindings)
	}

	// Unbind of an unknown account succeeds.
	if err := store.UnbindMachineID(ctx, "ghost"); err != nil {
		t.Fatalf("unbind unknown: %v", err)
	}
	if err := store.UnbindMachineID(ctx, "acct-1"); err != nil {
		t.Fatalf("unbind: %v", err)
	}
	if _, found, _ := store.MachineIDForAccount(ctx, "acct-1"); found {
		t.Fatal("binding survived unbind")
	}
}
