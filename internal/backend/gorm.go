// Package backend implements the credential store command surface over a
// local SQLite database. The registry and machine binder treat it as a
// remote, possibly-slow, possibly-failing dependency and pass a context
// into every call.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pilotlight/switchboard/internal/account"
	"github.com/pilotlight/switchboard/internal/db/models"
)

const machineIDKey = "machine_id"

// GormStore persists accounts, machine bindings, and the system machine id.
type GormStore struct {
	db *gorm.DB
}

// Open initializes the SQLite database and runs migrations.
func Open(dbPath string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.AccountRecord{}, &models.MachineBinding{}, &models.Config{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// NewGormStore wraps an already-open connection; used by tests.
func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

// platformData is the opaque bag holding every platform-specific field not
// in the common record set.
type platformData struct {
	Credential account.CredentialEnvelope `json:"credential"`
	Usage      account.Usage              `json:"usage"`
	Status     string                     `json:"status,omitempty"`
	LastError  string                     `json:"last_error,omitempty"`
}

func encodeRecord(acc *account.Account) (models.AccountRecord, error) {
	data, err := json.Marshal(platformData{
		Credential: account.EncodeCredential(acc.Credential),
		Usage:      acc.Usage,
		Status:     string(acc.Status),
		LastError:  acc.LastError,
	})
	if err != nil {
		return models.AccountRecord{}, fmt.Errorf("encode platform data: %w", err)
	}
	return models.AccountRecord{
		ID:           acc.ID,
		Platform:     string(acc.Platform),
		Email:        acc.Email,
		Name:         acc.Name,
		Avatar:       acc.Avatar,
		IsActive:     acc.IsActive,
		LastUsedAt:   acc.LastUsedAt,
		CreatedAt:    acc.CreatedAt,
		PlatformData: string(data),
	}, nil
}

func decodeRecord(rec models.AccountRecord) (*account.Account, error) {
	acc := &account.Account{
		ID:         rec.ID,
		Platform:   account.Platform(rec.Platform),
		Email:      rec.Email,
		Name:       rec.Name,
		Avatar:     rec.Avatar,
		IsActive:   rec.IsActive,
		LastUsedAt: rec.LastUsedAt,
		CreatedAt:  rec.CreatedAt,
	}
	if rec.PlatformData == "" {
		return acc, nil
	}
	var data platformData
	if err := json.Unmarshal([]byte(rec.PlatformData), &data); err != nil {
		return nil, fmt.Errorf("decode platform data for %s: %w", rec.ID, err)
	}
	cred, err := data.Credential.Credential()
	if err != nil {
		return nil, fmt.Errorf("decode credential for %s: %w", rec.ID, err)
	}
	acc.Credential = cred
	acc.Usage = data.Usage
	acc.Status = account.Status(data.Status)
	acc.LastError = data.LastError
	return acc, nil
}

// GetAccounts returns every account, oldest first.
func (s *GormStore) GetAccounts(ctx context.Context) ([]*account.Account, error) {
	var records []models.AccountRecord
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	accounts := make([]*account.Account, 0, len(records))
	for _, rec := range records {
		acc, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func (s *GormStore) AddAccount(ctx context.Context, acc *account.Account) error {
	rec, err := encodeRecord(acc)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *GormStore) UpdateAccount(ctx context.Context, id string, acc *account.Account) error {
	rec, err := encodeRecord(acc)
	if err != nil {
		return err
	}
	rec.ID = id
	result := s.db.WithContext(ctx).Model(&models.AccountRecord{}).Where("id = ?", id).
		Select("Platform", "Email", "Name", "Avatar", "IsActive", "LastUsedAt", "PlatformData").
		Updates(rec)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteAccount(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.AccountRecord{}, "id = ?", id).Error
}

// GetMachineID returns the current system fingerprint, or empty when none
// has been applied yet.
func (s *GormStore) GetMachineID(ctx context.Context) (string, error) {
	var cfg models.Config
	err := s.db.WithContext(ctx).Where("key = ?", machineIDKey).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *GormStore) SetMachineID(ctx context.Context, machineID string) error {
	cfg := models.Config{Key: machineIDKey, Value: machineID}
	return s.db.WithContext(ctx).Save(&cfg).Error
}

func (s *GormStore) BindMachineID(ctx context.Context, accountID, machineID string) error {
	binding := models.MachineBinding{
		AccountID: accountID,
		MachineID: machineID,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Save(&binding).Error
}

// UnbindMachineID removes a binding; removing an absent binding succeeds.
func (s *GormStore) UnbindMachineID(ctx context.Context, accountID string) error {
	return s.db.WithContext(ctx).Delete(&models.MachineBinding{}, "account_id = ?", accountID).Error
}

func (s *GormStore) MachineIDForAccount(ctx context.Context, accountID string) (string, bool, error) {
	var binding models.MachineBinding
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&binding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return binding.MachineID, true, nil
}

func (s *GormStore) AllMachineIDBindings(ctx context.Context) (map[string]string, error) {
	var bindings []models.MachineBinding
	if err := s.db.WithContext(ctx).Find(&bindings).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(bindings))
	for _, b := range bindings {
		out[b.AccountID] = b.MachineID
	}
	return out, nil
}
