package models

import "time"

// AccountRecord is the durable account layout. The common fields are
// columns; everything platform-specific (credential material, usage
// snapshot, status) travels in the opaque PlatformData JSON bag.
type AccountRecord struct {
	ID           string `gorm:"primaryKey"` // UUID
	Platform     string `gorm:"index"`
	Email        string
	Name         string
	Avatar       string
	IsActive     bool `gorm:"default:false"`
	LastUsedAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PlatformData string
}

// MachineBinding maps one account to its device fingerprint. One binding
// per account; fingerprints are independent across accounts.
type MachineBinding struct {
	AccountID string `gorm:"primaryKey"`
	MachineID string
	UpdatedAt time.Time
}
