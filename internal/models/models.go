package models

import "time"

// License rows are keyed by the user-supplied license key itself, not a
// generated id.
type License struct {
	Key         string     `gorm:"primaryKey;size:64" json:"key"`
	UserName    string     `gorm:"not null;default:''" json:"user_name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	HWID        string     `gorm:"default:''" json:"hwid"`
	Notes       string     `gorm:"default:''" json:"notes"`
	Used        bool       `gorm:"not null;default:false" json:"used"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUpdated time.Time  `json:"last_updated"`
	ResetAt     *time.Time `json:"reset_at,omitempty"`
}

type ActivityLog struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	ActionType  string    `gorm:"not null;index" json:"action_type"`
	LicenseKey  *string   `json:"license_key,omitempty"`
	UserName    *string   `json:"user_name,omitempty"`
	PerformedBy string    `gorm:"not null" json:"performed_by"`
	Details     JSONB     `gorm:"type:jsonb" json:"details"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeletedLicense archives a license row removed through the soft-delete flow
// so it can be restored or purged later.
type DeletedLicense struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalKey string     `gorm:"not null" json:"original_key"`
	UserName    *string    `json:"user_name,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	HWID        *string    `json:"hwid,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	DeletedBy   string     `gorm:"not null" json:"deleted_by"`
	DeletedAt   time.Time  `json:"deleted_at"`
}

type BannedDevice struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceName  string    `gorm:"not null" json:"device_name"`
	BannedAt    time.Time `json:"banned_at"`
	BannedUntil time.Time `gorm:"index" json:"banned_until"`
	BannedBy    string    `gorm:"not null" json:"banned_by"`
	Reason      *string   `json:"reason,omitempty"`
}

// OnlineDevice is presence state. The id is the client-generated device uuid
// so repeat heartbeats from the same browser update one row.
type OnlineDevice struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceName string    `gorm:"not null" json:"device_name"`
	UserType   string    `gorm:"not null" json:"user_type"`
	LastSeen   time.Time `gorm:"index" json:"last_seen"`
	IsOnline   bool      `gorm:"not null;default:true" json:"is_online"`
}
