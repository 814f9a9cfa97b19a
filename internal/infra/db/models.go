package db

import "time"

type EnvelopeStageModel struct {
	ID                string `gorm:"type:uuid;primaryKey"`
	EnvelopeID        string `gorm:"uniqueIndex;not null"`
	AccountID         string `gorm:"index;not null"`
	EnvelopeStatus    string `gorm:"not null"`
	RecipientStatus   string
	RecipientAuthInfo []byte    `gorm:"type:jsonb"`
	OwnerKind         string    `gorm:"index:idx_envelope_stage_owner;not null"`
	OwnerID           int64     `gorm:"index:idx_envelope_stage_owner;not null"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (EnvelopeStageModel) TableName() string { return "envelope_stage_data" }

type EnvelopeAuditLogModel struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	EnvelopeID      string    `gorm:"index;not null"`
	EventType       string    `gorm:"not null"`
	EventValue      string    `gorm:"not null"`
	EventReceivedAt time.Time `gorm:"not null"`
	OwnerKind       string    `gorm:"not null"`
	OwnerID         int64     `gorm:"not null"`
	RemoteAddr      string
	CreatedAt       time.Time `gorm:"not null"`
}

func (EnvelopeAuditLogModel) TableName() string { return "envelope_audit_log" }

type SigningIdentityModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	OrgKey         string `gorm:"uniqueIndex;not null"`
	APIUsername    string `gorm:"not null"`
	AccountID      string `gorm:"not null"`
	IsDefault      bool   `gorm:"index;not null"`
	AccessToken    string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (SigningIdentityModel) TableName() string { return "signing_identities" }
