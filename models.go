package main

import (
	"time"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Pseudo       *string
	FirstName    *string
	LastName     *string
	Email        string `gorm:"uniqueIndex;not null"` // normalized: trimmed + lowercased
	PasswordHash string `gorm:"not null"`
	Phone        *string
	Organization *string
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;not null"` // sha256 of the raw secret; the secret itself is never stored
	ExpiresAt time.Time `gorm:"index;not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// ResetRequestLog is append-only; rows outside the rate-limit window are
// ignored at count time, not deleted.
type ResetRequestLog struct {
	ID         uint      `gorm:"primaryKey"`
	Identifier string    `gorm:"index"`
	Source     string    `gorm:"index"`
	CreatedAt  time.Time `gorm:"index;autoCreateTime"`
}

type AnonCounter struct {
	ID        string    `gorm:"primaryKey"`
	Count     int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRefused  = "refused"
)

// Contribution is the moderation record attached to a stored upload,
// keyed by the generated storage name.
type Contribution struct {
	Name          string `gorm:"primaryKey"`
	OriginalName  string `gorm:"not null"`
	UploaderEmail *string
	UploadedAt    time.Time
	Status        string `gorm:"index;not null;default:'pending'"`
	ReviewedBy    *string
	ReviewedAt    *time.Time
}
