package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenUsed    = errors.New("token already used")
	ErrTokenExpired = errors.New("token expired")
)

const (
	resetTokenTTL    = time.Hour
	resetWindow      = time.Hour
	maxPerIdentifier = 5
	maxPerSource     = 20
)

// ResetService drives the password-reset token lifecycle. Every branch of
// RequestReset converges on the same generic acknowledgment so callers can
// never probe which accounts exist.
type ResetService struct {
	db       *gorm.DB
	users    *AuthService
	notifier Notifier
	verifier ChallengeVerifier // nil when no anti-automation challenge is configured
	log      *zap.Logger
}

func NewResetService(database *gorm.DB, users *AuthService, notifier Notifier, verifier ChallengeVerifier, log *zap.Logger) *ResetService {
	return &ResetService{db: database, users: users, notifier: notifier, verifier: verifier, log: log}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RequestReset handles a reset request for identifier originating from
// source. It returns the reset link for debug exposure; the handler decides
// whether the caller may see it. The returned link is empty on every
// short-circuited branch.
func (s *ResetService) RequestReset(ctx context.Context, identifier, source, challengeToken string) string {
	identifier = normalizeEmail(identifier)
	if identifier == "" {
		return ""
	}

	cutoff := time.Now().Add(-resetWindow)

	var byIdentifier int64
	if err := s.db.Model(&ResetRequestLog{}).
		Where("identifier = ? AND created_at > ?", identifier, cutoff).
		Count(&byIdentifier).Error; err != nil {
		s.log.Error("reset: counting requests by identifier", zap.Error(err))
		return ""
	}
	if byIdentifier >= maxPerIdentifier {
		return ""
	}

	var bySource int64
	if err := s.db.Model(&ResetRequestLog{}).
		Where("source = ? AND created_at > ?", source, cutoff).
		Count(&bySource).Error; err != nil {
		s.log.Error("reset: counting requests by source", zap.Error(err))
		return ""
	}
	if bySource >= maxPerSource {
		return ""
	}

	if s.verifier != nil {
		if challengeToken == "" || !s.verifier.Verify(ctx, challengeToken) {
			return ""
		}
	}

	// Best-effort audit log; a failed insert must not abort the flow
	if err := s.db.Create(&ResetRequestLog{Identifier: identifier, Source: source}).Error; err != nil {
		s.log.Warn("reset: could not log request", zap.Error(err))
	}

	user, err := s.users.UserByEmail(identifier)
	if err != nil {
		// Unknown identifier gets the same generic acknowledgment
		return ""
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		s.log.Error("reset: generating token", zap.Error(err))
		return ""
	}
	rawToken := base64.RawURLEncoding.EncodeToString(secret)

	token := &PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.db.Create(token).Error; err != nil {
		s.log.Error("reset: storing token", zap.Error(err))
		return ""
	}

	result := s.notifier.Send(user.Email, rawToken)
	if !result.OK {
		s.log.Warn("reset: notifier failed", zap.String("email", user.Email))
	}

	return result.ResetURL
}

// ConfirmReset consumes rawToken exactly once, replacing the owning user's
// password. Concurrent confirms with the same token race on the guarded
// used-flag update; only one can win.
func (s *ResetService) ConfirmReset(rawToken, newPassword string) error {
	if rawToken == "" || newPassword == "" {
		return ErrTokenInvalid
	}
	if ferr := validatePassword(newPassword); ferr != nil {
		return ferr
	}

	var token PasswordResetToken
	if err := s.db.Where("token_hash = ?", hashToken(rawToken)).First(&token).Error; err != nil {
		return ErrTokenInvalid
	}

	if token.Used {
		return ErrTokenUsed
	}
	if token.ExpiresAt.Before(time.Now()) {
		return ErrTokenExpired
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// Compare-and-swap on the used flag; losing a concurrent race is
		// reported as a reuse, same as finding the flag already set.
		result := tx.Model(&PasswordResetToken{}).
			Where("id = ? AND used = ?", token.ID, false).
			Update("used", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTokenUsed
		}

		hashed, err := hashPassword(newPassword)
		if err != nil {
			return err
		}
		if err := tx.Model(&User{}).Where("id = ?", token.UserID).
			Update("password_hash", hashed).Error; err != nil {
			return err
		}

		// Every outstanding token for this user dies with this one
		return tx.Where("user_id = ?", token.UserID).Delete(&PasswordResetToken{}).Error
	})
}
