package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	anonCookieName   = "anon_id"
	anonCookieMaxAge = 365 * 24 * time.Hour
)

// QuotaService caps how often anonymous visitors may use the gated search
// resource. Authenticated requests never pass through it.
type QuotaService struct {
	db  *gorm.DB
	max int
}

func NewQuotaService(database *gorm.DB, max int) *QuotaService {
	return &QuotaService{db: database, max: max}
}

// Identify returns the visitor's durable anonymous id, minting one and
// instructing the browser to keep it when absent. The cookie is readable by
// client scripts on purpose: the id carries no secret, it is only a counter
// key.
func (s *QuotaService) Identify(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(anonCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	anonID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:   anonCookieName,
		Value:  anonID,
		Path:   "/",
		MaxAge: int(anonCookieMaxAge.Seconds()),
	})
	return anonID
}

// CheckAndIncrement consumes one unit of quota for anonID. When the counter
// is already at the cap it reports allowed=false without incrementing.
// Storage errors propagate to the caller: quota fails closed.
func (s *QuotaService) CheckAndIncrement(anonID string) (allowed bool, remaining int, err error) {
	var counter AnonCounter
	err = s.db.Where("id = ?", anonID).First(&counter).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		counter = AnonCounter{ID: anonID}
	default:
		return false, 0, err
	}

	if counter.Count >= s.max {
		return false, 0, nil
	}

	counter.Count++
	if err := s.db.Save(&counter).Error; err != nil {
		return false, 0, err
	}

	return true, s.max - counter.Count, nil
}

// ResetFor deletes the browser's anonymous counter and expires its cookie.
// Called when the visitor authenticates, so a login always grants a fresh
// quota.
func (s *QuotaService) ResetFor(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(anonCookieName)
	if err != nil || cookie.Value == "" {
		return
	}

	// Best-effort: a failed delete should not break the login
	s.db.Where("id = ?", cookie.Value).Delete(&AnonCounter{})

	http.SetCookie(w, &http.Cookie{
		Name:   anonCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
