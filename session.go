package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	sessionCookieName = "user_id"
	// Older deployments also wrote a user_name cookie; it is still cleared
	// on logout so stale clients don't keep it around.
	legacyNameCookie = "user_name"

	sessionMaxAge = 7 * 24 * time.Hour
)

// SessionService mints and validates the signed session cookie. There is no
// server-side session table: the cookie itself is the capability, and every
// protected endpoint re-verifies that the referenced user still exists.
type SessionService struct {
	secret     []byte
	production bool
}

func NewSessionService(secret string, production bool) *SessionService {
	return &SessionService{secret: []byte(secret), production: production}
}

func (s *SessionService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Issue sets the session cookie for userID.
func (s *SessionService) Issue(w http.ResponseWriter, userID uint) {
	payload := fmt.Sprintf("%d.%d", userID, time.Now().Unix())
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    payload + "." + s.sign(payload),
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
	})
}

// Resolve extracts the user id from the request's session cookie. Any
// absent, malformed, tampered, or expired cookie resolves to unauthenticated;
// it never fails toward "authenticated".
func (s *SessionService) Resolve(r *http.Request) (uint, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return 0, false
	}

	parts := strings.Split(cookie.Value, ".")
	if len(parts) != 3 {
		return 0, false
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(s.sign(payload)), []byte(parts[2])) {
		return 0, false
	}

	userID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || userID == 0 {
		return 0, false
	}

	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Since(time.Unix(issued, 0)) > sessionMaxAge {
		return 0, false
	}

	return uint(userID), true
}

// Revoke clears the session cookie and any legacy compatibility cookies.
func (s *SessionService) Revoke(w http.ResponseWriter) {
	for _, name := range []string{sessionCookieName, legacyNameCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}
