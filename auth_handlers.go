package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

var (
	authService     *AuthService
	sessionService  *SessionService
	quotaService    *QuotaService
	resetService    *ResetService
	contribService  *ContributionService
	documentService *DocumentService
	answerClient    *AnswerClient
	authPolicy      *AuthorizationPolicy
	logger          *zap.Logger
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// userSummary is what the client sees of a user; never the password hash.
func userSummary(user *User) map[string]interface{} {
	return map[string]interface{}{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"pseudo":       user.Pseudo,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"phone":        user.Phone,
		"organization": user.Organization,
	}
}

// currentUser resolves the session cookie and re-verifies the user row
// exists. A cookie pointing at a deleted user is treated as no session.
func currentUser(r *http.Request) *User {
	userID, ok := sessionService.Resolve(r)
	if !ok {
		return nil
	}
	user, err := authService.UserByID(userID)
	if err != nil {
		return nil
	}
	return user
}

func signupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := authService.Signup(req.Name, req.Email, req.Password)
	if err != nil {
		var ferr *FieldError
		switch {
		case errors.As(err, &ferr):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"errors": map[string][]string{ferr.Field: {ferr.Message}},
			})
		case errors.Is(err, ErrEmailTaken):
			writeError(w, http.StatusConflict, ErrEmailTaken.Error())
		default:
			logger.Error("signup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "An error occurred while creating your account")
		}
		return
	}

	sessionService.Issue(w, user.ID)
	// Logging in resets the browser's anonymous search quota
	quotaService.ResetFor(w, r)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"user": userSummary(user),
	})
}

func loginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := authService.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}

	sessionService.Issue(w, user.ID)
	quotaService.ResetFor(w, r)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"user": userSummary(user),
	})
}

func logoutHandler(w http.ResponseWriter, r *http.Request) {
	sessionService.Revoke(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func authCheckHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionService.Resolve(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := authService.UserByID(userID)
	if err != nil {
		// Dangling session: the user row is gone, so the cookie goes too
		sessionService.Revoke(w)
		writeError(w, http.StatusUnauthorized, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, userSummary(user))
}
