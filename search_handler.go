package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type SearchRequest struct {
	Query string `json:"query"`
}

// searchHandler gates the answer engine. Authenticated users pass through
// unmetered; anonymous visitors spend quota and get their remaining count
// back with each answer.
func searchHandler(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if user := currentUser(r); user != nil {
		answer := answerClient.Ask(r.Context(), req.Query)
		writeJSON(w, http.StatusOK, answer)
		return
	}

	anonID := quotaService.Identify(w, r)
	allowed, remaining, err := quotaService.CheckAndIncrement(anonID)
	if err != nil {
		// Quota fails closed: a broken counter never grants unlimited use
		logger.Error("quota check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if !allowed {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   "limit",
			"message": "You have reached the search limit for signed-out visitors. Please log in.",
		})
		return
	}

	answer := answerClient.Ask(r.Context(), req.Query)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"answer":    answer.Answer,
		"sources":   answer.Sources,
		"remaining": remaining,
	})
}
