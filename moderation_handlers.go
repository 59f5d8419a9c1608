package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// requireReviewer re-derives identity from the session and re-checks the
// allow-list. Every moderation endpoint performs this independently; no
// cached or shared verdicts.
func requireReviewer(w http.ResponseWriter, r *http.Request) (*User, bool) {
	userID, ok := sessionService.Resolve(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}

	user, err := authService.UserByID(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not found")
		return nil, false
	}

	if !authPolicy.IsReviewer(user.Email) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}

	return user, true
}

func listUploadsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireReviewer(w, r); !ok {
		return
	}

	files, err := contribService.List()
	if err != nil {
		logger.Error("listing uploads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

type MarkRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func markUploadHandler(w http.ResponseWriter, r *http.Request) {
	reviewer, ok := requireReviewer(w, r)
	if !ok {
		return
	}

	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Missing parameters")
		return
	}

	entry, err := contribService.Mark(req.Name, req.Status, reviewer.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "entry": entry})
	case errors.Is(err, ErrInvalidDecision):
		writeError(w, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, ErrFileNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, ErrAlreadyReviewed):
		writeError(w, http.StatusConflict, ErrAlreadyReviewed.Error())
	default:
		logger.Error("marking upload", zap.String("name", req.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func clearUploadsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireReviewer(w, r); !ok {
		return
	}

	deleted, err := contribService.ClearAll()
	if err != nil {
		logger.Error("clearing uploads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// myUploadsHandler needs a session but not reviewer rights: uploaders can
// always see their own contributions.
func myUploadsHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	files, summary, err := contribService.MyContributions(user.Email)
	if err != nil {
		logger.Error("listing user uploads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"files":   files,
		"summary": summary,
	})
}

func downloadUploadHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireReviewer(w, r); !ok {
		return
	}

	name := mux.Vars(r)["name"]
	path, err := contribService.FilePath(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

func listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireReviewer(w, r); !ok {
		return
	}

	docs, err := documentService.List()
	if err != nil {
		logger.Error("listing documents", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"files": docs})
}

func uploadDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireReviewer(w, r); !ok {
		return
	}

	files, err := readMultipartFiles(r, "file", config.MaxDocumentSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No file")
		return
	}

	saved, err := documentService.StoreBatch(files, config.MaxDocumentSize)
	if err != nil {
		logger.Error("storing documents", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"saved": saved})
}

func downloadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireReviewer(w, r); !ok {
		return
	}

	name := mux.Vars(r)["name"]
	path, err := documentService.FilePath(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}
