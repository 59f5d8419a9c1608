package main

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// readMultipartFiles decodes every part under field into memory, bounded by
// the endpoint's size ceiling plus one byte so oversized payloads are still
// detected rather than truncated.
func readMultipartFiles(r *http.Request, field string, maxSize int64) ([]UploadedFile, error) {
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, err
	}
	if r.MultipartForm == nil {
		return nil, errors.New("no multipart form")
	}

	headers := r.MultipartForm.File[field]
	files := make([]UploadedFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, UploadedFile{Name: header.Filename, Data: data})
	}
	return files, nil
}

// uploadHandler is the public contribution intake. Policy on this endpoint:
// the first size/signature/virus violation rejects the whole batch.
func uploadHandler(w http.ResponseWriter, r *http.Request) {
	files, err := readMultipartFiles(r, "files", config.MaxUploadSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files")
		return
	}

	// Uploader identity is best-effort; anonymous uploads are allowed
	var uploaderEmail *string
	if user := currentUser(r); user != nil {
		uploaderEmail = &user.Email
	}

	type savedFile struct {
		Name string `json:"name"`
		Path string `json:"path"`
	}
	saved := make([]savedFile, 0, len(files))

	for _, f := range files {
		contribution, err := contribService.Store(r.Context(), f.Name, f.Data, config.MaxUploadSize, uploaderEmail)
		if err != nil {
			switch {
			case errors.Is(err, ErrFileTooLarge),
				errors.Is(err, ErrNotPDF),
				errors.Is(err, ErrInfected),
				errors.Is(err, ErrScanUnavailable):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				logger.Error("upload failed", zap.String("file", f.Name), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "Upload failed")
			}
			return
		}
		saved = append(saved, savedFile{Name: f.Name, Path: "/uploads/" + contribution.Name})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"saved": saved})
}
