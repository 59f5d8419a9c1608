package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DocumentInfo describes a reviewer-managed source document.
type DocumentInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

// SavedDocument is the per-file outcome of a source-document batch: either a
// stored name or the reason the file was skipped. Unlike the public upload
// endpoint, one bad file never aborts the batch here.
type SavedDocument struct {
	OriginalName string `json:"originalName"`
	SafeName     string `json:"safeName,omitempty"`
	Error        string `json:"error,omitempty"`
}

// DocumentService manages the reviewer-only source-document directory. These
// are reference documents, not contributions: they skip moderation metadata.
type DocumentService struct {
	docsDir string
}

func NewDocumentService(docsDir string) *DocumentService {
	return &DocumentService{docsDir: docsDir}
}

func (s *DocumentService) List() ([]DocumentInfo, error) {
	if err := os.MkdirAll(s.docsDir, 0755); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		return nil, err
	}

	docs := []DocumentInfo{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		docs = append(docs, DocumentInfo{Name: entry.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}

	return docs, nil
}

// StoreBatch validates and stores a batch of documents, recording per-file
// errors instead of failing the whole batch.
func (s *DocumentService) StoreBatch(files []UploadedFile, maxSize int64) ([]SavedDocument, error) {
	if err := os.MkdirAll(s.docsDir, 0755); err != nil {
		return nil, err
	}

	saved := make([]SavedDocument, 0, len(files))
	for _, f := range files {
		name := f.Name
		if name == "" {
			name = "document.pdf"
		}

		if int64(len(f.Data)) > maxSize {
			saved = append(saved, SavedDocument{OriginalName: name, Error: ErrFileTooLarge.Error()})
			continue
		}
		if !isRealPDF(f.Data) {
			saved = append(saved, SavedDocument{OriginalName: name, Error: ErrNotPDF.Error()})
			continue
		}

		safeName := storageName(name)
		if err := os.WriteFile(filepath.Join(s.docsDir, safeName), f.Data, 0644); err != nil {
			saved = append(saved, SavedDocument{OriginalName: name, Error: fmt.Sprintf("save failed: %v", err)})
			continue
		}

		saved = append(saved, SavedDocument{OriginalName: name, SafeName: safeName})
	}

	return saved, nil
}

func (s *DocumentService) FilePath(name string) (string, error) {
	safeName := filepath.Base(name)
	path := filepath.Join(s.docsDir, safeName)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return "", ErrFileNotFound
	}
	return path, nil
}

// UploadedFile is one decoded multipart payload.
type UploadedFile struct {
	Name string
	Data []byte
}
