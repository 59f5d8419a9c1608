package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrNotPDF          = errors.New("not a valid PDF document")
	ErrInfected        = errors.New("virus detected")
	ErrScanUnavailable = errors.New("antivirus scanner unavailable")
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidDecision = errors.New("invalid decision")
	ErrAlreadyReviewed = errors.New("contribution already reviewed")
)

// A real PDF starts with this literal signature, whatever the declared MIME
// type or extension claims.
var pdfMagic = []byte("%PDF-")

func isRealPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// storageName generates a collision-resistant, filesystem-safe name for an
// uploaded file. Path separators and traversal sequences are stripped before
// sanitizing.
func storageName(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), unsafeNameChars.ReplaceAllString(base, "_"))
}

// AuthorizationPolicy decides who may act on the moderation surfaces. One
// configured allow-list backs every endpoint; each endpoint still re-derives
// identity and re-checks membership on its own.
type AuthorizationPolicy struct {
	reviewers map[string]struct{}
}

func NewAuthorizationPolicy(adminEmails []string) *AuthorizationPolicy {
	reviewers := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		reviewers[normalizeEmail(email)] = struct{}{}
	}
	return &AuthorizationPolicy{reviewers: reviewers}
}

func (p *AuthorizationPolicy) IsReviewer(email string) bool {
	_, ok := p.reviewers[normalizeEmail(email)]
	return ok
}

// ContributionInfo is a stored file joined with its moderation record.
type ContributionInfo struct {
	Name          string     `json:"name"`
	OriginalName  string     `json:"originalName"`
	Size          int64      `json:"size"`
	UploadedAt    time.Time  `json:"uploadedAt"`
	UploaderEmail *string    `json:"uploaderEmail"`
	Status        string     `json:"status"`
	ReviewedBy    *string    `json:"reviewedBy"`
	ReviewedAt    *time.Time `json:"reviewedAt"`
}

// ContributionSummary is the per-uploader rollup for MyContributions.
type ContributionSummary struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Refused  int `json:"refused"`
}

type ContributionService struct {
	db         *gorm.DB
	uploadsDir string
	scanner    Scanner
	failClosed bool
	log        *zap.Logger
}

func NewContributionService(database *gorm.DB, uploadsDir string, scanner Scanner, failClosed bool, log *zap.Logger) *ContributionService {
	return &ContributionService{
		db:         database,
		uploadsDir: uploadsDir,
		scanner:    scanner,
		failClosed: failClosed,
		log:        log,
	}
}

// Store runs one file through the intake pipeline: size ceiling, magic-byte
// signature, persistence under a generated name, antivirus scan, then the
// pending moderation record. A rejection at any step leaves no file and no
// record behind.
func (s *ContributionService) Store(ctx context.Context, originalName string, data []byte, maxSize int64, uploaderEmail *string) (*Contribution, error) {
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s: %w", originalName, ErrFileTooLarge)
	}

	if !isRealPDF(data) {
		return nil, fmt.Errorf("%s: %w", originalName, ErrNotPDF)
	}

	if err := os.MkdirAll(s.uploadsDir, 0755); err != nil {
		return nil, err
	}

	name := storageName(originalName)
	dest := filepath.Join(s.uploadsDir, name)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return nil, err
	}

	result, scanErr := s.scanner.Scan(ctx, dest)
	switch result {
	case ScanInfected:
		os.Remove(dest)
		return nil, fmt.Errorf("%s: %w", originalName, ErrInfected)
	case ScanUnavailable:
		if s.failClosed {
			os.Remove(dest)
			return nil, fmt.Errorf("%s: %w", originalName, ErrScanUnavailable)
		}
		s.log.Warn("antivirus unavailable, accepting upload unscanned",
			zap.String("file", name), zap.Error(scanErr))
	}

	contribution := &Contribution{
		Name:          name,
		OriginalName:  originalName,
		UploaderEmail: uploaderEmail,
		UploadedAt:    time.Now(),
		Status:        StatusPending,
	}
	if err := s.db.Create(contribution).Error; err != nil {
		// No orphaned files when the metadata write fails
		os.Remove(dest)
		return nil, err
	}

	return contribution, nil
}

// List merges the uploads directory with the moderation records. Files with
// no record default to pending.
func (s *ContributionService) List() ([]ContributionInfo, error) {
	entries, err := os.ReadDir(s.uploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ContributionInfo{}, nil
		}
		return nil, err
	}

	var records []Contribution
	if err := s.db.Find(&records).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]Contribution, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
	}

	infos := []ContributionInfo{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}

		info := ContributionInfo{
			Name:         entry.Name(),
			OriginalName: entry.Name(),
			Size:         fi.Size(),
			UploadedAt:   fi.ModTime(),
			Status:       StatusPending,
		}
		if rec, ok := byName[entry.Name()]; ok {
			info.OriginalName = rec.OriginalName
			info.UploadedAt = rec.UploadedAt
			info.UploaderEmail = rec.UploaderEmail
			info.Status = rec.Status
			info.ReviewedBy = rec.ReviewedBy
			info.ReviewedAt = rec.ReviewedAt
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// Mark moves a pending contribution to accepted or refused. Terminal states
// are final: a guarded update enforces the pending precondition, so two
// concurrent reviewers cannot both win.
func (s *ContributionService) Mark(name, decision, reviewerEmail string) (*Contribution, error) {
	if decision != StatusAccepted && decision != StatusRefused {
		return nil, ErrInvalidDecision
	}

	safeName := filepath.Base(name)
	if _, err := os.Stat(filepath.Join(s.uploadsDir, safeName)); err != nil {
		return nil, ErrFileNotFound
	}

	now := time.Now()
	result := s.db.Model(&Contribution{}).
		Where("name = ? AND status = ?", safeName, StatusPending).
		Updates(map[string]interface{}{
			"status":      decision,
			"reviewed_by": reviewerEmail,
			"reviewed_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		var existing Contribution
		err := s.db.Where("name = ?", safeName).First(&existing).Error
		switch {
		case err == nil:
			return nil, ErrAlreadyReviewed
		case errors.Is(err, gorm.ErrRecordNotFound):
			// File on disk without a record counts as pending; create the
			// record with the review applied
			contribution := &Contribution{
				Name:         safeName,
				OriginalName: safeName,
				UploadedAt:   now,
				Status:       decision,
				ReviewedBy:   &reviewerEmail,
				ReviewedAt:   &now,
			}
			if err := s.db.Create(contribution).Error; err != nil {
				return nil, err
			}
			return contribution, nil
		default:
			return nil, err
		}
	}

	var updated Contribution
	if err := s.db.Where("name = ?", safeName).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// ClearAll purges every stored upload, best-effort per file, and drops the
// moderation records of whatever was removed.
func (s *ContributionService) ClearAll() (int, error) {
	entries, err := os.ReadDir(s.uploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.uploadsDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.log.Warn("could not delete upload", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		s.db.Where("name = ?", entry.Name()).Delete(&Contribution{})
		deleted++
	}

	return deleted, nil
}

// MyContributions lists everything uploaded by userEmail with a summary of
// review outcomes.
func (s *ContributionService) MyContributions(userEmail string) ([]ContributionInfo, ContributionSummary, error) {
	var records []Contribution
	if err := s.db.Where("uploader_email = ?", userEmail).
		Order("uploaded_at DESC").Find(&records).Error; err != nil {
		return nil, ContributionSummary{}, err
	}

	infos := []ContributionInfo{}
	summary := ContributionSummary{}
	for _, rec := range records {
		var size int64
		if fi, err := os.Stat(filepath.Join(s.uploadsDir, rec.Name)); err == nil {
			size = fi.Size()
		}
		infos = append(infos, ContributionInfo{
			Name:          rec.Name,
			OriginalName:  rec.OriginalName,
			Size:          size,
			UploadedAt:    rec.UploadedAt,
			UploaderEmail: rec.UploaderEmail,
			Status:        rec.Status,
			ReviewedBy:    rec.ReviewedBy,
			ReviewedAt:    rec.ReviewedAt,
		})
		summary.Total++
		switch rec.Status {
		case StatusAccepted:
			summary.Accepted++
		case StatusRefused:
			summary.Refused++
		}
	}

	return infos, summary, nil
}

// FilePath resolves a stored upload for download, path-traversal safe.
func (s *ContributionService) FilePath(name string) (string, error) {
	safeName := filepath.Base(name)
	path := filepath.Join(s.uploadsDir, safeName)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return "", ErrFileNotFound
	}
	return path, nil
}
