package main

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

type ScanResult int

const (
	ScanClean ScanResult = iota
	ScanInfected
	ScanUnavailable
)

// Scanner checks a stored file for malware.
type Scanner interface {
	Scan(ctx context.Context, path string) (ScanResult, error)
}

// ClamAVScanner shells out to clamscan. The binary missing from PATH, an
// execution failure, or unexpected output all report ScanUnavailable; the
// intake pipeline decides whether that blocks the upload.
type ClamAVScanner struct {
	path    string
	timeout time.Duration
}

func NewClamAVScanner(path string, timeout time.Duration) *ClamAVScanner {
	if path == "" {
		path = "clamscan"
	}
	return &ClamAVScanner{path: path, timeout: timeout}
}

func (s *ClamAVScanner) Scan(ctx context.Context, filePath string) (ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.path, "--no-summary", filePath).CombinedOutput()
	output := string(out)

	// clamscan prints FOUND for infected files and exits non-zero, so the
	// output check comes before the error check
	if strings.Contains(output, "FOUND") {
		return ScanInfected, nil
	}

	if err != nil {
		// Covers both clamscan missing from PATH and its own execution
		// failures
		return ScanUnavailable, err
	}

	if !strings.Contains(output, "OK") {
		return ScanUnavailable, errors.New("unexpected clamscan output: " + output)
	}

	return ScanClean, nil
}

// noScanner is used when antivirus checks are switched off.
type noScanner struct{}

func (noScanner) Scan(context.Context, string) (ScanResult, error) {
	return ScanClean, nil
}
