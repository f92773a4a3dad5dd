package installer

import (
	"fmt"
	"strings"
)

// Sentinel errors for the install lifecycle.
var (
	// ErrUnsupportedArchive marks a download whose suffix names an
	// archive format we cannot extract.
	ErrUnsupportedArchive = fmt.Errorf("unsupported archive format")

	// ErrExtraction marks a failure while unpacking a staged download.
	ErrExtraction = fmt.Errorf("extraction failed")

	// ErrNotInstalled is returned when an operation targets a package
	// with no installed record.
	ErrNotInstalled = fmt.Errorf("package not installed")
)

// DownloadError reports a transport failure while fetching asset bytes.
// The installer never retries; retry policy belongs to the caller.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExecutableNotFoundError reports that executable discovery found zero
// or ambiguously many candidates. Files lists the extracted regular
// files for diagnosis.
type ExecutableNotFoundError struct {
	Package string
	Files   []string
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("no executable found for %s (extracted: %s)",
		e.Package, strings.Join(e.Files, ", "))
}
