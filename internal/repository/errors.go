package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("not found")

	// ErrDriverInit is returned when the browser could not be launched.
	ErrDriverInit = errors.New("browser driver failed to initialize")
	// ErrDriverUnavailable is returned when a lost browser connection could not be restored.
	ErrDriverUnavailable = errors.New("browser driver unavailable")
	// ErrNavigationTimeout is returned when a page did not load within the page load timeout.
	ErrNavigationTimeout = errors.New("navigation timed out")

	// ErrDownloadFailed is returned for non-200 responses and transport errors while fetching image bytes.
	ErrDownloadFailed = errors.New("image download failed")
	// ErrUploadFailed is returned when the blob store rejected an object.
	ErrUploadFailed = errors.New("blob upload failed")
)
