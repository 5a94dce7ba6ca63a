package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable indicates the content source could not be reached
	ErrSourceUnavailable = errors.New("content source unavailable")

	// ErrSourceAuth indicates the content source rejected our credentials
	ErrSourceAuth = errors.New("content source authentication failed")

	// ErrSourceNotFound indicates the requested thread or listing does not exist
	ErrSourceNotFound = errors.New("thread not found")

	// ErrNoCandidate indicates selection finished without a suitable unit.
	// This is an expected outcome of the selector, not a failure.
	ErrNoCandidate = errors.New("no suitable candidate")

	// ErrAlreadyProduced indicates a video for the source already exists
	ErrAlreadyProduced = errors.New("source already produced")

	// ErrRenderFailed indicates a narration, caption, or compose step failed
	ErrRenderFailed = errors.New("render failed")

	// ErrUnitUnusable indicates the selected unit can never render
	// (e.g. empty after sanitization) and must not be retried.
	ErrUnitUnusable = errors.New("unit permanently unusable")

	// ErrTextTooLong indicates a narration piece exceeds the engine limit
	ErrTextTooLong = errors.New("text exceeds narration engine limit")
)
