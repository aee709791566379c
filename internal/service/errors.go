package service

import "errors"

// Sentinel errors handlers map to HTTP status codes. Wrapping with %w keeps
// errors.Is working across the repository/service boundary.
var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
)
