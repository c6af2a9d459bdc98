package services

import "errors"

var (
	ErrEmptyMessage        = errors.New("message is required")
	ErrDuplicateEntry      = errors.New("dataset entry already exists")
	ErrEntryNotFound       = errors.New("dataset entry not found")
	ErrInvalidEntry        = errors.New("invalid dataset entry")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrNoTextExtracted     = errors.New("no text could be extracted from file")
	ErrAIUnavailable       = errors.New("AI service unavailable")
	ErrBackupUnavailable   = errors.New("backup service unavailable")
)
