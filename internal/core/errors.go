package core

import "errors"

// Pipeline failure taxonomy. Every collaborator error is wrapped into one
// of these before it crosses the pipeline boundary; the chat layer turns
// them into user-visible notices and never retries.
var (
	ErrTranscriptionFailed   = errors.New("transcription failed")
	ErrExtractionFailed      = errors.New("extraction failed")
	ErrConversionUnavailable = errors.New("currency conversion unavailable")
	ErrInvalidBudgetAmount   = errors.New("budget amount must be positive")
	ErrCategoryExists        = errors.New("category already exists")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrLedgerUnavailable     = errors.New("ledger store unavailable")
	ErrChartRenderFailed     = errors.New("chart rendering failed")
)
