package domain

import "errors"

// Fatal pipeline errors. These abort an ingestion run and are surfaced
// to the caller; everything below them (one bad file, one failed
// embedding) is logged and skipped instead.
var (
	ErrNoInputFiles = errors.New("no input files found")
	ErrNoPassages   = errors.New("no passages produced")
	ErrEmptyIndex   = errors.New("no passages embedded, index is empty")
)
