package models

import "errors"

// Failure taxonomy surfaced to callers. Handlers match these with
// errors.Is; none of them is fatal to the process.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file is empty")
	ErrEmbedding         = errors.New("embedding service failed")
	ErrNoIndex           = errors.New("no document indexed")
	ErrGuardrailParse    = errors.New("guardrail output could not be parsed")
	ErrModelCall         = errors.New("model call failed")
)
