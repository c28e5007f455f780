package core

import "errors"

// Common errors.
var (
	ErrFieldIndex       = errors.New("field index out of range for template")
	ErrNoteNotFound     = errors.New("note not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrReadOnly         = errors.New("collection is in read-only mode")
	ErrUnsupportedNote  = errors.New("note was not produced by this collection")
)
