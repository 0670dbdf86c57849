package apperrors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNoSQLGenerated = errors.New("no SQL could be generated")
	ErrUnsafeSQL      = errors.New("SQL rejected by safety guard")
	ErrEmptyQuery     = errors.New("query is empty or too short")
)
