package memory

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is one rejected argument.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError aggregates every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "参数验证失败: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Has reports whether field has at least one failure.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// DirectoryCreateError means the rules directory could not be created.
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("无法创建.cursor/rules目录: %v", e.Err)
}

func (e *DirectoryCreateError) Unwrap() error { return e.Err }

// WriteError means the temporary file could not be written or renamed into
// place. The target path is left as it was before the call.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("写入文件失败: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsFileOperation reports whether err is a directory or write failure.
func IsFileOperation(err error) bool {
	var dirErr *DirectoryCreateError
	var writeErr *WriteError
	return errors.As(err, &dirErr) || errors.As(err, &writeErr)
}
