package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports an internally-referenced module id or gene symbol
// that is absent from the provider tables. This indicates a malformed table,
// so callers should treat it as terminal rather than score around it.
type NotFoundError struct {
	Kind string // "module" or "gene"
	Key  string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// NewModuleNotFound creates a NotFoundError for a module id.
func NewModuleNotFound(id int) *NotFoundError {
	return &NotFoundError{Kind: "module", Key: fmt.Sprintf("%d", id)}
}

// NewGeneNotFound creates a NotFoundError for a gene symbol.
func NewGeneNotFound(symbol string) *NotFoundError {
	return &NotFoundError{Kind: "gene", Key: symbol}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
