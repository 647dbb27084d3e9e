package pricing

import (
	"errors"
	"strings"
)

// ErrInvalidInvoice is matched by every ValidationError via errors.Is.
var ErrInvalidInvoice = errors.New("invalid invoice")

// ValidationError reports every structural problem found on an invoice.
type ValidationError struct {
	Problems []string
}

// Error joins the problems in check order.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return strings.Join(e.Problems, "; ")
}

// Is allows errors.Is(err, ErrInvalidInvoice).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInvoice
}
