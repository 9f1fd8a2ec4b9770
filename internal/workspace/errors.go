package workspace

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/invoicenexus/internal/gateway"
)

var (
	ErrNoSession           = errors.New("workspace: no active session")
	ErrEmployeeHasInvoices = errors.New("employee has invoices")
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
)

const (
	PhaseDeleteItems = "delete_items"
	PhaseInsertItems = "insert_items"
)

// PartialWriteError reports an invoice whose header was written but whose items were not.
// Nothing is rolled back.
type PartialWriteError struct {
	InvoiceID string
	Phase     string
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("invoice %s written without items (%s): %v", e.InvoiceID, e.Phase, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// causeOf returns the human-readable cause carried by err.
func causeOf(err error) string {
	var partial *PartialWriteError
	if errors.As(err, &partial) {
		return fmt.Sprintf("invoice saved without items: %s", causeOf(partial.Err))
	}
	var remoteErr *gateway.RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Cause
	}
	return err.Error()
}
