package gateway

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/smallbiznis/invoicenexus/pkg/db"
	"gorm.io/gorm"
)

var (
	ErrUnknownTable  = errors.New("gateway: unknown table")
	ErrUnknownColumn = errors.New("gateway: unknown column")
)

// Kind classifies a remote failure.
type Kind string

const (
	KindInvalid     Kind = "invalid"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUnavailable Kind = "unavailable"
	KindUnknown     Kind = "unknown"
)

// RemoteError is returned by every failed gateway call.
type RemoteError struct {
	Op    string
	Table string
	Kind  Kind
	Cause string
	Err   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Table, e.Cause)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func newRemoteError(op, table string, err error) *RemoteError {
	return &RemoteError{
		Op:    op,
		Table: table,
		Kind:  Classify(err),
		Cause: err.Error(),
		Err:   err,
	}
}

// Classify maps a driver or gorm error onto a Kind.
func Classify(err error) Kind {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownTable), errors.Is(err, ErrUnknownColumn):
		return KindInvalid
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case db.IsDuplicateKeyErr(err), db.IsForeignKeyErr(err):
		return KindConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return KindUnavailable
	}
	return KindUnknown
}

// IsKind reports whether err is a RemoteError of the given kind.
func IsKind(err error, kind Kind) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.Kind == kind
}
