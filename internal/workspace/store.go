// Package workspace owns the in-memory employee and invoice collections of one
// authenticated session and keeps them consistent with confirmed remote writes.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/invoicenexus/internal/clock"
	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
	"github.com/smallbiznis/invoicenexus/internal/observability/metrics"
	"github.com/smallbiznis/invoicenexus/internal/rowmap"
	"go.uber.org/zap"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionState is what the session provider reports.
type SessionState struct {
	Present bool
	User    *User
	// ExpiresAt is when the session stops being valid. Zero means no expiry.
	ExpiresAt time.Time
}

// Recorder receives one observation per workspace operation.
type Recorder interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}

type Params struct {
	Gateway  gateway.Gateway
	Notifier Notifier
	Recorder Recorder
	Clock    clock.Clock
	Log      *zap.Logger
}

// Store is the state container of one session. Remote calls never run under mu,
// so concurrent writes are not serialized; only the reference swaps are.
type Store struct {
	gw       gateway.Gateway
	notifier Notifier
	recorder Recorder
	clock    clock.Clock
	log      *zap.Logger

	mu         sync.RWMutex
	session    SessionState
	generation uint64
	inflight   int
	employees  []employeedomain.Employee
	invoices   []invoicedomain.Invoice
}

func New(p Params) *Store {
	s := &Store{
		gw:       p.Gateway,
		notifier: p.Notifier,
		recorder: p.Recorder,
		clock:    p.Clock,
		log:      p.Log,
	}
	if s.notifier == nil {
		s.notifier = NewInbox(DefaultInboxSize, p.Log)
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.clock == nil {
		s.clock = clock.SystemClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("workspace")
	return s
}

// SetSession applies a session transition. Becoming present (or switching user)
// triggers RefreshData; becoming absent clears everything.
func (s *Store) SetSession(ctx context.Context, state SessionState) error {
	state = copySession(state)

	s.mu.Lock()
	prev := s.session
	s.session = state
	switched := state.Present && (!prev.Present || userID(prev) != userID(state))
	if !state.Present || switched {
		s.teardownLocked()
	}
	s.mu.Unlock()

	if !state.Present {
		if prev.Present {
			s.log.Info("session ended, workspace cleared", zap.String("user_id", userID(prev)))
		}
		return nil
	}
	if switched {
		return s.RefreshData(ctx)
	}
	return nil
}

func (s *Store) teardownLocked() {
	s.generation++
	s.inflight = 0
	s.employees = nil
	s.invoices = nil
}

// RefreshData fetches every employee and invoice (items per invoice) and swaps
// both collections in one step. Without a session it does nothing.
func (s *Store) RefreshData(ctx context.Context) (err error) {
	s.mu.Lock()
	if !s.session.Present {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	s.inflight++
	s.mu.Unlock()

	done := s.track("refresh")
	defer func() {
		s.mu.Lock()
		if s.generation == gen && s.inflight > 0 {
			s.inflight--
		}
		s.mu.Unlock()
		done(err)
	}()

	employees, invoices, err := s.fetchAll(ctx)
	if err != nil {
		s.notifyFailure(ctx, "fetch data", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.log.Debug("discarding refresh for torn down session")
		return nil
	}
	s.employees = employees
	s.invoices = invoices
	return nil
}

func (s *Store) fetchAll(ctx context.Context) ([]employeedomain.Employee, []invoicedomain.Invoice, error) {
	employeeRows, err := s.gw.ListRows(ctx, gateway.TableEmployees)
	if err != nil {
		return nil, nil, err
	}
	employees := make([]employeedomain.Employee, 0, len(employeeRows))
	for _, row := range employeeRows {
		e, err := rowmap.EmployeeFromRow(row)
		if err != nil {
			return nil, nil, err
		}
		employees = append(employees, e)
	}

	invoiceRows, err := s.gw.ListRows(ctx, gateway.TableInvoices)
	if err != nil {
		return nil, nil, err
	}
	invoices := make([]invoicedomain.Invoice, 0, len(invoiceRows))
	for _, row := range invoiceRows {
		itemRows, err := s.gw.GetRelatedRows(ctx, gateway.TableInvoiceItems, "invoice_id", row.ID())
		if err != nil {
			return nil, nil, err
		}
		inv, err := rowmap.InvoiceFromRow(row, itemRows)
		if err != nil {
			return nil, nil, err
		}
		invoices = append(invoices, inv)
	}
	return employees, invoices, nil
}

// Employees returns a copy of the employee collection.
func (s *Store) Employees() []employeedomain.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]employeedomain.Employee{}, s.employees...)
}

// Invoices returns a deep copy of the invoice collection.
func (s *Store) Invoices() []invoicedomain.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneInvoices(s.invoices)
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

func (s *Store) Session() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.session)
}

func (s *Store) GetEmployeeByID(id string) (employeedomain.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.employees {
		if e.ID == id {
			return e, true
		}
	}
	return employeedomain.Employee{}, false
}

// GetInvoicesByEmployeeID filters in collection order.
func (s *Store) GetInvoicesByEmployeeID(employeeID string) []invoicedomain.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []invoicedomain.Invoice{}
	for _, inv := range s.invoices {
		if inv.EmployeeID == employeeID {
			out = append(out, inv.Clone())
		}
	}
	return out
}

func (s *Store) GetInvoiceByID(id string) (invoicedomain.Invoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.ID == id {
			return inv.Clone(), true
		}
	}
	return invoicedomain.Invoice{}, false
}

// begin returns the current generation, or ErrNoSession.
func (s *Store) begin() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.session.Present {
		return 0, ErrNoSession
	}
	return s.generation, nil
}

// commit applies fn to the collections unless the session was torn down since gen.
func (s *Store) commit(gen uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	fn()
}

func (s *Store) track(operation string) func(error) {
	start := s.clock.Now()
	return func(err error) {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		s.recorder.ObserveOperation(operation, outcome, s.clock.Now().Sub(start))
	}
}

func (s *Store) notify(ctx context.Context, level Level, title, description string) {
	now := s.clock.Now()
	s.notifier.Notify(ctx, Notification{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Level:       level,
		Title:       title,
		Description: description,
		CreatedAt:   now,
	})
}

func (s *Store) notifySuccess(ctx context.Context, title, description string) {
	s.notify(ctx, LevelSuccess, title, description)
}

func (s *Store) notifyFailure(ctx context.Context, action string, err error) {
	s.log.Warn("workspace operation failed", zap.String("action", action), zap.Error(err))
	s.notify(ctx, LevelError, "Error", fmt.Sprintf("Failed to %s: %s", action, causeOf(err)))
}

func copySession(state SessionState) SessionState {
	if state.User != nil {
		u := *state.User
		state.User = &u
	}
	return state
}

func userID(state SessionState) string {
	if state.User == nil {
		return ""
	}
	return state.User.ID
}

func cloneInvoices(in []invoicedomain.Invoice) []invoicedomain.Invoice {
	out := make([]invoicedomain.Invoice, 0, len(in))
	for _, inv := range in {
		out = append(out, inv.Clone())
	}
	return out
}
