// Package reconcile reports invoices left without items by a failed two-phase write.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/invoicenexus/internal/clock"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/smallbiznis/invoicenexus/internal/ratelimit"
)

const (
	lockKey     = "invoicenexus:reconcile"
	lockTTL     = 5 * time.Minute
	runTimeout  = 2 * time.Minute
	itemsColumn = "invoice_id"
)

// Observer receives the outcome of every run.
type Observer interface {
	ObserveReconcile(orphans int, err error)
}

// Orphan is an invoice row with no item rows.
type Orphan struct {
	InvoiceID     string `json:"invoiceId"`
	InvoiceNumber string `json:"invoiceNumber"`
	EmployeeID    string `json:"employeeId"`
}

type Report struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Checked   int           `json:"checked"`
	Orphans   []Orphan      `json:"orphans"`
	Skipped   bool          `json:"skipped,omitempty"`
}

type Params struct {
	fx.In

	Gateway  gateway.Gateway
	Locker   *ratelimit.Locker `optional:"true"`
	Observer Observer          `optional:"true"`
	Clock    clock.Clock
	Log      *zap.Logger
}

type Job struct {
	gw       gateway.Gateway
	locker   *ratelimit.Locker
	observer Observer
	clock    clock.Clock
	log      *zap.Logger
}

func New(p Params) *Job {
	return &Job{
		gw:       p.Gateway,
		locker:   p.Locker,
		observer: p.Observer,
		clock:    p.Clock,
		log:      p.Log.Named("reconcile"),
	}
}

// Run lists every invoice and reports those without items. It never modifies data.
// When another instance holds the reconcile lock the run is skipped.
func (j *Job) Run(ctx context.Context) (Report, error) {
	report := Report{StartedAt: j.clock.Now(), Orphans: []Orphan{}}

	token, ok, err := j.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		j.log.Warn("reconcile lock unavailable, running unlocked", zap.Error(err))
	} else if !ok {
		j.log.Debug("reconcile already running elsewhere")
		report.Skipped = true
		return report, nil
	} else {
		defer func() {
			if err := j.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
				j.log.Warn("reconcile lock release failed", zap.Error(err))
			}
		}()
	}

	err = j.scan(ctx, &report)
	report.Duration = j.clock.Now().Sub(report.StartedAt)
	if j.observer != nil {
		j.observer.ObserveReconcile(len(report.Orphans), err)
	}
	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}

	j.log.Info("reconcile finished",
		zap.Int("checked", report.Checked),
		zap.Int("orphans", len(report.Orphans)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (j *Job) scan(ctx context.Context, report *Report) error {
	invoices, err := j.gw.ListRows(ctx, gateway.TableInvoices)
	if err != nil {
		return err
	}

	for _, row := range invoices {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := row.ID()
		items, err := j.gw.GetRelatedRows(ctx, gateway.TableInvoiceItems, itemsColumn, id)
		if err != nil {
			return err
		}
		report.Checked++
		if len(items) > 0 {
			continue
		}

		orphan := Orphan{
			InvoiceID:     id,
			InvoiceNumber: stringValue(row["invoice_number"]),
			EmployeeID:    stringValue(row["employee_id"]),
		}
		report.Orphans = append(report.Orphans, orphan)
		j.log.Warn("invoice has no items",
			zap.String("invoice_id", orphan.InvoiceID),
			zap.String("invoice_number", orphan.InvoiceNumber),
			zap.String("employee_id", orphan.EmployeeID),
		)
	}
	return nil
}

// RunEvery runs the job on interval until ctx is cancelled.
func (j *Job) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		if _, err := j.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			j.log.Warn("reconcile run failed", zap.Error(err))
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
