package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/invoicenexus/internal/clock"
	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/smallbiznis/invoicenexus/internal/gateway/gatewaytest"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
	"github.com/smallbiznis/invoicenexus/internal/rowmap"
)

type fakeObserver struct {
	orphans int
	err     error
	calls   int
}

func (f *fakeObserver) ObserveReconcile(orphans int, err error) {
	f.orphans, f.err = orphans, err
	f.calls++
}

func seed(t *testing.T, gw gateway.Gateway) (withItems, orphan gateway.Row) {
	t.Helper()
	ctx := context.Background()

	emp, err := gw.InsertRow(ctx, gateway.TableEmployees, rowmap.EmployeeToRow(employeedomain.Employee{
		Name: "Ayesha Khan", Email: "ayesha@example.com", Address: "12 Mall Road", CNIC: "35202-1",
		BankDetails: employeedomain.BankDetails{
			AccountHolder: "Ayesha Khan", SwiftBic: "HABBPKKA", IBAN: "PK36", BankName: "HBL", BankAddress: "Lahore",
		},
	}))
	require.NoError(t, err)

	invoice := func(number string) gateway.Row {
		row, err := gw.InsertRow(ctx, gateway.TableInvoices, gateway.Row{
			"invoice_number": number, "date": "2024-01-15", "due_date": "2024-02-14",
			"employee_id": emp.ID(), "status": "draft", "currency": "EUR",
		})
		require.NoError(t, err)
		return row
	}

	withItems = invoice("INV-1")
	_, err = gw.InsertRows(ctx, gateway.TableInvoiceItems, rowmap.ItemsToRows(withItems.ID(), []invoicedomain.InvoiceItem{
		{ID: "item-1", Description: "Development", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
	}))
	require.NoError(t, err)

	orphan = invoice("INV-2")
	return withItems, orphan
}

func newJob(gw gateway.Gateway, obs Observer) *Job {
	return New(Params{
		Gateway:  gw,
		Observer: obs,
		Clock:    clock.NewFakeClock(gatewaytest.Epoch),
		Log:      zap.NewNop(),
	})
}

func TestRunReportsInvoicesWithoutItems(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	_, orphan := seed(t, gw)
	obs := &fakeObserver{}

	report, err := newJob(gw, obs).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Orphans, 1)
	assert.Equal(t, orphan.ID(), report.Orphans[0].InvoiceID)
	assert.Equal(t, "INV-2", report.Orphans[0].InvoiceNumber)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, obs.orphans)
	assert.NoError(t, obs.err)

	rows, err := gw.ListRows(context.Background(), gateway.TableInvoices)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "reconcile must not delete anything")
}

func TestRunPropagatesGatewayFailure(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	seed(t, gw)
	faulty := gatewaytest.NewFaulty(gw)
	boom := errors.New("connection refused")
	faulty.FailOn("get_related", gateway.TableInvoiceItems, boom)
	obs := &fakeObserver{}

	_, err := newJob(faulty, obs).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, obs.calls)
	assert.Error(t, obs.err)
}

func TestRunWithoutObserver(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)

	report, err := newJob(gw, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
	assert.Empty(t, report.Orphans)
}
