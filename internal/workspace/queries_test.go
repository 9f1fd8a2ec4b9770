package workspace

import (
	"context"
	"testing"

	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardSummary(t *testing.T) {
	s, _, _ := newSQLiteStore(t)
	ctx := context.Background()

	emp, err := s.AddEmployee(ctx, jane())
	require.NoError(t, err)

	specs := []struct {
		number   string
		date     string
		status   invoicedomain.InvoiceStatus
		currency invoicedomain.Currency
		price    string
	}{
		{"INV-1", "2024-01-10", invoicedomain.InvoiceStatusPaid, invoicedomain.CurrencyEUR, "100.10"},
		{"INV-2", "2024-03-01", invoicedomain.InvoiceStatusSent, invoicedomain.CurrencyEUR, "200.20"},
		{"INV-3", "2024-02-15", invoicedomain.InvoiceStatusOverdue, invoicedomain.CurrencyUSD, "50"},
		{"INV-4", "2023-12-31", invoicedomain.InvoiceStatusDraft, invoicedomain.CurrencyPKR, "1000"},
	}
	for i, sp := range specs {
		draft := draftInvoice(emp.ID, item(sp.number+"-item", "Work", "1", sp.price))
		draft.InvoiceNumber = sp.number
		draft.Date = sp.date
		draft.Status = sp.status
		draft.Currency = sp.currency
		_, err := s.AddInvoice(ctx, draft)
		require.NoError(t, err, "invoice %d", i)
	}

	summary := s.Dashboard(3)

	assert.Equal(t, 4, summary.TotalInvoices)
	assert.Equal(t, 1, summary.TotalEmployees)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.ByStatus[invoicedomain.InvoiceStatusPaid])
	assert.Equal(t, 0, summary.ByStatus[invoicedomain.InvoiceStatusCancelled])

	require.Len(t, summary.Totals, 3)
	assert.Equal(t, invoicedomain.CurrencyEUR, summary.Totals[0].Currency)
	assert.Equal(t, "€300.30", summary.Totals[0].Formatted)
	assert.Equal(t, "$50.00", summary.Totals[1].Formatted)
	assert.Equal(t, "₨1000.00", summary.Totals[2].Formatted)

	require.Len(t, summary.Recent, 3)
	assert.Equal(t, "INV-2", summary.Recent[0].Invoice.InvoiceNumber)
	assert.Equal(t, "INV-3", summary.Recent[1].Invoice.InvoiceNumber)
	assert.Equal(t, "INV-1", summary.Recent[2].Invoice.InvoiceNumber)
	assert.Equal(t, "Jane Smith", summary.Recent[0].EmployeeName)
}

func TestDashboardOnEmptyStore(t *testing.T) {
	s, _, _ := newSQLiteStore(t)

	summary := s.Dashboard(0)
	assert.Zero(t, summary.TotalInvoices)
	assert.Empty(t, summary.Totals)
	assert.Empty(t, summary.Recent)
	assert.Len(t, summary.ByStatus, len(invoicedomain.InvoiceStatuses))
}

func TestSearchAndFilter(t *testing.T) {
	s, _, _ := newSQLiteStore(t)
	ctx := context.Background()

	emp, err := s.AddEmployee(ctx, jane())
	require.NoError(t, err)
	other := jane()
	other.Name = "Bob Builder"
	_, err = s.AddEmployee(ctx, other)
	require.NoError(t, err)

	first := draftInvoice(emp.ID, item("x1", "Work", "1", "1"))
	first.InvoiceNumber = "INV-ALPHA"
	_, err = s.AddInvoice(ctx, first)
	require.NoError(t, err)
	second := draftInvoice(emp.ID, item("x2", "Work", "1", "1"))
	second.InvoiceNumber = "INV-BETA"
	second.Status = invoicedomain.InvoiceStatusPaid
	_, err = s.AddInvoice(ctx, second)
	require.NoError(t, err)

	found := s.SearchEmployees("  JANE ")
	require.Len(t, found, 1)
	assert.Equal(t, "Jane Smith", found[0].Name)
	assert.Len(t, s.SearchEmployees(""), 2)

	assert.Len(t, s.FilterInvoices(InvoiceFilter{}), 2)
	assert.Len(t, s.FilterInvoices(InvoiceFilter{Term: "alpha"}), 1)
	assert.Len(t, s.FilterInvoices(InvoiceFilter{Status: invoicedomain.InvoiceStatusPaid}), 1)
	assert.Empty(t, s.FilterInvoices(InvoiceFilter{Term: "alpha", Status: invoicedomain.InvoiceStatusPaid}))
}
