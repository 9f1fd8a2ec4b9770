package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/invoicenexus/internal/config"
	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
)

func sampleDocument() InvoiceDocument {
	notes := "Thank you"
	return InvoiceDocument{
		Company: config.DefaultCompany(),
		Employee: employeedomain.Employee{
			ID:      "e1",
			Name:    "Ayesha Khan",
			Email:   "ayesha@example.com",
			Address: "12 Mall Road, Lahore",
			CNIC:    "35202-1234567-1",
			BankDetails: employeedomain.BankDetails{
				AccountHolder: "Ayesha Khan",
				SwiftBic:      "HABBPKKA",
				IBAN:          "PK36SCBL0000001123456702",
				BankName:      "HBL",
				BankAddress:   "Gulberg, Lahore",
			},
		},
		Invoice: invoicedomain.Invoice{
			ID:            "i1",
			InvoiceNumber: "INV-2024/001",
			Date:          "2024-01-15",
			DueDate:       "2024-02-14",
			EmployeeID:    "e1",
			Status:        invoicedomain.InvoiceStatusSent,
			Currency:      invoicedomain.CurrencyPKR,
			Notes:         &notes,
			Items: []invoicedomain.InvoiceItem{
				{ID: "a", Description: "Development", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.RequireFromString("125.50")},
				{ID: "b", Description: "Support", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.Zero},
			},
		},
	}
}

func TestRendererInvoice(t *testing.T) {
	r := NewRenderer(zap.NewNop())

	out, err := r.Invoice(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "expected a PDF header")
}

func TestRendererHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer(zap.NewNop()).Invoice(ctx, sampleDocument())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "inv-2024-001.pdf", Filename("INV-2024/001"))
	assert.Equal(t, "invoice.pdf", Filename("  "))
}
