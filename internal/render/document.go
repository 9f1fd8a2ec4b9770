// Package render produces the downloadable invoice PDF.
package render

import (
	"strings"

	"github.com/gosimple/slug"

	"github.com/smallbiznis/invoicenexus/internal/config"
	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
)

// InvoiceDocument is everything printed on one invoice.
type InvoiceDocument struct {
	Company  config.Company
	Invoice  invoicedomain.Invoice
	Employee employeedomain.Employee
}

// Filename is the attachment name for the invoice PDF.
func Filename(invoiceNumber string) string {
	name := slug.Make(strings.TrimSpace(invoiceNumber))
	if name == "" {
		name = "invoice"
	}
	return name + ".pdf"
}
