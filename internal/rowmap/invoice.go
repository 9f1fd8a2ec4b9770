package rowmap

import (
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
)

// InvoiceFromRow maps an invoice row and its item rows, in the given order.
func InvoiceFromRow(row gateway.Row, itemRows []gateway.Row) (invoicedomain.Invoice, error) {
	const table = gateway.TableInvoices

	var (
		inv invoicedomain.Invoice
		err error
	)
	if inv.ID, err = requiredText(table, row, "id"); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if inv.InvoiceNumber, err = requiredText(table, row, "invoice_number"); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if inv.Date, err = requiredDate(table, row, "date"); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if inv.DueDate, err = requiredDate(table, row, "due_date"); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if inv.EmployeeID, err = requiredText(table, row, "employee_id"); err != nil {
		return invoicedomain.Invoice{}, err
	}

	status, err := requiredText(table, row, "status")
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	inv.Status = invoicedomain.InvoiceStatus(status)
	if !inv.Status.Valid() {
		return invoicedomain.Invoice{}, mappingErr(table, "status", "unknown status %q", status)
	}

	currency, err := requiredText(table, row, "currency")
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	inv.Currency = invoicedomain.Currency(currency)
	if !inv.Currency.Valid() {
		return invoicedomain.Invoice{}, mappingErr(table, "currency", "unknown currency %q", currency)
	}

	optional := []struct {
		column string
		dst    **string
	}{
		{"notes", &inv.Notes},
		{"approved_by", &inv.ApprovedBy},
		{"service_type", &inv.ServiceType},
		{"time_period", &inv.TimePeriod},
	}
	for _, f := range optional {
		if *f.dst, err = optionalText(table, row, f.column); err != nil {
			return invoicedomain.Invoice{}, err
		}
	}

	inv.Items = make([]invoicedomain.InvoiceItem, 0, len(itemRows))
	for _, itemRow := range itemRows {
		item, err := ItemFromRow(itemRow)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, nil
}

// InvoiceToRow flattens the invoice header. Absent optional text becomes NULL.
func InvoiceToRow(inv invoicedomain.Invoice) gateway.Row {
	row := gateway.Row{
		"invoice_number": inv.InvoiceNumber,
		"date":           inv.Date,
		"due_date":       inv.DueDate,
		"employee_id":    inv.EmployeeID,
		"status":         string(inv.Status),
		"currency":       string(inv.Currency),
		"notes":          nullable(inv.Notes),
		"approved_by":    nullable(inv.ApprovedBy),
		"service_type":   nullable(inv.ServiceType),
		"time_period":    nullable(inv.TimePeriod),
	}
	if inv.ID != "" {
		row["id"] = inv.ID
	}
	return row
}

// ItemsToRows tags each item with invoiceID and its position.
func ItemsToRows(invoiceID string, items []invoicedomain.InvoiceItem) []gateway.Row {
	rows := make([]gateway.Row, 0, len(items))
	for i, item := range items {
		rows = append(rows, gateway.Row{
			"id":          item.ID,
			"invoice_id":  invoiceID,
			"position":    i,
			"description": item.Description,
			"quantity":    item.Quantity.String(),
			"unit_price":  item.UnitPrice.String(),
		})
	}
	return rows
}

func ItemFromRow(row gateway.Row) (invoicedomain.InvoiceItem, error) {
	const table = gateway.TableInvoiceItems

	var (
		item invoicedomain.InvoiceItem
		err  error
	)
	if item.ID, err = requiredText(table, row, "id"); err != nil {
		return invoicedomain.InvoiceItem{}, err
	}
	if item.Description, err = requiredText(table, row, "description"); err != nil {
		return invoicedomain.InvoiceItem{}, err
	}
	if item.Quantity, err = requiredDecimal(table, row, "quantity"); err != nil {
		return invoicedomain.InvoiceItem{}, err
	}
	if item.UnitPrice, err = requiredDecimal(table, row, "unit_price"); err != nil {
		return invoicedomain.InvoiceItem{}, err
	}
	return item, nil
}
