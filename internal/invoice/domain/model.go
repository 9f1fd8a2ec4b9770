// Package domain contains the invoice model and its enumerations.
package domain

import (
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for issue and due dates.
const DateLayout = "2006-01-02"

// InvoiceItem is a single line on an invoice. Its id is generated client side.
type InvoiceItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Amount returns quantity × unit price.
func (i InvoiceItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Invoice is issued to exactly one employee and owns its items.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Date          string        `json:"date"`
	DueDate       string        `json:"dueDate"`
	EmployeeID    string        `json:"employeeId"`
	Items         []InvoiceItem `json:"items"`
	Status        InvoiceStatus `json:"status"`
	Currency      Currency      `json:"currency"`
	Notes         *string       `json:"notes,omitempty"`
	ApprovedBy    *string       `json:"approvedBy,omitempty"`
	ServiceType   *string       `json:"serviceType,omitempty"`
	TimePeriod    *string       `json:"timePeriod,omitempty"`
}

// Total sums the item amounts. It is never stored.
func (inv Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.Amount())
	}
	return total
}

// Clone returns a copy that shares no mutable state with inv.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Items = append(make([]InvoiceItem, 0, len(inv.Items)), inv.Items...)
	out.Notes = cloneString(inv.Notes)
	out.ApprovedBy = cloneString(inv.ApprovedBy)
	out.ServiceType = cloneString(inv.ServiceType)
	out.TimePeriod = cloneString(inv.TimePeriod)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
