package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smallbiznis/invoicenexus/internal/clock"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
)

const (
	DefaultServiceType     = "Software IT services"
	DefaultItemDescription = "Development"
	defaultDueDays         = 30
)

var (
	ErrLastItem  = errors.New("an invoice needs at least one item")
	ErrItemIndex = errors.New("item index out of range")
)

// ItemDraft is an editable invoice line. Quantity and unit price accept JSON
// numbers or strings; anything unparsable becomes zero.
type ItemDraft struct {
	ID          string          `json:"id"`
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"min=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"min=0"`
}

func (d *ItemDraft) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Quantity    json.RawMessage `json:"quantity"`
		UnitPrice   json.RawMessage `json:"unitPrice"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.ID = raw.ID
	d.Description = raw.Description
	d.Quantity = parseNumber(rawText(raw.Quantity))
	d.UnitPrice = parseNumber(rawText(raw.UnitPrice))
	return nil
}

func (d ItemDraft) Amount() decimal.Decimal {
	return d.Quantity.Mul(d.UnitPrice)
}

// InvoiceDraft is the invoice form state.
type InvoiceDraft struct {
	InvoiceNumber string      `json:"invoiceNumber" validate:"required"`
	Date          string      `json:"date" validate:"required,datetime=2006-01-02"`
	DueDate       string      `json:"dueDate" validate:"required,datetime=2006-01-02"`
	EmployeeID    string      `json:"employeeId" validate:"required"`
	Status        string      `json:"status" validate:"required,oneof=draft sent paid overdue cancelled"`
	Currency      string      `json:"currency" validate:"required,oneof=EUR USD PKR"`
	Notes         string      `json:"notes"`
	ApprovedBy    string      `json:"approvedBy"`
	ServiceType   string      `json:"serviceType"`
	TimePeriod    string      `json:"timePeriod"`
	Items         []ItemDraft `json:"items" validate:"min=1,unique_ids,dive"`

	newID func() string
}

var invoiceMessages = map[string]string{
	"invoiceNumber|required":       "Invoice number is required",
	"date|required":                "Date is required",
	"date|datetime":                "Date must be formatted as YYYY-MM-DD",
	"dueDate|required":             "Due date is required",
	"dueDate|datetime":             "Due date must be formatted as YYYY-MM-DD",
	"employeeId|required":          "Employee is required",
	"status|required":              "Status is required",
	"status|oneof":                 "Status is not supported",
	"currency|required":            "Currency is required",
	"currency|oneof":               "Currency is not supported",
	"items|min":                    "At least one item is required",
	"items|unique_ids":             "Each item must have a distinct id",
	"items[].description|required": "Description is required",
	"items[].quantity|min":         "Quantity must be at least 1",
	"items[].unitPrice|min":        "Unit price cannot be negative",
}

// NewInvoiceDraft returns the defaults shown when creating an invoice.
func NewInvoiceDraft(c clock.Clock, newID func() string) *InvoiceDraft {
	now := c.Now()
	d := &InvoiceDraft{
		InvoiceNumber: fmt.Sprintf("INV-%d", now.UnixMilli()),
		Date:          now.Format(invoicedomain.DateLayout),
		DueDate:       now.AddDate(0, 0, defaultDueDays).Format(invoicedomain.DateLayout),
		Status:        string(invoicedomain.InvoiceStatusDraft),
		Currency:      string(invoicedomain.CurrencyEUR),
		ServiceType:   DefaultServiceType,
		newID:         newID,
	}
	d.Items = []ItemDraft{{
		ID:          d.nextID(),
		Description: DefaultItemDescription,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.Zero,
	}}
	return d
}

// DraftFromInvoice seeds a draft for editing an existing invoice.
func DraftFromInvoice(inv invoicedomain.Invoice) *InvoiceDraft {
	d := &InvoiceDraft{
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.Date,
		DueDate:       inv.DueDate,
		EmployeeID:    inv.EmployeeID,
		Status:        string(inv.Status),
		Currency:      string(inv.Currency),
		Notes:         deref(inv.Notes),
		ApprovedBy:    deref(inv.ApprovedBy),
		ServiceType:   deref(inv.ServiceType),
		TimePeriod:    deref(inv.TimePeriod),
		Items:         make([]ItemDraft, 0, len(inv.Items)),
	}
	for _, item := range inv.Items {
		d.Items = append(d.Items, ItemDraft{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return d
}

func (d *InvoiceDraft) nextID() string {
	if d.newID != nil {
		return d.newID()
	}
	return uuid.NewString()
}

func (d *InvoiceDraft) AppendItem() {
	d.Items = append(d.Items, ItemDraft{
		ID:        d.nextID(),
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.Zero,
	})
}

func (d *InvoiceDraft) RemoveItem(i int) error {
	if len(d.Items) <= 1 {
		return ErrLastItem
	}
	if i < 0 || i >= len(d.Items) {
		return ErrItemIndex
	}
	d.Items = append(d.Items[:i], d.Items[i+1:]...)
	return nil
}

func (d *InvoiceDraft) SetDescription(i int, description string) error {
	if i < 0 || i >= len(d.Items) {
		return ErrItemIndex
	}
	d.Items[i].Description = description
	return nil
}

// SetQuantity parses raw; non-numeric input is stored as zero.
func (d *InvoiceDraft) SetQuantity(i int, raw string) error {
	if i < 0 || i >= len(d.Items) {
		return ErrItemIndex
	}
	d.Items[i].Quantity = parseNumber(raw)
	return nil
}

// SetUnitPrice parses raw; non-numeric input is stored as zero.
func (d *InvoiceDraft) SetUnitPrice(i int, raw string) error {
	if i < 0 || i >= len(d.Items) {
		return ErrItemIndex
	}
	d.Items[i].UnitPrice = parseNumber(raw)
	return nil
}

func (d *InvoiceDraft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.Amount())
	}
	return total
}

// TotalString is the total rounded half-up to two places.
func (d *InvoiceDraft) TotalString() string {
	return d.Total().StringFixed(2)
}

// Validate returns *ValidationErrors when the draft cannot be saved.
func (d *InvoiceDraft) Validate() error {
	d.InvoiceNumber = strings.TrimSpace(d.InvoiceNumber)
	d.Date = strings.TrimSpace(d.Date)
	d.DueDate = strings.TrimSpace(d.DueDate)
	d.EmployeeID = strings.TrimSpace(d.EmployeeID)
	for i := range d.Items {
		d.Items[i].ID = strings.TrimSpace(d.Items[i].ID)
		d.Items[i].Description = strings.TrimSpace(d.Items[i].Description)
	}
	return check(d, invoiceMessages)
}

// Invoice builds the domain value. Items without an id get a fresh one.
func (d *InvoiceDraft) Invoice(id string) invoicedomain.Invoice {
	inv := invoicedomain.Invoice{
		ID:            id,
		InvoiceNumber: d.InvoiceNumber,
		Date:          d.Date,
		DueDate:       d.DueDate,
		EmployeeID:    d.EmployeeID,
		Status:        invoicedomain.InvoiceStatus(d.Status),
		Currency:      invoicedomain.Currency(d.Currency),
		Notes:         optional(d.Notes),
		ApprovedBy:    optional(d.ApprovedBy),
		ServiceType:   optional(d.ServiceType),
		TimePeriod:    optional(d.TimePeriod),
		Items:         make([]invoicedomain.InvoiceItem, 0, len(d.Items)),
	}
	for _, item := range d.Items {
		itemID := item.ID
		if itemID == "" {
			itemID = d.nextID()
		}
		inv.Items = append(inv.Items, invoicedomain.InvoiceItem{
			ID:          itemID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return inv
}

func parseNumber(raw string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return v
}

func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
