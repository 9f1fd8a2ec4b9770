package workspace

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
)

const DefaultRecentLimit = 5

// RecentInvoice is a dashboard row.
type RecentInvoice struct {
	Invoice      invoicedomain.Invoice `json:"invoice"`
	EmployeeName string                `json:"employeeName"`
	Total        decimal.Decimal       `json:"total"`
	Formatted    string                `json:"formattedTotal"`
}

// CurrencyTotal sums invoice totals of one currency. Currencies are never mixed.
type CurrencyTotal struct {
	Currency  invoicedomain.Currency `json:"currency"`
	Amount    decimal.Decimal        `json:"amount"`
	Formatted string                 `json:"formatted"`
}

type DashboardSummary struct {
	TotalInvoices  int                                 `json:"totalInvoices"`
	TotalEmployees int                                 `json:"totalEmployees"`
	ByStatus       map[invoicedomain.InvoiceStatus]int `json:"byStatus"`
	Pending        int                                 `json:"pending"`
	Totals         []CurrencyTotal                     `json:"totals"`
	Recent         []RecentInvoice                     `json:"recent"`
	Loading        bool                                `json:"loading"`
}

// Dashboard summarises the current snapshot.
func (s *Store) Dashboard(limit int) DashboardSummary {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	s.mu.RLock()
	employees := s.employees
	invoices := s.invoices
	loading := s.inflight > 0
	s.mu.RUnlock()

	summary := DashboardSummary{
		TotalInvoices:  len(invoices),
		TotalEmployees: len(employees),
		ByStatus:       make(map[invoicedomain.InvoiceStatus]int, len(invoicedomain.InvoiceStatuses)),
		Totals:         []CurrencyTotal{},
		Recent:         []RecentInvoice{},
		Loading:        loading,
	}
	for _, status := range invoicedomain.InvoiceStatuses {
		summary.ByStatus[status] = 0
	}

	sums := map[invoicedomain.Currency]decimal.Decimal{}
	for _, inv := range invoices {
		summary.ByStatus[inv.Status]++
		if inv.Status.IsPending() {
			summary.Pending++
		}
		sums[inv.Currency] = sums[inv.Currency].Add(inv.Total())
	}
	for _, currency := range invoicedomain.Currencies {
		amount, ok := sums[currency]
		if !ok {
			continue
		}
		summary.Totals = append(summary.Totals, CurrencyTotal{
			Currency:  currency,
			Amount:    amount,
			Formatted: currency.Format(amount),
		})
	}

	names := make(map[string]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}

	recent := cloneInvoices(invoices)
	// Dates are YYYY-MM-DD so lexical order is chronological.
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date > recent[j].Date })
	if len(recent) > limit {
		recent = recent[:limit]
	}
	for _, inv := range recent {
		name, ok := names[inv.EmployeeID]
		if !ok {
			name = "Unknown"
		}
		total := inv.Total()
		summary.Recent = append(summary.Recent, RecentInvoice{
			Invoice:      inv,
			EmployeeName: name,
			Total:        total,
			Formatted:    inv.Currency.Format(total),
		})
	}
	return summary
}

// SearchEmployees matches term against names, case-insensitively.
func (s *Store) SearchEmployees(term string) []employeedomain.Employee {
	term = strings.ToLower(strings.TrimSpace(term))
	out := []employeedomain.Employee{}
	for _, e := range s.Employees() {
		if term == "" || strings.Contains(strings.ToLower(e.Name), term) {
			out = append(out, e)
		}
	}
	return out
}

type InvoiceFilter struct {
	Term   string
	Status invoicedomain.InvoiceStatus
}

// FilterInvoices matches Term against invoice numbers and Status exactly; empty means any.
func (s *Store) FilterInvoices(f InvoiceFilter) []invoicedomain.Invoice {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	out := []invoicedomain.Invoice{}
	for _, inv := range s.Invoices() {
		if term != "" && !strings.Contains(strings.ToLower(inv.InvoiceNumber), term) {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, inv)
	}
	return out
}
