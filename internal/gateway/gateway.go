// Package gateway is the remote store boundary: table-level list, filter, insert,
// update and delete over flat rows. It knows nothing about domain shapes.
package gateway

import (
	"context"
)

// Row is a single persisted record keyed by snake_case column name.
type Row map[string]any

const (
	TableEmployees    = "employees"
	TableInvoices     = "invoices"
	TableInvoiceItems = "invoice_items"
)

// Gateway is the remote store contract consumed by the workspace.
type Gateway interface {
	ListRows(ctx context.Context, table string) ([]Row, error)
	GetRelatedRows(ctx context.Context, table, foreignKey string, value any) ([]Row, error)
	InsertRow(ctx context.Context, table string, payload Row) (Row, error)
	// InsertRows writes all payloads in one statement and returns the stored rows.
	InsertRows(ctx context.Context, table string, payloads []Row) ([]Row, error)
	// UpdateRow is void: an unknown id is not an error.
	UpdateRow(ctx context.Context, table, id string, payload Row) error
	DeleteRow(ctx context.Context, table, id string) error
	DeleteRelatedRows(ctx context.Context, table, foreignKey string, value any) error
}

type tableSpec struct {
	columns     map[string]struct{}
	foreignKeys map[string]struct{}
	orderBy     string
}

var managedColumns = []string{"id", "created_at", "updated_at"}

var tables = map[string]tableSpec{
	TableEmployees: newTableSpec("id ASC", nil,
		"name", "email", "address", "cnic",
		"bank_account_holder", "bank_swift_bic", "bank_iban", "bank_name", "bank_address",
	),
	TableInvoices: newTableSpec("id ASC", []string{"employee_id"},
		"invoice_number", "date", "due_date", "employee_id", "status", "currency",
		"notes", "approved_by", "service_type", "time_period",
	),
	TableInvoiceItems: newTableSpec("position ASC, id ASC", []string{"invoice_id"},
		"invoice_id", "position", "description", "quantity", "unit_price",
	),
}

func newTableSpec(orderBy string, foreignKeys []string, columns ...string) tableSpec {
	spec := tableSpec{
		columns:     make(map[string]struct{}, len(columns)+len(managedColumns)),
		foreignKeys: make(map[string]struct{}, len(foreignKeys)),
		orderBy:     orderBy,
	}
	for _, c := range managedColumns {
		spec.columns[c] = struct{}{}
	}
	for _, c := range columns {
		spec.columns[c] = struct{}{}
	}
	for _, fk := range foreignKeys {
		spec.foreignKeys[fk] = struct{}{}
	}
	return spec
}

func lookupTable(table string) (tableSpec, error) {
	spec, ok := tables[table]
	if !ok {
		return tableSpec{}, ErrUnknownTable
	}
	return spec, nil
}

func (s tableSpec) checkForeignKey(column string) error {
	if _, ok := s.foreignKeys[column]; !ok {
		return ErrUnknownColumn
	}
	return nil
}

func (s tableSpec) checkPayload(payload Row) error {
	for column := range payload {
		if _, ok := s.columns[column]; !ok {
			return ErrUnknownColumn
		}
	}
	return nil
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the row id as a string, or "" when the row has none.
func (r Row) ID() string {
	return idString(r["id"])
}
