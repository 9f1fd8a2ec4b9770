package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/smallbiznis/invoicenexus/internal/gateway/gatewaytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employeeRow(name string) gateway.Row {
	return gateway.Row{
		"name":                name,
		"email":               "jane.smith@example.com",
		"address":             "123 Main St",
		"cnic":                "45678-9012345-6",
		"bank_account_holder": name,
		"bank_swift_bic":      "DEUTDEFF",
		"bank_iban":           "DE89370400440532013000",
		"bank_name":           "Deutsche Bank",
		"bank_address":        "Taunusanlage 12, Frankfurt",
	}
}

func invoiceRow(employeeID string) gateway.Row {
	return gateway.Row{
		"invoice_number": "INV-1",
		"date":           "2024-01-15",
		"due_date":       "2024-02-14",
		"employee_id":    employeeID,
		"status":         "draft",
		"currency":       "EUR",
		"notes":          nil,
		"approved_by":    nil,
		"service_type":   "Software IT services",
		"time_period":    nil,
	}
}

func TestInsertRowAssignsServerID(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	ctx := context.Background()

	row, err := gw.InsertRow(ctx, gateway.TableEmployees, employeeRow("Jane Smith"))
	require.NoError(t, err)

	assert.NotEmpty(t, row.ID())
	assert.Equal(t, "Jane Smith", row["name"])
	assert.NotNil(t, row["created_at"])

	rows, err := gw.ListRows(ctx, gateway.TableEmployees)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row.ID(), rows[0].ID())
}

func TestListRowsKeepsInsertionOrder(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	ctx := context.Background()

	names := []string{"Ann", "Bob", "Cid"}
	for _, name := range names {
		_, err := gw.InsertRow(ctx, gateway.TableEmployees, employeeRow(name))
		require.NoError(t, err)
	}

	rows, err := gw.ListRows(ctx, gateway.TableEmployees)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, name := range names {
		assert.Equal(t, name, rows[i]["name"])
	}
}

func TestInsertRowsKeepsClientIDsAndPosition(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	ctx := context.Background()

	emp, err := gw.InsertRow(ctx, gateway.TableEmployees, employeeRow("Jane"))
	require.NoError(t, err)
	inv, err := gw.InsertRow(ctx, gateway.TableInvoices, invoiceRow(emp.ID()))
	require.NoError(t, err)

	items := []gateway.Row{
		{"id": "zz-item", "invoice_id": inv.ID(), "position": 0, "description": "Design", "quantity": "2", "unit_price": "10.50"},
		{"id": "aa-item", "invoice_id": inv.ID(), "position": 1, "description": "Build", "quantity": "1", "unit_price": "2750.79"},
	}
	stored, err := gw.InsertRows(ctx, gateway.TableInvoiceItems, items)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	related, err := gw.GetRelatedRows(ctx, gateway.TableInvoiceItems, "invoice_id", inv.ID())
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, "zz-item", related[0].ID())
	assert.Equal(t, "aa-item", related[1].ID())
}

func TestInsertRowsWithNoPayloadsIsNoop(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)

	rows, err := gw.InsertRows(context.Background(), gateway.TableInvoiceItems, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateRowUnknownIDIsNotAnError(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	ctx := context.Background()

	assert.NoError(t, gw.UpdateRow(ctx, gateway.TableEmployees, "missing", gateway.Row{"name": "Nobody"}))

	row, err := gw.InsertRow(ctx, gateway.TableEmployees, employeeRow("Jane"))
	require.NoError(t, err)
	require.NoError(t, gw.UpdateRow(ctx, gateway.TableEmployees, row.ID(), gateway.Row{"id": row.ID(), "name": "Janet"}))

	rows, err := gw.ListRows(ctx, gateway.TableEmployees)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Janet", rows[0]["name"])
}

func TestDeleteInvoiceCascadesToItems(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	ctx := context.Background()

	emp, err := gw.InsertRow(ctx, gateway.TableEmployees, employeeRow("Jane"))
	require.NoError(t, err)
	inv, err := gw.InsertRow(ctx, gateway.TableInvoices, invoiceRow(emp.ID()))
	require.NoError(t, err)
	_, err = gw.InsertRows(ctx, gateway.TableInvoiceItems, []gateway.Row{
		{"id": "i1", "invoice_id": inv.ID(), "position": 0, "description": "Dev", "quantity": "1", "unit_price": "1"},
	})
	require.NoError(t, err)

	require.NoError(t, gw.DeleteRow(ctx, gateway.TableInvoices, inv.ID()))

	items, err := gw.ListRows(ctx, gateway.TableInvoiceItems)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteRelatedRows(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	ctx := context.Background()

	emp, err := gw.InsertRow(ctx, gateway.TableEmployees, employeeRow("Jane"))
	require.NoError(t, err)
	inv, err := gw.InsertRow(ctx, gateway.TableInvoices, invoiceRow(emp.ID()))
	require.NoError(t, err)
	_, err = gw.InsertRows(ctx, gateway.TableInvoiceItems, []gateway.Row{
		{"id": "i1", "invoice_id": inv.ID(), "position": 0, "description": "A", "quantity": "1", "unit_price": "1"},
		{"id": "i2", "invoice_id": inv.ID(), "position": 1, "description": "B", "quantity": "1", "unit_price": "1"},
	})
	require.NoError(t, err)

	require.NoError(t, gw.DeleteRelatedRows(ctx, gateway.TableInvoiceItems, "invoice_id", inv.ID()))

	items, err := gw.GetRelatedRows(ctx, gateway.TableInvoiceItems, "invoice_id", inv.ID())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteReferencedEmployeeIsConflict(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	ctx := context.Background()

	emp, err := gw.InsertRow(ctx, gateway.TableEmployees, employeeRow("Jane"))
	require.NoError(t, err)
	_, err = gw.InsertRow(ctx, gateway.TableInvoices, invoiceRow(emp.ID()))
	require.NoError(t, err)

	err = gw.DeleteRow(ctx, gateway.TableEmployees, emp.ID())
	var remoteErr *gateway.RemoteError
	require.True(t, errors.As(err, &remoteErr), "expected RemoteError, got %v", err)
	assert.Equal(t, gateway.KindConflict, remoteErr.Kind)
	assert.Equal(t, "delete", remoteErr.Op)
	assert.Equal(t, gateway.TableEmployees, remoteErr.Table)
}

func TestUnknownTableAndColumnAreRejected(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	ctx := context.Background()

	_, err := gw.ListRows(ctx, "payments")
	assert.ErrorIs(t, err, gateway.ErrUnknownTable)
	assert.True(t, gateway.IsKind(err, gateway.KindInvalid))

	_, err = gw.InsertRow(ctx, gateway.TableEmployees, gateway.Row{"name": "x", "salary": 1})
	assert.ErrorIs(t, err, gateway.ErrUnknownColumn)

	_, err = gw.GetRelatedRows(ctx, gateway.TableInvoiceItems, "description", "x")
	assert.ErrorIs(t, err, gateway.ErrUnknownColumn)

	err = gw.DeleteRelatedRows(ctx, gateway.TableInvoices, "status; DROP TABLE invoices", "x")
	assert.ErrorIs(t, err, gateway.ErrUnknownColumn)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, gateway.KindUnavailable, gateway.Classify(context.DeadlineExceeded))
	assert.Equal(t, gateway.KindUnknown, gateway.Classify(errors.New("boom")))
	assert.Equal(t, gateway.Kind(""), gateway.Classify(nil))
}

func TestFaultyInjectsRemoteErrors(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	faulty := gatewaytest.NewFaulty(gw)
	faulty.FailOn("list", gateway.TableEmployees, errors.New("connection reset"))

	_, err := faulty.ListRows(context.Background(), gateway.TableEmployees)
	var remoteErr *gateway.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "connection reset", remoteErr.Cause)

	faulty.Heal()
	_, err = faulty.ListRows(context.Background(), gateway.TableEmployees)
	assert.NoError(t, err)
	assert.Len(t, faulty.Calls(), 2)
}
