// Package rowmap translates between flat gateway rows and nested domain values.
package rowmap

import (
	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
)

// EmployeeFromRow folds the bank_* columns into BankDetails.
func EmployeeFromRow(row gateway.Row) (employeedomain.Employee, error) {
	const table = gateway.TableEmployees

	var (
		e   employeedomain.Employee
		err error
	)
	fields := []struct {
		column string
		dst    *string
	}{
		{"id", &e.ID},
		{"name", &e.Name},
		{"email", &e.Email},
		{"address", &e.Address},
		{"cnic", &e.CNIC},
		{"bank_account_holder", &e.BankDetails.AccountHolder},
		{"bank_swift_bic", &e.BankDetails.SwiftBic},
		{"bank_iban", &e.BankDetails.IBAN},
		{"bank_name", &e.BankDetails.BankName},
		{"bank_address", &e.BankDetails.BankAddress},
	}
	for _, f := range fields {
		if *f.dst, err = requiredText(table, row, f.column); err != nil {
			return employeedomain.Employee{}, err
		}
	}
	return e, nil
}

// EmployeeToRow flattens e. An empty id is left out so the store assigns one.
func EmployeeToRow(e employeedomain.Employee) gateway.Row {
	row := gateway.Row{
		"name":                e.Name,
		"email":               e.Email,
		"address":             e.Address,
		"cnic":                e.CNIC,
		"bank_account_holder": e.BankDetails.AccountHolder,
		"bank_swift_bic":      e.BankDetails.SwiftBic,
		"bank_iban":           e.BankDetails.IBAN,
		"bank_name":           e.BankDetails.BankName,
		"bank_address":        e.BankDetails.BankAddress,
	}
	if e.ID != "" {
		row["id"] = e.ID
	}
	return row
}
