package form

import (
	"strings"

	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
)

type BankDetailsInput struct {
	AccountHolder string `json:"accountHolder" validate:"min=2"`
	SwiftBic      string `json:"swiftBic" validate:"min=2"`
	IBAN          string `json:"iban" validate:"min=5"`
	BankName      string `json:"bankName" validate:"min=2"`
	BankAddress   string `json:"bankAddress" validate:"min=5"`
}

// EmployeeInput is the employee form.
type EmployeeInput struct {
	Name        string           `json:"name" validate:"min=2"`
	Email       string           `json:"email" validate:"email"`
	Address     string           `json:"address" validate:"min=5"`
	CNIC        string           `json:"cnic" validate:"min=5"`
	BankDetails BankDetailsInput `json:"bankDetails"`
}

var employeeMessages = map[string]string{
	"name|min":                      "Name must be at least 2 characters",
	"email|email":                   "Please enter a valid email",
	"address|min":                   "Address must be at least 5 characters",
	"cnic|min":                      "CNIC must be at least 5 characters",
	"bankDetails.accountHolder|min": "Account holder name is required",
	"bankDetails.swiftBic|min":      "SWIFT/BIC code is required",
	"bankDetails.iban|min":          "IBAN is required",
	"bankDetails.bankName|min":      "Bank name is required",
	"bankDetails.bankAddress|min":   "Bank address is required",
}

// Validate trims every field and checks it. It returns *ValidationErrors on failure.
func (in *EmployeeInput) Validate() error {
	in.normalize()
	return check(in, employeeMessages)
}

func (in *EmployeeInput) normalize() {
	for _, f := range []*string{
		&in.Name, &in.Email, &in.Address, &in.CNIC,
		&in.BankDetails.AccountHolder, &in.BankDetails.SwiftBic, &in.BankDetails.IBAN,
		&in.BankDetails.BankName, &in.BankDetails.BankAddress,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// Employee builds the domain value. Call Validate first.
func (in EmployeeInput) Employee(id string) employeedomain.Employee {
	return employeedomain.Employee{
		ID:      id,
		Name:    in.Name,
		Email:   in.Email,
		Address: in.Address,
		CNIC:    in.CNIC,
		BankDetails: employeedomain.BankDetails{
			AccountHolder: in.BankDetails.AccountHolder,
			SwiftBic:      in.BankDetails.SwiftBic,
			IBAN:          in.BankDetails.IBAN,
			BankName:      in.BankDetails.BankName,
			BankAddress:   in.BankDetails.BankAddress,
		},
	}
}

// EmployeeInputFrom seeds the form for editing.
func EmployeeInputFrom(e employeedomain.Employee) EmployeeInput {
	return EmployeeInput{
		Name:    e.Name,
		Email:   e.Email,
		Address: e.Address,
		CNIC:    e.CNIC,
		BankDetails: BankDetailsInput{
			AccountHolder: e.BankDetails.AccountHolder,
			SwiftBic:      e.BankDetails.SwiftBic,
			IBAN:          e.BankDetails.IBAN,
			BankName:      e.BankDetails.BankName,
			BankAddress:   e.BankDetails.BankAddress,
		},
	}
}
