// Package domain holds the employee (contractor) model shared by the workspace and the API.
package domain

// BankDetails groups the payout account printed on every invoice.
type BankDetails struct {
	AccountHolder string `json:"accountHolder"`
	SwiftBic      string `json:"swiftBic"`
	IBAN          string `json:"iban"`
	BankName      string `json:"bankName"`
	BankAddress   string `json:"bankAddress"`
}

// Employee is a contractor invoices are issued against.
type Employee struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	CNIC        string      `json:"cnic"`
	BankDetails BankDetails `json:"bankDetails"`
}
