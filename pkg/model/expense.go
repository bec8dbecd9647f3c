package model

import (
	"fmt"
	"strings"
)

// ExpenseStatus is the approval outcome of an expense.
type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpenseRejected ExpenseStatus = "rejected"
)

// ExpenseCategory classifies an expense.
type ExpenseCategory string

const (
	CategoryTravel         ExpenseCategory = "travel"
	CategoryMeals          ExpenseCategory = "meals"
	CategoryAccommodation  ExpenseCategory = "accommodation"
	CategoryOfficeSupplies ExpenseCategory = "office_supplies"
	CategoryEntertainment  ExpenseCategory = "entertainment"
	CategoryTransportation ExpenseCategory = "transportation"
	CategoryUtilities      ExpenseCategory = "utilities"
	CategorySoftware       ExpenseCategory = "software"
	CategoryTraining       ExpenseCategory = "training"
	CategoryOther          ExpenseCategory = "other"
)

// Categories lists every known category in display order.
var Categories = []ExpenseCategory{
	CategoryTravel, CategoryMeals, CategoryAccommodation, CategoryOfficeSupplies,
	CategoryEntertainment, CategoryTransportation, CategoryUtilities,
	CategorySoftware, CategoryTraining, CategoryOther,
}

// ParseCategory converts a case-insensitive category name. Spaces and
// dashes are accepted in place of underscores.
func ParseCategory(s string) (ExpenseCategory, error) {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range Categories {
		if string(c) == norm {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown expense category %q", s)
}

// Expense is a submitted expense claim.
type Expense struct {
	ID                  int64           `json:"id"`
	UserID              int64           `json:"user_id"`
	CompanyID           int64           `json:"company_id"`
	Amount              float64         `json:"amount"`
	Currency            string          `json:"currency"`
	ConvertedAmount     *float64        `json:"converted_amount"`
	Category            ExpenseCategory `json:"category"`
	Description         string          `json:"description"`
	ExpenseDate         Timestamp       `json:"expense_date"`
	ReceiptURL          *string         `json:"receipt_url"`
	Vendor              *string         `json:"vendor"`
	Status              ExpenseStatus   `json:"status"`
	AISuggestedCategory *string         `json:"ai_suggested_category"`
	CreatedAt           Timestamp       `json:"created_at"`
	UpdatedAt           Timestamp       `json:"updated_at"`
}

// VendorName returns the vendor or "" when none was recorded.
func (e *Expense) VendorName() string {
	if e.Vendor == nil {
		return ""
	}
	return *e.Vendor
}

// RiskScore is the backend's computed fraud/risk assessment of an expense.
type RiskScore struct {
	ExpenseID int64    `json:"expense_id"`
	Score     float64  `json:"score"`
	RiskLevel string   `json:"risk_level"`
	Factors   []string `json:"factors"`
	Message   string   `json:"message"`
}
