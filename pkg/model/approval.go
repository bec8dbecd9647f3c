package model

import "fmt"

// ApprovalStatus is the state of a single approval step.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is one step of an expense's approval workflow.
type Approval struct {
	ID           int64          `json:"id"`
	ExpenseID    int64          `json:"expense_id"`
	ApproverID   int64          `json:"approver_id"`
	WorkflowStep int            `json:"workflow_step"`
	Status       ApprovalStatus `json:"status"`
	Comments     *string        `json:"comments"`
	ApprovedAt   *Timestamp     `json:"approved_at"`
	CreatedAt    Timestamp      `json:"created_at"`
}

// PendingApproval is one entry of GET /approvals/pending.
type PendingApproval struct {
	Approval  Approval `json:"approval"`
	Expense   Expense  `json:"expense"`
	Submitter User     `json:"submitter"`
}

// ApprovalDecision is the body of PUT /approvals/{id}.
type ApprovalDecision struct {
	Status   ApprovalStatus `json:"status"`
	Comments string         `json:"comments"`
}

// Validate rejects anything other than an approve or reject decision.
func (d ApprovalDecision) Validate() error {
	if d.Status != ApprovalApproved && d.Status != ApprovalRejected {
		return fmt.Errorf("decision must be %q or %q, got %q", ApprovalApproved, ApprovalRejected, d.Status)
	}
	return nil
}
