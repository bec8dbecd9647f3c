package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/me/expensectl/pkg/model"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) Envelope[model.AuthResponse] {
	return Post[model.AuthResponse](ctx, c, "/auth/login", req)
}

// Signup registers a new company and its first (admin) user.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) Envelope[model.AuthResponse] {
	q := url.Values{}
	q.Set("company_name", req.CompanyName)
	q.Set("country", req.Country)
	return Post[model.AuthResponse](ctx, c, "/auth/signup?"+q.Encode(), req)
}

// CurrentUser returns the user the bearer token belongs to.
func (c *Client) CurrentUser(ctx context.Context) Envelope[model.User] {
	return Get[model.User](ctx, c, "/users/me")
}

// ListExpenses returns the expenses visible to the caller's role: own
// expenses for employees, the team's for managers, the company's for admins.
func (c *Client) ListExpenses(ctx context.Context) Envelope[[]model.Expense] {
	return Get[[]model.Expense](ctx, c, "/expenses/")
}

func (c *Client) GetExpense(ctx context.Context, id int64) Envelope[model.Expense] {
	return Get[model.Expense](ctx, c, fmt.Sprintf("/expenses/%d", id))
}

// CreateExpense submits an expense, with its receipt if one is attached.
func (c *Client) CreateExpense(ctx context.Context, form *Form) Envelope[model.Expense] {
	return UploadFile[model.Expense](ctx, c, "/expenses/", form)
}

func (c *Client) ExpenseRisk(ctx context.Context, id int64) Envelope[model.RiskScore] {
	return Get[model.RiskScore](ctx, c, fmt.Sprintf("/expenses/%d/risk", id))
}

// ExpenseApprovals lists the approval steps of an expense in workflow order.
func (c *Client) ExpenseApprovals(ctx context.Context, id int64) Envelope[[]model.Approval] {
	return Get[[]model.Approval](ctx, c, fmt.Sprintf("/approvals/expense/%d", id))
}

// PendingApprovals lists approvals waiting on the caller.
func (c *Client) PendingApprovals(ctx context.Context) Envelope[[]model.PendingApproval] {
	return Get[[]model.PendingApproval](ctx, c, "/approvals/pending")
}

func (c *Client) DecideApproval(ctx context.Context, id int64, d model.ApprovalDecision) Envelope[model.Approval] {
	return Put[model.Approval](ctx, c, fmt.Sprintf("/approvals/%d", id), d)
}

func (c *Client) ListUsers(ctx context.Context) Envelope[[]model.User] {
	return Get[[]model.User](ctx, c, "/users/")
}

func (c *Client) CreateUser(ctx context.Context, u model.NewUser) Envelope[model.User] {
	return Post[model.User](ctx, c, "/users/", u)
}

func (c *Client) DashboardAnalytics(ctx context.Context) Envelope[model.DashboardAnalytics] {
	return Get[model.DashboardAnalytics](ctx, c, "/analytics/dashboard")
}

func (c *Client) UserStats(ctx context.Context) Envelope[model.UserStats] {
	return Get[model.UserStats](ctx, c, "/analytics/user-stats")
}

// ExpenseForm holds the fields of a new expense.
type ExpenseForm struct {
	Amount      float64
	Currency    string
	Category    model.ExpenseCategory
	Description string
	ExpenseDate time.Time
	Vendor      string
	ReceiptPath string
}

// Form renders the expense as multipart fields. Currency defaults to USD,
// category to other and the date to now. A zero amount is left out and
// the backend rejects the submission.
func (e ExpenseForm) Form(now time.Time) (*Form, error) {
	f := NewForm()
	if e.Amount != 0 {
		f.Set("amount", strconv.FormatFloat(e.Amount, 'f', -1, 64))
	}

	currency := e.Currency
	if currency == "" {
		currency = "USD"
	}
	f.Set("currency", currency)

	category := e.Category
	if category == "" {
		category = model.CategoryOther
	}
	f.Set("category", string(category))
	f.Set("description", e.Description)

	date := e.ExpenseDate
	if date.IsZero() {
		date = now
	}
	f.Set("expense_date", date.UTC().Format(time.RFC3339))

	if e.Vendor != "" {
		f.Set("vendor", e.Vendor)
	}
	if e.ReceiptPath != "" {
		if err := f.AddFilePath("receipt", e.ReceiptPath); err != nil {
			return nil, err
		}
	}
	return f, nil
}
