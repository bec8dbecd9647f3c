package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/expensectl/pkg/model"
)

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}

	b.mu.Lock()
	acct := b.accounts[req.Email]
	b.mu.Unlock()
	if acct == nil || acct.password != req.Password {
		detail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{
		AccessToken: TokenFor(acct.user),
		TokenType:   "bearer",
		User:        &acct.user,
	})
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var missing []string
	for _, p := range []string{"company_name", "country"} {
		if q.Get(p) == "" {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		validationFailed(w, "query", missing...)
		return
	}

	var req model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}

	b.mu.Lock()
	if _, exists := b.accounts[req.Email]; exists {
		b.mu.Unlock()
		detail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := b.addUserLocked(req.Email, req.Password, req.FullName, model.RoleAdmin, nil)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, model.AuthResponse{
		AccessToken: TokenFor(u),
		TokenType:   "bearer",
		User:        &u,
	})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (b *Backend) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if me := currentUser(r); !me.IsAdmin() {
		detail(w, http.StatusForbidden, "Admin access required")
		return
	}
	b.mu.Lock()
	users := make([]model.User, 0, len(b.accounts))
	for id := int64(1); id < b.nextID; id++ {
		for _, a := range b.accounts {
			if a.user.ID == id {
				users = append(users, a.user)
			}
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, users)
}

func (b *Backend) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if me := currentUser(r); !me.IsAdmin() {
		detail(w, http.StatusForbidden, "Admin access required")
		return
	}
	var req model.NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleEmployee
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[req.Email]; exists {
		detail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := b.addUserLocked(req.Email, req.Password, req.FullName, req.Role, req.ManagerID)
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)

	b.mu.Lock()
	visible := map[int64]bool{me.ID: true}
	if me.Role == model.RoleManager {
		for _, a := range b.accounts {
			if a.user.ManagerID != nil && *a.user.ManagerID == me.ID {
				visible[a.user.ID] = true
			}
		}
	}
	out := []model.Expense{}
	for i := len(b.expenses) - 1; i >= 0; i-- {
		e := b.expenses[i]
		if me.Role == model.RoleAdmin || visible[e.UserID] {
			out = append(out, *e)
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		detail(w, http.StatusBadRequest, "Expected multipart form data")
		return
	}
	var missing []string
	for _, f := range []string{"amount", "currency", "category", "description", "expense_date"} {
		if r.FormValue(f) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		validationFailed(w, "body", missing...)
		return
	}

	amount, err := strconv.ParseFloat(r.FormValue("amount"), 64)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "amount must be a number")
		return
	}
	category, err := model.ParseCategory(r.FormValue("category"))
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	date, err := model.ParseTimestamp(r.FormValue("expense_date"))
	if err != nil {
		date = model.NewTimestamp(time.Now().UTC())
	}

	me := currentUser(r)
	now := model.NewTimestamp(time.Now().UTC())
	e := &model.Expense{
		UserID:          me.ID,
		CompanyID:       1,
		Amount:          amount,
		Currency:        r.FormValue("currency"),
		ConvertedAmount: &amount,
		Category:        category,
		Description:     r.FormValue("description"),
		ExpenseDate:     date,
		Status:          model.ExpensePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if v := r.FormValue("vendor"); v != "" {
		e.Vendor = &v
	}
	if f, hdr, err := r.FormFile("receipt"); err == nil {
		f.Close()
		url := "/tmp/receipt_" + hdr.Filename
		e.ReceiptURL = &url
	}

	b.mu.Lock()
	e.ID = b.nextID
	b.nextID++
	b.expenses = append(b.expenses, e)
	level := "low"
	if amount > 1000 {
		level = "high"
	}
	b.risks[e.ID] = model.RiskScore{ExpenseID: e.ID, Score: amount / 100, RiskLevel: level, Factors: []string{}}
	if me.ManagerID != nil {
		b.approvals = append(b.approvals, &model.Approval{
			ID:           b.nextID,
			ExpenseID:    e.ID,
			ApproverID:   *me.ManagerID,
			WorkflowStep: 1,
			Status:       model.ApprovalPending,
			CreatedAt:    now,
		})
		b.nextID++
	}
	out := *e
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (b *Backend) expenseByID(id int64) *model.Expense {
	for _, e := range b.expenses {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (b *Backend) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	b.mu.Lock()
	e := b.expenseByID(id)
	b.mu.Unlock()
	if e == nil {
		detail(w, http.StatusNotFound, "Expense not found")
		return
	}
	me := currentUser(r)
	if me.Role == model.RoleEmployee && e.UserID != me.ID {
		detail(w, http.StatusForbidden, "Access denied")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (b *Backend) handleExpenseRisk(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	b.mu.Lock()
	e := b.expenseByID(id)
	risk, ok := b.risks[id]
	b.mu.Unlock()
	if e == nil {
		detail(w, http.StatusNotFound, "Expense not found")
		return
	}
	if !ok {
		detail(w, http.StatusNotFound, "Risk score not found")
		return
	}
	risk.Message = fmt.Sprintf("Nice work, %s! Risk level: %s", currentUser(r).FullName, risk.RiskLevel)
	writeJSON(w, http.StatusOK, risk)
}

func (b *Backend) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	b.mu.Lock()
	out := []model.PendingApproval{}
	for _, a := range b.approvals {
		if a.ApproverID != me.ID || a.Status != model.ApprovalPending {
			continue
		}
		e := b.expenseByID(a.ExpenseID)
		if e == nil {
			continue
		}
		var submitter model.User
		for _, acct := range b.accounts {
			if acct.user.ID == e.UserID {
				submitter = acct.user
			}
		}
		out = append(out, model.PendingApproval{Approval: *a, Expense: *e, Submitter: submitter})
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleDecideApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	var d model.ApprovalDecision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil || d.Validate() != nil {
		detail(w, http.StatusUnprocessableEntity, "status must be approved or rejected")
		return
	}

	me := currentUser(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	var a *model.Approval
	for _, cand := range b.approvals {
		if cand.ID == id {
			a = cand
		}
	}
	if a == nil {
		detail(w, http.StatusNotFound, "Approval not found")
		return
	}
	if a.ApproverID != me.ID && !me.IsAdmin() {
		detail(w, http.StatusForbidden, "Access denied")
		return
	}
	now := model.NewTimestamp(time.Now().UTC())
	a.Status = d.Status
	a.Comments = &d.Comments
	a.ApprovedAt = &now
	if e := b.expenseByID(a.ExpenseID); e != nil {
		e.Status = model.ExpenseStatus(d.Status)
	}
	writeJSON(w, http.StatusOK, a)
}

func (b *Backend) handleExpenseApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.expenseByID(id) == nil {
		detail(w, http.StatusNotFound, "Expense not found")
		return
	}
	out := []model.Approval{}
	for _, a := range b.approvals {
		if a.ExpenseID == id {
			out = append(out, *a)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleDashboard(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := model.DashboardAnalytics{
		Currency:          "USD",
		CategorySpend:     map[string]float64{},
		RiskDistribution:  map[string]int{},
		MonthlyTrend:      []model.MonthlyTotal{},
		TopVendors:        []model.VendorTotal{},
		AIInsights:        []model.Insight{},
		PolicySuggestions: []model.PolicySuggestion{},
	}
	for _, e := range b.expenses {
		out.TotalSpend += e.Amount
		out.CategorySpend[string(e.Category)] += e.Amount
		out.RiskDistribution[b.risks[e.ID].RiskLevel]++
		switch e.Status {
		case model.ExpensePending:
			out.ApprovalStats.Pending++
		case model.ExpenseApproved:
			out.ApprovalStats.Approved++
		case model.ExpenseRejected:
			out.ApprovalStats.Rejected++
		}
	}
	if n := out.RiskDistribution["high"]; n > 0 {
		out.AIInsights = append(out.AIInsights, model.Insight{
			Type:    "risk",
			Title:   "High-Risk Alert",
			Message: fmt.Sprintf("%d expenses flagged as high-risk. Review recommended.", n),
			Value:   float64(n),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleUserStats(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	var s model.UserStats
	for _, e := range b.expenses {
		if e.UserID != me.ID {
			continue
		}
		s.TotalSubmitted++
		s.TotalAmount += e.Amount
		switch e.Status {
		case model.ExpenseApproved:
			s.Approved++
		case model.ExpenseRejected:
			s.Rejected++
		default:
			s.Pending++
		}
	}
	if s.TotalSubmitted > 0 {
		s.ApprovalRate = float64(s.Approved) / float64(s.TotalSubmitted) * 100
	}
	writeJSON(w, http.StatusOK, s)
}
