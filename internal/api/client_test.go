package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/me/expensectl/internal/apitest"
	"github.com/me/expensectl/pkg/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T) (*Client, *apitest.Backend) {
	t.Helper()
	b := apitest.New(t)
	return NewClient(b.URL(), nil), b
}

func loginAs(t *testing.T, c *Client, b *apitest.Backend, role model.Role) model.User {
	t.Helper()
	u := b.AddUser(string(role)+"@example.com", "pw", "Test "+string(role), role, nil)
	c.UseTokens(staticToken(apitest.TokenFor(u)))
	return u
}

func TestGet_AttachesBearerToken(t *testing.T) {
	c, b := newTestClient(t)
	u := loginAs(t, c, b, model.RoleEmployee)

	env := Get[model.User](context.Background(), c, "/users/me")
	if !env.OK() {
		t.Fatalf("GET /users/me failed: %v", env.Err)
	}
	if env.Data.Email != u.Email {
		t.Errorf("Email = %q, want %q", env.Data.Email, u.Email)
	}

	reqs := b.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if !strings.HasPrefix(reqs[0].Authorization, "Bearer ") {
		t.Errorf("Authorization = %q, want Bearer credential", reqs[0].Authorization)
	}
}

func TestGet_NoTokenSendsNoAuthorization(t *testing.T) {
	c, b := newTestClient(t)

	env := c.ListExpenses(context.Background())
	if env.OK() {
		t.Fatal("expected unauthenticated request to be rejected")
	}
	if env.Err.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", env.Err.Status)
	}
	if env.Err.Message != "Not authenticated" {
		t.Errorf("Message = %q, want backend detail", env.Err.Message)
	}
	if got := b.Requests()[0].Authorization; got != "" {
		t.Errorf("Authorization = %q, want none", got)
	}
}

func TestLogin_Success(t *testing.T) {
	c, b := newTestClient(t)
	b.AddUser("a@b.com", "secret", "A B", model.RoleEmployee, nil)

	env := c.Login(context.Background(), model.LoginRequest{Email: "a@b.com", Password: "secret"})
	if !env.OK() {
		t.Fatalf("login failed: %v", env.Err)
	}
	if env.Data.AccessToken == "" || env.Data.TokenType != "bearer" {
		t.Errorf("unexpected auth response: %+v", env.Data)
	}
	if env.Data.User == nil || env.Data.User.FullName != "A B" {
		t.Errorf("user = %+v, want A B", env.Data.User)
	}
	if env.Err != nil {
		t.Error("Err must be nil when Data is set")
	}
}

func TestLogin_Rejected(t *testing.T) {
	c, b := newTestClient(t)
	b.AddUser("a@b.com", "secret", "A B", model.RoleEmployee, nil)

	env := c.Login(context.Background(), model.LoginRequest{Email: "a@b.com", Password: "wrong"})
	if env.Data != nil {
		t.Fatal("Data must be nil on failure")
	}
	if env.Err.Kind != RejectedRequest {
		t.Errorf("Kind = %v, want RejectedRequest", env.Err.Kind)
	}
	if !errors.Is(env.Err, ErrRejected) {
		t.Error("errors.Is(err, ErrRejected) = false")
	}
	if env.Err.Message != "Incorrect email or password" {
		t.Errorf("Message = %q", env.Err.Message)
	}
}

func TestSignup_SendsRegistrationContextAsQuery(t *testing.T) {
	c, b := newTestClient(t)

	env := c.Signup(context.Background(), model.SignupRequest{
		Email: "owner@acme.com", Password: "pw", FullName: "Owner",
		CompanyName: "Acme & Sons", Country: "United States",
	})
	if !env.OK() {
		t.Fatalf("signup failed: %v", env.Err)
	}
	if env.Data.User.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want admin", env.Data.User.Role)
	}
	q := b.Requests()[0].RawQuery
	if !strings.Contains(q, "company_name=Acme+%26+Sons") || !strings.Contains(q, "country=United+States") {
		t.Errorf("query = %q, want encoded company_name and country", q)
	}
}

func TestSignup_MissingQueryIsValidationError(t *testing.T) {
	c, _ := newTestClient(t)

	env := c.Signup(context.Background(), model.SignupRequest{Email: "x@y.com", Password: "pw", FullName: "X"})
	if env.OK() {
		t.Fatal("expected signup without company to fail")
	}
	if env.Err.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d, want 422", env.Err.Status)
	}
	if !strings.Contains(env.Err.Message, "company_name: Field required") {
		t.Errorf("Message = %q, want field-level reason", env.Err.Message)
	}
}

func TestNetworkFailure(t *testing.T) {
	c, b := newTestClient(t)
	b.Close()

	env := c.DashboardAnalytics(context.Background())
	if env.Data != nil {
		t.Fatal("Data must be nil on network failure")
	}
	if env.Err.Kind != NetworkFailure || !errors.Is(env.Err, ErrNetwork) {
		t.Errorf("Kind = %v, want NetworkFailure", env.Err.Kind)
	}
	if env.Err.Status != 0 {
		t.Errorf("Status = %d, want 0", env.Err.Status)
	}
	if env.Err.Message == "" {
		t.Error("expected a human-readable message")
	}
}

func TestNetworkFailure_ContextCanceled(t *testing.T) {
	c, b := newTestClient(t)
	loginAs(t, c, b, model.RoleEmployee)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env := c.UserStats(ctx)
	if env.Err == nil || env.Err.Kind != NetworkFailure {
		t.Fatalf("expected NetworkFailure for canceled context, got %+v", env)
	}
	if !errors.Is(env.Err, context.Canceled) {
		t.Error("underlying cause should be context.Canceled")
	}
}

func TestMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"empty", ""},
		{"null", "null"},
		{"wrong shape", `{"total_spend":"lots"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, b := newTestClient(t)
			b.Override(http.MethodGet, "/analytics/dashboard", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.body))
			})

			env := c.DashboardAnalytics(context.Background())
			if env.Data != nil {
				t.Fatal("Data must be nil for malformed body")
			}
			if env.Err.Kind != MalformedResponse || !errors.Is(env.Err, ErrMalformed) {
				t.Errorf("Kind = %v, want MalformedResponse", env.Err.Kind)
			}
			if env.Err.Status != http.StatusOK {
				t.Errorf("Status = %d, want 200", env.Err.Status)
			}
		})
	}
}

func TestNoContentYieldsZeroValue(t *testing.T) {
	c, b := newTestClient(t)
	b.Override(http.MethodPut, "/approvals/9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	env := c.DecideApproval(context.Background(), 9, model.ApprovalDecision{Status: model.ApprovalApproved})
	if !env.OK() {
		t.Fatalf("204 should succeed, got %v", env.Err)
	}
}

func TestUploadFile_MissingAmount(t *testing.T) {
	c, b := newTestClient(t)
	loginAs(t, c, b, model.RoleEmployee)

	form, err := ExpenseForm{Description: "Taxi", Category: model.CategoryTransportation}.Form(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := form.Get("amount"); ok {
		t.Fatal("zero amount should be left out of the form")
	}

	env := c.CreateExpense(context.Background(), form)
	if env.Data != nil {
		t.Fatal("Data must be nil when the server rejects the form")
	}
	if env.Err.Kind != RejectedRequest {
		t.Errorf("Kind = %v, want RejectedRequest", env.Err.Kind)
	}
	if !strings.Contains(env.Err.Message, "amount") {
		t.Errorf("Message = %q, want mention of amount", env.Err.Message)
	}
	if ct := b.Requests()[0].ContentType; !strings.HasPrefix(ct, "multipart/form-data; boundary=") {
		t.Errorf("Content-Type = %q, want multipart", ct)
	}
}

func TestUploadFile_WithReceipt(t *testing.T) {
	c, b := newTestClient(t)
	loginAs(t, c, b, model.RoleEmployee)

	receipt := filepath.Join(t.TempDir(), "lunch.jpg")
	if err := os.WriteFile(receipt, []byte("\xff\xd8\xff fake jpeg"), 0600); err != nil {
		t.Fatal(err)
	}
	form, err := ExpenseForm{
		Amount:      42.5,
		Currency:    "EUR",
		Category:    model.CategoryMeals,
		Description: "Team lunch",
		Vendor:      "Bistro",
		ReceiptPath: receipt,
	}.Form(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	env := c.CreateExpense(context.Background(), form)
	if !env.OK() {
		t.Fatalf("create expense failed: %v", env.Err)
	}
	e := env.Data
	if e.Amount != 42.5 || e.Currency != "EUR" || e.Category != model.CategoryMeals {
		t.Errorf("unexpected expense: %+v", e)
	}
	if e.VendorName() != "Bistro" {
		t.Errorf("Vendor = %q", e.VendorName())
	}
	if e.ReceiptURL == nil || !strings.HasSuffix(*e.ReceiptURL, "lunch.jpg") {
		t.Errorf("ReceiptURL = %v, want receipt recorded", e.ReceiptURL)
	}
	if e.ExpenseDate.Year() != 2024 || e.ExpenseDate.Month() != time.February {
		t.Errorf("ExpenseDate = %v, want 2024-02", e.ExpenseDate.Time)
	}
}

func TestExpenseForm_Defaults(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	form, err := ExpenseForm{Amount: 10, Description: "Pens"}.Form(now)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"amount":       "10",
		"currency":     "USD",
		"category":     "other",
		"expense_date": "2024-05-06T07:08:09Z",
	}
	for k, v := range want {
		if got, _ := form.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if _, ok := form.Get("vendor"); ok {
		t.Error("empty vendor should not be sent")
	}
}

func TestExpenseForm_MissingReceipt(t *testing.T) {
	_, err := ExpenseForm{Amount: 1, ReceiptPath: filepath.Join(t.TempDir(), "nope.png")}.Form(time.Now())
	if err == nil {
		t.Error("expected error for missing receipt file")
	}
}

func TestApprovalRoundTrip(t *testing.T) {
	c, b := newTestClient(t)
	ctx := context.Background()

	mgr := b.AddUser("m@example.com", "pw", "Manager", model.RoleManager, nil)
	emp := b.AddUser("e@example.com", "pw", "Employee", model.RoleEmployee, &mgr.ID)

	c.UseTokens(staticToken(apitest.TokenFor(emp)))
	form, _ := ExpenseForm{Amount: 1500, Description: "Flight"}.Form(time.Now())
	created := c.CreateExpense(ctx, form)
	if !created.OK() {
		t.Fatalf("create: %v", created.Err)
	}

	c.UseTokens(staticToken(apitest.TokenFor(mgr)))
	pending := c.PendingApprovals(ctx)
	if !pending.OK() || len(*pending.Data) != 1 {
		t.Fatalf("pending = %+v", pending)
	}
	item := (*pending.Data)[0]
	if item.Submitter.Email != emp.Email {
		t.Errorf("Submitter = %q, want %q", item.Submitter.Email, emp.Email)
	}

	risk := c.ExpenseRisk(ctx, item.Expense.ID)
	if !risk.OK() || risk.Data.RiskLevel != "high" {
		t.Errorf("risk = %+v", risk)
	}

	decided := c.DecideApproval(ctx, item.Approval.ID, model.ApprovalDecision{Status: model.ApprovalRejected, Comments: "No receipt"})
	if !decided.OK() || decided.Data.Status != model.ApprovalRejected {
		t.Fatalf("decide = %+v", decided)
	}

	steps := c.ExpenseApprovals(ctx, item.Expense.ID)
	if !steps.OK() || len(*steps.Data) != 1 || (*steps.Data)[0].Comments == nil {
		t.Errorf("approvals = %+v", steps)
	}
}

func TestWithInstrumentation(t *testing.T) {
	b := apitest.New(t)
	c := NewClient(b.URL()+"/", nil, WithInstrumentation(), WithTimeout(5*time.Second), WithUserAgent("test-agent"))
	if c.BaseURL() != b.URL() {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", c.BaseURL())
	}
	b.AddUser("a@b.com", "pw", "A", model.RoleEmployee, nil)

	env := c.Login(context.Background(), model.LoginRequest{Email: "a@b.com", Password: "pw"})
	if !env.OK() {
		t.Fatalf("instrumented login failed: %v", env.Err)
	}
}

func TestRejectionMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string detail", 400, `{"detail":"Email already registered"}`, "Email already registered"},
		{"validation list", 422, `{"detail":[{"loc":["body","amount"],"msg":"Field required"},{"loc":["body","currency"],"msg":"Field required"}]}`, "amount: Field required; currency: Field required"},
		{"no detail", 500, `{"error":"boom"}`, "HTTP 500: Internal Server Error"},
		{"not json", 502, `Bad Gateway`, "HTTP 502: Bad Gateway"},
		{"empty detail", 403, `{"detail":""}`, "HTTP 403: Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rejectionMessage(tt.status, []byte(tt.body)); got != tt.want {
				t.Errorf("rejectionMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvelope_Message(t *testing.T) {
	ok := success(&model.User{ID: 1})
	if ok.Message("fallback") != "" {
		t.Error("successful envelope should have no message")
	}
	if v, err := ok.Result(); err != nil || v.ID != 1 {
		t.Errorf("Result = %v, %v", v, err)
	}

	noMsg := failure[model.User](&Failure{Kind: RejectedRequest})
	if got := noMsg.Message("Failed to create user"); got != "Failed to create user" {
		t.Errorf("Message = %q, want fallback", got)
	}
	if _, err := noMsg.Result(); err == nil {
		t.Error("Result should return the failure")
	}
}
