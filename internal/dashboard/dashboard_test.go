package dashboard

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/me/expensectl/internal/api"
	"github.com/me/expensectl/internal/apitest"
	"github.com/me/expensectl/pkg/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fixture struct {
	backend *apitest.Backend
	client  *api.Client
	manager model.User
	alice   model.User
	bob     model.User
	admin   model.User
}

// newFixture seeds a manager with two reports, each with one expense.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.New(t)
	f := &fixture{backend: b, client: api.NewClient(b.URL(), nil)}
	f.admin = b.AddUser("admin@example.com", "pw", "Admin", model.RoleAdmin, nil)
	f.manager = b.AddUser("mgr@example.com", "pw", "Manager", model.RoleManager, nil)
	f.alice = b.AddUser("alice@example.com", "pw", "Alice", model.RoleEmployee, &f.manager.ID)
	f.bob = b.AddUser("bob@example.com", "pw", "Bob", model.RoleEmployee, &f.manager.ID)

	f.submit(t, f.alice, 120)
	f.submit(t, f.bob, 2400)
	return f
}

func (f *fixture) as(u model.User) {
	f.client.UseTokens(staticToken(apitest.TokenFor(u)))
}

func (f *fixture) submit(t *testing.T, u model.User, amount float64) {
	t.Helper()
	f.as(u)
	form, err := api.ExpenseForm{Amount: amount, Description: "Expense"}.Form(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if env := f.client.CreateExpense(context.Background(), form); !env.OK() {
		t.Fatalf("create expense: %v", env.Err)
	}
}

func TestLoad_Employee(t *testing.T) {
	f := newFixture(t)
	f.as(f.alice)

	d, err := NewLoader(f.client, nil).Load(context.Background(), f.alice)
	if err != nil {
		t.Fatal(err)
	}
	if d.Failed() {
		t.Fatalf("unexpected errors: %v", d.Errors)
	}
	if len(d.Expenses) != 1 || d.Expenses[0].UserID != f.alice.ID {
		t.Errorf("Expenses = %+v, want Alice's one expense", d.Expenses)
	}
	if d.Stats == nil || d.Stats.TotalSubmitted != 1 {
		t.Errorf("Stats = %+v", d.Stats)
	}
	if d.Pending != nil || d.Analytics != nil || d.Users != nil {
		t.Error("employee dashboard fetched sections it does not show")
	}
	if n := f.backend.RequestCount("/approvals/pending"); n != 0 {
		t.Errorf("pending approvals fetched %d times", n)
	}
}

func TestLoad_Manager(t *testing.T) {
	f := newFixture(t)
	f.as(f.manager)

	d, err := NewLoader(f.client, nil).Load(context.Background(), f.manager)
	if err != nil {
		t.Fatal(err)
	}
	if d.Failed() {
		t.Fatalf("unexpected errors: %v", d.Errors)
	}
	if len(d.Pending) != 2 {
		t.Errorf("Pending = %d, want 2", len(d.Pending))
	}
	if len(d.Expenses) != 2 {
		t.Errorf("team expenses = %d, want 2", len(d.Expenses))
	}
	if d.Stats != nil {
		t.Error("manager dashboard should not fetch personal stats")
	}
}

func TestLoad_Admin(t *testing.T) {
	f := newFixture(t)
	f.as(f.admin)

	d, err := NewLoader(f.client, nil).Load(context.Background(), f.admin)
	if err != nil {
		t.Fatal(err)
	}
	if d.Failed() {
		t.Fatalf("unexpected errors: %v", d.Errors)
	}
	if d.Analytics == nil || d.Analytics.TotalSpend != 2520 {
		t.Errorf("Analytics = %+v, want total 2520", d.Analytics)
	}
	if len(d.Users) != 4 {
		t.Errorf("Users = %d, want 4", len(d.Users))
	}
}

func TestLoad_FailedSectionDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	f.as(f.admin)
	f.backend.Override(http.MethodGet, "/analytics/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"analytics unavailable"}`))
	})

	d, err := NewLoader(f.client, nil).Load(context.Background(), f.admin)
	if err != nil {
		t.Fatal(err)
	}
	if d.Analytics != nil {
		t.Error("failed section should stay nil")
	}
	if got := d.Errors[SectionAnalytics]; got != "analytics unavailable" {
		t.Errorf("Errors[analytics] = %q", got)
	}
	if len(d.Users) != 4 {
		t.Errorf("users section should still load, got %d", len(d.Users))
	}
}

func TestLoad_FallbackMessage(t *testing.T) {
	f := newFixture(t)
	f.as(f.alice)
	f.backend.Override(http.MethodGet, "/analytics/user-stats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	d, _ := NewLoader(f.client, nil).Load(context.Background(), f.alice)
	if got := d.Errors[SectionStats]; got != "HTTP 502: Bad Gateway" {
		t.Errorf("Errors[stats] = %q", got)
	}
}

func TestLoad_UnknownRole(t *testing.T) {
	f := newFixture(t)
	if _, err := NewLoader(f.client, nil).Load(context.Background(), model.User{ID: 9, Role: "auditor"}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestRiskFor(t *testing.T) {
	f := newFixture(t)
	f.as(f.manager)
	l := NewLoader(f.client, nil)

	d, err := l.Load(context.Background(), f.manager)
	if err != nil || len(d.Pending) == 0 {
		t.Fatalf("load: %v %+v", err, d)
	}
	for _, p := range d.Pending {
		env := l.RiskFor(context.Background(), p)
		if !env.OK() {
			t.Fatalf("risk: %v", env.Err)
		}
		want := "low"
		if p.Expense.Amount > 1000 {
			want = "high"
		}
		if env.Data.RiskLevel != want {
			t.Errorf("expense %d risk = %q, want %q", p.Expense.ID, env.Data.RiskLevel, want)
		}
	}
}

func TestStatusCounts(t *testing.T) {
	expenses := []model.Expense{
		{Status: model.ExpenseApproved, Amount: 10},
		{Status: model.ExpensePending, Amount: 5},
		{Status: model.ExpenseApproved, Amount: 2.5},
		{Status: "flagged", Amount: 1},
		{Status: "archived", Amount: 3},
	}
	got := StatusCounts(expenses)
	want := []StatusCount{
		{Status: model.ExpensePending, Count: 1, Amount: 5},
		{Status: model.ExpenseApproved, Count: 2, Amount: 12.5},
		{Status: "archived", Count: 1, Amount: 3},
		{Status: "flagged", Count: 1, Amount: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d groups, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("group %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if n := len(StatusCounts(nil)); n != 0 {
		t.Errorf("StatusCounts(nil) has %d groups", n)
	}
}
