// Package dashboard assembles the per-role overview screens from
// concurrently issued API reads.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/me/expensectl/internal/api"
	"github.com/me/expensectl/internal/logging"
	"github.com/me/expensectl/pkg/model"
)

// Section names used as keys of Dashboard.Errors.
const (
	SectionExpenses  = "expenses"
	SectionStats     = "stats"
	SectionApprovals = "approvals"
	SectionAnalytics = "analytics"
	SectionUsers     = "users"
)

// Source is the part of the API client the dashboards read from.
type Source interface {
	ListExpenses(ctx context.Context) api.Envelope[[]model.Expense]
	UserStats(ctx context.Context) api.Envelope[model.UserStats]
	PendingApprovals(ctx context.Context) api.Envelope[[]model.PendingApproval]
	DashboardAnalytics(ctx context.Context) api.Envelope[model.DashboardAnalytics]
	ListUsers(ctx context.Context) api.Envelope[[]model.User]
	ExpenseRisk(ctx context.Context, id int64) api.Envelope[model.RiskScore]
}

// Dashboard is the data behind one role's overview. Only the sections the
// role shows are fetched; a section whose fetch failed stays nil and its
// message is recorded in Errors.
type Dashboard struct {
	Role model.Role
	User model.User

	Expenses  []model.Expense         // employee: own; manager: team
	Stats     *model.UserStats        // employee
	Pending   []model.PendingApproval // manager
	Analytics *model.DashboardAnalytics
	Users     []model.User // admin

	Errors map[string]string
}

// Failed reports whether any section could not be loaded.
func (d *Dashboard) Failed() bool {
	return len(d.Errors) > 0
}

// Loader fetches dashboards.
type Loader struct {
	src    Source
	logger *slog.Logger
}

// NewLoader creates a Loader reading from src.
func NewLoader(src Source, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Loader{src: src, logger: logger.With("component", "dashboard")}
}

// Load fetches the dashboard for user's role. The returned error is only
// for an unknown role; fetch failures are reported per section.
func (l *Loader) Load(ctx context.Context, user model.User) (*Dashboard, error) {
	d := &Dashboard{Role: user.Role, User: user, Errors: map[string]string{}}
	var mu sync.Mutex
	fail := func(section, msg string) {
		mu.Lock()
		defer mu.Unlock()
		d.Errors[section] = msg
		l.logger.Warn("dashboard section failed", "section", section, "error", msg)
	}

	// Fetches never return an error to the group so one failure does not
	// cancel the others.
	g, ctx := errgroup.WithContext(ctx)
	switch user.Role {
	case model.RoleEmployee:
		g.Go(func() error {
			env := l.src.ListExpenses(ctx)
			if !env.OK() {
				fail(SectionExpenses, env.Message("Failed to load expenses"))
				return nil
			}
			d.Expenses = *env.Data
			return nil
		})
		g.Go(func() error {
			env := l.src.UserStats(ctx)
			if !env.OK() {
				fail(SectionStats, env.Message("Failed to load statistics"))
				return nil
			}
			d.Stats = env.Data
			return nil
		})
	case model.RoleManager:
		g.Go(func() error {
			env := l.src.PendingApprovals(ctx)
			if !env.OK() {
				fail(SectionApprovals, env.Message("Failed to load approvals"))
				return nil
			}
			d.Pending = *env.Data
			return nil
		})
		g.Go(func() error {
			env := l.src.ListExpenses(ctx)
			if !env.OK() {
				fail(SectionExpenses, env.Message("Failed to load team expenses"))
				return nil
			}
			d.Expenses = *env.Data
			return nil
		})
	case model.RoleAdmin:
		g.Go(func() error {
			env := l.src.DashboardAnalytics(ctx)
			if !env.OK() {
				fail(SectionAnalytics, env.Message("Failed to load analytics"))
				return nil
			}
			d.Analytics = env.Data
			return nil
		})
		g.Go(func() error {
			env := l.src.ListUsers(ctx)
			if !env.OK() {
				fail(SectionUsers, env.Message("Failed to load users"))
				return nil
			}
			d.Users = *env.Data
			return nil
		})
	default:
		return nil, fmt.Errorf("no dashboard for role %q", user.Role)
	}
	_ = g.Wait()

	l.logger.Debug("dashboard loaded", "role", user.Role, "failed_sections", len(d.Errors))
	return d, nil
}

// RiskFor fetches the risk score of the expense behind a pending approval.
func (l *Loader) RiskFor(ctx context.Context, p model.PendingApproval) api.Envelope[model.RiskScore] {
	return l.src.ExpenseRisk(ctx, p.Expense.ID)
}

// StatusCount is the number and total amount of expenses in one status.
type StatusCount struct {
	Status model.ExpenseStatus
	Count  int
	Amount float64
}

// StatusCounts summarizes expenses by status, in pending, approved,
// rejected order followed by any other status alphabetically.
func StatusCounts(expenses []model.Expense) []StatusCount {
	by := map[model.ExpenseStatus]*StatusCount{}
	for _, e := range expenses {
		sc := by[e.Status]
		if sc == nil {
			sc = &StatusCount{Status: e.Status}
			by[e.Status] = sc
		}
		sc.Count++
		sc.Amount += e.Amount
	}

	order := []model.ExpenseStatus{model.ExpensePending, model.ExpenseApproved, model.ExpenseRejected}
	out := make([]StatusCount, 0, len(by))
	for _, s := range order {
		if sc, ok := by[s]; ok {
			out = append(out, *sc)
			delete(by, s)
		}
	}
	rest := make([]StatusCount, 0, len(by))
	for _, sc := range by {
		rest = append(rest, *sc)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Status < rest[j].Status })
	return append(out, rest...)
}
