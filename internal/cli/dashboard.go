package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/me/expensectl/internal/dashboard"
	"github.com/me/expensectl/pkg/model"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the overview for your role",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := currentUser()
			if err != nil {
				return err
			}
			d, err := dashboard.NewLoader(client, logger).Load(ctxOf(cmd), *u)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s dashboard for %s\n\n", titleRole(d.Role), u.FullName)
			switch d.Role {
			case model.RoleEmployee:
				if d.Stats != nil {
					printUserStats(out, d.Stats)
					fmt.Fprintln(out)
				}
				if d.Expenses != nil {
					printExpenses(out, d.Expenses)
				}
			case model.RoleManager:
				if d.Pending != nil {
					fmt.Fprintf(out, "Pending approvals: %d\n", len(d.Pending))
					for _, p := range d.Pending {
						fmt.Fprintf(out, "  #%d  %s  %s  %s\n", p.Approval.ID, truncate(p.Submitter.FullName, 20),
							money(p.Expense.Amount, p.Expense.Currency), truncate(p.Expense.Description, 40))
					}
					fmt.Fprintln(out)
				}
				if d.Expenses != nil {
					fmt.Fprintln(out, "Team expenses:")
					printExpenses(out, d.Expenses)
				}
			case model.RoleAdmin:
				if d.Analytics != nil {
					printAnalytics(out, d.Analytics)
					fmt.Fprintln(out)
				}
				if d.Users != nil {
					counts := map[model.Role]int{}
					for _, u := range d.Users {
						counts[u.Role]++
					}
					fmt.Fprintf(out, "Users: %d (%d admin, %d manager, %d employee)\n",
						len(d.Users), counts[model.RoleAdmin], counts[model.RoleManager], counts[model.RoleEmployee])
				}
			}

			if d.Failed() {
				sections := make([]string, 0, len(d.Errors))
				for s := range d.Errors {
					sections = append(sections, s)
				}
				sort.Strings(sections)
				for _, s := range sections {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", s, d.Errors[s])
				}
				return fmt.Errorf("%d dashboard section(s) failed to load", len(d.Errors))
			}
			return nil
		},
	}
}

func titleRole(r model.Role) string {
	switch r {
	case model.RoleEmployee:
		return "Employee"
	case model.RoleManager:
		return "Manager"
	case model.RoleAdmin:
		return "Admin"
	}
	return string(r)
}
