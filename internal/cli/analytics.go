package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/expensectl/pkg/model"
)

func newAnalyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Spending reports",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "dashboard",
			Short: "Company-wide spending analytics (admin)",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := requireRole(model.RoleAdmin); err != nil {
					return err
				}
				env := client.DashboardAnalytics(ctxOf(cmd))
				if !env.OK() {
					return failed(env, "Failed to load analytics")
				}
				printAnalytics(cmd.OutOrStdout(), env.Data)
				return nil
			},
		},
		&cobra.Command{
			Use:   "me",
			Short: "Your own submission statistics",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := currentUser(); err != nil {
					return err
				}
				env := client.UserStats(ctxOf(cmd))
				if !env.OK() {
					return failed(env, "Failed to load statistics")
				}
				printUserStats(cmd.OutOrStdout(), env.Data)
				return nil
			},
		},
	)
	return cmd
}

func printAnalytics(out io.Writer, a *model.DashboardAnalytics) {
	fmt.Fprintf(out, "Total spend: %s\n", money(a.TotalSpend, a.Currency))
	fmt.Fprintf(out, "Approvals:   %d pending, %d approved, %d rejected\n",
		a.ApprovalStats.Pending, a.ApprovalStats.Approved, a.ApprovalStats.Rejected)

	if len(a.CategorySpend) > 0 {
		fmt.Fprintln(out, "By category:")
		cats := make([]string, 0, len(a.CategorySpend))
		for c := range a.CategorySpend {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return a.CategorySpend[cats[i]] > a.CategorySpend[cats[j]] })
		for _, c := range cats {
			fmt.Fprintf(out, "  %-16s  %14s\n", c, money(a.CategorySpend[c], ""))
		}
	}
	if len(a.RiskDistribution) > 0 {
		fmt.Fprintln(out, "Risk:")
		for _, level := range []string{"low", "medium", "high"} {
			if n, ok := a.RiskDistribution[level]; ok {
				fmt.Fprintf(out, "  %-8s  %s\n", level, humanize.Comma(int64(n)))
			}
		}
	}
	if len(a.TopVendors) > 0 {
		fmt.Fprintln(out, "Top vendors:")
		for _, v := range a.TopVendors {
			fmt.Fprintf(out, "  %-24s  %14s\n", truncate(v.Vendor, 24), money(v.Total, ""))
		}
	}
	for _, in := range a.AIInsights {
		fmt.Fprintf(out, "! %s: %s\n", in.Title, in.Message)
	}
	for _, p := range a.PolicySuggestions {
		fmt.Fprintf(out, "* [%s] %s: %s\n", p.Priority, p.Title, p.Description)
	}
}

func printUserStats(out io.Writer, s *model.UserStats) {
	fmt.Fprintf(out, "Submitted: %d (%s)\n", s.TotalSubmitted, money(s.TotalAmount, ""))
	fmt.Fprintf(out, "  Approved: %d\n", s.Approved)
	fmt.Fprintf(out, "  Rejected: %d\n", s.Rejected)
	fmt.Fprintf(out, "  Pending:  %d\n", s.Pending)
	fmt.Fprintf(out, "  Approval rate: %.0f%%\n", s.ApprovalRate)
}
