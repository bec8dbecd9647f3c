package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/expensectl/internal/api"
	"github.com/me/expensectl/internal/dashboard"
	"github.com/me/expensectl/pkg/model"
)

func newExpensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense"},
		Short:   "List, submit and inspect expenses",
	}
	cmd.AddCommand(
		newExpensesListCmd(),
		newExpensesShowCmd(),
		newExpensesSubmitCmd(),
		newExpensesRiskCmd(),
		newExpensesApprovalsCmd(),
	)
	return cmd
}

func newExpensesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the expenses visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := currentUser(); err != nil {
				return err
			}
			env := client.ListExpenses(ctxOf(cmd))
			if !env.OK() {
				return failed(env, "Failed to load expenses")
			}
			printExpenses(cmd.OutOrStdout(), *env.Data)
			return nil
		},
	}
}

func printExpenses(out io.Writer, expenses []model.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(out, "No expenses found.")
		return
	}
	fmt.Fprintf(out, "%-6s  %-10s  %-16s  %14s  %-9s  %s\n", "ID", "DATE", "CATEGORY", "AMOUNT", "STATUS", "DESCRIPTION")
	fmt.Fprintf(out, "%-6s  %-10s  %-16s  %14s  %-9s  %s\n", "--", "----", "--------", "------", "------", "-----------")
	for _, e := range expenses {
		fmt.Fprintf(out, "%-6d  %-10s  %-16s  %14s  %-9s  %s\n",
			e.ID, day(e.ExpenseDate), e.Category, money(e.Amount, e.Currency), e.Status, truncate(e.Description, 40))
	}

	fmt.Fprintln(out)
	parts := []string{}
	for _, sc := range dashboard.StatusCounts(expenses) {
		parts = append(parts, fmt.Sprintf("%d %s", sc.Count, sc.Status))
	}
	fmt.Fprintf(out, "%d expenses: %s\n", len(expenses), strings.Join(parts, ", "))
}

func newExpensesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <expense_id>",
		Short: "Show one expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := currentUser(); err != nil {
				return err
			}
			env := client.GetExpense(ctxOf(cmd), id)
			if !env.OK() {
				return failed(env, "Failed to load expense")
			}
			e := env.Data
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Expense: %d\n", e.ID)
			fmt.Fprintf(out, "  Amount:      %s\n", money(e.Amount, e.Currency))
			if e.ConvertedAmount != nil && *e.ConvertedAmount != e.Amount {
				fmt.Fprintf(out, "  Converted:   %s\n", money(*e.ConvertedAmount, ""))
			}
			fmt.Fprintf(out, "  Category:    %s\n", e.Category)
			if e.AISuggestedCategory != nil && *e.AISuggestedCategory != string(e.Category) {
				fmt.Fprintf(out, "  Suggested:   %s\n", *e.AISuggestedCategory)
			}
			fmt.Fprintf(out, "  Description: %s\n", e.Description)
			fmt.Fprintf(out, "  Vendor:      %s\n", optString(e.Vendor))
			fmt.Fprintf(out, "  Date:        %s\n", day(e.ExpenseDate))
			fmt.Fprintf(out, "  Status:      %s\n", e.Status)
			fmt.Fprintf(out, "  Receipt:     %s\n", optString(e.ReceiptURL))
			fmt.Fprintf(out, "  Submitted:   %s\n", ago(e.CreatedAt))
			return nil
		},
	}
}

func newExpensesSubmitCmd() *cobra.Command {
	var (
		form     api.ExpenseForm
		category string
		date     string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new expense, optionally with a receipt image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := currentUser(); err != nil {
				return err
			}
			if category != "" {
				c, err := model.ParseCategory(category)
				if err != nil {
					return err
				}
				form.Category = c
			}
			if date != "" {
				ts, err := model.ParseTimestamp(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				form.ExpenseDate = ts.Time
			}

			f, err := form.Form(time.Now())
			if err != nil {
				return err
			}
			env := client.CreateExpense(ctxOf(cmd), f)
			if !env.OK() {
				return failed(env, "Failed to submit expense")
			}
			e := env.Data
			fmt.Fprintf(cmd.OutOrStdout(), "Expense submitted: %d (%s, %s)\n", e.ID, money(e.Amount, e.Currency), e.Status)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.Float64Var(&form.Amount, "amount", 0, "Amount spent")
	fl.StringVar(&form.Currency, "currency", "USD", "ISO currency code")
	fl.StringVar(&category, "category", "", "Category: "+categoryList())
	fl.StringVar(&form.Description, "description", "", "What the expense was for")
	fl.StringVar(&date, "date", "", "Expense date, YYYY-MM-DD (default today)")
	fl.StringVar(&form.Vendor, "vendor", "", "Vendor name")
	fl.StringVar(&form.ReceiptPath, "receipt", "", "Path to a receipt image")
	return cmd
}

func categoryList() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func newExpensesRiskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "risk <expense_id>",
		Short: "Show the risk assessment of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := currentUser(); err != nil {
				return err
			}
			env := client.ExpenseRisk(ctxOf(cmd), id)
			if !env.OK() {
				return failed(env, "Failed to load risk score")
			}
			printRisk(cmd.OutOrStdout(), env.Data)
			return nil
		},
	}
}

func printRisk(out io.Writer, r *model.RiskScore) {
	fmt.Fprintf(out, "Risk for expense %d: %s (score %.1f)\n", r.ExpenseID, strings.ToUpper(r.RiskLevel), r.Score)
	for _, f := range r.Factors {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	if r.Message != "" {
		fmt.Fprintf(out, "  %s\n", r.Message)
	}
}

func newExpensesApprovalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approvals <expense_id>",
		Short: "Show the approval steps of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := currentUser(); err != nil {
				return err
			}
			env := client.ExpenseApprovals(ctxOf(cmd), id)
			if !env.OK() {
				return failed(env, "Failed to load approvals")
			}
			out := cmd.OutOrStdout()
			steps := *env.Data
			if len(steps) == 0 {
				fmt.Fprintln(out, "No approval steps.")
				return nil
			}
			fmt.Fprintf(out, "%-4s  %-8s  %-9s  %-12s  %s\n", "STEP", "APPROVER", "STATUS", "DECIDED", "COMMENTS")
			fmt.Fprintf(out, "%-4s  %-8s  %-9s  %-12s  %s\n", "----", "--------", "------", "-------", "--------")
			for _, a := range steps {
				decided := "-"
				if a.ApprovedAt != nil {
					decided = ago(*a.ApprovedAt)
				}
				fmt.Fprintf(out, "%-4d  %-8d  %-9s  %-12s  %s\n", a.WorkflowStep, a.ApproverID, a.Status, decided, optString(a.Comments))
			}
			return nil
		},
	}
}
