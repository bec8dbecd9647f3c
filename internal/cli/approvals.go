package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/expensectl/pkg/model"
)

func newApprovalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "approvals",
		Aliases: []string{"approval"},
		Short:   "Review expenses waiting on your approval",
	}
	cmd.AddCommand(
		newApprovalsPendingCmd(),
		newDecisionCmd("approve", model.ApprovalApproved),
		newDecisionCmd("reject", model.ApprovalRejected),
	)
	return cmd
}

func newApprovalsPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List approvals waiting on you",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireRole(model.RoleManager, model.RoleAdmin); err != nil {
				return err
			}
			env := client.PendingApprovals(ctxOf(cmd))
			if !env.OK() {
				return failed(env, "Failed to load approvals")
			}
			out := cmd.OutOrStdout()
			items := *env.Data
			if len(items) == 0 {
				fmt.Fprintln(out, "No pending approvals.")
				return nil
			}
			fmt.Fprintf(out, "%-8s  %-8s  %-20s  %14s  %-16s  %s\n", "APPROVAL", "EXPENSE", "SUBMITTER", "AMOUNT", "CATEGORY", "DESCRIPTION")
			fmt.Fprintf(out, "%-8s  %-8s  %-20s  %14s  %-16s  %s\n", "--------", "-------", "---------", "------", "--------", "-----------")
			for _, p := range items {
				fmt.Fprintf(out, "%-8d  %-8d  %-20s  %14s  %-16s  %s\n",
					p.Approval.ID, p.Expense.ID, truncate(p.Submitter.FullName, 20),
					money(p.Expense.Amount, p.Expense.Currency), p.Expense.Category, truncate(p.Expense.Description, 40))
			}
			return nil
		},
	}
}

func newDecisionCmd(verb string, status model.ApprovalStatus) *cobra.Command {
	var comments string

	cmd := &cobra.Command{
		Use:   verb + " <approval_id>",
		Short: fmt.Sprintf("Mark an approval as %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := requireRole(model.RoleManager, model.RoleAdmin); err != nil {
				return err
			}
			d := model.ApprovalDecision{Status: status, Comments: comments}
			if err := d.Validate(); err != nil {
				return err
			}
			env := client.DecideApproval(ctxOf(cmd), id, d)
			if !env.OK() {
				return failed(env, "Action failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Approval %d %s.\n", id, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&comments, "comments", "", "Comment recorded with the decision")
	return cmd
}
