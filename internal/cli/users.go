package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/expensectl/pkg/model"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage the company's users (admin)",
	}
	cmd.AddCommand(newUsersListCmd(), newUsersCreateCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireRole(model.RoleAdmin); err != nil {
				return err
			}
			env := client.ListUsers(ctxOf(cmd))
			if !env.OK() {
				return failed(env, "Failed to load users")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s  %-30s  %-24s  %-8s  %-7s  %s\n", "ID", "EMAIL", "NAME", "ROLE", "MANAGER", "JOINED")
			fmt.Fprintf(out, "%-6s  %-30s  %-24s  %-8s  %-7s  %s\n", "--", "-----", "----", "----", "-------", "------")
			for _, u := range *env.Data {
				fmt.Fprintf(out, "%-6d  %-30s  %-24s  %-8s  %-7s  %s\n",
					u.ID, truncate(u.Email, 30), truncate(u.FullName, 24), u.Role, optInt(u.ManagerID), day(u.CreatedAt))
			}
			return nil
		},
	}
}

func newUsersCreateCmd() *cobra.Command {
	var (
		nu        model.NewUser
		role      string
		managerID int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user in your company",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireRole(model.RoleAdmin); err != nil {
				return err
			}
			if role != "" {
				r, err := model.ParseRole(role)
				if err != nil {
					return err
				}
				nu.Role = r
			}
			if managerID > 0 {
				nu.ManagerID = &managerID
			}
			if err := nu.Validate(); err != nil {
				return err
			}

			env := client.CreateUser(ctxOf(cmd), nu)
			if !env.OK() {
				return failed(env, "Failed to create user")
			}
			u := env.Data
			fmt.Fprintf(cmd.OutOrStdout(), "User created: %d %s (%s)\n", u.ID, u.Email, u.Role)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&nu.Email, "email", "", "Email address")
	f.StringVar(&nu.Password, "password", "", "Initial password")
	f.StringVar(&nu.FullName, "full-name", "", "Full name")
	f.StringVar(&role, "role", "employee", "Role: employee, manager, admin")
	f.Int64Var(&managerID, "manager-id", 0, "ID of the user's manager")
	return cmd
}
