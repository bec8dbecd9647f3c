package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/me/expensectl/pkg/model"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Long:  "Authenticate against the API and keep the session for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if email == "" {
				if email, err = promptLine(cmd, in, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(cmd, in, "Password: "); err != nil {
					return err
				}
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			res := sess.Login(ctxOf(cmd), email, password)
			if !res.OK {
				return res.Err()
			}
			u := sess.Current().User
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", u.FullName, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var req model.SignupRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a company and its admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				p, err := promptPassword(cmd, bufio.NewReader(cmd.InOrStdin()), "Password: ")
				if err != nil {
					return err
				}
				req.Password = p
			}

			res := sess.Signup(ctxOf(cmd), req)
			if !res.OK {
				return res.Err()
			}
			u := sess.Current().User
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! %s is registered and you are logged in as %s.\n", u.FullName, req.CompanyName, u.Role)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "Account email")
	f.StringVar(&req.Password, "password", "", "Account password (prompted if omitted)")
	f.StringVar(&req.FullName, "full-name", "", "Your full name")
	f.StringVar(&req.CompanyName, "company", "", "Company name")
	f.StringVar(&req.Country, "country", "", "Company country")
	for _, name := range []string{"email", "full-name", "company", "country"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess.Logout(ctxOf(cmd))
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func promptLine(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo when stdin is a terminal.
func promptPassword(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return promptLine(cmd, in, prompt)
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
