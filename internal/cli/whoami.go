package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/me/expensectl/internal/logging"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := currentUser()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:    %s <%s>\n", u.FullName, u.Email)
			fmt.Fprintf(out, "  ID:      %d\n", u.ID)
			fmt.Fprintf(out, "  Role:    %s\n", u.Role)
			if u.ManagerID != nil {
				fmt.Fprintf(out, "  Manager: %d\n", *u.ManagerID)
			}
			fmt.Fprintf(out, "  Server:  %s\n", client.BaseURL())

			tok := sess.Token()
			fmt.Fprintf(out, "  Token:   %s\n", logging.Redact(tok))
			if exp, ok := tokenExpiry(tok); ok {
				when := "expires " + humanize.Time(exp)
				if time.Now().After(exp) {
					when = "expired " + humanize.Time(exp)
				}
				fmt.Fprintf(out, "  Expiry:  %s (%s)\n", exp.Local().Format(time.RFC1123), when)
			}
			return nil
		},
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// server is the only authority on validity.
func tokenExpiry(tok string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
