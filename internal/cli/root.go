package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/expensectl/internal/api"
	"github.com/me/expensectl/internal/config"
	"github.com/me/expensectl/internal/logging"
	"github.com/me/expensectl/internal/session"
	"github.com/me/expensectl/internal/store"
	"github.com/me/expensectl/pkg/model"
)

var (
	flagConfig     string
	flagServer     string
	flagStateDir   string
	flagStore      string
	flagDebug      bool
	flagLogLevel   string
	flagLogFormat  string
	flagInstrument bool

	logger *slog.Logger
	client *api.Client
	sess   *session.Store
)

// errNotLoggedIn is returned by commands that need a session when there is none.
var errNotLoggedIn = errors.New("not logged in (run 'expensectl login')")

// NewRootCmd creates the root cobra command for the expensectl CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "expensectl",
		Short: "Expense management from the terminal",
		Long: "expensectl submits expenses, reviews approvals and reads company analytics\n" +
			"against the expense management API. The session is kept between runs.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return teardown()
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ~/.expensectl/config.yaml)")
	pf.StringVar(&flagServer, "server", "", "API base URL (or "+config.EnvAPIURL+" env, default "+config.DefaultAPIURL+")")
	pf.StringVar(&flagStateDir, "state-dir", "", "Directory holding the saved session (or "+config.EnvStateDir+" env)")
	pf.StringVar(&flagStore, "store", "", "Session storage backend: file, sqlite, memory (or "+config.EnvStore+" env)")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVar(&flagInstrument, "instrument", false, "Record OpenTelemetry spans for API requests")

	root.AddCommand(
		newLoginCmd(),
		newSignupCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newExpensesCmd(),
		newApprovalsCmd(),
		newUsersCmd(),
		newAnalyticsCmd(),
		newDashboardCmd(),
	)

	return root
}

// setup is the composition root: config, logger, session store and API
// client are built here, wired together, and the saved session restored.
func setup(cmd *cobra.Command) error {
	if err := teardown(); err != nil {
		return err
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagServer != "" {
		cfg.APIURL = flagServer
	}
	if flagStateDir != "" {
		cfg.StateDir = flagStateDir
	}
	if flagStore != "" {
		cfg.Store = flagStore
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	}

	logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

	opts := []api.Option{}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
		}
		opts = append(opts, api.WithTimeout(d))
	}
	if flagInstrument {
		opts = append(opts, api.WithInstrumentation())
	}
	client = api.NewClient(cfg.APIURL, logger, opts...)

	backend, err := store.Open(ctxOf(cmd), cfg.Store, cfg.StateDir, logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	sess = session.New(client, backend, logger)
	client.UseTokens(sess)
	sess.Restore(ctxOf(cmd))

	logger.Debug("client ready", "api_url", cfg.APIURL, "store", cfg.Store, "state_dir", cfg.StateDir)
	return nil
}

func teardown() error {
	if sess == nil {
		return nil
	}
	err := sess.Close()
	sess = nil
	return err
}

// currentUser returns the logged-in user or errNotLoggedIn.
func currentUser() (*model.User, error) {
	cur := sess.Current()
	if cur.User == nil {
		return nil, errNotLoggedIn
	}
	return cur.User, nil
}

// requireRole fails unless the logged-in user has one of roles.
func requireRole(roles ...model.Role) (*model.User, error) {
	u, err := currentUser()
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if u.Role == r {
			return u, nil
		}
	}
	return nil, fmt.Errorf("this command is not available to the %s role", u.Role)
}

// failed turns an unsuccessful envelope into the error shown to the user.
func failed[T any](env api.Envelope[T], fallback string) error {
	return errors.New(env.Message(fallback))
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
