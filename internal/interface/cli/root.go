package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/neilberkman/wbaccel/internal/core/config"
	"github.com/neilberkman/wbaccel/internal/core/credentials"
	"github.com/neilberkman/wbaccel/internal/core/logging"
	"github.com/neilberkman/wbaccel/internal/core/session"
	"github.com/neilberkman/wbaccel/internal/core/tableau"
	"github.com/neilberkman/wbaccel/internal/interface/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serverFlag   string
	siteFlag     string
	usernameFlag string
	passwordFlag string
	certFlag     string
	loggingLevel string
	configPath   string
	historyPath  string
	versionInfo  string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, tui.FailureStyle.Render("Error:"), err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wbaccel",
	Short: "Workbook Acceleration settings for sites and workbooks",
	Long: `wbaccel - enable or disable Workbook Acceleration on Tableau Server

Workbooks are addressed by project path, e.g. "Finance/Quarterly/Sales".
The session is cached between runs so credentials are only needed once.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&serverFlag, "server", "s", "", "Tableau server address")
	flags.StringVar(&siteFlag, "site", "", "Site content URL (empty for the Default site)")
	flags.StringVarP(&usernameFlag, "username", "u", "", "Username to sign in to the server")
	flags.StringVarP(&passwordFlag, "password", "p", "", "Password to sign in to the server")
	flags.StringVar(&certFlag, "ssl-cert-pem", "", "SSL certificate in PEM encoding for https servers")
	flags.StringVarP(&loggingLevel, "logging-level", "l", "", "Output logging level: "+fmt.Sprint(logging.Levels))
	flags.StringVar(&configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	flags.StringVar(&historyPath, "history-db", "", "Change history database path")
}

// env is everything a command needs, built from config, environment and flags
type env struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   *credentials.Store
	manager *session.Manager
}

func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	logger := logging.New(cfg.LoggingLevel, os.Stderr)
	store := credentials.NewStore(cfg.TokenFile, credentials.EnvCache{}, logger)
	manager := session.NewManager(store, tableau.NewConnector(logger), tui.NewCredentialPrompt(), logger)

	return &env{cfg: cfg, logger: logger, store: store, manager: manager}, nil
}

// applyFlags layers explicitly set flags over file and environment values
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = serverFlag
	}
	if flags.Changed("site") {
		cfg.Site = siteFlag
		cfg.SiteSet = true
	}
	if flags.Changed("username") {
		cfg.Username = usernameFlag
	}
	if flags.Changed("password") {
		cfg.Password = passwordFlag
	}
	if flags.Changed("ssl-cert-pem") {
		cfg.TLSCertPath = certFlag
	}
	if flags.Changed("logging-level") {
		cfg.LoggingLevel = loggingLevel
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB = historyPath
	}
}

// request is the connection the user asked for
func (e *env) request() session.Request {
	return session.Request{
		Server:      e.cfg.Server,
		Site:        e.cfg.Site,
		SiteSet:     e.cfg.SiteSet,
		Username:    e.cfg.Username,
		Password:    e.cfg.Password,
		TLSCertPath: e.cfg.TLSCertPath,
	}
}

// connect resolves the session, translating sign-in failures into the
// messages users act on
func (e *env) connect(cmd *cobra.Command) (tableau.ServerClient, error) {
	client, err := e.manager.Resolve(cmd.Context(), e.request())
	switch {
	case err == nil:
		return client, nil
	case errors.Is(err, session.ErrSignInRejected):
		return nil, fmt.Errorf("%w\nplease verify your username, password, and site", err)
	case errors.Is(err, session.ErrMissingCredentials):
		return nil, fmt.Errorf("%w: pass --server, --site, --username and --password", err)
	default:
		return nil, err
	}
}
