package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chupakbra/member-admin/internal/client"
	"github.com/chupakbra/member-admin/internal/config"
	clierrors "github.com/chupakbra/member-admin/internal/errors"
	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/logging"
	"github.com/chupakbra/member-admin/tui"
)

// version is set at build time via -X github.com/chupakbra/member-admin/cli.version=<ver>.
var version = "0.3.0"

var (
	// global state resolved in PersistentPreRunE / initClient
	apiClient      *client.Client
	resolvedConfig *config.Config
	resolvedOrgURL string
	logger         = zerolog.Nop()
	logCloser      io.Closer
	catalog        = i18n.MustLoad(i18n.DefaultLang)

	// global flags
	flagOrg         string
	flagURL         string
	flagCompanyID   int64
	flagToken       string
	flagSecure      bool
	flagOutput      string
	flagLang        string
	flagDebug       bool
	flagTUI         bool
	flagFinishIntro bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:     "mbr",
	Version: version,
	Short:   "Manage the members of an organization",
	Long: `mbr lists, adds, edits, and removes the members of an organization on the
member service, sends password reset emails, and imports members from CSV.

Configure an organization with:
  mbr org add acme --url https://members.example.com --company-id 42 --token <token>
  mbr org use acme

Run 'mbr --tui' for the interactive member screen.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close() //nolint:errcheck
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if flagTUI {
			if err := tui.LaunchTUI(resolvedConfig, tuiOptions()); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				os.Exit(1)
			}
			return
		}
		cmd.Help() //nolint:errcheck
	},
}

// tuiOptions collects the TUI settings from flags and environment. An
// organization named by -g or MBR_ORG is opened right away.
func tuiOptions() tui.Options {
	org := flagOrg
	if org == "" {
		org = os.Getenv(config.EnvOrg)
	}
	return tui.Options{
		Catalog:     catalog,
		Log:         logger,
		FinishIntro: flagFinishIntro || config.FinishIntroFromEnv(),
		Org:         org,
	}
}

// setup loads the config, opens the log file and picks the message catalog.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	resolvedConfig = cfg

	log, closer, err := logging.New(cfg.ResolveLogFile(), flagDebug)
	if err != nil {
		// Logging is best effort; commands still work without a log file.
		fmt.Fprintln(os.Stderr, "Warning:", err)
	} else {
		logger, logCloser = log, closer
	}
	logger.Debug().Str("command", cmd.CommandPath()).Msg("start")

	catalog = i18n.MustLoad(i18n.Match(cfg.ResolveLocale(flagLang)))
	return nil
}

// Execute wires the command tree and runs it.
func Execute() {
	rootCmd.SetVersionTemplate("mbr {{.Version}}\n")

	// Local flags (root command only)
	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "launch interactive terminal UI")
	rootCmd.Flags().BoolVar(&flagFinishIntro, "finish-intro", false, "show the guided tour when the member screen opens (also "+config.EnvFinishIntro+")")

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagOrg, "org", "g", "", "named organization from config (overrides current-org)")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "member service URL, one-shot, no config needed")
	rootCmd.PersistentFlags().Int64Var(&flagCompanyID, "company-id", 0, "company id for --url")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "API token for --url")
	rootCmd.PersistentFlags().BoolVar(&flagSecure, "secure", false, "enforce TLS certificate verification for --url")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "", "message language ("+fmt.Sprint(i18n.Available())+")")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "verbose logging to the log file")

	// Sub-command groups
	rootCmd.AddCommand(orgCmd())
	rootCmd.AddCommand(memberCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initClient is called by command RunE functions that need an API client.
// It resolves the organization config and builds the client.
func initClient(cmd *cobra.Command) error {
	cfg := resolvedConfig
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		resolvedConfig = cfg
	}

	// Inline flags take precedence over everything when --url is provided
	org := &config.OrgConfig{
		URL:       flagURL,
		CompanyID: flagCompanyID,
		Token:     flagToken,
		VerifyTLS: flagSecure,
	}
	name := "inline"
	if flagURL == "" {
		var err error
		if org, name, err = cfg.Resolve(flagOrg); err != nil {
			return err
		}
	} else if flagCompanyID <= 0 {
		return fmt.Errorf("--company-id is required with --url")
	}
	resolvedOrgURL = org.URL

	c, err := client.New(org, logger.With().Str("org", name).Logger())
	if err != nil {
		return err
	}
	apiClient = c
	return nil
}

// handleErr maps an error through the error handler with the resolved URL for
// connection error messages. Commands call this in their RunE return.
func handleErr(err error) error {
	if err != nil {
		logger.Error().Err(err).Str("url", resolvedOrgURL).Msg("command failed")
	}
	return clierrors.Handle(resolvedOrgURL, err)
}
