package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chupakbra/member-admin/internal/client"
	"github.com/chupakbra/member-admin/internal/config"
	"github.com/chupakbra/member-admin/internal/model"
)

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage configured organizations",
		Long:  "Add, remove, list, and switch between configured organization accounts.",
	}

	cmd.AddCommand(orgListCmd())
	cmd.AddCommand(orgAddCmd())
	cmd.AddCommand(orgRemoveCmd())
	cmd.AddCommand(orgUseCmd())
	cmd.AddCommand(orgShowCmd())
	return cmd
}

func sortedOrgNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Orgs))
	for name := range cfg.Orgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// orgListCmd lists all configured organizations.
func orgListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configured organizations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if flagOutput == "json" {
				type row struct {
					Name      string `json:"name"`
					URL       string `json:"url"`
					CompanyID int64  `json:"company_id"`
					Current   bool   `json:"current"`
				}
				rows := []row{}
				for _, name := range sortedOrgNames(cfg) {
					org := cfg.Orgs[name]
					rows = append(rows, row{
						Name:      name,
						URL:       org.URL,
						CompanyID: org.CompanyID,
						Current:   name == cfg.CurrentOrg,
					})
				}
				return jsonOut(cmd, rows)
			}

			if len(cfg.Orgs) == 0 {
				emptyNotice(cmd, "No organizations configured. Add one with 'mbr org add'.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tURL\tCOMPANY\tCURRENT")
			for _, name := range sortedOrgNames(cfg) {
				org := cfg.Orgs[name]
				current := ""
				if name == cfg.CurrentOrg {
					current = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, org.URL, org.CompanyID, current)
			}
			return w.Flush()
		},
	}
}

// orgAddCmd adds a new named organization to the config.
func orgAddCmd() *cobra.Command {
	var (
		url       string
		companyID int64
		token     string
		insecure  bool
		timeout   int
		skipCheck bool
	)

	cmd := &cobra.Command{
		Use:          "add <name>",
		Short:        "Add a new organization",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: false, // show usage when required flags are missing
		Example: `  mbr org add acme \
    --url https://members.example.com \
    --company-id 42 \
    --token xxxxxxxx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, exists := cfg.Orgs[name]; exists {
				return fmt.Errorf("organization %q already exists — remove it first", name)
			}
			if companyID <= 0 {
				return fmt.Errorf("--company-id must be a positive number")
			}

			orgCfg := config.OrgConfig{
				URL:            url,
				CompanyID:      companyID,
				Token:          token,
				VerifyTLS:      !insecure,
				TimeoutSeconds: timeout,
			}

			// Verify connectivity and token before saving.
			if !skipCheck {
				s := startSpinner(fmt.Sprintf("Verifying connection to %s...", url))
				company, connErr := verifyOrg(&orgCfg)
				s.Stop()
				if connErr != nil {
					return fmt.Errorf("connection check failed: %w\n\nHint: %s", connErr, connectionHint(&orgCfg, connErr))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Connection verified (%s).\n", company.Name)
			}

			cfg.Orgs[name] = orgCfg
			if cfg.CurrentOrg == "" {
				cfg.CurrentOrg = name
			}
			if err := config.Save(cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Organization %q added.\n", name)
			if cfg.CurrentOrg == name {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %q as the default organization.\n", name)
			}
			logger.Info().Str("org", name).Str("url", url).Msg("organization added")
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "member service URL, e.g. https://members.example.com")
	cmd.Flags().Int64Var(&companyID, "company-id", 0, "company (organization) id on the member service")
	cmd.Flags().StringVar(&token, "token", "", "API token (can also be supplied at runtime via "+config.EnvToken+")")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "request timeout in seconds (default 30)")
	cmd.Flags().BoolVar(&skipCheck, "no-verify", false, "save without checking the connection")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("company-id")
	return cmd
}

// orgRemoveCmd removes a named organization from the config.
func orgRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a configured organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if _, ok := cfg.Orgs[name]; !ok {
				return fmt.Errorf("organization %q not found", name)
			}
			delete(cfg.Orgs, name)

			if cfg.CurrentOrg == name {
				cfg.CurrentOrg = ""
			}

			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Organization %q removed.\n", name)
			return nil
		},
	}
}

// orgUseCmd sets the default organization.
func orgUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the default organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if _, ok := cfg.Orgs[name]; !ok {
				return fmt.Errorf("organization %q not found — add it first with 'org add'", name)
			}

			cfg.CurrentOrg = name
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default organization set to %q.\n", name)
			return nil
		},
	}
}

// orgShowCmd shows config for the current or named organization.
func orgShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show config for the current or named organization",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			name := cfg.CurrentOrg
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				return fmt.Errorf("no organization selected and no name provided")
			}

			org, ok := cfg.Orgs[name]
			if !ok {
				return fmt.Errorf("organization %q not found", name)
			}

			if flagOutput == "json" {
				type out struct {
					Name      string `json:"name"`
					URL       string `json:"url"`
					CompanyID int64  `json:"company_id"`
					Token     string `json:"token,omitempty"`
					VerifyTLS bool   `json:"verify_tls"`
					Current   bool   `json:"current"`
				}
				return jsonOut(cmd, out{
					Name:      name,
					URL:       org.URL,
					CompanyID: org.CompanyID,
					Token:     mask(org.Token),
					VerifyTLS: org.VerifyTLS,
					Current:   name == cfg.CurrentOrg,
				})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Name:\t%s\n", name)
			fmt.Fprintf(w, "URL:\t%s\n", org.URL)
			fmt.Fprintf(w, "Company ID:\t%d\n", org.CompanyID)
			fmt.Fprintf(w, "Token:\t%s\n", mask(org.Token))
			fmt.Fprintf(w, "Verify TLS:\t%v\n", org.VerifyTLS)
			fmt.Fprintf(w, "Current:\t%v\n", name == cfg.CurrentOrg)
			return w.Flush()
		},
	}
}

// verifyOrg builds a client from orgCfg and confirms the token is accepted for
// the configured company.
func verifyOrg(orgCfg *config.OrgConfig) (model.Organization, error) {
	c, err := client.New(orgCfg, logger.With().Str("check", "org add").Logger())
	if err != nil {
		return model.Organization{}, err
	}
	return c.Company(context.Background(), orgCfg.CompanyID)
}

// connectionHint returns a human-readable hint based on the error type.
func connectionHint(orgCfg *config.OrgConfig, err error) string {
	msg := err.Error()
	switch {
	case client.IsStatus(err, 401):
		return "verify that the API token is correct and has not expired"
	case client.IsStatus(err, 403), client.IsStatus(err, 404):
		return fmt.Sprintf("verify that company id %d exists and the token has access to it", orgCfg.CompanyID)
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "i/o timeout") || strings.Contains(msg, "dial"):
		return fmt.Sprintf("check that %s is reachable and the port is correct", orgCfg.URL)
	case strings.Contains(msg, "certificate") || strings.Contains(msg, "x509"):
		return "the server certificate could not be verified — use --insecure only for test servers"
	default:
		return "check the URL, company id, token, and network connectivity"
	}
}
