package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = ".mbr.yaml"
	logFileName    = ".mbr.log"
)

// Environment variables consulted during Load/Resolve.
const (
	EnvConfigPath  = "MBR_CONFIG"
	EnvOrg         = "MBR_ORG"
	EnvToken       = "MBR_TOKEN"
	EnvLocale      = "MBR_LOCALE"
	EnvFinishIntro = "MBR_FINISH_INTRO"
)

// OrgConfig holds connection settings for one organization account.
type OrgConfig struct {
	URL            string `yaml:"url"`
	CompanyID      int64  `yaml:"company-id"`
	Token          string `yaml:"token,omitempty"`
	VerifyTLS      bool   `yaml:"verify-tls,omitempty"`
	TimeoutSeconds int    `yaml:"timeout-seconds,omitempty"`
}

// Config is the top-level configuration structure.
type Config struct {
	CurrentOrg string               `yaml:"current-org,omitempty"`
	Locale     string               `yaml:"locale,omitempty"`
	LogFile    string               `yaml:"log-file,omitempty"`
	Orgs       map[string]OrgConfig `yaml:"orgs,omitempty"`
}

// configPath returns the path to the config file.
func configPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(home, configFileName)
}

// Path reports where Load and Save read and write the config.
func Path() string { return configPath() }

// Load reads .env (if present) and the config file and returns a Config.
// A missing config file yields an empty Config.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	data, err := os.ReadFile(configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Orgs: map[string]OrgConfig{}}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Orgs == nil {
		cfg.Orgs = map[string]OrgConfig{}
	}
	return &cfg, nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(configPath(), data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Resolve returns the OrgConfig to use based on priority:
// 1. named org (from --org flag or MBR_ORG env)
// 2. current-org in config
//
// MBR_TOKEN, when set, replaces the resolved org's token.
func (c *Config) Resolve(orgName string) (*OrgConfig, string, error) {
	if orgName == "" {
		orgName = os.Getenv(EnvOrg)
	}
	if orgName == "" {
		orgName = c.CurrentOrg
	}
	if orgName == "" {
		return nil, "", fmt.Errorf("no organization selected — run 'mbr org use <name>' or set %s", EnvOrg)
	}

	org, ok := c.Orgs[orgName]
	if !ok {
		return nil, "", fmt.Errorf("organization %q not found in config", orgName)
	}
	if tok := os.Getenv(EnvToken); tok != "" {
		org.Token = tok
	}
	return &org, orgName, nil
}

// ResolveLocale picks the configured locale, falling back to MBR_LOCALE and LANG.
func (c *Config) ResolveLocale(flagLocale string) string {
	for _, v := range []string{flagLocale, os.Getenv(EnvLocale), c.Locale, os.Getenv("LANG")} {
		if v != "" {
			return v
		}
	}
	return ""
}

// ResolveLogFile returns the log file path, defaulting to ~/.mbr.log.
func (c *Config) ResolveLogFile() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return logFileName
	}
	return filepath.Join(home, logFileName)
}

// FinishIntroFromEnv reports whether the guided tour was requested through the environment.
func FinishIntroFromEnv() bool {
	v := os.Getenv(EnvFinishIntro)
	return v != "" && v != "0" && v != "false"
}
