// Package config loads the draftsend settings file that supplies the
// IMAP account used for storing drafts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/nhle/draftsend/internal/credential"
)

// defaultDraftFolders is the candidate list probed when locating the
// drafts mailbox. Localized names cover the common providers; the list
// is overridable via the draft_folders config key.
var defaultDraftFolders = []string{
	"Drafts",
	"INBOX.Drafts",
	"[Gmail]/Drafts",
	"Brouillons",
	"Bozze",
	"Entwürfe",
}

// Config holds the mail account settings for draft publishing.
type Config struct {
	IMAPServer   string   `mapstructure:"imap_server"`
	IMAPPort     int      `mapstructure:"imap_port"`
	IMAPUsername string   `mapstructure:"imap_username"`
	IMAPPassword string   `mapstructure:"imap_password"`
	FromEmail    string   `mapstructure:"from_email"`
	DefaultEmail string   `mapstructure:"default_email"`
	LogLevel     string   `mapstructure:"log_level"`
	DraftFolders []string `mapstructure:"draft_folders"`
}

// NotFoundError indicates that the configuration file does not exist.
// It is a distinct condition so the CLI can print setup instructions
// instead of a bare read error.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}

// DefaultPath returns the default path for the configuration file,
// located at ~/.config/draftsend/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "draftsend", "config.yaml")
}

// Load reads the configuration from the given YAML file path using Viper.
// A missing file is reported as a NotFoundError. When imap_password is
// left empty, the system keyring is consulted as a fallback.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("imap_port", 993)
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.DraftFolders) == 0 {
		cfg.DraftFolders = defaultDraftFolders
	}

	if cfg.IMAPPassword == "" {
		if pw, err := credential.Get(credential.KeyIMAPPassword); err == nil {
			cfg.IMAPPassword = pw
		}
	}

	return cfg, nil
}

// Validate checks that the settings required for publishing drafts are present.
func (c *Config) Validate() error {
	if c.IMAPServer == "" {
		return fmt.Errorf("config: imap_server is required")
	}
	if c.IMAPUsername == "" {
		return fmt.Errorf("config: imap_username is required")
	}
	if c.IMAPPassword == "" {
		return fmt.Errorf(
			"config: imap_password is not set and no keyring entry exists " +
				"(run \"draftsend credentials set\" to store one)",
		)
	}
	if c.FromEmail == "" {
		return fmt.Errorf("config: from_email is required")
	}
	return nil
}
