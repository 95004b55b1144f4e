// Package cli wires the draftsend commands: template mode, IMAP
// settings testing, and keyring credential management.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/draftsend/internal/config"
	"github.com/nhle/draftsend/internal/credential"
	"github.com/nhle/draftsend/internal/email"
	"github.com/nhle/draftsend/internal/imap"
	"github.com/nhle/draftsend/internal/pipeline"
)

// NewRootCmd builds the draftsend command tree. The bare form
// "draftsend TEMPLATE [--context FILE]" is kept as an alias for the
// template subcommand.
func NewRootCmd() *cobra.Command {
	var configPath, contextPath, csvPath string

	root := &cobra.Command{
		Use:           "draftsend",
		Short:         "Create personalized draft emails with calendar invitations",
		Long:          "draftsend merges recipient context data into a Markdown template,\nattaches a generated calendar invitation, and stores each result as a\ndraft on an IMAP server.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runTemplate(cmd, configPath, args[0], firstNonEmpty(contextPath, csvPath))
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file (default ~/.config/draftsend/config.yaml)")
	root.PersistentFlags().StringVar(&contextPath, "context", "", "context data file (CSV/YAML) for template variables")
	root.PersistentFlags().StringVar(&csvPath, "csv", "", "CSV recipient file")
	_ = root.PersistentFlags().MarkDeprecated("csv", "use --context instead")

	templateCmd := &cobra.Command{
		Use:   "template TEMPLATE",
		Short: "Create draft emails from a template and context data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplate(cmd, configPath, args[0], firstNonEmpty(contextPath, csvPath))
		},
	}

	testCmd := &cobra.Command{
		Use:   "test EMAIL SUBJECT MESSAGE",
		Short: "Validate IMAP settings by creating a single draft",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, configPath, args[0], args[1], args[2])
		},
	}

	root.AddCommand(templateCmd, testCmd, newCredentialsCmd())
	return root
}

// runTemplate executes the merge pipeline against a live IMAP session.
// A connection or authentication failure here is fatal: there is no
// point attempting per-recipient appends against a session that cannot
// open.
func runTemplate(cmd *cobra.Command, configPath, templatePath, contextPath string) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	session, folder, err := openDrafts(cmd, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	report, err := pipeline.Run(cmd.Context(), pipeline.Options{
		TemplatePath: templatePath,
		ContextPath:  contextPath,
		FromEmail:    cfg.FromEmail,
		DefaultEmail: cfg.DefaultEmail,
	}, &draftPublisher{session: session, folder: folder})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	return nil
}

// runTest appends a single plain+HTML draft to validate the IMAP
// settings end to end.
func runTest(cmd *cobra.Command, configPath, to, subject, body string) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	session, folder, err := openDrafts(cmd, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n", "<br>") + "</p>"
	message, err := email.BuildDraft(email.DraftOptions{
		From:     cfg.FromEmail,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: body,
	})
	if err != nil {
		return err
	}

	if err := session.AppendDraft(cmd.Context(), folder, message); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Test draft created for %s in %s\n", to, folder)
	fmt.Fprintln(cmd.OutOrStdout(), "IMAP settings are working correctly")
	return nil
}

// newCredentialsCmd manages the keyring-stored IMAP password used when
// the configuration file omits imap_password.
func newCredentialsCmd() *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the keyring-stored IMAP password",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Read the IMAP password from stdin and store it in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), "IMAP password: ")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				return fmt.Errorf("reading password: %w", scanner.Err())
			}
			password := strings.TrimSpace(scanner.Text())
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}
			if err := credential.Set(credential.KeyIMAPPassword, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password stored")
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the IMAP password from the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := credential.Delete(credential.KeyIMAPPassword); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password removed")
			return nil
		},
	}

	credentialsCmd.AddCommand(setCmd, clearCmd)
	return credentialsCmd
}

// loadConfig resolves and validates the configuration, printing setup
// instructions when the file is missing.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		if config.IsNotFound(err) {
			fmt.Fprintf(cmd.ErrOrStderr(),
				"Configuration file not found.\nCreate %s with your IMAP settings:\n\n"+
					"  imap_server: mail.example.com\n"+
					"  imap_port: 993\n"+
					"  imap_username: you@example.com\n"+
					"  imap_password: secret\n"+
					"  from_email: you@example.com\n\n",
				path)
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setupLogger(cfg.LogLevel)
	return cfg, nil
}

// openDrafts opens the run-scoped IMAP session and locates the drafts
// folder once, for reuse across every append.
func openDrafts(cmd *cobra.Command, cfg *config.Config) (*imap.Session, string, error) {
	client := imap.NewClient(
		cfg.IMAPServer, cfg.IMAPPort,
		cfg.IMAPUsername, cfg.IMAPPassword,
		true,
	)

	session, err := client.OpenSession(cmd.Context())
	if err != nil {
		return nil, "", err
	}

	folder, err := session.FindDraftsFolder(cfg.DraftFolders)
	if err != nil {
		_ = session.Close()
		return nil, "", err
	}

	slog.Debug("drafts folder located", "folder", folder)
	return session, folder, nil
}

// draftPublisher adapts the run-scoped session to pipeline.Publisher.
type draftPublisher struct {
	session *imap.Session
	folder  string
}

func (p *draftPublisher) AppendDraft(ctx context.Context, message []byte) error {
	return p.session.AppendDraft(ctx, p.folder, message)
}
