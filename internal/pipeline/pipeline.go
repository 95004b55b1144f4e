// Package pipeline orchestrates a draftsend run: it loads the template
// and context records, then renders, builds, assembles, and publishes
// one draft per recipient, sequentially. Per-recipient failures are
// collected into the run report; only run-level failures (unreadable
// template or context file) abort.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nhle/draftsend/internal/calendar"
	"github.com/nhle/draftsend/internal/contextdata"
	"github.com/nhle/draftsend/internal/email"
	"github.com/nhle/draftsend/internal/template"
)

// Publisher stores an assembled message as a draft. The IMAP session
// behind it is opened by the caller before the run and closed after.
type Publisher interface {
	AppendDraft(ctx context.Context, message []byte) error
}

// Options configures a single run.
type Options struct {
	TemplatePath string
	ContextPath  string
	FromEmail    string

	// DefaultEmail is the recipient used when no context file is given.
	DefaultEmail string
}

// Run executes the merge pipeline and returns the batch report. The
// returned error is run-level; per-recipient errors land in the report.
func Run(ctx context.Context, opts Options, pub Publisher) (*Report, error) {
	raw, err := os.ReadFile(opts.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", opts.TemplatePath, err)
	}
	doc, err := template.ParseDocument(string(raw))
	if err != nil {
		return nil, err
	}

	var records []contextdata.Record
	if opts.ContextPath != "" {
		records, err = contextdata.Load(opts.ContextPath)
		if err != nil {
			return nil, err
		}
	} else {
		if opts.DefaultEmail == "" {
			return nil, fmt.Errorf("no context file given and no default_email configured")
		}
		records = []contextdata.Record{{"email": opts.DefaultEmail}}
	}

	processed := contextdata.Process(records)

	report := &Report{
		Duplicates: processed.Duplicates,
		Excluded:   processed.Excluded,
	}
	for _, missing := range processed.Missing {
		report.Failures = append(report.Failures, Failure{Err: missing})
		slog.Warn("record skipped", "error", missing)
	}
	for _, dup := range processed.Duplicates {
		slog.Info("skipping duplicate email", "email", dup.Email)
	}
	for _, rec := range processed.Excluded {
		slog.Info("excluded by include filter", "email", rec["email"])
	}

	for _, rec := range processed.Records {
		recipient := strings.TrimSpace(rec["email"])

		if err := createDraft(ctx, doc, rec, recipient, opts.FromEmail, pub); err != nil {
			report.Failures = append(report.Failures, Failure{Email: recipient, Err: err})
			slog.Warn("draft failed", "email", recipient, "error", err)
			continue
		}

		report.Created = append(report.Created, recipient)
		slog.Info("draft created", "email", recipient)
	}

	return report, nil
}

// createDraft renders and publishes one recipient's draft.
func createDraft(
	ctx context.Context,
	doc *template.Document,
	rec contextdata.Record,
	recipient, from string,
	pub Publisher,
) error {
	metadata, err := template.RenderMetadata(doc.Metadata, rec)
	if err != nil {
		return err
	}

	body, err := template.Render(doc.Body, metadata, rec)
	if err != nil {
		return err
	}

	htmlBody, err := email.MarkdownToHTML(body)
	if err != nil {
		return err
	}

	invite, err := calendar.Build(calendar.DetailsFromMetadata(metadata))
	if err != nil {
		return err
	}

	message, err := email.BuildDraft(email.DraftOptions{
		From:     from,
		To:       recipient,
		Subject:  subjectFor(metadata),
		HTMLBody: htmlBody,
		Calendar: invite,
	})
	if err != nil {
		return err
	}

	return pub.AppendDraft(ctx, message)
}

// subjectFor resolves the draft subject from metadata, falling back to
// the event name.
func subjectFor(metadata map[string]string) string {
	if s := metadata["subject"]; s != "" {
		return s
	}
	if s := metadata["event_name"]; s != "" {
		return s
	}
	return "Event Invitation"
}
