package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/require"

	"github.com/nhle/draftsend/internal/calendar"
	"github.com/nhle/draftsend/internal/contextdata"
	"github.com/nhle/draftsend/internal/template"
)

const testTemplate = `---
event_name: Sync
event_date: "2024-01-10 09:00:00"
timezone: UTC
subject: "{{ event_name }} invitation"
---
Hi {{ first_name|default:"there" }}`

// capturePublisher records appended drafts in order.
type capturePublisher struct {
	messages [][]byte
}

func (p *capturePublisher) AppendDraft(_ context.Context, message []byte) error {
	p.messages = append(p.messages, append([]byte(nil), message...))
	return nil
}

// failPublisher fails every append.
type failPublisher struct{}

func (failPublisher) AppendDraft(context.Context, []byte) error {
	return fmt.Errorf("append refused")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// draftParts extracts the recipient and decoded plain-text body from an
// assembled draft.
func draftParts(t *testing.T, raw []byte) (to, text string) {
	t.Helper()

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer mr.Close()

	addrs, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	to = addrs[0].Address

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		if h, ok := part.Header.(*mail.InlineHeader); ok {
			contentType, _, err := h.ContentType()
			require.NoError(t, err)
			if contentType == "text/plain" {
				body, err := io.ReadAll(part.Body)
				require.NoError(t, err)
				text = string(body)
			}
		}
	}
	return to, text
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("duplicate recipients produce a single draft", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tplPath := writeFile(t, dir, "invite.md", testTemplate)
		ctxPath := writeFile(t, dir, "recipients.csv",
			"first_name,email,include\nAmy,a@x.com,TRUE\nBo,A@X.COM,TRUE\n")

		pub := &capturePublisher{}
		report, err := Run(context.Background(), Options{
			TemplatePath: tplPath,
			ContextPath:  ctxPath,
			FromEmail:    "sender@example.com",
		}, pub)
		require.NoError(t, err)

		require.Equal(t, []string{"a@x.com"}, report.Created)
		require.Len(t, report.Duplicates, 1)
		require.Equal(t, "A@X.COM", report.Duplicates[0].Email)
		require.Empty(t, report.Excluded)
		require.Empty(t, report.Failures)

		require.Len(t, pub.messages, 1)
		to, text := draftParts(t, pub.messages[0])
		require.Equal(t, "a@x.com", to)
		require.Contains(t, text, "Hi Amy")
	})

	t.Run("missing email is reported and the batch continues", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tplPath := writeFile(t, dir, "invite.md", testTemplate)
		ctxPath := writeFile(t, dir, "recipients.csv",
			"first_name,email\nNobody,\nAmy,a@x.com\n")

		pub := &capturePublisher{}
		report, err := Run(context.Background(), Options{
			TemplatePath: tplPath,
			ContextPath:  ctxPath,
			FromEmail:    "sender@example.com",
		}, pub)
		require.NoError(t, err)

		require.Equal(t, []string{"a@x.com"}, report.Created)
		require.Len(t, report.Failures, 1)
		require.True(t, contextdata.IsMissingField(report.Failures[0].Err))
	})

	t.Run("include filter excludes recipients", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tplPath := writeFile(t, dir, "invite.md", testTemplate)
		ctxPath := writeFile(t, dir, "recipients.csv",
			"first_name,email,include\nAmy,a@x.com,TRUE\nBo,b@x.com,FALSE\n")

		pub := &capturePublisher{}
		report, err := Run(context.Background(), Options{
			TemplatePath: tplPath,
			ContextPath:  ctxPath,
			FromEmail:    "sender@example.com",
		}, pub)
		require.NoError(t, err)

		require.Equal(t, []string{"a@x.com"}, report.Created)
		require.Len(t, report.Excluded, 1)
		require.Equal(t, "b@x.com", report.Excluded[0]["email"])
	})

	t.Run("bad event date fails per recipient, not the run", func(t *testing.T) {
		t.Parallel()

		badDate := `---
event_name: Sync
event_date: "{{ when }}"
timezone: UTC
---
Hi {{ first_name }}`

		dir := t.TempDir()
		tplPath := writeFile(t, dir, "invite.md", badDate)
		ctxPath := writeFile(t, dir, "recipients.csv",
			"first_name,email,when\nAmy,a@x.com,not-a-date\nBo,b@x.com,2024-01-10 09:00:00\n")

		pub := &capturePublisher{}
		report, err := Run(context.Background(), Options{
			TemplatePath: tplPath,
			ContextPath:  ctxPath,
			FromEmail:    "sender@example.com",
		}, pub)
		require.NoError(t, err)

		require.Equal(t, []string{"b@x.com"}, report.Created)
		require.Len(t, report.Failures, 1)
		require.Equal(t, "a@x.com", report.Failures[0].Email)
		require.True(t, calendar.IsDateError(report.Failures[0].Err))
	})

	t.Run("template syntax error fails per recipient", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tplPath := writeFile(t, dir, "invite.md", `---
event_name: Sync
event_date: "2024-01-10 09:00:00"
timezone: UTC
---
Hi {{ broken`)
		ctxPath := writeFile(t, dir, "recipients.csv",
			"first_name,email\nAmy,a@x.com\n")

		report, err := Run(context.Background(), Options{
			TemplatePath: tplPath,
			ContextPath:  ctxPath,
			FromEmail:    "sender@example.com",
		}, &capturePublisher{})
		require.NoError(t, err)

		require.Empty(t, report.Created)
		require.Len(t, report.Failures, 1)
		require.True(t, template.IsSyntaxError(report.Failures[0].Err))
	})

	t.Run("append failure aborts only that draft", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tplPath := writeFile(t, dir, "invite.md", testTemplate)
		ctxPath := writeFile(t, dir, "recipients.csv",
			"first_name,email\nAmy,a@x.com\nBo,b@x.com\n")

		report, err := Run(context.Background(), Options{
			TemplatePath: tplPath,
			ContextPath:  ctxPath,
			FromEmail:    "sender@example.com",
		}, failPublisher{})
		require.NoError(t, err)

		require.Empty(t, report.Created)
		require.Len(t, report.Failures, 2)
		require.Equal(t, "a@x.com", report.Failures[0].Email)
		require.Equal(t, "b@x.com", report.Failures[1].Email)
	})

	t.Run("no context file publishes to the default email", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tplPath := writeFile(t, dir, "invite.md", testTemplate)

		pub := &capturePublisher{}
		report, err := Run(context.Background(), Options{
			TemplatePath: tplPath,
			FromEmail:    "sender@example.com",
			DefaultEmail: "me@example.com",
		}, pub)
		require.NoError(t, err)

		require.Equal(t, []string{"me@example.com"}, report.Created)
		require.Len(t, pub.messages, 1)

		_, text := draftParts(t, pub.messages[0])
		require.Contains(t, text, "Hi there")
	})

	t.Run("missing template file aborts the run", func(t *testing.T) {
		t.Parallel()

		_, err := Run(context.Background(), Options{
			TemplatePath: filepath.Join(t.TempDir(), "missing.md"),
			DefaultEmail: "me@example.com",
		}, &capturePublisher{})
		require.Error(t, err)
	})

	t.Run("unsupported context format aborts the run", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tplPath := writeFile(t, dir, "invite.md", testTemplate)
		ctxPath := writeFile(t, dir, "recipients.txt", "nope")

		_, err := Run(context.Background(), Options{
			TemplatePath: tplPath,
			ContextPath:  ctxPath,
			FromEmail:    "sender@example.com",
		}, &capturePublisher{})

		var formatErr *contextdata.FormatError
		require.ErrorAs(t, err, &formatErr)
	})
}

func TestReportSummary(t *testing.T) {
	t.Parallel()

	report := &Report{
		Created:    []string{"a@x.com", "b@x.com"},
		Duplicates: []contextdata.Duplicate{{Email: "A@X.COM"}},
		Excluded:   []contextdata.Record{{"email": "c@x.com"}},
		Failures: []Failure{
			{Email: "d@x.com", Err: fmt.Errorf("boom")},
			{Err: &contextdata.MissingFieldError{Row: 5}},
		},
	}

	summary := report.Summary()
	require.Contains(t, summary, "2 drafts created")
	require.Contains(t, summary, "1 duplicates skipped")
	require.Contains(t, summary, "1 excluded by filter")
	require.Contains(t, summary, "2 failed")
	require.Contains(t, summary, "duplicate: A@X.COM")
	require.Contains(t, summary, "failed: d@x.com: boom")
	require.Contains(t, summary, "record 5 has no email address")
}
