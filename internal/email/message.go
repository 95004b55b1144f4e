// Package email assembles draft messages: a multipart MIME structure
// combining the rendered HTML body, a derived plain-text alternative,
// and the calendar invitation. No network or disk I/O happens here;
// assembly produces a complete in-memory message.
package email

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

const userAgent = "draftsend/1.0"

// calendarFilename names the downloadable invitation attachment.
const calendarFilename = "invite.ics"

// DraftOptions describes one draft to assemble. HTMLBody is the
// rendered body before wrapping; BuildDraft wraps it in the email-safe
// HTML envelope and derives the plain-text alternative from it unless
// TextBody is set. Calendar is the serialized invitation; empty skips
// the calendar parts.
type DraftOptions struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	Calendar string
}

// BuildDraft assembles a complete RFC 5322 message: a
// multipart/alternative section holding the plain text, HTML, and an
// inline calendar part, plus the invitation again as an attachment.
// Some clients only recognize inline calendar parts and others only
// attachments, so the payload is carried both ways.
func BuildDraft(opts DraftOptions) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: opts.From}})
	h.SetAddressList("To", []*mail.Address{{Address: opts.To}})
	h.SetSubject(opts.Subject)
	h.SetMessageID(uuid.NewString() + "@draftsend")
	h.Set("User-Agent", userAgent)
	h.Set("X-Mailer", userAgent)

	text := opts.TextBody
	if text == "" {
		text = HTMLToText(opts.HTMLBody)
	}
	html := WrapHTML(opts.HTMLBody)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("creating alternative section: %w", err)
	}

	if err := writeInlinePart(iw, "text/plain", map[string]string{"charset": "utf-8"}, text); err != nil {
		return nil, err
	}
	if err := writeInlinePart(iw, "text/html", map[string]string{"charset": "utf-8"}, html); err != nil {
		return nil, err
	}
	if opts.Calendar != "" {
		params := map[string]string{"charset": "utf-8", "method": "REQUEST"}
		if err := writeInlinePart(iw, "text/calendar", params, opts.Calendar); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("closing alternative section: %w", err)
	}

	if opts.Calendar != "" {
		var ah mail.AttachmentHeader
		ah.SetContentType("text/calendar", map[string]string{
			"charset": "utf-8",
			"method":  "REQUEST",
			"name":    calendarFilename,
		})
		ah.SetFilename(calendarFilename)

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("creating calendar attachment: %w", err)
		}
		if _, err := io.WriteString(aw, opts.Calendar); err != nil {
			return nil, fmt.Errorf("writing calendar attachment: %w", err)
		}
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("closing calendar attachment: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing message: %w", err)
	}

	return buf.Bytes(), nil
}

func writeInlinePart(
	iw *mail.InlineWriter,
	contentType string,
	params map[string]string,
	body string,
) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, params)

	w, err := iw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s part: %w", contentType, err)
	}
	return nil
}
