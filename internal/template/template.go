// Package template splits a message template into YAML metadata and a
// body section and renders both against per-recipient context records.
//
// Rendering happens in two phases. Metadata values are rendered first,
// against the recipient record only, so metadata cannot reference other
// metadata fields and no dependency resolution is needed. The subject
// is the one exception: it renders in a second pass with the resolved
// metadata in scope, so "{{ event_name }} invitation" works. The body
// then renders against the union of resolved metadata and recipient
// fields, with recipient fields taking precedence.
package template

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
	"gopkg.in/yaml.v3"
)

// frontMatterDelimiter separates the metadata block from the body.
const frontMatterDelimiter = "---"

// subjectKey is rendered last so it may reference resolved metadata.
const subjectKey = "subject"

// Document is a parsed template: event metadata plus the message body.
// Loaded once per run and immutable afterward.
type Document struct {
	Metadata map[string]string
	Body     string
}

// SyntaxError indicates malformed substitution syntax in a template
// string. It is surfaced per recipient so one bad record does not
// abort the whole run.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// IsSyntaxError reports whether err (or any error in its chain) is a
// SyntaxError.
func IsSyntaxError(err error) bool {
	var synErr *SyntaxError
	return errors.As(err, &synErr)
}

// ParseDocument splits raw template text on the front-matter delimiter
// pair into metadata and body. Without a delimiter pair the whole
// document is the body and metadata is empty. Metadata parses as a YAML
// mapping whose values are template strings; non-string scalars are
// stringified.
func ParseDocument(raw string) (*Document, error) {
	if !strings.HasPrefix(strings.TrimLeft(raw, " \t\r\n"), frontMatterDelimiter) {
		return &Document{Metadata: map[string]string{}, Body: raw}, nil
	}

	parts := strings.SplitN(raw, frontMatterDelimiter, 3)
	if len(parts) < 3 {
		return &Document{Metadata: map[string]string{}, Body: raw}, nil
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &meta); err != nil {
		return nil, fmt.Errorf("parsing template metadata: %w", err)
	}

	metadata := make(map[string]string, len(meta))
	for k, v := range meta {
		if s, ok := v.(string); ok {
			metadata[k] = s
		} else {
			metadata[k] = fmt.Sprintf("%v", v)
		}
	}

	return &Document{Metadata: metadata, Body: parts[2]}, nil
}

// Render renders a template string against the union of metadata and
// recipient fields, recipient fields winning. Unresolved variables
// render empty unless the template supplies a default filter.
func Render(tpl string, metadata, record map[string]string) (string, error) {
	t, err := pongo2.FromString(tpl)
	if err != nil {
		return "", &SyntaxError{Err: err}
	}

	ctx := make(pongo2.Context, len(metadata)+len(record))
	for k, v := range metadata {
		ctx[k] = v
	}
	for k, v := range record {
		ctx[k] = v
	}

	out, err := t.Execute(ctx)
	if err != nil {
		return "", &SyntaxError{Err: err}
	}
	return out, nil
}

// RenderMetadata resolves every metadata value against the recipient
// record, then renders the subject with the resolved metadata in scope.
func RenderMetadata(metadata, record map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(metadata))

	for key, value := range metadata {
		if key == subjectKey {
			continue
		}
		out, err := Render(value, nil, record)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", key, err)
		}
		resolved[key] = out
	}

	if subject, ok := metadata[subjectKey]; ok {
		out, err := Render(subject, resolved, record)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", subjectKey, err)
		}
		resolved[subjectKey] = out
	}

	return resolved, nil
}
