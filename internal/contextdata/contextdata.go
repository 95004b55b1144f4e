// Package contextdata loads per-recipient context records from CSV or
// YAML files and prepares them for the merge pipeline: records are
// filtered by the optional include flag and deduplicated by email
// address, first occurrence winning.
package contextdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record maps context field names to string values. Every usable
// record carries an "email" field; everything else is template input.
type Record map[string]string

// Duplicate describes a record dropped because an earlier record
// already claimed the same email address.
type Duplicate struct {
	Email  string
	Record Record
}

// Result holds the outcome of processing a record sequence.
type Result struct {
	// Records are the kept records, in input order.
	Records []Record

	// Duplicates are records dropped by email deduplication.
	Duplicates []Duplicate

	// Excluded are records dropped by the include filter.
	Excluded []Record

	// Missing collects per-row errors for records without an email.
	Missing []*MissingFieldError
}

// FormatError indicates an unsupported context file format.
type FormatError struct {
	Path string
	Ext  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported context file format %q: %s", e.Ext, e.Path)
}

// MissingFieldError indicates a record without an email address.
// Row is 1-based in input order.
type MissingFieldError struct {
	Row int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d has no email address", e.Row)
}

// IsMissingField reports whether err (or any error in its chain) is a
// MissingFieldError.
func IsMissingField(err error) bool {
	var mfErr *MissingFieldError
	return errors.As(err, &mfErr)
}

// Load reads a context file into an ordered sequence of records. The
// format is selected by file extension: .csv expects a header row whose
// columns become field names; .yaml/.yml expects a sequence of
// mappings, with a single mapping treated as a one-element sequence.
func Load(path string) ([]Record, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".csv":
		return loadCSV(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return nil, &FormatError{Path: path, Ext: ext}
	}
}

func loadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening context file %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func loadYAML(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening context file %s: %w", path, err)
	}

	// A context file may hold either a sequence of mappings or a single
	// mapping; normalize the latter to a one-element sequence.
	var seq []map[string]any
	if err := yaml.Unmarshal(data, &seq); err != nil {
		var single map[string]any
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
		}
		seq = []map[string]any{single}
	}

	records := make([]Record, 0, len(seq))
	for _, m := range seq {
		rec := make(Record, len(m))
		for k, v := range m {
			rec[k] = stringify(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

// stringify converts a YAML scalar to its string form. Booleans become
// "true"/"false" so the include filter sees the same text as CSV input.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Process applies the include filter and email deduplication to records
// in input order. A record whose include field is present and not
// "true" (case-insensitive) is excluded; a record without an email is
// reported as missing; later records sharing an earlier record's email
// under case-insensitive comparison are reported as duplicates. Kept
// records preserve input order.
func Process(records []Record) *Result {
	res := &Result{}
	seen := make(map[string]bool)

	for i, rec := range records {
		if include, ok := rec["include"]; ok {
			if !strings.EqualFold(strings.TrimSpace(include), "true") {
				res.Excluded = append(res.Excluded, rec)
				continue
			}
		}

		email := strings.TrimSpace(rec["email"])
		if email == "" {
			res.Missing = append(res.Missing, &MissingFieldError{Row: i + 1})
			continue
		}

		key := strings.ToLower(email)
		if seen[key] {
			res.Duplicates = append(res.Duplicates, Duplicate{
				Email:  email,
				Record: rec,
			})
			continue
		}
		seen[key] = true
		res.Records = append(res.Records, rec)
	}

	return res
}
