package pipeline

import (
	"fmt"
	"strings"

	"github.com/nhle/draftsend/internal/contextdata"
)

// Failure records one recipient whose draft could not be created.
// Email is empty when the record never yielded a recipient address.
type Failure struct {
	Email string
	Err   error
}

// Report summarizes a run: drafts created, recipients skipped as
// duplicates, recipients excluded by the include filter, and
// per-recipient failures.
type Report struct {
	Created    []string
	Duplicates []contextdata.Duplicate
	Excluded   []contextdata.Record
	Failures   []Failure
}

// Summary renders the user-facing end-of-run report.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d drafts created, %d duplicates skipped, %d excluded by filter, %d failed",
		len(r.Created), len(r.Duplicates), len(r.Excluded), len(r.Failures))

	for _, dup := range r.Duplicates {
		fmt.Fprintf(&b, "\n  duplicate: %s", dup.Email)
	}
	for _, f := range r.Failures {
		if f.Email != "" {
			fmt.Fprintf(&b, "\n  failed: %s: %v", f.Email, f.Err)
		} else {
			fmt.Fprintf(&b, "\n  failed: %v", f.Err)
		}
	}

	return b.String()
}
