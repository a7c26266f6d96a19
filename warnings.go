package pdfhtml

import (
	"fmt"
	"strings"

	"github.com/tsawler/pdfhtml/diag"
)

// Warning is a non-fatal problem met during conversion: a page that was
// skipped, a font that degraded, text that moved to the background.
type Warning struct {
	Severity diag.Severity
	Kind     diag.Kind
	// Page is 1-based, or zero for document-wide warnings.
	Page    int
	Font    string
	Message string
	// Err is the underlying error, if any. Match it with errors.As.
	Err error
}

func (w Warning) String() string {
	var sb strings.Builder
	if w.Page > 0 {
		fmt.Fprintf(&sb, "page %d: ", w.Page)
	}
	if w.Font != "" {
		fmt.Fprintf(&sb, "font %s: ", w.Font)
	}
	fmt.Fprintf(&sb, "%s (%s)", w.Message, w.Kind)
	return sb.String()
}

func warningsFrom(ds []diag.Diagnostic) []Warning {
	if len(ds) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(ds))
	for _, d := range ds {
		w := Warning{Severity: d.Severity, Kind: d.Kind, Page: d.Page, Message: d.Message, Err: d.Err}
		if !d.Font.IsZero() {
			w.Font = d.Font.String()
		}
		out = append(out, w)
	}
	return out
}

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
