package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// formatMatchesText formats CLIMatch results as aligned columns.
func formatMatchesText(w io.Writer, ms []CLIMatch) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINE\tCOL\tCONTEXT")
	for _, m := range ms {
		name := m.Name
		if m.Snippet != "" {
			name = m.Snippet
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			name, m.Kind, m.File, m.Line, m.Col, m.Context)
	}
	tw.Flush()
}

// formatTypeText prints the type, then its declaration as "file:line:col".
func formatTypeText(w io.Writer, t CLIType) {
	fmt.Fprintln(w, t.Type)
	if d := t.Declaration; d != nil && d.File != "" {
		fmt.Fprintf(w, "%s:%d:%d\n", d.File, d.Line, d.Col)
	}
}

// formatBatchText formats batch results as aligned columns, one row per
// match.
func formatBatchText(w io.Writer, rs []CLIBatchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tPOSITION\tRESULT\tKIND\tLOCATION")
	for _, r := range rs {
		pos := fmt.Sprintf("%s:%d:%d", r.File, r.Line, r.Col)
		switch {
		case r.Error != "":
			fmt.Fprintf(tw, "%s\t%s\terror: %s\t\t\n", r.Kind, pos, r.Error)
		case r.Type != nil:
			fmt.Fprintf(tw, "%s\t%s\t%s\t\t\n", r.Kind, pos, r.Type.Type)
		case len(r.Matches) == 0:
			fmt.Fprintf(tw, "%s\t%s\t-\t\t\n", r.Kind, pos)
		}
		for _, m := range r.Matches {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s:%d:%d\n", r.Kind, pos, m.Name, m.Kind, m.File, m.Line, m.Col)
		}
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIMatch:
		formatMatchesText(w, v)
	case CLIMatch:
		formatMatchesText(w, []CLIMatch{v})
	case CLIType:
		formatTypeText(w, v)
	case []CLIBatchResult:
		formatBatchText(w, v)
	case string:
		fmt.Fprintln(w, v)
	case nil:
		// No output for nil results (e.g. no definition found).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
