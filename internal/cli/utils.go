// Package cli renders command output for the silabo CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/silabo/internal/models"
	"github.com/hyperjump/silabo/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms", response.Total, response.QueryTime)
	if response.AutoFuzzy {
		fmt.Fprint(w, " (fuzzy)")
	}
	fmt.Fprintln(w)
	for _, r := range response.Results {
		fmt.Fprintf(w, "%3d. %-16s %-8s %-7s %.4f  %s\n",
			r.Rank, r.CourseID, r.NRC, r.Period, r.Score, utils.Truncate(r.Name, 60))
	}
	return nil
}

// WriteSummary writes a batch summary to w in the given format.
func WriteSummary(w io.Writer, summary *models.BatchSummary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, summary)
	}
	elapsed := summary.FinishedAt.Sub(summary.StartedAt)
	fmt.Fprintf(w, "Run %s: %d found, %d processed, %d skipped, %d failed in %s\n",
		summary.RunID, summary.Found, summary.Processed, summary.Skipped, summary.Failed, elapsed.Round(time.Millisecond))
	if len(summary.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, f := range summary.Failures {
			fmt.Fprintf(w, "  [%s] %s: %s\n", f.Kind, f.Path, utils.Truncate(f.Reason, 120))
		}
	}
	return nil
}

// WriteCourses writes one line per course, or the records as JSON.
func WriteCourses(w io.Writer, courses []*models.CourseRecord, format OutputFormat) error {
	if format == OutputJSON {
		if courses == nil {
			courses = []*models.CourseRecord{}
		}
		return writeJSON(w, courses)
	}
	for _, c := range courses {
		fmt.Fprintf(w, "%-20s %-7s %2d units %2d assessments  %s\n",
			c.Key(), c.Metadata.Period, len(c.Units), len(c.Assessments), utils.Truncate(c.Name, 50))
	}
	fmt.Fprintf(w, "%d courses\n", len(courses))
	return nil
}
