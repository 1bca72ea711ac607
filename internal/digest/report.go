package digest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const previewSubjectDisplayLimit = 60

// PrintHuman writes a readable report to w, or stdout when w is nil.
func PrintHuman(rep Report, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var b strings.Builder
	fmt.Fprintf(&b, "digest for %s (window %s)\n", rep.GeneratedAt.Format("Mon Jan 2"), rep.Window)
	fmt.Fprintf(&b, "\nInbox: %d messages, %d unread\n", rep.Total, rep.Unread)
	if len(rep.TopSenders) > 0 {
		b.WriteString("\nTop senders:\n")
		for _, s := range rep.TopSenders {
			fmt.Fprintf(&b, "  %-30s %4d %4d unread  %s\n",
				s.Domain, s.Count, s.Unread, truncate(s.PreviewSubject, previewSubjectDisplayLimit))
		}
	}
	if len(rep.TopLists) > 0 {
		b.WriteString("\nTop lists:\n")
		for _, l := range rep.TopLists {
			fmt.Fprintf(&b, "  %-30s %4d %s\n", l.ListID, l.Count, truncate(l.PreviewSubject, previewSubjectDisplayLimit))
		}
	}

	b.WriteString("\nToday:\n")
	if len(rep.Events) == 0 {
		b.WriteString("  nothing scheduled\n")
	}
	for _, e := range rep.Events {
		when := "all day    "
		if !e.IsAllDay() {
			when = e.Start.Local().Format("15:04") + "-" + e.End.Local().Format("15:04")
		}
		fmt.Fprintf(&b, "  %s  %s", when, e.Summary)
		if e.Location != "" {
			fmt.Fprintf(&b, " @ %s", e.Location)
		}
		b.WriteString("\n")
	}
	for _, c := range rep.Conflicts {
		fmt.Fprintf(&b, "  conflict at %s: %s / %s\n", c.Start.Local().Format("15:04"), c.First, c.Second)
	}

	if len(rep.Overdue) > 0 {
		b.WriteString("\nOverdue tasks:\n")
		for _, t := range rep.Overdue {
			fmt.Fprintf(&b, "  %s  %s\n", t.Due.Format(time.DateOnly), t.Title)
		}
	}
	if len(rep.Suggestions) > 0 {
		b.WriteString("\nSuggested gmailctl snippets:\n")
		for _, snip := range rep.Suggestions {
			fmt.Fprintf(&b, "%s\n\n", snip)
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write human report: %w", err)
	}
	return nil
}

// WriteJSON writes the report to path, which must stay under the working
// directory.
func WriteJSON(rep Report, path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return fmt.Errorf("path must not be empty")
	}
	clean = filepath.Clean(clean)
	if filepath.IsAbs(clean) {
		return fmt.Errorf("output path must be relative, got %s", clean)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path %s escapes working directory", clean)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	abs := filepath.Join(wd, clean)
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create %s: %w", abs, err)
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
