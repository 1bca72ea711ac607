// Package logsafe holds slog.LogValuer types that redact personal data when a
// record is emitted. Wrap the raw value at the logging call site:
//
//	logger.Info("sent message", "to", logsafe.Emails(draft.To), "subject", logsafe.Subject(draft.Subject))
package logsafe

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	subjectPreview = 20
	queryPreview   = 30
)

// Email renders as ***@domain (N chars).
type Email string

func (e Email) LogValue() slog.Value {
	s := string(e)
	at := strings.Index(s, "@")
	if s == "" || at < 0 {
		return slog.StringValue("[invalid-email]")
	}
	return slog.StringValue(fmt.Sprintf("***@%s (%d chars)", s[at+1:], len(s)))
}

// Emails renders as a count plus the distinct domains.
type Emails []string

func (e Emails) LogValue() slog.Value {
	if len(e) == 0 {
		return slog.StringValue("[]")
	}
	seen := map[string]struct{}{}
	var domains []string
	for _, addr := range e {
		at := strings.Index(addr, "@")
		if at < 0 {
			continue
		}
		d := addr[at+1:]
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return slog.StringValue(fmt.Sprintf("[%d recipients from domains: %s]", len(e), strings.Join(domains, ", ")))
}

// Subject shows a short preview and the full length.
type Subject string

func (s Subject) LogValue() slog.Value {
	if s == "" {
		return slog.StringValue("[empty-subject]")
	}
	r := []rune(string(s))
	preview := string(r[:min(len(r), subjectPreview)])
	if len(r) > subjectPreview {
		preview += "..."
	}
	return slog.StringValue(fmt.Sprintf("'%s' (%d chars)", preview, len(r)))
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	idPattern    = regexp.MustCompile(`\b\d{3}[-.]?\d{2}[-.]?\d{4}\b`)
)

// Query masks addresses and number-like tokens, then truncates.
type Query string

func (q Query) LogValue() slog.Value {
	if q == "" {
		return slog.StringValue("[empty-query]")
	}
	s := emailPattern.ReplaceAllString(string(q), "[EMAIL]")
	s = phonePattern.ReplaceAllString(s, "[PHONE]")
	s = idPattern.ReplaceAllString(s, "[ID]")
	if len(s) > queryPreview {
		s = s[:queryPreview] + "..."
	}
	return slog.StringValue(fmt.Sprintf("'%s' (%d chars)", s, len(q)))
}

// Filename keeps only the extension.
type Filename string

func (f Filename) LogValue() slog.Value {
	if f == "" {
		return slog.StringValue("[no-filename]")
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(string(f))), ".")
	if ext == "" {
		return slog.StringValue(fmt.Sprintf("[file] (%d chars)", len(f)))
	}
	return slog.StringValue(fmt.Sprintf("[file.%s] (%d chars)", ext, len(f)))
}

// ID shortens long opaque identifiers.
type ID string

func (id ID) LogValue() slog.Value {
	s := string(id)
	switch {
	case s == "":
		return slog.StringValue("[no-id]")
	case len(s) <= 12:
		return slog.StringValue(s)
	default:
		return slog.StringValue(s[:8] + "..." + s[len(s)-4:])
	}
}
