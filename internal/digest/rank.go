package digest

import (
	"cmp"
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/calendar"
	"github.com/joshsymonds/gworkspace/internal/gmail"
)

var angleBracketRe = regexp.MustCompile(`^[<\s]*(.*?)[>\s]*$`)

const listIDMatchGroups = 2

func domainOf(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	addrs, err := mail.ParseAddressList(from)
	if err != nil {
		return extractDomain(from)
	}
	for _, addr := range addrs {
		if dom := extractDomain(addr.Address); dom != "" {
			return dom
		}
	}
	return ""
}

func extractDomain(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	at := strings.LastIndex(address, "@")
	if at == -1 {
		return ""
	}
	return strings.Trim(address[at+1:], ". >")
}

// normalizeListID reduces `"Name" <id.example.com>` style headers to the
// bare lower-cased id.
func normalizeListID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if open := strings.LastIndex(raw, "<"); open >= 0 {
		raw = raw[open:]
	}
	if matches := angleBracketRe.FindStringSubmatch(raw); len(matches) == listIDMatchGroups {
		raw = matches[1]
	}
	raw = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "<"), ">")
	return strings.ToLower(strings.Trim(raw, "\" "))
}

func senderDomain(m gmail.Message) string {
	if m.Sender == nil {
		return ""
	}
	return domainOf(m.Sender.Email)
}

func buildRankings(msgs []gmail.Message, topN int) ([]SenderStat, []ListStat) {
	senders := map[string]*SenderStat{}
	lists := map[string]*ListStat{}
	for _, m := range msgs {
		if domain := senderDomain(m); domain != "" {
			st := senders[domain]
			if st == nil {
				st = &SenderStat{Domain: domain}
				senders[domain] = st
			}
			st.Count++
			if !m.IsRead {
				st.Unread++
			}
			if st.PreviewSubject == "" {
				st.PreviewSubject = m.Subject
			}
		}
		if lid := normalizeListID(m.ListID); lid != "" {
			ls := lists[lid]
			if ls == nil {
				ls = &ListStat{ListID: lid}
				lists[lid] = ls
			}
			ls.Count++
			if ls.PreviewSubject == "" {
				ls.PreviewSubject = m.Subject
			}
		}
	}
	return rank(senders, topN, func(s SenderStat) string { return s.Domain }),
		rank(lists, topN, func(l ListStat) string { return l.ListID })
}

type counted interface{ count() int }

func (s SenderStat) count() int { return s.Count }
func (l ListStat) count() int   { return l.Count }

// rank orders by count descending, then key ascending, and keeps topN.
func rank[T counted](m map[string]*T, topN int, key func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, st := range m {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b T) int {
		if c := cmp.Compare(b.count(), a.count()); c != 0 {
			return c
		}
		return strings.Compare(key(a), key(b))
	})
	if topN < len(out) {
		out = out[:topN]
	}
	return out
}

// buildArchiveRules proposes gmailctl filters for the noisiest sources.
func buildArchiveRules(lists []ListStat, senders []SenderStat) []string {
	const maxRules = 10
	snippets := make([]string, 0, min(len(lists)+len(senders), maxRules))
	for _, ls := range lists {
		if len(snippets) >= maxRules {
			return snippets
		}
		snippets = append(snippets, fmt.Sprintf(`{
  filter: { list: "%s" },
  actions: { archive: true, markRead: true },
}`, ls.ListID))
	}
	for _, sd := range senders {
		if len(snippets) >= maxRules {
			break
		}
		snippets = append(snippets, fmt.Sprintf(`{
  filter: { from: "*@%s" },
  actions: { archive: true, markRead: true },
}`, sd.Domain))
	}
	return snippets
}

// findConflicts pairs overlapping timed events. events must be sorted by
// start.
func findConflicts(events []calendar.Event) []Conflict {
	var out []Conflict
	for i := range events {
		if events[i].IsAllDay() {
			continue
		}
		for j := i + 1; j < len(events); j++ {
			if events[j].IsAllDay() {
				continue
			}
			if !events[j].Start.Before(events[i].End) {
				break
			}
			if events[i].ConflictsWith(&events[j]) {
				out = append(out, Conflict{First: events[i].Summary, Second: events[j].Summary, Start: events[j].Start})
			}
		}
	}
	return out
}

func daysFromDuration(window time.Duration) int {
	const day = 24 * time.Hour
	days := int(window / day)
	if window%day != 0 {
		days++
	}
	return max(days, 1)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
