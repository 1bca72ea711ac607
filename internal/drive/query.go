package drive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

// QueryBuilder accumulates a files.list request and renders it in Drive
// query grammar. Trashed items are excluded unless IncludeTrashed is set.
type QueryBuilder struct {
	svc *Service
	err error

	limit          int
	nameContains   string
	nameEquals     string
	fullText       string
	mimeType       string
	kind           ItemKind
	parentID       string
	starred        bool
	includeTrashed bool
	modifiedAfter  time.Time
	modifiedBefore time.Time
	orderBy        string
}

func newQueryBuilder(s *Service) *QueryBuilder {
	return &QueryBuilder{svc: s, limit: DefaultMaxResults}
}

func (b *QueryBuilder) fail(err error) *QueryBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *QueryBuilder) Err() error { return b.err }

func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	if err := validate.Limit(n, MaxResultsLimit); err != nil {
		return b.fail(err)
	}
	b.limit = n
	return b
}

func nonEmpty(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return apierr.Invalidf("%s must not be empty", field)
	}
	return nil
}

func (b *QueryBuilder) NameContains(s string) *QueryBuilder {
	if err := nonEmpty("name", s); err != nil {
		return b.fail(err)
	}
	b.nameContains = s
	return b
}

func (b *QueryBuilder) NameEquals(s string) *QueryBuilder {
	if err := nonEmpty("name", s); err != nil {
		return b.fail(err)
	}
	b.nameEquals = s
	return b
}

// Search matches names, descriptions and indexed content.
func (b *QueryBuilder) Search(text string) *QueryBuilder {
	if err := nonEmpty("search text", text); err != nil {
		return b.fail(err)
	}
	b.fullText = text
	return b
}

func (b *QueryBuilder) MimeType(m string) *QueryBuilder {
	if err := nonEmpty("mime type", m); err != nil {
		return b.fail(err)
	}
	b.mimeType = m
	return b
}

func (b *QueryBuilder) FoldersOnly() *QueryBuilder {
	b.kind = FolderKind
	return b
}

func (b *QueryBuilder) FilesOnly() *QueryBuilder {
	b.kind = FileKind
	return b
}

// FoldersNamed is FoldersOnly plus an exact name match.
func (b *QueryBuilder) FoldersNamed(name string) *QueryBuilder {
	return b.FoldersOnly().NameEquals(name)
}

func (b *QueryBuilder) InFolder(id string) *QueryBuilder {
	if err := nonEmpty("folder id", id); err != nil {
		return b.fail(err)
	}
	b.parentID = id
	return b
}

func (b *QueryBuilder) Starred() *QueryBuilder {
	b.starred = true
	return b
}

func (b *QueryBuilder) IncludeTrashed() *QueryBuilder {
	b.includeTrashed = true
	return b
}

func (b *QueryBuilder) ModifiedAfter(t time.Time) *QueryBuilder {
	b.modifiedAfter = t
	return b
}

func (b *QueryBuilder) ModifiedBefore(t time.Time) *QueryBuilder {
	b.modifiedBefore = t
	return b
}

// OrderBy passes a files.list orderBy expression such as "modifiedTime desc".
func (b *QueryBuilder) OrderBy(expr string) *QueryBuilder {
	if err := nonEmpty("order by", expr); err != nil {
		return b.fail(err)
	}
	b.orderBy = expr
	return b
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quote(s string) string {
	return "'" + quoteEscaper.Replace(s) + "'"
}

// Query renders the q parameter. Clauses always appear in the same order.
func (b *QueryBuilder) Query() string {
	var parts []string
	if b.nameContains != "" {
		parts = append(parts, "name contains "+quote(b.nameContains))
	}
	if b.nameEquals != "" {
		parts = append(parts, "name = "+quote(b.nameEquals))
	}
	if b.fullText != "" {
		parts = append(parts, "fullText contains "+quote(b.fullText))
	}
	if b.mimeType != "" {
		parts = append(parts, "mimeType = "+quote(b.mimeType))
	}
	switch b.kind {
	case FolderKind:
		parts = append(parts, "mimeType = "+quote(FolderMimeType))
	case FileKind:
		parts = append(parts, "mimeType != "+quote(FolderMimeType))
	}
	if b.parentID != "" {
		parts = append(parts, quote(b.parentID)+" in parents")
	}
	if b.starred {
		parts = append(parts, "starred = true")
	}
	if !b.modifiedAfter.IsZero() {
		parts = append(parts, "modifiedTime > "+quote(b.modifiedAfter.UTC().Format(time.RFC3339)))
	}
	if !b.modifiedBefore.IsZero() {
		parts = append(parts, "modifiedTime < "+quote(b.modifiedBefore.UTC().Format(time.RFC3339)))
	}
	if !b.includeTrashed {
		parts = append(parts, "trashed = false")
	}
	return strings.Join(parts, " and ")
}

// Options is the list request this builder describes.
func (b *QueryBuilder) Options() (ListOptions, error) {
	if b.err != nil {
		return ListOptions{}, b.err
	}
	return ListOptions{Query: b.Query(), MaxResults: b.limit, OrderBy: b.orderBy}, nil
}

func (b *QueryBuilder) Execute(ctx context.Context) ([]Item, error) {
	opts, err := b.Options()
	if err != nil {
		return nil, err
	}
	return b.svc.List(ctx, opts)
}

// Count is the number of matching items, up to MaxResultsLimit.
func (b *QueryBuilder) Count(ctx context.Context) (int, error) {
	saved := b.limit
	b.limit = MaxResultsLimit
	defer func() { b.limit = saved }()
	items, err := b.Execute(ctx)
	return len(items), err
}

// First returns the first match, or nil when nothing matches.
func (b *QueryBuilder) First(ctx context.Context) (Item, error) {
	saved := b.limit
	b.limit = 1
	defer func() { b.limit = saved }()
	items, err := b.Execute(ctx)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

func (b *QueryBuilder) Exists(ctx context.Context) (bool, error) {
	it, err := b.First(ctx)
	return it != nil, err
}

func (b *QueryBuilder) String() string {
	return fmt.Sprintf("drive.QueryBuilder{q=%q limit=%d}", b.Query(), b.limit)
}
