// Package query defines the note listing semantics shared by the repository
// and the in-memory (client-side) filtering path: sort orders with
// deterministic tiebreakers, opaque pagination cursors bound to a sort key,
// and the free-text page search.
package query

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"

	apperrors "notesu/internal/errors"
	"notesu/internal/model"
)

// Sort identifies a listing order.
type Sort string

const (
	// SortNewest orders by creation time descending.
	SortNewest Sort = "newest"
	// SortOldest orders by creation time ascending.
	SortOldest Sort = "oldest"
	// SortTitle orders by title, case-insensitively.
	SortTitle Sort = "title"
)

// CategoryAll selects every subject.
const CategoryAll = "all"

// ParseSort maps a request sort key to a Sort. Empty defaults to newest.
func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortTitle:
		return Sort(s), nil
	default:
		return "", apperrors.ErrInvalidSort
	}
}

// Cursor is a decoded pagination token. It records the sort key it was issued
// under plus the position of the last row returned; ties on the primary key
// are broken by note id, so the position is always unique.
type Cursor struct {
	Sort      Sort   `json:"s"`
	CreatedAt int64  `json:"c,omitempty"` // unix microseconds
	Title     string `json:"t,omitempty"` // lowercased
	ID        string `json:"i"`
}

// EncodeCursor issues an opaque token for the position after n under sort.
func EncodeCursor(n model.Note, sort Sort) string {
	c := Cursor{Sort: sort, ID: n.ID.String()}
	switch sort {
	case SortTitle:
		c.Title = strings.ToLower(n.Title)
	default:
		c.CreatedAt = n.CreatedAt.UnixMicro()
	}
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token and verifies it was issued under the requested
// sort; a cursor from a different sort order is rejected rather than applied
// to the wrong column.
func DecodeCursor(token string, sort Sort) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, apperrors.ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apperrors.ErrInvalidCursor
	}
	if c.Sort != sort || c.ID == "" {
		return nil, apperrors.ErrInvalidCursor
	}
	return &c, nil
}

// Query is the repository-facing listing request. The free-text search term
// is deliberately absent: search is applied in memory over the loaded page,
// never pushed into SQL.
type Query struct {
	Category string
	Sort     Sort
	Cursor   *Cursor
	Limit    int
}

// Engine builds repository queries and applies the in-memory filtering steps.
type Engine struct {
	defaultPageSize int
	maxPageSize     int
}

// NewEngine creates a query engine with the given default page size.
func NewEngine(defaultPageSize int) *Engine {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &Engine{defaultPageSize: defaultPageSize, maxPageSize: 100}
}

// BuildQuery translates request parameters into a repository query.
func (e *Engine) BuildQuery(category, sortKey, cursorToken string, limit int) (Query, error) {
	sort, err := ParseSort(sortKey)
	if err != nil {
		return Query{}, err
	}
	cursor, err := DecodeCursor(cursorToken, sort)
	if err != nil {
		return Query{}, err
	}
	if limit <= 0 {
		limit = e.defaultPageSize
	}
	if limit > e.maxPageSize {
		limit = e.maxPageSize
	}
	if category == "" {
		category = CategoryAll
	}
	return Query{Category: category, Sort: sort, Cursor: cursor, Limit: limit}, nil
}

// Search filters notes by a case-insensitive substring match over title,
// description and subject code. An empty term matches everything.
func (e *Engine) Search(notes []model.Note, term string) []model.Note {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return notes
	}
	out := make([]model.Note, 0, len(notes))
	for _, n := range notes {
		haystack := strings.ToLower(n.Title + " " + n.Description + " " + n.SubjectCode)
		if strings.Contains(haystack, term) {
			out = append(out, n)
		}
	}
	return out
}

// FilterCategory keeps notes matching the subject code; "all" keeps everything.
func (e *Engine) FilterCategory(notes []model.Note, category string) []model.Note {
	if category == "" || category == CategoryAll {
		return notes
	}
	out := make([]model.Note, 0, len(notes))
	for _, n := range notes {
		if n.SubjectCode == category {
			out = append(out, n)
		}
	}
	return out
}

// SortNotes orders notes in place according to sortKey.
func (e *Engine) SortNotes(notes []model.Note, sortKey Sort) {
	sort.Slice(notes, func(i, j int) bool {
		return Less(notes[i], notes[j], sortKey)
	})
}

// Less reports whether a orders before b under sort. Ties are broken by id
// ascending so every order is total and cursors stay stable under concurrent
// inserts.
func Less(a, b model.Note, sort Sort) bool {
	switch sort {
	case SortOldest:
		at, bt := a.CreatedAt.UnixMicro(), b.CreatedAt.UnixMicro()
		if at != bt {
			return at < bt
		}
	case SortTitle:
		al, bl := strings.ToLower(a.Title), strings.ToLower(b.Title)
		if al != bl {
			return al < bl
		}
	default: // SortNewest
		at, bt := a.CreatedAt.UnixMicro(), b.CreatedAt.UnixMicro()
		if at != bt {
			return at > bt
		}
	}
	return a.ID.String() < b.ID.String()
}

// After reports whether n comes strictly after the cursor position under the
// cursor's sort order.
func After(n model.Note, c *Cursor) bool {
	if c == nil {
		return true
	}
	switch c.Sort {
	case SortOldest:
		t := n.CreatedAt.UnixMicro()
		if t != c.CreatedAt {
			return t > c.CreatedAt
		}
	case SortTitle:
		tl := strings.ToLower(n.Title)
		if tl != c.Title {
			return tl > c.Title
		}
	default: // SortNewest
		t := n.CreatedAt.UnixMicro()
		if t != c.CreatedAt {
			return t < c.CreatedAt
		}
	}
	return n.ID.String() > c.ID
}
