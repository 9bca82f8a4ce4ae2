package habits

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jimdaga/habit-tracker/internal/apierr"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Scope selects which filters a list endpoint accepts.
type Scope int

const (
	ScopeMine Scope = iota
	ScopePublic
)

var orderings = map[string]string{
	"moment":    "moments.time ASC, habits.id ASC",
	"-moment":   "moments.time DESC, habits.id DESC",
	"duration":  "habits.duration ASC, habits.id ASC",
	"-duration": "habits.duration DESC, habits.id DESC",
}

// ListQuery holds pagination, search, ordering and filters for habit lists.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
	Ordering string

	IsPleasant  *bool
	IsPublic    *bool
	Periodicity *int
	Owner       *uint
}

// Offset is the number of rows before the current page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ParseListQuery reads list parameters from a query string. Filters not
// offered by scope are ignored.
func ParseListQuery(values url.Values, scope Scope) (ListQuery, error) {
	q := ListQuery{
		Page:     1,
		PageSize: DefaultPageSize,
		Search:   strings.TrimSpace(values.Get("search")),
		Ordering: strings.TrimSpace(values.Get("ordering")),
	}

	var err error
	if q.Page, err = positiveInt(values, "page", 1); err != nil {
		return q, err
	}
	if q.PageSize, err = positiveInt(values, "page_size", DefaultPageSize); err != nil {
		return q, err
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Ordering != "" {
		if _, ok := orderings[q.Ordering]; !ok {
			return q, invalidQuery("unsupported ordering %q", q.Ordering)
		}
	}

	if q.IsPleasant, err = optionalBool(values, "is_pleasant"); err != nil {
		return q, err
	}
	if q.Periodicity, err = optionalInt(values, "periodicity"); err != nil {
		return q, err
	}

	switch scope {
	case ScopeMine:
		if q.IsPublic, err = optionalBool(values, "is_public"); err != nil {
			return q, err
		}
	case ScopePublic:
		owner, err := optionalInt(values, "owner")
		if err != nil {
			return q, err
		}
		if owner != nil {
			id := uint(*owner)
			q.Owner = &id
		}
	}
	return q, nil
}

// apply adds filters and search to a query on habits joined with moments.
func (q ListQuery) apply(db *gorm.DB) *gorm.DB {
	if q.IsPleasant != nil {
		db = db.Where("habits.is_pleasant = ?", *q.IsPleasant)
	}
	if q.IsPublic != nil {
		db = db.Where("habits.is_public = ?", *q.IsPublic)
	}
	if q.Periodicity != nil {
		db = db.Where("habits.periodicity = ?", *q.Periodicity)
	}
	if q.Owner != nil {
		db = db.Where("habits.owner_id = ?", *q.Owner)
	}
	// Every term must match action or place.
	for _, term := range strings.Fields(q.Search) {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		db = db.Where(
			`(LOWER(habits.action) LIKE ? ESCAPE '\' OR LOWER(COALESCE(habits.place, '')) LIKE ? ESCAPE '\')`,
			pattern, pattern,
		)
	}
	return db
}

func (q ListQuery) orderClause() string {
	if clause, ok := orderings[q.Ordering]; ok {
		return clause
	}
	return "habits.id ASC"
}

// PageLinks returns the next and previous page URLs relative to u.
func (q ListQuery) PageLinks(u *url.URL, count int64) (next, previous *string) {
	link := func(page int) *string {
		values := u.Query()
		if page == 1 {
			values.Del("page")
		} else {
			values.Set("page", strconv.Itoa(page))
		}
		ref := *u
		ref.RawQuery = values.Encode()
		s := ref.String()
		return &s
	}

	if int64(q.Page*q.PageSize) < count {
		next = link(q.Page + 1)
	}
	if q.Page > 1 {
		previous = link(q.Page - 1)
	}
	return next, previous
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func invalidQuery(format string, args ...interface{}) error {
	return apierr.BadRequest("invalid_query", fmt.Errorf(format, args...))
}

func positiveInt(values url.Values, key string, fallback int) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, invalidQuery("%s must be a positive integer", key)
	}
	return n, nil
}

func optionalInt(values url.Values, key string) (*int, error) {
	raw := values.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, invalidQuery("%s must be a non-negative integer", key)
	}
	return &n, nil
}

func optionalBool(values url.Values, key string) (*bool, error) {
	raw := strings.ToLower(values.Get(key))
	switch raw {
	case "":
		return nil, nil
	case "true", "1":
		b := true
		return &b, nil
	case "false", "0":
		b := false
		return &b, nil
	default:
		return nil, invalidQuery("%s must be true or false", key)
	}
}

var errInvalidPage = apierr.NotFound(errors.New("invalid page"))
