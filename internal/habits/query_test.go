package habits

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListQuery(t *testing.T) {
	values, err := url.ParseQuery("page=2&page_size=500&search=run&ordering=-duration&is_pleasant=true&is_public=0&periodicity=3&owner=7")
	require.NoError(t, err)

	mine, err := ParseListQuery(values, ScopeMine)
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Page)
	assert.Equal(t, MaxPageSize, mine.PageSize)
	assert.Equal(t, "run", mine.Search)
	assert.Equal(t, "-duration", mine.Ordering)
	assert.True(t, *mine.IsPleasant)
	assert.False(t, *mine.IsPublic)
	assert.Equal(t, 3, *mine.Periodicity)
	assert.Nil(t, mine.Owner, "owner is not a filter on the mine list")

	public, err := ParseListQuery(values, ScopePublic)
	require.NoError(t, err)
	assert.Nil(t, public.IsPublic)
	require.NotNil(t, public.Owner)
	assert.Equal(t, uint(7), *public.Owner)
}

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := ParseListQuery(url.Values{}, ScopeMine)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.PageSize)
	assert.Zero(t, q.Offset())
	assert.Equal(t, "habits.id ASC", q.orderClause())
}

func TestParseListQuery_Invalid(t *testing.T) {
	for _, raw := range []string{"page=0", "page=x", "page_size=-1", "ordering=action", "is_pleasant=maybe", "periodicity=x"} {
		t.Run(raw, func(t *testing.T) {
			values, err := url.ParseQuery(raw)
			require.NoError(t, err)
			_, err = ParseListQuery(values, ScopeMine)
			assert.Error(t, err)
		})
	}
}

func TestPageLinks(t *testing.T) {
	u, err := url.Parse("/habits/public?page=2&page_size=2&search=run")
	require.NoError(t, err)
	q := ListQuery{Page: 2, PageSize: 2}

	next, prev := q.PageLinks(u, 5)
	require.NotNil(t, next)
	require.NotNil(t, prev)
	assert.Equal(t, "/habits/public?page=3&page_size=2&search=run", *next)
	assert.Equal(t, "/habits/public?page_size=2&search=run", *prev)

	next, _ = q.PageLinks(u, 4)
	assert.Nil(t, next)
}
