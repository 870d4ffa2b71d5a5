package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/search", nil)
	p := FromRequest(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_Values(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/search?page=3&per_page=10", nil)
	p := FromRequest(r)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, 20, p.Offset)
}

func TestFromRequest_InvalidValues(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/search?page=-1&per_page=1000", nil)
	p := FromRequest(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := Slice(items, Params{Page: 2, PerPage: 2})
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, Meta{TotalCount: 5, Page: 2, PerPage: 2, TotalPages: 3, HasNext: true, HasPrev: true}, meta)

	page, meta = Slice(items, Params{Page: 3, PerPage: 2})
	assert.Equal(t, []int{5}, page)
	assert.False(t, meta.HasNext)
}

func TestSlice_PastEnd(t *testing.T) {
	page, meta := Slice([]int{1}, Params{Page: 4, PerPage: 2})
	assert.Empty(t, page)
	assert.NotNil(t, page)
	assert.Equal(t, 1, meta.TotalPages)
}

func TestSlice_Empty(t *testing.T) {
	page, meta := Slice([]string(nil), DefaultParams())
	assert.Empty(t, page)
	assert.Equal(t, 0, meta.TotalPages)
	assert.False(t, meta.HasNext)
}
