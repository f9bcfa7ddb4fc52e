package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse("", "", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, Params{Page: 1, PerPage: 10}, p)

	p, err = Parse("3", "20", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 40, p.Offset())

	for _, tc := range [][2]string{{"0", ""}, {"abc", ""}, {"", "0"}, {"", "21"}, {"", "x"}} {
		_, err := Parse(tc[0], tc[1], 10, 20)
		assert.Error(t, err, "page=%q per_page=%q", tc[0], tc[1])
	}
}

func TestBuild(t *testing.T) {
	r := Build("/api/v1/orders", Params{Page: 2, PerPage: 10}, 25, url.Values{"status": {"PAID"}})

	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, int64(25), r.TotalItems)
	require.NotNil(t, r.PrevPage)
	require.NotNil(t, r.NextPage)
	assert.Equal(t, "/api/v1/orders?page=1&per_page=10&status=PAID", *r.PrevPage)
	assert.Equal(t, "/api/v1/orders?page=3&per_page=10&status=PAID", *r.NextPage)
}

func TestBuildEdges(t *testing.T) {
	first := Build("/movies", Params{Page: 1, PerPage: 10}, 5, nil)
	assert.Nil(t, first.PrevPage)
	assert.Nil(t, first.NextPage)
	assert.Equal(t, 1, first.TotalPages)

	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
}
