package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/dview/pkg/view"
)

const directoryBody = `{
  "results": [
    {
      "gender": "female",
      "name": {"title": "Ms", "first": "Ada", "last": "Lovelace"},
      "location": {"city": "London", "state": "Greater London", "country": "United Kingdom"},
      "email": "ada@example.com",
      "login": {"uuid": "u-1", "username": "ada"},
      "registered": {"date": "2007-07-09T05:51:59.390Z", "age": 17},
      "phone": "555-0100",
      "nat": "GB"
    },
    {
      "name": {"first": "Grace", "last": "Hopper"},
      "location": {"country": "United States"},
      "email": "grace@example.com",
      "login": {"uuid": "u-2"}
    }
  ],
  "info": {"seed": "abc", "results": 2}
}`

func TestDirectory(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, directoryBody)
	}))
	defer srv.Close()

	recs, err := Directory(testClient(), DirectoryOptions{BaseURL: srv.URL, Results: 2, Seed: "abc"})(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"2"}, gotQuery["results"])
	assert.Equal(t, []string{"abc"}, gotQuery["seed"])
	assert.NotContains(t, gotQuery, "nat")

	ada := recs[0]
	assert.Equal(t, "u-1", ada["id"])
	assert.Equal(t, "Ada Lovelace", ada["name"])
	assert.Equal(t, "United Kingdom", ada["country"])
	assert.Equal(t, "ada@example.com", ada["email"])
	registered, ok := ada["registered"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2007, registered.Year())

	assert.NotContains(t, recs[1], "registered")
	assert.Equal(t, "Grace Hopper", recs[1]["name"])
}

func TestDirectoryDefaults(t *testing.T) {
	var gotResults string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotResults = r.URL.Query().Get("results")
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer srv.Close()

	recs, err := Directory(testClient(), DirectoryOptions{BaseURL: srv.URL})(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []view.Record{}, recs)
	assert.Equal(t, "25", gotResults)
}

func TestDirectorySearchableByCountry(t *testing.T) {
	srv := serveJSON(t, directoryBody)
	recs, err := Directory(testClient(), DirectoryOptions{BaseURL: srv.URL})(context.Background())
	require.NoError(t, err)

	c := view.NewController(view.WithTrackBy("id"), view.WithSearchFields("name", "country"))
	c.SetSearchText("states")
	res, err := c.Query(recs)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "u-2", res.Page[0]["id"])
}
