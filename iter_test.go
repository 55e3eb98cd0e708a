package hubex

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPageURL(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{
			name: "next and last",
			link: `<https://gh.test/items?page=2>; rel="next", <https://gh.test/items?page=10>; rel="last"`,
			want: "https://gh.test/items?page=2",
		},
		{
			name: "next in the middle",
			link: `<https://gh.test/items?page=1>; rel="prev", <https://gh.test/items?page=3>; rel="next", <https://gh.test/items?page=10>; rel="last"`,
			want: "https://gh.test/items?page=3",
		},
		{
			name: "no next on the last page",
			link: `<https://gh.test/items?page=1>; rel="first", <https://gh.test/items?page=9>; rel="prev"`,
			want: "",
		},
		{
			name: "empty header",
			link: "",
			want: "",
		},
		{
			name: "garbage",
			link: "not a link header at all",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextPageURL(tt.link))
		})
	}
}

func TestIter_Next(t *testing.T) {
	listURL := testBaseURL + "/repos/octocat/hello/items"

	registerPages := func(pages, perPage int) {
		httpmock.RegisterResponder(http.MethodGet, listURL, func(req *http.Request) (*http.Response, error) {
			page := atoi(req.URL.Query().Get("page"))
			if page == 0 {
				page = 1
			}

			body := "["
			for i := 0; i < perPage; i++ {
				if i > 0 {
					body += ","
				}
				body += fmt.Sprintf(`{"id": %d}`, (page-1)*perPage+i+1)
			}
			body += "]"

			resp := jsonResponse(http.StatusOK, body)
			resp.Header.Set("ETag", fmt.Sprintf(`"etag-page-%d"`, page))
			if page < pages {
				resp.Header.Set("Link", fmt.Sprintf("<%s?page=%d>; rel=%q", listURL, page+1, "next"))
			}
			return resp, nil
		})
	}

	type item struct {
		ID int `json:"id"`
	}

	t.Run("walks every page", func(t *testing.T) {
		client := newTestClient(t)
		registerPages(3, 2)

		it := newIter[*item](client, listURL, IterOptions{}, nil)

		var ids []int
		for it.Next(context.Background()) {
			ids = append(ids, it.Value().ID)
		}
		require.NoError(t, it.Err())
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ids)
		assert.Equal(t, 3, httpmock.GetTotalCallCount())
	})

	t.Run("limit stops mid listing", func(t *testing.T) {
		client := newTestClient(t)
		registerPages(10, 1)

		it := newIter[*item](client, listURL, IterOptions{Limit: 3}, nil)

		var ids []int
		for it.Next(context.Background()) {
			ids = append(ids, it.Value().ID)
		}
		require.NoError(t, it.Err())
		assert.Equal(t, []int{1, 2, 3}, ids)
		assert.Equal(t, 3, httpmock.GetTotalCallCount())
	})

	t.Run("remembers first page etag", func(t *testing.T) {
		client := newTestClient(t)
		registerPages(2, 1)

		it := newIter[*item](client, listURL, IterOptions{}, nil)
		_, err := it.All(context.Background())
		require.NoError(t, err)

		assert.Equal(t, `"etag-page-1"`, it.ETag())
		assert.Equal(t, `"etag-page-1"`, client.LastETag(listURL))
	})

	t.Run("error status stops iteration", func(t *testing.T) {
		client := newTestClient(t)
		httpmock.RegisterResponder(http.MethodGet, listURL,
			httpmock.NewStringResponder(http.StatusForbidden, `{"message": "rate limited"}`))

		it := newIter[*item](client, listURL, IterOptions{}, nil)
		assert.False(t, it.Next(context.Background()))
		require.Error(t, it.Err())
		assert.Equal(t, http.StatusForbidden, StatusCode(it.Err()))
	})

	t.Run("empty listing", func(t *testing.T) {
		client := newTestClient(t)
		httpmock.RegisterResponder(http.MethodGet, listURL,
			httpmock.NewJsonResponderOrPanic(http.StatusOK, []any{}))

		it := newIter[*item](client, listURL, IterOptions{}, nil)
		assert.False(t, it.Next(context.Background()))
		require.NoError(t, it.Err())
	})

	t.Run("attach hook runs per item", func(t *testing.T) {
		client := newTestClient(t)
		registerPages(2, 2)

		var touched int
		it := newIter[*item](client, listURL, IterOptions{}, func(*item) { touched++ })
		items, err := it.All(context.Background())
		require.NoError(t, err)
		assert.Len(t, items, 4)
		assert.Equal(t, 4, touched)
	})

	t.Run("per page follows the limit", func(t *testing.T) {
		client := newTestClient(t)
		httpmock.RegisterResponder(http.MethodGet, listURL, func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "5", req.URL.Query().Get("per_page"))
			return jsonResponse(http.StatusOK, `[{"id": 1}]`), nil
		})

		it := newIter[*item](client, listURL, IterOptions{Limit: 5}, nil)
		_, err := it.All(context.Background())
		require.NoError(t, err)
	})
}

func TestIter_Failed(t *testing.T) {
	it := failedIter[*RepoComment](ErrNoClient)

	assert.False(t, it.Next(context.Background()))
	assert.ErrorIs(t, it.Err(), ErrNoClient)

	items, err := it.All(context.Background())
	assert.Empty(t, items)
	assert.ErrorIs(t, err, ErrNoClient)
}
