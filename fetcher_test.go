package hubex

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_FetchCommits(t *testing.T) {
	t.Run("keeps the order of refs", func(t *testing.T) {
		client := newTestClient(t)
		repo := client.Repo("octocat", "hello")

		refs := []string{"aaa111", "bbb222", "ccc333", "ddd444", "eee555"}
		for _, ref := range refs {
			url := testBaseURL + "/repos/octocat/hello/commits/" + ref
			body := fmt.Sprintf(`{"sha": %q, "url": %q}`, ref, url)
			httpmock.RegisterResponder(http.MethodGet, url,
				func(*http.Request) (*http.Response, error) { return jsonResponse(http.StatusOK, body), nil })
		}

		fetcher, err := NewFetcher(client, 3)
		require.NoError(t, err)
		defer fetcher.Close()

		commits, err := fetcher.FetchCommits(context.Background(), repo, refs)
		require.NoError(t, err)
		require.Len(t, commits, len(refs))
		for i, ref := range refs {
			require.NotNil(t, commits[i])
			assert.Equal(t, ref, commits[i].SHA)
		}
	})

	t.Run("failed ref stays nil and reports error", func(t *testing.T) {
		client := newTestClient(t)
		repo := client.Repo("octocat", "hello")

		okURL := testBaseURL + "/repos/octocat/hello/commits/good"
		httpmock.RegisterResponder(http.MethodGet, okURL,
			func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"sha": "good", "url": "`+okURL+`"}`), nil
			})
		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/repos/octocat/hello/commits/gone",
			httpmock.NewStringResponder(http.StatusNotFound, `{"message": "Not Found"}`))

		fetcher, err := NewFetcher(client, 2)
		require.NoError(t, err)
		defer fetcher.Close()

		commits, err := fetcher.FetchCommits(context.Background(), repo, []string{"good", "gone"})
		require.Error(t, err)
		require.Len(t, commits, 2)
		assert.NotNil(t, commits[0])
		assert.Nil(t, commits[1])
	})

	t.Run("requires a client", func(t *testing.T) {
		_, err := NewFetcher(nil, 1)
		assert.Error(t, err)
	})
}

func TestFetcher_Enrich(t *testing.T) {
	client, commit := newTestCommit(t)

	httpmock.RegisterResponder(http.MethodGet, testCommitURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, mediaTypeDiff, req.Header.Get("Accept"))
		return httpmock.NewStringResponse(http.StatusOK, "diff --git a/x b/x"), nil
	})
	httpmock.RegisterResponder(http.MethodGet, testCommitURL+"/status",
		func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"state": "success", "total_count": 1}`), nil
		})
	httpmock.RegisterResponder(http.MethodGet, testCommitURL+"/comments",
		func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `[{"id": 1, "body": "nice"}, {"id": 2, "body": "ship it"}]`), nil
		})

	fetcher, err := NewFetcher(client, 2)
	require.NoError(t, err)
	defer fetcher.Close()

	bundle, err := fetcher.Enrich(context.Background(), commit)
	require.NoError(t, err)
	assert.Same(t, commit, bundle.Commit)
	assert.Equal(t, []byte("diff --git a/x b/x"), bundle.Diff)
	require.NotNil(t, bundle.Status)
	assert.Equal(t, StateSuccess, bundle.Status.State)
	require.Len(t, bundle.Comments, 2)
	assert.Equal(t, "nice", bundle.Comments[0].Body)
}

func TestFetcher_PollComments(t *testing.T) {
	client, commit := newTestCommit(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, testCommitURL+"/comments",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				resp := jsonResponse(http.StatusOK, `[{"id": 1, "body": "first"}, {"id": 2, "body": "second"}]`)
				resp.Header.Set("ETag", `"v1"`)
				return resp, nil
			}
			resp := jsonResponse(http.StatusOK, `[{"id": 1, "body": "first"}, {"id": 2, "body": "second"}, {"id": 3, "body": "third"}]`)
			resp.Header.Set("ETag", `"v2"`)
			return resp, nil
		})

	fetcher, err := NewFetcher(client, 1)
	require.NoError(t, err)
	defer fetcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []*RepoComment, 8)
	done := make(chan error, 1)
	go func() {
		done <- fetcher.PollComments(ctx, commit, 5*time.Millisecond, func(batch []*RepoComment) {
			batches <- batch
		})
	}()

	first := <-batches
	require.Len(t, first, 2)
	assert.Equal(t, "first", first[0].Body)

	second := <-batches
	require.Len(t, second, 1)
	assert.Equal(t, "third", second[0].Body)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
