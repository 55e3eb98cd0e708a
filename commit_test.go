package hubex

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL   = "https://gh.test"
	testCommitSHA = "6dcb09b5b57875f334f61aebed695e2e4193db5e"
)

var testCommitURL = testBaseURL + "/repos/octocat/hello/commits/" + testCommitSHA

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := New(Config{BaseURL: testBaseURL})
	require.NoError(t, err)

	httpmock.ActivateNonDefault(client.HTTP().C().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	return client
}

func newTestCommit(t *testing.T) (*Client, *RepoCommit) {
	t.Helper()

	client := newTestClient(t)
	commit := &RepoCommit{SHA: testCommitSHA, URL: testCommitURL}
	commit.Bind(client)

	return client, commit
}

func jsonResponse(code int, body string) *http.Response {
	resp := httpmock.NewStringResponse(code, body)
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func TestRepoCommit_Decode(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		payload := `{
			"sha": "` + testCommitSHA + `",
			"url": "` + testCommitURL + `",
			"html_url": "https://gh.test/octocat/hello/commit/` + testCommitSHA + `",
			"commit": {
				"message": "Fix all the bugs",
				"author": {"name": "Mona Octocat", "email": "mona@github.com", "date": "2011-04-14T16:00:49Z"},
				"tree": {"sha": "b4eecafa9be2f2006ce1b709d6857b07069b4608"}
			},
			"author": {"login": "octocat", "id": 1},
			"committer": {"login": "octocat", "id": 1},
			"parents": [{"sha": "1abcdef", "url": "https://gh.test/repos/octocat/hello/commits/1abcdef"}],
			"stats": {"additions": 104, "deletions": 4, "total": 108},
			"files": [{"filename": "file1.txt", "additions": 10, "deletions": 2, "changes": 12, "status": "modified"}]
		}`

		var commit RepoCommit
		require.NoError(t, json.Unmarshal([]byte(payload), &commit))

		assert.Equal(t, testCommitSHA, commit.SHA)
		assert.Equal(t, "Fix all the bugs", commit.Message())
		assert.Equal(t, 104, commit.Stats.Additions)
		assert.Equal(t, 4, commit.Stats.Deletions)
		assert.Equal(t, 108, commit.Stats.Total)
		assert.Equal(t, "octocat", commit.Author.Login)
		assert.Equal(t, "Mona Octocat", commit.Commit.Author.Name)
		assert.Len(t, commit.Parents, 1)
		require.Len(t, commit.Files, 1)
		assert.Equal(t, "file1.txt", commit.Files[0].Filename)
	})

	t.Run("missing stats leaves zeros", func(t *testing.T) {
		var commit RepoCommit
		require.NoError(t, json.Unmarshal([]byte(`{"sha": "abc"}`), &commit))

		assert.Zero(t, commit.Stats.Additions)
		assert.Zero(t, commit.Stats.Deletions)
		assert.Zero(t, commit.Stats.Total)
		assert.Empty(t, commit.Files)
	})

	t.Run("missing optional objects decode to nil", func(t *testing.T) {
		var commit RepoCommit
		require.NoError(t, json.Unmarshal([]byte(`{"sha": "abc"}`), &commit))

		assert.Nil(t, commit.Author)
		assert.Nil(t, commit.Committer)
		assert.Nil(t, commit.Commit)
		assert.Empty(t, commit.Message())
	})

	t.Run("missing sha is not an error", func(t *testing.T) {
		var commit RepoCommit
		require.NoError(t, json.Unmarshal([]byte(`{"commit": {"message": "hi"}}`), &commit))

		assert.Empty(t, commit.SHA)
		assert.Equal(t, "hi", commit.Message())
	})
}

func TestRepoCommit_Equal(t *testing.T) {
	first := &RepoCommit{SHA: "abc", HTMLURL: "one"}
	second := &RepoCommit{SHA: "abc", HTMLURL: "two", Stats: CommitStats{Additions: 5}}
	third := &RepoCommit{SHA: "def"}

	assert.True(t, first.Equal(second), "equality must depend on SHA only")
	assert.True(t, second.Equal(first))
	assert.False(t, first.Equal(third))
	assert.False(t, first.Equal(nil))

	empty1, empty2 := &RepoCommit{}, &RepoCommit{}
	assert.True(t, empty1.Equal(empty2), "two commits without SHA compare equal")
}

func TestRepoCommit_String(t *testing.T) {
	commit := &RepoCommit{SHA: "abcdef1234567890"}

	s := commit.String()
	assert.Contains(t, s, "abcdef1")
	assert.NotContains(t, s, "abcdef1234567890")
}

func TestRepoCommit_Diff(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		_, commit := newTestCommit(t)
		body := "diff --git a/file1.txt b/file1.txt\n+++ b/file1.txt\n"
		httpmock.RegisterResponder(http.MethodGet, testCommitURL, func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, mediaTypeDiff, req.Header.Get("Accept"))
			return httpmock.NewStringResponse(http.StatusOK, body), nil
		})

		diff, err := commit.Diff(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []byte(body), diff)
	})

	t.Run("not found yields empty body", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, testCommitURL,
			httpmock.NewStringResponder(http.StatusNotFound, `{"message": "Not Found"}`))

		diff, err := commit.Diff(context.Background())
		require.NoError(t, err)
		assert.Empty(t, diff)
	})

	t.Run("server error propagates", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, testCommitURL,
			httpmock.NewStringResponder(http.StatusBadGateway, "bad gateway"))

		_, err := commit.Diff(context.Background())
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	})
}

func TestRepoCommit_Patch(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		_, commit := newTestCommit(t)
		body := "From 6dcb09b Mon Sep 17 00:00:00 2001\nSubject: [PATCH] fix\n"
		httpmock.RegisterResponder(http.MethodGet, testCommitURL, func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, mediaTypePatch, req.Header.Get("Accept"))
			return httpmock.NewStringResponse(http.StatusOK, body), nil
		})

		patch, err := commit.Patch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []byte(body), patch)
	})

	t.Run("not found yields empty body", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, testCommitURL,
			httpmock.NewStringResponder(http.StatusNotFound, `{"message": "Not Found"}`))

		patch, err := commit.Patch(context.Background())
		require.NoError(t, err)
		assert.Empty(t, patch)
	})
}

func TestRepoCommit_Status(t *testing.T) {
	statusURL := testCommitURL + "/status"

	t.Run("ok", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, statusURL, func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{
				"state": "success",
				"sha": "`+testCommitSHA+`",
				"total_count": 2,
				"statuses": [
					{"id": 1, "state": "success", "context": "ci/build"},
					{"id": 2, "state": "success", "context": "ci/test"}
				]
			}`), nil
		})

		combined, err := commit.Status(context.Background())
		require.NoError(t, err)
		require.NotNil(t, combined)
		assert.Equal(t, StateSuccess, combined.State)
		assert.Equal(t, 2, combined.TotalCount)
		require.Len(t, combined.Statuses, 2)
		assert.Equal(t, "ci/build", combined.Statuses[0].Context)
	})

	t.Run("empty body yields nil", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, statusURL,
			httpmock.NewStringResponder(http.StatusOK, ""))

		combined, err := commit.Status(context.Background())
		require.NoError(t, err)
		assert.Nil(t, combined)
	})

	t.Run("null body yields nil", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, statusURL,
			httpmock.NewStringResponder(http.StatusOK, "null"))

		combined, err := commit.Status(context.Background())
		require.NoError(t, err)
		assert.Nil(t, combined)
	})

	t.Run("anything but 200 errors", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, statusURL,
			httpmock.NewStringResponder(http.StatusNotFound, `{"message": "Not Found"}`))

		_, err := commit.Status(context.Background())
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestRepoCommit_Statuses(t *testing.T) {
	statusesURL := testCommitURL + "/statuses"

	_, commit := newTestCommit(t)
	httpmock.RegisterResponder(http.MethodGet, statusesURL, func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("page") == "2" {
			return jsonResponse(http.StatusOK, `[{"id": 3, "state": "pending", "context": "ci/deploy"}]`), nil
		}
		resp := jsonResponse(http.StatusOK, `[
			{"id": 1, "state": "success", "context": "ci/build"},
			{"id": 2, "state": "failure", "context": "ci/test"}
		]`)
		resp.Header.Set("Link", fmt.Sprintf("<%s?page=2>; rel=%q", statusesURL, "next"))
		return resp, nil
	})

	statuses, err := commit.Statuses().All(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3, "pagination must be followed to exhaustion")
	assert.Equal(t, StateSuccess, statuses[0].State)
	assert.Equal(t, StateFailure, statuses[1].State)
	assert.Equal(t, StatePending, statuses[2].State)
}

func TestRepoCommit_Comments(t *testing.T) {
	commentsURL := testCommitURL + "/comments"

	t.Run("capped fetch stops early", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, commentsURL, func(req *http.Request) (*http.Response, error) {
			page := req.URL.Query().Get("page")
			if page == "" {
				page = "1"
			}
			resp := jsonResponse(http.StatusOK, fmt.Sprintf(`[{"id": %s, "body": "comment %s"}]`, page, page))
			if page != "5" {
				resp.Header.Set("Link", fmt.Sprintf("<%s?page=%d>; rel=%q", commentsURL, atoi(page)+1, "next"))
			}
			return resp, nil
		})

		comments, err := commit.Comments(CommentsOptions{Number: 2}).All(context.Background())
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, int64(1), comments[0].ID)
		assert.Equal(t, int64(2), comments[1].ID)
		assert.Equal(t, 2, httpmock.GetTotalCallCount(), "remaining pages must not be fetched")
	})

	t.Run("unbounded fetch drains the listing", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, commentsURL, func(req *http.Request) (*http.Response, error) {
			page := req.URL.Query().Get("page")
			if page == "" {
				page = "1"
			}
			resp := jsonResponse(http.StatusOK, fmt.Sprintf(`[{"id": %s, "body": "comment %s"}]`, page, page))
			if page != "3" {
				resp.Header.Set("Link", fmt.Sprintf("<%s?page=%d>; rel=%q", commentsURL, atoi(page)+1, "next"))
			}
			return resp, nil
		})

		comments, err := commit.Comments(CommentsOptions{}).All(context.Background())
		require.NoError(t, err)
		assert.Len(t, comments, 3)
	})

	t.Run("not modified yields zero comments", func(t *testing.T) {
		_, commit := newTestCommit(t)
		httpmock.RegisterResponder(http.MethodGet, commentsURL, func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, `"etag-1"`, req.Header.Get("If-None-Match"))
			return httpmock.NewStringResponse(http.StatusNotModified, ""), nil
		})

		it := commit.Comments(CommentsOptions{ETag: `"etag-1"`})
		comments, err := it.All(context.Background())
		require.NoError(t, err)
		assert.Empty(t, comments)
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})
}

func TestRepoCommit_Unbound(t *testing.T) {
	t.Run("no client", func(t *testing.T) {
		commit := &RepoCommit{SHA: "abc", URL: testCommitURL}

		_, err := commit.Diff(context.Background())
		assert.ErrorIs(t, err, ErrNoClient)

		_, err = commit.Comments(CommentsOptions{}).All(context.Background())
		assert.ErrorIs(t, err, ErrNoClient)
	})

	t.Run("no URL", func(t *testing.T) {
		client := newTestClient(t)
		commit := (&RepoCommit{SHA: "abc"}).Bind(client)

		_, err := commit.Patch(context.Background())
		assert.ErrorIs(t, err, ErrNoAPIURL)

		_, err = commit.Status(context.Background())
		assert.ErrorIs(t, err, ErrNoAPIURL)

		_, err = commit.Statuses().All(context.Background())
		assert.ErrorIs(t, err, ErrNoAPIURL)
	})
}
