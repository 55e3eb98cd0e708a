package hubex

import (
	"context"

	"github.com/maxbolgarin/lang"
)

// CommitStats counts line changes introduced by a commit.
type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// CommitFile is one file-level change record of a commit.
type CommitFile struct {
	SHA              string `json:"sha"`
	Filename         string `json:"filename"`
	Status           string `json:"status"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	BlobURL          string `json:"blob_url"`
	RawURL           string `json:"raw_url"`
	ContentsURL      string `json:"contents_url"`
	Patch            string `json:"patch,omitempty"`
	PreviousFilename string `json:"previous_filename,omitempty"`
}

// RepoCommit is one commit as seen through the repository commits API,
// carrying repository-level metadata on top of the raw git object.
// All fields survive a payload with missing keys, absent values decode
// to nil or zero.
//
// Fetch methods need a bound client, either from the Repo call that
// produced the commit or attached with Bind.
type RepoCommit struct {
	SHA         string       `json:"sha"`
	NodeID      string       `json:"node_id"`
	URL         string       `json:"url"`
	HTMLURL     string       `json:"html_url"`
	CommentsURL string       `json:"comments_url"`
	Commit      *GitCommit   `json:"commit"`
	Author      *User        `json:"author"`
	Committer   *User        `json:"committer"`
	Parents     []CommitRef  `json:"parents"`
	Stats       CommitStats  `json:"stats"`
	Files       []CommitFile `json:"files"`

	client *Client
}

// Bind attaches the commit to a client so its fetch methods can run.
func (c *RepoCommit) Bind(client *Client) *RepoCommit {
	c.client = client
	return c
}

// Message returns the git commit message, empty when the raw commit
// object is absent.
func (c *RepoCommit) Message() string {
	if c.Commit == nil {
		return ""
	}
	return c.Commit.Message
}

// Equal reports whether both commits point at the same SHA. Other
// fields do not participate.
func (c *RepoCommit) Equal(other *RepoCommit) bool {
	if other == nil {
		return false
	}
	return c.SHA == other.SHA
}

// String returns a short display form with the abbreviated SHA.
func (c *RepoCommit) String() string {
	return "commit " + lang.TruncateString(c.SHA, 7)
}

// Diff fetches the commit in unified diff representation.
// A missing commit yields an empty body without an error.
func (c *RepoCommit) Diff(ctx context.Context) ([]byte, error) {
	url, err := c.apiURL()
	if err != nil {
		return nil, err
	}
	return c.client.media(ctx, url, mediaTypeDiff)
}

// Patch fetches the commit in patch (mailbox) representation.
// A missing commit yields an empty body without an error.
func (c *RepoCommit) Patch(ctx context.Context) ([]byte, error) {
	url, err := c.apiURL()
	if err != nil {
		return nil, err
	}
	return c.client.media(ctx, url, mediaTypePatch)
}

// Status fetches the combined state of all statuses on the commit.
// It returns nil without an error when the API answers with an empty
// body.
func (c *RepoCommit) Status(ctx context.Context) (*CombinedStatus, error) {
	url, err := c.apiURL()
	if err != nil {
		return nil, err
	}

	var combined CombinedStatus
	found, err := c.client.getStrict(ctx, joinURL(url, "status"), &combined)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return &combined, nil
}

// Statuses returns a lazy iterator over every raw status of the
// commit, following pagination until the listing is exhausted.
func (c *RepoCommit) Statuses() *Iter[*Status] {
	url, err := c.apiURL()
	if err != nil {
		return failedIter[*Status](err)
	}
	return newIter[*Status](c.client, joinURL(url, "statuses"), IterOptions{}, nil)
}

// CommentsOptions tune a commit comments listing.
type CommentsOptions struct {
	// Number caps how many comments are fetched, no cap when <= 0.
	Number int

	// ETag makes the first page request conditional, see IterOptions.
	ETag string
}

// Comments returns a lazy iterator over comments left on the commit.
func (c *RepoCommit) Comments(opts CommentsOptions) *Iter[*RepoComment] {
	url, err := c.apiURL()
	if err != nil {
		return failedIter[*RepoComment](err)
	}
	return newIter[*RepoComment](c.client, joinURL(url, "comments"), IterOptions{
		Limit: opts.Number,
		ETag:  opts.ETag,
	}, nil)
}

// apiURL returns the canonical resource URL of the commit.
func (c *RepoCommit) apiURL() (string, error) {
	if c.client == nil {
		return "", ErrNoClient
	}
	if c.URL == "" {
		return "", ErrNoAPIURL
	}
	return c.URL, nil
}
