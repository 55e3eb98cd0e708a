package hubex

import (
	"context"

	"github.com/maxbolgarin/errm"
)

// Comparison describes how a head commit relates to a base commit.
type Comparison struct {
	URL             string        `json:"url"`
	HTMLURL         string        `json:"html_url"`
	PermalinkURL    string        `json:"permalink_url"`
	DiffURL         string        `json:"diff_url"`
	PatchURL        string        `json:"patch_url"`
	BaseCommit      *RepoCommit   `json:"base_commit"`
	MergeBaseCommit *RepoCommit   `json:"merge_base_commit"`
	Status          string        `json:"status"`
	AheadBy         int           `json:"ahead_by"`
	BehindBy        int           `json:"behind_by"`
	TotalCommits    int           `json:"total_commits"`
	Commits         []*RepoCommit `json:"commits"`
	Files           []CommitFile  `json:"files"`

	client *Client
}

// Compare fetches the comparison between two refs, base...head.
func (r *Repo) Compare(ctx context.Context, base, head string) (*Comparison, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if base == "" || head == "" {
		return nil, errm.New("base and head refs are required")
	}

	var cmp Comparison
	_, err := r.client.http.Get(ctx, r.path("compare", base+"..."+head), &cmp)
	if err != nil {
		return nil, errm.Wrap(err, "failed to compare refs")
	}

	cmp.client = r.client
	if cmp.BaseCommit != nil {
		cmp.BaseCommit.client = r.client
	}
	if cmp.MergeBaseCommit != nil {
		cmp.MergeBaseCommit.client = r.client
	}
	for _, commit := range cmp.Commits {
		commit.client = r.client
	}

	return &cmp, nil
}

// Diff fetches the comparison in unified diff representation.
// A missing comparison yields an empty body without an error.
func (c *Comparison) Diff(ctx context.Context) ([]byte, error) {
	if c.client == nil {
		return nil, ErrNoClient
	}
	if c.URL == "" {
		return nil, ErrNoAPIURL
	}
	return c.client.media(ctx, c.URL, mediaTypeDiff)
}

// Patch fetches the comparison in patch (mailbox) representation.
// A missing comparison yields an empty body without an error.
func (c *Comparison) Patch(ctx context.Context) ([]byte, error) {
	if c.client == nil {
		return nil, ErrNoClient
	}
	if c.URL == "" {
		return nil, ErrNoAPIURL
	}
	return c.client.media(ctx, c.URL, mediaTypePatch)
}
