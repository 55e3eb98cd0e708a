package hubex

import (
	"context"
	"strings"
	"time"

	"github.com/maxbolgarin/errm"
)

// ShortRepo is the compact repository object nested in API answers.
type ShortRepo struct {
	ID       int64  `json:"id"`
	NodeID   string `json:"node_id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	Owner    *User  `json:"owner"`
	URL      string `json:"url"`
	HTMLURL  string `json:"html_url"`
}

// Repo scopes commit calls to a single repository.
type Repo struct {
	client *Client
	owner  string
	name   string
}

// Repo returns a repository scope for owner/name.
func (c *Client) Repo(owner, name string) *Repo {
	return &Repo{client: c, owner: owner, name: name}
}

// FullName returns the owner/name form of the repository.
func (r *Repo) FullName() string {
	return r.owner + "/" + r.name
}

// CommitListOptions filter a repository commits listing.
type CommitListOptions struct {
	// SHA or branch name to start listing from, the default branch
	// when empty.
	SHA string

	// Path narrows the listing to commits touching this path.
	Path string

	// Author filters by author login or email.
	Author string

	// Committer filters by committer login or email.
	Committer string

	// Since and Until bound the commit time range.
	Since time.Time
	Until time.Time

	// Number caps how many commits are fetched, no cap when <= 0.
	Number int

	// ETag makes the first page request conditional, see IterOptions.
	ETag string
}

// Commits returns a lazy iterator over commits of the repository,
// newest first.
func (r *Repo) Commits(opts CommitListOptions) *Iter[*RepoCommit] {
	if err := r.validate(); err != nil {
		return failedIter[*RepoCommit](err)
	}

	params := make(map[string]string)
	if opts.SHA != "" {
		params["sha"] = opts.SHA
	}
	if opts.Path != "" {
		params["path"] = opts.Path
	}
	if opts.Author != "" {
		params["author"] = opts.Author
	}
	if opts.Committer != "" {
		params["committer"] = opts.Committer
	}
	if !opts.Since.IsZero() {
		params["since"] = opts.Since.Format(time.RFC3339)
	}
	if !opts.Until.IsZero() {
		params["until"] = opts.Until.Format(time.RFC3339)
	}

	url := withQueryParams(r.path("commits"), params)

	return newIter[*RepoCommit](r.client, url, IterOptions{
		Limit: opts.Number,
		ETag:  opts.ETag,
	}, func(c *RepoCommit) { c.client = r.client })
}

// Commit fetches one commit by SHA, branch, or tag name.
func (r *Repo) Commit(ctx context.Context, ref string) (*RepoCommit, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, ErrNoRef
	}

	var commit RepoCommit
	_, err := r.client.http.Get(ctx, r.path("commits", ref), &commit)
	if err != nil {
		return nil, errm.Wrap(err, "failed to get commit")
	}
	commit.client = r.client

	return &commit, nil
}

func (r *Repo) validate() error {
	if r.owner == "" || r.name == "" {
		return ErrNoRepo
	}
	return nil
}

func (r *Repo) path(parts ...string) string {
	return strings.Join(append([]string{"repos", r.owner, r.name}, parts...), "/")
}
