package hubex

import "time"

// RepoComment is a comment left directly on a commit.
type RepoComment struct {
	ID                int64     `json:"id"`
	NodeID            string    `json:"node_id"`
	URL               string    `json:"url"`
	HTMLURL           string    `json:"html_url"`
	Body              string    `json:"body"`
	User              *User     `json:"user"`
	Path              string    `json:"path"`
	Position          int       `json:"position"`
	Line              int       `json:"line"`
	CommitID          string    `json:"commit_id"`
	AuthorAssociation string    `json:"author_association"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
