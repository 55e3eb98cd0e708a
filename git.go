package hubex

import "time"

// CommitIdentity is the git-level author or committer of a commit.
// It is present even when the account cannot be resolved to a User.
type CommitIdentity struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// CommitRef points at another commit or tree by SHA.
type CommitRef struct {
	SHA     string `json:"sha"`
	URL     string `json:"url"`
	HTMLURL string `json:"html_url,omitempty"`
}

// CommitVerification describes the signature check of a commit.
type CommitVerification struct {
	Verified  bool   `json:"verified"`
	Reason    string `json:"reason"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

// GitCommit is the raw git object nested inside a repository commit.
type GitCommit struct {
	URL          string              `json:"url"`
	Author       *CommitIdentity     `json:"author"`
	Committer    *CommitIdentity     `json:"committer"`
	Message      string              `json:"message"`
	Tree         CommitRef           `json:"tree"`
	CommentCount int                 `json:"comment_count"`
	Verification *CommitVerification `json:"verification"`
}
