package hubex

import "time"

// Commit status states reported by the API.
const (
	StateError   = "error"
	StateFailure = "failure"
	StatePending = "pending"
	StateSuccess = "success"
)

// Status is a single commit status posted by an external service.
type Status struct {
	ID          int64     `json:"id"`
	NodeID      string    `json:"node_id"`
	URL         string    `json:"url"`
	State       string    `json:"state"`
	Description string    `json:"description"`
	TargetURL   string    `json:"target_url"`
	Context     string    `json:"context"`
	AvatarURL   string    `json:"avatar_url"`
	Creator     *User     `json:"creator"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CombinedStatus folds all statuses of a commit into one state.
type CombinedStatus struct {
	State      string     `json:"state"`
	SHA        string     `json:"sha"`
	TotalCount int        `json:"total_count"`
	Statuses   []*Status  `json:"statuses"`
	CommitURL  string     `json:"commit_url"`
	URL        string     `json:"url"`
	Repository *ShortRepo `json:"repository"`
}
