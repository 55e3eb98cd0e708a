// Package fakehub serves a fixed slice of the GitHub commits API from
// memory. It backs integration tests and the mockhub binary with real
// pagination, conditional requests and media type switching, so
// clients can be exercised without touching the network.
package fakehub

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/hubex"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultPerPage = 30
	maxPerPage     = 100
)

// Hub is an in memory GitHub commits API for one repository. Commits
// are fixed at construction time, statuses and comments can be added
// later so watchers observe changes.
type Hub struct {
	fixture *Fixture
	log     logze.Logger

	mu       sync.RWMutex
	bySHA    map[string]*Commit
	statuses map[string][]*hubex.Status
	comments map[string][]*hubex.RepoComment
	nextID   int64
}

// New creates a hub serving the fixture.
func New(fixture *Fixture, log logze.Logger) (*Hub, error) {
	if fixture == nil || fixture.Owner == "" || fixture.Name == "" {
		return nil, errm.New("fixture with owner and name is required")
	}
	if len(fixture.Commits) == 0 {
		return nil, errm.New("fixture must hold at least one commit")
	}

	h := &Hub{
		fixture:  fixture,
		log:      log.WithFields("component", "fakehub"),
		bySHA:    make(map[string]*Commit, len(fixture.Commits)),
		statuses: make(map[string][]*hubex.Status, len(fixture.Commits)),
		comments: make(map[string][]*hubex.RepoComment, len(fixture.Commits)),
		nextID:   10000,
	}

	for _, fc := range fixture.Commits {
		if fc.Commit == nil || fc.Commit.SHA == "" {
			return nil, errm.New("fixture commit without sha")
		}
		sha := fc.Commit.SHA
		h.bySHA[sha] = fc
		h.statuses[sha] = fc.Statuses
		h.comments[sha] = fc.Comments
	}

	for ref, sha := range fixture.Branches {
		if _, ok := h.bySHA[sha]; !ok {
			return nil, errm.New("branch points at unknown commit: " + ref)
		}
	}

	return h, nil
}

// Handlers returns every route of the hub keyed by exact request path,
// ready to mount on any mux.
func (h *Hub) Handlers() map[string]http.HandlerFunc {
	routes := map[string]http.HandlerFunc{
		h.repoPath():          h.handleRepo,
		h.repoPath("commits"): h.handleListCommits,
	}

	refs := make([]string, 0, len(h.bySHA)+len(h.fixture.Branches))
	for sha := range h.bySHA {
		refs = append(refs, sha)
	}
	for ref := range h.fixture.Branches {
		refs = append(refs, ref)
	}

	for _, ref := range refs {
		sha := h.resolve(ref)
		routes[h.repoPath("commits", ref)] = h.handleCommit(sha)
		routes[h.repoPath("commits", ref, "status")] = h.handleCombinedStatus(sha)
		routes[h.repoPath("commits", ref, "statuses")] = h.handleStatuses(sha)
		routes[h.repoPath("commits", ref, "comments")] = h.handleComments(sha)
	}

	for _, base := range refs {
		for _, head := range refs {
			routes[h.repoPath("compare", base+"..."+head)] = h.handleCompare(base, head)
		}
	}

	return routes
}

// FullName returns the owner/name form of the served repository.
func (h *Hub) FullName() string {
	return h.fixture.Owner + "/" + h.fixture.Name
}

// HeadSHA returns the SHA of the newest commit.
func (h *Hub) HeadSHA() string {
	return h.fixture.Commits[0].Commit.SHA
}

// AddComment appends a comment to a commit, filling the ID, commit SHA
// and timestamps when absent. Pollers observe the change through a new
// entity tag on the comments listing.
func (h *Hub) AddComment(ref string, comment *hubex.RepoComment) error {
	sha := h.resolve(ref)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.bySHA[sha]; !ok {
		return errm.New("unknown commit: " + ref)
	}

	if comment.ID == 0 {
		comment.ID = h.nextID
		h.nextID++
	}
	comment.CommitID = sha
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
		comment.UpdatedAt = comment.CreatedAt
	}

	h.comments[sha] = append(h.comments[sha], comment)
	h.log.Debug("comment added", "sha", lang.TruncateString(sha, 8), "id", comment.ID)

	return nil
}

// AddStatus posts a status on a commit, newest first like the API.
func (h *Hub) AddStatus(ref string, status *hubex.Status) error {
	sha := h.resolve(ref)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.bySHA[sha]; !ok {
		return errm.New("unknown commit: " + ref)
	}

	if status.ID == 0 {
		status.ID = h.nextID
		h.nextID++
	}
	if status.CreatedAt.IsZero() {
		status.CreatedAt = time.Now().UTC()
		status.UpdatedAt = status.CreatedAt
	}

	h.statuses[sha] = append([]*hubex.Status{status}, h.statuses[sha]...)
	h.log.Debug("status added", "sha", lang.TruncateString(sha, 8), "context", status.Context)

	return nil
}

// resolve maps a branch name to its SHA, other refs pass through.
func (h *Hub) resolve(ref string) string {
	if sha, ok := h.fixture.Branches[ref]; ok {
		return sha
	}
	return ref
}

func (h *Hub) indexOf(ref string) int {
	sha := h.resolve(ref)
	for i, fc := range h.fixture.Commits {
		if fc.Commit.SHA == sha {
			return i
		}
	}
	return -1
}

func (h *Hub) repoPath(parts ...string) string {
	return "/" + strings.Join(append([]string{"repos", h.fixture.Owner, h.fixture.Name}, parts...), "/")
}

func listETag(n int) string {
	return `W/"commits-` + strconv.Itoa(n) + `"`
}

func commentsETag(sha string, n int) string {
	return `W/"comments-` + lang.TruncateString(sha, 8) + `-` + strconv.Itoa(n) + `"`
}
