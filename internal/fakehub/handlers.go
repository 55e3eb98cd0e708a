package fakehub

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maxbolgarin/hubex"
)

func (h *Hub) handleRepo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, h.repoPayload(baseURL(r)))
}

func (h *Hub) handleListCommits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	commits := make([]*Commit, len(h.fixture.Commits))
	copy(commits, h.fixture.Commits)

	if sha := q.Get("sha"); sha != "" {
		idx := h.indexOf(sha)
		if idx < 0 {
			h.writeNotFound(w)
			return
		}
		commits = commits[idx:]
	}
	if author := q.Get("author"); author != "" {
		commits = filterCommits(commits, func(fc *Commit) bool {
			return matchesAuthor(fc.Commit, author)
		})
	}
	if since, ok := timeParam(q.Get("since")); ok {
		commits = filterCommits(commits, func(fc *Commit) bool {
			return commitDate(fc.Commit).After(since)
		})
	}
	if until, ok := timeParam(q.Get("until")); ok {
		commits = filterCommits(commits, func(fc *Commit) bool {
			return !commitDate(fc.Commit).After(until)
		})
	}
	if path := q.Get("path"); path != "" {
		commits = filterCommits(commits, func(fc *Commit) bool {
			return touchesPath(fc.Commit, path)
		})
	}

	page, perPage := pageParams(q)

	etag := listETag(len(commits))
	if page == 1 && r.Header.Get("If-None-Match") == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	items, _ := paginate(commits, page, perPage)
	base := baseURL(r)
	payload := make([]*hubex.RepoCommit, 0, len(items))
	for _, fc := range items {
		payload = append(payload, h.commitPayload(base, fc))
	}

	if page == 1 {
		w.Header().Set("ETag", etag)
	}
	setLinkHeader(w, r, base, page, perPage, len(commits))
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *Hub) handleCommit(sha string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fc := h.bySHA[sha]

		accept := r.Header.Get("Accept")
		switch {
		case strings.Contains(accept, ".diff"):
			writeMedia(w, "application/vnd.github.v3.diff; charset=utf-8", fc.Diff)
		case strings.Contains(accept, ".patch"):
			writeMedia(w, "application/vnd.github.v3.patch; charset=utf-8", fc.Patch)
		default:
			h.writeJSON(w, http.StatusOK, h.commitPayload(baseURL(r), fc))
		}
	}
}

func (h *Hub) handleCombinedStatus(sha string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		h.mu.RLock()
		statuses := append([]*hubex.Status(nil), h.statuses[sha]...)
		h.mu.RUnlock()

		base := baseURL(r)
		payload := make([]*hubex.Status, 0, len(statuses))
		for _, s := range statuses {
			payload = append(payload, h.statusPayload(base, sha, s))
		}

		combined := &hubex.CombinedStatus{
			State:      CombineState(statuses),
			SHA:        sha,
			TotalCount: len(statuses),
			Statuses:   payload,
			CommitURL:  base + h.repoPath("commits", sha),
			URL:        base + h.repoPath("commits", sha, "status"),
			Repository: h.repoPayload(base),
		}
		h.writeJSON(w, http.StatusOK, combined)
	}
}

func (h *Hub) handleStatuses(sha string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		h.mu.RLock()
		statuses := append([]*hubex.Status(nil), h.statuses[sha]...)
		h.mu.RUnlock()

		page, perPage := pageParams(r.URL.Query())
		items, _ := paginate(statuses, page, perPage)

		base := baseURL(r)
		payload := make([]*hubex.Status, 0, len(items))
		for _, s := range items {
			payload = append(payload, h.statusPayload(base, sha, s))
		}

		setLinkHeader(w, r, base, page, perPage, len(statuses))
		h.writeJSON(w, http.StatusOK, payload)
	}
}

func (h *Hub) handleComments(sha string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		h.mu.RLock()
		comments := append([]*hubex.RepoComment(nil), h.comments[sha]...)
		h.mu.RUnlock()

		page, perPage := pageParams(r.URL.Query())

		etag := commentsETag(sha, len(comments))
		if page == 1 && r.Header.Get("If-None-Match") == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		items, _ := paginate(comments, page, perPage)
		base := baseURL(r)
		payload := make([]*hubex.RepoComment, 0, len(items))
		for _, c := range items {
			payload = append(payload, h.commentPayload(base, c))
		}

		if page == 1 {
			w.Header().Set("ETag", etag)
		}
		setLinkHeader(w, r, base, page, perPage, len(comments))
		h.writeJSON(w, http.StatusOK, payload)
	}
}

func (h *Hub) handleCompare(baseRef, headRef string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		baseIdx := h.indexOf(baseRef)
		headIdx := h.indexOf(headRef)
		if baseIdx < 0 || headIdx < 0 {
			h.writeNotFound(w)
			return
		}

		// Commits are stored newest first, the comparison reports the
		// range oldest first.
		var included []*Commit
		for i := baseIdx - 1; i >= headIdx; i-- {
			included = append(included, h.fixture.Commits[i])
		}

		status := "identical"
		aheadBy, behindBy := 0, 0
		switch {
		case headIdx < baseIdx:
			status = "ahead"
			aheadBy = baseIdx - headIdx
		case headIdx > baseIdx:
			status = "behind"
			behindBy = headIdx - baseIdx
		}

		accept := r.Header.Get("Accept")
		if strings.Contains(accept, ".diff") || strings.Contains(accept, ".patch") {
			wantPatch := strings.Contains(accept, ".patch")
			parts := make([]string, 0, len(included))
			for _, fc := range included {
				if wantPatch {
					parts = append(parts, fc.Patch)
				} else {
					parts = append(parts, fc.Diff)
				}
			}
			contentType := "application/vnd.github.v3.diff; charset=utf-8"
			if wantPatch {
				contentType = "application/vnd.github.v3.patch; charset=utf-8"
			}
			writeMedia(w, contentType, strings.Join(parts, "\n"))
			return
		}

		base := baseURL(r)
		rng := baseRef + "..." + headRef
		htmlCompare := base + "/" + h.fixture.Owner + "/" + h.fixture.Name + "/compare/" + rng

		commits := make([]*hubex.RepoCommit, 0, len(included))
		files := make([]hubex.CommitFile, 0, len(included))
		for _, fc := range included {
			commits = append(commits, h.commitPayload(base, fc))
			files = append(files, fc.Commit.Files...)
		}

		cmp := &hubex.Comparison{
			URL:             base + h.repoPath("compare", rng),
			HTMLURL:         htmlCompare,
			PermalinkURL:    htmlCompare,
			DiffURL:         htmlCompare + ".diff",
			PatchURL:        htmlCompare + ".patch",
			BaseCommit:      h.commitPayload(base, h.fixture.Commits[baseIdx]),
			MergeBaseCommit: h.commitPayload(base, h.fixture.Commits[max(baseIdx, headIdx)]),
			Status:          status,
			AheadBy:         aheadBy,
			BehindBy:        behindBy,
			TotalCommits:    len(included),
			Commits:         commits,
			Files:           files,
		}
		h.writeJSON(w, http.StatusOK, cmp)
	}
}

// CombineState folds raw statuses into one state the way the combined
// status endpoint does. Only the newest status per context counts, any
// error or failure wins, then any pending. No statuses read as
// pending.
func CombineState(statuses []*hubex.Status) string {
	if len(statuses) == 0 {
		return hubex.StatePending
	}

	seen := make(map[string]bool, len(statuses))
	state := hubex.StateSuccess
	for _, s := range statuses {
		if seen[s.Context] {
			continue
		}
		seen[s.Context] = true

		switch s.State {
		case hubex.StateError, hubex.StateFailure:
			return hubex.StateFailure
		case hubex.StatePending:
			state = hubex.StatePending
		}
	}

	return state
}

func (h *Hub) commitPayload(base string, fc *Commit) *hubex.RepoCommit {
	c := *fc.Commit
	c.URL = base + h.repoPath("commits", c.SHA)
	c.HTMLURL = base + "/" + h.fixture.Owner + "/" + h.fixture.Name + "/commit/" + c.SHA
	c.CommentsURL = c.URL + "/comments"

	if c.Commit != nil {
		h.mu.RLock()
		count := len(h.comments[c.SHA])
		h.mu.RUnlock()

		gc := *c.Commit
		gc.URL = base + h.repoPath("git", "commits", c.SHA)
		gc.CommentCount = count
		c.Commit = &gc
	}

	if len(c.Parents) > 0 {
		parents := make([]hubex.CommitRef, len(c.Parents))
		for i, p := range c.Parents {
			p.URL = base + h.repoPath("commits", p.SHA)
			p.HTMLURL = base + "/" + h.fixture.Owner + "/" + h.fixture.Name + "/commit/" + p.SHA
			parents[i] = p
		}
		c.Parents = parents
	}

	return &c
}

func (h *Hub) statusPayload(base, sha string, s *hubex.Status) *hubex.Status {
	out := *s
	out.URL = base + h.repoPath("statuses", sha)
	return &out
}

func (h *Hub) commentPayload(base string, c *hubex.RepoComment) *hubex.RepoComment {
	out := *c
	id := strconv.FormatInt(out.ID, 10)
	out.URL = base + h.repoPath("comments", id)
	out.HTMLURL = base + "/" + h.fixture.Owner + "/" + h.fixture.Name +
		"/commit/" + out.CommitID + "#commitcomment-" + id
	return &out
}

func (h *Hub) repoPayload(base string) *hubex.ShortRepo {
	return &hubex.ShortRepo{
		ID:       h.fixture.ID,
		NodeID:   h.fixture.NodeID,
		Name:     h.fixture.Name,
		FullName: h.FullName(),
		Private:  h.fixture.Private,
		Owner:    h.fixture.OwnerUser,
		URL:      base + h.repoPath(),
		HTMLURL:  base + "/" + h.fixture.Owner + "/" + h.fixture.Name,
	}
}

func (h *Hub) writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Err(err, "failed to marshal response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

func (h *Hub) writeNotFound(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusNotFound, map[string]string{
		"message":           "Not Found",
		"documentation_url": "https://docs.github.com/rest",
	})
}

func writeMedia(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func paginate[T any](items []T, page, perPage int) ([]T, bool) {
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil, false
	}
	end := min(start+perPage, len(items))
	return items[start:end], end < len(items)
}

func pageParams(q url.Values) (page, perPage int) {
	page = numParam(q.Get("page"), 1)
	perPage = min(numParam(q.Get("per_page"), defaultPerPage), maxPerPage)
	return page, perPage
}

func numParam(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func timeParam(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func filterCommits(commits []*Commit, keep func(*Commit) bool) []*Commit {
	var out []*Commit
	for _, fc := range commits {
		if keep(fc) {
			out = append(out, fc)
		}
	}
	return out
}

func matchesAuthor(c *hubex.RepoCommit, author string) bool {
	if c.Author != nil && c.Author.Login == author {
		return true
	}
	if c.Commit != nil && c.Commit.Author != nil && c.Commit.Author.Email == author {
		return true
	}
	return false
}

func commitDate(c *hubex.RepoCommit) time.Time {
	if c.Commit == nil || c.Commit.Committer == nil {
		return time.Time{}
	}
	return c.Commit.Committer.Date
}

func touchesPath(c *hubex.RepoCommit, path string) bool {
	for _, f := range c.Files {
		if f.Filename == path || strings.HasPrefix(f.Filename, path+"/") {
			return true
		}
	}
	return false
}

func setLinkHeader(w http.ResponseWriter, r *http.Request, base string, page, perPage, total int) {
	last := (total + perPage - 1) / perPage
	if last <= 1 || page >= last {
		return
	}
	next := pageLink(r, base, page+1) + `; rel="next"`
	lastLink := pageLink(r, base, last) + `; rel="last"`
	w.Header().Set("Link", next+", "+lastLink)
}

func pageLink(r *http.Request, base string, page int) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return "<" + base + r.URL.Path + "?" + q.Encode() + ">"
}
