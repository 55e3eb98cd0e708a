package fakehub

import (
	"strings"
	"time"

	"github.com/maxbolgarin/hubex"
)

// Fixture is the dataset a Hub serves, one repository together with
// its commits, raw representations, statuses and comments.
type Fixture struct {
	Owner   string
	Name    string
	ID      int64
	NodeID  string
	Private bool

	// OwnerUser is the account nested into repository payloads.
	OwnerUser *hubex.User

	// Branches maps ref names to commit SHAs.
	Branches map[string]string

	// Commits are ordered newest first, the way the listing endpoint
	// returns them.
	Commits []*Commit
}

// Commit bundles one served commit with its media representations and
// sub resources. URL fields of the nested objects are filled per
// request from the serving host, leave them empty here.
type Commit struct {
	Commit   *hubex.RepoCommit
	Diff     string
	Patch    string
	Statuses []*hubex.Status
	Comments []*hubex.RepoComment
}

var (
	fixtureOstap = &hubex.User{
		Login:     "ostap",
		ID:        3170,
		NodeID:    "U_kgDOAAAMYg",
		AvatarURL: "https://avatars.example.com/u/3170",
		HTMLURL:   "https://github.com/ostap",
		Type:      "User",
	}
	fixtureKira = &hubex.User{
		Login:     "kira",
		ID:        3171,
		NodeID:    "U_kgDOAAAMYw",
		AvatarURL: "https://avatars.example.com/u/3171",
		HTMLURL:   "https://github.com/kira",
		Type:      "User",
	}
)

const (
	fixtureHeadSHA = "a1f8d3e94c07b215f6d0c8a9e4b723f1d5a6c0b9"
	fixtureMidSHA  = "7c42e9b0d1f8a3c6e5b2d794a0f1c8e3b6d25a41"
	fixtureRootSHA = "3b9d0f7a2e85c4b1d6a3f0e9c7b2d8f4a1e6c530"
)

const headDiff = `diff --git a/internal/ledger/export.go b/internal/ledger/export.go
index 83f2a1c..b40e9d7 100644
--- a/internal/ledger/export.go
+++ b/internal/ledger/export.go
@@ -54,9 +54,11 @@ func (e *Exporter) Export(ctx context.Context) error {
-	rows, err := e.store.AllRows(ctx)
-	if err != nil {
-		return err
+	for {
+		batch, err := e.store.NextBatch(ctx, e.batchSize)
+		if err != nil {
+			return err
+		}
+		if len(batch) == 0 {
+			return nil
+		}
 	}
`

const midDiff = `diff --git a/internal/fx/convert.go b/internal/fx/convert.go
index 1d9c7e2..f3a08b5 100644
--- a/internal/fx/convert.go
+++ b/internal/fx/convert.go
@@ -31,7 +31,7 @@ func (c *Converter) Refund(amount Money, rate Rate) Money {
-	converted := amount.Mul(rate.Inverse())
+	converted := amount.Div(rate)
 	return converted.Round(amount.Currency)
 }
`

const rootDiff = `diff --git a/internal/invoice/total.go b/internal/invoice/total.go
index 0000000..9e1d4c8 100644
--- a/internal/invoice/total.go
+++ b/internal/invoice/total.go
@@ -18,6 +18,9 @@ func (i *Invoice) Total() Money {
 	sum := i.subtotal().Add(i.tax())
+	if i.Currency == "JPY" {
+		return sum.RoundToUnit()
+	}
 	return sum
 }
`

// DefaultFixture returns a small billing repository with three commits
// on a linear history and two branches. The head commit carries every
// kind of sub resource so one repository covers the whole API surface.
func DefaultFixture() *Fixture {
	var (
		headDate = time.Date(2025, time.July, 21, 14, 32, 5, 0, time.UTC)
		midDate  = time.Date(2025, time.July, 19, 9, 12, 40, 0, time.UTC)
		rootDate = time.Date(2025, time.July, 15, 11, 3, 22, 0, time.UTC)
	)

	head := &Commit{
		Commit: &hubex.RepoCommit{
			SHA:    fixtureHeadSHA,
			NodeID: "C_kwDOH0TqWdoAKGExZjhkM2U5",
			Commit: &hubex.GitCommit{
				Author:       identity(fixtureOstap, "Ostap Linden", headDate),
				Committer:    identity(fixtureOstap, "Ostap Linden", headDate.Add(2*time.Minute)),
				Message:      "Stream ledger exports in batches\n\nExporting everything in one query ran out of memory on large\nledgers, walk the store in bounded batches instead.",
				Tree:         hubex.CommitRef{SHA: "5f0a8c2d7e91b4a6c3d8f1e0b9a7c5d2e4f6a8b0"},
				CommentCount: 2,
				Verification: &hubex.CommitVerification{Verified: false, Reason: "unsigned"},
			},
			Author:    fixtureOstap,
			Committer: fixtureOstap,
			Parents:   []hubex.CommitRef{{SHA: fixtureMidSHA}},
			Stats:     hubex.CommitStats{Additions: 120, Deletions: 44, Total: 164},
			Files: []hubex.CommitFile{
				{
					SHA:       "b40e9d7f2c81a5e3d6b0c9f4a7e2d5b8c1f4a7e0",
					Filename:  "internal/ledger/export.go",
					Status:    "modified",
					Additions: 98,
					Deletions: 40,
					Changes:   138,
				},
				{
					SHA:       "c51f0e8a3d92b6f4e7c1d0a5b8f3e6c9d2a5b8f1",
					Filename:  "internal/ledger/export_test.go",
					Status:    "modified",
					Additions: 22,
					Deletions: 4,
					Changes:   26,
				},
			},
		},
		Diff: headDiff,
		Statuses: []*hubex.Status{
			{
				ID:          901,
				NodeID:      "SC_kwDOH0TqWdoAAAAAAAADhQ",
				State:       hubex.StateSuccess,
				Description: "all 412 tests passed",
				TargetURL:   "https://ci.example.com/builds/5117",
				Context:     "ci/test",
				Creator:     fixtureKira,
				CreatedAt:   headDate.Add(10 * time.Minute),
				UpdatedAt:   headDate.Add(10 * time.Minute),
			},
			{
				ID:          902,
				NodeID:      "SC_kwDOH0TqWdoAAAAAAAADhg",
				State:       hubex.StateSuccess,
				Description: "no issues found",
				TargetURL:   "https://ci.example.com/lint/5117",
				Context:     "ci/lint",
				Creator:     fixtureKira,
				CreatedAt:   headDate.Add(8 * time.Minute),
				UpdatedAt:   headDate.Add(8 * time.Minute),
			},
		},
		Comments: []*hubex.RepoComment{
			{
				ID:                2001,
				NodeID:            "CC_kwDOH0TqWdoAAAAAAB9B",
				Body:              "Should the batch size be configurable?",
				User:              fixtureKira,
				Path:              "internal/ledger/export.go",
				Position:          12,
				Line:              57,
				AuthorAssociation: "MEMBER",
				CreatedAt:         headDate.Add(30 * time.Minute),
				UpdatedAt:         headDate.Add(30 * time.Minute),
			},
			{
				ID:                2002,
				NodeID:            "CC_kwDOH0TqWdoAAAAAAB9C",
				Body:              "Good point, made it an option.",
				User:              fixtureOstap,
				AuthorAssociation: "OWNER",
				CreatedAt:         headDate.Add(45 * time.Minute),
				UpdatedAt:         headDate.Add(45 * time.Minute),
			},
		},
	}

	mid := &Commit{
		Commit: &hubex.RepoCommit{
			SHA:    fixtureMidSHA,
			NodeID: "C_kwDOH0TqWdoAKDdjNDJlOWIw",
			Commit: &hubex.GitCommit{
				Author:       identity(fixtureKira, "Kira Novak", midDate),
				Committer:    identity(fixtureKira, "Kira Novak", midDate),
				Message:      "Fix refund drift in currency conversion",
				Tree:         hubex.CommitRef{SHA: "6a1b9d3e8f02c5b7d4e1a0f9c6b3d8e5f2a7c4b1"},
				CommentCount: 1,
				Verification: &hubex.CommitVerification{Verified: true, Reason: "valid"},
			},
			Author:    fixtureKira,
			Committer: fixtureKira,
			Parents:   []hubex.CommitRef{{SHA: fixtureRootSHA}},
			Stats:     hubex.CommitStats{Additions: 12, Deletions: 7, Total: 19},
			Files: []hubex.CommitFile{
				{
					SHA:       "f3a08b5c2d91e4f7a0b3c6d9e2f5a8b1c4d7e0f3",
					Filename:  "internal/fx/convert.go",
					Status:    "modified",
					Additions: 12,
					Deletions: 7,
					Changes:   19,
				},
			},
		},
		Diff: midDiff,
		Statuses: []*hubex.Status{
			{
				ID:          911,
				NodeID:      "SC_kwDOH0TqWdoAAAAAAAADjw",
				State:       hubex.StateFailure,
				Description: "2 tests failed",
				TargetURL:   "https://ci.example.com/builds/5102",
				Context:     "ci/test",
				Creator:     fixtureKira,
				CreatedAt:   midDate.Add(9 * time.Minute),
				UpdatedAt:   midDate.Add(9 * time.Minute),
			},
			{
				ID:          912,
				NodeID:      "SC_kwDOH0TqWdoAAAAAAAADkA",
				State:       hubex.StateSuccess,
				Description: "no issues found",
				TargetURL:   "https://ci.example.com/lint/5102",
				Context:     "ci/lint",
				Creator:     fixtureKira,
				CreatedAt:   midDate.Add(7 * time.Minute),
				UpdatedAt:   midDate.Add(7 * time.Minute),
			},
		},
		Comments: []*hubex.RepoComment{
			{
				ID:                2003,
				NodeID:            "CC_kwDOH0TqWdoAAAAAAB9D",
				Body:              "Nice catch.",
				User:              fixtureOstap,
				AuthorAssociation: "OWNER",
				CreatedAt:         midDate.Add(time.Hour),
				UpdatedAt:         midDate.Add(time.Hour),
			},
		},
	}

	root := &Commit{
		Commit: &hubex.RepoCommit{
			SHA:    fixtureRootSHA,
			NodeID: "C_kwDOH0TqWdoAKDNiOWQwZjdh",
			Commit: &hubex.GitCommit{
				Author:       identity(fixtureOstap, "Ostap Linden", rootDate),
				Committer:    identity(fixtureOstap, "Ostap Linden", rootDate),
				Message:      "Add invoice rounding for JPY totals",
				Tree:         hubex.CommitRef{SHA: "9e1d4c8b5a20f3e6d9c2b5f8a1e4d7c0b3f6a9e2"},
				Verification: &hubex.CommitVerification{Verified: false, Reason: "unsigned"},
			},
			Author:    fixtureOstap,
			Committer: fixtureOstap,
			Stats:     hubex.CommitStats{Additions: 9, Deletions: 0, Total: 9},
			Files: []hubex.CommitFile{
				{
					SHA:       "9e1d4c8a7b3f0e5d2c9b6a3f8e1d4c7b0a5f2e9d",
					Filename:  "internal/invoice/total.go",
					Status:    "added",
					Additions: 9,
					Changes:   9,
				},
			},
		},
		Diff: rootDiff,
		Statuses: []*hubex.Status{
			{
				ID:          921,
				NodeID:      "SC_kwDOH0TqWdoAAAAAAAADmQ",
				State:       hubex.StatePending,
				Description: "deploying to staging",
				TargetURL:   "https://deploy.example.com/runs/311",
				Context:     "deploy/staging",
				Creator:     fixtureOstap,
				CreatedAt:   rootDate.Add(15 * time.Minute),
				UpdatedAt:   rootDate.Add(15 * time.Minute),
			},
		},
	}

	for _, fc := range []*Commit{head, mid, root} {
		fc.Patch = mailboxPatch(fc.Commit, fc.Diff)
		for _, comment := range fc.Comments {
			comment.CommitID = fc.Commit.SHA
		}
	}

	return &Fixture{
		Owner:     "acme",
		Name:      "billing",
		ID:        512764,
		NodeID:    "R_kgDOH0TqWQ",
		OwnerUser: fixtureOstap,
		Branches: map[string]string{
			"main":   fixtureHeadSHA,
			"stable": fixtureMidSHA,
		},
		Commits: []*Commit{head, mid, root},
	}
}

func identity(u *hubex.User, name string, date time.Time) *hubex.CommitIdentity {
	return &hubex.CommitIdentity{
		Name:  name,
		Email: u.Login + "@acme.dev",
		Date:  date,
	}
}

// mailboxPatch renders the commit in git format-patch mailbox form.
func mailboxPatch(c *hubex.RepoCommit, diff string) string {
	subject := c.Message()
	if nl := strings.IndexByte(subject, '\n'); nl >= 0 {
		subject = subject[:nl]
	}

	author := "unknown <unknown@localhost>"
	date := ""
	if c.Commit != nil && c.Commit.Author != nil {
		author = c.Commit.Author.Name + " <" + c.Commit.Author.Email + ">"
		date = c.Commit.Author.Date.Format(time.RFC1123Z)
	}

	return "From " + c.SHA + " Mon Sep 17 00:00:00 2001\n" +
		"From: " + author + "\n" +
		"Date: " + date + "\n" +
		"Subject: [PATCH] " + subject + "\n" +
		"\n---\n" + diff
}
