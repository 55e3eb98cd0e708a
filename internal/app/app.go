// Package app wires the hubex client behind the CLI commands.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/hubex"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

// App holds the client and the fetcher used by every command.
type App struct {
	client  *hubex.Client
	fetcher *hubex.Fetcher

	cfg Config
	log logze.Logger
}

// New creates the application and registers its shutdown hooks.
func New(ctx contem.Context, cfg Config) (*App, error) {
	a := &App{
		cfg: cfg,
		log: logze.With("component", "app"),
	}

	if err := a.init(ctx, cfg); err != nil {
		return nil, errm.Wrap(err, "failed to initialize app")
	}

	return a, nil
}

func (a *App) init(ctx contem.Context, cfg Config) (err error) {
	a.client, err = hubex.New(cfg.GitHub)
	if err != nil {
		return errm.Wrap(err, "failed to create client")
	}

	a.fetcher, err = hubex.NewFetcher(a.client, cfg.Fetch.Workers)
	if err != nil {
		return errm.Wrap(err, "failed to create fetcher")
	}
	ctx.Add(func(context.Context) error {
		a.fetcher.Close()
		return nil
	})

	return nil
}

// RunList prints commits of the repository one line each, newest
// first, streaming pages as the listing advances.
func (a *App) RunList(ctx context.Context, repoName string, opts hubex.CommitListOptions) error {
	repo, err := a.repo(repoName)
	if err != nil {
		return err
	}

	it := repo.Commits(opts)
	count := 0
	for it.Next(ctx) {
		fmt.Println(formatCommitLine(it.Value()))
		count++
	}
	if err := it.Err(); err != nil {
		return errm.Wrap(err, "failed to list commits")
	}

	a.log.Debug("commits listed", "repo", repoName, "count", count)
	return nil
}

// RunShow prints one commit. With full it also loads the diff, the
// combined status and the comments in parallel.
func (a *App) RunShow(ctx context.Context, repoName, ref string, full bool) error {
	commit, err := a.commit(ctx, repoName, ref)
	if err != nil {
		return err
	}

	printCommit(commit)

	if !full {
		return nil
	}

	bundle, err := a.fetcher.Enrich(ctx, commit)
	if err != nil {
		return errm.Wrap(err, "failed to enrich commit")
	}
	printBundle(bundle)

	return nil
}

// RunDiff streams the raw diff (or patch) of a commit to stdout.
func (a *App) RunDiff(ctx context.Context, repoName, ref string, patch bool) error {
	commit, err := a.commit(ctx, repoName, ref)
	if err != nil {
		return err
	}

	var body []byte
	if patch {
		body, err = commit.Patch(ctx)
	} else {
		body, err = commit.Diff(ctx)
	}
	if err != nil {
		return errm.Wrap(err, "failed to fetch commit media")
	}
	if len(body) == 0 {
		a.log.Warn("commit has no content to show", "ref", ref)
		return nil
	}

	_, err = os.Stdout.Write(body)
	return err
}

// RunStatus prints the combined status of a commit with one row per
// check context.
func (a *App) RunStatus(ctx context.Context, repoName, ref string) error {
	commit, err := a.commit(ctx, repoName, ref)
	if err != nil {
		return err
	}

	combined, err := commit.Status(ctx)
	if err != nil {
		return errm.Wrap(err, "failed to get combined status")
	}
	if combined == nil {
		fmt.Println("no statuses reported")
		return nil
	}

	fmt.Printf("%s  %s (%d checks)\n", combined.State, commit, combined.TotalCount)
	for _, s := range combined.Statuses {
		fmt.Printf("  %-8s %-20s %s\n", s.State, s.Context, s.Description)
	}

	return nil
}

// RunCompare prints how head relates to base and lists the commits in
// between, oldest first.
func (a *App) RunCompare(ctx context.Context, repoName, base, head string) error {
	repo, err := a.repo(repoName)
	if err != nil {
		return err
	}

	cmp, err := repo.Compare(ctx, base, head)
	if err != nil {
		return err
	}

	fmt.Printf("%s...%s: %s, ahead %d, behind %d\n", base, head, cmp.Status, cmp.AheadBy, cmp.BehindBy)
	for _, commit := range cmp.Commits {
		fmt.Println(formatCommitLine(commit))
	}

	return nil
}

// RunFetch loads several commits concurrently and prints each one.
// Failed refs are reported but do not stop the rest.
func (a *App) RunFetch(ctx context.Context, repoName string, refs []string) error {
	repo, err := a.repo(repoName)
	if err != nil {
		return err
	}

	commits, err := a.fetcher.FetchCommits(ctx, repo, refs)
	if err != nil {
		a.log.Warn("some commits failed to fetch", "error", err)
	}
	for i, commit := range commits {
		if commit == nil {
			fmt.Printf("%s: not found\n", refs[i])
			continue
		}
		fmt.Println(formatCommitLine(commit))
	}

	return nil
}

// RunWatch polls a commit for new comments and prints every batch as
// it arrives, until the context is cancelled.
func (a *App) RunWatch(ctx context.Context, repoName, ref string) error {
	commit, err := a.commit(ctx, repoName, ref)
	if err != nil {
		return err
	}

	a.log.Info("watching commit for new comments",
		"commit", commit.String(),
		"interval", a.cfg.Fetch.PollInterval,
	)

	err = a.fetcher.PollComments(ctx, commit, a.cfg.Fetch.PollInterval, func(batch []*hubex.RepoComment) {
		for _, comment := range batch {
			fmt.Println(formatComment(comment))
		}
	})
	if errm.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (a *App) repo(name string) (*hubex.Repo, error) {
	owner, repo, err := parseRepo(name)
	if err != nil {
		return nil, err
	}
	return a.client.Repo(owner, repo), nil
}

func (a *App) commit(ctx context.Context, repoName, ref string) (*hubex.RepoCommit, error) {
	repo, err := a.repo(repoName)
	if err != nil {
		return nil, err
	}
	return repo.Commit(ctx, ref)
}

func parseRepo(full string) (string, string, error) {
	owner, name, ok := strings.Cut(full, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errm.New("repository must be in owner/name form: " + full)
	}
	return owner, name, nil
}

func formatCommitLine(c *hubex.RepoCommit) string {
	date := ""
	if c.Commit != nil && c.Commit.Author != nil {
		date = c.Commit.Author.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s  %s  %-12s %s",
		lang.TruncateString(c.SHA, 7), date, authorName(c), subject(c))
}

func formatComment(c *hubex.RepoComment) string {
	author := "unknown"
	if c.User != nil {
		author = c.User.Login
	}
	when := c.CreatedAt.Format("2006-01-02 15:04")
	if c.Path != "" {
		return fmt.Sprintf("%s  %s  %s:%d  %s", when, author, c.Path, c.Line, c.Body)
	}
	return fmt.Sprintf("%s  %s  %s", when, author, c.Body)
}

func authorName(c *hubex.RepoCommit) string {
	if c.Author != nil && c.Author.Login != "" {
		return c.Author.Login
	}
	if c.Commit != nil && c.Commit.Author != nil {
		return c.Commit.Author.Name
	}
	return "unknown"
}

func subject(c *hubex.RepoCommit) string {
	msg := c.Message()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

func printCommit(c *hubex.RepoCommit) {
	fmt.Println(c)
	if c.Commit != nil && c.Commit.Author != nil {
		fmt.Printf("Author: %s <%s>\n", c.Commit.Author.Name, c.Commit.Author.Email)
		fmt.Printf("Date:   %s\n", c.Commit.Author.Date.Format(time.RFC1123))
	}
	fmt.Println()
	fmt.Println("    " + strings.ReplaceAll(c.Message(), "\n", "\n    "))
	if c.Stats.Total > 0 {
		fmt.Printf("\n %d files changed, %d insertions(+), %d deletions(-)\n",
			len(c.Files), c.Stats.Additions, c.Stats.Deletions)
	}
}

func printBundle(b *hubex.CommitBundle) {
	if b.Status != nil {
		fmt.Printf("\nStatus: %s (%d checks)\n", b.Status.State, b.Status.TotalCount)
		for _, s := range b.Status.Statuses {
			fmt.Printf("  %-8s %-20s %s\n", s.State, s.Context, s.Description)
		}
	}
	if len(b.Comments) > 0 {
		fmt.Printf("\nComments (%d):\n", len(b.Comments))
		for _, comment := range b.Comments {
			fmt.Println("  " + formatComment(comment))
		}
	}
	if len(b.Diff) > 0 {
		fmt.Println()
		fmt.Println(string(b.Diff))
	}
}
