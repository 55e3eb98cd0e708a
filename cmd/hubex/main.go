package main

import (
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/hubex"
	"github.com/maxbolgarin/hubex/internal/app"
	"github.com/maxbolgarin/logze/v2"
)

var (
	Version, Branch, Commit, BuildDate string
)

var (
	configPath = kingpin.Flag("config", "path to config file").Short('c').String()
	verbose    = kingpin.Flag("verbose", "enable debug logging").Short('v').Bool()

	listCmd       = kingpin.Command("list", "list commits of a repository")
	listRepo      = listCmd.Arg("repo", "repository in owner/name form").Required().String()
	listBranch    = listCmd.Flag("branch", "branch, tag or SHA to start from").Short('b').String()
	listPath      = listCmd.Flag("path", "only commits touching this path").String()
	listAuthor    = listCmd.Flag("author", "filter by author login or email").String()
	listCommitter = listCmd.Flag("committer", "filter by committer login or email").String()
	listSince     = listCmd.Flag("since", "only commits after this time, RFC3339 or YYYY-MM-DD").String()
	listUntil     = listCmd.Flag("until", "only commits before this time, RFC3339 or YYYY-MM-DD").String()
	listNumber    = listCmd.Flag("number", "maximum commits to print").Short('n').Default("30").Int()

	showCmd  = kingpin.Command("show", "show one commit")
	showRepo = showCmd.Arg("repo", "repository in owner/name form").Required().String()
	showRef  = showCmd.Arg("ref", "commit SHA, branch or tag").Required().String()
	showFull = showCmd.Flag("full", "also fetch diff, status and comments").Bool()

	diffCmd   = kingpin.Command("diff", "print the diff of a commit")
	diffRepo  = diffCmd.Arg("repo", "repository in owner/name form").Required().String()
	diffRef   = diffCmd.Arg("ref", "commit SHA, branch or tag").Required().String()
	diffPatch = diffCmd.Flag("patch", "print patch (mailbox) format instead").Bool()

	statusCmd  = kingpin.Command("status", "print the combined status of a commit")
	statusRepo = statusCmd.Arg("repo", "repository in owner/name form").Required().String()
	statusRef  = statusCmd.Arg("ref", "commit SHA, branch or tag").Required().String()

	compareCmd  = kingpin.Command("compare", "compare two refs")
	compareRepo = compareCmd.Arg("repo", "repository in owner/name form").Required().String()
	compareBase = compareCmd.Arg("base", "base ref").Required().String()
	compareHead = compareCmd.Arg("head", "head ref").Required().String()

	fetchCmd  = kingpin.Command("fetch", "fetch several commits concurrently")
	fetchRepo = fetchCmd.Arg("repo", "repository in owner/name form").Required().String()
	fetchRefs = fetchCmd.Arg("refs", "commit SHAs, branches or tags").Required().Strings()

	watchCmd  = kingpin.Command("watch", "watch a commit for new comments")
	watchRepo = watchCmd.Arg("repo", "repository in owner/name form").Required().String()
	watchRef  = watchCmd.Arg("ref", "commit SHA, branch or tag").Required().String()
)

func main() {
	cmd := kingpin.Parse()

	var err error
	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
	defer ctx.Shutdown()
	err = run(ctx, cmd)
	if err != nil {
		logze.DefaultPtr().Error("cannot run", "error", err)
	}
}

func run(ctx contem.Context, cmd string) error {
	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return erro.Wrap(err, "load config")
	}
	lcfg := logze.C().WithConsole()
	if *verbose {
		lcfg = lcfg.WithLevel(logze.LevelDebug)
	}
	logze.Init(lcfg)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return erro.Wrap(err, "new app")
	}

	switch cmd {
	case listCmd.FullCommand():
		opts, err := listOptions()
		if err != nil {
			return erro.Wrap(err, "list options")
		}
		return a.RunList(ctx, *listRepo, opts)

	case showCmd.FullCommand():
		return a.RunShow(ctx, *showRepo, *showRef, *showFull)

	case diffCmd.FullCommand():
		return a.RunDiff(ctx, *diffRepo, *diffRef, *diffPatch)

	case statusCmd.FullCommand():
		return a.RunStatus(ctx, *statusRepo, *statusRef)

	case compareCmd.FullCommand():
		return a.RunCompare(ctx, *compareRepo, *compareBase, *compareHead)

	case fetchCmd.FullCommand():
		return a.RunFetch(ctx, *fetchRepo, *fetchRefs)

	case watchCmd.FullCommand():
		return a.RunWatch(ctx, *watchRepo, *watchRef)
	}

	return nil
}

func listOptions() (hubex.CommitListOptions, error) {
	since, err := parseTimeFlag(*listSince)
	if err != nil {
		return hubex.CommitListOptions{}, err
	}
	until, err := parseTimeFlag(*listUntil)
	if err != nil {
		return hubex.CommitListOptions{}, err
	}

	return hubex.CommitListOptions{
		SHA:       *listBranch,
		Path:      *listPath,
		Author:    *listAuthor,
		Committer: *listCommitter,
		Since:     since,
		Until:     until,
		Number:    *listNumber,
	}, nil
}

func parseTimeFlag(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errm.New("cannot parse time: " + raw)
}
