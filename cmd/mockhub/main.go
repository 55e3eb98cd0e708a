package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/hubex"
	"github.com/maxbolgarin/hubex/internal/fakehub"
	"github.com/maxbolgarin/hubex/internal/server"
	"github.com/maxbolgarin/logze/v2"
)

var (
	Version, Branch, Commit, BuildDate string
)

var (
	address  = kingpin.Flag("addr", "address to serve on").Short('a').Default("127.0.0.1:8217").String()
	activity = kingpin.Flag("activity", "post a generated comment on the head commit at this interval, 0 disables").Duration()
)

func main() {
	kingpin.Parse()

	var err error
	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
	defer ctx.Shutdown()
	err = run(ctx)
	if err != nil {
		logze.DefaultPtr().Error("cannot run", "error", err)
	}
}

func run(ctx contem.Context) error {
	logze.Init(logze.C().WithConsole().WithLevel(logze.LevelDebug))
	log := logze.With("component", "mockhub")

	hub, err := fakehub.New(fakehub.DefaultFixture(), log)
	if err != nil {
		return erro.Wrap(err, "new hub")
	}

	srv, err := server.New(server.Config{Address: *address}, hub)
	if err != nil {
		return erro.Wrap(err, "new server")
	}
	ctx.Add(srv.Stop)

	if *activity > 0 {
		go postComments(ctx, hub, *activity, log)
	}

	if err := srv.Start(ctx); err != nil && !errm.Is(err, http.ErrServerClosed) {
		return erro.Wrap(err, "start server")
	}

	<-ctx.Done()
	return nil
}

// postComments simulates review activity on the head commit so
// watchers pointed at the hub have something to observe.
func postComments(ctx context.Context, hub *fakehub.Hub, interval time.Duration, log logze.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 1; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := hub.AddComment(hub.HeadSHA(), &hubex.RepoComment{
				Body: fmt.Sprintf("automated review note %d", i),
				User: &hubex.User{Login: "mockhub-bot", Type: "Bot"},
			})
			if err != nil {
				log.Err(err, "failed to post comment")
			}
		}
	}
}
