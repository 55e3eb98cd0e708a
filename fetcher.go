package hubex

import (
	"context"
	"sync"
	"time"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/panjf2000/ants/v2"
)

const defaultPoolSize = 4

// Fetcher runs bulk commit operations over a bounded worker pool.
type Fetcher struct {
	client *Client
	pool   *ants.Pool
	log    logze.Logger
}

// NewFetcher creates a fetcher with the given number of workers,
// defaultPoolSize when workers is not positive.
func NewFetcher(client *Client, workers int) (*Fetcher, error) {
	if client == nil {
		return nil, errm.New("client is required")
	}

	pool, err := ants.NewPool(lang.Check(workers, defaultPoolSize))
	if err != nil {
		return nil, errm.Wrap(err, "failed to create ants pool")
	}

	return &Fetcher{
		client: client,
		pool:   pool,
		log:    logze.With("component", "fetcher"),
	}, nil
}

// Close releases the worker pool.
func (f *Fetcher) Close() {
	f.pool.Release()
}

// FetchCommits fetches commit details for every ref concurrently.
// The result keeps the order of refs, failed entries stay nil and the
// first error is returned after all fetches finish.
func (f *Fetcher) FetchCommits(ctx context.Context, repo *Repo, refs []string) ([]*RepoCommit, error) {
	results := make([]*RepoCommit, len(refs))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, ref := range refs {
		wg.Add(1)
		err := f.pool.Submit(func() {
			defer wg.Done()

			commit, err := repo.Commit(ctx, ref)
			if err != nil {
				f.log.Error("failed to fetch commit", "ref", ref, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[i] = commit
		})
		if err != nil {
			wg.Done()
			return nil, errm.Wrap(err, "failed to submit fetch task")
		}
	}
	wg.Wait()

	return results, firstErr
}

// CommitBundle packs a commit together with its fetched sub-resources.
type CommitBundle struct {
	Commit   *RepoCommit
	Diff     []byte
	Status   *CombinedStatus
	Comments []*RepoComment
}

// Enrich loads the diff, combined status and comments of a commit in
// parallel and packs them into a bundle.
func (f *Fetcher) Enrich(ctx context.Context, commit *RepoCommit) (*CommitBundle, error) {
	bundle := &CommitBundle{Commit: commit}

	waiterSet := abstract.NewWaiterSet(f.log)
	waiterSet.Add(ctx, func(ctx context.Context) error {
		diff, err := commit.Diff(ctx)
		if err != nil {
			return err
		}
		bundle.Diff = diff
		return nil
	})
	waiterSet.Add(ctx, func(ctx context.Context) error {
		status, err := commit.Status(ctx)
		if err != nil {
			return err
		}
		bundle.Status = status
		return nil
	})
	waiterSet.Add(ctx, func(ctx context.Context) error {
		comments, err := commit.Comments(CommentsOptions{}).All(ctx)
		if err != nil {
			return err
		}
		bundle.Comments = comments
		return nil
	})

	err := waiterSet.Await(ctx)
	if err != nil {
		return nil, erro.Wrap(err, "failed to enrich commit")
	}

	return bundle, nil
}

// PollComments invokes callback with batches of new comments on the
// commit. Conditional requests keep unchanged polls to a single cheap
// round trip.
func (f *Fetcher) PollComments(ctx context.Context, commit *RepoCommit, interval time.Duration, callback func([]*RepoComment)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		etag string
		seen int
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			it := commit.Comments(CommentsOptions{ETag: etag})
			comments, err := it.All(ctx)
			if err != nil {
				f.log.Error("failed to fetch commit comments", "error", err)
				continue
			}
			etag = lang.Check(it.ETag(), etag)

			if len(comments) > seen {
				f.log.Debug("new commit comments", "count", len(comments)-seen)
				callback(comments[seen:])
				seen = len(comments)
			}
		}
	}
}
