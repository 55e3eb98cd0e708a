package hubex

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/maxbolgarin/errm"
)

const maxPerPage = 100

// IterOptions tune a paginated listing.
type IterOptions struct {
	// Limit caps the number of yielded items, no cap when <= 0.
	Limit int

	// ETag makes the first page request conditional. A 304 answer ends
	// the iteration immediately with zero items and no error.
	ETag string
}

// Iter walks a paginated collection item by item, fetching pages
// lazily as the caller advances. It follows the Link header until the
// listing is exhausted or the limit is reached. An Iter is restartable
// only by creating a new one.
//
// Typical use:
//
//	it := commit.Comments(hubex.CommentsOptions{})
//	for it.Next(ctx) {
//		process(it.Value())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
type Iter[T any] struct {
	client *Client
	key    string // collection URL without paging params, ETag cache key
	url    string // next page to fetch, empty when exhausted
	etag   string
	limit  int

	buf   []T
	pos   int
	cur   T
	count int

	respETag string
	first    bool
	done     bool
	err      error

	attach func(T)
}

func newIter[T any](c *Client, rawURL string, opts IterOptions, attach func(T)) *Iter[T] {
	perPage := maxPerPage
	if opts.Limit > 0 && opts.Limit < maxPerPage {
		perPage = opts.Limit
	}

	return &Iter[T]{
		client: c,
		key:    rawURL,
		url:    withQueryParams(rawURL, map[string]string{"per_page": strconv.Itoa(perPage)}),
		etag:   opts.ETag,
		limit:  opts.Limit,
		first:  true,
		attach: attach,
	}
}

// failedIter yields nothing and reports err.
func failedIter[T any](err error) *Iter[T] {
	return &Iter[T]{err: err, done: true}
}

// Next advances the iterator, fetching the next page when the current
// one is drained. It returns false when the listing is exhausted, the
// limit is reached or an error occurred.
func (it *Iter[T]) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if it.limit > 0 && it.count >= it.limit {
		return false
	}

	for it.pos >= len(it.buf) {
		if it.done || it.url == "" {
			return false
		}
		if !it.fetch(ctx) {
			return false
		}
	}

	it.cur = it.buf[it.pos]
	it.pos++
	it.count++

	return true
}

// Value returns the item produced by the last successful Next call.
func (it *Iter[T]) Value() T {
	return it.cur
}

// Err returns the error that stopped the iteration, if any.
func (it *Iter[T]) Err() error {
	return it.err
}

// ETag returns the entity tag of the first fetched page. It can be
// passed to a later listing to skip unchanged collections.
func (it *Iter[T]) ETag() string {
	return it.respETag
}

// All drains the iterator and returns every remaining item.
func (it *Iter[T]) All(ctx context.Context) ([]T, error) {
	var out []T
	for it.Next(ctx) {
		out = append(out, it.Value())
	}
	return out, it.Err()
}

// fetch loads the next page into the buffer.
func (it *Iter[T]) fetch(ctx context.Context) bool {
	var headers map[string]string
	if it.first && it.etag != "" {
		headers = map[string]string{"If-None-Match": it.etag}
	}

	resp, err := it.client.raw(ctx, it.url, headers)
	if err != nil {
		it.err = err
		it.done = true
		return false
	}

	if it.first && resp.StatusCode() == http.StatusNotModified {
		it.client.log.Debug("collection not modified", "url", it.key)
		it.respETag = it.etag
		it.done = true
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		it.err = newResponseError(resp)
		it.done = true
		return false
	}

	if it.first {
		it.respETag = resp.Header().Get("ETag")
		it.client.rememberETag(it.key, it.respETag)
		it.first = false
	}

	var page []T
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		it.err = errm.Wrap(err, "failed to decode page")
		it.done = true
		return false
	}
	if it.attach != nil {
		for _, item := range page {
			it.attach(item)
		}
	}

	it.buf = page
	it.pos = 0

	it.url = nextPageURL(resp.Header().Get("Link"))
	if it.url == "" {
		it.done = true
	}

	return true
}

// nextPageURL extracts the rel="next" target from a Link header.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		sections := strings.Split(part, ";")
		if len(sections) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(sections[0]), "<>")
		for _, param := range sections[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
