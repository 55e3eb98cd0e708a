// Package hubex is a client for the GitHub repository commits REST API.
// It exposes commits, their statuses and comments as typed objects with
// lazy paginated listings and conditional (ETag based) fetching.
package hubex

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"golang.org/x/oauth2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultBaseURL points at the public GitHub API.
	DefaultBaseURL = "https://api.github.com"

	defaultUserAgent = "hubex/1.0"
	defaultTimeout   = 30 * time.Second

	mediaTypeJSON  = "application/vnd.github+json"
	mediaTypeDiff  = "application/vnd.github.diff"
	mediaTypePatch = "application/vnd.github.patch"

	apiVersion = "2022-11-28"
)

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the API root, public GitHub if empty.
	BaseURL string `yaml:"base_url" env:"GITHUB_BASE_URL"`

	// Token authenticates requests when set, anonymous otherwise.
	Token string `yaml:"token" env:"GITHUB_TOKEN"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent" env:"GITHUB_USER_AGENT"`

	// ProxyAddress routes API traffic through an HTTP proxy.
	ProxyAddress string `yaml:"proxy_address" env:"GITHUB_PROXY_ADDRESS"`

	// RequestTimeout caps a single round trip, 30 seconds if zero.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"GITHUB_REQUEST_TIMEOUT"`

	// TokenSource supplies OAuth2 tokens and takes precedence over Token.
	TokenSource oauth2.TokenSource `yaml:"-" env:"-"`
}

// PrepareAndValidate fills defaults and checks the config.
func (cfg *Config) PrepareAndValidate() error {
	cfg.BaseURL = lang.Check(cfg.BaseURL, DefaultBaseURL)
	cfg.UserAgent = lang.Check(cfg.UserAgent, defaultUserAgent)
	cfg.RequestTimeout = lang.Check(cfg.RequestTimeout, defaultTimeout)

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return errm.Wrap(err, "invalid base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errm.New("base URL must use http or https scheme")
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return nil
}

// Client talks to the GitHub REST API.
type Client struct {
	http  *cliex.HTTP
	log   logze.Logger
	etags *abstract.SafeMap[string, string]
}

// New creates a Client ready to query the GitHub API.
func New(cfg Config) (*Client, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "failed to prepare and validate config")
	}
	log := logze.With("component", "hubex")

	cli, err := cliex.NewWithConfig(cliex.Config{
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		ProxyAddress:   cfg.ProxyAddress,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}

	cli.C().SetHeader("Accept", mediaTypeJSON)
	cli.C().SetHeader("X-GitHub-Api-Version", apiVersion)

	switch {
	case cfg.TokenSource != nil:
		cli.C().SetTransport(&oauth2.Transport{
			Source: cfg.TokenSource,
			Base:   cli.C().GetClient().Transport,
		})
	case cfg.Token != "":
		cli.C().SetAuthToken(cfg.Token)
	}

	return &Client{
		http:  cli,
		log:   log,
		etags: abstract.NewSafeMap[string, string](),
	}, nil
}

// HTTP exposes the underlying HTTP client for custom tuning.
func (c *Client) HTTP() *cliex.HTTP {
	return c.http
}

// LastETag returns the entity tag remembered for a collection URL,
// empty when the URL has not been listed yet.
func (c *Client) LastETag(url string) string {
	return c.etags.Get(url)
}

func (c *Client) rememberETag(url, etag string) {
	if url != "" && etag != "" {
		c.etags.Set(url, etag)
	}
}

// raw runs a GET through the underlying client without any status
// handling so callers can branch on specific codes.
func (c *Client) raw(ctx context.Context, rawURL string, headers map[string]string) (*resty.Response, error) {
	req := c.http.C().R().SetContext(ctx)
	for k, v := range headers {
		req.SetHeader(k, v)
	}

	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, errm.Wrap(err, "failed to send request")
	}

	return resp, nil
}

// media runs a GET with a non-JSON Accept type and returns the body.
// A 404 yields an empty body so a missing commit reads as no content.
func (c *Client) media(ctx context.Context, rawURL, accept string) ([]byte, error) {
	resp, err := c.raw(ctx, rawURL, map[string]string{"Accept": accept})
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return resp.Body(), nil
	case http.StatusNotFound:
		c.log.Debug("resource not found, returning empty body", "url", rawURL, "accept", accept)
		return nil, nil
	default:
		return nil, newResponseError(resp)
	}
}

// getStrict runs a JSON GET that accepts exactly 200. It reports
// whether the body carried a document, an empty or literal null body
// leaves out untouched.
func (c *Client) getStrict(ctx context.Context, rawURL string, out any) (bool, error) {
	resp, err := c.raw(ctx, rawURL, nil)
	if err != nil {
		return false, err
	}
	if resp.StatusCode() != http.StatusOK {
		return false, newResponseError(resp)
	}

	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return false, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, errm.Wrap(err, "failed to decode response")
	}

	return true, nil
}

// joinURL glues path parts onto a base URL.
func joinURL(base string, parts ...string) string {
	elems := append([]string{strings.TrimSuffix(base, "/")}, parts...)
	return strings.Join(elems, "/")
}

// withQueryParams adds query parameters to a URL, existing keys are
// kept as is.
func withQueryParams(rawURL string, params map[string]string) string {
	if len(params) == 0 {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	for k, v := range params {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}
