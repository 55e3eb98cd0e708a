package hubex

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNoClient = errors.New("commit is not bound to a client")
	ErrNoAPIURL = errors.New("commit has no API URL")
	ErrNoRef    = errors.New("commit reference is required")
	ErrNoRepo   = errors.New("repository owner and name are required")
)

// ResponseError describes a non-2xx answer from the GitHub API.
type ResponseError struct {
	StatusCode int
	Status     string
	URL        string

	// Message and DocsURL are filled when the body carries a GitHub
	// error document.
	Message string
	DocsURL string

	Body []byte
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("github: unexpected status %s for %s", e.Status, e.URL)
}

// newResponseError builds a ResponseError from a finished response.
func newResponseError(resp *resty.Response) error {
	e := &ResponseError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		URL:        resp.Request.URL,
		Body:       resp.Body(),
	}

	var payload struct {
		Message string `json:"message"`
		DocsURL string `json:"documentation_url"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err == nil {
		e.Message = payload.Message
		e.DocsURL = payload.DocsURL
	}

	return e
}

// StatusCode extracts the HTTP status code from an API error, 0 when
// err carries no response.
func StatusCode(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 answer from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
