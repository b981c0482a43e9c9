package giterror

import (
	"errors"
	"net/http"
	"strings"

	dlerrors "github.com/vikahl/issue-downloader/internal/errors"
)

// Inspector provides methods to classify GitHub API errors.
type Inspector interface {
	// IsAuthError returns true if the error represents an authentication or authorization failure.
	IsAuthError(err error) bool

	// IsNotFoundError returns true if the error represents a resource not found error.
	IsNotFoundError(err error) bool

	// IsRateLimitError returns true if the error represents a rate limit error.
	IsRateLimitError(err error) bool

	// IsNodeLimitError returns true if the query asked for more nodes than
	// GitHub allows in a single request.
	IsNodeLimitError(err error) bool

	// IsNetworkError returns true if the error represents a network connectivity error.
	IsNetworkError(err error) bool
}

// GitHubErrorInspector implements the Inspector interface for GitHub API errors.
type GitHubErrorInspector struct{}

// NewInspector creates a new GitHubErrorInspector.
func NewInspector() Inspector {
	return &GitHubErrorInspector{}
}

// IsAuthError checks if the error is an authentication or authorization error.
func (i *GitHubErrorInspector) IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if status := statusCode(err); status == http.StatusUnauthorized {
		return true
	}
	errStr := text(err)
	return strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "bad credentials") ||
		strings.Contains(errStr, "authentication")
}

// IsNotFoundError checks if the error is a not found error.
func (i *GitHubErrorInspector) IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if status := statusCode(err); status == http.StatusNotFound {
		return true
	}
	errStr := text(err)
	return strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "could not resolve to a repository") ||
		strings.Contains(errStr, "cannot be searched")
}

// IsRateLimitError checks if the error is a rate limit error.
func (i *GitHubErrorInspector) IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if status := statusCode(err); status == http.StatusTooManyRequests {
		return true
	}
	errStr := text(err)
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "rate_limited") ||
		strings.Contains(errStr, "429")
}

// IsNodeLimitError checks if the error reports an exceeded node budget.
func (i *GitHubErrorInspector) IsNodeLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := text(err)
	return strings.Contains(errStr, "max_node_limit_exceeded") ||
		strings.Contains(errStr, "exceeds the maximum limit") ||
		strings.Contains(errStr, "possible nodes") ||
		strings.Contains(errStr, "complexity")
}

// IsNetworkError checks if the error is a network connectivity error.
func (i *GitHubErrorInspector) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "network is unreachable")
}

// Sentinel returns the sentinel error from the errors package that best
// describes err, or nil when err does not match any known class.
// Connection failures are checked first because their messages carry
// addresses, and rate limits before auth because GitHub reports them with
// 403 too.
func Sentinel(i Inspector, err error) error {
	switch {
	case err == nil:
		return nil
	case i.IsNetworkError(err):
		return dlerrors.ErrNetworkFailure
	case i.IsRateLimitError(err):
		return dlerrors.ErrRateLimit
	case i.IsAuthError(err):
		return dlerrors.ErrInvalidToken
	case i.IsNotFoundError(err):
		return dlerrors.ErrRepoNotFound
	case i.IsNodeLimitError(err):
		return dlerrors.ErrNodeLimit
	}
	return nil
}

// text returns the lower-cased text to classify err by. For a response with
// a status only the body is used.
func text(err error) string {
	var te *dlerrors.TransportError
	if errors.As(err, &te) && te.StatusCode != 0 {
		return strings.ToLower(te.Body)
	}
	return strings.ToLower(err.Error())
}

func statusCode(err error) int {
	var te *dlerrors.TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// ErrorChainInspector checks the error chain for typed errors that
// self-describe their class before falling back to a base inspector.
type ErrorChainInspector struct {
	base Inspector
}

// NewErrorChainInspector creates an inspector that walks the error chain.
func NewErrorChainInspector(base Inspector) Inspector {
	return &ErrorChainInspector{base: base}
}

func (e *ErrorChainInspector) IsAuthError(err error) bool {
	var authErr interface{ IsAuthError() bool }
	if errors.As(err, &authErr) && authErr.IsAuthError() {
		return true
	}
	return e.base.IsAuthError(err)
}

func (e *ErrorChainInspector) IsNotFoundError(err error) bool {
	var notFoundErr interface{ IsNotFoundError() bool }
	if errors.As(err, &notFoundErr) && notFoundErr.IsNotFoundError() {
		return true
	}
	return e.base.IsNotFoundError(err)
}

func (e *ErrorChainInspector) IsRateLimitError(err error) bool {
	var rateLimitErr interface{ IsRateLimitError() bool }
	if errors.As(err, &rateLimitErr) && rateLimitErr.IsRateLimitError() {
		return true
	}
	return e.base.IsRateLimitError(err)
}

func (e *ErrorChainInspector) IsNodeLimitError(err error) bool {
	var nodeLimitErr interface{ IsNodeLimitError() bool }
	if errors.As(err, &nodeLimitErr) && nodeLimitErr.IsNodeLimitError() {
		return true
	}
	return e.base.IsNodeLimitError(err)
}

func (e *ErrorChainInspector) IsNetworkError(err error) bool {
	var networkErr interface{ IsNetworkError() bool }
	if errors.As(err, &networkErr) && networkErr.IsNetworkError() {
		return true
	}
	return e.base.IsNetworkError(err)
}
