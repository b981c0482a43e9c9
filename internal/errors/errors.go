// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines the sentinel and typed errors shared by the
// retrieval engine and the command line interface.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidToken indicates GitHub authentication failed.
	// Maps to exit code 2.
	ErrInvalidToken = errors.New("invalid github token")

	// ErrRepoNotFound indicates a searched repository or organisation does not exist or is not accessible.
	// Maps to exit code 2.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrNetworkFailure indicates a network connection problem.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrRateLimit indicates GitHub API rate limit has been exceeded.
	// Maps to exit code 2.
	ErrRateLimit = errors.New("github rate limit exceeded")

	// ErrNodeLimit indicates a query requested more nodes than the API allows
	// in a single request.
	ErrNodeLimit = errors.New("github node limit exceeded")
)

// TransportError is returned when the request could not be delivered or the
// server answered with a non-success HTTP status.
type TransportError struct {
	StatusCode int    // zero when no response was received
	Body       string // response body, if any
	Err        error  // underlying transport error, if any
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GraphQLError is a single entry of the "errors" list of a GraphQL response.
type GraphQLError struct {
	Message string        `json:"message"`
	Type    string        `json:"type,omitempty"`
	Path    []interface{} `json:"path,omitempty"`
}

// APIError carries the error list reported by the GraphQL service.
type APIError struct {
	Errors []GraphQLError
}

func (e *APIError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		if ge.Type != "" {
			msgs = append(msgs, fmt.Sprintf("%s (%s)", ge.Message, ge.Type))
			continue
		}
		msgs = append(msgs, ge.Message)
	}
	return "error from GitHub API: " + strings.Join(msgs, "; ")
}

func (e *APIError) IsRateLimitError() bool { return e.hasType("RATE_LIMITED") }
func (e *APIError) IsNotFoundError() bool  { return e.hasType("NOT_FOUND") }
func (e *APIError) IsNodeLimitError() bool { return e.hasType("MAX_NODE_LIMIT_EXCEEDED") }

func (e *APIError) hasType(t string) bool {
	for _, ge := range e.Errors {
		if strings.EqualFold(ge.Type, t) {
			return true
		}
	}
	return false
}

// ProtocolError is returned when a response cannot be decoded or does not
// have the expected shape.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response from GitHub API: %s: %v", e.Reason, e.Err)
	}
	return "unexpected response from GitHub API: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAPI reports whether err wraps an *APIError.
func IsAPI(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// IsProtocol reports whether err wraps a *ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
