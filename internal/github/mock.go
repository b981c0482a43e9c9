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

package github

import (
	"context"
	"fmt"

	dlerrors "github.com/vikahl/issue-downloader/internal/errors"
)

// MockExecutor is a scripted Executor for testing.
type MockExecutor struct {
	// Results are returned in order, one per call.
	Results []*SearchResult

	// Handler, when set, answers every query instead of Results.
	Handler func(query string) (*SearchResult, error)

	// Error to return
	Error error

	// Behavior flags
	ShouldFailAuth    bool
	ShouldFailNetwork bool

	// Track calls for verification
	CallCount int
	Queries   []string
}

// NewMockExecutor creates a mock executor with options
func NewMockExecutor(opts ...MockExecutorOption) *MockExecutor {
	m := &MockExecutor{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute implements the Executor interface
func (m *MockExecutor) Execute(ctx context.Context, query string) (*SearchResult, error) {
	m.CallCount++
	m.Queries = append(m.Queries, query)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if m.ShouldFailAuth {
		return nil, fmt.Errorf("%w (%w)", &dlerrors.TransportError{StatusCode: 401, Body: "Bad credentials"}, dlerrors.ErrInvalidToken)
	}

	if m.ShouldFailNetwork {
		return nil, fmt.Errorf("%w (%w)", &dlerrors.TransportError{Err: fmt.Errorf("connection refused")}, dlerrors.ErrNetworkFailure)
	}

	if m.Error != nil {
		return nil, m.Error
	}

	if m.Handler != nil {
		return m.Handler(query)
	}

	if len(m.Results) == 0 {
		return nil, &dlerrors.ProtocolError{Reason: fmt.Sprintf("mock executor has no result for call %d", m.CallCount)}
	}
	result := m.Results[0]
	m.Results = m.Results[1:]
	return result, nil
}

// MockExecutorOption allows configuring the mock executor
type MockExecutorOption func(*MockExecutor)

// WithResults sets the results returned by successive calls
func WithResults(results ...*SearchResult) MockExecutorOption {
	return func(m *MockExecutor) {
		m.Results = results
	}
}

// WithHandler answers every query with fn
func WithHandler(fn func(query string) (*SearchResult, error)) MockExecutorOption {
	return func(m *MockExecutor) {
		m.Handler = fn
	}
}

// WithError makes the executor return a specific error
func WithError(err error) MockExecutorOption {
	return func(m *MockExecutor) {
		m.Error = err
	}
}

// WithAuthFailure makes the executor simulate authentication failure
func WithAuthFailure() MockExecutorOption {
	return func(m *MockExecutor) {
		m.ShouldFailAuth = true
	}
}

// WithNetworkFailure makes the executor simulate an unreachable API
func WithNetworkFailure() MockExecutorOption {
	return func(m *MockExecutor) {
		m.ShouldFailNetwork = true
	}
}
