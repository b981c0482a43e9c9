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
	"time"

	"github.com/shurcooL/githubv4"
	"github.com/shurcooL/graphql"
	dlerrors "github.com/vikahl/issue-downloader/internal/errors"
	"github.com/vikahl/issue-downloader/internal/giterror"
)

// Viewer is the account a token belongs to.
type Viewer struct {
	Login     string
	RateLimit RateLimit
}

// RateLimit is the GraphQL rate limit state of a token.
type RateLimit struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// TokenChecker verifies a token before a download starts, so that a bad
// token fails fast with an actionable message.
type TokenChecker struct {
	client    *graphql.Client
	inspector giterror.Inspector
}

// NewTokenChecker creates a checker for the API at baseURL.
func NewTokenChecker(baseURL, token string, opts ...ExecutorOption) (*TokenChecker, error) {
	endpoint, err := GraphQLEndpoint(baseURL)
	if err != nil {
		return nil, err
	}

	cfg := &executorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &TokenChecker{
		client:    graphql.NewClient(endpoint, NewHTTPClient(token, cfg.userAgent, cfg.transport)),
		inspector: giterror.NewErrorChainInspector(giterror.NewInspector()),
	}, nil
}

// Check returns the token's account and rate limit.
func (c *TokenChecker) Check(ctx context.Context) (*Viewer, error) {
	var query struct {
		Viewer struct {
			Login graphql.String
		}
		RateLimit struct {
			Limit     graphql.Int
			Remaining graphql.Int
			ResetAt   githubv4.DateTime
		}
	}

	if err := c.client.Query(ctx, &query, nil); err != nil {
		return nil, c.mapError(err)
	}

	return &Viewer{
		Login: string(query.Viewer.Login),
		RateLimit: RateLimit{
			Limit:     int(query.RateLimit.Limit),
			Remaining: int(query.RateLimit.Remaining),
			ResetAt:   query.RateLimit.ResetAt.Time,
		},
	}, nil
}

// mapError maps GraphQL errors to our domain errors with actionable messages
func (c *TokenChecker) mapError(err error) error {
	if c.inspector.IsNetworkError(err) {
		return fmt.Errorf("network error connecting to GitHub API. Please check your internet connection and try again: %w", dlerrors.ErrNetworkFailure)
	}

	// Check rate limit before auth, as 403 can be both auth and rate limit
	if c.inspector.IsRateLimitError(err) {
		return fmt.Errorf("GitHub API rate limit exceeded. Please wait before retrying: %w", dlerrors.ErrRateLimit)
	}

	if c.inspector.IsAuthError(err) {
		return fmt.Errorf("GitHub API authentication failed. Please provide a valid token via --token flag or GITHUB_TOKEN environment variable: %w", dlerrors.ErrInvalidToken)
	}

	return fmt.Errorf("failed to verify token: %w", err)
}
