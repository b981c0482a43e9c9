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

package github_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dlerrors "github.com/vikahl/issue-downloader/internal/errors"
	"github.com/vikahl/issue-downloader/internal/github"
	"github.com/vikahl/issue-downloader/internal/testutil"
)

func TestTokenCheckerCheck(t *testing.T) {
	fake := testutil.NewFakeSearch()
	fake.Viewer = "hubot"
	server := testutil.NewSearchServer(t, fake, "secret")

	checker, err := github.NewTokenChecker(server.URL, "secret")
	require.NoError(t, err)

	viewer, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hubot", viewer.Login)
	assert.Equal(t, 5000, viewer.RateLimit.Limit)
	assert.Equal(t, 4999, viewer.RateLimit.Remaining)
	assert.Equal(t, 2030, viewer.RateLimit.ResetAt.Year())
}

func TestTokenCheckerErrors(t *testing.T) {
	tests := []struct {
		name     string
		server   func(t *testing.T) *testutil.MockServer
		sentinel error
	}{
		{
			name: "bad token",
			server: func(t *testing.T) *testutil.MockServer {
				return testutil.NewSearchServer(t, testutil.NewFakeSearch(), "other")
			},
			sentinel: dlerrors.ErrInvalidToken,
		},
		{
			name:     "rate limited",
			server:   func(t *testing.T) *testutil.MockServer { return testutil.NewErrorServer(t, http.StatusTooManyRequests) },
			sentinel: dlerrors.ErrRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.server(t)
			checker, err := github.NewTokenChecker(server.URL, "secret")
			require.NoError(t, err)

			_, err = checker.Check(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestTokenCheckerInvalidURL(t *testing.T) {
	_, err := github.NewTokenChecker("not a url", "secret")
	assert.Error(t, err)
}
