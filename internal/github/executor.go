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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	dlerrors "github.com/vikahl/issue-downloader/internal/errors"
	"github.com/vikahl/issue-downloader/internal/giterror"
)

// maxErrorBody is how much of a failed response body is kept in a TransportError.
const maxErrorBody = 1024

// Executor sends one query document and returns the decoded search result.
// Implementations perform no retries.
type Executor interface {
	Execute(ctx context.Context, query string) (*SearchResult, error)
}

// HTTPExecutor executes queries against a GraphQL endpoint over HTTP.
// It is safe for sequential reuse.
type HTTPExecutor struct {
	endpoint  string
	client    *http.Client
	inspector giterror.Inspector
}

// ExecutorOption configures an HTTPExecutor.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	userAgent string
	transport http.RoundTripper
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ExecutorOption {
	return func(c *executorConfig) {
		c.userAgent = ua
	}
}

// WithTransport sets the base transport underneath authentication.
func WithTransport(rt http.RoundTripper) ExecutorOption {
	return func(c *executorConfig) {
		c.transport = rt
	}
}

// NewHTTPExecutor creates an executor posting to the graphql path below
// baseURL, e.g. https://api.github.com/graphql.
func NewHTTPExecutor(baseURL, token string, opts ...ExecutorOption) (*HTTPExecutor, error) {
	endpoint, err := GraphQLEndpoint(baseURL)
	if err != nil {
		return nil, err
	}

	cfg := &executorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &HTTPExecutor{
		endpoint:  endpoint,
		client:    NewHTTPClient(token, cfg.userAgent, cfg.transport),
		inspector: giterror.NewErrorChainInspector(giterror.NewInspector()),
	}, nil
}

// GraphQLEndpoint joins the graphql path onto an API base URL.
func GraphQLEndpoint(baseURL string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("API URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid API URL %q", baseURL)
	}
	return url.JoinPath(baseURL, "graphql")
}

// Endpoint returns the URL queries are posted to.
func (e *HTTPExecutor) Endpoint() string {
	return e.endpoint
}

type requestBody struct {
	Query string `json:"query"`
}

type responseBody struct {
	Data *struct {
		Search *SearchResult `json:"search"`
	} `json:"data"`
	Errors []dlerrors.GraphQLError `json:"errors"`
}

// Execute posts query and decodes the search result. A non-2xx status is a
// TransportError, an errors list in the body is an APIError and a body that
// cannot be decoded is a ProtocolError.
func (e *HTTPExecutor) Execute(ctx context.Context, query string) (*SearchResult, error) {
	payload, err := json.Marshal(requestBody{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, e.classify(&dlerrors.TransportError{Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, e.classify(&dlerrors.TransportError{StatusCode: resp.StatusCode, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := data
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, e.classify(&dlerrors.TransportError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var decoded responseBody
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &dlerrors.ProtocolError{Reason: "response body is not valid JSON", Err: err}
	}
	if len(decoded.Errors) > 0 {
		return nil, e.classify(&dlerrors.APIError{Errors: decoded.Errors})
	}
	if decoded.Data == nil || decoded.Data.Search == nil {
		return nil, &dlerrors.ProtocolError{Reason: "response has no data.search object"}
	}

	return decoded.Data.Search, nil
}

// classify attaches the matching sentinel error so callers can use errors.Is
// while still reaching the typed error with errors.As.
func (e *HTTPExecutor) classify(err error) error {
	if sentinel := giterror.Sentinel(e.inspector, err); sentinel != nil {
		return fmt.Errorf("%w (%w)", err, sentinel)
	}
	return err
}
