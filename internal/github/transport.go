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
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// maxResponseSize caps the size of a single response body.
const maxResponseSize = 50 * 1024 * 1024

// DefaultUserAgent identifies requests when no version is supplied.
const DefaultUserAgent = "issue-downloader/dev"

// NewHTTPClient returns an HTTP client that authenticates with a bearer token,
// sets the User-Agent header and limits response sizes. A nil base uses
// http.DefaultTransport.
func NewHTTPClient(token, userAgent string, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &http.Client{
		Transport: &userAgentTransport{
			userAgent: userAgent,
			base: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
				Base:   base,
			},
		},
	}
}

// limitedReader wraps a ReadCloser with a size limit to prevent excessive memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("response size exceeded limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}

// userAgentTransport identifies the client and applies the response size limit.
type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Body != nil {
		resp.Body = &limitedReader{
			ReadCloser: resp.Body,
			limit:      maxResponseSize,
		}
	}

	return resp, nil
}
