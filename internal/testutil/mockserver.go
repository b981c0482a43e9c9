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

// Package testutil provides common test helpers for issue-downloader
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// MockServer provides common mock server configurations for testing
type MockServer struct {
	*httptest.Server
	requests int32
}

// RequestCount returns the number of requests the server received
func (m *MockServer) RequestCount() int {
	return int(atomic.LoadInt32(&m.requests))
}

func newMockServer(t *testing.T, handler http.HandlerFunc) *MockServer {
	t.Helper()
	m := &MockServer{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.requests, 1)
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// NewMockServer creates a basic mock server that responds to GraphQL requests
func NewMockServer(t *testing.T, handler http.HandlerFunc) *MockServer {
	t.Helper()
	return newMockServer(t, handler)
}

// NewSearchServer serves fake at /graphql. Requests must carry token as a
// bearer token unless token is empty.
func NewSearchServer(t *testing.T, fake *FakeSearch, token string) *MockServer {
	t.Helper()
	return newMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/graphql" {
			http.NotFound(w, r)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
			return
		}

		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message": "Problems parsing JSON"}`))
			return
		}

		data, err := fake.Respond(body.Query)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"errors": []map[string]interface{}{{"message": err.Error()}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	})
}

// NewErrorServer creates a mock server that always returns the specified error
func NewErrorServer(t *testing.T, statusCode int) *MockServer {
	t.Helper()
	return newMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(http.StatusText(statusCode)))
	})
}

// NewGraphQLErrorServer creates a mock server that answers 200 OK with a
// single GraphQL error
func NewGraphQLErrorServer(t *testing.T, message, errType string) *MockServer {
	t.Helper()
	return newMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": nil,
			"errors": []map[string]interface{}{
				{"type": errType, "message": message},
			},
		})
	})
}

// NewRawServer creates a mock server that answers 200 OK with body
func NewRawServer(t *testing.T, body string) *MockServer {
	t.Helper()
	return newMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}
