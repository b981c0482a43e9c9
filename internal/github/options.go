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

// Logger receives progress messages from the engine.
type Logger interface {
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

// SweepStats describes one completed search sweep.
type SweepStats struct {
	// Sweep is the 1-based number of the sweep within a download.
	Sweep int
	// Query is the search expression of the sweep.
	Query string
	// TotalCount is the match count reported on the sweep's first page.
	TotalCount int
	// Retrieved is the number of issues the sweep returned.
	Retrieved int
	// Cumulative is the number of issues retrieved by all sweeps so far,
	// duplicates included.
	Cumulative int
	// New is the number of issues not returned by an earlier sweep.
	New int
}

// Observer is notified as a download progresses. Calls happen on the
// goroutine running the download, one at a time.
type Observer interface {
	OnRequest(kind RequestKind)
	OnIssue(rec IssueRecord)
	OnSweep(stats SweepStats)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) OnRequest(RequestKind) {}
func (NopObserver) OnIssue(IssueRecord)   {}
func (NopObserver) OnSweep(SweepStats)    {}

// MultiObserver forwards every notification to each of its observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnRequest(kind RequestKind) {
	for _, o := range m {
		o.OnRequest(kind)
	}
}

func (m MultiObserver) OnIssue(rec IssueRecord) {
	for _, o := range m {
		o.OnIssue(rec)
	}
}

func (m MultiObserver) OnSweep(stats SweepStats) {
	for _, o := range m {
		o.OnSweep(stats)
	}
}

// Default engine settings.
const (
	DefaultSearchPageSize   = 100
	DefaultNestedPageSize   = 10
	DefaultOverflowPageSize = 100
	// DefaultCeiling is the most results GitHub returns for one search.
	DefaultCeiling = 1000
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// SearchPageSize is the number of issues requested per search page.
	SearchPageSize int
	// NestedPageSize is the number of labels and comments requested inline
	// with each issue.
	NestedPageSize int
	// OverflowPageSize is the number of labels or comments requested when
	// re-querying a single issue for the rest of a collection.
	OverflowPageSize int
	// Ceiling is the number of results after which a search stops
	// returning more, regardless of the reported match count.
	Ceiling int

	Logger   Logger
	Observer Observer
}

func (o Options) withDefaults() Options {
	if o.SearchPageSize <= 0 {
		o.SearchPageSize = DefaultSearchPageSize
	}
	if o.NestedPageSize <= 0 {
		o.NestedPageSize = DefaultNestedPageSize
	}
	if o.OverflowPageSize <= 0 {
		o.OverflowPageSize = DefaultOverflowPageSize
	}
	if o.Ceiling <= 0 {
		o.Ceiling = DefaultCeiling
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o
}
