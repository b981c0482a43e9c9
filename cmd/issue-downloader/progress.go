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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gosuri/uiprogress"
	"golang.org/x/term"

	"github.com/vikahl/issue-downloader/internal/github"
)

// progressBar shows downloaded issues on a terminal. The bar's total
// starts at the search ceiling and grows to the match count reported by
// the first sweep.
type progressBar struct {
	progress *uiprogress.Progress
	bar      *uiprogress.Bar
	sweep    int
}

var _ github.Observer = (*progressBar)(nil)

func newProgressBar(out io.Writer, total int) *progressBar {
	p := &progressBar{progress: uiprogress.New(), sweep: 1}
	p.progress.Out = out
	p.bar = p.progress.AddBar(total).
		AppendCompleted().
		PrependElapsed().
		PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("Sweep %d: issue %d/%d", p.sweep, b.Current(), b.Total)
		})
	return p
}

func (p *progressBar) Start() { p.progress.Start() }
func (p *progressBar) Stop()  { p.progress.Stop() }

func (p *progressBar) OnRequest(github.RequestKind) {}

func (p *progressBar) OnIssue(github.IssueRecord) {
	if p.bar.Current() >= p.bar.Total {
		p.bar.Total++
	}
	p.bar.Incr()
}

func (p *progressBar) OnSweep(stats github.SweepStats) {
	p.sweep = stats.Sweep + 1
	if stats.TotalCount > p.bar.Total {
		p.bar.Total = stats.TotalCount
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
