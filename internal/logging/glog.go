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

// Package logging adapts glog to the logger interfaces of the download
// engine.
package logging

import (
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/vikahl/issue-downloader/internal/github"
)

// DebugLevel is the glog verbosity at which Debugf messages are emitted.
const DebugLevel glog.Level = 1

// Glog writes engine messages through glog. Infof always logs; Debugf
// logs only at verbosity DebugLevel or higher.
type Glog struct{}

var _ github.Logger = Glog{}

func (Glog) Infof(format string, args ...interface{}) {
	glog.InfoDepth(1, fmt.Sprintf(format, args...))
}

func (Glog) Debugf(format string, args ...interface{}) {
	if glog.V(DebugLevel) {
		glog.InfoDepth(1, fmt.Sprintf(format, args...))
	}
}

// Warningf logs a warning that does not stop the run.
func (Glog) Warningf(format string, args ...interface{}) {
	glog.WarningDepth(1, fmt.Sprintf(format, args...))
}

// Configure points glog at stderr and sets its verbosity. fs must be the
// flag set glog registered its flags on, normally flag.CommandLine.
func Configure(fs *flag.FlagSet, verbose bool) error {
	if err := fs.Set("logtostderr", "true"); err != nil {
		return fmt.Errorf("configure glog: %w", err)
	}
	level := "0"
	if verbose {
		level = fmt.Sprint(int(DebugLevel))
	}
	if err := fs.Set("v", level); err != nil {
		return fmt.Errorf("configure glog verbosity: %w", err)
	}
	return nil
}
