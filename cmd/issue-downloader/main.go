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
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vikahl/issue-downloader/internal/logging"
)

var version = "dev"

// glogFlags are the glog flags exposed on the command line. glog's own -v
// is replaced by --verbose.
var glogFlags = []string{"vmodule", "log_dir", "alsologtostderr"}

type rootOptions struct {
	verbose    bool
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "issue-downloader",
		Short: "Download GitHub issues as Markdown and JSON files",
		Long: `issue-downloader downloads every issue or pull request of a GitHub
organization or a set of repositories through the GraphQL search API,
including all labels and comments, and saves each one as a Markdown and/or
JSON file. Searches larger than the 1000 result cap are split into several
sweeps automatically.`,
		Version:       version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Configure(flag.CommandLine, opts.verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every request and sweep")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: .issue-downloader.yaml or ~/.config/issue-downloader/config.yaml)")
	addGlogFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newGitHubCommand(opts))

	return rootCmd
}

// addGlogFlags bridges the selected glog flags into fs.
func addGlogFlags(fs *pflag.FlagSet) {
	for _, name := range glogFlags {
		if f := flag.CommandLine.Lookup(name); f != nil {
			fs.AddGoFlag(f)
		}
	}
}
