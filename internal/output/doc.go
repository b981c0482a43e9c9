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

// Package output turns downloaded issues into files.
//
// Saver renders each issue as Markdown and/or indented JSON and stores the
// files under <owner>/<repo>/<number>.<ext> in one or more sinks: DirSink
// writes below a directory on disk and S3Sink uploads to an S3-compatible
// bucket. Writer streams every issue as one line of NDJSON (Newline
// Delimited JSON) into a single file, which suits loading a whole download
// into other tools.
//
// Example usage:
//
//	saver, err := output.NewSaver([]string{output.FormatMarkdown}, output.DirSink{Root: "issues"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := saver.SaveAll(ctx, issues, nil); err != nil {
//	    log.Fatal(err)
//	}
package output
