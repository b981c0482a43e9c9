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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vikahl/issue-downloader/internal/config"
	dlerrors "github.com/vikahl/issue-downloader/internal/errors"
	"github.com/vikahl/issue-downloader/internal/events"
	"github.com/vikahl/issue-downloader/internal/github"
	"github.com/vikahl/issue-downloader/internal/index"
	"github.com/vikahl/issue-downloader/internal/logging"
	"github.com/vikahl/issue-downloader/internal/metadata"
	"github.com/vikahl/issue-downloader/internal/output"
	"github.com/vikahl/issue-downloader/internal/state"
)

type githubOptions struct {
	token         string
	org           string
	repos         []string
	date          string
	resume        bool
	archived      bool
	noArchived    bool
	closed        bool
	noClosed      bool
	issueType     string
	saveDir       string
	formats       []string
	url           string
	stateFile     string
	ndjson        string
	sqlite        string
	postgresURL   string
	s3Bucket      string
	natsURL       string
	skipPreflight bool
}

// downloadJob is a validated download ready to run.
type downloadJob struct {
	cfg           *config.Config
	token         string
	request       github.DownloadRequest
	date          *time.Time
	resume        bool
	skipPreflight bool
}

func newGitHubCommand(root *rootOptions) *cobra.Command {
	opts := &githubOptions{}

	cmd := &cobra.Command{
		Use:   "github",
		Short: "Download issues from GitHub organizations or repositories",
		Long: `Download issues or pull requests with all labels and comments and save
them as <save-dir>/<owner>/<repo>/<number>.md and .json.

Select what to download with either --org or one or more --repo flags.
Repositories must be specified in the format: <owner>/<repo>

Authentication is required via GitHub token:
  - Use --token flag to provide token directly
  - Or set GITHUB_TOKEN environment variable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(root.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, opts)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			job, err := newDownloadJob(cfg, opts)
			if err != nil {
				return err
			}
			return runDownload(cmd.Context(), job, cmd.ErrOrStderr())
		},
	}

	addGitHubFlags(cmd, opts)

	return cmd
}

func addGitHubFlags(cmd *cobra.Command, opts *githubOptions) {
	cmd.Flags().StringVar(&opts.token, "token", "", "GitHub personal access token (overrides GITHUB_TOKEN env var)")
	cmd.Flags().StringVar(&opts.org, "org", "", "Download issues from all repositories of this organization or user")
	cmd.Flags().StringArrayVar(&opts.repos, "repo", nil, "Download issues from this repository (<owner>/<repo>, repeatable)")
	cmd.Flags().StringVar(&opts.date, "date", "", "Only download issues updated on or after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "Only download issues updated since the last run with the same parameters")
	cmd.Flags().BoolVar(&opts.archived, "archived", true, "Include issues from archived repositories")
	cmd.Flags().BoolVar(&opts.noArchived, "no-archived", false, "Exclude issues from archived repositories")
	cmd.Flags().BoolVar(&opts.closed, "closed", true, "Include closed issues")
	cmd.Flags().BoolVar(&opts.noClosed, "no-closed", false, "Only download open issues")
	cmd.Flags().StringVar(&opts.issueType, "type", "issue", "What to download: issue or pr")
	cmd.Flags().StringVar(&opts.saveDir, "save-dir", "", "Directory the issue files are written to (default: current directory)")
	cmd.Flags().StringSliceVar(&opts.formats, "format", nil, "File formats to write: MD, JSON (default: both)")
	cmd.Flags().StringVar(&opts.url, "url", "", "GitHub API URL, for GitHub Enterprise Server (default: https://api.github.com/)")
	cmd.Flags().StringVar(&opts.stateFile, "state-file", "", "Resume state file (default: ~/.issue-downloader.json)")

	// Optional exports
	cmd.Flags().StringVar(&opts.ndjson, "ndjson", "", "Also write all issues to this NDJSON file")
	cmd.Flags().StringVar(&opts.sqlite, "sqlite", "", "Also index issues in this SQLite database")
	cmd.Flags().StringVar(&opts.postgresURL, "postgres-url", "", "Also index issues in this PostgreSQL database")
	cmd.Flags().StringVar(&opts.s3Bucket, "s3-bucket", "", "Also upload the issue files to this S3 bucket")
	cmd.Flags().StringVar(&opts.natsURL, "nats-url", "", "Publish run events to this NATS server")

	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Do not verify the token before downloading")

	cmd.MarkFlagsMutuallyExclusive("org", "repo")
	cmd.MarkFlagsMutuallyExclusive("archived", "no-archived")
	cmd.MarkFlagsMutuallyExclusive("closed", "no-closed")
}

// applyFlags copies the flags set on the command line over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *githubOptions) {
	flags := cmd.Flags()

	if flags.Changed("url") {
		cfg.GitHub.URL = opts.url
	}
	if flags.Changed("save-dir") {
		cfg.Download.SaveDir = config.ExpandPath(opts.saveDir)
	}
	if flags.Changed("format") {
		cfg.Download.Formats = opts.formats
	}
	if flags.Changed("archived") {
		cfg.Download.IncludeArchived = opts.archived
	}
	if flags.Changed("no-archived") {
		cfg.Download.IncludeArchived = !opts.noArchived
	}
	if flags.Changed("closed") {
		cfg.Download.IncludeClosed = opts.closed
	}
	if flags.Changed("no-closed") {
		cfg.Download.IncludeClosed = !opts.noClosed
	}
	if flags.Changed("state-file") {
		cfg.State.File = config.ExpandPath(opts.stateFile)
	}
	if flags.Changed("ndjson") {
		cfg.Export.NDJSON = config.ExpandPath(opts.ndjson)
	}
	if flags.Changed("sqlite") {
		cfg.Export.SQLite = config.ExpandPath(opts.sqlite)
	}
	if flags.Changed("postgres-url") {
		cfg.Export.PostgresURL = opts.postgresURL
	}
	if flags.Changed("s3-bucket") {
		cfg.Export.S3.Bucket = opts.s3Bucket
	}
	if flags.Changed("nats-url") {
		cfg.Events.NATSURL = opts.natsURL
	}
}

// newDownloadJob validates the command line against the merged
// configuration.
func newDownloadJob(cfg *config.Config, opts *githubOptions) (*downloadJob, error) {
	token := getToken(opts.token, cfg.GitHub.TokenEnv)
	if token == "" {
		return nil, fmt.Errorf("GitHub token not found. Set %s or use --token flag", tokenEnv(cfg.GitHub.TokenEnv))
	}

	repos := make([]string, 0, len(opts.repos))
	for _, arg := range opts.repos {
		owner, repo, err := parseRepository(arg)
		if err != nil {
			return nil, err
		}
		repos = append(repos, owner+"/"+repo)
	}

	issueType, err := github.ParseIssueType(opts.issueType)
	if err != nil {
		return nil, err
	}

	date, err := parseDate(opts.date)
	if err != nil {
		return nil, err
	}

	formats, err := config.NormalizeFormats(cfg.Download.Formats)
	if err != nil {
		return nil, err
	}
	cfg.Download.Formats = formats

	req := github.DownloadRequest{
		Type:            issueType,
		Org:             strings.TrimSpace(opts.org),
		Repos:           repos,
		IncludeClosed:   cfg.Download.IncludeClosed,
		IncludeArchived: cfg.Download.IncludeArchived,
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: use --org or --repo", err)
	}

	return &downloadJob{
		cfg:           cfg,
		token:         token,
		request:       req,
		date:          date,
		resume:        opts.resume,
		skipPreflight: opts.skipPreflight,
	}, nil
}

func (j *downloadJob) stateParams() state.Params {
	return state.Params{
		SaveDir:         j.cfg.Download.SaveDir,
		URL:             j.cfg.GitHub.URL,
		Org:             j.request.Org,
		Repos:           j.request.Repos,
		IncludeArchived: j.request.IncludeArchived,
		IncludeClosed:   j.request.IncludeClosed,
	}
}

// runDownload executes a download job: preflight, resume date, download,
// save, exports, events, resume state and metadata, in that order.
func runDownload(ctx context.Context, job *downloadJob, stderr io.Writer) error {
	cfg := job.cfg
	logger := logging.Glog{}
	started := time.Now()
	userAgent := github.WithUserAgent("issue-downloader/" + version)

	if !job.skipPreflight {
		if err := preflight(ctx, cfg.GitHub.URL, job.token, userAgent, stderr); err != nil {
			return err
		}
	}

	params := job.stateParams()
	req := job.request
	req.Since = resolveSince(job, params, logger)

	tracker := metadata.New()
	observer := github.MultiObserver{tracker}
	var bar *progressBar
	if f, ok := stderr.(*os.File); ok && isTerminal(f) {
		bar = newProgressBar(stderr, cfg.Download.ResultCeiling)
		observer = append(observer, bar)
	}

	exec, err := github.NewHTTPExecutor(cfg.GitHub.URL, job.token, userAgent)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	logger.Debugf("Sending queries to %s", exec.Endpoint())
	downloader := github.NewDownloader(exec, github.Options{
		SearchPageSize:   cfg.Download.SearchPageSize,
		NestedPageSize:   cfg.Download.NestedPageSize,
		OverflowPageSize: cfg.Download.NestedOverflowPageSize,
		Ceiling:          cfg.Download.ResultCeiling,
		Logger:           logger,
		Observer:         observer,
	})

	fmt.Fprintf(stderr, "Downloading %s...\n", describe(req))
	if bar != nil {
		bar.Start()
	}
	issues, err := downloader.Download(ctx, req)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	if err := saveIssues(ctx, cfg, issues, publisher, tracker.RunID(), logger); err != nil {
		return err
	}
	if err := exportIssues(ctx, cfg, issues); err != nil {
		return err
	}

	metaDir := metadata.Dir(cfg.Download.SaveDir)
	runParams := metadata.RunParams{
		URL:             cfg.GitHub.URL,
		Organization:    req.Org,
		Repositories:    req.Repos,
		Type:            string(req.Type),
		Since:           req.Since,
		IncludeArchived: req.IncludeArchived,
		IncludeClosed:   req.IncludeClosed,
		Formats:         cfg.Download.Formats,
		SaveDir:         cfg.Download.SaveDir,
	}
	md := tracker.GenerateMetadata(version, runParams, previousRun(metaDir, req, logger))

	completed := events.RunCompleted{
		RunID:       md.RunID,
		Org:         req.Org,
		Repos:       req.Repos,
		Since:       req.Since,
		Issues:      md.Results.TotalIssues,
		Retrieved:   md.Results.Retrieved,
		Sweeps:      md.Results.Sweeps,
		APICalls:    md.Results.TotalAPICalls,
		SaveDir:     cfg.Download.SaveDir,
		CompletedAt: md.Results.CompletedAt,
	}
	subject := events.Subject(cfg.Events.SubjectPrefix, events.SubjectRunCompleted)
	if err := publisher.Publish(ctx, subject, completed); err != nil {
		logger.Warningf("Failed to publish %s: %v", subject, err)
	}

	if err := state.SaveResume(cfg.State.File, params, started.UTC()); err != nil {
		return fmt.Errorf("failed to save resume state: %w", err)
	}

	path, err := metadata.SaveMetadata(md, metaDir)
	if err != nil {
		return fmt.Errorf("failed to save run metadata: %w", err)
	}
	logger.Debugf("Run metadata written to %s", path)

	fmt.Fprintf(stderr, "Saved %d issues to %s in %s (%d API calls)\n",
		len(issues), cfg.Download.SaveDir, time.Since(started).Round(time.Second), md.Results.TotalAPICalls)
	return nil
}

// preflight verifies the token and reports the remaining rate limit.
func preflight(ctx context.Context, baseURL, token string, opt github.ExecutorOption, stderr io.Writer) error {
	checker, err := github.NewTokenChecker(baseURL, token, opt)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	viewer, err := checker.Check(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Authenticated as %s (%d of %d API points remaining, resets at %s)\n",
		viewer.Login, viewer.RateLimit.Remaining, viewer.RateLimit.Limit,
		viewer.RateLimit.ResetAt.Local().Format(time.Kitchen))
	return nil
}

// resolveSince picks the date the download starts from. With --resume the
// date of the last matching run wins over --date.
func resolveSince(job *downloadJob, params state.Params, logger logging.Glog) *time.Time {
	if !job.resume {
		return job.date
	}

	since, err := state.LoadResume(job.cfg.State.File, params)
	if err != nil {
		logger.Warningf("Ignoring resume state: %v", err)
		return job.date
	}
	if since == nil {
		logger.Infof("No previous run found in %s", job.cfg.State.File)
		return job.date
	}
	if job.date != nil {
		logger.Infof("Resuming from %s, ignoring --date %s", since.Format(state.DateLayout), job.date.Format(state.DateLayout))
	}
	return since
}

func previousRun(dir string, req github.DownloadRequest, logger logging.Glog) *metadata.RunRef {
	prev, err := metadata.LoadLatestMetadata(dir, req.Org, req.Repos)
	if err != nil {
		logger.Warningf("Failed to read previous run metadata: %v", err)
		return nil
	}
	if prev == nil {
		return nil
	}
	return &metadata.RunRef{RunID: prev.RunID, CompletedAt: prev.Results.CompletedAt}
}

// saveIssues writes every issue to the save directory and the optional S3
// bucket, announcing each saved issue.
func saveIssues(ctx context.Context, cfg *config.Config, issues []github.IssueRecord, publisher events.Publisher, runID string, logger logging.Glog) error {
	sinks := []output.Sink{output.DirSink{Root: cfg.Download.SaveDir}}
	if s3cfg := cfg.Export.S3; s3cfg.Bucket != "" {
		sink, err := output.NewS3Sink(ctx, output.S3Options{
			Bucket:   s3cfg.Bucket,
			Prefix:   s3cfg.Prefix,
			Region:   s3cfg.Region,
			Endpoint: s3cfg.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 sink: %w", err)
		}
		sinks = append(sinks, sink)
	}

	saver, err := output.NewSaver(cfg.Download.Formats, sinks...)
	if err != nil {
		return err
	}

	subject := events.Subject(cfg.Events.SubjectPrefix, events.SubjectIssueSaved)
	return saver.SaveAll(ctx, issues, func(rec github.IssueRecord, files []string) {
		saved := events.IssueSaved{
			RunID:      runID,
			ID:         rec.ID,
			Repository: rec.Repository.NameWithOwner,
			Number:     rec.Number,
			UpdatedAt:  rec.UpdatedAt,
			Files:      files,
		}
		if err := publisher.Publish(ctx, subject, saved); err != nil {
			logger.Warningf("Failed to publish %s for %s#%d: %v", subject, rec.Repository.NameWithOwner, rec.Number, err)
		}
	})
}

// exportIssues writes the optional NDJSON file and database indexes.
func exportIssues(ctx context.Context, cfg *config.Config, issues []github.IssueRecord) error {
	if path := cfg.Export.NDJSON; path != "" {
		if err := writeNDJSON(path, issues); err != nil {
			return err
		}
	}

	stores, err := openIndexes(cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, store := range stores {
			_ = store.Close()
		}
	}()

	for _, store := range stores {
		if err := store.Upsert(ctx, issues); err != nil {
			return fmt.Errorf("failed to index issues: %w", err)
		}
	}
	return nil
}

func writeNDJSON(path string, issues []github.IssueRecord) error {
	writer, err := output.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	for _, rec := range issues {
		if err := writer.Write(rec); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write issue: %w", err)
		}
	}
	return writer.Close()
}

func openIndexes(cfg *config.Config) ([]index.Store, error) {
	var stores []index.Store
	closeAll := func() {
		for _, store := range stores {
			_ = store.Close()
		}
	}

	if path := cfg.Export.SQLite; path != "" {
		store, err := index.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite index: %w", err)
		}
		stores = append(stores, store)
	}
	if url := cfg.Export.PostgresURL; url != "" {
		store, err := index.OpenPostgres(url)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to open PostgreSQL index: %w", err)
		}
		stores = append(stores, store)
	}
	return stores, nil
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		return events.NoopPublisher{}, nil
	}
	publisher, err := events.NewNATSPublisher(cfg.Events.NATSURL)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

// describe names the target of a request for progress messages.
func describe(req github.DownloadRequest) string {
	kind := "issues"
	if req.Type == github.IssueTypePR {
		kind = "pull requests"
	}

	target := "organization " + req.Org
	if len(req.Repos) > 0 {
		target = strings.Join(req.Repos, ", ")
	}

	s := fmt.Sprintf("%s from %s", kind, target)
	if req.Since != nil {
		s += " updated since " + req.Since.Format(state.DateLayout)
	}
	return s
}

// parseRepository parses an owner/repo string into owner and repo components
func parseRepository(repoArg string) (owner, repo string, err error) {
	parts := strings.Split(repoArg, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	return owner, repo, nil
}

// parseDate parses a YYYY-MM-DD date. An empty string means no date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(state.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q. Expected: YYYY-MM-DD", s)
	}
	return &t, nil
}

func tokenEnv(envVar string) string {
	if envVar == "" {
		return "GITHUB_TOKEN"
	}
	return envVar
}

// getToken returns the GitHub token from flag or environment variable
func getToken(flagToken, envVar string) string {
	if flagToken != "" {
		return flagToken
	}
	return os.Getenv(tokenEnv(envVar))
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, dlerrors.ErrInvalidToken) ||
		errors.Is(err, dlerrors.ErrRepoNotFound) ||
		errors.Is(err, dlerrors.ErrRateLimit) {
		return 2 // Authentication, rate limit or not found
	}

	if errors.Is(err, dlerrors.ErrNetworkFailure) {
		return 3 // Network errors
	}

	return 1 // General error
}
