// Package workflow drives the smoke run end to end: health probe, push
// channel, project lifecycle, analysis polling, and the closing summary.
// A run never panics its way out; every failure lands in the Result.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/migr8-smoke/api"
	"github.com/c360studio/migr8-smoke/config"
	"github.com/c360studio/migr8-smoke/console"
	"github.com/c360studio/migr8-smoke/events"
)

// Workflow exercises a MIGR8 server with one full project lifecycle.
type Workflow struct {
	cfg      *config.Config
	client   *api.Client
	listener *events.Listener
	out      *console.Printer
	logger   *slog.Logger

	result       *Result
	projectID    string
	project      *api.Project
	connected    bool
	subscribed   bool
	unsubscribed bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger for the run and its clients.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithOutput redirects the run narrative away from stdout.
func WithOutput(out io.Writer) Option {
	return func(w *Workflow) {
		w.out = console.New(out)
	}
}

// New creates a Workflow against the servers named in cfg. The config must
// already be validated.
func New(cfg *config.Config, opts ...Option) *Workflow {
	w := &Workflow{
		cfg:    cfg,
		out:    console.New(os.Stdout),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.client = api.NewClient(cfg.APIBaseURL, api.WithLogger(w.logger))
	w.listener = events.NewListener(cfg.WSURL, events.WithLogger(w.logger))

	return w
}

// Run executes the smoke stages in order. The first hard failure aborts the
// remaining stages; degraded conditions (push channel down, analysis still
// running at the poll ceiling) are recorded as warnings and the run goes on.
// Call Teardown afterwards regardless of the outcome.
func (w *Workflow) Run(ctx context.Context) *Result {
	result := NewResult()
	w.result = result
	defer result.Complete()

	w.out.Banner("MIGR8 SMOKE TEST")
	w.out.Info("Run %s against %s", result.RunID, w.cfg.APIBaseURL)

	stages := []struct {
		name string
		fn   func(context.Context, *Result) error
	}{
		{"health", w.stageHealth},
		{"connect", w.stageConnect},
		{"preflight", w.stagePreflight},
		{"create-project", w.stageCreateProject},
		{"list-projects", w.stageListProjects},
		{"get-project", w.stageGetProject},
		{"analyze", w.stageAnalyze},
		{"migration-rules", w.stageMigrationRules},
		{"summary", w.stageSummary},
	}

	for i, stage := range stages {
		if ctx.Err() != nil {
			result.Error = fmt.Sprintf("run canceled before %s: %v", stage.name, ctx.Err())
			result.AddError(result.Error)
			return result
		}

		w.out.Section(fmt.Sprintf("Stage %d/%d: %s", i+1, len(stages), stage.name))

		stageStart := time.Now()
		err := stage.fn(ctx, result)
		stageDuration := time.Since(stageStart)
		result.SetMetric(fmt.Sprintf("%s_duration_ms", stage.name), stageDuration.Milliseconds())

		if err != nil {
			result.AddStage(stage.name, false, stageDuration, err.Error())
			result.AddError(fmt.Sprintf("%s: %v", stage.name, err))
			result.Error = fmt.Sprintf("%s failed: %v", stage.name, err)
			w.out.Error("%v", err)
			return result
		}

		result.AddStage(stage.name, true, stageDuration, "")
	}

	result.Success = true
	return result
}

// Teardown releases any subscription still held and closes the push channel.
// Safe to call whether or not Run completed, and after a run that never
// connected.
func (w *Workflow) Teardown(_ context.Context) error {
	w.unsubscribe()
	w.listener.Disconnect()

	// An aborted run never reached the summary stage; collect whatever
	// arrived before the channel closed so the result still carries it.
	if w.result != nil && w.result.Messages == nil {
		w.result.SetMessages(events.CountByType(w.listener.Drain()))
	}
	return nil
}

// unsubscribe releases the project subscription once. The analysis stage,
// the abort path, and Teardown can all reach it.
func (w *Workflow) unsubscribe() {
	if !w.subscribed || w.unsubscribed {
		return
	}
	w.unsubscribed = true
	if err := w.listener.Unsubscribe(w.projectID); err != nil {
		w.logger.Debug("Unsubscribe failed", slog.String("error", err.Error()))
		return
	}
	w.out.Info("Unsubscribed from project updates")
}

// stageHealth probes the server root above the API base.
func (w *Workflow) stageHealth(ctx context.Context, _ *Result) error {
	w.out.Info("Probing server at %s", w.cfg.APIBaseURL)
	if err := w.client.Health(ctx); err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	w.out.Success("Server is up")
	return nil
}

// stageConnect opens the push channel. A server without one degrades the run
// to REST only, it does not fail it.
func (w *Workflow) stageConnect(ctx context.Context, result *Result) error {
	w.out.Info("Opening push channel %s", w.cfg.WSURL)
	if !w.listener.Connect(ctx) {
		result.AddWarning("push channel unavailable")
		w.out.Warning("Push channel unavailable, continuing without live updates")
		return nil
	}
	w.connected = true
	w.out.Success("Push channel connected")
	return nil
}

// stagePreflight counts local files the default patterns would select, so a
// later "0 files analyzed" has an explanation. The server resolves the path
// on its own filesystem, so nothing here aborts the run.
func (w *Workflow) stagePreflight(_ context.Context, result *Result) error {
	root, err := filepath.Abs(w.cfg.ProjectPath)
	if err != nil {
		result.AddWarning(fmt.Sprintf("project path not resolvable locally: %v", err))
		w.out.Warning("Cannot resolve %s locally, the server may still accept it", w.cfg.ProjectPath)
		return nil
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		result.AddWarning(fmt.Sprintf("project path not a local directory: %s", root))
		w.out.Warning("%s is not a directory here, the server may still accept it", root)
		return nil
	}

	seen := make(map[string]bool)
	for _, pattern := range config.DefaultIncludePatterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
		if err != nil {
			w.logger.Debug("Include pattern failed", slog.String("pattern", pattern), slog.String("error", err.Error()))
			continue
		}
		for _, match := range matches {
			rel, err := filepath.Rel(root, match)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if blacklisted(rel) || ignored(rel) || seen[rel] {
				continue
			}
			seen[rel] = true
		}
	}

	result.SetMetric("preflight_files", len(seen))
	if len(seen) == 0 {
		result.AddWarning(fmt.Sprintf("no files under %s match the include patterns", root))
		w.out.Warning("No candidate files under %s, analysis will likely be empty", root)
		return nil
	}
	w.out.Success("%d candidate file(s) under %s", len(seen), root)
	return nil
}

// blacklisted reports whether any path segment names an excluded directory.
func blacklisted(rel string) bool {
	for _, segment := range strings.Split(rel, "/") {
		for _, dir := range config.DefaultBlacklist {
			if segment == dir {
				return true
			}
		}
	}
	return false
}

// ignored reports whether the path matches an ignore pattern.
func ignored(rel string) bool {
	for _, pattern := range config.DefaultIgnorePatterns {
		if doublestar.MatchUnvalidated(pattern, rel) {
			return true
		}
	}
	return false
}

// stageCreateProject registers the project with the server. A rejection here
// (bad path, unreadable root) is the one the tool exists to surface, so it
// aborts the run with the server's own message.
func (w *Workflow) stageCreateProject(ctx context.Context, result *Result) error {
	req := api.CreateProjectRequest{
		RootPath:        w.cfg.ProjectPath,
		Blacklist:       config.DefaultBlacklist,
		IncludePatterns: config.DefaultIncludePatterns,
		IgnorePatterns:  config.DefaultIgnorePatterns,
	}

	w.out.Info("Creating project for %s", w.cfg.ProjectPath)
	project, err := w.client.CreateProject(ctx, req)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	w.projectID = project.ID
	w.project = project
	result.SetDetail("project_id", project.ID)
	w.out.Success("Project %s created (status %s)", project.ID, project.Status)
	return nil
}

// stageListProjects verifies the new project shows up in the listing.
func (w *Workflow) stageListProjects(ctx context.Context, result *Result) error {
	projects, err := w.client.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	result.SetMetric("projects_listed", len(projects))
	for _, p := range projects {
		if p.ID == w.projectID {
			w.out.Success("Listing has %d project(s), including ours", len(projects))
			return nil
		}
	}
	return fmt.Errorf("created project %s missing from listing of %d", w.projectID, len(projects))
}

// stageGetProject fetches the project by ID.
func (w *Workflow) stageGetProject(ctx context.Context, result *Result) error {
	project, err := w.client.GetProject(ctx, w.projectID)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}

	w.project = project
	result.SetDetail("project_status", project.Status)
	w.out.Success("Fetched project %s (status %s)", project.ID, project.Status)
	if project.Stats != nil {
		w.out.Detail("files: %d, components: %d", project.Stats.TotalFiles, project.Stats.TotalComponents)
	}
	return nil
}

// stageAnalyze subscribes to the project's push updates, starts the analysis
// job, and polls until the project leaves the analyzing state or the poll
// ceiling is reached. The server owns the status enumeration, so any terminal
// status ends the wait; only analyzed counts as a clean finish. Individual
// poll fetch failures are transient noise and do not break the wait. The
// subscription is released on every exit path.
func (w *Workflow) stageAnalyze(ctx context.Context, result *Result) error {
	if w.connected {
		if err := w.listener.Subscribe(w.projectID); err != nil {
			result.AddWarning(fmt.Sprintf("subscribe failed: %v", err))
			w.out.Warning("Subscribe failed, continuing without live updates")
		} else {
			w.subscribed = true
			w.out.Info("Subscribed to project updates")
		}
	}
	defer w.unsubscribe()

	if err := w.client.StartAnalysis(ctx, w.projectID); err != nil {
		return fmt.Errorf("start analysis: %w", err)
	}

	window := time.Duration(w.cfg.PollLimit) * w.cfg.PollInterval
	w.out.Info("Analysis started, waiting up to %s", window)

	for i := 0; i < w.cfg.PollLimit; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("analysis wait canceled: %w", ctx.Err())
		case <-time.After(w.cfg.PollInterval):
		}

		project, err := w.client.GetProject(ctx, w.projectID)
		if err != nil {
			w.logger.Debug("Poll fetch failed", slog.Int("poll", i+1), slog.String("error", err.Error()))
			continue
		}
		if project.Status == api.StatusAnalyzing {
			continue
		}

		w.project = project
		result.SetDetail("project_status", project.Status)
		result.SetMetric("analysis_polls", i+1)
		if project.Status != api.StatusAnalyzed {
			result.AddWarning(fmt.Sprintf("analysis ended with status %s", project.Status))
			w.out.Warning("Analysis ended with status %s after %d poll(s)", project.Status, i+1)
			return nil
		}
		w.out.Success("Analysis complete after %d poll(s)", i+1)
		if project.Stats != nil {
			result.SetMetric("analyzed_files", project.Stats.AnalyzedFiles)
			result.SetMetric("total_components", project.Stats.TotalComponents)
			w.out.Detail("analyzed %d of %d file(s), %d component(s)",
				project.Stats.AnalyzedFiles, project.Stats.TotalFiles, project.Stats.TotalComponents)
		}
		return nil
	}

	result.AddWarning(fmt.Sprintf("analysis did not complete within %s", window))
	w.out.Warning("Analysis still running after %d poll(s), moving on", w.cfg.PollLimit)
	return nil
}

// stageMigrationRules lists the transformation rules the server offers.
func (w *Workflow) stageMigrationRules(ctx context.Context, result *Result) error {
	rules, err := w.client.MigrationRules(ctx)
	if err != nil {
		return fmt.Errorf("fetch migration rules: %w", err)
	}

	result.SetMetric("migration_rules", len(rules))
	w.out.Success("%d migration rule(s) available", len(rules))
	for _, rule := range rules {
		w.out.Detail("%s: %s", rule.Name, rule.Description)
	}
	return nil
}

// stageSummary drains the push queue and records the per-type tally.
func (w *Workflow) stageSummary(_ context.Context, result *Result) error {
	msgs := w.listener.Drain()
	counts := events.CountByType(msgs)
	result.SetMessages(counts)

	w.out.Info("Collected %d push message(s) during the run", len(msgs))
	if w.subscribed && len(msgs) == 0 {
		result.AddWarning("subscribed but no push messages arrived")
		w.out.Warning("Subscribed but the server pushed nothing")
	}
	return nil
}
