package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/search"
)

// ErrNoQuery is recorded on tasks without a search query.
var ErrNoQuery = errors.New("no search query provided")

// Researcher defaults.
const (
	DefaultMaxSourcesPerTask = 3
	DefaultMaxResults        = 5
	DefaultSearchRateLimit   = 60
	DefaultSearchRetries     = 3
	DefaultSearchRetryDelay  = time.Second
	maxSearchRetryDelay      = 10 * time.Second
)

// ResearcherConfig configures a WebResearcher.
type ResearcherConfig struct {
	Logger            *slog.Logger
	Depth             string
	MaxSourcesPerTask int
	MaxResults        int
	Retry             common.RetryOptions // applies to rate-limited searches only
	RateLimit         int                 // searches per minute
}

// WebResearcher runs each task's query through a search client, one task at a
// time.
type WebResearcher struct {
	client     search.Client
	limiter    *common.RateLimiter
	logger     *slog.Logger
	retry      common.RetryOptions
	depth      string
	maxSources int
	maxResults int
}

// NewWebResearcher creates a researcher over client. Call Close to stop its
// rate limiter.
func NewWebResearcher(client search.Client, cfg ResearcherConfig) *WebResearcher {
	if cfg.MaxSourcesPerTask <= 0 {
		cfg.MaxSourcesPerTask = DefaultMaxSourcesPerTask
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultSearchRateLimit
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = DefaultSearchRetries
	}
	if cfg.Retry.InitialDelay <= 0 {
		cfg.Retry.InitialDelay = DefaultSearchRetryDelay
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = max(maxSearchRetryDelay, cfg.Retry.InitialDelay)
	}

	return &WebResearcher{
		client:     client,
		limiter:    common.NewRateLimiter(cfg.RateLimit, 1),
		logger:     common.OrDefault(cfg.Logger).With("stage", "research"),
		retry:      cfg.Retry,
		depth:      cfg.Depth,
		maxSources: cfg.MaxSourcesPerTask,
		maxResults: cfg.MaxResults,
	}
}

// ResearchAll implements Researcher. Failed tasks are recorded with status
// error; only cancellation fails the whole stage.
func (w *WebResearcher) ResearchAll(ctx context.Context, tasks []ResearchTask, onSubProgress SubProgressFunc) Outcome[Research] {
	research := Research{Results: make([]TaskResult, 0, len(tasks))}

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return Failed[Research](fmt.Errorf("research interrupted after %d of %d tasks: %w", i, len(tasks), err))
		}

		if onSubProgress != nil {
			onSubProgress(i+1, len(tasks), task.Query)
		}

		result, err := w.researchOne(ctx, task)
		if err != nil {
			return Failed[Research](err)
		}
		research.Results = append(research.Results, result)
	}

	w.logger.Info("research complete",
		"tasks", len(research.Results),
		"successful", research.Successful(),
		"failed", research.Failed(),
		"sources", len(research.Sources()))

	return OK(research)
}

// researchOne returns an error only when ctx is done.
func (w *WebResearcher) researchOne(ctx context.Context, task ResearchTask) (TaskResult, error) {
	if task.Query == "" {
		return w.failedTask(task, ErrNoQuery), nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return TaskResult{}, err
	}

	resp, err := w.search(ctx, search.Query{
		Text:       task.Query,
		Depth:      w.depth,
		MaxResults: w.maxResults,
	})
	if err != nil {
		if ctx.Err() != nil {
			return TaskResult{}, fmt.Errorf("research interrupted: %w", ctx.Err())
		}
		return w.failedTask(task, err), nil
	}

	results := resp.Results
	if len(results) > w.maxSources {
		results = results[:w.maxSources]
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "Unknown"
		}
		sources = append(sources, Source{
			Title:   title,
			URL:     r.URL,
			Snippet: clip(r.Content, SourceSnippetLimit),
			Score:   r.Score,
			Query:   task.Query,
			TaskID:  task.ID,
		})
	}

	w.logger.Debug("task researched", "task_id", task.ID, "sources", len(sources))

	return TaskResult{
		TaskID:  task.ID,
		Type:    task.Type,
		Query:   task.Query,
		Status:  StatusSuccess,
		Answer:  resp.Answer,
		Sources: sources,
	}, nil
}

// search retries rate-limited searches with backoff. Other errors return at
// once.
func (w *WebResearcher) search(ctx context.Context, q search.Query) (search.Response, error) {
	var resp search.Response
	err := common.WithRetry(ctx, func() error {
		var searchErr error
		resp, searchErr = w.client.Search(ctx, q)
		if searchErr != nil && !errors.Is(searchErr, common.ErrRateLimit) {
			return &common.RetryableError{Err: searchErr, Retryable: false}
		}
		return searchErr
	}, w.retry)
	return resp, err
}

func (w *WebResearcher) failedTask(task ResearchTask, err error) TaskResult {
	taskErr := &common.PartialTaskError{TaskID: task.ID, Query: task.Query, Err: err}
	w.logger.Warn("research task failed", "task_id", task.ID, "query", task.Query, "error", err)

	return TaskResult{
		TaskID:  task.ID,
		Type:    task.Type,
		Query:   task.Query,
		Status:  StatusError,
		Error:   err.Error(),
		Sources: []Source{},
		Err:     taskErr,
	}
}

// Digest implements Researcher.
func (w *WebResearcher) Digest(research Research) string {
	return ResearchDigest(research)
}

// Close stops the rate limiter.
func (w *WebResearcher) Close() {
	w.limiter.Close()
}
