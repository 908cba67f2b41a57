package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/maauso/thumbembed/internal/metrics"
	"github.com/maauso/thumbembed/internal/thumbnail"
)

// Static errors for the embed service.
var (
	// ErrPublish is returned when the embed succeeded but the S3 upload failed.
	ErrPublish = errors.New("failed to publish video")
	// ErrJobActive is returned when deleting a job that has not finished.
	ErrJobActive = errors.New("job is still active")
)

// Embedder runs a single thumbnail embed.
type Embedder interface {
	Embed(ctx context.Context, req thumbnail.Request) (thumbnail.Result, error)
}

// Publisher uploads a finished video and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, key, localPath string) (string, error)
}

// EmbedInput contains the parameters of one embed request.
type EmbedInput struct {
	VideoPath string
	Image     thumbnail.ImageSource
	Mode      thumbnail.SaveMode
	// PushToS3 uploads the final video after a successful embed.
	PushToS3 bool
}

// EmbedOutput is the result of a successful embed.
type EmbedOutput struct {
	thumbnail.Result
	// VideoURL is set when the video was published.
	VideoURL string
}

// EmbedService runs embeds for the HTTP and CLI front ends and keeps a
// record of background jobs.
//
// Embeds that share a file stem are serialized: they would otherwise race on
// the staging file and on the decoded temp image, both of which are named
// after the stem.
type EmbedService struct {
	repo      Repository
	embedder  Embedder
	publisher Publisher
	logger    *slog.Logger
	s3Prefix  string
	locks     *stemLocks
}

// Option configures an EmbedService.
type Option func(*EmbedService)

// WithS3Prefix sets the key prefix used when publishing videos.
func WithS3Prefix(prefix string) Option {
	return func(s *EmbedService) {
		s.s3Prefix = prefix
	}
}

// NewEmbedService creates a new EmbedService. publisher may be nil when
// publishing is not configured.
func NewEmbedService(repo Repository, embedder Embedder, publisher Publisher, logger *slog.Logger, opts ...Option) *EmbedService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &EmbedService{
		repo:      repo,
		embedder:  embedder,
		publisher: publisher,
		logger:    logger,
		locks:     newStemLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Embed runs one embed synchronously and publishes the result if asked to.
// When only the upload fails, the output is returned together with an
// error matching ErrPublish.
func (s *EmbedService) Embed(ctx context.Context, in EmbedInput) (*EmbedOutput, error) {
	unlock := s.locks.lock(thumbnail.ResolvePaths(in.VideoPath).Stem)
	defer unlock()

	mode := modeName(in.Mode)
	start := time.Now()
	metrics.ActiveEmbeds.Inc()
	defer func() {
		metrics.ActiveEmbeds.Dec()
		metrics.EmbedDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	res, err := s.embedder.Embed(ctx, thumbnail.Request{
		VideoPath: in.VideoPath,
		Image:     in.Image,
		Mode:      in.Mode,
	})
	if err != nil {
		metrics.EmbedsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}
	metrics.EmbedsTotal.WithLabelValues(mode, "ok").Inc()

	out := &EmbedOutput{Result: res}
	if !in.PushToS3 {
		return out, nil
	}

	url, err := s.publish(ctx, res.FinalPath)
	if err != nil {
		metrics.PublishTotal.WithLabelValues("error").Inc()
		s.logger.Error("failed to publish video",
			slog.String("path", res.FinalPath),
			slog.String("error", err.Error()),
		)
		return out, err
	}
	metrics.PublishTotal.WithLabelValues("ok").Inc()
	out.VideoURL = url
	return out, nil
}

func modeName(m thumbnail.SaveMode) string {
	if m == nil {
		return thumbnail.ModeNew
	}
	return m.Name()
}

func (s *EmbedService) publish(ctx context.Context, finalPath string) (string, error) {
	if s.publisher == nil {
		return "", fmt.Errorf("%w: no publisher configured", ErrPublish)
	}
	key := path.Join(s.s3Prefix, filepath.Base(finalPath))
	url, err := s.publisher.Publish(ctx, key, finalPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublish, err)
	}
	s.logger.Info("video published",
		slog.String("key", key),
		slog.String("url", url),
	)
	return url, nil
}

// CreateJob creates a new job and persists it to the repository.
// The job is created in IN_QUEUE status, ready for processing.
func (s *EmbedService) CreateJob(ctx context.Context, in EmbedInput) (*Job, error) {
	job := New()
	job.VideoPath = in.VideoPath
	job.PushToS3 = in.PushToS3
	job.Mode = modeName(in.Mode)

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.String("video", in.VideoPath),
		slog.String("mode", job.Mode),
		slog.Bool("push_to_s3", in.PushToS3),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	return job, nil
}

// ProcessExistingJob runs the embed for a job created by CreateJob and
// records the outcome. The returned error is the embed error, if any.
func (s *EmbedService) ProcessExistingJob(ctx context.Context, jobID string, in EmbedInput) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("start job %s: %w", jobID, err)
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	out, embedErr := s.Embed(ctx, in)
	if out != nil {
		job.OutputPath = out.FinalPath
	}
	if embedErr != nil {
		_ = job.Fail(embedErr.Error())
	} else {
		_ = job.Complete(out.FinalPath, out.Message(), out.VideoURL)
	}

	if err := s.repo.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("job finished",
		slog.String("job_id", job.ID),
		slog.String("status", string(job.GetStatus())),
	)
	return job, embedErr
}

// GetJob retrieves a job by ID.
func (s *EmbedService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all known jobs, oldest first.
func (s *EmbedService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob forgets a finished job. Files on disk are left alone.
func (s *EmbedService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return ErrJobActive
	}
	return s.repo.Delete(ctx, id)
}

// stemLocks hands out one mutex per file stem.
type stemLocks struct {
	mu   sync.Mutex
	held map[string]*stemLock
}

type stemLock struct {
	mu   sync.Mutex
	refs int
}

func newStemLocks() *stemLocks {
	return &stemLocks{held: make(map[string]*stemLock)}
}

// lock blocks until key is free and returns the matching unlock.
func (l *stemLocks) lock(key string) func() {
	l.mu.Lock()
	sl, ok := l.held[key]
	if !ok {
		sl = &stemLock{}
		l.held[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.held, key)
		}
		l.mu.Unlock()
	}
}
