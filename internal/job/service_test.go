package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/thumbembed/internal/metrics"
	"github.com/maauso/thumbembed/internal/thumbnail"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, req thumbnail.Request) (thumbnail.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(thumbnail.Result), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, key, localPath string) (string, error) {
	args := m.Called(ctx, key, localPath)
	return args.String(0), args.Error(1)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEmbedService(t *testing.T) {
	repo := NewMemoryRepository()

	svc := NewEmbedService(repo, &mockEmbedder{}, nil, nil, WithS3Prefix("covers"))
	require.NotNil(t, svc)
	assert.Equal(t, repo, svc.repo)
	assert.Equal(t, "covers", svc.s3Prefix)
	assert.NotNil(t, svc.logger)
}

func TestEmbedService_Embed(t *testing.T) {
	ctx := context.Background()
	input := EmbedInput{
		VideoPath: "/videos/clip.mp4",
		Image:     thumbnail.FilePath("/images/cover.png"),
		Mode:      thumbnail.SaveAsNew{},
	}
	result := thumbnail.Result{FinalPath: "/videos/clip_thumb.mp4"}

	t.Run("success without publishing", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.On("Embed", mock.Anything, thumbnail.Request{
			VideoPath: input.VideoPath,
			Image:     input.Image,
			Mode:      input.Mode,
		}).Return(result, nil)

		svc := NewEmbedService(NewMemoryRepository(), embedder, nil, quietLogger())
		out, err := svc.Embed(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, result.FinalPath, out.FinalPath)
		assert.Empty(t, out.VideoURL)
		embedder.AssertExpectations(t)
	})

	t.Run("embed error is returned unchanged", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.On("Embed", mock.Anything, mock.Anything).
			Return(thumbnail.Result{}, thumbnail.ErrMissingImageSource)
		publisher := &mockPublisher{}

		svc := NewEmbedService(NewMemoryRepository(), embedder, publisher, quietLogger())
		out, err := svc.Embed(ctx, EmbedInput{VideoPath: input.VideoPath, PushToS3: true})

		assert.Nil(t, out)
		assert.ErrorIs(t, err, thumbnail.ErrMissingImageSource)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publishes under prefix", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.On("Embed", mock.Anything, mock.Anything).Return(result, nil)
		publisher := &mockPublisher{}
		publisher.On("Publish", mock.Anything, "thumbnails/clip_thumb.mp4", result.FinalPath).
			Return("https://bucket.s3.us-east-1.amazonaws.com/thumbnails/clip_thumb.mp4", nil)

		svc := NewEmbedService(NewMemoryRepository(), embedder, publisher, quietLogger(), WithS3Prefix("thumbnails/"))
		input := input
		input.PushToS3 = true
		out, err := svc.Embed(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/thumbnails/clip_thumb.mp4", out.VideoURL)
		publisher.AssertExpectations(t)
	})

	t.Run("publish failure keeps local result", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.On("Embed", mock.Anything, mock.Anything).Return(result, nil)
		publisher := &mockPublisher{}
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("access denied"))

		svc := NewEmbedService(NewMemoryRepository(), embedder, publisher, quietLogger())
		input := input
		input.PushToS3 = true
		out, err := svc.Embed(ctx, input)

		require.ErrorIs(t, err, ErrPublish)
		require.NotNil(t, out)
		assert.Equal(t, result.FinalPath, out.FinalPath)
	})

	t.Run("publish without publisher", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.On("Embed", mock.Anything, mock.Anything).Return(result, nil)

		svc := NewEmbedService(NewMemoryRepository(), embedder, nil, quietLogger())
		input := input
		input.PushToS3 = true
		_, err := svc.Embed(ctx, input)

		assert.ErrorIs(t, err, ErrPublish)
	})
}

func TestEmbedService_RecordsMetrics(t *testing.T) {
	embedder := &mockEmbedder{}
	embedder.On("Embed", mock.Anything, mock.Anything).Return(thumbnail.Result{}, thumbnail.ErrMissingImageSource).Once()
	embedder.On("Embed", mock.Anything, mock.Anything).Return(thumbnail.Result{FinalPath: "/videos/clip.mp4", Overwrote: true}, nil).Once()
	svc := NewEmbedService(NewMemoryRepository(), embedder, nil, quietLogger())

	failed := testutil.ToFloat64(metrics.EmbedsTotal.WithLabelValues("overwrite", "error"))
	succeeded := testutil.ToFloat64(metrics.EmbedsTotal.WithLabelValues("overwrite", "ok"))

	in := EmbedInput{VideoPath: "/videos/clip.mp4", Mode: thumbnail.Overwrite{}}
	_, err := svc.Embed(context.Background(), in)
	require.Error(t, err)
	_, err = svc.Embed(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.EmbedsTotal.WithLabelValues("overwrite", "error")))
	assert.Equal(t, succeeded+1, testutil.ToFloat64(metrics.EmbedsTotal.WithLabelValues("overwrite", "ok")))
}

// blockingEmbedder records how many embeds overlap.
type blockingEmbedder struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (b *blockingEmbedder) Embed(_ context.Context, req thumbnail.Request) (thumbnail.Result, error) {
	n := b.active.Add(1)
	for {
		m := b.maxSeen.Load()
		if n <= m || b.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	b.active.Add(-1)
	return thumbnail.Result{FinalPath: req.VideoPath, Overwrote: true}, nil
}

func TestEmbedService_SerializesSameStem(t *testing.T) {
	embedder := &blockingEmbedder{}
	svc := NewEmbedService(NewMemoryRepository(), embedder, nil, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Embed(context.Background(), EmbedInput{
				VideoPath: "/videos/clip.mp4",
				Image:     thumbnail.FilePath("c.png"),
				Mode:      thumbnail.Overwrite{},
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), embedder.maxSeen.Load())
	assert.Empty(t, svc.locks.held, "locks should be released")
}

func TestEmbedService_Jobs(t *testing.T) {
	ctx := context.Background()
	input := EmbedInput{
		VideoPath: "/videos/clip.mp4",
		Image:     thumbnail.FilePath("/images/cover.png"),
		Mode:      thumbnail.Overwrite{},
	}

	t.Run("create job", func(t *testing.T) {
		svc := NewEmbedService(NewMemoryRepository(), &mockEmbedder{}, nil, quietLogger())

		job, err := svc.CreateJob(ctx, input)
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, StatusInQueue, job.Status)
		assert.Equal(t, "overwrite", job.Mode)

		found, err := svc.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, found.ID)
	})

	t.Run("nil mode is recorded as new", func(t *testing.T) {
		svc := NewEmbedService(NewMemoryRepository(), &mockEmbedder{}, nil, quietLogger())

		job, err := svc.CreateJob(ctx, EmbedInput{VideoPath: "/videos/clip.mp4"})
		require.NoError(t, err)
		assert.Equal(t, "new", job.Mode)
	})

	t.Run("process completes job", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.On("Embed", mock.Anything, mock.Anything).
			Return(thumbnail.Result{FinalPath: "/videos/clip.mp4", Overwrote: true}, nil)
		svc := NewEmbedService(NewMemoryRepository(), embedder, nil, quietLogger())

		job, err := svc.CreateJob(ctx, input)
		require.NoError(t, err)

		done, err := svc.ProcessExistingJob(ctx, job.ID, input)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, done.Status)
		assert.Equal(t, "/videos/clip.mp4", done.OutputPath)
		assert.Contains(t, done.Message, "Thumbnail set successfully!")

		stored, err := svc.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, stored.Status)
	})

	t.Run("process records failure", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.On("Embed", mock.Anything, mock.Anything).
			Return(thumbnail.Result{}, &thumbnail.MuxError{Stderr: "moov atom not found"})
		svc := NewEmbedService(NewMemoryRepository(), embedder, nil, quietLogger())

		job, err := svc.CreateJob(ctx, input)
		require.NoError(t, err)

		done, err := svc.ProcessExistingJob(ctx, job.ID, input)
		require.ErrorIs(t, err, thumbnail.ErrMux)
		assert.Equal(t, StatusFailed, done.Status)
		assert.Contains(t, done.Error, "moov atom not found")
	})

	t.Run("process unknown job", func(t *testing.T) {
		svc := NewEmbedService(NewMemoryRepository(), &mockEmbedder{}, nil, quietLogger())

		_, err := svc.ProcessExistingJob(ctx, "missing", input)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("list and delete", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.On("Embed", mock.Anything, mock.Anything).
			Return(thumbnail.Result{FinalPath: "/videos/clip_thumb.mp4"}, nil)
		svc := NewEmbedService(NewMemoryRepository(), embedder, nil, quietLogger())

		queued, err := svc.CreateJob(ctx, input)
		require.NoError(t, err)
		finished, err := svc.CreateJob(ctx, input)
		require.NoError(t, err)
		_, err = svc.ProcessExistingJob(ctx, finished.ID, input)
		require.NoError(t, err)

		jobs, err := svc.ListJobs(ctx)
		require.NoError(t, err)
		assert.Len(t, jobs, 2)

		assert.ErrorIs(t, svc.DeleteJob(ctx, queued.ID), ErrJobActive)
		require.NoError(t, svc.DeleteJob(ctx, finished.ID))
		assert.ErrorIs(t, svc.DeleteJob(ctx, finished.ID), ErrJobNotFound)
	})
}
