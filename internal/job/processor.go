package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/foxseedlab/segscribe/internal/audio"
	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/foxseedlab/segscribe/internal/discord"
	"github.com/foxseedlab/segscribe/internal/events"
	"github.com/foxseedlab/segscribe/internal/metrics"
	"github.com/foxseedlab/segscribe/internal/repository"
	"github.com/foxseedlab/segscribe/internal/transcriber"
	"github.com/foxseedlab/segscribe/internal/upload"
	"github.com/foxseedlab/segscribe/internal/webhook"
	"golang.org/x/sync/errgroup"
)

const notifyTimeout = 30 * time.Second

type Segmenter interface {
	Segment(ctx context.Context, path string) (audio.SegmentSet, error)
}

type Input struct {
	// Path is the media file to transcribe.
	Path string
	// Filename is the sanitized name the transcript file is derived from.
	Filename string
}

type Output struct {
	JobID             string
	Text              string
	ResultFilename    string
	ResultPath        string
	SegmentCount      int
	EmptySegmentCount int
	DroppedTailMs     int64
}

type Processor struct {
	cfg         *config.Config
	segmenter   Segmenter
	transcriber transcriber.Transcriber
	repo        repository.Repository
	webhook     webhook.Sender
	discord     discord.Client
	events      events.Publisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewProcessor(cfg *config.Config, seg Segmenter, stt transcriber.Transcriber, repo repository.Repository, wh webhook.Sender, dc discord.Client, pub events.Publisher, m *metrics.Metrics) *Processor {
	return &Processor{
		cfg:         cfg,
		segmenter:   seg,
		transcriber: stt,
		repo:        repo,
		webhook:     wh,
		discord:     dc,
		events:      pub,
		metrics:     m,
		now:         time.Now,
	}
}

// Process segments the input, transcribes every segment and writes the joined
// transcript to the upload directory. A segment whose retries are exhausted
// contributes no text; a failed segment aborts the whole job.
func (p *Processor) Process(ctx context.Context, in Input) (*Output, error) {
	startedAt := p.now()
	j, err := p.repo.CreateJob(ctx, repository.CreateJobInput{SourceFilename: in.Filename, StartedAt: startedAt})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	log := slog.With("job_id", j.ID, "filename", in.Filename)
	log.Info("transcription job started")

	set, err := p.segmenter.Segment(ctx, in.Path)
	if err != nil {
		return nil, p.fail(ctx, j, startedAt, err)
	}
	p.metrics.SegmentsProduced.Add(float64(len(set.Segments)))
	if set.DroppedTailMs > 0 {
		p.metrics.TailSegmentsDropped.Inc()
		p.metrics.DroppedAudioSeconds.Add(float64(set.DroppedTailMs) / 1000)
	}

	results, err := p.transcribeAll(ctx, j.ID, set.Segments)
	if err != nil {
		return nil, p.fail(ctx, j, startedAt, err)
	}

	text, empty := joinTranscript(results)
	out := &Output{
		JobID:             j.ID,
		Text:              text,
		ResultFilename:    upload.ResultFilename(in.Filename),
		SegmentCount:      len(set.Segments),
		EmptySegmentCount: empty,
		DroppedTailMs:     set.DroppedTailMs,
	}
	out.ResultPath = filepath.Join(p.cfg.UploadDir, out.ResultFilename)
	if err := os.MkdirAll(p.cfg.UploadDir, 0o755); err != nil {
		return nil, p.fail(ctx, j, startedAt, fmt.Errorf("create upload dir: %w", err))
	}
	if err := os.WriteFile(out.ResultPath, []byte(text), 0o644); err != nil {
		return nil, p.fail(ctx, j, startedAt, fmt.Errorf("write transcript: %w", err))
	}

	endedAt := p.now()
	if err := p.repo.CompleteJob(ctx, repository.CompleteJobInput{
		JobID:             j.ID,
		ResultFilename:    out.ResultFilename,
		EndedAt:           endedAt,
		SegmentCount:      out.SegmentCount,
		EmptySegmentCount: out.EmptySegmentCount,
		DroppedTailMs:     out.DroppedTailMs,
	}); err != nil {
		log.Error("failed to complete job", "error", err)
	}
	p.metrics.Jobs.WithLabelValues(string(repository.JobStatusCompleted)).Inc()
	p.metrics.JobDuration.Observe(endedAt.Sub(startedAt).Seconds())
	log.Info("transcription job completed",
		"segments", out.SegmentCount,
		"empty_segments", out.EmptySegmentCount,
		"dropped_tail_ms", out.DroppedTailMs,
		"result_filename", out.ResultFilename)

	p.notify(ctx, in, out, set.TotalMs, endedAt.Sub(startedAt))
	return out, nil
}

// transcribeAll runs at most TranscribeConcurrency segments at once. Results are
// stored by segment index so the output order never depends on completion order.
func (p *Processor) transcribeAll(ctx context.Context, jobID string, segments []audio.Segment) ([]transcriber.Result, error) {
	results := make([]transcriber.Result, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.TranscribeConcurrency, 1))
	for i, seg := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := p.transcriber.Transcribe(gctx, seg)
			results[i] = res
			p.recordSegment(ctx, jobID, seg, res)
			if res.Status == transcriber.StatusFailed {
				return fmt.Errorf("segment %d: %w", seg.Index, res.Err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Processor) recordSegment(ctx context.Context, jobID string, seg audio.Segment, res transcriber.Result) {
	p.metrics.SegmentResults.WithLabelValues(res.Status.String()).Inc()
	log := slog.With("job_id", jobID, "segment_index", seg.Index, "start_ms", seg.StartMs, "end_ms", seg.EndMs)
	switch res.Status {
	case transcriber.StatusTranscribed:
		log.Info("segment transcribed", "attempts", res.Attempts, "chars", len(res.Text))
	case transcriber.StatusExhausted:
		log.Warn("segment transcription exhausted retries; continuing without text",
			"attempts", res.Attempts, "status_code", res.StatusCode, "error", res.Err)
	case transcriber.StatusFailed:
		log.Error("segment transcription failed", "attempts", res.Attempts, "error", res.Err)
		if errors.Is(res.Err, context.Canceled) {
			return
		}
	}
	if err := p.repo.InsertSegment(ctx, repository.InsertSegmentInput{
		JobID:        jobID,
		SegmentIndex: seg.Index,
		StartMs:      seg.StartMs,
		EndMs:        seg.EndMs,
		Content:      res.Text,
		Status:       res.Status.String(),
		Attempts:     res.Attempts,
	}); err != nil {
		log.Error("failed to insert segment", "error", err)
	}
}

func (p *Processor) fail(ctx context.Context, j *repository.Job, startedAt time.Time, cause error) error {
	endedAt := p.now()
	slog.Error("transcription job failed", "job_id", j.ID, "error", cause)
	if err := p.repo.FailJob(context.WithoutCancel(ctx), repository.FailJobInput{
		JobID:   j.ID,
		EndedAt: endedAt,
		Error:   cause.Error(),
	}); err != nil {
		slog.Error("failed to mark job failed", "job_id", j.ID, "error", err)
	}
	p.metrics.Jobs.WithLabelValues(string(repository.JobStatusFailed)).Inc()
	p.metrics.JobDuration.Observe(endedAt.Sub(startedAt).Seconds())
	p.publish(ctx, events.JobEvent{
		Type:           events.TypeJobFailed,
		JobID:          j.ID,
		SourceFilename: j.SourceFilename,
		DurationMs:     endedAt.Sub(startedAt).Milliseconds(),
		Error:          cause.Error(),
		OccurredAt:     endedAt,
	})
	return cause
}

// notify fans the finished transcript out to the optional channels. Failures are
// logged and counted but never fail the job.
func (p *Processor) notify(ctx context.Context, in Input, out *Output, audioMs int64, took time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	body := []byte(out.Text)
	if err := p.webhook.SendTranscript(ctx, webhook.Transcript{
		JobID:          out.JobID,
		SourceFilename: in.Filename,
		Filename:       out.ResultFilename,
		Body:           body,
		SegmentCount:   out.SegmentCount,
	}); err != nil {
		p.metrics.NotificationErrors.WithLabelValues("webhook").Inc()
		slog.Error("failed to send webhook transcript", "error", err, "job_id", out.JobID)
	}

	if p.discord.Enabled() && p.cfg.DiscordTranscriptChannelID != "" {
		if err := p.discord.SendChannelMessageWithFile(ctx, discord.FileMessage{
			ChannelID: p.cfg.DiscordTranscriptChannelID,
			Content:   transcriptMessage(in.Filename, out.SegmentCount, time.Duration(audioMs)*time.Millisecond),
			Filename:  out.ResultFilename,
			FileBody:  body,
		}); err != nil {
			p.metrics.NotificationErrors.WithLabelValues("discord").Inc()
			slog.Error("failed to post transcript to discord", "error", err, "job_id", out.JobID)
		}
	}

	p.publish(ctx, events.JobEvent{
		Type:              events.TypeJobCompleted,
		JobID:             out.JobID,
		SourceFilename:    in.Filename,
		ResultFilename:    out.ResultFilename,
		SegmentCount:      out.SegmentCount,
		EmptySegmentCount: out.EmptySegmentCount,
		DroppedTailMs:     out.DroppedTailMs,
		DurationMs:        took.Milliseconds(),
		OccurredAt:        p.now(),
	})
}

func (p *Processor) publish(ctx context.Context, e events.JobEvent) {
	if err := p.events.PublishJobEvent(context.WithoutCancel(ctx), e); err != nil {
		p.metrics.NotificationErrors.WithLabelValues("kafka").Inc()
		slog.Error("failed to publish job event", "error", err, "job_id", e.JobID, "type", e.Type)
	}
}
