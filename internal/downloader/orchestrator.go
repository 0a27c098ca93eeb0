// Package downloader drives one download job from request to terminal state:
// slot admission, external tool invocation, progress fan-out, and streaming
// the finished file back to the caller.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dmarceau/streamgate/internal/broadcast"
	"github.com/dmarceau/streamgate/internal/config"
	"github.com/dmarceau/streamgate/internal/constants"
	"github.com/dmarceau/streamgate/internal/domain"
	"github.com/dmarceau/streamgate/internal/gate"
	"github.com/dmarceau/streamgate/internal/logger"
	"github.com/dmarceau/streamgate/internal/progress"
	"github.com/dmarceau/streamgate/internal/registry"
	"github.com/dmarceau/streamgate/internal/storage"
	"github.com/dmarceau/streamgate/internal/tagging"
	"github.com/dmarceau/streamgate/internal/ytdlp"
)

// Runner abstracts the external tool so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, opts ytdlp.Options, onLine func(string)) error
	Probe(ctx context.Context, url string) (*ytdlp.Metadata, error)
}

// Request is one validated download request.
type Request struct {
	URL      string
	FormatID string
}

// AudioOnly reports whether the requested format asks for an mp3 extraction
// instead of a video container.
func (r Request) AudioOnly() bool {
	f := strings.ToLower(r.FormatID)
	return f == "mp3" || f == "audio"
}

type Orchestrator struct {
	cfg      *config.Config
	runner   Runner
	registry *registry.Registry
	hub      *broadcast.Hub
	gate     *gate.Gate
	log      *logger.Logger
}

func New(cfg *config.Config, runner Runner, reg *registry.Registry, hub *broadcast.Hub, g *gate.Gate, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		runner:   runner,
		registry: reg,
		hub:      hub,
		gate:     g,
		log:      log.WithComponent("downloader"),
	}
}

// Create registers a new job for the request. The record exists before slot
// admission so callers can observe and subscribe while the job is queued.
func (o *Orchestrator) Create(req Request) domain.Job {
	job := domain.Job{
		ID:              uuid.New().String(),
		Status:          domain.JobStatusInitializing,
		Stage:           "queued",
		SourceURL:       req.URL,
		RequestedFormat: req.FormatID,
	}
	o.registry.Create(job)
	created, _ := o.registry.Get(job.ID)
	o.hub.Publish(created)
	return created
}

// Run drives the job to a terminal state, streaming the finished file to w.
// The returned bool reports whether any response bytes were written; when it
// is false the caller still owns the response and may write an error body.
func (o *Orchestrator) Run(ctx context.Context, id string, w http.ResponseWriter) (bool, error) {
	job, err := o.registry.Get(id)
	if err != nil {
		return false, err
	}
	log := o.log.WithJob(id)
	req := Request{URL: job.SourceURL, FormatID: job.RequestedFormat}

	if o.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.JobTimeout)
		defer cancel()
	}

	if err := o.gate.Acquire(ctx, id); err != nil {
		o.fail(id, fmt.Sprintf("canceled while queued: %v", err))
		return false, err
	}
	defer o.gate.Release(id)

	o.apply(id, domain.Update{Stage: domain.StringPtr("starting")})
	log.Info("Job admitted", "url", req.URL, "format", req.FormatID)

	// Best-effort title probe for the response filename and tags. A probe
	// failure is not fatal; the job id serves as the fallback name.
	meta := o.probe(ctx, req.URL, log)

	dir := filepath.Join(o.cfg.TmpDir, id)
	if err := storage.EnsureDir(dir); err != nil {
		o.fail(id, fmt.Sprintf("failed to create work dir: %v", err))
		return false, err
	}
	defer func() {
		if err := storage.CleanupDir(dir); err != nil {
			log.Warn("Failed to clean up work dir", "dir", dir, "error", err)
		}
	}()

	opts := ytdlp.Options{
		URL:            req.URL,
		OutputTemplate: filepath.Join(dir, "%(title)s.%(ext)s"),
		LimitRate:      o.gate.PerSlotRate(),
		AudioOnly:      req.AudioOnly(),
	}
	if !req.AudioOnly() && req.FormatID != "" {
		opts.FormatSelector = req.FormatID
	}

	if meta != nil && meta.Title != "" {
		o.apply(id, domain.Update{Title: domain.StringPtr(meta.Title)})
	}

	runErr := o.runner.Run(ctx, opts, func(line string) {
		if upd, ok := progress.Parse(line); ok {
			o.apply(id, upd)
		}
	})
	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			o.fail(id, "download timed out")
		} else {
			o.fail(id, fmt.Sprintf("download failed: %v", runErr))
		}
		return false, runErr
	}

	output, err := o.locateOutput(id, dir)
	if err != nil {
		o.fail(id, fmt.Sprintf("download finished but no output file: %v", err))
		return false, err
	}

	if req.AudioOnly() {
		o.tagAudio(output, meta, log)
	}

	// 100 is reserved for this point: the download itself caps at 99.
	o.apply(id, domain.Update{
		Status:   domain.StatusPtr(domain.JobStatusStreaming),
		Stage:    domain.StringPtr("streaming"),
		Progress: domain.Float64Ptr(100),
	})

	return o.stream(id, output, meta, req.AudioOnly(), w, log)
}

func (o *Orchestrator) probe(ctx context.Context, mediaURL string, log *logger.Logger) *ytdlp.Metadata {
	probeCtx, cancel := context.WithTimeout(ctx, constants.DefaultProbeTimeout)
	defer cancel()

	meta, err := o.runner.Probe(probeCtx, mediaURL)
	if err != nil {
		log.Warn("Metadata probe failed", "error", err)
		return nil
	}
	return meta
}

// locateOutput prefers the path the tool announced; when the tool never
// announced one, the work dir is scanned.
func (o *Orchestrator) locateOutput(id, dir string) (string, error) {
	if job, err := o.registry.Get(id); err == nil && job.OutputPath != "" {
		if _, statErr := os.Stat(job.OutputPath); statErr == nil {
			return job.OutputPath, nil
		}
	}
	return storage.FindOutputFile(dir)
}

func (o *Orchestrator) tagAudio(path string, meta *ytdlp.Metadata, log *logger.Logger) {
	if meta == nil {
		return
	}
	tags := tagging.Meta{
		Title:    meta.Title,
		Artist:   meta.Uploader,
		Duration: int(meta.Duration),
	}
	if err := tagging.TagMP3(path, tags); err != nil {
		log.Warn("Failed to tag audio file", "error", err)
	}
}

func (o *Orchestrator) stream(id, path string, meta *ytdlp.Metadata, audio bool, w http.ResponseWriter, log *logger.Logger) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		o.fail(id, fmt.Sprintf("failed to open output file: %v", err))
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		o.fail(id, fmt.Sprintf("failed to stat output file: %v", err))
		return false, err
	}

	title := id
	if meta != nil && meta.Title != "" {
		title = meta.Title
	}
	w.Header().Set("Content-Type", contentType(audio))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Disposition", contentDisposition(title, id, filepath.Ext(path)))

	written, err := io.Copy(w, f)
	if err != nil {
		o.fail(id, fmt.Sprintf("stream interrupted after %d bytes: %v", written, err))
		return written > 0, err
	}

	o.apply(id, domain.Update{
		Status:   domain.StatusPtr(domain.JobStatusCompleted),
		Stage:    domain.StringPtr("completed"),
		Progress: domain.Float64Ptr(100),
	})
	o.hub.CloseTopic(id)
	log.Info("Job completed", "bytes", written)
	return true, nil
}

// apply routes a partial update through the registry and publishes the
// resulting snapshot. Updates dropped by the registry (terminal or evicted
// jobs) are not published.
func (o *Orchestrator) apply(id string, upd domain.Update) {
	if snapshot, ok := o.registry.Update(id, upd); ok {
		o.hub.Publish(snapshot)
	}
}

func (o *Orchestrator) fail(id, msg string) {
	o.apply(id, domain.Update{
		Status: domain.StatusPtr(domain.JobStatusFailed),
		Stage:  domain.StringPtr("failed"),
		Error:  domain.StringPtr(msg),
	})
	o.hub.CloseTopic(id)
	o.log.WithJob(id).Error("Job failed", "reason", msg)
}

func contentType(audio bool) string {
	if audio {
		return constants.MimeTypeMP3
	}
	return constants.MimeTypeMP4
}

// contentDisposition builds an attachment header with an ASCII fallback name
// plus an RFC 5987 UTF-8 variant for titles that need it.
func contentDisposition(title, fallback, ext string) string {
	if ext == "" {
		ext = constants.ExtMP4
	}
	ascii := storage.ASCIIFilename(title, fallback) + ext
	utf8Name := storage.Sanitize(title)
	if utf8Name == "" {
		utf8Name = fallback
	}
	encoded := url.PathEscape(utf8Name + ext)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, strings.ReplaceAll(ascii, `"`, ""), encoded)
}
