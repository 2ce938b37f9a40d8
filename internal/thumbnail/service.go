// Package thumbnail renders a single video frame as a still image.
//
// Service.Render drives one request through the pipeline:
//
//  1. fetch the video (fatal when absent) and, if requested, the subtitle
//     bitmap (degrades to no overlay when absent or unreadable)
//  2. decode one frame
//  3. resolve source geometry, let the subtitle override it, resolve the target
//  4. resolve colorimetry and range, note HDR10 side data
//  5. convert, resample and composite
//  6. encode
//
// Every acquired resource is released before Render returns.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/maauso/framethumb/internal/colorimetry"
	"github.com/maauso/framethumb/internal/geometry"
	"github.com/maauso/framethumb/internal/media"
	"github.com/maauso/framethumb/internal/metrics"
	"github.com/maauso/framethumb/internal/render"
	"github.com/maauso/framethumb/internal/storage"
)

// Result is a rendered thumbnail.
type Result struct {
	Data   []byte
	Format render.Format
	// Source is the display geometry the frame was composited at.
	Source geometry.Source
	Target geometry.Target
	// Color is the resolved colorimetry.
	Color colorimetry.Tags
	Range colorimetry.Range
	// HDR10 reports HDR10 side data on the frame. No tone mapping is applied.
	HDR10 bool
	// Subtitle is non-empty when a requested subtitle was not drawn.
	Subtitle SubtitleIssue
}

// Service renders thumbnails.
type Service struct {
	store      storage.Storage
	decoder    media.Decoder
	subtitles  media.SubtitleDecoder
	compositor *render.Compositor
	slots      *semaphore.Weighted
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSubtitleDecoder sets the subtitle bitmap decoder.
func WithSubtitleDecoder(d media.SubtitleDecoder) Option {
	return func(s *Service) {
		if d != nil {
			s.subtitles = d
		}
	}
}

// WithCompositor sets the compositor, and with it the resampling filter.
func WithCompositor(c *render.Compositor) Option {
	return func(s *Service) {
		if c != nil {
			s.compositor = c
		}
	}
}

// WithMaxConcurrentRenders bounds the number of renders running at once.
// Callers beyond the bound wait for a slot or for their context to end.
func WithMaxConcurrentRenders(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewService creates a new Service.
func NewService(store storage.Storage, decoder media.Decoder, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:      store,
		decoder:    decoder,
		subtitles:  media.ImageSubtitleDecoder{},
		compositor: render.NewCompositor(render.CatmullRom{}),
		slots:      semaphore.NewWeighted(int64(runtime.NumCPU())),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render produces the thumbnail described by req.
// Failures are returned as *Error; subtitle problems are reported in
// Result.Subtitle instead.
func (s *Service) Render(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := s.logger.With(
		slog.String("asset_id", req.AssetID),
		slog.String("format", req.Format.String()),
	)

	if err := s.slots.Acquire(ctx, 1); err != nil {
		metrics.RendersTotal.WithLabelValues(req.Format.String(), Unavailable.String()).Inc()
		return nil, &Error{Kind: Unavailable, Op: "wait for render slot", Err: err}
	}
	defer s.slots.Release(1)
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	res, err := s.render(ctx, req, log)
	if err != nil {
		kind := KindOf(err)
		metrics.RendersTotal.WithLabelValues(req.Format.String(), kind.String()).Inc()
		level := slog.LevelError
		if kind == InvalidRequest || kind == NotFound || kind == Unavailable {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "render failed",
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	metrics.RendersTotal.WithLabelValues(req.Format.String(), "ok").Inc()
	metrics.OutputBytes.WithLabelValues(req.Format.String()).Observe(float64(len(res.Data)))
	log.Info("thumbnail rendered",
		slog.Int("width", res.Target.Width),
		slog.Int("height", res.Target.Height),
		slog.Int("bytes", len(res.Data)),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (s *Service) render(ctx context.Context, req Request, log *slog.Logger) (*Result, error) {
	stage := time.Now()
	video, err := s.store.Fetch(ctx, VideoKey(req.AssetID))
	if err != nil {
		return nil, fetchError(err)
	}
	defer closeLogged(log, "video", video)

	overlay, issue := s.loadSubtitle(ctx, req, log)
	defer overlay.Release()
	observe("fetch", stage)

	stage = time.Now()
	frame, err := s.decoder.Decode(ctx, video.Path, media.DecodeOptions{
		FrameIndex: req.FrameIndex,
		X264Build:  req.X264Build,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Kind: Unavailable, Op: "decode", Err: err}
		}
		return nil, &Error{Kind: DecodeFailure, Op: "decode", Err: err}
	}
	defer frame.Release()
	observe("decode", stage)

	src := geometry.ResolveSource(frame.Width, frame.Height, frame.SAR)
	if reconciled := render.Reconcile(src, overlay); reconciled != src {
		log.Debug("subtitle overrides source geometry",
			slog.Int("computed_width", src.Width),
			slog.Int("computed_height", src.Height),
			slog.Int("subtitle_width", reconciled.Width),
			slog.Int("subtitle_height", reconciled.Height),
		)
		src = reconciled
	}
	target := geometry.ResolveTarget(src, req.Constraint)

	color := colorimetry.Resolve(frame.Color, frame.Width, frame.Height)
	rng := colorimetry.ResolveRange(frame.Range, color.Matrix)
	hdr := colorimetry.DetectHDR10(frame.Mastering, frame.Light)
	if hdr {
		metrics.HDR10Frames.Inc()
		log.Info("HDR10 frame rendered without tone mapping",
			slog.String("transfer", string(color.Transfer)),
		)
	}
	log.Debug("frame resolved",
		slog.String("codec", frame.Codec),
		slog.String("pix_fmt", frame.PixFmt),
		slog.String("sar", frame.SAR.String()),
		slog.String("matrix", string(color.Matrix)),
		slog.String("primaries", string(color.Primaries)),
		slog.String("transfer", string(color.Transfer)),
		slog.String("range", string(rng)),
	)

	stage = time.Now()
	img, err := s.compositor.Compose(render.Job{
		Frame:   frame.Image,
		Color:   color,
		Range:   rng,
		Source:  src,
		Target:  target,
		Overlay: overlay,
	})
	if err != nil {
		return nil, &Error{Kind: DecodeFailure, Op: "compose", Err: err}
	}
	observe("compose", stage)

	stage = time.Now()
	var buf bytes.Buffer
	if err := render.Encode(&buf, img, req.Format); err != nil {
		return nil, &Error{Kind: EncodeFailure, Op: "encode", Err: err}
	}
	observe("encode", stage)

	return &Result{
		Data:     buf.Bytes(),
		Format:   req.Format,
		Source:   src,
		Target:   target,
		Color:    color,
		Range:    rng,
		HDR10:    hdr,
		Subtitle: issue,
	}, nil
}

// loadSubtitle returns the decoded overlay or the reason it is unavailable.
func (s *Service) loadSubtitle(ctx context.Context, req Request, log *slog.Logger) (*media.Overlay, SubtitleIssue) {
	if req.Subtitle == nil {
		return nil, SubtitleNone
	}
	key := SubtitleKey(req.AssetID, *req.Subtitle)

	overlay, err := s.decodeSubtitle(ctx, key)
	if err == nil {
		return overlay, SubtitleNone
	}

	issue := SubtitleInvalid
	if errors.Is(err, storage.ErrNotFound) {
		issue = SubtitleMissing
	}
	metrics.SubtitleDegraded.WithLabelValues(string(issue)).Inc()
	log.Warn("rendering without subtitle",
		slog.String("key", key),
		slog.String("reason", string(issue)),
		slog.String("error", err.Error()),
	)
	return nil, issue
}

func (s *Service) decodeSubtitle(ctx context.Context, key string) (*media.Overlay, error) {
	f, err := s.store.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return s.subtitles.DecodeSubtitle(r)
}

// fetchError classifies a video fetch failure. Anything but absence or a bad
// key is treated as the storage backend being unavailable.
func fetchError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Kind: NotFound, Op: "fetch video", Err: err}
	case errors.Is(err, storage.ErrInvalidKey):
		return &Error{Kind: InvalidRequest, Op: "fetch video", Err: err}
	default:
		return &Error{Kind: Unavailable, Op: "fetch video", Err: err}
	}
}

func closeLogged(log *slog.Logger, what string, f *storage.File) {
	if err := f.Close(); err != nil {
		log.Warn("failed to release file",
			slog.String("file", what),
			slog.String("error", err.Error()),
		)
	}
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
