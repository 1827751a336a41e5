// Package proxy is the per-request transcode pipeline and its HTTP surface.
// Each request runs Resolve -> Fetch -> Decode -> Grayscale -> Encode ->
// Respond, terminal on the first failure; the orchestrator owns the mapping
// from pipeline errors to HTTP status codes.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/pixelthin/internal/codec"
	"github.com/dunamismax/pixelthin/internal/domain"
	"github.com/dunamismax/pixelthin/internal/fetch"
	"github.com/dunamismax/pixelthin/internal/id"
	"github.com/dunamismax/pixelthin/internal/resolve"
	"github.com/dunamismax/pixelthin/internal/transform"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Banner is what the browser extension expects from a bare GET / before it
// starts routing image URLs through the proxy.
const Banner = "bandwidth-hero-proxy"

const cacheControl = "public, max-age=31536000"

type imageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type imageCodec interface {
	Decode(data []byte) (image.Image, error)
	Encode(img image.Image, profile domain.EncodingProfile, quality int) (codec.Output, error)
}

type Server struct {
	logger      *log.Logger
	fetcher     imageFetcher
	codec       imageCodec
	profile     domain.EncodingProfile
	rateLimiter RateLimiter
	metrics     *metrics
	tracer      trace.Tracer
	mux         *http.ServeMux
}

func NewServer(logger *log.Logger, fetcher imageFetcher, imgCodec imageCodec, profile domain.EncodingProfile, limiter RateLimiter) *Server {
	s := &Server{
		logger:      logger,
		fetcher:     fetcher,
		codec:       imgCodec,
		profile:     profile,
		rateLimiter: limiter,
		metrics:     newMetrics(),
		tracer:      otel.Tracer("pixelthin/proxy"),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.metrics.withHTTPMetrics(s.withTracing(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handleTranscode)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleTranscode(w http.ResponseWriter, r *http.Request) {
	if len(r.URL.RawQuery) == 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(Banner))
		return
	}

	reqID := id.New()
	started := time.Now()

	ctx := r.Context()

	req, err := resolve.Resolve(r.URL.Query())
	if err != nil {
		s.fail(ctx, w, reqID, "resolve", err)
		return
	}
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("transcode.source_url", req.SourceURL),
		attribute.Int("transcode.quality", req.Quality),
		attribute.Bool("transcode.grayscale", req.Grayscale),
		attribute.String("transcode.format", string(s.profile.Format)),
	)

	source, err := s.fetcher.Fetch(ctx, req.SourceURL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.abandon(reqID, "fetch")
			return
		}
		s.metrics.upstreamFailures.WithLabelValues(fetchFailureReason(err)).Inc()
		s.fail(ctx, w, reqID, "fetch", err)
		return
	}

	img, err := s.codec.Decode(source)
	if err != nil {
		s.fail(ctx, w, reqID, "decode", err)
		return
	}

	// The client may have gone away during the fetch or decode; skip the
	// expensive encode rather than finish wasted work.
	if ctx.Err() != nil {
		s.abandon(reqID, "encode")
		return
	}

	if req.Grayscale {
		img = transform.Grayscale(img)
	}

	out, err := s.codec.Encode(img, s.profile, req.Quality)
	if err != nil {
		s.fail(ctx, w, reqID, "encode", err)
		return
	}

	saved := len(source) - len(out.Bytes)
	if saved < 0 {
		saved = 0
	}

	w.Header().Set("Content-Type", out.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Bytes)))
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("X-Request-ID", reqID)
	w.Header().Set("X-Original-Size", strconv.Itoa(len(source)))
	w.Header().Set("X-Bytes-Saved", strconv.Itoa(saved))
	if s.profile.Format == domain.FormatJXL {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", outputFilename(req.SourceURL, s.profile.Format)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Bytes)

	s.metrics.transcodesTotal.WithLabelValues(string(s.profile.Format), "ok").Inc()
	s.metrics.transcodeDuration.WithLabelValues(string(s.profile.Format)).Observe(time.Since(started).Seconds())
	s.metrics.sourceBytesTotal.Add(float64(len(source)))
	s.metrics.outputBytesTotal.Add(float64(len(out.Bytes)))
	s.metrics.bytesSavedTotal.Add(float64(saved))

	s.logger.Printf("transcoded req_id=%s format=%s quality=%d grayscale=%v in=%d out=%d elapsed=%s",
		reqID, s.profile.Format, req.Quality, req.Grayscale, len(source), len(out.Bytes), time.Since(started).Round(time.Millisecond))
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, reqID, stage string, err error) {
	status, message := statusForError(err)
	s.logger.Printf("transcode failed req_id=%s stage=%s status=%d err=%v", reqID, stage, status, err)
	s.metrics.transcodesTotal.WithLabelValues(string(s.profile.Format), stage+"_failed").Inc()

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Request-ID", reqID)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message + "\n"))
}

func (s *Server) abandon(reqID, stage string) {
	s.logger.Printf("client disconnected req_id=%s stage=%s", reqID, stage)
	s.metrics.transcodesTotal.WithLabelValues(string(s.profile.Format), "abandoned").Inc()
}

// statusForError is the single translation point from pipeline errors to
// HTTP statuses. Resolver problems are the caller's fault, fetch problems
// are the upstream's, corrupt data is treated as an upstream data problem,
// and encoder faults are ours.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, resolve.ErrMissingURL):
		return http.StatusBadRequest, "missing url parameter; use /?url=<image_url>&l=<0-100>&bw=<0|1>"
	case errors.Is(err, resolve.ErrInvalidURL):
		return http.StatusBadRequest, "url parameter must be an absolute http(s) URL"
	case errors.Is(err, fetch.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "upstream image exceeds the size limit"
	case errors.Is(err, fetch.ErrTimeout):
		return http.StatusBadGateway, "timed out fetching the upstream image"
	case errors.Is(err, fetch.ErrUnreachable):
		return http.StatusBadGateway, "could not reach the upstream image"
	case errors.Is(err, codec.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "upstream data is not a supported image format"
	case errors.Is(err, codec.ErrCorrupt):
		return http.StatusBadGateway, "upstream image data is corrupt or truncated"
	case errors.Is(err, codec.ErrEncodeFailure):
		return http.StatusInternalServerError, "image encoding failed"
	default:
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			return http.StatusBadGateway, fmt.Sprintf("upstream returned status %d", statusErr.Code)
		}
		return http.StatusInternalServerError, "internal error"
	}
}

func fetchFailureReason(err error) string {
	switch {
	case errors.Is(err, fetch.ErrTimeout):
		return "timeout"
	case errors.Is(err, fetch.ErrTooLarge):
		return "too_large"
	case errors.Is(err, fetch.ErrUnreachable):
		return "unreachable"
	default:
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			return "status"
		}
		return "other"
	}
}

// outputFilename swaps the source URL's file extension for the target
// format's, e.g. "https://host/photo.jpg" -> "photo.jxl".
func outputFilename(sourceURL string, format domain.Format) string {
	stem := "image"
	if parsed, err := url.Parse(sourceURL); err == nil {
		base := path.Base(parsed.Path)
		if base != "" && base != "." && base != "/" {
			stem = strings.TrimSuffix(base, path.Ext(base))
		}
	}
	return stem + "." + format.Extension()
}
