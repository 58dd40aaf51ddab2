// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/titlepack/titlepack/lib/archive"
	"github.com/titlepack/titlepack/lib/bundle"
	"github.com/titlepack/titlepack/lib/clock"
	"github.com/titlepack/titlepack/lib/codec"
	"github.com/titlepack/titlepack/lib/metrics"
	"github.com/titlepack/titlepack/lib/netutil"
	"github.com/titlepack/titlepack/lib/ratelimit"
	"github.com/titlepack/titlepack/lib/title"
)

const (
	allowMethods  = "GET, OPTIONS"
	allowHeaders  = "Content-Type, Accept, If-None-Match"
	exposeHeaders = "Content-Disposition, ETag, Retry-After"
)

// RelayConfig configures a Relay.
type RelayConfig struct {
	// Source serves metadata, tickets, and content. Required.
	Source bundle.Source

	// Layout decodes metadata records. Zero means title.DefaultLayout.
	Layout title.Layout

	// DefaultFormat is used when a download names no format.
	DefaultFormat archive.Format

	// ZipMethod selects store or deflate for zip archives.
	ZipMethod archive.ZipMethod

	// AllowOrigin is sent as Access-Control-Allow-Origin. Empty means "*".
	AllowOrigin string

	// Limiter is optional; nil disables rate limiting.
	Limiter *ratelimit.Limiter

	// Metrics is required.
	Metrics *metrics.Metrics

	// Clock stamps archive entries and times requests. Defaults to the
	// real clock.
	Clock clock.Clock

	// Logger is required.
	Logger *slog.Logger
}

// Relay is the HTTP surface over the assembler and describer.
type Relay struct {
	assembler      *bundle.Assembler
	describer      *bundle.Describer
	defaultFormat  archive.Format
	archiveOptions archive.Options
	allowOrigin    string
	limiter        *ratelimit.Limiter
	metrics        *metrics.Metrics
	clock          clock.Clock
	logger         *slog.Logger
}

// NewRelay builds a Relay. Panics if Source, Metrics, or Logger is nil.
func NewRelay(config RelayConfig) *Relay {
	if config.Source == nil {
		panic("Relay: Source is required")
	}
	if config.Metrics == nil {
		panic("Relay: Metrics is required")
	}
	if config.Logger == nil {
		panic("Relay: Logger is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.AllowOrigin == "" {
		config.AllowOrigin = "*"
	}
	return &Relay{
		assembler: &bundle.Assembler{
			Source:  config.Source,
			Layout:  config.Layout,
			Logger:  config.Logger,
			Metrics: config.Metrics,
		},
		describer: &bundle.Describer{
			Source: config.Source,
			Layout: config.Layout,
			Logger: config.Logger,
		},
		defaultFormat: config.DefaultFormat,
		archiveOptions: archive.Options{
			ZipMethod: config.ZipMethod,
			Clock:     config.Clock,
		},
		allowOrigin: config.AllowOrigin,
		limiter:     config.Limiter,
		metrics:     config.Metrics,
		clock:       config.Clock,
		logger:      config.Logger,
	}
}

// Handler returns the relay's routes.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/download", r.instrument("download", r.serveDownload))
	mux.Handle("/info", r.instrument("info", r.serveInfo))
	mux.Handle("GET /metrics", r.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
		writer.Write([]byte("ok\n"))
	})
	return mux
}

func (r *Relay) serveDownload(writer http.ResponseWriter, request *http.Request) {
	if !r.preflight(writer, request) || !r.admit(writer, request) {
		return
	}
	query := request.URL.Query()

	id, version, ok := r.parseTitle(writer, query.Get("tid"), query.Get("ver"))
	if !ok {
		return
	}
	format := r.defaultFormat
	if name := query.Get("format"); name != "" {
		parsed, err := archive.ParseFormat(name)
		if err != nil {
			writeError(writer, http.StatusBadRequest, err.Error())
			return
		}
		format = parsed
	}
	logger := r.logger.With("title_id", id.String(), "version", version.String(), "format", format.String())

	finish := r.metrics.AssemblyStarted()
	prepared, err := r.assembler.Prepare(request.Context(), bundle.Request{ID: id, Version: version})
	if err != nil {
		finish("rejected")
		r.writeFailure(writer, logger, err)
		return
	}
	sink, err := archive.New(format, writer, r.archiveOptions)
	if err != nil {
		finish("rejected")
		r.writeFailure(writer, logger, err)
		return
	}

	header := writer.Header()
	header.Set("Content-Type", format.ContentType())
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": bundle.ArchiveFileName(id, version, format),
	}))
	header.Set("X-Content-Bytes", strconv.FormatUint(prepared.ContentBytes(), 10))
	writer.WriteHeader(http.StatusOK)
	if err := http.NewResponseController(writer).Flush(); err != nil {
		logger.Debug("flushing download headers failed", "error", err)
	}

	result, err := prepared.Write(request.Context(), sink)
	if err != nil {
		finish("aborted")
		if netutil.IsExpectedCloseError(err) {
			logger.Info("client went away during download", "error", err)
		} else {
			logger.Error("download aborted after headers were sent", "error", err)
		}
		panic(http.ErrAbortHandler)
	}
	finish("ok")
	logger.Info("download complete", "entries", len(result.Entries), "bytes", result.Bytes)
}

func (r *Relay) serveInfo(writer http.ResponseWriter, request *http.Request) {
	if !r.preflight(writer, request) || !r.admit(writer, request) {
		return
	}
	query := request.URL.Query()

	id, version, ok := r.parseTitle(writer, query.Get("tid"), query.Get("ver"))
	if !ok {
		return
	}
	logger := r.logger.With("title_id", id.String(), "version", version.String())

	description, err := r.describer.Describe(request.Context(), id, version)
	if err != nil {
		r.writeFailure(writer, logger, err)
		return
	}

	etag := description.ETag()
	header := writer.Header()
	header.Set("ETag", etag)
	header.Set("Vary", "Accept")
	if etagMatches(request.Header.Get("If-None-Match"), etag) {
		writer.WriteHeader(http.StatusNotModified)
		return
	}

	encoding := codec.Negotiate(request.Header.Get("Accept"))
	header.Set("Content-Type", encoding.ContentType())
	writer.WriteHeader(http.StatusOK)
	if err := codec.Encode(writer, encoding, description); err != nil {
		logger.Warn("writing description failed", "encoding", encoding.String(), "error", err)
	}
}

// preflight sets the CORS headers and answers OPTIONS and unsupported
// methods. It returns false when the request has been fully handled.
func (r *Relay) preflight(writer http.ResponseWriter, request *http.Request) bool {
	header := writer.Header()
	header.Set("Access-Control-Allow-Origin", r.allowOrigin)
	header.Set("Access-Control-Allow-Methods", allowMethods)
	header.Set("Access-Control-Allow-Headers", allowHeaders)
	header.Set("Access-Control-Expose-Headers", exposeHeaders)

	switch request.Method {
	case http.MethodGet:
		return true
	case http.MethodOptions:
		writer.WriteHeader(http.StatusOK)
		return false
	default:
		header.Set("Allow", allowMethods)
		writeError(writer, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
}

// admit applies the per-client rate limit. It returns false after
// writing a 429 response.
func (r *Relay) admit(writer http.ResponseWriter, request *http.Request) bool {
	key := ratelimit.ClientKey(request)
	if r.limiter.Allow(key) {
		return true
	}
	r.metrics.RateLimited()
	if wait := r.limiter.RetryAfter(key); wait > 0 {
		writer.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
	}
	r.logger.Warn("request rate limited", "client", key, "path", request.URL.Path)
	writeError(writer, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func (r *Relay) parseTitle(writer http.ResponseWriter, tid, ver string) (title.Identifier, bundle.Version, bool) {
	id, err := title.ParseIdentifier(tid)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "tid must be 16 hexadecimal digits")
		return title.Identifier{}, bundle.Version{}, false
	}
	version, err := bundle.ParseVersion(ver)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "ver must be a decimal number between 0 and 65535")
		return title.Identifier{}, bundle.Version{}, false
	}
	return id, version, true
}

// writeFailure maps an error raised before any body bytes were written
// to a status code.
func (r *Relay) writeFailure(writer http.ResponseWriter, logger *slog.Logger, err error) {
	status := failureStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Info("request rejected", "status", status, "error", err)
	}
	writeError(writer, status, err.Error())
}

func failureStatus(err error) int {
	switch {
	case errors.Is(err, title.ErrInvalidIdentifier), errors.Is(err, bundle.ErrInvalidVersion):
		return http.StatusBadRequest
	case errors.Is(err, bundle.ErrMetadataUnavailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// etagMatches implements the weak comparison If-None-Match uses.
func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

func writeError(writer http.ResponseWriter, status int, message string) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(map[string]string{"error": message})
}

// instrument records the status and duration of every request to an
// endpoint, including aborted downloads.
func (r *Relay) instrument(endpoint string, handler http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := r.clock.Now()
		recorder := &statusRecorder{ResponseWriter: writer}
		defer func() {
			r.metrics.ObserveRequest(endpoint, recorder.statusCode(), clock.Since(r.clock, start))
		}()
		handler(recorder, request)
	})
}

// statusRecorder captures the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
