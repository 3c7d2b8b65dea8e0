// Package server exposes conversions and settings over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zh1zunbao/makritup/internal/config"
	"github.com/zh1zunbao/makritup/internal/converter"
	"github.com/zh1zunbao/makritup/internal/errs"
)

// Server converts request bodies with the settings held in its store.
type Server struct {
	store  *config.Store
	logger *slog.Logger
	opts   []converter.Option
}

// New returns a server. opts are passed to every pipeline it builds.
func New(store *config.Store, logger *slog.Logger, opts ...converter.Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, logger: logger, opts: opts}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/convert", s.handleConvert)
	r.Get("/config", s.handleGetConfig)
	r.Put("/config", s.handlePutConfig)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleConvert converts the raw request body. The optional filename query
// parameter is used for extension fallback.
// POST /convert?filename=report.docx
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Snapshot()

	body := io.Reader(r.Body)
	if cfg.MaxFileSize > 0 {
		body = io.LimitReader(r.Body, cfg.MaxFileSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	filename := r.URL.Query().Get("filename")
	md, err := converter.New(cfg, append([]converter.Option{converter.WithLogger(s.logger)}, s.opts...)...).
		Convert(r.Context(), converter.RawDocument{Data: data, Path: filename})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("conversion failed", "filename", filename,
				"request_id", middleware.GetReqID(r.Context()), "error", err)
		}
		writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, md)
}

// GET /config
func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Redacted())
}

// settingsUpdate lists the fields a client may change; absent fields keep
// their current value. The image directory is fixed at startup.
type settingsUpdate struct {
	ImageNaming *string   `json:"image_naming"`
	AI          *aiUpdate `json:"ai"`
	SpeechModel *string   `json:"speech_model"`
	MaxFileSize *int64    `json:"max_file_size"`
	Workers     *int      `json:"workers"`
}

type aiUpdate struct {
	APIKey   *string `json:"api_key"`
	Endpoint *string `json:"endpoint"`
	Model    *string `json:"model"`
}

// errEndpointWithoutKey rejects redirecting the stored credential to
// another host.
var errEndpointWithoutKey = errors.New("ai.endpoint can only be changed together with ai.api_key")

func (u settingsUpdate) validate() error {
	if u.AI != nil && u.AI.Endpoint != nil && u.AI.APIKey == nil {
		return errEndpointWithoutKey
	}
	return nil
}

func (u settingsUpdate) apply(c *config.Config) {
	set(&c.ImageNaming, u.ImageNaming)
	set(&c.SpeechModel, u.SpeechModel)
	set(&c.MaxFileSize, u.MaxFileSize)
	set(&c.Workers, u.Workers)
	if u.AI != nil {
		set(&c.AI.APIKey, u.AI.APIKey)
		set(&c.AI.Endpoint, u.AI.Endpoint)
		set(&c.AI.Model, u.AI.Model)
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// PUT /config
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var u settingsUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := u.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := s.store.Update(u.apply)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Info("settings updated", "image_naming", cfg.ImageNaming, "ai_endpoint", cfg.AI.Endpoint)
	writeJSON(w, http.StatusOK, cfg.Redacted())
}

func statusFor(err error) int {
	var (
		unsupported *errs.UnsupportedFormatError
		container   *errs.ContainerError
		document    *errs.DocumentParseError
		slide       *errs.SlideParseError
	)
	switch {
	case errors.Is(err, errs.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &container), errors.As(err, &document), errors.As(err, &slide):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
