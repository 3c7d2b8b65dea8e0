package converter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zh1zunbao/makritup/internal/audio"
	"github.com/zh1zunbao/makritup/internal/config"
	"github.com/zh1zunbao/makritup/internal/errs"
	"github.com/zh1zunbao/makritup/internal/html"
	"github.com/zh1zunbao/makritup/internal/images"
)

// RawDocument is one conversion input. Path is optional and only used for
// extension fallback when sniffing is ambiguous.
type RawDocument struct {
	Data []byte
	Path string
}

// Result is delivered by Go.
type Result struct {
	Markdown string
	FileType FileType
	Err      error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger handed to every converter.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithNamer replaces the image namer selected by the configuration.
func WithNamer(n images.Namer) Option {
	return func(p *Pipeline) { p.namer = n }
}

// WithRecognizer replaces the speech recognizer selected by the configuration.
func WithRecognizer(r audio.Recognizer) Option {
	return func(p *Pipeline) { p.recognizer = r }
}

// Pipeline converts documents with one fixed configuration. It holds no
// per-document state and is safe for concurrent use.
type Pipeline struct {
	cfg        config.Config
	logger     *slog.Logger
	namer      images.Namer
	recognizer audio.Recognizer
	images     *images.Resolver
	html       *html.Converter
}

// New builds a pipeline from cfg. AI image naming and speech recognition
// are enabled by the configuration unless an option supplies them.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.namer == nil && cfg.ImageNaming == config.NamingAI {
		p.namer = images.NewChatNamer(cfg.AI.APIKey, cfg.AI.Endpoint, cfg.AI.Model, cfg.AI.Timeout)
	}
	if p.recognizer == nil && cfg.SpeechModel != "" {
		p.recognizer = audio.NewWhisperRecognizer(cfg.AI.APIKey, cfg.AI.Endpoint, cfg.SpeechModel, cfg.AI.Timeout)
	}
	p.images = &images.Resolver{
		Dir:        cfg.ImageDir,
		OutputPath: cfg.OutputPath,
		Namer:      p.namer,
		Logger:     p.logger,
	}
	p.html = html.New()
	return p
}

// Config returns the settings the pipeline was built with.
func (p *Pipeline) Config() config.Config { return p.cfg }

// Convert detects the format of doc and converts it.
func (p *Pipeline) Convert(ctx context.Context, doc RawDocument) (string, error) {
	md, _, err := p.convert(ctx, doc)
	return md, err
}

func (p *Pipeline) convert(ctx context.Context, doc RawDocument) (string, FileType, error) {
	if len(doc.Data) == 0 {
		return "", "", errs.ErrEmptyInput
	}
	if limit := p.cfg.MaxFileSize; limit > 0 && int64(len(doc.Data)) > limit {
		return "", "", fmt.Errorf("%w: %d bytes, limit %d", errs.ErrTooLarge, len(doc.Data), limit)
	}

	mime := DetectMIME(doc.Data, doc.Path)
	conv, fileType, err := p.GetConverter(mime)
	if err != nil {
		return "", "", err
	}
	p.logger.Debug("converting", "path", doc.Path, "mime", mime, "route", fileType)

	md, err := conv.ToMarkdown(ctx, doc.Data)
	if err != nil {
		return "", fileType, fmt.Errorf("convert %s: %w", fileType, err)
	}
	return md, fileType, nil
}

// Go runs Convert on its own goroutine. The channel receives exactly one
// Result and is then closed.
func (p *Pipeline) Go(ctx context.Context, doc RawDocument) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		md, fileType, err := p.convert(ctx, doc)
		ch <- Result{Markdown: md, FileType: fileType, Err: err}
	}()
	return ch
}
