package embedsdk

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultLoadDelay is how long a report takes to signal EventLoaded.
const DefaultLoadDelay = time.Second

// Service embeds reports into containers.
type Service struct {
	renderer  Renderer
	loadDelay time.Duration
	visuals   func() []*Visual
	logger    *slog.Logger

	mu     sync.Mutex
	report *Report
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets the renderer used for embedded reports.
func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithLoadDelay sets the simulated load latency.
func WithLoadDelay(d time.Duration) Option {
	return func(s *Service) { s.loadDelay = d }
}

// WithVisuals overrides the visuals each embedded report starts with.
// The factory is called once per Embed so reports never share state.
func WithVisuals(factory func() []*Visual) Option {
	return func(s *Service) { s.visuals = factory }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service with the default mock visuals.
func NewService(opts ...Option) *Service {
	s := &Service{
		renderer:  listRenderer{},
		loadDelay: DefaultLoadDelay,
		visuals:   DefaultVisuals,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "embedsdk")
	return s
}

// Embed creates a report for cfg and renders it into container.
func (s *Service) Embed(ctx context.Context, container Container, cfg EmbedConfig) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := newReport(cfg, container, s.renderer, s.visuals(), s.loadDelay, s.logger)
	if err := r.Render(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.report = r
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "report embedded", "report_id", cfg.ID, "visuals", len(r.View().Visuals))
	return r, nil
}

// Report returns the most recently embedded report, or nil.
func (s *Service) Report() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}
