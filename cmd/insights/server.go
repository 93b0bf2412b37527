package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mindburn-Labs/insights/pkg/api"
	"github.com/Mindburn-Labs/insights/pkg/config"
	"github.com/Mindburn-Labs/insights/pkg/dashboard"
	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
	"github.com/Mindburn-Labs/insights/pkg/llm"
	"github.com/Mindburn-Labs/insights/pkg/observability"
	"github.com/Mindburn-Labs/insights/pkg/render"
	"github.com/Mindburn-Labs/insights/pkg/visibility"
)

const shutdownTimeout = 10 * time.Second

// errUpstreamNotConfigured fails every forward when no serving endpoint is set.
var errUpstreamNotConfigured = errors.New("prediction upstream is not configured")

// runServer implements `insights server`.
//
// Exit codes:
//
//	0 = clean shutdown
//	1 = runtime failure
//	2 = config error
func runServer(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("server", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var configPath string
	cmd.StringVar(&configPath, "config", os.Getenv("INSIGHTS_CONFIG"), "Optional YAML config file")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: load config: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: invalid config:\n%v\n", err)
		return 2
	}

	slog.SetDefault(newLogger(stderr, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: listen on %s: %v\n", cfg.Addr(), err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "Proxy server running at http://localhost:%s\n", cfg.Port)

	if err := a.serve(ctx, ln); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app is the wired server: dashboard session, policy watcher and the HTTP
// surface for both the dashboard and the prediction proxy.
type app struct {
	cfg       *config.Config
	telemetry *observability.Provider
	session   *dashboard.Session
	report    *embedsdk.Report
	watcher   *visibility.Watcher
	limiter   *api.RateLimiter
	handler   http.Handler
	logger    *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: slog.Default().With("component", "server"),
	}

	telemetry, err := observability.New(ctx, &observability.Config{
		ServiceName:    "insights",
		ServiceVersion: version,
		Environment:    "development",
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		MetricInterval: 15 * time.Second,
		Enabled:        cfg.OTelEnabled,
		Insecure:       cfg.OTelInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.telemetry = telemetry

	policy, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		a.close()
		return nil, err
	}
	a.lint(ctx, policy)

	role, _ := visibility.ParseRole(cfg.DefaultRole)
	a.session = dashboard.NewSession(policy, role, dashboard.WithTelemetry(telemetry))

	frame := embedsdk.NewFrame()
	svc := embedsdk.NewService(
		embedsdk.WithRenderer(render.NewHTMLRenderer()),
		embedsdk.WithLoadDelay(cfg.ReportLoadDelay),
	)
	a.report, err = a.session.Embed(ctx, svc, frame, embedsdk.DefaultEmbedConfig())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("embed report: %w", err)
	}

	if cfg.PolicyFile != "" && cfg.PolicyWatch {
		a.watcher, err = visibility.NewWatcher(cfg.PolicyFile, visibility.DefaultDebounce, func(p *visibility.Policy) {
			a.lint(ctx, p)
			if err := a.session.SetPolicy(ctx, p); err != nil {
				a.logger.WarnContext(ctx, "re-apply role after policy reload", "error", err)
			}
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("watch policy: %w", err)
		}
		if err := a.watcher.Start(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("watch policy: %w", err)
		}
	}

	a.limiter = api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	mux := http.NewServeMux()
	dashboard.NewHandler(a.session, frame).RegisterRoutes(mux)
	mux.Handle(api.PredictPath, api.Chain(
		api.NewPredictHandler(newForwarder(cfg, telemetry)),
		api.CORS(cfg.CORSOrigins),
		a.limiter.Middleware,
		func(next http.Handler) http.Handler { return telemetry.HTTPMiddleware(api.PredictPath, next) },
	))
	mux.Handle(api.HealthPath, api.HealthHandler(map[string]string{
		"service": "insights",
		"version": version,
	}))
	a.handler = api.Chain(mux, api.RequestID)

	return a, nil
}

// lint warns about hide-list names the mock report does not have. Apply
// ignores them, so a typo would otherwise go unnoticed.
func (a *app) lint(ctx context.Context, policy *visibility.Policy) {
	for _, f := range policy.Lint(reportVisualNames()) {
		a.logger.WarnContext(ctx, "policy hides an unknown visual", "role", f.Role, "visual", f.Visual)
	}
}

func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.InfoContext(gctx, "listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.report != nil {
		a.report.Close()
	}
	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.telemetry.Shutdown(shutdownCtx)
	}
}

func loadPolicy(path string) (*visibility.Policy, error) {
	if path == "" {
		return visibility.DefaultPolicy(), nil
	}
	p, err := visibility.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load policy %s: %w", path, err)
	}
	return p, nil
}

func reportVisualNames() []string {
	visuals := embedsdk.DefaultVisuals()
	names := make([]string, len(visuals))
	for i, v := range visuals {
		names[i] = v.Name
	}
	return names
}

func newForwarder(cfg *config.Config, telemetry *observability.Provider) llm.Forwarder {
	if cfg.UpstreamURL == "" {
		return trackedForwarder{next: unconfiguredForwarder{}, telemetry: telemetry}
	}
	host := ""
	if u, err := url.Parse(cfg.UpstreamURL); err == nil {
		host = u.Host
	}
	return trackedForwarder{
		next:      llm.NewServingClient(cfg.UpstreamURL, cfg.UpstreamToken, llm.WithTimeout(cfg.UpstreamTimeout)),
		telemetry: telemetry,
		host:      host,
	}
}

type unconfiguredForwarder struct{}

func (unconfiguredForwarder) Forward(context.Context, []byte) (json.RawMessage, error) {
	return nil, errUpstreamNotConfigured
}

// trackedForwarder traces each upstream call.
type trackedForwarder struct {
	next      llm.Forwarder
	telemetry *observability.Provider
	host      string
}

func (f trackedForwarder) Forward(ctx context.Context, body []byte) (json.RawMessage, error) {
	ctx, finish := f.telemetry.TrackOperation(ctx, "llm.forward", observability.ForwardOperation(f.host)...)
	out, err := f.next.Forward(ctx, body)
	finish(err)
	return out, err
}
