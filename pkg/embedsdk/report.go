package embedsdk

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReportTitle is the heading of every mock report.
const ReportTitle = "Mock Power BI Report"

// EventType names a report lifecycle event.
type EventType string

const (
	EventLoaded EventType = "loaded"
	EventError  EventType = "error"
)

// Event is delivered to handlers registered with Report.On.
type Event struct {
	Type EventType
	Err  error
}

// Handler reacts to a report event.
type Handler func(Event)

// Page groups visuals. The mock report has a single page.
type Page struct {
	Name        string
	DisplayName string
	visuals     []*Visual
}

// Visuals returns the page's visuals. The pointers are live: changing
// Visible on them changes the report.
func (p *Page) Visuals(ctx context.Context) ([]*Visual, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*Visual, len(p.visuals))
	copy(out, p.visuals)
	return out, nil
}

// Report is an embedded mock report.
//
// Visual state is not synchronized; callers that mutate visuals from several
// goroutines must serialize those calls themselves. Event registration and
// Close are safe for concurrent use.
type Report struct {
	config    EmbedConfig
	container Container
	renderer  Renderer
	pages     []*Page
	hidden    bool
	loadDelay time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	handlers map[EventType][]Handler
	timers   []*time.Timer
	closed   bool
}

func newReport(cfg EmbedConfig, container Container, renderer Renderer, visuals []*Visual, loadDelay time.Duration, logger *slog.Logger) *Report {
	return &Report{
		config:    cfg,
		container: container,
		renderer:  renderer,
		pages: []*Page{{
			Name:        "ReportSection",
			DisplayName: "Overview",
			visuals:     visuals,
		}},
		loadDelay: loadDelay,
		logger:    logger.With("report_id", cfg.ID),
		handlers:  make(map[EventType][]Handler),
	}
}

// ID returns the embedded report id.
func (r *Report) ID() string { return r.config.ID }

// Config returns the configuration the report was embedded with.
func (r *Report) Config() EmbedConfig { return r.config }

// Pages returns the report pages.
func (r *Report) Pages(ctx context.Context) ([]*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*Page, len(r.pages))
	copy(out, r.pages)
	return out, nil
}

// Visuals returns every visual across all pages, in page order.
func (r *Report) Visuals(ctx context.Context) ([]*Visual, error) {
	pages, err := r.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("embedsdk: get pages: %w", err)
	}
	var visuals []*Visual
	for _, p := range pages {
		pv, err := p.Visuals(ctx)
		if err != nil {
			return nil, fmt.Errorf("embedsdk: get visuals of page %s: %w", p.Name, err)
		}
		visuals = append(visuals, pv...)
	}
	return visuals, nil
}

// Visual looks a visual up by name.
func (r *Report) Visual(name string) (*Visual, bool) {
	for _, p := range r.pages {
		for _, v := range p.visuals {
			if v.Name == name {
				return v, true
			}
		}
	}
	return nil, false
}

// Hidden reports whether the whole report has been hidden with SetVisibility.
func (r *Report) Hidden() bool { return r.hidden }

// SetVisibility shows or hides the whole report and re-renders it.
func (r *Report) SetVisibility(visible bool) error {
	r.hidden = !visible
	return r.Render()
}

// View returns a copy of the current report state.
func (r *Report) View() ReportView {
	view := ReportView{
		ID:     r.config.ID,
		Title:  ReportTitle,
		Hidden: r.hidden,
	}
	for _, p := range r.pages {
		for _, v := range p.visuals {
			view.Visuals = append(view.Visuals, *v)
		}
	}
	return view
}

// Render draws the report into its container. A renderer failure is also
// delivered to EventError handlers.
func (r *Report) Render() error {
	var buf bytes.Buffer
	if err := r.renderer.RenderReport(&buf, r.View()); err != nil {
		err = fmt.Errorf("embedsdk: render report %s: %w", r.config.ID, err)
		r.emit(Event{Type: EventError, Err: err})
		return err
	}
	r.container.SetHTML(buf.String())
	return nil
}

// On registers a handler for an event. Registering an EventLoaded handler
// schedules it to run once after the report's load delay.
func (r *Report) On(event EventType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.handlers[event] = append(r.handlers[event], h)

	if event == EventLoaded {
		t := time.AfterFunc(r.loadDelay, func() {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return
			}
			r.logger.Debug("report loaded")
			h(Event{Type: EventLoaded})
		})
		r.timers = append(r.timers, t)
	}
}

func (r *Report) emit(ev Event) {
	r.mu.Lock()
	handlers := append([]Handler(nil), r.handlers[ev.Type]...)
	r.mu.Unlock()

	if ev.Err != nil {
		r.logger.Error("report event", "event", ev.Type, "error", ev.Err)
	}
	for _, h := range handlers {
		h(ev)
	}
}

// Close cancels pending load notifications and drops all handlers.
func (r *Report) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
	r.handlers = make(map[EventType][]Handler)
}
