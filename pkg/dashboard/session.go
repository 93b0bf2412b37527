// Package dashboard holds the state of one embedded report viewed under a
// role, and serves it over HTTP.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
	"github.com/Mindburn-Labs/insights/pkg/observability"
	"github.com/Mindburn-Labs/insights/pkg/visibility"
)

// ErrReportNotLoaded is returned by ApplyRole before a report is attached.
var ErrReportNotLoaded = errors.New("dashboard: report not loaded yet")

// Status is the last user-facing message.
type Status struct {
	Message string    `json:"message"`
	Error   bool      `json:"error"`
	At      time.Time `json:"at"`
}

// Session tracks the current report, role and policy.
//
// applyMu serializes everything that touches report visuals. mu guards the
// fields and is never held while calling into the report, because report
// event handlers take it.
type Session struct {
	applyMu sync.Mutex

	mu     sync.Mutex
	report *embedsdk.Report
	role   visibility.Role
	policy *visibility.Policy
	loaded bool
	status Status

	telemetry *observability.Provider
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithTelemetry traces apply-role calls through p.
func WithTelemetry(p *observability.Provider) Option {
	return func(s *Session) { s.telemetry = p }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock overrides time.Now for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession starts a session with no report. A nil policy hides nothing.
func NewSession(policy *visibility.Policy, initialRole visibility.Role, opts ...Option) *Session {
	s := &Session{
		role:   initialRole,
		policy: policy,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "dashboard")
	return s
}

func (s *Session) setStatus(msg string, isErr bool) {
	s.mu.Lock()
	s.status = Status{Message: msg, Error: isErr, At: s.now()}
	s.mu.Unlock()
}

// Embed embeds a report through svc and attaches it.
func (s *Session) Embed(ctx context.Context, svc *embedsdk.Service, container embedsdk.Container, cfg embedsdk.EmbedConfig) (*embedsdk.Report, error) {
	report, err := svc.Embed(ctx, container, cfg)
	if err != nil {
		s.setStatus("Error embedding report: "+err.Error(), true)
		s.logger.ErrorContext(ctx, "embed report", "error", err)
		return nil, err
	}
	s.Attach(report)
	return report, nil
}

// Attach makes report the current report. When the report signals it has
// loaded, the current role is applied to it.
func (s *Session) Attach(report *embedsdk.Report) {
	s.mu.Lock()
	s.report = report
	s.loaded = false
	s.status = Status{Message: "Report embedded successfully", At: s.now()}
	s.mu.Unlock()

	report.On(embedsdk.EventLoaded, func(embedsdk.Event) {
		s.mu.Lock()
		if s.report != report {
			s.mu.Unlock()
			return
		}
		s.loaded = true
		s.status = Status{Message: "Report loaded successfully", At: s.now()}
		role := s.role
		s.mu.Unlock()

		if _, err := s.ApplyRole(context.Background(), role); err != nil {
			s.logger.Error("apply initial role", "role", role, "error", err)
		}
	})
	report.On(embedsdk.EventError, func(ev embedsdk.Event) {
		s.setStatus(fmt.Sprintf("Report error: %v", ev.Err), true)
	})
}

// ApplyRole shows the visuals role may see and hides the rest.
func (s *Session) ApplyRole(ctx context.Context, role visibility.Role) (visibility.Result, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	report, policy := s.report, s.policy
	s.mu.Unlock()

	if report == nil {
		s.setStatus("Report not loaded yet", true)
		return visibility.Result{}, ErrReportNotLoaded
	}

	res, err := s.apply(ctx, report, policy, role)
	if err != nil {
		s.setStatus("Error applying role: "+err.Error(), true)
		return res, err
	}

	s.mu.Lock()
	s.role = role
	s.status = Status{Message: fmt.Sprintf("Role changed to %s", role), At: s.now()}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "role applied",
		"role", role,
		"hidden", len(res.Hidden),
		"visible", len(res.Visible),
	)
	return res, nil
}

func (s *Session) apply(ctx context.Context, report *embedsdk.Report, policy *visibility.Policy, role visibility.Role) (visibility.Result, error) {
	if s.telemetry == nil {
		return policy.Apply(ctx, report, role)
	}
	fingerprint := ""
	if policy != nil {
		fingerprint = policy.Fingerprint()
	}
	ctx, finish := s.telemetry.TrackOperation(ctx, "dashboard.apply_role",
		observability.ApplyRoleOperation(report.ID(), string(role), fingerprint)...)
	res, err := policy.Apply(ctx, report, role)
	if err == nil {
		observability.AddSpanEvent(ctx, "visuals.hidden", observability.AttrHiddenVisuals.StringSlice(res.Hidden))
	}
	finish(err)
	return res, err
}

// ShowAll makes every visual of the current report visible.
func (s *Session) ShowAll(ctx context.Context) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	report := s.report
	s.mu.Unlock()
	if report == nil {
		s.setStatus("Report not loaded yet", true)
		return ErrReportNotLoaded
	}
	if err := visibility.ShowAll(ctx, report); err != nil {
		s.setStatus("Error showing visuals: "+err.Error(), true)
		return err
	}
	s.setStatus("All visuals are now visible", false)
	return nil
}

// SetPolicy swaps the policy and re-applies the current role if a report is
// attached.
func (s *Session) SetPolicy(ctx context.Context, policy *visibility.Policy) error {
	s.mu.Lock()
	s.policy = policy
	report, role := s.report, s.role
	s.mu.Unlock()

	fingerprint := ""
	if policy != nil {
		fingerprint = policy.Fingerprint()
	}
	s.logger.InfoContext(ctx, "policy replaced", "fingerprint", fingerprint)

	if report == nil {
		return nil
	}
	_, err := s.ApplyRole(ctx, role)
	return err
}

// Role returns the last successfully applied (or initial) role.
func (s *Session) Role() visibility.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Policy returns the current policy.
func (s *Session) Policy() *visibility.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Status returns the last status message.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Report returns the attached report, or nil.
func (s *Session) Report() *embedsdk.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// VisualState is one visual as a viewer currently sees it.
type VisualState struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Visible bool   `json:"visible"`
}

// RoleInfo is one configured role and its hide list.
type RoleInfo struct {
	Role visibility.Role `json:"role"`
	Hide []string        `json:"hide"`
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	ReportID          string               `json:"report_id,omitempty"`
	Loaded            bool                 `json:"loaded"`
	Role              string               `json:"role"`
	Status            Status               `json:"status"`
	Visuals           []VisualState        `json:"visuals"`
	Roles             []RoleInfo           `json:"roles"`
	PolicyFingerprint string               `json:"policy_fingerprint,omitempty"`
	View              *embedsdk.ReportView `json:"-"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	report, policy := s.report, s.policy
	snap := Snapshot{
		Loaded:  s.loaded,
		Role:    string(s.role),
		Status:  s.status,
		Visuals: []VisualState{},
		Roles:   []RoleInfo{},
	}
	s.mu.Unlock()

	if policy != nil {
		snap.PolicyFingerprint = policy.Fingerprint()
		for _, r := range policy.Roles() {
			snap.Roles = append(snap.Roles, RoleInfo{Role: r, Hide: policy.HideList(r)})
		}
	}
	if report != nil {
		view := report.View()
		snap.ReportID = view.ID
		snap.View = &view
		for _, v := range view.Visuals {
			snap.Visuals = append(snap.Visuals, VisualState{Name: v.Name, Kind: v.Kind.String(), Visible: v.Visible})
		}
	}
	return snap
}
