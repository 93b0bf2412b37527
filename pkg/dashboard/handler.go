package dashboard

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/Mindburn-Labs/insights/pkg/api"
	"github.com/Mindburn-Labs/insights/pkg/visibility"
)

// HTMLSource supplies the last rendered report markup. *embedsdk.Frame
// satisfies it.
type HTMLSource interface {
	HTML() string
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Actionable Insights</title>
  <style>
    body { font-family: "Segoe UI", sans-serif; margin: 0; padding: 20px; background: #faf9f8; }
    .controls { margin-bottom: 20px; display: flex; gap: 10px; align-items: center; }
    .status { padding: 10px; margin-bottom: 20px; border-radius: 4px; }
    .status.success { background: #dff6dd; color: #107c10; }
    .status.error { background: #fde7e9; color: #a80000; }
    button { background: #0078d4; color: white; border: none; padding: 8px 16px; border-radius: 4px; cursor: pointer; }
  </style>
</head>
<body>
  <h1>Actionable Insights</h1>
  <form class="controls" method="post" action="/role">
    <label for="roleSelector">Role:</label>
    <select id="roleSelector" name="role">
{{- range .Roles}}
      <option value="{{.Role}}"{{if eq (print .Role) $.Role}} selected{{end}}>{{.Role}}</option>
{{- end}}
    </select>
    <button id="applyRole" type="submit">Apply Role</button>
  </form>
  <div id="status" class="status {{if .Status.Error}}error{{else}}success{{end}}">{{.Status.Message}}</div>
  <div id="reportContainer">{{.Report}}</div>
</body>
</html>
`

var page = template.Must(template.New("page").Parse(pageTemplate))

type pageData struct {
	Role   string
	Roles  []RoleInfo
	Status Status
	Report template.HTML
}

// Handler serves the dashboard page and its JSON API.
type Handler struct {
	session *Session
	frame   HTMLSource
	logger  *slog.Logger
}

// NewHandler serves session, showing the markup in frame.
func NewHandler(session *Session, frame HTMLSource) *Handler {
	return &Handler{
		session: session,
		frame:   frame,
		logger:  slog.Default().With("component", "dashboard-http"),
	}
}

// RegisterRoutes registers the dashboard routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handlePage)
	mux.HandleFunc("POST /role", h.handleRoleForm)
	mux.HandleFunc("GET /api/report", h.handleReport)
	mux.HandleFunc("POST /api/role", h.handleRole)
	mux.HandleFunc("POST /api/show-all", h.handleShowAll)
	mux.HandleFunc("GET /api/roles", h.handleRoles)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	data := pageData{
		Role:   snap.Role,
		Roles:  snap.Roles,
		Status: snap.Status,
	}
	if h.frame != nil && snap.View != nil {
		data.Report = template.HTML(h.frame.HTML()) //nolint:gosec // rendered by html/template
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		h.logger.ErrorContext(r.Context(), "render dashboard page", "error", err)
	}
}

func (h *Handler) handleRoleForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		api.WriteBadRequest(w, "Invalid form body")
		return
	}
	if role, ok := visibility.ParseRole(r.PostForm.Get("role")); ok {
		// Failures are reported through the session status line.
		_, _ = h.session.ApplyRole(r.Context(), role)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type roleRequest struct {
	Role string `json:"role"`
}

type roleResponse struct {
	visibility.Result
	Status Status `json:"status"`
}

func (h *Handler) handleRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		api.WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	role, ok := visibility.ParseRole(req.Role)
	if !ok {
		api.WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "Missing required field: role")
		return
	}

	res, err := h.session.ApplyRole(r.Context(), role)
	switch {
	case errors.Is(err, ErrReportNotLoaded):
		api.WriteErrorR(w, r, http.StatusConflict, "Conflict", "Report not loaded yet")
		return
	case err != nil:
		api.WriteInternal(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, roleResponse{Result: res, Status: h.session.Status()})
}

func (h *Handler) handleShowAll(w http.ResponseWriter, r *http.Request) {
	err := h.session.ShowAll(r.Context())
	switch {
	case errors.Is(err, ErrReportNotLoaded):
		api.WriteErrorR(w, r, http.StatusConflict, "Conflict", "Report not loaded yet")
		return
	case err != nil:
		api.WriteInternal(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *Handler) handleReport(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *Handler) handleRoles(w http.ResponseWriter, _ *http.Request) {
	snap := h.session.Snapshot()
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"current":     snap.Role,
		"roles":       snap.Roles,
		"fingerprint": snap.PolicyFingerprint,
	})
}
