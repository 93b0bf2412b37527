// Package render draws mock reports as HTML with inline SVG charts.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
)

const placeholderHTML = template.HTML("<p>This is a mock visual</p>")

const reportTemplate = `
{{- define "report" -}}
<div id="report-{{.ID}}" class="report" style="padding: 20px; background: #f5f5f5; border-radius: 5px;{{if .Hidden}} display: none;{{end}}">
  <h2 style="color: #0078d4; margin-bottom: 20px;">{{.Title}}</h2>
  <div style="display: grid; grid-template-columns: repeat(2, 1fr); gap: 20px;">
{{- range .Cards}}
    <div id="visual-{{.Name}}" class="visual" data-kind="{{.Kind}}" style="padding: 20px; background: white; border-radius: 5px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);{{if not .Visible}} display: none;{{end}}">
      <h3 style="color: #323130; margin-top: 0;">{{.Name}}</h3>
      {{.Body}}
    </div>
{{- end}}
  </div>
</div>
{{- end}}

{{- define "line-legend" -}}
<div style="margin-top: 10px; font-size: 12px; color: #666;">
  <span style="color: {{index .Palette 0}};">&#9679;</span> Sales
  <span style="margin-left: 10px; color: {{index .Palette 1}};">&#9679;</span> Target
</div>
{{- end}}

{{- define "pie-legend" -}}
<div style="margin-left: 20px;">
{{- range .}}
  <div style="margin-bottom: 5px;"><span style="color: {{.Color}}">&#9679;</span> {{.Label}} ({{.Percent}}%)</div>
{{- end}}
</div>
{{- end}}

{{- define "table" -}}
<table style="width: 100%; border-collapse: collapse;">
  <thead>
    <tr style="background: #f5f5f5;">
      <th style="padding: 8px; text-align: left; border-bottom: 1px solid #ddd;">Product</th>
      <th style="padding: 8px; text-align: right; border-bottom: 1px solid #ddd;">Sales</th>
      <th style="padding: 8px; text-align: right; border-bottom: 1px solid #ddd;">Revenue</th>
    </tr>
  </thead>
  <tbody>
{{- range .}}
    <tr>
      <td style="padding: 8px; border-bottom: 1px solid #ddd;">{{.Product}}</td>
      <td style="padding: 8px; text-align: right; border-bottom: 1px solid #ddd;">{{.Sales}}</td>
      <td style="padding: 8px; text-align: right; border-bottom: 1px solid #ddd;">{{.Revenue}}</td>
    </tr>
{{- end}}
  </tbody>
</table>
{{- end}}
`

type card struct {
	Name    string
	Kind    string
	Visible bool
	Body    template.HTML
}

type reportData struct {
	ID     string
	Title  string
	Hidden bool
	Cards  []card
}

type legendEntry struct {
	Label   string
	Percent string
	Color   string
}

type tableRow struct {
	Product string
	Sales   string
	Revenue string
}

// HTMLRenderer implements embedsdk.Renderer with an HTML card grid.
type HTMLRenderer struct {
	tmpl    *template.Template
	printer *message.Printer
	logger  *slog.Logger
}

// NewHTMLRenderer parses the report templates.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		tmpl:    template.Must(template.New("render").Parse(reportTemplate)),
		printer: message.NewPrinter(language.English),
		logger:  slog.Default().With("component", "render"),
	}
}

// RenderReport writes the report markup. Hidden visuals are still emitted,
// styled with display: none, so toggling them back needs no new data.
func (r *HTMLRenderer) RenderReport(w io.Writer, view embedsdk.ReportView) error {
	data := reportData{
		ID:     view.ID,
		Title:  view.Title,
		Hidden: view.Hidden,
		Cards:  make([]card, 0, len(view.Visuals)),
	}
	for _, v := range view.Visuals {
		body, err := r.visualBody(v)
		if err != nil {
			return err
		}
		data.Cards = append(data.Cards, card{
			Name:    v.Name,
			Kind:    v.Kind.String(),
			Visible: v.Visible,
			Body:    body,
		})
	}
	return r.tmpl.ExecuteTemplate(w, "report", data)
}

func (r *HTMLRenderer) visualBody(v embedsdk.Visual) (template.HTML, error) {
	var (
		body template.HTML
		err  error
	)
	switch v.Kind {
	case embedsdk.KindLine:
		body, err = r.lineBody(v)
	case embedsdk.KindPie:
		body, err = r.pieBody(v)
	case embedsdk.KindBar:
		body, err = chartHTML(v)
	case embedsdk.KindTable:
		body, err = r.tableBody(v)
	default:
		return placeholderHTML, nil
	}
	if errors.Is(err, errDataMismatch) {
		r.logger.Warn("visual data does not match kind", "visual", v.Name, "kind", v.Kind.String())
		return placeholderHTML, nil
	}
	return body, err
}

func (r *HTMLRenderer) lineBody(v embedsdk.Visual) (template.HTML, error) {
	svg, err := chartHTML(v)
	if err != nil {
		return "", err
	}
	legend, err := r.execute("line-legend", struct{ Palette []string }{Palette})
	if err != nil {
		return "", err
	}
	return svg + legend, nil
}

func (r *HTMLRenderer) pieBody(v embedsdk.Visual) (template.HTML, error) {
	svg, err := chartHTML(v)
	if err != nil {
		return "", err
	}
	shares := v.Data.([]embedsdk.Share)
	entries := make([]legendEntry, len(shares))
	for i, s := range shares {
		entries[i] = legendEntry{
			Label:   s.Category,
			Percent: r.printer.Sprintf("%v", s.Value),
			Color:   Palette[i%len(Palette)],
		}
	}
	legend, err := r.execute("pie-legend", entries)
	if err != nil {
		return "", err
	}
	return `<div style="display: flex; align-items: center;">` + svg + legend + `</div>`, nil
}

func (r *HTMLRenderer) tableBody(v embedsdk.Visual) (template.HTML, error) {
	rows, ok := v.Data.([]embedsdk.ProductRow)
	if !ok {
		return "", errDataMismatch
	}
	out := make([]tableRow, len(rows))
	for i, row := range rows {
		out[i] = tableRow{
			Product: row.Product,
			Sales:   r.printer.Sprintf("%d", row.Sales),
			Revenue: r.printer.Sprintf("$%d", row.Revenue),
		}
	}
	return r.execute("table", out)
}

func (r *HTMLRenderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // output of html/template
}
