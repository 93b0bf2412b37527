package embedsdk

import (
	"fmt"
	"html"
	"io"
)

// ReportView is the immutable snapshot handed to a Renderer.
type ReportView struct {
	ID      string
	Title   string
	Hidden  bool
	Visuals []Visual
}

// Renderer turns a report snapshot into markup.
type Renderer interface {
	RenderReport(w io.Writer, view ReportView) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(w io.Writer, view ReportView) error

// RenderReport calls f(w, view).
func (f RendererFunc) RenderReport(w io.Writer, view ReportView) error {
	return f(w, view)
}

// listRenderer is the fallback used when no renderer is configured: a bare
// list of the visible visuals.
type listRenderer struct{}

func (listRenderer) RenderReport(w io.Writer, view ReportView) error {
	if view.Hidden {
		_, err := fmt.Fprintf(w, "<div id=%q hidden></div>", view.ID)
		return err
	}
	if _, err := fmt.Fprintf(w, "<div id=%q><h2>%s</h2><ul>", view.ID, html.EscapeString(view.Title)); err != nil {
		return err
	}
	for _, v := range view.Visuals {
		if !v.Visible {
			continue
		}
		if _, err := fmt.Fprintf(w, "<li data-kind=%q>%s</li>", v.Kind, html.EscapeString(v.Name)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</ul></div>")
	return err
}
