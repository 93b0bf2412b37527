package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
)

func defaultView() embedsdk.ReportView {
	view := embedsdk.ReportView{ID: "r1", Title: embedsdk.ReportTitle}
	for _, v := range embedsdk.DefaultVisuals() {
		view.Visuals = append(view.Visuals, *v)
	}
	return view
}

func renderDoc(t *testing.T, view embedsdk.ReportView) (*html.Node, string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewHTMLRenderer().RenderReport(&buf, view))
	doc, err := html.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	return doc, buf.String()
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isHidden(n *html.Node) bool {
	return strings.Contains(attr(n, "style"), "display: none")
}

func TestRenderReport_AllVisible(t *testing.T) {
	doc, out := renderDoc(t, defaultView())

	assert.Contains(t, out, "Mock Power BI Report")
	for _, name := range []string{
		embedsdk.VisualSalesTrend,
		embedsdk.VisualRevenueDistribution,
		embedsdk.VisualProductPerformance,
		embedsdk.VisualSalesDetails,
	} {
		card := findByID(doc, "visual-"+name)
		require.NotNil(t, card, "card for %s", name)
		assert.False(t, isHidden(card), "%s should be visible", name)
	}
	assert.Equal(t, 3, strings.Count(out, "<svg"), "line, pie and bar render as SVG")
}

func TestRenderReport_HiddenVisualsKeepMarkup(t *testing.T) {
	view := defaultView()
	view.Visuals[0].Visible = false
	view.Visuals[3].Visible = false

	doc, _ := renderDoc(t, view)

	assert.True(t, isHidden(findByID(doc, "visual-Sales Trend")))
	assert.True(t, isHidden(findByID(doc, "visual-Sales Details")))
	assert.False(t, isHidden(findByID(doc, "visual-Revenue Distribution")))
	assert.False(t, isHidden(findByID(doc, "visual-Product Performance")))
}

func TestRenderReport_HiddenReport(t *testing.T) {
	view := defaultView()
	view.Hidden = true

	doc, _ := renderDoc(t, view)
	report := findByID(doc, "report-r1")
	require.NotNil(t, report)
	assert.True(t, isHidden(report))
}

func TestRenderReport_TableFormatting(t *testing.T) {
	_, out := renderDoc(t, defaultView())

	assert.Contains(t, out, "$75,000")
	assert.Contains(t, out, "$20,000")
	assert.Contains(t, out, ">Laptop<")
}

func TestRenderReport_PieLegendUsesPaletteOrder(t *testing.T) {
	_, out := renderDoc(t, defaultView())

	assert.Contains(t, out, "Electronics (35%)")
	iElectronics := strings.Index(out, "Electronics (35%)")
	iClothing := strings.Index(out, "Clothing (25%)")
	assert.Less(t, iElectronics, iClothing)
	assert.Contains(t, out, Palette[3], "fourth slice takes the fourth palette color")
}

func TestRenderReport_EscapesNames(t *testing.T) {
	view := embedsdk.ReportView{
		ID:    "r2",
		Title: "t",
		Visuals: []embedsdk.Visual{
			{Name: `<script>alert(1)</script>`, Visible: true, Kind: embedsdk.KindTable, Data: embedsdk.TableData},
		},
	}
	_, out := renderDoc(t, view)
	assert.NotContains(t, out, "<script>alert(1)</script>")
}

func TestRenderReport_MismatchedDataFallsBack(t *testing.T) {
	view := embedsdk.ReportView{
		ID:    "r3",
		Title: "t",
		Visuals: []embedsdk.Visual{
			{Name: "Wrong", Visible: true, Kind: embedsdk.KindPie, Data: embedsdk.TableData},
			{Name: "Odd", Visible: true, Kind: embedsdk.KindUnknown},
		},
	}
	_, out := renderDoc(t, view)
	assert.Equal(t, 2, strings.Count(out, "This is a mock visual"))
}

func TestVisualSVG(t *testing.T) {
	for _, v := range embedsdk.DefaultVisuals() {
		svg, err := VisualSVG(*v)
		if v.Kind == embedsdk.KindTable {
			assert.ErrorIs(t, err, ErrNotChart)
			continue
		}
		require.NoError(t, err, v.Name)
		assert.True(t, bytes.Contains(svg, []byte("<svg")), v.Name)
	}
}

func TestVisualSVG_AllZeroSeries(t *testing.T) {
	zeros := []embedsdk.SalesPoint{
		{Month: "Jan"}, {Month: "Feb"}, {Month: "Mar"},
	}
	for _, kind := range []embedsdk.Kind{embedsdk.KindLine, embedsdk.KindBar} {
		svg, err := VisualSVG(embedsdk.Visual{Name: "Flat", Kind: kind, Visible: true, Data: zeros})
		require.NoError(t, err, kind.String())
		assert.True(t, bytes.Contains(svg, []byte("<svg")), kind.String())
	}
}
