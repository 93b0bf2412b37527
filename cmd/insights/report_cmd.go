package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/Mindburn-Labs/insights/pkg/config"
	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
	"github.com/Mindburn-Labs/insights/pkg/render"
	"github.com/Mindburn-Labs/insights/pkg/visibility"
)

// reportFlags are shared by the commands that act on a freshly embedded report.
type reportFlags struct {
	role       string
	policyFile string
}

func (f *reportFlags) register(cmd *flag.FlagSet) {
	cfg := config.Load()
	cmd.StringVar(&f.role, "role", cfg.DefaultRole, "Viewer role to apply")
	cmd.StringVar(&f.policyFile, "policy", cfg.PolicyFile, "Policy file (YAML, JSON or TOML); built-in policy when empty")
}

// embedForRole embeds the mock report into frame and applies the role.
func embedForRole(ctx context.Context, f reportFlags, renderer embedsdk.Renderer, frame *embedsdk.Frame) (*embedsdk.Report, visibility.Result, error) {
	role, ok := visibility.ParseRole(f.role)
	if !ok {
		return nil, visibility.Result{}, errors.New("--role is required")
	}
	policy, err := loadPolicy(f.policyFile)
	if err != nil {
		return nil, visibility.Result{}, err
	}

	opts := []embedsdk.Option{embedsdk.WithLoadDelay(0)}
	if renderer != nil {
		opts = append(opts, embedsdk.WithRenderer(renderer))
	}
	report, err := embedsdk.NewService(opts...).Embed(ctx, frame, embedsdk.DefaultEmbedConfig())
	if err != nil {
		return nil, visibility.Result{}, fmt.Errorf("embed report: %w", err)
	}
	res, err := policy.Apply(ctx, report, role)
	if err != nil {
		report.Close()
		return nil, visibility.Result{}, err
	}
	return report, res, nil
}

// runApplyCmd implements `insights apply`.
func runApplyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("apply", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		rf         reportFlags
		jsonOutput bool
	)
	rf.register(cmd)
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	report, res, err := embedForRole(context.Background(), rf, nil, embedsdk.NewFrame())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer report.Close()

	if jsonOutput {
		data, _ := json.MarshalIndent(res, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "Role changed to %s\n", res.Role)
	for _, v := range report.View().Visuals {
		state := "visible"
		if !v.Visible {
			state = "hidden"
		}
		_, _ = fmt.Fprintf(stdout, "  %-22s %s\n", v.Name, state)
	}
	return 0
}

const standalonePage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} ({{.Role}})</title></head>
<body style="font-family: 'Segoe UI', sans-serif; margin: 0; padding: 20px;">
{{.Report}}
</body>
</html>
`

var standaloneTmpl = template.Must(template.New("standalone").Parse(standalonePage))

// runRenderCmd implements `insights render`.
func runRenderCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("render", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		rf      reportFlags
		outPath string
	)
	rf.register(cmd)
	cmd.StringVar(&outPath, "out", "", "Write the page to this file instead of stdout")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	frame := embedsdk.NewFrame()
	report, res, err := embedForRole(context.Background(), rf, render.NewHTMLRenderer(), frame)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer report.Close()

	var w io.Writer = stdout
	if outPath != "" {
		f, err := os.Create(outPath) //nolint:gosec // operator-chosen output path
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		w = f
	}

	err = standaloneTmpl.Execute(w, map[string]any{
		"Title":  embedsdk.ReportTitle,
		"Role":   res.Role,
		"Report": template.HTML(frame.HTML()), //nolint:gosec // produced by html/template
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if outPath != "" {
		_, _ = fmt.Fprintf(stdout, "Report written: %s\n", outPath)
	}
	return 0
}

// runExportCmd implements `insights export`: one SVG per chart the role
// may see. Tables have no chart form and are skipped.
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		rf     reportFlags
		outDir string
	)
	rf.register(cmd)
	cmd.StringVar(&outDir, "out", "", "Output directory (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if outDir == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --out is required")
		cmd.Usage()
		return 2
	}

	report, _, err := embedForRole(context.Background(), rf, nil, embedsdk.NewFrame())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer report.Close()

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	written := 0
	for _, v := range report.View().Visuals {
		if !v.Visible {
			continue
		}
		svg, err := render.VisualSVG(v)
		if errors.Is(err, render.ErrNotChart) {
			continue
		}
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}

		path, err := securejoin.SecureJoin(outDir, svgFileName(v.Name))
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := os.WriteFile(path, svg, 0o600); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "  %s\n", filepath.Base(path))
		written++
	}
	_, _ = fmt.Fprintf(stdout, "Exported %d chart(s) to %s\n", written, outDir)
	return 0
}

// svgFileName turns a visual name into a lower-case, dash-separated file name.
func svgFileName(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	base := strings.TrimSuffix(sb.String(), "-")
	if base == "" {
		base = "visual"
	}
	return base + ".svg"
}
