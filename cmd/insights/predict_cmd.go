package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Mindburn-Labs/insights/pkg/api"
	"github.com/Mindburn-Labs/insights/pkg/config"
	"github.com/Mindburn-Labs/insights/pkg/llm"
)

// runPredictCmd implements `insights predict`: one prompt straight to the
// model-serving endpoint, bypassing the proxy.
func runPredictCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("predict", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	cfg := config.Load()
	var (
		prompt  string
		target  string
		token   string
		timeout time.Duration
	)
	cmd.StringVar(&prompt, "prompt", "", "Prompt to send (REQUIRED)")
	cmd.StringVar(&target, "url", cfg.UpstreamURL, "Model-serving endpoint")
	cmd.StringVar(&token, "token", cfg.UpstreamToken, "Bearer token for the endpoint")
	cmd.DurationVar(&timeout, "timeout", cfg.UpstreamTimeout, "Request timeout")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if prompt == "" || target == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --prompt and --url (or PREDICT_UPSTREAM_URL) are required")
		cmd.Usage()
		return 2
	}

	client := llm.NewServingClient(target, token, llm.WithTimeout(timeout))
	out, err := client.Predict(context.Background(), prompt)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Prediction failed: %v\n", err)
		return 1
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		_, _ = stdout.Write(out)
	} else {
		_, _ = pretty.WriteTo(stdout)
	}
	_, _ = fmt.Fprintln(stdout)
	return 0
}

// runHealthCmd implements `insights health`.
func runHealthCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("health", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var addr string
	cmd.StringVar(&addr, "addr", "http://localhost:"+config.Load().Port, "Server base URL")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + api.HealthPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(stderr, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}

	_, _ = fmt.Fprintln(stdout, "OK")
	return 0
}
