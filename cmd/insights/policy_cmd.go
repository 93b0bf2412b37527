package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/Mindburn-Labs/insights/pkg/config"
	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
	"github.com/Mindburn-Labs/insights/pkg/tui"
	"github.com/Mindburn-Labs/insights/pkg/visibility"
)

// runPolicyCmd implements `insights policy <lint|show>`.
func runPolicyCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: insights policy <lint|show> [--policy file]")
		return 2
	}
	switch args[0] {
	case "lint":
		return runPolicyLint(args[1:], stdout, stderr)
	case "show":
		return runPolicyShow(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown policy subcommand: %s\n", args[0])
		return 2
	}
}

// runPolicyLint reports hide-list entries that name no visual of the report.
// Exit code 1 when there are findings.
func runPolicyLint(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("policy lint", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		policyFile string
		jsonOutput bool
	)
	cmd.StringVar(&policyFile, "policy", config.Load().PolicyFile, "Policy file; built-in policy when empty")
	cmd.BoolVar(&jsonOutput, "json", false, "Output findings as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	policy, err := loadPolicy(policyFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	findings := policy.Lint(reportVisualNames())
	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{
			"fingerprint": policy.Fingerprint(),
			"findings":    append([]visibility.Finding{}, findings...),
		}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		for _, f := range findings {
			_, _ = fmt.Fprintf(stdout, "warning: %s\n", f)
		}
		if len(findings) == 0 {
			_, _ = fmt.Fprintf(stdout, "Policy OK (%d roles, %s)\n", len(policy.Roles()), policy.Fingerprint())
		}
	}
	if len(findings) > 0 {
		return 1
	}
	return 0
}

// runPolicyShow prints the normalized policy document.
func runPolicyShow(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("policy show", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		policyFile string
		format     string
	)
	cmd.StringVar(&policyFile, "policy", config.Load().PolicyFile, "Policy file; built-in policy when empty")
	cmd.StringVar(&format, "format", string(visibility.FormatYAML), "Output format: yaml, json or toml")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	policy, err := loadPolicy(policyFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	data, err := policy.Document().Marshal(visibility.Format(format))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = stdout.Write(data)
	return 0
}

// runRolesCmd implements `insights roles`: pick a role and show what it sees.
func runRolesCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("roles", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		rf    reportFlags
		plain bool
	)
	rf.register(cmd)
	cmd.BoolVar(&plain, "plain", false, "List roles without the interactive picker")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	policy, err := loadPolicy(rf.policyFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	current, _ := visibility.ParseRole(rf.role)

	if plain || !isTerminal(stdout) {
		_, _ = fmt.Fprint(stdout, tui.SimplePicker(policy, current))
		return 0
	}

	result, err := tui.RunPicker(policy, current)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return handlePick(result, rf, stdout, stderr)
}

// handlePick carries out the picker's choice on a fresh report.
func handlePick(result tui.PickerResult, rf reportFlags, stdout, stderr io.Writer) int {
	switch result.Action {
	case tui.ActionApply:
		rf.role = string(result.Role)
		return printApplied(rf, stdout, stderr)
	case tui.ActionShowAll:
		_, _ = fmt.Fprintln(stdout, "All visuals are now visible")
		for _, name := range reportVisualNames() {
			_, _ = fmt.Fprintf(stdout, "  %-22s visible\n", name)
		}
	}
	return 0
}

func printApplied(rf reportFlags, stdout, stderr io.Writer) int {
	report, res, err := embedForRole(context.Background(), rf, nil, embedsdk.NewFrame())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer report.Close()

	_, _ = fmt.Fprintf(stdout, "Role changed to %s\n", res.Role)
	for _, name := range res.Visible {
		_, _ = fmt.Fprintf(stdout, "  %-22s visible\n", name)
	}
	for _, name := range res.Hidden {
		_, _ = fmt.Fprintf(stdout, "  %-22s hidden\n", name)
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
