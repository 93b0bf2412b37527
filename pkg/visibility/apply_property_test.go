package visibility

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// TestApplyHidesExactlyTheConfiguredSet checks that after Apply a visual is
// hidden if and only if its name is in the role's hide list.
func TestApplyHidesExactlyTheConfiguredSet(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("hidden set equals hide list ∩ report", prop.ForAll(
		func(report []string, hide []string, initial []bool) bool {
			report = uniqueNames(report)
			target := newFakeTarget(report...)
			for i, v := range target.visuals {
				if i < len(initial) {
					v.Visible = initial[i]
				}
			}

			p := NewPolicy(map[Role][]string{"r": hide})
			if _, err := p.Apply(context.Background(), target, "r"); err != nil {
				return false
			}

			hidden := make(map[string]bool, len(hide))
			for _, h := range hide {
				hidden[h] = true
			}
			for _, v := range target.visuals {
				if v.Visible == hidden[v.Name] {
					return false
				}
			}
			return target.renders == 1
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// TestApplyIsIdempotent checks Apply(r); Apply(r) leaves the same state as Apply(r).
func TestApplyIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("apply twice equals apply once", prop.ForAll(
		func(report []string, hide []string, other []string) bool {
			report = uniqueNames(report)
			p := NewPolicy(map[Role][]string{"r": hide, "o": other})

			once := newFakeTarget(report...)
			twice := newFakeTarget(report...)
			ctx := context.Background()

			if _, err := p.Apply(ctx, once, "r"); err != nil {
				return false
			}
			// Start twice from another role's state to exercise the reset.
			if _, err := p.Apply(ctx, twice, "o"); err != nil {
				return false
			}
			if _, err := p.Apply(ctx, twice, "r"); err != nil {
				return false
			}
			if _, err := p.Apply(ctx, twice, "r"); err != nil {
				return false
			}

			a, b := once.visible(), twice.visible()
			if len(a) != len(b) {
				return false
			}
			for k, v := range a {
				if b[k] != v {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestRoleWithEmptyHideListShowsAll checks that a role hiding nothing leaves
// every visual visible, whatever the previous state.
func TestRoleWithEmptyHideListShowsAll(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("empty hide list shows all", prop.ForAll(
		func(report []string, initial []bool) bool {
			target := newFakeTarget(uniqueNames(report)...)
			for i, v := range target.visuals {
				if i < len(initial) {
					v.Visible = initial[i]
				}
			}
			if _, err := DefaultPolicy().Apply(context.Background(), target, RoleBoth); err != nil {
				return false
			}
			for _, v := range target.visuals {
				if !v.Visible {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
