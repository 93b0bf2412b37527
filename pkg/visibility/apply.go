package visibility

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
)

// Target is a rendered report whose visuals can be toggled.
// *embedsdk.Report satisfies it.
type Target interface {
	Visuals(ctx context.Context) ([]*embedsdk.Visual, error)
	Render() error
}

// Result describes the state a role left a report in. Names are in report order.
type Result struct {
	Role    Role     `json:"role"`
	Hidden  []string `json:"hidden"`
	Visible []string `json:"visible"`
}

// Apply makes every visual visible, hides the ones role must not see, and
// renders target once. An unknown role hides nothing. A nil policy behaves
// like an empty one.
func (p *Policy) Apply(ctx context.Context, target Target, role Role) (Result, error) {
	visuals, err := target.Visuals(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("apply role %s: %w", role, err)
	}

	res := Result{Role: role, Hidden: []string{}, Visible: []string{}}
	for _, v := range visuals {
		v.Visible = true
		if p != nil && p.hides(role, v) {
			v.Visible = false
			res.Hidden = append(res.Hidden, v.Name)
			continue
		}
		res.Visible = append(res.Visible, v.Name)
	}

	if err := target.Render(); err != nil {
		return res, fmt.Errorf("apply role %s: %w", role, err)
	}
	return res, nil
}

// ShowAll makes every visual of target visible and renders it once.
func ShowAll(ctx context.Context, target Target) error {
	visuals, err := target.Visuals(ctx)
	if err != nil {
		return fmt.Errorf("show all visuals: %w", err)
	}
	for _, v := range visuals {
		v.Visible = true
	}
	if err := target.Render(); err != nil {
		return fmt.Errorf("show all visuals: %w", err)
	}
	return nil
}
