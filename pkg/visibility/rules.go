package visibility

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
)

var (
	ruleEnvOnce sync.Once
	ruleEnv     *cel.Env
	ruleEnvErr  error
)

// ruleEnvironment exposes a single "visual" map with name and kind.
func ruleEnvironment() (*cel.Env, error) {
	ruleEnvOnce.Do(func() {
		ruleEnv, ruleEnvErr = cel.NewEnv(
			cel.Variable("visual", cel.MapType(cel.StringType, cel.DynType)),
		)
		if ruleEnvErr != nil {
			ruleEnvErr = fmt.Errorf("failed to create CEL env: %w", ruleEnvErr)
		}
	})
	return ruleEnv, ruleEnvErr
}

// rule is a compiled hide expression.
type rule struct {
	expr string
	prg  cel.Program
}

func compileRule(expr string) (*rule, error) {
	env, err := ruleEnvironment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error in rule %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(types.BoolType) {
		return nil, fmt.Errorf("rule %q must return bool, got %s", expr, ast.OutputType())
	}
	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program error in rule %q: %w", expr, err)
	}
	return &rule{expr: expr, prg: p}, nil
}

func (r *rule) match(v *embedsdk.Visual) (bool, error) {
	activation := map[string]any{
		"visual": map[string]any{
			"name": v.Name,
			"kind": v.Kind.String(),
		},
	}
	out, _, err := r.prg.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("CEL eval error in rule %q: %w", r.expr, err)
	}
	hide, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q did not return bool", r.expr)
	}
	return hide, nil
}
