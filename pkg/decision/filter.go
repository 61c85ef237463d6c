package decision

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Filter is a compiled CEL eligibility expression evaluated per candidate.
//
// The expression sees a single map variable named candidate with the keys
// region, carbon_intensity, latency_ms and cost_per_unit, for example:
//
//	candidate.latency_ms < 200.0 && candidate.region != "BR-CS"
type Filter struct {
	expr    string
	program cel.Program
}

// CompileFilter compiles expr. An empty expression yields a nil filter that
// admits everything.
func CompileFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("candidate", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program for filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Allow reports whether c passes the filter.
func (f *Filter) Allow(c Candidate) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.program.Eval(map[string]any{
		"candidate": map[string]any{
			"region":           c.Region,
			"carbon_intensity": c.CarbonIntensity,
			"latency_ms":       c.LatencyMs,
			"cost_per_unit":    c.CostPerUnit,
		},
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter on %s: %w", c.Region, err)
	}
	if out.Type() != types.BoolType {
		return false, fmt.Errorf("filter %q returned %s, want bool", f.expr, out.Type())
	}
	return out.Value().(bool), nil
}

// Apply returns the candidates that pass, in order. Candidates whose
// evaluation fails are dropped.
func (f *Filter) Apply(candidates []Candidate) ([]Candidate, []error) {
	if f == nil {
		return candidates, nil
	}
	var errs []error
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		ok, err := f.Allow(c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, errs
}
