package view

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"
)

// RecordVariable is the name a where-clause uses for the current record,
// e.g. `_.status == "Active" && _.ports > 8`.
const RecordVariable = "_"

// Where is a compiled CEL predicate evaluated against each record.
type Where struct {
	expr string
	prg  cel.Program
}

func newRecordEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(RecordVariable, cel.MapType(cel.StringType, cel.DynType)),
		celext.Strings(),
		celext.Lists(),
		celext.Math(),
	)
}

// CompileWhere compiles expr. Parse and type errors, and expressions that
// cannot produce a bool, are returned as *ConfigurationError. A blank expr
// compiles to nil, which matches every record.
func CompileWhere(expr string) (*Where, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	env, err := newRecordEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, configErrorf("where", "compile %q: %v", expr, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, configErrorf("where", "%q evaluates to %s, not bool", expr, out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, configErrorf("where", "program %q: %v", expr, err)
	}
	return &Where{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (w *Where) String() string {
	if w == nil {
		return ""
	}
	return w.expr
}

// Match evaluates the predicate against rec. A nil Where matches.
// Evaluation errors (such as a missing key) and non-bool results are
// returned so the caller can exclude the record.
func (w *Where) Match(rec Record) (bool, error) {
	if w == nil {
		return true, nil
	}
	out, _, err := w.prg.Eval(map[string]any{
		RecordVariable: map[string]any(rec),
	})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", w.expr, err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("eval %q: result %v is %v, not bool", w.expr, out, out.Type())
	}
	return bool(b), nil
}
