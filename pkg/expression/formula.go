package expression

import (
	"fmt"
	"math"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/cardscore/cardscore/pkg/evalctx"
)

// Formula is an arithmetic expression such as `income / 1000 * 0.75`,
// compiled once with expr. The fields it reads are found at compile time;
// when any of them is missing the formula is missing and is not run.
type Formula struct {
	Source string
	Fields []string

	program *vm.Program
}

// NewFormula compiles source. When dict is non-nil only identifiers declared
// in it are treated as input fields.
func NewFormula(source string, dict *evalctx.Dictionary) (*Formula, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse formula %q: %w", source, err)
	}

	c := &identCollector{}
	ast.Walk(&tree.Node, c)

	var fields []string
	for _, name := range c.identifiers() {
		if dict != nil && dict.Len() > 0 {
			if _, ok := dict.Field(name); !ok {
				return nil, fmt.Errorf("formula %q references undeclared field %q", source, name)
			}
		}
		fields = append(fields, name)
	}

	program, err := expr.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile formula %q: %w", source, err)
	}

	return &Formula{Source: source, Fields: fields, program: program}, nil
}

func (f *Formula) Evaluate(ctx *evalctx.Context) (evalctx.Value, bool, error) {
	env := make(map[string]any, len(f.Fields))
	for _, name := range f.Fields {
		v, ok, err := ctx.Lookup(name)
		if err != nil {
			return evalctx.Value{}, false, err
		}
		if !ok {
			return evalctx.Value{}, false, nil
		}
		env[name] = v.Interface()
	}

	out, err := expr.Run(f.program, env)
	if err != nil {
		return evalctx.Value{}, false, fmt.Errorf("run formula %q: %w", f.Source, err)
	}

	n, err := asFloat(out)
	if err != nil {
		return evalctx.Value{}, false, fmt.Errorf("formula %q: %w", f.Source, err)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return evalctx.Value{}, false, fmt.Errorf("formula %q produced %v", f.Source, n)
	}
	return evalctx.FloatValue(n), true, nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("result %v (%T) is not numeric", v, v)
	}
}

// identCollector gathers free identifiers, skipping called function names
// and variables bound with let.
type identCollector struct {
	seen  []string
	bound []string
}

func (c *identCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if !slices.Contains(c.seen, n.Value) {
			c.seen = append(c.seen, n.Value)
		}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.bound = append(c.bound, id.Value)
		}
	case *ast.VariableDeclaratorNode:
		c.bound = append(c.bound, n.Name)
	}
}

func (c *identCollector) identifiers() []string {
	var out []string
	for _, name := range c.seen {
		if !slices.Contains(c.bound, name) {
			out = append(out, name)
		}
	}
	return out
}
