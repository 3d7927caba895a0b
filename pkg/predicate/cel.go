package predicate

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/cardscore/cardscore/pkg/evalctx"
)

// CEL is a condition written in the Common Expression Language, e.g.
// `age >= 21.0 && state in ["CA", "NY"]`. Every dictionary field is declared
// as a dynamically typed variable.
//
// A referenced field that is missing stays unbound, so evaluation fails and
// the result is Unknown. A referenced field whose value does not convert to
// its declared type is an error, as for Simple. Any other evaluation error
// or a non-boolean result is Unknown.
type CEL struct {
	Source string

	fields  []string // dictionary fields the expression references
	program cel.Program
}

// NewCEL compiles source against the dictionary's fields.
func NewCEL(source string, dict *evalctx.Dictionary) (*CEL, error) {
	if dict.Len() == 0 {
		return nil, fmt.Errorf("cel predicate %q: a data dictionary is required", source)
	}

	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	for _, name := range dict.Names() {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, iss := env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("cel compile %q: %w", source, iss.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program %q: %w", source, err)
	}

	referenced := make(map[string]bool)
	for _, ref := range ast.NativeRep().ReferenceMap() {
		if ref != nil && ref.Name != "" {
			referenced[ref.Name] = true
		}
	}
	var fields []string
	for _, name := range dict.Names() {
		if referenced[name] {
			fields = append(fields, name)
		}
	}

	return &CEL{Source: source, fields: fields, program: program}, nil
}

func (p *CEL) Evaluate(ctx *evalctx.Context) (TriState, error) {
	activation := make(map[string]any, len(p.fields))
	for _, name := range p.fields {
		v, ok, err := ctx.Lookup(name)
		if err != nil {
			return Unknown, err
		}
		if !ok {
			// Left unbound: referencing it fails evaluation, which is Unknown.
			continue
		}
		activation[name] = v.Interface()
	}

	out, _, err := p.program.Eval(activation)
	if err != nil {
		return Unknown, nil
	}

	b, ok := out.Value().(bool)
	if !ok {
		return Unknown, nil
	}
	return FromBool(b), nil
}
