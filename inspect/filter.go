package inspect

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rlch/edmx/edm"
)

// Entity is the environment a filter expression is evaluated against.
//
//	len(navigations) > 0 && name startsWith "Blog"
//	"Title" in properties
type Entity struct {
	Name        string   `expr:"name"`
	Set         string   `expr:"set"`
	Base        string   `expr:"base"`
	Abstract    bool     `expr:"abstract"`
	Key         []string `expr:"key"`
	Properties  []string `expr:"properties"`
	Navigations []string `expr:"navigations"`
}

// Filter selects entity types by a boolean expr-lang expression.
type Filter struct {
	source  string
	program *vm.Program
}

// CompileFilter compiles src. The expression must evaluate to a bool.
func CompileFilter(src string) (*Filter, error) {
	program, err := expr.Compile(src, expr.Env(Entity{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("inspect: compiling filter %q: %w", src, err)
	}

	return &Filter{source: src, program: program}, nil
}

// String returns the filter's source expression.
func (f *Filter) String() string {
	return f.source
}

// Match reports whether et satisfies the filter. A nil filter matches everything.
func (f *Filter) Match(m *edm.Model, et *edm.EntityType) (bool, error) {
	if f == nil {
		return true, nil
	}

	out, err := expr.Run(f.program, entityEnv(m, et))
	if err != nil {
		return false, fmt.Errorf("inspect: evaluating filter on %s: %w", et.Name, err)
	}

	matched, _ := out.(bool)

	return matched, nil
}

func entityEnv(m *edm.Model, et *edm.EntityType) Entity {
	env := Entity{
		Name:     et.Name,
		Base:     m.Unqualify(et.BaseType),
		Abstract: et.Abstract,
		Key:      et.Key,
	}

	if es := m.EntitySetFor(et.Name); es != nil {
		env.Set = es.Name
	}

	for _, p := range et.Properties {
		env.Properties = append(env.Properties, p.Name)
	}

	for _, n := range et.NavigationProperties {
		env.Navigations = append(env.Navigations, n.Name)
	}

	return env
}
