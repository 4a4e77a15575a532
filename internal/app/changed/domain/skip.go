package domain

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// FieldMatcher selects fields by name.
type FieldMatcher interface {
	Match(field string) bool
}

// SkipDirective suppresses reactions for one operation. The zero value
// suppresses nothing.
type SkipDirective struct {
	all     bool
	fields  map[string]bool
	matcher FieldMatcher
}

// SkipNone returns a directive that suppresses nothing.
func SkipNone() SkipDirective { return SkipDirective{} }

// SkipAll returns a directive that suppresses every reaction. Detection is
// skipped entirely for the operation.
func SkipAll() SkipDirective { return SkipDirective{all: true} }

// SkipBool returns SkipAll for true and SkipNone for false.
func SkipBool(skip bool) SkipDirective { return SkipDirective{all: skip} }

// SkipField suppresses the reaction of a single field.
func SkipField(field string) SkipDirective {
	return SkipFields(field)
}

// SkipFields suppresses the reactions of each named field.
func SkipFields(fields ...string) SkipDirective {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return SkipDirective{fields: set}
}

// SkipMatching suppresses the reaction of every field the matcher selects.
func SkipMatching(m FieldMatcher) SkipDirective {
	return SkipDirective{matcher: m}
}

// All returns true if every reaction is suppressed.
func (d SkipDirective) All() bool { return d.all }

// Skips returns true if the reaction of field is suppressed.
func (d SkipDirective) Skips(field string) bool {
	if d.all {
		return true
	}
	if d.fields[field] {
		return true
	}
	return d.matcher != nil && d.matcher.Match(field)
}

// FieldSet matches the fields mapped to true.
type FieldSet map[string]bool

// Match implements FieldMatcher.
func (s FieldSet) Match(field string) bool { return s[field] }

// CELMatcher matches fields with a CEL expression over the string variable
// `field`, e.g. `field.startsWith("nick")` or `field in ["age", "status"]`.
type CELMatcher struct {
	expr    string
	program cel.Program
}

// NewCELMatcher compiles expr.
func NewCELMatcher(expr string) (*CELMatcher, error) {
	env, err := cel.NewEnv(cel.Variable("field", cel.StringType))
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSkipExpression, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSkipExpression, err)
	}

	return &CELMatcher{expr: expr, program: prg}, nil
}

// Match implements FieldMatcher. Evaluation errors and non-boolean results
// do not match, so a broken expression never hides a reaction.
func (m *CELMatcher) Match(field string) bool {
	out, _, err := m.program.Eval(map[string]interface{}{"field": field})
	if err != nil {
		return false
	}
	match, ok := out.Value().(bool)
	return ok && match
}

// String returns the source expression.
func (m *CELMatcher) String() string { return m.expr }
