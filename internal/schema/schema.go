package schema

import (
	"fmt"
	"sort"
	"strings"

	"worker/internal/domain"
)

// Kind identifies the coerced Go type of a schema field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Constraint is a named predicate over an already-coerced value. Naming the
// constraint keeps validation failures self-describing and lets constraints
// be unit-tested apart from the validator.
type Constraint interface {
	Name() string
	Check(v any) bool
}

// OneOfString restricts a string field to a fixed set.
type OneOfString struct {
	Allowed []string
}

func (c OneOfString) Name() string {
	return fmt.Sprintf("one of [%s]", strings.Join(c.Allowed, ", "))
}

func (c OneOfString) Check(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, a := range c.Allowed {
		if s == a {
			return true
		}
	}
	return false
}

// OneOfInt restricts an int field to a fixed set.
type OneOfInt struct {
	Allowed []int
}

func (c OneOfInt) Name() string {
	parts := make([]string, len(c.Allowed))
	for i, a := range c.Allowed {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return fmt.Sprintf("one of [%s]", strings.Join(parts, ", "))
}

func (c OneOfInt) Check(v any) bool {
	n, ok := v.(int)
	if !ok {
		return false
	}
	for _, a := range c.Allowed {
		if n == a {
			return true
		}
	}
	return false
}

// IntRange restricts an int field to an inclusive range.
type IntRange struct {
	Min, Max int
}

func (c IntRange) Name() string {
	return fmt.Sprintf("between %d and %d", c.Min, c.Max)
}

func (c IntRange) Check(v any) bool {
	n, ok := v.(int)
	return ok && n >= c.Min && n <= c.Max
}

// FloatRange restricts a float field to an inclusive range.
type FloatRange struct {
	Min, Max float64
}

func (c FloatRange) Name() string {
	return fmt.Sprintf("between %g and %g", c.Min, c.Max)
}

func (c FloatRange) Check(v any) bool {
	f, ok := v.(float64)
	return ok && f >= c.Min && f <= c.Max
}

// Field declares a single accepted request parameter.
type Field struct {
	Name       string
	Kind       Kind
	Required   bool
	Default    any // nil means the field resolves to unset
	Constraint Constraint
}

// Schema is the complete set of legal fields for one task type.
type Schema struct {
	Task   domain.TaskType
	fields map[string]Field
}

// New builds a Schema from field declarations. Duplicate names panic: schemas
// are assembled from literals at startup, so a duplicate is a programming
// error, not input.
func New(task domain.TaskType, fields ...Field) *Schema {
	s := &Schema{Task: task, fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if _, dup := s.fields[f.Name]; dup {
			panic(fmt.Sprintf("schema: duplicate field %q for task %s", f.Name, task))
		}
		s.fields[f.Name] = f
	}
	return s
}

// Field looks up a declared field by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Has reports whether a field is declared on the schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Names returns the declared field names in stable order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
