package task

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"liftplan/internal/state"
	"liftplan/internal/tuple"
)

// RootType is the implicit supertype of every declared type.
const RootType = "object"

// Definition is the on-disk form of a task. Atoms are written as
// s-expressions, e.g. "(at ?x)" or "(not (clear ?y))".
type Definition struct {
	Domain     string         `yaml:"domain" validate:"required"`
	Problem    string         `yaml:"problem" validate:"required"`
	Types      []TypeDef      `yaml:"types,omitempty" validate:"dive"`
	Predicates []PredicateDef `yaml:"predicates" validate:"dive"`
	Objects    []ObjectDef    `yaml:"objects" validate:"dive"`
	Actions    []ActionDef    `yaml:"actions" validate:"required,dive"`
	Init       []string       `yaml:"init"`
	Goal       []string       `yaml:"goal" validate:"required,min=1"`
}

// TypeDef declares a type and its parent.
type TypeDef struct {
	Name   string `yaml:"name" validate:"required"`
	Parent string `yaml:"parent,omitempty"`
}

// PredicateDef declares a predicate by the types of its arguments.
type PredicateDef struct {
	Name   string   `yaml:"name" validate:"required"`
	Params []string `yaml:"params,omitempty"`
}

// ObjectDef declares an object of a type.
type ObjectDef struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type,omitempty"`
}

// ParamDef declares a typed action parameter.
type ParamDef struct {
	Name string `yaml:"name" validate:"required,startswith=?"`
	Type string `yaml:"type,omitempty"`
}

// ActionDef declares an action schema.
type ActionDef struct {
	Name         string     `yaml:"name" validate:"required"`
	Parameters   []ParamDef `yaml:"parameters,omitempty" validate:"dive"`
	Precondition []string   `yaml:"precondition,omitempty"`
	Effect       []string   `yaml:"effect" validate:"required,min=1"`
}

// LoadError reports a malformed task definition.
type LoadError struct {
	Where string
	Err   error
}

func (e *LoadError) Error() string { return fmt.Sprintf("task %s: %v", e.Where, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

func loadErr(where string, format string, args ...any) error {
	return &LoadError{Where: where, Err: fmt.Errorf(format, args...)}
}

var validate = validator.New()

// LoadFile reads and builds a task from a YAML definition.
func LoadFile(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task: %w", err)
	}
	return Parse(data)
}

// Parse builds a task from YAML bytes.
func Parse(data []byte) (*Task, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &LoadError{Where: "yaml", Err: err}
	}
	return FromDefinition(&def)
}

// FromDefinition validates def and indexes it into a Task with a fresh
// tuple arena.
func FromDefinition(def *Definition) (*Task, error) {
	if err := validate.Struct(def); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, loadErr(verrs[0].Namespace(), "failed %q validation", verrs[0].Tag())
		}
		return nil, &LoadError{Where: "definition", Err: err}
	}

	b := &builder{
		t: &Task{
			DomainName:  def.Domain,
			ProblemName: def.Problem,
			Interner:    tuple.NewInterner(),
		},
		types: map[string]int{},
	}
	if err := b.buildTypes(def.Types); err != nil {
		return nil, err
	}
	if err := b.buildPredicates(def.Predicates); err != nil {
		return nil, err
	}
	if err := b.buildObjects(def.Objects); err != nil {
		return nil, err
	}
	if err := b.buildActions(def.Actions); err != nil {
		return nil, err
	}
	b.t.finalize()
	if err := b.buildInit(def.Init); err != nil {
		return nil, err
	}
	if err := b.buildGoal(def.Goal); err != nil {
		return nil, err
	}
	return b.t, nil
}

type builder struct {
	t     *Task
	types map[string]int
	preds map[string]int
	objs  map[string]int
}

func (b *builder) typeIndex(name string) (int, bool) {
	if name == "" {
		name = RootType
	}
	i, ok := b.types[name]
	return i, ok
}

func (b *builder) buildTypes(defs []TypeDef) error {
	b.t.Types = append(b.t.Types, Type{Index: 0, Name: RootType, Parent: NoParent})
	b.types[RootType] = 0
	for _, d := range defs {
		if d.Name == RootType {
			continue
		}
		if _, dup := b.types[d.Name]; dup {
			return loadErr("types", "duplicate type %q", d.Name)
		}
		b.types[d.Name] = len(b.t.Types)
		b.t.Types = append(b.t.Types, Type{Index: len(b.t.Types), Name: d.Name})
	}
	for _, d := range defs {
		if d.Name == RootType {
			continue
		}
		parent, ok := b.typeIndex(d.Parent)
		if !ok {
			return loadErr("types", "type %q has unknown parent %q", d.Name, d.Parent)
		}
		b.t.Types[b.types[d.Name]].Parent = parent
	}
	// reject cycles
	for _, typ := range b.t.Types {
		steps := 0
		for cur := typ.Index; cur != NoParent; cur = b.t.Types[cur].Parent {
			if steps++; steps > len(b.t.Types) {
				return loadErr("types", "type %q has a cyclic parent chain", typ.Name)
			}
		}
	}
	return nil
}

func (b *builder) buildPredicates(defs []PredicateDef) error {
	b.preds = make(map[string]int, len(defs))
	for _, d := range defs {
		if _, dup := b.preds[d.Name]; dup {
			return loadErr("predicates", "duplicate predicate %q", d.Name)
		}
		p := Predicate{Index: len(b.t.Predicates), Name: d.Name, NegationOf: -1}
		for _, tn := range d.Params {
			ti, ok := b.typeIndex(tn)
			if !ok {
				return loadErr("predicates", "predicate %s: unknown type %q", d.Name, tn)
			}
			p.Types = append(p.Types, ti)
		}
		b.preds[d.Name] = p.Index
		b.t.Predicates = append(b.t.Predicates, p)
	}
	return nil
}

func (b *builder) buildObjects(defs []ObjectDef) error {
	b.objs = make(map[string]int, len(defs))
	for _, d := range defs {
		if _, dup := b.objs[d.Name]; dup {
			return loadErr("objects", "duplicate object %q", d.Name)
		}
		ti, ok := b.typeIndex(d.Type)
		if !ok {
			return loadErr("objects", "object %s: unknown type %q", d.Name, d.Type)
		}
		b.objs[d.Name] = len(b.t.Objects)
		b.t.Objects = append(b.t.Objects, Object{Index: len(b.t.Objects), Name: d.Name, Types: []int{ti}})
	}
	return nil
}

func (b *builder) buildActions(defs []ActionDef) error {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if seen[d.Name] {
			return loadErr("actions", "duplicate action %q", d.Name)
		}
		seen[d.Name] = true

		schema := ActionSchema{Index: len(b.t.Schemas), Name: d.Name}
		params := make(map[string]int, len(d.Parameters))
		for _, pd := range d.Parameters {
			ti, ok := b.typeIndex(pd.Type)
			if !ok {
				return loadErr("action "+d.Name, "parameter %s: unknown type %q", pd.Name, pd.Type)
			}
			if _, dup := params[pd.Name]; dup {
				return loadErr("action "+d.Name, "duplicate parameter %s", pd.Name)
			}
			params[pd.Name] = len(schema.Parameters)
			schema.Parameters = append(schema.Parameters, Parameter{Index: len(schema.Parameters), Name: pd.Name, Type: ti})
		}

		for _, src := range d.Precondition {
			atom, err := b.schemaAtom(&schema, params, src, true)
			if err != nil {
				return err
			}
			schema.Preconditions = append(schema.Preconditions, atom)
		}
		for _, src := range d.Effect {
			atom, err := b.schemaAtom(&schema, params, src, false)
			if err != nil {
				return err
			}
			schema.Effects = append(schema.Effects, atom)
		}
		b.t.Schemas = append(b.t.Schemas, schema)
	}
	return nil
}

func (b *builder) schemaAtom(schema *ActionSchema, params map[string]int, src string, precondition bool) (Atom, error) {
	where := "action " + schema.Name
	lit, err := parseLiteral(src)
	if err != nil {
		return Atom{}, &LoadError{Where: where, Err: err}
	}

	atom := Atom{Negated: lit.negated}
	if lit.predicate == "=" {
		if !precondition {
			return Atom{}, loadErr(where, "equality is not allowed in effects: %s", src)
		}
		if len(lit.args) != 2 {
			return Atom{}, loadErr(where, "equality takes two arguments: %s", src)
		}
		atom.Predicate = Equality
	} else {
		pi, ok := b.preds[lit.predicate]
		if !ok {
			return Atom{}, loadErr(where, "unknown predicate %q", lit.predicate)
		}
		if len(lit.args) != b.t.Predicates[pi].Arity() {
			return Atom{}, loadErr(where, "%s expects %d arguments, got %d", lit.predicate, b.t.Predicates[pi].Arity(), len(lit.args))
		}
		atom.Predicate = pi
	}

	for pos, name := range lit.args {
		var arg Argument
		var argType int
		if strings.HasPrefix(name, "?") {
			i, ok := params[name]
			if !ok {
				return Atom{}, loadErr(where, "undeclared parameter %s in %s", name, src)
			}
			arg, argType = Param(i), schema.Parameters[i].Type
		} else {
			oi, ok := b.objs[name]
			if !ok {
				return Atom{}, loadErr(where, "unknown constant %q in %s", name, src)
			}
			arg, argType = Const(oi), b.t.Objects[oi].Types[0]
		}
		if atom.Predicate != Equality && !precondition {
			want := b.t.Predicates[atom.Predicate].Types[pos]
			if !b.isSubtype(argType, want) {
				return Atom{}, loadErr(where, "effect %s writes %s of type %s into a %s argument",
					src, name, b.t.Types[argType].Name, b.t.Types[want].Name)
			}
		}
		atom.Args = append(atom.Args, arg)
	}
	return atom, nil
}

func (b *builder) isSubtype(sub, sup int) bool {
	for cur := sub; cur != NoParent; cur = b.t.Types[cur].Parent {
		if cur == sup {
			return true
		}
	}
	return false
}

func (b *builder) groundAtom(where, src string) (state.Atom, bool, error) {
	lit, err := parseLiteral(src)
	if err != nil {
		return state.Atom{}, false, &LoadError{Where: where, Err: err}
	}
	pi, ok := b.preds[lit.predicate]
	if !ok {
		return state.Atom{}, false, loadErr(where, "unknown predicate %q", lit.predicate)
	}
	pred := b.t.Predicates[pi]
	if len(lit.args) != pred.Arity() {
		return state.Atom{}, false, loadErr(where, "%s expects %d arguments, got %d", pred.Name, pred.Arity(), len(lit.args))
	}
	vals := make([]int, len(lit.args))
	for i, name := range lit.args {
		oi, ok := b.objs[name]
		if !ok {
			return state.Atom{}, false, loadErr(where, "unknown object %q in %s", name, src)
		}
		if !b.isSubtype(b.t.Objects[oi].Types[0], pred.Types[i]) {
			return state.Atom{}, false, loadErr(where, "%s: object %s is not a %s", src, name, b.t.Types[pred.Types[i]].Name)
		}
		vals[i] = oi
	}
	return state.Atom{Predicate: pi, Args: b.t.Interner.Intern(vals)}, lit.negated, nil
}

func (b *builder) buildInit(srcs []string) error {
	atoms := make([]state.Atom, 0, len(srcs))
	for _, src := range srcs {
		a, neg, err := b.groundAtom("init", src)
		if err != nil {
			return err
		}
		if neg {
			return loadErr("init", "negated atom in initial state: %s", src)
		}
		atoms = append(atoms, a)
	}
	b.t.InitialState = state.New(len(b.t.Predicates), atoms...)
	return nil
}

func (b *builder) buildGoal(srcs []string) error {
	for _, src := range srcs {
		a, neg, err := b.groundAtom("goal", src)
		if err != nil {
			return err
		}
		b.t.Goal.Atoms = append(b.t.Goal.Atoms, GoalAtom{Atom: a, Negated: neg})
	}
	return nil
}
