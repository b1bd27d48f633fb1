package treecalc

import (
	"strings"

	"github.com/pkg/errors"
)

// Profile is a persisted user-defined function: a body expression over
// formal parameters, plus the external symbols the body needs.
type Profile struct {
	// Name is the function's name.
	Name string
	// Params are the formal parameter names, bound in order to the call's
	// arguments.
	Params []string
	// Description is free text for humans.
	Description string
	// Imports names the symbols the body resolves externally.
	Imports map[string]Import
	// Body is the reduced function body.
	Body *Expr
}

// Import describes one externally resolved symbol of a profile.
type Import struct {
	// Kind is one of "variable", "function", "consumer", or "operator".
	Kind string
	// Value, if set for a variable, is a numeric literal giving the
	// variable's value inside the body. Otherwise the symbol table must
	// supply the symbol.
	Value string
}

// CompileProfile compiles src as the body of a profile with the given
// parameters. The imports are every symbol of tab that the body uses, other
// than the parameters.
func CompileProfile(name string, params []string, src string, tab SymbolTable, tm TypeManager, opts ...Option) (*Profile, error) {
	body, err := Compile(src, tab, tm, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling profile %s", name)
	}
	p := Profile{Name: name, Params: params, Imports: make(map[string]Import), Body: body}
	isParam := make(map[string]bool, len(params))
	for _, name := range params {
		isParam[name] = true
		if k, ok := body.identIdx[name]; ok {
			body.idents[k].role = roleLocal
		}
	}
	for _, id := range body.idents {
		if isParam[id.name] {
			continue
		}
		switch id.role {
		case roleVariable:
			p.Imports[id.name] = Import{Kind: "variable"}
		case roleFunction:
			p.Imports[id.name] = Import{Kind: "function"}
		case roleConsumer:
			p.Imports[id.name] = Import{Kind: "consumer"}
		case roleNamedOp:
			p.Imports[id.name] = Import{Kind: "operator"}
		}
	}
	for _, op := range body.ops {
		switch op.kind {
		case opBinary, opPrefix, opPostfix, opCalculus:
			p.Imports[op.name] = Import{Kind: "operator"}
		}
	}
	return &p, nil
}

// MarshalJSON writes the profile in the persisted format.
func (p *Profile) MarshalJSON() ([]byte, error) {
	if p.Body == nil {
		return nil, errors.New("treecalc: profile has no body")
	}
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)
	stream.WriteObjectStart()
	writeType(stream, typeProfile)
	writeField(stream, "name", p.Name)
	stream.WriteMore()
	stream.WriteObjectField("params")
	stream.WriteArrayStart()
	for i, name := range p.Params {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteString(name)
	}
	stream.WriteArrayEnd()
	if p.Description != "" {
		writeField(stream, "description", p.Description)
	}
	if len(p.Imports) > 0 {
		names := make([]string, 0, len(p.Imports))
		for name := range p.Imports {
			names = append(names, name)
		}
		sortstrs(names)
		stream.WriteMore()
		stream.WriteObjectField("imports")
		stream.WriteObjectStart()
		for i, name := range names {
			if i > 0 {
				stream.WriteMore()
			}
			imp := p.Imports[name]
			stream.WriteObjectField(name)
			stream.WriteObjectStart()
			stream.WriteObjectField("kind")
			stream.WriteString(imp.Kind)
			if imp.Value != "" {
				writeField(stream, "value", imp.Value)
			}
			stream.WriteObjectEnd()
		}
		stream.WriteObjectEnd()
	}
	stream.WriteMore()
	stream.WriteObjectField("body")
	if err := p.Body.writeTo(stream); err != nil {
		return nil, err
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// UnmarshalProfile restores a profile written by MarshalJSON. The body is
// reduced but not attributed.
func UnmarshalProfile(data []byte) (*Profile, error) {
	var v interface{}
	if err := jsonAPI.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decoding profile")
	}
	_, sch, err := schemas()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(v); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	m := v.(map[string]interface{})
	p := Profile{Imports: make(map[string]Import)}
	p.Name, _ = m["name"].(string)
	p.Description, _ = m["description"].(string)
	params, _ := m["params"].([]interface{})
	for _, x := range params {
		p.Params = append(p.Params, x.(string))
	}
	imports, _ := m["imports"].(map[string]interface{})
	for name, x := range imports {
		im := x.(map[string]interface{})
		var imp Import
		imp.Kind, _ = im["kind"].(string)
		imp.Value, _ = im["value"].(string)
		p.Imports[name] = imp
	}
	if p.Body, err = decodeExpr(m["body"]); err != nil {
		return nil, errors.Wrapf(err, "decoding body of profile %s", p.Name)
	}
	for _, name := range p.Params {
		if k, ok := p.Body.identIdx[name]; ok {
			p.Body.idents[k].role = roleLocal
		}
	}
	return &p, nil
}

// IsProfile reports whether data looks like a persisted profile rather than a
// persisted expression.
func IsProfile(data []byte) bool {
	return jsonAPI.Get(data, "type").ToString() == typeProfile
}

// Resolve checks that tab provides every import of the profile that has no
// value, with the right kind.
func (p *Profile) Resolve(tab SymbolTable) error {
	for name, imp := range p.Imports {
		if imp.Kind == "variable" && imp.Value != "" {
			continue
		}
		sym, ok := tab.Lookup(name)
		if !ok {
			return errors.Wrapf(&NameError{Name: name}, "resolving imports of %s", p.Name)
		}
		var match bool
		switch imp.Kind {
		case "variable":
			_, match = sym.(*Variable)
		case "function":
			_, match = sym.(*Function)
		case "consumer":
			_, match = sym.(*Consumer)
		case "operator":
			switch sym.(type) {
			case *BinaryOperator, *UnaryOperator, *CalculusOperator, *NamedOperator:
				match = true
			}
		}
		if !match {
			return &EvalError{Name: name, Msg: "import of " + p.Name + " is not a " + imp.Kind}
		}
	}
	return nil
}

// Function attributes the profile's body against tab and returns a function
// that evaluates it with the parameters bound to the call's arguments. A
// profile with several parameters takes a Vector of that many arguments.
// Each call evaluates with a new Context created with opts.
func (p *Profile) Function(tab SymbolTable, tm TypeManager, opts ...Option) (*Function, error) {
	if err := p.Resolve(tab); err != nil {
		return nil, err
	}
	var consts []*Variable
	for name, imp := range p.Imports {
		if imp.Kind != "variable" || imp.Value == "" {
			continue
		}
		v, err := tm.Parse(imp.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing value of %s in %s", name, p.Name)
		}
		consts = append(consts, &Variable{Name: name, Value: v})
	}
	if !p.Body.attributed {
		if err := p.Body.Attribute(tab, tm); err != nil {
			return nil, errors.Wrapf(err, "attributing body of %s", p.Name)
		}
	}
	apply := func(x Value) (Value, error) {
		args := Vector{x}
		if len(p.Params) != 1 {
			v, ok := x.(Vector)
			if !ok || len(v) != len(p.Params) {
				got := 1
				if ok {
					got = len(v)
				}
				return nil, &DegreeError{Op: p.Name, Want: len(p.Params), Got: got}
			}
			args = v
		}
		var restores []func()
		defer func() {
			for i := len(restores) - 1; i >= 0; i-- {
				restores[i]()
			}
		}()
		for _, c := range consts {
			restores = append(restores, tab.Bind(c.Name, c))
		}
		for i, name := range p.Params {
			restores = append(restores, tab.Bind(name, &Variable{Name: name, Value: args[i]}))
		}
		return NewContext(tm, tab, opts...).Eval(p.Body)
	}
	return &Function{Name: p.Name, Apply: apply}, nil
}

// String describes the profile's signature.
func (p *Profile) String() string {
	return p.Name + "(" + strings.Join(p.Params, ", ") + ")"
}
