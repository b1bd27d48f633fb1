package treecalc

import (
	"encoding/json"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Persisted node discriminators.
const (
	typeIdentifier = "identifier"
	typeBinary     = "binary"
	typeUnary      = "unary"
	typeCall       = "call"
	typeCalculus   = "calculus"
	typeRange      = "range"
	typeProfile    = "profile"
)

var jsonAPI = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// MarshalJSON writes a reduced tree in the persisted format. Structured nodes
// are objects with a "type" discriminator, numeric literals are raw numbers,
// text literals are strings, and aggregates are arrays. Parentheses are not
// kept.
func (e *Expr) MarshalJSON() ([]byte, error) {
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)
	if err := e.writeTo(stream); err != nil {
		return nil, err
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// writeTo writes the tree to stream.
func (e *Expr) writeTo(stream *jsoniter.Stream) error {
	if !e.reduced {
		return errors.New("treecalc: cannot persist an unreduced tree")
	}
	if len(e.root.nodes) == 0 {
		return errors.New("treecalc: cannot persist an empty expression")
	}
	if err := e.writeGroup(stream, e.root); err != nil {
		return err
	}
	return stream.Error
}

func (e *Expr) writeGroup(stream *jsoniter.Stream, g *group) error {
	if g.aggregate || len(g.nodes) == 0 {
		stream.WriteArrayStart()
		for i, n := range g.nodes {
			if i > 0 {
				stream.WriteMore()
			}
			if err := e.writeNode(stream, n); err != nil {
				return err
			}
		}
		stream.WriteArrayEnd()
		return nil
	}
	if len(g.nodes) != 1 {
		return &EvalError{Msg: msgResidual}
	}
	return e.writeNode(stream, g.nodes[0])
}

func (e *Expr) writeNode(stream *jsoniter.Stream, n *node) error {
	switch n.kind {
	case nodeNum:
		num, err := jsonNumber(n.text)
		if err != nil {
			return err
		}
		stream.WriteRaw(num)
	case nodeText:
		stream.WriteString(n.text)
	case nodeIdent:
		stream.WriteObjectStart()
		writeType(stream, typeIdentifier)
		writeField(stream, "name", e.idents[n.ref].name)
		stream.WriteObjectEnd()
	case nodeBinary:
		stream.WriteObjectStart()
		writeType(stream, typeBinary)
		writeField(stream, "op", e.ops[n.ref].name)
		stream.WriteMore()
		stream.WriteObjectField("left")
		if err := e.writeNode(stream, n.left); err != nil {
			return err
		}
		stream.WriteMore()
		stream.WriteObjectField("right")
		if err := e.writeNode(stream, n.right); err != nil {
			return err
		}
		stream.WriteObjectEnd()
	case nodeUnary:
		stream.WriteObjectStart()
		writeType(stream, typeUnary)
		writeField(stream, "op", e.ops[n.ref].name)
		if e.ops[n.ref].kind == opPostfix {
			stream.WriteMore()
			stream.WriteObjectField("postfix")
			stream.WriteBool(true)
		}
		stream.WriteMore()
		stream.WriteObjectField("operand")
		if err := e.writeNode(stream, n.left); err != nil {
			return err
		}
		stream.WriteObjectEnd()
	case nodeCall:
		stream.WriteObjectStart()
		writeType(stream, typeCall)
		writeField(stream, "name", e.idents[n.ref].name)
		stream.WriteMore()
		stream.WriteObjectField("param")
		if err := e.writeNode(stream, n.left); err != nil {
			return err
		}
		stream.WriteObjectEnd()
	case nodeCalc:
		stream.WriteObjectStart()
		writeType(stream, typeCalculus)
		writeField(stream, "name", e.idents[n.calc.fn].name)
		writeField(stream, "op", e.ops[n.calc.op].name)
		stream.WriteMore()
		stream.WriteObjectField("param")
		if err := e.writeNode(stream, n.left); err != nil {
			return err
		}
		stream.WriteObjectEnd()
	case nodeRange:
		return e.writeRange(stream, n.rng)
	case nodeGroup, nodeAggregate:
		return e.writeGroup(stream, n.grp)
	default:
		return errors.Errorf("treecalc: cannot persist node of kind %v", n.kind)
	}
	return nil
}

func (e *Expr) writeRange(stream *jsoniter.Stream, r *rangeDesc) error {
	stream.WriteObjectStart()
	writeType(stream, typeRange)
	writeField(stream, "var", r.v)
	if r.consumer >= 0 {
		writeField(stream, "consumer", e.idents[r.consumer].name)
	}
	if r.point {
		stream.WriteMore()
		stream.WriteObjectField("point")
		stream.WriteBool(true)
	} else {
		writeField(stream, "lower", e.ops[r.lower].name)
		writeField(stream, "upper", e.ops[r.upper].name)
	}
	subs := []struct {
		name string
		g    *group
	}{
		{"lo", r.lo},
		{"hi", r.hi},
		{"delta", r.delta},
		{"target", r.target},
	}
	for _, s := range subs {
		if s.g == nil {
			continue
		}
		stream.WriteMore()
		stream.WriteObjectField(s.name)
		if err := e.writeGroup(stream, s.g); err != nil {
			return err
		}
	}
	stream.WriteObjectEnd()
	return nil
}

// writeType writes the discriminator, which is always the first field.
func writeType(stream *jsoniter.Stream, typ string) {
	stream.WriteObjectField("type")
	stream.WriteString(typ)
}

// writeField writes a string field following another field.
func writeField(stream *jsoniter.Stream, name, val string) {
	stream.WriteMore()
	stream.WriteObjectField(name)
	stream.WriteString(val)
}

// jsonNumber converts numeric literal text to a JSON number. Infinities have
// no JSON form.
func jsonNumber(text string) (string, error) {
	mant, exp := text, ""
	if k := strings.IndexAny(text, "eE"); k >= 0 {
		mant, exp = text[:k], text[k:]
	}
	whole, frac := mant, ""
	if k := strings.IndexByte(mant, '.'); k >= 0 {
		whole, frac = mant[:k], mant[k+1:]
	}
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return "", errors.Errorf("treecalc: numeric literal %q has no JSON form", text)
		}
	}
	num := whole
	if frac != "" {
		num += "." + frac
	}
	return num + exp, nil
}

// UnmarshalExpr restores a tree written by MarshalJSON. The result is reduced
// but not attributed: call Attribute before evaluating it.
func UnmarshalExpr(data []byte) (*Expr, error) {
	var v interface{}
	if err := jsonAPI.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decoding expression")
	}
	sch, _, err := schemas()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(v); err != nil {
		return nil, errors.Wrap(err, "invalid expression")
	}
	return decodeExpr(v)
}

// decodeExpr builds a reduced tree from a validated decoded document.
func decodeExpr(v interface{}) (*Expr, error) {
	e := newExpr()
	e.root = e.newGroup(nil, groupRoot, 1)
	if items, ok := v.([]interface{}); ok {
		if err := e.decodeItems(e.root, items); err != nil {
			return nil, err
		}
	} else {
		n, err := e.decodeNode(v, e.root)
		if err != nil {
			return nil, err
		}
		e.root.nodes = []*node{n}
	}
	e.finish()
	e.reduced = true
	return e, nil
}

// decodeItems fills an aggregate group with one cached item group per member.
func (e *Expr) decodeItems(g *group, items []interface{}) error {
	g.aggregate = true
	for _, it := range items {
		item := e.newGroup(g, groupItem, 0)
		n, err := e.decodeNode(it, item)
		if err != nil {
			return err
		}
		item.nodes = []*node{n}
		e.components = append(e.components, item)
		g.nodes = append(g.nodes, &node{kind: nodeGroup, grp: item})
	}
	return nil
}

func (e *Expr) decodeNode(v interface{}, parent *group) (*node, error) {
	switch v := v.(type) {
	case json.Number:
		return &node{kind: nodeNum, text: v.String()}, nil
	case float64:
		return &node{kind: nodeNum, text: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	case string:
		return &node{kind: nodeText, text: v}, nil
	case []interface{}:
		g := e.newGroup(parent, groupParen, 0)
		if err := e.decodeItems(g, v); err != nil {
			return nil, err
		}
		e.components = append(e.components, g)
		return &node{kind: nodeAggregate, grp: g}, nil
	case map[string]interface{}:
		return e.decodeObject(v, parent)
	default:
		return nil, errors.Errorf("treecalc: unexpected %T in persisted tree", v)
	}
}

func (e *Expr) decodeObject(m map[string]interface{}, parent *group) (*node, error) {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	sub := func(k string) (*node, error) {
		return e.decodeNode(m[k], parent)
	}
	switch typ := str("type"); typ {
	case typeIdentifier:
		return &node{kind: nodeIdent, ref: e.ident(str("name"), 0)}, nil
	case typeBinary:
		l, err := sub("left")
		if err != nil {
			return nil, err
		}
		r, err := sub("right")
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeBinary, ref: e.op(str("op"), 0), left: l, right: r}, nil
	case typeUnary:
		x, err := sub("operand")
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeUnary, ref: e.op(str("op"), 0), left: x}, nil
	case typeCall:
		p, err := sub("param")
		if err != nil {
			return nil, err
		}
		fn := &node{kind: nodeIdent, ref: e.ident(str("name"), 0)}
		return e.invocation(fn, p), nil
	case typeCalculus:
		p, err := sub("param")
		if err != nil {
			return nil, err
		}
		c := &calculus{fn: e.ident(str("name"), 0), op: e.op(str("op"), 0)}
		return &node{kind: nodeCalc, left: p, calc: c}, nil
	case typeRange:
		return e.decodeRange(m, parent)
	default:
		return nil, errors.Errorf("treecalc: unknown node type %q", typ)
	}
}

func (e *Expr) decodeRange(m map[string]interface{}, parent *group) (*node, error) {
	r := &rangeDesc{parent: parent, lower: -1, upper: -1, consumer: -1}
	r.endpoints = e.newGroup(parent, groupEndpoints, 0)
	r.endpoints.rng = r
	r.v, _ = m["var"].(string)
	e.idents[e.ident(r.v, 0)].role = roleLocal
	if c, ok := m["consumer"].(string); ok {
		r.consumer = e.ident(c, 0)
	}
	r.point, _ = m["point"].(bool)
	if !r.point {
		lower, _ := m["lower"].(string)
		upper, _ := m["upper"].(string)
		r.lower, r.upper = e.op(lower, 0), e.op(upper, 0)
	}
	sub := func(k string, role groupRole) (*group, error) {
		v, ok := m[k]
		if !ok {
			return nil, nil
		}
		g := e.newGroup(parent, role, 0)
		g.rng = r
		n, err := e.decodeNode(v, g)
		if err != nil {
			return nil, err
		}
		g.nodes = []*node{n}
		return g, nil
	}
	var err error
	if r.lo, err = sub("lo", groupBound); err != nil {
		return nil, err
	}
	if !r.point {
		if r.hi, err = sub("hi", groupBound); err != nil {
			return nil, err
		}
		if r.delta, err = sub("delta", groupBound); err != nil {
			return nil, err
		}
	}
	if r.target, err = sub("target", groupTarget); err != nil {
		return nil, err
	}
	e.ranges = append(e.ranges, r)
	return &node{kind: nodeRange, rng: r}, nil
}
