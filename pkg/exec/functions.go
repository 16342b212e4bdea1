package exec

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// ScalarFunc is a function callable from within a query. Arguments arrive
// already evaluated.
type ScalarFunc func(rt *Runtime, args []Entry) (Entry, error)

type function struct {
	name    string
	minArgs int
	maxArgs int // -1 means variadic
	impl    ScalarFunc
}

var functions = make(map[string]*function)

// RegisterFunction registers a named function. Names are case-insensitive.
func RegisterFunction(name string, minArgs, maxArgs int, fn ScalarFunc) {
	functions[strings.ToLower(name)] = &function{name: name, minArgs: minArgs, maxArgs: maxArgs, impl: fn}
}

func lookupFunction(name string) (*function, bool) {
	fn, ok := functions[strings.ToLower(name)]
	return fn, ok
}

func (f *function) checkArity(n int) error {
	if n < f.minArgs || (f.maxArgs >= 0 && n > f.maxArgs) {
		switch {
		case f.minArgs == f.maxArgs:
			return fmt.Errorf("%w: %s() takes %d argument(s), got %d", ErrArity, f.name, f.minArgs, n)
		case f.maxArgs < 0:
			return fmt.Errorf("%w: %s() takes at least %d argument(s), got %d", ErrArity, f.name, f.minArgs, n)
		default:
			return fmt.Errorf("%w: %s() takes %d to %d arguments, got %d", ErrArity, f.name, f.minArgs, f.maxArgs, n)
		}
	}
	return nil
}

func init() {
	RegisterFunction("id", 1, 1, fnID)
	RegisterFunction("labels", 1, 1, fnLabels)
	RegisterFunction("type", 1, 1, fnType)
	RegisterFunction("keys", 1, 1, fnKeys)
	RegisterFunction("properties", 1, 1, fnProperties)
	RegisterFunction("startNode", 1, 1, fnStartNode)
	RegisterFunction("endNode", 1, 1, fnEndNode)
	RegisterFunction("length", 1, 1, fnLength)
	RegisterFunction("size", 1, 1, fnSize)

	RegisterFunction("toUpper", 1, 1, stringFunc(strings.ToUpper))
	RegisterFunction("toLower", 1, 1, stringFunc(strings.ToLower))
	RegisterFunction("trim", 1, 1, stringFunc(strings.TrimSpace))
	RegisterFunction("toString", 1, 1, fnToString)
	RegisterFunction("toInteger", 1, 1, fnToInteger)
	RegisterFunction("toFloat", 1, 1, fnToFloat)

	RegisterFunction("abs", 1, 1, fnAbs)
	RegisterFunction("coalesce", 1, -1, fnCoalesce)
	RegisterFunction("head", 1, 1, fnHead)
	RegisterFunction("last", 1, 1, fnLast)
	RegisterFunction("range", 2, 3, fnRange)
}

func constArg(args []Entry, i int, fn string) (value.Value, error) {
	if args[i].Kind != EntryConstant && !args[i].IsNull() {
		return value.Null(), typeErr("%s() does not accept a %s", fn, args[i].Kind)
	}
	return args[i].Constant, nil
}

func fnID(_ *Runtime, args []Entry) (Entry, error) {
	a := args[0]
	if a.IsNull() {
		return NullEntry(), nil
	}
	switch a.Kind {
	case EntryNode:
		return Constant(value.Int(int64(a.Vertex))), nil
	case EntryRelationship:
		return Constant(value.Int(int64(a.Edge))), nil
	}
	return NullEntry(), typeErr("id() requires a node or relationship")
}

func fnLabels(rt *Runtime, args []Entry) (Entry, error) {
	a := args[0]
	if a.IsNull() {
		return NullEntry(), nil
	}
	if a.Kind != EntryNode {
		return NullEntry(), typeErr("labels() requires a node")
	}
	v, err := rt.vertex(a.Vertex)
	if err != nil {
		return NullEntry(), err
	}
	out := make([]value.Value, len(v.Labels))
	for i, l := range v.Labels {
		out[i] = value.String(l)
	}
	return Constant(value.List(out...)), nil
}

func fnType(rt *Runtime, args []Entry) (Entry, error) {
	a := args[0]
	if a.IsNull() {
		return NullEntry(), nil
	}
	if a.Kind != EntryRelationship {
		return NullEntry(), typeErr("type() requires a relationship")
	}
	e, err := rt.edge(a.Edge)
	if err != nil {
		return NullEntry(), err
	}
	return Constant(value.String(e.Type)), nil
}

func fnKeys(rt *Runtime, args []Entry) (Entry, error) {
	if args[0].IsNull() {
		return NullEntry(), nil
	}
	props, err := properties(rt, args[0])
	if err != nil {
		return NullEntry(), err
	}
	keys := value.SortedKeys(props)
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = value.String(k)
	}
	return Constant(value.List(out...)), nil
}

func fnProperties(rt *Runtime, args []Entry) (Entry, error) {
	if args[0].IsNull() {
		return NullEntry(), nil
	}
	props, err := properties(rt, args[0])
	if err != nil {
		return NullEntry(), err
	}
	return Constant(value.Map(value.CopyMap(props))), nil
}

func endpoint(rt *Runtime, a Entry, fn string, start bool) (Entry, error) {
	if a.IsNull() {
		return NullEntry(), nil
	}
	if a.Kind != EntryRelationship {
		return NullEntry(), typeErr("%s() requires a relationship", fn)
	}
	e, err := rt.edge(a.Edge)
	if err != nil {
		return NullEntry(), err
	}
	if start {
		return NodeEntry(e.Src), nil
	}
	return NodeEntry(e.Dst), nil
}

func fnStartNode(rt *Runtime, args []Entry) (Entry, error) {
	return endpoint(rt, args[0], "startNode", true)
}

func fnEndNode(rt *Runtime, args []Entry) (Entry, error) {
	return endpoint(rt, args[0], "endNode", false)
}

func fnLength(rt *Runtime, args []Entry) (Entry, error) {
	if args[0].Kind == EntryPath && !args[0].IsNull() {
		return Constant(value.Int(int64(args[0].Path.Len()))), nil
	}
	return fnSize(rt, args)
}

func fnSize(_ *Runtime, args []Entry) (Entry, error) {
	v, err := constArg(args, 0, "size")
	if err != nil || v.IsNull() {
		return NullEntry(), err
	}
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return Constant(value.Int(int64(len([]rune(s))))), nil
	case value.KindList:
		l, _ := v.AsList()
		return Constant(value.Int(int64(len(l)))), nil
	case value.KindMap:
		m, _ := v.AsMap()
		return Constant(value.Int(int64(len(m)))), nil
	}
	return NullEntry(), typeErr("size() requires a string or list, got %s", v.Kind())
}

func stringFunc(f func(string) string) ScalarFunc {
	return func(_ *Runtime, args []Entry) (Entry, error) {
		v, err := constArg(args, 0, "string function")
		if err != nil || v.IsNull() {
			return NullEntry(), err
		}
		s, err := v.AsString()
		if err != nil {
			return NullEntry(), typeErr("expected a string, got %s", v.Kind())
		}
		return Constant(value.String(f(s))), nil
	}
}

func fnToString(_ *Runtime, args []Entry) (Entry, error) {
	v, err := constArg(args, 0, "toString")
	if err != nil || v.IsNull() {
		return NullEntry(), err
	}
	return Constant(value.String(v.String())), nil
}

func fnToInteger(_ *Runtime, args []Entry) (Entry, error) {
	v, err := constArg(args, 0, "toInteger")
	if err != nil || v.IsNull() {
		return NullEntry(), err
	}
	switch v.Kind() {
	case value.KindInt:
		return Constant(v), nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		return Constant(value.Int(int64(f))), nil
	case value.KindString:
		s, _ := v.AsString()
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return Constant(value.Int(i)), nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return Constant(value.Int(int64(f))), nil
		}
		return NullEntry(), nil
	}
	return NullEntry(), typeErr("toInteger() cannot convert %s", v.Kind())
}

func fnToFloat(_ *Runtime, args []Entry) (Entry, error) {
	v, err := constArg(args, 0, "toFloat")
	if err != nil || v.IsNull() {
		return NullEntry(), err
	}
	switch v.Kind() {
	case value.KindInt, value.KindFloat:
		f, _ := v.AsFloat()
		return Constant(value.Float(f)), nil
	case value.KindString:
		s, _ := v.AsString()
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return Constant(value.Float(f)), nil
		}
		return NullEntry(), nil
	}
	return NullEntry(), typeErr("toFloat() cannot convert %s", v.Kind())
}

func fnAbs(_ *Runtime, args []Entry) (Entry, error) {
	v, err := constArg(args, 0, "abs")
	if err != nil || v.IsNull() {
		return NullEntry(), err
	}
	switch v.Kind() {
	case value.KindInt:
		i, _ := v.AsInt()
		if i < 0 {
			i = -i
		}
		return Constant(value.Int(i)), nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		return Constant(value.Float(math.Abs(f))), nil
	}
	return NullEntry(), typeErr("abs() requires a number, got %s", v.Kind())
}

func fnCoalesce(_ *Runtime, args []Entry) (Entry, error) {
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return NullEntry(), nil
}

func listArg(args []Entry, fn string) ([]value.Value, bool, error) {
	v, err := constArg(args, 0, fn)
	if err != nil || v.IsNull() {
		return nil, false, err
	}
	l, err := v.AsList()
	if err != nil {
		return nil, false, typeErr("%s() requires a list, got %s", fn, v.Kind())
	}
	return l, true, nil
}

func fnHead(_ *Runtime, args []Entry) (Entry, error) {
	l, ok, err := listArg(args, "head")
	if err != nil || !ok || len(l) == 0 {
		return NullEntry(), err
	}
	return Constant(l[0]), nil
}

func fnLast(_ *Runtime, args []Entry) (Entry, error) {
	l, ok, err := listArg(args, "last")
	if err != nil || !ok || len(l) == 0 {
		return NullEntry(), err
	}
	return Constant(l[len(l)-1]), nil
}

// maxRange bounds the size of a list built by range()
const maxRange = 1 << 20

func fnRange(_ *Runtime, args []Entry) (Entry, error) {
	bounds := make([]int64, 3)
	bounds[2] = 1
	for i := range args {
		v, err := constArg(args, i, "range")
		if err != nil {
			return NullEntry(), err
		}
		if bounds[i], err = v.AsInt(); err != nil || v.Kind() != value.KindInt {
			return NullEntry(), typeErr("range() requires integer arguments")
		}
	}
	start, end, step := bounds[0], bounds[1], bounds[2]
	if step == 0 {
		return NullEntry(), typeErr("range() step must not be zero")
	}
	var out []value.Value
	for i := start; (step > 0 && i <= end) || (step < 0 && i >= end); i += step {
		if len(out) >= maxRange {
			return NullEntry(), typeErr("range() exceeds %d elements", maxRange)
		}
		out = append(out, value.Int(i))
	}
	return Constant(value.List(out...)), nil
}

// FunctionNames lists the registered scalar functions, sorted
func FunctionNames() []string {
	out := make([]string, 0, len(functions))
	for _, f := range functions {
		out = append(out, f.name)
	}
	sort.Strings(out)
	return out
}
