package vm

import (
	"bytes"
	"fmt"
	"strconv"
)

// MatchResult is the outcome of one match call.
type MatchResult struct {
	// OK reports whether the subject matched.
	OK bool

	// MatchLen is the number of subject bytes consumed on success, and the
	// furthest subject index reached before the final failure otherwise.
	MatchLen int

	// Captures lists every plain and text capture in left-to-right order,
	// independent of nesting.
	Captures []string

	// Tree is the typed capture tree, nil when the match captured nothing
	// typed at the top level.
	Tree Value
}

// String returns a short debugging summary of the result.
func (r MatchResult) String() string {
	if !r.OK {
		return fmt.Sprintf("{no match, len %d}", r.MatchLen)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "{match, len %d", r.MatchLen)
	if len(r.Captures) > 0 {
		fmt.Fprintf(&buf, ", captures %q", r.Captures)
	}
	if r.Tree != nil {
		fmt.Fprintf(&buf, ", tree %s", r.Tree)
	}
	buf.WriteByte('}')
	return buf.String()
}

// Value is one node of the typed capture tree.
type Value interface {
	fmt.Stringer
	isValue()
}

// StringValue is a captured substring.
type StringValue string

// IntValue is a capture parsed as a base-10 integer.
type IntValue int64

// FloatValue is a capture parsed as a floating-point number.
type FloatValue float64

// ArrayValue is an ordered sequence of captured values.
type ArrayValue []Value

// ObjectValue is an insertion-ordered sequence of keyed values.
type ObjectValue struct {
	Fields []Field
}

// Field is one key/value pair of an ObjectValue.
type Field struct {
	Key   string
	Value Value
}

// fieldValue carries a keyed value from a field capture to its enclosing
// object during reduction.
type fieldValue Field

func (StringValue) isValue() {}
func (IntValue) isValue()    {}
func (FloatValue) isValue()  {}
func (ArrayValue) isValue()  {}
func (ObjectValue) isValue() {}
func (fieldValue) isValue()  {}

// String returns the value quoted.
func (v StringValue) String() string {
	return strconv.Quote(string(v))
}

// String returns the integer in decimal.
func (v IntValue) String() string {
	return strconv.FormatInt(int64(v), 10)
}

// String returns the shortest decimal rendering of the float.
func (v FloatValue) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}

// String renders the array as [v1, v2, ...].
func (v ArrayValue) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range v {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(e.String())
	}
	buf.WriteByte(']')
	return buf.String()
}

// String renders the object as {key: value, ...} in insertion order.
func (v ObjectValue) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v.Fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %s", f.Key, f.Value)
	}
	buf.WriteByte('}')
	return buf.String()
}

func (v fieldValue) String() string {
	return fmt.Sprintf("%s: %s", v.Key, v.Value)
}

// Get returns the value of the first field with the given key.
func (v ObjectValue) Get(key string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}
