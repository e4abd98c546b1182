package vm

import (
	"fmt"
	"strconv"
)

// capFrame is one entry on the capture stack: an open marker carrying the
// capture kind, or a close marker pairing with the nearest unmatched open.
// The stack is append-only during a match, except that backtracking truncates
// it to the depth recorded at the restored choice point.
type capFrame struct {
	open   bool
	si     int
	kind   CaptureKind
	name   string
	action int
}

// pending is an open capture whose close has not been seen yet.
type pending struct {
	kind   CaptureKind
	name   string
	action int
	si     int
	vals   []Value
}

// reduce folds the finished capture stack into the flat capture list and the
// typed capture tree in a single left-to-right pass. On the success path the
// stack is well-nested, so the nearest unmatched open is always the top of the
// container stack.
func reduce(subject string, frames []capFrame, actions map[int]ActionFunc) ([]string, Value, error) {
	var flat []string
	stack := []pending{{}} // synthetic root collects top-level values

	for _, f := range frames {
		if f.open {
			stack = append(stack, pending{
				kind:   f.kind,
				name:   f.name,
				action: f.action,
				si:     f.si,
			})
			continue
		}
		if len(stack) == 1 {
			return nil, nil, &MatchError{Offset: f.si, Err: ErrBadCapture}
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parent := &stack[len(stack)-1]

		switch top.kind {
		case CapPlain, CapText:
			s := subject[top.si:f.si]
			flat = append(flat, s)
			parent.vals = append(parent.vals, StringValue(s))

		case CapInt:
			s := subject[top.si:f.si]
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, nil, &MatchError{
					Offset: top.si,
					Err:    fmt.Errorf("%q: %w", s, ErrCaptureParse),
				}
			}
			parent.vals = append(parent.vals, IntValue(v))

		case CapFloat:
			s := subject[top.si:f.si]
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil, &MatchError{
					Offset: top.si,
					Err:    fmt.Errorf("%q: %w", s, ErrCaptureParse),
				}
			}
			parent.vals = append(parent.vals, FloatValue(v))

		case CapArray:
			parent.vals = append(parent.vals, ArrayValue(top.vals))

		case CapObject:
			obj := ObjectValue{Fields: make([]Field, 0, len(top.vals))}
			for _, v := range top.vals {
				if fv, ok := v.(fieldValue); ok {
					obj.Fields = append(obj.Fields, Field(fv))
				} else {
					obj.Fields = append(obj.Fields, Field{Value: v})
				}
			}
			parent.vals = append(parent.vals, obj)

		case CapField:
			parent.vals = append(parent.vals, fieldValue{
				Key:   top.name,
				Value: fieldBody(subject, top, f.si),
			})

		case CapDynField:
			key, ok := dynKey(top.vals)
			if !ok {
				return nil, nil, &MatchError{Offset: top.si, Err: ErrBadCapture}
			}
			var val Value
			switch len(top.vals) {
			case 1:
				val = top.vals[0]
			case 2:
				val = top.vals[1]
			default:
				val = ArrayValue(top.vals[1:])
			}
			parent.vals = append(parent.vals, fieldValue{Key: key, Value: val})

		case CapAction:
			fn := actions[top.action]
			if fn == nil {
				return nil, nil, &MatchError{
					Offset: top.si,
					Err:    fmt.Errorf("id %d: %w", top.action, ErrUnknownAction),
				}
			}
			args := make([]string, 0, len(top.vals))
			for _, v := range top.vals {
				if s, ok := v.(StringValue); ok {
					args = append(args, string(s))
				}
			}
			fn(args)
		}
	}

	if len(stack) != 1 {
		return nil, nil, &MatchError{Err: ErrBadCapture}
	}
	return flat, treeOf(stack[0].vals), nil
}

// fieldBody picks the value of a fixed field: its single nested capture when
// there is one, all of them as an array when there are several, and the raw
// matched text when it captured nothing itself.
func fieldBody(subject string, top pending, closeSI int) Value {
	switch len(top.vals) {
	case 0:
		return StringValue(subject[top.si:closeSI])
	case 1:
		return top.vals[0]
	default:
		return ArrayValue(top.vals)
	}
}

// dynKey extracts a dynamic field's key from its first captured value.
func dynKey(vals []Value) (string, bool) {
	if len(vals) == 0 {
		return "", false
	}
	s, ok := vals[0].(StringValue)
	return string(s), ok
}

// treeOf turns the root's accumulated values into the result tree: nil for
// none, the value itself for one, an array for several.
func treeOf(vals []Value) Value {
	switch len(vals) {
	case 0:
		return nil
	case 1:
		return vals[0]
	default:
		return ArrayValue(vals)
	}
}
