package peg

import (
	"fmt"

	"github.com/coregx/peg/vm"
)

// patternOp identifies the kind of a Pattern node.
type patternOp uint8

const (
	opChar patternOp = iota
	opSet
	opLiteral
	opAny
	opSeq
	opChoice
	opDiff
	opStar
	opPlus
	opOpt
	opRepeat
	opNot
	opRuleRef
	opErrorLabel
	opCapture
)

// CharRange is an inclusive range of byte values for Set.
type CharRange struct {
	Lo byte
	Hi byte
}

// Range returns the inclusive byte range [lo, hi].
func Range(lo, hi byte) CharRange {
	return CharRange{Lo: lo, Hi: hi}
}

// Pattern is one node of a grammar's intermediate representation: a finite,
// acyclic tagged-variant tree. Recursion is expressed only through Ref, never
// through a cyclic node structure.
//
// Patterns are immutable once built and may be shared freely between rules
// and grammars.
type Pattern struct {
	op     patternOp
	ch     byte
	n, m   int // Any count; Repeat bounds (m == -1 means unbounded)
	text   string
	fold   bool
	ranges []CharRange
	left   *Pattern
	right  *Pattern
	kind   vm.CaptureKind
	action int
}

// Char matches exactly the byte c.
func Char(c byte) *Pattern {
	return &Pattern{op: opChar, ch: c}
}

// Set matches one byte inside any of the given ranges.
func Set(ranges ...CharRange) *Pattern {
	rs := make([]CharRange, len(ranges))
	copy(rs, ranges)
	return &Pattern{op: opSet, ranges: rs}
}

// Chars matches one byte that appears in members.
func Chars(members string) *Pattern {
	rs := make([]CharRange, 0, len(members))
	for i := 0; i < len(members); i++ {
		rs = append(rs, CharRange{Lo: members[i], Hi: members[i]})
	}
	return &Pattern{op: opSet, ranges: rs}
}

// Lit matches the literal string s, case-sensitively.
func Lit(s string) *Pattern {
	return &Pattern{op: opLiteral, text: s}
}

// LitFold matches the literal string s, ignoring ASCII letter case.
func LitFold(s string) *Pattern {
	return &Pattern{op: opLiteral, text: s, fold: true}
}

// Any matches any single byte.
func Any() *Pattern {
	return &Pattern{op: opAny, n: 1}
}

// AnyN matches exactly n bytes of any value. AnyN(0) matches the empty string.
func AnyN(n int) *Pattern {
	return &Pattern{op: opAny, n: n}
}

// Seq matches the given patterns one after another. Seq() matches the empty
// string.
func Seq(ps ...*Pattern) *Pattern {
	if len(ps) == 0 {
		return AnyN(0)
	}
	p := ps[len(ps)-1]
	for i := len(ps) - 2; i >= 0; i-- {
		p = &Pattern{op: opSeq, left: ps[i], right: p}
	}
	return p
}

// Choice tries the given patterns in order; the first success wins and later
// alternatives are abandoned only on failure of earlier ones.
func Choice(ps ...*Pattern) *Pattern {
	if len(ps) == 0 {
		return AnyN(0)
	}
	p := ps[len(ps)-1]
	for i := len(ps) - 2; i >= 0; i-- {
		p = &Pattern{op: opChoice, left: ps[i], right: p}
	}
	return p
}

// Diff matches p1 only where p2 does not match; its consumed length is p1's.
func Diff(p1, p2 *Pattern) *Pattern {
	return &Pattern{op: opDiff, left: p1, right: p2}
}

// Star matches p zero or more times, greedily.
func Star(p *Pattern) *Pattern {
	return &Pattern{op: opStar, left: p}
}

// Plus matches p one or more times, greedily.
func Plus(p *Pattern) *Pattern {
	return &Pattern{op: opPlus, left: p}
}

// Opt matches p at most once.
func Opt(p *Pattern) *Pattern {
	return &Pattern{op: opOpt, left: p}
}

// RepeatN matches between min and max occurrences of p. A negative max means
// unbounded. Bounds are validated at compile time.
func RepeatN(p *Pattern, min, max int) *Pattern {
	return &Pattern{op: opRepeat, left: p, n: min, m: max}
}

// Not is negative lookahead: it succeeds without consuming input iff p fails
// at the current position. Any consumption by p itself is rolled back.
func Not(p *Pattern) *Pattern {
	return &Pattern{op: opNot, left: p}
}

// Ref matches the named rule of the enclosing grammar.
func Ref(name string) *Pattern {
	return &Pattern{op: opRuleRef, text: name}
}

// ErrorLabel raises a fatal parse error with the given message when reached.
// The error bypasses backtracking entirely.
func ErrorLabel(msg string) *Pattern {
	return &Pattern{op: opErrorLabel, text: msg}
}

// Cap captures the substring matched by p.
func Cap(p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapPlain}
}

// CapText captures the substring matched by p as a typed string value.
func CapText(p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapText}
}

// CapInt captures the substring matched by p and parses it as an integer.
// The grammar is expected to constrain the lexical shape; a substring that
// does not parse is a fatal error at reduction time.
func CapInt(p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapInt}
}

// CapFloat captures the substring matched by p and parses it as a float.
func CapFloat(p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapFloat}
}

// CapArray collects every value captured inside p into an array.
func CapArray(p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapArray}
}

// CapObject collects the field captures inside p into an object, preserving
// insertion order.
func CapObject(p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapObject}
}

// CapField tags the value captured inside p with the fixed key name. With no
// nested capture, the field's value is the raw matched text.
func CapField(name string, p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapField, text: name}
}

// CapDynField tags a value with a key taken from the first string captured
// inside p; the following captured value becomes the field's value.
func CapDynField(p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapDynField}
}

// CapAction invokes the callback registered under id on the grammar with the
// plain-string values captured by p's direct descendants. The callback runs
// during capture reduction and contributes no value to the tree.
func CapAction(id int, p *Pattern) *Pattern {
	return &Pattern{op: opCapture, left: p, kind: vm.CapAction, action: id}
}

// String returns a compact, grammar-like rendering of the pattern.
func (p *Pattern) String() string {
	switch p.op {
	case opChar:
		return fmt.Sprintf("%q", p.ch)
	case opSet:
		return fmt.Sprintf("[%d ranges]", len(p.ranges))
	case opLiteral:
		if p.fold {
			return fmt.Sprintf("%q/i", p.text)
		}
		return fmt.Sprintf("%q", p.text)
	case opAny:
		return fmt.Sprintf(".{%d}", p.n)
	case opSeq:
		return fmt.Sprintf("(%s %s)", p.left, p.right)
	case opChoice:
		return fmt.Sprintf("(%s / %s)", p.left, p.right)
	case opDiff:
		return fmt.Sprintf("(%s - %s)", p.left, p.right)
	case opStar:
		return fmt.Sprintf("%s*", p.left)
	case opPlus:
		return fmt.Sprintf("%s+", p.left)
	case opOpt:
		return fmt.Sprintf("%s?", p.left)
	case opRepeat:
		if p.m < 0 {
			return fmt.Sprintf("%s{%d,}", p.left, p.n)
		}
		return fmt.Sprintf("%s{%d,%d}", p.left, p.n, p.m)
	case opNot:
		return fmt.Sprintf("!%s", p.left)
	case opRuleRef:
		return p.text
	case opErrorLabel:
		return fmt.Sprintf("^%q", p.text)
	case opCapture:
		return fmt.Sprintf("{%s: %s}", p.kind, p.left)
	default:
		return "?"
	}
}
