package peg

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/coregx/peg/vm"
)

func lower() *Pattern {
	return Set(Range('a', 'z'))
}

func TestStarChar(t *testing.T) {
	prog := MustCompile(NewGrammar("s").Add("s", Star(Char('a'))))

	res, err := prog.Run("aaab")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.OK || res.MatchLen != 3 {
		t.Errorf("'a'* over \"aaab\" = %s, want match of 3", res)
	}
}

func TestNumberPrefix(t *testing.T) {
	prog := MustCompile(NewGrammar("number").
		Add("number", Plus(Set(Range('0', '9')))))

	res, err := prog.Run("123abc")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.OK || res.MatchLen != 3 {
		t.Errorf("number over \"123abc\" = %s, want match of 3", res)
	}

	if res, _ := prog.Run("abc"); res.OK {
		t.Errorf("number over \"abc\" matched, want failure")
	}
}

func TestCommaSplit(t *testing.T) {
	g := NewGrammar("list").
		Add("list", Seq(Ref("item"), Star(Seq(Char(','), Ref("item"))))).
		Add("item", Cap(Plus(lower())))

	prog := MustCompile(g)
	res, err := prog.Run("one,two,three")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"one", "two", "three"}
	if !res.OK || !reflect.DeepEqual(res.Captures, want) {
		t.Errorf("captures = %q, want %q", res.Captures, want)
	}
}

// jsonGrammar matches a small JSON subset: objects, arrays, non-negative
// integers, and plain strings.
func jsonGrammar() *Grammar {
	return NewGrammar("value").
		Add("value", Choice(Ref("object"), Ref("array"), Ref("number"), Ref("string"))).
		Add("object", CapObject(Seq(
			Char('{'),
			Opt(Seq(Ref("member"), Star(Seq(Char(','), Ref("member"))))),
			Char('}'),
		))).
		Add("member", CapDynField(Seq(Ref("string"), Char(':'), Ref("value")))).
		Add("array", CapArray(Seq(
			Char('['),
			Opt(Seq(Ref("value"), Star(Seq(Char(','), Ref("value"))))),
			Char(']'),
		))).
		Add("number", CapInt(Plus(Set(Range('0', '9'))))).
		Add("string", Seq(Char('"'), CapText(Star(Diff(Any(), Char('"')))), Char('"')))
}

func TestJSONShapedTree(t *testing.T) {
	prog := MustCompile(jsonGrammar())

	res, err := prog.Run(`{"a":1,"b":[2,3]}`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.OK {
		t.Fatalf("no match: %s", res)
	}

	want := vm.ObjectValue{Fields: []vm.Field{
		{Key: "a", Value: vm.IntValue(1)},
		{Key: "b", Value: vm.ArrayValue{vm.IntValue(2), vm.IntValue(3)}},
	}}
	if !reflect.DeepEqual(res.Tree, want) {
		t.Errorf("Tree = %s, want %s", res.Tree, want)
	}
}

func TestJSONNestedObjects(t *testing.T) {
	prog := MustCompile(jsonGrammar())

	res, err := prog.Run(`{"outer":{"inner":[1,2,3]},"s":"txt"}`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	obj, ok := res.Tree.(vm.ObjectValue)
	if !ok {
		t.Fatalf("Tree = %T, want ObjectValue", res.Tree)
	}
	outer, _ := obj.Get("outer")
	inner, _ := outer.(vm.ObjectValue).Get("inner")
	want := vm.ArrayValue{vm.IntValue(1), vm.IntValue(2), vm.IntValue(3)}
	if !reflect.DeepEqual(inner, want) {
		t.Errorf("inner = %v, want %v", inner, want)
	}
	if s, _ := obj.Get("s"); s != vm.StringValue("txt") {
		t.Errorf("s = %v, want \"txt\"", s)
	}
}

func TestErrorLabelAtMissingComma(t *testing.T) {
	g := NewGrammar("list").
		Add("list", Seq(Ref("item"), Ref("sep"), Ref("item"))).
		Add("sep", Choice(Char(','), ErrorLabel("comma"))).
		Add("item", Plus(lower()))

	prog := MustCompile(g)

	if res, err := prog.Run("one,two"); err != nil || !res.OK {
		t.Fatalf("well-formed input: res=%s err=%v", res, err)
	}

	_, err := prog.Run("one two")
	var me *vm.MatchError
	if !errors.As(err, &me) {
		t.Fatalf("error %T (%v), want *vm.MatchError", err, err)
	}
	if me.Msg != "comma" || me.Offset != 3 {
		t.Errorf("MatchError = {%q, %d}, want {\"comma\", 3}", me.Msg, me.Offset)
	}
}

// Deeply nested unresolved choice points must hit the configured bound as a
// fatal error, not silent truncation or a crash.
func TestAdversarialChoiceNesting(t *testing.T) {
	p := Char('a')
	for i := 0; i < 1100; i++ {
		p = Opt(Seq(Char('a'), p))
	}
	prog := MustCompile(NewGrammar("s").Add("s", p))

	_, err := prog.Run(strings.Repeat("a", 1101))
	if !errors.Is(err, vm.ErrStackOverflow) {
		t.Fatalf("err = %v, want ErrStackOverflow", err)
	}
}

// Unbounded left-recursive-style descent hits the return-stack bound.
func TestRunawayRecursion(t *testing.T) {
	g := NewGrammar("r").
		Add("r", Choice(Seq(Char('a'), Ref("r")), Char('b')))

	prog := MustCompile(g)
	_, err := prog.Run(strings.Repeat("a", 5000))
	if !errors.Is(err, vm.ErrStackOverflow) {
		t.Fatalf("err = %v, want ErrStackOverflow", err)
	}
}

func TestEmptyLoopGuarded(t *testing.T) {
	prog := MustCompile(NewGrammar("s").Add("s", Star(Opt(Char('a')))))

	_, err := prog.Run("b")
	if !errors.Is(err, vm.ErrEmptyLoop) {
		t.Fatalf("err = %v, want ErrEmptyLoop", err)
	}
}

func TestOrderedChoicePrecedence(t *testing.T) {
	first := MustCompile(NewGrammar("s").Add("s", Lit("ab")))
	both := MustCompile(NewGrammar("s").Add("s", Choice(Lit("ab"), Lit("a"))))

	subjects := []string{"ab", "abc", "a", "ax", "b", ""}
	for _, s := range subjects {
		r1, err := first.Run(s)
		if err != nil {
			t.Fatalf("Run(%q): %v", s, err)
		}
		r2, err := both.Run(s)
		if err != nil {
			t.Fatalf("Run(%q): %v", s, err)
		}
		if r1.OK {
			// Whenever the first alternative succeeds, the choice must
			// behave exactly like it.
			if !reflect.DeepEqual(r1, r2) {
				t.Errorf("Run(%q): choice %s, first alternative %s", s, r2, r1)
			}
		} else if strings.HasPrefix(s, "a") && !r2.OK {
			t.Errorf("Run(%q): second alternative not tried", s)
		}
	}
}

func TestPlusDecomposition(t *testing.T) {
	unit := Cap(Seq(Char('a'), Opt(Char('b'))))

	plus := MustCompile(NewGrammar("s").Add("s", Plus(unit)))
	seqStar := MustCompile(NewGrammar("s").Add("s", Seq(unit, Star(unit))))

	subjects := []string{"", "a", "ab", "aab", "abab", "ba", "abb"}
	for _, s := range subjects {
		r1, err1 := plus.Run(s)
		r2, err2 := seqStar.Run(s)
		if err1 != nil || err2 != nil {
			t.Fatalf("Run(%q): %v / %v", s, err1, err2)
		}
		if !reflect.DeepEqual(r1, r2) {
			t.Errorf("Run(%q): Plus %s, Seq+Star %s", s, r1, r2)
		}
	}
}

func TestLookaheadIsZeroWidth(t *testing.T) {
	// !'ab' then explicitly consume "ac": possible only if the lookahead
	// left the position untouched after probing into "a...".
	prog := MustCompile(NewGrammar("s").
		Add("s", Seq(Not(Lit("ab")), Lit("ac"))))

	res, err := prog.Run("ac")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.OK || res.MatchLen != 2 {
		t.Errorf("Run(\"ac\") = %s, want match of 2", res)
	}
	if res, _ := prog.Run("ab"); res.OK {
		t.Errorf("Run(\"ab\") matched, want lookahead rejection")
	}
}

func TestDiffSemantics(t *testing.T) {
	// word but not those starting with "x".
	prog := MustCompile(NewGrammar("s").
		Add("s", Diff(Plus(lower()), Char('x'))))

	tests := []struct {
		subject string
		ok      bool
		n       int
	}{
		{"abc", true, 3},
		{"axc", true, 3}, // 'x' only excluded at the start position
		{"xyz", false, 0},
		{"", false, 0},
	}
	for _, tt := range tests {
		res, err := prog.Run(tt.subject)
		if err != nil {
			t.Fatalf("Run(%q): %v", tt.subject, err)
		}
		if res.OK != tt.ok {
			t.Errorf("Run(%q).OK = %v, want %v", tt.subject, res.OK, tt.ok)
		}
		if tt.ok && res.MatchLen != tt.n {
			t.Errorf("Run(%q) consumed %d, want P1's length %d", tt.subject, res.MatchLen, tt.n)
		}
	}
}

func TestRepeatBounds(t *testing.T) {
	prog := MustCompile(NewGrammar("s").Add("s", RepeatN(Char('a'), 2, 4)))

	tests := []struct {
		subject string
		ok      bool
		n       int
	}{
		{"a", false, 1},
		{"aa", true, 2},
		{"aaa", true, 3},
		{"aaaa", true, 4},
		{"aaaaa", true, 4}, // greedy up to max, no further
	}
	for _, tt := range tests {
		res, err := prog.Run(tt.subject)
		if err != nil {
			t.Fatalf("Run(%q): %v", tt.subject, err)
		}
		if res.OK != tt.ok || res.MatchLen != tt.n {
			t.Errorf("a{2,4} over %q = %s, want {ok:%v len:%d}", tt.subject, res, tt.ok, tt.n)
		}
	}

	unbounded := MustCompile(NewGrammar("s").Add("s", RepeatN(Char('a'), 2, -1)))
	if res, _ := unbounded.Run("aaaaaa"); !res.OK || res.MatchLen != 6 {
		t.Errorf("a{2,} over six a's = %v, want match of 6", res)
	}
}

func TestLitFold(t *testing.T) {
	prog := MustCompile(NewGrammar("s").Add("s", LitFold("select")))

	for _, s := range []string{"select", "SELECT", "SeLeCt"} {
		if res, _ := prog.Run(s); !res.OK || res.MatchLen != 6 {
			t.Errorf("fold over %q failed", s)
		}
	}
	if res, _ := prog.Run("selec"); res.OK {
		t.Error("fold matched a short subject")
	}
}

func TestActionCallbackOrder(t *testing.T) {
	var seen []string
	g := NewGrammar("list").
		Add("list", CapAction(1, Seq(Ref("item"), Star(Seq(Char(','), Ref("item")))))).
		Add("item", Cap(Plus(lower()))).
		OnAction(1, func(args []string) {
			seen = append(seen, args...)
		})

	prog := MustCompile(g)
	if _, err := prog.Run("x,y,z"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(seen, []string{"x", "y", "z"}) {
		t.Errorf("action saw %q, want [x y z]", seen)
	}
}

func TestFlatCaptureCount(t *testing.T) {
	// Flat captures collect every string-producing capture on the accepted
	// path, regardless of nesting, and nothing from abandoned alternatives.
	g := NewGrammar("s").
		Add("s", Choice(
			Seq(Cap(Lit("ab")), Char('!')),
			CapArray(Seq(Cap(Char('a')), CapText(Char('b')), CapInt(Char('0')))),
		))

	prog := MustCompile(g)
	res, err := prog.Run("ab0")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The first alternative captures "ab" then fails on '!'; its capture is
	// discarded. The second contributes two string captures; the int capture
	// is tree-only.
	want := []string{"a", "b"}
	if !reflect.DeepEqual(res.Captures, want) {
		t.Errorf("Captures = %q, want %q", res.Captures, want)
	}
}

// A compiled program is immutable; matching allocates fresh state per call.
func TestConcurrentMatching(t *testing.T) {
	prog := MustCompile(jsonGrammar())
	subject := `{"k":[1,2,3],"v":{"n":9}}`

	baseline, err := prog.Run(subject)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				res, err := prog.Run(subject)
				if err != nil || !reflect.DeepEqual(res, baseline) {
					t.Errorf("concurrent run diverged: %s / %v", res, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
