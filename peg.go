// Package peg compiles Parsing Expression Grammars into bytecode programs and
// matches them against subject strings with a backtracking virtual machine.
//
// A grammar is an ordered list of named Pattern rules plus a start rule.
// Compile lowers it into an immutable vm.Program, which can then be matched —
// concurrently, if desired — against independent subjects:
//
//	g := peg.NewGrammar("list").
//	    Add("list", peg.Seq(peg.Ref("item"), peg.Star(peg.Seq(peg.Char(','), peg.Ref("item"))))).
//	    Add("item", peg.Cap(peg.Plus(peg.Set(peg.Range('a', 'z')))))
//
//	prog, err := peg.Compile(g)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := prog.Run("one,two,three")
//	// res.OK == true, res.Captures == []string{"one", "two", "three"}
//
// Alternatives are ordered: the first branch of a Choice that succeeds wins,
// which resolves all ambiguity by definition. Left-recursive rules are not
// supported; they exhaust the bounded return stack and surface as a fatal
// error rather than running forever.
package peg

import (
	"github.com/coregx/peg/vm"
)

// Compile lowers the grammar into an executable program with default resource
// bounds. It fails when the start rule or a referenced rule is undefined, a
// rule name is duplicated, or repetition bounds are invalid; a failed Compile
// never yields a partial Program.
func Compile(g *Grammar) (*vm.Program, error) {
	return CompileWithConfig(g, vm.DefaultConfig())
}

// MustCompile is Compile panicking on error, for grammars known to be valid.
func MustCompile(g *Grammar) *vm.Program {
	p, err := Compile(g)
	if err != nil {
		panic("peg: Compile: " + err.Error())
	}
	return p
}

// CompileWithConfig is Compile with caller-provided resource bounds.
func CompileWithConfig(g *Grammar, cfg vm.Config) (*vm.Program, error) {
	c := newCompiler(g)
	return c.compile(cfg)
}
