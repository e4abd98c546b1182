package peg

import (
	"github.com/coregx/peg/vm"
)

// Rule is one named production of a grammar.
type Rule struct {
	Name    string
	Pattern *Pattern
}

// Grammar is an ordered sequence of rules plus a designated start rule.
//
// Rule order never changes what a grammar matches or captures; it only decides
// which references the compiler can inline (references to rules defined
// earlier) versus emit as calls, trading program size against call overhead.
type Grammar struct {
	rules   []Rule
	start   string
	actions map[int]vm.ActionFunc
}

// NewGrammar creates an empty grammar whose start rule is named start.
func NewGrammar(start string) *Grammar {
	return &Grammar{start: start}
}

// Add appends a rule. Duplicate names are rejected at Compile time.
// It returns the grammar for chaining.
func (g *Grammar) Add(name string, p *Pattern) *Grammar {
	g.rules = append(g.rules, Rule{Name: name, Pattern: p})
	return g
}

// OnAction registers the callback invoked by CapAction captures carrying id.
// It returns the grammar for chaining.
func (g *Grammar) OnAction(id int, fn vm.ActionFunc) *Grammar {
	if g.actions == nil {
		g.actions = make(map[int]vm.ActionFunc)
	}
	g.actions[id] = fn
	return g
}

// Start returns the name of the start rule.
func (g *Grammar) Start() string {
	return g.start
}

// Rules returns the rules in declaration order. The returned slice is a copy.
func (g *Grammar) Rules() []Rule {
	rs := make([]Rule, len(g.rules))
	copy(rs, g.rules)
	return rs
}
