package vm

import (
	"bytes"
	"fmt"
	"sort"
)

// ActionFunc is a callback invoked during capture reduction with the ordered
// plain-string values captured by the action's direct descendants.
//
// Callbacks run synchronously on the calling goroutine. When a Program is
// shared across goroutines, any state a callback touches must be made
// thread-safe by the caller.
type ActionFunc func(args []string)

// Program is a compiled grammar: a flat instruction sequence plus a two-way
// rule-name symbol table. It is immutable once constructed and safe for
// concurrent matching.
type Program struct {
	code    []Instr
	start   int
	byName  map[string]int
	byAddr  map[int]string
	actions map[int]ActionFunc
	cfg     Config
}

// NewProgram assembles a Program from raw instructions.
//
// symbols maps rule names to their entry addresses; start is the entry address
// of the start rule. Every branch target and symbol address must lie within
// the code, and the configured stack bounds must be positive.
//
// Most callers obtain Programs from the compiler rather than from NewProgram
// directly.
func NewProgram(code []Instr, start int, symbols map[string]int, cfg Config, actions map[int]ActionFunc) (*Program, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if start < 0 || start >= len(code) {
		return nil, fmt.Errorf("start address %d: %w", start, ErrBadAddress)
	}
	for i, in := range code {
		if in.hasAddr() && (in.Addr < 0 || in.Addr > len(code)) {
			return nil, fmt.Errorf("instruction %d target %d: %w", i, in.Addr, ErrBadAddress)
		}
	}

	p := &Program{
		code:    make([]Instr, len(code)),
		start:   start,
		byName:  make(map[string]int, len(symbols)),
		byAddr:  make(map[int]string, len(symbols)),
		actions: make(map[int]ActionFunc, len(actions)),
		cfg:     cfg,
	}
	copy(p.code, code)
	for name, addr := range symbols {
		if addr < 0 || addr >= len(code) {
			return nil, fmt.Errorf("rule %q address %d: %w", name, addr, ErrBadAddress)
		}
		p.byName[name] = addr
		p.byAddr[addr] = name
	}
	for id, fn := range actions {
		p.actions[id] = fn
	}
	return p, nil
}

// Len returns the number of instructions in the program.
func (p *Program) Len() int {
	return len(p.code)
}

// Start returns the entry address of the start rule.
func (p *Program) Start() int {
	return p.start
}

// Config returns the resource bounds the program was compiled with.
func (p *Program) Config() Config {
	return p.cfg
}

// RuleAddr returns the entry address of the named rule.
func (p *Program) RuleAddr(name string) (int, bool) {
	addr, ok := p.byName[name]
	return addr, ok
}

// RuleAt returns the name of the rule whose entry is at addr.
func (p *Program) RuleAt(addr int) (string, bool) {
	name, ok := p.byAddr[addr]
	return name, ok
}

// Rules returns all rule names in increasing address order.
func (p *Program) Rules() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return p.byName[names[i]] < p.byName[names[j]]
	})
	return names
}

// Disassemble renders the program one instruction per line, annotating rule
// entry points and resolving branch targets to rule names where possible.
// It exists for diagnostics only and has no effect on match semantics.
func (p *Program) Disassemble() string {
	var buf bytes.Buffer
	for i, in := range p.code {
		if name, ok := p.byAddr[i]; ok {
			fmt.Fprintf(&buf, "%s:\n", name)
		}
		fmt.Fprintf(&buf, "%5d  %s", i, in)
		if in.Op == OpCall {
			if name, ok := p.byAddr[in.Addr]; ok {
				fmt.Fprintf(&buf, " (%s)", name)
			}
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// String returns a short summary of the program.
func (p *Program) String() string {
	return fmt.Sprintf("Program{instructions: %d, rules: %d, start: %d}",
		len(p.code), len(p.byName), p.start)
}
