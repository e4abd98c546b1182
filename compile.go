package peg

import (
	"fmt"

	"github.com/coregx/peg/vm"
)

// maxCompileDepth bounds IR recursion. The IR invariant is a finite acyclic
// tree, so hitting this limit means an accidentally cyclic node structure.
const maxCompileDepth = 10000

// span is the instruction range [start, end) of a compiled rule body,
// excluding the trailing Return.
type span struct {
	start int
	end   int
}

// reloc is a Call whose target rule had not been compiled when the Call was
// emitted. All relocations are resolved after one full pass over the rules,
// at which point every rule's entry address is known.
type reloc struct {
	pos  int
	name string
}

type compiler struct {
	grammar  *Grammar
	code     []vm.Instr
	declared map[string]bool
	spans    map[string]span
	relocs   []reloc
	current  string
	depth    int
}

func newCompiler(g *Grammar) *compiler {
	return &compiler{
		grammar:  g,
		declared: make(map[string]bool),
		spans:    make(map[string]span),
	}
}

func (c *compiler) compile(cfg vm.Config) (*vm.Program, error) {
	g := c.grammar
	if g == nil || len(g.rules) == 0 {
		return nil, &CompileError{Err: ErrNoRules}
	}
	for _, r := range g.rules {
		if c.declared[r.Name] {
			return nil, &CompileError{Rule: r.Name, Err: ErrDuplicateRule}
		}
		c.declared[r.Name] = true
	}
	if !c.declared[g.start] {
		return nil, &CompileError{Rule: g.start, Err: ErrUndefinedStart}
	}

	symbols := make(map[string]int, len(g.rules))
	for _, r := range g.rules {
		c.current = r.Name
		entry := len(c.code)
		if err := c.compileNode(r.Pattern); err != nil {
			return nil, err
		}
		c.spans[r.Name] = span{start: entry, end: len(c.code)}
		c.emit(vm.Instr{Op: vm.OpReturn})
		symbols[r.Name] = entry
	}

	// Backpatch forward and recursive calls now that every entry is known.
	for _, r := range c.relocs {
		c.code[r.pos].Addr = c.spans[r.name].start
	}

	return vm.NewProgram(c.code, c.spans[g.start].start, symbols, cfg, g.actions)
}

func (c *compiler) emit(in vm.Instr) int {
	c.code = append(c.code, in)
	return len(c.code) - 1
}

func (c *compiler) patch(pos, addr int) {
	c.code[pos].Addr = addr
}

func (c *compiler) fail(err error) error {
	return &CompileError{Rule: c.current, Err: err}
}

func (c *compiler) compileNode(p *Pattern) error {
	if p == nil {
		return c.fail(fmt.Errorf("nil pattern"))
	}
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > maxCompileDepth {
		return c.fail(ErrTooComplex)
	}

	switch p.op {
	case opChar:
		c.emit(vm.Instr{Op: vm.OpChar, Char: p.ch})
		return nil

	case opSet:
		set := &vm.Charset{}
		for _, r := range p.ranges {
			set.AddRange(r.Lo, r.Hi)
		}
		c.emit(vm.Instr{Op: vm.OpSet, Set: set})
		return nil

	case opLiteral:
		if p.text == "" {
			return nil
		}
		c.emit(vm.Instr{Op: vm.OpLit, Lit: p.text, Fold: p.fold})
		return nil

	case opAny:
		if p.n < 0 {
			return c.fail(fmt.Errorf("any(%d): %w", p.n, ErrBadCount))
		}
		if p.n > 0 {
			c.emit(vm.Instr{Op: vm.OpAny, N: p.n})
		}
		return nil

	case opSeq:
		if err := c.compileNode(p.left); err != nil {
			return err
		}
		return c.compileNode(p.right)

	case opChoice:
		choice := c.emit(vm.Instr{Op: vm.OpChoice})
		if err := c.compileNode(p.left); err != nil {
			return err
		}
		commit := c.emit(vm.Instr{Op: vm.OpCommit})
		c.patch(choice, len(c.code))
		if err := c.compileNode(p.right); err != nil {
			return err
		}
		c.patch(commit, len(c.code))
		return nil

	case opDiff:
		if err := c.compileNot(p.right); err != nil {
			return err
		}
		return c.compileNode(p.left)

	case opStar:
		return c.compileStar(p.left)

	case opPlus:
		if err := c.compileNode(p.left); err != nil {
			return err
		}
		return c.compileStar(p.left)

	case opOpt:
		return c.compileOpt(p.left)

	case opRepeat:
		return c.compileRepeat(p)

	case opNot:
		return c.compileNot(p.left)

	case opRuleRef:
		return c.compileRef(p.text)

	case opErrorLabel:
		c.emit(vm.Instr{Op: vm.OpError, Lit: p.text})
		return nil

	case opCapture:
		c.emit(vm.Instr{Op: vm.OpCapOpen, Kind: p.kind, Lit: p.text, N: p.action})
		if err := c.compileNode(p.left); err != nil {
			return err
		}
		c.emit(vm.Instr{Op: vm.OpCapClose})
		return nil

	default:
		return c.fail(fmt.Errorf("unknown pattern op %d", p.op))
	}
}

// compileStar emits the bounded-backtrack loop form: the single choice point
// pushed on entry is refreshed by PartialCommit on every iteration, so the
// backtrack stack grows with loop nesting, never with iteration count.
func (c *compiler) compileStar(sub *Pattern) error {
	choice := c.emit(vm.Instr{Op: vm.OpChoice})
	body := len(c.code)
	if err := c.compileNode(sub); err != nil {
		return err
	}
	c.emit(vm.Instr{Op: vm.OpPartialCommit, Addr: body})
	c.patch(choice, len(c.code))
	return nil
}

func (c *compiler) compileOpt(sub *Pattern) error {
	choice := c.emit(vm.Instr{Op: vm.OpChoice})
	if err := c.compileNode(sub); err != nil {
		return err
	}
	commit := c.emit(vm.Instr{Op: vm.OpCommit})
	c.patch(choice, len(c.code))
	c.patch(commit, len(c.code))
	return nil
}

// compileNot emits negative lookahead: a choice point around sub, closed by
// FailTwice so that sub succeeding makes the lookahead fail and sub failing
// resumes after it with the subject index untouched.
func (c *compiler) compileNot(sub *Pattern) error {
	choice := c.emit(vm.Instr{Op: vm.OpChoice})
	if err := c.compileNode(sub); err != nil {
		return err
	}
	c.emit(vm.Instr{Op: vm.OpFailTwice})
	c.patch(choice, len(c.code))
	return nil
}

// compileRepeat lowers p{min,max} into min mandatory copies followed by either
// a star (unbounded) or max-min optional copies.
func (c *compiler) compileRepeat(p *Pattern) error {
	min, max := p.n, p.m
	if min < 0 || (max >= 0 && min > max) {
		return c.fail(fmt.Errorf("repeat{%d,%d}: %w", min, max, ErrBadRepeat))
	}
	for i := 0; i < min; i++ {
		if err := c.compileNode(p.left); err != nil {
			return err
		}
	}
	if max < 0 {
		return c.compileStar(p.left)
	}
	for i := min; i < max; i++ {
		if err := c.compileOpt(p.left); err != nil {
			return err
		}
	}
	return nil
}

// compileRef resolves a rule reference. A callee that is already fully
// compiled and fully resolved is copied inline at the call site; everything
// else — forward, self-, and mutually-recursive references — becomes a Call,
// relocated once all rule entry addresses are known.
func (c *compiler) compileRef(name string) error {
	if !c.declared[name] {
		return c.fail(fmt.Errorf("%q: %w", name, ErrUndefinedRule))
	}
	sp, done := c.spans[name]
	if done && !c.pendingIn(sp) {
		c.inline(sp)
		return nil
	}
	pos := c.emit(vm.Instr{Op: vm.OpCall, Addr: -1})
	c.relocs = append(c.relocs, reloc{pos: pos, name: name})
	return nil
}

// pendingIn reports whether any unresolved call sits inside the span. Such a
// span belongs to a mutual-recursion cycle and must be called, not inlined.
func (c *compiler) pendingIn(sp span) bool {
	for _, r := range c.relocs {
		if r.pos >= sp.start && r.pos < sp.end {
			return true
		}
	}
	return false
}

// inline copies a compiled rule body to the current position. Branch targets
// inside the copy are shifted to the new location; Call targets stay absolute
// because they point at other rules' entries.
func (c *compiler) inline(sp span) {
	delta := len(c.code) - sp.start
	for i := sp.start; i < sp.end; i++ {
		in := c.code[i]
		switch in.Op {
		case vm.OpChoice, vm.OpCommit, vm.OpPartialCommit, vm.OpJump:
			in.Addr += delta
		}
		c.code = append(c.code, in)
	}
}
