package vm

// TraceFunc observes one instruction about to execute. Hooks must not assume
// any particular call count beyond "once per executed instruction" and cannot
// alter match semantics.
type TraceFunc func(ip, si int, in Instr)

// choicePoint records enough state to resume at an ordered-choice alternative:
// where to jump, where the subject index was, and how deep the capture and
// return stacks were. Backtracking truncates both stacks to the recorded
// depths, discarding everything pushed after the choice point.
type choicePoint struct {
	ip    int
	si    int
	caps  int
	calls int
}

// machine is the mutable state of one match call. A fresh machine is built per
// Run, which is what makes concurrent matching of a shared Program safe.
type machine struct {
	prog    *Program
	subject string
	trace   TraceFunc

	ip    int
	si    int
	high  int // furthest si reached, reported as MatchLen on failure
	calls []int
	alts  []choicePoint
	caps  []capFrame
}

// Run matches the program against subject from position 0.
//
// The returned error is non-nil only for fatal parse errors: an Error
// instruction, a stack-depth overflow, or a capture-reduction failure. A
// subject that simply does not match is not an error; it yields a MatchResult
// with OK false and MatchLen set to the furthest subject index reached.
func (p *Program) Run(subject string) (MatchResult, error) {
	return p.run(subject, nil)
}

// RunTrace is Run with a per-instruction hook, for diagnostics.
func (p *Program) RunTrace(subject string, hook TraceFunc) (MatchResult, error) {
	return p.run(subject, hook)
}

func (p *Program) run(subject string, hook TraceFunc) (MatchResult, error) {
	m := &machine{
		prog:    p,
		subject: subject,
		trace:   hook,
		ip:      p.start,
	}
	return m.loop()
}

func (m *machine) loop() (MatchResult, error) {
	p := m.prog
	for {
		if m.ip < 0 || m.ip >= len(p.code) {
			return MatchResult{}, m.fatal(ErrBadAddress)
		}
		in := p.code[m.ip]
		if m.trace != nil {
			m.trace(m.ip, m.si, in)
		}

		switch in.Op {
		case OpChar:
			if m.si < len(m.subject) && m.subject[m.si] == in.Char {
				m.si++
				m.ip++
			} else if m.giveUp() {
				return m.failure(), nil
			}

		case OpSet:
			if m.si < len(m.subject) && in.Set.Contains(m.subject[m.si]) {
				m.si++
				m.ip++
			} else if m.giveUp() {
				return m.failure(), nil
			}

		case OpLit:
			if n, ok := m.matchLit(in.Lit, in.Fold); ok {
				m.si += n
				m.ip++
			} else if m.giveUp() {
				return m.failure(), nil
			}

		case OpAny:
			if m.si+in.N <= len(m.subject) {
				m.si += in.N
				m.ip++
			} else if m.giveUp() {
				return m.failure(), nil
			}

		case OpChoice:
			if len(m.alts) >= p.cfg.MaxBacktrackDepth {
				return MatchResult{}, m.fatal(ErrStackOverflow)
			}
			m.alts = append(m.alts, choicePoint{
				ip:    in.Addr,
				si:    m.si,
				caps:  len(m.caps),
				calls: len(m.calls),
			})
			m.ip++

		case OpCommit:
			m.alts = m.alts[:len(m.alts)-1]
			m.ip = in.Addr

		case OpPartialCommit:
			top := &m.alts[len(m.alts)-1]
			if p.cfg.GuardEmptyLoop && top.si == m.si {
				return MatchResult{}, m.fatal(ErrEmptyLoop)
			}
			top.si = m.si
			top.caps = len(m.caps)
			m.ip = in.Addr

		case OpCall:
			if len(m.calls) >= p.cfg.MaxCallDepth {
				return MatchResult{}, m.fatal(ErrStackOverflow)
			}
			m.calls = append(m.calls, m.ip+1)
			m.ip = in.Addr

		case OpReturn:
			if len(m.calls) == 0 {
				return m.success()
			}
			m.ip = m.calls[len(m.calls)-1]
			m.calls = m.calls[:len(m.calls)-1]

		case OpJump:
			m.ip = in.Addr

		case OpFail:
			if m.giveUp() {
				return m.failure(), nil
			}

		case OpFailTwice:
			// Finishes a negative lookahead: the subject index is rolled
			// back to the lookahead's choice point, the choice point is
			// discarded without retrying it, and failure propagates past it.
			m.mark()
			if len(m.alts) > 0 {
				cp := m.alts[len(m.alts)-1]
				m.alts = m.alts[:len(m.alts)-1]
				m.si = cp.si
			}
			if m.giveUp() {
				return m.failure(), nil
			}

		case OpError:
			return MatchResult{}, &MatchError{Msg: in.Lit, Offset: m.si, Err: ErrLabel}

		case OpCapOpen:
			m.caps = append(m.caps, capFrame{
				open:   true,
				si:     m.si,
				kind:   in.Kind,
				name:   in.Lit,
				action: in.N,
			})
			m.ip++

		case OpCapClose:
			m.caps = append(m.caps, capFrame{si: m.si})
			m.ip++

		default:
			return MatchResult{}, m.fatal(ErrBadOpcode)
		}
	}
}

// matchLit compares the subject at si against lit, byte for byte. The folded
// variant lowercases ASCII letters on both sides.
func (m *machine) matchLit(lit string, fold bool) (int, bool) {
	if m.si+len(lit) > len(m.subject) {
		return 0, false
	}
	if !fold {
		if m.subject[m.si:m.si+len(lit)] != lit {
			return 0, false
		}
		return len(lit), true
	}
	for i := 0; i < len(lit); i++ {
		if lowerASCII(m.subject[m.si+i]) != lowerASCII(lit[i]) {
			return 0, false
		}
	}
	return len(lit), true
}

func lowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// giveUp backtracks to the most recent choice point. It reports true when no
// choice point remains, which is overall match failure.
func (m *machine) giveUp() bool {
	m.mark()
	if len(m.alts) == 0 {
		return true
	}
	cp := m.alts[len(m.alts)-1]
	m.alts = m.alts[:len(m.alts)-1]
	m.ip = cp.ip
	m.si = cp.si
	m.caps = m.caps[:cp.caps]
	m.calls = m.calls[:cp.calls]
	return false
}

// mark records the high-water subject index before si is rolled back.
func (m *machine) mark() {
	if m.si > m.high {
		m.high = m.si
	}
}

func (m *machine) fatal(err error) error {
	return &MatchError{Offset: m.si, Err: err}
}

func (m *machine) failure() MatchResult {
	return MatchResult{OK: false, MatchLen: m.high}
}

func (m *machine) success() (MatchResult, error) {
	flat, tree, err := reduce(m.subject, m.caps, m.prog.actions)
	if err != nil {
		return MatchResult{}, err
	}
	return MatchResult{
		OK:       true,
		MatchLen: m.si,
		Captures: flat,
		Tree:     tree,
	}, nil
}
