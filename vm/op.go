package vm

import "fmt"

// Opcode identifies a single VM instruction.
type Opcode uint8

// Matching instructions consume subject bytes; control instructions manipulate
// the instruction pointer and the choice/return stacks; capture instructions
// append frames to the capture stack.
const (
	OpChar          Opcode = iota // match one exact byte
	OpSet                         // match one byte against a membership set
	OpLit                         // match a literal string, optionally case-folded
	OpAny                         // consume exactly N bytes
	OpChoice                      // push a choice point, alternative at Addr
	OpCommit                      // pop the top choice point, jump to Addr
	OpPartialCommit               // refresh the top choice point, jump to Addr
	OpCall                        // push the return address, jump to Addr
	OpReturn                      // pop the return stack; success when empty
	OpJump                        // unconditional jump to Addr
	OpFail                        // backtrack to the most recent choice point
	OpFailTwice                   // discard the top choice point, then fail
	OpError                       // fatal parse error carrying message Lit
	OpCapOpen                     // push an open capture frame
	OpCapClose                    // push a close capture frame
)

// String returns the mnemonic for the opcode.
func (op Opcode) String() string {
	switch op {
	case OpChar:
		return "Char"
	case OpSet:
		return "Set"
	case OpLit:
		return "Lit"
	case OpAny:
		return "Any"
	case OpChoice:
		return "Choice"
	case OpCommit:
		return "Commit"
	case OpPartialCommit:
		return "PartialCommit"
	case OpCall:
		return "Call"
	case OpReturn:
		return "Return"
	case OpJump:
		return "Jump"
	case OpFail:
		return "Fail"
	case OpFailTwice:
		return "FailTwice"
	case OpError:
		return "Error"
	case OpCapOpen:
		return "CapOpen"
	case OpCapClose:
		return "CapClose"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(op))
	}
}

// CaptureKind identifies what an open capture frame produces during reduction.
type CaptureKind uint8

const (
	// CapPlain captures the matched substring verbatim.
	CapPlain CaptureKind = iota

	// CapText captures the matched substring as a typed string value.
	CapText

	// CapInt parses the matched substring as a base-10 integer.
	CapInt

	// CapFloat parses the matched substring as a floating-point number.
	CapFloat

	// CapArray opens a container that collects the values captured inside it.
	CapArray

	// CapObject opens a container that collects field captures inside it.
	CapObject

	// CapField tags the value captured inside it with a fixed key.
	CapField

	// CapDynField tags the value captured inside it with a key taken from
	// the first string captured inside it.
	CapDynField

	// CapAction invokes a registered callback with the strings captured by
	// its direct descendants. It contributes no value to the tree.
	CapAction
)

// String returns a human-readable name for the capture kind.
func (k CaptureKind) String() string {
	switch k {
	case CapPlain:
		return "plain"
	case CapText:
		return "text"
	case CapInt:
		return "int"
	case CapFloat:
		return "float"
	case CapArray:
		return "array"
	case CapObject:
		return "object"
	case CapField:
		return "field"
	case CapDynField:
		return "dynfield"
	case CapAction:
		return "action"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Instr is a single decoded instruction. Which operand fields are meaningful
// depends on Op.
type Instr struct {
	// Op is the instruction's opcode.
	Op Opcode

	// Addr is the absolute target address for branching instructions
	// (Choice, Commit, PartialCommit, Call, Jump).
	Addr int

	// N is the byte count for Any and the action id for CapOpen frames of
	// kind CapAction.
	N int

	// Char is the byte operand of Char.
	Char byte

	// Fold selects ASCII case-insensitive comparison for Lit.
	Fold bool

	// Lit is the literal text for Lit, the message for Error, and the
	// capture name for CapOpen frames of kind CapField.
	Lit string

	// Set is the membership set for Set. Shared between instructions; never
	// mutated after compilation.
	Set *Charset

	// Kind is the capture kind for CapOpen.
	Kind CaptureKind
}

// hasAddr reports whether the instruction's Addr operand is meaningful.
func (in Instr) hasAddr() bool {
	switch in.Op {
	case OpChoice, OpCommit, OpPartialCommit, OpCall, OpJump:
		return true
	}
	return false
}

// String returns a one-line assembly-style rendering of the instruction.
func (in Instr) String() string {
	switch in.Op {
	case OpChar:
		return fmt.Sprintf("Char %q", in.Char)
	case OpSet:
		return fmt.Sprintf("Set %s", in.Set)
	case OpLit:
		if in.Fold {
			return fmt.Sprintf("Lit %q fold", in.Lit)
		}
		return fmt.Sprintf("Lit %q", in.Lit)
	case OpAny:
		return fmt.Sprintf("Any %d", in.N)
	case OpError:
		return fmt.Sprintf("Error %q", in.Lit)
	case OpCapOpen:
		switch in.Kind {
		case CapField:
			return fmt.Sprintf("CapOpen %s %q", in.Kind, in.Lit)
		case CapAction:
			return fmt.Sprintf("CapOpen %s #%d", in.Kind, in.N)
		default:
			return fmt.Sprintf("CapOpen %s", in.Kind)
		}
	case OpReturn, OpFail, OpFailTwice, OpCapClose:
		return in.Op.String()
	default:
		if in.hasAddr() {
			return fmt.Sprintf("%s -> %d", in.Op, in.Addr)
		}
		return in.Op.String()
	}
}
