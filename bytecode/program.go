package bytecode

import (
	"fmt"
	"strings"
)

// NoFunc marks an absent function slot in a Stage.
const NoFunc int32 = -1

// StageKind distinguishes the two top-level execution shapes.
type StageKind uint8

const (
	// StageMain runs one function serially.
	StageMain StageKind = iota
	// StagePar runs begin, then the main loop (possibly across parallel
	// workers over disjoint input partitions), then end.
	StagePar
)

// Stage describes the top-level execution shape of a compiled program.
// It is built once by the front end, from static analysis of whether
// the program is safe to parallelize, and never mutated afterward.
type Stage struct {
	Kind StageKind

	// Main is the single function for StageMain.
	Main int32

	// Begin, Loop and End are function indices for StagePar; any of
	// them may be NoFunc.
	Begin, Loop, End int32
}

// MainStage returns a serial stage running one function.
func MainStage(fn int32) Stage {
	return Stage{Kind: StageMain, Main: fn, Begin: NoFunc, Loop: NoFunc, End: NoFunc}
}

// ParStage returns a begin/loop/end stage; pass NoFunc for absent parts.
func ParStage(begin, loop, end int32) Stage {
	return Stage{Kind: StagePar, Main: NoFunc, Begin: begin, Loop: loop, End: end}
}

// Func is one compiled function: a flat instruction sequence. Execution
// starts at instruction 0 and ends at a Ret with an empty call stack,
// an Exit, or a Halt.
type Func struct {
	Name string
	Code []Instr
}

// IntrinsicSig is the fixed call signature of an opaque builtin
// operation. The engine resolves intrinsics by name against a host
// registry at run time; it has no visibility into their implementation.
type IntrinsicSig struct {
	Name string
	Args []RegType // scalar types only
	Ret  RegType
}

// Program is a compiled program ready for execution: per-function
// instruction sequences, a stage descriptor, the register count needed
// for each type, and the constant pools. The engine assumes the program
// is well-typed as declared and does not re-validate it.
type Program struct {
	Funcs []Func
	Stage Stage

	// Regs is the number of registers per type, fixed at compile time.
	Regs [NumRegTypes]int32

	// Constant pools
	Ints    []int64
	Floats  []float64
	Strs    []string
	Regexes []string // patterns, compiled lazily by the engine

	// ArgLists holds the variable-length, type-tagged argument lists
	// referenced by Printf/PrintAll/Sprintf/CallIntrinsic.
	ArgLists [][]Operand

	// Intrinsics are the opaque operation signatures this program calls.
	Intrinsics []IntrinsicSig
}

// Disassemble returns a human-readable disassembly of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	if len(p.Ints) > 0 {
		sb.WriteString("=== Ints ===\n")
		for i, n := range p.Ints {
			fmt.Fprintf(&sb, "  [%d] %d\n", i, n)
		}
		sb.WriteString("\n")
	}
	if len(p.Floats) > 0 {
		sb.WriteString("=== Floats ===\n")
		for i, n := range p.Floats {
			fmt.Fprintf(&sb, "  [%d] %v\n", i, n)
		}
		sb.WriteString("\n")
	}
	if len(p.Strs) > 0 {
		sb.WriteString("=== Strings ===\n")
		for i, s := range p.Strs {
			fmt.Fprintf(&sb, "  [%d] %q\n", i, s)
		}
		sb.WriteString("\n")
	}
	if len(p.Regexes) > 0 {
		sb.WriteString("=== Regexes ===\n")
		for i, r := range p.Regexes {
			fmt.Fprintf(&sb, "  [%d] /%s/\n", i, r)
		}
		sb.WriteString("\n")
	}

	switch p.Stage.Kind {
	case StageMain:
		fmt.Fprintf(&sb, "=== Stage: main -> %s ===\n\n", p.funcName(p.Stage.Main))
	case StagePar:
		fmt.Fprintf(&sb, "=== Stage: begin -> %s, loop -> %s, end -> %s ===\n\n",
			p.funcName(p.Stage.Begin), p.funcName(p.Stage.Loop), p.funcName(p.Stage.End))
	}

	for i := range p.Funcs {
		fn := &p.Funcs[i]
		fmt.Fprintf(&sb, "=== Func %d: %s ===\n", i, fn.Name)
		for j, ins := range fn.Code {
			fmt.Fprintf(&sb, "  %04d: %s", j, ins.Op)
			p.disassembleOperands(&sb, ins)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (p *Program) funcName(idx int32) string {
	if idx == NoFunc {
		return "-"
	}
	if int(idx) < len(p.Funcs) {
		return p.Funcs[idx].Name
	}
	return fmt.Sprintf("func[%d]", idx)
}

// disassembleOperands prints per-op operand annotations for the cases
// where raw numbers would be unreadable; everything else gets the plain
// dst/a/b/c dump.
func (p *Program) disassembleOperands(sb *strings.Builder, ins Instr) {
	switch ins.Op {
	case Nop, Ret, Exit, Halt, NextFile, FlushAll:
		// no operands
	case LoadInt:
		if int(ins.A) < len(p.Ints) {
			fmt.Fprintf(sb, " r%d <- %d", ins.Dst, p.Ints[ins.A])
		}
	case LoadFloat:
		if int(ins.A) < len(p.Floats) {
			fmt.Fprintf(sb, " r%d <- %v", ins.Dst, p.Floats[ins.A])
		}
	case LoadStr:
		if int(ins.A) < len(p.Strs) {
			fmt.Fprintf(sb, " r%d <- %q", ins.Dst, p.Strs[ins.A])
		}
	case IsMatchConst:
		if int(ins.B) < len(p.Regexes) {
			fmt.Fprintf(sb, " r%d <- r%d ~ /%s/", ins.Dst, ins.A, p.Regexes[ins.B])
		}
	case LoadVarInt, LoadVarStr, LoadVarIntMapStr, LoadVarStrMapInt, LoadVarStrMapStr:
		fmt.Fprintf(sb, " r%d <- %s", ins.Dst, Var(ins.A))
	case StoreVarInt, StoreVarStr, StoreVarIntMapStr, StoreVarStrMapInt, StoreVarStrMapStr:
		fmt.Fprintf(sb, " %s <- r%d", Var(ins.A), ins.B)
	case Jmp:
		fmt.Fprintf(sb, " -> %04d", ins.A)
	case JmpIf:
		fmt.Fprintf(sb, " r%d -> %04d", ins.A, ins.B)
	case Call:
		fmt.Fprintf(sb, " %s", p.funcName(ins.A))
	case CallIntrinsic:
		if int(ins.A) < len(p.Intrinsics) {
			fmt.Fprintf(sb, " r%d <- %s args[%d]", ins.Dst, p.Intrinsics[ins.A].Name, ins.B)
		}
	case Printf, PrintAll:
		fmt.Fprintf(sb, " args[%d] out=%s", ins.B, OutputMode(ins.C))
	case ReadLine, ReadErr:
		fmt.Fprintf(sb, " r%d <- %s", ins.Dst, SourceKind(ins.A))
	default:
		fmt.Fprintf(sb, " dst=%d a=%d b=%d c=%d", ins.Dst, ins.A, ins.B, ins.C)
	}
}
