package bytecode

import "fmt"

// RegType identifies one of the typed register files. Registers are
// `(type, index)` pairs with dense, contiguous indices per type,
// allocated by the front end; the interpreter never grows a file.
type RegType uint8

const (
	Int RegType = iota
	Float
	Str
	MapIntInt
	MapIntFloat
	MapIntStr
	MapStrInt
	MapStrFloat
	MapStrStr
	IterInt
	IterStr

	NumRegTypes // sentinel
)

var regTypeNames = [NumRegTypes]string{
	Int: "Int", Float: "Float", Str: "Str",
	MapIntInt: "MapIntInt", MapIntFloat: "MapIntFloat", MapIntStr: "MapIntStr",
	MapStrInt: "MapStrInt", MapStrFloat: "MapStrFloat", MapStrStr: "MapStrStr",
	IterInt: "IterInt", IterStr: "IterStr",
}

// String returns a human-readable name for the register type.
func (t RegType) String() string {
	if t < NumRegTypes {
		return regTypeNames[t]
	}
	return fmt.Sprintf("RegType(%d)", uint8(t))
}

// IsMap reports whether t is one of the six map register types.
func (t RegType) IsMap() bool {
	return t >= MapIntInt && t <= MapStrStr
}

// Instr is a single instruction. Operand meaning is fixed per Op
// (documented on the Op constants); unused operands are zero. Most ops
// are three-address: Dst <- A op B, with C carrying a third source
// where needed. Register operands index the register file implied by
// the op; immediate operands (pool indices, slot numbers, jump targets,
// var ids) are plain numbers.
type Instr struct {
	Op   Op
	Dst  int32
	A, B int32
	C    int32
}

// Operand is a type-tagged register reference used in variadic argument
// lists (Printf, PrintAll, Sprintf, CallIntrinsic).
type Operand struct {
	Type RegType
	Reg  int32
}

// OutputMode selects the destination of a Printf/PrintAll instruction.
type OutputMode int32

const (
	OutputMain     OutputMode = iota // primary output stream
	OutputFile                       // named file, truncate on first open
	OutputAppend                     // named file, append
	OutputPipe                       // subprocess stdin
)

// String returns a human-readable name for the output mode.
func (m OutputMode) String() string {
	switch m {
	case OutputMain:
		return "main"
	case OutputFile:
		return ">"
	case OutputAppend:
		return ">>"
	case OutputPipe:
		return "|"
	default:
		return fmt.Sprintf("OutputMode(%d)", int32(m))
	}
}

// SourceKind selects the input source of a ReadLine/ReadErr instruction.
type SourceKind int32

const (
	SourceMain SourceKind = iota // the primary input (stdin or ARGV files)
	SourceFile                   // a named file
	SourceCmd                    // a subprocess's stdout
)

// String returns a human-readable name for the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceMain:
		return "main"
	case SourceFile:
		return "file"
	case SourceCmd:
		return "cmd"
	default:
		return fmt.Sprintf("SourceKind(%d)", int32(k))
	}
}
