// Package bytecode defines the typed register instruction set executed
// by the rawk engine, the compiled-program container, and a programmatic
// builder for front ends.
package bytecode

import "fmt"

// Op identifies a virtual machine instruction. The set is closed:
// the interpreter dispatches with one exhaustive switch, so adding an
// op is a compile-time-visible change.
//
// Every op has a fixed arity and fixed operand register types, verified
// by the producer of the bytecode; the interpreter does not re-check.
type Op int32

const (
	// Nop does nothing.
	Nop Op = iota

	// Constant loads: Dst <- pool[A]
	LoadInt
	LoadFloat
	LoadStr

	// Register moves: Dst <- A. Map moves copy the reference, not the
	// table: both registers alias the same map afterwards.
	MovInt
	MovFloat
	MovStr
	MovMapIntInt
	MovMapIntFloat
	MovMapIntStr
	MovMapStrInt
	MovMapStrFloat
	MovMapStrStr

	// Conversions: Dst <- conv(A)
	IntToFloat
	FloatToInt
	IntToStr
	FloatToStr
	StrToInt   // numeric prefix parse, truncated
	StrToFloat // numeric prefix parse
	HexStrToInt

	// Integer arithmetic: Dst <- A op B. There is no integer divide;
	// division always goes through floats (the front end converts).
	AddInt
	SubInt
	MulInt
	ModInt
	NegInt
	AndInt
	OrInt
	XorInt
	ShlInt
	ShrInt
	ComplInt

	// Float arithmetic and math: Dst <- A op B (unary ops ignore B)
	AddFloat
	SubFloat
	MulFloat
	DivFloat
	ModFloat
	PowFloat
	NegFloat
	Sqrt
	Sin
	Cos
	Log
	Log2
	Exp
	Atan
	Atan2
	Rand      // Dst <- uniform float in [0,1)
	Srand     // Dst <- previous seed; reseed RNG with int reg A
	ReseedRng // Dst <- previous seed; reseed RNG from entropy

	// Comparisons, type-specialized (the upstream type system picks the
	// opcode; numeric vs byte-string ordering is never decided at
	// runtime). Result is Int 0/1 in Dst.
	LtInt
	LteInt
	GtInt
	GteInt
	EqInt
	NeInt
	LtFloat
	LteFloat
	GtFloat
	GteFloat
	EqFloat
	NeFloat
	LtStr
	LteStr
	GtStr
	GteStr
	EqStr
	NeStr
	NotInt // logical not: Dst <- A == 0

	// String operations
	Concat      // Dst <- A + B
	LenStr      // Dst(Int) <- len(A)
	Substr      // Dst <- A[B..B+C], 1-based AWK clamping; C reg < 0 means "to end"
	IndexSubstr // Dst(Int) <- 1-based index of B in A, 0 if absent
	ToUpper
	ToLower
	TrimSpace
	IsMatch      // Dst(Int) <- A matches dynamic pattern in Str reg B
	IsMatchConst // Dst(Int) <- A matches Regexes[B]
	MatchLoc     // Dst(Int) <- RSTART; sets RSTART/RLENGTH vars (A str, B pattern)
	SubstFirst   // Dst(Int) <- count; C reg rewritten in place (A pattern, B repl)
	SubstAll     // Dst(Int) <- count; C reg rewritten in place (A pattern, B repl)
	SplitInt     // Dst(Int) <- n; split A by sep C into MapIntStr reg B keyed 1..n
	SplitStr     // Dst(Int) <- n; split A by sep C into MapStrStr reg B keyed "1".."n"
	Sprintf      // Dst(Str) <- format Str reg A applied to ArgLists[B]
	Printf       // write formatted A/ArgLists[B] to output C:Dst
	PrintAll     // write ArgLists[B] joined by OFS + ORS to output C:Dst

	// Record and field operations. Fields are backed by a lazily-split
	// current record: GetCol/NfCol trigger a split on demand.
	GetCol // Dst(Str) <- field A (Int reg); 0 is the whole record
	SetCol // field A (Int reg) <- B (Str reg); rebuilds the record with OFS
	NfCol  // Dst(Int) <- number of fields in the current record

	// Map operations, one op per key/value combination.
	// Lookup inserts the zero value on a miss and returns it.
	LookupIntInt
	LookupIntFloat
	LookupIntStr
	LookupStrInt
	LookupStrFloat
	LookupStrStr
	StoreIntInt
	StoreIntFloat
	StoreIntStr
	StoreStrInt
	StoreStrFloat
	StoreStrStr
	ContainsIntInt
	ContainsIntFloat
	ContainsIntStr
	ContainsStrInt
	ContainsStrFloat
	ContainsStrStr
	DeleteIntInt
	DeleteIntFloat
	DeleteIntStr
	DeleteStrInt
	DeleteStrFloat
	DeleteStrStr
	ClearIntInt
	ClearIntFloat
	ClearIntStr
	ClearStrInt
	ClearStrFloat
	ClearStrStr
	LenIntInt
	LenIntFloat
	LenIntStr
	LenStrInt
	LenStrFloat
	LenStrStr

	// Fetch-default, add delta (C reg), store, return new value in Dst.
	IncIntInt
	IncIntFloat
	IncStrInt
	IncStrFloat

	// Iteration: IterBegin snapshots the key set of map reg A into
	// iterator reg Dst. Mutations after the snapshot are invisible to
	// the iterator. IterGetNext past the end is a programming error.
	IterBeginIntInt
	IterBeginIntFloat
	IterBeginIntStr
	IterBeginStrInt
	IterBeginStrFloat
	IterBeginStrStr
	IterHasNextInt
	IterHasNextStr
	IterGetNextInt
	IterGetNextStr

	// Builtin variable access, one load/store pair per storage shape.
	// Using the wrong shape for a variable is a runtime error, never a
	// coercion. Map-shaped loads alias the live variable map.
	LoadVarInt
	StoreVarInt
	LoadVarStr
	StoreVarStr
	LoadVarIntMapStr
	StoreVarIntMapStr
	LoadVarStrMapInt
	StoreVarStrMapInt
	LoadVarStrMapStr
	StoreVarStrMapStr

	// Slot access: A is the slot number. Slots are plain values used to
	// transfer state across pipeline stages/threads; map slot stores are
	// deep copies, never aliases.
	SlotLoadInt
	SlotStoreInt
	SlotLoadFloat
	SlotStoreFloat
	SlotLoadStr
	SlotStoreStr
	SlotLoadMapIntInt
	SlotStoreMapIntInt
	SlotLoadMapIntFloat
	SlotStoreMapIntFloat
	SlotLoadMapIntStr
	SlotStoreMapIntStr
	SlotLoadMapStrInt
	SlotStoreMapStrInt
	SlotLoadMapStrFloat
	SlotStoreMapStrFloat
	SlotLoadMapStrStr
	SlotStoreMapStrStr

	// Input operations. A is the source kind (SourceMain, SourceFile,
	// SourceCmd); B names the file/command for non-main sources.
	ReadLine // Dst(Str) <- next record; empty at EOF
	ReadErr  // Dst(Int) <- status of last read on the source: 1 ok, 0 eof, -1 error
	NextFile // advance the main input to its next file
	CloseFile
	FlushFile
	FlushAll

	// Control flow. Jump targets are absolute instruction indices within
	// the current function. Call/Ret use an explicit (function, return
	// index) stack; Ret on an empty stack terminates the invocation.
	Jmp   // ip <- A
	JmpIf // if Int reg A != 0 then ip <- B
	Call  // call Funcs[A]
	Ret

	// Cross-function argument stack, one push/pop pair per type actually
	// passed between functions. Push copies the register onto the type's
	// stack; Pop moves the top into Dst. Map push/pop preserves the
	// reference (no deep copy).
	PushInt
	PushFloat
	PushStr
	PushMapIntInt
	PushMapIntFloat
	PushMapIntStr
	PushMapStrInt
	PushMapStrFloat
	PushMapStrStr
	PopInt
	PopFloat
	PopStr
	PopMapIntInt
	PopMapIntFloat
	PopMapIntStr
	PopMapStrInt
	PopMapStrFloat
	PopMapStrStr

	// Exit halts the invocation immediately (pending Rets do not run)
	// and propagates a process exit code.
	Exit     // code 0
	ExitCode // code from Int reg A

	// CallIntrinsic invokes Intrinsics[A] with ArgLists[B], result in
	// Dst (typed per the intrinsic signature). Intrinsics are opaque and
	// possibly failing.
	CallIntrinsic

	// Halt marks the end of straight-line code.
	Halt

	numOps // sentinel
)

var opNames = [numOps]string{
	Nop: "Nop",

	LoadInt: "LoadInt", LoadFloat: "LoadFloat", LoadStr: "LoadStr",
	MovInt: "MovInt", MovFloat: "MovFloat", MovStr: "MovStr",
	MovMapIntInt: "MovMapIntInt", MovMapIntFloat: "MovMapIntFloat", MovMapIntStr: "MovMapIntStr",
	MovMapStrInt: "MovMapStrInt", MovMapStrFloat: "MovMapStrFloat", MovMapStrStr: "MovMapStrStr",

	IntToFloat: "IntToFloat", FloatToInt: "FloatToInt", IntToStr: "IntToStr",
	FloatToStr: "FloatToStr", StrToInt: "StrToInt", StrToFloat: "StrToFloat",
	HexStrToInt: "HexStrToInt",

	AddInt: "AddInt", SubInt: "SubInt", MulInt: "MulInt", ModInt: "ModInt",
	NegInt: "NegInt", AndInt: "AndInt", OrInt: "OrInt", XorInt: "XorInt",
	ShlInt: "ShlInt", ShrInt: "ShrInt", ComplInt: "ComplInt",

	AddFloat: "AddFloat", SubFloat: "SubFloat", MulFloat: "MulFloat",
	DivFloat: "DivFloat", ModFloat: "ModFloat", PowFloat: "PowFloat",
	NegFloat: "NegFloat", Sqrt: "Sqrt", Sin: "Sin", Cos: "Cos", Log: "Log",
	Log2: "Log2", Exp: "Exp", Atan: "Atan", Atan2: "Atan2",
	Rand: "Rand", Srand: "Srand", ReseedRng: "ReseedRng",

	LtInt: "LtInt", LteInt: "LteInt", GtInt: "GtInt", GteInt: "GteInt",
	EqInt: "EqInt", NeInt: "NeInt",
	LtFloat: "LtFloat", LteFloat: "LteFloat", GtFloat: "GtFloat",
	GteFloat: "GteFloat", EqFloat: "EqFloat", NeFloat: "NeFloat",
	LtStr: "LtStr", LteStr: "LteStr", GtStr: "GtStr", GteStr: "GteStr",
	EqStr: "EqStr", NeStr: "NeStr", NotInt: "NotInt",

	Concat: "Concat", LenStr: "LenStr", Substr: "Substr",
	IndexSubstr: "IndexSubstr", ToUpper: "ToUpper", ToLower: "ToLower",
	TrimSpace: "TrimSpace", IsMatch: "IsMatch", IsMatchConst: "IsMatchConst",
	MatchLoc: "MatchLoc", SubstFirst: "SubstFirst", SubstAll: "SubstAll",
	SplitInt: "SplitInt", SplitStr: "SplitStr", Sprintf: "Sprintf",
	Printf: "Printf", PrintAll: "PrintAll",

	GetCol: "GetCol", SetCol: "SetCol", NfCol: "NfCol",

	LookupIntInt: "LookupIntInt", LookupIntFloat: "LookupIntFloat",
	LookupIntStr: "LookupIntStr", LookupStrInt: "LookupStrInt",
	LookupStrFloat: "LookupStrFloat", LookupStrStr: "LookupStrStr",
	StoreIntInt: "StoreIntInt", StoreIntFloat: "StoreIntFloat",
	StoreIntStr: "StoreIntStr", StoreStrInt: "StoreStrInt",
	StoreStrFloat: "StoreStrFloat", StoreStrStr: "StoreStrStr",
	ContainsIntInt: "ContainsIntInt", ContainsIntFloat: "ContainsIntFloat",
	ContainsIntStr: "ContainsIntStr", ContainsStrInt: "ContainsStrInt",
	ContainsStrFloat: "ContainsStrFloat", ContainsStrStr: "ContainsStrStr",
	DeleteIntInt: "DeleteIntInt", DeleteIntFloat: "DeleteIntFloat",
	DeleteIntStr: "DeleteIntStr", DeleteStrInt: "DeleteStrInt",
	DeleteStrFloat: "DeleteStrFloat", DeleteStrStr: "DeleteStrStr",
	ClearIntInt: "ClearIntInt", ClearIntFloat: "ClearIntFloat",
	ClearIntStr: "ClearIntStr", ClearStrInt: "ClearStrInt",
	ClearStrFloat: "ClearStrFloat", ClearStrStr: "ClearStrStr",
	LenIntInt: "LenIntInt", LenIntFloat: "LenIntFloat", LenIntStr: "LenIntStr",
	LenStrInt: "LenStrInt", LenStrFloat: "LenStrFloat", LenStrStr: "LenStrStr",

	IncIntInt: "IncIntInt", IncIntFloat: "IncIntFloat",
	IncStrInt: "IncStrInt", IncStrFloat: "IncStrFloat",

	IterBeginIntInt: "IterBeginIntInt", IterBeginIntFloat: "IterBeginIntFloat",
	IterBeginIntStr: "IterBeginIntStr", IterBeginStrInt: "IterBeginStrInt",
	IterBeginStrFloat: "IterBeginStrFloat", IterBeginStrStr: "IterBeginStrStr",
	IterHasNextInt: "IterHasNextInt", IterHasNextStr: "IterHasNextStr",
	IterGetNextInt: "IterGetNextInt", IterGetNextStr: "IterGetNextStr",

	LoadVarInt: "LoadVarInt", StoreVarInt: "StoreVarInt",
	LoadVarStr: "LoadVarStr", StoreVarStr: "StoreVarStr",
	LoadVarIntMapStr: "LoadVarIntMapStr", StoreVarIntMapStr: "StoreVarIntMapStr",
	LoadVarStrMapInt: "LoadVarStrMapInt", StoreVarStrMapInt: "StoreVarStrMapInt",
	LoadVarStrMapStr: "LoadVarStrMapStr", StoreVarStrMapStr: "StoreVarStrMapStr",

	SlotLoadInt: "SlotLoadInt", SlotStoreInt: "SlotStoreInt",
	SlotLoadFloat: "SlotLoadFloat", SlotStoreFloat: "SlotStoreFloat",
	SlotLoadStr: "SlotLoadStr", SlotStoreStr: "SlotStoreStr",
	SlotLoadMapIntInt: "SlotLoadMapIntInt", SlotStoreMapIntInt: "SlotStoreMapIntInt",
	SlotLoadMapIntFloat: "SlotLoadMapIntFloat", SlotStoreMapIntFloat: "SlotStoreMapIntFloat",
	SlotLoadMapIntStr: "SlotLoadMapIntStr", SlotStoreMapIntStr: "SlotStoreMapIntStr",
	SlotLoadMapStrInt: "SlotLoadMapStrInt", SlotStoreMapStrInt: "SlotStoreMapStrInt",
	SlotLoadMapStrFloat: "SlotLoadMapStrFloat", SlotStoreMapStrFloat: "SlotStoreMapStrFloat",
	SlotLoadMapStrStr: "SlotLoadMapStrStr", SlotStoreMapStrStr: "SlotStoreMapStrStr",

	ReadLine: "ReadLine", ReadErr: "ReadErr", NextFile: "NextFile",
	CloseFile: "CloseFile", FlushFile: "FlushFile", FlushAll: "FlushAll",

	Jmp: "Jmp", JmpIf: "JmpIf", Call: "Call", Ret: "Ret",

	PushInt: "PushInt", PushFloat: "PushFloat", PushStr: "PushStr",
	PushMapIntInt: "PushMapIntInt", PushMapIntFloat: "PushMapIntFloat",
	PushMapIntStr: "PushMapIntStr", PushMapStrInt: "PushMapStrInt",
	PushMapStrFloat: "PushMapStrFloat", PushMapStrStr: "PushMapStrStr",
	PopInt: "PopInt", PopFloat: "PopFloat", PopStr: "PopStr",
	PopMapIntInt: "PopMapIntInt", PopMapIntFloat: "PopMapIntFloat",
	PopMapIntStr: "PopMapIntStr", PopMapStrInt: "PopMapStrInt",
	PopMapStrFloat: "PopMapStrFloat", PopMapStrStr: "PopMapStrStr",

	Exit: "Exit", ExitCode: "ExitCode", CallIntrinsic: "CallIntrinsic",
	Halt: "Halt",
}

// String returns a human-readable name for the op.
func (op Op) String() string {
	if op >= 0 && op < numOps && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int32(op))
}
