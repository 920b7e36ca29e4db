package bytecode

// Builder assembles a Program for execution. It is the handoff point
// from a front end: the front end allocates typed registers, interns
// constants, emits instructions into functions, and finally calls
// Build with a stage descriptor.
//
// The Builder does not type-check: like the engine itself, it trusts
// the producer. It exists so that front ends (and tests) never have to
// hand-count register indices or patch jump offsets.
type Builder struct {
	prog     Program
	intIdx   map[int64]int32
	floatIdx map[float64]int32
	strIdx   map[string]int32
}

// NewBuilder creates an empty program builder.
func NewBuilder() *Builder {
	return &Builder{
		intIdx:   make(map[int64]int32),
		floatIdx: make(map[float64]int32),
		strIdx:   make(map[string]int32),
	}
}

// Reg allocates the next register of type t and returns its index.
func (b *Builder) Reg(t RegType) int32 {
	r := b.prog.Regs[t]
	b.prog.Regs[t] = r + 1
	return r
}

// IntReg, FloatReg and StrReg are shorthands for Reg.
func (b *Builder) IntReg() int32   { return b.Reg(Int) }
func (b *Builder) FloatReg() int32 { return b.Reg(Float) }
func (b *Builder) StrReg() int32   { return b.Reg(Str) }

// IntConst interns an integer constant and returns its pool index.
func (b *Builder) IntConst(v int64) int32 {
	if i, ok := b.intIdx[v]; ok {
		return i
	}
	i := int32(len(b.prog.Ints))
	b.prog.Ints = append(b.prog.Ints, v)
	b.intIdx[v] = i
	return i
}

// FloatConst interns a float constant and returns its pool index.
func (b *Builder) FloatConst(v float64) int32 {
	if i, ok := b.floatIdx[v]; ok {
		return i
	}
	i := int32(len(b.prog.Floats))
	b.prog.Floats = append(b.prog.Floats, v)
	b.floatIdx[v] = i
	return i
}

// StrConst interns a string constant and returns its pool index.
func (b *Builder) StrConst(v string) int32 {
	if i, ok := b.strIdx[v]; ok {
		return i
	}
	i := int32(len(b.prog.Strs))
	b.prog.Strs = append(b.prog.Strs, v)
	b.strIdx[v] = i
	return i
}

// RegexConst adds a regex pattern to the pool and returns its index.
func (b *Builder) RegexConst(pattern string) int32 {
	i := int32(len(b.prog.Regexes))
	b.prog.Regexes = append(b.prog.Regexes, pattern)
	return i
}

// ArgList registers a type-tagged argument list and returns its index.
func (b *Builder) ArgList(ops ...Operand) int32 {
	i := int32(len(b.prog.ArgLists))
	b.prog.ArgLists = append(b.prog.ArgLists, ops)
	return i
}

// Intrinsic registers an opaque operation signature and returns its index.
func (b *Builder) Intrinsic(sig IntrinsicSig) int32 {
	i := int32(len(b.prog.Intrinsics))
	b.prog.Intrinsics = append(b.prog.Intrinsics, sig)
	return i
}

// Func starts a new function and returns its builder.
func (b *Builder) Func(name string) *FuncBuilder {
	id := int32(len(b.prog.Funcs))
	b.prog.Funcs = append(b.prog.Funcs, Func{Name: name})
	return &FuncBuilder{b: b, id: id}
}

// Build finalizes the program with the given stage descriptor.
// The Builder must not be used after Build.
func (b *Builder) Build(stage Stage) *Program {
	b.prog.Stage = stage
	p := b.prog
	return &p
}

// Label marks a jump target inside one function.
type Label int32

// FuncBuilder assembles a single function's instruction sequence.
type FuncBuilder struct {
	b       *Builder
	id      int32
	code    []Instr
	labels  []int32 // label -> bound instruction index, -1 if unbound
	patches []patch
}

type patch struct {
	instr int32 // index of the instruction to patch
	label Label
	isA   bool // patch the A operand (Jmp) rather than B (JmpIf)
}

// ID returns the function's index in the program.
func (f *FuncBuilder) ID() int32 {
	return f.id
}

// Emit appends an instruction; unused operands may be omitted.
func (f *FuncBuilder) Emit(op Op, operands ...int32) {
	ins := Instr{Op: op}
	switch len(operands) {
	case 4:
		ins.C = operands[3]
		fallthrough
	case 3:
		ins.B = operands[2]
		fallthrough
	case 2:
		ins.A = operands[1]
		fallthrough
	case 1:
		ins.Dst = operands[0]
	}
	f.code = append(f.code, ins)
}

// Label allocates a new, unbound label.
func (f *FuncBuilder) Label() Label {
	f.labels = append(f.labels, -1)
	return Label(len(f.labels) - 1)
}

// Bind binds a label to the next emitted instruction.
func (f *FuncBuilder) Bind(l Label) {
	f.labels[l] = int32(len(f.code))
}

// Jmp emits an unconditional jump to a label (bound later or already).
func (f *FuncBuilder) Jmp(l Label) {
	f.patches = append(f.patches, patch{instr: int32(len(f.code)), label: l, isA: true})
	f.code = append(f.code, Instr{Op: Jmp})
}

// JmpIf emits a conditional jump to a label on a nonzero Int register.
func (f *FuncBuilder) JmpIf(cond int32, l Label) {
	f.patches = append(f.patches, patch{instr: int32(len(f.code)), label: l})
	f.code = append(f.code, Instr{Op: JmpIf, A: cond})
}

// Done patches jump targets and stores the function body. Every label
// referenced by a jump must have been bound.
func (f *FuncBuilder) Done() {
	for _, p := range f.patches {
		target := f.labels[p.label]
		if target < 0 {
			panic("bytecode: jump to unbound label")
		}
		if p.isA {
			f.code[p.instr].A = target
		} else {
			f.code[p.instr].B = target
		}
	}
	f.b.prog.Funcs[f.id].Code = f.code
}
