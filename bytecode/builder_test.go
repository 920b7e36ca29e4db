package bytecode

import (
	"strings"
	"testing"
)

func TestBuilderConstInterning(t *testing.T) {
	b := NewBuilder()

	if i, j := b.IntConst(42), b.IntConst(42); i != j {
		t.Errorf("IntConst(42) twice = %d, %d, want identical", i, j)
	}
	if i, j := b.StrConst("x"), b.StrConst("y"); i == j {
		t.Errorf("distinct strings got the same pool index %d", i)
	}
	if i, j := b.FloatConst(1.5), b.FloatConst(1.5); i != j {
		t.Errorf("FloatConst(1.5) twice = %d, %d, want identical", i, j)
	}

	fn := b.Func("main")
	fn.Emit(Halt)
	fn.Done()
	prog := b.Build(MainStage(fn.ID()))

	if len(prog.Ints) != 1 {
		t.Errorf("Ints pool size = %d, want 1", len(prog.Ints))
	}
	if len(prog.Strs) != 2 {
		t.Errorf("Strs pool size = %d, want 2", len(prog.Strs))
	}
}

func TestBuilderRegisterAllocation(t *testing.T) {
	b := NewBuilder()

	if r := b.IntReg(); r != 0 {
		t.Errorf("first int reg = %d, want 0", r)
	}
	if r := b.IntReg(); r != 1 {
		t.Errorf("second int reg = %d, want 1", r)
	}
	// Files are independent per type.
	if r := b.StrReg(); r != 0 {
		t.Errorf("first str reg = %d, want 0", r)
	}
	if r := b.Reg(MapStrInt); r != 0 {
		t.Errorf("first map reg = %d, want 0", r)
	}

	fn := b.Func("main")
	fn.Emit(Halt)
	fn.Done()
	prog := b.Build(MainStage(fn.ID()))

	if prog.Regs[Int] != 2 || prog.Regs[Str] != 1 || prog.Regs[MapStrInt] != 1 {
		t.Errorf("Regs = %v", prog.Regs)
	}
}

func TestBuilderJumpPatching(t *testing.T) {
	b := NewBuilder()
	cond := b.IntReg()

	fn := b.Func("main")
	end := fn.Label()
	fn.JmpIf(cond, end)   // 0
	fn.Emit(Nop)          // 1
	fn.Jmp(end)           // 2
	fn.Emit(Nop)          // 3
	fn.Bind(end)
	fn.Emit(Halt)         // 4
	fn.Done()
	prog := b.Build(MainStage(fn.ID()))

	code := prog.Funcs[0].Code
	if code[0].Op != JmpIf || code[0].A != cond || code[0].B != 4 {
		t.Errorf("JmpIf not patched: %+v", code[0])
	}
	if code[2].Op != Jmp || code[2].A != 4 {
		t.Errorf("Jmp not patched: %+v", code[2])
	}
}

func TestBuilderUnboundLabelPanics(t *testing.T) {
	b := NewBuilder()
	fn := b.Func("main")
	fn.Jmp(fn.Label())

	defer func() {
		if recover() == nil {
			t.Error("Done with an unbound label should panic")
		}
	}()
	fn.Done()
}

func TestDisassemble(t *testing.T) {
	b := NewBuilder()
	r := b.IntReg()
	fortyTwo := b.IntConst(42)

	fn := b.Func("main")
	fn.Emit(LoadInt, r, fortyTwo)
	fn.Emit(StoreVarInt, 0, int32(VarNR), r)
	fn.Emit(Halt)
	fn.Done()
	prog := b.Build(MainStage(fn.ID()))

	dis := prog.Disassemble()
	for _, want := range []string{"LoadInt", "42", "NR", "main", "Halt"} {
		if !strings.Contains(dis, want) {
			t.Errorf("disassembly missing %q:\n%s", want, dis)
		}
	}
}

func TestVarShapes(t *testing.T) {
	tests := []struct {
		v     Var
		shape RegType
	}{
		{VarNR, Int},
		{VarARGC, Int},
		{VarPID, Int},
		{VarFS, Str},
		{VarCONVFMT, Str},
		{VarARGV, MapIntStr},
		{VarFI, MapStrInt},
		{VarENVIRON, MapStrStr},
		{VarPROCINFO, MapStrStr},
	}

	for _, tt := range tests {
		if got := tt.v.Shape(); got != tt.shape {
			t.Errorf("%s.Shape() = %v, want %v", tt.v, got, tt.shape)
		}
	}

	if v, ok := LookupVar("SUBSEP"); !ok || v != VarSUBSEP {
		t.Errorf("LookupVar(SUBSEP) = %v, %v", v, ok)
	}
	if _, ok := LookupVar("NOPE"); ok {
		t.Error("LookupVar(NOPE) should miss")
	}
}
