package interp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kolkov/rawk/bytecode"
	"github.com/kolkov/rawk/internal/runtime"
)

// runMain executes a main-stage program over input and returns its
// output and result.
func runMain(t *testing.T, prog *bytecode.Program, input string) (string, Result) {
	t.Helper()
	var buf bytes.Buffer
	core := NewCore(prog, CoreConfig{
		Input:  runtime.NewSource(strings.NewReader(input), nil),
		Output: runtime.NewOutputRegistry(&buf),
		Seed:   1,
	})
	res, err := NewInterp(core).Run(prog.Stage.Main)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	core.Teardown()
	return buf.String(), res
}

func TestArithmeticLoop(t *testing.T) {
	b := bytecode.NewBuilder()
	i := b.IntReg()
	sum := b.IntReg()
	one := b.IntReg()
	limit := b.IntReg()
	cond := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: sum})

	fn := b.Func("main")
	fn.Emit(bytecode.LoadInt, i, b.IntConst(1))
	fn.Emit(bytecode.LoadInt, sum, b.IntConst(0))
	fn.Emit(bytecode.LoadInt, one, b.IntConst(1))
	fn.Emit(bytecode.LoadInt, limit, b.IntConst(10))
	loop := fn.Label()
	done := fn.Label()
	fn.Bind(loop)
	fn.Emit(bytecode.GtInt, cond, i, limit)
	fn.JmpIf(cond, done)
	fn.Emit(bytecode.AddInt, sum, sum, i)
	fn.Emit(bytecode.AddInt, i, i, one)
	fn.Jmp(loop)
	fn.Bind(done)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, res := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "")
	if out != "55\n" {
		t.Errorf("output = %q, want %q", out, "55\n")
	}
	if res.Status != Returned {
		t.Errorf("status = %v, want Returned", res.Status)
	}
}

func TestCallRetWithArgStack(t *testing.T) {
	b := bytecode.NewBuilder()
	x := b.IntReg()
	two := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: x})

	main := b.Func("main")
	dbl := b.Func("double")

	main.Emit(bytecode.LoadInt, x, b.IntConst(21))
	main.Emit(bytecode.PushInt, 0, x)
	main.Emit(bytecode.Call, 0, dbl.ID())
	main.Emit(bytecode.PopInt, x)
	main.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	main.Emit(bytecode.Halt)
	main.Done()

	dbl.Emit(bytecode.PopInt, x)
	dbl.Emit(bytecode.LoadInt, two, b.IntConst(2))
	dbl.Emit(bytecode.MulInt, x, x, two)
	dbl.Emit(bytecode.PushInt, 0, x)
	dbl.Emit(bytecode.Ret)
	dbl.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(main.ID())), "")
	if out != "42\n" {
		t.Errorf("output = %q, want %q", out, "42\n")
	}
}

func TestMapArgsShareReferenceAcrossCall(t *testing.T) {
	b := bytecode.NewBuilder()
	m := b.Reg(bytecode.MapStrInt)
	key := b.StrReg()
	v := b.IntReg()
	got := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: got})

	main := b.Func("main")
	mark := b.Func("mark")

	main.Emit(bytecode.LoadStr, key, b.StrConst("before"))
	main.Emit(bytecode.LoadInt, v, b.IntConst(1))
	main.Emit(bytecode.StoreStrInt, m, key, v)
	main.Emit(bytecode.PushMapStrInt, 0, m)
	main.Emit(bytecode.Call, 0, mark.ID())
	// The callee's insert must be visible through the caller's own
	// register, not a copy handed back.
	main.Emit(bytecode.LoadStr, key, b.StrConst("inside"))
	main.Emit(bytecode.LookupStrInt, got, m, key)
	main.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	main.Emit(bytecode.Halt)
	main.Done()

	mark.Emit(bytecode.PopMapStrInt, m)
	mark.Emit(bytecode.LoadStr, key, b.StrConst("inside"))
	mark.Emit(bytecode.LoadInt, v, b.IntConst(9))
	mark.Emit(bytecode.StoreStrInt, m, key, v)
	mark.Emit(bytecode.Ret)
	mark.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(main.ID())), "")
	if out != "9\n" {
		t.Errorf("callee map write not shared with caller: %q", out)
	}
}

func TestMapRegistersShareReferences(t *testing.T) {
	b := bytecode.NewBuilder()
	m1 := b.Reg(bytecode.MapStrInt)
	m2 := b.Reg(bytecode.MapStrInt)
	key := b.StrReg()
	v := b.IntReg()
	got := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: got})

	fn := b.Func("main")
	fn.Emit(bytecode.MovMapStrInt, m2, m1) // alias, not copy
	fn.Emit(bytecode.LoadStr, key, b.StrConst("k"))
	fn.Emit(bytecode.LoadInt, v, b.IntConst(7))
	fn.Emit(bytecode.StoreStrInt, m1, key, v)
	fn.Emit(bytecode.LookupStrInt, got, m2, key)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "")
	if out != "7\n" {
		t.Errorf("store through one alias not seen through the other: %q", out)
	}
}

func TestIncAndIterate(t *testing.T) {
	b := bytecode.NewBuilder()
	m := b.Reg(bytecode.MapStrInt)
	it := b.Reg(bytecode.IterStr)
	key := b.StrReg()
	delta := b.IntReg()
	sum := b.IntReg()
	v := b.IntReg()
	cond := b.IntReg()
	scratch := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: sum})

	fn := b.Func("main")
	fn.Emit(bytecode.LoadInt, sum, b.IntConst(0))
	for i, k := range []string{"a", "b", "c"} {
		fn.Emit(bytecode.LoadStr, key, b.StrConst(k))
		fn.Emit(bytecode.LoadInt, delta, b.IntConst(int64(i+1)))
		fn.Emit(bytecode.IncStrInt, scratch, m, key, delta)
	}
	fn.Emit(bytecode.IterBeginStrInt, it, m)
	loop := fn.Label()
	done := fn.Label()
	fn.Bind(loop)
	fn.Emit(bytecode.IterHasNextStr, cond, it)
	fn.Emit(bytecode.NotInt, cond, cond)
	fn.JmpIf(cond, done)
	fn.Emit(bytecode.IterGetNextStr, key, it)
	fn.Emit(bytecode.LookupStrInt, v, m, key)
	fn.Emit(bytecode.AddInt, sum, sum, v)
	fn.Jmp(loop)
	fn.Bind(done)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "")
	if out != "6\n" {
		t.Errorf("iterated sum = %q, want %q", out, "6\n")
	}
}

func TestFieldAccess(t *testing.T) {
	b := bytecode.NewBuilder()
	line := b.StrReg()
	field := b.StrReg()
	n := b.IntReg()
	nf := b.IntReg()
	args := b.ArgList(
		bytecode.Operand{Type: bytecode.Str, Reg: field},
		bytecode.Operand{Type: bytecode.Int, Reg: nf},
	)

	fn := b.Func("main")
	fn.Emit(bytecode.ReadLine, line, int32(bytecode.SourceMain))
	fn.Emit(bytecode.LoadInt, n, b.IntConst(2))
	fn.Emit(bytecode.GetCol, field, n)
	fn.Emit(bytecode.NfCol, nf)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "foo bar baz\n")
	if out != "bar 3\n" {
		t.Errorf("output = %q, want %q", out, "bar 3\n")
	}
}

func TestSetFieldRebuildsRecord(t *testing.T) {
	b := bytecode.NewBuilder()
	line := b.StrReg()
	rec := b.StrReg()
	repl := b.StrReg()
	n := b.IntReg()
	zero := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Str, Reg: rec})

	fn := b.Func("main")
	fn.Emit(bytecode.ReadLine, line, int32(bytecode.SourceMain))
	fn.Emit(bytecode.LoadInt, n, b.IntConst(2))
	fn.Emit(bytecode.LoadStr, repl, b.StrConst("X"))
	fn.Emit(bytecode.SetCol, 0, n, repl)
	fn.Emit(bytecode.LoadInt, zero, b.IntConst(0))
	fn.Emit(bytecode.GetCol, rec, zero)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "foo bar baz\n")
	if out != "foo X baz\n" {
		t.Errorf("output = %q, want %q", out, "foo X baz\n")
	}
}

func TestReadLoopSumsInput(t *testing.T) {
	b := bytecode.NewBuilder()
	line := b.StrReg()
	v := b.IntReg()
	sum := b.IntReg()
	st := b.IntReg()
	one := b.IntReg()
	cond := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: sum})

	fn := b.Func("main")
	fn.Emit(bytecode.LoadInt, sum, b.IntConst(0))
	fn.Emit(bytecode.LoadInt, one, b.IntConst(1))
	loop := fn.Label()
	done := fn.Label()
	fn.Bind(loop)
	fn.Emit(bytecode.ReadLine, line, int32(bytecode.SourceMain))
	fn.Emit(bytecode.ReadErr, st, int32(bytecode.SourceMain))
	fn.Emit(bytecode.NeInt, cond, st, one)
	fn.JmpIf(cond, done)
	fn.Emit(bytecode.StrToInt, v, line)
	fn.Emit(bytecode.AddInt, sum, sum, v)
	fn.Jmp(loop)
	fn.Bind(done)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "10\n20\n12\n")
	if out != "42\n" {
		t.Errorf("output = %q, want %q", out, "42\n")
	}
}

func TestExitHaltsImmediately(t *testing.T) {
	b := bytecode.NewBuilder()
	code := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: code})

	fn := b.Func("main")
	fn.Emit(bytecode.LoadInt, code, b.IntConst(3))
	fn.Emit(bytecode.ExitCode, 0, code)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, res := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "")
	if res.Status != Halted || res.ExitCode != 3 {
		t.Errorf("result = %+v, want Halted code 3", res)
	}
	if out != "" {
		t.Errorf("instructions after exit ran: output %q", out)
	}
}

func TestRegexMatchOps(t *testing.T) {
	b := bytecode.NewBuilder()
	s := b.StrReg()
	pat := b.StrReg()
	hit := b.IntReg()
	start := b.IntReg()
	length := b.IntReg()
	args := b.ArgList(
		bytecode.Operand{Type: bytecode.Int, Reg: hit},
		bytecode.Operand{Type: bytecode.Int, Reg: start},
		bytecode.Operand{Type: bytecode.Int, Reg: length},
	)

	fn := b.Func("main")
	fn.Emit(bytecode.LoadStr, s, b.StrConst("foo bar"))
	fn.Emit(bytecode.LoadStr, pat, b.StrConst("o+"))
	fn.Emit(bytecode.IsMatch, hit, s, pat)
	fn.Emit(bytecode.MatchLoc, start, s, pat)
	fn.Emit(bytecode.LoadVarInt, length, int32(bytecode.VarRLENGTH))
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "")
	if out != "1 2 2\n" {
		t.Errorf("output = %q, want %q", out, "1 2 2\n")
	}
}

func TestSubstituteOps(t *testing.T) {
	b := bytecode.NewBuilder()
	target := b.StrReg()
	pat := b.StrReg()
	repl := b.StrReg()
	count := b.IntReg()
	args := b.ArgList(
		bytecode.Operand{Type: bytecode.Int, Reg: count},
		bytecode.Operand{Type: bytecode.Str, Reg: target},
	)

	fn := b.Func("main")
	fn.Emit(bytecode.LoadStr, target, b.StrConst("aaa"))
	fn.Emit(bytecode.LoadStr, pat, b.StrConst("a"))
	fn.Emit(bytecode.LoadStr, repl, b.StrConst("<&>"))
	fn.Emit(bytecode.SubstAll, count, pat, repl, target)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "")
	if out != "3 <a><a><a>\n" {
		t.Errorf("output = %q, want %q", out, "3 <a><a><a>\n")
	}
}

func TestSlotTransfer(t *testing.T) {
	b := bytecode.NewBuilder()
	v := b.IntReg()
	got := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: got})

	fn := b.Func("main")
	fn.Emit(bytecode.LoadInt, v, b.IntConst(99))
	fn.Emit(bytecode.SlotStoreInt, 0, 3, v)
	fn.Emit(bytecode.SlotLoadInt, got, 3)
	fn.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	fn.Emit(bytecode.Halt)
	fn.Done()

	out, _ := runMain(t, b.Build(bytecode.MainStage(fn.ID())), "")
	if out != "99\n" {
		t.Errorf("output = %q, want %q", out, "99\n")
	}
}

func TestSubstrClamping(t *testing.T) {
	tests := []struct {
		s    string
		m, n int64
		want string
	}{
		{"hello", 2, 3, "ell"},
		{"hello", 1, 5, "hello"},
		{"hello", 4, 10, "lo"},
		{"hello", 0, 2, "h"},
		{"hello", -1, 3, "h"},
		{"hello", 2, -1, "ello"},
		{"hello", 10, 3, ""},
		{"hello", 3, 0, ""},
	}

	for _, tt := range tests {
		if got := substr(tt.s, tt.m, tt.n); got != tt.want {
			t.Errorf("substr(%q, %d, %d) = %q, want %q", tt.s, tt.m, tt.n, got, tt.want)
		}
	}
}

func TestIndexOf(t *testing.T) {
	tests := []struct {
		s, needle string
		want      int
	}{
		{"hello", "ll", 3},
		{"hello", "h", 1},
		{"hello", "x", 0},
		{"hello", "", 1},
	}

	for _, tt := range tests {
		if got := indexOf(tt.s, tt.needle); got != tt.want {
			t.Errorf("indexOf(%q, %q) = %d, want %d", tt.s, tt.needle, got, tt.want)
		}
	}
}
