package interp

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kolkov/rawk/bytecode"
	"github.com/kolkov/rawk/internal/runtime"
)

// writeLines creates a temp input file with one number per line.
func writeLines(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	data := strings.Join(lines, "\n")
	if len(lines) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

// runStage executes prog over the given input file with the requested
// worker count and returns output and exit code.
func runStage(t *testing.T, prog *bytecode.Program, path string, workers int) (string, int) {
	t.Helper()
	var buf bytes.Buffer
	core := NewCore(prog, CoreConfig{
		Input:  runtime.NewSource(strings.NewReader(""), []string{path}),
		Output: runtime.NewOutputRegistry(&buf),
		Seed:   1,
	})
	code, err := NewCoordinator(core, workers).Run()
	if err != nil {
		t.Fatalf("coordinator error: %v", err)
	}
	core.Teardown()
	return buf.String(), code
}

// buildSumProgram compiles a begin/loop/end stage that seeds slot 0
// with 100 in begin, adds every input record to it in loop, and prints
// it once in end.
func buildSumProgram(t *testing.T) *bytecode.Program {
	t.Helper()
	b := bytecode.NewBuilder()
	line := b.StrReg()
	v := b.IntReg()
	acc := b.IntReg()
	st := b.IntReg()
	one := b.IntReg()
	cond := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: acc})

	begin := b.Func("begin")
	begin.Emit(bytecode.LoadInt, v, b.IntConst(100))
	begin.Emit(bytecode.SlotStoreInt, 0, 0, v)
	begin.Emit(bytecode.Halt)
	begin.Done()

	loop := b.Func("loop")
	loop.Emit(bytecode.LoadInt, one, b.IntConst(1))
	top := loop.Label()
	done := loop.Label()
	loop.Bind(top)
	loop.Emit(bytecode.ReadLine, line, int32(bytecode.SourceMain))
	loop.Emit(bytecode.ReadErr, st, int32(bytecode.SourceMain))
	loop.Emit(bytecode.NeInt, cond, st, one)
	loop.JmpIf(cond, done)
	loop.Emit(bytecode.StrToInt, v, line)
	loop.Emit(bytecode.SlotLoadInt, acc, 0)
	loop.Emit(bytecode.AddInt, acc, acc, v)
	loop.Emit(bytecode.SlotStoreInt, 0, 0, acc)
	loop.Jmp(top)
	loop.Bind(done)
	loop.Emit(bytecode.Halt)
	loop.Done()

	end := b.Func("end")
	end.Emit(bytecode.SlotLoadInt, acc, 0)
	end.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	end.Emit(bytecode.Halt)
	end.Done()

	return b.Build(bytecode.ParStage(begin.ID(), loop.ID(), end.ID()))
}

func TestStageSerialParallelEquivalence(t *testing.T) {
	sizes := []int{0, 1, 1000}
	for _, n := range sizes {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			lines := make([]string, n)
			want := 100
			for i := range lines {
				lines[i] = fmt.Sprint(i + 1)
				want += i + 1
			}
			path := writeLines(t, lines)
			prog := buildSumProgram(t)

			for _, workers := range []int{1, 4} {
				out, code := runStage(t, prog, path, workers)
				if code != 0 {
					t.Errorf("workers=%d: exit code %d", workers, code)
				}
				if out != fmt.Sprintf("%d\n", want) {
					t.Errorf("workers=%d: output = %q, want %q", workers, out, fmt.Sprintf("%d\n", want))
				}
			}
		})
	}
}

func TestStageParallelPreservesRecordOrder(t *testing.T) {
	lines := make([]string, 500)
	for i := range lines {
		lines[i] = fmt.Sprintf("%d", i)
	}
	path := writeLines(t, lines)

	b := bytecode.NewBuilder()
	line := b.StrReg()
	st := b.IntReg()
	one := b.IntReg()
	cond := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Str, Reg: line})

	loop := b.Func("loop")
	loop.Emit(bytecode.LoadInt, one, b.IntConst(1))
	top := loop.Label()
	done := loop.Label()
	loop.Bind(top)
	loop.Emit(bytecode.ReadLine, line, int32(bytecode.SourceMain))
	loop.Emit(bytecode.ReadErr, st, int32(bytecode.SourceMain))
	loop.Emit(bytecode.NeInt, cond, st, one)
	loop.JmpIf(cond, done)
	loop.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	loop.Jmp(top)
	loop.Bind(done)
	loop.Emit(bytecode.Halt)
	loop.Done()
	prog := b.Build(bytecode.ParStage(bytecode.NoFunc, loop.ID(), bytecode.NoFunc))

	serial, _ := runStage(t, prog, path, 1)
	parallel, _ := runStage(t, prog, path, 4)

	if serial != parallel {
		t.Errorf("parallel output differs from serial:\nserial   %d bytes\nparallel %d bytes",
			len(serial), len(parallel))
	}
	if !strings.HasPrefix(serial, "0\n1\n2\n") {
		t.Errorf("unexpected serial output prefix: %q", serial[:min(len(serial), 20)])
	}
}

func TestStageWorkerExitPropagates(t *testing.T) {
	lines := make([]string, 400)
	for i := range lines {
		lines[i] = "1"
	}
	lines[250] = "666"
	path := writeLines(t, lines)

	b := bytecode.NewBuilder()
	line := b.StrReg()
	v := b.IntReg()
	st := b.IntReg()
	one := b.IntReg()
	poison := b.IntReg()
	code := b.IntReg()
	cond := b.IntReg()
	endArgs := b.ArgList(bytecode.Operand{Type: bytecode.Str, Reg: line})

	loop := b.Func("loop")
	loop.Emit(bytecode.LoadInt, one, b.IntConst(1))
	loop.Emit(bytecode.LoadInt, poison, b.IntConst(666))
	loop.Emit(bytecode.LoadInt, code, b.IntConst(3))
	top := loop.Label()
	done := loop.Label()
	bang := loop.Label()
	loop.Bind(top)
	loop.Emit(bytecode.ReadLine, line, int32(bytecode.SourceMain))
	loop.Emit(bytecode.ReadErr, st, int32(bytecode.SourceMain))
	loop.Emit(bytecode.NeInt, cond, st, one)
	loop.JmpIf(cond, done)
	loop.Emit(bytecode.StrToInt, v, line)
	loop.Emit(bytecode.EqInt, cond, v, poison)
	loop.JmpIf(cond, bang)
	loop.Jmp(top)
	loop.Bind(bang)
	loop.Emit(bytecode.ExitCode, 0, code)
	loop.Bind(done)
	loop.Emit(bytecode.Halt)
	loop.Done()

	end := b.Func("end")
	end.Emit(bytecode.LoadStr, line, b.StrConst("end ran"))
	end.Emit(bytecode.PrintAll, 0, 0, endArgs, int32(bytecode.OutputMain))
	end.Emit(bytecode.Halt)
	end.Done()

	prog := b.Build(bytecode.ParStage(bytecode.NoFunc, loop.ID(), end.ID()))

	for _, workers := range []int{1, 4} {
		out, exitCode := runStage(t, prog, path, workers)
		if exitCode != 3 {
			t.Errorf("workers=%d: exit code = %d, want 3", workers, exitCode)
		}
		if strings.Contains(out, "end ran") {
			t.Errorf("workers=%d: end stage ran after exit", workers)
		}
	}
}

func TestShuttleIsolatesWorkerState(t *testing.T) {
	var buf bytes.Buffer
	b := bytecode.NewBuilder()
	fn := b.Func("main")
	fn.Emit(bytecode.Halt)
	fn.Done()
	prog := b.Build(bytecode.MainStage(fn.ID()))

	core := NewCore(prog, CoreConfig{
		Input:  runtime.NewSource(strings.NewReader(""), nil),
		Output: runtime.NewOutputRegistry(&buf),
		Seed:   7,
	})
	core.vars.FI.Store("col", 2)
	core.slots.StoreInt(0, 50)
	core.slots.StoreStr(0, "fmt")
	seen := core.slots.LoadMapSI(0)
	seen.Store("base", 1)
	core.slots.StoreMapSI(0, seen)

	var wbuf bytes.Buffer
	w := core.Shuttle(runtime.NewSource(strings.NewReader(""), nil),
		runtime.NewOutputRegistry(&wbuf))

	// Variables are copies, not aliases.
	w.vars.FI.Store("col", 9)
	if got := core.vars.FI.Lookup("col"); got != 2 {
		t.Errorf("worker variable write leaked to parent: %d", got)
	}
	// Slots carry the pre-split state into the worker.
	if got := w.slots.LoadInt(0); got != 50 {
		t.Errorf("worker int slot = %d, want 50", got)
	}
	if got := w.slots.LoadStr(0); got != "fmt" {
		t.Errorf("worker str slot = %q, want %q", got, "fmt")
	}
	wm := w.slots.LoadMapSI(0)
	if got := wm.Lookup("base"); got != 1 {
		t.Errorf("worker map slot base = %d, want 1", got)
	}
	// Worker slot writes stay local until Absorb.
	wm.Store("base", 4)
	wm.Store("extra", 2)
	w.slots.StoreMapSI(0, wm)
	if got := core.slots.LoadMapSI(0).Lookup("base"); got != 1 {
		t.Errorf("worker map slot write leaked to parent: %d", got)
	}
	// Cancel flag is shared.
	w.cancel.Cancel(5)
	if code, stop := core.cancel.Cancelled(); !stop || code != 5 {
		t.Errorf("cancel flag not shared: %d, %v", code, stop)
	}
	// A finished worker folds its changes over the shuttled base.
	w.slots.StoreInt(0, w.slots.LoadInt(0)+8)
	core.Absorb(w)
	if got := core.slots.LoadInt(0); got != 58 {
		t.Errorf("absorbed int slot = %d, want 58", got)
	}
	merged := core.slots.LoadMapSI(0)
	if got := merged.Lookup("base"); got != 4 {
		t.Errorf("absorbed map slot base = %d, want 4", got)
	}
	if got := merged.Lookup("extra"); got != 2 {
		t.Errorf("absorbed map slot extra = %d, want 2", got)
	}
}

// buildBaseFactorProgram seeds slot 0 with 7 in begin; the loop adds
// slot 0 into slot 1 once per record without ever writing slot 0, so
// slot 1 only comes out right if every worker saw the begin-stage
// value.
func buildBaseFactorProgram(t *testing.T) *bytecode.Program {
	t.Helper()
	b := bytecode.NewBuilder()
	line := b.StrReg()
	factor := b.IntReg()
	acc := b.IntReg()
	st := b.IntReg()
	one := b.IntReg()
	cond := b.IntReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Int, Reg: acc})

	begin := b.Func("begin")
	begin.Emit(bytecode.LoadInt, factor, b.IntConst(7))
	begin.Emit(bytecode.SlotStoreInt, 0, 0, factor)
	begin.Emit(bytecode.Halt)
	begin.Done()

	loop := b.Func("loop")
	loop.Emit(bytecode.LoadInt, one, b.IntConst(1))
	top := loop.Label()
	done := loop.Label()
	loop.Bind(top)
	loop.Emit(bytecode.ReadLine, line, int32(bytecode.SourceMain))
	loop.Emit(bytecode.ReadErr, st, int32(bytecode.SourceMain))
	loop.Emit(bytecode.NeInt, cond, st, one)
	loop.JmpIf(cond, done)
	loop.Emit(bytecode.SlotLoadInt, factor, 0)
	loop.Emit(bytecode.SlotLoadInt, acc, 1)
	loop.Emit(bytecode.AddInt, acc, acc, factor)
	loop.Emit(bytecode.SlotStoreInt, 0, 1, acc)
	loop.Jmp(top)
	loop.Bind(done)
	loop.Emit(bytecode.Halt)
	loop.Done()

	end := b.Func("end")
	end.Emit(bytecode.SlotLoadInt, acc, 1)
	end.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	end.Emit(bytecode.Halt)
	end.Done()

	return b.Build(bytecode.ParStage(begin.ID(), loop.ID(), end.ID()))
}

func TestStageWorkersSeeBeginSlotState(t *testing.T) {
	lines := make([]string, 1000)
	for i := range lines {
		lines[i] = "x"
	}
	path := writeLines(t, lines)
	prog := buildBaseFactorProgram(t)

	want := fmt.Sprintf("%d\n", 7*len(lines))
	for _, workers := range []int{1, 4} {
		out, code := runStage(t, prog, path, workers)
		if code != 0 {
			t.Errorf("workers=%d: exit code %d", workers, code)
		}
		if out != want {
			t.Errorf("workers=%d: output = %q, want %q", workers, out, want)
		}
	}
}

func TestStageEndOnlyParallel(t *testing.T) {
	path := writeLines(t, []string{"a", "b", "c"})

	b := bytecode.NewBuilder()
	msg := b.StrReg()
	args := b.ArgList(bytecode.Operand{Type: bytecode.Str, Reg: msg})

	end := b.Func("end")
	end.Emit(bytecode.LoadStr, msg, b.StrConst("done"))
	end.Emit(bytecode.PrintAll, 0, 0, args, int32(bytecode.OutputMain))
	end.Emit(bytecode.Halt)
	end.Done()
	prog := b.Build(bytecode.ParStage(bytecode.NoFunc, bytecode.NoFunc, end.ID()))

	out, code := runStage(t, prog, path, 4)
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if out != "done\n" {
		t.Errorf("output = %q, want %q", out, "done\n")
	}
}
