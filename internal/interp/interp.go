package interp

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kolkov/rawk/bytecode"
	"github.com/kolkov/rawk/internal/runtime"
	"github.com/kolkov/rawk/internal/value"
)

// Status classifies how an invocation ended.
type Status int

const (
	// Returned means the entry function ran to completion.
	Returned Status = iota
	// Halted means an Exit instruction (or the shared stop flag) cut
	// the invocation short; pending returns do not run.
	Halted
)

// Result is the outcome of one function invocation.
type Result struct {
	Status   Status
	ExitCode int
}

type frame struct {
	fn   int32
	ip   int
	regs *storage
}

// Interp drives the dispatch loop over one Core. It is single-thread;
// each worker builds its own around its shuttled core.
type Interp struct {
	c      *Core
	args   argStacks
	frames []frame
}

// NewInterp creates an interpreter over core.
func NewInterp(core *Core) *Interp {
	return &Interp{c: core}
}

// Run executes funcs[fn] to completion. fn == NoFunc is a no-op.
//
// The program is trusted to be well-typed: register indices, pool
// indices and jump targets are not re-validated, and the exhaustive
// opcode switch panics on an opcode outside the set.
func (in *Interp) Run(fn int32) (Result, error) {
	if fn == bytecode.NoFunc {
		return Result{Status: Returned}, nil
	}
	c := in.c
	prog := c.prog
	in.frames = in.frames[:0]
	in.frames = append(in.frames, frame{fn: fn, regs: newStorage(&prog.Regs)})

	for {
		f := &in.frames[len(in.frames)-1]
		code := prog.Funcs[f.fn].Code
		if f.ip >= len(code) {
			if len(in.frames) == 1 {
				return Result{Status: Returned}, nil
			}
			in.frames = in.frames[:len(in.frames)-1]
			continue
		}
		ins := code[f.ip]
		f.ip++
		r := f.regs

		switch ins.Op {
		case bytecode.Nop:

		// Constants and moves
		case bytecode.LoadInt:
			r.ints[ins.Dst] = prog.Ints[ins.A]
		case bytecode.LoadFloat:
			r.floats[ins.Dst] = prog.Floats[ins.A]
		case bytecode.LoadStr:
			r.strs[ins.Dst] = prog.Strs[ins.A]
		case bytecode.MovInt:
			r.ints[ins.Dst] = r.ints[ins.A]
		case bytecode.MovFloat:
			r.floats[ins.Dst] = r.floats[ins.A]
		case bytecode.MovStr:
			r.strs[ins.Dst] = r.strs[ins.A]
		case bytecode.MovMapIntInt:
			r.mapII[ins.Dst] = r.mapII[ins.A]
		case bytecode.MovMapIntFloat:
			r.mapIF[ins.Dst] = r.mapIF[ins.A]
		case bytecode.MovMapIntStr:
			r.mapIS[ins.Dst] = r.mapIS[ins.A]
		case bytecode.MovMapStrInt:
			r.mapSI[ins.Dst] = r.mapSI[ins.A]
		case bytecode.MovMapStrFloat:
			r.mapSF[ins.Dst] = r.mapSF[ins.A]
		case bytecode.MovMapStrStr:
			r.mapSS[ins.Dst] = r.mapSS[ins.A]

		// Conversions
		case bytecode.IntToFloat:
			r.floats[ins.Dst] = float64(r.ints[ins.A])
		case bytecode.FloatToInt:
			r.ints[ins.Dst] = int64(r.floats[ins.A])
		case bytecode.IntToStr:
			r.strs[ins.Dst] = value.FormatInt(r.ints[ins.A])
		case bytecode.FloatToStr:
			r.strs[ins.Dst] = value.FormatFloat(r.floats[ins.A], c.vars.CONVFMT)
		case bytecode.StrToInt:
			r.ints[ins.Dst] = value.ParseIntPrefix(r.strs[ins.A])
		case bytecode.StrToFloat:
			r.floats[ins.Dst] = value.ParseNumPrefix(r.strs[ins.A])
		case bytecode.HexStrToInt:
			r.ints[ins.Dst] = value.ParseHexInt(r.strs[ins.A])

		// Integer arithmetic
		case bytecode.AddInt:
			r.ints[ins.Dst] = r.ints[ins.A] + r.ints[ins.B]
		case bytecode.SubInt:
			r.ints[ins.Dst] = r.ints[ins.A] - r.ints[ins.B]
		case bytecode.MulInt:
			r.ints[ins.Dst] = r.ints[ins.A] * r.ints[ins.B]
		case bytecode.ModInt:
			if r.ints[ins.B] == 0 {
				return Result{}, fmt.Errorf("division by zero in %%")
			}
			r.ints[ins.Dst] = r.ints[ins.A] % r.ints[ins.B]
		case bytecode.NegInt:
			r.ints[ins.Dst] = -r.ints[ins.A]
		case bytecode.AndInt:
			r.ints[ins.Dst] = r.ints[ins.A] & r.ints[ins.B]
		case bytecode.OrInt:
			r.ints[ins.Dst] = r.ints[ins.A] | r.ints[ins.B]
		case bytecode.XorInt:
			r.ints[ins.Dst] = r.ints[ins.A] ^ r.ints[ins.B]
		case bytecode.ShlInt:
			r.ints[ins.Dst] = r.ints[ins.A] << (uint64(r.ints[ins.B]) & 63)
		case bytecode.ShrInt:
			r.ints[ins.Dst] = int64(uint64(r.ints[ins.A]) >> (uint64(r.ints[ins.B]) & 63))
		case bytecode.ComplInt:
			r.ints[ins.Dst] = ^r.ints[ins.A]

		// Float arithmetic and math
		case bytecode.AddFloat:
			r.floats[ins.Dst] = r.floats[ins.A] + r.floats[ins.B]
		case bytecode.SubFloat:
			r.floats[ins.Dst] = r.floats[ins.A] - r.floats[ins.B]
		case bytecode.MulFloat:
			r.floats[ins.Dst] = r.floats[ins.A] * r.floats[ins.B]
		case bytecode.DivFloat:
			r.floats[ins.Dst] = r.floats[ins.A] / r.floats[ins.B]
		case bytecode.ModFloat:
			r.floats[ins.Dst] = math.Mod(r.floats[ins.A], r.floats[ins.B])
		case bytecode.PowFloat:
			r.floats[ins.Dst] = math.Pow(r.floats[ins.A], r.floats[ins.B])
		case bytecode.NegFloat:
			r.floats[ins.Dst] = -r.floats[ins.A]
		case bytecode.Sqrt:
			r.floats[ins.Dst] = math.Sqrt(r.floats[ins.A])
		case bytecode.Sin:
			r.floats[ins.Dst] = math.Sin(r.floats[ins.A])
		case bytecode.Cos:
			r.floats[ins.Dst] = math.Cos(r.floats[ins.A])
		case bytecode.Log:
			r.floats[ins.Dst] = math.Log(r.floats[ins.A])
		case bytecode.Log2:
			r.floats[ins.Dst] = math.Log2(r.floats[ins.A])
		case bytecode.Exp:
			r.floats[ins.Dst] = math.Exp(r.floats[ins.A])
		case bytecode.Atan:
			r.floats[ins.Dst] = math.Atan(r.floats[ins.A])
		case bytecode.Atan2:
			r.floats[ins.Dst] = math.Atan2(r.floats[ins.A], r.floats[ins.B])
		case bytecode.Rand:
			r.floats[ins.Dst] = c.rng.Float64()
		case bytecode.Srand:
			r.ints[ins.Dst] = c.srand(r.ints[ins.A])
		case bytecode.ReseedRng:
			r.ints[ins.Dst] = c.srand(time.Now().UnixNano())

		// Comparisons
		case bytecode.LtInt:
			r.ints[ins.Dst] = b2i(r.ints[ins.A] < r.ints[ins.B])
		case bytecode.LteInt:
			r.ints[ins.Dst] = b2i(r.ints[ins.A] <= r.ints[ins.B])
		case bytecode.GtInt:
			r.ints[ins.Dst] = b2i(r.ints[ins.A] > r.ints[ins.B])
		case bytecode.GteInt:
			r.ints[ins.Dst] = b2i(r.ints[ins.A] >= r.ints[ins.B])
		case bytecode.EqInt:
			r.ints[ins.Dst] = b2i(r.ints[ins.A] == r.ints[ins.B])
		case bytecode.NeInt:
			r.ints[ins.Dst] = b2i(r.ints[ins.A] != r.ints[ins.B])
		case bytecode.LtFloat:
			r.ints[ins.Dst] = b2i(r.floats[ins.A] < r.floats[ins.B])
		case bytecode.LteFloat:
			r.ints[ins.Dst] = b2i(r.floats[ins.A] <= r.floats[ins.B])
		case bytecode.GtFloat:
			r.ints[ins.Dst] = b2i(r.floats[ins.A] > r.floats[ins.B])
		case bytecode.GteFloat:
			r.ints[ins.Dst] = b2i(r.floats[ins.A] >= r.floats[ins.B])
		case bytecode.EqFloat:
			r.ints[ins.Dst] = b2i(r.floats[ins.A] == r.floats[ins.B])
		case bytecode.NeFloat:
			r.ints[ins.Dst] = b2i(r.floats[ins.A] != r.floats[ins.B])
		case bytecode.LtStr:
			r.ints[ins.Dst] = b2i(r.strs[ins.A] < r.strs[ins.B])
		case bytecode.LteStr:
			r.ints[ins.Dst] = b2i(r.strs[ins.A] <= r.strs[ins.B])
		case bytecode.GtStr:
			r.ints[ins.Dst] = b2i(r.strs[ins.A] > r.strs[ins.B])
		case bytecode.GteStr:
			r.ints[ins.Dst] = b2i(r.strs[ins.A] >= r.strs[ins.B])
		case bytecode.EqStr:
			r.ints[ins.Dst] = b2i(r.strs[ins.A] == r.strs[ins.B])
		case bytecode.NeStr:
			r.ints[ins.Dst] = b2i(r.strs[ins.A] != r.strs[ins.B])
		case bytecode.NotInt:
			r.ints[ins.Dst] = b2i(r.ints[ins.A] == 0)

		// Strings
		case bytecode.Concat:
			r.strs[ins.Dst] = r.strs[ins.A] + r.strs[ins.B]
		case bytecode.LenStr:
			r.ints[ins.Dst] = int64(len(r.strs[ins.A]))
		case bytecode.Substr:
			r.strs[ins.Dst] = substr(r.strs[ins.A], r.ints[ins.B], r.ints[ins.C])
		case bytecode.IndexSubstr:
			r.ints[ins.Dst] = int64(indexOf(r.strs[ins.A], r.strs[ins.B]))
		case bytecode.ToUpper:
			r.strs[ins.Dst] = toUpperASCII(r.strs[ins.A])
		case bytecode.ToLower:
			r.strs[ins.Dst] = toLowerASCII(r.strs[ins.A])
		case bytecode.TrimSpace:
			r.strs[ins.Dst] = trimSpace(r.strs[ins.A])
		case bytecode.IsMatch:
			re, err := c.regexCache.Get(r.strs[ins.B])
			if err != nil {
				return Result{}, fmt.Errorf("bad pattern %q: %w", r.strs[ins.B], err)
			}
			r.ints[ins.Dst] = b2i(re.MatchString(r.strs[ins.A]))
		case bytecode.IsMatchConst:
			re, err := c.regexCache.Get(prog.Regexes[ins.B])
			if err != nil {
				return Result{}, fmt.Errorf("bad pattern %q: %w", prog.Regexes[ins.B], err)
			}
			r.ints[ins.Dst] = b2i(re.MatchString(r.strs[ins.A]))
		case bytecode.MatchLoc:
			re, err := c.regexCache.Get(r.strs[ins.B])
			if err != nil {
				return Result{}, fmt.Errorf("bad pattern %q: %w", r.strs[ins.B], err)
			}
			loc := re.FindStringIndex(r.strs[ins.A])
			if loc == nil {
				c.vars.RSTART, c.vars.RLENGTH = 0, -1
			} else {
				c.vars.RSTART = int64(loc[0] + 1)
				c.vars.RLENGTH = int64(loc[1] - loc[0])
			}
			r.ints[ins.Dst] = c.vars.RSTART
		case bytecode.SubstFirst, bytecode.SubstAll:
			re, err := c.regexCache.Get(r.strs[ins.A])
			if err != nil {
				return Result{}, fmt.Errorf("bad pattern %q: %w", r.strs[ins.A], err)
			}
			out, n := re.Substitute(r.strs[ins.C], r.strs[ins.B], ins.Op == bytecode.SubstAll)
			r.strs[ins.C] = out
			r.ints[ins.Dst] = int64(n)
		case bytecode.SplitInt:
			parts := c.splitRecord(r.strs[ins.A], r.strs[ins.C])
			m := r.mapIS[ins.B]
			m.Clear()
			for i, p := range parts {
				m.Store(int64(i+1), p)
			}
			r.ints[ins.Dst] = int64(len(parts))
		case bytecode.SplitStr:
			parts := c.splitRecord(r.strs[ins.A], r.strs[ins.C])
			m := r.mapSS[ins.B]
			m.Clear()
			for i, p := range parts {
				m.Store(value.FormatInt(int64(i+1)), p)
			}
			r.ints[ins.Dst] = int64(len(parts))
		case bytecode.Sprintf:
			args, err := in.evalArgs(r, prog.ArgLists[ins.B])
			if err != nil {
				return Result{}, err
			}
			r.strs[ins.Dst] = sprintf(r.strs[ins.A], args)
		case bytecode.Printf:
			args, err := in.evalArgs(r, prog.ArgLists[ins.B])
			if err != nil {
				return Result{}, err
			}
			s := sprintf(r.strs[ins.A], args)
			if res, done, err := in.write(r, ins, s); done {
				return res, err
			}
		case bytecode.PrintAll:
			args, err := in.evalArgs(r, prog.ArgLists[ins.B])
			if err != nil {
				return Result{}, err
			}
			s := joinArgs(args, c.vars.OFS) + c.vars.ORS
			if res, done, err := in.write(r, ins, s); done {
				return res, err
			}

		// Fields
		case bytecode.GetCol:
			r.strs[ins.Dst] = c.getField(r.ints[ins.A])
		case bytecode.SetCol:
			c.setField(r.ints[ins.A], r.strs[ins.B])
		case bytecode.NfCol:
			c.ensureFields()
			r.ints[ins.Dst] = int64(c.nf)

		// Maps
		case bytecode.LookupIntInt:
			r.ints[ins.Dst] = r.mapII[ins.A].Lookup(r.ints[ins.B])
		case bytecode.LookupIntFloat:
			r.floats[ins.Dst] = r.mapIF[ins.A].Lookup(r.ints[ins.B])
		case bytecode.LookupIntStr:
			r.strs[ins.Dst] = r.mapIS[ins.A].Lookup(r.ints[ins.B])
		case bytecode.LookupStrInt:
			r.ints[ins.Dst] = r.mapSI[ins.A].Lookup(r.strs[ins.B])
		case bytecode.LookupStrFloat:
			r.floats[ins.Dst] = r.mapSF[ins.A].Lookup(r.strs[ins.B])
		case bytecode.LookupStrStr:
			r.strs[ins.Dst] = r.mapSS[ins.A].Lookup(r.strs[ins.B])
		case bytecode.StoreIntInt:
			r.mapII[ins.Dst].Store(r.ints[ins.A], r.ints[ins.B])
		case bytecode.StoreIntFloat:
			r.mapIF[ins.Dst].Store(r.ints[ins.A], r.floats[ins.B])
		case bytecode.StoreIntStr:
			r.mapIS[ins.Dst].Store(r.ints[ins.A], r.strs[ins.B])
		case bytecode.StoreStrInt:
			r.mapSI[ins.Dst].Store(r.strs[ins.A], r.ints[ins.B])
		case bytecode.StoreStrFloat:
			r.mapSF[ins.Dst].Store(r.strs[ins.A], r.floats[ins.B])
		case bytecode.StoreStrStr:
			r.mapSS[ins.Dst].Store(r.strs[ins.A], r.strs[ins.B])
		case bytecode.ContainsIntInt:
			r.ints[ins.Dst] = b2i(r.mapII[ins.A].Contains(r.ints[ins.B]))
		case bytecode.ContainsIntFloat:
			r.ints[ins.Dst] = b2i(r.mapIF[ins.A].Contains(r.ints[ins.B]))
		case bytecode.ContainsIntStr:
			r.ints[ins.Dst] = b2i(r.mapIS[ins.A].Contains(r.ints[ins.B]))
		case bytecode.ContainsStrInt:
			r.ints[ins.Dst] = b2i(r.mapSI[ins.A].Contains(r.strs[ins.B]))
		case bytecode.ContainsStrFloat:
			r.ints[ins.Dst] = b2i(r.mapSF[ins.A].Contains(r.strs[ins.B]))
		case bytecode.ContainsStrStr:
			r.ints[ins.Dst] = b2i(r.mapSS[ins.A].Contains(r.strs[ins.B]))
		case bytecode.DeleteIntInt:
			r.mapII[ins.A].Delete(r.ints[ins.B])
		case bytecode.DeleteIntFloat:
			r.mapIF[ins.A].Delete(r.ints[ins.B])
		case bytecode.DeleteIntStr:
			r.mapIS[ins.A].Delete(r.ints[ins.B])
		case bytecode.DeleteStrInt:
			r.mapSI[ins.A].Delete(r.strs[ins.B])
		case bytecode.DeleteStrFloat:
			r.mapSF[ins.A].Delete(r.strs[ins.B])
		case bytecode.DeleteStrStr:
			r.mapSS[ins.A].Delete(r.strs[ins.B])
		case bytecode.ClearIntInt:
			r.mapII[ins.A].Clear()
		case bytecode.ClearIntFloat:
			r.mapIF[ins.A].Clear()
		case bytecode.ClearIntStr:
			r.mapIS[ins.A].Clear()
		case bytecode.ClearStrInt:
			r.mapSI[ins.A].Clear()
		case bytecode.ClearStrFloat:
			r.mapSF[ins.A].Clear()
		case bytecode.ClearStrStr:
			r.mapSS[ins.A].Clear()
		case bytecode.LenIntInt:
			r.ints[ins.Dst] = int64(r.mapII[ins.A].Len())
		case bytecode.LenIntFloat:
			r.ints[ins.Dst] = int64(r.mapIF[ins.A].Len())
		case bytecode.LenIntStr:
			r.ints[ins.Dst] = int64(r.mapIS[ins.A].Len())
		case bytecode.LenStrInt:
			r.ints[ins.Dst] = int64(r.mapSI[ins.A].Len())
		case bytecode.LenStrFloat:
			r.ints[ins.Dst] = int64(r.mapSF[ins.A].Len())
		case bytecode.LenStrStr:
			r.ints[ins.Dst] = int64(r.mapSS[ins.A].Len())

		case bytecode.IncIntInt:
			r.ints[ins.Dst] = value.IncInt(r.mapII[ins.A], r.ints[ins.B], r.ints[ins.C])
		case bytecode.IncIntFloat:
			r.floats[ins.Dst] = value.IncFloat(r.mapIF[ins.A], r.ints[ins.B], r.floats[ins.C])
		case bytecode.IncStrInt:
			r.ints[ins.Dst] = value.IncInt(r.mapSI[ins.A], r.strs[ins.B], r.ints[ins.C])
		case bytecode.IncStrFloat:
			r.floats[ins.Dst] = value.IncFloat(r.mapSF[ins.A], r.strs[ins.B], r.floats[ins.C])

		// Iteration
		case bytecode.IterBeginIntInt:
			r.iterInt[ins.Dst] = r.mapII[ins.A].Iter()
		case bytecode.IterBeginIntFloat:
			r.iterInt[ins.Dst] = r.mapIF[ins.A].Iter()
		case bytecode.IterBeginIntStr:
			r.iterInt[ins.Dst] = r.mapIS[ins.A].Iter()
		case bytecode.IterBeginStrInt:
			r.iterStr[ins.Dst] = r.mapSI[ins.A].Iter()
		case bytecode.IterBeginStrFloat:
			r.iterStr[ins.Dst] = r.mapSF[ins.A].Iter()
		case bytecode.IterBeginStrStr:
			r.iterStr[ins.Dst] = r.mapSS[ins.A].Iter()
		case bytecode.IterHasNextInt:
			r.ints[ins.Dst] = b2i(r.iterInt[ins.A].HasNext())
		case bytecode.IterHasNextStr:
			r.ints[ins.Dst] = b2i(r.iterStr[ins.A].HasNext())
		case bytecode.IterGetNextInt:
			r.ints[ins.Dst] = r.iterInt[ins.A].Next()
		case bytecode.IterGetNextStr:
			r.strs[ins.Dst] = r.iterStr[ins.A].Next()

		// Builtin variables
		case bytecode.LoadVarInt:
			v, err := c.loadVarInt(bytecode.Var(ins.A))
			if err != nil {
				return Result{}, err
			}
			r.ints[ins.Dst] = v
		case bytecode.StoreVarInt:
			if err := c.storeVarInt(bytecode.Var(ins.A), r.ints[ins.B]); err != nil {
				return Result{}, err
			}
		case bytecode.LoadVarStr:
			v, err := c.loadVarStr(bytecode.Var(ins.A))
			if err != nil {
				return Result{}, err
			}
			r.strs[ins.Dst] = v
		case bytecode.StoreVarStr:
			if err := c.storeVarStr(bytecode.Var(ins.A), r.strs[ins.B]); err != nil {
				return Result{}, err
			}
		case bytecode.LoadVarIntMapStr:
			if bytecode.Var(ins.A) != bytecode.VarARGV {
				return Result{}, shapeErr(bytecode.Var(ins.A), bytecode.MapIntStr)
			}
			r.mapIS[ins.Dst] = c.vars.ARGV
		case bytecode.StoreVarIntMapStr:
			if bytecode.Var(ins.A) != bytecode.VarARGV {
				return Result{}, shapeErr(bytecode.Var(ins.A), bytecode.MapIntStr)
			}
			c.vars.ARGV = r.mapIS[ins.B]
		case bytecode.LoadVarStrMapInt:
			if bytecode.Var(ins.A) != bytecode.VarFI {
				return Result{}, shapeErr(bytecode.Var(ins.A), bytecode.MapStrInt)
			}
			r.mapSI[ins.Dst] = c.vars.FI
		case bytecode.StoreVarStrMapInt:
			if bytecode.Var(ins.A) != bytecode.VarFI {
				return Result{}, shapeErr(bytecode.Var(ins.A), bytecode.MapStrInt)
			}
			c.vars.FI = r.mapSI[ins.B]
		case bytecode.LoadVarStrMapStr:
			switch bytecode.Var(ins.A) {
			case bytecode.VarENVIRON:
				r.mapSS[ins.Dst] = c.vars.ENVIRON
			case bytecode.VarPROCINFO:
				r.mapSS[ins.Dst] = c.vars.PROCINFO
			default:
				return Result{}, shapeErr(bytecode.Var(ins.A), bytecode.MapStrStr)
			}
		case bytecode.StoreVarStrMapStr:
			switch bytecode.Var(ins.A) {
			case bytecode.VarENVIRON:
				c.vars.ENVIRON = r.mapSS[ins.B]
			case bytecode.VarPROCINFO:
				c.vars.PROCINFO = r.mapSS[ins.B]
			default:
				return Result{}, shapeErr(bytecode.Var(ins.A), bytecode.MapStrStr)
			}

		// Slots
		case bytecode.SlotLoadInt:
			r.ints[ins.Dst] = c.slots.LoadInt(ins.A)
		case bytecode.SlotStoreInt:
			c.slots.StoreInt(ins.A, r.ints[ins.B])
		case bytecode.SlotLoadFloat:
			r.floats[ins.Dst] = c.slots.LoadFloat(ins.A)
		case bytecode.SlotStoreFloat:
			c.slots.StoreFloat(ins.A, r.floats[ins.B])
		case bytecode.SlotLoadStr:
			r.strs[ins.Dst] = c.slots.LoadStr(ins.A)
		case bytecode.SlotStoreStr:
			c.slots.StoreStr(ins.A, r.strs[ins.B])
		case bytecode.SlotLoadMapIntInt:
			r.mapII[ins.Dst] = c.slots.LoadMapII(ins.A)
		case bytecode.SlotStoreMapIntInt:
			c.slots.StoreMapII(ins.A, r.mapII[ins.B])
		case bytecode.SlotLoadMapIntFloat:
			r.mapIF[ins.Dst] = c.slots.LoadMapIF(ins.A)
		case bytecode.SlotStoreMapIntFloat:
			c.slots.StoreMapIF(ins.A, r.mapIF[ins.B])
		case bytecode.SlotLoadMapIntStr:
			r.mapIS[ins.Dst] = c.slots.LoadMapIS(ins.A)
		case bytecode.SlotStoreMapIntStr:
			c.slots.StoreMapIS(ins.A, r.mapIS[ins.B])
		case bytecode.SlotLoadMapStrInt:
			r.mapSI[ins.Dst] = c.slots.LoadMapSI(ins.A)
		case bytecode.SlotStoreMapStrInt:
			c.slots.StoreMapSI(ins.A, r.mapSI[ins.B])
		case bytecode.SlotLoadMapStrFloat:
			r.mapSF[ins.Dst] = c.slots.LoadMapSF(ins.A)
		case bytecode.SlotStoreMapStrFloat:
			c.slots.StoreMapSF(ins.A, r.mapSF[ins.B])
		case bytecode.SlotLoadMapStrStr:
			r.mapSS[ins.Dst] = c.slots.LoadMapSS(ins.A)
		case bytecode.SlotStoreMapStrStr:
			c.slots.StoreMapSS(ins.A, r.mapSS[ins.B])

		// Input
		case bytecode.ReadLine:
			switch bytecode.SourceKind(ins.A) {
			case bytecode.SourceFile:
				line, _ := c.out.ReadFileLine(r.strs[ins.B])
				r.strs[ins.Dst] = line
			case bytecode.SourceCmd:
				line, _ := c.out.ReadPipeLine(r.strs[ins.B])
				r.strs[ins.Dst] = line
			default:
				line, _ := c.readLine()
				c.setLine(line)
				r.strs[ins.Dst] = line
			}
		case bytecode.ReadErr:
			switch bytecode.SourceKind(ins.A) {
			case bytecode.SourceMain:
				r.ints[ins.Dst] = int64(c.inErr)
			default:
				r.ints[ins.Dst] = int64(c.out.ReadStatus(r.strs[ins.B]))
			}
		case bytecode.NextFile:
			c.in.NextFile()
		case bytecode.CloseFile:
			r.ints[ins.Dst] = int64(c.out.Close(r.strs[ins.B]))
		case bytecode.FlushFile:
			r.ints[ins.Dst] = int64(c.out.Flush(r.strs[ins.B]))
		case bytecode.FlushAll:
			c.out.FlushAll()

		// Control flow
		case bytecode.Jmp:
			f.ip = int(ins.A)
		case bytecode.JmpIf:
			if r.ints[ins.A] != 0 {
				f.ip = int(ins.B)
			}
		case bytecode.Call:
			in.frames = append(in.frames, frame{fn: ins.A, regs: newStorage(&prog.Regs)})
		case bytecode.Ret:
			if len(in.frames) == 1 {
				return Result{Status: Returned}, nil
			}
			in.frames = in.frames[:len(in.frames)-1]

		// Argument stacks
		case bytecode.PushInt:
			push(&in.args.ints, r.ints[ins.A])
		case bytecode.PushFloat:
			push(&in.args.floats, r.floats[ins.A])
		case bytecode.PushStr:
			push(&in.args.strs, r.strs[ins.A])
		case bytecode.PushMapIntInt:
			push(&in.args.mapII, r.mapII[ins.A])
		case bytecode.PushMapIntFloat:
			push(&in.args.mapIF, r.mapIF[ins.A])
		case bytecode.PushMapIntStr:
			push(&in.args.mapIS, r.mapIS[ins.A])
		case bytecode.PushMapStrInt:
			push(&in.args.mapSI, r.mapSI[ins.A])
		case bytecode.PushMapStrFloat:
			push(&in.args.mapSF, r.mapSF[ins.A])
		case bytecode.PushMapStrStr:
			push(&in.args.mapSS, r.mapSS[ins.A])
		case bytecode.PopInt:
			r.ints[ins.Dst] = pop(&in.args.ints)
		case bytecode.PopFloat:
			r.floats[ins.Dst] = pop(&in.args.floats)
		case bytecode.PopStr:
			r.strs[ins.Dst] = pop(&in.args.strs)
		case bytecode.PopMapIntInt:
			r.mapII[ins.Dst] = pop(&in.args.mapII)
		case bytecode.PopMapIntFloat:
			r.mapIF[ins.Dst] = pop(&in.args.mapIF)
		case bytecode.PopMapIntStr:
			r.mapIS[ins.Dst] = pop(&in.args.mapIS)
		case bytecode.PopMapStrInt:
			r.mapSI[ins.Dst] = pop(&in.args.mapSI)
		case bytecode.PopMapStrFloat:
			r.mapSF[ins.Dst] = pop(&in.args.mapSF)
		case bytecode.PopMapStrStr:
			r.mapSS[ins.Dst] = pop(&in.args.mapSS)

		// Termination
		case bytecode.Exit:
			c.cancel.Cancel(0)
			return Result{Status: Halted}, nil
		case bytecode.ExitCode:
			code := int(r.ints[ins.A])
			c.cancel.Cancel(code)
			return Result{Status: Halted, ExitCode: code}, nil

		case bytecode.CallIntrinsic:
			sig := prog.Intrinsics[ins.A]
			fn, ok := c.intrinsics[sig.Name]
			if !ok {
				return Result{}, fmt.Errorf("unknown intrinsic %q", sig.Name)
			}
			args, err := in.evalArgs(r, prog.ArgLists[ins.B])
			if err != nil {
				return Result{}, err
			}
			res, err := fn(args)
			if err != nil {
				return Result{}, fmt.Errorf("intrinsic %s: %w", sig.Name, err)
			}
			switch sig.Ret {
			case bytecode.Int:
				r.ints[ins.Dst] = toInt(res)
			case bytecode.Float:
				r.floats[ins.Dst] = toFloat(res)
			case bytecode.Str:
				r.strs[ins.Dst] = toStr(res)
			}

		case bytecode.Halt:
			return Result{Status: Returned}, nil

		default:
			panic(fmt.Sprintf("rawk: bad opcode %v", ins.Op))
		}
	}
}

// write routes output and translates a vanished downstream into a
// silent halt with exit code 0.
func (in *Interp) write(r *storage, ins bytecode.Instr, s string) (Result, bool, error) {
	mode := bytecode.OutputMode(ins.C)
	name := ""
	if mode != bytecode.OutputMain {
		name = r.strs[ins.Dst]
	}
	err := in.c.writeOut(mode, name, s)
	if err == nil {
		return Result{}, false, nil
	}
	if errors.Is(err, runtime.ErrBrokenPipe) {
		in.c.cancel.Cancel(0)
		return Result{Status: Halted}, true, nil
	}
	return Result{}, true, err
}

// evalArgs materializes a type-tagged argument list as scalars.
func (in *Interp) evalArgs(r *storage, list []bytecode.Operand) ([]any, error) {
	args := make([]any, len(list))
	for i, op := range list {
		switch op.Type {
		case bytecode.Int:
			args[i] = r.ints[op.Reg]
		case bytecode.Float:
			args[i] = r.floats[op.Reg]
		case bytecode.Str:
			args[i] = r.strs[op.Reg]
		default:
			return nil, fmt.Errorf("non-scalar %s operand in argument list", op.Type)
		}
	}
	return args, nil
}

func joinArgs(args []any, sep string) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		return toStr(args[0])
	}
	out := toStr(args[0])
	for _, a := range args[1:] {
		out += sep + toStr(a)
	}
	return out
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func shapeErr(v bytecode.Var, t bytecode.RegType) error {
	return fmt.Errorf("variable %s is not %s-shaped", v, t)
}

// substr returns the 1-based substring of s starting at m with length
// n; n < 0 means to the end of s. Out-of-range pieces clamp to the
// string, so the result can be shorter than n or empty.
func substr(s string, m, n int64) string {
	strLen := int64(len(s))
	lo := m - 1
	hi := strLen
	if n >= 0 {
		hi = lo + n
	}
	if lo < 0 {
		lo = 0
	}
	if lo > strLen {
		lo = strLen
	}
	if hi > strLen {
		hi = strLen
	}
	if hi < lo {
		hi = lo
	}
	return s[lo:hi]
}

// indexOf returns the 1-based position of needle in s, 0 if absent.
func indexOf(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if s[i:i+len(needle)] == needle {
			return i + 1
		}
	}
	return 0
}

func toUpperASCII(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}

func toLowerASCII(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c - 'A' + 'a'
		}
	}
	return string(out)
}

func trimSpace(s string) string {
	lo, hi := 0, len(s)
	for lo < hi && (s[lo] == ' ' || s[lo] == '\t' || s[lo] == '\n' || s[lo] == '\r') {
		lo++
	}
	for hi > lo && (s[hi-1] == ' ' || s[hi-1] == '\t' || s[hi-1] == '\n' || s[hi-1] == '\r') {
		hi--
	}
	return s[lo:hi]
}
