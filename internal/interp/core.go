package interp

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/kolkov/rawk/bytecode"
	"github.com/kolkov/rawk/internal/runtime"
	"github.com/kolkov/rawk/internal/value"
)

// CancelFlag is a once-settable, cross-worker stop signal carrying a
// process exit code. Workers poll it at record boundaries; the first
// setter wins.
type CancelFlag struct {
	v atomic.Int64 // 0 running, otherwise code+1
}

// Cancel requests a stop with the given exit code. Later calls are
// ignored.
func (f *CancelFlag) Cancel(code int) {
	f.v.CompareAndSwap(0, int64(code)+1)
}

// Cancelled reports whether a stop was requested and with what code.
func (f *CancelFlag) Cancelled() (int, bool) {
	v := f.v.Load()
	if v == 0 {
		return 0, false
	}
	return int(v - 1), true
}

// Core is the per-thread execution state shared by every function a
// thread runs: builtin variables, slots, the current record and its
// fields, RNG, regex cache, and the I/O endpoints. Cores are
// single-thread; a worker gets its own via Shuttle.
type Core struct {
	prog *bytecode.Program

	vars  Variables
	slots Slots

	// Current record state; see fields.go.
	line       string
	fields     []string
	haveFields bool
	nf         int

	rng        *rand.Rand
	rngSeed    int64
	regexCache *runtime.RegexCache

	out    *runtime.OutputRegistry
	in     *runtime.Source
	inErr  int // status of the last main-source read
	cancel *CancelFlag

	intrinsics map[string]IntrinsicFunc
}

// CoreConfig carries host-supplied endpoints into a fresh Core.
type CoreConfig struct {
	Input       *runtime.Source
	Output      *runtime.OutputRegistry
	RegexConfig runtime.RegexConfig
	Seed        int64 // 0 means seed from the clock
	Args        []string
	Intrinsics  map[string]IntrinsicFunc
}

// NewCore creates the primary execution core.
func NewCore(prog *bytecode.Program, cfg CoreConfig) *Core {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c := &Core{
		prog:       prog,
		vars:       newVariables(),
		rng:        rand.New(rand.NewSource(seed)),
		rngSeed:    seed,
		regexCache: runtime.NewRegexCache(0, cfg.RegexConfig),
		out:        cfg.Output,
		in:         cfg.Input,
		inErr:      1,
		cancel:     &CancelFlag{},
		intrinsics: cfg.Intrinsics,
	}
	c.vars.ARGC = int64(len(cfg.Args) + 1)
	c.vars.ARGV.Store(0, "rawk")
	for i, a := range cfg.Args {
		c.vars.ARGV.Store(int64(i+1), a)
	}
	if c.intrinsics == nil {
		c.intrinsics = DefaultIntrinsics()
	}
	return c
}

// Shuttle clones the core for a worker thread: variables and slots are
// deep copied (slots keep a base snapshot so Absorb folds back only the
// worker's changes), the RNG is reseeded from the parent stream, the
// regex cache and output buffer are fresh, and the cancel flag is
// shared.
func (c *Core) Shuttle(in *runtime.Source, out *runtime.OutputRegistry) *Core {
	seed := c.rng.Int63()
	w := &Core{
		prog:       c.prog,
		vars:       c.vars.clone(),
		slots:      c.slots.shuttle(),
		rng:        rand.New(rand.NewSource(seed)),
		rngSeed:    seed,
		regexCache: runtime.NewRegexCache(0, c.regexCache.Config()),
		out:        out,
		in:         in,
		inErr:      1,
		cancel:     c.cancel,
		intrinsics: c.intrinsics,
	}
	w.vars.NR = 0
	w.vars.FNR = 0
	return w
}

// Absorb folds a finished worker's aggregatable state back into the
// primary core. Callers must apply workers in their logical order so
// last-wins string merging is deterministic per worker, even though
// key order inside one map is not.
func (c *Core) Absorb(w *Core) {
	c.slots.absorb(&w.slots)
	c.vars.NR += w.vars.NR
}

// readLine pulls the next record from the main input, maintaining NR,
// FNR and FILENAME. It is the cancellation point: once any worker has
// set the stop flag, readLine reports end of input.
// Status: 1 record, 0 no more input, -1 error.
func (c *Core) readLine() (string, int) {
	if _, stop := c.cancel.Cancelled(); stop {
		c.inErr = 0
		return "", 0
	}
	prevFile := c.in.Filename()
	line, st := c.in.ReadLine()
	c.inErr = st
	if st != 1 {
		return "", st
	}
	c.vars.NR++
	if c.in.Filename() != prevFile {
		c.vars.FNR = 0
		c.vars.FILENAME = c.in.Filename()
	}
	c.vars.FNR++
	return line, 1
}

// SetVar sets a scalar-shaped builtin variable by name before
// execution starts. Map-shaped and unknown names are errors.
func (c *Core) SetVar(name, val string) error {
	id, ok := bytecode.LookupVar(name)
	if !ok {
		return fmt.Errorf("unknown variable %q", name)
	}
	switch id.Shape() {
	case bytecode.Int:
		return c.storeVarInt(id, value.ParseIntPrefix(val))
	case bytecode.Str:
		return c.storeVarStr(id, val)
	default:
		return fmt.Errorf("variable %s cannot be set from a string", id)
	}
}

// Teardown flushes and closes every stream the core owns. Only the
// primary core of an invocation runs it, exactly once.
func (c *Core) Teardown() {
	c.out.CloseAll()
	if c.in != nil {
		c.in.Close()
	}
}

// srand reseeds the RNG and returns the previous seed.
func (c *Core) srand(seed int64) int64 {
	prev := c.rngSeed
	c.rngSeed = seed
	c.rng = rand.New(rand.NewSource(seed))
	return prev
}

// writeOut routes a string to an output destination.
func (c *Core) writeOut(mode bytecode.OutputMode, name, s string) error {
	switch mode {
	case bytecode.OutputFile:
		return c.out.WriteFile(name, s, false)
	case bytecode.OutputAppend:
		return c.out.WriteFile(name, s, true)
	case bytecode.OutputPipe:
		return c.out.WritePipe(name, s)
	default:
		return c.out.WriteMain(s)
	}
}
