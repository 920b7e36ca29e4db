package rawk

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/kolkov/rawk/bytecode"
	"github.com/kolkov/rawk/internal/interp"
	"github.com/kolkov/rawk/internal/runtime"
)

// Program wraps a validated bytecode program ready for execution.
// It is safe for concurrent use; each call to Run creates an
// independent execution context.
type Program struct {
	prog *bytecode.Program
}

// New validates a bytecode program and wraps it for execution. The
// check covers the stage descriptor and function table only; the
// instruction stream itself is trusted to be well-typed, as produced
// by a conforming front end.
func New(prog *bytecode.Program) (*Program, error) {
	if err := validate(prog); err != nil {
		return nil, &ProgramError{Message: err.Error()}
	}
	return &Program{prog: prog}, nil
}

// MustNew is like New but panics if the program is malformed.
func MustNew(prog *bytecode.Program) *Program {
	p, err := New(prog)
	if err != nil {
		panic(err)
	}
	return p
}

func validate(prog *bytecode.Program) error {
	checkFn := func(what string, fn int32) error {
		if fn == bytecode.NoFunc {
			return nil
		}
		if fn < 0 || int(fn) >= len(prog.Funcs) {
			return fmt.Errorf("%s function index %d out of range", what, fn)
		}
		return nil
	}
	switch prog.Stage.Kind {
	case bytecode.StageMain:
		if prog.Stage.Main == bytecode.NoFunc {
			return fmt.Errorf("main stage without a function")
		}
		return checkFn("main", prog.Stage.Main)
	case bytecode.StagePar:
		for _, p := range []struct {
			what string
			fn   int32
		}{{"begin", prog.Stage.Begin}, {"loop", prog.Stage.Loop}, {"end", prog.Stage.End}} {
			if err := checkFn(p.what, p.fn); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown stage kind %d", prog.Stage.Kind)
	}
}

// Run executes the program with the given input and configuration.
// Returns the output as a string, or an error if execution fails.
//
// If config is nil, default configuration is used.
// If config.Output is set, output is written there and the returned
// string will be empty.
func (p *Program) Run(input io.Reader, config *Config) (string, error) {
	if config == nil {
		config = &Config{}
	}
	cfg := *config
	cfg.applyDefaults()

	var outputBuf *bytes.Buffer
	output := cfg.Output
	if output == nil {
		outputBuf = &bytes.Buffer{}
		output = outputBuf
	}
	if input == nil {
		input = strings.NewReader("")
	}

	posix := true
	if cfg.POSIXRegex != nil {
		posix = *cfg.POSIXRegex
	}

	core := interp.NewCore(p.prog, interp.CoreConfig{
		Input:       runtime.NewSource(input, cfg.Files),
		Output:      runtime.NewOutputRegistry(output),
		RegexConfig: runtime.RegexConfig{POSIX: posix},
		Seed:        cfg.Seed,
		Args:        cfg.Args,
		Intrinsics:  convertIntrinsics(cfg.Intrinsics),
	})

	presets := []struct{ name, val string }{
		{"FS", cfg.FS}, {"OFS", cfg.OFS}, {"ORS", cfg.ORS},
	}
	for _, p := range presets {
		if err := core.SetVar(p.name, p.val); err != nil {
			return "", &RuntimeError{Message: err.Error()}
		}
	}
	for name, val := range cfg.Variables {
		if err := core.SetVar(name, val); err != nil {
			return "", &RuntimeError{Message: err.Error()}
		}
	}

	code, err := interp.NewCoordinator(core, cfg.Workers).Run()
	core.Teardown()

	if err != nil {
		return "", &RuntimeError{Message: err.Error()}
	}

	out := ""
	if outputBuf != nil {
		out = outputBuf.String()
	}
	if code != 0 {
		return out, &ExitError{Code: code}
	}
	return out, nil
}

// Disassemble returns a human-readable representation of the bytecode.
// Useful for debugging and understanding program structure.
func (p *Program) Disassemble() string {
	return p.prog.Disassemble()
}

func convertIntrinsics(m map[string]IntrinsicFunc) map[string]interp.IntrinsicFunc {
	if m == nil {
		return nil
	}
	out := interp.DefaultIntrinsics()
	for name, fn := range m {
		out[name] = interp.IntrinsicFunc(fn)
	}
	return out
}
