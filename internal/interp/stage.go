package interp

import (
	"bytes"
	"fmt"

	"github.com/kolkov/rawk/bytecode"
	"github.com/kolkov/rawk/internal/runtime"
)

// Coordinator runs a program's stage to completion over one primary
// core, spawning worker goroutines for the loop part of a parallel
// stage when the input can be partitioned.
type Coordinator struct {
	core    *Core
	workers int
}

// NewCoordinator creates a coordinator. workers is the requested
// parallelism for the loop stage; anything below 2 forces serial
// execution.
func NewCoordinator(core *Core, workers int) *Coordinator {
	return &Coordinator{core: core, workers: workers}
}

// Run executes the program and returns the process exit code.
func (co *Coordinator) Run() (int, error) {
	prog := co.core.prog
	if prog.Stage.Kind == bytecode.StageMain {
		res, err := NewInterp(co.core).Run(prog.Stage.Main)
		if err != nil {
			return 2, err
		}
		return res.ExitCode, nil
	}
	return co.runPar()
}

func (co *Coordinator) runPar() (int, error) {
	prog := co.core.prog
	in := NewInterp(co.core)

	res, err := in.Run(prog.Stage.Begin)
	if err != nil {
		return 2, err
	}
	if res.Status == Halted {
		return res.ExitCode, nil
	}

	if prog.Stage.Loop != bytecode.NoFunc {
		halted, code, err := co.runLoop()
		if err != nil {
			return 2, err
		}
		if halted {
			return code, nil
		}
	}

	res, err = in.Run(prog.Stage.End)
	if err != nil {
		return 2, err
	}
	return res.ExitCode, nil
}

// runLoop executes the loop function, in parallel when the input source
// agrees to split. Returns whether the run was halted and with what
// exit code.
func (co *Coordinator) runLoop() (bool, int, error) {
	prog := co.core.prog

	var parts []*runtime.Source
	if co.workers > 1 {
		parts = co.core.in.Split(co.workers)
	}
	if len(parts) < 2 {
		res, err := NewInterp(co.core).Run(prog.Stage.Loop)
		if err != nil {
			return false, 0, err
		}
		if res.Status == Halted {
			return true, res.ExitCode, nil
		}
		return false, 0, nil
	}

	// The calling goroutine is logical worker 1: it keeps the primary
	// core (with the begin-stage base values) and writes straight to
	// the real output, which is correct because its partition's records
	// come first. The rest get shuttled cores and buffered output that
	// is replayed in worker order after the join.
	type workerResult struct {
		core *Core
		out  *bytes.Buffer
		res  Result
		err  error
	}
	results := make([]workerResult, len(parts))
	done := make(chan int, len(parts)-1)

	for i := 1; i < len(parts); i++ {
		var buf bytes.Buffer
		wc := co.core.Shuttle(parts[i], runtime.NewOutputRegistry(&buf))
		results[i] = workerResult{core: wc, out: &buf}
		go func(i int) {
			r := &results[i]
			r.res, r.err = NewInterp(r.core).Run(prog.Stage.Loop)
			r.core.out.FlushAll()
			done <- i
		}(i)
	}

	prevIn := co.core.in
	co.core.in = parts[0]
	res, err := NewInterp(co.core).Run(prog.Stage.Loop)
	co.core.in = prevIn
	results[0] = workerResult{core: co.core, res: res, err: err}

	for i := 1; i < len(parts); i++ {
		<-done
	}
	for _, p := range parts {
		p.Close()
	}

	for i := range results {
		if results[i].err != nil && err == nil {
			err = fmt.Errorf("worker %d: %w", i+1, results[i].err)
		}
	}
	if err != nil {
		return false, 0, err
	}

	// Replay buffered output and fold slots in worker order so the
	// merge is deterministic even though each worker ran concurrently.
	for i := 1; i < len(results); i++ {
		r := &results[i]
		if r.out.Len() > 0 {
			if werr := co.core.out.WriteMain(r.out.String()); werr != nil {
				return false, 0, werr
			}
		}
		co.core.Absorb(r.core)
	}

	if code, stop := co.core.cancel.Cancelled(); stop {
		return true, code, nil
	}
	return false, 0, nil
}
