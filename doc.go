// Package rawk provides a typed register bytecode engine for
// record-processing programs in the AWK family.
//
// rawk executes programs compiled to its instruction set, featuring:
//   - Typed register files with a closed ~170-op instruction set
//   - Reference-shared associative arrays with snapshot iteration
//   - Begin/loop/end staging with optional data-parallel execution
//   - High-performance regex engine (coregex)
//   - Embeddable library for Go applications
//
// # Quick Start
//
// Programs are built with the [bytecode.Builder] (normally by a
// compiler front end) and handed to the engine:
//
//	prog := b.Build(stage)
//	output, err := rawk.Run(prog, strings.NewReader("hello world"), nil)
//
// For repeated execution of the same program:
//
//	p, err := rawk.New(prog)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out1, err := p.Run(file1, nil)
//	out2, err := p.Run(file2, nil)
//
// # Parallel Execution
//
// A program compiled with a begin/loop/end stage can run its loop in
// parallel over disjoint partitions of a single input file:
//
//	out, err := p.Run(nil, &rawk.Config{
//	    Files:   []string{"access.log"},
//	    Workers: 4,
//	})
//
// The engine splits the file on record boundaries, runs one loop
// instance per partition, and merges worker state deterministically
// before the end stage runs. Inputs that cannot be partitioned fall
// back to serial execution with identical results.
//
// # Configuration
//
// The [Config] type allows customization of execution:
//   - Field and record separators (FS, OFS, ORS)
//   - Pre-set builtin variables and host intrinsics
//   - Custom I/O writers and input file lists
//   - Worker count for parallel stages
//
// # Error Handling
//
// Errors are returned as specific types for detailed handling:
//   - [ProgramError]: malformed bytecode rejected before execution
//   - [RuntimeError]: errors during execution
//   - [ExitError]: normal termination with a nonzero status
//
// # Thread Safety
//
// Validated [Program] objects are safe for concurrent use.
// Each call to [Program.Run] creates an independent execution context.
package rawk
