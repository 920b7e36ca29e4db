package rawk

import "io"

// IntrinsicFunc is a host-supplied opaque operation callable from a
// program through its declared intrinsic table. Arguments arrive as
// int64, float64 or string per the declared signature; the result must
// match the declared return type.
type IntrinsicFunc func(args []any) (any, error)

// Config holds configuration options for program execution.
type Config struct {
	// FS is the input field separator (default: " ").
	// When set to a single space, runs of whitespace are treated as separators.
	// Otherwise, each occurrence of the string is a separator.
	// Can also be a regular expression pattern.
	FS string

	// OFS is the output field separator (default: " ").
	OFS string

	// ORS is the output record separator (default: "\n").
	ORS string

	// Files are the main input files. When empty the input reader
	// passed to Run is the main input. A name of "-" also reads the
	// input reader.
	Files []string

	// Workers is the requested parallelism for the loop part of a
	// begin/loop/end program. Values below 2 force serial execution.
	// Parallel execution also requires a partitionable input: a single
	// regular file in Files.
	Workers int

	// Variables contains pre-set builtin variables, applied before
	// the begin stage. Only scalar-shaped builtins can be set here.
	// Example: map[string]string{"FS": ":", "CONVFMT": "%.3g"}
	Variables map[string]string

	// Intrinsics overrides or extends the default host operation
	// table (system, systime, strftime, getenv).
	Intrinsics map[string]IntrinsicFunc

	// Output is the writer for program output.
	// If nil, output is captured and returned from Run.
	Output io.Writer

	// Args contains the ARGV values after the program name.
	Args []string

	// Seed seeds the primary RNG deterministically. Zero means seed
	// from the clock.
	Seed int64

	// POSIXRegex enables POSIX leftmost-longest regex matching.
	// When true (default), uses AWK/POSIX ERE semantics (slower but compliant).
	// When false, uses leftmost-first matching (faster, Perl-like).
	POSIXRegex *bool
}

// applyDefaults fills in default values for unset Config fields.
func (c *Config) applyDefaults() {
	if c.FS == "" {
		c.FS = " "
	}
	if c.OFS == "" {
		c.OFS = " "
	}
	if c.ORS == "" {
		c.ORS = "\n"
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
}
