package rawk

import (
	"io"

	"github.com/kolkov/rawk/bytecode"
)

// Version is the rawk version string.
const Version = "0.1.0"

// Run executes a bytecode program with the given input.
// This is a convenience function for one-off execution.
// For repeated execution of the same program, use New followed by
// Program.Run.
//
// Returns the program output as a string, or an error if validation
// or execution fails.
func Run(prog *bytecode.Program, input io.Reader, config *Config) (string, error) {
	p, err := New(prog)
	if err != nil {
		return "", err
	}
	return p.Run(input, config)
}

// Exec is a simplified interface for running a program.
// It reads from input, writes to output, and returns any error.
//
// This function is useful for integration with I/O pipelines
// where you need control over the output writer.
func Exec(prog *bytecode.Program, input io.Reader, output io.Writer, config *Config) error {
	p, err := New(prog)
	if err != nil {
		return err
	}
	if config == nil {
		config = &Config{}
	}
	cfg := *config
	cfg.Output = output
	_, err = p.Run(input, &cfg)
	return err
}
