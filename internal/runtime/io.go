package runtime

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// ErrBrokenPipe reports a write to an output whose downstream consumer
// has gone away. The engine treats it as a silent, message-less exit so
// the tool behaves correctly when piped into early-closing consumers.
var ErrBrokenPipe = errors.New("broken pipe")

// OutputRegistry manages the primary output stream and all named output
// destinations (files, subprocess pipes). Files stay open until
// explicitly closed, matching AWK redirection semantics.
type OutputRegistry struct {
	mu sync.Mutex

	main *bufio.Writer

	outFiles map[string]*outputFile
	outPipes map[string]*outputPipe

	inFiles map[string]*inputFile
	inPipes map[string]*inputPipe
}

type outputFile struct {
	file   *os.File
	writer *bufio.Writer
}

type outputPipe struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *bufio.Writer
}

type inputFile struct {
	file    *os.File
	scanner *bufio.Scanner
	status  int
}

type inputPipe struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	scanner *bufio.Scanner
	status  int
}

// NewOutputRegistry creates a registry writing primary output to w.
func NewOutputRegistry(w io.Writer) *OutputRegistry {
	return &OutputRegistry{
		main:     bufio.NewWriter(w),
		outFiles: make(map[string]*outputFile),
		outPipes: make(map[string]*outputPipe),
		inFiles:  make(map[string]*inputFile),
		inPipes:  make(map[string]*inputPipe),
	}
}

// SetMain redirects the primary output stream to w.
func (r *OutputRegistry) SetMain(w io.Writer) {
	r.mu.Lock()
	r.main.Flush()
	r.main = bufio.NewWriter(w)
	r.mu.Unlock()
}

// WriteMain writes s to the primary output stream.
func (r *OutputRegistry) WriteMain(s string) error {
	r.mu.Lock()
	_, err := r.main.WriteString(s)
	r.mu.Unlock()
	return mapWriteErr(err)
}

// WriteFile writes s to the named output file, opening it on first use
// (truncating unless appendMode is set).
func (r *OutputRegistry) WriteFile(name, s string, appendMode bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	of, ok := r.outFiles[name]
	if !ok {
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if appendMode {
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		file, err := os.OpenFile(name, flag, 0o644)
		if err != nil {
			return err
		}
		of = &outputFile{file: file, writer: bufio.NewWriter(file)}
		r.outFiles[name] = of
	}
	_, err := of.writer.WriteString(s)
	return mapWriteErr(err)
}

// WritePipe writes s to the stdin of the named subprocess, starting it
// on first use.
func (r *OutputRegistry) WritePipe(cmdStr, s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.outPipes[cmdStr]
	if !ok {
		cmd := exec.Command(shell(), shellArg(), cmdStr)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			stdin.Close()
			return err
		}
		op = &outputPipe{cmd: cmd, stdin: stdin, writer: bufio.NewWriter(stdin)}
		r.outPipes[cmdStr] = op
	}
	_, err := op.writer.WriteString(s)
	return mapWriteErr(err)
}

// ReadFileLine reads the next line from the named input file, opening
// it on first use. Status: 1 ok, 0 eof, -1 error.
func (r *OutputRegistry) ReadFileLine(name string) (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inf, ok := r.inFiles[name]
	if !ok {
		file, err := os.Open(name)
		if err != nil {
			return "", -1
		}
		inf = &inputFile{file: file, scanner: bufio.NewScanner(file), status: 1}
		r.inFiles[name] = inf
	}
	if inf.scanner.Scan() {
		inf.status = 1
		return inf.scanner.Text(), 1
	}
	if inf.scanner.Err() != nil {
		inf.status = -1
	} else {
		inf.status = 0
	}
	return "", inf.status
}

// ReadPipeLine reads the next line from the named subprocess's stdout,
// starting it on first use. Status: 1 ok, 0 eof, -1 error.
func (r *OutputRegistry) ReadPipeLine(cmdStr string) (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ip, ok := r.inPipes[cmdStr]
	if !ok {
		cmd := exec.Command(shell(), shellArg(), cmdStr)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return "", -1
		}
		if err := cmd.Start(); err != nil {
			stdout.Close()
			return "", -1
		}
		ip = &inputPipe{cmd: cmd, stdout: stdout, scanner: bufio.NewScanner(stdout), status: 1}
		r.inPipes[cmdStr] = ip
	}
	if ip.scanner.Scan() {
		ip.status = 1
		return ip.scanner.Text(), 1
	}
	if ip.scanner.Err() != nil {
		ip.status = -1
	} else {
		ip.status = 0
	}
	return "", ip.status
}

// ReadStatus returns the status of the last read on a named source.
func (r *OutputRegistry) ReadStatus(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inf, ok := r.inFiles[name]; ok {
		return inf.status
	}
	if ip, ok := r.inPipes[name]; ok {
		return ip.status
	}
	return 1
}

// Close closes a file or pipe by name. Returns 0 on success, -1 on
// error or if not found.
func (r *OutputRegistry) Close(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if of, ok := r.outFiles[name]; ok {
		of.writer.Flush()
		err := of.file.Close()
		delete(r.outFiles, name)
		if err != nil {
			return -1
		}
		return 0
	}
	if inf, ok := r.inFiles[name]; ok {
		err := inf.file.Close()
		delete(r.inFiles, name)
		if err != nil {
			return -1
		}
		return 0
	}
	if op, ok := r.outPipes[name]; ok {
		op.writer.Flush()
		op.stdin.Close()
		err := op.cmd.Wait()
		delete(r.outPipes, name)
		if err != nil {
			return -1
		}
		return 0
	}
	if ip, ok := r.inPipes[name]; ok {
		ip.stdout.Close()
		err := ip.cmd.Wait()
		delete(r.inPipes, name)
		if err != nil {
			return -1
		}
		return 0
	}
	return -1
}

// Flush flushes a named output, or the primary stream if name is empty.
// Returns 0 on success, -1 on error or if not found.
func (r *OutputRegistry) Flush(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		if r.main.Flush() != nil {
			return -1
		}
		return 0
	}
	if of, ok := r.outFiles[name]; ok {
		if of.writer.Flush() != nil {
			return -1
		}
		return 0
	}
	if op, ok := r.outPipes[name]; ok {
		if op.writer.Flush() != nil {
			return -1
		}
		return 0
	}
	return -1
}

// FlushAll flushes the primary stream and every named output.
func (r *OutputRegistry) FlushAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := 0
	if r.main.Flush() != nil {
		status = -1
	}
	for _, of := range r.outFiles {
		if of.writer.Flush() != nil {
			status = -1
		}
	}
	for _, op := range r.outPipes {
		if op.writer.Flush() != nil {
			status = -1
		}
	}
	return status
}

// CloseAll flushes and closes everything. Called once during teardown
// by the primary thread only.
func (r *OutputRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.main.Flush()

	for _, of := range r.outFiles {
		of.writer.Flush()
		of.file.Close()
	}
	r.outFiles = make(map[string]*outputFile)

	for _, inf := range r.inFiles {
		inf.file.Close()
	}
	r.inFiles = make(map[string]*inputFile)

	for _, op := range r.outPipes {
		op.writer.Flush()
		op.stdin.Close()
		op.cmd.Wait()
	}
	r.outPipes = make(map[string]*outputPipe)

	for _, ip := range r.inPipes {
		ip.stdout.Close()
		ip.cmd.Wait()
	}
	r.inPipes = make(map[string]*inputPipe)
}

// mapWriteErr converts downstream-gone-away write errors into
// ErrBrokenPipe; other errors pass through.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) {
		return ErrBrokenPipe
	}
	return err
}

// shell returns the shell to use for command execution.
func shell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	// Windows
	if comspec := os.Getenv("COMSPEC"); comspec != "" {
		return comspec
	}
	return "sh"
}

// shellArg returns the argument to pass to the shell.
func shellArg() string {
	sh := shell()
	if sh == os.Getenv("COMSPEC") || sh == "cmd.exe" || sh == "cmd" {
		return "/c"
	}
	return "-c"
}
