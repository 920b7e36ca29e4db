package interp

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// IntrinsicFunc is a host-supplied opaque operation. Arguments arrive
// as int64, float64 or string per the program's declared signature, and
// the result must match the declared return type. The engine treats
// intrinsic bodies as black boxes; an error aborts the invocation as a
// runtime error.
type IntrinsicFunc func(args []any) (any, error)

// DefaultIntrinsics returns the built-in host operations available to
// every program unless the embedder overrides the table.
func DefaultIntrinsics() map[string]IntrinsicFunc {
	return map[string]IntrinsicFunc{
		"system":   intrinsicSystem,
		"systime":  intrinsicSystime,
		"strftime": intrinsicStrftime,
		"getenv":   intrinsicGetenv,
	}
}

// intrinsicSystem runs a shell command and returns its exit code.
func intrinsicSystem(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("system: want 1 argument, got %d", len(args))
	}
	cmdStr := toStr(args[0])
	cmd := exec.Command(shellPath(), "-c", cmdStr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return int64(0), nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return int64(exitErr.ExitCode()), nil
	}
	return int64(-1), nil
}

func shellPath() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "sh"
}

func intrinsicSystime(args []any) (any, error) {
	return time.Now().Unix(), nil
}

// intrinsicStrftime formats a unix timestamp with a strftime-style
// format. Unknown conversions pass through unchanged.
func intrinsicStrftime(args []any) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("strftime: want at least a format argument")
	}
	format := toStr(args[0])
	ts := time.Now()
	if len(args) > 1 {
		ts = time.Unix(toInt(args[1]), 0)
	}
	return strftime(format, ts), nil
}

func strftime(format string, t time.Time) string {
	out := make([]byte, 0, len(format)*2)
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			out = append(out, format[i])
			continue
		}
		i++
		switch format[i] {
		case 'Y':
			out = t.AppendFormat(out, "2006")
		case 'm':
			out = t.AppendFormat(out, "01")
		case 'd':
			out = t.AppendFormat(out, "02")
		case 'H':
			out = t.AppendFormat(out, "15")
		case 'M':
			out = t.AppendFormat(out, "04")
		case 'S':
			out = t.AppendFormat(out, "05")
		case 'j':
			out = append(out, fmt.Sprintf("%03d", t.YearDay())...)
		case 'Z':
			out = t.AppendFormat(out, "MST")
		case 's':
			out = append(out, fmt.Sprint(t.Unix())...)
		case '%':
			out = append(out, '%')
		default:
			out = append(out, '%', format[i])
		}
	}
	return string(out)
}

func intrinsicGetenv(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("getenv: want 1 argument, got %d", len(args))
	}
	return os.Getenv(toStr(args[0])), nil
}
