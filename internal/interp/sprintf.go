package interp

import (
	"fmt"
	"strings"

	"github.com/kolkov/rawk/internal/value"
)

// sprintf implements AWK printf semantics over typed arguments. Verbs
// convert their argument to the needed type instead of failing, and a
// missing argument formats the type's zero value. Supported verbs:
// %d %i %o %x %X %u %c %e %E %f %g %G %s %%, with the standard
// flag/width/precision syntax including * taken from the argument list.
func sprintf(format string, args []any) string {
	var sb strings.Builder
	argIdx := 0
	next := func() any {
		if argIdx < len(args) {
			a := args[argIdx]
			argIdx++
			return a
		}
		return ""
	}

	i := 0
	for i < len(format) {
		ch := format[i]
		if ch != '%' {
			sb.WriteByte(ch)
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			sb.WriteByte('%')
			i += 2
			continue
		}

		// Collect the spec: flags, width, precision.
		spec := []byte{'%'}
		i++
		for i < len(format) && strings.IndexByte("-+ 0#", format[i]) >= 0 {
			spec = append(spec, format[i])
			i++
		}
		if i < len(format) && format[i] == '*' {
			spec = append(spec, []byte(fmt.Sprint(toInt(next())))...)
			i++
		} else {
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				spec = append(spec, format[i])
				i++
			}
		}
		if i < len(format) && format[i] == '.' {
			spec = append(spec, '.')
			i++
			if i < len(format) && format[i] == '*' {
				spec = append(spec, []byte(fmt.Sprint(toInt(next())))...)
				i++
			} else {
				for i < len(format) && format[i] >= '0' && format[i] <= '9' {
					spec = append(spec, format[i])
					i++
				}
			}
		}
		if i >= len(format) {
			sb.Write(spec)
			break
		}

		verb := format[i]
		i++
		switch verb {
		case 'd', 'i':
			fmt.Fprintf(&sb, string(append(spec, 'd')), toInt(next()))
		case 'o', 'x', 'X':
			fmt.Fprintf(&sb, string(append(spec, verb)), toInt(next()))
		case 'u':
			fmt.Fprintf(&sb, string(append(spec, 'd')), uint64(toInt(next())))
		case 'c':
			arg := next()
			if s, ok := arg.(string); ok {
				if s == "" {
					break
				}
				fmt.Fprintf(&sb, string(append(spec, 's')), s[:1])
			} else {
				fmt.Fprintf(&sb, string(append(spec, 'c')), rune(toInt(arg)))
			}
		case 'e', 'E', 'f', 'F', 'g', 'G':
			fmt.Fprintf(&sb, string(append(spec, verb)), toFloat(next()))
		case 's':
			fmt.Fprintf(&sb, string(append(spec, 's')), toStr(next()))
		default:
			sb.Write(spec)
			sb.WriteByte(verb)
		}
	}
	return sb.String()
}

func toInt(a any) int64 {
	switch v := a.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		return value.ParseIntPrefix(v)
	}
	return 0
}

func toFloat(a any) float64 {
	switch v := a.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		return value.ParseNumPrefix(v)
	}
	return 0
}

func toStr(a any) string {
	switch v := a.(type) {
	case int64:
		return value.FormatInt(v)
	case float64:
		return value.FormatFloat(v, "%.6g")
	case string:
		return v
	}
	return ""
}
