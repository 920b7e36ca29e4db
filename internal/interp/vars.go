package interp

import (
	"fmt"
	"os"
	"strings"

	"github.com/kolkov/rawk/bytecode"
	"github.com/kolkov/rawk/internal/value"
)

// Variables is the fixed set of builtin variables. Each has exactly one
// storage shape; a load or store through a differently-shaped opcode is
// a runtime error, never a coercion.
type Variables struct {
	// Int-shaped. NF lives in the field state, not here; see Core.
	ARGC    int64
	NR      int64
	FNR     int64
	RSTART  int64
	RLENGTH int64
	PID     int64

	// Str-shaped
	FS       string
	OFS      string
	RS       string
	ORS      string
	FILENAME string
	SUBSEP   string
	CONVFMT  string

	ARGV     value.Map[int64, string]
	FI       value.Map[string, int64]
	ENVIRON  value.Map[string, string]
	PROCINFO value.Map[string, string]
}

func newVariables() Variables {
	return Variables{
		FS:       " ",
		OFS:      " ",
		RS:       "\n",
		ORS:      "\n",
		SUBSEP:   "\x1c",
		CONVFMT:  "%.6g",
		RLENGTH:  -1,
		PID:      int64(os.Getpid()),
		ARGV:     value.NewMap[int64, string](),
		FI:       value.NewMap[string, int64](),
		ENVIRON:  environMap(),
		PROCINFO: value.NewMap[string, string](),
	}
}

func environMap() value.Map[string, string] {
	m := value.NewMap[string, string]()
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m.Store(kv[:i], kv[i+1:])
		}
	}
	return m
}

// clone deep-copies the variables for a worker. Map-shaped variables
// lose their aliasing across the boundary on purpose.
func (v *Variables) clone() Variables {
	out := *v
	out.ARGV = value.FromGoMap(v.ARGV.Freeze())
	out.FI = value.FromGoMap(v.FI.Freeze())
	out.ENVIRON = value.FromGoMap(v.ENVIRON.Freeze())
	out.PROCINFO = value.FromGoMap(v.PROCINFO.Freeze())
	return out
}

func (c *Core) loadVarInt(id bytecode.Var) (int64, error) {
	switch id {
	case bytecode.VarARGC:
		return c.vars.ARGC, nil
	case bytecode.VarNF:
		c.ensureFields()
		return int64(c.nf), nil
	case bytecode.VarNR:
		return c.vars.NR, nil
	case bytecode.VarFNR:
		return c.vars.FNR, nil
	case bytecode.VarRSTART:
		return c.vars.RSTART, nil
	case bytecode.VarRLENGTH:
		return c.vars.RLENGTH, nil
	case bytecode.VarPID:
		return c.vars.PID, nil
	}
	return 0, fmt.Errorf("variable %s is not int-shaped", id)
}

func (c *Core) storeVarInt(id bytecode.Var, v int64) error {
	switch id {
	case bytecode.VarARGC:
		c.vars.ARGC = v
	case bytecode.VarNF:
		c.setNF(int(v))
	case bytecode.VarNR:
		c.vars.NR = v
	case bytecode.VarFNR:
		c.vars.FNR = v
	case bytecode.VarRSTART:
		c.vars.RSTART = v
	case bytecode.VarRLENGTH:
		c.vars.RLENGTH = v
	case bytecode.VarPID:
		return fmt.Errorf("variable PID is read-only")
	default:
		return fmt.Errorf("variable %s is not int-shaped", id)
	}
	return nil
}

func (c *Core) loadVarStr(id bytecode.Var) (string, error) {
	switch id {
	case bytecode.VarFS:
		return c.vars.FS, nil
	case bytecode.VarOFS:
		return c.vars.OFS, nil
	case bytecode.VarRS:
		return c.vars.RS, nil
	case bytecode.VarORS:
		return c.vars.ORS, nil
	case bytecode.VarFILENAME:
		return c.vars.FILENAME, nil
	case bytecode.VarSUBSEP:
		return c.vars.SUBSEP, nil
	case bytecode.VarCONVFMT:
		return c.vars.CONVFMT, nil
	}
	return "", fmt.Errorf("variable %s is not str-shaped", id)
}

func (c *Core) storeVarStr(id bytecode.Var, v string) error {
	switch id {
	case bytecode.VarFS:
		c.vars.FS = v
	case bytecode.VarOFS:
		c.vars.OFS = v
	case bytecode.VarRS:
		c.vars.RS = v
	case bytecode.VarORS:
		c.vars.ORS = v
	case bytecode.VarFILENAME:
		c.vars.FILENAME = v
	case bytecode.VarSUBSEP:
		c.vars.SUBSEP = v
	case bytecode.VarCONVFMT:
		c.vars.CONVFMT = v
	default:
		return fmt.Errorf("variable %s is not str-shaped", id)
	}
	return nil
}
