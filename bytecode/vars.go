package bytecode

import "fmt"

// Var identifies a builtin variable. The set is a fixed, closed
// enumeration, not a dynamic namespace; each variable has exactly one
// storage shape, and loading/storing it with a differently-shaped op is
// a runtime error.
type Var int32

const (
	// Int-shaped
	VarARGC Var = iota
	VarNF
	VarNR
	VarFNR
	VarRSTART
	VarRLENGTH
	VarPID

	// Str-shaped
	VarFS
	VarOFS
	VarRS
	VarORS
	VarFILENAME
	VarSUBSEP
	VarCONVFMT

	// IntMap<Str>-shaped
	VarARGV

	// StrMap<Int>-shaped
	VarFI

	// StrMap<Str>-shaped
	VarENVIRON
	VarPROCINFO

	NumVars // sentinel
)

var varNames = [NumVars]string{
	VarARGC: "ARGC", VarNF: "NF", VarNR: "NR", VarFNR: "FNR",
	VarRSTART: "RSTART", VarRLENGTH: "RLENGTH", VarPID: "PID",
	VarFS: "FS", VarOFS: "OFS", VarRS: "RS", VarORS: "ORS",
	VarFILENAME: "FILENAME", VarSUBSEP: "SUBSEP", VarCONVFMT: "CONVFMT",
	VarARGV: "ARGV", VarFI: "FI",
	VarENVIRON: "ENVIRON", VarPROCINFO: "PROCINFO",
}

// String returns the variable's AWK-level name.
func (v Var) String() string {
	if v >= 0 && v < NumVars {
		return varNames[v]
	}
	return fmt.Sprintf("Var(%d)", int32(v))
}

// Shape returns the storage shape of the variable as a register type.
func (v Var) Shape() RegType {
	switch {
	case v <= VarPID:
		return Int
	case v <= VarCONVFMT:
		return Str
	case v == VarARGV:
		return MapIntStr
	case v == VarFI:
		return MapStrInt
	default:
		return MapStrStr
	}
}

// LookupVar returns the Var with the given AWK-level name.
func LookupVar(name string) (Var, bool) {
	for v := Var(0); v < NumVars; v++ {
		if varNames[v] == name {
			return v, true
		}
	}
	return 0, false
}
