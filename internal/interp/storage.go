// Package interp executes compiled bytecode programs: register storage,
// the dispatch loop, builtin variables, field splitting, and the
// begin/loop/end stage coordinator.
package interp

import (
	"github.com/kolkov/rawk/bytecode"
	"github.com/kolkov/rawk/internal/value"
)

// storage is one frame's register files, one dense vector per register
// type. Files are allocated at frame entry from the program's static
// counts and never grow. Map registers start as live empty maps so a
// reference copy before first store is well defined.
type storage struct {
	ints   []int64
	floats []float64
	strs   []string

	mapII []value.Map[int64, int64]
	mapIF []value.Map[int64, float64]
	mapIS []value.Map[int64, string]
	mapSI []value.Map[string, int64]
	mapSF []value.Map[string, float64]
	mapSS []value.Map[string, string]

	iterInt []*value.Iter[int64]
	iterStr []*value.Iter[string]
}

func newStorage(regs *[bytecode.NumRegTypes]int32) *storage {
	s := &storage{
		ints:    make([]int64, regs[bytecode.Int]),
		floats:  make([]float64, regs[bytecode.Float]),
		strs:    make([]string, regs[bytecode.Str]),
		mapII:   make([]value.Map[int64, int64], regs[bytecode.MapIntInt]),
		mapIF:   make([]value.Map[int64, float64], regs[bytecode.MapIntFloat]),
		mapIS:   make([]value.Map[int64, string], regs[bytecode.MapIntStr]),
		mapSI:   make([]value.Map[string, int64], regs[bytecode.MapStrInt]),
		mapSF:   make([]value.Map[string, float64], regs[bytecode.MapStrFloat]),
		mapSS:   make([]value.Map[string, string], regs[bytecode.MapStrStr]),
		iterInt: make([]*value.Iter[int64], regs[bytecode.IterInt]),
		iterStr: make([]*value.Iter[string], regs[bytecode.IterStr]),
	}
	for i := range s.mapII {
		s.mapII[i] = value.NewMap[int64, int64]()
	}
	for i := range s.mapIF {
		s.mapIF[i] = value.NewMap[int64, float64]()
	}
	for i := range s.mapIS {
		s.mapIS[i] = value.NewMap[int64, string]()
	}
	for i := range s.mapSI {
		s.mapSI[i] = value.NewMap[string, int64]()
	}
	for i := range s.mapSF {
		s.mapSF[i] = value.NewMap[string, float64]()
	}
	for i := range s.mapSS {
		s.mapSS[i] = value.NewMap[string, string]()
	}
	return s
}

// argStacks hold values in flight between caller and callee: arguments
// pushed before Call, return values pushed before Ret. One stack per
// type; map entries keep their reference identity across the call.
type argStacks struct {
	ints   []int64
	floats []float64
	strs   []string
	mapII  []value.Map[int64, int64]
	mapIF  []value.Map[int64, float64]
	mapIS  []value.Map[int64, string]
	mapSI  []value.Map[string, int64]
	mapSF  []value.Map[string, float64]
	mapSS  []value.Map[string, string]
}

func push[T any](stack *[]T, v T) {
	*stack = append(*stack, v)
}

func pop[T any](stack *[]T) T {
	s := *stack
	v := s[len(s)-1]
	*stack = s[:len(s)-1]
	return v
}
