package interp

import "github.com/kolkov/rawk/internal/value"

// Slots are numbered typed cells used to carry values across stage and
// thread boundaries. Unlike registers, slot maps never alias anything:
// a map slot store deep-copies the table, and a load hands back a fresh
// copy, so slot contents can be summed across workers without races.
type Slots struct {
	ints   []int64
	floats []float64
	strs   []string
	mapII  []map[int64]int64
	mapIF  []map[int64]float64
	mapIS  []map[int64]string
	mapSI  []map[string]int64
	mapSF  []map[string]float64
	mapSS  []map[string]string

	// base is the snapshot taken when these slots were shuttled to a
	// worker; absorb folds back only the worker's changes over it.
	// Nil on the primary.
	base *Slots
}

func grow[T any](s []T, n int32) []T {
	for int32(len(s)) <= n {
		var zero T
		s = append(s, zero)
	}
	return s
}

func (s *Slots) LoadInt(n int32) int64 {
	s.ints = grow(s.ints, n)
	return s.ints[n]
}

func (s *Slots) StoreInt(n int32, v int64) {
	s.ints = grow(s.ints, n)
	s.ints[n] = v
}

func (s *Slots) LoadFloat(n int32) float64 {
	s.floats = grow(s.floats, n)
	return s.floats[n]
}

func (s *Slots) StoreFloat(n int32, v float64) {
	s.floats = grow(s.floats, n)
	s.floats[n] = v
}

func (s *Slots) LoadStr(n int32) string {
	s.strs = grow(s.strs, n)
	return s.strs[n]
}

func (s *Slots) StoreStr(n int32, v string) {
	s.strs = grow(s.strs, n)
	s.strs[n] = v
}

func loadSlotMap[K value.Key, V value.Elem](cells *[]map[K]V, n int32) value.Map[K, V] {
	*cells = grow(*cells, n)
	cell := (*cells)[n]
	if cell == nil {
		return value.NewMap[K, V]()
	}
	return value.FromGoMap(cell)
}

func storeSlotMap[K value.Key, V value.Elem](cells *[]map[K]V, n int32, m value.Map[K, V]) {
	*cells = grow(*cells, n)
	(*cells)[n] = m.Freeze()
}

func (s *Slots) LoadMapII(n int32) value.Map[int64, int64] { return loadSlotMap(&s.mapII, n) }
func (s *Slots) LoadMapIF(n int32) value.Map[int64, float64] {
	return loadSlotMap(&s.mapIF, n)
}
func (s *Slots) LoadMapIS(n int32) value.Map[int64, string]  { return loadSlotMap(&s.mapIS, n) }
func (s *Slots) LoadMapSI(n int32) value.Map[string, int64]  { return loadSlotMap(&s.mapSI, n) }
func (s *Slots) LoadMapSF(n int32) value.Map[string, float64] {
	return loadSlotMap(&s.mapSF, n)
}
func (s *Slots) LoadMapSS(n int32) value.Map[string, string] { return loadSlotMap(&s.mapSS, n) }

func (s *Slots) StoreMapII(n int32, m value.Map[int64, int64])   { storeSlotMap(&s.mapII, n, m) }
func (s *Slots) StoreMapIF(n int32, m value.Map[int64, float64]) { storeSlotMap(&s.mapIF, n, m) }
func (s *Slots) StoreMapIS(n int32, m value.Map[int64, string])  { storeSlotMap(&s.mapIS, n, m) }
func (s *Slots) StoreMapSI(n int32, m value.Map[string, int64])  { storeSlotMap(&s.mapSI, n, m) }
func (s *Slots) StoreMapSF(n int32, m value.Map[string, float64]) {
	storeSlotMap(&s.mapSF, n, m)
}
func (s *Slots) StoreMapSS(n int32, m value.Map[string, string]) { storeSlotMap(&s.mapSS, n, m) }

// deepCopy returns an independent copy of every slot cell.
func (s *Slots) deepCopy() Slots {
	return Slots{
		ints:   append([]int64(nil), s.ints...),
		floats: append([]float64(nil), s.floats...),
		strs:   append([]string(nil), s.strs...),
		mapII:  copyMapCells(s.mapII),
		mapIF:  copyMapCells(s.mapIF),
		mapIS:  copyMapCells(s.mapIS),
		mapSI:  copyMapCells(s.mapSI),
		mapSF:  copyMapCells(s.mapSF),
		mapSS:  copyMapCells(s.mapSS),
	}
}

func copyMapCells[K value.Key, V value.Elem](cells []map[K]V) []map[K]V {
	if cells == nil {
		return nil
	}
	out := make([]map[K]V, len(cells))
	for i, m := range cells {
		if m == nil {
			continue
		}
		cp := make(map[K]V, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// shuttle returns worker-local slots. Every cell is deep copied so the
// worker sees the state the begin stage left behind, and a second copy
// is kept as the base so absorb can fold back only what the worker
// changed.
func (s *Slots) shuttle() Slots {
	out := s.deepCopy()
	base := s.deepCopy()
	out.base = &base
	return out
}

// at reads a slice that may be shorter than the worker's grown one.
func at[T any](s []T, i int) T {
	if i < len(s) {
		return s[i]
	}
	var zero T
	return zero
}

// absorb folds a worker's slots into the receiver. Numeric slots and
// numeric map values add the worker's delta over its shuttled base,
// string slots and string map values replace when the worker changed
// them (last change wins across workers).
func (s *Slots) absorb(w *Slots) {
	base := w.base
	if base == nil {
		base = &Slots{}
	}
	s.ints = grow(s.ints, int32(len(w.ints))-1)
	for i, v := range w.ints {
		s.ints[i] += v - at(base.ints, i)
	}
	s.floats = grow(s.floats, int32(len(w.floats))-1)
	for i, v := range w.floats {
		s.floats[i] += v - at(base.floats, i)
	}
	s.strs = grow(s.strs, int32(len(w.strs))-1)
	for i, v := range w.strs {
		if v != at(base.strs, i) {
			s.strs[i] = v
		}
	}
	absorbMapsAdd(&s.mapII, w.mapII, base.mapII)
	absorbMapsAdd(&s.mapIF, w.mapIF, base.mapIF)
	absorbMapsAdd(&s.mapSI, w.mapSI, base.mapSI)
	absorbMapsAdd(&s.mapSF, w.mapSF, base.mapSF)
	absorbMapsLast(&s.mapIS, w.mapIS, base.mapIS)
	absorbMapsLast(&s.mapSS, w.mapSS, base.mapSS)
}

type addable interface {
	~int64 | ~float64
}

func absorbMapsAdd[K value.Key, V addable](dst *[]map[K]V, src, base []map[K]V) {
	*dst = grow(*dst, int32(len(src))-1)
	for i, wm := range src {
		if wm == nil {
			continue
		}
		bm := at(base, i)
		if (*dst)[i] == nil {
			(*dst)[i] = make(map[K]V, len(wm))
		}
		for k, v := range wm {
			(*dst)[i][k] += v - bm[k]
		}
	}
}

func absorbMapsLast[K value.Key](dst *[]map[K]string, src, base []map[K]string) {
	*dst = grow(*dst, int32(len(src))-1)
	for i, wm := range src {
		if wm == nil {
			continue
		}
		bm := at(base, i)
		if (*dst)[i] == nil {
			(*dst)[i] = make(map[K]string, len(wm))
		}
		for k, v := range wm {
			if bv, ok := bm[k]; !ok || bv != v {
				(*dst)[i][k] = v
			}
		}
	}
}
