package interp

import (
	"strings"
)

// Field state for the current record. Splitting is lazy: setLine only
// stores the raw record, and the split runs on the first access to a
// field or to NF. Assigning a field rebuilds the record with OFS.

// setLine installs a new current record and invalidates the fields.
func (c *Core) setLine(line string) {
	c.line = line
	c.fields = nil
	c.haveFields = false
	c.nf = 0
}

// ensureFields splits the current record if it is not split yet.
func (c *Core) ensureFields() {
	if c.haveFields {
		return
	}
	c.fields = c.splitRecord(c.line, c.vars.FS)
	c.nf = len(c.fields)
	c.haveFields = true
}

// splitRecord splits a record by the current field separator. The
// default separator " " means any run of blanks with leading and
// trailing blanks ignored; a single non-space character splits
// literally; anything longer is a pattern.
func (c *Core) splitRecord(line, fs string) []string {
	switch {
	case line == "":
		return nil
	case fs == " ":
		return strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == '\n'
		})
	case len(fs) == 1 && fs != "\\":
		return strings.Split(line, fs)
	default:
		re, err := c.regexCache.Get(fs)
		if err != nil {
			// An unparsable separator degrades to a literal one.
			return strings.Split(line, fs)
		}
		return re.Split(line, -1)
	}
}

// getField returns field n. Field 0 is the whole record; out-of-range
// fields are empty.
func (c *Core) getField(n int64) string {
	if n == 0 {
		return c.line
	}
	c.ensureFields()
	if n < 1 || n > int64(c.nf) {
		return ""
	}
	return c.fields[n-1]
}

// setField assigns field n and rebuilds the record with OFS. Assigning
// field 0 replaces the record and invalidates the fields; assigning
// past NF extends the record with empty fields in between.
func (c *Core) setField(n int64, v string) {
	if n <= 0 {
		c.setLine(v)
		return
	}
	c.ensureFields()
	for int64(c.nf) < n {
		c.fields = append(c.fields, "")
		c.nf++
	}
	c.fields[n-1] = v
	c.rebuildLine()
}

// setNF truncates or extends the field list, then rebuilds the record.
func (c *Core) setNF(n int) {
	if n < 0 {
		n = 0
	}
	c.ensureFields()
	for c.nf < n {
		c.fields = append(c.fields, "")
		c.nf++
	}
	c.fields = c.fields[:n]
	c.nf = n
	c.rebuildLine()
}

func (c *Core) rebuildLine() {
	c.line = strings.Join(c.fields, c.vars.OFS)
}
