package runtime

import (
	"bufio"
	"io"
	"os"
)

// Maximum line length accepted by the line scanners.
const maxLineLen = 16 * 1024 * 1024

// Source produces input records from a list of files, or from a
// fallback reader (normally stdin) when no files are given. A file
// name of "-" also reads the fallback reader.
//
// A Source backed by a single seekable file can be split into
// partition sources for parallel execution; see Split.
type Source struct {
	fallback io.Reader
	files    []string
	idx      int

	file     *os.File
	scanner  *bufio.Scanner
	filename string
	started  bool
	done     bool

	// Partition sources own no file handle; they share the parent's.
	partition bool
}

// NewSource creates a Source over the given file names, reading
// fallback when files is empty.
func NewSource(fallback io.Reader, files []string) *Source {
	return &Source{fallback: fallback, files: files}
}

// ReadLine returns the next input record.
// Status: 1 record read, 0 no more input, -1 read error.
func (s *Source) ReadLine() (string, int) {
	if s.done {
		return "", 0
	}
	for {
		if s.scanner == nil {
			if !s.advance() {
				s.done = true
				return "", 0
			}
		}
		if s.scanner.Scan() {
			return s.scanner.Text(), 1
		}
		if err := s.scanner.Err(); err != nil {
			s.done = true
			return "", -1
		}
		s.closeCurrent()
	}
}

// Filename returns the name of the file the last record came from.
func (s *Source) Filename() string {
	return s.filename
}

// NextFile abandons the rest of the current file. The next ReadLine
// starts on the following file, if any.
func (s *Source) NextFile() {
	if s.partition {
		s.done = true
		return
	}
	s.closeCurrent()
}

// Close releases the current file handle, if any.
func (s *Source) Close() {
	s.closeCurrent()
	s.done = true
}

// advance opens the next input, returning false when none remain.
func (s *Source) advance() bool {
	if s.partition {
		return false
	}
	if len(s.files) == 0 {
		if s.started {
			return false
		}
		s.started = true
		s.filename = ""
		s.scanner = newLineScanner(s.fallback)
		return true
	}
	for s.idx < len(s.files) {
		name := s.files[s.idx]
		s.idx++
		s.started = true
		if name == "-" {
			s.filename = ""
			s.scanner = newLineScanner(s.fallback)
			return true
		}
		file, err := os.Open(name)
		if err != nil {
			continue
		}
		s.file = file
		s.filename = name
		s.scanner = newLineScanner(file)
		return true
	}
	return false
}

func (s *Source) closeCurrent() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	s.scanner = nil
}

// Split partitions the remaining input into at most n sources whose
// records, taken together, are exactly the records of the receiver.
// Partition boundaries fall on record boundaries. Returns nil when the
// input cannot be partitioned: reading has started, more than one file
// is named, the input is not a seekable regular file, or it is too
// small to be worth splitting.
//
// On success the receiver is consumed: subsequent ReadLine calls
// return status 0. The caller must Close each partition, and Close the
// receiver after all partitions are drained.
func (s *Source) Split(n int) []*Source {
	if n < 2 || s.started || s.done || s.partition || len(s.files) != 1 {
		return nil
	}
	name := s.files[0]
	if name == "-" {
		return nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil
	}
	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		file.Close()
		return nil
	}
	size := info.Size()
	if size < int64(n)*2 {
		file.Close()
		return nil
	}

	starts := partitionStarts(file, size, n)
	if len(starts) < 2 {
		file.Close()
		return nil
	}

	parts := make([]*Source, len(starts))
	for i, off := range starts {
		end := size
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		parts[i] = &Source{
			filename:  name,
			partition: true,
			started:   true,
			scanner:   newLineScanner(io.NewSectionReader(file, off, end-off)),
		}
	}

	// The parent hands its remaining input to the partitions. Keep the
	// handle so CloseFile works; mark it drained.
	s.file = file
	s.done = true
	return parts
}

// partitionStarts computes chunk start offsets for splitting [0,size)
// into about n pieces, each boundary snapped to the byte after a
// newline. Chunks that collapse to nothing are dropped.
func partitionStarts(ra io.ReaderAt, size int64, n int) []int64 {
	starts := make([]int64, 0, n)
	starts = append(starts, 0)
	chunk := size / int64(n)
	for i := 1; i < n; i++ {
		target := chunk * int64(i)
		off, ok := nextRecordStart(ra, target, size)
		if !ok {
			break
		}
		if off >= size {
			break
		}
		if off > starts[len(starts)-1] {
			starts = append(starts, off)
		}
	}
	return starts
}

// nextRecordStart finds the first record boundary at or after off by
// scanning forward for a newline.
func nextRecordStart(ra io.ReaderAt, off, size int64) (int64, bool) {
	if off == 0 {
		return 0, true
	}
	buf := make([]byte, 64*1024)
	pos := off - 1
	for pos < size {
		want := int64(len(buf))
		if size-pos < want {
			want = size - pos
		}
		nr, err := ra.ReadAt(buf[:want], pos)
		for i := 0; i < nr; i++ {
			if buf[i] == '\n' {
				return pos + int64(i) + 1, true
			}
		}
		pos += int64(nr)
		if err != nil {
			if err == io.EOF {
				return size, true
			}
			return 0, false
		}
	}
	return size, true
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineLen)
	return sc
}
