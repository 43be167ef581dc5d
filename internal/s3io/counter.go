package s3io

import (
	"io"
)

// ReadCounter tallies the calls and bytes that pass through a reader.
type ReadCounter struct {
	in    io.Reader
	reads int
	bytes int64
}

// WriteCounter tallies the calls and bytes that pass through a writer.
type WriteCounter struct {
	out    io.Writer
	writes int
	bytes  int64
}

func NewReadCounter(in io.Reader) *ReadCounter {
	return &ReadCounter{in: in}
}

func NewWriteCounter(out io.Writer) *WriteCounter {
	return &WriteCounter{out: out}
}

func (rc *ReadCounter) Read(p []byte) (int, error) {
	size, err := rc.in.Read(p)

	rc.reads += 1
	rc.bytes += int64(size)

	return size, err
}

func (rc *ReadCounter) TotalReads() int {
	return rc.reads
}

func (rc *ReadCounter) TotalBytes() int64 {
	return rc.bytes
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	size, err := wc.out.Write(p)

	wc.writes += 1
	wc.bytes += int64(size)

	return size, err
}

func (wc *WriteCounter) TotalWrites() int {
	return wc.writes
}

func (wc *WriteCounter) TotalBytes() int64 {
	return wc.bytes
}
