package container

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sunfish-shogi/bufseekio"
)

// DataSource is where sample bytes live. Sources are opened only while a
// container is being written. Implementations must be comparable; samples
// share a reader when their sources are equal.
type DataSource interface {
	Name() string
	Open() (io.ReadSeekCloser, error)
}

// FileSource reads samples from a file on disk.
type FileSource string

func (f FileSource) Name() string { return string(f) }

func (f FileSource) Open() (io.ReadSeekCloser, error) {
	return os.Open(string(f))
}

// BytesSource serves samples from memory.
type BytesSource struct {
	ID   string
	Data []byte
}

func (b *BytesSource) Name() string { return b.ID }

func (b *BytesSource) Open() (io.ReadSeekCloser, error) {
	return nopCloser{bytes.NewReader(b.Data)}, nil
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }

// ReadOptions tune the buffered reader placed in front of every source.
type ReadOptions struct {
	BufferSize    int
	BufferHistory int
}

// DefaultReadOptions mirrors the buffering used for box parsing.
var DefaultReadOptions = ReadOptions{BufferSize: 128 * 1024, BufferHistory: 4}

func (o ReadOptions) wrap(r io.ReadSeeker) io.ReadSeeker {
	size, history := o.BufferSize, o.BufferHistory
	if size <= 0 {
		size = DefaultReadOptions.BufferSize
	}
	if history <= 0 {
		history = DefaultReadOptions.BufferHistory
	}
	return bufseekio.NewReadSeeker(r, size, history)
}

// sourcePool opens each DataSource once and keeps it open until Close.
type sourcePool struct {
	opts    ReadOptions
	readers map[DataSource]io.ReadSeeker
	closers []io.Closer
}

func newSourcePool(opts ReadOptions) *sourcePool {
	return &sourcePool{opts: opts, readers: map[DataSource]io.ReadSeeker{}}
}

func (p *sourcePool) Get(src DataSource) (io.ReadSeeker, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: sample has no data source", ErrMalformed)
	}
	if r, ok := p.readers[src]; ok {
		return r, nil
	}
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", src.Name(), err)
	}
	p.closers = append(p.closers, rc)
	r := p.opts.wrap(rc)
	p.readers[src] = r
	return r, nil
}

// Close closes every opened source and returns the first error.
func (p *sourcePool) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	p.readers = map[DataSource]io.ReadSeeker{}
	return first
}
