package core

import "io"

// BoundedReader wraps a file handle opened at a known size and refuses to
// yield more than that many bytes, so a source rewrite racing with an
// open Artifact can never make a caller read past the length it was told
// up front.
type BoundedReader struct {
	R   io.ReadCloser
	Max int64
	n   int64
}

func (b *BoundedReader) Read(p []byte) (int, error) {
	if b.n >= b.Max {
		return 0, io.EOF
	}
	if remain := b.Max - b.n; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := b.R.Read(p)
	b.n += int64(n)
	return n, err
}

func (b *BoundedReader) Close() error { return b.R.Close() }

var _ io.ReadCloser = (*BoundedReader)(nil)
