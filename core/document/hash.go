package document

import (
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// SourceHasher computes the BLAKE3 hash of a source stream as it is read.
type SourceHasher struct {
	h *blake3.Hasher
}

// NewSourceHasher returns a fresh hasher for one run.
func NewSourceHasher() *SourceHasher {
	return &SourceHasher{h: blake3.New()}
}

// Tee returns a reader that hashes everything read through it.
func (s *SourceHasher) Tee(r io.Reader) io.Reader {
	return io.TeeReader(r, s.h)
}

// Sum returns the hex digest of the bytes read so far.
func (s *SourceHasher) Sum() string {
	return hex.EncodeToString(s.h.Sum(nil))
}
