package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// StubModel is a deterministic, network-free Embedding implementation for
// tests: the vector is derived from a hash of the input text, so identical
// text always yields an identical vector without depending on a real
// provider.
type StubModel struct {
	Dim int
}

// NewStubModel builds a StubModel producing vectors of the given dimension.
func NewStubModel(dim int) *StubModel {
	if dim <= 0 {
		dim = 8
	}
	return &StubModel{Dim: dim}
}

func (s *StubModel) Embed(_ context.Context, text string) ([]float32, error) {
	return hashVector(text, s.Dim), nil
}

func (s *StubModel) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, s.Dim)
	}
	return out, nil
}

// hashVector expands a SHA-256 digest of seed into dim float32 components in
// [-1, 1] by reseeding with a counter once the digest is exhausted.
func hashVector(seed string, dim int) []float32 {
	out := make([]float32, dim)
	counter := 0
	var block [32]byte
	for i := 0; i < dim; i++ {
		if i%8 == 0 {
			block = sha256.Sum256([]byte(seed + string(rune(counter))))
			counter++
		}
		offset := (i % 8) * 4
		bits := binary.BigEndian.Uint32(block[offset : offset+4])
		out[i] = float32(bits)/float32(^uint32(0))*2 - 1
	}
	return out
}

var _ Embedding = (*StubModel)(nil)
