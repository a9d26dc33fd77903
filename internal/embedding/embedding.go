// Package embedding defines the dense-vector provider consumed by search,
// context, and dedup. Embedding generation itself is an external
// collaborator: the store never calls out to a model, callers supply
// a Provider.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Provider turns text into a unit-normalized dense vector.
type Provider interface {
	// Embed returns one vector. isQuery distinguishes a query-time embedding
	// from a stored-content embedding for providers whose model uses
	// asymmetric encodings.
	Embed(ctx context.Context, text string, isQuery bool) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, isQuery bool) ([][]float32, error)
	Dimensions() int
}

// Deterministic is a hash-projected stand-in Provider: it has no notion of
// semantic similarity, but is stable (same text always yields the same
// vector) and dimension-correct, which is all the rest of the store
// requires to exercise its search and cache paths without a live model
// dependency.
type Deterministic struct {
	dims int
}

// NewDeterministic returns a Provider that projects text into dims
// dimensions via repeated SHA-256 hashing.
func NewDeterministic(dims int) *Deterministic {
	if dims <= 0 {
		dims = 384
	}
	return &Deterministic{dims: dims}
}

func (p *Deterministic) Dimensions() int { return p.dims }

func (p *Deterministic) Embed(ctx context.Context, text string, isQuery bool) ([]float32, error) {
	return hashVector(text, p.dims), nil
}

func (p *Deterministic) EmbedBatch(ctx context.Context, texts []string, isQuery bool) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, p.dims)
	}
	return out, nil
}

// hashVector expands repeated SHA-256 digests of text into dims float32
// components, then L2-normalizes the result.
func hashVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	seed := []byte(text)
	block := 0
	var digest [32]byte
	for i := 0; i < dims; i++ {
		if i%8 == 0 {
			digest = sha256.Sum256(append(seed, byte(block)))
			block++
		}
		u := binary.LittleEndian.Uint32(digest[(i%8)*4 : (i%8)*4+4])
		v[i] = float32(int32(u)) / float32(math.MaxInt32)
	}
	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
