// Package lsh implements random-hyperplane locality-sensitive hashing over
// cosine similarity, used to shortlist dedup and semantic-cache candidates
// without a brute-force scan of every stored vector.
package lsh

import (
	"math"
	"math/rand"
)

// Index buckets vectors by the sign pattern of their dot product against a
// fixed set of random hyperplanes. Vectors that land in the same bucket are
// candidates for a full cosine comparison; vectors in different buckets are
// assumed dissimilar and skipped.
type Index struct {
	dims       int
	planes     [][]float32
	buckets    map[string][]string // bucket signature -> entry IDs
	bucketOf   map[string]string   // entry ID -> bucket signature, for removal
}

// New builds an Index with numPlanes random hyperplanes in dims dimensions,
// seeded deterministically so repeated runs over the same data produce the
// same buckets (important for reproducible dedup output in tests).
func New(dims, numPlanes int, seed int64) *Index {
	r := rand.New(rand.NewSource(seed))
	planes := make([][]float32, numPlanes)
	for i := range planes {
		p := make([]float32, dims)
		for j := range p {
			p[j] = float32(r.NormFloat64())
		}
		planes[i] = p
	}
	return &Index{
		dims:     dims,
		planes:   planes,
		buckets:  map[string][]string{},
		bucketOf: map[string]string{},
	}
}

func (idx *Index) signature(v []float32) string {
	sig := make([]byte, len(idx.planes))
	for i, p := range idx.planes {
		var dot float64
		n := len(v)
		if len(p) < n {
			n = len(p)
		}
		for j := 0; j < n; j++ {
			dot += float64(v[j]) * float64(p[j])
		}
		if dot >= 0 {
			sig[i] = '1'
		} else {
			sig[i] = '0'
		}
	}
	return string(sig)
}

// Add inserts id under v's bucket.
func (idx *Index) Add(id string, v []float32) {
	sig := idx.signature(v)
	if old, ok := idx.bucketOf[id]; ok {
		idx.removeFromBucket(old, id)
	}
	idx.buckets[sig] = append(idx.buckets[sig], id)
	idx.bucketOf[id] = sig
}

// Remove deletes id from the index.
func (idx *Index) Remove(id string) {
	sig, ok := idx.bucketOf[id]
	if !ok {
		return
	}
	idx.removeFromBucket(sig, id)
	delete(idx.bucketOf, id)
}

func (idx *Index) removeFromBucket(sig, id string) {
	ids := idx.buckets[sig]
	for i, existing := range ids {
		if existing == id {
			idx.buckets[sig] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(idx.buckets[sig]) == 0 {
		delete(idx.buckets, sig)
	}
}

// Candidates returns every ID sharing v's bucket, including any ID that was
// added under v itself; callers filter out their own ID where needed.
func (idx *Index) Candidates(v []float32) []string {
	sig := idx.signature(v)
	ids := idx.buckets[sig]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// NumPlanes exposes the configured plane count, so callers can size
// brute-force fallback decisions around bucket selectivity (roughly
// 1/2^NumPlanes of the index per query).
func (idx *Index) NumPlanes() int { return len(idx.planes) }

// Size returns the number of indexed vectors.
func (idx *Index) Size() int { return len(idx.bucketOf) }

// recommendedPlanes picks a plane count that keeps the expected bucket size
// near targetBucketSize for n indexed vectors: 2^p ~= n/targetBucketSize.
func recommendedPlanes(n, targetBucketSize int) int {
	if n <= targetBucketSize {
		return 1
	}
	p := int(math.Log2(float64(n) / float64(targetBucketSize)))
	if p < 1 {
		p = 1
	}
	if p > 24 {
		p = 24
	}
	return p
}

// RecommendedPlanes is exported for callers sizing a new Index from an
// expected corpus size (dedup/cache construction).
func RecommendedPlanes(expectedSize int) int {
	return recommendedPlanes(expectedSize, 32)
}
