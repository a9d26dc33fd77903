package sqlite

import (
	"encoding/binary"
	"math"

	sqlite3 "github.com/ncruces/go-sqlite3"
	sqlite3driver "github.com/ncruces/go-sqlite3/driver"
)

// registerVecDistance installs vec_distance_cosine(blob, blob) on every new
// connection. The ncruces/go-sqlite3 driver has no CGo path to the sqlite-vec
// extension, so the nearest-neighbor queries in embeddings.go and knowledge.go push this scalar
// function into ORDER BY instead of loading a vector index extension
// .
func init() {
	sqlite3driver.RegisterConnectionHook(func(c *sqlite3.Conn) error {
		return c.CreateFunction("vec_distance_cosine", 2, sqlite3.DETERMINISTIC,
			func(ctx sqlite3.Context, arg ...sqlite3.Value) {
				a := decodeVector(arg[0].RawBlob())
				b := decodeVector(arg[1].RawBlob())
				if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
					ctx.ResultError(errDimMismatch)
					return
				}
				ctx.ResultFloat(1 - cosineSimilarity(a, b))
			})
	})
}

var errDimMismatch = sqlite3Err("vec_distance_cosine: dimension mismatch or empty vector")

type sqlite3Err string

func (e sqlite3Err) Error() string { return string(e) }

// encodeVector serializes a float32 vector as little-endian bytes, the same
// layout stored in embeddings.vector and chunk_embeddings.vector.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
