// Package embed implements the IEEE 754 binary16 (Float16) vector codec
// and the embeddings.jsonl on-disk format. The binary16 conversion
// itself is delegated to github.com/x448/float16, which already
// implements round-to-nearest-even and saturation to +/-Infinity above
// the representable range; this package adds the vector-level
// encode/decode contract, base64 framing, and the JSONL document
// layout, none of which has an ecosystem library in the retrieval pack
// (see DESIGN.md for that stdlib-justification).
package embed

import (
	"encoding/base64"
	"math"

	"github.com/x448/float16"

	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// Encode converts a float32 vector to its binary16 byte representation:
// each component becomes 2 little-endian bytes, concatenated in order.
func Encode(vector []float32) []byte {
	out := make([]byte, 2*len(vector))
	for i, v := range vector {
		h := float16.Fromfloat32(v)
		out[2*i] = byte(h)
		out[2*i+1] = byte(h >> 8)
	}
	return out
}

// Decode converts a binary16 byte slice back to a float32 vector. It
// fails with InvalidInput if len(data) != 2*dim.
func Decode(data []byte, dim int) ([]float32, error) {
	if len(data) != 2*dim {
		return nil, rpgerrors.Newf(rpgerrors.InvalidInput,
			"dimension mismatch: got %d bytes, want %d for dim %d", len(data), 2*dim, dim)
	}
	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		h := float16.Float16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		out[i] = h.Float32()
	}
	return out, nil
}

// EncodeBase64 encodes a vector to binary16 and then standard base64,
// the form persisted in embeddings.jsonl.
func EncodeBase64(vector []float32) string {
	return base64.StdEncoding.EncodeToString(Encode(vector))
}

// DecodeBase64 is the inverse of EncodeBase64.
func DecodeBase64(s string, dim int) ([]float32, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.InvalidInput, "invalid base64 vector")
	}
	return Decode(data, dim)
}

// CosineSimilarity computes cos(a, b) for equal-length vectors. Returns
// 0 if either vector has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		magA += av * av
		magB += bv * bv
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
