package vectorstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// cosineSimilarity computes cosine similarity between two vectors of equal
// length. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
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

// encodeVector encodes a float32 slice as the little-endian blob format
// shared by sqlite-vec and the fallback table.
func encodeVector(vec []float32) []byte {
	buf := new(bytes.Buffer)
	// binary.Write on a bytes.Buffer cannot fail for fixed-size data.
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

// decodeVector decodes a little-endian float32 blob.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec); err != nil {
		return nil, fmt.Errorf("decoding vector blob: %w", err)
	}
	return vec, nil
}
