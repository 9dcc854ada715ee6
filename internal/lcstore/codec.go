package lcstore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeFloats packs x as little-endian IEEE-754 doubles. NaN payloads and
// signed zeros survive the round trip.
func encodeFloats(x []float64) []byte {
	buf := make([]byte, 0, 8*len(x))
	for _, v := range x {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

func decodeFloats(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("array blob of %d bytes is not a whole number of float64s", len(b))
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out, nil
}
