package renderer

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"
)

// Device memory uses the host byte order.
var byteOrder = binary.NativeEndian

type scalar interface {
	constraints.Integer | constraints.Float
}

/**
 * @brief Writes values at offset of the given block, encoded in their
 * natural width. See UniformBlockBuffer.SetUniformBytes.
 */
func SetUniformValues[T scalar](ub *UniformBlockBuffer, block int, offset uint32, values []T) {
	ub.SetUniformBytes(block, offset, encode(values))
}

func encode[T scalar](values []T) []byte {
	if len(values) == 0 {
		return nil
	}
	var zero T
	switch any(zero).(type) {
	case float32:
		return float32Bytes(any(values).([]float32))
	case float64:
		out := make([]byte, 8*len(values))
		for i, v := range any(values).([]float64) {
			byteOrder.PutUint64(out[8*i:], math.Float64bits(v))
		}
		return out
	case int8, uint8:
		out := make([]byte, len(values))
		for i, v := range values {
			out[i] = byte(v)
		}
		return out
	case int16, uint16:
		out := make([]byte, 2*len(values))
		for i, v := range values {
			byteOrder.PutUint16(out[2*i:], uint16(v))
		}
		return out
	case int64, uint64, int, uint, uintptr:
		out := make([]byte, 8*len(values))
		for i, v := range values {
			byteOrder.PutUint64(out[8*i:], uint64(v))
		}
		return out
	}
	out := make([]byte, 4*len(values))
	for i, v := range values {
		byteOrder.PutUint32(out[4*i:], uint32(v))
	}
	return out
}

func float32Bytes(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		byteOrder.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func int32Bytes(values []int32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		byteOrder.PutUint32(out[4*i:], uint32(v))
	}
	return out
}

func uint32Bytes(values []uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		byteOrder.PutUint32(out[4*i:], v)
	}
	return out
}

func uint16Bytes(values []uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		byteOrder.PutUint16(out[2*i:], v)
	}
	return out
}

func bytesFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(byteOrder.Uint32(b[4*i:]))
	}
	return out
}
