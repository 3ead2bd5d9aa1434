// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"
)

// DecodeS16LE converts interleaved little-endian 16-bit PCM bytes into dst
// and returns the number of samples written.
func DecodeS16LE(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/2)
	for i := range n {
		dst[i] = Int16ToFloat32(int16(binary.LittleEndian.Uint16(src[2*i:])))
	}

	return n
}

// DecodeS32LE converts interleaved little-endian 32-bit PCM bytes into dst.
func DecodeS32LE(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/4)
	for i := range n {
		dst[i] = Int32ToFloat32(int32(binary.LittleEndian.Uint32(src[4*i:])))
	}

	return n
}

// DecodeF32LE converts interleaved little-endian IEEE float bytes into dst.
func DecodeF32LE(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/4)
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}

	return n
}

// EncodeS16LE appends samples to dst as little-endian 16-bit PCM.
func EncodeS16LE(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}

	return dst
}
