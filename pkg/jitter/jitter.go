// Package jitter derives stable pseudo-random offsets from strings.
//
// The offsets are keyed purely by the seed string, so a file keeps the same
// jitter no matter which other files share its snapshot.
package jitter

import "unicode/utf16"

// FNV-1a 32-bit parameters.
const (
	offset32 uint32 = 2166136261
	prime32  uint32 = 16777619
)

// Buckets is the number of distinct values Hash01 can produce.
const Buckets = 100000

// Sum32 computes the 32-bit FNV-1a hash of s over its UTF-16 code units.
func Sum32(s string) uint32 {
	h := offset32

	for _, unit := range utf16.Encode([]rune(s)) {
		h ^= uint32(unit)
		h *= prime32
	}

	return h
}

// Hash01 maps seed to a value in [0, 1) with a resolution of 1/Buckets.
func Hash01(seed string) float64 {
	return float64(Sum32(seed)%Buckets) / Buckets
}

// Centered returns Hash01(seed) shifted into [-0.5, 0.5).
func Centered(seed string) float64 {
	const half = 0.5

	return Hash01(seed) - half
}
