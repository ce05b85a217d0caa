// Package strhash provides the stable 32-bit string hash used to derive
// numeric ids from human-readable names. Every producer and the external
// renderer must agree bit-for-bit, so this is the only implementation in the
// module; do not inline it elsewhere.
package strhash

import "strings"

// OneAtATime is the Jenkins one-at-a-time hash of the lower-cased input.
func OneAtATime(s string) uint32 {
	var h uint32
	for _, c := range []byte(strings.ToLower(s)) {
		h += uint32(c)
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}
