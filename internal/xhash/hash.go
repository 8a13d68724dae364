// Package xhash provides a deterministic, non-cryptographic hash used to
// route origins to workers and to derive the page and wave ids the storage
// adapters key on.
package xhash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash64 hashes an arbitrary number of values into a single uint64. Values
// are rendered through fmt.Fprint before hashing, so the same logical value
// (e.g. the same origin host) always hashes to the same result within a
// single build, regardless of its static type.
func Hash64(values ...any) uint64 {
	d := xxhash.New()
	for _, v := range values {
		fmt.Fprint(d, v)
		d.Write([]byte{0}) // separator, avoids ("ab","c") colliding with ("a","bc")
	}
	return d.Sum64()
}

// Mod returns Hash64(values...) mod n, used to route an origin to one of n
// worker handlers. n must be positive.
func Mod(n int, values ...any) int {
	if n <= 0 {
		panic("xhash: Mod called with non-positive n")
	}
	return int(Hash64(values...) % uint64(n))
}

// PageID derives the stable 64-bit PageId a URL's canonical string form is
// keyed by, per spec.md §3 ("a 64-bit deterministic hash of a URL's
// canonical string"). Collisions are accepted as a hash-table risk;
// storage keys by PageID but also records the full URL for disambiguation.
func PageID(canonical string) int64 {
	return int64(Hash64(canonical))
}
