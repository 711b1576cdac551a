package socket

import (
	"github.com/cespare/xxhash/v2"
)

// StableID maps an address string to a non-negative 31-bit id. The hash is
// unseeded, so the same literal address yields the same id in every
// process. Distinct addresses may collide.
func StableID(addr string) int32 {
	return int32(xxhash.Sum64String(addr) & 0x7FFFFFFF)
}
