package util

import (
	"fmt"

	"github.com/OneOfOne/xxhash"

	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// HashCode hashes key with xxhash, the primitive NewDocumentID allocates
// document ids from.
func HashCode(key []byte) uint64 {
	h := xxhash.New64()
	h.Write(key)
	return h.Sum64()
}

// NewDocumentID allocates a short storeadapter.ID for a row about to be
// inserted into table: its fields are hashed together with salt, a
// caller-maintained monotonic counter, so repeated inserts of otherwise
// identical fields never collide. storeadapter.Adapter implementations
// that allocate ids themselves (storeadapter/memadapter is the reference
// one) are the intended caller.
func NewDocumentID(table string, fields map[string]any, salt uint64) storeadapter.ID {
	sum := HashCode([]byte(fmt.Sprintf("%s|%v#%d", table, fields, salt)))
	return storeadapter.ID(fmt.Sprintf("%s_%016x", table, sum))
}
