package embeddings

import (
	"encoding/hex"
	"hash/fnv"
)

// ContentHash hashes the exact text an entity would be embedded from.
// Returns a 16-character hex string used to skip re-embedding when the
// content did not change.
func ContentHash(content string) string {
	h := fnv.New64a()
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
