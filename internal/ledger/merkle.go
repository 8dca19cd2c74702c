package ledger

import (
	"crypto/sha256"
	"encoding/hex"
)

// MerkleRoot reduces an ordered sequence of transaction hashes to a single
// root digest. The reduction is order-sensitive and iterative: hashes are
// paired left-to-right, each pair concatenated and hashed, and the surviving
// level reduced again until one digest remains. An odd level duplicates its
// last element. Stored roots are re-derived byte-for-byte during validation,
// so these rules are fixed.
func MerkleRoot(hashes []string) string {
	switch len(hashes) {
	case 0:
		return digestHex("")
	case 1:
		return hashes[0]
	}

	level := make([]string, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			sum := sha256.Sum256([]byte(level[i] + level[i+1]))
			next = append(next, hex.EncodeToString(sum[:]))
		}
		level = next
	}

	return level[0]
}
