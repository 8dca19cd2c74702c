package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"blockledger/internal/models"
)

// Canonical encoding of signing and hashing payloads. Every digest stored in
// the chain is recomputed from these encodings during validation, so the field
// order, the separator, and the numeric formatting must never change.
//
// Rules: fields joined with "|", monetary values rendered with exactly 8
// decimal places, integers in base 10.

const amountPrecision = 8

// Granularity is the smallest representable monetary unit.
const Granularity = 1e-8

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', amountPrecision, 64)
}

func digestHex(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// TransactionHashPayload is the canonical input of a transaction's hash:
// from|to|amount|timestamp|nonce.
func TransactionHashPayload(tx *models.Transaction) string {
	return strings.Join([]string{
		tx.From,
		tx.To,
		formatAmount(tx.Amount),
		strconv.FormatInt(tx.Timestamp, 10),
		strconv.FormatUint(tx.Nonce, 10),
	}, "|")
}

// TransactionSigningPayload is the canonical input of a transaction's
// signature: from|to|amount|fee|timestamp|nonce. The fee is covered by the
// signature even though it is not part of the hash.
func TransactionSigningPayload(tx *models.Transaction) []byte {
	return []byte(strings.Join([]string{
		tx.From,
		tx.To,
		formatAmount(tx.Amount),
		formatAmount(tx.Fee),
		strconv.FormatInt(tx.Timestamp, 10),
		strconv.FormatUint(tx.Nonce, 10),
	}, "|"))
}

// HashTransaction computes the canonical transaction digest.
func HashTransaction(tx *models.Transaction) string {
	return digestHex(TransactionHashPayload(tx))
}

// HashBlockHeader computes the canonical block digest over
// index|previousHash|timestamp|merkleRoot|nonce.
func HashBlockHeader(index uint64, previousHash string, timestamp int64, merkleRoot string, nonce uint64) string {
	payload := strings.Join([]string{
		strconv.FormatUint(index, 10),
		previousHash,
		strconv.FormatInt(timestamp, 10),
		merkleRoot,
		strconv.FormatUint(nonce, 10),
	}, "|")
	return digestHex(payload)
}
