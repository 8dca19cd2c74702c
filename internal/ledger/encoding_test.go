package ledger

import (
	"testing"

	"blockledger/internal/models"

	"github.com/stretchr/testify/assert"
)

// The canonical encodings are load-bearing: stored hashes and signatures are
// re-derived from them during validation, so the exact field order, separator,
// and 8-decimal formatting are pinned here.

func TestTransactionHashPayload_CanonicalForm(t *testing.T) {
	tx := models.Transaction{
		From:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		To:        "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Amount:    10,
		Fee:       0.001,
		Timestamp: 1700000000000000000,
		Nonce:     42,
	}

	want := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa|bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb|10.00000000|1700000000000000000|42"
	assert.Equal(t, want, TransactionHashPayload(&tx))
}

func TestTransactionSigningPayload_IncludesFee(t *testing.T) {
	tx := models.Transaction{
		From:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		To:        "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Amount:    10,
		Fee:       0.001,
		Timestamp: 1700000000000000000,
		Nonce:     42,
	}

	want := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa|bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb|10.00000000|0.00100000|1700000000000000000|42"
	assert.Equal(t, want, string(TransactionSigningPayload(&tx)))
}

func TestHashTransaction_FeeNotInHash(t *testing.T) {
	tx := models.Transaction{
		From:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		To:        "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Amount:    10,
		Fee:       0.001,
		Timestamp: 1700000000000000000,
		Nonce:     42,
	}
	other := tx
	other.Fee = 0.5

	assert.Equal(t, HashTransaction(&tx), HashTransaction(&other))
}

func TestHashBlockHeader_SensitiveToEveryField(t *testing.T) {
	base := HashBlockHeader(1, "prev", 1700000000, "root", 7)

	assert.Len(t, base, 64)
	assert.NotEqual(t, base, HashBlockHeader(2, "prev", 1700000000, "root", 7))
	assert.NotEqual(t, base, HashBlockHeader(1, "other", 1700000000, "root", 7))
	assert.NotEqual(t, base, HashBlockHeader(1, "prev", 1700000001, "root", 7))
	assert.NotEqual(t, base, HashBlockHeader(1, "prev", 1700000000, "toor", 7))
	assert.NotEqual(t, base, HashBlockHeader(1, "prev", 1700000000, "root", 8))
}
