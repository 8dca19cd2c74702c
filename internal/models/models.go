// Package models contains the plain data structures shared across the ledger.
package models

// Transaction status values. Transitions are monotonic: pending to confirmed
// or pending to failed; confirmed and failed are terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

type Wallet struct {
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"-"`
	// Balance is an advisory cache; the confirmed transaction history is the
	// source of truth and the cache is corrected on read when it drifts.
	Balance float64 `json:"balance"`
	// SeedBalance is the starting balance granted at wallet creation. It is
	// the base of balance reconciliation, which otherwise only sums confirmed
	// transactions.
	SeedBalance float64 `json:"-"`
}

type Transaction struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Fee       float64 `json:"fee"`
	Timestamp int64   `json:"timestamp"` // unix nanoseconds
	Nonce     uint64  `json:"nonce"`
	Signature string  `json:"signature"`
	Hash      string  `json:"hash"`
	Status    string  `json:"status"`
	// BlockRef is the index of the sealing block; nil while pending or failed.
	BlockRef *uint64 `json:"block_ref,omitempty"`
}

type Block struct {
	Index        uint64        `json:"index"`
	PreviousHash string        `json:"previous_hash"`
	Hash         string        `json:"hash"`
	Nonce        uint64        `json:"nonce"`
	MerkleRoot   string        `json:"merkle_root"`
	Difficulty   int           `json:"difficulty"`
	Timestamp    int64         `json:"timestamp"` // unix seconds
	Transactions []Transaction `json:"transactions"`
}
