// Package ledger implements the tamper-evident transaction ledger core:
// wallet key derivation, canonical hashing and signing, Merkle aggregation,
// proof-of-work sealing, and chain validation. It holds no HTTP or storage
// knowledge beyond the storage.Storage boundary.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"blockledger/internal/models"
	"blockledger/internal/storage"
)

// GenesisPreviousHash is the fixed previous-hash sentinel of block 0.
var GenesisPreviousHash = strings.Repeat("0", 70)

// DefaultFee is applied when a transaction is submitted without an explicit fee.
const DefaultFee = 0.001

// Params are the mining parameters supplied by configuration.
type Params struct {
	// Difficulty is the required count of leading zero hex digits in a block hash.
	Difficulty int
	// BlockReward is informational; the core does not mint it.
	BlockReward float64
	// Workers is the number of goroutines racing over the nonce space.
	Workers int
}

// Ledger owns the pending-transaction admission policy, balance bookkeeping,
// and the seal+commit protocol. Sealing and committing are serialized by a
// single-writer mutex; Admit and balance reads may run concurrently with an
// in-flight seal.
type Ledger struct {
	store  storage.Storage
	miner  *Miner
	params Params
	logger *slog.Logger

	// sealMu serializes SealBlock+commit: the admission policy reads
	// reconciled balances that must not move mid-batch.
	sealMu sync.Mutex
}

func New(store storage.Storage, params Params, logger *slog.Logger) (*Ledger, error) {
	if params.Difficulty < 1 {
		return nil, fmt.Errorf("difficulty must be positive, got %d", params.Difficulty)
	}

	l := &Ledger{
		store:  store,
		miner:  NewMiner(params.Workers),
		params: params,
		logger: logger,
	}
	if err := l.ensureGenesis(); err != nil {
		return nil, err
	}
	return l, nil
}

// ensureGenesis seeds block 0 on an empty chain. Genesis is fully fixed
// (timestamp 0, nonce 0, empty transaction set, empty-Merkle-root sentinel)
// so independently seeded deployments produce byte-identical genesis hashes.
func (l *Ledger) ensureGenesis() error {
	height, err := l.store.ChainHeight()
	if err != nil {
		return fmt.Errorf("chain height: %w", err)
	}
	if height > 0 {
		return nil
	}

	genesis := GenesisBlock(l.params.Difficulty)
	if err := l.store.AppendBlock(genesis); err != nil {
		if errors.Is(err, storage.ErrDuplicateBlock) {
			return nil
		}
		return fmt.Errorf("seed genesis: %w", err)
	}

	l.logger.Info("genesis block created", "hash", genesis.Hash)
	return nil
}

// GenesisBlock builds the canonical block 0. It carries no proof of work.
func GenesisBlock(difficulty int) models.Block {
	merkleRoot := MerkleRoot(nil)
	return models.Block{
		Index:        0,
		PreviousHash: GenesisPreviousHash,
		Hash:         HashBlockHeader(0, GenesisPreviousHash, 0, merkleRoot, 0),
		Nonce:        0,
		MerkleRoot:   merkleRoot,
		Difficulty:   difficulty,
		Timestamp:    0,
		Transactions: nil,
	}
}

// Admit validates a transaction's structural fields, stamps it with a
// timestamp and a random nonce, computes its canonical hash, and stores it as
// pending. Signature and balance checks are deferred to sealing: balance is
// batch-sensitive, and both are re-verified at validation time regardless.
func (l *Ledger) Admit(tx models.Transaction) (models.Transaction, error) {
	if !ValidAddress(tx.From) || !ValidAddress(tx.To) {
		return models.Transaction{}, ErrInvalidAddress
	}
	if tx.From == tx.To {
		return models.Transaction{}, ErrSelfTransfer
	}
	if tx.Amount <= 0 || tx.Fee < 0 {
		return models.Transaction{}, ErrInvalidAmount
	}
	if !withinGranularity(tx.Amount) || !withinGranularity(tx.Fee) {
		return models.Transaction{}, ErrInvalidAmount
	}

	if tx.Timestamp == 0 {
		tx.Timestamp = time.Now().UnixNano()
	}
	if tx.Nonce == 0 {
		tx.Nonce = RandomNonce()
	}
	tx.Hash = HashTransaction(&tx)
	tx.Status = models.StatusPending
	tx.BlockRef = nil

	if err := l.store.SaveTransaction(tx); err != nil {
		return models.Transaction{}, err
	}

	l.logger.Info("transaction admitted", "hash", tx.Hash, "from", tx.From, "to", tx.To, "amount", tx.Amount)
	return tx, nil
}

// withinGranularity reports whether v is representable at 8 decimal places.
func withinGranularity(v float64) bool {
	scaled := v / Granularity
	return math.Abs(scaled-math.Round(scaled)) < 1e-3
}

// maxNonce caps nonces at 63 bits so they round-trip through SQL integer
// columns, which cannot hold uint64 values with the high bit set.
const maxNonce = 1<<63 - 1

// RandomNonce draws a random transaction nonce. Together with the timestamp
// it makes transaction hashes globally unique.
func RandomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano()) & maxNonce
	}
	return binary.BigEndian.Uint64(b[:]) & maxNonce
}

// SealBlock runs the admission-policy filter over the pending pool in
// first-seen order, mines a block over the survivors, and commits it. Failing
// transactions are marked failed and excluded; mining proceeds with whatever
// remains. With nothing minable it returns ErrNoEligibleTransactions and the
// chain is unchanged.
func (l *Ledger) SealBlock(ctx context.Context) (models.Block, error) {
	l.sealMu.Lock()
	defer l.sealMu.Unlock()

	pending, err := l.store.PendingTransactions()
	if err != nil {
		return models.Block{}, fmt.Errorf("load pending transactions: %w", err)
	}

	eligible := l.filterEligible(pending)
	if len(eligible) == 0 {
		return models.Block{}, ErrNoEligibleTransactions
	}

	head, err := l.store.HeadBlock()
	if err != nil {
		return models.Block{}, fmt.Errorf("chain head: %w", err)
	}

	hashes := make([]string, len(eligible))
	for i, tx := range eligible {
		hashes[i] = tx.Hash
	}
	merkleRoot := MerkleRoot(hashes)

	index := head.Index + 1
	timestamp := time.Now().Unix()

	hash, nonce, err := l.miner.Seal(ctx, index, head.Hash, timestamp, merkleRoot, l.params.Difficulty)
	if err != nil {
		return models.Block{}, fmt.Errorf("mining incomplete: %w", err)
	}

	block := models.Block{
		Index:        index,
		PreviousHash: head.Hash,
		Hash:         hash,
		Nonce:        nonce,
		MerkleRoot:   merkleRoot,
		Difficulty:   l.params.Difficulty,
		Timestamp:    timestamp,
		Transactions: eligible,
	}

	if err := l.commit(block); err != nil {
		return models.Block{}, err
	}

	for i := range block.Transactions {
		block.Transactions[i].Status = models.StatusConfirmed
		block.Transactions[i].BlockRef = &block.Index
	}

	l.logger.Info("block sealed", "index", block.Index, "hash", block.Hash, "nonce", block.Nonce, "transactions", len(eligible))
	return block, nil
}

// filterEligible applies the pre-sealing admission policy: both wallets must
// exist, the signature must verify against the sender's current public key,
// and the sender's reconciled balance must cover amount+fee after accounting
// for earlier transactions in the same batch. Ineligible transactions are
// marked failed.
func (l *Ledger) filterEligible(pending []models.Transaction) []models.Transaction {
	eligible := make([]models.Transaction, 0, len(pending))
	spent := make(map[string]float64)

	for _, tx := range pending {
		if err := l.checkEligibility(tx, spent); err != nil {
			l.logger.Warn("transaction failed sealing checks", "hash", tx.Hash, "reason", err)
			if err := l.store.MarkTransactionFailed(tx.Hash); err != nil {
				l.logger.Error("mark transaction failed", "hash", tx.Hash, "error", err)
			}
			continue
		}
		spent[tx.From] += tx.Amount + tx.Fee
		eligible = append(eligible, tx)
	}
	return eligible
}

func (l *Ledger) checkEligibility(tx models.Transaction, spent map[string]float64) error {
	sender, err := l.store.GetWallet(tx.From)
	if err != nil {
		return fmt.Errorf("sender wallet: %w", err)
	}

	// The receiver must exist before sealing; commit applies a balance delta
	// to it, and a retry loop over an unpayable receiver would stall mining.
	if _, err := l.store.GetWallet(tx.To); err != nil {
		return fmt.Errorf("receiver wallet: %w", err)
	}

	if !Verify(TransactionSigningPayload(&tx), tx.Signature, sender.PublicKey) {
		return ErrInvalidSignature
	}

	balance, err := l.reconciledBalance(tx.From)
	if err != nil {
		return fmt.Errorf("reconcile balance: %w", err)
	}
	if balance-spent[tx.From] < tx.Amount+tx.Fee-Granularity/2 {
		return ErrInsufficientBalance
	}
	return nil
}

// commit atomically appends the block, confirms its transactions, and applies
// balance movements: sender pays amount+fee, receiver gains amount. Fees leave
// circulating balance.
func (l *Ledger) commit(block models.Block) error {
	confirmed := make([]string, len(block.Transactions))
	deltaByAddr := make(map[string]float64)
	order := make([]string, 0, 2*len(block.Transactions))

	for i, tx := range block.Transactions {
		confirmed[i] = tx.Hash
		for _, addr := range []string{tx.From, tx.To} {
			if _, seen := deltaByAddr[addr]; !seen {
				order = append(order, addr)
			}
		}
		deltaByAddr[tx.From] -= tx.Amount + tx.Fee
		deltaByAddr[tx.To] += tx.Amount
	}

	deltas := make([]storage.BalanceDelta, 0, len(order))
	for _, addr := range order {
		deltas = append(deltas, storage.BalanceDelta{Address: addr, Delta: deltaByAddr[addr]})
	}

	if err := l.store.CommitBlock(block, confirmed, deltas); err != nil {
		return fmt.Errorf("commit block %d: %w", block.Index, err)
	}
	return nil
}

// Balance returns the wallet's balance after read-time reconciliation: the
// cached value is recomputed from the confirmed transaction history and
// corrected if it drifted beyond one granularity unit.
func (l *Ledger) Balance(address string) (float64, error) {
	if !ValidAddress(address) {
		return 0, ErrInvalidAddress
	}

	wallet, err := l.store.GetWallet(address)
	if err != nil {
		return 0, err
	}

	reconciled, err := l.reconciledBalance(address)
	if err != nil {
		return 0, err
	}

	if math.Abs(wallet.Balance-reconciled) > Granularity {
		l.logger.Warn("balance drift corrected", "address", address, "cached", wallet.Balance, "reconciled", reconciled)
		if err := l.store.SetWalletBalance(address, reconciled); err != nil {
			return 0, fmt.Errorf("correct balance: %w", err)
		}
	}
	return reconciled, nil
}

// reconciledBalance is the signed sum over confirmed transactions touching the
// address: received amounts minus sent amounts and fees, on top of the
// wallet's seeded starting balance.
func (l *Ledger) reconciledBalance(address string) (float64, error) {
	wallet, err := l.store.GetWallet(address)
	if err != nil {
		return 0, err
	}

	confirmed, err := l.store.TransactionsByAddress(address, models.StatusConfirmed)
	if err != nil {
		return 0, err
	}

	var received, sent float64
	for _, tx := range confirmed {
		if tx.To == address {
			received += tx.Amount
		}
		if tx.From == address {
			sent += tx.Amount + tx.Fee
		}
	}

	return wallet.SeedBalance + received - sent, nil
}
