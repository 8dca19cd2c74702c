// Package storage defines the persistence boundary of the ledger.
package storage

import (
	"errors"

	"blockledger/internal/models"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBlockNotFound       = errors.New("block not found")

	// ErrDuplicateTransaction is returned on a transaction hash collision.
	ErrDuplicateTransaction = errors.New("duplicate transaction hash")

	// ErrDuplicateBlock is returned when a block index or hash already exists.
	ErrDuplicateBlock = errors.New("duplicate block")
)

// BalanceDelta is a signed balance adjustment applied atomically by CommitBlock.
type BalanceDelta struct {
	Address string
	Delta   float64
}

type Storage interface {
	Init() error

	// Wallets.
	CreateWallet(w models.Wallet) error
	GetWallet(address string) (models.Wallet, error)
	SetWalletBalance(address string, balance float64) error

	// Transactions. SaveTransaction fails with ErrDuplicateTransaction on a
	// hash collision. PendingTransactions returns pending entries in
	// admission (insertion) order.
	SaveTransaction(tx models.Transaction) error
	GetTransaction(hash string) (models.Transaction, error)
	PendingTransactions() ([]models.Transaction, error)
	MarkTransactionFailed(hash string) error
	TransactionsByAddress(address, status string) ([]models.Transaction, error)

	// Blocks. AppendBlock stores a block without touching transactions or
	// balances (genesis seeding). CommitBlock is all-or-nothing: it appends
	// the block, marks the listed transactions confirmed with the block's
	// index, and applies the balance deltas in one storage transaction.
	AppendBlock(b models.Block) error
	CommitBlock(b models.Block, confirmed []string, deltas []BalanceDelta) error
	HeadBlock() (models.Block, error)
	BlockByIndex(index uint64) (models.Block, error)
	Blocks() ([]models.Block, error)
	ChainHeight() (int, error)
}
