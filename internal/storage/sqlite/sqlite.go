// Package sqlite implements storage.Storage on SQLite.
//
// Blocks and transactions are append-only: rows are inserted, transactions
// advance status from pending to confirmed or failed, and nothing is deleted.
// CommitBlock runs inside a single database transaction so a block, its
// confirmed transactions, and the balance updates land together or not at all.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"blockledger/internal/models"
	"blockledger/internal/storage"

	"github.com/mattn/go-sqlite3"
)

type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStorage(db *sql.DB, logger *slog.Logger) *Storage {
	return &Storage{db: db, logger: logger}
}

func (s *Storage) Init() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("PRAGMA foreign_keys = ON: %w", err)
	}
	return s.createTables()
}

func (s *Storage) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS wallets (
		    address TEXT NOT NULL PRIMARY KEY,
		    public_key TEXT NOT NULL,
		    private_key TEXT NOT NULL,
		    balance REAL NOT NULL DEFAULT 0,
		    seed_balance REAL NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS blocks (
		    block_index INTEGER NOT NULL PRIMARY KEY,
		    previous_hash TEXT NOT NULL,
		    hash TEXT NOT NULL UNIQUE,
		    nonce INTEGER NOT NULL,
		    merkle_root TEXT NOT NULL,
		    difficulty INTEGER NOT NULL,
		    timestamp INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS transactions (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    hash TEXT NOT NULL UNIQUE,
		    from_address TEXT NOT NULL,
		    to_address TEXT NOT NULL,
		    amount REAL NOT NULL,
		    fee REAL NOT NULL,
		    timestamp INTEGER NOT NULL,
		    nonce INTEGER NOT NULL,
		    signature TEXT NOT NULL,
		    status TEXT NOT NULL,
		    block_ref INTEGER,
		    FOREIGN KEY (block_ref) REFERENCES blocks(block_index)
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
		CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_address);
		CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_address);
	`)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func (s *Storage) CreateWallet(w models.Wallet) error {
	_, err := s.db.Exec(
		"INSERT INTO wallets (address, public_key, private_key, balance, seed_balance) VALUES (?, ?, ?, ?, ?)",
		w.Address, w.PublicKey, w.PrivateKey, w.Balance, w.SeedBalance,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (s *Storage) GetWallet(address string) (models.Wallet, error) {
	var w models.Wallet
	err := s.db.QueryRow(
		"SELECT address, public_key, private_key, balance, seed_balance FROM wallets WHERE address = ?",
		address,
	).Scan(&w.Address, &w.PublicKey, &w.PrivateKey, &w.Balance, &w.SeedBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, storage.ErrWalletNotFound
	}
	return w, err
}

func (s *Storage) SetWalletBalance(address string, balance float64) error {
	res, err := s.db.Exec("UPDATE wallets SET balance = ? WHERE address = ?", balance, address)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrWalletNotFound
	}
	return nil
}

func (s *Storage) SaveTransaction(tx models.Transaction) error {
	_, err := s.db.Exec(`
		INSERT INTO transactions (hash, from_address, to_address, amount, fee, timestamp, nonce, signature, status, block_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Hash, tx.From, tx.To, tx.Amount, tx.Fee, tx.Timestamp, tx.Nonce, tx.Signature, tx.Status, tx.BlockRef,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

const txColumns = "hash, from_address, to_address, amount, fee, timestamp, nonce, signature, status, block_ref"

func scanTransaction(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(&tx.Hash, &tx.From, &tx.To, &tx.Amount, &tx.Fee, &tx.Timestamp, &tx.Nonce, &tx.Signature, &tx.Status, &tx.BlockRef)
	return tx, err
}

func (s *Storage) GetTransaction(hash string) (models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRow(
		"SELECT "+txColumns+" FROM transactions WHERE hash = ?", hash,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, storage.ErrTransactionNotFound
	}
	return tx, err
}

func (s *Storage) PendingTransactions() ([]models.Transaction, error) {
	return s.queryTransactions(
		"SELECT "+txColumns+" FROM transactions WHERE status = ? ORDER BY id ASC",
		models.StatusPending,
	)
}

func (s *Storage) MarkTransactionFailed(hash string) error {
	res, err := s.db.Exec(
		"UPDATE transactions SET status = ? WHERE hash = ? AND status = ?",
		models.StatusFailed, hash, models.StatusPending,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrTransactionNotFound
	}
	return nil
}

func (s *Storage) TransactionsByAddress(address, status string) ([]models.Transaction, error) {
	query := "SELECT " + txColumns + " FROM transactions WHERE (from_address = ? OR to_address = ?)"
	args := []any{address, address}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY id ASC"
	return s.queryTransactions(query, args...)
}

func (s *Storage) queryTransactions(query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Storage) AppendBlock(b models.Block) error {
	_, err := s.db.Exec(`
		INSERT INTO blocks (block_index, previous_hash, hash, nonce, merkle_root, difficulty, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Index, b.PreviousHash, b.Hash, b.Nonce, b.MerkleRoot, b.Difficulty, b.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateBlock
		}
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

// CommitBlock applies a sealed block atomically: the block row, the
// confirmed-status flips with the block reference, and the balance deltas
// either all land or none do.
func (s *Storage) CommitBlock(b models.Block, confirmed []string, deltas []storage.BalanceDelta) error {
	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.Exec(`
		INSERT INTO blocks (block_index, previous_hash, hash, nonce, merkle_root, difficulty, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Index, b.PreviousHash, b.Hash, b.Nonce, b.MerkleRoot, b.Difficulty, b.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateBlock
		}
		return fmt.Errorf("insert block: %w", err)
	}

	for _, hash := range confirmed {
		res, err := dbTx.Exec(
			"UPDATE transactions SET status = ?, block_ref = ? WHERE hash = ? AND status = ?",
			models.StatusConfirmed, b.Index, hash, models.StatusPending,
		)
		if err != nil {
			return fmt.Errorf("confirm transaction %s: %w", hash, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("confirm transaction %s: %w", hash, storage.ErrTransactionNotFound)
		}
	}

	for _, d := range deltas {
		res, err := dbTx.Exec("UPDATE wallets SET balance = balance + ? WHERE address = ?", d.Delta, d.Address)
		if err != nil {
			return fmt.Errorf("apply balance delta for %s: %w", d.Address, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("apply balance delta for %s: %w", d.Address, storage.ErrWalletNotFound)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit block %d: %w", b.Index, err)
	}

	s.logger.Info("block committed", "index", b.Index, "hash", b.Hash, "transactions", len(confirmed))
	return nil
}

func (s *Storage) HeadBlock() (models.Block, error) {
	b, err := s.scanBlock(s.db.QueryRow(
		"SELECT block_index, previous_hash, hash, nonce, merkle_root, difficulty, timestamp FROM blocks ORDER BY block_index DESC LIMIT 1",
	))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Block{}, storage.ErrBlockNotFound
	}
	return b, err
}

func (s *Storage) BlockByIndex(index uint64) (models.Block, error) {
	b, err := s.scanBlock(s.db.QueryRow(
		"SELECT block_index, previous_hash, hash, nonce, merkle_root, difficulty, timestamp FROM blocks WHERE block_index = ?",
		index,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Block{}, storage.ErrBlockNotFound
	}
	return b, err
}

func (s *Storage) scanBlock(row interface{ Scan(...any) error }) (models.Block, error) {
	var b models.Block
	if err := row.Scan(&b.Index, &b.PreviousHash, &b.Hash, &b.Nonce, &b.MerkleRoot, &b.Difficulty, &b.Timestamp); err != nil {
		return models.Block{}, err
	}
	txs, err := s.queryTransactions(
		"SELECT "+txColumns+" FROM transactions WHERE block_ref = ? ORDER BY id ASC", b.Index,
	)
	if err != nil {
		return models.Block{}, err
	}
	b.Transactions = txs
	return b, nil
}

func (s *Storage) Blocks() ([]models.Block, error) {
	rows, err := s.db.Query(
		"SELECT block_index, previous_hash, hash, nonce, merkle_root, difficulty, timestamp FROM blocks ORDER BY block_index ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []models.Block
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.Index, &b.PreviousHash, &b.Hash, &b.Nonce, &b.MerkleRoot, &b.Difficulty, &b.Timestamp); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range blocks {
		txs, err := s.queryTransactions(
			"SELECT "+txColumns+" FROM transactions WHERE block_ref = ? ORDER BY id ASC", blocks[i].Index,
		)
		if err != nil {
			return nil, err
		}
		blocks[i].Transactions = txs
	}
	return blocks, nil
}

func (s *Storage) ChainHeight() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM blocks").Scan(&n)
	return n, err
}
