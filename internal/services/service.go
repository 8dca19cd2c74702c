// Package services contains the application layer between HTTP handlers and
// the ledger core: wallet lifecycle, transaction signing and submission,
// mining triggers, and chain reads.
package services

import (
	"context"
	"log/slog"
	"time"

	"blockledger/internal/ledger"
	"blockledger/internal/models"
	"blockledger/internal/storage"
)

type LedgerService interface {
	CreateWallet() (models.Wallet, error)
	GetWallet(address string) (models.Wallet, error)
	GetBalance(address string) (float64, error)
	SubmitTransaction(from, to string, amount, fee float64) (models.Transaction, error)
	GetTransactions(address, status string) ([]models.Transaction, error)
	MineBlock(ctx context.Context) (models.Block, error)
	GetBlock(index uint64) (models.Block, error)
	GetChain() ([]models.Block, error)
	ValidateChain() (ledger.ValidationReport, error)
}

type ledgerService struct {
	ledger  *ledger.Ledger
	storage storage.Storage
	// faucet is the development-mode starting balance granted to new wallets.
	faucet float64
	logger *slog.Logger
}

func NewLedgerService(l *ledger.Ledger, store storage.Storage, faucet float64, logger *slog.Logger) LedgerService {
	return &ledgerService{
		ledger:  l,
		storage: store,
		faucet:  faucet,
		logger:  logger,
	}
}

// CreateWallet generates a key pair, derives the address, and persists the
// wallet. The returned value carries the private key; this is the only time
// it leaves the system, read paths never include it.
func (s *ledgerService) CreateWallet() (models.Wallet, error) {
	keys, err := ledger.GenerateKeyPair()
	if err != nil {
		s.logger.Error("key generation failed", "error", err)
		return models.Wallet{}, err
	}

	address, err := ledger.DeriveAddress(keys.PublicKey)
	if err != nil {
		return models.Wallet{}, err
	}

	wallet := models.Wallet{
		Address:     address,
		PublicKey:   keys.PublicKey,
		PrivateKey:  keys.PrivateKey,
		Balance:     s.faucet,
		SeedBalance: s.faucet,
	}
	if err := s.storage.CreateWallet(wallet); err != nil {
		return models.Wallet{}, err
	}

	s.logger.Info("wallet created", "address", address)
	return wallet, nil
}

func (s *ledgerService) GetWallet(address string) (models.Wallet, error) {
	if !ledger.ValidAddress(address) {
		return models.Wallet{}, ledger.ErrInvalidAddress
	}
	wallet, err := s.storage.GetWallet(address)
	if err != nil {
		return models.Wallet{}, err
	}
	wallet.PrivateKey = ""
	return wallet, nil
}

func (s *ledgerService) GetBalance(address string) (float64, error) {
	return s.ledger.Balance(address)
}

// SubmitTransaction signs the canonical payload with the sender's stored
// private key and admits the transaction to the pending pool. Balance and
// signature eligibility are checked at sealing time.
func (s *ledgerService) SubmitTransaction(from, to string, amount, fee float64) (models.Transaction, error) {
	if !ledger.ValidAddress(from) || !ledger.ValidAddress(to) {
		return models.Transaction{}, ledger.ErrInvalidAddress
	}

	sender, err := s.storage.GetWallet(from)
	if err != nil {
		return models.Transaction{}, err
	}

	tx := models.Transaction{
		From:      from,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Timestamp: time.Now().UnixNano(),
	}
	tx.Nonce = ledger.RandomNonce()

	sig, err := ledger.Sign(ledger.TransactionSigningPayload(&tx), sender.PrivateKey)
	if err != nil {
		s.logger.Error("transaction signing failed", "from", from, "error", err)
		return models.Transaction{}, err
	}
	tx.Signature = sig

	return s.ledger.Admit(tx)
}

func (s *ledgerService) GetTransactions(address, status string) ([]models.Transaction, error) {
	if !ledger.ValidAddress(address) {
		return nil, ledger.ErrInvalidAddress
	}
	return s.storage.TransactionsByAddress(address, status)
}

func (s *ledgerService) MineBlock(ctx context.Context) (models.Block, error) {
	block, err := s.ledger.SealBlock(ctx)
	if err != nil {
		return models.Block{}, err
	}
	return block, nil
}

func (s *ledgerService) GetBlock(index uint64) (models.Block, error) {
	return s.storage.BlockByIndex(index)
}

func (s *ledgerService) GetChain() ([]models.Block, error) {
	return s.storage.Blocks()
}

func (s *ledgerService) ValidateChain() (ledger.ValidationReport, error) {
	report, err := ledger.NewValidator(s.storage).ValidateChain()
	if err != nil {
		s.logger.Error("chain validation failed to load chain", "error", err)
		return ledger.ValidationReport{}, err
	}
	if !report.IsValid {
		s.logger.Warn("chain validation found issues", "findings", len(report.Findings))
	}
	return report, nil
}
