package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"blockledger/internal/ledger"
	"blockledger/internal/models"
	"blockledger/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStorage implements storage.Storage for tests.
type mockStorage struct {
	createWalletFn          func(w models.Wallet) error
	getWalletFn             func(address string) (models.Wallet, error)
	setWalletBalanceFn      func(address string, balance float64) error
	saveTransactionFn       func(tx models.Transaction) error
	getTransactionFn        func(hash string) (models.Transaction, error)
	pendingTransactionsFn   func() ([]models.Transaction, error)
	markTransactionFailedFn func(hash string) error
	transactionsByAddressFn func(address, status string) ([]models.Transaction, error)
	appendBlockFn           func(b models.Block) error
	commitBlockFn           func(b models.Block, confirmed []string, deltas []storage.BalanceDelta) error
	headBlockFn             func() (models.Block, error)
	blockByIndexFn          func(index uint64) (models.Block, error)
	blocksFn                func() ([]models.Block, error)
	chainHeightFn           func() (int, error)
}

func (m *mockStorage) Init() error { return nil }

func (m *mockStorage) CreateWallet(w models.Wallet) error {
	if m.createWalletFn != nil {
		return m.createWalletFn(w)
	}
	panic("not implemented")
}

func (m *mockStorage) GetWallet(address string) (models.Wallet, error) {
	if m.getWalletFn != nil {
		return m.getWalletFn(address)
	}
	panic("not implemented")
}

func (m *mockStorage) SetWalletBalance(address string, balance float64) error {
	if m.setWalletBalanceFn != nil {
		return m.setWalletBalanceFn(address, balance)
	}
	panic("not implemented")
}

func (m *mockStorage) SaveTransaction(tx models.Transaction) error {
	if m.saveTransactionFn != nil {
		return m.saveTransactionFn(tx)
	}
	panic("not implemented")
}

func (m *mockStorage) GetTransaction(hash string) (models.Transaction, error) {
	if m.getTransactionFn != nil {
		return m.getTransactionFn(hash)
	}
	panic("not implemented")
}

func (m *mockStorage) PendingTransactions() ([]models.Transaction, error) {
	if m.pendingTransactionsFn != nil {
		return m.pendingTransactionsFn()
	}
	panic("not implemented")
}

func (m *mockStorage) MarkTransactionFailed(hash string) error {
	if m.markTransactionFailedFn != nil {
		return m.markTransactionFailedFn(hash)
	}
	panic("not implemented")
}

func (m *mockStorage) TransactionsByAddress(address, status string) ([]models.Transaction, error) {
	if m.transactionsByAddressFn != nil {
		return m.transactionsByAddressFn(address, status)
	}
	panic("not implemented")
}

func (m *mockStorage) AppendBlock(b models.Block) error {
	if m.appendBlockFn != nil {
		return m.appendBlockFn(b)
	}
	panic("not implemented")
}

func (m *mockStorage) CommitBlock(b models.Block, confirmed []string, deltas []storage.BalanceDelta) error {
	if m.commitBlockFn != nil {
		return m.commitBlockFn(b, confirmed, deltas)
	}
	panic("not implemented")
}

func (m *mockStorage) HeadBlock() (models.Block, error) {
	if m.headBlockFn != nil {
		return m.headBlockFn()
	}
	panic("not implemented")
}

func (m *mockStorage) BlockByIndex(index uint64) (models.Block, error) {
	if m.blockByIndexFn != nil {
		return m.blockByIndexFn(index)
	}
	panic("not implemented")
}

func (m *mockStorage) Blocks() ([]models.Block, error) {
	if m.blocksFn != nil {
		return m.blocksFn()
	}
	panic("not implemented")
}

func (m *mockStorage) ChainHeight() (int, error) {
	if m.chainHeightFn != nil {
		return m.chainHeightFn()
	}
	panic("not implemented")
}

// setupTestService builds a service over a mock store seeded with an
// already-present genesis block.
func setupTestService(t *testing.T, faucet float64) (LedgerService, *mockStorage) {
	t.Helper()

	mock := &mockStorage{
		chainHeightFn: func() (int, error) { return 1, nil },
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	led, err := ledger.New(mock, ledger.Params{Difficulty: 1, Workers: 1}, logger)
	require.NoError(t, err)

	return NewLedgerService(led, mock, faucet, logger), mock
}

func TestCreateWallet_Success(t *testing.T) {
	service, mock := setupTestService(t, 100)

	var created models.Wallet
	mock.createWalletFn = func(w models.Wallet) error {
		created = w
		return nil
	}

	wallet, err := service.CreateWallet()
	require.NoError(t, err)

	assert.True(t, ledger.ValidAddress(wallet.Address))
	assert.NotEmpty(t, wallet.PublicKey)
	assert.NotEmpty(t, wallet.PrivateKey)
	assert.Equal(t, 100.0, wallet.Balance)
	assert.Equal(t, wallet.Address, created.Address)
	assert.Equal(t, 100.0, created.SeedBalance)

	// The address is the derived form of the public key.
	derived, err := ledger.DeriveAddress(wallet.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, derived, wallet.Address)
}

func TestGetWallet_StripsPrivateKey(t *testing.T) {
	service, mock := setupTestService(t, 0)
	address := "0123456789abcdef0123456789abcdef01234567"

	mock.getWalletFn = func(addr string) (models.Wallet, error) {
		assert.Equal(t, address, addr)
		return models.Wallet{Address: addr, PublicKey: "pub", PrivateKey: "secret", Balance: 5}, nil
	}

	wallet, err := service.GetWallet(address)
	require.NoError(t, err)
	assert.Empty(t, wallet.PrivateKey)
	assert.Equal(t, "pub", wallet.PublicKey)
}

func TestGetWallet_InvalidAddress(t *testing.T) {
	service, _ := setupTestService(t, 0)

	_, err := service.GetWallet(uuid.NewString())
	assert.ErrorIs(t, err, ledger.ErrInvalidAddress)
}

func TestSubmitTransaction_SignsWithStoredKey(t *testing.T) {
	service, mock := setupTestService(t, 0)

	keys, err := ledger.GenerateKeyPair()
	require.NoError(t, err)
	from, err := ledger.DeriveAddress(keys.PublicKey)
	require.NoError(t, err)
	to := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	mock.getWalletFn = func(addr string) (models.Wallet, error) {
		return models.Wallet{Address: from, PublicKey: keys.PublicKey, PrivateKey: keys.PrivateKey}, nil
	}

	var saved models.Transaction
	mock.saveTransactionFn = func(tx models.Transaction) error {
		saved = tx
		return nil
	}

	tx, err := service.SubmitTransaction(from, to, 10, 0.001)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, tx.Hash, saved.Hash)
	assert.True(t, ledger.Verify(ledger.TransactionSigningPayload(&saved), saved.Signature, keys.PublicKey))
}

func TestSubmitTransaction_InvalidAddress(t *testing.T) {
	service, _ := setupTestService(t, 0)

	_, err := service.SubmitTransaction("bad", "also-bad", 10, 0.001)
	assert.ErrorIs(t, err, ledger.ErrInvalidAddress)
}

func TestSubmitTransaction_UnknownSender(t *testing.T) {
	service, mock := setupTestService(t, 0)

	mock.getWalletFn = func(addr string) (models.Wallet, error) {
		return models.Wallet{}, storage.ErrWalletNotFound
	}

	_, err := service.SubmitTransaction(
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		10, 0.001,
	)
	assert.ErrorIs(t, err, storage.ErrWalletNotFound)
}

func TestGetTransactions_InvalidAddress(t *testing.T) {
	service, _ := setupTestService(t, 0)

	_, err := service.GetTransactions("nope", "")
	assert.ErrorIs(t, err, ledger.ErrInvalidAddress)
}

func TestMineBlock_NoEligible(t *testing.T) {
	service, mock := setupTestService(t, 0)

	mock.pendingTransactionsFn = func() ([]models.Transaction, error) { return nil, nil }

	_, err := service.MineBlock(context.Background())
	assert.ErrorIs(t, err, ledger.ErrNoEligibleTransactions)
}

func TestGetChain_PropagatesStorageError(t *testing.T) {
	service, mock := setupTestService(t, 0)

	mock.blocksFn = func() ([]models.Block, error) { return nil, errors.New("db error") }

	_, err := service.GetChain()
	assert.Error(t, err)
}

func TestValidateChain_ReportsFindings(t *testing.T) {
	service, mock := setupTestService(t, 0)

	// A block whose stored hash does not re-derive.
	mock.blocksFn = func() ([]models.Block, error) {
		return []models.Block{{Index: 0, PreviousHash: "p", Hash: "bogus", MerkleRoot: ledger.MerkleRoot(nil)}}, nil
	}

	report, err := service.ValidateChain()
	require.NoError(t, err)
	assert.False(t, report.IsValid)
}
