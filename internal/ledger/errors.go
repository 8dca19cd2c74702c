package ledger

import "errors"

// Errors surfaced by the ledger core. None of them is retried internally;
// retry policy, if any, belongs to the caller.
var (
	// ErrMalformedKey is returned when key material cannot be parsed for signing.
	ErrMalformedKey = errors.New("malformed key")

	// ErrInvalidAddress is returned when an address fails the 40-hex pattern.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrSelfTransfer is returned when a transaction sends to its own sender.
	ErrSelfTransfer = errors.New("cannot send to yourself")

	// ErrInvalidAmount is returned for non-positive amounts, negative fees,
	// or amounts finer than the 1e-8 granularity.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance marks a transaction whose sender cannot cover
	// amount+fee at sealing time.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidSignature marks a transaction whose signature does not verify
	// against the sender's current public key.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrNoEligibleTransactions is returned when sealing is attempted and no
	// pending transaction survives the admission policy.
	ErrNoEligibleTransactions = errors.New("no eligible transactions")
)
