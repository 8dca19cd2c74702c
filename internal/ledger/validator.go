package ledger

import (
	"blockledger/internal/models"
	"blockledger/internal/storage"
)

// Validation finding kinds. Findings never mutate state and never abort the
// run; one bad block does not stop validation of the rest of the chain.
const (
	FindingIndexMismatch    = "IndexMismatch"
	FindingLinkageBroken    = "LinkageBroken"
	FindingHashMismatch     = "HashMismatch"
	FindingMerkleMismatch   = "MerkleMismatch"
	FindingInvalidSignature = "InvalidSignature"
)

// Finding is a single validation failure located at a block, and for
// signature failures, at a transaction.
type Finding struct {
	Kind            string `json:"kind"`
	BlockIndex      uint64 `json:"block_index"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

// ValidationReport aggregates every finding across the chain.
type ValidationReport struct {
	IsValid  bool      `json:"is_valid"`
	Blocks   int       `json:"blocks"`
	Findings []Finding `json:"findings"`
}

// Validator re-derives every structural and cryptographic invariant of a
// stored chain. It is read-only and independent of the write path; results
// reflect a point-in-time snapshot.
type Validator struct {
	store storage.Storage
}

func NewValidator(store storage.Storage) *Validator {
	return &Validator{store: store}
}

// ValidateChain loads the full chain with its transactions and validates it.
func (v *Validator) ValidateChain() (ValidationReport, error) {
	blocks, err := v.store.Blocks()
	if err != nil {
		return ValidationReport{}, err
	}
	return v.Validate(blocks), nil
}

// Validate checks contiguity, linkage, block hashes, Merkle roots, and
// transaction signatures for every block in chain order.
func (v *Validator) Validate(chain []models.Block) ValidationReport {
	report := ValidationReport{Blocks: len(chain)}

	for i := range chain {
		block := &chain[i]

		if block.Index != uint64(i) {
			report.add(Finding{
				Kind:       FindingIndexMismatch,
				BlockIndex: block.Index,
				Detail:     "block index does not match chain position",
			})
		}

		if i > 0 && block.PreviousHash != chain[i-1].Hash {
			report.add(Finding{
				Kind:       FindingLinkageBroken,
				BlockIndex: block.Index,
				Detail:     "previous hash does not match preceding block",
			})
		}

		recomputed := HashBlockHeader(block.Index, block.PreviousHash, block.Timestamp, block.MerkleRoot, block.Nonce)
		if recomputed != block.Hash {
			report.add(Finding{
				Kind:       FindingHashMismatch,
				BlockIndex: block.Index,
				Detail:     "stored hash does not match recomputed header digest",
			})
		}

		hashes := make([]string, len(block.Transactions))
		for j := range block.Transactions {
			hashes[j] = block.Transactions[j].Hash
		}
		if MerkleRoot(hashes) != block.MerkleRoot {
			report.add(Finding{
				Kind:       FindingMerkleMismatch,
				BlockIndex: block.Index,
				Detail:     "stored merkle root does not match recomputed root",
			})
		}

		for j := range block.Transactions {
			tx := &block.Transactions[j]
			if !v.signatureValid(tx) {
				report.add(Finding{
					Kind:            FindingInvalidSignature,
					BlockIndex:      block.Index,
					TransactionHash: tx.Hash,
					Detail:          "signature does not verify against sender's current public key",
				})
			}
		}
	}

	report.IsValid = len(report.Findings) == 0
	return report
}

// signatureValid re-verifies a transaction against the sender's current
// public key. A missing sender wallet counts as an invalid signature: the
// transaction can no longer be verified.
func (v *Validator) signatureValid(tx *models.Transaction) bool {
	sender, err := v.store.GetWallet(tx.From)
	if err != nil {
		return false
	}
	return Verify(TransactionSigningPayload(tx), tx.Signature, sender.PublicKey)
}

func (r *ValidationReport) add(f Finding) {
	r.Findings = append(r.Findings, f)
}
