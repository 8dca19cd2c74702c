package ledger

import (
	"context"
	"strings"
	"sync"
)

// Miner performs the proof-of-work nonce search. The search space is
// partitioned across workers (worker i tries nonces i, i+n, i+2n, ...) racing
// for the first hash with the required count of leading zero hex characters;
// the winner cancels the rest. Cancellation is advisory: a losing worker may
// finish its current attempt, its result is discarded.
type Miner struct {
	workers int
}

func NewMiner(workers int) *Miner {
	if workers < 1 {
		workers = 1
	}
	return &Miner{workers: workers}
}

// MeetsDifficulty reports whether hash starts with difficulty zero hex digits.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty > len(hash) {
		return false
	}
	return strings.HasPrefix(hash, strings.Repeat("0", difficulty))
}

type sealResult struct {
	hash  string
	nonce uint64
}

// Seal searches for a nonce such that the block header digest meets the
// difficulty target. It blocks until a valid pair is found or ctx is
// cancelled. The returned nonce is not guaranteed minimal or reproducible
// across runs; any valid pair satisfies the contract.
func (m *Miner) Seal(ctx context.Context, index uint64, previousHash string, timestamp int64, merkleRoot string, difficulty int) (string, uint64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan sealResult, m.workers)
	var wg sync.WaitGroup

	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func(start uint64) {
			defer wg.Done()
			step := uint64(m.workers)
			for nonce := start; ; nonce += step {
				select {
				case <-ctx.Done():
					return
				default:
				}

				hash := HashBlockHeader(index, previousHash, timestamp, merkleRoot, nonce)
				if MeetsDifficulty(hash, difficulty) {
					select {
					case results <- sealResult{hash: hash, nonce: nonce}:
					default:
					}
					cancel()
					return
				}
			}
		}(uint64(i))
	}

	wg.Wait()

	select {
	case r := <-results:
		return r.hash, r.nonce, nil
	default:
		return "", 0, ctx.Err()
	}
}
