package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// Sentinel values of the genesis block header. Every node must use the
// exact same values.
const (
	GenesisParentHash       = "--genesis-parent-hash--"
	GenesisBeneficiary      = "--genesis-beneficiary--"
	GenesisTimestamp        = "--genesis-timestamp--"
	GenesisTransactionsRoot = "--genesis-transactions-root--"
	GenesisStateRoot        = "--genesis-root-hash--"
)

// Set of errors a block can be rejected with. The messages are shared with
// every other node on the network.
var (
	ErrParentHash       = errors.New("The parent hash must be a hash of the last block's header")
	ErrBlockNumber      = errors.New("The block must increment the number by 1")
	ErrDifficulty       = errors.New("The difficulty must only adjust by 1")
	ErrProofOfWork      = errors.New("The block does not meet the proof of work requirement")
	ErrTransactionsRoot = errors.New("The transactions root must be a hash of the transaction series")
)

// maxHash is the largest value a hash can represent, 2^256-1.
var maxHash = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// =============================================================================

// Timestamp is the time a block was mined in Unix milliseconds. The zero
// value is the genesis timestamp and is serialized as its sentinel string.
type Timestamp int64

// Now returns the current time as a timestamp.
func Now() Timestamp {
	return Timestamp(time.Now().UTC().UnixMilli())
}

// MarshalJSON implements the json.Marshaler interface.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts == 0 {
		return json.Marshal(GenesisTimestamp)
	}
	return []byte(strconv.FormatInt(int64(ts), 10)), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != GenesisTimestamp {
			return fmt.Errorf("invalid timestamp %q", s)
		}
		*ts = 0
		return nil
	}

	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*ts = Timestamp(v)

	return nil
}

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	ParentHash       string    `json:"parentHash"`       // Hash of the parent block's header.
	Beneficiary      string    `json:"beneficiary"`      // Account receiving the mining reward.
	Difficulty       uint64    `json:"difficulty"`       // Difficulty adjusted from the parent block.
	Number           uint64    `json:"number"`           // Block number in the chain.
	Timestamp        Timestamp `json:"timestamp"`        // Time the block was mined.
	TransactionsRoot string    `json:"transactionsRoot"` // Hash of the transaction series.
	StateRoot        string    `json:"stateRoot"`        // Root of the world state the series applies on top of.
	Nonce            uint64    `json:"nonce"`            // Value identified to solve the proof of work.
}

// truncatedHeader is the header without the nonce. It is what the proof
// of work hashes together with a candidate nonce.
type truncatedHeader struct {
	ParentHash       string    `json:"parentHash"`
	Beneficiary      string    `json:"beneficiary"`
	Difficulty       uint64    `json:"difficulty"`
	Number           uint64    `json:"number"`
	Timestamp        Timestamp `json:"timestamp"`
	TransactionsRoot string    `json:"transactionsRoot"`
	StateRoot        string    `json:"stateRoot"`
}

func (bh BlockHeader) truncate() truncatedHeader {
	return truncatedHeader{
		ParentHash:       bh.ParentHash,
		Beneficiary:      bh.Beneficiary,
		Difficulty:       bh.Difficulty,
		Number:           bh.Number,
		Timestamp:        bh.Timestamp,
		TransactionsRoot: bh.TransactionsRoot,
		StateRoot:        bh.StateRoot,
	}
}

// Block represents a group of transactions batched together.
type Block struct {
	Header            BlockHeader `json:"blockHeaders"`
	TransactionSeries []SignedTx  `json:"transactionSeries"`
}

// Genesis returns the first block of every chain.
func Genesis() Block {
	return Block{
		Header: BlockHeader{
			ParentHash:       GenesisParentHash,
			Beneficiary:      GenesisBeneficiary,
			Difficulty:       1,
			Number:           0,
			Timestamp:        0,
			TransactionsRoot: GenesisTransactionsRoot,
			StateRoot:        GenesisStateRoot,
			Nonce:            0,
		},
		TransactionSeries: []SignedTx{},
	}
}

// Hash returns the unique hash for the Block. Only the header is hashed, the
// header commits to the transactions through the transactions root.
func (b Block) Hash() string {
	return signature.Hash(b.Header)
}

// IsGenesis reports whether the block is identical to the genesis block.
func (b Block) IsGenesis() bool {
	return signature.Hash(b.normalize()) == signature.Hash(Genesis())
}

// normalize replaces a nil series with an empty one so blocks hash the
// same way no matter how they were constructed.
func (b Block) normalize() Block {
	if b.TransactionSeries == nil {
		b.TransactionSeries = []SignedTx{}
	}
	return b
}

// =============================================================================

// TransactionsRoot returns the hash of the transaction series.
func TransactionsRoot(series []SignedTx) string {
	if series == nil {
		series = []SignedTx{}
	}
	return signature.Hash(series)
}

// TargetHash returns the hash a block mined on top of the parent must be
// at or below. The target is the maximum hash divided by the parent's
// difficulty as 64 hex characters.
func TargetHash(parent Block) string {
	if parent.Header.Difficulty == 0 {
		return fmt.Sprintf("%064x", maxHash)
	}

	target := new(big.Int).Div(maxHash, new(big.Int).SetUint64(parent.Header.Difficulty))
	return fmt.Sprintf("%064x", target)
}

// AdjustDifficulty returns the difficulty of a block mined on top of the
// parent at the timestamp. Difficulty drops by one when the block took longer
// than the mine rate and rises by one otherwise. It never drops below one.
func AdjustDifficulty(parent Block, timestamp Timestamp, mineRate time.Duration) uint64 {
	difficulty := parent.Header.Difficulty

	// The genesis timestamp is not a time, so the gap never exceeds.
	if parent.Header.Timestamp != 0 {
		gap := int64(timestamp) - int64(parent.Header.Timestamp)
		if gap > mineRate.Milliseconds() {
			if difficulty <= 1 {
				return 1
			}
			return difficulty - 1
		}
	}

	if difficulty < 1 {
		return 1
	}

	return difficulty + 1
}

// powHash returns the hash compared against the target: the hash of the
// truncated header's hash joined with the nonce.
func powHash(header BlockHeader) string {
	return signature.Hash(signature.Hash(header.truncate()) + strconv.FormatUint(header.Nonce, 10))
}

// =============================================================================

// POWArgs provides the values needed to mine a new block.
type POWArgs struct {
	Parent            Block
	Beneficiary       string
	TransactionSeries []SignedTx
	StateRoot         string
	MineRate          time.Duration
	EvHandler         func(v string, args ...any)
}

// POW constructs a new Block on top of the parent and performs the work to
// find a nonce that solves the proof of work. Each attempt stamps a fresh
// time and draws a random nonce. The work stops when the context is done.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	series := args.TransactionSeries
	if series == nil {
		series = []SignedTx{}
	}

	target := TargetHash(args.Parent)
	parentHash := args.Parent.Hash()
	txRoot := TransactionsRoot(series)

	ev("database: POW: MINING: started: blk[%d]: target[%s]", args.Parent.Header.Number+1, target)
	defer ev("database: POW: MINING: completed")

	for _, tx := range series {
		ev("database: POW: MINING: tx[%s]", tx)
	}

	var attempts uint64
	for {
		attempts++
		if attempts%100_000 == 0 {
			ev("database: POW: MINING: attempts[%d]", attempts)
		}

		if ctx.Err() != nil {
			ev("database: POW: MINING: CANCELLED")
			return Block{}, ctx.Err()
		}

		timestamp := Now()
		header := BlockHeader{
			ParentHash:       parentHash,
			Beneficiary:      args.Beneficiary,
			Difficulty:       AdjustDifficulty(args.Parent, timestamp, args.MineRate),
			Number:           args.Parent.Header.Number + 1,
			Timestamp:        timestamp,
			TransactionsRoot: txRoot,
			StateRoot:        args.StateRoot,
			Nonce:            rand.Uint64(),
		}

		if powHash(header) > target {
			continue
		}

		ev("database: POW: MINING: SOLVED: blk[%d]: attempts[%d]", header.Number, attempts)

		block := Block{
			Header:            header,
			TransactionSeries: series,
		}

		return block, nil
	}
}

// ValidateBlock takes a block and validates it to be included on top of
// the parent block. The genesis block is always valid.
func (b Block) ValidateBlock(parent Block, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if b.IsGenesis() {
		evHandler("database: ValidateBlock: validate: blk[%d]: genesis", b.Header.Number)
		return nil
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.ParentHash != parent.Hash() {
		return ErrParentHash
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	if b.Header.Number != parent.Header.Number+1 {
		return ErrBlockNumber
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: difficulty adjusted by at most one", b.Header.Number)

	if diff(b.Header.Difficulty, parent.Header.Difficulty) > 1 {
		return ErrDifficulty
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Number)

	if powHash(b.Header) > TargetHash(parent) {
		return ErrProofOfWork
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions root does match transactions", b.Header.Number)

	if b.Header.TransactionsRoot != TransactionsRoot(b.TransactionSeries) {
		return ErrTransactionsRoot
	}

	return nil
}

// diff returns the absolute difference between the two values.
func diff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
