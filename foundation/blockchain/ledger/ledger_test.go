package ledger_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	keyA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	keyB = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// =============================================================================

func Test_AddBlock(t *testing.T) {
	pkA := privateKey(t, keyA)
	pkB := privateKey(t, keyB)

	a := database.NewAccountFromKey(pkA, genesis.DefaultStartingBalance, nil)
	b := database.NewAccountFromKey(pkB, genesis.DefaultStartingBalance, nil)

	l := ledger.New(genesis.Default(), nil)
	pool := mempool.New()

	t.Log("Given the need to add blocks to the ledger.")
	{
		createA := createTx(t, a)
		createB := createTx(t, b)
		pool.Upsert(createA)
		pool.Upsert(createB)

		if err := l.AddBlock(mine(t, l, a.Address, pool.TransactionSeries()), pool); err != nil {
			t.Fatalf("\t%s\tShould be able to add the block creating the accounts: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to add the block creating the accounts.", success)

		checkBalance(t, l, a.Address, 1000)
		checkBalance(t, l, b.Address, 1000)

		tx, err := database.NewTransactTx(pkA, b.Address, 20, 0)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to sign the transfer: %v", failed, err)
		}
		pool.Upsert(tx)

		root := l.StateRoot()
		if err := l.AddBlock(mine(t, l, a.Address, pool.TransactionSeries()), pool); err != nil {
			t.Fatalf("\t%s\tShould be able to add the block with the transfer: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to add the block with the transfer.", success)

		checkBalance(t, l, a.Address, 980)
		checkBalance(t, l, b.Address, 1020)
		t.Logf("\t%s\tShould move the value between the accounts.", success)

		if l.StateRoot() == root {
			t.Fatalf("\t%s\tShould change the world state root.", failed)
		}
		t.Logf("\t%s\tShould change the world state root.", success)

		if pool.Count() != 0 {
			t.Fatalf("\t%s\tShould remove mined transactions from the pool, got %d.", failed, pool.Count())
		}
		t.Logf("\t%s\tShould remove mined transactions from the pool.", success)

		if l.Length() != 3 || l.LatestBlock().Header.Number != 2 {
			t.Fatalf("\t%s\tShould have a chain of three blocks, got %d.", failed, l.Length())
		}
		t.Logf("\t%s\tShould have a chain of three blocks.", success)
	}
}

func Test_AddBlockRejects(t *testing.T) {
	pkA := privateKey(t, keyA)
	a := database.NewAccountFromKey(pkA, genesis.DefaultStartingBalance, nil)
	b := database.NewAccountFromKey(privateKey(t, keyB), genesis.DefaultStartingBalance, nil)

	l := ledger.New(genesis.Default(), nil)
	if err := l.AddBlock(mine(t, l, a.Address, []database.SignedTx{createTx(t, a), createTx(t, b)}), nil); err != nil {
		t.Fatalf("Should be able to add the block creating the accounts: %v", err)
	}

	overdraw, err := database.NewTransactTx(pkA, b.Address, 5000, 0)
	if err != nil {
		t.Fatalf("Should be able to sign the transfer: %v", err)
	}

	type table struct {
		name  string
		block func() database.Block
		err   error
	}

	tt := []table{
		{
			name: "parent-hash",
			block: func() database.Block {
				block := mine(t, l, a.Address, nil)
				block.Header.ParentHash = "tampered"
				return block
			},
			err: database.ErrParentHash,
		},
		{
			name: "state-root",
			block: func() database.Block {
				block, err := database.POW(context.Background(), database.POWArgs{
					Parent:      l.LatestBlock(),
					Beneficiary: a.Address,
					StateRoot:   "wrong",
					MineRate:    genesis.Default().MineRate(),
				})
				if err != nil {
					t.Fatalf("Should be able to mine a block: %v", err)
				}
				return block
			},
			err: ledger.ErrStateRoot,
		},
		{
			name: "insufficient-funds",
			block: func() database.Block {
				return mine(t, l, a.Address, []database.SignedTx{overdraw})
			},
			err: database.ErrInsufficientFunds,
		},
		{
			name: "reward-value",
			block: func() database.Block {
				return mine(t, l, a.Address, []database.SignedTx{database.NewMiningRewardTx(a.Address, 1_000_000)})
			},
			err: database.ErrMiningReward,
		},
		{
			name:  "genesis",
			block: database.Genesis,
			err:   ledger.ErrGenesisBlock,
		},
	}

	t.Log("Given the need to reject invalid blocks.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a block with a bad %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					root := l.StateRoot()
					length := l.Length()

					err := l.AddBlock(tst.block(), nil)
					if !errors.Is(err, tst.err) {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
						t.Fatalf("\t%s\tTest %d:\tShould reject the block.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the block.", success, testID)

					if l.StateRoot() != root || l.Length() != length {
						t.Fatalf("\t%s\tTest %d:\tShould leave the chain and state untouched.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould leave the chain and state untouched.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_ReplaceChain(t *testing.T) {
	pkA := privateKey(t, keyA)
	a := database.NewAccountFromKey(pkA, genesis.DefaultStartingBalance, nil)
	b := database.NewAccountFromKey(privateKey(t, keyB), genesis.DefaultStartingBalance, nil)

	source := ledger.New(genesis.Default(), nil)
	if err := source.AddBlock(mine(t, source, a.Address, []database.SignedTx{createTx(t, a), createTx(t, b)}), nil); err != nil {
		t.Fatalf("Should be able to add a block: %v", err)
	}

	tx, err := database.NewTransactTx(pkA, b.Address, 20, 0)
	if err != nil {
		t.Fatalf("Should be able to sign the transfer: %v", err)
	}
	series := []database.SignedTx{tx, database.NewMiningRewardTx(a.Address, genesis.DefaultMiningReward)}
	if err := source.AddBlock(mine(t, source, a.Address, series), nil); err != nil {
		t.Fatalf("Should be able to add a block: %v", err)
	}

	t.Log("Given the need to replace the chain with a peer's chain.")
	{
		local := ledger.New(genesis.Default(), nil)
		pool := mempool.New()
		pool.Upsert(tx)

		if err := local.ReplaceChain(source.Chain(), pool); err != nil {
			t.Fatalf("\t%s\tShould be able to replace the chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to replace the chain.", success)

		if local.StateRoot() != source.StateRoot() || local.Length() != source.Length() {
			t.Fatalf("\t%s\tShould end up with the same chain and world state.", failed)
		}
		checkBalance(t, local, a.Address, 980+genesis.DefaultMiningReward)
		t.Logf("\t%s\tShould end up with the same chain and world state.", success)

		if pool.Count() != 0 {
			t.Fatalf("\t%s\tShould prune the pool of included transactions.", failed)
		}
		t.Logf("\t%s\tShould prune the pool of included transactions.", success)

		if err := local.ReplaceChain(source.Chain(), nil); !errors.Is(err, ledger.ErrChainSync) {
			t.Fatalf("\t%s\tShould reject a chain that is not longer, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a chain that is not longer.", success)
	}
}

func Test_ReplaceChainAbort(t *testing.T) {
	a := database.NewAccountFromKey(privateKey(t, keyA), genesis.DefaultStartingBalance, nil)

	source := ledger.New(genesis.Default(), nil)
	for i := 0; i < 3; i++ {
		var series []database.SignedTx
		if i == 0 {
			series = []database.SignedTx{createTx(t, a)}
		}
		if err := source.AddBlock(mine(t, source, a.Address, series), nil); err != nil {
			t.Fatalf("Should be able to add block %d: %v", i+1, err)
		}
	}

	local := ledger.New(genesis.Default(), nil)
	if err := local.AddBlock(mine(t, local, "local", nil), nil); err != nil {
		t.Fatalf("Should be able to add a local block: %v", err)
	}
	head := local.LatestBlock().Hash()
	root := local.StateRoot()

	t.Log("Given the need to abort an invalid chain replacement.")
	{
		candidate := source.Chain()
		candidate[2].Header.Nonce++
		candidate[2].Header.Difficulty += 5

		err := local.ReplaceChain(candidate, nil)
		if !errors.Is(err, ledger.ErrChainSync) || !errors.Is(err, database.ErrDifficulty) {
			t.Fatalf("\t%s\tShould report a synchronization failure, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould report a synchronization failure.", success)

		if local.LatestBlock().Hash() != head || local.StateRoot() != root || local.Length() != 2 {
			t.Fatalf("\t%s\tShould leave the local chain untouched.", failed)
		}
		t.Logf("\t%s\tShould leave the local chain untouched.", success)

		candidate = source.Chain()
		candidate[0].Header.Beneficiary = "someone"
		if err := local.ReplaceChain(candidate, nil); !errors.Is(err, ledger.ErrChainSync) {
			t.Fatalf("\t%s\tShould reject a chain without the genesis block, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a chain without the genesis block.", success)
	}
}

func Test_Blocks(t *testing.T) {
	l := ledger.New(genesis.Default(), nil)
	for i := 0; i < 2; i++ {
		if err := l.AddBlock(mine(t, l, "miner", nil), nil); err != nil {
			t.Fatalf("Should be able to add block %d: %v", i+1, err)
		}
	}

	if blocks := l.Blocks(1, 10); len(blocks) != 2 || blocks[0].Header.Number != 1 {
		t.Fatalf("Should get blocks 1 through the head, got %d.", len(blocks))
	}

	if blocks := l.Blocks(5, 10); len(blocks) != 0 {
		t.Fatalf("Should get no blocks past the head, got %d.", len(blocks))
	}
}

// =============================================================================

func privateKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load private key: %v", err)
	}
	return pk
}

func createTx(t *testing.T, account database.Account) database.SignedTx {
	t.Helper()

	tx, err := database.NewCreateAccountTx(account)
	if err != nil {
		t.Fatalf("Should be able to construct an account creation: %v", err)
	}
	return tx
}

func mine(t *testing.T, l *ledger.Ledger, beneficiary string, series []database.SignedTx) database.Block {
	t.Helper()

	block, err := database.POW(context.Background(), database.POWArgs{
		Parent:            l.LatestBlock(),
		Beneficiary:       beneficiary,
		TransactionSeries: series,
		StateRoot:         l.StateRoot(),
		MineRate:          l.Genesis().MineRate(),
	})
	if err != nil {
		t.Fatalf("Should be able to mine a block: %v", err)
	}
	return block
}

func checkBalance(t *testing.T, l *ledger.Ledger, key string, exp uint64) {
	t.Helper()

	account, exists, err := l.GetAccount(key)
	if err != nil || !exists {
		t.Fatalf("\t%s\tShould find account %s: %v", failed, key, err)
	}
	if account.Balance != exp {
		t.Logf("\t%s\tgot: %d", failed, account.Balance)
		t.Logf("\t%s\texp: %d", failed, exp)
		t.Fatalf("\t%s\tShould have the right balance for %s.", failed, key)
	}
}
