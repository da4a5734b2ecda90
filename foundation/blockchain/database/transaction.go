package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/google/uuid"
)

// Unset marks a transaction field that does not apply to its kind.
const Unset = "-"

// TxType identifies the kind of a transaction.
type TxType string

// Set of transaction kinds.
const (
	TxCreateAccount TxType = "CREATE_ACCOUNT"
	TxTransact      TxType = "TRANSACT"
	TxMiningReward  TxType = "MINING_REWARD"
)

// TxData carries the kind of the transaction and, for account creation, the
// serialized account. The account is kept as raw JSON so the fields the
// sender provided can be checked exactly.
type TxData struct {
	TransactionType TxType          `json:"transactionType"`
	AccountData     json.RawMessage `json:"accountData,omitempty"`
}

// =============================================================================

// Tx is the transactional information between two parties. It holds every
// field of a transaction except the signature.
type Tx struct {
	ID       string `json:"id"`       // Unique id generated for the transaction.
	From     string `json:"from"`     // Address of the sender, Unset for rewards.
	To       string `json:"to"`       // Address or code hash of the receiver, Unset for account creation.
	Value    uint64 `json:"value"`    // Monetary value received from this transaction.
	GasLimit uint64 `json:"gasLimit"` // Maximum gas the sender will pay for contract execution.
	Data     TxData `json:"data"`     // Kind of the transaction and its payload.
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if !signature.IsAddress(tx.From) {
		return SignedTx{}, fmt.Errorf("from account is not properly formatted")
	}

	if tx.From != signature.PublicKeyToAddress(privateKey.PublicKey) {
		return SignedTx{}, fmt.Errorf("private key does not belong to the from account")
	}

	sig, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:        tx,
		Signature: sig,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a transaction with its signature. This is how transactions are
// pooled, gossiped and recorded inside blocks. Unsigned kinds carry Unset as
// their signature.
type SignedTx struct {
	Tx
	Signature string `json:"signature"`
}

// Type returns the kind of the transaction.
func (tx SignedTx) Type() TxType {
	return tx.Data.TransactionType
}

// VerifySignature checks the signature was produced by the from account over
// every other field of the transaction.
func (tx SignedTx) VerifySignature() bool {
	return signature.Verify(tx.From, tx.Tx, tx.Signature)
}

// Account decodes the account carried by an account creation transaction.
func (tx SignedTx) Account() (Account, error) {
	var account Account
	if err := json.Unmarshal(tx.Data.AccountData, &account); err != nil {
		return Account{}, fmt.Errorf("decoding account data for transaction id %s: %w", tx.ID, err)
	}

	return account, nil
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s:%s:%s->%s:%d", tx.Type(), tx.ID, short(tx.From), short(tx.To), tx.Value)
}

// =============================================================================

// NewCreateAccountTx constructs the unsigned transaction that adds the
// account to the world state.
func NewCreateAccountTx(account Account) (SignedTx, error) {
	data, err := signature.Marshal(account)
	if err != nil {
		return SignedTx{}, err
	}

	tx := SignedTx{
		Tx: Tx{
			ID:   uuid.NewString(),
			From: account.Address,
			To:   Unset,
			Data: TxData{
				TransactionType: TxCreateAccount,
				AccountData:     data,
			},
		},
		Signature: Unset,
	}

	return tx, nil
}

// NewTransactTx constructs and signs a value transfer from the sender to the
// receiver, which may be an address or the code hash of a contract.
func NewTransactTx(sender *ecdsa.PrivateKey, to string, value uint64, gasLimit uint64) (SignedTx, error) {
	tx := Tx{
		ID:       uuid.NewString(),
		From:     signature.PublicKeyToAddress(sender.PublicKey),
		To:       to,
		Value:    value,
		GasLimit: gasLimit,
		Data: TxData{
			TransactionType: TxTransact,
		},
	}

	return tx.Sign(sender)
}

// NewMiningRewardTx constructs the unsigned transaction paying the reward to
// the beneficiary of a block.
func NewMiningRewardTx(beneficiary string, reward uint64) SignedTx {
	return SignedTx{
		Tx: Tx{
			ID:    uuid.NewString(),
			From:  Unset,
			To:    beneficiary,
			Value: reward,
			Data: TxData{
				TransactionType: TxMiningReward,
			},
		},
		Signature: Unset,
	}
}

// TxArgs describes the transaction CreateTx should construct.
type TxArgs struct {
	Beneficiary string            // When set, a mining reward is produced.
	Receiver    string            // When set, a signed value transfer is produced.
	Sender      *ecdsa.PrivateKey // Signs the transfer.
	Account     Account           // The account to create when neither of the above are set.
	Value       uint64
	GasLimit    uint64
	Reward      uint64
}

// CreateTx selects the kind of transaction to construct from the arguments
// provided: a beneficiary produces a mining reward, a receiver produces a
// signed transfer and otherwise the account is created.
func CreateTx(args TxArgs) (SignedTx, error) {
	switch {
	case args.Beneficiary != "":
		return NewMiningRewardTx(args.Beneficiary, args.Reward), nil

	case args.Receiver != "":
		if args.Sender == nil {
			return SignedTx{}, fmt.Errorf("a sender is required to transfer value")
		}
		return NewTransactTx(args.Sender, args.Receiver, args.Value, args.GasLimit)

	default:
		return NewCreateAccountTx(args.Account)
	}
}

// =============================================================================

// short trims long addresses for log output.
func short(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
