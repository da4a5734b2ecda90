package public

import (
	"encoding/json"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// submitTx is the transaction a wallet submits. Only the kinds a wallet
// may create are accepted.
type submitTx struct {
	ID        string       `json:"id" validate:"required,uuid"`
	From      string       `json:"from" validate:"required"`
	To        string       `json:"to" validate:"required"`
	Value     uint64       `json:"value"`
	GasLimit  uint64       `json:"gasLimit"`
	Data      submitTxData `json:"data"`
	Signature string       `json:"signature" validate:"required"`
}

type submitTxData struct {
	TransactionType string          `json:"transactionType" validate:"required,oneof=CREATE_ACCOUNT TRANSACT"`
	AccountData     json.RawMessage `json:"accountData,omitempty"`
}

func (st submitTx) toSignedTx() database.SignedTx {
	return database.SignedTx{
		Tx: database.Tx{
			ID:       st.ID,
			From:     st.From,
			To:       st.To,
			Value:    st.Value,
			GasLimit: st.GasLimit,
			Data: database.TxData{
				TransactionType: database.TxType(st.Data.TransactionType),
				AccountData:     st.Data.AccountData,
			},
		},
		Signature: st.Signature,
	}
}

// =============================================================================

type tx struct {
	ID        string          `json:"id"`
	Type      database.TxType `json:"type"`
	From      string          `json:"from"`
	FromName  string          `json:"from_name"`
	To        string          `json:"to"`
	ToName    string          `json:"to_name"`
	Value     uint64          `json:"value"`
	GasLimit  uint64          `json:"gas_limit"`
	Signature string          `json:"signature"`
}

type account struct {
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Balance     uint64            `json:"balance"`
	IsContract  bool              `json:"is_contract"`
	CodeHash    database.CodeHash `json:"code_hash"`
	LatestBlock string            `json:"latest_block"`
	StateRoot   string            `json:"state_root"`
	Uncommitted int               `json:"uncommitted"`
}

type block struct {
	Hash             string `json:"hash"`
	ParentHash       string `json:"parent_hash"`
	Beneficiary      string `json:"beneficiary"`
	BeneficiaryName  string `json:"beneficiary_name"`
	Difficulty       uint64 `json:"difficulty"`
	Number           uint64 `json:"number"`
	Timestamp        int64  `json:"timestamp"`
	TransactionsRoot string `json:"transactions_root"`
	StateRoot        string `json:"state_root"`
	Nonce            uint64 `json:"nonce"`
	Transactions     []tx   `json:"txs"`
}
