// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// statusTable maps the errors the blockchain core reports for bad input to
// the status code sent back to the client.
var statusTable = []struct {
	err    error
	status int
}{
	{database.ErrAccountNotFound, http.StatusNotFound},
	{database.ErrAccountKey, http.StatusBadRequest},
	{state.ErrChainForked, http.StatusNotAcceptable},
	{ledger.ErrStateRoot, http.StatusNotAcceptable},
	{ledger.ErrGenesisBlock, http.StatusNotAcceptable},
	{ledger.ErrChainSync, http.StatusNotAcceptable},
	{database.ErrParentHash, http.StatusNotAcceptable},
	{database.ErrBlockNumber, http.StatusNotAcceptable},
	{database.ErrDifficulty, http.StatusNotAcceptable},
	{database.ErrProofOfWork, http.StatusNotAcceptable},
	{database.ErrTransactionsRoot, http.StatusNotAcceptable},
	{state.ErrRewardSubmission, http.StatusBadRequest},
	{database.ErrTxType, http.StatusBadRequest},
	{database.ErrTxSignature, http.StatusBadRequest},
	{database.ErrAccountSchema, http.StatusBadRequest},
	{database.ErrAccountInvalid, http.StatusBadRequest},
	{database.ErrAccountExists, http.StatusBadRequest},
	{database.ErrSelfTransfer, http.StatusBadRequest},
	{database.ErrInsufficientFunds, http.StatusBadRequest},
	{database.ErrBalanceOverflow, http.StatusBadRequest},
	{database.ErrInsufficientGas, http.StatusBadRequest},
	{database.ErrContractFault, http.StatusBadRequest},
	{database.ErrMiningReward, http.StatusBadRequest},
}

// FromCore wraps an error returned by the blockchain core as a trusted
// error when it is one the client caused. Any other error is returned
// as is and will be reported as an internal failure.
func FromCore(err error) error {
	if err == nil || IsTrusted(err) {
		return err
	}

	for _, entry := range statusTable {
		if errors.Is(err, entry.err) {
			return NewTrusted(err, entry.status)
		}
	}

	return err
}
