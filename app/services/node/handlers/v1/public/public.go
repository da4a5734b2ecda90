// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/powledger/business/sys/validate"
	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a new wallet transaction to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var st submitTx
	if err := web.Decode(r, &st); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(st); err != nil {
		return err
	}

	tx := st.toSignedTx()

	h.Log.Infow("add user tran", "traceid", v.TraceID, "tx", tx, "from", h.NS.Lookup(tx.From), "to", h.NS.Lookup(tx.To))
	if err := h.State.SubmitWalletTransaction(tx); err != nil {
		return errs.FromCore(err)
	}

	resp := struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}{
		Status: "transactions added to mempool",
		ID:     tx.ID,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining signals to start a mining operation.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signalled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.RetrieveMempool()

	txs := make([]tx, len(mempool))
	for i, tran := range mempool {
		txs[i] = h.toTx(tran)
	}

	return web.Respond(ctx, w, txs, http.StatusOK)
}

// Account returns the account stored under the address or code hash.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	key := web.Param(r, "key")

	// Names from the name service can be used in place of addresses.
	if address, exists := h.NS.Address(key); exists {
		key = address
	}

	acct, err := h.State.QueryAccount(key)
	if err != nil {
		return errs.FromCore(err)
	}

	resp := account{
		Key:         acct.Key(),
		Name:        h.NS.Lookup(acct.Address),
		Balance:     acct.Balance,
		IsContract:  acct.IsContract(),
		CodeHash:    acct.CodeHash,
		LatestBlock: h.State.RetrieveLatestBlock().Hash(),
		StateRoot:   h.State.RetrieveStateRoot(),
		Uncommitted: h.State.QueryMempoolLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlocksByAccount returns the blocks holding transactions for the account,
// or every block when no account is provided.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	key := web.Param(r, "key")
	if address, exists := h.NS.Address(key); exists {
		key = address
	}

	dbBlocks := h.State.QueryBlocksByAccount(key)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for j, blk := range dbBlocks {
		txs := make([]tx, len(blk.TransactionSeries))
		for i, tran := range blk.TransactionSeries {
			txs[i] = h.toTx(tran)
		}

		blocks[j] = block{
			Hash:             blk.Hash(),
			ParentHash:       blk.Header.ParentHash,
			Beneficiary:      blk.Header.Beneficiary,
			BeneficiaryName:  h.NS.Lookup(blk.Header.Beneficiary),
			Difficulty:       blk.Header.Difficulty,
			Number:           blk.Header.Number,
			Timestamp:        int64(blk.Header.Timestamp),
			TransactionsRoot: blk.Header.TransactionsRoot,
			StateRoot:        blk.Header.StateRoot,
			Nonce:            blk.Header.Nonce,
			Transactions:     txs,
		}
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// =============================================================================

func (h Handlers) toTx(tran database.SignedTx) tx {
	return tx{
		ID:        tran.ID,
		Type:      tran.Type(),
		From:      tran.From,
		FromName:  h.NS.Lookup(tran.From),
		To:        tran.To,
		ToName:    h.NS.Lookup(tran.To),
		Value:     tran.Value,
		GasLimit:  tran.GasLimit,
		Signature: tran.Signature,
	}
}
