package api

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/Stoner19/node/blockchain"
	"github.com/Stoner19/node/build"
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/types"
)

// ChainStatusGET mirrors the node's height/tip summary.
type ChainStatusGET struct {
	Height uint64 `json:"height"`
	Tip    string `json:"tip"`
}

// BlockGET is the JSON projection of a recorded pool.
type BlockGET struct {
	Sequence     uint64           `json:"sequence"`
	PreviousHash string           `json:"previousHash"`
	Transactions []TransactionGET `json:"transactions"`
	Writer       string           `json:"writer"`
}

// TransactionGET is the JSON projection of a single transfer.
type TransactionGET struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Amount string `json:"amount"`
}

// WalletGET is the JSON projection of a wallet's ledger state.
type WalletGET struct {
	Balance   string `json:"balance"`
	SendCount uint64 `json:"sendCount"`
	RecvCount uint64 `json:"recvCount"`
}

func formatAmount(a types.Amount) string {
	return fmt.Sprintf("%d.%09d", a.Integral, a.Fraction)
}

func parseAddress(hexStr string) (crypto.PublicKey, error) {
	var pk crypto.PublicKey
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return pk, err
	}
	if len(raw) != crypto.PublicKeySize {
		return pk, fmt.Errorf("api: address must be %d bytes", crypto.PublicKeySize)
	}
	copy(pk[:], raw)
	return pk, nil
}

// RegisterChainHTTPHandlers wires the node's chain-status, block and
// wallet endpoints onto router. Mirrors the reference core's practice
// of one Register function per subsystem.
func RegisterChainHTTPHandlers(router Router, bc *blockchain.BlockChain) {
	if bc == nil {
		build.Critical("no blockchain given")
	}
	if router == nil {
		build.Critical("no httprouter Router given")
	}

	router.GET("/chain", newChainStatusHandler(bc))
	router.GET("/chain/blocks/:sequence", newBlockHandler(bc))
	router.GET("/chain/wallets/:address", newWalletHandler(bc))
	router.GET("/chain/wallets/:address/transactions", newWalletHistoryHandler(bc))
}

func newChainStatusHandler(bc *blockchain.BlockChain) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		WriteJSON(w, ChainStatusGET{
			Height: bc.GetSize(),
			Tip:    bc.GetLastHash().String(),
		})
	}
}

func newBlockHandler(bc *blockchain.BlockChain) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		sequence, err := strconv.ParseUint(ps.ByName("sequence"), 10, 64)
		if err != nil {
			WriteError(w, Error{"invalid sequence"}, http.StatusBadRequest)
			return
		}
		pool, err := bc.LoadBlock(sequence)
		if err != nil {
			WriteError(w, Error{err.Error()}, http.StatusNoContent)
			return
		}
		WriteJSON(w, blockToGET(pool))
	}
}

func newWalletHandler(bc *blockchain.BlockChain) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		pk, err := parseAddress(ps.ByName("address"))
		if err != nil {
			WriteError(w, Error{"invalid address"}, http.StatusBadRequest)
			return
		}
		data, ok := bc.FindWalletData(pk)
		if !ok {
			WriteError(w, Error{"wallet not found"}, http.StatusNoContent)
			return
		}
		WriteJSON(w, WalletGET{
			Balance:   formatAmount(data.Balance),
			SendCount: data.SendCount,
			RecvCount: data.RecvCount,
		})
	}
}

func newWalletHistoryHandler(bc *blockchain.BlockChain) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		pk, err := parseAddress(ps.ByName("address"))
		if err != nil {
			WriteError(w, Error{"invalid address"}, http.StatusBadRequest)
			return
		}
		skip, limit := 0, 100
		if v := req.URL.Query().Get("skip"); v != "" {
			skip, _ = strconv.Atoi(v)
		}
		if v := req.URL.Query().Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		txs, err := bc.GetTransactions(pk, skip, limit)
		if err != nil {
			WriteError(w, Error{err.Error()}, http.StatusBadRequest)
			return
		}
		out := make([]TransactionGET, len(txs))
		for i, tx := range txs {
			out[i] = TransactionGET{
				Source: tx.Source.String(),
				Target: tx.Target.String(),
				Amount: formatAmount(tx.Amount),
			}
		}
		WriteJSON(w, out)
	}
}

func blockToGET(pool types.Pool) BlockGET {
	txs := make([]TransactionGET, len(pool.Transactions))
	for i, tx := range pool.Transactions {
		txs[i] = TransactionGET{
			Source: tx.Source.String(),
			Target: tx.Target.String(),
			Amount: formatAmount(tx.Amount),
		}
	}
	return BlockGET{
		Sequence:     pool.Sequence,
		PreviousHash: pool.PreviousHash.String(),
		Transactions: txs,
		Writer:       pool.Writer.String(),
	}
}
