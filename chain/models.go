package chain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Client is the trusted external read/broadcast API. Every call is
// fail-fast: no retries or backoff happen at this boundary.
type Client interface {
	AddressInfo(ctx context.Context, address string) (*AddressInfo, error)
	AddressTransactions(ctx context.Context, address string) ([]AddressTransaction, error)
	TransactionConfirmed(ctx context.Context, txHash string) (bool, error)
	Broadcast(ctx context.Context, rawTxHex string) (string, error)
	PriceUSD(ctx context.Context) decimal.Decimal
}

type AddressInfo struct {
	BalanceSats uint64 `json:"balance"`
	Utxos       []Utxo `json:"utxo"`
}

// Utxo is transient: fetched on demand, never persisted, re-fetched
// before every spend.
type Utxo struct {
	TxHash    string `json:"transaction_hash"`
	Index     uint32 `json:"index"`
	ValueSats uint64 `json:"value"`
	// filled in by the wallet from the owning address, the read API does
	// not return it
	ScriptHex string `json:"-"`
}

type AddressTransaction struct {
	Hash    string     `json:"hash"`
	BlockID *int64     `json:"block_id"`
	Outputs []TxOutput `json:"outputs"`
}

type TxOutput struct {
	Recipient string `json:"recipient"`
	ValueSats uint64 `json:"value"`
}

func (tx *AddressTransaction) Confirmed() bool {
	return tx.BlockID != nil && *tx.BlockID > 0
}
