package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"

	"github.com/cockroachdb/errors"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Requester is anything that takes raw JSON-RPC calls.
type Requester interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Caller reads chain state through the wallet, the way a dapp does through
// an injected provider. It satisfies bind.ContractCaller and the ledger's
// receipt backend.
type Caller struct {
	R Requester
}

func (c Caller) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	raw, err := c.R.Request(ctx, "eth_getCode", account, blockArg(blockNumber))
	if err != nil {
		return nil, err
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "decode eth_getCode")
	}
	return out, nil
}

func (c Caller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	arg := map[string]any{"data": hexutil.Bytes(msg.Data)}
	if msg.To != nil {
		arg["to"] = msg.To
	}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}

	raw, err := c.R.Request(ctx, "eth_call", arg, blockArg(blockNumber))
	if err != nil {
		return nil, err
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "decode eth_call")
	}
	return out, nil
}

// TransactionReceipt returns ethereum.NotFound while the transaction is
// pending.
func (c Caller) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	raw, err := c.R.Request(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ethereum.NotFound
	}
	var r types.Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrap(err, "decode receipt")
	}
	return &r, nil
}

func blockArg(n *big.Int) string {
	if n == nil {
		return "latest"
	}
	return hexutil.EncodeBig(n)
}
