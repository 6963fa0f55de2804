package localwallet

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/cockroachdb/errors"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Node is the chain endpoint behind the wallet's active network.
type Node interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error

	// Forward passes any other JSON-RPC call through unchanged.
	Forward(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	Close()
}

// Dialer opens a Node for an rpc url.
type Dialer func(ctx context.Context, rpcURL string) (Node, error)

type rpcNode struct {
	*ethclient.Client
	raw *rpc.Client
}

// DialNode is the Dialer for real JSON-RPC endpoints.
func DialNode(ctx context.Context, rpcURL string) (Node, error) {
	raw, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", rpcURL)
	}
	return &rpcNode{Client: ethclient.NewClient(raw), raw: raw}, nil
}

func (n *rpcNode) Forward(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := n.raw.CallContext(ctx, &out, method, params...); err != nil {
		return nil, err
	}
	return out, nil
}
