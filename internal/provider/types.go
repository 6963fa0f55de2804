// Package provider wraps an EIP-1193 style wallet provider and turns its
// notifications into one typed event stream that the session follows.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
)

// Provider is the wallet surface the client consumes.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	SubscribeNotifications(ch chan<- Notification) event.Subscription
}

type NotificationKind int

const (
	AccountsChanged NotificationKind = iota + 1
	ChainChanged
)

func (k NotificationKind) String() string {
	switch k {
	case AccountsChanged:
		return "accountsChanged"
	case ChainChanged:
		return "chainChanged"
	}
	return fmt.Sprintf("notification(%d)", int(k))
}

// Notification is what the wallet pushes on its own.
type Notification struct {
	Kind     NotificationKind
	Accounts []common.Address
	ChainID  uint64
}

type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventAccountChanged
	EventChainChanged
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventAccountChanged:
		return "accountChanged"
	case EventChainChanged:
		return "chainChanged"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is the bridge's lifecycle stream, published after the session store
// has applied it.
type Event struct {
	Kind    EventKind
	Account common.Address
	ChainID uint64
}

// TransactionArgs is the eth_sendTransaction parameter object.
type TransactionArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

type SwitchChainParams struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// AddChainParams is the EIP-3085 wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           hexutil.Uint64 `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// RPCError is a JSON-RPC error object as returned by wallets.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string  { return e.Message }
func (e *RPCError) ErrorCode() int { return e.Code }

// DecodeParam decodes params[i] into out. Params may arrive as Go values or as
// raw JSON; both go through a JSON round trip.
func DecodeParam(params []any, i int, out any) error {
	if i >= len(params) {
		return fmt.Errorf("missing param %d", i)
	}
	var b []byte
	switch v := params[i].(type) {
	case json.RawMessage:
		b = v
	case []byte:
		b = v
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode param %d: %w", i, err)
		}
		b = enc
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode param %d: %w", i, err)
	}
	return nil
}
