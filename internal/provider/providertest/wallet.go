// Package providertest provides a scriptable in-memory wallet provider.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
)

// SendFunc handles eth_sendTransaction for the fake wallet.
type SendFunc func(ctx context.Context, tx provider.TransactionArgs) (common.Hash, error)

// Wallet is a fake EIP-1193 provider, safe for concurrent use.
type Wallet struct {
	mu sync.Mutex

	accounts    []common.Address
	chainID     uint64
	knownChains map[uint64]bool

	rejectConnect bool
	connectErr    error
	addChainErr   error
	switchErr     error
	send          SendFunc
	override      map[string]func(params []any) (json.RawMessage, error)

	calls      []Call
	subscribes int
	feed       event.Feed
}

type Call struct {
	Method string
	Params []any
}

// New returns a wallet on chainID that knows only that chain.
func New(chainID uint64, accounts ...common.Address) *Wallet {
	return &Wallet{
		accounts:    accounts,
		chainID:     chainID,
		knownChains: map[uint64]bool{chainID: true},
		override:    make(map[string]func([]any) (json.RawMessage, error)),
	}
}

func RejectedError() error {
	return &provider.RPCError{Code: constants.CodeUserRejected, Message: "User rejected the request."}
}

func (w *Wallet) RejectConnect(v bool) {
	w.mu.Lock()
	w.rejectConnect = v
	w.mu.Unlock()
}

func (w *Wallet) FailConnect(err error) {
	w.mu.Lock()
	w.connectErr = err
	w.mu.Unlock()
}

func (w *Wallet) FailAddChain(err error) {
	w.mu.Lock()
	w.addChainErr = err
	w.mu.Unlock()
}

func (w *Wallet) FailSwitch(err error) {
	w.mu.Lock()
	w.switchErr = err
	w.mu.Unlock()
}

func (w *Wallet) OnSend(fn SendFunc) {
	w.mu.Lock()
	w.send = fn
	w.mu.Unlock()
}

// Handle overrides the response for method.
func (w *Wallet) Handle(method string, fn func(params []any) (json.RawMessage, error)) {
	w.mu.Lock()
	w.override[method] = fn
	w.mu.Unlock()
}

func (w *Wallet) ChainID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID
}

func (w *Wallet) Knows(chainID uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.knownChains[chainID]
}

func (w *Wallet) Calls() []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Call(nil), w.calls...)
}

func (w *Wallet) CallCount(method string) int {
	n := 0
	for _, c := range w.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// SetAccounts changes the wallet accounts and notifies subscribers.
func (w *Wallet) SetAccounts(accounts ...common.Address) {
	w.mu.Lock()
	w.accounts = accounts
	w.mu.Unlock()
	w.feed.Send(provider.Notification{Kind: provider.AccountsChanged, Accounts: accounts})
}

// SetChain switches the wallet chain from the wallet side and notifies subscribers.
func (w *Wallet) SetChain(chainID uint64) {
	w.mu.Lock()
	w.chainID = chainID
	w.knownChains[chainID] = true
	w.mu.Unlock()
	w.feed.Send(provider.Notification{Kind: provider.ChainChanged, ChainID: chainID})
}

func (w *Wallet) SubscribeNotifications(ch chan<- provider.Notification) event.Subscription {
	w.mu.Lock()
	w.subscribes++
	w.mu.Unlock()
	return w.feed.Subscribe(ch)
}

// Subscribes reports how many times SubscribeNotifications was called.
func (w *Wallet) Subscribes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subscribes
}

func (w *Wallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.calls = append(w.calls, Call{Method: method, Params: params})
	fn := w.override[method]
	w.mu.Unlock()

	if fn != nil {
		return fn(params)
	}

	switch method {
	case constants.MethodRequestAccounts:
		return w.requestAccounts()
	case constants.MethodAccounts:
		w.mu.Lock()
		defer w.mu.Unlock()
		return marshal(w.accounts)
	case constants.MethodChainID:
		return marshal(hexutil.Uint64(w.ChainID()))
	case constants.MethodSwitchChain:
		return w.switchChain(params)
	case constants.MethodAddChain:
		return w.addChain(params)
	case constants.MethodSendTransaction:
		return w.sendTransaction(ctx, params)
	}
	return nil, &provider.RPCError{Code: constants.CodeUnsupportedMethod, Message: fmt.Sprintf("method %s not supported", method)}
}

func (w *Wallet) requestAccounts() (json.RawMessage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connectErr != nil {
		return nil, w.connectErr
	}
	if w.rejectConnect {
		return nil, RejectedError()
	}
	return marshal(w.accounts)
}

func (w *Wallet) switchChain(params []any) (json.RawMessage, error) {
	var p provider.SwitchChainParams
	if err := provider.DecodeParam(params, 0, &p); err != nil {
		return nil, &provider.RPCError{Code: constants.CodeInvalidParams, Message: err.Error()}
	}

	w.mu.Lock()
	if w.switchErr != nil {
		err := w.switchErr
		w.mu.Unlock()
		return nil, err
	}
	id := uint64(p.ChainID)
	if !w.knownChains[id] {
		w.mu.Unlock()
		return nil, &provider.RPCError{
			Code:    constants.CodeUnrecognizedChain,
			Message: fmt.Sprintf("Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", p.ChainID.String()),
		}
	}
	changed := w.chainID != id
	w.chainID = id
	w.mu.Unlock()

	if changed {
		w.feed.Send(provider.Notification{Kind: provider.ChainChanged, ChainID: id})
	}
	return json.RawMessage("null"), nil
}

// addChain registers the chain and then switches to it, as browser wallets do.
func (w *Wallet) addChain(params []any) (json.RawMessage, error) {
	var p provider.AddChainParams
	if err := provider.DecodeParam(params, 0, &p); err != nil {
		return nil, &provider.RPCError{Code: constants.CodeInvalidParams, Message: err.Error()}
	}

	w.mu.Lock()
	if w.addChainErr != nil {
		err := w.addChainErr
		w.mu.Unlock()
		return nil, err
	}
	id := uint64(p.ChainID)
	w.knownChains[id] = true
	changed := w.chainID != id
	w.chainID = id
	w.mu.Unlock()

	if changed {
		w.feed.Send(provider.Notification{Kind: provider.ChainChanged, ChainID: id})
	}
	return json.RawMessage("null"), nil
}

func (w *Wallet) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	var tx provider.TransactionArgs
	if err := provider.DecodeParam(params, 0, &tx); err != nil {
		return nil, &provider.RPCError{Code: constants.CodeInvalidParams, Message: err.Error()}
	}

	w.mu.Lock()
	send := w.send
	w.mu.Unlock()
	if send == nil {
		return nil, &provider.RPCError{Code: constants.CodeInternalError, Message: "no transaction handler"}
	}

	h, err := send(ctx, tx)
	if err != nil {
		return nil, err
	}
	return marshal(h)
}

func marshal(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
