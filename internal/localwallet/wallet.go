// Package localwallet is a wallet provider backed by a locally stored,
// password-encrypted key. It answers the same requests a browser wallet does
// and asks an Approver where a browser wallet would show a popup.
package localwallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	utilsEth "github.com/quantumauth-io/quantum-go-utils/ethrpc"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
)

const methodRevokePermissions = "wallet_revokePermissions"

type Config struct {
	Key      *Key
	Registry *Registry
	// ChainID selects the network active at start. It must be registered.
	ChainID  uint64
	Approver Approver
	Dial     Dialer
}

type Wallet struct {
	priv     *ecdsa.PrivateKey
	addr     common.Address
	registry *Registry
	approver Approver
	dial     Dialer

	mu        sync.Mutex
	connected bool
	active    Network
	node      Node

	// held from nonce lookup to broadcast
	sendMu sync.Mutex

	feed event.Feed
}

func New(cfg Config) (*Wallet, error) {
	if cfg.Key == nil {
		return nil, errors.New("localwallet: key is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("localwallet: registry is required")
	}
	priv, err := cfg.Key.PrivateKey()
	if err != nil {
		return nil, err
	}
	active, ok := cfg.Registry.Find(cfg.ChainID)
	if !ok {
		return nil, errors.Newf("localwallet: chain %s is not registered", hexutil.EncodeUint64(cfg.ChainID))
	}
	if cfg.Approver == nil {
		cfg.Approver = AutoApprove{}
	}
	if cfg.Dial == nil {
		cfg.Dial = DialNode
	}
	return &Wallet{
		priv:     priv,
		addr:     cfg.Key.Address(),
		registry: cfg.Registry,
		approver: cfg.Approver,
		dial:     cfg.Dial,
		active:   active,
	}, nil
}

func (w *Wallet) Address() common.Address { return w.addr }

func (w *Wallet) Active() Network {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *Wallet) SubscribeNotifications(ch chan<- provider.Notification) event.Subscription {
	return w.feed.Subscribe(ch)
}

func (w *Wallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case constants.MethodRequestAccounts:
		return w.requestAccounts(ctx)
	case constants.MethodAccounts:
		return marshal(w.accounts())
	case constants.MethodChainID:
		return marshal(hexutil.EncodeUint64(w.Active().ChainID))
	case constants.MethodSwitchChain:
		var p provider.SwitchChainParams
		if err := provider.DecodeParam(params, 0, &p); err != nil {
			return nil, invalidParams(err)
		}
		return nil, w.switchChain(ctx, uint64(p.ChainID))
	case constants.MethodAddChain:
		var p provider.AddChainParams
		if err := provider.DecodeParam(params, 0, &p); err != nil {
			return nil, invalidParams(err)
		}
		return nil, w.addChain(ctx, p)
	case constants.MethodSendTransaction:
		var tx provider.TransactionArgs
		if err := provider.DecodeParam(params, 0, &tx); err != nil {
			return nil, invalidParams(err)
		}
		hash, err := w.sendTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		return marshal(hash)
	case methodRevokePermissions:
		w.Disconnect()
		return nil, nil
	}

	node, err := w.activeNode(ctx)
	if err != nil {
		return nil, err
	}
	return node.Forward(ctx, method, params...)
}

// Disconnect forgets the connection and tells subscribers the account list
// is empty.
func (w *Wallet) Disconnect() {
	w.mu.Lock()
	was := w.connected
	w.connected = false
	w.mu.Unlock()
	if was {
		w.feed.Send(provider.Notification{Kind: provider.AccountsChanged})
	}
}

func (w *Wallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.node != nil {
		w.node.Close()
		w.node = nil
	}
}

func (w *Wallet) accounts() []common.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return []common.Address{}
	}
	return []common.Address{w.addr}
}

func (w *Wallet) requestAccounts(ctx context.Context) (json.RawMessage, error) {
	w.mu.Lock()
	connected := w.connected
	w.mu.Unlock()
	if connected {
		return marshal([]common.Address{w.addr})
	}

	if err := w.approve(ctx, Approval{Kind: ApproveConnect, Account: w.addr, Network: w.Active()}); err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	log.Info("localwallet: connected", "account", w.addr.Hex())
	return marshal([]common.Address{w.addr})
}

func (w *Wallet) switchChain(ctx context.Context, chainID uint64) error {
	n, ok := w.registry.Find(chainID)
	if !ok {
		return &provider.RPCError{
			Code:    constants.CodeUnrecognizedChain,
			Message: fmt.Sprintf("Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", hexutil.EncodeUint64(chainID)),
		}
	}
	if w.Active().ChainID == chainID {
		return nil
	}
	if err := w.approve(ctx, Approval{Kind: ApproveSwitchChain, Account: w.addr, Network: n}); err != nil {
		return err
	}
	w.activate(n)
	return nil
}

func (w *Wallet) addChain(ctx context.Context, p provider.AddChainParams) error {
	n, err := NetworkFromAddChain(p)
	if err != nil {
		return invalidParams(err)
	}
	if _, known := w.registry.Find(n.ChainID); known {
		return w.switchChain(ctx, n.ChainID)
	}
	if err := w.approve(ctx, Approval{Kind: ApproveAddChain, Account: w.addr, Network: n}); err != nil {
		return err
	}
	added, err := w.registry.Add(n)
	if err != nil {
		return &provider.RPCError{Code: constants.CodeInternalError, Message: err.Error()}
	}
	log.Info("localwallet: network added", "chain_id", added.ChainIDHex, "name", added.Name)
	w.activate(added)
	return nil
}

func (w *Wallet) activate(n Network) {
	w.mu.Lock()
	if w.node != nil {
		w.node.Close()
		w.node = nil
	}
	w.active = n
	w.mu.Unlock()

	log.Info("localwallet: network switched", "chain_id", n.ChainIDHex, "name", n.Name)
	w.feed.Send(provider.Notification{Kind: provider.ChainChanged, ChainID: n.ChainID})
}

func (w *Wallet) activeNode(ctx context.Context) (Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.node != nil {
		return w.node, nil
	}
	node, err := w.dial(ctx, w.active.RPCURL)
	if err != nil {
		return nil, &provider.RPCError{Code: constants.CodeChainDisconnected, Message: err.Error()}
	}
	w.node = node
	return node, nil
}

func (w *Wallet) sendTransaction(ctx context.Context, args provider.TransactionArgs) (common.Hash, error) {
	w.mu.Lock()
	authorized := w.connected && args.From == w.addr
	net := w.active
	w.mu.Unlock()
	if !authorized {
		return common.Hash{}, &provider.RPCError{
			Code:    constants.CodeUnauthorized,
			Message: "The requested account and/or method has not been authorized by the user.",
		}
	}

	if err := w.approve(ctx, Approval{Kind: ApproveTransaction, Account: w.addr, Network: net, Tx: &args}); err != nil {
		return common.Hash{}, err
	}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	node, err := w.activeNode(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := node.PendingNonceAt(ctx, w.addr)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "nonce")
	}

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		gas, err = estimateGas(ctx, node, ethereum.CallMsg{From: w.addr, To: args.To, Value: value, Data: args.Data})
		if err != nil {
			return common.Hash{}, err
		}
	}

	chainID := new(big.Int).SetUint64(net.ChainID)
	var tx *types.Transaction
	if maxFee, tip, ok := suggest1559Fees(ctx, node); ok {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: maxFee,
			Gas:       gas,
			To:        args.To,
			Value:     value,
			Data:      args.Data,
		})
	} else {
		gasPrice, err := node.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, errors.Wrap(err, "gas price")
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       args.To,
			Value:    value,
			Gas:      gas,
			GasPrice: gasPrice,
			Data:     args.Data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.priv)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "sign")
	}
	bin, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "marshal tx")
	}
	if err := utilsEth.ValidateRawTxHex(hexutil.Encode(bin)); err != nil {
		return common.Hash{}, errors.Wrap(err, "raw tx invalid")
	}

	if err := node.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	log.Info("localwallet: transaction sent", "hash", signed.Hash().Hex(), "nonce", nonce, "gas", gas)
	return signed.Hash(), nil
}

// estimateGas adds a 10% margin. A revert is returned as is; any other
// estimation failure falls back to a fixed limit.
func estimateGas(ctx context.Context, node Node, msg ethereum.CallMsg) (uint64, error) {
	est, err := node.EstimateGas(ctx, msg)
	if err != nil {
		if isRevert(err) {
			return 0, err
		}
		log.Warn("localwallet: gas estimation failed, using fallback", "error", err)
		if msg.To == nil {
			return 1_500_000, nil
		}
		return constants.GasFallbackContractCall, nil
	}
	est += est / 10
	if est < constants.GasMinimum {
		est = constants.GasMinimum
	}
	return est, nil
}

// suggest1559Fees returns maxFee = 2*baseFee + tip when the chain has a base
// fee. ok is false on pre-London chains.
func suggest1559Fees(ctx context.Context, node Node) (maxFee, tip *big.Int, ok bool) {
	head, err := node.HeaderByNumber(ctx, nil)
	if err != nil || head == nil || head.BaseFee == nil {
		return nil, nil, false
	}
	tip, err = node.SuggestGasTipCap(ctx)
	if err != nil {
		tip = new(big.Int)
	}
	maxFee = new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	return maxFee, tip, true
}

func isRevert(err error) bool {
	var c interface{ ErrorCode() int }
	if errors.As(err, &c) && c.ErrorCode() == constants.CodeExecutionReverted {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

func (w *Wallet) approve(ctx context.Context, a Approval) error {
	ok, err := w.approver.Approve(ctx, a)
	if err != nil {
		return errors.Wrapf(err, "approve %s", a.Kind)
	}
	if !ok {
		log.Info("localwallet: request rejected", "kind", a.Kind.String())
		return &provider.RPCError{Code: constants.CodeUserRejected, Message: "User rejected the request."}
	}
	return nil
}

func invalidParams(err error) error {
	return &provider.RPCError{Code: constants.CodeInvalidParams, Message: err.Error()}
}

func marshal(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
