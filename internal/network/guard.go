// Package network keeps the wallet on the chain the ledger lives on.
package network

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
	"github.com/quantumauth-io/quantum-credential-client/internal/session"
)

// Requester is the part of the provider bridge the guard needs.
type Requester interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	ChainID(ctx context.Context) (uint64, error)
}

// ChainParams describes the required chain as it is registered with a wallet.
type ChainParams struct {
	ChainID           uint64
	ChainName         string
	CurrencyName      string
	CurrencySymbol    string
	CurrencyDecimals  int
	RPCURLs           []string
	BlockExplorerURLs []string
}

// DefaultChain is the local development chain.
func DefaultChain() ChainParams {
	return ChainParams{
		ChainID:          constants.DefaultChainID,
		ChainName:        constants.DefaultChainName,
		CurrencyName:     constants.NativeCurrencyName,
		CurrencySymbol:   constants.NativeCurrencySymbol,
		CurrencyDecimals: constants.NativeCurrencyDecimal,
		RPCURLs:          []string{constants.DefaultRPCURL},
	}
}

// Normalize fills unset fields from the defaults.
func (p *ChainParams) Normalize() {
	d := DefaultChain()
	if p.ChainID == 0 {
		p.ChainID = d.ChainID
	}
	p.ChainName = strings.TrimSpace(p.ChainName)
	if p.ChainName == "" {
		p.ChainName = d.ChainName
	}
	if p.CurrencyName == "" {
		p.CurrencyName = d.CurrencyName
	}
	if p.CurrencySymbol == "" {
		p.CurrencySymbol = d.CurrencySymbol
	}
	if p.CurrencyDecimals == 0 {
		p.CurrencyDecimals = d.CurrencyDecimals
	}
	if len(p.RPCURLs) == 0 {
		p.RPCURLs = d.RPCURLs
	}
}

func (p ChainParams) HexID() string {
	return hexutil.EncodeUint64(p.ChainID)
}

func (p ChainParams) addChainParams() provider.AddChainParams {
	return provider.AddChainParams{
		ChainID:   hexutil.Uint64(p.ChainID),
		ChainName: p.ChainName,
		NativeCurrency: provider.NativeCurrency{
			Name:     p.CurrencyName,
			Symbol:   p.CurrencySymbol,
			Decimals: p.CurrencyDecimals,
		},
		RPCURLs:           p.RPCURLs,
		BlockExplorerURLs: p.BlockExplorerURLs,
	}
}

// Guard compares the wallet's chain with the required one and repairs it on
// request.
type Guard struct {
	wallet   Requester
	store    *session.Store
	required ChainParams
}

func NewGuard(wallet Requester, store *session.Store, required ChainParams) *Guard {
	required.Normalize()
	return &Guard{
		wallet:   wallet,
		store:    store,
		required: required,
	}
}

func (g *Guard) Required() ChainParams {
	return g.required
}

func (g *Guard) IsOnRequiredNetwork(chainID uint64) bool {
	return chainID == g.required.ChainID
}

// OnRequiredNetwork reports whether the last chain the session saw is the
// required one.
func (g *Guard) OnRequiredNetwork() bool {
	s := g.store.Snapshot()
	return s.ChainID != nil && g.IsOnRequiredNetwork(*s.ChainID)
}

// SwitchToRequiredNetwork asks the wallet to switch. When the wallet does not
// know the chain it is registered once, which also switches to it. Failures
// are recorded and returned; the session stays connected.
func (g *Guard) SwitchToRequiredNetwork(ctx context.Context) error {
	const op = "switch network"
	epoch := g.store.Epoch()

	_, err := g.wallet.Request(ctx, constants.MethodSwitchChain, provider.SwitchChainParams{
		ChainID: hexutil.Uint64(g.required.ChainID),
	})
	if err == nil {
		log.Info("network: switched", "chain_id", g.required.HexID())
		return nil
	}

	nerr := errkind.Normalize(op, err)
	if nerr.Kind != errkind.UnrecognizedChain {
		return g.fail(epoch, nerr)
	}

	log.Info("network: chain unknown to wallet, registering", "chain_id", g.required.HexID(), "chain_name", g.required.ChainName)
	if _, err := g.wallet.Request(ctx, constants.MethodAddChain, g.required.addChainParams()); err != nil {
		return g.fail(epoch, errkind.Normalize("add network", err))
	}
	return nil
}

// EnsureWritable checks the wallet's chain at call time.
func (g *Guard) EnsureWritable(ctx context.Context) error {
	chainID, err := g.wallet.ChainID(ctx)
	if err != nil {
		return errkind.Normalize("check network", err)
	}
	if !g.IsOnRequiredNetwork(chainID) {
		return errkind.Newf(errkind.NetworkMismatch, "check network",
			"wallet on chain %s, required %s", hexutil.EncodeUint64(chainID), g.required.HexID())
	}
	return nil
}

func (g *Guard) fail(epoch uint64, err *errkind.Error) error {
	g.store.RecordError(epoch, err.Kind)
	log.Error("network: "+err.Op, "kind", err.Kind.String(), "error", err)
	return err
}
