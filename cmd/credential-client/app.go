package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/cmd/credential-client/config"
	"github.com/quantumauth-io/quantum-credential-client/internal/backend"
	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/core"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger"
	"github.com/quantumauth-io/quantum-credential-client/internal/localwallet"
	"github.com/quantumauth-io/quantum-credential-client/internal/network"
	"github.com/quantumauth-io/quantum-credential-client/internal/prompt"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
	"github.com/quantumauth-io/quantum-credential-client/internal/securefile"
)

// app is everything one command needs, built from the loaded config.
type app struct {
	cfg     *config.Config
	rt      *core.Runtime
	backend *backend.Client
	// network label reported by the HTTP API
	network string

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	required := cfg.RequiredChain()
	contract, label, err := resolveContract(cfg)
	if err != nil {
		return nil, err
	}
	if label == "" {
		label = required.ChainName
	}
	a.network = label

	opts := core.Options{
		Required: required,
		Contract: contract,
		Ledger: ledger.Config{
			ReadRetries:    cfg.Ledger.ReadRetries,
			RetryInterval:  cfg.Ledger.RetryInterval,
			WaitForReceipt: cfg.Ledger.WaitForReceipt,
			ReceiptTimeout: cfg.Ledger.ReceiptTimeout,
		},
	}

	switch cfg.Provider.Kind {
	case config.ProviderRPC:
		p, err := provider.DialRPC(ctx, cfg.Provider.URL, cfg.Provider.PollInterval)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		opts.Provider = p
	case config.ProviderLocal:
		w, err := openLocalWallet(cfg, required)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, w.Close)
		opts.Provider = w
	}

	if cfg.Ledger.ReadRPCURL != "" {
		ec, err := ethclient.DialContext(ctx, cfg.Ledger.ReadRPCURL)
		if err != nil {
			return nil, errors.Wrapf(err, "dial read rpc %s", cfg.Ledger.ReadRPCURL)
		}
		a.closers = append(a.closers, ec.Close)
		opts.Reader = ec
		opts.Receipts = ec
	}

	rt, err := core.New(opts)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rt.Close)
	if err := rt.Start(ctx); err != nil {
		return nil, err
	}
	a.rt = rt

	if cfg.Backend.URL != "" {
		b, err := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
		if err != nil {
			return nil, err
		}
		a.backend = b
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// resolveContract prefers the configured address and falls back to the
// deployment file written by the deploy script.
func resolveContract(cfg *config.Config) (common.Address, string, error) {
	if cfg.Ledger.ContractAddress != "" {
		return common.HexToAddress(cfg.Ledger.ContractAddress), "", nil
	}
	if cfg.Ledger.DeploymentFile == "" {
		return common.Address{}, "", nil
	}
	d, err := ledger.LoadDeployment(cfg.Ledger.DeploymentFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("no contract deployment found; ledger calls will fail until one is configured",
				"deployment_file", cfg.Ledger.DeploymentFile)
			return common.Address{}, "", nil
		}
		return common.Address{}, "", err
	}
	log.Info("loaded contract deployment", "address", d.Address.Hex(), "network", d.Network)
	return d.Address, d.Network, nil
}

func openLocalWallet(cfg *config.Config, required network.ChainParams) (*localwallet.Wallet, error) {
	dir := cfg.LocalWallet.Dir
	if dir == "" {
		d, err := securefile.DataDir(constants.AppName)
		if err != nil {
			return nil, err
		}
		dir = d
	}

	pw, err := prompt.Password("Wallet password: ")
	if err != nil {
		return nil, err
	}
	defer prompt.ZeroBytes(pw)

	ks := localwallet.NewKeyStore(filepath.Join(dir, constants.WalletFile))
	var key *localwallet.Key
	if cfg.LocalWallet.ImportKey != "" {
		key, err = ks.Import(pw, cfg.LocalWallet.ImportKey)
	} else {
		key, err = ks.Ensure(pw)
	}
	if err != nil {
		return nil, err
	}
	log.Info("local wallet ready", "account", key.Address().Hex(), "imported", key.Imported)

	reg, err := localwallet.OpenRegistry(filepath.Join(dir, constants.NetworksFile), walletNetwork(required))
	if err != nil {
		return nil, err
	}

	var approver localwallet.Approver = localwallet.NewPrompt(os.Stdin, os.Stderr)
	if cfg.LocalWallet.AutoApprove {
		approver = localwallet.AutoApprove{}
	}

	return localwallet.New(localwallet.Config{
		Key:      key,
		Registry: reg,
		ChainID:  required.ChainID,
		Approver: approver,
	})
}

func walletNetwork(p network.ChainParams) localwallet.Network {
	n := localwallet.Network{
		Name:     p.ChainName,
		ChainID:  p.ChainID,
		Currency: p.CurrencySymbol,
		Decimals: p.CurrencyDecimals,
	}
	if len(p.RPCURLs) > 0 {
		n.RPCURL = p.RPCURLs[0]
		n.ExtraRPCs = p.RPCURLs[1:]
	}
	if len(p.BlockExplorerURLs) > 0 {
		n.Explorer = p.BlockExplorerURLs[0]
	}
	return n
}
