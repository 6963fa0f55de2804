package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/network"
)

const (
	EnvPrefix = "QCC"

	ProviderRPC   = "rpc"
	ProviderLocal = "local"
)

type ClientSettings struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ProviderSettings struct {
	Kind         string        `mapstructure:"kind"`
	URL          string        `mapstructure:"url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type NetworkSettings struct {
	ChainID          uint64   `mapstructure:"chain_id"`
	ChainName        string   `mapstructure:"chain_name"`
	CurrencyName     string   `mapstructure:"currency_name"`
	CurrencySymbol   string   `mapstructure:"currency_symbol"`
	CurrencyDecimals int      `mapstructure:"currency_decimals"`
	RPCURLs          []string `mapstructure:"rpc_urls"`
	ExplorerURLs     []string `mapstructure:"explorer_urls"`
}

type LedgerSettings struct {
	ContractAddress string        `mapstructure:"contract_address"`
	DeploymentFile  string        `mapstructure:"deployment_file"`
	ReadRPCURL      string        `mapstructure:"read_rpc_url"`
	ReadRetries     int           `mapstructure:"read_retries"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
	WaitForReceipt  bool          `mapstructure:"wait_for_receipt"`
	ReceiptTimeout  time.Duration `mapstructure:"receipt_timeout"`
}

type BackendSettings struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LocalWalletSettings struct {
	Dir         string `mapstructure:"dir"`
	AutoApprove bool   `mapstructure:"auto_approve"`
	// ImportKey replaces the stored key with this hex private key.
	ImportKey string `mapstructure:"import_key"`
}

type Config struct {
	Client      ClientSettings      `mapstructure:"client"`
	Provider    ProviderSettings    `mapstructure:"provider"`
	Network     NetworkSettings     `mapstructure:"network"`
	Ledger      LedgerSettings      `mapstructure:"ledger"`
	Backend     BackendSettings     `mapstructure:"backend"`
	LocalWallet LocalWalletSettings `mapstructure:"localwallet"`
}

// SearchPaths are the directories probed for config.yaml, in order.
func SearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".config", constants.AppName),
		filepath.Join(home, "config"),
		".",
	}
}

// Load reads the embedded defaults, merges the first config.yaml found in
// paths (or file, when set) and applies QCC_* environment overrides.
func Load(file string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, errors.Wrap(err, "config: embedded defaults")
	}

	switch {
	case file != "":
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", file)
		}
	default:
		v.SetConfigName("config")
		for _, p := range paths {
			v.AddConfigPath(p)
		}
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "config: merge")
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Normalize() error {
	c.Client.Host = strings.TrimSpace(c.Client.Host)
	if c.Client.Host == "" {
		c.Client.Host = "127.0.0.1"
	}
	c.Client.AllowedOrigins = trimAll(c.Client.AllowedOrigins)

	c.Provider.Kind = strings.ToLower(strings.TrimSpace(c.Provider.Kind))
	switch c.Provider.Kind {
	case ProviderRPC, ProviderLocal:
	case "":
		c.Provider.Kind = ProviderLocal
	default:
		return errors.Newf("config: provider.kind %q (allowed: %s, %s)", c.Provider.Kind, ProviderRPC, ProviderLocal)
	}
	if c.Provider.Kind == ProviderRPC && strings.TrimSpace(c.Provider.URL) == "" {
		return errors.New("config: provider.url is required for the rpc provider")
	}

	c.Network.RPCURLs = trimAll(c.Network.RPCURLs)
	c.Network.ExplorerURLs = trimAll(c.Network.ExplorerURLs)

	c.Ledger.ContractAddress = strings.TrimSpace(c.Ledger.ContractAddress)
	if c.Ledger.ContractAddress != "" && !common.IsHexAddress(c.Ledger.ContractAddress) {
		return errors.Newf("config: ledger.contract_address %q is not an address", c.Ledger.ContractAddress)
	}
	if c.Ledger.ReadRetries < 0 {
		c.Ledger.ReadRetries = 0
	}

	c.Backend.URL = strings.TrimSpace(c.Backend.URL)
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = constants.DefaultBackendTimeout
	}

	c.LocalWallet.ImportKey = strings.TrimSpace(c.LocalWallet.ImportKey)
	return nil
}

// RequiredChain is the network the ledger lives on.
func (c *Config) RequiredChain() network.ChainParams {
	p := network.ChainParams{
		ChainID:           c.Network.ChainID,
		ChainName:         c.Network.ChainName,
		CurrencyName:      c.Network.CurrencyName,
		CurrencySymbol:    c.Network.CurrencySymbol,
		CurrencyDecimals:  c.Network.CurrencyDecimals,
		RPCURLs:           c.Network.RPCURLs,
		BlockExplorerURLs: c.Network.ExplorerURLs,
	}
	p.Normalize()
	return p
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
