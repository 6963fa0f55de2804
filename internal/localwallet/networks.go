package localwallet

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	utilsEth "github.com/quantumauth-io/quantum-go-utils/ethrpc"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
	"github.com/quantumauth-io/quantum-credential-client/internal/securefile"
)

// Network is a chain the local wallet can sign for.
type Network struct {
	Name       string   `json:"name"`
	ChainID    uint64   `json:"chainId"`
	ChainIDHex string   `json:"chainIdHex"`
	RPCURL     string   `json:"rpcUrl"`
	Explorer   string   `json:"explorer,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Decimals   int      `json:"decimals,omitempty"`
	ExtraRPCs  []string `json:"extraRpcs,omitempty"`
}

// NetworkFromAddChain converts a wallet_addEthereumChain request.
func NetworkFromAddChain(p provider.AddChainParams) (Network, error) {
	if p.ChainID == 0 {
		return Network{}, errors.New("chainId is required")
	}
	rpcs := normalizeURLs(p.RPCURLs)
	if len(rpcs) == 0 {
		return Network{}, errors.New("at least one rpc url is required")
	}
	n := Network{
		Name:      p.ChainName,
		ChainID:   uint64(p.ChainID),
		RPCURL:    rpcs[0],
		ExtraRPCs: rpcs[1:],
		Currency:  p.NativeCurrency.Symbol,
		Decimals:  p.NativeCurrency.Decimals,
	}
	if ex := normalizeURLs(p.BlockExplorerURLs); len(ex) > 0 {
		n.Explorer = ex[0]
	}
	return n.normalized(), nil
}

func (n Network) normalized() Network {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		n.Name = "chain " + hexutil.EncodeUint64(n.ChainID)
	}
	n.ChainIDHex = strings.ToLower(utilsEth.NormalizeHex0x(hexutil.EncodeUint64(n.ChainID)))
	n.RPCURL = strings.TrimSpace(n.RPCURL)
	n.Explorer = strings.TrimSpace(n.Explorer)
	n.ExtraRPCs = normalizeURLs(n.ExtraRPCs)
	return n
}

type networkFile struct {
	Schema   int       `json:"schema"`
	Networks []Network `json:"networks"`
}

// Registry is the persisted set of known networks, keyed by chain id. A
// registry with an empty path lives in memory only.
type Registry struct {
	path string

	mu       sync.RWMutex
	networks map[uint64]Network
}

// OpenRegistry loads path if it exists and merges defaults into it. Entries
// already on disk keep their user-edited fields; only blanks are filled.
func OpenRegistry(path string, defaults ...Network) (*Registry, error) {
	r := &Registry{path: path, networks: make(map[uint64]Network)}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			var f networkFile
			if err := json.Unmarshal(b, &f); err != nil {
				return nil, errors.Wrapf(err, "unmarshal %s", path)
			}
			for _, n := range f.Networks {
				if n.ChainID == 0 {
					continue
				}
				r.networks[n.ChainID] = n.normalized()
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, errors.Wrapf(err, "read %s", path)
		}
	}

	changed := false
	for _, d := range defaults {
		d = d.normalized()
		cur, ok := r.networks[d.ChainID]
		if !ok {
			r.networks[d.ChainID] = d
			changed = true
			continue
		}
		if cur.RPCURL == "" && d.RPCURL != "" {
			cur.RPCURL = d.RPCURL
			changed = true
		}
		if cur.Explorer == "" && d.Explorer != "" {
			cur.Explorer = d.Explorer
			changed = true
		}
		r.networks[d.ChainID] = cur
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			changed = true
		}
	}
	if changed {
		if err := r.persistLocked(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Find(chainID uint64) (Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.networks[chainID]
	return n, ok
}

// Add registers n. Adding a chain id that already exists is a no-op.
func (r *Registry) Add(n Network) (Network, error) {
	n = n.normalized()
	if n.ChainID == 0 {
		return Network{}, errors.New("network chain id is required")
	}
	if n.RPCURL == "" {
		return Network{}, errors.New("network rpc url is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.networks[n.ChainID]; ok {
		return cur, nil
	}
	r.networks[n.ChainID] = n
	if err := r.persistLocked(); err != nil {
		delete(r.networks, n.ChainID)
		return Network{}, err
	}
	return n, nil
}

// List returns networks ordered by chain id.
func (r *Registry) List() []Network {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Network, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

func (r *Registry) persistLocked() error {
	if r.path == "" {
		return nil
	}
	f := networkFile{Schema: constants.SchemaV1}
	for _, n := range r.networks {
		f.Networks = append(f.Networks, n)
	}
	sort.Slice(f.Networks, func(i, j int) bool { return f.Networks[i].ChainID < f.Networks[j].ChainID })

	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal networks")
	}
	return securefile.WriteFileAtomic(r.path, b, constants.FilePerm, constants.DirectoryPerm)
}

func normalizeURLs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, u := range in {
		u = strings.TrimSpace(u)
		if u == "" || seen[strings.ToLower(u)] {
			continue
		}
		seen[strings.ToLower(u)] = true
		out = append(out, u)
	}
	return out
}
