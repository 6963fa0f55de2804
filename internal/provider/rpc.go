package provider

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
)

// RPCProvider talks to a remote wallet endpoint over JSON-RPC. Plain HTTP
// endpoints cannot push notifications, so accounts and chain id are polled
// and changes are emitted as notifications.
type RPCProvider struct {
	client   *rpc.Client
	interval time.Duration

	feed      event.Feed
	startOnce sync.Once
	closeOnce sync.Once
	quit      chan struct{}

	mu       sync.Mutex
	accounts []common.Address
	chainID  uint64
	seeded   bool
}

func DialRPC(ctx context.Context, url string, interval time.Duration) (*RPCProvider, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial wallet rpc %s", url)
	}
	return NewRPCProvider(c, interval), nil
}

func NewRPCProvider(client *rpc.Client, interval time.Duration) *RPCProvider {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}
	return &RPCProvider{
		client:   client,
		interval: interval,
		quit:     make(chan struct{}),
	}
}

// Client exposes the underlying connection for read-only contract calls.
func (p *RPCProvider) Client() *rpc.Client {
	return p.client
}

func (p *RPCProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := p.client.CallContext(ctx, &out, method, params...); err != nil {
		return nil, err
	}
	return out, nil
}

// SubscribeNotifications starts the poller on first use.
func (p *RPCProvider) SubscribeNotifications(ch chan<- Notification) event.Subscription {
	sub := p.feed.Subscribe(ch)
	p.startOnce.Do(func() { go p.poll() })
	return sub
}

func (p *RPCProvider) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.client.Close()
	})
}

func (p *RPCProvider) poll() {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.tick()
	for {
		select {
		case <-t.C:
			p.tick()
		case <-p.quit:
			return
		}
	}
}

func (p *RPCProvider) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, constants.MethodAccounts); err != nil {
		log.Error("provider: poll accounts", "error", err)
		return
	}
	var chainID hexutil.Uint64
	if err := p.client.CallContext(ctx, &chainID, constants.MethodChainID); err != nil {
		log.Error("provider: poll chain id", "error", err)
		return
	}

	for _, n := range p.diff(accounts, uint64(chainID)) {
		p.feed.Send(n)
	}
}

// diff records the latest observation and returns what changed since the
// previous one. The first observation only seeds the baseline.
func (p *RPCProvider) diff(accounts []common.Address, chainID uint64) []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.seeded {
		p.accounts, p.chainID, p.seeded = accounts, chainID, true
		return nil
	}

	var out []Notification
	if !sameAccounts(p.accounts, accounts) {
		out = append(out, Notification{Kind: AccountsChanged, Accounts: accounts})
	}
	if p.chainID != chainID {
		out = append(out, Notification{Kind: ChainChanged, ChainID: chainID})
	}
	p.accounts, p.chainID = accounts, chainID
	return out
}

func sameAccounts(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
