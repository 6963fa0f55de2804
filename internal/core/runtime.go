// Package core wires the session store, the provider bridge, the network
// guard and the ledger client into one runtime that the CLI and the HTTP API
// share.
package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger"
	"github.com/quantumauth-io/quantum-credential-client/internal/metrics"
	"github.com/quantumauth-io/quantum-credential-client/internal/network"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
	"github.com/quantumauth-io/quantum-credential-client/internal/session"
)

const eventBuffer = 32

type Options struct {
	// Provider is the wallet. nil means no wallet is installed.
	Provider provider.Provider
	Required network.ChainParams

	Contract common.Address
	// Reader serves contract reads. nil reads through the wallet.
	Reader   bind.ContractCaller
	Receipts ledger.ReceiptBackend
	Ledger   ledger.Config
}

type Runtime struct {
	opts   Options
	store  *session.Store
	bridge *provider.Bridge
	guard  *network.Guard

	bindMu sync.Mutex
	client atomic.Pointer[ledger.Client]

	feed  event.Feed
	scope event.SubscriptionScope

	startOnce sync.Once
	sub       event.Subscription
	quit      chan struct{}
	done      chan struct{}
}

func New(opts Options) (*Runtime, error) {
	store := session.NewStore()
	store.OnChange(func(s session.Session) { metrics.SessionState(s.Connected, s.Epoch) })
	bridge := provider.NewBridge(opts.Provider, store)
	r := &Runtime{
		store:  store,
		bridge: bridge,
		guard:  network.NewGuard(bridge, store, opts.Required),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if opts.Provider != nil {
		caller := provider.Caller{R: bridge}
		if opts.Reader == nil {
			opts.Reader = caller
		}
		if opts.Receipts == nil {
			opts.Receipts = caller
		}
	}
	r.opts = opts

	if _, err := r.rebind(); err != nil {
		return nil, err
	}
	return r, nil
}

// Start initializes the bridge and follows its events. Without a wallet it
// only logs; every wallet operation then fails with WalletNotInstalled.
func (r *Runtime) Start(ctx context.Context) error {
	var err error
	r.startOnce.Do(func() {
		events := make(chan provider.Event, eventBuffer)
		r.sub = r.bridge.Subscribe(events)
		go r.loop(events)

		if ierr := r.bridge.Init(ctx); ierr != nil {
			if errkind.KindOf(ierr) == errkind.WalletNotInstalled {
				log.Warn("core: no wallet provider configured")
				return
			}
			err = ierr
			return
		}
		log.Info("core: started", "required_chain", r.guard.Required().HexID(), "contract", r.opts.Contract.Hex())
	})
	return err
}

func (r *Runtime) loop(events <-chan provider.Event) {
	defer close(r.done)
	for {
		select {
		case ev := <-events:
			metrics.SessionEvent(ev.Kind.String())
			if _, err := r.rebind(); err != nil {
				log.Error("core: rebind ledger client", "error", err)
			}
			r.feed.Send(ev)
		case <-r.sub.Err():
			return
		case <-r.quit:
			return
		}
	}
}

// rebind builds a ledger client for the current session unless the bound
// one is already current.
func (r *Runtime) rebind() (*ledger.Client, error) {
	r.bindMu.Lock()
	defer r.bindMu.Unlock()

	if cur := r.client.Load(); cur != nil && cur.Epoch() == r.store.Epoch() {
		return cur, nil
	}
	c, err := ledger.New(ledger.Deps{
		Address:  r.opts.Contract,
		Reader:   r.opts.Reader,
		Wallet:   r.bridge,
		Guard:    r.guard,
		Receipts: r.opts.Receipts,
		Store:    r.store,
	}, r.opts.Ledger)
	if err != nil {
		return nil, errors.Wrap(err, "core: bind ledger")
	}
	if r.client.Swap(c) != nil {
		metrics.LedgerRebind()
	}
	return c, nil
}

// Ledger returns a client bound to the current session.
func (r *Runtime) Ledger() *ledger.Client {
	if c, err := r.rebind(); err == nil {
		return c
	}
	return r.client.Load()
}

func (r *Runtime) Session() session.Session {
	return r.store.Snapshot()
}

func (r *Runtime) Store() *session.Store { return r.store }

func (r *Runtime) Guard() *network.Guard { return r.guard }

func (r *Runtime) Installed() bool { return r.bridge.Installed() }

// Connect asks the wallet for an account, then moves it to the required
// network if needed. A failed switch leaves the session connected.
func (r *Runtime) Connect(ctx context.Context) (common.Address, error) {
	account, err := r.bridge.Connect(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if !r.guard.OnRequiredNetwork() {
		if err := r.guard.SwitchToRequiredNetwork(ctx); err != nil {
			log.Warn("core: connected on the wrong network", "account", account.Hex(), "error", err)
		}
	}
	return account, nil
}

func (r *Runtime) Disconnect() {
	r.bridge.Disconnect()
}

func (r *Runtime) SwitchNetwork(ctx context.Context) error {
	return r.guard.SwitchToRequiredNetwork(ctx)
}

// Subscribe delivers session events after the ledger client has been
// rebound for them.
func (r *Runtime) Subscribe(ch chan<- provider.Event) event.Subscription {
	return r.scope.Track(r.feed.Subscribe(ch))
}

func (r *Runtime) Close() {
	r.bridge.Close()
	select {
	case <-r.quit:
	default:
		close(r.quit)
	}
	if r.sub != nil {
		<-r.done
	}
	r.scope.Close()
}
