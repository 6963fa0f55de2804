package provider

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
	"github.com/quantumauth-io/quantum-credential-client/internal/session"
)

const notificationBuffer = 16

// Bridge sits between a wallet provider and the session store. Every
// lifecycle change goes through one dispatch path: the store is updated
// first, then the event is published to subscribers.
type Bridge struct {
	provider Provider
	store    *session.Store

	dispatchMu sync.Mutex
	feed       event.Feed
	scope      event.SubscriptionScope

	initMu sync.Mutex
	sub    event.Subscription
	notes  chan Notification
	quit   chan struct{}
	done   chan struct{}
}

// NewBridge returns a bridge over p. A nil p models "no wallet installed":
// every call then fails with WalletNotInstalled.
func NewBridge(p Provider, store *session.Store) *Bridge {
	return &Bridge{
		provider: p,
		store:    store,
	}
}

func (b *Bridge) Installed() bool {
	return b.provider != nil
}

func (b *Bridge) Store() *session.Store {
	return b.store
}

// Init reads the active chain and subscribes to provider notifications.
// Calling Init again is a no-op.
func (b *Bridge) Init(ctx context.Context) error {
	if b.provider == nil {
		return errkind.New(errkind.WalletNotInstalled, "init", nil)
	}

	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.sub != nil {
		return nil
	}

	if chainID, err := b.ChainID(ctx); err != nil {
		log.Error("provider: read chain id", "error", err)
	} else {
		b.dispatch(Event{Kind: EventChainChanged, ChainID: chainID})
	}

	b.notes = make(chan Notification, notificationBuffer)
	b.quit = make(chan struct{})
	b.done = make(chan struct{})
	b.sub = b.provider.SubscribeNotifications(b.notes)

	go b.loop(b.sub, b.notes, b.quit, b.done)
	return nil
}

// Subscribe delivers bridge events to ch. Events are sent after the store
// has been updated. Subscribers must keep ch drained.
func (b *Bridge) Subscribe(ch chan<- Event) event.Subscription {
	return b.scope.Track(b.feed.Subscribe(ch))
}

// Connect requests account access and marks the session connected.
func (b *Bridge) Connect(ctx context.Context) (common.Address, error) {
	const op = "connect"
	epoch := b.store.Epoch()

	if b.provider == nil {
		return common.Address{}, b.fail(epoch, errkind.New(errkind.WalletNotInstalled, op, nil))
	}

	raw, err := b.provider.Request(ctx, constants.MethodRequestAccounts)
	if err != nil {
		nerr := errkind.Normalize(op, err)
		if nerr.Kind != errkind.UserRejected {
			nerr = &errkind.Error{Kind: errkind.ProviderError, Op: op, Code: nerr.Code, Err: err}
		}
		return common.Address{}, b.fail(epoch, nerr)
	}

	var accounts []common.Address
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return common.Address{}, b.fail(epoch, errkind.New(errkind.ProviderError, op, errors.Wrap(err, "decode accounts")))
	}
	if len(accounts) == 0 {
		return common.Address{}, b.fail(epoch, errkind.Newf(errkind.ProviderError, op, "wallet returned no accounts"))
	}

	b.dispatch(Event{Kind: EventConnected, Account: accounts[0]})

	if chainID, err := b.ChainID(ctx); err == nil {
		b.dispatch(Event{Kind: EventChainChanged, ChainID: chainID})
	}

	log.Info("provider: connected", "account", accounts[0].Hex())
	return accounts[0], nil
}

// Disconnect clears the local session. Wallet-side permissions are left as
// they are.
func (b *Bridge) Disconnect() {
	b.dispatch(Event{Kind: EventDisconnected})
}

// Request forwards a raw call to the provider.
func (b *Bridge) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if b.provider == nil {
		return nil, errkind.New(errkind.WalletNotInstalled, method, nil)
	}
	return b.provider.Request(ctx, method, params...)
}

// ChainID asks the provider for the active chain.
func (b *Bridge) ChainID(ctx context.Context) (uint64, error) {
	raw, err := b.Request(ctx, constants.MethodChainID)
	if err != nil {
		return 0, errkind.Normalize("chain id", err)
	}
	var id hexutil.Uint64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, errkind.New(errkind.ProviderError, "chain id", errors.Wrapf(err, "decode %s", string(raw)))
	}
	return uint64(id), nil
}

// Close stops the notification loop and ends all subscriptions.
func (b *Bridge) Close() {
	b.initMu.Lock()
	sub, quit, done := b.sub, b.quit, b.done
	b.sub = nil
	b.initMu.Unlock()

	if sub != nil {
		close(quit)
		sub.Unsubscribe()
		<-done
	}
	b.scope.Close()
}

func (b *Bridge) loop(sub event.Subscription, notes <-chan Notification, quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case n := <-notes:
			b.handle(n)
		case err, ok := <-sub.Err():
			if ok && err != nil {
				log.Error("provider: notification subscription ended", "error", err)
			}
			return
		case <-quit:
			return
		}
	}
}

func (b *Bridge) handle(n Notification) {
	switch n.Kind {
	case AccountsChanged:
		if len(n.Accounts) == 0 {
			b.dispatch(Event{Kind: EventDisconnected})
			return
		}
		// Without a user-initiated connect there is no session to follow.
		if !b.store.Snapshot().Connected {
			return
		}
		b.dispatch(Event{Kind: EventAccountChanged, Account: n.Accounts[0]})
	case ChainChanged:
		b.dispatch(Event{Kind: EventChainChanged, ChainID: n.ChainID})
	default:
		log.Error("provider: unknown notification", "kind", n.Kind.String())
	}
}

func (b *Bridge) dispatch(ev Event) {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	before := b.store.Epoch()
	switch ev.Kind {
	case EventConnected:
		b.store.SetConnected(ev.Account)
	case EventAccountChanged:
		b.store.SetAccount(ev.Account)
	case EventChainChanged:
		b.store.SetChainID(ev.ChainID)
	case EventDisconnected:
		b.store.Reset()
	}
	if b.store.Epoch() == before {
		return
	}
	b.feed.Send(ev)
}

func (b *Bridge) fail(epoch uint64, err *errkind.Error) error {
	b.store.RecordError(epoch, err.Kind)
	log.Error("provider: "+err.Op, "kind", err.Kind.String(), "error", err)
	return err
}
