// Package session holds the wallet session: the current account, the active
// chain, the connection flag and the last normalized failure.
package session

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
)

// Session is a value snapshot of the store.
type Session struct {
	Account   *common.Address `json:"account"`
	ChainID   *uint64         `json:"chainId"`
	Connected bool            `json:"connected"`
	LastError *errkind.Kind   `json:"lastError"`

	// Epoch increments on every account or chain change.
	Epoch uint64 `json:"epoch"`
}

// Store is the single source of truth for the session. Account, Connected,
// ChainID and Epoch are written by the provider bridge only; LastError is
// written through RecordError.
type Store struct {
	mu sync.RWMutex
	s  Session

	listeners []func(Session)
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy safe to hold onto.
func (st *Store) Snapshot() Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.clone()
}

// Epoch returns the current epoch.
func (st *Store) Epoch() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Epoch
}

// OnChange registers fn to be called with a snapshot after every mutation.
// fn runs on the mutating goroutine and must not block.
func (st *Store) OnChange(fn func(Session)) {
	st.mu.Lock()
	st.listeners = append(st.listeners, fn)
	st.mu.Unlock()
}

// SetConnected records a successful account request.
func (st *Store) SetConnected(account common.Address) {
	st.update(func(s *Session) bool {
		if s.Connected && s.Account != nil && *s.Account == account {
			return false
		}
		a := account
		s.Account = &a
		s.Connected = true
		s.LastError = nil
		s.Epoch++
		return true
	})
}

// SetAccount replaces the active account after a wallet-side switch.
func (st *Store) SetAccount(account common.Address) {
	st.update(func(s *Session) bool {
		if s.Account != nil && *s.Account == account {
			return false
		}
		a := account
		s.Account = &a
		s.Connected = true
		s.Epoch++
		return true
	})
}

// SetChainID records the active chain.
func (st *Store) SetChainID(chainID uint64) {
	st.update(func(s *Session) bool {
		if s.ChainID != nil && *s.ChainID == chainID {
			return false
		}
		c := chainID
		s.ChainID = &c
		s.Epoch++
		return true
	})
}

// Reset clears account, connection and last error. The chain id is kept
// because it describes the wallet, not the session. Resetting an already
// reset store changes nothing.
func (st *Store) Reset() {
	st.update(func(s *Session) bool {
		if s.Account == nil && !s.Connected && s.LastError == nil {
			return false
		}
		s.Account = nil
		s.Connected = false
		s.LastError = nil
		s.Epoch++
		return true
	})
}

// RecordError stores kind as the last error if the session epoch still equals
// epoch. It reports whether the error was recorded.
func (st *Store) RecordError(epoch uint64, kind errkind.Kind) bool {
	recorded := false
	st.update(func(s *Session) bool {
		if s.Epoch != epoch {
			return false
		}
		k := kind
		s.LastError = &k
		recorded = true
		return true
	})
	return recorded
}

// ClearError drops the last error after an operation started at epoch
// succeeded. A stale epoch leaves the newer session's error in place.
func (st *Store) ClearError(epoch uint64) {
	st.update(func(s *Session) bool {
		if s.Epoch != epoch || s.LastError == nil {
			return false
		}
		s.LastError = nil
		return true
	})
}

func (st *Store) update(fn func(*Session) bool) {
	st.mu.Lock()
	changed := fn(&st.s)
	var (
		snap      Session
		listeners []func(Session)
	)
	if changed {
		snap = st.s.clone()
		listeners = append(listeners, st.listeners...)
	}
	st.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (s Session) clone() Session {
	out := Session{Connected: s.Connected, Epoch: s.Epoch}
	if s.Account != nil {
		a := *s.Account
		out.Account = &a
	}
	if s.ChainID != nil {
		c := *s.ChainID
		out.ChainID = &c
	}
	if s.LastError != nil {
		k := *s.LastError
		out.LastError = &k
	}
	return out
}
