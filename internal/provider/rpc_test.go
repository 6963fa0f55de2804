package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ethService struct {
	mu       sync.Mutex
	accounts []common.Address
	chainID  uint64
}

func (s *ethService) Accounts() []common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts
}

func (s *ethService) ChainId() hexutil.Uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hexutil.Uint64(s.chainID)
}

func (s *ethService) set(chainID uint64, accounts ...common.Address) {
	s.mu.Lock()
	s.chainID, s.accounts = chainID, accounts
	s.mu.Unlock()
}

func newInProc(t *testing.T, svc *ethService, interval time.Duration) *RPCProvider {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", svc))
	t.Cleanup(srv.Stop)

	p := NewRPCProvider(rpc.DialInProc(srv), interval)
	t.Cleanup(p.Close)
	return p
}

func TestRPCProvider_Request(t *testing.T) {
	svc := &ethService{chainID: 1337}
	p := newInProc(t, svc, time.Hour)

	raw, err := p.Request(context.Background(), "eth_chainId")
	require.NoError(t, err)
	assert.JSONEq(t, `"0x539"`, string(raw))

	_, err = p.Request(context.Background(), "eth_nope")
	require.Error(t, err)
}

func TestRPCProvider_DiffSeedsThenReports(t *testing.T) {
	p := &RPCProvider{}
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")

	assert.Empty(t, p.diff([]common.Address{a}, 1337))
	assert.Empty(t, p.diff([]common.Address{a}, 1337))

	got := p.diff([]common.Address{b}, 5)
	require.Len(t, got, 2)
	assert.Equal(t, AccountsChanged, got[0].Kind)
	assert.Equal(t, []common.Address{b}, got[0].Accounts)
	assert.Equal(t, ChainChanged, got[1].Kind)
	assert.Equal(t, uint64(5), got[1].ChainID)

	got = p.diff(nil, 5)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Accounts)
}

func TestRPCProvider_PollEmitsChanges(t *testing.T) {
	svc := &ethService{chainID: 1337}
	p := newInProc(t, svc, 20*time.Millisecond)

	ch := make(chan Notification, 4)
	sub := p.SubscribeNotifications(ch)
	defer sub.Unsubscribe()

	// let the poller take its baseline
	time.Sleep(60 * time.Millisecond)
	svc.set(5)

	select {
	case n := <-ch:
		assert.Equal(t, ChainChanged, n.Kind)
		assert.Equal(t, uint64(5), n.ChainID)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification from poller")
	}
}
