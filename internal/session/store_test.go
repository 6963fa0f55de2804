package session

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func TestStore_ConnectAndReset(t *testing.T) {
	st := NewStore()
	st.SetChainID(1337)
	st.SetConnected(alice)

	s := st.Snapshot()
	require.NotNil(t, s.Account)
	assert.Equal(t, alice, *s.Account)
	assert.True(t, s.Connected)
	require.NotNil(t, s.ChainID)
	assert.Equal(t, uint64(1337), *s.ChainID)

	st.Reset()
	s = st.Snapshot()
	assert.Nil(t, s.Account)
	assert.False(t, s.Connected)
	assert.Nil(t, s.LastError)
	require.NotNil(t, s.ChainID)
}

func TestStore_ResetIsIdempotent(t *testing.T) {
	st := NewStore()
	st.SetConnected(alice)
	st.RecordError(st.Epoch(), errkind.ProviderError)

	st.Reset()
	first := st.Snapshot()
	st.Reset()
	second := st.Snapshot()

	assert.Equal(t, first, second)
}

func TestStore_EpochAdvancesOnChange(t *testing.T) {
	st := NewStore()
	e0 := st.Epoch()

	st.SetChainID(1)
	e1 := st.Epoch()
	assert.Greater(t, e1, e0)

	st.SetChainID(1)
	assert.Equal(t, e1, st.Epoch(), "same chain must not bump the epoch")

	st.SetAccount(alice)
	assert.Greater(t, st.Epoch(), e1)
}

func TestStore_RecordErrorIgnoresStaleEpoch(t *testing.T) {
	st := NewStore()
	st.SetConnected(alice)
	started := st.Epoch()

	st.SetAccount(common.HexToAddress("0x0000000000000000000000000000000000000b0b"))

	assert.False(t, st.RecordError(started, errkind.TransactionFailure))
	assert.Nil(t, st.Snapshot().LastError)

	assert.True(t, st.RecordError(st.Epoch(), errkind.TransactionFailure))
	s := st.Snapshot()
	require.NotNil(t, s.LastError)
	assert.Equal(t, errkind.TransactionFailure, *s.LastError)

	st.ClearError(started)
	assert.NotNil(t, st.Snapshot().LastError)

	st.ClearError(st.Epoch())
	assert.Nil(t, st.Snapshot().LastError)
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	st := NewStore()
	st.SetConnected(alice)

	s := st.Snapshot()
	*s.Account = common.Address{}

	assert.Equal(t, alice, *st.Snapshot().Account)
}

func TestStore_OnChange(t *testing.T) {
	st := NewStore()
	var seen []Session
	st.OnChange(func(s Session) { seen = append(seen, s) })

	st.SetConnected(alice)
	st.SetConnected(alice)
	st.Reset()

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Connected)
	assert.False(t, seen[1].Connected)
}
