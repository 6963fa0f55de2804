package ledger_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger/ledgertest"
	"github.com/quantumauth-io/quantum-credential-client/internal/network"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider/providertest"
	"github.com/quantumauth-io/quantum-credential-client/internal/session"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	issuer = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	other  = common.HexToAddress("0x0000000000000000000000000000000000000ca7")
)

type env struct {
	wallet   *providertest.Wallet
	contract *ledgertest.Contract
	bridge   *provider.Bridge
	store    *session.Store
	guard    *network.Guard
}

func newEnv(t *testing.T, chainID uint64, accounts ...common.Address) *env {
	t.Helper()
	e := &env{
		wallet:   providertest.New(chainID, accounts...),
		contract: ledgertest.New(owner),
		store:    session.NewStore(),
	}
	e.wallet.OnSend(e.contract.Send)
	e.bridge = provider.NewBridge(e.wallet, e.store)
	t.Cleanup(e.bridge.Close)
	require.NoError(t, e.bridge.Init(context.Background()))
	e.guard = network.NewGuard(e.bridge, e.store, network.DefaultChain())
	return e
}

func (e *env) connect(t *testing.T) {
	t.Helper()
	_, err := e.bridge.Connect(context.Background())
	require.NoError(t, err)
}

func (e *env) client(t *testing.T, cfg ledger.Config) *ledger.Client {
	t.Helper()
	c, err := ledger.New(ledger.Deps{
		Address:  e.contract.Address,
		Reader:   e.contract,
		Wallet:   e.bridge,
		Guard:    e.guard,
		Receipts: e.contract,
		Store:    e.store,
	}, cfg)
	require.NoError(t, err)
	return c
}

func draft(id, email string) ledger.Draft {
	return ledger.Draft{
		ID:             id,
		RecipientName:  "John Doe",
		RecipientEmail: email,
		IssuerName:     "Example University",
		CredentialType: "Degree",
		Description:    "BSc Computer Science",
		MetadataURI:    "ipfs://meta",
	}
}

func TestClient_IssueVerifyRevokeScenario(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	c := e.client(t, ledger.Config{})
	ctx := context.Background()

	hash, err := c.Issue(ctx, draft("171234-ab3x9", "john@example.com"))
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	v, err := c.Verify(ctx, "171234-ab3x9")
	require.NoError(t, err)
	assert.True(t, v.Exists)
	assert.True(t, v.IsValid)
	assert.Equal(t, "John Doe", v.RecipientName)
	assert.Equal(t, "Example University", v.IssuerName)
	assert.Equal(t, "Degree", v.CredentialType)
	assert.False(t, v.IssueDate.IsZero())

	_, err = c.Revoke(ctx, "171234-ab3x9")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v, err = c.Verify(ctx, "171234-ab3x9")
		require.NoError(t, err)
		assert.True(t, v.Exists, "existence is monotonic")
		assert.False(t, v.IsValid, "revocation is terminal")
	}

	_, err = c.Revoke(ctx, "171234-ab3x9")
	assert.ErrorIs(t, err, errkind.TransactionFailure)

	cred, err := c.Get(ctx, "171234-ab3x9")
	require.NoError(t, err)
	assert.Equal(t, "171234-ab3x9", cred.ID)
	assert.Equal(t, "john@example.com", cred.RecipientEmail)
	assert.Equal(t, "BSc Computer Science", cred.Description)
	assert.Equal(t, owner, cred.Issuer)
	assert.False(t, cred.IsValid)
	assert.Equal(t, "ipfs://meta", cred.MetadataURI)
}

func TestClient_IssueRequiresConnection(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	c := e.client(t, ledger.Config{})

	_, err := c.Issue(context.Background(), draft("1-aaaaa", "john@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.WalletNotConnected)

	assert.Zero(t, e.contract.Calls())
	assert.Zero(t, e.wallet.CallCount(constants.MethodSendTransaction))

	s := e.store.Snapshot()
	require.NotNil(t, s.LastError)
	assert.Equal(t, errkind.WalletNotConnected, *s.LastError)
}

func TestClient_WritesRefusedOffNetwork(t *testing.T) {
	e := newEnv(t, 1, owner)
	e.connect(t)
	c := e.client(t, ledger.Config{})

	_, err := c.Issue(context.Background(), draft("1-aaaaa", "john@example.com"))
	assert.ErrorIs(t, err, errkind.NetworkMismatch)
	_, err = c.Revoke(context.Background(), "1-aaaaa")
	assert.ErrorIs(t, err, errkind.NetworkMismatch)
	assert.Zero(t, e.contract.Sends())

	// reads are not gated
	v, err := c.Verify(context.Background(), "1-aaaaa")
	require.NoError(t, err)
	assert.False(t, v.Exists)
	assert.True(t, e.store.Snapshot().Connected)
}

func TestClient_DuplicateIDIsTransactionFailure(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	c := e.client(t, ledger.Config{})
	ctx := context.Background()

	_, err := c.Issue(ctx, draft("1-dup00", "a@example.com"))
	require.NoError(t, err)
	_, err = c.Issue(ctx, draft("1-dup00", "b@example.com"))
	assert.ErrorIs(t, err, errkind.TransactionFailure)

	s := e.store.Snapshot()
	require.NotNil(t, s.LastError)
	assert.Equal(t, errkind.TransactionFailure, *s.LastError)
}

func TestClient_RevokeByNonIssuer(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.contract.Authorize(issuer)
	e.connect(t)
	ctx := context.Background()

	_, err := e.client(t, ledger.Config{}).Issue(ctx, draft("1-own00", "a@example.com"))
	require.NoError(t, err)

	e.wallet.SetAccounts(issuer)
	require.Eventually(t, func() bool {
		a := e.store.Snapshot().Account
		return a != nil && *a == issuer
	}, time.Second, 5*time.Millisecond)

	_, err = e.client(t, ledger.Config{}).Revoke(ctx, "1-own00")
	assert.ErrorIs(t, err, errkind.TransactionFailure)
}

func TestClient_StaleClientRefusesWrites(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	stale := e.client(t, ledger.Config{})

	e.wallet.SetAccounts(issuer)
	require.Eventually(t, func() bool {
		a := e.store.Snapshot().Account
		return a != nil && *a == issuer
	}, time.Second, 5*time.Millisecond)

	_, err := stale.Issue(context.Background(), draft("1-stale", "a@example.com"))
	assert.ErrorIs(t, err, errkind.WalletNotConnected)
	assert.Zero(t, e.contract.Sends())
}

func TestClient_ErrorFromPreviousSessionNotRecorded(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	c := e.client(t, ledger.Config{})

	e.wallet.OnSend(func(ctx context.Context, tx provider.TransactionArgs) (common.Hash, error) {
		e.wallet.SetAccounts(issuer)
		for {
			if a := e.store.Snapshot().Account; a != nil && *a == issuer {
				break
			}
			time.Sleep(time.Millisecond)
		}
		return common.Hash{}, providertest.RejectedError()
	})

	_, err := c.Issue(context.Background(), draft("1-late0", "a@example.com"))
	assert.ErrorIs(t, err, errkind.UserRejected)
	assert.Nil(t, e.store.Snapshot().LastError)
}

func TestClient_UserRejectsTransaction(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	e.wallet.OnSend(func(context.Context, provider.TransactionArgs) (common.Hash, error) {
		return common.Hash{}, providertest.RejectedError()
	})

	c := e.client(t, ledger.Config{})
	_, err := c.Issue(context.Background(), draft("1-rej00", "a@example.com"))
	assert.ErrorIs(t, err, errkind.UserRejected)
	s := e.store.Snapshot()
	assert.True(t, s.Connected)
	require.NotNil(t, s.LastError)
	assert.Equal(t, errkind.UserRejected, *s.LastError)

	// the next successful write clears it
	e.wallet.OnSend(e.contract.Send)
	_, err = c.Issue(context.Background(), draft("1-rej01", "a@example.com"))
	require.NoError(t, err)
	assert.Nil(t, e.store.Snapshot().LastError)
}

func TestClient_WritesAreSerialized(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	c := e.client(t, ledger.Config{})

	var inFlight, maxInFlight int32
	e.wallet.OnSend(func(ctx context.Context, tx provider.TransactionArgs) (common.Hash, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		defer atomic.AddInt32(&inFlight, -1)
		return e.contract.Send(ctx, tx)
	})

	var wg sync.WaitGroup
	for _, id := range []string{"1-aaaa1", "1-aaaa2", "1-aaaa3", "1-aaaa4"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := c.Issue(context.Background(), draft(id, "a@example.com"))
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	ids, err := c.ListByRecipient(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

func TestClient_VerifyUnknown(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID)
	c := e.client(t, ledger.Config{})

	v, err := c.Verify(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.Equal(t, ledger.Verification{}, v)
}

func TestClient_VerifyEmptyID(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID)
	c := e.client(t, ledger.Config{})

	v, err := c.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, v.Exists)
	assert.Equal(t, ledger.Verification{}, v)
}

func TestClient_GetUnknownIsTransactionFailure(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID)
	c := e.client(t, ledger.Config{ReadRetries: 3, RetryInterval: time.Millisecond})

	_, err := c.Get(context.Background(), "never-issued")
	assert.ErrorIs(t, err, errkind.TransactionFailure)
	assert.Equal(t, 1, e.contract.Calls(), "reverts are not retried")
}

func TestClient_NoBinding(t *testing.T) {
	st := session.NewStore()
	c, err := ledger.New(ledger.Deps{Store: st}, ledger.Config{})
	require.NoError(t, err)
	assert.False(t, c.Initialized())

	_, err = c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, errkind.ContractNotInitialized)
	_, err = c.Verify(context.Background(), "x")
	assert.ErrorIs(t, err, errkind.ContractNotInitialized)
}

func TestClient_NoCodeAtAddress(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID)
	c, err := ledger.New(ledger.Deps{
		Address: common.HexToAddress("0x000000000000000000000000000000000000dead"),
		Reader:  e.contract,
		Store:   e.store,
	}, ledger.Config{})
	require.NoError(t, err)

	_, err = c.IsAuthorizedIssuer(context.Background(), owner)
	assert.ErrorIs(t, err, errkind.ContractNotInitialized)
}

func TestClient_ReadsRetryTransientFailures(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID)
	c := e.client(t, ledger.Config{ReadRetries: 3, RetryInterval: time.Millisecond})

	e.contract.FailNextReads(2)
	ok, err := c.IsAuthorizedIssuer(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, ok)

	e.contract.FailNextReads(10)
	_, err = c.IsAuthorizedIssuer(context.Background(), owner)
	assert.ErrorIs(t, err, errkind.ProviderError)
}

func TestClient_Listings(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	c := e.client(t, ledger.Config{})
	ctx := context.Background()

	empty, err := c.ListByIssuer(ctx, other)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, id := range []string{"3-ccccc", "1-aaaaa", "2-bbbbb"} {
		_, err := c.Issue(ctx, draft(id, "john@example.com"))
		require.NoError(t, err)
	}

	ids, err := c.ListByIssuer(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"3-ccccc", "1-aaaaa", "2-bbbbb"}, ids)

	ids, err = c.ListByRecipient(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"3-ccccc", "1-aaaaa", "2-bbbbb"}, ids)

	creds, err := c.CredentialsByRecipient(ctx, "john@example.com")
	require.NoError(t, err)
	require.Len(t, creds, 3)
	assert.Equal(t, "3-ccccc", creds[0].ID)

	creds, err = c.CredentialsByIssuer(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestClient_Authorization(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	ctx := context.Background()
	c := e.client(t, ledger.Config{})

	got, err := c.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	ok, err := c.IsAuthorizedIssuer(ctx, issuer)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.AuthorizeIssuer(ctx, issuer)
	require.NoError(t, err)

	ok, err = c.IsAuthorizedIssuer(ctx, issuer)
	require.NoError(t, err)
	assert.True(t, ok)

	e.wallet.SetAccounts(issuer)
	require.Eventually(t, func() bool {
		a := e.store.Snapshot().Account
		return a != nil && *a == issuer
	}, time.Second, 5*time.Millisecond)

	_, err = e.client(t, ledger.Config{}).AuthorizeIssuer(ctx, other)
	assert.ErrorIs(t, err, errkind.TransactionFailure)
}

func TestClient_WaitForReceipt(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	c := e.client(t, ledger.Config{WaitForReceipt: true, ReceiptTimeout: time.Second})
	ctx := context.Background()

	_, err := c.Issue(ctx, draft("1-mined", "a@example.com"))
	require.NoError(t, err)

	e.contract.MineReverted(true)
	hash, err := c.Issue(ctx, draft("1-rvrtd", "a@example.com"))
	assert.ErrorIs(t, err, errkind.TransactionFailure)
	assert.NotEqual(t, common.Hash{}, hash)
}

func TestClient_InvalidDraft(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	e.connect(t)
	c := e.client(t, ledger.Config{})

	_, err := c.Issue(context.Background(), ledger.Draft{ID: "1-x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	assert.Zero(t, e.contract.Sends())
	assert.Nil(t, e.store.Snapshot().LastError)
}

func TestClient_DisconnectedBeatsInvalidArguments(t *testing.T) {
	e := newEnv(t, constants.DefaultChainID, owner)
	c := e.client(t, ledger.Config{})
	ctx := context.Background()

	_, err := c.Issue(ctx, ledger.Draft{})
	assert.ErrorIs(t, err, errkind.WalletNotConnected)
	_, err = c.Issue(ctx, ledger.Draft{ID: "1-aaaaa"})
	assert.ErrorIs(t, err, errkind.WalletNotConnected)
	_, err = c.Revoke(ctx, "")
	assert.ErrorIs(t, err, errkind.WalletNotConnected)
	_, err = c.AuthorizeIssuer(ctx, common.Address{})
	assert.ErrorIs(t, err, errkind.WalletNotConnected)

	assert.Zero(t, e.wallet.CallCount(constants.MethodSendTransaction))
}

func TestNewCredentialID(t *testing.T) {
	re := regexp.MustCompile(`^\d{13}-[0-9a-z]{5}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := ledger.NewCredentialID()
		require.NoError(t, err)
		assert.Regexp(t, re, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestLoadDeployment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, constants.DeploymentFile)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "address": "0x5FbDB2315678afecb367f032d93F642f64180aa3",
  "network": "localhost",
  "deployer": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
  "deploymentTime": "2024-04-05T10:11:12.345Z"
}`), 0o600))

	d, err := ledger.LoadDeployment(path)
	require.NoError(t, err)
	assert.Equal(t, ledgertest.DefaultAddress, d.Address)
	assert.Equal(t, "localhost", d.Network)
	assert.Equal(t, 2024, d.DeploymentTime.Year())

	require.NoError(t, os.WriteFile(path, []byte(`{"network":"x"}`), 0o600))
	_, err = ledger.LoadDeployment(path)
	assert.Error(t, err)

	_, err = ledger.LoadDeployment(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
