package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/contracts/bindings/go/credentialverification"
	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
	"github.com/quantumauth-io/quantum-credential-client/internal/metrics"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
	"github.com/quantumauth-io/quantum-credential-client/internal/session"
)

// Wallet submits transactions. The provider bridge satisfies it.
type Wallet interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// WriteGuard refuses writes off the required network.
type WriteGuard interface {
	EnsureWritable(ctx context.Context) error
}

type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Config struct {
	// ReadRetries is the number of extra attempts for reads failing with a
	// provider error.
	ReadRetries   int
	RetryInterval time.Duration

	// WaitForReceipt makes writes wait for the receipt and fail with
	// TransactionFailure when the transaction reverted.
	WaitForReceipt bool
	ReceiptTimeout time.Duration
}

func (c *Config) Normalize() {
	if c.ReadRetries < 0 {
		c.ReadRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	if c.ReceiptTimeout <= 0 {
		c.ReceiptTimeout = 2 * time.Minute
	}
}

// Deps are the collaborators a client is bound to. A zero Address or a nil
// Reader leaves the client without a contract binding.
type Deps struct {
	Address  common.Address
	Reader   bind.ContractCaller
	Wallet   Wallet
	Guard    WriteGuard
	Receipts ReceiptBackend
	Store    *session.Store
}

// Client is bound to the session as it was when the client was built. After
// an account or chain change callers must use a freshly bound client; writes
// through a stale one fail with WalletNotConnected.
type Client struct {
	cfg     Config
	address common.Address
	abi     *abi.ABI
	caller  *credentialverification.CredentialVerificationCaller

	wallet   Wallet
	guard    WriteGuard
	receipts ReceiptBackend
	store    *session.Store

	account *common.Address
	epoch   uint64

	writeMu sync.Mutex
}

func New(deps Deps, cfg Config) (*Client, error) {
	if deps.Store == nil {
		return nil, errors.New("ledger: nil session store")
	}
	cfg.Normalize()

	parsed, err := credentialverification.CredentialVerificationMetaData.GetAbi()
	if err != nil {
		return nil, errors.Wrap(err, "ledger: parse abi")
	}

	snap := deps.Store.Snapshot()
	c := &Client{
		cfg:      cfg,
		address:  deps.Address,
		abi:      parsed,
		wallet:   deps.Wallet,
		guard:    deps.Guard,
		receipts: deps.Receipts,
		store:    deps.Store,
		epoch:    snap.Epoch,
	}
	if snap.Connected {
		c.account = snap.Account
	}

	if deps.Reader != nil && deps.Address != (common.Address{}) {
		caller, err := credentialverification.NewCredentialVerificationCaller(deps.Address, deps.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "ledger: bind contract")
		}
		c.caller = caller
	}
	return c, nil
}

func (c *Client) Address() common.Address {
	return c.address
}

// Account is the account writes are signed by, nil when not connected.
func (c *Client) Account() *common.Address {
	if c.account == nil {
		return nil
	}
	a := *c.account
	return &a
}

// Epoch is the session epoch the client was bound at.
func (c *Client) Epoch() uint64 {
	return c.epoch
}

func (c *Client) Initialized() bool {
	return c.caller != nil
}

// Issue submits issueCredential and returns the transaction hash.
func (c *Client) Issue(ctx context.Context, d Draft) (common.Hash, error) {
	d.Normalize()
	return c.write(ctx, "issue", "issueCredential", d.Validate,
		d.ID, d.RecipientName, d.RecipientEmail, d.IssuerName, d.CredentialType, d.Description, d.MetadataURI)
}

// Revoke submits revokeCredential. Only the issuing account succeeds; the
// ledger decides.
func (c *Client) Revoke(ctx context.Context, id string) (common.Hash, error) {
	check := func() error {
		if id == "" {
			return errors.Wrap(ErrInvalidArgument, "empty credential id")
		}
		return nil
	}
	return c.write(ctx, "revoke", "revokeCredential", check, id)
}

// AuthorizeIssuer submits authorizeIssuer. The ledger restricts it to its owner.
func (c *Client) AuthorizeIssuer(ctx context.Context, issuer common.Address) (common.Hash, error) {
	check := func() error {
		if issuer == (common.Address{}) {
			return errors.Wrap(ErrInvalidArgument, "zero issuer address")
		}
		return nil
	}
	return c.write(ctx, "authorize issuer", "authorizeIssuer", check, issuer)
}

// Verify never fails for an unknown id; it reports Exists=false instead.
func (c *Client) Verify(ctx context.Context, id string) (Verification, error) {
	var out Verification
	err := c.read(ctx, "verify", func(opts *bind.CallOpts) error {
		r, err := c.caller.VerifyCredential(opts, id)
		if err != nil {
			return err
		}
		if !r.Exists {
			out = Verification{}
			return nil
		}
		out = Verification{
			Exists:         true,
			IsValid:        r.IsValid,
			RecipientName:  r.RecipientName,
			IssuerName:     r.IssuerName,
			CredentialType: r.CredentialType,
			IssueDate:      unixTime(r.IssueDate),
		}
		return nil
	})
	return out, err
}

// Get fetches the full record. An unknown id reverts on the ledger.
func (c *Client) Get(ctx context.Context, id string) (Credential, error) {
	var out Credential
	if id == "" {
		return out, errkind.New(errkind.UnknownError, "get", errors.Wrap(ErrInvalidArgument, "empty credential id"))
	}
	err := c.read(ctx, "get", func(opts *bind.CallOpts) error {
		r, err := c.caller.GetCredential(opts, id)
		if err != nil {
			return err
		}
		out = Credential{
			ID:             r.CredentialId,
			RecipientName:  r.RecipientName,
			RecipientEmail: r.RecipientEmail,
			IssuerName:     r.IssuerName,
			CredentialType: r.CredentialType,
			Description:    r.Description,
			IssueDate:      unixTime(r.IssueDate),
			Issuer:         r.Issuer,
			IsValid:        r.IsValid,
			MetadataURI:    r.MetadataURI,
		}
		return nil
	})
	return out, err
}

// ListByIssuer returns ids in ledger order.
func (c *Client) ListByIssuer(ctx context.Context, issuer common.Address) ([]string, error) {
	var ids []string
	err := c.read(ctx, "list by issuer", func(opts *bind.CallOpts) error {
		r, err := c.caller.GetIssuerCredentials(opts, issuer)
		ids = r
		return err
	})
	if ids == nil && err == nil {
		ids = []string{}
	}
	return ids, err
}

// ListByRecipient returns ids in ledger order.
func (c *Client) ListByRecipient(ctx context.Context, email string) ([]string, error) {
	var ids []string
	err := c.read(ctx, "list by recipient", func(opts *bind.CallOpts) error {
		r, err := c.caller.GetRecipientCredentials(opts, email)
		ids = r
		return err
	})
	if ids == nil && err == nil {
		ids = []string{}
	}
	return ids, err
}

func (c *Client) IsAuthorizedIssuer(ctx context.Context, addr common.Address) (bool, error) {
	var ok bool
	err := c.read(ctx, "is authorized issuer", func(opts *bind.CallOpts) error {
		r, err := c.caller.IsAuthorizedIssuer(opts, addr)
		ok = r
		return err
	})
	return ok, err
}

func (c *Client) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	err := c.read(ctx, "owner", func(opts *bind.CallOpts) error {
		r, err := c.caller.Owner(opts)
		owner = r
		return err
	})
	return owner, err
}

// CredentialsByIssuer lists and fetches every credential of issuer. Records
// that fail to load are skipped.
func (c *Client) CredentialsByIssuer(ctx context.Context, issuer common.Address) ([]Credential, error) {
	ids, err := c.ListByIssuer(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return c.fetchAll(ctx, ids), nil
}

// CredentialsByRecipient lists and fetches every credential of email.
// Records that fail to load are skipped.
func (c *Client) CredentialsByRecipient(ctx context.Context, email string) ([]Credential, error) {
	ids, err := c.ListByRecipient(ctx, email)
	if err != nil {
		return nil, err
	}
	return c.fetchAll(ctx, ids), nil
}

func (c *Client) fetchAll(ctx context.Context, ids []string) []Credential {
	out := make([]Credential, 0, len(ids))
	for _, id := range ids {
		cred, err := c.Get(ctx, id)
		if err != nil {
			log.Error("ledger: skip credential", "credential_id", id, "error", err)
			continue
		}
		out = append(out, cred)
	}
	return out
}

// read runs fn with bounded retries on provider errors. Other failures end
// the call immediately.
func (c *Client) read(ctx context.Context, op string, fn func(*bind.CallOpts) error) (err error) {
	epoch := c.store.Epoch()
	start := time.Now()
	defer func() { metrics.ObserveLedgerCall(op, err, time.Since(start)) }()

	if c.caller == nil {
		return c.fail(epoch, errkind.Newf(errkind.ContractNotInitialized, op, "no contract binding"))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	b.MaxElapsedTime = 0

	attempt := 0
	err = backoff.RetryNotify(
		func() error {
			attempt++
			err := fn(&bind.CallOpts{Context: ctx})
			if err == nil {
				return nil
			}
			nerr := errkind.Normalize(op, err)
			if nerr.Kind != errkind.ProviderError {
				return backoff.Permanent(nerr)
			}
			return nerr
		},
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.ReadRetries)), ctx),
		func(err error, next time.Duration) {
			log.Info("ledger: retrying read", "op", op, "attempt", attempt, "next", next.String(), "error", err)
		},
	)
	if err != nil {
		return c.fail(epoch, errkind.Normalize(op, err))
	}
	return nil
}

// write checks the session and the binding, then the arguments through check,
// then the network, and submits one transaction. Writes through a client are
// serialized and never retried.
func (c *Client) write(ctx context.Context, op, method string, check func() error, args ...any) (hash common.Hash, err error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	epoch := c.store.Epoch()
	start := time.Now()
	defer func() { metrics.ObserveLedgerCall(op, err, time.Since(start)) }()

	snap := c.store.Snapshot()
	switch {
	case !snap.Connected || snap.Account == nil || c.account == nil:
		return hash, c.fail(epoch, errkind.Newf(errkind.WalletNotConnected, op, "no connected account"))
	case snap.Epoch != c.epoch || *snap.Account != *c.account:
		return hash, c.fail(epoch, errkind.Newf(errkind.WalletNotConnected, op, "session changed since the ledger client was bound"))
	case c.caller == nil:
		return hash, c.fail(epoch, errkind.Newf(errkind.ContractNotInitialized, op, "no contract binding"))
	case c.wallet == nil:
		return hash, c.fail(epoch, errkind.Newf(errkind.WalletNotInstalled, op, "no wallet to sign with"))
	}

	if check != nil {
		if err := check(); err != nil {
			return hash, errkind.New(errkind.UnknownError, op, err)
		}
	}

	if c.guard != nil {
		if err := c.guard.EnsureWritable(ctx); err != nil {
			return hash, c.fail(epoch, errkind.Normalize(op, err))
		}
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return hash, errkind.New(errkind.UnknownError, op, errors.Wrap(ErrInvalidArgument, err.Error()))
	}

	to := c.address
	raw, err := c.wallet.Request(ctx, constants.MethodSendTransaction, provider.TransactionArgs{
		From: *c.account,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return hash, c.fail(epoch, errkind.Normalize(op, err))
	}
	if err := json.Unmarshal(raw, &hash); err != nil {
		return hash, c.fail(epoch, errkind.New(errkind.ProviderError, op, errors.Wrapf(err, "decode tx hash %s", string(raw))))
	}

	log.Info("ledger: transaction submitted", "op", op, "tx_hash", hash.Hex(), "from", c.account.Hex())

	if c.cfg.WaitForReceipt && c.receipts != nil {
		if err := c.waitReceipt(ctx, op, hash); err != nil {
			return hash, c.fail(epoch, err)
		}
	}
	c.store.ClearError(epoch)
	return hash, nil
}

func (c *Client) waitReceipt(ctx context.Context, op string, hash common.Hash) *errkind.Error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReceiptTimeout)
	defer cancel()

	t := time.NewTicker(constants.DefaultReceiptPoll)
	defer t.Stop()
	for {
		r, err := c.receipts.TransactionReceipt(ctx, hash)
		if err == nil && r != nil {
			if r.Status != types.ReceiptStatusSuccessful {
				return errkind.Newf(errkind.TransactionFailure, op, "transaction %s reverted in block %v", hash.Hex(), r.BlockNumber)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return errkind.New(errkind.ProviderError, op, errors.Wrapf(ctx.Err(), "wait receipt %s", hash.Hex()))
		case <-t.C:
		}
	}
}

func (c *Client) fail(epoch uint64, err *errkind.Error) error {
	if c.store.RecordError(epoch, err.Kind) {
		log.Error("ledger: "+err.Op, "kind", err.Kind.String(), "error", err)
	}
	return err
}
