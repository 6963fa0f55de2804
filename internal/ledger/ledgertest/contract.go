// Package ledgertest is an in-memory CredentialVerification contract that
// speaks the ABI, for tests.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/contracts/bindings/go/credentialverification"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
)

var DefaultAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

type record struct {
	id             string
	recipientName  string
	recipientEmail string
	issuerName     string
	credentialType string
	description    string
	issueDate      int64
	issuer         common.Address
	isValid        bool
	metadataURI    string
}

// Contract mirrors the ledger rules: only authorized issuers issue, ids are
// unique, only the issuer revokes, revocation is final, only the owner
// authorizes.
type Contract struct {
	Address common.Address

	mu          sync.Mutex
	abi         *abi.ABI
	owner       common.Address
	authorized  map[common.Address]bool
	creds       map[string]*record
	byIssuer    map[common.Address][]string
	byRecipient map[string][]string
	receipts    map[common.Hash]*types.Receipt
	nonce       uint64
	block       int64

	calls        int
	sends        int
	failReads    int
	mineReverted bool
	now          func() time.Time
}

// New deploys a fresh contract owned (and authorized) by owner.
func New(owner common.Address) *Contract {
	parsed, err := credentialverification.CredentialVerificationMetaData.GetAbi()
	if err != nil {
		panic(err)
	}
	return &Contract{
		Address:     DefaultAddress,
		abi:         parsed,
		owner:       owner,
		authorized:  map[common.Address]bool{owner: true},
		creds:       make(map[string]*record),
		byIssuer:    make(map[common.Address][]string),
		byRecipient: make(map[string][]string),
		receipts:    make(map[common.Hash]*types.Receipt),
		now:         time.Now,
	}
}

// Authorize marks issuer as authorized without a transaction.
func (c *Contract) Authorize(issuer common.Address) {
	c.mu.Lock()
	c.authorized[issuer] = true
	c.mu.Unlock()
}

// FailNextReads makes the next n reads fail like an unreachable node.
func (c *Contract) FailNextReads(n int) {
	c.mu.Lock()
	c.failReads = n
	c.mu.Unlock()
}

// MineReverted makes subsequent transactions be accepted but mined with
// status 0 and no effect.
func (c *Contract) MineReverted(v bool) {
	c.mu.Lock()
	c.mineReverted = v
	c.mu.Unlock()
}

// Calls counts every read and transaction that reached the contract.
func (c *Contract) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls + c.sends
}

func (c *Contract) Sends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

func (c *Contract) CodeAt(_ context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	if addr != c.Address {
		return nil, nil
	}
	return []byte{0x60, 0x80}, nil
}

func (c *Contract) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.failReads > 0 {
		c.failReads--
		return nil, errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
	}
	if msg.To == nil || *msg.To != c.Address {
		return nil, nil
	}

	method, args, err := c.decode(msg.Data)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "verifyCredential":
		r, ok := c.creds[args[0].(string)]
		if !ok {
			return method.Outputs.Pack(false, false, "", "", "", new(big.Int))
		}
		return method.Outputs.Pack(true, r.isValid, r.recipientName, r.issuerName, r.credentialType, big.NewInt(r.issueDate))
	case "getCredential":
		r, ok := c.creds[args[0].(string)]
		if !ok {
			return nil, revert(constants.CodeExecutionReverted, "Credential does not exist")
		}
		return method.Outputs.Pack(r.id, r.recipientName, r.recipientEmail, r.issuerName, r.credentialType,
			r.description, big.NewInt(r.issueDate), r.issuer, r.isValid, r.metadataURI)
	case "getIssuerCredentials":
		return method.Outputs.Pack(append([]string{}, c.byIssuer[args[0].(common.Address)]...))
	case "getRecipientCredentials":
		return method.Outputs.Pack(append([]string{}, c.byRecipient[args[0].(string)]...))
	case "isAuthorizedIssuer":
		return method.Outputs.Pack(c.authorized[args[0].(common.Address)])
	case "owner":
		return method.Outputs.Pack(c.owner)
	}
	return nil, revert(constants.CodeExecutionReverted, "not a view: "+method.Name)
}

// Send executes a transaction from tx.From. It has the shape of a
// providertest wallet send hook. Reverts surface the way browser wallets
// report them from gas estimation.
func (c *Contract) Send(_ context.Context, tx provider.TransactionArgs) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sends++
	if tx.To == nil || *tx.To != c.Address {
		return common.Hash{}, revert(constants.CodeInternalError, "transaction to unknown contract")
	}
	method, args, err := c.decode(tx.Data)
	if err != nil {
		return common.Hash{}, err
	}

	c.nonce++
	c.block++
	hash := crypto.Keccak256Hash(tx.From.Bytes(), new(big.Int).SetUint64(c.nonce).Bytes(), tx.Data)

	if c.mineReverted {
		c.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: hash, BlockNumber: big.NewInt(c.block)}
		return hash, nil
	}

	if err := c.apply(tx.From, method.Name, args); err != nil {
		return common.Hash{}, err
	}
	c.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(c.block)}
	return hash, nil
}

func (c *Contract) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Contract) apply(from common.Address, name string, args []any) error {
	switch name {
	case "issueCredential":
		if !c.authorized[from] {
			return revert(constants.CodeInternalError, "Not an authorized issuer")
		}
		id := args[0].(string)
		if _, dup := c.creds[id]; dup {
			return revert(constants.CodeInternalError, "Credential ID already exists")
		}
		r := &record{
			id:             id,
			recipientName:  args[1].(string),
			recipientEmail: args[2].(string),
			issuerName:     args[3].(string),
			credentialType: args[4].(string),
			description:    args[5].(string),
			metadataURI:    args[6].(string),
			issueDate:      c.now().Unix(),
			issuer:         from,
			isValid:        true,
		}
		c.creds[id] = r
		c.byIssuer[from] = append(c.byIssuer[from], id)
		c.byRecipient[r.recipientEmail] = append(c.byRecipient[r.recipientEmail], id)
	case "revokeCredential":
		r, ok := c.creds[args[0].(string)]
		switch {
		case !ok:
			return revert(constants.CodeInternalError, "Credential does not exist")
		case r.issuer != from:
			return revert(constants.CodeInternalError, "Only issuer can revoke")
		case !r.isValid:
			return revert(constants.CodeInternalError, "Credential already revoked")
		}
		r.isValid = false
	case "authorizeIssuer":
		if from != c.owner {
			return revert(constants.CodeInternalError, "Only owner can authorize issuers")
		}
		c.authorized[args[0].(common.Address)] = true
	default:
		return revert(constants.CodeInternalError, "not a transaction: "+name)
	}
	return nil
}

func (c *Contract) decode(data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, revert(constants.CodeExecutionReverted, "short calldata")
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, revert(constants.CodeExecutionReverted, err.Error())
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, revert(constants.CodeExecutionReverted, err.Error())
	}
	return method, args, nil
}

func revert(code int, reason string) error {
	return &provider.RPCError{Code: code, Message: fmt.Sprintf("execution reverted: %s", reason)}
}
