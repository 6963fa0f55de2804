// Code generated - DO CredentialVerificationOT EDIT.
// This file is a generated binding and any manual changes will be lost.

package credentialverification

import (
	"errors"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Reference imports to suppress errors if they are not otherwise used.
var (
	_ = errors.New
	_ = big.NewInt
	_ = strings.NewReader
	_ = ethereum.NotFound
	_ = bind.Bind
	_ = common.Big1
	_ = types.BloomLookup
	_ = event.NewSubscription
	_ = abi.ConvertType
)

// CredentialVerificationMetaData contains all meta data concerning the CredentialVerification contract.
var CredentialVerificationMetaData = &bind.MetaData{
	ABI: "[{\"type\":\"function\",\"name\":\"authorizeIssuer\",\"inputs\":[{\"name\":\"issuer\",\"type\":\"address\",\"internalType\":\"address\"}],\"outputs\":[],\"stateMutability\":\"nonpayable\"},{\"type\":\"function\",\"name\":\"getCredential\",\"inputs\":[{\"name\":\"credentialId\",\"type\":\"string\",\"internalType\":\"string\"}],\"outputs\":[{\"name\":\"credentialId\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"recipientName\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"recipientEmail\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"issuerName\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"credentialType\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"description\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"issueDate\",\"type\":\"uint256\",\"internalType\":\"uint256\"},{\"name\":\"issuer\",\"type\":\"address\",\"internalType\":\"address\"},{\"name\":\"isValid\",\"type\":\"bool\",\"internalType\":\"bool\"},{\"name\":\"metadataURI\",\"type\":\"string\",\"internalType\":\"string\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"getIssuerCredentials\",\"inputs\":[{\"name\":\"issuer\",\"type\":\"address\",\"internalType\":\"address\"}],\"outputs\":[{\"name\":\"\",\"type\":\"string[]\",\"internalType\":\"string[]\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"getRecipientCredentials\",\"inputs\":[{\"name\":\"email\",\"type\":\"string\",\"internalType\":\"string\"}],\"outputs\":[{\"name\":\"\",\"type\":\"string[]\",\"internalType\":\"string[]\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"isAuthorizedIssuer\",\"inputs\":[{\"name\":\"issuer\",\"type\":\"address\",\"internalType\":\"address\"}],\"outputs\":[{\"name\":\"\",\"type\":\"bool\",\"internalType\":\"bool\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"issueCredential\",\"inputs\":[{\"name\":\"credentialId\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"recipientName\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"recipientEmail\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"issuerName\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"credentialType\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"description\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"metadataURI\",\"type\":\"string\",\"internalType\":\"string\"}],\"outputs\":[],\"stateMutability\":\"nonpayable\"},{\"type\":\"function\",\"name\":\"owner\",\"inputs\":[],\"outputs\":[{\"name\":\"\",\"type\":\"address\",\"internalType\":\"address\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"revokeCredential\",\"inputs\":[{\"name\":\"credentialId\",\"type\":\"string\",\"internalType\":\"string\"}],\"outputs\":[],\"stateMutability\":\"nonpayable\"},{\"type\":\"function\",\"name\":\"verifyCredential\",\"inputs\":[{\"name\":\"credentialId\",\"type\":\"string\",\"internalType\":\"string\"}],\"outputs\":[{\"name\":\"exists\",\"type\":\"bool\",\"internalType\":\"bool\"},{\"name\":\"isValid\",\"type\":\"bool\",\"internalType\":\"bool\"},{\"name\":\"recipientName\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"issuerName\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"credentialType\",\"type\":\"string\",\"internalType\":\"string\"},{\"name\":\"issueDate\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"stateMutability\":\"view\"}]",
}

// CredentialVerificationABI is the input ABI used to generate the binding from.
// Deprecated: Use CredentialVerificationMetaData.ABI instead.
var CredentialVerificationABI = CredentialVerificationMetaData.ABI

// CredentialVerification is an auto generated Go binding around an Ethereum contract.
type CredentialVerification struct {
	CredentialVerificationCaller     // Read-only binding to the contract
	CredentialVerificationTransactor // Write-only binding to the contract
	CredentialVerificationFilterer   // Log filterer for contract events
}

// CredentialVerificationCaller is an auto generated read-only Go binding around an Ethereum contract.
type CredentialVerificationCaller struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// CredentialVerificationTransactor is an auto generated write-only Go binding around an Ethereum contract.
type CredentialVerificationTransactor struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// CredentialVerificationFilterer is an auto generated log filtering Go binding around an Ethereum contract events.
type CredentialVerificationFilterer struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// CredentialVerificationSession is an auto generated Go binding around an Ethereum contract,
// with pre-set call and transact options.
type CredentialVerificationSession struct {
	Contract     *CredentialVerification                // Generic contract binding to set the session for
	CallOpts     bind.CallOpts     // Call options to use throughout this session
	TransactOpts bind.TransactOpts // Transaction auth options to use throughout this session
}

// CredentialVerificationCallerSession is an auto generated read-only Go binding around an Ethereum contract,
// with pre-set call options.
type CredentialVerificationCallerSession struct {
	Contract *CredentialVerificationCaller      // Generic contract caller binding to set the session for
	CallOpts bind.CallOpts // Call options to use throughout this session
}

// CredentialVerificationTransactorSession is an auto generated write-only Go binding around an Ethereum contract,
// with pre-set transact options.
type CredentialVerificationTransactorSession struct {
	Contract     *CredentialVerificationTransactor      // Generic contract transactor binding to set the session for
	TransactOpts bind.TransactOpts // Transaction auth options to use throughout this session
}

// CredentialVerificationRaw is an auto generated low-level Go binding around an Ethereum contract.
type CredentialVerificationRaw struct {
	Contract *CredentialVerification // Generic contract binding to access the raw methods on
}

// CredentialVerificationCallerRaw is an auto generated low-level read-only Go binding around an Ethereum contract.
type CredentialVerificationCallerRaw struct {
	Contract *CredentialVerificationCaller // Generic read-only contract binding to access the raw methods on
}

// CredentialVerificationTransactorRaw is an auto generated low-level write-only Go binding around an Ethereum contract.
type CredentialVerificationTransactorRaw struct {
	Contract *CredentialVerificationTransactor // Generic write-only contract binding to access the raw methods on
}

// NewCredentialVerification creates a new instance of CredentialVerification, bound to a specific deployed contract.
func NewCredentialVerification(address common.Address, backend bind.ContractBackend) (*CredentialVerification, error) {
	contract, err := bindCredentialVerification(address, backend, backend, backend)
	if err != nil {
		return nil, err
	}
	return &CredentialVerification{CredentialVerificationCaller: CredentialVerificationCaller{contract: contract}, CredentialVerificationTransactor: CredentialVerificationTransactor{contract: contract}, CredentialVerificationFilterer: CredentialVerificationFilterer{contract: contract}}, nil
}

// NewCredentialVerificationCaller creates a new read-only instance of CredentialVerification, bound to a specific deployed contract.
func NewCredentialVerificationCaller(address common.Address, caller bind.ContractCaller) (*CredentialVerificationCaller, error) {
	contract, err := bindCredentialVerification(address, caller, nil, nil)
	if err != nil {
		return nil, err
	}
	return &CredentialVerificationCaller{contract: contract}, nil
}

// NewCredentialVerificationTransactor creates a new write-only instance of CredentialVerification, bound to a specific deployed contract.
func NewCredentialVerificationTransactor(address common.Address, transactor bind.ContractTransactor) (*CredentialVerificationTransactor, error) {
	contract, err := bindCredentialVerification(address, nil, transactor, nil)
	if err != nil {
		return nil, err
	}
	return &CredentialVerificationTransactor{contract: contract}, nil
}

// NewCredentialVerificationFilterer creates a new log filterer instance of CredentialVerification, bound to a specific deployed contract.
func NewCredentialVerificationFilterer(address common.Address, filterer bind.ContractFilterer) (*CredentialVerificationFilterer, error) {
	contract, err := bindCredentialVerification(address, nil, nil, filterer)
	if err != nil {
		return nil, err
	}
	return &CredentialVerificationFilterer{contract: contract}, nil
}

// bindCredentialVerification binds a generic wrapper to an already deployed contract.
func bindCredentialVerification(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := CredentialVerificationMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(address, *parsed, caller, transactor, filterer), nil
}

// Call invokes the (constant) contract method with params as input values and
// sets the output to result. The result type might be a single field for simple
// returns, a slice of interfaces for anonymous returns and a struct for named
// returns.
func (_CredentialVerification *CredentialVerificationRaw) Call(opts *bind.CallOpts, result *[]interface{}, method string, params ...interface{}) error {
	return _CredentialVerification.Contract.CredentialVerificationCaller.contract.Call(opts, result, method, params...)
}

// Transfer initiates a plain transaction to move funds to the contract, calling
// its default method if one is available.
func (_CredentialVerification *CredentialVerificationRaw) Transfer(opts *bind.TransactOpts) (*types.Transaction, error) {
	return _CredentialVerification.Contract.CredentialVerificationTransactor.contract.Transfer(opts)
}

// Transact invokes the (paid) contract method with params as input values.
func (_CredentialVerification *CredentialVerificationRaw) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	return _CredentialVerification.Contract.CredentialVerificationTransactor.contract.Transact(opts, method, params...)
}

// Call invokes the (constant) contract method with params as input values and
// sets the output to result. The result type might be a single field for simple
// returns, a slice of interfaces for anonymous returns and a struct for named
// returns.
func (_CredentialVerification *CredentialVerificationCallerRaw) Call(opts *bind.CallOpts, result *[]interface{}, method string, params ...interface{}) error {
	return _CredentialVerification.Contract.contract.Call(opts, result, method, params...)
}

// Transfer initiates a plain transaction to move funds to the contract, calling
// its default method if one is available.
func (_CredentialVerification *CredentialVerificationTransactorRaw) Transfer(opts *bind.TransactOpts) (*types.Transaction, error) {
	return _CredentialVerification.Contract.contract.Transfer(opts)
}

// Transact invokes the (paid) contract method with params as input values.
func (_CredentialVerification *CredentialVerificationTransactorRaw) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	return _CredentialVerification.Contract.contract.Transact(opts, method, params...)
}

// GetCredential is a free data retrieval call binding the contract method 0xd091187f.
//
// Solidity: function getCredential(string credentialId) view returns(string credentialId, string recipientName, string recipientEmail, string issuerName, string credentialType, string description, uint256 issueDate, address issuer, bool isValid, string metadataURI)
func (_CredentialVerification *CredentialVerificationCaller) GetCredential(opts *bind.CallOpts, credentialId string) (struct {
	CredentialId   string
	RecipientName  string
	RecipientEmail string
	IssuerName     string
	CredentialType string
	Description    string
	IssueDate      *big.Int
	Issuer         common.Address
	IsValid        bool
	MetadataURI    string
}, error) {
	var out []interface{}
	err := _CredentialVerification.contract.Call(opts, &out, "getCredential", credentialId)

	outstruct := new(struct {
		CredentialId   string
		RecipientName  string
		RecipientEmail string
		IssuerName     string
		CredentialType string
		Description    string
		IssueDate      *big.Int
		Issuer         common.Address
		IsValid        bool
		MetadataURI    string
	})
	if err != nil {
		return *outstruct, err
	}

	outstruct.CredentialId = *abi.ConvertType(out[0], new(string)).(*string)
	outstruct.RecipientName = *abi.ConvertType(out[1], new(string)).(*string)
	outstruct.RecipientEmail = *abi.ConvertType(out[2], new(string)).(*string)
	outstruct.IssuerName = *abi.ConvertType(out[3], new(string)).(*string)
	outstruct.CredentialType = *abi.ConvertType(out[4], new(string)).(*string)
	outstruct.Description = *abi.ConvertType(out[5], new(string)).(*string)
	outstruct.IssueDate = *abi.ConvertType(out[6], new(*big.Int)).(**big.Int)
	outstruct.Issuer = *abi.ConvertType(out[7], new(common.Address)).(*common.Address)
	outstruct.IsValid = *abi.ConvertType(out[8], new(bool)).(*bool)
	outstruct.MetadataURI = *abi.ConvertType(out[9], new(string)).(*string)

	return *outstruct, err

}

// GetIssuerCredentials is a free data retrieval call binding the contract method 0xd8202ffb.
//
// Solidity: function getIssuerCredentials(address issuer) view returns(string[])
func (_CredentialVerification *CredentialVerificationCaller) GetIssuerCredentials(opts *bind.CallOpts, issuer common.Address) ([]string, error) {
	var out []interface{}
	err := _CredentialVerification.contract.Call(opts, &out, "getIssuerCredentials", issuer)

	if err != nil {
		return *new([]string), err
	}

	out0 := *abi.ConvertType(out[0], new([]string)).(*[]string)

	return out0, err

}

// GetRecipientCredentials is a free data retrieval call binding the contract method 0x4044e080.
//
// Solidity: function getRecipientCredentials(string email) view returns(string[])
func (_CredentialVerification *CredentialVerificationCaller) GetRecipientCredentials(opts *bind.CallOpts, email string) ([]string, error) {
	var out []interface{}
	err := _CredentialVerification.contract.Call(opts, &out, "getRecipientCredentials", email)

	if err != nil {
		return *new([]string), err
	}

	out0 := *abi.ConvertType(out[0], new([]string)).(*[]string)

	return out0, err

}

// IsAuthorizedIssuer is a free data retrieval call binding the contract method 0x31ba1966.
//
// Solidity: function isAuthorizedIssuer(address issuer) view returns(bool)
func (_CredentialVerification *CredentialVerificationCaller) IsAuthorizedIssuer(opts *bind.CallOpts, issuer common.Address) (bool, error) {
	var out []interface{}
	err := _CredentialVerification.contract.Call(opts, &out, "isAuthorizedIssuer", issuer)

	if err != nil {
		return *new(bool), err
	}

	out0 := *abi.ConvertType(out[0], new(bool)).(*bool)

	return out0, err

}

// Owner is a free data retrieval call binding the contract method 0x8da5cb5b.
//
// Solidity: function owner() view returns(address)
func (_CredentialVerification *CredentialVerificationCaller) Owner(opts *bind.CallOpts) (common.Address, error) {
	var out []interface{}
	err := _CredentialVerification.contract.Call(opts, &out, "owner")

	if err != nil {
		return *new(common.Address), err
	}

	out0 := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)

	return out0, err

}

// VerifyCredential is a free data retrieval call binding the contract method 0xbb3670ab.
//
// Solidity: function verifyCredential(string credentialId) view returns(bool exists, bool isValid, string recipientName, string issuerName, string credentialType, uint256 issueDate)
func (_CredentialVerification *CredentialVerificationCaller) VerifyCredential(opts *bind.CallOpts, credentialId string) (struct {
	Exists         bool
	IsValid        bool
	RecipientName  string
	IssuerName     string
	CredentialType string
	IssueDate      *big.Int
}, error) {
	var out []interface{}
	err := _CredentialVerification.contract.Call(opts, &out, "verifyCredential", credentialId)

	outstruct := new(struct {
		Exists         bool
		IsValid        bool
		RecipientName  string
		IssuerName     string
		CredentialType string
		IssueDate      *big.Int
	})
	if err != nil {
		return *outstruct, err
	}

	outstruct.Exists = *abi.ConvertType(out[0], new(bool)).(*bool)
	outstruct.IsValid = *abi.ConvertType(out[1], new(bool)).(*bool)
	outstruct.RecipientName = *abi.ConvertType(out[2], new(string)).(*string)
	outstruct.IssuerName = *abi.ConvertType(out[3], new(string)).(*string)
	outstruct.CredentialType = *abi.ConvertType(out[4], new(string)).(*string)
	outstruct.IssueDate = *abi.ConvertType(out[5], new(*big.Int)).(**big.Int)

	return *outstruct, err

}

// AuthorizeIssuer is a paid mutator transaction binding the contract method 0x436693d5.
//
// Solidity: function authorizeIssuer(address issuer) returns()
func (_CredentialVerification *CredentialVerificationTransactor) AuthorizeIssuer(opts *bind.TransactOpts, issuer common.Address) (*types.Transaction, error) {
	return _CredentialVerification.contract.Transact(opts, "authorizeIssuer", issuer)
}

// IssueCredential is a paid mutator transaction binding the contract method 0xed62b915.
//
// Solidity: function issueCredential(string credentialId, string recipientName, string recipientEmail, string issuerName, string credentialType, string description, string metadataURI) returns()
func (_CredentialVerification *CredentialVerificationTransactor) IssueCredential(opts *bind.TransactOpts, credentialId string, recipientName string, recipientEmail string, issuerName string, credentialType string, description string, metadataURI string) (*types.Transaction, error) {
	return _CredentialVerification.contract.Transact(opts, "issueCredential", credentialId, recipientName, recipientEmail, issuerName, credentialType, description, metadataURI)
}

// RevokeCredential is a paid mutator transaction binding the contract method 0x5e9a2d28.
//
// Solidity: function revokeCredential(string credentialId) returns()
func (_CredentialVerification *CredentialVerificationTransactor) RevokeCredential(opts *bind.TransactOpts, credentialId string) (*types.Transaction, error) {
	return _CredentialVerification.contract.Transact(opts, "revokeCredential", credentialId)
}
