package constants

import "time"

const (
	AppName        = "quantum-credential-client"
	WalletFile     = "wallet.json"
	NetworksFile   = "networks.json"
	DeploymentFile = "contract-address.json"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// AAD const for the local wallet key file
	AADConstant = "quantum-credential-client:localwallet:v1"
)

// Required network defaults (local development chain, 1337).
const (
	DefaultChainID        = 1337
	DefaultChainIDHex     = "0x539"
	DefaultChainName      = "Hardhat Local"
	DefaultRPCURL         = "http://127.0.0.1:8545"
	NativeCurrencyName    = "ETH"
	NativeCurrencySymbol  = "ETH"
	NativeCurrencyDecimal = 18
)

// Wallet provider methods.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
	MethodSendTransaction = "eth_sendTransaction"
)

// EIP-1193 / EIP-1474 error codes.
const (
	CodeUserRejected       = 4001
	CodeUnauthorized       = 4100
	CodeUnsupportedMethod  = 4200
	CodeDisconnected       = 4900
	CodeChainDisconnected  = 4901
	CodeUnrecognizedChain  = 4902
	CodeExecutionReverted  = 3
	CodeInternalError      = -32603
	CodeInvalidParams      = -32602
	CodeMethodNotFound     = -32601
	CodeInvalidRequest     = -32600
	CodeJSONRPCServerError = -32000
)

const (
	DefaultPollInterval   = 2 * time.Second
	DefaultBackendTimeout = 10 * time.Second
	DefaultReceiptPoll    = 500 * time.Millisecond

	GasFallbackContractCall = 250_000
	GasMinimum              = 21_000
)
