package errkind

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
)

// coded is satisfied by go-ethereum rpc errors and by wallet error objects.
type coded interface {
	ErrorCode() int
}

var codeKinds = map[int]Kind{
	constants.CodeUserRejected:      UserRejected,
	constants.CodeUnrecognizedChain: UnrecognizedChain,
	constants.CodeExecutionReverted: TransactionFailure,
	constants.CodeUnauthorized:      ProviderError,
	constants.CodeUnsupportedMethod: ProviderError,
	constants.CodeDisconnected:      ProviderError,
	constants.CodeChainDisconnected: ProviderError,
}

// Checked in order; first match wins.
var messagePatterns = []struct {
	needle string
	kind   Kind
}{
	{"user rejected", UserRejected},
	{"user denied", UserRejected},
	{"rejected by user", UserRejected},
	{"unrecognized chain", UnrecognizedChain},
	{"unknown chain", UnrecognizedChain},
	{"try adding the chain", UnrecognizedChain},
	{"execution reverted", TransactionFailure},
	{"transaction reverted", TransactionFailure},
	{"revert", TransactionFailure},
	{"transaction failed", TransactionFailure},
	{"no contract code", ContractNotInitialized},
	{"contract not initialized", ContractNotInitialized},
	{"wallet not installed", WalletNotInstalled},
	{"no provider", WalletNotInstalled},
	{"wallet not connected", WalletNotConnected},
	{"account not connected", WalletNotConnected},
	{"connection refused", ProviderError},
	{"no such host", ProviderError},
	{"timeout", ProviderError},
}

// Normalize classifies err into exactly one Kind. A nil err yields nil.
// Errors that are already normalized are returned unchanged.
func Normalize(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var already *Error
	if errors.As(err, &already) {
		return already
	}

	out := &Error{Kind: UnknownError, Op: op, Err: err}

	var c coded
	if errors.As(err, &c) {
		out.Code = c.ErrorCode()
		if k, ok := codeKinds[out.Code]; ok {
			out.Kind = k
			return out
		}
	}

	if k, ok := matchMessage(err.Error()); ok {
		out.Kind = k
		return out
	}

	switch {
	case out.Code != 0:
		// generic JSON-RPC failure from the wallet or node
		out.Kind = ProviderError
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		out.Kind = ProviderError
	}
	return out
}

func matchMessage(msg string) (Kind, bool) {
	msg = strings.ToLower(msg)
	for _, p := range messagePatterns {
		if strings.Contains(msg, p.needle) {
			return p.kind, true
		}
	}
	return UnknownError, false
}
