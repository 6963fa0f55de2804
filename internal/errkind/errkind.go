// Package errkind normalizes wallet provider and ledger failures into a fixed
// taxonomy that callers outside the session layer can switch on.
package errkind

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind is one entry of the failure taxonomy.
type Kind int

const (
	UnknownError Kind = iota
	WalletNotInstalled
	UserRejected
	WalletNotConnected
	NetworkMismatch
	UnrecognizedChain
	ContractNotInitialized
	TransactionFailure
	ProviderError
)

var kindNames = map[Kind]string{
	UnknownError:           "UnknownError",
	WalletNotInstalled:     "WalletNotInstalled",
	UserRejected:           "UserRejected",
	WalletNotConnected:     "WalletNotConnected",
	NetworkMismatch:        "NetworkMismatch",
	UnrecognizedChain:      "UnrecognizedChain",
	ContractNotInitialized: "ContractNotInitialized",
	TransactionFailure:     "TransactionFailure",
	ProviderError:          "ProviderError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText lets kinds travel as their names in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error implements error so a bare Kind can be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is a normalized failure. Err keeps the raw cause for logging only.
type Error struct {
	Kind Kind
	Op   string
	Code int
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches both another *Error of the same kind and a bare Kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// New builds a normalized error of the given kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Newf builds a normalized error with a formatted cause.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Newf(format, args...)}
}

// KindOf returns the kind of err, normalizing it first when needed.
// A nil error has no kind; callers must check for nil before.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Normalize("", err).Kind
}
