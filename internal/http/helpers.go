package http

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/backend"
	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger"
)

var kindStatus = map[errkind.Kind]int{
	errkind.WalletNotInstalled:     http.StatusServiceUnavailable,
	errkind.UserRejected:           http.StatusForbidden,
	errkind.WalletNotConnected:     http.StatusUnauthorized,
	errkind.NetworkMismatch:        http.StatusConflict,
	errkind.UnrecognizedChain:      http.StatusConflict,
	errkind.ContractNotInitialized: http.StatusServiceUnavailable,
	errkind.TransactionFailure:     http.StatusUnprocessableEntity,
	errkind.ProviderError:          http.StatusBadGateway,
	errkind.UnknownError:           http.StatusInternalServerError,
}

// statusFor maps an operation error to an HTTP status and the kind reported
// to the caller. Caller mistakes are 400 regardless of kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest, "InvalidArgument"
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	}
	var serr *backend.StatusError
	if errors.As(err, &serr) {
		return http.StatusBadGateway, errkind.ProviderError.String()
	}

	kind := errkind.KindOf(err)
	if st, ok := kindStatus[kind]; ok {
		return st, kind.String()
	}
	return http.StatusInternalServerError, kind.String()
}

func writeError(c *gin.Context, err error) {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("http: request failed", "path", c.FullPath(), "request_id", c.GetString(requestIDKey), "kind", kind, "error", err)
	}
	c.JSON(status, gin.H{JSONKeyError: err.Error(), JSONKeyKind: kind})
}

// bindError reports a request body that failed to bind.
func bindError(c *gin.Context, err error) {
	var syn *json.SyntaxError
	if errors.As(err, &syn) || errors.Is(err, io.ErrUnexpectedEOF) {
		badRequest(c, HTTPErrorInvalidJSONText)
		return
	}
	badRequest(c, err.Error())
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{JSONKeyError: msg, JSONKeyKind: "InvalidArgument"})
}

func parseAddr(s string) (common.Address, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func isLoopbackRequest(r *http.Request) bool {
	ra := r.RemoteAddr

	h, _, err := net.SplitHostPort(ra)
	if err != nil {
		ip := net.ParseIP(ra)
		return ip != nil && ip.IsLoopback()
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

// isSafeLocalHost rejects Host headers a rebound DNS name would carry.
func isSafeLocalHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}
