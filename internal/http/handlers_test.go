package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/quantum-credential-client/internal/backend"
	"github.com/quantumauth-io/quantum-credential-client/internal/core"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger/ledgertest"
	"github.com/quantumauth-io/quantum-credential-client/internal/network"
	"github.com/quantumauth-io/quantum-credential-client/internal/provider/providertest"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type harness struct {
	rt       *core.Runtime
	wallet   *providertest.Wallet
	contract *ledgertest.Contract
	router   *gin.Engine
}

func newHarness(t *testing.T, b *backend.Client) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wallet := providertest.New(1337, alice)
	contract := ledgertest.New(alice)
	wallet.OnSend(contract.Send)

	rt, err := core.New(core.Options{
		Provider: wallet,
		Required: network.DefaultChain(),
		Contract: contract.Address,
		Reader:   contract,
		Receipts: contract,
	})
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(rt.Close)

	return &harness{
		rt:       rt,
		wallet:   wallet,
		contract: contract,
		router:   NewRouter(NewHandler(rt, b, "localhost"), []string{"http://localhost:3000"}),
	}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := localRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// localRequest looks like a request from a browser on the same machine.
func localRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:52100"
	req.Host = "127.0.0.1:8040"
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/session/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

var degree = issueReq{
	CredentialID:   "171234-ab3x9",
	RecipientName:  "John Doe",
	RecipientEmail: "john@example.com",
	IssuerName:     "Example University",
	CredentialType: "Bachelor's Degree",
	Description:    "BSc Computer Science",
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	decode(t, rec, &out)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, true, out["walletInstalled"])
	assert.Equal(t, false, out["connected"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "6f1d7c2e-3b7a-4a51-9a0e-0d1f5c2b9e11")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, "6f1d7c2e-3b7a-4a51-9a0e-0d1f5c2b9e11", rec.Header().Get(RequestIDHeader))
}

func TestContractInfo(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/api/contract/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	decode(t, rec, &out)
	assert.Equal(t, ledgertest.DefaultAddress.Hex(), out["contractAddress"])
	assert.Equal(t, "0x539", out["requiredChainId"])
	assert.Equal(t, true, out["abiAvailable"])
}

func TestConnectAndDisconnect(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	rec := h.do(t, http.MethodGet, "/api/session", nil)
	var s map[string]any
	decode(t, rec, &s)
	assert.Equal(t, true, s["connected"])
	assert.Equal(t, strings.ToLower(alice.Hex()), strings.ToLower(s["account"].(string)))

	rec = h.do(t, http.MethodPost, "/api/session/disconnect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &s)
	assert.Equal(t, false, s["connected"])
	assert.Nil(t, s["account"])
}

func TestConnectRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.wallet.RejectConnect(true)

	rec := h.do(t, http.MethodPost, "/api/session/connect", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	var out map[string]string
	decode(t, rec, &out)
	assert.Equal(t, "UserRejected", out[JSONKeyKind])
}

func TestIssueGetVerify(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	rec := h.do(t, http.MethodPost, "/api/credentials/issue", degree)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tx txRes
	decode(t, rec, &tx)
	assert.Equal(t, "171234-ab3x9", tx.CredentialID)
	assert.True(t, strings.HasPrefix(tx.TransactionHash, "0x"))

	rec = h.do(t, http.MethodGet, "/api/credentials/171234-ab3x9", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cred ledger.Credential
	decode(t, rec, &cred)
	assert.Equal(t, "John Doe", cred.RecipientName)
	assert.Equal(t, alice, cred.Issuer)
	assert.True(t, cred.IsValid)

	rec = h.do(t, http.MethodGet, "/api/credentials/verify/171234-ab3x9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v ledger.Verification
	decode(t, rec, &v)
	assert.True(t, v.Exists)
	assert.True(t, v.IsValid)
	assert.Equal(t, "Example University", v.IssuerName)
}

func TestIssueGeneratesID(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	req := degree
	req.CredentialID = ""
	rec := h.do(t, http.MethodPost, "/api/credentials/issue", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tx txRes
	decode(t, rec, &tx)
	require.NotEmpty(t, tx.CredentialID)

	rec = h.do(t, http.MethodGet, "/api/credentials/verify/"+tx.CredentialID, nil)
	var v ledger.Verification
	decode(t, rec, &v)
	assert.True(t, v.Exists)
}

func TestIssueValidation(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	req := degree
	req.RecipientEmail = "not-an-email"
	rec := h.do(t, http.MethodPost, "/api/credentials/issue", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, h.contract.Sends())

	rec = h.do(t, http.MethodPost, "/api/credentials/issue", map[string]string{"recipientName": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueRequiresConnection(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodPost, "/api/credentials/issue", degree)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var out map[string]string
	decode(t, rec, &out)
	assert.Equal(t, "WalletNotConnected", out[JSONKeyKind])
}

func TestGetUnknownIsNotFound(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/api/credentials/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/credentials/verify/nope", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v ledger.Verification
	decode(t, rec, &v)
	assert.False(t, v.Exists)
}

func TestRevoke(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/credentials/issue", degree).Code)

	rec := h.do(t, http.MethodPost, "/api/credentials/revoke/171234-ab3x9", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/credentials/verify/171234-ab3x9", nil)
	var v ledger.Verification
	decode(t, rec, &v)
	assert.True(t, v.Exists)
	assert.False(t, v.IsValid)

	// revocation is final
	rec = h.do(t, http.MethodPost, "/api/credentials/revoke/171234-ab3x9", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestIssuers(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	rec := h.do(t, http.MethodGet, "/api/issuers/"+bob.Hex()+"/authorized", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var auth map[string]any
	decode(t, rec, &auth)
	assert.Equal(t, false, auth["isAuthorized"])

	rec = h.do(t, http.MethodPost, "/api/issuers/authorize", authorizeReq{IssuerAddress: bob.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/issuers/"+bob.Hex()+"/authorized", nil)
	decode(t, rec, &auth)
	assert.Equal(t, true, auth["isAuthorized"])

	rec = h.do(t, http.MethodPost, "/api/issuers/authorize", authorizeReq{IssuerAddress: "0x123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(t, http.MethodGet, "/api/issuers/bogus/credentials", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCredentialLists(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/credentials/issue", degree).Code)

	second := degree
	second.CredentialID = "171235-zz001"
	second.CredentialType = "Master's Degree"
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/credentials/issue", second).Code)

	rec := h.do(t, http.MethodGet, "/api/issuers/"+alice.Hex()+"/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list listRes
	decode(t, rec, &list)
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Credentials, 2)
	assert.Equal(t, "171234-ab3x9", list.Credentials[0].ID)
	assert.Equal(t, "171235-zz001", list.Credentials[1].ID)

	rec = h.do(t, http.MethodGet, "/api/recipients/john@example.com/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Equal(t, 2, list.Total)

	rec = h.do(t, http.MethodGet, "/api/recipients/nobody@example.com/credentials", nil)
	decode(t, rec, &list)
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.Credentials)
}

func TestRenderingBackend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/credentials/171234-ab3x9/qr", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"credential_id":"171234-ab3x9","qr_code":"data:image/png;base64,AAAA","verification_url":"http://localhost:3000/verify/171234-ab3x9"}`)
	})
	mux.HandleFunc("/api/credentials/171234-ab3x9/pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "%PDF-1.4\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	b, err := backend.NewClient(srv.URL+"/api", 0)
	require.NoError(t, err)
	h := newHarness(t, b)

	rec := h.do(t, http.MethodGet, "/api/credentials/171234-ab3x9/qr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var qr backend.QRCode
	decode(t, rec, &qr)
	assert.Equal(t, "data:image/png;base64,AAAA", qr.QRCode)

	rec = h.do(t, http.MethodGet, "/api/credentials/171234-ab3x9/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "credential-171234-ab3x9.pdf")
	assert.Equal(t, "%PDF-1.4\n", rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/credentials/unknown/qr", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenderingBackendUnset(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/api/credentials/171234-ab3x9/qr", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionEvents(t *testing.T) {
	h := newHarness(t, nil)
	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/session/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg sessionMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.False(t, msg.Session.Connected)

	h.connect(t)
	for {
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "connected" {
			break
		}
	}
	assert.True(t, msg.Session.Connected)
	require.NotNil(t, msg.Session.Account)
	assert.Equal(t, alice, *msg.Session.Account)
}

func TestSessionEventsRejectsForeignOrigin(t *testing.T) {
	h := newHarness(t, nil)
	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/session/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouterWithoutAllowedOrigins(t *testing.T) {
	h := newHarness(t, nil)
	r := NewRouter(NewHandler(h.rt, nil, "localhost"), nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssueMalformedJSON(t *testing.T) {
	h := newHarness(t, nil)
	req := localRequest(http.MethodPost, "/api/credentials/issue", strings.NewReader(`{"recipientName":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var out map[string]string
	decode(t, rec, &out)
	assert.Equal(t, HTTPErrorInvalidJSONText, out[JSONKeyError])
}

func TestAPIRefusesRemotePeers(t *testing.T) {
	h := newHarness(t, nil)

	for _, tc := range []struct {
		name, remote, host string
		want               int
	}{
		{"remote peer", "203.0.113.7:41000", "127.0.0.1:8040", http.StatusForbidden},
		{"rebound host", "127.0.0.1:41000", "attacker.example:8040", http.StatusForbidden},
		{"ipv6 loopback", "[::1]:41000", "[::1]:8040", http.StatusOK},
		{"localhost", "127.0.0.1:41000", "localhost:8040", http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/session/connect", nil)
			req.RemoteAddr = tc.remote
			req.Host = tc.host
			rec := httptest.NewRecorder()
			h.router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/credentials/issue", nil)
	req.RemoteAddr = "203.0.113.7:41000"
	req.Host = "attacker.example:8040"
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, h.contract.Sends())
}
