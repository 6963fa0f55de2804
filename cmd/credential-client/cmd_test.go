package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/quantum-credential-client/cmd/credential-client/config"
	"github.com/quantumauth-io/quantum-credential-client/internal/backend"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger"
	"github.com/quantumauth-io/quantum-credential-client/internal/network"
)

func TestResolveContract(t *testing.T) {
	c := &config.Config{Ledger: config.LedgerSettings{ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}}
	addr, label, err := resolveContract(c)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), addr)
	assert.Empty(t, label)

	file := filepath.Join(t.TempDir(), "contract-address.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
  "address": "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
  "network": "localhost",
  "deployer": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
  "deploymentTime": "2024-03-01T10:00:00.000Z"
}`), 0o600))
	c = &config.Config{Ledger: config.LedgerSettings{DeploymentFile: file}}
	addr, label, err = resolveContract(c)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"), addr)
	assert.Equal(t, "localhost", label)

	// a missing deployment leaves the ledger unbound
	c = &config.Config{Ledger: config.LedgerSettings{DeploymentFile: filepath.Join(t.TempDir(), "nope.json")}}
	addr, _, err = resolveContract(c)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, addr)
}

func TestWalletNetwork(t *testing.T) {
	p := network.DefaultChain()
	p.BlockExplorerURLs = []string{"http://localhost:4000"}
	p.RPCURLs = append(p.RPCURLs, "http://127.0.0.1:8546")

	n := walletNetwork(p)
	assert.Equal(t, uint64(1337), n.ChainID)
	assert.Equal(t, "Hardhat Local", n.Name)
	assert.Equal(t, "http://127.0.0.1:8545", n.RPCURL)
	assert.Equal(t, []string{"http://127.0.0.1:8546"}, n.ExtraRPCs)
	assert.Equal(t, "http://localhost:4000", n.Explorer)
	assert.Equal(t, 18, n.Decimals)
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress(" 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 ")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), addr)

	_, err = parseAddress("0x1234")
	assert.Error(t, err)
}

func TestAskMissing(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("Example University\nBachelor's Degree\n"))
	cmd.SetErr(io.Discard)

	d := ledger.Draft{RecipientName: "John Doe", RecipientEmail: "john@example.com"}
	askMissing(cmd, &d)
	assert.Equal(t, "John Doe", d.RecipientName)
	assert.Equal(t, "Example University", d.IssuerName)
}

func TestDownloadPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/credentials/171234-ab3x9/pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4\n")
	}))
	t.Cleanup(srv.Close)

	b, err := backend.NewClient(srv.URL+"/api", 0)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "cert.pdf")
	require.NoError(t, downloadPDF(context.Background(), b, "171234-ab3x9", out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n", string(got))

	missing := filepath.Join(t.TempDir(), "missing.pdf")
	assert.Error(t, downloadPDF(context.Background(), b, "unknown", missing))
	_, err = os.Stat(missing)
	assert.True(t, os.IsNotExist(err))
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"}, {"connect"}, {"network", "switch"}, {"issue"}, {"verify"}, {"get"}, {"revoke"},
		{"issuer-credentials"}, {"recipient-credentials"}, {"authorized"}, {"authorize"}, {"qr"}, {"pdf"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}
