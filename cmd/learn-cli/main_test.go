package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"learnchain/config"
	"learnchain/core"
	"learnchain/core/genesis"
	"learnchain/crypto"
	"learnchain/rpc"
	"learnchain/storage"
)

const (
	cliChainID = "learn-cli-test"
	cliSecret  = "cli-secret"
)

type cliEnv struct {
	endpoint string
	keystore string
	owner    string
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv(config.EnvKeystorePassphrase, "cli-pass")
	keystore := filepath.Join(t.TempDir(), "owner.json")
	code, out, errOut := runCLI(t, "--keystore", keystore, "keygen")
	require.Equal(t, 0, code, errOut)
	owner := strings.TrimSpace(out)
	ownerAddr, err := crypto.ParseAddress(owner)
	require.NoError(t, err)

	node, err := core.NewNode(storage.NewMemDB(), &genesis.Resolved{
		ChainID:          cliChainID,
		Owner:            ownerAddr,
		CertificateOwner: ownerAddr,
		PlatformFeeBps:   250,
		Alloc:            []genesis.Allocation{{Address: ownerAddr, Amount: big.NewInt(1_000)}},
	})
	require.NoError(t, err)
	t.Cleanup(node.Close)
	server := rpc.NewServer(node, rpc.Config{
		RequestsPerMinute: 6000,
		Burst:             1000,
		OperatorSecret:    cliSecret,
		OperatorIssuer:    "learnd",
		Faucet:            true,
	}, nil)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &cliEnv{endpoint: srv.URL, keystore: keystore, owner: owner}
}

func (e *cliEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	base := []string{"--rpc", e.endpoint, "--keystore", e.keystore, "--chain-id", cliChainID}
	return runCLI(t, append(base, args...)...)
}

func TestCLICourseLifecycle(t *testing.T) {
	e := newCLIEnv(t)

	code, out, errOut := e.run(t, "course", "create", "--title", "Go", "--description", "Systems", "--metadata", "ipfs://go", "--price", "100")
	require.Equal(t, 0, code, errOut)
	var receipt struct {
		Status string            `json:"status"`
		Result map[string]uint64 `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &receipt))
	require.Equal(t, "success", receipt.Status)
	require.Equal(t, uint64(1), receipt.Result["courseId"])

	code, out, errOut = e.run(t, "--output", "yaml", "course", "get", "--id", "1")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "title: Go")
	require.Contains(t, out, "id: 1")

	code, out, _ = e.run(t, "course", "list", "--author", e.owner)
	require.Equal(t, 0, code)
	require.JSONEq(t, "[1]", out)

	code, out, errOut = e.run(t, "admin", "emergency-admin")
	require.Equal(t, 0, code, errOut)
	require.NotEmpty(t, strings.TrimSpace(out))

	code, _, errOut = e.run(t, "course", "get", "--id", "7")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "RPC error")
}

func TestCLIFailedCallReportsReceipt(t *testing.T) {
	e := newCLIEnv(t)
	code, _, errOut := e.run(t, "withdraw", "author")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "nothing to withdraw")
	require.Contains(t, errOut, `"status": "failed"`)

	code, out, _ := e.run(t, "account")
	require.Equal(t, 0, code)
	var account rpc.AccountResult
	require.NoError(t, json.Unmarshal([]byte(out), &account))
	require.Equal(t, uint64(1), account.Nonce)
}

func TestCLIOperatorCommands(t *testing.T) {
	e := newCLIEnv(t)
	target := crypto.AddressFromArray([20]byte{19: 9}).String()

	code, _, errOut := e.run(t, "faucet", "--addr", target, "--amount", "5")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, tokenEnv)

	code, out, errOut := e.run(t, "token", "--secret", cliSecret, "--scope", rpc.ScopeFaucet)
	require.Equal(t, 0, code, errOut)
	token := strings.TrimSpace(out)

	code, out, errOut = e.run(t, "--token", token, "faucet", "--addr", target, "--amount", "5")
	require.Equal(t, 0, code, errOut)
	var account rpc.AccountResult
	require.NoError(t, json.Unmarshal([]byte(out), &account))
	require.Equal(t, "5", account.Balance)
}

func TestCLIUsageErrors(t *testing.T) {
	code, _, errOut := runCLI(t, "nope")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "Unknown command")

	code, _, _ = runCLI(t)
	require.Equal(t, 1, code)

	code, _, errOut = runCLI(t, "--output", "xml", "status")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unsupported output format")

	code, _, errOut = runCLI(t, "--keystore", filepath.Join(t.TempDir(), "missing.json"), "address")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "keygen")
}
