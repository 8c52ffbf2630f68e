package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"learnchain/config"
	"learnchain/observability/logging"
	"learnchain/rpc"
)

func TestRunServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.toml"), config.WithKeystorePassphrase("testpass"))
	require.NoError(t, err)
	cfg.RPCAddress = "127.0.0.1:0"
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.IndexerDSN = filepath.Join(dir, "events.db")
	cfg.RPC.OperatorSecret = "secret"
	require.NoError(t, config.ValidateConfig(cfg))

	logger := logging.Setup("learnd-test", "test", logging.WithOutput(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logger, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for startup")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := json.Marshal(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": "academy_platformFee"})
	require.NoError(t, err)
	resp, err = http.Post("http://"+addr+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var out rpc.RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.Nil(t, out.Error)
	require.Equal(t, map[string]interface{}{"feeBps": float64(250)}, out.Result)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
	}
}
