package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"learnchain/core/types"
	"learnchain/crypto"
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message) }

type rpcClient struct {
	endpoint string
	token    string
	http     *http.Client
}

func newRPCClient(endpoint, token string) *rpcClient {
	return &rpcClient{
		endpoint: strings.TrimSpace(endpoint),
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// call posts a JSON-RPC request. Transport failures are returned as err;
// node-side failures as rpcErr.
func (c *rpcClient) call(method string, requireAuth bool, params ...interface{}) (json.RawMessage, *rpcError, error) {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if c.token == "" {
			return nil, nil, fmt.Errorf("%s requires an operator token; set %s or pass --token", method, tokenEnv)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("POST %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response from node (HTTP %d)", resp.StatusCode)
	}
	return rpcResp.Result, rpcResp.Error, nil
}

// nonce returns the next call nonce for addr.
func (c *rpcClient) nonce(addr string) (uint64, error) {
	result, rpcErr, err := c.call("node_getAccount", false, map[string]string{"address": addr})
	if err != nil {
		return 0, err
	}
	if rpcErr != nil {
		return 0, rpcErr
	}
	var account struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(result, &account); err != nil {
		return 0, fmt.Errorf("decode account: %w", err)
	}
	return account.Nonce, nil
}

// signCall builds and signs a call for key using the node's current nonce.
func (c *rpcClient) signCall(key *crypto.PrivateKey, chainID, method string, params interface{}, value *big.Int) (*types.Call, error) {
	nonce, err := c.nonce(key.PubKey().Address().String())
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	call := &types.Call{ChainID: chainID, Nonce: nonce, Method: method, Value: value}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		call.Params = raw
	}
	if err := call.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("sign call: %w", err)
	}
	return call, nil
}
