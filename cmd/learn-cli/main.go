package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"learnchain/cmd/internal/passphrase"
	"learnchain/config"
	"learnchain/core/genesis"
	"learnchain/crypto"
)

const (
	rpcEnv      = "LEARN_RPC_URL"
	tokenEnv    = "LEARN_RPC_TOKEN"
	chainIDEnv  = "LEARN_CHAIN_ID"
	keystoreEnv = "LEARN_KEYSTORE"

	defaultEndpoint = "http://localhost:8080"
	defaultKeystore = "./keystore.json"
)

// cli carries the global flags shared by every command.
type cli struct {
	client   *rpcClient
	chainID  string
	output   string
	keystore string
	pass     *passphrase.Source
	key      *crypto.PrivateKey

	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("learn-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	endpoint := fs.String("rpc", envOr(rpcEnv, defaultEndpoint), "node JSON-RPC endpoint")
	token := fs.String("token", os.Getenv(tokenEnv), "operator bearer token for faucet and events")
	chainID := fs.String("chain-id", envOr(chainIDEnv, genesis.DefaultChainID), "chain id signed into calls")
	output := fs.String("output", "json", "output format: json or yaml")
	keystore := fs.String("keystore", envOr(keystoreEnv, defaultKeystore), "keystore file used to sign calls")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *output != "json" && *output != "yaml" {
		fmt.Fprintf(stderr, "Error: unsupported output format %q\n", *output)
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	c := &cli{
		client:   newRPCClient(*endpoint, *token),
		chainID:  strings.TrimSpace(*chainID),
		output:   *output,
		keystore: *keystore,
		pass:     passphrase.NewSource(config.EnvKeystorePassphrase, ""),
		stdout:   stdout,
		stderr:   stderr,
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "keygen":
		return c.runKeygen(cmdArgs)
	case "address":
		return c.runAddress(cmdArgs)
	case "account":
		return c.runAccount(cmdArgs)
	case "course":
		return c.runCourse(cmdArgs)
	case "enrollment":
		return c.runEnrollment(cmdArgs)
	case "withdraw":
		return c.runWithdraw(cmdArgs)
	case "admin":
		return c.runAdmin(cmdArgs)
	case "status":
		return c.query("academy_status", nil)
	case "balance":
		return c.runBalance(cmdArgs)
	case "cert":
		return c.runCertificate(cmdArgs)
	case "faucet":
		return c.runFaucet(cmdArgs)
	case "events":
		return c.runEvents(cmdArgs)
	case "token":
		return c.runToken(cmdArgs)
	case "help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (c *cli) fail(format string, args ...interface{}) int {
	fmt.Fprintf(c.stderr, "Error: "+format+"\n", args...)
	return 1
}

func (c *cli) loadKey() (*crypto.PrivateKey, error) {
	if c.key != nil {
		return c.key, nil
	}
	if _, err := os.Stat(c.keystore); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keystore %s not found. run learn-cli keygen first", c.keystore)
		}
		return nil, err
	}
	pass, err := c.pass.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(c.keystore, pass)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore %s: %w", c.keystore, err)
	}
	c.key = key
	return key, nil
}

func usage() string {
	return strings.TrimSpace(`Usage:
  learn-cli [global flags] <command> [flags]

Global flags:
  --rpc URL          node endpoint (env ` + rpcEnv + `)
  --token TOKEN      operator token (env ` + tokenEnv + `)
  --chain-id ID      chain id (env ` + chainIDEnv + `)
  --keystore PATH    signing keystore (env ` + keystoreEnv + `)
  --output FORMAT    json or yaml

Commands:
  keygen      Create a new keystore
  address     Print the keystore address
  account     Show balance and nonce
  course      create | update | get | enroll | complete | retry | students | list
  enrollment  Show an enrollment record
  withdraw    author | platform
  admin       fee | set-admin | pause | unpause | transfer-owner |
              pause-minting | resume-minting | emergency-admin | contract
  status      Platform summary
  balance     Author or platform balance
  cert        get | list
  faucet      Fund an account (operator)
  events      List indexed events (operator)
  token       Issue an operator token from the shared secret
`)
}
