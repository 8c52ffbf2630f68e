package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"learnchain/core/events"
	"learnchain/core/genesis"
	"learnchain/core/state"
	"learnchain/core/types"
	"learnchain/crypto"
	"learnchain/native/academy"
	"learnchain/native/bank"
	"learnchain/native/certificate"
	"learnchain/native/common"
	"learnchain/observability"
	"learnchain/storage"
)

var (
	// PlatformAddress holds every enrollment payment until it is withdrawn.
	PlatformAddress = contractAddress("learnchain/academy")
	// CertificateAddress identifies the certificate issuer.
	CertificateAddress = contractAddress("learnchain/certificate")

	chainIDKey = []byte("node/chain-id")
)

var (
	ErrChainIDMismatch = errors.New("node: chain id mismatch")
	ErrNonceMismatch   = errors.New("node: nonce mismatch")
	ErrNonPayable      = errors.New("node: method does not accept value")
	ErrUnknownMethod   = errors.New("node: unknown method")
	ErrInvalidParams   = errors.New("node: invalid params")
	ErrFaucetTarget    = errors.New("node: faucet cannot fund contract accounts")
)

func contractAddress(label string) [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.Keccak256([]byte(label))[12:])
	return out
}

// Node owns the ledger state and executes signed calls one at a time.
type Node struct {
	mu sync.Mutex

	db          storage.Database
	state       *state.Manager
	bank        *bank.Bank
	issuer      *certificate.Engine
	academy     *academy.Engine
	broadcaster *events.Broadcaster
	quotas      *common.QuotaTracker

	chainID string
	logger  *slog.Logger
	metrics *observability.LedgerMetrics
	tracer  trace.Tracer
	nowFn   func() time.Time
}

// Option customises a Node.
type Option func(*Node)

// WithLogger routes node logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithQuota limits how often each caller may submit calls.
func WithQuota(q common.Quota) Option {
	return func(n *Node) { n.quotas = common.NewQuotaTracker(q) }
}

// WithNowFunc overrides the clock used for timestamps and quotas.
func WithNowFunc(now func() time.Time) Option {
	return func(n *Node) {
		if now != nil {
			n.nowFn = now
		}
	}
}

// WithBroadcaster publishes committed events to b instead of a private
// broadcaster.
func WithBroadcaster(b *events.Broadcaster) Option {
	return func(n *Node) {
		if b != nil {
			n.broadcaster = b
		}
	}
}

// NewNode opens the ledger stored in db, applying gen when the store is empty.
func NewNode(db storage.Database, gen *genesis.Resolved, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, errors.New("node: database required")
	}
	if gen == nil {
		return nil, errors.New("node: genesis required")
	}
	n := &Node{
		db:          db,
		state:       state.NewManager(db),
		broadcaster: events.NewBroadcaster(),
		chainID:     gen.ChainID,
		logger:      slog.Default(),
		metrics:     observability.Ledger(),
		tracer:      otel.Tracer("learnchain/core"),
		nowFn:       time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := state.EnsureStateVersion(n.state); err != nil {
		return nil, err
	}
	n.wireEngines()

	var storedChainID string
	ok, err := n.state.KVGet(chainIDKey, &storedChainID)
	if err != nil {
		return nil, err
	}
	if ok {
		if storedChainID != gen.ChainID {
			return nil, fmt.Errorf("%w: store=%s genesis=%s", ErrChainIDMismatch, storedChainID, gen.ChainID)
		}
		return n, nil
	}
	if err := n.applyGenesis(gen); err != nil {
		n.state.Discard()
		return nil, fmt.Errorf("node: apply genesis: %w", err)
	}
	return n, nil
}

func (n *Node) wireEngines() {
	unix := func() int64 { return n.nowFn().Unix() }

	n.bank = bank.New(n.state)
	n.bank.SetEmitter(n.state)

	n.issuer = certificate.NewEngine(CertificateAddress)
	n.issuer.SetState(n.state)
	n.issuer.SetEmitter(n.state)
	n.issuer.SetNowFunc(unix)

	n.academy = academy.NewEngine(PlatformAddress)
	n.academy.SetState(n.state)
	n.academy.SetBank(n.bank)
	n.academy.SetIssuer(n.issuer)
	n.academy.SetEmitter(n.state)
	n.academy.SetNowFunc(unix)
}

func (n *Node) applyGenesis(gen *genesis.Resolved) error {
	for _, alloc := range gen.Alloc {
		if err := n.bank.Mint(alloc.Address, alloc.Amount); err != nil {
			return fmt.Errorf("alloc %s: %w", crypto.AddressFromArray(alloc.Address), err)
		}
	}
	if err := n.issuer.Init(gen.CertificateOwner); err != nil {
		return err
	}
	if err := n.issuer.SetPlatform(gen.CertificateOwner, PlatformAddress); err != nil {
		return err
	}
	if err := n.academy.Init(academy.InitConfig{
		Owner:          gen.Owner,
		EmergencyAdmin: gen.EmergencyAdmin,
		FeeBps:         gen.PlatformFeeBps,
	}); err != nil {
		return err
	}
	if err := n.state.SetStateVersion(state.StateVersion); err != nil {
		return err
	}
	if err := n.state.KVPut(chainIDKey, gen.ChainID); err != nil {
		return err
	}
	committed, err := n.state.Commit()
	if err != nil {
		return err
	}
	n.publish(committed)
	n.logger.Info("genesis applied",
		slog.String("chainId", gen.ChainID),
		slog.String("owner", crypto.AddressFromArray(gen.Owner).String()),
		slog.Int("allocations", len(gen.Alloc)))
	return nil
}

// ChainID returns the identifier every call must carry.
func (n *Node) ChainID() string { return n.chainID }

// Events returns the broadcaster that receives committed events.
func (n *Node) Events() *events.Broadcaster { return n.broadcaster }

// Close releases the underlying database.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.db.Close()
}

func (n *Node) publish(committed []*types.Event) {
	for _, evt := range committed {
		n.broadcaster.Emit(events.Wrap(evt))
		observability.Events().RecordPublished(evt.Type)
	}
}

// Execute runs a signed call to completion. Envelope problems (bad
// signature, wrong chain, stale nonce, exhausted quota) are returned as
// errors and leave state untouched. Once the envelope is accepted the nonce
// is consumed and the receipt reports whether the call itself committed.
func (n *Node) Execute(ctx context.Context, call *types.Call) (*types.Receipt, error) {
	if call == nil {
		return nil, errors.New("node: nil call")
	}
	_, span := n.tracer.Start(ctx, "node.execute", trace.WithAttributes(attribute.String("method", call.Method)))
	defer span.End()

	if err := call.Validate(); err != nil {
		return nil, err
	}
	if call.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: got %q", ErrChainIDMismatch, call.ChainID)
	}
	from, err := call.From()
	if err != nil {
		return nil, err
	}
	hash, err := call.Hash()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	start := n.nowFn()

	account, err := n.state.GetAccount(from[:])
	if err != nil {
		return nil, err
	}
	if call.Nonce != account.Nonce {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, account.Nonce, call.Nonce)
	}
	value := call.AttachedValue()
	if err := n.quotas.Charge(from, start.Unix(), quotaValue(value)); err != nil {
		observability.ModuleMetrics().RecordThrottle("ledger", "quota_exceeded")
		return nil, err
	}

	account.Nonce++
	if err := n.state.PutAccount(from[:], account); err != nil {
		n.state.Discard()
		return nil, err
	}
	snap := n.state.Snapshot()
	result, callErr := n.dispatch(from, call.Method, call.Params, value)
	if callErr != nil {
		n.state.RevertToSnapshot(snap)
	}
	committed, err := n.state.Commit()
	if err != nil {
		n.state.Discard()
		span.RecordError(err)
		return nil, err
	}
	n.publish(committed)

	receipt := &types.Receipt{
		Hash:   fmt.Sprintf("0x%x", hash),
		From:   crypto.AddressFromArray(from).String(),
		Method: call.Method,
		Nonce:  call.Nonce,
		Status: types.ReceiptSuccess,
		Result: result,
		Events: committed,
	}
	outcome := "success"
	if callErr != nil {
		receipt.Status = types.ReceiptFailed
		receipt.Error = callErr.Error()
		receipt.Result = nil
		outcome = callKind(callErr)
		receipt.Kind = outcome
		span.SetStatus(codes.Error, callErr.Error())
	}
	n.metrics.ObserveCall(call.Method, outcome, n.nowFn().Sub(start))
	if liabilities, _, err := n.academy.Solvency(); err == nil {
		n.metrics.SetLiabilities(liabilities)
	}
	n.logger.Info("call executed",
		slog.String("method", call.Method),
		slog.String("caller", receipt.From),
		slog.Uint64("nonce", call.Nonce),
		slog.String("outcome", outcome),
		slog.Any("error", callErr))
	return receipt, nil
}

// callKind classifies a dispatch failure. Malformed calls count as
// validation failures alongside the contract's own.
func callKind(err error) string {
	if errors.Is(err, ErrUnknownMethod) || errors.Is(err, ErrInvalidParams) || errors.Is(err, ErrNonPayable) {
		return academy.KindValidation.String()
	}
	return academy.KindOf(err).String()
}

func quotaValue(v *big.Int) uint64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	if !v.IsUint64() {
		return ^uint64(0)
	}
	return v.Uint64()
}

// Faucet credits amount to addr. Development networks only.
func (n *Node) Faucet(addr [20]byte, amount *big.Int) error {
	if addr == PlatformAddress || addr == CertificateAddress {
		return ErrFaucetTarget
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.bank.Mint(addr, amount); err != nil {
		n.state.Discard()
		return err
	}
	committed, err := n.state.Commit()
	if err != nil {
		n.state.Discard()
		return err
	}
	n.publish(committed)
	return nil
}

// GetAccount returns the committed account for addr.
func (n *Node) GetAccount(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr[:])
}

// WithAcademy runs fn against the platform under the node lock. fn must only
// read.
func (n *Node) WithAcademy(fn func(*academy.Engine) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn(n.academy)
}

// WithCertificates runs fn against the certificate issuer under the node
// lock. fn must only read.
func (n *Node) WithCertificates(fn func(*certificate.Engine) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn(n.issuer)
}
