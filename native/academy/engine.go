package academy

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"learnchain/core/events"
	"learnchain/core/types"
	"learnchain/native/common"
)

// ModuleName identifies the platform in pause views and metrics.
const ModuleName = "academy"

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	Snapshot() int
	RevertToSnapshot(id int)
}

type valueLedger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	Balance(addr [20]byte) (*big.Int, error)
}

// Issuer is the certificate contract as seen from the platform.
type Issuer interface {
	Address() [20]byte
	IsPlatformSet() bool
	IsAuthorized(caller [20]byte) bool
	Mint(caller, student [20]byte, courseID uint64, uri string) (uint64, error)
}

// Engine is the course platform contract. It holds every enrollment payment
// in its own account and tracks what it owes authors and the platform owner
// separately from that balance.
//
// Engine is not safe for concurrent use; callers serialise entry points.
type Engine struct {
	address [20]byte
	state   engineState
	bank    valueLedger
	issuer  Issuer
	emitter events.Emitter
	nowFn   func() int64
	lock    common.ReentrancyLock
}

// NewEngine constructs a platform deployed at address.
func NewEngine(address [20]byte) *Engine {
	return &Engine{
		address: address,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank configures the native value ledger.
func (e *Engine) SetBank(bank valueLedger) { e.bank = bank }

// SetIssuer configures the certificate contract.
func (e *Engine) SetIssuer(issuer Issuer) { e.issuer = issuer }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Address returns the account that holds platform funds.
func (e *Engine) Address() [20]byte { return e.address }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.bank == nil {
		return errNilBank
	}
	return nil
}

func (e *Engine) settings() (*Settings, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var s Settings
	ok, err := e.state.KVGet(settingsKey, &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialised
	}
	s.PlatformBalance = newBigInt(s.PlatformBalance)
	s.AuthorLiabilities = newBigInt(s.AuthorLiabilities)
	return &s, nil
}

func (e *Engine) putSettings(s *Settings) error {
	return e.state.KVPut(settingsKey, s)
}

// Init deploys the platform. The certificate issuer must already have
// registered this platform as its minter.
func (e *Engine) Init(cfg InitConfig) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.settings(); err == nil {
		return ErrAlreadyInitialised
	} else if !errors.Is(err, ErrNotInitialised) {
		return err
	}
	if isZeroAddress(cfg.Owner) {
		return ErrZeroAddress
	}
	if cfg.FeeBps > MaxPlatformFeeBps {
		return ErrFeeTooHigh
	}
	if e.issuer == nil || !e.issuer.IsPlatformSet() || !e.issuer.IsAuthorized(e.address) {
		return ErrCertificateNotReady
	}
	return e.putSettings(&Settings{
		Owner:               cfg.Owner,
		EmergencyAdmin:      cfg.EmergencyAdmin,
		CertificateContract: e.issuer.Address(),
		FeeBps:              cfg.FeeBps,
		NextCourseID:        1,
		PlatformBalance:     big.NewInt(0),
		AuthorLiabilities:   big.NewInt(0),
	})
}

// guard is a precondition evaluated before an entry point touches state.
type guard func(s *Settings) error

type settingsPauseView struct{ s *Settings }

func (v settingsPauseView) IsPaused(module string) bool {
	return module == ModuleName && v.s != nil && v.s.Paused
}

func whenNotPaused() guard {
	return func(s *Settings) error {
		if err := common.Guard(settingsPauseView{s}, ModuleName); err != nil {
			return fmt.Errorf("%w: %w", ErrPaused, err)
		}
		return nil
	}
}

func (e *Engine) onlyRole(caller [20]byte, role Role) guard {
	return func(s *Settings) error {
		return e.authorize(s, caller, role)
	}
}

func (e *Engine) check(guards ...guard) (*Settings, error) {
	s, err := e.settings()
	if err != nil {
		return nil, err
	}
	for _, g := range guards {
		if err := g(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// nonReentrant acquires the platform's call-in-progress flag and evaluates
// the remaining guards. The release function must be deferred.
func (e *Engine) nonReentrant(guards ...guard) (*Settings, func(), error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	release, err := e.lock.Enter()
	if err != nil {
		return nil, nil, err
	}
	s, err := e.check(guards...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return s, release, nil
}

// atomic runs fn inside a state snapshot that is reverted when fn fails, so
// a failed entry point leaves no trace.
func (e *Engine) atomic(fn func() error) error {
	snap := e.state.Snapshot()
	if err := fn(); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	return nil
}

// IsPaused implements common.PauseView.
func (e *Engine) IsPaused(module string) bool {
	s, err := e.settings()
	if err != nil {
		return false
	}
	return settingsPauseView{s}.IsPaused(module)
}
