package certificate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"learnchain/core/events"
	"learnchain/core/types"
)

var (
	errNilState = errors.New("certificate: state not configured")

	ErrNotInitialised     = errors.New("certificate: issuer not initialised")
	ErrAlreadyInitialised = errors.New("certificate: issuer already initialised")
	ErrUnauthorized       = errors.New("certificate: unauthorized")
	ErrZeroAddress        = errors.New("certificate: zero address")
	ErrEmptyURI           = errors.New("certificate: uri required")
	ErrAlreadyCertified   = errors.New("certificate: student already certified for course")
	ErrMintingPaused      = errors.New("certificate: minting paused")
	ErrNotFound           = errors.New("certificate: not found")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Engine is the certificate issuer contract. Only the platform address
// registered by the issuer owner may mint.
type Engine struct {
	address [20]byte
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs an issuer deployed at address.
func NewEngine(address [20]byte) *Engine {
	return &Engine{
		address: address,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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

// Address returns the issuer's contract address.
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

func (e *Engine) settings() (*Settings, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var s Settings
	ok, err := e.state.KVGet(settingsKey, &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialised
	}
	return &s, nil
}

func (e *Engine) putSettings(s *Settings) error {
	return e.state.KVPut(settingsKey, s)
}

func (e *Engine) onlyOwner(caller [20]byte) (*Settings, error) {
	s, err := e.settings()
	if err != nil {
		return nil, err
	}
	if caller != s.Owner {
		return nil, ErrUnauthorized
	}
	return s, nil
}

// Init records the issuer owner. It may run only once.
func (e *Engine) Init(owner [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if owner == ([20]byte{}) {
		return ErrZeroAddress
	}
	if _, err := e.settings(); err == nil {
		return ErrAlreadyInitialised
	} else if !errors.Is(err, ErrNotInitialised) {
		return err
	}
	return e.putSettings(&Settings{Owner: owner, NextID: 1})
}

// SetPlatform authorises platform as the only minter.
func (e *Engine) SetPlatform(caller, platform [20]byte) error {
	s, err := e.onlyOwner(caller)
	if err != nil {
		return err
	}
	if platform == ([20]byte{}) {
		return ErrZeroAddress
	}
	previous := s.Platform
	s.Platform = platform
	if err := e.putSettings(s); err != nil {
		return err
	}
	e.emit(PlatformSetEvent(previous, platform))
	return nil
}

// IsPlatformSet reports whether a minting platform has been registered.
func (e *Engine) IsPlatformSet() bool {
	s, err := e.settings()
	if err != nil {
		return false
	}
	return s.Platform != ([20]byte{})
}

// IsAuthorized reports whether caller may mint.
func (e *Engine) IsAuthorized(caller [20]byte) bool {
	s, err := e.settings()
	if err != nil {
		return false
	}
	return s.Platform != ([20]byte{}) && caller == s.Platform
}

// PauseMinting halts minting until ResumeMinting is called.
func (e *Engine) PauseMinting(caller [20]byte) error {
	return e.setMintingPaused(caller, true)
}

// ResumeMinting re-enables minting.
func (e *Engine) ResumeMinting(caller [20]byte) error {
	return e.setMintingPaused(caller, false)
}

func (e *Engine) setMintingPaused(caller [20]byte, paused bool) error {
	s, err := e.onlyOwner(caller)
	if err != nil {
		return err
	}
	if s.MintingPaused == paused {
		return nil
	}
	s.MintingPaused = paused
	if err := e.putSettings(s); err != nil {
		return err
	}
	e.emit(MintingToggledEvent(paused, caller))
	return nil
}

// Mint issues a certificate for student and returns its identifier.
func (e *Engine) Mint(caller, student [20]byte, courseID uint64, uri string) (uint64, error) {
	s, err := e.settings()
	if err != nil {
		return 0, err
	}
	if s.Platform == ([20]byte{}) || caller != s.Platform {
		return 0, ErrUnauthorized
	}
	if s.MintingPaused {
		return 0, ErrMintingPaused
	}
	if student == ([20]byte{}) {
		return 0, ErrZeroAddress
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return 0, ErrEmptyURI
	}
	issued := issuedKey(student, courseID)
	if ok, err := e.state.KVGet(issued, nil); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrAlreadyCertified
	}
	cert := &Certificate{
		ID:       s.NextID,
		Owner:    student,
		CourseID: courseID,
		URI:      uri,
		Issuer:   caller,
		IssuedAt: e.now(),
	}
	s.NextID++
	if err := e.putSettings(s); err != nil {
		return 0, err
	}
	if err := e.state.KVPut(tokenKey(cert.ID), cert); err != nil {
		return 0, err
	}
	if err := e.state.KVPut(issued, cert.ID); err != nil {
		return 0, err
	}
	if err := e.state.KVAppend(ownerIndexKey(student), encodeID(cert.ID)); err != nil {
		return 0, err
	}
	e.emit(MintedEvent(cert))
	return cert.ID, nil
}

// Certificate returns the certificate with the supplied identifier.
func (e *Engine) Certificate(id uint64) (*Certificate, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var cert Certificate
	ok, err := e.state.KVGet(tokenKey(id), &cert)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &cert, nil
}

// OwnerOf returns the holder of certificate id.
func (e *Engine) OwnerOf(id uint64) ([20]byte, error) {
	cert, err := e.Certificate(id)
	if err != nil {
		return [20]byte{}, err
	}
	return cert.Owner, nil
}

// CertificateFor returns the certificate issued to student for courseID.
func (e *Engine) CertificateFor(student [20]byte, courseID uint64) (*Certificate, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var id uint64
	ok, err := e.state.KVGet(issuedKey(student, courseID), &id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return e.Certificate(id)
}

// CertificatesOf lists the certificates held by owner in issuance order.
func (e *Engine) CertificatesOf(owner [20]byte) ([]*Certificate, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var ids [][]byte
	if err := e.state.KVGetList(ownerIndexKey(owner), &ids); err != nil {
		return nil, err
	}
	out := make([]*Certificate, 0, len(ids))
	for _, raw := range ids {
		id, ok := decodeID(raw)
		if !ok {
			return nil, fmt.Errorf("certificate: corrupt owner index entry")
		}
		cert, err := e.Certificate(id)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	return out, nil
}

// BalanceOf returns the number of certificates held by owner.
func (e *Engine) BalanceOf(owner [20]byte) (uint64, error) {
	certs, err := e.CertificatesOf(owner)
	if err != nil {
		return 0, err
	}
	return uint64(len(certs)), nil
}

// Settings returns a copy of the issuer's administrative record.
func (e *Engine) Settings() (*Settings, error) {
	return e.settings()
}
