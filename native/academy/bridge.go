package academy

import (
	"errors"
	"fmt"
)

// MintResult is the outcome of a certificate mint: an id on success or the
// reason it failed.
type MintResult struct {
	CertificateID uint64
	Err           error
}

// OK reports whether the mint produced a certificate.
func (r MintResult) OK() bool { return r.Err == nil && r.CertificateID != 0 }

// Pending reports whether a mint was attempted and failed.
func (r MintResult) Pending() bool { return !r.OK() }

// mintCertificate calls the issuer as the platform. Whatever the issuer wrote
// before failing is reverted here so the caller decides what survives.
func (e *Engine) mintCertificate(student [20]byte, courseID uint64, uri string) MintResult {
	if e.issuer == nil {
		return MintResult{Err: fmt.Errorf("%w: issuer not configured", ErrMintFailed)}
	}
	snap := e.state.Snapshot()
	id, err := e.issuer.Mint(e.address, student, courseID, uri)
	if err == nil && id == 0 {
		err = errors.New("issuer returned zero certificate id")
	}
	if err != nil {
		e.state.RevertToSnapshot(snap)
		return MintResult{Err: fmt.Errorf("%w: %w", ErrMintFailed, err)}
	}
	return MintResult{CertificateID: id}
}
