package academy

import (
	"errors"

	"learnchain/native/certificate"
	"learnchain/native/common"
)

var (
	errNilState = errors.New("academy: state not configured")
	errNilBank  = errors.New("academy: bank not configured")

	// Validation.
	ErrEmptyField          = errors.New("academy: required field empty")
	ErrZeroAddress         = errors.New("academy: zero address")
	ErrStudentZero         = errors.New("academy: student address is zero")
	ErrFeeTooHigh          = errors.New("academy: platform fee exceeds maximum")
	ErrInsufficientPayment = errors.New("academy: insufficient payment")
	ErrInvalidPrice        = errors.New("academy: price must not be negative")

	// Authorization.
	ErrUnauthorized = errors.New("academy: unauthorized")
	ErrNotAuthor    = errors.New("academy: caller is not the course author")

	// State conflicts.
	ErrNotInitialised     = errors.New("academy: platform not initialised")
	ErrAlreadyInitialised = errors.New("academy: platform already initialised")
	ErrNotFound           = errors.New("academy: course not found")
	ErrCourseInactive     = errors.New("academy: course inactive")
	ErrAlreadyEnrolled    = errors.New("academy: already enrolled")
	ErrNotEnrolled        = errors.New("academy: not enrolled")
	ErrAlreadyCompleted   = errors.New("academy: course already completed")
	ErrNotCompleted       = errors.New("academy: course not completed")
	ErrAlreadyIssued      = errors.New("academy: certificate already issued")
	ErrNothingToWithdraw  = errors.New("academy: nothing to withdraw")
	ErrNotPaused          = errors.New("academy: not paused")
	ErrReentrant          = common.ErrReentrant

	// Halt.
	ErrPaused = errors.New("academy: paused")

	// Transfers.
	ErrPaymentFailed  = errors.New("academy: payment collection failed")
	ErrRefundFailed   = errors.New("academy: refund failed")
	ErrTransferFailed = errors.New("academy: transfer failed")

	// External calls.
	ErrMintFailed          = errors.New("academy: certificate mint failed")
	ErrCertificateNotReady = errors.New("academy: certificate issuer has not authorised this platform")
)

// Kind groups failures by how a caller should react to them.
type Kind uint8

const (
	KindNone Kind = iota
	KindValidation
	KindAuthorization
	KindStateConflict
	KindTransfer
	KindExternalCall
	KindHalted
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindStateConflict:
		return "state_conflict"
	case KindTransfer:
		return "transfer_failure"
	case KindExternalCall:
		return "external_call_failure"
	case KindHalted:
		return "halted"
	default:
		return "internal"
	}
}

var kindTable = []struct {
	err  error
	kind Kind
}{
	// Transfer and mint failures wrap the underlying cause, so they are
	// matched first.
	{ErrPaymentFailed, KindTransfer},
	{ErrRefundFailed, KindTransfer},
	{ErrTransferFailed, KindTransfer},
	{ErrMintFailed, KindExternalCall},
	{ErrCertificateNotReady, KindExternalCall},
	{ErrPaused, KindHalted},
	{ErrEmptyField, KindValidation},
	{ErrZeroAddress, KindValidation},
	{ErrStudentZero, KindValidation},
	{ErrFeeTooHigh, KindValidation},
	{ErrInsufficientPayment, KindValidation},
	{ErrInvalidPrice, KindValidation},
	{ErrUnauthorized, KindAuthorization},
	{ErrNotAuthor, KindAuthorization},
	{ErrNotInitialised, KindStateConflict},
	{ErrAlreadyInitialised, KindStateConflict},
	{ErrNotFound, KindStateConflict},
	{ErrCourseInactive, KindStateConflict},
	{ErrAlreadyEnrolled, KindStateConflict},
	{ErrNotEnrolled, KindStateConflict},
	{ErrAlreadyCompleted, KindStateConflict},
	{ErrNotCompleted, KindStateConflict},
	{ErrAlreadyIssued, KindStateConflict},
	{ErrNothingToWithdraw, KindStateConflict},
	{ErrNotPaused, KindStateConflict},
	{ErrReentrant, KindStateConflict},
	{certificate.ErrUnauthorized, KindAuthorization},
	{certificate.ErrNotFound, KindStateConflict},
	{certificate.ErrZeroAddress, KindValidation},
}

// KindOf classifies err. Nil maps to KindNone and unknown errors to
// KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}
