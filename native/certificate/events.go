package certificate

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"learnchain/core/types"
)

const (
	// EventTypePlatformSet is emitted when the authorised minting platform changes.
	EventTypePlatformSet = "certificate.platform.set"
	// EventTypeMinted is emitted when a credential is issued.
	EventTypeMinted = "certificate.minted"
	// EventTypeMintingPaused is emitted when the issuer owner halts minting.
	EventTypeMintingPaused = "certificate.minting.paused"
	// EventTypeMintingResumed is emitted when minting resumes.
	EventTypeMintingResumed = "certificate.minting.resumed"
)

func hexAddr(addr [20]byte) string {
	return common.BytesToAddress(addr[:]).Hex()
}

// PlatformSetEvent reports a platform change.
func PlatformSetEvent(previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypePlatformSet,
		Attributes: map[string]string{
			"previous": hexAddr(previous),
			"platform": hexAddr(next),
		},
	}
}

// MintedEvent reports a newly issued certificate.
func MintedEvent(cert *Certificate) *types.Event {
	return &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"certificateId": strconv.FormatUint(cert.ID, 10),
			"student":       hexAddr(cert.Owner),
			"courseId":      strconv.FormatUint(cert.CourseID, 10),
			"uri":           cert.URI,
		},
	}
}

// MintingToggledEvent reports a pause or resume of minting.
func MintingToggledEvent(paused bool, by [20]byte) *types.Event {
	evtType := EventTypeMintingResumed
	if paused {
		evtType = EventTypeMintingPaused
	}
	return &types.Event{Type: evtType, Attributes: map[string]string{"by": hexAddr(by)}}
}
