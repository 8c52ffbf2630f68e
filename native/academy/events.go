package academy

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"learnchain/core/types"
)

const (
	EventTypeCourseCreated        = "academy.course.created"
	EventTypeCourseUpdated        = "academy.course.updated"
	EventTypeEnrolled             = "academy.enrolled"
	EventTypeCourseCompleted      = "academy.course.completed"
	EventTypeCertificateIssued    = "academy.certificate.issued"
	EventTypeCertificatePending   = "academy.certificate.pending"
	EventTypeAuthorWithdrawal     = "academy.withdrawal.author"
	EventTypePlatformWithdrawal   = "academy.withdrawal.platform"
	EventTypePlatformFeeUpdated   = "academy.fee.updated"
	EventTypeEmergencyAdminSet    = "academy.admin.updated"
	EventTypePaused               = "academy.paused"
	EventTypeUnpaused             = "academy.unpaused"
	EventTypeOwnershipTransferred = "academy.ownership.transferred"
)

func hexAddr(addr [20]byte) string {
	return common.BytesToAddress(addr[:]).Hex()
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }

func courseCreatedEvent(course *Course) *types.Event {
	return &types.Event{
		Type: EventTypeCourseCreated,
		Attributes: map[string]string{
			"courseId": formatID(course.ID),
			"author":   hexAddr(course.Author),
			"title":    course.Title,
			"price":    amountString(course.Price),
		},
	}
}

func courseUpdatedEvent(course *Course) *types.Event {
	return &types.Event{
		Type: EventTypeCourseUpdated,
		Attributes: map[string]string{
			"courseId": formatID(course.ID),
			"price":    amountString(course.Price),
			"isActive": strconv.FormatBool(course.IsActive),
		},
	}
}

func enrolledEvent(enrollment *Enrollment, authorCredit, refund *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeEnrolled,
		Attributes: map[string]string{
			"courseId":     formatID(enrollment.CourseID),
			"student":      hexAddr(enrollment.Student),
			"price":        amountString(enrollment.PricePaid),
			"authorCredit": amountString(authorCredit),
			"platformFee":  amountString(enrollment.PlatformFee),
			"refund":       amountString(refund),
		},
	}
}

func courseCompletedEvent(courseID uint64, student [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeCourseCompleted,
		Attributes: map[string]string{
			"courseId": formatID(courseID),
			"student":  hexAddr(student),
		},
	}
}

func certificateIssuedEvent(courseID uint64, student [20]byte, certificateID uint64) *types.Event {
	return &types.Event{
		Type: EventTypeCertificateIssued,
		Attributes: map[string]string{
			"courseId":      formatID(courseID),
			"student":       hexAddr(student),
			"certificateId": formatID(certificateID),
		},
	}
}

func certificatePendingEvent(courseID uint64, student [20]byte, reason error) *types.Event {
	attrs := map[string]string{
		"courseId": formatID(courseID),
		"student":  hexAddr(student),
	}
	if reason != nil {
		attrs["reason"] = reason.Error()
	}
	return &types.Event{Type: EventTypeCertificatePending, Attributes: attrs}
}

func withdrawalEvent(evtType string, recipient [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: evtType,
		Attributes: map[string]string{
			"recipient": hexAddr(recipient),
			"amount":    amountString(amount),
		},
	}
}

func feeUpdatedEvent(previous, next uint64) *types.Event {
	return &types.Event{
		Type: EventTypePlatformFeeUpdated,
		Attributes: map[string]string{
			"previousBps": strconv.FormatUint(previous, 10),
			"feeBps":      strconv.FormatUint(next, 10),
		},
	}
}

func addressChangedEvent(evtType string, previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: evtType,
		Attributes: map[string]string{
			"previous": hexAddr(previous),
			"current":  hexAddr(next),
		},
	}
}

func pauseEvent(paused bool, by [20]byte) *types.Event {
	evtType := EventTypeUnpaused
	if paused {
		evtType = EventTypePaused
	}
	return &types.Event{Type: evtType, Attributes: map[string]string{"by": hexAddr(by)}}
}
