package core

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"learnchain/crypto"
	"learnchain/native/academy"
)

// Signed call methods.
const (
	MethodCreateCourse     = "academy.createCourse"
	MethodUpdateCourse     = "academy.updateCourse"
	MethodEnroll           = "academy.enrollInCourse"
	MethodCompleteCourse   = "academy.completeCourse"
	MethodRetryCertificate = "academy.retryCertificateIssuance"
	MethodAuthorWithdraw   = "academy.authorWithdraw"
	MethodPlatformWithdraw = "academy.platformWithdraw"
	MethodUpdateFee        = "academy.updatePlatformFee"
	MethodSetAdmin         = "academy.setEmergencyAdmin"
	MethodPause            = "academy.pause"
	MethodUnpause          = "academy.unpause"
	MethodTransferOwner    = "academy.transferOwnership"
	MethodPauseMinting     = "certificate.pauseMinting"
	MethodResumeMinting    = "certificate.resumeMinting"
)

var payableMethods = map[string]bool{
	MethodEnroll: true,
}

// CreateCourseParams are the arguments of academy.createCourse.
type CreateCourseParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MetadataURI string `json:"metadataUri"`
	Price       string `json:"price"`
}

// UpdateCourseParams are the arguments of academy.updateCourse.
type UpdateCourseParams struct {
	CourseID    uint64 `json:"courseId"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MetadataURI string `json:"metadataUri,omitempty"`
	Price       string `json:"price,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// CourseParams identifies a course.
type CourseParams struct {
	CourseID uint64 `json:"courseId"`
}

// CompletionParams are the arguments of completeCourse and
// retryCertificateIssuance.
type CompletionParams struct {
	CourseID       uint64 `json:"courseId"`
	Student        string `json:"student"`
	CertificateURI string `json:"certificateUri"`
}

// FeeParams are the arguments of academy.updatePlatformFee.
type FeeParams struct {
	FeeBps uint64 `json:"feeBps"`
}

// AddressParams carry a single account argument.
type AddressParams struct {
	Address string `json:"address"`
}

// CompletionResult reports the certificate outcome of a completion.
type CompletionResult struct {
	CertificateIssued bool   `json:"certificateIssued"`
	CertificateID     uint64 `json:"certificateId,omitempty"`
	PendingReason     string `json:"pendingReason,omitempty"`
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid amount %q", ErrInvalidParams, value)
	}
	return amount, nil
}

func parseAccount(value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, nil
	}
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return addr, nil
}

// dispatch routes a decoded call to its entry point. The caller has already
// snapshotted state and reverts it when dispatch fails.
func (n *Node) dispatch(from [20]byte, method string, params json.RawMessage, value *big.Int) (interface{}, error) {
	if value.Sign() > 0 && !payableMethods[method] {
		return nil, ErrNonPayable
	}
	switch method {
	case MethodCreateCourse:
		var p CreateCourseParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		price, err := parseAmount(p.Price)
		if err != nil {
			return nil, err
		}
		id, err := n.academy.CreateCourse(from, p.Title, p.Description, p.MetadataURI, price)
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"courseId": id}, nil

	case MethodUpdateCourse:
		var p UpdateCourseParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		price, err := parseAmount(p.Price)
		if err != nil {
			return nil, err
		}
		return nil, n.academy.UpdateCourse(from, p.CourseID, academy.CourseUpdate{
			Title:       p.Title,
			Description: p.Description,
			MetadataURI: p.MetadataURI,
			Price:       price,
			IsActive:    p.IsActive,
		})

	case MethodEnroll:
		var p CourseParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return nil, n.academy.EnrollInCourse(from, p.CourseID, value)

	case MethodCompleteCourse:
		var p CompletionParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		student, err := parseAccount(p.Student)
		if err != nil {
			return nil, err
		}
		result, err := n.academy.CompleteCourse(from, p.CourseID, student, p.CertificateURI)
		if err != nil {
			return nil, err
		}
		n.metrics.RecordMint("complete", result.OK())
		if !result.OK() {
			n.logger.Warn("certificate mint failed; completion recorded as pending",
				"course", p.CourseID, "error", result.Err)
			return CompletionResult{PendingReason: result.Err.Error()}, nil
		}
		return CompletionResult{CertificateIssued: true, CertificateID: result.CertificateID}, nil

	case MethodRetryCertificate:
		var p CompletionParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		student, err := parseAccount(p.Student)
		if err != nil {
			return nil, err
		}
		id, err := n.academy.RetryCertificateIssuance(from, p.CourseID, student, p.CertificateURI)
		if academy.KindOf(err) == academy.KindExternalCall {
			n.metrics.RecordMint("retry", false)
		}
		if err != nil {
			return nil, err
		}
		n.metrics.RecordMint("retry", true)
		return CompletionResult{CertificateIssued: true, CertificateID: id}, nil

	case MethodAuthorWithdraw:
		amount, err := n.academy.AuthorWithdraw(from)
		if err != nil {
			return nil, err
		}
		n.metrics.RecordWithdrawal("author", amount)
		return map[string]string{"amount": amount.String()}, nil

	case MethodPlatformWithdraw:
		amount, err := n.academy.PlatformWithdraw(from)
		if err != nil {
			return nil, err
		}
		n.metrics.RecordWithdrawal("platform", amount)
		return map[string]string{"amount": amount.String()}, nil

	case MethodUpdateFee:
		var p FeeParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return nil, n.academy.UpdatePlatformFee(from, p.FeeBps)

	case MethodSetAdmin, MethodTransferOwner:
		var p AddressParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		addr, err := parseAccount(p.Address)
		if err != nil {
			return nil, err
		}
		if method == MethodSetAdmin {
			return nil, n.academy.SetEmergencyAdmin(from, addr)
		}
		return nil, n.academy.TransferOwnership(from, addr)

	case MethodPause:
		return nil, n.academy.Pause(from)
	case MethodUnpause:
		return nil, n.academy.Unpause(from)
	case MethodPauseMinting:
		return nil, n.issuer.PauseMinting(from)
	case MethodResumeMinting:
		return nil, n.issuer.ResumeMinting(from)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}
