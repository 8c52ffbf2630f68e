package rpc

import (
	"math/big"

	"learnchain/core/types"
	"learnchain/crypto"
	"learnchain/native/academy"
	"learnchain/native/certificate"
)

// CourseResult is the RPC view of a course.
type CourseResult struct {
	ID               uint64 `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	MetadataURI      string `json:"metadataUri"`
	Author           string `json:"author"`
	Price            string `json:"price"`
	IsActive         bool   `json:"isActive"`
	TotalEnrollments uint64 `json:"totalEnrollments"`
	CreationDate     uint64 `json:"creationDate"`
}

// EnrollmentResult is the RPC view of an enrollment.
type EnrollmentResult struct {
	CourseID          uint64 `json:"courseId"`
	Student           string `json:"student"`
	EnrollmentDate    uint64 `json:"enrollmentDate"`
	Completed         bool   `json:"completed"`
	CompletionDate    uint64 `json:"completionDate,omitempty"`
	CertificateIssued bool   `json:"certificateIssued"`
	CertificateID     uint64 `json:"certificateId,omitempty"`
	PricePaid         string `json:"pricePaid"`
	PlatformFee       string `json:"platformFee"`
}

// CertificateResult is the RPC view of an issued certificate.
type CertificateResult struct {
	ID       uint64 `json:"id"`
	Owner    string `json:"owner"`
	CourseID uint64 `json:"courseId"`
	URI      string `json:"uri"`
	IssuedAt uint64 `json:"issuedAt"`
}

// StatusResult summarises the platform.
type StatusResult struct {
	Owner           string `json:"owner"`
	Paused          bool   `json:"paused"`
	FeeBps          uint64 `json:"feeBps"`
	CourseCount     uint64 `json:"courseCount"`
	PlatformBalance string `json:"platformBalance"`
	Liabilities     string `json:"liabilities"`
	Held            string `json:"held"`
	Solvent         bool   `json:"solvent"`
}

// AccountResult reports the native balance and next nonce of an address.
type AccountResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// ReceiptResult wraps a receipt with a readable status.
type ReceiptResult struct {
	*types.Receipt
	Status string `json:"status"`
}

func bech32(addr [20]byte) string { return crypto.AddressFromArray(addr).String() }

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func courseResult(c *academy.Course) CourseResult {
	return CourseResult{
		ID:               c.ID,
		Title:            c.Title,
		Description:      c.Description,
		MetadataURI:      c.MetadataURI,
		Author:           bech32(c.Author),
		Price:            amount(c.Price),
		IsActive:         c.IsActive,
		TotalEnrollments: c.TotalEnrollments,
		CreationDate:     c.CreationDate,
	}
}

func enrollmentResult(e *academy.Enrollment) EnrollmentResult {
	return EnrollmentResult{
		CourseID:          e.CourseID,
		Student:           bech32(e.Student),
		EnrollmentDate:    e.EnrollmentDate,
		Completed:         e.Completed,
		CompletionDate:    e.CompletionDate,
		CertificateIssued: e.CertificateIssued,
		CertificateID:     e.CertificateID,
		PricePaid:         amount(e.PricePaid),
		PlatformFee:       amount(e.PlatformFee),
	}
}

func certificateResult(c *certificate.Certificate) CertificateResult {
	return CertificateResult{
		ID:       c.ID,
		Owner:    bech32(c.Owner),
		CourseID: c.CourseID,
		URI:      c.URI,
		IssuedAt: c.IssuedAt,
	}
}

func statusResult(s *academy.Status) StatusResult {
	return StatusResult{
		Owner:           bech32(s.Owner),
		Paused:          s.Paused,
		FeeBps:          s.FeeBps,
		CourseCount:     s.CourseCount,
		PlatformBalance: amount(s.PlatformBalance),
		Liabilities:     amount(s.Liabilities),
		Held:            amount(s.Held),
		Solvent:         s.Held != nil && s.Liabilities != nil && s.Held.Cmp(s.Liabilities) >= 0,
	}
}

func receiptResult(r *types.Receipt) ReceiptResult {
	out := ReceiptResult{Receipt: r, Status: "success"}
	if !r.Succeeded() {
		out.Status = "failed"
	}
	return out
}
