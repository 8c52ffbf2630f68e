package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"learnchain/core/types"
	"learnchain/crypto"
	"learnchain/native/academy"
	"learnchain/native/certificate"
)

type courseParams struct {
	CourseID uint64 `json:"courseId"`
}

type enrollmentParams struct {
	CourseID uint64 `json:"courseId"`
	Student  string `json:"student"`
}

type addressParams struct {
	Address string `json:"address"`
}

type certificateParams struct {
	CertificateID uint64 `json:"certificateId"`
}

// emergencyAdminMethod is the method a caller signs to prove ownership when
// reading the emergency admin.
const emergencyAdminMethod = "academy.emergencyAdmin"

func parseAddressParam(value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, fmt.Errorf("address required")
	}
	return crypto.ParseAddress(value)
}

func (s *Server) handleSendCall(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "signed call parameter required", nil)
		return
	}
	var call types.Call
	if err := json.Unmarshal(req.Params[0], &call); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid call format", err.Error())
		return
	}
	receipt, err := s.node.Execute(r.Context(), &call)
	if err != nil {
		status, code := errorStatus(err)
		if code == codeServerError {
			// Envelope failures that are not ledger errors are malformed input.
			status, code = http.StatusBadRequest, codeInvalidParams
		}
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	if !receipt.Succeeded() {
		status, code := kindStatus(receipt.Kind)
		writeError(w, status, req.ID, code, receipt.Error, receiptResult(receipt))
		return
	}
	writeResult(w, req.ID, receiptResult(receipt))
}

func (s *Server) handleGetCourse(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params courseParams
	if err := decodeObject(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	var result CourseResult
	err := s.node.WithAcademy(func(e *academy.Engine) error {
		course, err := e.Course(params.CourseID)
		if err != nil {
			return err
		}
		result = courseResult(course)
		return nil
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetEnrollment(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params enrollmentParams
	if err := decodeObject(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	student, err := parseAddressParam(params.Student)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid student", err.Error())
		return
	}
	var result EnrollmentResult
	err = s.node.WithAcademy(func(e *academy.Engine) error {
		record, err := e.Enrollment(params.CourseID, student)
		if err != nil {
			return err
		}
		result = enrollmentResult(record)
		return nil
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleAuthorCourses(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.writeIDList(w, req, func(e *academy.Engine, addr [20]byte) ([]uint64, error) {
		return e.AuthorCourses(addr)
	})
}

func (s *Server) handleStudentCourses(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.writeIDList(w, req, func(e *academy.Engine, addr [20]byte) ([]uint64, error) {
		return e.StudentCourses(addr)
	})
}

func (s *Server) writeIDList(w http.ResponseWriter, req *RPCRequest, list func(*academy.Engine, [20]byte) ([]uint64, error)) {
	var params addressParams
	if err := decodeObject(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseAddressParam(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	ids := []uint64{}
	err = s.node.WithAcademy(func(e *academy.Engine) error {
		out, err := list(e, addr)
		if err != nil {
			return err
		}
		ids = append(ids, out...)
		return nil
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ids)
}

func (s *Server) handleCourseStudents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params courseParams
	if err := decodeObject(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	students := []string{}
	err := s.node.WithAcademy(func(e *academy.Engine) error {
		if _, err := e.Course(params.CourseID); err != nil {
			return err
		}
		list, err := e.CourseStudents(params.CourseID)
		if err != nil {
			return err
		}
		for _, addr := range list {
			students = append(students, bech32(addr))
		}
		return nil
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, students)
}

func (s *Server) handleAuthorBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeObject(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseAddressParam(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	var balance string
	err = s.node.WithAcademy(func(e *academy.Engine) error {
		v, err := e.AuthorBalance(addr)
		balance = amount(v)
		return err
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balance)
}

func (s *Server) handlePlatformBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var balance string
	err := s.node.WithAcademy(func(e *academy.Engine) error {
		v, err := e.PlatformBalance()
		balance = amount(v)
		return err
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balance)
}

func (s *Server) handlePlatformFee(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var fee uint64
	err := s.node.WithAcademy(func(e *academy.Engine) error {
		var err error
		fee, err = e.PlatformFee()
		return err
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"feeBps": fee})
}

// handleEmergencyAdmin expects a call signed by the owner for method
// academy.emergencyAdmin. The call is verified but never executed, so its
// nonce is not consumed.
func (s *Server) handleEmergencyAdmin(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "signed call parameter required", nil)
		return
	}
	var call types.Call
	if err := json.Unmarshal(req.Params[0], &call); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid call format", err.Error())
		return
	}
	if call.Method != emergencyAdminMethod || call.ChainID != s.node.ChainID() {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "call must target "+emergencyAdminMethod+" on this chain", nil)
		return
	}
	caller, err := call.From()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid call signature", err.Error())
		return
	}
	var admin [20]byte
	err = s.node.WithAcademy(func(e *academy.Engine) error {
		var err error
		admin, err = e.EmergencyAdmin(caller)
		return err
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, bech32(admin))
}

func (s *Server) handleCertificateContract(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var contract [20]byte
	err := s.node.WithAcademy(func(e *academy.Engine) error {
		var err error
		contract, err = e.CertificateContract()
		return err
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, bech32(contract))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var result StatusResult
	err := s.node.WithAcademy(func(e *academy.Engine) error {
		status, err := e.Status()
		if err != nil {
			return err
		}
		result = statusResult(status)
		return nil
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleCertificateGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params certificateParams
	if err := decodeObject(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	var result CertificateResult
	err := s.node.WithCertificates(func(e *certificate.Engine) error {
		cert, err := e.Certificate(params.CertificateID)
		if err != nil {
			return err
		}
		result = certificateResult(cert)
		return nil
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleCertificateListByOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeObject(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	owner, err := parseAddressParam(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	results := []CertificateResult{}
	err = s.node.WithCertificates(func(e *certificate.Engine) error {
		certs, err := e.CertificatesOf(owner)
		if err != nil {
			return err
		}
		for _, cert := range certs {
			results = append(results, certificateResult(cert))
		}
		return nil
	})
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, results)
}
