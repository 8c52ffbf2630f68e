package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"learnchain/core"
	"learnchain/native/academy"
	"learnchain/native/common"
	"learnchain/observability"
	"learnchain/services/indexer"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeForbidden      = -32003
	codeStateConflict  = -32010
	codeNonceMismatch  = -32011
	codeRateLimited    = -32020
	codeHalted         = -32030
	codeTransferFailed = -32040
	codeExternalCall   = -32050
)

// EventLister serves indexer_listEvents.
type EventLister interface {
	List(ctx context.Context, f indexer.Filter) ([]indexer.EventRecord, error)
}

// Config tunes the RPC server.
type Config struct {
	RequestsPerMinute int
	Burst             int
	OperatorSecret    string
	OperatorIssuer    string
	// Faucet enables node_faucet; it still requires an operator token.
	Faucet bool
	// TrustedProxies lists peer IPs or CIDRs whose X-Forwarded-For header
	// identifies the client for rate limiting.
	TrustedProxies []string
}

// Server exposes the node over JSON-RPC, a websocket event stream and
// operational endpoints.
type Server struct {
	node    *core.Node
	cfg     Config
	limiter *rateLimiter
	auth    *operatorAuth
	events  EventLister
	logger  *slog.Logger
}

// NewServer builds a server for node.
func NewServer(node *core.Node, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:    node,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RequestsPerMinute, cfg.Burst, cfg.TrustedProxies),
		auth:    newOperatorAuth(cfg.OperatorSecret, cfg.OperatorIssuer),
		logger:  logger,
	}
}

// SetEventLister enables indexer_listEvents.
func (s *Server) SetEventLister(l EventLister) { s.events = l }

// Handler returns the HTTP routes wrapped in tracing.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleEventsWS)
	r.With(s.limiter.middleware).Post("/", s.handle)

	return otelhttp.NewHandler(r, "learn-rpc")
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// errorStatus maps a ledger error onto an HTTP status and JSON-RPC code.
func errorStatus(err error) (int, int) {
	switch {
	case errors.Is(err, core.ErrNonceMismatch):
		return http.StatusConflict, codeNonceMismatch
	case errors.Is(err, common.ErrQuotaCallsExceeded), errors.Is(err, common.ErrQuotaValueCapExceeded):
		return http.StatusTooManyRequests, codeRateLimited
	case errors.Is(err, core.ErrUnknownMethod):
		return http.StatusNotFound, codeMethodNotFound
	case errors.Is(err, core.ErrInvalidParams), errors.Is(err, core.ErrNonPayable),
		errors.Is(err, core.ErrChainIDMismatch), errors.Is(err, core.ErrFaucetTarget):
		return http.StatusBadRequest, codeInvalidParams
	}
	return kindStatus(academy.KindOf(err).String())
}

func kindStatus(kind string) (int, int) {
	switch kind {
	case academy.KindValidation.String():
		return http.StatusBadRequest, codeInvalidParams
	case academy.KindAuthorization.String():
		return http.StatusForbidden, codeForbidden
	case academy.KindStateConflict.String():
		return http.StatusConflict, codeStateConflict
	case academy.KindHalted.String():
		return http.StatusServiceUnavailable, codeHalted
	case academy.KindTransfer.String():
		return http.StatusUnprocessableEntity, codeTransferFailed
	case academy.KindExternalCall.String():
		return http.StatusBadGateway, codeExternalCall
	default:
		return http.StatusInternalServerError, codeServerError
	}
}

func writeLedgerError(w http.ResponseWriter, id interface{}, err error) {
	status, code := errorStatus(err)
	writeError(w, status, id, code, err.Error(), academy.KindOf(err).String())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	w = recorder
	start := time.Now()

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	defer func() {
		module, method := splitMethod(req.Method)
		observability.ModuleMetrics().Observe(module, method, recorder.status, time.Since(start))
		s.logger.Debug("rpc request",
			slog.String("method", req.Method),
			slog.Int("status", recorder.status),
			slog.String("requestId", RequestID(r.Context())))
	}()

	switch req.Method {
	case "academy_sendCall":
		s.handleSendCall(w, r, req)
	case "academy_getCourse":
		s.handleGetCourse(w, r, req)
	case "academy_getEnrollment":
		s.handleGetEnrollment(w, r, req)
	case "academy_authorCourses":
		s.handleAuthorCourses(w, r, req)
	case "academy_studentCourses":
		s.handleStudentCourses(w, r, req)
	case "academy_courseStudents":
		s.handleCourseStudents(w, r, req)
	case "academy_authorBalance":
		s.handleAuthorBalance(w, r, req)
	case "academy_platformBalance":
		s.handlePlatformBalance(w, r, req)
	case "academy_platformFee":
		s.handlePlatformFee(w, r, req)
	case "academy_emergencyAdmin":
		s.handleEmergencyAdmin(w, r, req)
	case "academy_certificateContract":
		s.handleCertificateContract(w, r, req)
	case "academy_status":
		s.handleStatus(w, r, req)
	case "certificate_get":
		s.handleCertificateGet(w, r, req)
	case "certificate_listByOwner":
		s.handleCertificateListByOwner(w, r, req)
	case "node_getAccount":
		s.handleGetAccount(w, r, req)
	case "node_faucet":
		if err := s.auth.authorize(r, ScopeFaucet); err != nil {
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "operator authorization required", err.Error())
			return
		}
		s.handleFaucet(w, r, req)
	case "indexer_listEvents":
		if err := s.auth.authorize(r, ScopeEvents); err != nil {
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "operator authorization required", err.Error())
			return
		}
		s.handleListEvents(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

func splitMethod(method string) (string, string) {
	module, name, found := strings.Cut(method, "_")
	if !found {
		return "", method
	}
	return module, name
}

// decodeObject unmarshals the single object parameter of req into out.
func decodeObject(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected a single parameter object")
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
