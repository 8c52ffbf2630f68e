package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"learnchain/services/indexer"
)

type faucetParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (s *Server) handleGetAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
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
	account, err := s.node.GetAccount(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load account", err.Error())
		return
	}
	writeResult(w, req.ID, AccountResult{
		Address: bech32(addr),
		Balance: amount(account.Balance),
		Nonce:   account.Nonce,
	})
}

func (s *Server) handleFaucet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !s.cfg.Faucet {
		writeError(w, http.StatusForbidden, req.ID, codeForbidden, "faucet disabled", nil)
		return
	}
	var params faucetParams
	if err := decodeObject(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseAddressParam(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	value, ok := new(big.Int).SetString(strings.TrimSpace(params.Amount), 10)
	if !ok || value.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "amount must be a positive integer", params.Amount)
		return
	}
	if err := s.node.Faucet(addr, value); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.logger.Info("faucet funded account", "address", bech32(addr), "amount", value.String())
	account, err := s.node.GetAccount(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load account", err.Error())
		return
	}
	writeResult(w, req.ID, AccountResult{
		Address: bech32(addr),
		Balance: amount(account.Balance),
		Nonce:   account.Nonce,
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "indexer not configured", nil)
		return
	}
	var filter indexer.Filter
	if len(req.Params) > 0 {
		if err := decodeObject(req, &filter); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
			return
		}
	}
	records, err := s.events.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to list events", err.Error())
		return
	}
	if records == nil {
		records = []indexer.EventRecord{}
	}
	writeResult(w, req.ID, records)
}
