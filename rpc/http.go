package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"minechain/native/mining"
	"minechain/native/nft"
	"minechain/native/token"
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
	codePrecondition   = -32010
)

// Server exposes the mining ledger over JSON-RPC 2.0. Mutating methods carry
// a recoverable secp256k1 signature identifying the caller; queries are open.
type Server struct {
	engine *mining.Engine
	log    *slog.Logger
}

// NewServer wires a JSON-RPC server around the mining engine.
func NewServer(engine *mining.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, log: logger}
}

// Start serves JSON-RPC requests on addr until the listener fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.log.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// RPCRequest is the JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is the JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a machine-readable error code plus a human message.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil || int64(len(body)) > maxRequestBytes {
		s.writeError(w, nil, codeParseError, "request body too large or unreadable")
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, nil, codeParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		s.writeError(w, req.ID, codeInvalidRequest, "invalid request")
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		s.writeError(w, req.ID, codeMethodNotFound, "method not found")
		return
	}
	result, rpcErr := handler(req.Params)
	if rpcErr != nil {
		s.log.Warn("rpc call failed", "method", req.Method, "code", rpcErr.Code, "err", rpcErr.Message)
		s.writeErrorObj(w, req.ID, rpcErr)
		return
	}
	s.writeResult(w, req.ID, result)
}

type methodFunc func(params []json.RawMessage) (interface{}, *RPCError)

func (s *Server) methods() map[string]methodFunc {
	return map[string]methodFunc{
		"mining_createIncentive": s.handleCreateIncentive,
		"mining_setProtocolFee":  s.handleSetProtocolFee,
		"mining_stake":           s.handleStake,
		"mining_stakeBatch":      s.handleStakeBatch,
		"mining_unstake":         s.handleUnstake,
		"mining_restake":         s.handleRestake,
		"mining_slash":           s.handleSlash,
		"mining_claim":           s.handleClaim,
		"mining_claimRefund":     s.handleClaimRefund,
		"mining_getIncentive":    s.handleGetIncentive,
		"mining_getPosition":     s.handleGetPosition,
		"mining_pendingReward":   s.handlePendingReward,
		"mining_stakeOwner":      s.handleStakeOwner,
		"mining_minedTime":       s.handleMinedTime,
		"mining_feeInfo":         s.handleFeeInfo,
	}
}

func (s *Server) writeResult(w http.ResponseWriter, id, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	s.writeErrorObj(w, id, &RPCError{Code: code, Message: message})
}

func (s *Server) writeErrorObj(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}

// engineError maps engine failures onto RPC error codes so tooling can tell
// "send the correct bond" apart from "this program does not exist".
func engineError(err error) *RPCError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mining.ErrUnauthorized):
		return &RPCError{Code: codeUnauthorized, Message: err.Error()}
	case errors.Is(err, mining.ErrIncentiveNotFound),
		errors.Is(err, mining.ErrIncentiveExists),
		errors.Is(err, mining.ErrInvalidWindow),
		errors.Is(err, mining.ErrZeroRewardRate),
		errors.Is(err, mining.ErrInvalidReward),
		errors.Is(err, mining.ErrFeeRecipientUnset),
		errors.Is(err, mining.ErrFeeRateTooHigh),
		errors.Is(err, mining.ErrWrongBond),
		errors.Is(err, mining.ErrInvalidRecipient),
		errors.Is(err, mining.ErrInsufficientFunds),
		errors.Is(err, mining.ErrAlreadyStaked),
		errors.Is(err, mining.ErrEmptyBatch),
		errors.Is(err, mining.ErrNothingStaked),
		errors.Is(err, mining.ErrNotStaker),
		errors.Is(err, mining.ErrNotOwner),
		errors.Is(err, mining.ErrNotStale),
		errors.Is(err, mining.ErrBondTooSmall),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrTokenNotFound),
		errors.Is(err, nft.ErrTokenNotFound),
		errors.Is(err, nft.ErrCollectionNotFound):
		return &RPCError{Code: codePrecondition, Message: err.Error()}
	default:
		return &RPCError{Code: codeServerError, Message: err.Error()}
	}
}
