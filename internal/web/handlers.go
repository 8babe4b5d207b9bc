package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/agrostake/aic/internal/datafetcher"
	"github.com/agrostake/aic/internal/format"
	"github.com/agrostake/aic/internal/lifecycle"
	"github.com/agrostake/aic/internal/returns"
	"github.com/agrostake/aic/internal/types"
)

// handleGetPools returns the full pool feed with the source timestamp.
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools, fetchedAt, err := ws.deps.Pools.ListPools()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list pools")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "PoolFeedUnavailable", "Failed to retrieve pools")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pools":     pools,
		"timestamp": fetchedAt,
	})
}

// handleGetPool returns a single pool by id.
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id := types.PoolID(mux.Vars(r)["id"])

	pool, err := ws.deps.Pools.GetPool(id)
	if err != nil {
		if errors.Is(err, datafetcher.ErrPoolNotFound) {
			ws.writeErrorResponse(w, http.StatusNotFound, "PoolNotFound", "No pool with id "+string(id))
			return
		}
		ws.writeErrorResponse(w, http.StatusInternalServerError, "PoolFeedUnavailable", "Failed to retrieve pool")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, pool)
}

type actionRequest struct {
	Action string          `json:"action"`
	PoolID types.PoolID    `json:"poolId"`
	Amount decimal.Decimal `json:"amount"`
}

// handleAction is the mock action feed. It acknowledges stake/unstake/claim
// intents with a fabricated transaction hash and is explicitly
// non-authoritative; the real flow goes through /api/invest.
func (ws *WebServer) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "InvalidArgument", "Malformed action payload")
		return
	}

	switch req.Action {
	case "stake", "unstake", "claim":
	default:
		ws.writeErrorResponse(w, http.StatusBadRequest, "InvalidArgument", "Unknown action "+req.Action)
		return
	}

	if _, err := ws.deps.Pools.GetPool(req.PoolID); err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "PoolNotFound", "No pool with id "+string(req.PoolID))
		return
	}

	txHash := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Accepted " + req.Action + " for pool " + string(req.PoolID),
		"txHash":  txHash,
	})
}

// handleGetBalance returns the reconciled derived balance.
func (ws *WebServer) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.deps.Reconciler.Derived())
}

// handleGetReturns computes a projected yield for the given query.
func (ws *WebServer) handleGetReturns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	principal, err := decimal.NewFromString(query.Get("principal"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "InvalidArgument", "principal must be a decimal")
		return
	}
	apy, err := decimal.NewFromString(query.Get("apy"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "InvalidArgument", "apy must be a decimal")
		return
	}
	days, err := decimal.NewFromString(query.Get("days"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "InvalidArgument", "days must be a decimal")
		return
	}

	projected, err := returns.Calculate(principal, apy, days)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, "InvalidArgument", err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"principal":         principal,
		"apy_percent":       apy,
		"days_held":         days,
		"projected_returns": projected,
	})
}

type investRequest struct {
	SessionID string          `json:"session_id"`
	PoolID    types.PoolID    `json:"pool_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type sessionRef struct {
	SessionID string `json:"session_id"`
}

// handleInvestSubmit validates an investment intent and opens (or reuses) a
// lifecycle session for it.
func (ws *WebServer) handleInvestSubmit(w http.ResponseWriter, r *http.Request) {
	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "InvalidArgument", "Malformed invest payload")
		return
	}

	pool, err := ws.deps.Pools.GetPool(req.PoolID)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "PoolNotFound", "No pool with id "+string(req.PoolID))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	controller, err := ws.sessionController(sessionID, pool)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusConflict, "SessionPoolMismatch", err.Error())
		return
	}

	intent := types.InvestmentRequest{
		PoolID:                 pool.ID,
		Amount:                 req.Amount,
		FieldID:                pool.FieldID,
		CropType:               pool.CropType,
		ExpectedAPYBasisPoints: pool.APYBasisPoints,
	}

	if err := controller.Submit(intent); err != nil {
		ws.writeLifecycleError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"state":      controller.State(),
	})
}

// handleInvestConfirm dispatches the reviewed intent to the gateway.
func (ws *WebServer) handleInvestConfirm(w http.ResponseWriter, r *http.Request) {
	controller, ok := ws.decodeSession(w, r)
	if !ok {
		return
	}

	if err := controller.Confirm(context.Background()); err != nil {
		ws.writeLifecycleError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusAccepted, map[string]interface{}{
		"state": controller.State(),
	})
}

// handleInvestBack returns a reviewed flow to the input step.
func (ws *WebServer) handleInvestBack(w http.ResponseWriter, r *http.Request) {
	controller, ok := ws.decodeSession(w, r)
	if !ok {
		return
	}

	if err := controller.Back(); err != nil {
		ws.writeLifecycleError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"state": controller.State(),
	})
}

// handleInvestReset closes the flow and destroys its lifecycle state.
func (ws *WebServer) handleInvestReset(w http.ResponseWriter, r *http.Request) {
	controller, ok := ws.decodeSession(w, r)
	if !ok {
		return
	}

	controller.Reset()

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"state": controller.State(),
	})
}

// handleInvestStatus renders the session's lifecycle state and, once
// terminal, the formatted result.
func (ws *WebServer) handleInvestStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	controller := ws.lookupSession(sessionID)
	if controller == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "SessionNotFound", "No session with id "+sessionID)
		return
	}

	response := map[string]interface{}{
		"session_id": sessionID,
		"state":      controller.State(),
		"pool_id":    controller.Pool().ID,
	}

	if result := controller.Result(); result != nil {
		response["result"] = result
		if result.TransactionID != "" {
			response["transaction_display"] = format.Shorten(result.TransactionID)
			response["explorer_url"] = format.ExplorerURL(result.TransactionID, ws.deps.Network)
		}
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// decodeSession parses a session reference body and resolves its controller.
func (ws *WebServer) decodeSession(w http.ResponseWriter, r *http.Request) (*lifecycle.Controller, bool) {
	var ref sessionRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil || ref.SessionID == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "InvalidArgument", "session_id is required")
		return nil, false
	}

	controller := ws.lookupSession(ref.SessionID)
	if controller == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "SessionNotFound", "No session with id "+ref.SessionID)
		return nil, false
	}
	return controller, true
}

func (ws *WebServer) lookupSession(sessionID string) *lifecycle.Controller {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.sessions[sessionID]
}

// sessionController returns the session's controller, creating one bound to
// the pool on first use. One session drives one pool's flow; switching pools
// mid-flow requires the session to be back at input, where the controller is
// simply rebound.
func (ws *WebServer) sessionController(sessionID string, pool types.Pool) (*lifecycle.Controller, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if existing, ok := ws.sessions[sessionID]; ok {
		if existing.Pool().ID == pool.ID {
			return existing, nil
		}
		if existing.State() != types.StateInput {
			return nil, errors.New("session " + sessionID + " is mid-flow on pool " + string(existing.Pool().ID))
		}
	}

	controller, err := lifecycle.New(lifecycle.Config{
		Pool:               pool,
		Gateway:            ws.deps.Gateway,
		Builder:            ws.deps.Builder,
		Scheduler:          ws.deps.Scheduler,
		SuccessNotifyDelay: ws.deps.SuccessNotifyDelay,
		ProcessingTimeout:  ws.deps.ProcessingTimeout,
	})
	if err != nil {
		return nil, err
	}

	// Every success refreshes the derived balance so the debit shows up
	// without waiting for the next poll tick.
	controller.OnSuccess(func(types.InvestmentResult) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if ws.deps.Poller != nil {
			ws.deps.Poller.RefreshNow(ctx)
		}
		_ = ws.deps.Reconciler.RefreshFromGateway(ctx, ws.deps.Gateway)
	})

	ws.sessions[sessionID] = controller
	return controller, nil
}

// writeLifecycleError maps lifecycle errors onto HTTP statuses with their
// taxonomy code, keeping the message's bound/context text intact.
func (ws *WebServer) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrWalletNotConnected):
		ws.writeErrorResponse(w, http.StatusConflict, "WalletNotConnected", err.Error())
	case errors.Is(err, lifecycle.ErrAmountOutOfRange):
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, "AmountOutOfRange", err.Error())
	case errors.Is(err, lifecycle.ErrPoolInactive):
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, "PoolInactive", err.Error())
	case errors.Is(err, lifecycle.ErrOperationInProgress):
		ws.writeErrorResponse(w, http.StatusConflict, "OperationInProgress", err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		ws.writeErrorResponse(w, http.StatusConflict, "InvalidTransition", err.Error())
	default:
		webLogger.Error().Err(err).Msg("Unexpected lifecycle error")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Internal", err.Error())
	}
}
