package surety

import (
	"fmt"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// SubmitOracleResponse records oracle's report for an open request. When the
// reported status reaches ConsensusThreshold the request is finalized and the
// settlement trigger fires. Responses after finalization are recorded but no
// longer influence the outcome.
func (e *Engine) SubmitOracleResponse(oracle string, index uint8, airline, flight string, timestamp int64, status model.StatusCode) (*model.OracleStatusRequest, error) {
	if err := validateAttribute(oracle, "oracle"); err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	if err := validateFlightKey(airline, flight, timestamp); err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("SubmitOracleResponse: status %d: %w", uint8(status), ErrInvalidStatus)
	}
	if err := e.requireOperational(); err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}

	unlock := e.locks.Lock(requestLockKey(airline, flight, timestamp))
	defer unlock()

	req, err := e.loadStatusRequest(airline, flight, timestamp)
	if err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %s/%s@%d: %w", airline, flight, timestamp, ErrUnknownRequest)
	}
	p, err := e.loadParticipant(oracle)
	if err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	if p == nil || !p.IsOracle {
		return nil, fmt.Errorf("SubmitOracleResponse: oracle '%s': %w", oracle, ErrNotRegistered)
	}
	if !p.HoldsIndex(index) || index != req.Index {
		return nil, fmt.Errorf("SubmitOracleResponse: oracle '%s' index %d, request index %d: %w", oracle, index, req.Index, ErrIndexMismatch)
	}
	if req.HasResponded(oracle) {
		return nil, fmt.Errorf("SubmitOracleResponse: oracle '%s': %w", oracle, ErrAlreadyResponded)
	}

	count := req.Record(status, oracle)
	finalized := false
	if req.IsOpen && count >= e.cfg.ConsensusThreshold {
		req.IsOpen = false
		req.Finalized = true
		req.FinalStatus = status
		req.FinalizedWith = count
		req.FinalizedAt = e.now()
		finalized = true
	}
	if err := putRecord(e.store, statusRequestObjectType, flightAttrs(airline, flight, timestamp), req); err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}

	if !finalized {
		logger.Debugf("Oracle '%s' reported %s for %s/%s@%d (%d/%d)", oracle, status, airline, flight, timestamp, count, e.cfg.ConsensusThreshold)
		return req, nil
	}
	logger.Infof("Flight %s/%s@%d finalized as %s with %d matching responses", airline, flight, timestamp, status, count)
	e.settlement.OnFlightStatusFinalized(airline, flight, timestamp, status)
	return req, nil
}
