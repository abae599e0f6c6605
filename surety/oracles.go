package surety

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// RegisterOracle registers participant as an oracle and assigns its three
// indexes. An oracle registers once; its indexes never change.
func (e *Engine) RegisterOracle(participant string, fee *uint256.Int) ([3]uint8, error) {
	var none [3]uint8
	if err := validateAttribute(participant, "participant"); err != nil {
		return none, fmt.Errorf("RegisterOracle: %w", err)
	}
	if fee == nil {
		return none, fmt.Errorf("RegisterOracle: %w: fee is required", ErrInvalidArgument)
	}
	if err := e.requireOperational(); err != nil {
		return none, fmt.Errorf("RegisterOracle: %w", err)
	}
	if fee.Lt(e.cfg.OracleFee) {
		return none, fmt.Errorf("RegisterOracle: fee %s is below %s: %w", fee.Dec(), e.cfg.OracleFee.Dec(), ErrInsufficientFee)
	}

	p, err := e.updateParticipant(participant, func(p *model.Participant) error {
		if p.IsOracle {
			return ErrAlreadyRegistered
		}
		var order int
		if err := e.updateLedgerInfo(func(info *model.LedgerInfo) error {
			order = info.OracleCount
			info.OracleCount++
			return nil
		}); err != nil {
			return err
		}
		subject := "oracle/" + participant + "/" + strconv.Itoa(order)
		indexes, err := drawTriple(e.indexes, subject, e.cfg.IndexRange, e.cfg.DistinctIndexes)
		if err != nil {
			return err
		}
		p.IsOracle = true
		p.OracleIndexes = indexes
		return nil
	})
	if err != nil {
		return none, fmt.Errorf("RegisterOracle: participant '%s': %w", participant, err)
	}
	logger.Infof("Oracle '%s' registered with indexes %v", participant, p.OracleIndexes)
	return p.OracleIndexes, nil
}

// GetMyIndexes returns the indexes assigned to oracle.
func (e *Engine) GetMyIndexes(oracle string) ([3]uint8, error) {
	p, err := e.loadParticipant(oracle)
	if err != nil {
		return [3]uint8{}, err
	}
	if p == nil || !p.IsOracle {
		return [3]uint8{}, fmt.Errorf("oracle '%s': %w", oracle, ErrNotRegistered)
	}
	return p.OracleIndexes, nil
}

// Oracles lists every registered oracle in key order.
func (e *Engine) Oracles() ([]model.Participant, error) {
	oracles := []model.Participant{}
	err := scanRecords(e.store, participantObjectType, nil, func(p *model.Participant) error {
		if p.IsOracle {
			oracles = append(oracles, *p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list oracles: %w", err)
	}
	return oracles, nil
}

// RequestFlightStatus opens a status request tagged with a drawn matching
// index and notifies the oracles. Repeating the call for an open request
// re-sends the notification; a finalized request is returned unchanged.
func (e *Engine) RequestFlightStatus(caller, airline, flight string, timestamp int64) (*model.OracleStatusRequest, error) {
	if err := validateAttribute(caller, "caller"); err != nil {
		return nil, fmt.Errorf("RequestFlightStatus: %w", err)
	}
	if err := validateFlightKey(airline, flight, timestamp); err != nil {
		return nil, fmt.Errorf("RequestFlightStatus: %w", err)
	}
	if err := e.requireOperational(); err != nil {
		return nil, fmt.Errorf("RequestFlightStatus: %w", err)
	}
	isAirline, err := e.IsAirline(airline)
	if err != nil {
		return nil, fmt.Errorf("RequestFlightStatus: %w", err)
	}
	if !isAirline {
		return nil, fmt.Errorf("RequestFlightStatus: airline '%s': %w", airline, ErrNotAnAirline)
	}

	unlock := e.locks.Lock(requestLockKey(airline, flight, timestamp))
	defer unlock()

	req, err := e.loadStatusRequest(airline, flight, timestamp)
	if err != nil {
		return nil, fmt.Errorf("RequestFlightStatus: %w", err)
	}
	if req != nil {
		if !req.Finalized {
			e.emitRequested(req)
		}
		return req, nil
	}

	subject := "request/" + airline + "/" + flight + "/" + strconv.FormatInt(timestamp, 10)
	index, err := e.indexes.Draw(subject, e.cfg.IndexRange)
	if err != nil {
		return nil, fmt.Errorf("RequestFlightStatus: %w", err)
	}
	req = &model.OracleStatusRequest{
		ObjectType:  statusRequestObjectType,
		Airline:     airline,
		Flight:      flight,
		Timestamp:   timestamp,
		Index:       index,
		RequestedBy: caller,
		IsOpen:      true,
		Responses:   []model.ResponseBucket{},
		CreatedAt:   e.now(),
	}
	if err := putRecord(e.store, statusRequestObjectType, flightAttrs(airline, flight, timestamp), req); err != nil {
		return nil, fmt.Errorf("RequestFlightStatus: %w", err)
	}
	logger.Infof("Flight status requested for %s/%s@%d with index %d by '%s'", airline, flight, timestamp, index, caller)
	e.emitRequested(req)
	return req, nil
}

// StatusRequest returns the status request for the flight key.
func (e *Engine) StatusRequest(airline, flight string, timestamp int64) (*model.OracleStatusRequest, error) {
	req, err := e.loadStatusRequest(airline, flight, timestamp)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%s/%s@%d: %w", airline, flight, timestamp, ErrUnknownRequest)
	}
	return req, nil
}

func (e *Engine) loadStatusRequest(airline, flight string, timestamp int64) (*model.OracleStatusRequest, error) {
	return getRecord[model.OracleStatusRequest](e.store, statusRequestObjectType, flightAttrs(airline, flight, timestamp))
}

func (e *Engine) emitRequested(req *model.OracleStatusRequest) {
	ev := model.FlightStatusRequested{
		Airline:   req.Airline,
		Flight:    req.Flight,
		Timestamp: req.Timestamp,
		Index:     req.Index,
	}
	if err := e.notifier.FlightStatusRequested(ev); err != nil {
		logger.Warningf("Failed to notify oracles of request %s/%s@%d: %v", req.Airline, req.Flight, req.Timestamp, err)
	}
}
