package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// RegisterOracle registers the caller as an oracle and returns its three
// matching indexes. fee is a decimal in base units.
func (s *FlightSuretySmartContract) RegisterOracle(ctx contractapi.TransactionContextInterface, fee string) ([]int, error) {
	caller, err := getCallerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("RegisterOracle: %w", err)
	}
	value, err := parseAmountArg(fee, "fee")
	if err != nil {
		return nil, fmt.Errorf("RegisterOracle: %w", err)
	}
	logger.Infof("Chaincode Call: RegisterOracle by '%s'", caller)
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("RegisterOracle: %w", err)
	}
	indexes, err := svc.engine.RegisterOracle(caller, value)
	if err != nil {
		return nil, err
	}
	return indexesToInts(indexes), nil
}

// GetMyIndexes returns the caller's oracle indexes.
func (s *FlightSuretySmartContract) GetMyIndexes(ctx contractapi.TransactionContextInterface) ([]int, error) {
	caller, err := getCallerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetMyIndexes: %w", err)
	}
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetMyIndexes: %w", err)
	}
	indexes, err := svc.engine.GetMyIndexes(caller)
	if err != nil {
		return nil, fmt.Errorf("GetMyIndexes: %w", err)
	}
	return indexesToInts(indexes), nil
}

// FetchFlightStatus asks the oracles for the status of a flight. The request
// is announced with a FlightStatusRequested event.
func (s *FlightSuretySmartContract) FetchFlightStatus(ctx contractapi.TransactionContextInterface, airline, flight string, timestamp int64) (*model.OracleStatusRequest, error) {
	caller, err := getCallerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFlightStatus: %w", err)
	}
	logger.Infof("Chaincode Call: FetchFlightStatus %s/%s@%d by '%s'", airline, flight, timestamp, caller)
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFlightStatus: %w", err)
	}
	return svc.engine.RequestFlightStatus(caller, airline, flight, timestamp)
}

// SubmitOracleResponse records the caller's report for an open request. The
// transaction emits FlightStatusInfo when it finalizes the request and
// OracleReport otherwise.
func (s *FlightSuretySmartContract) SubmitOracleResponse(ctx contractapi.TransactionContextInterface, index int, airline, flight string, timestamp int64, statusCode int) (*model.OracleStatusRequest, error) {
	caller, err := getCallerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	idx, err := indexArg(index)
	if err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	status, err := statusArg(statusCode)
	if err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("SubmitOracleResponse: %w", err)
	}
	req, err := svc.engine.SubmitOracleResponse(caller, idx, airline, flight, timestamp, status)
	if err != nil {
		return nil, err
	}
	if !svc.settlement.fired {
		report := model.FlightStatusFinalized{Airline: airline, Flight: flight, Timestamp: timestamp, Status: status}
		if err := emitEvent(ctx.GetStub(), eventOracleReport, report); err != nil {
			logger.Warningf("SubmitOracleResponse: %v", err)
		}
	}
	return req, nil
}

// GetFlightStatusRequest returns the status request with its responses.
func (s *FlightSuretySmartContract) GetFlightStatusRequest(ctx contractapi.TransactionContextInterface, airline, flight string, timestamp int64) (*model.OracleStatusRequest, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetFlightStatusRequest: %w", err)
	}
	return svc.engine.StatusRequest(airline, flight, timestamp)
}

// GetAllOracles lists the registered oracles.
func (s *FlightSuretySmartContract) GetAllOracles(ctx contractapi.TransactionContextInterface) ([]model.Participant, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAllOracles: %w", err)
	}
	return svc.engine.Oracles()
}
