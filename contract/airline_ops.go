package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// RegisterAirline sponsors candidate. The caller must be a funded airline.
// Below four airlines the candidate is admitted at once; afterwards the call
// is a vote and the result reports the tally.
func (s *FlightSuretySmartContract) RegisterAirline(ctx contractapi.TransactionContextInterface, candidate string) (*model.Admission, error) {
	sponsor, err := getCallerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("RegisterAirline: %w", err)
	}
	logger.Infof("Chaincode Call: RegisterAirline '%s' by '%s'", candidate, sponsor)
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("RegisterAirline: %w", err)
	}
	return svc.engine.RegisterAirline(sponsor, candidate)
}

// Fund records the caller's stake. amount is a decimal in base units.
func (s *FlightSuretySmartContract) Fund(ctx contractapi.TransactionContextInterface, amount string) error {
	caller, err := getCallerID(ctx)
	if err != nil {
		return fmt.Errorf("Fund: %w", err)
	}
	value, err := parseAmountArg(amount, "amount")
	if err != nil {
		return fmt.Errorf("Fund: %w", err)
	}
	svc, err := s.newServices(ctx)
	if err != nil {
		return fmt.Errorf("Fund: %w", err)
	}
	return svc.engine.Fund(caller, value)
}

// UnregisterAirline removes target's airline status. Owner only.
func (s *FlightSuretySmartContract) UnregisterAirline(ctx contractapi.TransactionContextInterface, target string) error {
	caller, err := getCallerID(ctx)
	if err != nil {
		return fmt.Errorf("UnregisterAirline: %w", err)
	}
	logger.Infof("Chaincode Call: UnregisterAirline '%s' by '%s'", target, caller)
	svc, err := s.newServices(ctx)
	if err != nil {
		return fmt.Errorf("UnregisterAirline: %w", err)
	}
	return svc.engine.UnregisterAirline(caller, target)
}

func (s *FlightSuretySmartContract) IsAirline(ctx contractapi.TransactionContextInterface, id string) (bool, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return false, fmt.Errorf("IsAirline: %w", err)
	}
	return svc.engine.IsAirline(id)
}

func (s *FlightSuretySmartContract) IsFunded(ctx contractapi.TransactionContextInterface, id string) (bool, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return false, fmt.Errorf("IsFunded: %w", err)
	}
	return svc.engine.IsFunded(id)
}

// GetParticipant returns the role attributes of id.
func (s *FlightSuretySmartContract) GetParticipant(ctx contractapi.TransactionContextInterface, id string) (*model.Participant, error) {
	logger.Debugf("Chaincode Call: GetParticipant '%s'", id)
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetParticipant: %w", err)
	}
	return svc.engine.Participant(id)
}

// GetAllAirlines lists the registered airlines.
func (s *FlightSuretySmartContract) GetAllAirlines(ctx contractapi.TransactionContextInterface) ([]model.Participant, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAllAirlines: %w", err)
	}
	return svc.engine.Airlines()
}

// GetPendingRegistration returns the open proposal for candidate.
func (s *FlightSuretySmartContract) GetPendingRegistration(ctx contractapi.TransactionContextInterface, candidate string) (*model.AirlineRegistrationRequest, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetPendingRegistration: %w", err)
	}
	return svc.engine.PendingRegistration(candidate)
}

// GetAllPendingRegistrations lists every open proposal.
func (s *FlightSuretySmartContract) GetAllPendingRegistrations(ctx contractapi.TransactionContextInterface) ([]model.AirlineRegistrationRequest, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAllPendingRegistrations: %w", err)
	}
	return svc.engine.PendingRegistrations()
}

// GetLedgerInfo returns the owner, operating status and counters.
func (s *FlightSuretySmartContract) GetLedgerInfo(ctx contractapi.TransactionContextInterface) (*model.LedgerInfo, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetLedgerInfo: %w", err)
	}
	return svc.engine.LedgerInfo()
}
