package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// RegisterFlight offers insurance on one of the caller's flights. The caller
// must be a funded airline.
func (s *FlightSuretySmartContract) RegisterFlight(ctx contractapi.TransactionContextInterface, flight string, timestamp int64) (*model.Flight, error) {
	airline, err := getCallerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("RegisterFlight: %w", err)
	}
	logger.Infof("Chaincode Call: RegisterFlight %s@%d by '%s'", flight, timestamp, airline)
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("RegisterFlight: %w", err)
	}
	return svc.insurance.RegisterFlight(airline, flight, timestamp)
}

func (s *FlightSuretySmartContract) GetFlight(ctx contractapi.TransactionContextInterface, airline, flight string, timestamp int64) (*model.Flight, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetFlight: %w", err)
	}
	return svc.insurance.Flight(airline, flight, timestamp)
}

// Buy insures the caller on a registered flight. premium is a decimal in
// base units.
func (s *FlightSuretySmartContract) Buy(ctx contractapi.TransactionContextInterface, airline, flight string, timestamp int64, premium string) (*model.InsurancePolicy, error) {
	insuree, err := getCallerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}
	value, err := parseAmountArg(premium, "premium")
	if err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}
	logger.Infof("Chaincode Call: Buy %s/%s@%d by '%s'", airline, flight, timestamp, insuree)
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}
	return svc.insurance.Buy(insuree, airline, flight, timestamp, value)
}

func (s *FlightSuretySmartContract) GetPolicy(ctx contractapi.TransactionContextInterface, insuree, airline, flight string, timestamp int64) (*model.InsurancePolicy, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetPolicy: %w", err)
	}
	return svc.insurance.Policy(insuree, airline, flight, timestamp)
}

// GetFlightPolicies lists every policy sold on a flight.
func (s *FlightSuretySmartContract) GetFlightPolicies(ctx contractapi.TransactionContextInterface, airline, flight string, timestamp int64) ([]model.InsurancePolicy, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetFlightPolicies: %w", err)
	}
	return svc.insurance.Policies(airline, flight, timestamp)
}

// GetCredit returns holder's withdrawable credit in base units.
func (s *FlightSuretySmartContract) GetCredit(ctx contractapi.TransactionContextInterface, holder string) (string, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return "", fmt.Errorf("GetCredit: %w", err)
	}
	balance, err := svc.credits.Balance(holder)
	if err != nil {
		return "", fmt.Errorf("GetCredit: %w", err)
	}
	return balance.Dec(), nil
}

// Withdraw zeroes the caller's credit and returns the amount released.
func (s *FlightSuretySmartContract) Withdraw(ctx contractapi.TransactionContextInterface) (string, error) {
	caller, err := getCallerID(ctx)
	if err != nil {
		return "", fmt.Errorf("Withdraw: %w", err)
	}
	svc, err := s.newServices(ctx)
	if err != nil {
		return "", fmt.Errorf("Withdraw: %w", err)
	}
	amount, err := svc.credits.Withdraw(caller)
	if err != nil {
		return "", err
	}
	logger.Infof("Chaincode Call: Withdraw of %s by '%s'", amount.Dec(), caller)
	return amount.Dec(), nil
}
