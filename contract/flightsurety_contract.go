package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
	"github.com/maxmedina05/flight-surety-udacity-project/surety"
)

var logger = flogging.MustGetLogger("flightsurety.contract")

// Chaincode event names.
const (
	eventFlightStatusRequested = "FlightStatusRequested"
	eventFlightStatusInfo      = "FlightStatusInfo"
	eventOracleReport          = "OracleReport"
)

// FlightSuretySmartContract hosts airline governance, oracle consensus and
// flight insurance on a Fabric ledger.
// @contract:FlightSuretySmartContract
type FlightSuretySmartContract struct {
	contractapi.Contract

	// indexes replaces the transaction-seeded index source. Tests only.
	indexes surety.IndexSource
}

// services is the per-transaction wiring of the engine over the world state.
type services struct {
	store      *ledgerStore
	engine     *surety.Engine
	insurance  *surety.Insurance
	credits    *surety.Credits
	settlement *eventSettlement
}

// Instantiate is called during chaincode instantiation.
func (s *FlightSuretySmartContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Infof("FlightSuretySmartContract Instantiated/Upgraded by '%s'", mustGetCallerID(ctx))
}

// InitLedger stores the optional JSON configuration and bootstraps the ledger
// with the caller as owner and first airline.
func (s *FlightSuretySmartContract) InitLedger(ctx contractapi.TransactionContextInterface, configJSON string) error {
	owner, err := getCallerID(ctx)
	if err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	cfg, err := surety.ParseConfig([]byte(configJSON))
	if err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	svc, err := s.newServicesWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	if err := svc.engine.Bootstrap(owner); err != nil {
		return err
	}
	if err := surety.SaveConfig(svc.store, cfg); err != nil {
		return fmt.Errorf("InitLedger: failed to save config: %w", err)
	}
	logger.Infof("Chaincode Call: InitLedger by '%s'", owner)
	return nil
}

// SetOperatingStatus pauses or resumes the contract. Owner only.
func (s *FlightSuretySmartContract) SetOperatingStatus(ctx contractapi.TransactionContextInterface, operational bool) error {
	caller, err := getCallerID(ctx)
	if err != nil {
		return fmt.Errorf("SetOperatingStatus: %w", err)
	}
	svc, err := s.newServices(ctx)
	if err != nil {
		return fmt.Errorf("SetOperatingStatus: %w", err)
	}
	return svc.engine.SetOperatingStatus(caller, operational)
}

func (s *FlightSuretySmartContract) IsOperational(ctx contractapi.TransactionContextInterface) (bool, error) {
	svc, err := s.newServices(ctx)
	if err != nil {
		return false, fmt.Errorf("IsOperational: %w", err)
	}
	return svc.engine.IsOperational()
}

func (s *FlightSuretySmartContract) newServices(ctx contractapi.TransactionContextInterface) (*services, error) {
	cfg, err := surety.LoadConfig(newLedgerStore(ctx.GetStub()))
	if err != nil {
		return nil, err
	}
	return s.newServicesWithConfig(ctx, cfg)
}

func (s *FlightSuretySmartContract) newServicesWithConfig(ctx contractapi.TransactionContextInterface, cfg surety.Config) (*services, error) {
	stub := ctx.GetStub()
	txTime, err := getCurrentTxTimestamp(stub)
	if err != nil {
		return nil, err
	}
	clock := func() time.Time { return txTime }

	indexes := s.indexes
	if indexes == nil {
		indexes = surety.NewHashIndexSource(txEntropy(stub, txTime))
	}

	store := newLedgerStore(stub)
	credits := surety.NewCredits(store, clock)
	insurance, err := surety.NewInsurance(store, cfg, credits, clock)
	if err != nil {
		return nil, err
	}
	settlement := &eventSettlement{stub: stub, next: insurance}
	engine, err := surety.NewEngine(store, cfg,
		surety.WithIndexSource(indexes),
		surety.WithNotifier(stubNotifier{stub: stub}),
		surety.WithSettlement(settlement),
		surety.WithClock(clock),
	)
	if err != nil {
		return nil, err
	}
	return &services{store: store, engine: engine, insurance: insurance, credits: credits, settlement: settlement}, nil
}

func getCurrentTxTimestamp(stub shim.ChaincodeStubInterface) (time.Time, error) {
	ts, err := stub.GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// txEntropy seeds index draws with the transaction ID and timestamp, which
// every endorser sees identically.
func txEntropy(stub shim.ChaincodeStubInterface, txTime time.Time) surety.EntropySource {
	return surety.StaticEntropy([]byte(stub.GetTxID() + "/" + strconv.FormatInt(txTime.UnixNano(), 10)))
}

// stubNotifier publishes status requests as chaincode events.
type stubNotifier struct {
	stub shim.ChaincodeStubInterface
}

func (n stubNotifier) FlightStatusRequested(ev model.FlightStatusRequested) error {
	return emitEvent(n.stub, eventFlightStatusRequested, ev)
}

// eventSettlement runs the insurance settlement and announces the final status.
type eventSettlement struct {
	stub  shim.ChaincodeStubInterface
	next  surety.Settlement
	fired bool
}

func (e *eventSettlement) OnFlightStatusFinalized(airline, flight string, timestamp int64, status model.StatusCode) {
	e.fired = true
	e.next.OnFlightStatusFinalized(airline, flight, timestamp, status)
	ev := model.FlightStatusFinalized{Airline: airline, Flight: flight, Timestamp: timestamp, Status: status}
	if err := emitEvent(e.stub, eventFlightStatusInfo, ev); err != nil {
		logger.Warningf("Failed to emit %s for %s/%s@%d: %v", eventFlightStatusInfo, airline, flight, timestamp, err)
	}
}

// emitEvent sets the transaction's chaincode event. Fabric keeps one event per
// transaction; the last call wins.
func emitEvent(stub shim.ChaincodeStubInterface, name string, payload interface{}) error {
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload for '%s': %w", name, err)
	}
	if err := stub.SetEvent(name, eventBytes); err != nil {
		return fmt.Errorf("failed to set event '%s': %w", name, err)
	}
	return nil
}
