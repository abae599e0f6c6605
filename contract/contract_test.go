package contract

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
	"github.com/maxmedina05/flight-surety-udacity-project/surety"
)

const (
	ownerID   = "x509::CN=owner::CN=ca.org1"
	insureeID = "x509::CN=passenger::CN=ca.org1"
	flightNo  = "ND1309"
	departure = int64(1_700_000_000)

	tenUnits = "10000000000000000000"
	oneUnit  = "1000000000000000000"
)

func airlineID(n int) string { return fmt.Sprintf("x509::CN=airline%d::CN=ca.org1", n) }
func oracleID(n int) string  { return fmt.Sprintf("x509::CN=oracle%d::CN=ca.org1", n) }

type fakeIdentity struct{ id string }

func (f fakeIdentity) GetID() (string, error)                        { return f.id, nil }
func (f fakeIdentity) GetMSPID() (string, error)                     { return "Org1MSP", nil }
func (f fakeIdentity) GetAttributeValue(string) (string, bool, error) { return "", false, nil }
func (f fakeIdentity) AssertAttributeValue(string, string) error     { return nil }
func (f fakeIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

type fixedIndex uint8

func (f fixedIndex) Draw(string, uint8) (uint8, error) { return uint8(f), nil }

type event struct {
	name    string
	payload []byte
}

// harness runs contract calls as mock Fabric transactions.
type harness struct {
	t    *testing.T
	stub *shimtest.MockStub
	cc   *FlightSuretySmartContract
	txN  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		t:    t,
		stub: shimtest.NewMockStub("flightsurety", nil),
		cc:   &FlightSuretySmartContract{indexes: fixedIndex(7)},
	}
}

// as runs fn in a new transaction signed by caller and returns the events it
// emitted.
func (h *harness) as(caller string, fn func(ctx contractapi.TransactionContextInterface) error) ([]event, error) {
	h.txN++
	txID := fmt.Sprintf("tx-%d", h.txN)
	h.stub.MockTransactionStart(txID)
	defer h.stub.MockTransactionEnd(txID)

	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(h.stub)
	ctx.SetClientIdentity(fakeIdentity{id: caller})
	err := fn(ctx)

	var events []event
	for {
		select {
		case ev := <-h.stub.ChaincodeEventsChannel:
			events = append(events, event{name: ev.EventName, payload: ev.Payload})
		default:
			return events, err
		}
	}
}

func (h *harness) mustAs(caller string, fn func(ctx contractapi.TransactionContextInterface) error) []event {
	h.t.Helper()
	events, err := h.as(caller, fn)
	require.NoError(h.t, err)
	return events
}

func (h *harness) initLedger(configJSON string) {
	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.InitLedger(ctx, configJSON)
	})
}

func (h *harness) fund(id string) {
	h.mustAs(id, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.Fund(ctx, tenUnits)
	})
}

func (h *harness) registerAirline(sponsor, candidate string) *model.Admission {
	var adm *model.Admission
	h.mustAs(sponsor, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		adm, err = h.cc.RegisterAirline(ctx, candidate)
		return err
	})
	return adm
}

func (h *harness) submit(oracle string, status int) (*model.OracleStatusRequest, []event, error) {
	var req *model.OracleStatusRequest
	events, err := h.as(oracle, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		req, err = h.cc.SubmitOracleResponse(ctx, 7, ownerID, flightNo, departure, status)
		return err
	})
	return req, events, err
}

func TestChaincodeMetadata(t *testing.T) {
	_, err := contractapi.NewChaincode(&FlightSuretySmartContract{})
	require.NoError(t, err)
}

func TestInitLedger(t *testing.T) {
	h := newHarness(t)
	h.initLedger(`{"consensusThreshold":3}`)

	var info *model.LedgerInfo
	h.mustAs(airlineID(2), func(ctx contractapi.TransactionContextInterface) error {
		var err error
		info, err = h.cc.GetLedgerInfo(ctx)
		return err
	})
	assert.Equal(t, ownerID, info.Owner)
	assert.True(t, info.Operational)
	assert.Equal(t, 1, info.AirlineCount)

	_, err := h.as(airlineID(2), func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.InitLedger(ctx, "")
	})
	assert.ErrorIs(t, err, surety.ErrAlreadyBootstrapped)
}

func TestInitLedgerRejectsBadConfig(t *testing.T) {
	h := newHarness(t)
	_, err := h.as(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.InitLedger(ctx, `{"indexRange":1}`)
	})
	assert.ErrorIs(t, err, surety.ErrInvalidArgument)
}

func TestAirlineGovernance(t *testing.T) {
	h := newHarness(t)
	h.initLedger("")
	h.fund(ownerID)

	for n := 2; n <= 4; n++ {
		adm := h.registerAirline(ownerID, airlineID(n))
		assert.Equal(t, model.AdmissionAdmitted, adm.Status)
		h.fund(airlineID(n))
	}

	adm := h.registerAirline(ownerID, airlineID(5))
	assert.Equal(t, model.AdmissionPending, adm.Status)
	assert.Equal(t, 2, adm.Required)

	var pending *model.AirlineRegistrationRequest
	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		pending, err = h.cc.GetPendingRegistration(ctx, airlineID(5))
		return err
	})
	assert.Equal(t, []string{ownerID}, pending.Votes)

	adm = h.registerAirline(airlineID(2), airlineID(5))
	assert.Equal(t, model.AdmissionAdmitted, adm.Status)

	var isAirline bool
	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		isAirline, err = h.cc.IsAirline(ctx, airlineID(5))
		return err
	})
	assert.True(t, isAirline)

	_, err := h.as(airlineID(5), func(ctx contractapi.TransactionContextInterface) error {
		_, err := h.cc.RegisterAirline(ctx, airlineID(6))
		return err
	})
	assert.ErrorIs(t, err, surety.ErrNotFunded)

	_, err = h.as(airlineID(2), func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.UnregisterAirline(ctx, airlineID(3))
	})
	assert.ErrorIs(t, err, surety.ErrNotOwner)

	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.UnregisterAirline(ctx, airlineID(3))
	})
	var airlines []model.Participant
	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		airlines, err = h.cc.GetAllAirlines(ctx)
		return err
	})
	assert.Len(t, airlines, 4)
}

func TestFundRejectsBadAmounts(t *testing.T) {
	h := newHarness(t)
	h.initLedger("")

	for _, amount := range []string{"", "ten", "-5", "9999999999999999999"} {
		_, err := h.as(ownerID, func(ctx contractapi.TransactionContextInterface) error {
			return h.cc.Fund(ctx, amount)
		})
		assert.Error(t, err, "amount %q", amount)
	}
}

func TestOracleConsensusAndPayout(t *testing.T) {
	h := newHarness(t)
	h.initLedger("")
	h.fund(ownerID)

	for n := 1; n <= 4; n++ {
		var indexes []int
		h.mustAs(oracleID(n), func(ctx contractapi.TransactionContextInterface) error {
			var err error
			indexes, err = h.cc.RegisterOracle(ctx, oneUnit)
			return err
		})
		assert.Equal(t, []int{7, 7, 7}, indexes)
	}
	_, err := h.as(oracleID(1), func(ctx contractapi.TransactionContextInterface) error {
		_, err := h.cc.RegisterOracle(ctx, oneUnit)
		return err
	})
	assert.ErrorIs(t, err, surety.ErrAlreadyRegistered)

	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		_, err := h.cc.RegisterFlight(ctx, flightNo, departure)
		return err
	})
	h.mustAs(insureeID, func(ctx contractapi.TransactionContextInterface) error {
		_, err := h.cc.Buy(ctx, ownerID, flightNo, departure, oneUnit)
		return err
	})

	events := h.mustAs(insureeID, func(ctx contractapi.TransactionContextInterface) error {
		req, err := h.cc.FetchFlightStatus(ctx, ownerID, flightNo, departure)
		if err == nil {
			assert.Equal(t, uint8(7), req.Index)
		}
		return err
	})
	require.Len(t, events, 1)
	assert.Equal(t, eventFlightStatusRequested, events[0].name)
	var requested model.FlightStatusRequested
	require.NoError(t, json.Unmarshal(events[0].payload, &requested))
	assert.Equal(t, model.FlightStatusRequested{Airline: ownerID, Flight: flightNo, Timestamp: departure, Index: 7}, requested)

	_, _, err = h.submit(insureeID, 20)
	assert.ErrorIs(t, err, surety.ErrNotRegistered)
	_, _, err = h.submit(oracleID(1), 25)
	assert.ErrorIs(t, err, surety.ErrInvalidStatus)

	for n := 1; n <= 2; n++ {
		req, events, err := h.submit(oracleID(n), 20)
		require.NoError(t, err)
		assert.True(t, req.IsOpen)
		require.Len(t, events, 1)
		assert.Equal(t, eventOracleReport, events[0].name)
	}
	req, events, err := h.submit(oracleID(3), 20)
	require.NoError(t, err)
	assert.True(t, req.Finalized)
	require.Len(t, events, 1)
	assert.Equal(t, eventFlightStatusInfo, events[0].name)

	req, _, err = h.submit(oracleID(4), 10)
	require.NoError(t, err, "late responses are accepted")
	assert.Equal(t, model.StatusLateAirline, req.FinalStatus)

	var credit string
	h.mustAs(insureeID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		credit, err = h.cc.GetCredit(ctx, insureeID)
		return err
	})
	assert.Equal(t, "1500000000000000000", credit)

	var policy *model.InsurancePolicy
	h.mustAs(insureeID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		policy, err = h.cc.GetPolicy(ctx, insureeID, ownerID, flightNo, departure)
		return err
	})
	assert.Equal(t, model.PolicyCredited, policy.Status)

	var paid string
	h.mustAs(insureeID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		paid, err = h.cc.Withdraw(ctx)
		return err
	})
	assert.Equal(t, "1500000000000000000", paid)
	_, err = h.as(insureeID, func(ctx contractapi.TransactionContextInterface) error {
		_, err := h.cc.Withdraw(ctx)
		return err
	})
	assert.ErrorIs(t, err, surety.ErrInsufficientFunds)
}

func TestPauseBlocksMutations(t *testing.T) {
	h := newHarness(t)
	h.initLedger("")

	_, err := h.as(airlineID(2), func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.SetOperatingStatus(ctx, false)
	})
	assert.ErrorIs(t, err, surety.ErrNotOwner)

	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.SetOperatingStatus(ctx, false)
	})
	_, err = h.as(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		return h.cc.Fund(ctx, tenUnits)
	})
	assert.ErrorIs(t, err, surety.ErrNotOperational)

	var operational bool
	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		operational, err = h.cc.IsOperational(ctx)
		return err
	})
	assert.False(t, operational)
}

func TestLedgerStoreOverlay(t *testing.T) {
	h := newHarness(t)
	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		store := newLedgerStore(ctx.GetStub())
		require.NoError(t, store.PutState("Thing", []string{"a"}, []byte("1")))
		require.NoError(t, store.PutState("Thing", []string{"b"}, []byte("2")))
		return nil
	})

	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		store := newLedgerStore(ctx.GetStub())
		raw, err := store.GetState("Thing", []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), raw)

		require.NoError(t, store.DelState("Thing", []string{"a"}))
		raw, err = store.GetState("Thing", []string{"a"})
		require.NoError(t, err)
		assert.Nil(t, raw)

		var values []string
		require.NoError(t, store.ScanState("Thing", nil, func(v []byte) error {
			values = append(values, string(v))
			return nil
		}))
		assert.Equal(t, []string{"2"}, values)

		raw, err = store.GetState("Thing", []string{"missing"})
		require.NoError(t, err)
		assert.Nil(t, raw)
		return nil
	})
}

func TestCallerIdentity(t *testing.T) {
	h := newHarness(t)
	h.mustAs(ownerID, func(ctx contractapi.TransactionContextInterface) error {
		id, err := h.cc.GetCallerID(ctx)
		assert.Equal(t, ownerID, id)
		return err
	})

	_, err := h.as("", func(ctx contractapi.TransactionContextInterface) error {
		_, err := h.cc.GetCallerID(ctx)
		return err
	})
	assert.Error(t, err)
	assert.Equal(t, "ERROR_GETTING_CALLER_ID", mustGetCallerID(&contractapi.TransactionContext{}))
}
