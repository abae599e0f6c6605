package surety

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/hyperledger/fabric/common/flogging"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

var insuranceLogger = flogging.MustGetLogger("flightsurety.insurance")

// Accounting records value owed to insurees. Moving the value is outside the
// ledger logic.
type Accounting interface {
	Credit(holder string, amount *uint256.Int) error
}

// Insurance keeps flights and policies and settles them when the consensus
// engine finalizes a flight status. It implements Settlement.
type Insurance struct {
	store      Store
	cfg        Config
	accounting Accounting
	clock      func() time.Time
	locks      *keyedMutex
}

// NewInsurance returns the settlement gate. A nil clock means time.Now.
func NewInsurance(store Store, cfg Config, accounting Accounting, clock func() time.Time) (*Insurance, error) {
	if store == nil || accounting == nil {
		return nil, fmt.Errorf("%w: store and accounting are required", ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &Insurance{store: store, cfg: cfg, accounting: accounting, clock: clock, locks: newKeyedMutex()}, nil
}

// RegisterFlight lets a funded airline offer insurance on a flight.
func (in *Insurance) RegisterFlight(airline, flight string, timestamp int64) (*model.Flight, error) {
	if err := validateFlightKey(airline, flight, timestamp); err != nil {
		return nil, fmt.Errorf("RegisterFlight: %w", err)
	}
	if err := requireOperational(in.store); err != nil {
		return nil, fmt.Errorf("RegisterFlight: %w", err)
	}
	if err := requireFundedAirline(in.store, airline); err != nil {
		return nil, fmt.Errorf("RegisterFlight: airline '%s': %w", airline, err)
	}

	unlock := in.locks.Lock(flightLockKey(airline, flight, timestamp))
	defer unlock()
	existing, err := in.loadFlight(airline, flight, timestamp)
	if err != nil {
		return nil, fmt.Errorf("RegisterFlight: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("RegisterFlight: %s/%s@%d: %w", airline, flight, timestamp, ErrFlightExists)
	}
	f := &model.Flight{
		ObjectType:   flightObjectType,
		Airline:      airline,
		Code:         flight,
		Timestamp:    timestamp,
		Status:       model.StatusUnknown,
		RegisteredAt: in.clock().UTC(),
	}
	if err := putRecord(in.store, flightObjectType, flightAttrs(airline, flight, timestamp), f); err != nil {
		return nil, fmt.Errorf("RegisterFlight: %w", err)
	}
	insuranceLogger.Infof("Flight %s/%s@%d registered", airline, flight, timestamp)
	return f, nil
}

// Buy insures insuree on a registered, unsettled flight.
func (in *Insurance) Buy(insuree, airline, flight string, timestamp int64, premium *uint256.Int) (*model.InsurancePolicy, error) {
	if err := validateAttribute(insuree, "insuree"); err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}
	if err := validateFlightKey(airline, flight, timestamp); err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}
	if premium == nil || premium.IsZero() || premium.Gt(in.cfg.MaxPremium) {
		return nil, fmt.Errorf("Buy: premium must be positive and at most %s: %w", in.cfg.MaxPremium.Dec(), ErrInvalidPremium)
	}
	if err := requireOperational(in.store); err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}

	unlock := in.locks.Lock(flightLockKey(airline, flight, timestamp))
	defer unlock()
	f, err := in.loadFlight(airline, flight, timestamp)
	if err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("Buy: %s/%s@%d: %w", airline, flight, timestamp, ErrUnknownFlight)
	}
	if f.Settled {
		return nil, fmt.Errorf("Buy: %s/%s@%d: %w", airline, flight, timestamp, ErrFlightSettled)
	}
	attrs := policyAttrs(insuree, airline, flight, timestamp)
	existing, err := getRecord[model.InsurancePolicy](in.store, policyObjectType, attrs)
	if err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("Buy: insuree '%s': %w", insuree, ErrAlreadyInsured)
	}
	policy := &model.InsurancePolicy{
		ObjectType:  policyObjectType,
		Insuree:     insuree,
		Airline:     airline,
		Flight:      flight,
		Timestamp:   timestamp,
		Premium:     premium.Dec(),
		Payout:      "0",
		Status:      model.PolicyActive,
		PurchasedAt: in.clock().UTC(),
	}
	if err := putRecord(in.store, policyObjectType, attrs, policy); err != nil {
		return nil, fmt.Errorf("Buy: %w", err)
	}
	insuranceLogger.Infof("Insuree '%s' bought cover of %s on %s/%s@%d", insuree, policy.Premium, airline, flight, timestamp)
	return policy, nil
}

// OnFlightStatusFinalized settles the flight's policies. A late-airline status
// credits every active policy; any other status expires them. Failures are
// logged and leave the affected policy active.
func (in *Insurance) OnFlightStatusFinalized(airline, flight string, timestamp int64, status model.StatusCode) {
	unlock := in.locks.Lock(flightLockKey(airline, flight, timestamp))
	defer unlock()

	f, err := in.loadFlight(airline, flight, timestamp)
	if err != nil {
		insuranceLogger.Errorf("Settlement of %s/%s@%d failed: %v", airline, flight, timestamp, err)
		return
	}
	if f == nil {
		insuranceLogger.Infof("Flight %s/%s@%d finalized as %s but is not registered for insurance", airline, flight, timestamp, status)
		return
	}
	if f.Settled {
		insuranceLogger.Warningf("Flight %s/%s@%d already settled as %s. Ignoring %s.", airline, flight, timestamp, f.Status, status)
		return
	}
	now := in.clock().UTC()
	f.Status = status
	f.Settled = true
	f.SettledAt = now
	if err := putRecord(in.store, flightObjectType, flightAttrs(airline, flight, timestamp), f); err != nil {
		insuranceLogger.Errorf("Settlement of %s/%s@%d failed: %v", airline, flight, timestamp, err)
		return
	}

	var policies []model.InsurancePolicy
	if err := scanRecords(in.store, policyObjectType, flightAttrs(airline, flight, timestamp), func(p *model.InsurancePolicy) error {
		policies = append(policies, *p)
		return nil
	}); err != nil {
		insuranceLogger.Errorf("Settlement of %s/%s@%d could not list policies: %v", airline, flight, timestamp, err)
		return
	}

	credited, expired := 0, 0
	for i := range policies {
		p := &policies[i]
		if p.Status != model.PolicyActive {
			continue
		}
		if status == model.StatusLateAirline {
			payout, err := in.payout(p.Premium)
			if err != nil {
				insuranceLogger.Errorf("Policy of '%s' on %s/%s@%d: %v", p.Insuree, airline, flight, timestamp, err)
				continue
			}
			if err := in.accounting.Credit(p.Insuree, payout); err != nil {
				insuranceLogger.Errorf("Failed to credit '%s' with %s: %v", p.Insuree, payout.Dec(), err)
				continue
			}
			p.Payout = payout.Dec()
			p.Status = model.PolicyCredited
			credited++
		} else {
			p.Status = model.PolicyExpired
			expired++
		}
		p.SettledAt = now
		if err := putRecord(in.store, policyObjectType, policyAttrs(p.Insuree, airline, flight, timestamp), p); err != nil {
			insuranceLogger.Errorf("Failed to save settled policy of '%s': %v", p.Insuree, err)
		}
	}
	insuranceLogger.Infof("Flight %s/%s@%d settled as %s: %d policies credited, %d expired", airline, flight, timestamp, status, credited, expired)
}

func (in *Insurance) payout(premium string) (*uint256.Int, error) {
	p, err := ParseAmount(premium)
	if err != nil {
		return nil, err
	}
	out, overflow := new(uint256.Int).MulOverflow(p, uint256.NewInt(in.cfg.PayoutPercent))
	if overflow {
		return nil, fmt.Errorf("%w: payout overflows", ErrInvalidArgument)
	}
	return out.Div(out, uint256.NewInt(100)), nil
}

// Flight returns the registered flight.
func (in *Insurance) Flight(airline, flight string, timestamp int64) (*model.Flight, error) {
	f, err := in.loadFlight(airline, flight, timestamp)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%s/%s@%d: %w", airline, flight, timestamp, ErrUnknownFlight)
	}
	return f, nil
}

// Policy returns insuree's policy on the flight.
func (in *Insurance) Policy(insuree, airline, flight string, timestamp int64) (*model.InsurancePolicy, error) {
	p, err := getRecord[model.InsurancePolicy](in.store, policyObjectType, policyAttrs(insuree, airline, flight, timestamp))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no policy for '%s' on %s/%s@%d: %w", insuree, airline, flight, timestamp, ErrNotRegistered)
	}
	return p, nil
}

// Policies lists every policy on the flight in insuree order.
func (in *Insurance) Policies(airline, flight string, timestamp int64) ([]model.InsurancePolicy, error) {
	policies := []model.InsurancePolicy{}
	err := scanRecords(in.store, policyObjectType, flightAttrs(airline, flight, timestamp), func(p *model.InsurancePolicy) error {
		policies = append(policies, *p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

func (in *Insurance) loadFlight(airline, flight string, timestamp int64) (*model.Flight, error) {
	return getRecord[model.Flight](in.store, flightObjectType, flightAttrs(airline, flight, timestamp))
}

func policyAttrs(insuree, airline, flight string, timestamp int64) []string {
	return append(flightAttrs(airline, flight, timestamp), insuree)
}
