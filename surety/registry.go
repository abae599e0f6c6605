package surety

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// --- Lifecycle ---

// Bootstrap records owner as the contract owner and first airline. The first
// airline starts unfunded. It can only run once per ledger.
func (e *Engine) Bootstrap(owner string) error {
	if err := validateAttribute(owner, "owner"); err != nil {
		return fmt.Errorf("Bootstrap: %w", err)
	}
	unlock := e.locks.Lock(ledgerInfoLockKey)
	info, err := e.loadLedgerInfo()
	if err != nil && !errors.Is(err, ErrNotBootstrapped) {
		unlock()
		return fmt.Errorf("Bootstrap: %w", err)
	}
	if info != nil {
		unlock()
		return fmt.Errorf("Bootstrap: owner is '%s': %w", info.Owner, ErrAlreadyBootstrapped)
	}
	now := e.now()
	info = &model.LedgerInfo{
		ObjectType:     ledgerInfoObjectType,
		Owner:          owner,
		Operational:    true,
		AirlineCount:   1,
		BootstrappedAt: now,
	}
	err = putRecord(e.store, ledgerInfoObjectType, nil, info)
	unlock()
	if err != nil {
		return fmt.Errorf("Bootstrap: %w", err)
	}

	if _, err := e.updateParticipant(owner, func(p *model.Participant) error {
		p.IsAirline = true
		return nil
	}); err != nil {
		return fmt.Errorf("Bootstrap: failed to register first airline '%s': %w", owner, err)
	}
	logger.Infof("Ledger bootstrapped. Owner '%s' registered as first airline.", owner)
	return nil
}

// Owner returns the identity that bootstrapped the ledger.
func (e *Engine) Owner() (string, error) {
	info, err := e.loadLedgerInfo()
	if err != nil {
		return "", err
	}
	return info.Owner, nil
}

// SetOperatingStatus pauses or resumes all mutating operations. Owner only.
func (e *Engine) SetOperatingStatus(caller string, operational bool) error {
	err := e.updateLedgerInfo(func(info *model.LedgerInfo) error {
		if caller != info.Owner {
			return ErrNotOwner
		}
		info.Operational = operational
		return nil
	})
	if err != nil {
		return fmt.Errorf("SetOperatingStatus: caller '%s': %w", caller, err)
	}
	logger.Infof("Operating status set to %t by '%s'", operational, caller)
	return nil
}

// LedgerInfo returns the ledger singleton.
func (e *Engine) LedgerInfo() (*model.LedgerInfo, error) {
	return e.loadLedgerInfo()
}

// IsOperational reports whether mutations are currently accepted.
func (e *Engine) IsOperational() (bool, error) {
	info, err := e.loadLedgerInfo()
	if err != nil {
		return false, err
	}
	return info.Operational, nil
}

// --- Airlines ---

// RegisterAirline admits candidate directly while fewer than
// DirectAdmissionLimit airlines exist, and otherwise records sponsor's vote.
func (e *Engine) RegisterAirline(sponsor, candidate string) (*model.Admission, error) {
	if err := validateAttribute(sponsor, "sponsor"); err != nil {
		return nil, fmt.Errorf("RegisterAirline: %w", err)
	}
	if err := validateAttribute(candidate, "candidate"); err != nil {
		return nil, fmt.Errorf("RegisterAirline: %w", err)
	}
	if err := e.requireOperational(); err != nil {
		return nil, fmt.Errorf("RegisterAirline: %w", err)
	}
	if err := e.requireFundedAirline(sponsor); err != nil {
		return nil, fmt.Errorf("RegisterAirline: sponsor '%s': %w", sponsor, err)
	}

	unlock := e.locks.Lock(registrationLockKey(candidate))
	defer unlock()

	existing, err := e.loadParticipant(candidate)
	if err != nil {
		return nil, fmt.Errorf("RegisterAirline: %w", err)
	}
	if existing != nil && existing.IsAirline {
		logger.Debugf("RegisterAirline: '%s' is already an airline. No action needed.", candidate)
		return &model.Admission{Candidate: candidate, Status: model.AdmissionAdmitted}, nil
	}

	limit := e.cfg.DirectAdmissionLimit
	admitted, before, err := e.admit(candidate, sponsor, func(airlineCount int) bool {
		return airlineCount < limit
	})
	if err != nil {
		return nil, fmt.Errorf("RegisterAirline: %w", err)
	}
	if admitted {
		logger.Infof("Airline '%s' admitted directly by '%s' (%d airlines before admission)", candidate, sponsor, before)
		return &model.Admission{Candidate: candidate, Status: model.AdmissionAdmitted, Counted: true}, nil
	}
	adm, err := e.vote(sponsor, candidate)
	if err != nil {
		return nil, fmt.Errorf("RegisterAirline: %w", err)
	}
	return adm, nil
}

// Fund marks an airline as funded once it deposits at least MinFunding.
// Amounts are not accumulated here.
func (e *Engine) Fund(participant string, amount *uint256.Int) error {
	if err := validateAttribute(participant, "participant"); err != nil {
		return fmt.Errorf("Fund: %w", err)
	}
	if amount == nil {
		return fmt.Errorf("Fund: %w: amount is required", ErrInvalidArgument)
	}
	if err := e.requireOperational(); err != nil {
		return fmt.Errorf("Fund: %w", err)
	}
	if amount.Lt(e.cfg.MinFunding) {
		return fmt.Errorf("Fund: amount %s is below the minimum %s: %w", amount.Dec(), e.cfg.MinFunding.Dec(), ErrInsufficientFunds)
	}
	_, err := e.updateParticipant(participant, func(p *model.Participant) error {
		if !p.IsAirline {
			return ErrNotAnAirline
		}
		p.IsFunded = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("Fund: participant '%s': %w", participant, err)
	}
	logger.Infof("Airline '%s' funded with %s", participant, amount.Dec())
	return nil
}

// UnregisterAirline removes target's airline status and every governance vote
// involving it. Owner only.
func (e *Engine) UnregisterAirline(caller, target string) error {
	if err := validateAttribute(target, "target"); err != nil {
		return fmt.Errorf("UnregisterAirline: %w", err)
	}
	if err := e.requireOperational(); err != nil {
		return fmt.Errorf("UnregisterAirline: %w", err)
	}
	owner, err := e.Owner()
	if err != nil {
		return fmt.Errorf("UnregisterAirline: %w", err)
	}
	if caller != owner {
		return fmt.Errorf("UnregisterAirline: caller '%s': %w", caller, ErrNotOwner)
	}

	// The count is released under the participant lock, before the participant
	// is written. A failed write gives the seat back.
	var count int
	released := false
	if _, err := e.updateParticipant(target, func(p *model.Participant) error {
		if !p.IsAirline {
			return ErrNotAnAirline
		}
		if err := e.updateLedgerInfo(func(info *model.LedgerInfo) error {
			info.AirlineCount--
			count = info.AirlineCount
			return nil
		}); err != nil {
			return err
		}
		released = true
		p.IsAirline = false
		return nil
	}); err != nil {
		if released {
			e.restoreSeat()
		}
		return fmt.Errorf("UnregisterAirline: target '%s': %w", target, err)
	}
	logger.Infof("Airline '%s' unregistered by owner. %d airlines remain.", target, count)

	if err := e.purgeVotes(target); err != nil {
		return fmt.Errorf("UnregisterAirline: %w", err)
	}
	return nil
}

// IsAirline reports whether id is a registered airline.
func (e *Engine) IsAirline(id string) (bool, error) {
	p, err := e.loadParticipant(id)
	if err != nil {
		return false, err
	}
	return p != nil && p.IsAirline, nil
}

// IsFunded reports whether id has funded.
func (e *Engine) IsFunded(id string) (bool, error) {
	p, err := e.loadParticipant(id)
	if err != nil {
		return false, err
	}
	return p != nil && p.IsFunded, nil
}

// Participant returns the stored attributes of id.
func (e *Engine) Participant(id string) (*model.Participant, error) {
	p, err := e.loadParticipant(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("participant '%s': %w", id, ErrNotRegistered)
	}
	return p, nil
}

// AirlineCount returns the number of registered airlines.
func (e *Engine) AirlineCount() (int, error) {
	info, err := e.loadLedgerInfo()
	if err != nil {
		return 0, err
	}
	return info.AirlineCount, nil
}

// Airlines lists the registered airlines in key order.
func (e *Engine) Airlines() ([]model.Participant, error) {
	airlines := []model.Participant{}
	err := scanRecords(e.store, participantObjectType, nil, func(p *model.Participant) error {
		if p.IsAirline {
			airlines = append(airlines, *p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list airlines: %w", err)
	}
	return airlines, nil
}

func (e *Engine) requireFundedAirline(id string) error {
	return requireFundedAirline(e.store, id)
}

func requireFundedAirline(store Store, id string) error {
	p, err := getRecord[model.Participant](store, participantObjectType, []string{id})
	if err != nil {
		return err
	}
	if p == nil || !p.IsAirline {
		return ErrNotAnAirline
	}
	if !p.IsFunded {
		return ErrNotFunded
	}
	return nil
}

// errNoSeat reports that the airline count did not allow an admission.
var errNoSeat = errors.New("no airline seat")

// admit promotes candidate to airline when allow accepts the airline count.
// allow and the increment run under the ledger info lock, nested in the
// candidate's participant lock, so concurrent admissions see each other's
// seats. It returns whether candidate was admitted and the count it saw.
// Callers hold the candidate's registration lock.
func (e *Engine) admit(candidate, sponsor string, allow func(airlineCount int) bool) (bool, int, error) {
	var seen int
	seated := false
	_, err := e.updateParticipant(candidate, func(p *model.Participant) error {
		if err := e.updateLedgerInfo(func(info *model.LedgerInfo) error {
			seen = info.AirlineCount
			if !allow(seen) {
				return errNoSeat
			}
			info.AirlineCount++
			return nil
		}); err != nil {
			return err
		}
		seated = true
		p.IsAirline = true
		p.SponsoredBy = sponsor
		return nil
	})
	switch {
	case errors.Is(err, errNoSeat):
		return false, seen, nil
	case err != nil:
		if seated {
			e.releaseSeat()
		}
		return false, seen, fmt.Errorf("failed to admit '%s': %w", candidate, err)
	}
	if err := deleteRecord(e.store, registrationObjectType, []string{candidate}); err != nil {
		return false, seen, err
	}
	return true, seen, nil
}

// releaseSeat and restoreSeat undo a count change whose participant write
// failed. In Fabric the failed transaction is discarded as a whole; the
// in-memory store needs the explicit undo.
func (e *Engine) releaseSeat() {
	e.adjustSeats(-1)
}

func (e *Engine) restoreSeat() {
	e.adjustSeats(1)
}

func (e *Engine) adjustSeats(delta int) {
	if err := e.updateLedgerInfo(func(info *model.LedgerInfo) error {
		info.AirlineCount += delta
		return nil
	}); err != nil {
		logger.Errorf("Failed to correct airline count by %d: %v", delta, err)
	}
}
