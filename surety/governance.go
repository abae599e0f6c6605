package surety

import (
	"fmt"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// requiredVotes is ceil(airlineCount / 2).
func requiredVotes(airlineCount int) int {
	return (airlineCount + 1) / 2
}

func meetsQuorum(votes, airlineCount int) bool {
	return votes*2 >= airlineCount
}

func (e *Engine) loadRegistration(candidate string) (*model.AirlineRegistrationRequest, error) {
	return getRecord[model.AirlineRegistrationRequest](e.store, registrationObjectType, []string{candidate})
}

// PendingRegistration returns the open proposal for candidate, or
// ErrNotRegistered when there is none.
func (e *Engine) PendingRegistration(candidate string) (*model.AirlineRegistrationRequest, error) {
	req, err := e.loadRegistration(candidate)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("no pending registration for '%s': %w", candidate, ErrNotRegistered)
	}
	return req, nil
}

// PendingRegistrations lists every open proposal in candidate order.
func (e *Engine) PendingRegistrations() ([]model.AirlineRegistrationRequest, error) {
	reqs := []model.AirlineRegistrationRequest{}
	err := scanRecords(e.store, registrationObjectType, nil, func(r *model.AirlineRegistrationRequest) error {
		reqs = append(reqs, *r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending registrations: %w", err)
	}
	return reqs, nil
}

// vote records sponsor's vote for candidate. Callers hold the candidate's
// registration lock and have checked that sponsor is a funded airline. The
// quorum is checked against the airline count under the ledger info lock.
func (e *Engine) vote(sponsor, candidate string) (*model.Admission, error) {
	req, err := e.loadRegistration(candidate)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if req == nil {
		req = &model.AirlineRegistrationRequest{
			ObjectType: registrationObjectType,
			Candidate:  candidate,
			Votes:      []string{},
			CreatedAt:  now,
		}
	}
	adm := &model.Admission{
		Candidate: candidate,
		Status:    model.AdmissionPending,
		Votes:     len(req.Votes),
	}
	if req.HasVoted(sponsor) {
		info, err := e.loadLedgerInfo()
		if err != nil {
			return nil, err
		}
		adm.Required = requiredVotes(info.AirlineCount)
		logger.Infof("Duplicate vote from '%s' for '%s' ignored (%d/%d votes)", sponsor, candidate, adm.Votes, adm.Required)
		return adm, nil
	}

	req.Votes = append(req.Votes, sponsor)
	req.LastUpdatedAt = now
	adm.Votes = len(req.Votes)
	adm.Counted = true

	votes := len(req.Votes)
	admitted, airlineCount, err := e.admit(candidate, sponsor, func(airlineCount int) bool {
		return meetsQuorum(votes, airlineCount)
	})
	if err != nil {
		return nil, err
	}
	adm.Required = requiredVotes(airlineCount)
	if admitted {
		adm.Status = model.AdmissionAdmitted
		logger.Infof("Airline '%s' admitted by consensus with %d/%d votes", candidate, adm.Votes, airlineCount)
		return adm, nil
	}
	if err := putRecord(e.store, registrationObjectType, []string{candidate}, req); err != nil {
		return nil, err
	}
	logger.Infof("Vote from '%s' recorded for '%s' (%d/%d votes)", sponsor, candidate, adm.Votes, adm.Required)
	return adm, nil
}

// purgeVotes drops the proposal naming target and target's votes on other
// proposals. With ReevaluateOnShrink, proposals that now meet the quorum of
// the current airline count are admitted.
func (e *Engine) purgeVotes(target string) error {
	if err := e.dropRegistration(target); err != nil {
		return err
	}
	var candidates []string
	if err := scanRecords(e.store, registrationObjectType, nil, func(r *model.AirlineRegistrationRequest) error {
		candidates = append(candidates, r.Candidate)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to scan pending registrations: %w", err)
	}
	for _, c := range candidates {
		if err := e.revisitRegistration(c, target); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) dropRegistration(candidate string) error {
	unlock := e.locks.Lock(registrationLockKey(candidate))
	defer unlock()
	req, err := e.loadRegistration(candidate)
	if err != nil || req == nil {
		return err
	}
	logger.Infof("Pending registration for '%s' discarded with %d votes", candidate, len(req.Votes))
	return deleteRecord(e.store, registrationObjectType, []string{candidate})
}

func (e *Engine) revisitRegistration(candidate, removed string) error {
	unlock := e.locks.Lock(registrationLockKey(candidate))
	defer unlock()
	req, err := e.loadRegistration(candidate)
	if err != nil || req == nil {
		return err
	}

	votes := req.Votes[:0]
	for _, v := range req.Votes {
		if v != removed {
			votes = append(votes, v)
		}
	}
	changed := len(votes) != len(req.Votes)
	req.Votes = votes

	if len(req.Votes) == 0 {
		logger.Infof("Pending registration for '%s' lost its last vote and was discarded", candidate)
		return deleteRecord(e.store, registrationObjectType, []string{candidate})
	}
	if e.cfg.ReevaluateOnShrink {
		n := len(req.Votes)
		admitted, airlineCount, err := e.admit(candidate, req.Votes[n-1], func(airlineCount int) bool {
			return meetsQuorum(n, airlineCount)
		})
		if err != nil {
			return err
		}
		if admitted {
			logger.Infof("Airline '%s' admitted on re-evaluation with %d/%d votes", candidate, n, airlineCount)
			return nil
		}
	}
	if changed {
		req.LastUpdatedAt = e.now()
		return putRecord(e.store, registrationObjectType, []string{candidate}, req)
	}
	return nil
}
