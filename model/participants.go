// File: model/participants.go
package model

import "time"

// Participant stores the role attributes of an identity known to the ledger.
type Participant struct {
	ObjectType    string    `json:"objectType"`    // Set to the composite key object type (Participant)
	ID            string    `json:"id"`            // Authenticated identity of the participant
	IsAirline     bool      `json:"isAirline"`     // Admitted airline; cleared only by UnregisterAirline
	IsFunded      bool      `json:"isFunded"`      // Has deposited the minimum stake
	IsOracle      bool      `json:"isOracle"`      // Registered flight-status oracle
	OracleIndexes [3]uint8  `json:"oracleIndexes"` // Assigned only when IsOracle
	SponsoredBy   string    `json:"sponsoredBy"`   // Airline whose call admitted this participant, if any
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// HoldsIndex reports whether index is one of the oracle's assigned indexes.
func (p *Participant) HoldsIndex(index uint8) bool {
	if !p.IsOracle {
		return false
	}
	for _, i := range p.OracleIndexes {
		if i == index {
			return true
		}
	}
	return false
}

// LedgerInfo is the singleton record describing the deployment.
type LedgerInfo struct {
	ObjectType     string    `json:"objectType"`
	Owner          string    `json:"owner"`          // Identity that bootstrapped the ledger
	Operational    bool      `json:"operational"`    // Mutations are rejected while false
	AirlineCount   int       `json:"airlineCount"`   // Registered airlines, the governance denominator
	OracleCount    int       `json:"oracleCount"`    // Registered oracles, used as registration order
	BootstrappedAt time.Time `json:"bootstrappedAt"` // Transaction time of the bootstrap
}

// AirlineRegistrationRequest is a pending proposal to admit a new airline.
type AirlineRegistrationRequest struct {
	ObjectType    string    `json:"objectType"`
	Candidate     string    `json:"candidate"`
	Votes         []string  `json:"votes"` // Distinct sponsors, in vote order
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// HasVoted reports whether sponsor already voted for the candidate.
func (r *AirlineRegistrationRequest) HasVoted(sponsor string) bool {
	for _, v := range r.Votes {
		if v == sponsor {
			return true
		}
	}
	return false
}

// AdmissionStatus is the governance state of a candidate airline.
type AdmissionStatus string

const (
	AdmissionPending  AdmissionStatus = "PENDING"
	AdmissionAdmitted AdmissionStatus = "ADMITTED"
)

// Admission is the outcome of a registerAirline call.
type Admission struct {
	Candidate string          `json:"candidate"`
	Status    AdmissionStatus `json:"status"`
	Votes     int             `json:"votes"`    // Distinct votes recorded so far
	Required  int             `json:"required"` // Votes needed at the current airline count; 0 for direct admission
	Counted   bool            `json:"counted"`  // False when the call changed nothing
}
