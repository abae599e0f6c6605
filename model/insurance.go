// File: model/insurance.go
package model

import "time"

// PolicyStatus defines the possible states of an insurance policy.
type PolicyStatus string

const (
	PolicyActive   PolicyStatus = "ACTIVE"   // Purchased, flight not settled yet
	PolicyCredited PolicyStatus = "CREDITED" // Payout credited to the insuree
	PolicyExpired  PolicyStatus = "EXPIRED"  // Flight settled without airline fault
)

// Flight is a flight registered by an airline for insurance.
type Flight struct {
	ObjectType   string     `json:"objectType"`
	Airline      string     `json:"airline"`
	Code         string     `json:"code"`
	Timestamp    int64      `json:"timestamp"`
	Status       StatusCode `json:"status"`
	Settled      bool       `json:"settled"`
	RegisteredAt time.Time  `json:"registeredAt"`
	SettledAt    time.Time  `json:"settledAt"`
}

// InsurancePolicy is one insuree's cover on one flight. Amounts are decimal base units.
type InsurancePolicy struct {
	ObjectType  string       `json:"objectType"`
	Insuree     string       `json:"insuree"`
	Airline     string       `json:"airline"`
	Flight      string       `json:"flight"`
	Timestamp   int64        `json:"timestamp"`
	Premium     string       `json:"premium"`
	Payout      string       `json:"payout"`
	Status      PolicyStatus `json:"status"`
	PurchasedAt time.Time    `json:"purchasedAt"`
	SettledAt   time.Time    `json:"settledAt"`
}

// CreditBalance holds payouts credited to a holder and not yet withdrawn.
type CreditBalance struct {
	ObjectType    string    `json:"objectType"`
	Holder        string    `json:"holder"`
	Amount        string    `json:"amount"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}
