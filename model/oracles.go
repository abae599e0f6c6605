// File: model/oracles.go
package model

import (
	"fmt"
	"time"
)

// StatusCode is a flight status reported by oracles.
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

// StatusCodes lists every valid status code in ascending order.
var StatusCodes = []StatusCode{
	StatusUnknown,
	StatusOnTime,
	StatusLateAirline,
	StatusLateWeather,
	StatusLateTechnical,
	StatusLateOther,
}

// Valid reports whether s belongs to the closed status enumeration.
func (s StatusCode) Valid() bool {
	return s <= StatusLateOther && s%10 == 0
}

func (s StatusCode) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusOnTime:
		return "ON_TIME"
	case StatusLateAirline:
		return "LATE_AIRLINE"
	case StatusLateWeather:
		return "LATE_WEATHER"
	case StatusLateTechnical:
		return "LATE_TECHNICAL"
	case StatusLateOther:
		return "LATE_OTHER"
	}
	return fmt.Sprintf("STATUS(%d)", uint8(s))
}

// ResponseBucket groups the oracles that reported the same status.
type ResponseBucket struct {
	Status  StatusCode `json:"status"`
	Oracles []string   `json:"oracles"`
}

// OracleStatusRequest tracks oracle responses for one (airline, flight, timestamp).
type OracleStatusRequest struct {
	ObjectType    string           `json:"objectType"`
	Airline       string           `json:"airline"`
	Flight        string           `json:"flight"`
	Timestamp     int64            `json:"timestamp"`
	Index         uint8            `json:"index"` // Only oracles holding this index may respond
	RequestedBy   string           `json:"requestedBy"`
	IsOpen        bool             `json:"isOpen"`
	Responses     []ResponseBucket `json:"responses"` // In first-seen order
	Finalized     bool             `json:"finalized"`
	FinalStatus   StatusCode       `json:"finalStatus"`
	FinalizedWith int              `json:"finalizedWith"` // Size of the winning bucket at finalization
	CreatedAt     time.Time        `json:"createdAt"`
	FinalizedAt   time.Time        `json:"finalizedAt"`
}

// HasResponded reports whether oracle has a recorded response.
func (r *OracleStatusRequest) HasResponded(oracle string) bool {
	for _, b := range r.Responses {
		for _, o := range b.Oracles {
			if o == oracle {
				return true
			}
		}
	}
	return false
}

// Record adds oracle to the bucket for status and returns the bucket size.
func (r *OracleStatusRequest) Record(status StatusCode, oracle string) int {
	for i := range r.Responses {
		if r.Responses[i].Status == status {
			r.Responses[i].Oracles = append(r.Responses[i].Oracles, oracle)
			return len(r.Responses[i].Oracles)
		}
	}
	r.Responses = append(r.Responses, ResponseBucket{Status: status, Oracles: []string{oracle}})
	return 1
}

// Count returns how many oracles reported status.
func (r *OracleStatusRequest) Count(status StatusCode) int {
	for _, b := range r.Responses {
		if b.Status == status {
			return len(b.Oracles)
		}
	}
	return 0
}

// FlightStatusRequested is emitted when a status request is opened.
type FlightStatusRequested struct {
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
	Index     uint8  `json:"index"`
}

// FlightStatusFinalized is emitted when oracles reach consensus.
type FlightStatusFinalized struct {
	Airline   string     `json:"airline"`
	Flight    string     `json:"flight"`
	Timestamp int64      `json:"timestamp"`
	Status    StatusCode `json:"status"`
}
