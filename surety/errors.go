package surety

import (
	"errors"
	"fmt"
)

// Validation failures surfaced to callers. All of them are raised before any
// state is written.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotAnAirline = fmt.Errorf("%w: not an airline", ErrUnauthorized)
	ErrNotFunded    = fmt.Errorf("%w: airline is not funded", ErrUnauthorized)
	ErrNotOwner     = fmt.Errorf("%w: caller is not the contract owner", ErrUnauthorized)

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientFee   = errors.New("insufficient fee")

	ErrUnknownRequest   = errors.New("unknown flight status request")
	ErrIndexMismatch    = errors.New("index does not match request")
	ErrAlreadyResponded = errors.New("oracle already responded to this request")
	ErrNotRegistered    = errors.New("participant is not registered")
	ErrInvalidStatus    = errors.New("invalid status code")

	ErrAlreadyRegistered   = errors.New("already registered")
	ErrNotOperational      = errors.New("contract is not operational")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAlreadyBootstrapped = errors.New("ledger already bootstrapped")
	ErrNotBootstrapped     = errors.New("ledger not bootstrapped")

	ErrUnknownFlight  = errors.New("flight is not registered")
	ErrFlightExists   = errors.New("flight already registered")
	ErrFlightSettled  = errors.New("flight already settled")
	ErrInvalidPremium = errors.New("invalid premium")
	ErrAlreadyInsured = errors.New("insuree already holds a policy for this flight")
)
