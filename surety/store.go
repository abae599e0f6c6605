package surety

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Object types for composite keys, also stored as 'objectType' on each record.
const (
	participantObjectType   = "Participant"         // Attributes: id
	ledgerInfoObjectType    = "LedgerInfo"          // Singleton
	registrationObjectType  = "AirlineRegistration" // Attributes: candidate
	statusRequestObjectType = "OracleStatusRequest" // Attributes: airline, flight, timestamp
	flightObjectType        = "Flight"              // Attributes: airline, flight, timestamp
	policyObjectType        = "InsurancePolicy"     // Attributes: airline, flight, timestamp, insuree
	creditObjectType        = "CreditBalance"       // Attributes: holder
)

const maxAttributeLength = 256

// Store is the ledger collaborator. Records are addressed by an object type
// and an ordered list of attributes, like Fabric composite keys.
type Store interface {
	// GetState returns nil, nil when the key does not exist.
	GetState(objectType string, attrs []string) ([]byte, error)
	PutState(objectType string, attrs []string, value []byte) error
	DelState(objectType string, attrs []string) error
	// ScanState calls fn for every record of objectType whose leading
	// attributes equal partial, in key order.
	ScanState(objectType string, partial []string, fn func(value []byte) error) error
}

// errStopScan ends a scan early without reporting an error.
var errStopScan = errors.New("stop scan")

func getRecord[T any](store Store, objectType string, attrs []string) (*T, error) {
	raw, err := store.GetState(objectType, attrs)
	if err != nil {
		return nil, fmt.Errorf("ledger error reading %s %v: %w", objectType, attrs, err)
	}
	if raw == nil {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %v: %w", objectType, attrs, err)
	}
	return &v, nil
}

func putRecord(store Store, objectType string, attrs []string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %v: %w", objectType, attrs, err)
	}
	if err := store.PutState(objectType, attrs, raw); err != nil {
		return fmt.Errorf("failed to save %s %v: %w", objectType, attrs, err)
	}
	return nil
}

func deleteRecord(store Store, objectType string, attrs []string) error {
	if err := store.DelState(objectType, attrs); err != nil {
		return fmt.Errorf("failed to delete %s %v: %w", objectType, attrs, err)
	}
	return nil
}

func scanRecords[T any](store Store, objectType string, partial []string, fn func(*T) error) error {
	err := store.ScanState(objectType, partial, func(raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			logger.Warningf("Skipping unreadable %s record: %v", objectType, err)
			return nil
		}
		return fn(&v)
	})
	if errors.Is(err, errStopScan) {
		return nil
	}
	return err
}

func flightAttrs(airline, flight string, timestamp int64) []string {
	return []string{airline, flight, strconv.FormatInt(timestamp, 10)}
}

// validateAttribute rejects values that cannot be part of a composite key.
func validateAttribute(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidArgument, field)
	}
	if len(value) > maxAttributeLength {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidArgument, field, maxAttributeLength)
	}
	if !utf8.ValidString(value) || strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: %s contains invalid characters", ErrInvalidArgument, field)
	}
	return nil
}

func validateFlightKey(airline, flight string, timestamp int64) error {
	if err := validateAttribute(airline, "airline"); err != nil {
		return err
	}
	if err := validateAttribute(flight, "flight"); err != nil {
		return err
	}
	if timestamp <= 0 {
		return fmt.Errorf("%w: timestamp must be positive", ErrInvalidArgument)
	}
	return nil
}
