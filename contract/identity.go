package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var idLogger = flogging.MustGetLogger("flightsurety.identity")

func isValidX509ID(id string) bool {
	// "eDUwOTo6" is "x509::" base64 encoded
	return strings.HasPrefix(id, "x509::") || strings.HasPrefix(id, "eDUwOTo6")
}

// getCallerID retrieves the full X.509 ID of the current transactor. Every
// participant of the ledger is keyed by this ID.
func getCallerID(ctx contractapi.TransactionContextInterface) (string, error) {
	clientIdentity := ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	if !isValidX509ID(id) {
		idLogger.Warningf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return id, nil
}

// mustGetCallerID returns the caller's ID for logging, or a placeholder.
func mustGetCallerID(ctx contractapi.TransactionContextInterface) string {
	id, err := getCallerID(ctx)
	if err != nil {
		idLogger.Errorf("mustGetCallerID: %v. Returning placeholder.", err)
		return "ERROR_GETTING_CALLER_ID"
	}
	return id
}

// GetCallerID returns the identity the ledger uses for the caller. Clients use
// it to learn their own participant ID.
func (s *FlightSuretySmartContract) GetCallerID(ctx contractapi.TransactionContextInterface) (string, error) {
	return getCallerID(ctx)
}
