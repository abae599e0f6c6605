// Command flightsurety runs the FlightSurety contracts as Fabric chaincode,
// either under a peer or as an external chaincode server.
package main

import (
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"

	"github.com/maxmedina05/flight-surety-udacity-project/contract"
)

func main() {
	if spec := os.Getenv("CORE_CHAINCODE_LOGGING_LEVEL"); spec != "" {
		flogging.ActivateSpec(spec)
	}
	cc, err := contractapi.NewChaincode(&contract.FlightSuretySmartContract{})
	if err != nil {
		panic("Error creating FlightSuretySmartContract: " + err.Error())
	}

	// Chaincode-as-a-service when the peer connects to us.
	if address := os.Getenv("CHAINCODE_SERVER_ADDRESS"); address != "" {
		server := &shim.ChaincodeServer{
			CCID:     os.Getenv("CHAINCODE_ID"),
			Address:  address,
			CC:       cc,
			TLSProps: shim.TLSProperties{Disabled: true},
		}
		if err := server.Start(); err != nil {
			panic("Error starting chaincode server: " + err.Error())
		}
		return
	}
	if err := cc.Start(); err != nil {
		panic("Error starting chaincode: " + err.Error())
	}
}
